// Package risk applies environmental constraints and a weather snapshot to a
// budgeted plan, producing a feasibility verdict, a continuous risk score
// and tagged warnings.
package risk

import (
	"context"
	"fmt"
	"log/slog"
	"math"

	"github.com/codrone/flightplanner/internal/geo"
	"github.com/codrone/flightplanner/pkg/plan"
)

// ForecastProvider is the weather collaborator port. Implementations may be
// remote (HTTP) or local; the evaluator only suspends at this one call site.
type ForecastProvider interface {
	FetchForecast(ctx context.Context, loc plan.LatLng, window plan.TimeWindow) (plan.WeatherSnapshot, error)
}

// Config carries the risk model tunables. The additive capped weighting is a
// policy choice: margins combine so a feasible plan still carries a
// quantified distance to its limits.
type Config struct {
	WindWeight       float64
	VisibilityWeight float64
	TimeWeight       float64
	BatteryWeight    float64

	// WindWarnRatio is the fraction of the wind limit above which a
	// warning is emitted even though the plan stays feasible.
	WindWarnRatio float64

	// VisibilityWarnRatio is the minimum-visibility to forecast-visibility
	// ratio above which a margin warning is emitted.
	VisibilityWarnRatio float64

	// BatteryWarnRatio is the fraction of the usable battery above which
	// a sortie triggers a margin warning.
	BatteryWarnRatio float64

	// PrecipWarnPct is the precipitation probability that triggers an
	// advisory warning.
	PrecipWarnPct float64
}

func (c Config) withDefaults() Config {
	if c.WindWeight <= 0 {
		c.WindWeight = 0.4
	}
	if c.VisibilityWeight <= 0 {
		c.VisibilityWeight = 0.2
	}
	if c.TimeWeight <= 0 {
		c.TimeWeight = 0.2
	}
	if c.BatteryWeight <= 0 {
		c.BatteryWeight = 0.2
	}
	if c.WindWarnRatio <= 0 {
		c.WindWarnRatio = 0.7
	}
	if c.VisibilityWarnRatio <= 0 {
		c.VisibilityWarnRatio = 0.7
	}
	if c.BatteryWarnRatio <= 0 {
		c.BatteryWarnRatio = 0.8
	}
	if c.PrecipWarnPct <= 0 {
		c.PrecipWarnPct = 40
	}
	return c
}

// Input is the budgeted plan under evaluation plus the context it flies in.
type Input struct {
	Pattern       plan.CoveragePattern
	Sorties       []plan.Sortie
	Specs         plan.DroneSpecifications
	MissionType   plan.MissionType
	Constraints   plan.EnvironmentalConstraints
	Origin        plan.LatLng // boundary centroid, used for the forecast lookup
	MissionTime   float64     // seconds incl. inter-sortie overhead
	UsableBattery float64     // mAh available per sortie
}

// Evaluator runs the constraint checks. The forecast provider is injected;
// a nil provider degrades to drone-limit-only checks with a
// weather_unavailable warning rather than failing the plan.
type Evaluator struct {
	provider ForecastProvider
	cfg      Config
	log      *slog.Logger
}

// New creates an evaluator. logger may be nil.
func New(provider ForecastProvider, cfg Config, logger *slog.Logger) *Evaluator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Evaluator{provider: provider, cfg: cfg.withDefaults(), log: logger}
}

// Evaluate checks the plan against environmental constraints and the
// forecast. Fails with plan.ErrInvalidTimeWindow for a malformed window and
// with ctx.Err() when the caller cancels before the forecast resolves;
// every other condition lands in the verdict, never in the error.
func (e *Evaluator) Evaluate(ctx context.Context, in Input) (plan.Evaluation, error) {
	if tw := in.Constraints.TimeWindow; tw != nil && tw.End.Before(tw.Start) {
		return plan.Evaluation{}, fmt.Errorf("%w: %s before %s", plan.ErrInvalidTimeWindow, tw.End, tw.Start)
	}

	var (
		warnings   []plan.Warning
		score      float64
		infeasible bool
		degraded   bool
	)
	warn := func(kind plan.WarningKind, format string, args ...any) {
		warnings = append(warnings, plan.Warning{Kind: kind, Message: fmt.Sprintf(format, args...)})
	}

	if in.Pattern.SparseCoverage {
		warn(plan.WarnSparseCoverage, "boundary narrower than one footprint; single-pass coverage may leave gaps")
	}
	if n := len(in.Sorties); n > 1 {
		warn(plan.WarnMultiSortie, "mission requires %d sorties with battery changes between them", n)
	}

	if zone, hit := e.zoneConflict(in); hit {
		infeasible = true
		warn(plan.WarnRestrictedZone, "flight path crosses restricted zone %d", zone)
	}
	e.checkObstacles(in, warn, &infeasible, &score)

	if tw := in.Constraints.TimeWindow; tw != nil {
		window := tw.Duration().Seconds()
		if in.MissionTime > window {
			warn(plan.WarnTimeWindowExceeded,
				"estimated mission time %.0f min exceeds the %.0f min window; consider splitting sorties across windows",
				in.MissionTime/60, window/60)
			score += e.cfg.TimeWeight * clamp01((in.MissionTime-window)/in.MissionTime)
		}
	}

	score += e.batteryMargin(in, warn)

	snapshot, ok, err := e.fetchForecast(ctx, in)
	if err != nil {
		return plan.Evaluation{}, err
	}
	if !ok {
		// Conservative fallback: availability over masked risk. The plan
		// is never silently feasible without a forecast.
		degraded = true
		warn(plan.WarnWeatherUnavailable, "weather forecast unavailable; wind and visibility were not checked")
	} else {
		e.checkWind(in, snapshot, warn, &infeasible, &score)
		e.checkVisibility(in, snapshot, warn, &infeasible, &score)
		if snapshot.Precipitation >= e.cfg.PrecipWarnPct {
			warn(plan.WarnPrecipitationChance, "%.0f%% precipitation probability in the flight window", snapshot.Precipitation)
			score += 0.1 * clamp01(snapshot.Precipitation/100)
		}
	}

	verdict := plan.VerdictFeasible
	switch {
	case infeasible:
		verdict = plan.VerdictInfeasible
	case len(warnings) > 0 || degraded:
		verdict = plan.VerdictWithWarnings
	}

	eval := plan.Evaluation{
		Verdict:   verdict,
		RiskScore: math.Min(score, 1),
		Warnings:  warnings,
	}
	if ok {
		eval.Weather = &snapshot
	}
	return eval, nil
}

// fetchForecast resolves the weather snapshot. The bool result is false when
// no forecast could be obtained; only caller cancellation is an error.
func (e *Evaluator) fetchForecast(ctx context.Context, in Input) (plan.WeatherSnapshot, bool, error) {
	if e.provider == nil {
		return plan.WeatherSnapshot{}, false, nil
	}

	var window plan.TimeWindow
	if in.Constraints.TimeWindow != nil {
		window = *in.Constraints.TimeWindow
	}
	snapshot, err := e.provider.FetchForecast(ctx, in.Origin, window)
	if err != nil {
		if ctx.Err() != nil {
			return plan.WeatherSnapshot{}, false, ctx.Err()
		}
		e.log.Warn("forecast lookup failed, degrading to drone-limit checks", "error", err)
		return plan.WeatherSnapshot{}, false, nil
	}
	return snapshot, true, nil
}

func (e *Evaluator) checkWind(in Input, w plan.WeatherSnapshot, warn func(plan.WarningKind, string, ...any), infeasible *bool, score *float64) {
	limit := in.Specs.WindResistance
	if c := in.Constraints.MaxWindSpeed; c > 0 && c < limit {
		limit = c
	}
	if limit <= 0 {
		return
	}

	ratio := w.WindSpeed / limit
	*score += e.cfg.WindWeight * clamp01(ratio)

	switch {
	case w.WindSpeed >= limit:
		*infeasible = true
		warn(plan.WarnWindMarginLow, "forecast wind %.1f m/s meets or exceeds the %.1f m/s limit", w.WindSpeed, limit)
	case ratio > e.cfg.WindWarnRatio:
		warn(plan.WarnWindMarginLow, "forecast wind %.1f m/s is within %.0f%% of the %.1f m/s limit", w.WindSpeed, ratio*100, limit)
	}
}

func (e *Evaluator) checkVisibility(in Input, w plan.WeatherSnapshot, warn func(plan.WarningKind, string, ...any), infeasible *bool, score *float64) {
	min := in.Constraints.MinVisibility
	if min <= 0 || w.Visibility <= 0 {
		return
	}

	ratio := min / w.Visibility
	*score += e.cfg.VisibilityWeight * clamp01(ratio)

	switch {
	case w.Visibility < min:
		*infeasible = true
		warn(plan.WarnLowVisibility, "forecast visibility %.1f km is below the %.1f km minimum", w.Visibility, min)
	case ratio > e.cfg.VisibilityWarnRatio:
		warn(plan.WarnLowVisibility, "forecast visibility %.1f km is close to the %.1f km minimum", w.Visibility, min)
	}
}

// zoneConflict reports the index of the first restricted zone any flight
// line touches. Zone entry is never overridden by mission type.
func (e *Evaluator) zoneConflict(in Input) (int, bool) {
	if len(in.Constraints.RestrictedZones) == 0 {
		return 0, false
	}
	proj := geo.NewProjection(in.Origin)

	for zi, zone := range in.Constraints.RestrictedZones {
		if len(zone) < 3 {
			continue
		}
		ring := proj.Ring(zone)
		for _, line := range in.Pattern.Lines {
			seg := geo.Segment{A: proj.ToPlanar(line.From), B: proj.ToPlanar(line.To)}
			if geo.SegmentIntersectsRing(seg, ring) {
				return zi, true
			}
		}
	}
	return 0, false
}

// checkObstacles flags flight lines inside an obstacle's exclusion radius.
// Inspection missions fly close to structures by design, so for them the
// conflict downgrades to a proximity warning.
func (e *Evaluator) checkObstacles(in Input, warn func(plan.WarningKind, string, ...any), infeasible *bool, score *float64) {
	if len(in.Constraints.Obstacles) == 0 {
		return
	}
	proj := geo.NewProjection(in.Origin)

	for oi, obs := range in.Constraints.Obstacles {
		if obs.Radius <= 0 {
			continue
		}
		center := proj.ToPlanar(obs.Center)
		for _, line := range in.Pattern.Lines {
			seg := geo.Segment{A: proj.ToPlanar(line.From), B: proj.ToPlanar(line.To)}
			d := geo.SegmentPointDistance(seg, center)
			if d >= obs.Radius {
				continue
			}
			if in.MissionType == plan.MissionInspection {
				warn(plan.WarnObstacleProximity, "inspection path passes %.0f m from obstacle %d (%.0f m exclusion)", d, oi, obs.Radius)
				*score += 0.05
			} else {
				*infeasible = true
				warn(plan.WarnObstacleProximity, "flight path enters the %.0f m exclusion radius of obstacle %d", obs.Radius, oi)
			}
			break
		}
	}
}

func (e *Evaluator) batteryMargin(in Input, warn func(plan.WarningKind, string, ...any)) float64 {
	if in.UsableBattery <= 0 || len(in.Sorties) == 0 {
		return 0
	}
	var worst float64
	for _, s := range in.Sorties {
		worst = math.Max(worst, s.BatteryUsed/in.UsableBattery)
	}
	if worst > e.cfg.BatteryWarnRatio {
		warn(plan.WarnBatteryMarginLow, "a sortie consumes %.0f%% of the usable battery", worst*100)
	}
	return e.cfg.BatteryWeight * clamp01(worst)
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
