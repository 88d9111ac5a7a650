// Package planner is the engine facade: it runs a mission request through
// boundary validation, footprint math, coverage generation, sortie budgeting
// and risk evaluation, and assembles the immutable mission plan.
package planner

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/codrone/flightplanner/internal/budget"
	"github.com/codrone/flightplanner/internal/coverage"
	"github.com/codrone/flightplanner/internal/footprint"
	"github.com/codrone/flightplanner/internal/geo"
	"github.com/codrone/flightplanner/internal/risk"
	"github.com/codrone/flightplanner/pkg/plan"
)

// Config aggregates the per-stage tunables. The zero value uses each stage's
// own defaults.
type Config struct {
	Coverage coverage.Config
	Budget   budget.Config
	Risk     risk.Config
}

// Resolver fills zero requirement fields from the per-type defaults table.
// The config package provides the production implementation.
type Resolver func(plan.MissionRequirements) (plan.MissionRequirements, error)

// Engine is the single entry point for mission planning. It is safe for
// concurrent use: all per-request state lives on the stack.
type Engine struct {
	resolve Resolver
	risk    *risk.Evaluator
	cfg     Config
	log     *slog.Logger

	// OTEL metrics
	planned  metric.Int64Counter
	rejected metric.Int64Counter
	duration metric.Float64Histogram
}

// New creates an engine. The forecast provider may be nil, in which case
// plans are evaluated without weather and carry a weather_unavailable
// warning. Uses the global OTel meter for metrics (no-op if not configured).
func New(resolve Resolver, provider risk.ForecastProvider, cfg Config, logger *slog.Logger) (*Engine, error) {
	if logger == nil {
		logger = slog.Default()
	}

	e := &Engine{
		resolve: resolve,
		risk:    risk.New(provider, cfg.Risk, logger),
		cfg:     cfg,
		log:     logger,
	}

	m := meter()

	var err error

	e.planned, err = m.Int64Counter(
		"planner.plans.created",
		metric.WithDescription("Total mission plans produced, by verdict"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating planned counter: %w", err)
	}

	e.rejected, err = m.Int64Counter(
		"planner.requests.rejected",
		metric.WithDescription("Total requests rejected before evaluation"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating rejected counter: %w", err)
	}

	e.duration, err = m.Float64Histogram(
		"planner.plan.duration",
		metric.WithDescription("Planning pipeline duration in seconds"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating duration histogram: %w", err)
	}

	return e, nil
}

// Plan runs the full pipeline for one request. Input errors (bad boundary,
// bad altitude, unreachable coverage) come back as wrapped sentinels from
// pkg/plan; environmental problems never error, they land in the verdict.
func (e *Engine) Plan(ctx context.Context, req plan.Request) (plan.MissionPlan, error) {
	start := time.Now()

	missionPlan, err := e.plan(ctx, req)

	elapsed := time.Since(start).Seconds()
	e.duration.Record(ctx, elapsed)
	if err != nil {
		e.rejected.Add(ctx, 1)
		e.log.Warn("planning rejected", "error", err, "elapsed", elapsed)
		return plan.MissionPlan{}, err
	}

	e.planned.Add(ctx, 1,
		metric.WithAttributes(attribute.String("verdict", string(missionPlan.Verdict))))
	e.log.Info("plan created",
		"verdict", missionPlan.Verdict,
		"lines", len(missionPlan.Pattern.Lines),
		"sorties", len(missionPlan.Sorties),
		"risk", missionPlan.RiskScore,
		"elapsed", elapsed)
	return missionPlan, nil
}

func (e *Engine) plan(ctx context.Context, req plan.Request) (plan.MissionPlan, error) {
	reqs, err := e.resolve(req.Requirements)
	if err != nil {
		return plan.MissionPlan{}, fmt.Errorf("resolving requirements: %w", err)
	}
	req.Requirements = reqs

	poly, err := geo.ValidateBoundary(req.Boundary)
	if err != nil {
		return plan.MissionPlan{}, fmt.Errorf("validating boundary: %w", err)
	}

	fp, err := footprint.GroundFootprint(req.Drone.CameraSpecs, reqs.Altitude, req.Drone.MaxAltitude)
	if err != nil {
		return plan.MissionPlan{}, fmt.Errorf("computing footprint: %w", err)
	}

	pattern, err := coverage.Generate(poly, fp, reqs.ForwardOverlap, reqs.SideOverlap, reqs.Altitude, e.cfg.Coverage)
	if err != nil {
		return plan.MissionPlan{}, fmt.Errorf("generating coverage: %w", err)
	}

	sorties, err := budget.Partition(pattern, req.Drone, reqs.TargetSpeed, e.cfg.Budget)
	if err != nil {
		return plan.MissionPlan{}, fmt.Errorf("budgeting sorties: %w", err)
	}
	missionTime := budget.TotalMissionTime(sorties, e.cfg.Budget)

	eval, err := e.risk.Evaluate(ctx, risk.Input{
		Pattern:       pattern,
		Sorties:       sorties,
		Specs:         req.Drone,
		MissionType:   reqs.Type,
		Constraints:   req.Constraints,
		Origin:        poly.Proj().ToGeo(poly.Centroid()),
		MissionTime:   missionTime,
		UsableBattery: e.cfg.Budget.UsableCapacity(req.Drone.BatteryCapacity),
	})
	if err != nil {
		return plan.MissionPlan{}, fmt.Errorf("evaluating plan: %w", err)
	}

	return plan.MissionPlan{
		Pattern:         pattern,
		Sorties:         sorties,
		TotalFlightTime: missionTime,
		AreaCovered:     poly.Area(),
		Verdict:         eval.Verdict,
		RiskScore:       eval.RiskScore,
		Warnings:        eval.Warnings,
		Weather:         eval.Weather,
		Request:         req,
		CreatedAt:       time.Now().UTC(),
	}, nil
}
