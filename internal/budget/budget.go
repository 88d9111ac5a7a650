// Package budget partitions a coverage pattern into battery-bounded sorties.
// The cut is greedy and deterministic: not globally optimal, but bounded and
// reproducible, which matters more for a safety-facing planner.
package budget

import (
	"fmt"

	"github.com/codrone/flightplanner/internal/geo"
	"github.com/codrone/flightplanner/pkg/plan"
)

// Config carries the budgeter tunables. Zero fields fall back to the
// defaults below.
type Config struct {
	// TurnPenalty is the fixed time cost of one direction change, seconds.
	// Models deceleration and re-acceleration at line ends.
	TurnPenalty float64

	// RelaunchOverhead is the time between sorties for return-to-launch,
	// battery swap and re-launch, seconds. It counts against the mission
	// time window, not against any single sortie.
	RelaunchOverhead float64

	// DrainRate is the base battery drain in mAh per second for the
	// reference airframe weight.
	DrainRate float64

	// ReferenceWeight is the airframe weight the drain rate was measured
	// at, grams. Heavier drones drain proportionally faster.
	ReferenceWeight float64

	// UsableBattery is the fraction of capacity a sortie may consume,
	// leaving a landing reserve.
	UsableBattery float64
}

const (
	defaultTurnPenalty      = 4.0
	defaultRelaunchOverhead = 300.0
	defaultDrainRate        = 2.0
	defaultReferenceWeight  = 1000.0
	defaultUsableBattery    = 0.85
)

func (c Config) withDefaults() Config {
	if c.TurnPenalty <= 0 {
		c.TurnPenalty = defaultTurnPenalty
	}
	if c.RelaunchOverhead <= 0 {
		c.RelaunchOverhead = defaultRelaunchOverhead
	}
	if c.DrainRate <= 0 {
		c.DrainRate = defaultDrainRate
	}
	if c.ReferenceWeight <= 0 {
		c.ReferenceWeight = defaultReferenceWeight
	}
	if c.UsableBattery <= 0 || c.UsableBattery > 1 {
		c.UsableBattery = defaultUsableBattery
	}
	return c
}

// drainPerSecond is the linear battery consumption model: base rate scaled
// by airframe weight relative to the reference weight.
func (c Config) drainPerSecond(weight float64) float64 {
	if weight <= 0 {
		return c.DrainRate
	}
	return c.DrainRate * (1 + weight/c.ReferenceWeight)
}

// Partition splits the pattern into sorties executable within one battery
// cycle each. Per-line duration is length/speed plus a fixed turn penalty
// per direction change; duration and battery consumption accumulate against
// maxFlightTime and usable batteryCapacity. When the next line would exceed
// either limit the sortie closes at the previous line and a new one starts.
// Fails with plan.ErrUnreachableCoverage when a single line alone busts a
// limit: lines are never split mid-flight.
func Partition(pattern plan.CoveragePattern, specs plan.DroneSpecifications, targetSpeed float64, cfg Config) ([]plan.Sortie, error) {
	cfg = cfg.withDefaults()

	speed := targetSpeed
	if speed <= 0 || speed > specs.MaxSpeed {
		speed = specs.MaxSpeed
	}
	if speed <= 0 {
		return nil, fmt.Errorf("drone has no usable speed")
	}

	maxDuration := specs.MaxFlightTime * 60
	maxDrain := specs.BatteryCapacity * cfg.UsableBattery
	drainRate := cfg.drainPerSecond(specs.Weight)

	var sorties []plan.Sortie
	cur := plan.Sortie{StartLine: 0, EndLine: -1}

	for i, line := range pattern.Lines {
		lineDuration := line.Length / speed

		// A lone line must fit a fresh battery, with one turn to settle
		// onto the line heading.
		soloDuration := lineDuration + cfg.TurnPenalty
		if soloDuration > maxDuration || soloDuration*drainRate > maxDrain {
			return nil, fmt.Errorf("%w: line %d needs %.0f s against %.0f s budget",
				plan.ErrUnreachableCoverage, i, soloDuration, maxDuration)
		}

		transit, transitDist := 0.0, 0.0
		if cur.EndLine >= 0 {
			transitDist = geo.Haversine(pattern.Lines[cur.EndLine].To, line.From)
			transit = transitDist/speed + cfg.TurnPenalty
		} else {
			transit = cfg.TurnPenalty
		}

		next := cur.Duration + transit + lineDuration
		if cur.EndLine >= 0 && (next > maxDuration || next*drainRate > maxDrain) {
			// Close the running sortie and restart at this line.
			cur.BatteryUsed = cur.Duration * drainRate
			sorties = append(sorties, cur)
			cur = plan.Sortie{StartLine: i, EndLine: -1}
			// The hop to this line happens on the ground between sorties,
			// so it must not count toward the new sortie's flown length.
			transitDist = 0
			transit = cfg.TurnPenalty
			next = transit + lineDuration
		}

		cur.Duration = next
		cur.Length += transitDist + line.Length
		cur.EndLine = i
	}

	if cur.EndLine >= 0 {
		cur.BatteryUsed = cur.Duration * drainRate
		sorties = append(sorties, cur)
	}
	return sorties, nil
}

// UsableCapacity is the battery charge a single sortie may consume in mAh,
// after the landing reserve is held back.
func (c Config) UsableCapacity(capacity float64) float64 {
	return capacity * c.withDefaults().UsableBattery
}

// TotalMissionTime is the wall-clock duration of the partitioned mission:
// flight time of each sortie plus relaunch overhead between sorties.
func TotalMissionTime(sorties []plan.Sortie, cfg Config) float64 {
	cfg = cfg.withDefaults()
	var total float64
	for _, s := range sorties {
		total += s.Duration
	}
	if n := len(sorties); n > 1 {
		total += float64(n-1) * cfg.RelaunchOverhead
	}
	return total
}
