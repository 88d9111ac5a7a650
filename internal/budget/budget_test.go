package budget

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/codrone/flightplanner/pkg/plan"
)

// testPattern builds n boustrophedon lines of the given length in meters,
// spaced 25 m apart around lat 40.7.
func testPattern(n int, length float64) plan.CoveragePattern {
	const lat0, lng0 = 40.7, -74.0
	mPerLat := 111320.0
	mPerLng := 111320.0 * math.Cos(lat0*math.Pi/180)

	lines := make([]plan.FlightLine, n)
	for i := 0; i < n; i++ {
		lat := lat0 + float64(i)*25/mPerLat
		west := plan.LatLng{Lat: lat, Lng: lng0}
		east := plan.LatLng{Lat: lat, Lng: lng0 + length/mPerLng}
		if i%2 == 0 {
			lines[i] = plan.FlightLine{From: west, To: east, Length: length}
		} else {
			lines[i] = plan.FlightLine{From: east, To: west, Length: length}
		}
	}
	var total float64
	for _, l := range lines {
		total += l.Length
	}
	return plan.CoveragePattern{Lines: lines, TotalLength: total, LineSpacing: 25, Altitude: 120}
}

var testSpecs = plan.DroneSpecifications{
	MaxFlightTime:   25,
	MaxSpeed:        15,
	MaxAltitude:     150,
	BatteryCapacity: 5000,
	Weight:          1000,
	WindResistance:  10,
}

func TestPartition_SingleSortie(t *testing.T) {
	// 3 lines of 100 m at 10 m/s is half a minute of flying.
	sorties, err := Partition(testPattern(3, 100), testSpecs, 10, Config{})
	require.NoError(t, err)

	require.Len(t, sorties, 1)
	s := sorties[0]
	assert.Equal(t, 0, s.StartLine)
	assert.Equal(t, 2, s.EndLine)
	assert.Less(t, s.Duration, testSpecs.MaxFlightTime*60)
	assert.Greater(t, s.BatteryUsed, 0.0)
}

func TestPartition_Deterministic(t *testing.T) {
	pattern := testPattern(20, 400)

	a, err := Partition(pattern, testSpecs, 10, Config{})
	require.NoError(t, err)
	b, err := Partition(pattern, testSpecs, 10, Config{})
	require.NoError(t, err)

	assert.Equal(t, a, b)
}

func TestPartition_SplitsLongMission(t *testing.T) {
	// 60 lines x 400 m at 10 m/s is 40 min of productive flight against a
	// 25 min battery.
	pattern := testPattern(60, 400)
	sorties, err := Partition(pattern, testSpecs, 10, Config{})
	require.NoError(t, err)

	assert.GreaterOrEqual(t, len(sorties), 2)
	for i, s := range sorties {
		assert.LessOrEqual(t, s.Duration, testSpecs.MaxFlightTime*60, "sortie %d over time budget", i)
	}

	// Sorties must tile the pattern contiguously.
	assert.Equal(t, 0, sorties[0].StartLine)
	for i := 1; i < len(sorties); i++ {
		assert.Equal(t, sorties[i-1].EndLine+1, sorties[i].StartLine)
	}
	assert.Equal(t, len(pattern.Lines)-1, sorties[len(sorties)-1].EndLine)
}

func TestPartition_MonotonicInFlightTime(t *testing.T) {
	pattern := testPattern(40, 500)

	prev := 0
	for _, minutes := range []float64{40, 30, 20, 10, 5} {
		specs := testSpecs
		specs.MaxFlightTime = minutes
		sorties, err := Partition(pattern, specs, 10, Config{})
		require.NoError(t, err, "maxFlightTime %.0f", minutes)

		assert.GreaterOrEqual(t, len(sorties), prev, "shrinking flight time must not reduce sortie count")
		prev = len(sorties)
	}
}

func TestPartition_UnreachableLine(t *testing.T) {
	// One 20 km line at 10 m/s needs over 33 minutes on its own.
	pattern := testPattern(1, 20000)
	_, err := Partition(pattern, testSpecs, 10, Config{})
	assert.ErrorIs(t, err, plan.ErrUnreachableCoverage)
}

func TestPartition_BatteryLimited(t *testing.T) {
	// Generous flight time but a small battery: capacity becomes the
	// binding limit.
	specs := testSpecs
	specs.MaxFlightTime = 120
	specs.BatteryCapacity = 1000

	cfg := Config{DrainRate: 2, ReferenceWeight: 1000, UsableBattery: 0.85}
	// Usable 850 mAh at 4 mAh/s (1 kg drone) is 212 s per sortie.
	pattern := testPattern(20, 400) // 800 s productive at 10 m/s

	sorties, err := Partition(pattern, specs, 10, cfg)
	require.NoError(t, err)

	assert.GreaterOrEqual(t, len(sorties), 4)
	for i, s := range sorties {
		assert.LessOrEqual(t, s.BatteryUsed, 850.0+1e-9, "sortie %d over battery budget", i)
	}
}

func TestPartition_TransitNotCarriedAcrossSorties(t *testing.T) {
	// Two 3 km lines at 10 m/s against a budget that fits only one line per
	// sortie. The hop between the lines happens on the ground between
	// launches, so each sortie's length is exactly the line it flies.
	specs := testSpecs
	specs.MaxFlightTime = 6

	sorties, err := Partition(testPattern(2, 3000), specs, 10, Config{})
	require.NoError(t, err)

	require.Len(t, sorties, 2)
	assert.InDelta(t, 3000, sorties[0].Length, 1e-9)
	assert.InDelta(t, 3000, sorties[1].Length, 1e-9)
}

func TestPartition_SpeedCappedAtDroneMax(t *testing.T) {
	pattern := testPattern(2, 300)

	capped, err := Partition(pattern, testSpecs, 100, Config{})
	require.NoError(t, err)
	atMax, err := Partition(pattern, testSpecs, testSpecs.MaxSpeed, Config{})
	require.NoError(t, err)

	assert.Equal(t, atMax, capped)
}

func TestTotalMissionTime(t *testing.T) {
	cfg := Config{RelaunchOverhead: 300}

	single := []plan.Sortie{{Duration: 600}}
	assert.InDelta(t, 600, TotalMissionTime(single, cfg), 1e-9)

	three := []plan.Sortie{{Duration: 600}, {Duration: 500}, {Duration: 400}}
	assert.InDelta(t, 600+500+400+2*300, TotalMissionTime(three, cfg), 1e-9)
}
