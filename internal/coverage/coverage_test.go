package coverage

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/codrone/flightplanner/internal/footprint"
	"github.com/codrone/flightplanner/internal/geo"
	"github.com/codrone/flightplanner/pkg/plan"
)

func squareBoundary(lat, lng, side float64) []plan.LatLng {
	dLat := side / 2 / 111320
	dLng := side / 2 / (111320 * math.Cos(lat*math.Pi/180))
	return []plan.LatLng{
		{Lat: lat - dLat, Lng: lng - dLng},
		{Lat: lat - dLat, Lng: lng + dLng},
		{Lat: lat + dLat, Lng: lng + dLng},
		{Lat: lat + dLat, Lng: lng - dLng},
	}
}

func mustPolygon(t *testing.T, boundary []plan.LatLng) *geo.Polygon {
	t.Helper()
	poly, err := geo.ValidateBoundary(boundary)
	require.NoError(t, err)
	return poly
}

// Phantom 4 class footprint at 120 m: roughly 84 x 62 m.
var testFootprint = footprint.Footprint{Width: 84.14, Height: 62.05, GSD: 0.016}

func TestGenerate_SquareSurvey(t *testing.T) {
	poly := mustPolygon(t, squareBoundary(40.7, -74.0, 100))

	pattern, err := Generate(poly, testFootprint, 80, 70, 120, Config{})
	require.NoError(t, err)

	assert.NotEmpty(t, pattern.Lines)
	assert.False(t, pattern.SparseCoverage)
	assert.InDelta(t, 84.14*0.3, pattern.LineSpacing, 0.01)
	assert.InDelta(t, 62.05*0.2, pattern.TriggerSpacing, 0.01)
	assert.Equal(t, 120.0, pattern.Altitude)
	assert.Greater(t, pattern.EstimatedPhotos, 0)

	var total float64
	for _, l := range pattern.Lines {
		total += l.Length
	}
	assert.InDelta(t, total, pattern.TotalLength, 1e-6)
}

func TestGenerate_LinesInsidePolygon(t *testing.T) {
	poly := mustPolygon(t, squareBoundary(40.7, -74.0, 200))
	proj := poly.Proj()

	pattern, err := Generate(poly, testFootprint, 80, 70, 120, Config{})
	require.NoError(t, err)

	for i, l := range pattern.Lines {
		a := proj.ToPlanar(l.From)
		b := proj.ToPlanar(l.To)
		// Interior samples must be inside; endpoints sit on the boundary.
		for _, tt := range []float64{0.1, 0.5, 0.9} {
			p := geo.Segment{A: a, B: b}.At(tt)
			assert.True(t, poly.Contains(p), "line %d sample t=%.1f outside polygon", i, tt)
		}
	}
}

func TestGenerate_SweptAreaApproximatesPolygon(t *testing.T) {
	poly := mustPolygon(t, squareBoundary(40.7, -74.0, 300))

	for _, side := range []float64{0, 30, 70, 89} {
		pattern, err := Generate(poly, testFootprint, 80, side, 120, Config{})
		require.NoError(t, err, "side overlap %.0f", side)

		swept := pattern.TotalLength * pattern.LineSpacing
		area := poly.Area()
		assert.InDelta(t, area, swept, area*0.25, "side overlap %.0f: swept %f vs area %f", side, swept, area)
	}
}

func TestGenerate_Boustrophedon(t *testing.T) {
	poly := mustPolygon(t, squareBoundary(40.7, -74.0, 200))
	proj := poly.Proj()

	pattern, err := Generate(poly, testFootprint, 80, 70, 120, Config{})
	require.NoError(t, err)
	require.Greater(t, len(pattern.Lines), 2)

	for i := 0; i+1 < len(pattern.Lines); i++ {
		cur := pattern.Lines[i]
		next := pattern.Lines[i+1]

		d1 := proj.ToPlanar(cur.To).Sub(proj.ToPlanar(cur.From))
		d2 := proj.ToPlanar(next.To).Sub(proj.ToPlanar(next.From))
		assert.Negative(t, d1.Dot(d2), "consecutive lines %d/%d should alternate direction", i, i+1)

		// End-to-start transit must be shorter than flying line i again.
		transit := geo.Haversine(cur.To, next.From)
		assert.Less(t, transit, cur.Length, "transit after line %d should be short", i)
	}
}

func TestGenerate_NarrowPolygonSparse(t *testing.T) {
	// 40 m wide strip, narrower than the 84 m footprint.
	lat, lng := 40.7, -74.0
	dLat := 20.0 / 111320
	dLng := 150.0 / (111320 * math.Cos(lat*math.Pi/180))
	poly := mustPolygon(t, []plan.LatLng{
		{Lat: lat - dLat, Lng: lng - dLng},
		{Lat: lat - dLat, Lng: lng + dLng},
		{Lat: lat + dLat, Lng: lng + dLng},
		{Lat: lat + dLat, Lng: lng - dLng},
	})

	pattern, err := Generate(poly, testFootprint, 80, 70, 120, Config{MinAreaFactor: 2})
	require.NoError(t, err)

	assert.True(t, pattern.SparseCoverage)
	assert.Len(t, pattern.Lines, 1)
	assert.InDelta(t, 300, pattern.Lines[0].Length, 10)
}

func TestGenerate_PolygonTooSmall(t *testing.T) {
	poly := mustPolygon(t, squareBoundary(40.7, -74.0, 20))

	_, err := Generate(poly, testFootprint, 80, 70, 120, Config{})
	assert.ErrorIs(t, err, plan.ErrPolygonTooSmall)
}

func TestGenerate_InvalidOverlap(t *testing.T) {
	poly := mustPolygon(t, squareBoundary(40.7, -74.0, 200))

	cases := []struct {
		name    string
		forward float64
		side    float64
	}{
		{"forward negative", -1, 70},
		{"forward 100", 100, 70},
		{"side negative", 80, -5},
		{"side 100", 80, 100},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Generate(poly, testFootprint, tc.forward, tc.side, 120, Config{})
			assert.ErrorIs(t, err, plan.ErrInvalidOverlap)
		})
	}
}

func TestGenerate_Deterministic(t *testing.T) {
	poly := mustPolygon(t, squareBoundary(40.7, -74.0, 250))

	p1, err := Generate(poly, testFootprint, 80, 70, 120, Config{})
	require.NoError(t, err)
	p2, err := Generate(poly, testFootprint, 80, 70, 120, Config{})
	require.NoError(t, err)

	assert.Equal(t, p1, p2)
}
