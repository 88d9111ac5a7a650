package export

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/codrone/flightplanner/pkg/plan"
)

func twoLinePlan() plan.MissionPlan {
	return plan.MissionPlan{
		Pattern: plan.CoveragePattern{
			Lines: []plan.FlightLine{
				{From: plan.LatLng{Lat: 52.5200, Lng: 13.4050}, To: plan.LatLng{Lat: 52.5210, Lng: 13.4050}, Length: 111},
				{From: plan.LatLng{Lat: 52.5210, Lng: 13.4053}, To: plan.LatLng{Lat: 52.5200, Lng: 13.4053}, Length: 111},
			},
			Altitude: 120,
		},
		Sorties:     []plan.Sortie{{StartLine: 0, EndLine: 1, Duration: 30}},
		AreaCovered: 2500,
	}
}

func TestKMLExport(t *testing.T) {
	res, err := KML(twoLinePlan(), PlatformDJI, "Farm Survey")
	require.NoError(t, err)

	assert.Equal(t, "Farm_Survey_dji.kml", res.Filename)
	assert.Equal(t, PlatformDJI, res.Platform)
	assert.Equal(t, 4, res.WaypointCount)
	assert.Contains(t, res.CompatibleApps, "Litchi")
	assert.False(t, res.GeneratedAt.IsZero())

	kml := string(res.KML)
	assert.Contains(t, kml, `<?xml version="1.0" encoding="UTF-8"?>`)
	assert.Contains(t, kml, `xmlns="http://www.opengis.net/kml/2.2"`)
	assert.Contains(t, kml, "<name>Farm Survey</name>")
	// Coordinates are lng,lat,alt.
	assert.Contains(t, kml, "13.4050000,52.5200000,120.0")
	assert.Contains(t, kml, "<name>Sortie 1</name>")
	assert.Contains(t, kml, "<name>WP1</name>")
	assert.Contains(t, kml, "<name>WP4</name>")
	assert.Contains(t, kml, "relativeToGround")
}

func TestKMLPathPerSortie(t *testing.T) {
	p := twoLinePlan()
	p.Sorties = []plan.Sortie{
		{StartLine: 0, EndLine: 0},
		{StartLine: 1, EndLine: 1},
	}

	res, err := KML(p, PlatformGeneric, "Split")
	require.NoError(t, err)

	kml := string(res.KML)
	assert.Contains(t, kml, "<name>Sortie 1</name>")
	assert.Contains(t, kml, "<name>Sortie 2</name>")
}

func TestKMLDefaults(t *testing.T) {
	res, err := KML(twoLinePlan(), "", "")
	require.NoError(t, err)

	assert.Equal(t, PlatformGeneric, res.Platform)
	assert.Equal(t, "Mission_generic.kml", res.Filename)
	assert.Contains(t, res.CompatibleApps, "QGroundControl")
}

func TestKMLNoSortiesFallsBackToAllLines(t *testing.T) {
	p := twoLinePlan()
	p.Sorties = nil

	res, err := KML(p, PlatformLitchi, "Raw")
	require.NoError(t, err)
	assert.Equal(t, 4, res.WaypointCount)
}

func TestKMLEmptyPlan(t *testing.T) {
	_, err := KML(plan.MissionPlan{}, PlatformDJI, "Empty")
	require.Error(t, err)
}

func TestCompatibleAppsUnknownPlatform(t *testing.T) {
	assert.Equal(t, []string{"Generic KML Viewer"}, CompatibleApps("hubsan"))
}
