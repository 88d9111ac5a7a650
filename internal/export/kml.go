// Package export renders finished mission plans as KML documents for flight
// controller and ground station apps.
package export

import (
	"encoding/xml"
	"fmt"
	"strings"
	"time"

	"github.com/codrone/flightplanner/pkg/plan"
)

// Platform selects the target flight controller ecosystem. It only affects
// metadata; the KML geometry is the same for all platforms.
type Platform string

const (
	PlatformDJI     Platform = "dji"
	PlatformAutel   Platform = "autel"
	PlatformParrot  Platform = "parrot"
	PlatformLitchi  Platform = "litchi"
	PlatformPix4D   Platform = "pix4d"
	PlatformGeneric Platform = "generic"
)

var platformApps = map[Platform][]string{
	PlatformDJI:     {"DJI GO 4", "DJI Fly", "Litchi"},
	PlatformAutel:   {"Autel Explorer", "Autel Sky"},
	PlatformParrot:  {"FreeFlight", "Pix4D Capture"},
	PlatformLitchi:  {"Litchi"},
	PlatformPix4D:   {"Pix4D Capture"},
	PlatformGeneric: {"Google Earth", "Mission Planner", "QGroundControl"},
}

// CompatibleApps lists the ground station apps known to open exports for the
// platform.
func CompatibleApps(p Platform) []string {
	if apps, ok := platformApps[p]; ok {
		return apps
	}
	return []string{"Generic KML Viewer"}
}

// Result bundles the rendered document with its export metadata.
type Result struct {
	KML            []byte    `json:"kml"`
	Filename       string    `json:"filename"`
	Platform       Platform  `json:"platform"`
	WaypointCount  int       `json:"waypointCount"`
	CompatibleApps []string  `json:"compatibleApps"`
	GeneratedAt    time.Time `json:"generatedAt"`
}

type kmlRoot struct {
	XMLName  xml.Name    `xml:"kml"`
	XMLNS    string      `xml:"xmlns,attr"`
	Document kmlDocument `xml:"Document"`
}

type kmlDocument struct {
	Name        string         `xml:"name"`
	Description string         `xml:"description"`
	Placemarks  []kmlPlacemark `xml:"Placemark"`
}

type kmlPlacemark struct {
	Name       string         `xml:"name"`
	Point      *kmlPoint      `xml:"Point,omitempty"`
	LineString *kmlLineString `xml:"LineString,omitempty"`
}

type kmlPoint struct {
	AltitudeMode string `xml:"altitudeMode"`
	Coordinates  string `xml:"coordinates"`
}

type kmlLineString struct {
	AltitudeMode string `xml:"altitudeMode"`
	Tessellate   int    `xml:"tessellate"`
	Coordinates  string `xml:"coordinates"`
}

// KML renders the plan as a KML document: one path placemark per sortie plus
// a waypoint placemark at every line endpoint, in flight order.
func KML(p plan.MissionPlan, platform Platform, missionName string) (Result, error) {
	if len(p.Pattern.Lines) == 0 {
		return Result{}, fmt.Errorf("plan has no flight lines to export")
	}
	if missionName == "" {
		missionName = "Mission"
	}
	if platform == "" {
		platform = PlatformGeneric
	}

	alt := p.Pattern.Altitude
	doc := kmlDocument{
		Name: missionName,
		Description: fmt.Sprintf("%d flight lines, %d sorties, %.0f m2 covered",
			len(p.Pattern.Lines), len(p.Sorties), p.AreaCovered),
	}

	waypoints := 0
	sorties := p.Sorties
	if len(sorties) == 0 {
		sorties = []plan.Sortie{{StartLine: 0, EndLine: len(p.Pattern.Lines) - 1}}
	}
	for si, s := range sorties {
		var coords []string
		for i := s.StartLine; i <= s.EndLine && i < len(p.Pattern.Lines); i++ {
			line := p.Pattern.Lines[i]
			coords = append(coords, coordinate(line.From, alt), coordinate(line.To, alt))

			doc.Placemarks = append(doc.Placemarks,
				kmlPlacemark{
					Name:  fmt.Sprintf("WP%d", waypoints+1),
					Point: &kmlPoint{AltitudeMode: "relativeToGround", Coordinates: coordinate(line.From, alt)},
				},
				kmlPlacemark{
					Name:  fmt.Sprintf("WP%d", waypoints+2),
					Point: &kmlPoint{AltitudeMode: "relativeToGround", Coordinates: coordinate(line.To, alt)},
				},
			)
			waypoints += 2
		}

		doc.Placemarks = append(doc.Placemarks, kmlPlacemark{
			Name: fmt.Sprintf("Sortie %d", si+1),
			LineString: &kmlLineString{
				AltitudeMode: "relativeToGround",
				Tessellate:   1,
				Coordinates:  strings.Join(coords, " "),
			},
		})
	}

	body, err := xml.MarshalIndent(kmlRoot{
		XMLNS:    "http://www.opengis.net/kml/2.2",
		Document: doc,
	}, "", "  ")
	if err != nil {
		return Result{}, fmt.Errorf("encoding kml: %w", err)
	}

	return Result{
		KML:            append([]byte(xml.Header), body...),
		Filename:       fmt.Sprintf("%s_%s.kml", strings.ReplaceAll(missionName, " ", "_"), platform),
		Platform:       platform,
		WaypointCount:  waypoints,
		CompatibleApps: CompatibleApps(platform),
		GeneratedAt:    time.Now().UTC(),
	}, nil
}

// coordinate formats a KML lng,lat,alt triple.
func coordinate(ll plan.LatLng, alt float64) string {
	return fmt.Sprintf("%.7f,%.7f,%.1f", ll.Lng, ll.Lat, alt)
}
