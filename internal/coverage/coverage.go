// Package coverage turns a validated boundary polygon and a camera footprint
// into a boustrophedon flight-line pattern.
package coverage

import (
	"fmt"
	"sort"

	"github.com/codrone/flightplanner/internal/footprint"
	"github.com/codrone/flightplanner/internal/geo"
	"github.com/codrone/flightplanner/pkg/plan"
)

// Config carries the generator tunables.
type Config struct {
	// MinAreaFactor is the minimum polygon area in multiples of one
	// footprint cell. Zero means one cell.
	MinAreaFactor float64
}

func (c Config) minAreaFactor() float64 {
	if c.MinAreaFactor <= 0 {
		return 1
	}
	return c.MinAreaFactor
}

// Generate produces the coverage pattern for the polygon. Flight lines run
// parallel to the longer side of the minimum-area bounding rectangle, which
// minimizes turn count, at a spacing of footprint width x (1 - side/100).
// Each candidate line is clipped to the polygon and surviving segments are
// chained in alternating directions so consecutive lines connect
// end-to-start. Along-track trigger spacing is recorded as metadata, not
// expanded into per-shot waypoints.
func Generate(poly *geo.Polygon, fp footprint.Footprint, forwardOverlap, sideOverlap, altitude float64, cfg Config) (plan.CoveragePattern, error) {
	if forwardOverlap < 0 || forwardOverlap >= 100 {
		return plan.CoveragePattern{}, fmt.Errorf("%w: forward overlap %.1f%%", plan.ErrInvalidOverlap, forwardOverlap)
	}
	if sideOverlap < 0 || sideOverlap >= 100 {
		return plan.CoveragePattern{}, fmt.Errorf("%w: side overlap %.1f%%", plan.ErrInvalidOverlap, sideOverlap)
	}

	minArea := cfg.minAreaFactor() * fp.Width * fp.Height
	if area := poly.Area(); area < minArea {
		return plan.CoveragePattern{}, fmt.Errorf("%w: %.1f m^2 < minimum %.1f m^2", plan.ErrPolygonTooSmall, area, minArea)
	}

	rect := geo.MinimumAreaBoundingRect(poly)
	spacing := fp.Width * (1 - sideOverlap/100)

	sparse := rect.Short < fp.Width
	var rows [][]geo.Segment
	if sparse {
		// Polygon narrower than one footprint: a single pass down the
		// centroid axis still covers it, flagged as advisory.
		rows = [][]geo.Segment{clipRow(poly, rect, poly.Centroid(), rect.Axis)}
	} else {
		rows = sweepRows(poly, rect, fp.Width, spacing)
	}

	lines := chain(rows, rect.Axis, poly.Proj())
	if len(lines) == 0 {
		// Degenerate sweep against an oddly-shaped polygon: fall back to
		// the single centroid pass.
		sparse = true
		rows = [][]geo.Segment{clipRow(poly, rect, poly.Centroid(), rect.Axis)}
		lines = chain(rows, rect.Axis, poly.Proj())
	}

	trigger := fp.Height * (1 - forwardOverlap/100)
	var total float64
	photos := 0
	for _, l := range lines {
		total += l.Length
		if trigger > 0 {
			photos += int(l.Length/trigger) + 1
		}
	}

	return plan.CoveragePattern{
		Lines:           lines,
		Altitude:        altitude,
		LineSpacing:     spacing,
		TriggerSpacing:  trigger,
		TotalLength:     total,
		EstimatedPhotos: photos,
		SparseCoverage:  sparse,
	}, nil
}

// sweepRows clips one candidate line per spacing step across the short axis
// of the bounding rectangle. Rows that miss the polygon are discarded.
func sweepRows(poly *geo.Polygon, rect geo.Rect, width, spacing float64) [][]geo.Segment {
	normal := geo.Point{X: -rect.Axis.Y, Y: rect.Axis.X}

	var rows [][]geo.Segment
	// First line half a footprint in from the rectangle edge; step until
	// the footprint of the last line reaches the far edge.
	for v := -rect.Short/2 + width/2; v-width/2 < rect.Short/2; v += spacing {
		base := rect.Center.Add(normal.Scale(v))
		row := clipRow(poly, rect, base, rect.Axis)
		if len(row) > 0 {
			rows = append(rows, row)
		}
	}
	return rows
}

// clipRow clips an infinite line through base along dir to the polygon and
// returns the sub-segments ordered along dir.
func clipRow(poly *geo.Polygon, rect geo.Rect, base geo.Point, dir geo.Point) []geo.Segment {
	// Span the full rectangle plus margin so the clip sees an effectively
	// infinite line.
	half := rect.Long/2 + rect.Short + 10
	seg := geo.Segment{
		A: base.Sub(dir.Scale(half)),
		B: base.Add(dir.Scale(half)),
	}
	pieces := geo.ClipSegmentToPolygon(seg, poly)
	sort.Slice(pieces, func(i, j int) bool {
		return pieces[i].A.Dot(dir) < pieces[j].A.Dot(dir)
	})
	return pieces
}

// chain orders rows into a boustrophedon sequence: odd rows are flown in
// reverse so each line starts near where the previous one ended, and
// converts endpoints back to geographic coordinates.
func chain(rows [][]geo.Segment, axis geo.Point, proj geo.Projection) []plan.FlightLine {
	var lines []plan.FlightLine
	for i, row := range rows {
		if i%2 == 1 {
			reversed := make([]geo.Segment, len(row))
			for j, s := range row {
				reversed[len(row)-1-j] = s.Reverse()
			}
			row = reversed
		}
		for _, s := range row {
			lines = append(lines, plan.FlightLine{
				From:   proj.ToGeo(s.A),
				To:     proj.ToGeo(s.B),
				Length: s.Length(),
			})
		}
	}
	return lines
}
