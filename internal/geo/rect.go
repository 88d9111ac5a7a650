package geo

import (
	"math"
	"sort"
)

// Rect is an oriented rectangle. Axis is the unit direction of the longer
// side; Long and Short are the side lengths along and across Axis.
type Rect struct {
	Center Point
	Axis   Point
	Long   float64
	Short  float64
}

// Corners returns the rectangle's corner points in order.
func (r Rect) Corners() [4]Point {
	normal := Point{-r.Axis.Y, r.Axis.X}
	du := r.Axis.Scale(r.Long / 2)
	dv := normal.Scale(r.Short / 2)
	return [4]Point{
		r.Center.Sub(du).Sub(dv),
		r.Center.Add(du).Sub(dv),
		r.Center.Add(du).Add(dv),
		r.Center.Sub(du).Add(dv),
	}
}

// MinimumAreaBoundingRect returns the least-area oriented rectangle
// containing the polygon, via rotating calipers over the convex hull. The
// minimum-area rectangle always shares an orientation with some hull edge,
// so checking each edge direction is exhaustive.
func MinimumAreaBoundingRect(p *Polygon) Rect {
	hull := convexHull(p.vertices)

	best := Rect{}
	bestArea := math.Inf(1)

	for i := range hull {
		j := (i + 1) % len(hull)
		edge := hull[j].Sub(hull[i])
		l := edge.Norm()
		if l < coincidentEps {
			continue
		}
		dir := edge.Scale(1 / l)
		normal := Point{-dir.Y, dir.X}

		uMin, uMax := math.Inf(1), math.Inf(-1)
		vMin, vMax := math.Inf(1), math.Inf(-1)
		for _, h := range hull {
			u := h.Dot(dir)
			v := h.Dot(normal)
			uMin = math.Min(uMin, u)
			uMax = math.Max(uMax, u)
			vMin = math.Min(vMin, v)
			vMax = math.Max(vMax, v)
		}

		long := uMax - uMin
		short := vMax - vMin
		area := long * short
		if area >= bestArea {
			continue
		}
		bestArea = area

		center := dir.Scale((uMin + uMax) / 2).Add(normal.Scale((vMin + vMax) / 2))
		if long >= short {
			best = Rect{Center: center, Axis: dir, Long: long, Short: short}
		} else {
			best = Rect{Center: center, Axis: normal, Long: short, Short: long}
		}
	}
	return best
}

// convexHull computes the convex hull of a point set using Andrew's
// monotone chain, returned counter-clockwise without the closing point.
func convexHull(pts []Point) []Point {
	sorted := make([]Point, len(pts))
	copy(sorted, pts)
	sort.Slice(sorted, func(i, j int) bool {
		if sorted[i].X != sorted[j].X {
			return sorted[i].X < sorted[j].X
		}
		return sorted[i].Y < sorted[j].Y
	})

	if len(sorted) < 3 {
		return sorted
	}

	var lower, upper []Point
	for _, p := range sorted {
		for len(lower) >= 2 && lower[len(lower)-1].Sub(lower[len(lower)-2]).Cross(p.Sub(lower[len(lower)-2])) <= 0 {
			lower = lower[:len(lower)-1]
		}
		lower = append(lower, p)
	}
	for i := len(sorted) - 1; i >= 0; i-- {
		p := sorted[i]
		for len(upper) >= 2 && upper[len(upper)-1].Sub(upper[len(upper)-2]).Cross(p.Sub(upper[len(upper)-2])) <= 0 {
			upper = upper[:len(upper)-1]
		}
		upper = append(upper, p)
	}

	return append(lower[:len(lower)-1], upper[:len(upper)-1]...)
}
