package geo

import "sort"

// minClipLength discards clipped slivers shorter than this, meters.
const minClipLength = 0.01

// ClipSegmentToPolygon returns the portions of a planar segment that lie
// inside the polygon, ordered from s.A towards s.B. Returns nil when the
// segment misses the polygon entirely.
//
// The sweep is parametric: every crossing of a polygon edge contributes a
// parameter t along the segment, and the sub-interval between consecutive
// parameters is kept when its midpoint is inside the polygon.
func ClipSegmentToPolygon(s Segment, p *Polygon) []Segment {
	length := s.Length()
	if length < coincidentEps {
		return nil
	}

	params := []float64{0, 1}
	n := len(p.vertices)
	for i := 0; i < n; i++ {
		edge := Segment{A: p.vertices[i], B: p.vertices[(i+1)%n]}
		if t, ok := intersectParam(s, edge); ok {
			params = append(params, t)
		}
	}
	sort.Float64s(params)

	var out []Segment
	for i := 0; i+1 < len(params); i++ {
		t0, t1 := params[i], params[i+1]
		if (t1-t0)*length < minClipLength {
			continue
		}
		if !p.Contains(s.At((t0 + t1) / 2)) {
			continue
		}
		// Extend the previous piece instead of emitting an adjacent sliver.
		start := s.At(t0)
		if len(out) > 0 && out[len(out)-1].B.Dist(start) < minClipLength {
			out[len(out)-1].B = s.At(t1)
			continue
		}
		out = append(out, Segment{A: start, B: s.At(t1)})
	}
	return out
}

// intersectParam returns the parameter t along s where s crosses edge e,
// with t and the edge parameter both within [0,1]. Parallel (including
// collinear) pairs report no crossing; collinear overlap is resolved by the
// caller's midpoint containment test.
func intersectParam(s, e Segment) (float64, bool) {
	d1 := s.B.Sub(s.A)
	d2 := e.B.Sub(e.A)
	denom := d1.Cross(d2)
	if denom == 0 {
		return 0, false
	}
	diff := e.A.Sub(s.A)
	t := diff.Cross(d2) / denom
	u := diff.Cross(d1) / denom
	if t < 0 || t > 1 || u < 0 || u > 1 {
		return 0, false
	}
	return t, true
}
