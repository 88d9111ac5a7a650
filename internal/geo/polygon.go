package geo

import (
	"fmt"
	"math"

	geom "github.com/peterstace/simplefeatures/geom"

	"github.com/codrone/flightplanner/pkg/plan"
)

// coincidentEps is the planar distance below which two vertices are treated
// as the same point, meters.
const coincidentEps = 1e-6

// minSignedArea is the smallest polygon area considered non-degenerate, m^2.
const minSignedArea = 1e-6

// Polygon is a validated simple polygon in the local planar frame. Vertices
// are stored counter-clockwise as an open ring (first vertex not repeated).
type Polygon struct {
	vertices []Point
	proj     Projection
	sf       geom.Polygon
}

// ValidateBoundary normalizes and validates a geographic boundary ring,
// returning it as a planar polygon. The ring is closed implicitly: a trailing
// vertex equal to the first is dropped, as are duplicate consecutive
// vertices. Fails with plan.ErrDegeneratePolygon for fewer than 3 distinct
// vertices or zero signed area, and plan.ErrSelfIntersecting when
// non-adjacent edges cross.
func ValidateBoundary(boundary []plan.LatLng) (*Polygon, error) {
	ring := normalizeRing(boundary)
	if len(ring) < 3 {
		return nil, fmt.Errorf("%w: need at least 3 distinct vertices, got %d", plan.ErrDegeneratePolygon, len(ring))
	}

	// Reference latitude for the planar frame: vertex mean is close enough
	// to the centroid for scale purposes.
	var refLat, refLng float64
	for _, ll := range ring {
		refLat += ll.Lat
		refLng += ll.Lng
	}
	proj := NewProjection(plan.LatLng{Lat: refLat / float64(len(ring)), Lng: refLng / float64(len(ring))})

	vertices := dedupePlanar(proj.Ring(ring))
	if len(vertices) < 3 {
		return nil, fmt.Errorf("%w: need at least 3 distinct vertices", plan.ErrDegeneratePolygon)
	}

	// Simplicity first: a symmetric crossing ring can have lobes that cancel
	// to zero shoelace area, and reporting it as degenerate would mislead.
	// Collinear rings also fail the simplicity check, so they are told apart
	// explicitly and kept under the degenerate error.
	if err := sfPolygon(vertices).Validate(); err != nil && !collinear(vertices) {
		return nil, fmt.Errorf("%w: %v", plan.ErrSelfIntersecting, err)
	}

	area := signedArea(vertices)
	if math.Abs(area) < minSignedArea {
		return nil, fmt.Errorf("%w: zero signed area", plan.ErrDegeneratePolygon)
	}
	if area < 0 {
		reverse(vertices)
	}

	return &Polygon{vertices: vertices, proj: proj, sf: sfPolygon(vertices)}, nil
}

// normalizeRing drops a trailing closure vertex and duplicate consecutive
// vertices from a geographic ring.
func normalizeRing(ring []plan.LatLng) []plan.LatLng {
	const degEps = 1e-9

	same := func(a, b plan.LatLng) bool {
		return math.Abs(a.Lat-b.Lat) < degEps && math.Abs(a.Lng-b.Lng) < degEps
	}

	out := make([]plan.LatLng, 0, len(ring))
	for _, ll := range ring {
		if len(out) > 0 && same(out[len(out)-1], ll) {
			continue
		}
		out = append(out, ll)
	}
	if len(out) > 1 && same(out[0], out[len(out)-1]) {
		out = out[:len(out)-1]
	}
	return out
}

func dedupePlanar(pts []Point) []Point {
	out := make([]Point, 0, len(pts))
	for _, p := range pts {
		if len(out) > 0 && out[len(out)-1].Dist(p) < coincidentEps {
			continue
		}
		out = append(out, p)
	}
	if len(out) > 1 && out[0].Dist(out[len(out)-1]) < coincidentEps {
		out = out[:len(out)-1]
	}
	return out
}

// signedArea is the shoelace area of an open ring, positive when
// counter-clockwise.
func signedArea(ring []Point) float64 {
	var sum float64
	for i := range ring {
		j := (i + 1) % len(ring)
		sum += ring[i].Cross(ring[j])
	}
	return sum / 2
}

// collinear reports whether all ring vertices lie on a single line.
func collinear(ring []Point) bool {
	var dir Point
	for _, p := range ring[1:] {
		if v := p.Sub(ring[0]); v.Norm() > coincidentEps {
			dir = v
			break
		}
	}
	if dir.Norm() == 0 {
		return true
	}
	for _, p := range ring[1:] {
		if math.Abs(dir.Cross(p.Sub(ring[0]))) > minSignedArea {
			return false
		}
	}
	return true
}

func reverse(pts []Point) {
	for i, j := 0, len(pts)-1; i < j; i, j = i+1, j-1 {
		pts[i], pts[j] = pts[j], pts[i]
	}
}

// sfPolygon builds a simplefeatures polygon from an open planar ring.
func sfPolygon(ring []Point) geom.Polygon {
	flat := make([]float64, 0, (len(ring)+1)*2)
	for _, p := range ring {
		flat = append(flat, p.X, p.Y)
	}
	flat = append(flat, ring[0].X, ring[0].Y)
	seq := geom.NewSequence(flat, geom.DimXY)
	return geom.NewPolygon([]geom.LineString{geom.NewLineString(seq)})
}

// sfSegment builds a simplefeatures line string from a planar segment.
func sfSegment(s Segment) geom.LineString {
	seq := geom.NewSequence([]float64{s.A.X, s.A.Y, s.B.X, s.B.Y}, geom.DimXY)
	return geom.NewLineString(seq)
}

// Vertices returns the polygon's planar ring, counter-clockwise, open.
func (p *Polygon) Vertices() []Point { return p.vertices }

// Proj returns the planar frame the polygon lives in. Collaborating
// geometry (zones, obstacles) must be projected through the same frame.
func (p *Polygon) Proj() Projection { return p.proj }

// Area returns the polygon area in m^2.
func (p *Polygon) Area() float64 { return signedArea(p.vertices) }

// Centroid returns the area centroid in the planar frame.
func (p *Polygon) Centroid() Point {
	var cx, cy, a float64
	for i := range p.vertices {
		j := (i + 1) % len(p.vertices)
		cross := p.vertices[i].Cross(p.vertices[j])
		cx += (p.vertices[i].X + p.vertices[j].X) * cross
		cy += (p.vertices[i].Y + p.vertices[j].Y) * cross
		a += cross
	}
	a /= 2
	return Point{X: cx / (6 * a), Y: cy / (6 * a)}
}

// Contains reports whether the planar point lies inside the polygon,
// using ray casting.
func (p *Polygon) Contains(pt Point) bool {
	n := len(p.vertices)
	inside := false
	for i := 0; i < n; i++ {
		v1 := p.vertices[i]
		v2 := p.vertices[(i+1)%n]
		if (v1.Y > pt.Y) != (v2.Y > pt.Y) {
			xCross := v1.X + (pt.Y-v1.Y)/(v2.Y-v1.Y)*(v2.X-v1.X)
			if pt.X < xCross {
				inside = !inside
			}
		}
	}
	return inside
}

// SegmentIntersectsRing reports whether a planar segment touches the area
// enclosed by an open planar ring. Used for restricted-zone checks.
func SegmentIntersectsRing(s Segment, ring []Point) bool {
	if len(ring) < 3 {
		return false
	}
	return geom.Intersects(sfSegment(s).AsGeometry(), sfPolygon(ring).AsGeometry())
}

// SegmentPointDistance returns the distance from a planar point to the
// closest point of a segment.
func SegmentPointDistance(s Segment, pt Point) float64 {
	d := s.B.Sub(s.A)
	lenSq := d.Dot(d)
	if lenSq == 0 {
		return pt.Dist(s.A)
	}
	t := pt.Sub(s.A).Dot(d) / lenSq
	t = math.Max(0, math.Min(1, t))
	return pt.Dist(s.At(t))
}
