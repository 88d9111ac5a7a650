// Package geo is the geometry kernel of the planner. Geographic WGS84
// coordinates are converted into a locally-scaled planar frame at this
// package's boundary; everything downstream works in Euclidean meters.
package geo

import (
	"math"

	"github.com/wroge/wgs84"

	"github.com/codrone/flightplanner/pkg/plan"
)

// Point is a position in the local planar frame, meters.
type Point struct {
	X float64
	Y float64
}

// Sub returns p - q.
func (p Point) Sub(q Point) Point { return Point{p.X - q.X, p.Y - q.Y} }

// Add returns p + q.
func (p Point) Add(q Point) Point { return Point{p.X + q.X, p.Y + q.Y} }

// Scale returns p scaled by f.
func (p Point) Scale(f float64) Point { return Point{p.X * f, p.Y * f} }

// Dot returns the dot product of p and q.
func (p Point) Dot(q Point) float64 { return p.X*q.X + p.Y*q.Y }

// Cross returns the z component of the cross product of p and q.
func (p Point) Cross(q Point) float64 { return p.X*q.Y - p.Y*q.X }

// Norm returns the Euclidean length of p.
func (p Point) Norm() float64 { return math.Hypot(p.X, p.Y) }

// Dist returns the distance between p and q in meters.
func (p Point) Dist(q Point) float64 { return p.Sub(q).Norm() }

// Segment is a directed straight piece between two planar points.
type Segment struct {
	A Point
	B Point
}

// Length returns the segment length in meters.
func (s Segment) Length() float64 { return s.A.Dist(s.B) }

// At returns the point at parameter t along the segment, t in [0,1].
func (s Segment) At(t float64) Point {
	return Point{s.A.X + t*(s.B.X-s.A.X), s.A.Y + t*(s.B.Y-s.A.Y)}
}

// Reverse returns the segment with endpoints swapped.
func (s Segment) Reverse() Segment { return Segment{A: s.B, B: s.A} }

// Projection maps WGS84 coordinates into the local planar frame. It is Web
// Mercator (EPSG 3857, the projection used throughout the recorder stack)
// centered at a reference point and rescaled by the cosine of the reference
// latitude so distances near the area of interest come out in true meters.
type Projection struct {
	scale  float64
	origin Point // reference point in raw EPSG 3857 coordinates
	fwd    func(float64, float64, float64) (float64, float64, float64)
	inv    func(float64, float64, float64) (float64, float64, float64)
}

// NewProjection builds a planar frame with the given reference point as its
// origin. The reference should be near the geometry being projected,
// typically the boundary centroid.
func NewProjection(ref plan.LatLng) Projection {
	epsg := wgs84.EPSG()
	fwd := epsg.Transform(4326, 3857)
	x0, y0, _ := fwd(ref.Lng, ref.Lat, 0)
	return Projection{
		scale:  math.Cos(ref.Lat * math.Pi / 180),
		origin: Point{X: x0, Y: y0},
		fwd:    fwd,
		inv:    epsg.Transform(3857, 4326),
	}
}

// ToPlanar converts a geographic coordinate into the planar frame.
func (p Projection) ToPlanar(ll plan.LatLng) Point {
	x, y, _ := p.fwd(ll.Lng, ll.Lat, 0)
	return Point{X: (x - p.origin.X) * p.scale, Y: (y - p.origin.Y) * p.scale}
}

// ToGeo converts a planar point back to a geographic coordinate.
func (p Projection) ToGeo(pt Point) plan.LatLng {
	lng, lat, _ := p.inv(pt.X/p.scale+p.origin.X, pt.Y/p.scale+p.origin.Y, 0)
	return plan.LatLng{Lat: lat, Lng: lng}
}

// Ring projects a geographic ring into the planar frame.
func (p Projection) Ring(ring []plan.LatLng) []Point {
	out := make([]Point, len(ring))
	for i, ll := range ring {
		out[i] = p.ToPlanar(ll)
	}
	return out
}

// Haversine returns the great-circle distance between two geographic
// coordinates in meters.
func Haversine(a, b plan.LatLng) float64 {
	const earthRadius = 6371000.0

	lat1 := a.Lat * math.Pi / 180
	lat2 := b.Lat * math.Pi / 180
	dLat := (b.Lat - a.Lat) * math.Pi / 180
	dLng := (b.Lng - a.Lng) * math.Pi / 180

	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1)*math.Cos(lat2)*math.Sin(dLng/2)*math.Sin(dLng/2)
	return earthRadius * 2 * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))
}
