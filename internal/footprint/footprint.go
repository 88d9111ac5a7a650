// Package footprint derives the ground coverage of a camera from its sensor
// geometry and the flight altitude, using pinhole projection.
package footprint

import (
	"fmt"
	"math"

	"github.com/codrone/flightplanner/pkg/plan"
)

// Footprint is the area one image covers on the ground.
type Footprint struct {
	Width  float64 // m, across-track
	Height float64 // m, along-track
	GSD    float64 // m per pixel
}

// GroundFootprint computes the camera's ground footprint at the given
// altitude. Sensor dimensions and focal length are millimeters; the mm
// units cancel so footprint dimension = sensor dimension x altitude /
// focal length. GSD is footprint width divided by image width in pixels,
// where the pixel width follows from megapixels and the sensor aspect
// ratio. Fails with plan.ErrInvalidAltitude when altitude is not positive
// or exceeds maxAltitude.
func GroundFootprint(camera plan.CameraSpecs, altitude, maxAltitude float64) (Footprint, error) {
	if altitude <= 0 {
		return Footprint{}, fmt.Errorf("%w: %.1f m", plan.ErrInvalidAltitude, altitude)
	}
	if maxAltitude > 0 && altitude > maxAltitude {
		return Footprint{}, fmt.Errorf("%w: %.1f m exceeds ceiling %.1f m", plan.ErrInvalidAltitude, altitude, maxAltitude)
	}
	if camera.SensorWidth <= 0 || camera.SensorHeight <= 0 || camera.FocalLength <= 0 {
		return Footprint{}, fmt.Errorf("%w: camera specs incomplete", plan.ErrInvalidAltitude)
	}

	width := camera.SensorWidth * altitude / camera.FocalLength
	height := camera.SensorHeight * altitude / camera.FocalLength

	fp := Footprint{Width: width, Height: height}
	if camera.Megapixels > 0 {
		aspect := camera.SensorWidth / camera.SensorHeight
		widthPx := math.Sqrt(camera.Megapixels * 1e6 * aspect)
		fp.GSD = width / widthPx
	}
	return fp, nil
}
