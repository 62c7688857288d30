package drones

import (
	"math"
	"time"

	"dronewatch/internal/drones/models"
	dErrors "dronewatch/pkg/domain-errors"
)

// Defaults carried over from the sensor deployment: a 100 m no-fly
// radius around a nest at the center of the 500 m sensor grid, all in
// millimeters.
const (
	DefaultNestX    = 250000.0
	DefaultNestY    = 250000.0
	DefaultRadiusMM = 100000.0
)

// Detection is the detector output for one capture: the authoritative
// capture time and the observations inside the exclusion zone, in
// document order.
type Detection struct {
	CaptureTime time.Time
	Violations  []models.Observation
}

// Detector classifies observations against a circular exclusion zone.
type Detector struct {
	nestX  float64
	nestY  float64
	radius float64
}

// NewDetector creates a detector for the zone centered at (nestX, nestY)
// with the given radius in millimeters.
func NewDetector(nestX, nestY, radius float64) (*Detector, error) {
	if radius <= 0 {
		return nil, dErrors.Newf(dErrors.CodeValidation, "exclusion radius must be positive, got %v", radius)
	}
	return &Detector{nestX: nestX, nestY: nestY, radius: radius}, nil
}

// Distance returns the planar distance from the observation to the nest.
// Altitude is not part of the zone definition.
func (d *Detector) Distance(o models.Observation) float64 {
	return math.Hypot(o.X-d.nestX, o.Y-d.nestY)
}

// Violates reports whether the observation lies inside the zone. The
// ceiling biases borderline distances toward a violation so a true
// violation is never missed at the cost of rare boundary false
// positives.
func (d *Detector) Violates(o models.Observation) bool {
	return math.Ceil(d.Distance(o)) <= d.radius
}

// Detect selects the violating observations of a capture.
func (d *Detector) Detect(c models.Capture) Detection {
	det := Detection{CaptureTime: c.Time}
	for _, o := range c.Drones {
		if d.Violates(o) {
			det.Violations = append(det.Violations, o)
		}
	}
	return det
}
