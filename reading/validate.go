package reading

import "math"

// Accepted ranges for the scalar channels.
const (
	MinAltitude    = -1000.0
	MaxAltitude    = 100000.0
	MaxSpeed       = 1000.0
	MinTemperature = -100.0
	MaxTemperature = 100.0
	MinPressure    = 0.0
	MaxPressure    = 120000.0
)

// Validate reports whether r may enter the pipeline. Bounds are inclusive.
// NaN fails every comparison and is therefore rejected.
func Validate(r Reading) bool {
	if !(r.Altitude >= MinAltitude && r.Altitude <= MaxAltitude) {
		return false
	}
	if !(math.Abs(r.Velocity) <= MaxSpeed) {
		return false
	}
	if !(r.Temperature >= MinTemperature && r.Temperature <= MaxTemperature) {
		return false
	}
	return r.Pressure >= MinPressure && r.Pressure <= MaxPressure
}
