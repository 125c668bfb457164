package reading

import (
	"math"
	"time"
)

// Vector3 is a body-frame acceleration in m/s².
type Vector3 struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

// Attitude is the vehicle orientation in degrees.
type Attitude struct {
	Roll  float64 `json:"roll"`
	Pitch float64 `json:"pitch"`
	Yaw   float64 `json:"yaw"`
}

// GPS is a position fix.
type GPS struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// Reading is one telemetry sample.
type Reading struct {
	Timestamp      time.Time
	Altitude       float64 // meters
	Velocity       float64 // m/s
	Acceleration   Vector3
	Temperature    float64 // °C
	Pressure       float64 // Pa
	Orientation    Attitude
	GPS            *GPS     // nil when there is no fix
	BatteryVoltage *float64 // nil when unknown
}

// HasGPS reports whether the reading carries a position fix.
func (r Reading) HasGPS() bool {
	return r.GPS != nil
}

// HasBattery reports whether the reading carries a battery voltage.
func (r Reading) HasBattery() bool {
	return r.BatteryVoltage != nil
}

// WithGPS returns a copy of r carrying the given fix.
func (r Reading) WithGPS(lat, lon float64) Reading {
	r.GPS = &GPS{Lat: lat, Lon: lon}
	return r
}

// WithBattery returns a copy of r carrying the given battery voltage.
func (r Reading) WithBattery(volts float64) Reading {
	r.BatteryVoltage = &volts
	return r
}

// Clone returns a deep copy; the optional fields no longer alias r's.
func (r Reading) Clone() Reading {
	if r.GPS != nil {
		g := *r.GPS
		r.GPS = &g
	}
	if r.BatteryVoltage != nil {
		v := *r.BatteryVoltage
		r.BatteryVoltage = &v
	}
	return r
}

// Equal compares two readings field by field. Timestamps are compared as
// instants, floats exactly (NaN equals NaN), optional fields by presence and value.
func (r Reading) Equal(o Reading) bool {
	if !r.Timestamp.Equal(o.Timestamp) {
		return false
	}
	if !same(r.Altitude, o.Altitude) || !same(r.Velocity, o.Velocity) ||
		!same(r.Temperature, o.Temperature) || !same(r.Pressure, o.Pressure) {
		return false
	}
	if !same(r.Acceleration.X, o.Acceleration.X) || !same(r.Acceleration.Y, o.Acceleration.Y) ||
		!same(r.Acceleration.Z, o.Acceleration.Z) {
		return false
	}
	if !same(r.Orientation.Roll, o.Orientation.Roll) || !same(r.Orientation.Pitch, o.Orientation.Pitch) ||
		!same(r.Orientation.Yaw, o.Orientation.Yaw) {
		return false
	}
	if (r.GPS == nil) != (o.GPS == nil) {
		return false
	}
	if r.GPS != nil && (!same(r.GPS.Lat, o.GPS.Lat) || !same(r.GPS.Lon, o.GPS.Lon)) {
		return false
	}
	if (r.BatteryVoltage == nil) != (o.BatteryVoltage == nil) {
		return false
	}
	return r.BatteryVoltage == nil || same(*r.BatteryVoltage, *o.BatteryVoltage)
}

func same(a, b float64) bool {
	return a == b || (math.IsNaN(a) && math.IsNaN(b))
}
