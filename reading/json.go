package reading

import (
	"encoding/json"
	"fmt"
	"math"

	"github.com/kevinbdx35/rocket-telemetry/pkg/timestamp"
)

// number is a float64 on the wire. Non-finite values are written as the
// strings "NaN", "Infinity" and "-Infinity", which plain JSON numbers cannot hold.
type number float64

const (
	wireNaN    = "NaN"
	wirePosInf = "Infinity"
	wireNegInf = "-Infinity"
)

func (n number) MarshalJSON() ([]byte, error) {
	f := float64(n)
	switch {
	case math.IsNaN(f):
		return []byte(`"` + wireNaN + `"`), nil
	case math.IsInf(f, 1):
		return []byte(`"` + wirePosInf + `"`), nil
	case math.IsInf(f, -1):
		return []byte(`"` + wireNegInf + `"`), nil
	}
	return json.Marshal(f)
}

func (n *number) UnmarshalJSON(data []byte) error {
	if len(data) == 0 || data[0] != '"' {
		var f float64
		if err := json.Unmarshal(data, &f); err != nil {
			return err
		}
		*n = number(f)
		return nil
	}

	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	switch s {
	case wireNaN:
		*n = number(math.NaN())
	case wirePosInf:
		*n = number(math.Inf(1))
	case wireNegInf:
		*n = number(math.Inf(-1))
	default:
		return fmt.Errorf("reading: invalid number %q", s)
	}
	return nil
}

func numberPtr(v *float64) *number {
	if v == nil {
		return nil
	}
	n := number(*v)
	return &n
}

type wireVector struct {
	X number `json:"x"`
	Y number `json:"y"`
	Z number `json:"z"`
}

type wireAttitude struct {
	Roll  number `json:"roll"`
	Pitch number `json:"pitch"`
	Yaw   number `json:"yaw"`
}

type wireGPS struct {
	Lat number `json:"lat"`
	Lon number `json:"lon"`
}

// wire form; optional fields have no omitempty so absence is an explicit null
type wireReading struct {
	Timestamp      string       `json:"timestamp"`
	Altitude       number       `json:"altitude"`
	Velocity       number       `json:"velocity"`
	Acceleration   wireVector   `json:"acceleration"`
	Temperature    number       `json:"temperature"`
	Pressure       number       `json:"pressure"`
	Orientation    wireAttitude `json:"orientation"`
	GPS            *wireGPS     `json:"gps_coordinates"`
	BatteryVoltage *number      `json:"battery_voltage"`
}

// decode form; pointers tell a missing key from a zero value
type wireInput struct {
	Timestamp    *string `json:"timestamp"`
	Altitude     *number `json:"altitude"`
	Velocity     *number `json:"velocity"`
	Acceleration *struct {
		X *number `json:"x"`
		Y *number `json:"y"`
		Z *number `json:"z"`
	} `json:"acceleration"`
	Temperature *number `json:"temperature"`
	Pressure    *number `json:"pressure"`
	Orientation *struct {
		Roll  *number `json:"roll"`
		Pitch *number `json:"pitch"`
		Yaw   *number `json:"yaw"`
	} `json:"orientation"`
	GPS *struct {
		Lat *number `json:"lat"`
		Lon *number `json:"lon"`
	} `json:"gps_coordinates"`
	BatteryVoltage *number `json:"battery_voltage"`
}

// MarshalJSON writes the reading as a nested object with a fixed-precision
// timestamp and explicit nulls for absent optional fields.
func (r Reading) MarshalJSON() ([]byte, error) {
	w := wireReading{
		Timestamp: timestamp.Format(r.Timestamp),
		Altitude:  number(r.Altitude),
		Velocity:  number(r.Velocity),
		Acceleration: wireVector{
			X: number(r.Acceleration.X),
			Y: number(r.Acceleration.Y),
			Z: number(r.Acceleration.Z),
		},
		Temperature: number(r.Temperature),
		Pressure:    number(r.Pressure),
		Orientation: wireAttitude{
			Roll:  number(r.Orientation.Roll),
			Pitch: number(r.Orientation.Pitch),
			Yaw:   number(r.Orientation.Yaw),
		},
		BatteryVoltage: numberPtr(r.BatteryVoltage),
	}
	if r.GPS != nil {
		w.GPS = &wireGPS{Lat: number(r.GPS.Lat), Lon: number(r.GPS.Lon)}
	}
	return json.Marshal(w)
}

// UnmarshalJSON is the inverse of MarshalJSON. Every required key, including
// each sub-key of acceleration and orientation, must be present and non-null.
func (r *Reading) UnmarshalJSON(data []byte) error {
	var in wireInput
	if err := json.Unmarshal(data, &in); err != nil {
		return err
	}

	if in.Timestamp == nil {
		return missing("timestamp")
	}
	ts, err := timestamp.Parse(*in.Timestamp)
	if err != nil {
		return err
	}

	required := []struct {
		key string
		v   *number
	}{
		{"altitude", in.Altitude},
		{"velocity", in.Velocity},
		{"temperature", in.Temperature},
		{"pressure", in.Pressure},
	}
	for _, f := range required {
		if f.v == nil {
			return missing(f.key)
		}
	}

	if in.Acceleration == nil {
		return missing("acceleration")
	}
	if in.Acceleration.X == nil || in.Acceleration.Y == nil || in.Acceleration.Z == nil {
		return missing("acceleration.{x,y,z}")
	}
	if in.Orientation == nil {
		return missing("orientation")
	}
	if in.Orientation.Roll == nil || in.Orientation.Pitch == nil || in.Orientation.Yaw == nil {
		return missing("orientation.{roll,pitch,yaw}")
	}

	out := Reading{
		Timestamp: ts,
		Altitude:  float64(*in.Altitude),
		Velocity:  float64(*in.Velocity),
		Acceleration: Vector3{
			X: float64(*in.Acceleration.X),
			Y: float64(*in.Acceleration.Y),
			Z: float64(*in.Acceleration.Z),
		},
		Temperature: float64(*in.Temperature),
		Pressure:    float64(*in.Pressure),
		Orientation: Attitude{
			Roll:  float64(*in.Orientation.Roll),
			Pitch: float64(*in.Orientation.Pitch),
			Yaw:   float64(*in.Orientation.Yaw),
		},
	}
	if in.GPS != nil {
		if in.GPS.Lat == nil || in.GPS.Lon == nil {
			return missing("gps_coordinates.{lat,lon}")
		}
		out.GPS = &GPS{Lat: float64(*in.GPS.Lat), Lon: float64(*in.GPS.Lon)}
	}
	if in.BatteryVoltage != nil {
		v := float64(*in.BatteryVoltage)
		out.BatteryVoltage = &v
	}

	*r = out
	return nil
}

func missing(key string) error {
	return fmt.Errorf("reading: missing or null %q", key)
}
