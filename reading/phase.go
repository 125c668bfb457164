package reading

import "fmt"

// FlightPhase is the mission phase reported by a simulated sensor.
type FlightPhase int

// Flight phases in mission order.
const (
	PhasePreLaunch FlightPhase = iota
	PhasePoweredFlight
	PhaseCoasting
	PhaseApogee
	PhaseDescent
	PhaseRecovery
	PhaseLanded
)

var phaseNames = [...]string{
	PhasePreLaunch:     "pre_launch",
	PhasePoweredFlight: "powered_flight",
	PhaseCoasting:      "coasting",
	PhaseApogee:        "apogee",
	PhaseDescent:       "descent",
	PhaseRecovery:      "recovery",
	PhaseLanded:        "landed",
}

// String returns the snake_case label of the phase.
func (p FlightPhase) String() string {
	if p < 0 || int(p) >= len(phaseNames) {
		return "unknown"
	}
	return phaseNames[p]
}

// ParseFlightPhase maps a label back to its phase.
func ParseFlightPhase(s string) (FlightPhase, error) {
	for i, name := range phaseNames {
		if name == s {
			return FlightPhase(i), nil
		}
	}
	return 0, fmt.Errorf("unknown flight phase %q", s)
}

// MarshalText implements encoding.TextMarshaler.
func (p FlightPhase) MarshalText() ([]byte, error) {
	if p < 0 || int(p) >= len(phaseNames) {
		return nil, fmt.Errorf("invalid flight phase %d", int(p))
	}
	return []byte(p.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (p *FlightPhase) UnmarshalText(text []byte) error {
	parsed, err := ParseFlightPhase(string(text))
	if err != nil {
		return err
	}
	*p = parsed
	return nil
}
