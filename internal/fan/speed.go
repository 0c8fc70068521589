package fan

import (
	"fmt"
	"strings"
)

// Speed is the fan's mechanical speed preset. It is independent of power:
// an off fan keeps its last speed.
type Speed int

const (
	SpeedLow Speed = iota
	SpeedMedium
	SpeedHigh
)

// PresetModes lists the preset names in wire order.
var PresetModes = []Speed{SpeedLow, SpeedMedium, SpeedHigh}

// String returns the preset name ("low", "medium", "high").
func (s Speed) String() string {
	switch s {
	case SpeedLow:
		return "low"
	case SpeedMedium:
		return "medium"
	case SpeedHigh:
		return "high"
	default:
		return fmt.Sprintf("Speed(%d)", int(s))
	}
}

// Valid reports whether s is one of the three presets.
func (s Speed) Valid() bool {
	return s >= SpeedLow && s <= SpeedHigh
}

// Level returns the wire value: 1, 2 or 3.
func (s Speed) Level() int {
	return int(s) + 1
}

// SpeedFromLevel maps a wire value back to a preset. ok is false for
// anything outside 1..3.
func SpeedFromLevel(level int) (Speed, bool) {
	s := Speed(level - 1)
	if !s.Valid() {
		return SpeedLow, false
	}
	return s, true
}

// ParseSpeed accepts a preset name, case-insensitively.
func ParseSpeed(name string) (Speed, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "low":
		return SpeedLow, nil
	case "medium":
		return SpeedMedium, nil
	case "high":
		return SpeedHigh, nil
	default:
		return SpeedLow, fmt.Errorf("%w: %q (want one of low, medium, high)", ErrUnknownPreset, name)
	}
}

// MarshalText implements encoding.TextMarshaler so speeds render as names
// in JSON and YAML.
func (s Speed) MarshalText() ([]byte, error) {
	if !s.Valid() {
		return nil, fmt.Errorf("invalid speed %d", int(s))
	}
	return []byte(s.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (s *Speed) UnmarshalText(text []byte) error {
	parsed, err := ParseSpeed(string(text))
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}
