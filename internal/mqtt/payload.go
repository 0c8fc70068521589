package mqtt

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/muurk/ecofan/internal/fan"
)

const (
	payloadOnline  = "online"
	payloadOffline = "offline"
	stateOn        = "ON"
	stateOff       = "OFF"
)

// StatePayload is published retained on <prefix>/<id>/state.
type StatePayload struct {
	State      string `json:"state"`
	PresetMode string `json:"preset_mode"`
	Available  bool   `json:"available"`
}

func encodeState(s fan.Snapshot) ([]byte, error) {
	p := StatePayload{
		State:      stateOff,
		PresetMode: s.PresetMode.String(),
		Available:  s.Available,
	}
	if s.On {
		p.State = stateOn
	}
	return json.Marshal(p)
}

func availabilityPayload(available bool) []byte {
	if available {
		return []byte(payloadOnline)
	}
	return []byte(payloadOffline)
}

// Command is a parsed set payload. Nil fields are left unchanged.
type Command struct {
	Power  *bool
	Preset *fan.Speed
}

// ParseCommand accepts either a bare "ON" / "OFF" or a JSON object
// {"state": "ON"|"OFF", "preset_mode": "low"|"medium"|"high"}.
func ParseCommand(payload []byte) (Command, error) {
	trimmed := strings.TrimSpace(string(payload))

	switch strings.ToUpper(trimmed) {
	case stateOn:
		on := true
		return Command{Power: &on}, nil
	case stateOff:
		off := false
		return Command{Power: &off}, nil
	}

	var raw struct {
		State      *string `json:"state"`
		PresetMode *string `json:"preset_mode"`
	}
	if err := json.Unmarshal([]byte(trimmed), &raw); err != nil {
		return Command{}, fmt.Errorf("%w: %v", ErrInvalidCommand, err)
	}

	var cmd Command
	if raw.State != nil {
		switch strings.ToUpper(*raw.State) {
		case stateOn:
			on := true
			cmd.Power = &on
		case stateOff:
			off := false
			cmd.Power = &off
		default:
			return Command{}, fmt.Errorf("%w: state %q", ErrInvalidCommand, *raw.State)
		}
	}
	if raw.PresetMode != nil {
		speed, err := fan.ParseSpeed(*raw.PresetMode)
		if err != nil {
			return Command{}, err
		}
		cmd.Preset = &speed
	}

	if cmd.Power == nil && cmd.Preset == nil {
		return Command{}, fmt.Errorf("%w: nothing to do", ErrInvalidCommand)
	}
	return cmd, nil
}
