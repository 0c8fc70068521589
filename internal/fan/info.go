package fan

import "time"

const (
	// Domain namespaces device identifiers.
	Domain = "matts_gadgets_ceiling_fan"

	Manufacturer    = "Matt's Gadgets"
	Model           = "eCO"
	SoftwareVersion = "1.0"
)

// Identifier is a (domain, id) pair used to match devices across restarts.
type Identifier struct {
	Domain string `json:"domain"`
	ID     string `json:"id"`
}

// DeviceInfo is the static metadata a host registers for each fan.
type DeviceInfo struct {
	Identifiers  []Identifier `json:"identifiers"`
	Name         string       `json:"name"`
	Manufacturer string       `json:"manufacturer"`
	Model        string       `json:"model"`
	SWVersion    string       `json:"sw_version"`
}

// Capabilities describes what the entity supports. Hosts query it once at
// registration.
type Capabilities struct {
	SupportsOnOff      bool    `json:"supports_on_off"`
	SupportsPresetMode bool    `json:"supports_preset_mode"`
	PresetModes        []Speed `json:"preset_modes"`
}

// Snapshot is a consistent copy of an entity's observable state.
type Snapshot struct {
	ID         string    `json:"id"`
	Name       string    `json:"name"`
	Host       string    `json:"host"`
	On         bool      `json:"on"`
	PresetMode Speed     `json:"preset_mode"`
	Available  bool      `json:"available"`
	UpdatedAt  time.Time `json:"updated_at"`
}
