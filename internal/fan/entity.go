package fan

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/muurk/ecofan/internal/deviceapi"
	"github.com/muurk/ecofan/internal/logging"
)

// ErrUnknownPreset is returned when a command names a preset the fan does
// not have. The entity is left untouched.
var ErrUnknownPreset = errors.New("unknown preset mode")

// Device is the transport an Entity mirrors. *deviceapi.Client implements it.
type Device interface {
	GetState(ctx context.Context) (*deviceapi.StateResponse, error)
	SetState(ctx context.Context, state deviceapi.State) (int, error)
}

// Entity mirrors one eCO fan.
//
// State only changes through Refresh (pull from the device) or a command
// (optimistic local change, then push). Device failures never surface to
// callers; they are reflected in Available and logged.
type Entity struct {
	id   string
	name string
	host string

	device Device
	log    *zap.Logger
	now    func() time.Time

	mu        sync.RWMutex
	on        bool
	speed     Speed
	available bool
	updatedAt time.Time
}

// Option configures an Entity.
type Option func(*Entity)

// WithLogger sets the logger. Device name and host are attached as fields.
func WithLogger(l *zap.Logger) Option {
	return func(e *Entity) {
		if l != nil {
			e.log = l
		}
	}
}

// WithDevice replaces the default HTTP client.
func WithDevice(d Device) Option {
	return func(e *Entity) {
		e.device = d
	}
}

// WithClock overrides time.Now for snapshot timestamps.
func WithClock(now func() time.Time) Option {
	return func(e *Entity) {
		e.now = now
	}
}

// New creates an entity for the fan at host. id is the stable unique id,
// normally the config entry id. The entity starts off, at low speed, and
// available.
func New(id, name, host string, opts ...Option) *Entity {
	e := &Entity{
		id:        id,
		name:      name,
		host:      host,
		log:       logging.Named("fan"),
		now:       time.Now,
		speed:     SpeedLow,
		available: true,
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.device == nil {
		e.device = deviceapi.NewClient(host)
	}
	e.log = e.log.With(logging.DeviceFields(name, host)...)
	return e
}

// UniqueID returns the stable identifier.
func (e *Entity) UniqueID() string { return e.id }

// Name returns the user-chosen name.
func (e *Entity) Name() string { return e.name }

// Host returns the device base address.
func (e *Entity) Host() string { return e.host }

// IsOn reports the last known power state.
func (e *Entity) IsOn() bool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.on
}

// PresetMode reports the last known speed.
func (e *Entity) PresetMode() Speed {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.speed
}

// Available reports whether the last exchange with the device completed.
func (e *Entity) Available() bool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.available
}

// Capabilities returns on/off plus the three presets.
func (e *Entity) Capabilities() Capabilities {
	presets := make([]Speed, len(PresetModes))
	copy(presets, PresetModes)
	return Capabilities{
		SupportsOnOff:      true,
		SupportsPresetMode: true,
		PresetModes:        presets,
	}
}

// DeviceInfo returns the registry metadata for this fan.
func (e *Entity) DeviceInfo() DeviceInfo {
	return DeviceInfo{
		Identifiers:  []Identifier{{Domain: Domain, ID: e.id}},
		Name:         e.name,
		Manufacturer: Manufacturer,
		Model:        Model,
		SWVersion:    SoftwareVersion,
	}
}

// Snapshot returns a consistent copy of the current state.
func (e *Entity) Snapshot() Snapshot {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return Snapshot{
		ID:         e.id,
		Name:       e.name,
		Host:       e.host,
		On:         e.on,
		PresetMode: e.speed,
		Available:  e.available,
		UpdatedAt:  e.updatedAt,
	}
}

// Refresh pulls the device state.
//
// A network failure marks the entity unavailable and keeps power and speed.
// A parse failure is logged and changes nothing, including availability.
// "on" is applied before "fan" is inspected, so a body without "fan" still
// updates power. A fan value outside 1..3 leaves speed unchanged.
func (e *Entity) Refresh(ctx context.Context) {
	e.log.Debug("Attempting to update")

	state, err := e.device.GetState(ctx)
	if err != nil {
		if deviceapi.IsNetworkError(err) {
			e.log.Warn("Unable to update", zap.String("reason", deviceapi.GetShortErrorMessage(err)), zap.Error(err))
			e.setAvailable(false)
			return
		}
		e.log.Error("Unable to parse response", zap.Error(err))
		return
	}

	e.log.Debug("Updating", zap.Strings("keys", state.Keys), zap.ByteString("fan", state.Fan))

	if state.On == nil {
		e.log.Error("Unable to parse response", zap.String("reason", `"on" missing or not a boolean`))
		return
	}

	e.mu.Lock()
	e.on = *state.On
	e.updatedAt = e.now()
	if !state.HasFan() {
		e.mu.Unlock()
		e.log.Error("Unable to parse response", zap.String("reason", `"fan" missing`))
		return
	}
	if level, ok := state.FanLevel(); ok {
		if speed, ok := SpeedFromLevel(level); ok {
			e.speed = speed
		}
	}
	e.available = true
	e.mu.Unlock()
}

// SetPresetMode changes speed without touching power.
func (e *Entity) SetPresetMode(ctx context.Context, preset Speed) error {
	if !preset.Valid() {
		return ErrUnknownPreset
	}
	e.mu.Lock()
	on := e.on
	e.mu.Unlock()

	e.write(ctx, on, preset)
	return nil
}

// TurnOn powers the fan on. A nil preset keeps the last known speed.
func (e *Entity) TurnOn(ctx context.Context, preset *Speed) error {
	if preset != nil && !preset.Valid() {
		return ErrUnknownPreset
	}
	speed := e.PresetMode()
	if preset != nil {
		speed = *preset
	}

	e.write(ctx, true, speed)
	return nil
}

// TurnOff powers the fan off. Speed is kept.
func (e *Entity) TurnOff(ctx context.Context) {
	e.write(ctx, false, e.PresetMode())
}

// write applies the change locally, then pushes the full state. The local
// change is kept even when the push fails.
func (e *Entity) write(ctx context.Context, on bool, speed Speed) {
	e.mu.Lock()
	e.on = on
	e.speed = speed
	e.updatedAt = e.now()
	e.mu.Unlock()

	payload := deviceapi.State{On: on, Fan: speed.Level()}
	e.log.Debug("Attempting to tell", zap.Bool("on", payload.On), zap.Int("fan", payload.Fan))

	status, err := e.device.SetState(ctx, payload)
	if err != nil {
		e.log.Warn("Unable to tell", zap.String("reason", deviceapi.GetShortErrorMessage(err)), zap.Error(err))
		e.setAvailable(false)
		return
	}

	e.log.Debug("Telling succeeded", zap.Int("status_code", status))
	e.setAvailable(true)
}

func (e *Entity) setAvailable(available bool) {
	e.mu.Lock()
	e.available = available
	e.mu.Unlock()
}
