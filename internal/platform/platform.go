package platform

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/muurk/ecofan/internal/config"
	"github.com/muurk/ecofan/internal/deviceapi"
	"github.com/muurk/ecofan/internal/fan"
	"github.com/muurk/ecofan/internal/logging"
)

var (
	// ErrUnknownEntity is returned for ids that have no loaded entity.
	ErrUnknownEntity = errors.New("unknown entity")

	// ErrAlreadyLoaded is returned by SetupEntry for a duplicate entry id.
	ErrAlreadyLoaded = errors.New("entry already loaded")
)

// managed pairs an entity with the lock that serializes its calls.
type managed struct {
	entity *fan.Entity
	device fan.DeviceInfo
	mu     sync.Mutex
}

// Platform hosts fan entities: it builds them from config entries, keeps the
// device registry, runs their I/O on the executor, and notifies listeners
// after every refresh or command.
type Platform struct {
	exec    *Executor
	timeout time.Duration
	log     *zap.Logger

	mu       sync.RWMutex
	entities map[string]*managed
	order    []string

	listenersMu sync.RWMutex
	listeners   map[int]func(fan.Snapshot)
	nextID      int
}

// Option configures a Platform.
type Option func(*Platform)

// WithRequestTimeout bounds every request to a fan.
func WithRequestTimeout(d time.Duration) Option {
	return func(p *Platform) {
		if d > 0 {
			p.timeout = d
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(p *Platform) {
		if l != nil {
			p.log = l
		}
	}
}

// New creates an empty platform that runs device I/O on exec.
func New(exec *Executor, opts ...Option) *Platform {
	p := &Platform{
		exec:      exec,
		timeout:   deviceapi.DefaultTimeout,
		log:       logging.Named("platform"),
		entities:  make(map[string]*managed),
		listeners: make(map[int]func(fan.Snapshot)),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// SetupEntry creates the entity for entry, registers its device and runs
// a first refresh.
func (p *Platform) SetupEntry(ctx context.Context, entry *config.Entry) (*fan.Entity, error) {
	p.log.Debug("Setting up entry",
		zap.String("entry_id", entry.ID),
		zap.String("name", entry.Name),
		zap.String("host", entry.Host),
	)

	client := deviceapi.NewClient(entry.Host)
	client.SetTimeout(p.timeout)
	entity := fan.New(entry.ID, entry.Name, entry.Host,
		fan.WithDevice(client),
		fan.WithLogger(p.log.Named("fan")),
	)

	caps := entity.Capabilities()
	if !caps.SupportsOnOff {
		return nil, fmt.Errorf("entity %s does not support on/off", entry.ID)
	}

	m := &managed{entity: entity, device: entity.DeviceInfo()}

	p.mu.Lock()
	if _, exists := p.entities[entry.ID]; exists {
		p.mu.Unlock()
		return nil, fmt.Errorf("%w: %s", ErrAlreadyLoaded, entry.ID)
	}
	p.entities[entry.ID] = m
	p.order = append(p.order, entry.ID)
	p.mu.Unlock()

	p.log.Info("Entity added",
		zap.String("entry_id", entry.ID),
		zap.String("name", entry.Name),
		zap.Int("preset_modes", len(caps.PresetModes)),
	)

	if err := p.Refresh(ctx, entry.ID); err != nil {
		return entity, err
	}
	return entity, nil
}

// UnloadEntry removes the entity and its device.
func (p *Platform) UnloadEntry(id string) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if _, ok := p.entities[id]; !ok {
		return fmt.Errorf("%w: %s", ErrUnknownEntity, id)
	}
	delete(p.entities, id)
	for i, v := range p.order {
		if v == id {
			p.order = append(p.order[:i], p.order[i+1:]...)
			break
		}
	}
	p.log.Info("Entity removed", zap.String("entry_id", id))
	return nil
}

// Entity returns the entity with the given id.
func (p *Platform) Entity(id string) (*fan.Entity, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	m, ok := p.entities[id]
	if !ok {
		return nil, false
	}
	return m.entity, true
}

// Entities returns every loaded entity in setup order.
func (p *Platform) Entities() []*fan.Entity {
	p.mu.RLock()
	defer p.mu.RUnlock()
	out := make([]*fan.Entity, 0, len(p.order))
	for _, id := range p.order {
		out = append(out, p.entities[id].entity)
	}
	return out
}

// Devices returns the device registry in setup order.
func (p *Platform) Devices() []fan.DeviceInfo {
	p.mu.RLock()
	defer p.mu.RUnlock()
	out := make([]fan.DeviceInfo, 0, len(p.order))
	for _, id := range p.order {
		out = append(out, p.entities[id].device)
	}
	return out
}

// Snapshots returns the state of every entity in setup order.
func (p *Platform) Snapshots() []fan.Snapshot {
	entities := p.Entities()
	out := make([]fan.Snapshot, 0, len(entities))
	for _, e := range entities {
		out = append(out, e.Snapshot())
	}
	return out
}

// Subscribe registers fn to receive a snapshot after every refresh and
// command. The returned func unregisters it.
func (p *Platform) Subscribe(fn func(fan.Snapshot)) func() {
	p.listenersMu.Lock()
	id := p.nextID
	p.nextID++
	p.listeners[id] = fn
	p.listenersMu.Unlock()

	return func() {
		p.listenersMu.Lock()
		delete(p.listeners, id)
		p.listenersMu.Unlock()
	}
}

func (p *Platform) notify(s fan.Snapshot) {
	p.listenersMu.RLock()
	fns := make([]func(fan.Snapshot), 0, len(p.listeners))
	for _, fn := range p.listeners {
		fns = append(fns, fn)
	}
	p.listenersMu.RUnlock()

	for _, fn := range fns {
		fn(s)
	}
}

// call runs fn against one entity on the executor while holding that
// entity's lock, then notifies listeners.
func (p *Platform) call(ctx context.Context, id string, fn func(ctx context.Context, e *fan.Entity) error) (fan.Snapshot, error) {
	p.mu.RLock()
	m, ok := p.entities[id]
	p.mu.RUnlock()
	if !ok {
		return fan.Snapshot{}, fmt.Errorf("%w: %s", ErrUnknownEntity, id)
	}

	// The job owns the entity lock until fn returns, even if ctx ends first.
	m.mu.Lock()
	done, err := p.exec.Start(ctx, func(ctx context.Context) error {
		defer m.mu.Unlock()
		return fn(ctx, m.entity)
	})
	if err != nil {
		m.mu.Unlock()
	} else {
		select {
		case err = <-done:
		case <-ctx.Done():
			err = ctx.Err()
		}
	}

	snap := m.entity.Snapshot()
	if err != nil {
		return snap, err
	}
	p.notify(snap)
	return snap, nil
}

// Refresh pulls the state of one entity.
func (p *Platform) Refresh(ctx context.Context, id string) error {
	_, err := p.call(ctx, id, func(ctx context.Context, e *fan.Entity) error {
		e.Refresh(ctx)
		return nil
	})
	return err
}

// RefreshAll refreshes every entity concurrently and waits for all of them.
func (p *Platform) RefreshAll(ctx context.Context) {
	var wg sync.WaitGroup
	for _, e := range p.Entities() {
		wg.Add(1)
		go func(id string) {
			defer wg.Done()
			if err := p.Refresh(ctx, id); err != nil && !errors.Is(err, ErrUnknownEntity) {
				p.log.Warn("Refresh did not complete", zap.String("entry_id", id), zap.Error(err))
			}
		}(e.UniqueID())
	}
	wg.Wait()
}

// TurnOn powers a fan on. A nil preset keeps its last speed.
func (p *Platform) TurnOn(ctx context.Context, id string, preset *fan.Speed) (fan.Snapshot, error) {
	return p.call(ctx, id, func(ctx context.Context, e *fan.Entity) error {
		return e.TurnOn(ctx, preset)
	})
}

// TurnOff powers a fan off.
func (p *Platform) TurnOff(ctx context.Context, id string) (fan.Snapshot, error) {
	return p.call(ctx, id, func(ctx context.Context, e *fan.Entity) error {
		e.TurnOff(ctx)
		return nil
	})
}

// SetPresetMode changes a fan's speed.
func (p *Platform) SetPresetMode(ctx context.Context, id string, preset fan.Speed) (fan.Snapshot, error) {
	return p.call(ctx, id, func(ctx context.Context, e *fan.Entity) error {
		return e.SetPresetMode(ctx, preset)
	})
}
