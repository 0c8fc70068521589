package config

import (
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

const (
	// DefaultPollInterval is how often each fan is refreshed.
	DefaultPollInterval = 30 * time.Second

	// DefaultTimeout bounds every request to a fan.
	DefaultTimeout = 10 * time.Second

	// DefaultListen is the address of the local HTTP API.
	DefaultListen = "127.0.0.1:8124"

	// DefaultTopicPrefix is the root of every MQTT topic.
	DefaultTopicPrefix = "ecofan"

	// MQTTPasswordEnvVar holds the broker password.
	MQTTPasswordEnvVar = "ECOFAN_MQTT_PASSWORD"
)

// ErrEntryNotFound is returned when no entry matches an id or name.
var ErrEntryNotFound = errors.New("config entry not found")

// Registry represents the entire user configuration file.
// It holds every configured fan (one entry per fan) and application preferences.
type Registry struct {
	Version     int          `yaml:"version"`
	Entries     []*Entry     `yaml:"entries,omitempty"`
	Preferences *Preferences `yaml:"preferences,omitempty"`

	path string
	mu   sync.RWMutex
}

// Entry is a validated fan: a user-chosen name linked to a device address.
type Entry struct {
	ID        string    `yaml:"id" json:"id"`
	Name      string    `yaml:"name" json:"name"`
	Host      string    `yaml:"host" json:"host"`
	CreatedAt time.Time `yaml:"created_at" json:"created_at"`
}

// Title is the display title of the entry.
func (e *Entry) Title() string {
	return e.Name
}

// Preferences represents application-wide user preferences.
type Preferences struct {
	PollInterval time.Duration `yaml:"poll_interval,omitempty"`
	Timeout      time.Duration `yaml:"timeout,omitempty"`
	Listen       string        `yaml:"listen,omitempty"`
	MQTT         *MQTTPrefs    `yaml:"mqtt,omitempty"`
}

// MQTTPrefs configures the optional MQTT bridge.
// The broker password is never stored; it is read from ECOFAN_MQTT_PASSWORD.
type MQTTPrefs struct {
	Broker      string `yaml:"broker"`
	ClientID    string `yaml:"client_id,omitempty"`
	Username    string `yaml:"username,omitempty"`
	TopicPrefix string `yaml:"topic_prefix,omitempty"`
}

func defaultPreferences() *Preferences {
	return &Preferences{
		PollInterval: DefaultPollInterval,
		Timeout:      DefaultTimeout,
		Listen:       DefaultListen,
	}
}

// NewRegistry creates a new Registry with default values.
func NewRegistry() *Registry {
	return &Registry{
		Version:     1,
		Entries:     []*Entry{},
		Preferences: defaultPreferences(),
	}
}

// normalize fills zero-valued preferences with defaults.
func (r *Registry) normalize() {
	if r.Entries == nil {
		r.Entries = []*Entry{}
	}
	if r.Preferences == nil {
		r.Preferences = defaultPreferences()
		return
	}
	if r.Preferences.PollInterval <= 0 {
		r.Preferences.PollInterval = DefaultPollInterval
	}
	if r.Preferences.Timeout <= 0 {
		r.Preferences.Timeout = DefaultTimeout
	}
	if r.Preferences.Listen == "" {
		r.Preferences.Listen = DefaultListen
	}
	if m := r.Preferences.MQTT; m != nil && m.TopicPrefix == "" {
		m.TopicPrefix = DefaultTopicPrefix
	}
}

// Path returns the file the registry is saved to.
func (r *Registry) Path() string {
	return r.path
}

// AddEntry records a new fan and returns it. The id is a fresh UUID.
// The caller is responsible for calling Save.
func (r *Registry) AddEntry(name, host string) (*Entry, error) {
	name = strings.TrimSpace(name)
	host = strings.TrimSpace(host)
	if host == "" {
		return nil, fmt.Errorf("entry host is required")
	}

	entry := &Entry{
		ID:        uuid.NewString(),
		Name:      name,
		Host:      host,
		CreatedAt: time.Now().UTC().Truncate(time.Second),
	}

	r.mu.Lock()
	r.Entries = append(r.Entries, entry)
	r.mu.Unlock()

	return entry, nil
}

// GetEntry returns the entry with the given id, or the first entry whose
// name matches case-insensitively.
func (r *Registry) GetEntry(idOrName string) (*Entry, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, e := range r.Entries {
		if e.ID == idOrName {
			return e, nil
		}
	}
	for _, e := range r.Entries {
		if strings.EqualFold(e.Name, idOrName) {
			return e, nil
		}
	}
	return nil, fmt.Errorf("%w: %s", ErrEntryNotFound, idOrName)
}

// RemoveEntry deletes an entry by id or name and returns it.
func (r *Registry) RemoveEntry(idOrName string) (*Entry, error) {
	entry, err := r.GetEntry(idOrName)
	if err != nil {
		return nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	for i, e := range r.Entries {
		if e == entry {
			r.Entries = append(r.Entries[:i], r.Entries[i+1:]...)
			break
		}
	}
	return entry, nil
}

// ListEntries returns a copy of the entry list.
func (r *Registry) ListEntries() []*Entry {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*Entry, len(r.Entries))
	copy(out, r.Entries)
	return out
}
