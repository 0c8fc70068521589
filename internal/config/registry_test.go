package config

import (
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
	"time"
)

func TestGetConfigDir(t *testing.T) {
	if runtime.GOOS != "windows" && runtime.GOOS != "darwin" {
		t.Setenv("XDG_CONFIG_HOME", "/tmp/xdg")
	}

	configDir, err := GetConfigDir()
	if err != nil {
		t.Fatalf("GetConfigDir() error = %v", err)
	}

	if !strings.Contains(configDir, "ecofan") {
		t.Errorf("GetConfigDir() = %v, should contain 'ecofan'", configDir)
	}

	if runtime.GOOS == "linux" && configDir != filepath.Join("/tmp/xdg", "ecofan") {
		t.Errorf("GetConfigDir() = %v, want XDG_CONFIG_HOME/ecofan", configDir)
	}
}

func TestGetConfigPath(t *testing.T) {
	configPath, err := GetConfigPath()
	if err != nil {
		t.Fatalf("GetConfigPath() error = %v", err)
	}

	if filepath.Base(configPath) != "config.yaml" {
		t.Errorf("GetConfigPath() should end with 'config.yaml', got: %v", configPath)
	}
}

func TestNewRegistry(t *testing.T) {
	reg := NewRegistry()

	if reg.Version != 1 {
		t.Errorf("NewRegistry().Version = %v, want 1", reg.Version)
	}
	if reg.Entries == nil {
		t.Error("NewRegistry().Entries should not be nil")
	}
	if reg.Preferences.PollInterval != DefaultPollInterval {
		t.Errorf("PollInterval = %v, want %v", reg.Preferences.PollInterval, DefaultPollInterval)
	}
	if reg.Preferences.Timeout != 10*time.Second {
		t.Errorf("Timeout = %v, want 10s", reg.Preferences.Timeout)
	}
}

func TestRegistryAddEntry(t *testing.T) {
	reg := NewRegistry()

	entry, err := reg.AddEntry(" Bedroom ", "http://fan.local:80")
	if err != nil {
		t.Fatalf("AddEntry() error = %v", err)
	}

	if entry.Name != "Bedroom" || entry.Host != "http://fan.local:80" {
		t.Errorf("entry = %+v", entry)
	}
	if len(entry.ID) != 36 {
		t.Errorf("ID = %q, want a UUID", entry.ID)
	}
	if entry.Title() != "Bedroom" {
		t.Errorf("Title() = %q", entry.Title())
	}

	other, _ := reg.AddEntry("Lounge", "http://10.0.0.2")
	if other.ID == entry.ID {
		t.Error("AddEntry() reused an id")
	}

	if _, err := reg.AddEntry("Empty", "  "); err == nil {
		t.Error("AddEntry() with empty host should fail")
	}
}

func TestRegistryGetAndRemoveEntry(t *testing.T) {
	reg := NewRegistry()
	bedroom, _ := reg.AddEntry("Bedroom", "http://a")
	lounge, _ := reg.AddEntry("Lounge", "http://b")

	tests := []struct {
		key  string
		want *Entry
	}{
		{bedroom.ID, bedroom},
		{"lounge", lounge},
	}
	for _, tt := range tests {
		got, err := reg.GetEntry(tt.key)
		if err != nil || got != tt.want {
			t.Errorf("GetEntry(%q) = %v, %v", tt.key, got, err)
		}
	}

	if _, err := reg.GetEntry("attic"); !errors.Is(err, ErrEntryNotFound) {
		t.Errorf("GetEntry(attic) error = %v, want ErrEntryNotFound", err)
	}

	removed, err := reg.RemoveEntry("Bedroom")
	if err != nil || removed != bedroom {
		t.Fatalf("RemoveEntry() = %v, %v", removed, err)
	}
	if list := reg.ListEntries(); len(list) != 1 || list[0] != lounge {
		t.Errorf("ListEntries() = %v", list)
	}
}

func TestRegistrySaveLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")

	reg, err := LoadRegistryFrom(path)
	if err != nil {
		t.Fatalf("LoadRegistryFrom() on missing file error = %v", err)
	}
	entry, _ := reg.AddEntry("Bedroom", "http://fan.local:80")
	reg.Preferences.PollInterval = 15 * time.Second
	reg.Preferences.MQTT = &MQTTPrefs{Broker: "tcp://localhost:1883"}

	if err := reg.Save(); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("config file not written: %v", err)
	}
	if runtime.GOOS != "windows" && info.Mode().Perm() != 0600 {
		t.Errorf("config file mode = %v, want 0600", info.Mode().Perm())
	}
	if _, err := os.Stat(path + ".tmp"); !os.IsNotExist(err) {
		t.Error("temporary file left behind")
	}

	loaded, err := LoadRegistryFrom(path)
	if err != nil {
		t.Fatalf("LoadRegistryFrom() error = %v", err)
	}
	if len(loaded.Entries) != 1 {
		t.Fatalf("loaded %d entries, want 1", len(loaded.Entries))
	}
	got := loaded.Entries[0]
	if got.ID != entry.ID || got.Name != "Bedroom" || got.Host != "http://fan.local:80" {
		t.Errorf("loaded entry = %+v", got)
	}
	if !got.CreatedAt.Equal(entry.CreatedAt) {
		t.Errorf("CreatedAt = %v, want %v", got.CreatedAt, entry.CreatedAt)
	}
	if loaded.Preferences.PollInterval != 15*time.Second {
		t.Errorf("PollInterval = %v, want 15s", loaded.Preferences.PollInterval)
	}
	if loaded.Preferences.MQTT.TopicPrefix != DefaultTopicPrefix {
		t.Errorf("TopicPrefix = %q, want default", loaded.Preferences.MQTT.TopicPrefix)
	}
	if loaded.Path() != path {
		t.Errorf("Path() = %q", loaded.Path())
	}
}

func TestLoadRegistryFrom_Errors(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"bad yaml", "version: [1"},
		{"wrong version", "version: 2\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "config.yaml")
			if err := os.WriteFile(path, []byte(tt.content), 0600); err != nil {
				t.Fatal(err)
			}
			if _, err := LoadRegistryFrom(path); err == nil {
				t.Error("LoadRegistryFrom() should fail")
			}
		})
	}
}

func TestLoadRegistryFrom_FillsDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := "version: 1\nentries:\n  - id: abc\n    name: Attic\n    host: http://10.0.0.9\n"
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatal(err)
	}

	reg, err := LoadRegistryFrom(path)
	if err != nil {
		t.Fatalf("LoadRegistryFrom() error = %v", err)
	}
	if reg.Preferences == nil || reg.Preferences.Listen != DefaultListen {
		t.Errorf("Preferences = %+v, want defaults", reg.Preferences)
	}
	if e, err := reg.GetEntry("abc"); err != nil || e.Name != "Attic" {
		t.Errorf("GetEntry(abc) = %v, %v", e, err)
	}
}
