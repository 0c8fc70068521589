// Package config stores ecofan's config entries and preferences.
//
// Each entry links a user-chosen name to a fan address that answered the
// setup probe. Entries live in a YAML file in the platform config directory:
//   - Linux: $XDG_CONFIG_HOME/ecofan/config.yaml or $HOME/.config/ecofan/config.yaml
//   - macOS: $HOME/.config/ecofan/config.yaml
//   - Windows: %LOCALAPPDATA%\ecofan\config.yaml
//
// # Usage Example
//
//	registry, err := config.LoadRegistry()
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	entry, err := registry.AddEntry("Bedroom", "http://192.168.1.40")
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	// Save changes atomically
//	if err := registry.Save(); err != nil {
//	    log.Fatal(err)
//	}
//
// # Thread Safety
//
// Registry methods may be called from multiple goroutines. File writes go
// through a temporary file and a rename.
package config
