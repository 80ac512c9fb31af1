// Package settings manages persistent user settings for the stagewire CLI.
package settings

import (
	"encoding/json"
	"os"
	"path/filepath"
)

// DefaultStoreAddr is used when neither the flag nor the settings file
// provide a store address.
const DefaultStoreAddr = "127.0.0.1:6379"

// Settings holds persistent user preferences
type Settings struct {
	// StoreAddr is the entry store address used when --store is not given
	StoreAddr string `json:"store_addr,omitempty"`

	// StoreDB is the Redis database number holding the entry tables
	StoreDB int `json:"store_db,omitempty"`

	// DefaultTag scopes route operations when --tag is not given (0 = unscoped)
	DefaultTag uint32 `json:"default_tag,omitempty"`

	// SSHUser enables tunneled store access when set
	SSHUser string `json:"ssh_user,omitempty"`
}

// GetStoreAddr returns the configured store address or the default.
func (s *Settings) GetStoreAddr() string {
	if s.StoreAddr == "" {
		return DefaultStoreAddr
	}
	return s.StoreAddr
}

// DefaultSettingsPath returns the default path for the settings file
func DefaultSettingsPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "stagewire_settings.json"
	}
	return filepath.Join(home, ".stagewire", "settings.json")
}

// Load reads settings from the default location
func Load() (*Settings, error) {
	return LoadFrom(DefaultSettingsPath())
}

// LoadFrom reads settings from a specific path
func LoadFrom(path string) (*Settings, error) {
	s := &Settings{}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			// Return empty settings if file doesn't exist
			return s, nil
		}
		return nil, err
	}

	if err := json.Unmarshal(data, s); err != nil {
		return nil, err
	}

	return s, nil
}

// Save writes settings to the default location
func (s *Settings) Save() error {
	return s.SaveTo(DefaultSettingsPath())
}

// SaveTo writes settings to a specific path
func (s *Settings) SaveTo(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}

	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return err
	}

	return os.WriteFile(path, data, 0644)
}
