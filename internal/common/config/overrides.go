package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
	"github.com/adrg/xdg"
)

// Overrides tunes which feedstocks a run touches. The file is optional and
// hand-maintained:
//
//	skip = ["fake-factory"]
//
//	[pin]
//	"django" = "2.2.28"
//
// Skipped packages are never updated (deprecated or hand-managed feedstocks).
// A pinned package is never ticked past the pinned version.
type Overrides struct {
	// Skip lists package names excluded from every run
	Skip []string `toml:"skip"`
	// Pin caps the target version per package name
	Pin map[string]string `toml:"pin"`
}

// OverridesPath returns the overrides file path next to the config file
func OverridesPath() string {
	return filepath.Join(xdg.ConfigHome, "feedtick", "overrides.toml")
}

// LoadOverrides loads the overrides file from the default location.
// A missing file yields empty overrides.
func LoadOverrides() (*Overrides, error) {
	return LoadOverridesFrom(OverridesPath())
}

// LoadOverridesFrom loads the overrides file from a specific path
func LoadOverridesFrom(path string) (*Overrides, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return &Overrides{}, nil
		}
		return nil, fmt.Errorf("failed to read overrides: %w", err)
	}

	var o Overrides
	if err := toml.Unmarshal(data, &o); err != nil {
		return nil, fmt.Errorf("failed to parse overrides: %w", err)
	}

	return &o, nil
}

// Skipped reports whether a package name is on the skip list
func (o *Overrides) Skipped(name string) bool {
	for _, s := range o.Skip {
		if s == name {
			return true
		}
	}
	return false
}

// PinFor returns the pinned version for a package name, if any
func (o *Overrides) PinFor(name string) (string, bool) {
	v, ok := o.Pin[name]
	return v, ok
}
