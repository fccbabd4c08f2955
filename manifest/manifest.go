// Package manifest handles bropt.toml project configuration.
package manifest

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

// Manifest represents a bropt.toml configuration. Command-line flags
// override anything set here.
type Manifest struct {
	Tape   Tape   `toml:"tape"`
	Output Output `toml:"output"`
	Cache  Cache  `toml:"cache"`

	// Dir is the directory containing the bropt.toml file (set at load time).
	Dir string `toml:"-"`
}

// Tape configures the execution tape.
type Tape struct {
	Length int `toml:"length"`
}

// Output configures the output sink.
type Output struct {
	Flush bool `toml:"flush"`
}

// Cache configures the program cache.
type Cache struct {
	Enabled bool   `toml:"enabled"`
	Path    string `toml:"path"`
}

// Default returns the configuration used when no bropt.toml exists.
func Default() *Manifest {
	return &Manifest{
		Tape: Tape{Length: 65536},
	}
}

// Load parses a bropt.toml file from the given directory.
func Load(dir string) (*Manifest, error) {
	path := filepath.Join(dir, "bropt.toml")
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("cannot read %s: %w", path, err)
	}

	var m Manifest
	if err := toml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("parse error in %s: %w", path, err)
	}

	m.Dir, err = filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("cannot resolve path %s: %w", dir, err)
	}

	// Defaults
	if m.Tape.Length == 0 {
		m.Tape.Length = 65536
	}
	if m.Cache.Enabled && m.Cache.Path == "" {
		m.Cache.Path = filepath.Join(m.Dir, ".bropt", "programs.db")
	}

	return &m, nil
}

// FindAndLoad walks up from startDir to find a bropt.toml file, then
// loads and returns the manifest. Returns nil if no manifest is found.
func FindAndLoad(startDir string) (*Manifest, error) {
	dir, err := filepath.Abs(startDir)
	if err != nil {
		return nil, err
	}

	for {
		path := filepath.Join(dir, "bropt.toml")
		if _, err := os.Stat(path); err == nil {
			return Load(dir)
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			// Reached root
			return nil, nil
		}
		dir = parent
	}
}
