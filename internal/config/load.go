package config

import (
	"errors"
	"fmt"
	"os"
)

// Loaded is the effective configuration together with where it came from.
type Loaded struct {
	Path     string
	Config   Config
	Warnings []Warning
	// Exists is false when Path was absent and built-in defaults apply.
	Exists bool
}

// Summary describes the source and the connection settings in effect.
func (l Loaded) Summary() string {
	source := fmt.Sprintf("loaded %q", l.Path)
	if !l.Exists {
		source = fmt.Sprintf("%q not found; using defaults", l.Path)
	}
	return fmt.Sprintf("%s (socket %s, receive timeout %s, max message %d bytes)",
		source, l.Config.SocketPath, l.Config.ReceiveTimeout(), l.Config.MaxMessageSize)
}

// Load resolves the config path and returns the validated settings. A missing
// file is not an error; the defaults are validated and used instead.
func Load(explicitPath string) (Loaded, error) {
	path, err := ResolvePath(explicitPath)
	if err != nil {
		return Loaded{}, fmt.Errorf("resolve config path: %w", err)
	}

	content, err := os.ReadFile(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
		cfg, warnings, err := Parse("", Default())
		if err != nil {
			return Loaded{}, fmt.Errorf("default config: %w", err)
		}
		warnings = append([]Warning{{
			Message: fmt.Sprintf("config file %q not found; using defaults", path),
		}}, warnings...)
		return Loaded{Path: path, Config: cfg, Warnings: warnings}, nil
	case err != nil:
		return Loaded{}, fmt.Errorf("read config %q: %w", path, err)
	}

	cfg, warnings, err := Parse(string(content), Default())
	if err != nil {
		return Loaded{}, fmt.Errorf("parse config %q: %w", path, err)
	}
	return Loaded{Path: path, Config: cfg, Warnings: warnings, Exists: true}, nil
}
