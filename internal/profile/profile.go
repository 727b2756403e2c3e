// Package profile reads and writes Eruption profile files.
package profile

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/google/uuid"
	"github.com/pelletier/go-toml/v2"
)

// Extension is the file suffix the daemon expects for profiles.
const Extension = ".profile"

var ErrInvalidProfile = errors.New("invalid profile")

// Profile is one profile file: a set of active scripts plus optional
// per-script parameter overrides.
type Profile struct {
	ID            string                       `toml:"id"`
	Name          string                       `toml:"name"`
	Description   string                       `toml:"description"`
	ActiveScripts []string                     `toml:"active_scripts"`
	Config        map[string][]ScriptParameter `toml:"config,omitempty"`

	Path string `toml:"-"`
}

// ScriptParameter overrides one script manifest parameter.
type ScriptParameter struct {
	Type  string `toml:"type"`
	Name  string `toml:"name"`
	Value any    `toml:"value"`
}

// New returns a profile with a fresh id.
func New(name, description string, scripts []string) Profile {
	return Profile{
		ID:            uuid.NewString(),
		Name:          name,
		Description:   description,
		ActiveScripts: append([]string(nil), scripts...),
	}
}

// Parse decodes profile TOML and validates it.
func Parse(data []byte) (Profile, error) {
	var p Profile
	if err := toml.Unmarshal(data, &p); err != nil {
		return Profile{}, fmt.Errorf("%w: %w", ErrInvalidProfile, err)
	}
	if err := p.Validate(); err != nil {
		return Profile{}, err
	}
	return p, nil
}

// Load reads and parses the profile at path.
func Load(path string) (Profile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Profile{}, fmt.Errorf("read profile %q: %w", path, err)
	}

	p, err := Parse(data)
	if err != nil {
		return Profile{}, fmt.Errorf("%s: %w", path, err)
	}
	p.Path = path
	return p, nil
}

// Validate checks the fields the daemon requires.
func (p Profile) Validate() error {
	if _, err := uuid.Parse(strings.TrimSpace(p.ID)); err != nil {
		return fmt.Errorf("%w: id %q is not a UUID", ErrInvalidProfile, p.ID)
	}
	if strings.TrimSpace(p.Name) == "" {
		return fmt.Errorf("%w: name must not be empty", ErrInvalidProfile)
	}
	if len(p.ActiveScripts) == 0 {
		return fmt.Errorf("%w: active_scripts must list at least one script", ErrInvalidProfile)
	}
	for i, script := range p.ActiveScripts {
		if strings.TrimSpace(script) == "" {
			return fmt.Errorf("%w: active_scripts[%d] is empty", ErrInvalidProfile, i)
		}
	}
	for script, params := range p.Config {
		for i, param := range params {
			if strings.TrimSpace(param.Name) == "" {
				return fmt.Errorf("%w: config.%q[%d] has no name", ErrInvalidProfile, script, i)
			}
		}
	}
	return nil
}

// Marshal encodes the profile as TOML.
func Marshal(p Profile) ([]byte, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return toml.Marshal(p)
}

// Write stores the profile at path.
func Write(path string, p Profile) error {
	data, err := Marshal(p)
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write profile %q: %w", path, err)
	}
	return nil
}

// CreateTemp writes the profile to a new uniquely named file in dir and
// returns its path. An empty dir selects os.TempDir.
func CreateTemp(dir string, p Profile) (string, error) {
	data, err := Marshal(p)
	if err != nil {
		return "", err
	}

	f, err := os.CreateTemp(dir, "eruption-sdk-*"+Extension)
	if err != nil {
		return "", fmt.Errorf("create profile: %w", err)
	}
	path := f.Name()

	if _, err := f.Write(data); err != nil {
		_ = f.Close()
		_ = os.Remove(path)
		return "", fmt.Errorf("write profile %q: %w", path, err)
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(path)
		return "", fmt.Errorf("close profile %q: %w", path, err)
	}
	return path, nil
}
