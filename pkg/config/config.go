// Package config loads orient settings from a TOML file.
package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/BurntSushi/toml"
)

// Kernel names accepted in the kernel field.
const (
	KernelSdfx     = "sdfx"
	KernelManifold = "manifold"
)

// Output formats accepted in [output] format.
const (
	FormatText = "text"
	FormatJSON = "json"
)

// ErrInvalid is wrapped by every validation failure.
var ErrInvalid = errors.New("invalid config")

// Duration is a time.Duration that decodes from strings like "5s".
type Duration struct {
	time.Duration
}

// UnmarshalText implements encoding.TextUnmarshaler for toml.
func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	d.Duration = v
	return nil
}

// MarshalText implements encoding.TextMarshaler.
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

// Output controls how reports are printed.
type Output struct {
	Format string `toml:"format"`
}

// Config holds every setting the CLI reads from disk.
type Config struct {
	// Copy is the default copy policy for orient jobs that do not set one.
	Copy bool `toml:"copy"`
	// AllowChords lets polylines stand in for lines using their end vertices.
	AllowChords bool     `toml:"allow_chords"`
	Kernel      string   `toml:"kernel"`
	MeshCells   int      `toml:"mesh_cells"`
	EvalTimeout Duration `toml:"eval_timeout"`
	Output      Output   `toml:"output"`
}

// Default returns the built-in settings.
func Default() Config {
	return Config{
		Copy:        true,
		Kernel:      KernelSdfx,
		MeshCells:   200,
		EvalTimeout: Duration{5 * time.Second},
		Output:      Output{Format: FormatText},
	}
}

// Load reads path over the defaults. An empty path returns the defaults.
// Keys missing from the file keep their default values.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}
	md, err := toml.DecodeFile(path, &cfg)
	if err != nil {
		return Config{}, fmt.Errorf("config: %w", err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		return Config{}, fmt.Errorf("config: unknown key %q: %w", undecoded[0].String(), ErrInvalid)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Parse decodes TOML text over the defaults.
func Parse(data string) (Config, error) {
	cfg := Default()
	if _, err := toml.Decode(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks field ranges and enumerations.
func (c Config) Validate() error {
	switch c.Kernel {
	case KernelSdfx, KernelManifold:
	default:
		return fmt.Errorf("config: kernel %q (want %s or %s): %w", c.Kernel, KernelSdfx, KernelManifold, ErrInvalid)
	}
	if c.MeshCells <= 0 {
		return fmt.Errorf("config: mesh_cells must be positive, got %d: %w", c.MeshCells, ErrInvalid)
	}
	if c.EvalTimeout.Duration <= 0 {
		return fmt.Errorf("config: eval_timeout must be positive, got %s: %w", c.EvalTimeout, ErrInvalid)
	}
	switch c.Output.Format {
	case FormatText, FormatJSON:
	default:
		return fmt.Errorf("config: output format %q (want %s or %s): %w", c.Output.Format, FormatText, FormatJSON, ErrInvalid)
	}
	return nil
}
