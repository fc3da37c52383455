// Package config holds the settings the editor core needs at runtime: how to
// launch the reasoning engine, query tuning options, logging and the
// transcript database.
//
// A Config is built once at startup (Default, then optionally Load) and
// passed by reference to the components that need it. There is no global
// settings object.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// DefaultEnginePath is the engine executable used when none is configured.
const DefaultEnginePath = "bayes-cmd"

// AppDirToken in an engine path or argument expands to the directory of the
// running executable.
const AppDirToken = "%APP%"

// Config is the root configuration document.
type Config struct {
	Engine EngineConfig `yaml:"engine"`
	Diff   DiffConfig   `yaml:"diff"`
	Log    LogConfig    `yaml:"log"`
	Store  StoreConfig  `yaml:"store"`
}

// EngineConfig describes how to launch the reasoning engine.
type EngineConfig struct {
	// Path is the engine executable. May contain %APP%.
	Path string `yaml:"path"`

	// Args are extra command-line arguments. May contain %APP%.
	Args []string `yaml:"args,omitempty"`

	// Dir is the working directory; empty means the current one.
	Dir string `yaml:"dir,omitempty"`
}

// DiffConfig carries the convergence options sent before each query.
// Zero values are not sent.
type DiffConfig struct {
	// SmallValue is sent as set-option diff-small-value when > 0.
	SmallValue float64 `yaml:"small_value"`

	// CheckPeriod is sent as set-option diff-check-period when > 0.
	CheckPeriod int `yaml:"check_period"`
}

// LogConfig selects the log level.
type LogConfig struct {
	// Level is one of debug, info, warn, error.
	Level string `yaml:"level"`
}

// StoreConfig locates the transcript database.
type StoreConfig struct {
	// Path is the SQLite file. Empty disables the transcript.
	Path string `yaml:"path,omitempty"`
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	return &Config{
		Engine: EngineConfig{Path: DefaultEnginePath},
		Log:    LogConfig{Level: "info"},
	}
}

// Load reads a YAML file over the defaults. Unknown fields are rejected.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	return Parse(data)
}

// Parse decodes YAML over the defaults and validates the result.
func Parse(data []byte) (*Config, error) {
	cfg := Default()
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true) // Reject unknown fields
	if err := decoder.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// Validate checks field values.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Engine.Path) == "" {
		return fmt.Errorf("engine.path is required")
	}
	if c.Diff.SmallValue < 0 {
		return fmt.Errorf("diff.small_value must not be negative")
	}
	if c.Diff.CheckPeriod < 0 {
		return fmt.Errorf("diff.check_period must not be negative")
	}
	if _, err := ParseLevel(c.Log.Level); err != nil {
		return err
	}
	return nil
}

// ParseLevel maps a level name to a slog.Level. Empty means info.
func ParseLevel(name string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "debug":
		return slog.LevelDebug, nil
	case "", "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return 0, fmt.Errorf("log.level %q: must be debug, info, warn or error", name)
	}
}

// Resolved returns a copy of the engine settings with %APP% expanded to
// appDir in the path and every argument.
func (e EngineConfig) Resolved(appDir string) EngineConfig {
	out := EngineConfig{
		Path: expandApp(e.Path, appDir),
		Dir:  expandApp(e.Dir, appDir),
	}
	if len(e.Args) > 0 {
		out.Args = make([]string, len(e.Args))
		for i, a := range e.Args {
			out.Args[i] = expandApp(a, appDir)
		}
	}
	return out
}

func expandApp(s, appDir string) string {
	if !strings.Contains(s, AppDirToken) {
		return s
	}
	return filepath.Clean(strings.ReplaceAll(s, AppDirToken, appDir))
}

// AppDir returns the directory of the running executable, or "." when it
// cannot be determined.
func AppDir() string {
	exe, err := os.Executable()
	if err != nil {
		return "."
	}
	return filepath.Dir(exe)
}
