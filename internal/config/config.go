// Package config loads the langbridge configuration file.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// DefaultFile is the configuration file name looked up in the workspace.
const DefaultFile = "langbridge.yaml"

// Config models langbridge.yaml.
type Config struct {
	Workspace string `yaml:"workspace"`
	// ServicesDir overrides the embedded service definitions when set.
	ServicesDir string       `yaml:"services_dir"`
	StateDB     string       `yaml:"state_db"`
	LogLevel    string       `yaml:"log_level"`
	Python      PythonConfig `yaml:"python"`
	Hack        HackConfig   `yaml:"hack"`
}

// PythonConfig configures the jedi server processes.
type PythonConfig struct {
	Executable               string   `yaml:"executable"`
	ServerPath               string   `yaml:"server_path"`
	LibPath                  string   `yaml:"lib_path"`
	Paths                    []string `yaml:"paths"`
	AutocompleteArguments    bool     `yaml:"autocomplete_arguments"`
	IncludeOptionalArguments bool     `yaml:"include_optional_arguments"`
}

// HackConfig configures the Hack bridge process.
type HackConfig struct {
	Available bool     `yaml:"available"`
	Command   string   `yaml:"command"`
	Args      []string `yaml:"args"`
	BasePath  string   `yaml:"base_path"`
}

// Default returns the configuration used when no file exists.
func Default(workspace string) *Config {
	if workspace == "" {
		workspace = "."
	}
	return &Config{
		Workspace: workspace,
		StateDB:   filepath.Join(workspace, ".langbridge", "state.db"),
		LogLevel:  "info",
		Python: PythonConfig{
			Executable:            "python",
			ServerPath:            filepath.Join("python", "jediserver.py"),
			LibPath:               "VendorLib",
			AutocompleteArguments: true,
		},
		Hack: HackConfig{
			Available: true,
			Command:   "hh-bridge",
			BasePath:  workspace,
		},
	}
}

// Load reads path on top of Default(workspace). A missing file is not an error.
func Load(path, workspace string) (*Config, error) {
	cfg := Default(workspace)
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return cfg, nil
	}
	if err != nil {
		return nil, err
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// Validate checks required fields.
func (c *Config) Validate() error {
	if c.Python.Executable == "" {
		return errors.New("python.executable is required")
	}
	if c.Python.ServerPath == "" {
		return errors.New("python.server_path is required")
	}
	if c.Hack.Available && c.Hack.Command == "" {
		return errors.New("hack.command is required when hack is available")
	}
	if _, err := ParseLevel(c.LogLevel); err != nil {
		return err
	}
	return nil
}

// ParseLevel maps a log_level value onto a slog level.
func ParseLevel(level string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "", "info":
		return slog.LevelInfo, nil
	case "debug":
		return slog.LevelDebug, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	}
	return slog.LevelInfo, fmt.Errorf("unknown log_level %q", level)
}
