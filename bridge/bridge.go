// Package bridge assembles the language-service clients into activatable
// packages from a configuration.
package bridge

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/lexcodex/langbridge/autocomplete"
	"github.com/lexcodex/langbridge/hack"
	"github.com/lexcodex/langbridge/internal/config"
	"github.com/lexcodex/langbridge/plugin"
	"github.com/lexcodex/langbridge/python"
	"github.com/lexcodex/langbridge/rpc"
	"github.com/lexcodex/langbridge/services"
)

// Package names, also the keys of their stored state.
const (
	PythonPackage = "python"
	HackPackage   = "hack"
)

// Environment holds the shared dependencies of every package.
type Environment struct {
	Config   *config.Config
	Registry *rpc.RegistryHandle
	Store    plugin.StateStore
	Logger   *slog.Logger

	// MakerFactory, when set, replaces process spawning for every server.
	MakerFactory func(rpc.ProcessDescriptor) rpc.ProcessMaker
}

// NewRegistry returns the registry handle described by cfg: the embedded
// definitions, or services.yaml under cfg.ServicesDir.
func NewRegistry(cfg *config.Config) *rpc.RegistryHandle {
	if cfg.ServicesDir == "" {
		return services.DefaultRegistry()
	}
	return rpc.NewFSRegistryHandle(os.DirFS(cfg.ServicesDir), ".")
}

func (e *Environment) logger() *slog.Logger {
	if e.Logger == nil {
		return slog.Default()
	}
	return e.Logger
}

// resolve anchors relative paths at the workspace.
func (e *Environment) resolve(path string) string {
	if path == "" || filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(e.Config.Workspace, path)
}

// PythonController owns the jedi servers and the autocomplete provider.
type PythonController struct {
	Manager  *python.ServerManager
	Provider *autocomplete.Provider

	mu       sync.RWMutex
	settings autocomplete.Settings
}

// Settings returns the current autocomplete settings.
func (c *PythonController) Settings() autocomplete.Settings {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.settings
}

// SetSettings replaces the autocomplete settings.
func (c *PythonController) SetSettings(s autocomplete.Settings) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.settings = s
}

// Serialize returns the autocomplete settings.
func (c *PythonController) Serialize() (any, error) { return c.Settings(), nil }

// Dispose kills every jedi server.
func (c *PythonController) Dispose() error {
	c.Manager.Dispose()
	return nil
}

// NewPythonPackage builds the python package. Stored settings take
// precedence over the configured defaults.
func NewPythonPackage(env *Environment) *plugin.Package {
	factory := func(ctx context.Context, state json.RawMessage) (plugin.Controller, error) {
		cfg := env.Config.Python
		settings := autocomplete.Settings{
			AutocompleteArguments:    cfg.AutocompleteArguments,
			IncludeOptionalArguments: cfg.IncludeOptionalArguments,
		}
		if state != nil {
			if err := json.Unmarshal(state, &settings); err != nil {
				return nil, fmt.Errorf("decode python state: %w", err)
			}
		}
		manager := python.NewServerManager(python.Options{
			PythonPath:   cfg.Executable,
			ServerPath:   env.resolve(cfg.ServerPath),
			LibPath:      env.resolve(cfg.LibPath),
			Paths:        cfg.Paths,
			Logger:       env.logger(),
			MakerFactory: env.MakerFactory,
		}, env.Registry)
		controller := &PythonController{Manager: manager, settings: settings}
		controller.Provider = autocomplete.NewProvider(manager, controller.Settings, env.logger())
		return controller, nil
	}
	return plugin.NewPackage(PythonPackage, factory, env.Store, env.logger())
}

type hackState struct {
	BasePath string `json:"basePath"`
}

// HackController owns the Hack language controller and its bridge process.
type HackController struct {
	Language hack.Language
}

// Serialize returns the hack base path.
func (c *HackController) Serialize() (any, error) {
	return hackState{BasePath: c.Language.BasePath()}, nil
}

// Dispose releases the language and its bridge process.
func (c *HackController) Dispose() error {
	c.Language.Dispose()
	return nil
}

// NewHackPackage builds the hack package. A stored base path takes
// precedence over the configured one.
func NewHackPackage(env *Environment, initialFile string) *plugin.Package {
	factory := func(ctx context.Context, state json.RawMessage) (plugin.Controller, error) {
		cfg := env.Config.Hack
		basePath := env.resolve(cfg.BasePath)
		if state != nil {
			var saved hackState
			if err := json.Unmarshal(state, &saved); err != nil {
				return nil, fmt.Errorf("decode hack state: %w", err)
			}
			if saved.BasePath != "" {
				basePath = saved.BasePath
			}
		}
		server := hack.NewServer(hack.ServerOptions{
			Command:      cfg.Command,
			Args:         cfg.Args,
			BasePath:     basePath,
			Logger:       env.logger(),
			MakerFactory: env.MakerFactory,
		}, env.Registry)
		return &HackController{Language: hack.NewLanguage(cfg.Available, basePath, initialFile, server.Lazy())}, nil
	}
	return plugin.NewPackage(HackPackage, factory, env.Store, env.logger())
}
