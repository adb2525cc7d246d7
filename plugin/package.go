// Package plugin implements the activation lifecycle editor packages expose
// to their host: activate, deactivate and serialize.
package plugin

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
)

// ErrNotActive is returned by Serialize when the package is not active.
var ErrNotActive = errors.New("package not active")

// Controller is the internal object an active package delegates to.
type Controller interface {
	// Serialize returns JSON-encodable state restored on the next activation.
	Serialize() (any, error)
	Dispose() error
}

// Factory builds a controller from previously serialized state. state is
// nil on first activation.
type Factory func(ctx context.Context, state json.RawMessage) (Controller, error)

// StateStore persists serialized package state between sessions.
type StateStore interface {
	Save(name string, state json.RawMessage) error
	Load(name string) (json.RawMessage, bool, error)
}

// Package binds a controller factory to the host lifecycle hooks.
type Package struct {
	name    string
	factory Factory
	store   StateStore
	logger  *slog.Logger

	mu         sync.Mutex
	controller Controller
}

// NewPackage creates an inactive package. store may be nil.
func NewPackage(name string, factory Factory, store StateStore, logger *slog.Logger) *Package {
	if logger == nil {
		logger = slog.Default()
	}
	return &Package{
		name:    name,
		factory: factory,
		store:   store,
		logger:  logger.With(slog.String("package", name)),
	}
}

// Name returns the package name.
func (p *Package) Name() string { return p.name }

// Active reports whether the package has a live controller.
func (p *Package) Active() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.controller != nil
}

// Controller returns the live controller, or nil when inactive.
func (p *Package) Controller() Controller {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.controller
}

// Activate creates the controller from stored state. Activating an active
// package does nothing.
func (p *Package) Activate(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.controller != nil {
		return nil
	}
	var state json.RawMessage
	if p.store != nil {
		saved, ok, err := p.store.Load(p.name)
		if err != nil {
			return fmt.Errorf("load state for %s: %w", p.name, err)
		}
		if ok {
			state = saved
		}
	}
	controller, err := p.factory(ctx, state)
	if err != nil {
		return fmt.Errorf("activate %s: %w", p.name, err)
	}
	p.controller = controller
	p.logger.Info("package activated", slog.Bool("restored", state != nil))
	return nil
}

// Serialize returns the controller's current state as JSON.
func (p *Package) Serialize() (json.RawMessage, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.serializeLocked()
}

func (p *Package) serializeLocked() (json.RawMessage, error) {
	if p.controller == nil {
		return nil, fmt.Errorf("serialize %s: %w", p.name, ErrNotActive)
	}
	state, err := p.controller.Serialize()
	if err != nil {
		return nil, fmt.Errorf("serialize %s: %w", p.name, err)
	}
	return json.Marshal(state)
}

// Deactivate stores the serialized state and disposes the controller.
// Deactivating an inactive package does nothing. The controller is disposed
// even when saving state fails.
func (p *Package) Deactivate(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.controller == nil {
		return nil
	}
	var saveErr error
	if p.store != nil {
		state, err := p.serializeLocked()
		if err == nil {
			err = p.store.Save(p.name, state)
		}
		if err != nil {
			saveErr = fmt.Errorf("save state for %s: %w", p.name, err)
			p.logger.Warn("state not saved", slog.String("error", err.Error()))
		}
	}
	disposeErr := p.controller.Dispose()
	p.controller = nil
	p.logger.Info("package deactivated")
	return errors.Join(saveErr, disposeErr)
}
