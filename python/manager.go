package python

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/lexcodex/langbridge/rpc"
)

// ServerManager hands out one JediServer per source file.
type ServerManager struct {
	opts     Options
	registry *rpc.RegistryHandle
	logger   *slog.Logger

	mu       sync.Mutex
	servers  map[string]*JediServer
	disposed bool
}

// NewServerManager creates a manager. Servers are created on demand.
func NewServerManager(opts Options, registry *rpc.RegistryHandle) *ServerManager {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &ServerManager{
		opts:     opts,
		registry: registry,
		logger:   logger,
		servers:  make(map[string]*JediServer),
	}
}

// Server returns the server for src, creating it if needed.
func (m *ServerManager) Server(src string) (*JediServer, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.disposed {
		return nil, fmt.Errorf("jedi server manager: %w", rpc.ErrDisposed)
	}
	if server, ok := m.servers[src]; ok && !server.IsDisposed() {
		return server, nil
	}
	server := NewJediServer(src, m.opts, m.registry)
	m.servers[src] = server
	m.logger.Debug("jedi server created", slog.String("src", src), slog.String("name", server.Name()))
	return server, nil
}

func (m *ServerManager) service(ctx context.Context, src string) (*JediService, error) {
	server, err := m.Server(src)
	if err != nil {
		return nil, err
	}
	return server.GetService(ctx)
}

// GetCompletions fetches completions from the server owning src.
func (m *ServerManager) GetCompletions(ctx context.Context, src, contents string, line, column int) ([]Completion, error) {
	svc, err := m.service(ctx, src)
	if err != nil {
		return nil, err
	}
	return svc.GetCompletions(ctx, src, contents, line, column)
}

// GetDefinitions fetches definitions from the server owning src.
func (m *ServerManager) GetDefinitions(ctx context.Context, src, contents string, line, column int) ([]Definition, error) {
	svc, err := m.service(ctx, src)
	if err != nil {
		return nil, err
	}
	return svc.GetDefinitions(ctx, src, contents, line, column)
}

// GetReferences fetches references from the server owning src.
func (m *ServerManager) GetReferences(ctx context.Context, src, contents string, line, column int) ([]Reference, error) {
	svc, err := m.service(ctx, src)
	if err != nil {
		return nil, err
	}
	return svc.GetReferences(ctx, src, contents, line, column)
}

// Len reports the number of servers currently tracked.
func (m *ServerManager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.servers)
}

// Dispose kills every server. Later calls fail with rpc.ErrDisposed.
func (m *ServerManager) Dispose() {
	m.mu.Lock()
	if m.disposed {
		m.mu.Unlock()
		return
	}
	m.disposed = true
	servers := m.servers
	m.servers = map[string]*JediServer{}
	m.mu.Unlock()

	for _, server := range servers {
		server.Dispose()
	}
}
