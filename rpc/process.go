package rpc

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sourcegraph/jsonrpc2"
)

// disconnectTimeout bounds how long Dispose waits for the reader to see the
// killed process exit.
const disconnectTimeout = 5 * time.Second

// State is the lifecycle position of an RPCProcess.
type State int

const (
	// StateConstructed means no process is running. The next accessor spawns one.
	StateConstructed State = iota

	// StateSpawned means the process is running and the connection is live.
	StateSpawned

	// StateDisposed is terminal. Every accessor fails with ErrDisposed.
	StateDisposed
)

func (s State) String() string {
	names := []string{"constructed", "spawned", "disposed"}
	if int(s) < len(names) {
		return names[s]
	}
	return "unknown"
}

// Option configures an RPCProcess.
type Option func(*RPCProcess)

// WithLogger sets the logger used for lifecycle events.
func WithLogger(logger *slog.Logger) Option {
	return func(p *RPCProcess) {
		if logger != nil {
			p.logger = logger
		}
	}
}

// RPCProcess owns one external process and brokers JSON-RPC calls to the
// services it hosts. The process is spawned on first use, not at construction.
type RPCProcess struct {
	name     string
	registry *RegistryHandle
	maker    ProcessMaker
	logger   *slog.Logger

	mu       sync.Mutex
	state    State
	proc     Process
	conn     *jsonrpc2.Conn
	session  string
	services map[string]*ServiceProxy
}

// NewRPCProcess creates a wrapper named name. maker is not invoked here.
func NewRPCProcess(name string, registry *RegistryHandle, maker ProcessMaker, opts ...Option) *RPCProcess {
	p := &RPCProcess{
		name:     name,
		registry: registry,
		maker:    maker,
		logger:   slog.Default(),
		state:    StateConstructed,
		services: make(map[string]*ServiceProxy),
	}
	for _, opt := range opts {
		opt(p)
	}
	p.logger = p.logger.With(slog.String("client", name))
	return p
}

// Name returns the diagnostic name given at construction.
func (p *RPCProcess) Name() string { return p.name }

// State returns the current lifecycle state.
func (p *RPCProcess) State() State {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}

// IsDisposed reports whether Dispose has been called.
func (p *RPCProcess) IsDisposed() bool {
	return p.State() == StateDisposed
}

// GetService returns a proxy for the named service, spawning the process if
// it is not running yet. Unknown services are rejected without a spawn.
func (p *RPCProcess) GetService(ctx context.Context, name string) (*ServiceProxy, error) {
	if p.IsDisposed() {
		return nil, fmt.Errorf("%s: get service %s: %w", p.name, name, ErrDisposed)
	}
	registry, err := p.registry.Get()
	if err != nil {
		return nil, err
	}
	def, ok := registry.Service(name)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownService, name)
	}
	if _, err := p.acquire(ctx); err != nil {
		return nil, err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.state == StateDisposed {
		return nil, fmt.Errorf("%s: get service %s: %w", p.name, name, ErrDisposed)
	}
	if proxy, ok := p.services[name]; ok {
		return proxy, nil
	}
	proxy := &ServiceProxy{process: p, def: def}
	p.services[name] = proxy
	return proxy, nil
}

// acquire is the single guarded entry point for state transitions. It
// returns a live connection, spawning the process from StateConstructed.
func (p *RPCProcess) acquire(ctx context.Context) (*jsonrpc2.Conn, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	switch p.state {
	case StateDisposed:
		return nil, fmt.Errorf("%s: %w", p.name, ErrDisposed)
	case StateSpawned:
		return p.conn, nil
	}

	// Registry errors are configuration defects and are surfaced before any spawn.
	if _, err := p.registry.Get(); err != nil {
		return nil, err
	}

	proc, err := p.maker(ctx)
	recordSpawn(err)
	if err != nil {
		p.logger.Warn("spawn failed", slog.String("error", err.Error()))
		return nil, fmt.Errorf("%s: spawn: %w", p.name, err)
	}

	session := uuid.NewString()
	stream := jsonrpc2.NewBufferedStream(proc, jsonrpc2.VSCodeObjectCodec{})
	conn := jsonrpc2.NewConn(context.Background(), stream, p.notificationHandler())

	p.proc = proc
	p.conn = conn
	p.session = session
	p.state = StateSpawned

	p.logger.Info("service process spawned",
		slog.String("session", session),
		slog.Int("pid", proc.Pid()),
	)

	go p.watch(conn, proc, session)
	return conn, nil
}

// watch returns the wrapper to StateConstructed when the process exits on
// its own, so the next call respawns it.
func (p *RPCProcess) watch(conn *jsonrpc2.Conn, proc Process, session string) {
	<-conn.DisconnectNotify()

	p.mu.Lock()
	if p.state != StateSpawned || p.conn != conn {
		p.mu.Unlock()
		return
	}
	p.state = StateConstructed
	p.conn = nil
	p.proc = nil
	p.mu.Unlock()

	_ = proc.Kill()
	err := proc.Wait()
	attrs := []any{slog.String("session", session), slog.Int("pid", proc.Pid())}
	if err != nil {
		attrs = append(attrs, slog.String("error", err.Error()))
	}
	p.logger.Warn("service process exited unexpectedly", attrs...)
}

func (p *RPCProcess) notificationHandler() jsonrpc2.Handler {
	return jsonrpc2.HandlerWithError(func(ctx context.Context, conn *jsonrpc2.Conn, req *jsonrpc2.Request) (interface{}, error) {
		if !req.Notif {
			return nil, &jsonrpc2.Error{Code: jsonrpc2.CodeMethodNotFound, Message: "client does not serve requests"}
		}
		p.logger.Debug("service notification", slog.String("method", req.Method))
		return nil, nil
	})
}

// call performs one remote call through the guarded entry point.
func (p *RPCProcess) call(ctx context.Context, method string, params, result interface{}) error {
	conn, err := p.acquire(ctx)
	if err != nil {
		return err
	}
	return conn.Call(ctx, method, params, result)
}

// Dispose terminates the process, if any, and moves to StateDisposed.
// Outstanding calls are abandoned. Calling Dispose again has no effect.
func (p *RPCProcess) Dispose() {
	p.mu.Lock()
	if p.state == StateDisposed {
		p.mu.Unlock()
		return
	}
	prev := p.state
	conn, proc, session := p.conn, p.proc, p.session
	p.state = StateDisposed
	p.conn = nil
	p.proc = nil
	p.services = map[string]*ServiceProxy{}
	p.mu.Unlock()

	if prev != StateSpawned {
		p.logger.Debug("disposed before spawn")
		return
	}
	// The reader goroutine must observe the exit and close the connection
	// itself. Closing it first races with responses already buffered.
	if proc != nil {
		_ = proc.Kill()
		_ = proc.Close()
	}
	if conn != nil {
		select {
		case <-conn.DisconnectNotify():
		case <-time.After(disconnectTimeout):
			p.logger.Warn("connection did not disconnect after kill", slog.String("session", session))
		}
		if err := conn.Close(); err != nil && !errors.Is(err, jsonrpc2.ErrClosed) {
			p.logger.Debug("close connection", slog.String("error", err.Error()))
		}
	}
	if proc != nil {
		_ = proc.Wait()
	}
	p.logger.Info("service process disposed", slog.String("session", session))
}
