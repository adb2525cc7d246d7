// Package rpctest provides an in-process fake service process for tests.
package rpctest

import (
	"context"
	"encoding/json"
	"net"
	"sync"

	"github.com/sourcegraph/jsonrpc2"

	"github.com/lexcodex/langbridge/rpc"
)

// HandlerFunc answers one remote call. method is the wire name, e.g. "JediService/get_completions".
type HandlerFunc func(ctx context.Context, method string, params json.RawMessage) (any, error)

// Server is a fake external process speaking JSON-RPC over net.Pipe.
type Server struct {
	handler HandlerFunc

	mu     sync.Mutex
	spawns int
	calls  map[string]int
	params map[string][]json.RawMessage
	conns  []*jsonrpc2.Conn
	procs  []*pipeProcess
	failed error
}

// NewServer returns a fake whose calls are answered by handler.
func NewServer(handler HandlerFunc) *Server {
	return &Server{
		handler: handler,
		calls:   map[string]int{},
		params:  map[string][]json.RawMessage{},
	}
}

// FailSpawns makes every subsequent spawn return err.
func (s *Server) FailSpawns(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failed = err
}

// Maker returns a ProcessMaker that starts a fresh fake process per spawn.
func (s *Server) Maker() rpc.ProcessMaker {
	return func(ctx context.Context) (rpc.Process, error) {
		s.mu.Lock()
		defer s.mu.Unlock()
		s.spawns++
		if s.failed != nil {
			return nil, s.failed
		}
		clientEnd, serverEnd := net.Pipe()
		stream := jsonrpc2.NewBufferedStream(serverEnd, jsonrpc2.VSCodeObjectCodec{})
		conn := jsonrpc2.NewConn(context.Background(), stream, jsonrpc2.AsyncHandler(jsonrpc2.HandlerWithError(s.handle)))
		s.conns = append(s.conns, conn)
		proc := &pipeProcess{Conn: clientEnd, pid: 1000 + s.spawns, done: make(chan struct{})}
		s.procs = append(s.procs, proc)
		return proc, nil
	}
}

func (s *Server) handle(ctx context.Context, conn *jsonrpc2.Conn, req *jsonrpc2.Request) (interface{}, error) {
	var raw json.RawMessage
	if req.Params != nil {
		raw = *req.Params
	}
	s.mu.Lock()
	s.calls[req.Method]++
	s.params[req.Method] = append(s.params[req.Method], raw)
	s.mu.Unlock()
	if s.handler == nil {
		return nil, &jsonrpc2.Error{Code: jsonrpc2.CodeMethodNotFound, Message: req.Method}
	}
	return s.handler(ctx, req.Method, raw)
}

// Spawns reports how many times the maker was invoked.
func (s *Server) Spawns() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.spawns
}

// Calls reports how many requests arrived for method.
func (s *Server) Calls(method string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls[method]
}

// LastParams returns the raw params of the latest request for method.
func (s *Server) LastParams(method string) json.RawMessage {
	s.mu.Lock()
	defer s.mu.Unlock()
	all := s.params[method]
	if len(all) == 0 {
		return nil
	}
	return all[len(all)-1]
}

// Crash closes the server side of the latest process, as if it exited.
func (s *Server) Crash() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.conns) == 0 {
		return
	}
	_ = s.conns[len(s.conns)-1].Close()
}

// Killed reports whether every spawned process has been killed.
func (s *Server) Killed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, p := range s.procs {
		if !p.isKilled() {
			return false
		}
	}
	return true
}

type pipeProcess struct {
	net.Conn
	pid int

	once sync.Once
	done chan struct{}
}

func (p *pipeProcess) Pid() int { return p.pid }

func (p *pipeProcess) Kill() error {
	p.once.Do(func() {
		close(p.done)
		_ = p.Conn.Close()
	})
	return nil
}

func (p *pipeProcess) Wait() error {
	<-p.done
	return nil
}

func (p *pipeProcess) isKilled() bool {
	select {
	case <-p.done:
		return true
	default:
		return false
	}
}
