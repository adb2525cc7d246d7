package rpc

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sourcegraph/jsonrpc2"
)

// ServiceProxy marshals calls to one named service hosted by an RPCProcess.
type ServiceProxy struct {
	process *RPCProcess
	def     *ServiceDefinition
}

// Name returns the service name.
func (s *ServiceProxy) Name() string { return s.def.Name }

// Definition returns the registry definition backing the proxy.
func (s *ServiceProxy) Definition() *ServiceDefinition { return s.def }

// Call invokes method with named params and decodes the response into result.
// Params keys must be a subset of the declared parameter names.
func (s *ServiceProxy) Call(ctx context.Context, method string, params map[string]any, result any) (err error) {
	m, ok := s.def.Method(method)
	if !ok {
		return fmt.Errorf("%w: %s.%s", ErrUnknownMethod, s.def.Name, method)
	}
	if err := checkParams(m, params); err != nil {
		return fmt.Errorf("%s.%s: %w", s.def.Name, method, err)
	}
	if params == nil {
		params = map[string]any{}
	}

	ctx, span := startCallSpan(ctx, s.process.name, s.def.Name, method)
	start := time.Now()
	defer func() {
		recordCall(s.def.Name, method, callStatus(err), time.Since(start))
		endCallSpan(span, err)
	}()

	err = s.process.call(ctx, s.def.Name+"/"+method, params, result)
	var rpcErr *jsonrpc2.Error
	if errors.As(err, &rpcErr) {
		return &RemoteError{Service: s.def.Name, Method: method, Code: rpcErr.Code, Message: rpcErr.Message}
	}
	return err
}

func checkParams(m MethodDefinition, params map[string]any) error {
	declared := make(map[string]bool, len(m.Params))
	for _, name := range m.Params {
		declared[name] = true
	}
	for name := range params {
		if !declared[name] {
			return fmt.Errorf("%w: unexpected param %q", ErrInvalidParams, name)
		}
	}
	return nil
}

func callStatus(err error) string {
	var remote *RemoteError
	switch {
	case err == nil:
		return "success"
	case errors.Is(err, ErrDisposed):
		return "disposed"
	case errors.As(err, &remote):
		return "remote_error"
	default:
		return "transport_error"
	}
}
