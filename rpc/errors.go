package rpc

import (
	"errors"
	"fmt"

	"github.com/sourcegraph/jsonrpc2"
)

var (
	// ErrDisposed is returned by every accessor once the client has been disposed.
	ErrDisposed = errors.New("operation on disposed client")

	// ErrConfiguration marks malformed service definitions.
	ErrConfiguration = errors.New("invalid service configuration")

	// ErrUnknownService indicates the registry has no definition for the service.
	ErrUnknownService = errors.New("unknown service")

	// ErrUnknownMethod indicates the service definition has no such method.
	ErrUnknownMethod = errors.New("unknown method")

	// ErrInvalidParams indicates call parameters do not match the method definition.
	ErrInvalidParams = errors.New("invalid params")

	// ErrExecutableNotFound indicates the process executable could not be resolved.
	ErrExecutableNotFound = errors.New("executable not found")
)

// ConfigError describes a problem in a service-definition file.
type ConfigError struct {
	Path   string
	Reason string
	Err    error
}

func (e *ConfigError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("service config %s: %s: %v", e.Path, e.Reason, e.Err)
	}
	return fmt.Sprintf("service config %s: %s", e.Path, e.Reason)
}

// Unwrap lets errors.Is match ErrConfiguration as well as the parse cause.
func (e *ConfigError) Unwrap() []error {
	if e.Err != nil {
		return []error{ErrConfiguration, e.Err}
	}
	return []error{ErrConfiguration}
}

// RemoteError carries a JSON-RPC error returned by the external process.
type RemoteError struct {
	Service string
	Method  string
	Code    int64
	Message string
}

func (e *RemoteError) Error() string {
	return fmt.Sprintf("%s/%s: remote error %d: %s", e.Service, e.Method, e.Code, e.Message)
}

// IsMethodNotFound reports whether the remote side did not recognise the method.
func (e *RemoteError) IsMethodNotFound() bool {
	return e.Code == jsonrpc2.CodeMethodNotFound
}
