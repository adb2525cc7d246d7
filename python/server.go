// Package python runs jedi-backed Python language services in external
// interpreter processes.
package python

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/lexcodex/langbridge/rpc"
)

const (
	// DefaultExecutable is the interpreter used when Options.PythonPath is empty.
	DefaultExecutable = "python"

	serviceName = "JediService"
)

// Options describe how a JediServer launches its interpreter.
type Options struct {
	// PythonPath is the interpreter executable.
	PythonPath string
	// ServerPath is the jediserver.py entry point. Its directory becomes the working directory.
	ServerPath string
	// LibPath is exported as PYTHONPATH so the vendored jedi is importable.
	LibPath string
	// Paths are extra module search paths forwarded with -p.
	Paths []string

	Logger *slog.Logger

	// MakerFactory overrides how the process maker is built from the descriptor.
	MakerFactory func(rpc.ProcessDescriptor) rpc.ProcessMaker
}

// JediServer is the client side of one jediserver.py process.
type JediServer struct {
	src        string
	descriptor rpc.ProcessDescriptor
	process    *rpc.RPCProcess
}

// NewJediServer prepares, but does not spawn, a server for src.
func NewJediServer(src string, opts Options, registry *rpc.RegistryHandle) *JediServer {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	descriptor := Descriptor(src, opts)
	maker := descriptor.Maker(logger)
	if opts.MakerFactory != nil {
		maker = opts.MakerFactory(descriptor)
	}
	// The name namespaces log lines for this source file.
	name := "JediServer-" + filepath.Base(src)
	return &JediServer{
		src:        src,
		descriptor: descriptor,
		process:    rpc.NewRPCProcess(name, registry, maker, rpc.WithLogger(logger)),
	}
}

// Descriptor builds the process command line for src.
func Descriptor(src string, opts Options) rpc.ProcessDescriptor {
	python := opts.PythonPath
	if python == "" {
		python = DefaultExecutable
	}
	args := []string{opts.ServerPath, "-s", src}
	if len(opts.Paths) > 0 {
		args = append(args, "-p")
		args = append(args, opts.Paths...)
	}
	env := map[string]string{}
	if opts.LibPath != "" {
		env["PYTHONPATH"] = opts.LibPath
	}
	return rpc.NewProcessDescriptor(python, args, filepath.Dir(opts.ServerPath), env)
}

// Name returns the diagnostic name of the server.
func (s *JediServer) Name() string { return s.process.Name() }

// Descriptor returns the command line the server spawns.
func (s *JediServer) Descriptor() rpc.ProcessDescriptor { return s.descriptor }

// GetService returns the typed JediService proxy, spawning the process on first use.
func (s *JediServer) GetService(ctx context.Context) (*JediService, error) {
	if s.process.IsDisposed() {
		return nil, fmt.Errorf("get service called on disposed %s: %w", s.process.Name(), rpc.ErrDisposed)
	}
	proxy, err := s.process.GetService(ctx, serviceName)
	if err != nil {
		return nil, err
	}
	return &JediService{proxy: proxy}, nil
}

// IsDisposed reports whether Dispose was called.
func (s *JediServer) IsDisposed() bool { return s.process.IsDisposed() }

// Dispose kills the interpreter. It is safe to call more than once.
func (s *JediServer) Dispose() { s.process.Dispose() }
