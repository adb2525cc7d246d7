package hack

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"

	"go.lsp.dev/protocol"

	"github.com/lexcodex/langbridge/rpc"
)

const serviceName = "HackService"

// Service is the set of remote Hack operations a Language delegates to.
type Service interface {
	GetCompletions(ctx context.Context, file, contents string, offset int) ([]Completion, error)
	FormatSource(ctx context.Context, basePath, contents string, start, end int) (string, error)
	GetIdentifierHighlights(ctx context.Context, file, contents string, line, column int) ([]protocol.Range, error)
	GetDiagnostics(ctx context.Context, file, contents string) ([][]DiagnosticPart, error)
	GetTypedRegions(ctx context.Context, file string) ([]TypedRegion, error)
	GetDefinition(ctx context.Context, file, contents string, line, column int, lineText string) ([]SearchPosition, error)
	GetTypeAtPos(ctx context.Context, file, contents, expression string, line, column int) (*string, error)
	FindReferences(ctx context.Context, file, contents string, line, column int) (*References, error)
}

// ServerOptions describe the Hack bridge process.
type ServerOptions struct {
	// Command is the bridge executable that serves HackService over stdio.
	Command string
	Args    []string
	// BasePath is the hack root (the directory holding .hhconfig).
	BasePath string
	Logger   *slog.Logger

	MakerFactory func(rpc.ProcessDescriptor) rpc.ProcessMaker
}

// Server owns the Hack bridge process.
type Server struct {
	process *rpc.RPCProcess
}

// NewServer prepares the bridge process for opts.BasePath without spawning it.
func NewServer(opts ServerOptions, registry *rpc.RegistryHandle) *Server {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	args := append(append([]string(nil), opts.Args...), "--root", opts.BasePath)
	descriptor := rpc.NewProcessDescriptor(opts.Command, args, opts.BasePath, nil)
	maker := descriptor.Maker(logger)
	if opts.MakerFactory != nil {
		maker = opts.MakerFactory(descriptor)
	}
	name := "HackServer-" + filepath.Base(opts.BasePath)
	return &Server{process: rpc.NewRPCProcess(name, registry, maker, rpc.WithLogger(logger))}
}

// Client returns the typed HackService client.
func (s *Server) Client(ctx context.Context) (*Client, error) {
	if s.process.IsDisposed() {
		return nil, fmt.Errorf("client called on disposed %s: %w", s.process.Name(), rpc.ErrDisposed)
	}
	proxy, err := s.process.GetService(ctx, serviceName)
	if err != nil {
		return nil, err
	}
	return &Client{proxy: proxy}, nil
}

// Lazy returns a Service that resolves the client on each call, so the
// process is spawned only when a Language first needs it. Disposing the
// returned service disposes s.
func (s *Server) Lazy() Service {
	return lazyService{server: s}
}

// IsDisposed reports whether Dispose was called.
func (s *Server) IsDisposed() bool { return s.process.IsDisposed() }

// Dispose kills the bridge process. It is safe to call more than once.
func (s *Server) Dispose() { s.process.Dispose() }

// Client is the typed view of the remote HackService.
type Client struct {
	proxy *rpc.ServiceProxy
}

// GetCompletions returns completions at a byte offset.
func (c *Client) GetCompletions(ctx context.Context, file, contents string, offset int) ([]Completion, error) {
	var out []Completion
	err := c.proxy.Call(ctx, "getCompletions", map[string]any{"file": file, "contents": contents, "offset": offset}, &out)
	return out, err
}

// FormatSource formats the byte range [start, end) of contents.
func (c *Client) FormatSource(ctx context.Context, basePath, contents string, start, end int) (string, error) {
	var out string
	err := c.proxy.Call(ctx, "formatSource", map[string]any{"basePath": basePath, "contents": contents, "start": start, "end": end}, &out)
	return out, err
}

// GetIdentifierHighlights returns the ranges of the identifier at a position.
func (c *Client) GetIdentifierHighlights(ctx context.Context, file, contents string, line, column int) ([]protocol.Range, error) {
	var out []protocol.Range
	err := c.proxy.Call(ctx, "getIdentifierHighlights", map[string]any{"file": file, "contents": contents, "line": line, "column": column}, &out)
	return out, err
}

// GetDiagnostics returns the raw hh_client error chains for file.
func (c *Client) GetDiagnostics(ctx context.Context, file, contents string) ([][]DiagnosticPart, error) {
	var out [][]DiagnosticPart
	err := c.proxy.Call(ctx, "getDiagnostics", map[string]any{"file": file, "contents": contents}, &out)
	return out, err
}

// GetTypedRegions returns file split into coverage-coloured runs.
func (c *Client) GetTypedRegions(ctx context.Context, file string) ([]TypedRegion, error) {
	var out []TypedRegion
	err := c.proxy.Call(ctx, "getTypedRegions", map[string]any{"file": file}, &out)
	return out, err
}

// GetDefinition returns the definition locations of the symbol at a position.
func (c *Client) GetDefinition(ctx context.Context, file, contents string, line, column int, lineText string) ([]SearchPosition, error) {
	var out []SearchPosition
	err := c.proxy.Call(ctx, "getDefinition", map[string]any{
		"file": file, "contents": contents, "line": line, "column": column, "lineText": lineText,
	}, &out)
	return out, err
}

// GetTypeAtPos returns the type of expression, or nil when unknown.
func (c *Client) GetTypeAtPos(ctx context.Context, file, contents, expression string, line, column int) (*string, error) {
	var out struct {
		Type *string `json:"type"`
	}
	err := c.proxy.Call(ctx, "getTypeAtPos", map[string]any{
		"file": file, "contents": contents, "expression": expression, "line": line, "column": column,
	}, &out)
	return out.Type, err
}

// FindReferences returns the usages of the symbol at a position.
func (c *Client) FindReferences(ctx context.Context, file, contents string, line, column int) (*References, error) {
	var out *References
	err := c.proxy.Call(ctx, "findReferences", map[string]any{"file": file, "contents": contents, "line": line, "column": column}, &out)
	return out, err
}

type lazyService struct {
	server *Server
}

func (l lazyService) Dispose() { l.server.Dispose() }

func (l lazyService) GetCompletions(ctx context.Context, file, contents string, offset int) ([]Completion, error) {
	c, err := l.server.Client(ctx)
	if err != nil {
		return nil, err
	}
	return c.GetCompletions(ctx, file, contents, offset)
}

func (l lazyService) FormatSource(ctx context.Context, basePath, contents string, start, end int) (string, error) {
	c, err := l.server.Client(ctx)
	if err != nil {
		return "", err
	}
	return c.FormatSource(ctx, basePath, contents, start, end)
}

func (l lazyService) GetIdentifierHighlights(ctx context.Context, file, contents string, line, column int) ([]protocol.Range, error) {
	c, err := l.server.Client(ctx)
	if err != nil {
		return nil, err
	}
	return c.GetIdentifierHighlights(ctx, file, contents, line, column)
}

func (l lazyService) GetDiagnostics(ctx context.Context, file, contents string) ([][]DiagnosticPart, error) {
	c, err := l.server.Client(ctx)
	if err != nil {
		return nil, err
	}
	return c.GetDiagnostics(ctx, file, contents)
}

func (l lazyService) GetTypedRegions(ctx context.Context, file string) ([]TypedRegion, error) {
	c, err := l.server.Client(ctx)
	if err != nil {
		return nil, err
	}
	return c.GetTypedRegions(ctx, file)
}

func (l lazyService) GetDefinition(ctx context.Context, file, contents string, line, column int, lineText string) ([]SearchPosition, error) {
	c, err := l.server.Client(ctx)
	if err != nil {
		return nil, err
	}
	return c.GetDefinition(ctx, file, contents, line, column, lineText)
}

func (l lazyService) GetTypeAtPos(ctx context.Context, file, contents, expression string, line, column int) (*string, error) {
	c, err := l.server.Client(ctx)
	if err != nil {
		return nil, err
	}
	return c.GetTypeAtPos(ctx, file, contents, expression, line, column)
}

func (l lazyService) FindReferences(ctx context.Context, file, contents string, line, column int) (*References, error) {
	c, err := l.server.Client(ctx)
	if err != nil {
		return nil, err
	}
	return c.FindReferences(ctx, file, contents, line, column)
}
