// Package hack exposes the Hack language controller used by editor features.
package hack

import (
	"context"
	"errors"
	"sync"

	"go.lsp.dev/protocol"
)

// ErrHackUnavailable is returned by operations that need hh_client when it is not installed.
var ErrHackUnavailable = errors.New("hack is not available")

// Language is the controller that serves Hack language requests.
type Language interface {
	Dispose()

	GetCompletions(ctx context.Context, file, contents string, offset int) ([]Completion, error)

	FormatSource(ctx context.Context, contents string, start, end int) (string, error)

	HighlightSource(ctx context.Context, path, contents string, line, column int) ([]protocol.Range, error)

	GetDiagnostics(ctx context.Context, path, contents string) ([]Diagnostic, error)

	GetTypeCoverage(ctx context.Context, file string) ([]TypeCoverageRegion, error)

	GetDefinition(ctx context.Context, file, contents string, line, column int, lineText string) ([]SearchPosition, error)

	// GetType returns the type of expression. The bool is false when no type is known.
	GetType(ctx context.Context, path, contents, expression string, line, column int) (string, bool, error)

	// FindReferences returns nil when the symbol has no references.
	FindReferences(ctx context.Context, file, contents string, line, column int) (*References, error)

	BasePath() string

	IsHackAvailable() bool
}

// NewLanguage returns a Language for the project rooted at basePath. If
// service has a Dispose method, disposing the Language disposes it too.
func NewLanguage(hhAvailable bool, basePath, initialFile string, service Service) Language {
	return &localLanguage{
		hhAvailable: hhAvailable,
		basePath:    basePath,
		initialFile: initialFile,
		service:     service,
	}
}

type localLanguage struct {
	hhAvailable bool
	basePath    string
	initialFile string
	service     Service

	disposeOnce sync.Once
}

// Dispose releases the service when it owns a process.
func (l *localLanguage) Dispose() {
	l.disposeOnce.Do(func() {
		if d, ok := l.service.(interface{ Dispose() }); ok {
			d.Dispose()
		}
	})
}

func (l *localLanguage) BasePath() string { return l.basePath }

func (l *localLanguage) IsHackAvailable() bool { return l.hhAvailable }

func (l *localLanguage) GetCompletions(ctx context.Context, file, contents string, offset int) ([]Completion, error) {
	if !l.hhAvailable {
		return []Completion{}, nil
	}
	completions, err := l.service.GetCompletions(ctx, file, contents, offset)
	if err != nil {
		return nil, err
	}
	return nonNil(completions), nil
}

func (l *localLanguage) FormatSource(ctx context.Context, contents string, start, end int) (string, error) {
	if !l.hhAvailable {
		return "", ErrHackUnavailable
	}
	return l.service.FormatSource(ctx, l.basePath, contents, start, end)
}

func (l *localLanguage) HighlightSource(ctx context.Context, path, contents string, line, column int) ([]protocol.Range, error) {
	if !l.hhAvailable {
		return []protocol.Range{}, nil
	}
	ranges, err := l.service.GetIdentifierHighlights(ctx, path, contents, line, column)
	if err != nil {
		return nil, err
	}
	return nonNil(ranges), nil
}

func (l *localLanguage) GetDiagnostics(ctx context.Context, path, contents string) ([]Diagnostic, error) {
	if !l.hhAvailable {
		return []Diagnostic{}, nil
	}
	chains, err := l.service.GetDiagnostics(ctx, path, contents)
	if err != nil {
		return nil, err
	}
	diagnostics := make([]Diagnostic, 0, len(chains))
	for _, chain := range chains {
		if d, ok := ConvertDiagnostic(chain); ok {
			diagnostics = append(diagnostics, d)
		}
	}
	return diagnostics, nil
}

func (l *localLanguage) GetTypeCoverage(ctx context.Context, file string) ([]TypeCoverageRegion, error) {
	if !l.hhAvailable {
		return []TypeCoverageRegion{}, nil
	}
	regions, err := l.service.GetTypedRegions(ctx, file)
	if err != nil {
		return nil, err
	}
	return nonNil(CoverageRegions(regions)), nil
}

func (l *localLanguage) GetDefinition(ctx context.Context, file, contents string, line, column int, lineText string) ([]SearchPosition, error) {
	if !l.hhAvailable {
		return []SearchPosition{}, nil
	}
	positions, err := l.service.GetDefinition(ctx, file, contents, line, column, lineText)
	if err != nil {
		return nil, err
	}
	return nonNil(positions), nil
}

func (l *localLanguage) GetType(ctx context.Context, path, contents, expression string, line, column int) (string, bool, error) {
	if !l.hhAvailable {
		return "", false, ErrHackUnavailable
	}
	typ, err := l.service.GetTypeAtPos(ctx, path, contents, expression, line, column)
	if err != nil {
		return "", false, err
	}
	if typ == nil {
		return "", false, nil
	}
	return *typ, true, nil
}

func (l *localLanguage) FindReferences(ctx context.Context, file, contents string, line, column int) (*References, error) {
	if !l.hhAvailable {
		return nil, nil
	}
	return l.service.FindReferences(ctx, file, contents, line, column)
}

func nonNil[T any](items []T) []T {
	if items == nil {
		return []T{}
	}
	return items
}
