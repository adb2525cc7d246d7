package python

import (
	"context"

	"github.com/lexcodex/langbridge/rpc"
)

// Completion is a single jedi completion.
type Completion struct {
	Text        string   `json:"text"`
	Description string   `json:"description"`
	Type        string   `json:"type"`
	Params      []string `json:"params,omitempty"`
}

// Definition locates the definition of the symbol under the cursor.
type Definition struct {
	Type   string `json:"type"`
	Text   string `json:"text"`
	File   string `json:"file"`
	Line   int    `json:"line"`
	Column int    `json:"column"`
}

// Reference is one usage of the symbol under the cursor.
type Reference struct {
	Type       string `json:"type"`
	Text       string `json:"text"`
	File       string `json:"file"`
	Line       int    `json:"line"`
	Column     int    `json:"column"`
	ParentName string `json:"parentName,omitempty"`
}

// JediService is the typed view of the remote JediService.
type JediService struct {
	proxy *rpc.ServiceProxy
}

func positionParams(src, contents string, line, column int) map[string]any {
	return map[string]any{
		"src":      src,
		"contents": contents,
		"line":     line,
		"column":   column,
	}
}

// GetCompletions returns completions at the zero-based line and column.
func (s *JediService) GetCompletions(ctx context.Context, src, contents string, line, column int) ([]Completion, error) {
	var out []Completion
	if err := s.proxy.Call(ctx, "get_completions", positionParams(src, contents, line, column), &out); err != nil {
		return nil, err
	}
	return out, nil
}

// GetDefinitions returns where the symbol at the position is defined.
func (s *JediService) GetDefinitions(ctx context.Context, src, contents string, line, column int) ([]Definition, error) {
	var out []Definition
	if err := s.proxy.Call(ctx, "get_definitions", positionParams(src, contents, line, column), &out); err != nil {
		return nil, err
	}
	return out, nil
}

// GetReferences returns the usages of the symbol at the position.
func (s *JediService) GetReferences(ctx context.Context, src, contents string, line, column int) ([]Reference, error) {
	var out []Reference
	if err := s.proxy.Call(ctx, "get_references", positionParams(src, contents, line, column), &out); err != nil {
		return nil, err
	}
	return out, nil
}
