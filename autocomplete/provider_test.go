package autocomplete

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
	"go.lsp.dev/protocol"

	"github.com/lexcodex/langbridge/python"
)

type stubSource struct {
	completions []python.Completion
	err         error
	calls       int
}

func (s *stubSource) GetCompletions(ctx context.Context, src, contents string, line, column int) ([]python.Completion, error) {
	s.calls++
	return s.completions, s.err
}

func fixedSettings(s Settings) func() Settings {
	return func() Settings { return s }
}

func TestProviderSkipsPrefixFailingTrigger(t *testing.T) {
	source := &stubSource{completions: []python.Completion{{Text: "x"}}}
	p := NewProvider(source, nil, nil)

	for _, prefix := range []string{"1", "foo(", "a-", ")"} {
		result := p.GetSuggestions(context.Background(), Request{Prefix: prefix, ActivatedManually: true})
		require.Equal(t, StatusOK, result.Status, prefix)
		require.Empty(t, result.Suggestions, prefix)
	}
	require.Equal(t, 0, source.calls)
}

func TestProviderEmptyPrefixRequiresValidSuffix(t *testing.T) {
	source := &stubSource{completions: []python.Completion{{Text: "x"}}}
	p := NewProvider(source, nil, nil)
	ctx := context.Background()

	// The trigger regex cannot match an empty prefix, so even valid suffixes are skipped.
	result := p.GetSuggestions(ctx, Request{Prefix: "", WordPrefix: "os."})
	require.Empty(t, result.Suggestions)
	require.Equal(t, 0, source.calls)

	require.True(t, ShouldRequest(Request{Prefix: ".", WordPrefix: "os."}))
	require.True(t, ShouldRequest(Request{Prefix: " ", WordPrefix: ""}))
	require.True(t, ShouldRequest(Request{Prefix: "pa"}))
}

func TestProviderDegradesOnRemoteFailure(t *testing.T) {
	boom := errors.New("jedi crashed")
	source := &stubSource{err: boom}
	p := NewProvider(source, nil, nil)

	result := p.GetSuggestions(context.Background(), Request{Prefix: "os"})
	require.Equal(t, StatusDegraded, result.Status)
	require.Empty(t, result.Suggestions)
	require.ErrorIs(t, result.Err, boom)
	require.Equal(t, 1, source.calls)
}

func TestProviderNilResultIsEmptyOK(t *testing.T) {
	p := NewProvider(&stubSource{}, nil, nil)
	result := p.GetSuggestions(context.Background(), Request{Prefix: "os"})
	require.Equal(t, StatusOK, result.Status)
	require.Empty(t, result.Suggestions)
	require.NoError(t, result.Err)
}

func TestProviderBuildsSuggestions(t *testing.T) {
	source := &stubSource{completions: []python.Completion{
		{Text: "f", Description: "def f(a, b=1, *args)", Type: "function", Params: []string{"a", "b=1", "*args"}},
		{Text: "os", Description: "module os", Type: "module"},
	}}
	ctx := context.Background()
	req := Request{File: "a.py", Prefix: "f"}

	plain := NewProvider(source, fixedSettings(Settings{}), nil).GetSuggestions(ctx, req)
	require.Equal(t, StatusOK, plain.Status)
	require.Equal(t, Suggestion{
		DisplayText: "f(a, b=1, *args)",
		Snippet:     "f",
		Type:        "function",
		Kind:        protocol.CompletionItemKindFunction,
		Description: "def f(a, b=1, *args)",
	}, plain.Suggestions[0])
	require.Equal(t, "import", plain.Suggestions[1].Type)
	require.Equal(t, "os", plain.Suggestions[1].DisplayText)

	args := NewProvider(source, fixedSettings(Settings{AutocompleteArguments: true}), nil).GetSuggestions(ctx, req)
	require.Equal(t, "f(${1:a})", args.Suggestions[0].Snippet)
	require.Equal(t, "f(a, b=1, *args)", args.Suggestions[0].DisplayText)

	all := NewProvider(source, fixedSettings(Settings{AutocompleteArguments: true, IncludeOptionalArguments: true}), nil).GetSuggestions(ctx, req)
	require.Equal(t, "f(${1:a}, ${2:b=1}, ${3:*args})", all.Suggestions[0].Snippet)
}
