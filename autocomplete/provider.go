// Package autocomplete turns editor completion requests into jedi calls and
// jedi completions into editor suggestions.
package autocomplete

import (
	"context"
	"log/slog"
	"regexp"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.lsp.dev/protocol"

	"github.com/lexcodex/langbridge/python"
)

var (
	triggerCompletionRegex = regexp.MustCompile(`([\. ]|[a-zA-Z_][a-zA-Z0-9_]*)$`)
	validEmptySuffix       = regexp.MustCompile(`(\.|\()$`)
)

var requestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
	Namespace: "langbridge",
	Subsystem: "autocomplete",
	Name:      "request_duration_seconds",
	Help:      "Python autocomplete request latency in seconds",
	Buckets:   []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
}, []string{"status"})

// CompletionSource fetches raw completions for a position in a file.
type CompletionSource interface {
	GetCompletions(ctx context.Context, src, contents string, line, column int) ([]python.Completion, error)
}

// Request is an editor completion request.
type Request struct {
	File     string
	Contents string
	Line     int
	Column   int
	// Prefix is the text the editor considers the completion prefix.
	Prefix string
	// WordPrefix is the word before the cursor, consulted when Prefix is empty.
	WordPrefix        string
	ActivatedManually bool
}

// Suggestion is one editor completion entry.
type Suggestion struct {
	DisplayText string                      `json:"displayText"`
	Snippet     string                      `json:"snippet"`
	Type        string                      `json:"type"`
	Kind        protocol.CompletionItemKind `json:"kind"`
	Description string                      `json:"description"`
}

// Status separates a genuine answer from a degraded one.
type Status int

const (
	// StatusOK means the suggestions are the real answer, possibly empty.
	StatusOK Status = iota
	// StatusDegraded means the remote call failed and the empty result stands in for it.
	StatusDegraded
)

func (s Status) String() string {
	if s == StatusDegraded {
		return "degraded"
	}
	return "ok"
}

// Result is the outcome of a suggestion request. Err is set only when
// Status is StatusDegraded.
type Result struct {
	Status      Status
	Suggestions []Suggestion
	Err         error
}

// Settings mirror the user-facing autocomplete preferences.
type Settings struct {
	// AutocompleteArguments inserts call arguments into the snippet.
	AutocompleteArguments bool `json:"autocompleteArguments" yaml:"autocomplete_arguments"`
	// IncludeOptionalArguments also inserts defaulted and star arguments.
	IncludeOptionalArguments bool `json:"includeOptionalArguments" yaml:"include_optional_arguments"`
}

// Provider answers completion requests. It never returns an error: failures
// become StatusDegraded results.
type Provider struct {
	source   CompletionSource
	settings func() Settings
	logger   *slog.Logger
}

// NewProvider creates a provider. settings is read on every request so
// preference changes apply immediately.
func NewProvider(source CompletionSource, settings func() Settings, logger *slog.Logger) *Provider {
	if logger == nil {
		logger = slog.Default()
	}
	if settings == nil {
		settings = func() Settings { return Settings{} }
	}
	return &Provider{source: source, settings: settings, logger: logger}
}

// ShouldRequest reports whether req is worth a remote call.
func ShouldRequest(req Request) bool {
	if !triggerCompletionRegex.MatchString(req.Prefix) {
		return false
	}
	if !req.ActivatedManually && req.Prefix == "" {
		return validEmptySuffix.MatchString(req.WordPrefix)
	}
	return true
}

// GetSuggestions returns suggestions for req.
func (p *Provider) GetSuggestions(ctx context.Context, req Request) Result {
	start := time.Now()
	result := p.getSuggestions(ctx, req)
	requestDuration.WithLabelValues(result.Status.String()).Observe(time.Since(start).Seconds())
	return result
}

func (p *Provider) getSuggestions(ctx context.Context, req Request) Result {
	if !ShouldRequest(req) {
		return Result{Status: StatusOK, Suggestions: []Suggestion{}}
	}

	completions, err := p.source.GetCompletions(ctx, req.File, req.Contents, req.Line, req.Column)
	if err != nil {
		p.logger.Debug("completion request failed",
			slog.String("file", req.File),
			slog.Int("line", req.Line),
			slog.Int("column", req.Column),
			slog.String("error", err.Error()),
		)
		return Result{Status: StatusDegraded, Suggestions: []Suggestion{}, Err: err}
	}
	if completions == nil {
		return Result{Status: StatusOK, Suggestions: []Suggestion{}}
	}

	settings := p.settings()
	suggestions := make([]Suggestion, 0, len(completions))
	for _, completion := range completions {
		snippet := completion.Text
		if settings.AutocompleteArguments {
			snippet = GetText(completion, settings.IncludeOptionalArguments, true)
		}
		tag := TypeTag(completion.Type)
		suggestions = append(suggestions, Suggestion{
			// The display text always shows optional arguments.
			DisplayText: GetText(completion, true, false),
			Snippet:     snippet,
			Type:        tag,
			Kind:        Kind(tag),
			Description: completion.Description,
		})
	}
	return Result{Status: StatusOK, Suggestions: suggestions}
}
