package autocomplete

import (
	"fmt"
	"strings"

	"github.com/lexcodex/langbridge/python"
)

// IsOptionalParam reports whether a python parameter can be omitted: keyword
// arguments with defaults and star arguments (*, *args, **kwargs).
func IsOptionalParam(param string) bool {
	return strings.Contains(param, "=") || strings.Contains(param, "*")
}

// GetText renders a completion as a call signature when it has params, and
// as its bare text otherwise. createPlaceholders emits snippet tab stops
// numbered from 1.
func GetText(completion python.Completion, includeOptionalArgs, createPlaceholders bool) string {
	if completion.Params == nil {
		return completion.Text
	}
	params := make([]string, 0, len(completion.Params))
	for _, param := range completion.Params {
		if !includeOptionalArgs && IsOptionalParam(param) {
			continue
		}
		params = append(params, param)
	}
	texts := make([]string, len(params))
	for i, param := range params {
		if createPlaceholders {
			texts[i] = fmt.Sprintf("${%d:%s}", i+1, param)
		} else {
			texts[i] = param
		}
	}
	return completion.Text + "(" + strings.Join(texts, ", ") + ")"
}
