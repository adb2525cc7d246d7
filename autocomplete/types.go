package autocomplete

import "go.lsp.dev/protocol"

// typeTags maps jedi completion types onto editor suggestion types.
var typeTags = map[string]string{
	"alias":     "import",
	"instance":  "variable",
	"function":  "function",
	"module":    "import",
	"class":     "class",
	"keyword":   "keyword",
	"statement": "variable",
	"import":    "import",
	"param":     "variable",
	"property":  "property",
}

var typeKinds = map[string]protocol.CompletionItemKind{
	"import":   protocol.CompletionItemKindModule,
	"variable": protocol.CompletionItemKindVariable,
	"function": protocol.CompletionItemKindFunction,
	"class":    protocol.CompletionItemKindClass,
	"keyword":  protocol.CompletionItemKindKeyword,
	"property": protocol.CompletionItemKindProperty,
}

// TypeTag returns the suggestion type for a jedi type, or "" when unknown.
func TypeTag(jediType string) string {
	return typeTags[jediType]
}

// Kind returns the LSP completion kind for a suggestion type tag.
func Kind(tag string) protocol.CompletionItemKind {
	if kind, ok := typeKinds[tag]; ok {
		return kind
	}
	return protocol.CompletionItemKindText
}
