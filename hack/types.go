package hack

import "go.lsp.dev/protocol"

// Completion is one Hack autocomplete entry.
type Completion struct {
	Name string `json:"name"`
	Type string `json:"type"`
}

// DiagnosticPart is one element of an hh_client error chain. Lines and
// columns are 1-based, End is inclusive.
type DiagnosticPart struct {
	Path  string `json:"path"`
	Descr string `json:"descr"`
	Code  int    `json:"code"`
	Line  int    `json:"line"`
	Start int    `json:"start"`
	End   int    `json:"end"`
}

// Diagnostic is an hh_client error converted to editor coordinates.
type Diagnostic struct {
	Path     string                      `json:"path"`
	Message  string                      `json:"message"`
	Code     int                         `json:"code"`
	Severity protocol.DiagnosticSeverity `json:"severity"`
	Range    protocol.Range              `json:"range"`
	// Trace holds the secondary parts of the error chain.
	Trace []DiagnosticPart `json:"trace,omitempty"`
}

// TypedRegion is a run of source text with its type-checker coverage colour.
type TypedRegion struct {
	Color string `json:"color"`
	Text  string `json:"text"`
}

// TypeCoverageRegion marks a range that is not fully type checked. Line and
// columns are 1-based, End is inclusive.
type TypeCoverageRegion struct {
	Type  string `json:"type"`
	Line  int    `json:"line"`
	Start int    `json:"start"`
	End   int    `json:"end"`
}

// SearchPosition is a definition location.
type SearchPosition struct {
	Path           string `json:"path"`
	Line           int    `json:"line"`
	Column         int    `json:"column"`
	Name           string `json:"name"`
	Length         int    `json:"length"`
	Scope          string `json:"scope"`
	AdditionalInfo string `json:"additionalInfo"`
}

// Reference is one usage of a symbol.
type Reference struct {
	Name      string `json:"name"`
	FileName  string `json:"filename"`
	Line      int    `json:"line"`
	CharStart int    `json:"char_start"`
	CharEnd   int    `json:"char_end"`
}

// References groups the usages found by FindReferences.
type References struct {
	BaseURI    string      `json:"baseUri"`
	SymbolName string      `json:"symbolName"`
	References []Reference `json:"references"`
}

// ConvertDiagnostic turns an hh_client error chain into a Diagnostic. The
// first part is primary. It returns false for an empty chain.
func ConvertDiagnostic(parts []DiagnosticPart) (Diagnostic, bool) {
	if len(parts) == 0 {
		return Diagnostic{}, false
	}
	primary := parts[0]
	d := Diagnostic{
		Path:     primary.Path,
		Message:  primary.Descr,
		Code:     primary.Code,
		Severity: protocol.DiagnosticSeverityError,
		Range: protocol.Range{
			Start: protocol.Position{Line: zeroBased(primary.Line), Character: zeroBased(primary.Start)},
			End:   protocol.Position{Line: zeroBased(primary.Line), Character: uint32(max(primary.End, 0))},
		},
	}
	if len(parts) > 1 {
		d.Trace = append([]DiagnosticPart(nil), parts[1:]...)
	}
	return d, true
}

func zeroBased(n int) uint32 {
	if n <= 0 {
		return 0
	}
	return uint32(n - 1)
}

// CoverageRegions walks typed regions and returns the ranges coloured
// "unchecked" or "partial". Regions spanning newlines are split per line.
func CoverageRegions(regions []TypedRegion) []TypeCoverageRegion {
	var out []TypeCoverageRegion
	line, column := 1, 1
	for _, region := range regions {
		uncovered := region.Color == "unchecked" || region.Color == "partial"
		start := -1
		flush := func(end int) {
			if uncovered && start >= 0 {
				out = append(out, TypeCoverageRegion{Type: region.Color, Line: line, Start: start, End: end})
			}
			start = -1
		}
		for _, r := range region.Text {
			if r == '\n' {
				flush(column - 1)
				line++
				column = 1
				continue
			}
			if start < 0 && r != ' ' && r != '\t' {
				start = column
			}
			column++
		}
		flush(column - 1)
	}
	return out
}
