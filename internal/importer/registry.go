package importer

import (
	"strings"
)

// Registry holds parsers by format.
type Registry struct {
	parsers  map[Format]Parser
	detector *Detector
}

// NewRegistry creates an empty parser registry.
func NewRegistry() *Registry {
	return &Registry{parsers: make(map[Format]Parser), detector: NewDetector()}
}

// Register adds a parser. Panics on duplicate format.
func (r *Registry) Register(p Parser) {
	key := p.Format()
	if _, ok := r.parsers[key]; ok {
		panic("duplicate parser format: " + string(key))
	}
	r.parsers[key] = p
}

// Get returns the parser for format, or nil.
func (r *Registry) Get(format Format) Parser {
	return r.parsers[Format(strings.ToLower(string(format)))]
}

// Formats lists the registered formats.
func (r *Registry) Formats() []Format {
	out := make([]Format, 0, len(r.parsers))
	for _, f := range []Format{FormatAmex, FormatCIBC, FormatEQBank, FormatSimplii, FormatTD, FormatOFX, FormatGeneric} {
		if _, ok := r.parsers[f]; ok {
			out = append(out, f)
		}
	}
	return out
}

// Resolution is the outcome of choosing a parser for a file.
type Resolution struct {
	Parser Parser
	// Detected is true when the format came from content detection.
	Detected bool
	// Unknown is true when an explicit hint named no parser and the
	// generic parser was substituted.
	Unknown bool
}

// Resolve picks the parser for a format hint. "auto" or "" runs detection
// over head; an unrecognized hint falls back to generic.
func (r *Registry) Resolve(hint string, head []string) Resolution {
	h := Format(strings.ToLower(strings.TrimSpace(hint)))
	if h == "" || h == FormatAuto {
		return Resolution{Parser: r.orGeneric(r.detector.Detect(head)), Detected: true}
	}
	if p := r.Get(h); p != nil {
		return Resolution{Parser: p}
	}
	return Resolution{Parser: r.orGeneric(FormatGeneric), Unknown: true}
}

func (r *Registry) orGeneric(f Format) Parser {
	if p := r.Get(f); p != nil {
		return p
	}
	if p := r.Get(FormatGeneric); p != nil {
		return p
	}
	return &GenericParser{}
}

// DefaultRegistry returns a registry with all built-in parsers.
func DefaultRegistry() *Registry {
	r := NewRegistry()
	r.Register(&AmexParser{})
	r.Register(&CIBCParser{})
	r.Register(&EQBankParser{})
	r.Register(&SimpliiParser{})
	r.Register(&TDParser{})
	r.Register(&OFXParser{})
	r.Register(&GenericParser{})
	return r
}
