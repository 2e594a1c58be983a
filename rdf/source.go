package rdf

import (
	"strings"

	"github.com/cayleygraph/quad"
)

// FileGraphIRI derives the named graph identifier for a data file from
// its path. Absolute paths become file:// IRIs, relative paths stay
// relative file: references.
func FileGraphIRI(path string) quad.IRI {
	var iri string
	if strings.HasPrefix(path, "/") {
		iri = "file://" + path
	} else {
		iri = "file:" + path
	}
	return quad.IRI(strings.ReplaceAll(iri, " ", "%20"))
}

// SourceReport is what one parsed source contributes to the shared
// parse state: the base IRI it declared, if any, and its prefix
// bindings.
type SourceReport struct {
	Base     string
	Prefixes map[string]string
}

// ParseState accumulates base IRI and prefix bindings across sources.
// The zero value is ready to use.
type ParseState struct {
	// BaseOverride pins the base IRI regardless of discovered values.
	BaseOverride string

	base     string
	prefixes map[string]string
	order    []string
}

// Merge folds one source's report into the state. Earlier bindings win:
// a prefix label or base IRI already present is kept, later reports of
// the same label are dropped even when the namespace differs.
func (s *ParseState) Merge(r SourceReport) {
	if s.base == "" {
		s.base = r.Base
	}
	for label, ns := range r.Prefixes {
		if s.prefixes == nil {
			s.prefixes = make(map[string]string)
		}
		if _, ok := s.prefixes[label]; !ok {
			s.prefixes[label] = ns
			s.order = append(s.order, label)
		}
	}
}

// Base returns the effective base IRI: the override when set, otherwise
// the first discovered value, otherwise empty.
func (s *ParseState) Base() string {
	if s.BaseOverride != "" {
		return s.BaseOverride
	}
	return s.base
}

// Prefixes returns the accumulated bindings. The map is shared; callers
// must not mutate it.
func (s *ParseState) Prefixes() map[string]string {
	return s.prefixes
}

// PrefixLines renders the accumulated bindings as PREFIX declarations,
// one per line in first-seen order, for prepending to a query body.
func (s *ParseState) PrefixLines() string {
	var b strings.Builder
	for _, label := range s.order {
		b.WriteString("PREFIX ")
		b.WriteString(label)
		b.WriteString(": <")
		b.WriteString(s.prefixes[label])
		b.WriteString(">\n")
	}
	return b.String()
}
