package rdf

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/cayleygraph/quad"
)

var (
	ErrUnknownFormat    = errors.New("unknown format")
	ErrMissingExtension = errors.New("file has no extension; set the format explicitly")
)

// dataset-capable serializations, keyed by registry name. Everything
// else holds a single graph of triples.
var datasetFormats = map[string]bool{
	"trig":   true,
	"nquads": true,
	"jsonld": true,
}

// FormatByToken looks a format up by registry name first, then by
// treating the token as a file extension, so "ttl" and "turtle" both
// resolve.
func FormatByToken(token string) *quad.Format {
	if f := quad.FormatByName(token); f != nil {
		return f
	}
	return quad.FormatByExt("." + strings.TrimPrefix(token, "."))
}

// ResolveFormat resolves an RDF serialization for a source. An explicit
// name takes precedence; otherwise the path's extension decides, with a
// trailing ".gz" stripped first.
func ResolveFormat(name, path string) (*quad.Format, error) {
	if name != "" {
		if f := FormatByToken(name); f != nil {
			return f, nil
		}
		return nil, fmt.Errorf("%w: %q", ErrUnknownFormat, name)
	}
	ext := filepath.Ext(strings.TrimSuffix(path, ".gz"))
	if ext == "" {
		return nil, fmt.Errorf("%w: %q", ErrMissingExtension, path)
	}
	if f := quad.FormatByExt(ext); f != nil {
		return f, nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownFormat, ext)
}

// SupportsDataset reports whether the format named by token can carry
// multiple named graphs. The token matters, not just the resolved
// format: ".nt" resolves to the N-Quads codec but must stay triples.
func SupportsDataset(token string) bool {
	switch strings.TrimPrefix(token, ".") {
	case "nt", "ntriples", "n3":
		return false
	}
	f := FormatByToken(token)
	if f == nil {
		return false
	}
	return datasetFormats[f.Name]
}

// PrefixReader is implemented by format readers that track prefix and
// base directives while parsing.
type PrefixReader interface {
	Prefixes() map[string]string
	Base() string
}
