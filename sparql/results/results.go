// Package results serializes SPARQL query results (solution sequences
// and booleans) in the TSV, CSV, JSON and XML results formats.
package results

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/cayleygraph/quad"
)

var ErrUnknownFormat = errors.New("unknown query results format")

// SolutionWriter streams binding rows in one results format.
type SolutionWriter interface {
	WriteRow(row []quad.Value) error
	Close() error
}

// Format describes one query results serialization.
type Format struct {
	Name      string
	Ext       []string
	Solutions func(w io.Writer, vars []string) (SolutionWriter, error)
	Boolean   func(w io.Writer, value bool) error
}

var formats = []Format{
	{Name: "tsv", Ext: []string{".tsv"}, Solutions: newTSVWriter, Boolean: writeTextBoolean},
	{Name: "csv", Ext: []string{".csv"}, Solutions: newCSVWriter, Boolean: writeTextBoolean},
	{Name: "json", Ext: []string{".json", ".srj"}, Solutions: newJSONWriter, Boolean: writeJSONBoolean},
	{Name: "xml", Ext: []string{".xml", ".srx"}, Solutions: newXMLWriter, Boolean: writeXMLBoolean},
}

// ByToken looks a results format up by name or file extension.
func ByToken(token string) *Format {
	ext := "." + strings.TrimPrefix(token, ".")
	for i := range formats {
		f := &formats[i]
		if f.Name == token {
			return f
		}
		for _, e := range f.Ext {
			if e == ext {
				return f
			}
		}
	}
	return nil
}

// Resolve returns the format for an explicit token, or TSV when the
// token is empty.
func Resolve(token string) (*Format, error) {
	if token == "" {
		return ByToken("tsv"), nil
	}
	if f := ByToken(token); f != nil {
		return f, nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownFormat, token)
}
