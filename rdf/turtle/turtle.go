// Package turtle implements reading and writing of the RDF 1.1 Turtle
// and TriG syntaxes, registered into the quad format registry.
//
// The reader keeps track of @prefix/@base directives and exposes them
// after parsing, so loaders can carry prefix bindings from the data
// over to query text.
package turtle

import (
	"io"

	"github.com/cayleygraph/quad"
)

func init() {
	quad.RegisterFormat(quad.Format{
		Name:   "turtle",
		Ext:    []string{".ttl"},
		Mime:   []string{"text/turtle"},
		Reader: func(r io.Reader) quad.ReadCloser { return NewReader(r) },
		Writer: func(w io.Writer) quad.WriteCloser { return NewWriter(w) },
	})
	quad.RegisterFormat(quad.Format{
		Name:   "trig",
		Ext:    []string{".trig"},
		Mime:   []string{"application/trig"},
		Reader: func(r io.Reader) quad.ReadCloser { return NewTriGReader(r) },
		Writer: func(w io.Writer) quad.WriteCloser { return NewTriGWriter(w) },
	})
}

const (
	nsRDF = "http://www.w3.org/1999/02/22-rdf-syntax-ns#"
	nsXSD = "http://www.w3.org/2001/XMLSchema#"

	iriType  = quad.IRI(nsRDF + "type")
	iriFirst = quad.IRI(nsRDF + "first")
	iriRest  = quad.IRI(nsRDF + "rest")
	iriNil   = quad.IRI(nsRDF + "nil")
)
