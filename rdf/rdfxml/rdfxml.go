// Package rdfxml implements reading and writing of the RDF/XML syntax,
// registered into the quad format registry.
//
// The reader handles the core of the grammar: rdf:Description and typed
// node elements, rdf:about/rdf:ID/rdf:nodeID subjects, property
// elements with rdf:resource, rdf:nodeID or literal content,
// rdf:datatype and xml:lang, property attributes, nested node elements
// and rdf:parseType="Resource". Namespace declarations on the document
// element are exposed as prefix bindings after parsing.
package rdfxml

import (
	"io"

	"github.com/cayleygraph/quad"
)

func init() {
	quad.RegisterFormat(quad.Format{
		Name:   "rdfxml",
		Ext:    []string{".rdf"},
		Mime:   []string{"application/rdf+xml"},
		Reader: func(r io.Reader) quad.ReadCloser { return NewReader(r) },
		Writer: func(w io.Writer) quad.WriteCloser { return NewWriter(w) },
	})
}

const (
	nsRDF = "http://www.w3.org/1999/02/22-rdf-syntax-ns#"
	nsXSD = "http://www.w3.org/2001/XMLSchema#"
	nsXML = "http://www.w3.org/XML/1998/namespace"
)
