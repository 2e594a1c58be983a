package rdfxml

import (
	"bytes"
	"strings"
	"testing"

	"github.com/cayleygraph/quad"
	"github.com/stretchr/testify/require"
)

func writeAll(t *testing.T, w *Writer, quads []quad.Quad) {
	t.Helper()
	for _, q := range quads {
		require.NoError(t, w.WriteQuad(q))
	}
	require.NoError(t, w.Close())
}

func TestWriterGroupsSubjects(t *testing.T) {
	var buf bytes.Buffer
	w := NewWriter(&buf)
	writeAll(t, w, []quad.Quad{
		{Subject: quad.IRI("http://e/s"), Predicate: quad.IRI("http://e/ns#p1"), Object: quad.IRI("http://e/a")},
		{Subject: quad.IRI("http://e/s"), Predicate: quad.IRI("http://e/ns#p2"), Object: quad.String("x")},
		{Subject: quad.IRI("http://e/t"), Predicate: quad.IRI("http://e/ns#p1"), Object: quad.BNode("n1")},
	})
	want := `<?xml version="1.0" encoding="UTF-8"?>
<rdf:RDF
  xmlns:ns1="http://e/ns#"
  xmlns:rdf="http://www.w3.org/1999/02/22-rdf-syntax-ns#">
  <rdf:Description rdf:about="http://e/s">
    <ns1:p1 rdf:resource="http://e/a"/>
    <ns1:p2>x</ns1:p2>
  </rdf:Description>
  <rdf:Description rdf:about="http://e/t">
    <ns1:p1 rdf:nodeID="n1"/>
  </rdf:Description>
</rdf:RDF>
`
	require.Equal(t, want, buf.String())
}

func TestWriterUsesPrefixHints(t *testing.T) {
	var buf bytes.Buffer
	w := NewWriter(&buf)
	w.SetPrefixes(map[string]string{
		"ex":     "http://e/ns#",
		"unused": "http://e/unused#",
	})
	writeAll(t, w, []quad.Quad{
		{Subject: quad.IRI("http://e/s"), Predicate: quad.IRI("http://e/ns#p"), Object: quad.String("x")},
	})
	got := buf.String()
	require.Contains(t, got, `xmlns:ex="http://e/ns#"`)
	require.Contains(t, got, "<ex:p>x</ex:p>")
	require.NotContains(t, got, "unused")
}

func TestWriterLiteralForms(t *testing.T) {
	var buf bytes.Buffer
	w := NewWriter(&buf)
	writeAll(t, w, []quad.Quad{
		{Subject: quad.IRI("http://e/s"), Predicate: quad.IRI("http://e/ns#a"), Object: quad.LangString{Value: "hej", Lang: "sv"}},
		{Subject: quad.IRI("http://e/s"), Predicate: quad.IRI("http://e/ns#b"), Object: quad.TypedString{Value: "5", Type: quad.IRI(nsXSD + "integer")}},
		{Subject: quad.IRI("http://e/s"), Predicate: quad.IRI("http://e/ns#c"), Object: quad.String("a < b & c")},
	})
	got := buf.String()
	require.Contains(t, got, `xml:lang="sv">hej<`)
	require.Contains(t, got, `rdf:datatype="http://www.w3.org/2001/XMLSchema#integer">5<`)
	require.Contains(t, got, "a &lt; b &amp; c")
}

func TestWriterRoundTrip(t *testing.T) {
	quads := []quad.Quad{
		{Subject: quad.IRI("http://e/s"), Predicate: quad.IRI("http://e/ns#p"), Object: quad.IRI("http://e/o")},
		{Subject: quad.IRI("http://e/s"), Predicate: quad.IRI("http://e/ns#q"), Object: quad.LangString{Value: "hej", Lang: "sv"}},
		{Subject: quad.BNode("b1"), Predicate: quad.IRI("http://e/ns#p"), Object: quad.String("x")},
	}
	var buf bytes.Buffer
	w := NewWriter(&buf)
	writeAll(t, w, quads)
	got := readAll(t, NewReader(strings.NewReader(buf.String())))
	require.Equal(t, quads, got)
}

func TestWriterRejectsIncompleteQuad(t *testing.T) {
	w := NewWriter(&bytes.Buffer{})
	err := w.WriteQuad(quad.Quad{Subject: quad.IRI("s")})
	require.Error(t, err)
}

func TestSplitIRI(t *testing.T) {
	ns, local, err := splitIRI("http://e/ns#name")
	require.NoError(t, err)
	require.Equal(t, "http://e/ns#", ns)
	require.Equal(t, "name", local)

	ns, local, err = splitIRI("http://e/ns/name")
	require.NoError(t, err)
	require.Equal(t, "http://e/ns/", ns)
	require.Equal(t, "name", local)

	ns, local, err = splitIRI("urn:x:name")
	require.NoError(t, err)
	require.Equal(t, "urn:x:", ns)
	require.Equal(t, "name", local)

	_, _, err = splitIRI("abc")
	require.Error(t, err)
}
