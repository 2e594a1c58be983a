package turtle

import (
	"bytes"
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
		{Subject: quad.IRI("s"), Predicate: quad.IRI("p1"), Object: quad.IRI("a")},
		{Subject: quad.IRI("s"), Predicate: quad.IRI("p1"), Object: quad.IRI("b")},
		{Subject: quad.IRI("s"), Predicate: quad.IRI("p2"), Object: quad.String("x")},
		{Subject: quad.IRI("t"), Predicate: quad.IRI("p1"), Object: quad.IRI("a")},
	})
	want := `<s> <p1> <a>, <b> ;
    <p2> "x" .
<t> <p1> <a> .
`
	require.Equal(t, want, buf.String())
}

func TestWriterPrefixHeader(t *testing.T) {
	var buf bytes.Buffer
	w := NewWriter(&buf)
	w.SetPrefixes(map[string]string{
		"ex":     "http://example.org/ns#",
		"unused": "http://example.org/unused#",
	})
	writeAll(t, w, []quad.Quad{
		{
			Subject:   quad.IRI("http://example.org/ns#s"),
			Predicate: quad.IRI("http://www.w3.org/1999/02/22-rdf-syntax-ns#type"),
			Object:    quad.IRI("http://example.org/ns#Thing"),
		},
	})
	want := `@prefix ex: <http://example.org/ns#> .

ex:s a ex:Thing .
`
	require.Equal(t, want, buf.String())
}

func TestTriGWriterGraphBlocks(t *testing.T) {
	var buf bytes.Buffer
	w := NewTriGWriter(&buf)
	writeAll(t, w, []quad.Quad{
		{Subject: quad.IRI("s"), Predicate: quad.IRI("p"), Object: quad.IRI("o")},
		{Subject: quad.IRI("s1"), Predicate: quad.IRI("p"), Object: quad.IRI("o1"), Label: quad.IRI("g1")},
		{Subject: quad.IRI("s2"), Predicate: quad.IRI("p"), Object: quad.IRI("o2"), Label: quad.IRI("g2")},
	})
	want := `<s> <p> <o> .

<g1> {
  <s1> <p> <o1> .
}

<g2> {
  <s2> <p> <o2> .
}
`
	require.Equal(t, want, buf.String())
}

func TestWriterLiteralForms(t *testing.T) {
	var buf bytes.Buffer
	w := NewWriter(&buf)
	writeAll(t, w, []quad.Quad{
		{Subject: quad.IRI("s"), Predicate: quad.IRI("p"), Object: quad.TypedString{Value: "5", Type: quad.IRI(nsXSD + "integer")}},
		{Subject: quad.IRI("s"), Predicate: quad.IRI("p"), Object: quad.TypedString{Value: "4.2", Type: quad.IRI(nsXSD + "decimal")}},
		{Subject: quad.IRI("s"), Predicate: quad.IRI("p"), Object: quad.TypedString{Value: "true", Type: quad.IRI(nsXSD + "boolean")}},
		{Subject: quad.IRI("s"), Predicate: quad.IRI("p"), Object: quad.TypedString{Value: "x", Type: quad.IRI("http://example.org/dt")}},
		{Subject: quad.IRI("s"), Predicate: quad.IRI("p"), Object: quad.LangString{Value: "hej", Lang: "sv"}},
	})
	want := `<s> <p> 5, 4.2, true, "x"^^<http://example.org/dt>, "hej"@sv .
`
	require.Equal(t, want, buf.String())
}

func TestWriterEscapesStrings(t *testing.T) {
	require.Equal(t, `"a\"b\nc"`, FormatTerm(quad.String("a\"b\nc")))
}

func TestWriterRejectsIncompleteQuad(t *testing.T) {
	w := NewWriter(&bytes.Buffer{})
	require.Error(t, w.WriteQuad(quad.Quad{Subject: quad.IRI("s")}))
}

func TestRoundTrip(t *testing.T) {
	src := `@prefix ex: <http://example.org/ns#> .

ex:s a ex:Thing ;
    ex:name "Thing" .
`
	quads := readAll(t, NewReader(bytes.NewReader([]byte(src))))
	var buf bytes.Buffer
	w := NewWriter(&buf)
	w.SetPrefixes(map[string]string{"ex": "http://example.org/ns#"})
	writeAll(t, w, quads)
	require.Equal(t, src, buf.String())
}
