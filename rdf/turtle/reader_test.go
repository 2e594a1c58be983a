package turtle

import (
	"io"
	"strings"
	"testing"

	"github.com/cayleygraph/quad"
	"github.com/stretchr/testify/require"
)

func readAll(t *testing.T, r quad.Reader) []quad.Quad {
	t.Helper()
	var out []quad.Quad
	for {
		q, err := r.ReadQuad()
		if err == io.EOF {
			return out
		}
		require.NoError(t, err)
		out = append(out, q)
	}
}

func TestReaderBasicTriple(t *testing.T) {
	quads := readAll(t, NewReader(strings.NewReader(`<a> <b> <c> .`)))
	require.Equal(t, []quad.Quad{{
		Subject:   quad.IRI("a"),
		Predicate: quad.IRI("b"),
		Object:    quad.IRI("c"),
	}}, quads)
}

func TestReaderPrefixAndBase(t *testing.T) {
	src := `
@base <http://example.org/> .
@prefix ex: <http://example.org/ns#> .
<thing> a ex:Thing .
`
	r := NewReader(strings.NewReader(src))
	quads := readAll(t, r)
	require.Equal(t, []quad.Quad{{
		Subject:   quad.IRI("http://example.org/thing"),
		Predicate: quad.IRI("http://www.w3.org/1999/02/22-rdf-syntax-ns#type"),
		Object:    quad.IRI("http://example.org/ns#Thing"),
	}}, quads)
	require.Equal(t, "http://example.org/", r.Base())
	require.Equal(t, map[string]string{"ex": "http://example.org/ns#"}, r.Prefixes())
}

func TestReaderSparqlStyleDirectives(t *testing.T) {
	src := `
BASE <http://example.org/>
PREFIX ex: <http://example.org/ns#>
<thing> ex:name "Thing" .
`
	r := NewReader(strings.NewReader(src))
	quads := readAll(t, r)
	require.Len(t, quads, 1)
	require.Equal(t, quad.IRI("http://example.org/thing"), quads[0].Subject)
	require.Equal(t, quad.String("Thing"), quads[0].Object)
}

func TestReaderSetBase(t *testing.T) {
	r := NewReader(strings.NewReader(`<a> <b> <c> .`))
	r.SetBase("http://example.org/dir/")
	quads := readAll(t, r)
	require.Equal(t, quad.IRI("http://example.org/dir/a"), quads[0].Subject)
}

func TestReaderLiterals(t *testing.T) {
	src := `@prefix xsd: <http://www.w3.org/2001/XMLSchema#> .
<s> <p> "plain", "tagged"@en, "5"^^xsd:int, 5, 4.2, 1.0e3, true .`
	quads := readAll(t, NewReader(strings.NewReader(src)))
	var objs []quad.Value
	for _, q := range quads {
		objs = append(objs, q.Object)
	}
	require.Equal(t, []quad.Value{
		quad.String("plain"),
		quad.LangString{Value: "tagged", Lang: "en"},
		quad.TypedString{Value: "5", Type: quad.IRI(nsXSD + "int")},
		quad.TypedString{Value: "5", Type: quad.IRI(nsXSD + "integer")},
		quad.TypedString{Value: "4.2", Type: quad.IRI(nsXSD + "decimal")},
		quad.TypedString{Value: "1.0e3", Type: quad.IRI(nsXSD + "double")},
		quad.TypedString{Value: "true", Type: quad.IRI(nsXSD + "boolean")},
	}, objs)
}

func TestReaderStringTypeFolds(t *testing.T) {
	src := `<s> <p> "x"^^<http://www.w3.org/2001/XMLSchema#string> .`
	quads := readAll(t, NewReader(strings.NewReader(src)))
	require.Equal(t, quad.String("x"), quads[0].Object)
}

func TestReaderStringEscapes(t *testing.T) {
	src := `<s> <p> "line\nbreak\t\"quoted\"", """long
string""" .`
	quads := readAll(t, NewReader(strings.NewReader(src)))
	require.Equal(t, quad.String("line\nbreak\t\"quoted\""), quads[0].Object)
	require.Equal(t, quad.String("long\nstring"), quads[1].Object)
}

func TestReaderPredicateObjectLists(t *testing.T) {
	src := `<s> <p1> <a>, <b> ; <p2> <c> .`
	quads := readAll(t, NewReader(strings.NewReader(src)))
	require.Len(t, quads, 3)
	require.Equal(t, quad.IRI("p1"), quads[0].Predicate)
	require.Equal(t, quad.IRI("p1"), quads[1].Predicate)
	require.Equal(t, quad.IRI("p2"), quads[2].Predicate)
}

func TestReaderBlankNodes(t *testing.T) {
	src := `_:a <knows> [ <name> "inner" ] .`
	quads := readAll(t, NewReader(strings.NewReader(src)))
	require.Len(t, quads, 2)
	// The anonymous node's own triple is emitted first, then the
	// enclosing one referring to it.
	require.Equal(t, quad.String("inner"), quads[0].Object)
	require.Equal(t, quad.BNode("a"), quads[1].Subject)
	inner, ok := quads[0].Subject.(quad.BNode)
	require.True(t, ok)
	require.Equal(t, quad.Value(inner), quads[1].Object)
	require.NotEqual(t, quad.BNode("a"), inner)
}

func TestReaderCollection(t *testing.T) {
	src := `<s> <p> (<a> <b>) .`
	quads := readAll(t, NewReader(strings.NewReader(src)))
	first := quad.IRI(nsRDF + "first")
	var elems []quad.Value
	for _, q := range quads {
		if q.Predicate == first {
			elems = append(elems, q.Object)
		}
	}
	require.Equal(t, []quad.Value{quad.IRI("a"), quad.IRI("b")}, elems)
}

func TestReaderEmptyCollectionIsNil(t *testing.T) {
	src := `<s> <p> () .`
	quads := readAll(t, NewReader(strings.NewReader(src)))
	require.Equal(t, []quad.Quad{{
		Subject:   quad.IRI("s"),
		Predicate: quad.IRI("p"),
		Object:    quad.IRI(nsRDF + "nil"),
	}}, quads)
}

func TestReaderComments(t *testing.T) {
	src := `# leading comment
<a> <b> <c> . # trailing`
	quads := readAll(t, NewReader(strings.NewReader(src)))
	require.Len(t, quads, 1)
}

func TestReaderParseError(t *testing.T) {
	r := NewReader(strings.NewReader(`<a> <b> .`))
	_, err := r.ReadQuad()
	require.Error(t, err)
	var pe *ParseError
	require.ErrorAs(t, err, &pe)
	require.Equal(t, 1, pe.Line)
}

func TestTriGGraphBlocks(t *testing.T) {
	src := `
<d1> <p> <o> .
<http://g1> { <s1> <p> <o1> . }
GRAPH <http://g2> { <s2> <p> <o2> }
`
	quads := readAll(t, NewTriGReader(strings.NewReader(src)))
	require.Len(t, quads, 3)
	require.Nil(t, quads[0].Label)
	require.Equal(t, quad.IRI("http://g1"), quads[1].Label)
	require.Equal(t, quad.IRI("http://g2"), quads[2].Label)
}

func TestTriGRejectedInPlainTurtle(t *testing.T) {
	r := NewReader(strings.NewReader(`<http://g> { <s> <p> <o> . }`))
	_, err := r.ReadQuad()
	require.Error(t, err)
}

func TestReaderBooleanPrefixNotConfused(t *testing.T) {
	src := `@prefix true: <http://example.org/t#> .
<s> <p> true:x .`
	quads := readAll(t, NewReader(strings.NewReader(src)))
	require.Equal(t, quad.IRI("http://example.org/t#x"), quads[0].Object)
}
