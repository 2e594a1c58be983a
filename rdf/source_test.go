package rdf

import (
	"io"
	"testing"

	"github.com/cayleygraph/quad"
	"github.com/stretchr/testify/require"
)

func TestFileGraphIRI(t *testing.T) {
	require.Equal(t, quad.IRI("file:///tmp/data.ttl"), FileGraphIRI("/tmp/data.ttl"))
	require.Equal(t, quad.IRI("file:data.ttl"), FileGraphIRI("data.ttl"))
	require.Equal(t, quad.IRI("file:my%20data.ttl"), FileGraphIRI("my data.ttl"))
}

func TestParseStateFirstWins(t *testing.T) {
	var s ParseState
	s.Merge(SourceReport{
		Base:     "http://one/",
		Prefixes: map[string]string{"ex": "http://one/ns#"},
	})
	s.Merge(SourceReport{
		Base:     "http://two/",
		Prefixes: map[string]string{"ex": "http://two/ns#", "other": "http://two/o#"},
	})
	require.Equal(t, "http://one/", s.Base())
	require.Equal(t, "http://one/ns#", s.Prefixes()["ex"])
	require.Equal(t, "http://two/o#", s.Prefixes()["other"])
}

func TestParseStateBaseOverride(t *testing.T) {
	s := ParseState{BaseOverride: "http://fixed/"}
	s.Merge(SourceReport{Base: "http://discovered/"})
	require.Equal(t, "http://fixed/", s.Base())
}

func TestParseStatePrefixLines(t *testing.T) {
	var s ParseState
	s.Merge(SourceReport{Prefixes: map[string]string{"ex": "http://example.org/ns#"}})
	require.Equal(t, "PREFIX ex: <http://example.org/ns#>\n", s.PrefixLines())
}

func TestResolveIRI(t *testing.T) {
	require.Equal(t, "http://x/a/c", ResolveIRI("http://x/a/b", "c"))
	require.Equal(t, "http://x/a/b#f", ResolveIRI("http://x/a/b", "#f"))
	require.Equal(t, "http://y/", ResolveIRI("http://x/a/b", "http://y/"))
	require.Equal(t, "rel", ResolveIRI("", "rel"))
}

func TestRenameBlankNodes(t *testing.T) {
	in := []quad.Quad{
		{Subject: quad.BNode("a"), Predicate: quad.IRI("p"), Object: quad.BNode("b")},
		{Subject: quad.BNode("a"), Predicate: quad.IRI("p"), Object: quad.IRI("o")},
	}
	r := RenameBlankNodes(quad.NewReader(in))
	q1, err := r.ReadQuad()
	require.NoError(t, err)
	q2, err := r.ReadQuad()
	require.NoError(t, err)
	_, err = r.ReadQuad()
	require.Equal(t, io.EOF, err)

	// Same label maps to the same fresh node within one source.
	require.Equal(t, q1.Subject, q2.Subject)
	require.NotEqual(t, quad.BNode("a"), q1.Subject)
	require.NotEqual(t, q1.Subject, q1.Object)

	// A second source gets different names for the same labels.
	r2 := RenameBlankNodes(quad.NewReader(in[:1]))
	q3, err := r2.ReadQuad()
	require.NoError(t, err)
	require.NotEqual(t, q1.Subject, q3.Subject)
}
