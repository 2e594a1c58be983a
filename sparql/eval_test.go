package sparql_test

import (
	"io"
	"strings"
	"testing"

	"github.com/cayleygraph/quad"
	"github.com/stretchr/testify/require"

	"github.com/niklasl/oxrq/rdf"
	"github.com/niklasl/oxrq/rdf/turtle"
	"github.com/niklasl/oxrq/sparql"
)

func dataset(t *testing.T, trig string) *rdf.Dataset {
	t.Helper()
	ds := rdf.NewDataset()
	_, err := ds.LoadFrom(turtle.NewTriGReader(strings.NewReader(trig)))
	require.NoError(t, err)
	return ds
}

func solutions(t *testing.T, ds *rdf.Dataset, query string) *sparql.Solutions {
	t.Helper()
	q, err := sparql.ParseQuery(query, "")
	require.NoError(t, err)
	res, err := q.Execute(ds, true)
	require.NoError(t, err)
	sol, ok := res.(*sparql.Solutions)
	require.True(t, ok, "expected solutions, got %T", res)
	return sol
}

func rows(sol *sparql.Solutions) [][]quad.Value {
	var out [][]quad.Value
	for sol.Next() {
		row := make([]quad.Value, len(sol.Row()))
		copy(row, sol.Row())
		out = append(out, row)
	}
	return out
}

func TestSelectStar(t *testing.T) {
	ds := dataset(t, `<a> <b> <c> .`)
	sol := solutions(t, ds, `SELECT * WHERE { ?s ?p ?o }`)
	require.Equal(t, []string{"s", "p", "o"}, sol.Vars())
	require.Equal(t, [][]quad.Value{
		{quad.IRI("a"), quad.IRI("b"), quad.IRI("c")},
	}, rows(sol))
}

func TestSelectSeesNamedGraphsThroughUnion(t *testing.T) {
	ds := dataset(t, `<http://g> { <a> <b> <c> . }`)
	sol := solutions(t, ds, `SELECT ?s WHERE { ?s ?p ?o }`)
	require.Equal(t, [][]quad.Value{{quad.IRI("a")}}, rows(sol))

	// Without the union directive the named graph stays invisible.
	q, err := sparql.ParseQuery(`SELECT ?s WHERE { ?s ?p ?o }`, "")
	require.NoError(t, err)
	res, err := q.Execute(ds, false)
	require.NoError(t, err)
	require.Empty(t, rows(res.(*sparql.Solutions)))
}

func TestSelectProjectionAndJoin(t *testing.T) {
	ds := dataset(t, `
<a> <knows> <b> .
<b> <name> "B" .
`)
	sol := solutions(t, ds, `SELECT ?n WHERE { <a> <knows> ?x . ?x <name> ?n }`)
	require.Equal(t, [][]quad.Value{{quad.String("B")}}, rows(sol))
}

func TestFilterComparison(t *testing.T) {
	ds := dataset(t, `
<a> <age> 30 .
<b> <age> 7 .
`)
	sol := solutions(t, ds, `SELECT ?s WHERE { ?s <age> ?n FILTER(?n > 10) }`)
	require.Equal(t, [][]quad.Value{{quad.IRI("a")}}, rows(sol))
}

func TestFilterRegexAndStr(t *testing.T) {
	ds := dataset(t, `
<a> <name> "Alice" .
<b> <name> "Bob" .
`)
	sol := solutions(t, ds, `SELECT ?s WHERE { ?s <name> ?n FILTER regex(?n, "^ali", "i") }`)
	require.Equal(t, [][]quad.Value{{quad.IRI("a")}}, rows(sol))
}

func TestOptionalLeavesUnbound(t *testing.T) {
	ds := dataset(t, `
<a> <name> "A" .
<a> <mail> "a@x" .
<b> <name> "B" .
`)
	sol := solutions(t, ds, `SELECT ?n ?m WHERE { ?s <name> ?n OPTIONAL { ?s <mail> ?m } } ORDER BY ?n`)
	require.Equal(t, [][]quad.Value{
		{quad.String("A"), quad.String("a@x")},
		{quad.String("B"), nil},
	}, rows(sol))
}

func TestUnion(t *testing.T) {
	ds := dataset(t, `
<a> <p1> <x> .
<b> <p2> <y> .
`)
	sol := solutions(t, ds, `SELECT ?s WHERE { { ?s <p1> ?o } UNION { ?s <p2> ?o } } ORDER BY ?s`)
	require.Equal(t, [][]quad.Value{{quad.IRI("a")}, {quad.IRI("b")}}, rows(sol))
}

func TestMinus(t *testing.T) {
	ds := dataset(t, `
<a> <p> <x> .
<b> <p> <x> .
<b> <q> <y> .
`)
	sol := solutions(t, ds, `SELECT ?s WHERE { ?s <p> <x> MINUS { ?s <q> ?y } }`)
	require.Equal(t, [][]quad.Value{{quad.IRI("a")}}, rows(sol))
}

func TestBind(t *testing.T) {
	ds := dataset(t, `<a> <age> 20 .`)
	sol := solutions(t, ds, `SELECT ?next WHERE { ?s <age> ?n BIND(?n + 1 AS ?next) }`)
	require.Equal(t, [][]quad.Value{
		{quad.TypedString{Value: "21", Type: quad.IRI("http://www.w3.org/2001/XMLSchema#integer")}},
	}, rows(sol))
}

func TestDistinctOrderLimitOffset(t *testing.T) {
	ds := dataset(t, `
<s> <p> 3, 1, 2, 2 .
`)
	sol := solutions(t, ds, `SELECT DISTINCT ?o WHERE { <s> <p> ?o } ORDER BY ?o LIMIT 2 OFFSET 1`)
	got := rows(sol)
	require.Equal(t, [][]quad.Value{
		{quad.TypedString{Value: "2", Type: quad.IRI("http://www.w3.org/2001/XMLSchema#integer")}},
		{quad.TypedString{Value: "3", Type: quad.IRI("http://www.w3.org/2001/XMLSchema#integer")}},
	}, got)
}

func TestOrderByDesc(t *testing.T) {
	ds := dataset(t, `<s> <p> 1, 3, 2 .`)
	sol := solutions(t, ds, `SELECT ?o WHERE { <s> <p> ?o } ORDER BY DESC(?o)`)
	got := rows(sol)
	require.Len(t, got, 3)
	require.Equal(t, quad.TypedString{Value: "3", Type: quad.IRI("http://www.w3.org/2001/XMLSchema#integer")}, got[0][0])
}

func TestGraphVariable(t *testing.T) {
	ds := dataset(t, `
<http://g1> { <a> <p> <o> . }
<http://g2> { <b> <p> <o> . }
`)
	sol := solutions(t, ds, `SELECT ?g ?s WHERE { GRAPH ?g { ?s <p> <o> } } ORDER BY ?g`)
	require.Equal(t, [][]quad.Value{
		{quad.IRI("http://g1"), quad.IRI("a")},
		{quad.IRI("http://g2"), quad.IRI("b")},
	}, rows(sol))
}

func TestSolutionsStreamIncrementally(t *testing.T) {
	ds := dataset(t, "<a> <p> <o1> .\n<a> <p> <o2> .")
	sol := solutions(t, ds, `SELECT ?o WHERE { ?s <p> ?o }`)
	// Rows are produced on demand; Len counts what has been consumed.
	require.Equal(t, 0, sol.Len())
	require.True(t, sol.Next())
	require.Equal(t, 1, sol.Len())
	require.True(t, sol.Next())
	require.False(t, sol.Next())
	require.Equal(t, 2, sol.Len())
}

func TestAsk(t *testing.T) {
	ds := dataset(t, `<a> <b> <c> .`)

	q, err := sparql.ParseQuery(`ASK { <a> <b> <c> }`, "")
	require.NoError(t, err)
	res, err := q.Execute(ds, true)
	require.NoError(t, err)
	require.Equal(t, sparql.Boolean(true), res)

	q, err = sparql.ParseQuery(`ASK { <a> <b> <missing> }`, "")
	require.NoError(t, err)
	res, err = q.Execute(ds, true)
	require.NoError(t, err)
	require.Equal(t, sparql.Boolean(false), res)
}

func drainGraph(t *testing.T, res sparql.Result) []quad.Quad {
	t.Helper()
	g, ok := res.(*sparql.Graph)
	require.True(t, ok, "expected graph, got %T", res)
	var out []quad.Quad
	for {
		q, err := g.ReadQuad()
		if err == io.EOF {
			return out
		}
		require.NoError(t, err)
		out = append(out, q)
	}
}

func TestConstruct(t *testing.T) {
	ds := dataset(t, `<a> <name> "A" .`)
	q, err := sparql.ParseQuery(`CONSTRUCT { ?s <label> ?n } WHERE { ?s <name> ?n }`, "")
	require.NoError(t, err)
	res, err := q.Execute(ds, true)
	require.NoError(t, err)
	quads := drainGraph(t, res)
	require.Equal(t, []quad.Quad{{
		Subject:   quad.IRI("a"),
		Predicate: quad.IRI("label"),
		Object:    quad.String("A"),
	}}, quads)
}

func TestDescribe(t *testing.T) {
	ds := dataset(t, `
<a> <p> <b> .
<b> <p> <c> .
`)
	q, err := sparql.ParseQuery(`DESCRIBE <a>`, "")
	require.NoError(t, err)
	res, err := q.Execute(ds, true)
	require.NoError(t, err)
	quads := drainGraph(t, res)
	require.Equal(t, []quad.Quad{{
		Subject:   quad.IRI("a"),
		Predicate: quad.IRI("p"),
		Object:    quad.IRI("b"),
	}}, quads)
}

func TestPrefixedQuery(t *testing.T) {
	ds := dataset(t, `
@prefix ex: <http://example.org/ns#> .
ex:a ex:p ex:c .
`)
	sol := solutions(t, ds, `PREFIX ex: <http://example.org/ns#>
SELECT ?s WHERE { ?s ex:p ex:c }`)
	require.Equal(t, [][]quad.Value{{quad.IRI("http://example.org/ns#a")}}, rows(sol))
}

func TestQueryParseErrors(t *testing.T) {
	_, err := sparql.ParseQuery(`SELECT WHERE`, "")
	require.Error(t, err)

	_, err = sparql.ParseQuery(`INSERT DATA { <a> <b> <c> }`, "")
	require.Error(t, err)

	_, err = sparql.ParseQuery(`SELECT ?s WHERE { ?s ?p ?o } trailing`, "")
	require.Error(t, err)
}
