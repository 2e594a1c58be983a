package sparql_test

import (
	"testing"

	"github.com/cayleygraph/quad"
	"github.com/stretchr/testify/require"

	"github.com/niklasl/oxrq/rdf"
	"github.com/niklasl/oxrq/sparql"
)

func apply(t *testing.T, ds *rdf.Dataset, text string) {
	t.Helper()
	u, err := sparql.ParseUpdate(text, "")
	require.NoError(t, err)
	require.NoError(t, u.Apply(ds))
}

func TestInsertData(t *testing.T) {
	ds := dataset(t, `<a> <b> <c> .`)
	apply(t, ds, `INSERT DATA { <d> <e> <f> }`)
	require.Equal(t, 2, ds.Size())
	require.Len(t, ds.Match(quad.IRI("d"), quad.IRI("e"), quad.IRI("f"), nil), 1)
}

func TestInsertDataIntoGraph(t *testing.T) {
	ds := rdf.NewDataset()
	apply(t, ds, `INSERT DATA { GRAPH <http://g> { <a> <b> <c> } }`)
	require.Len(t, ds.Match(nil, nil, nil, quad.IRI("http://g")), 1)
	require.Empty(t, ds.Match(nil, nil, nil, nil))
}

func TestDeleteData(t *testing.T) {
	ds := dataset(t, `
<a> <b> <c> .
<d> <e> <f> .
`)
	apply(t, ds, `DELETE DATA { <a> <b> <c> }`)
	require.Equal(t, 1, ds.Size())
	require.Empty(t, ds.Match(quad.IRI("a"), nil, nil, nil))
}

func TestDeleteInsertWhere(t *testing.T) {
	ds := dataset(t, `
<a> <status> "old" .
<b> <status> "old" .
`)
	apply(t, ds, `DELETE { ?s <status> "old" } INSERT { ?s <status> "new" } WHERE { ?s <status> "old" }`)
	require.Empty(t, ds.Match(nil, nil, quad.String("old"), nil))
	require.Len(t, ds.Match(nil, nil, quad.String("new"), nil), 2)
}

func TestDeleteWhere(t *testing.T) {
	ds := dataset(t, `
<a> <p> <x> .
<b> <p> <y> .
<a> <q> <z> .
`)
	apply(t, ds, `DELETE WHERE { <a> ?p ?o }`)
	require.Equal(t, 1, ds.Size())
	require.Len(t, ds.Match(quad.IRI("b"), nil, nil, nil), 1)
}

func TestInsertWhereIntoGraph(t *testing.T) {
	ds := dataset(t, `<a> <name> "A" .`)
	apply(t, ds, `INSERT { GRAPH <http://copy> { ?s <name> ?n } } WHERE { ?s <name> ?n }`)
	require.Len(t, ds.Match(nil, nil, nil, quad.IRI("http://copy")), 1)
}

func TestUpdatesMatchDefaultGraphOnly(t *testing.T) {
	ds := dataset(t, `<http://g> { <a> <name> "A" . }`)
	apply(t, ds, `INSERT { ?s <copied> "yes" } WHERE { ?s <name> ?n }`)
	// The named graph is not part of the update's default graph.
	require.Empty(t, ds.Match(nil, quad.IRI("copied"), nil, nil))
}

func TestWithGraph(t *testing.T) {
	ds := dataset(t, `<http://g> { <a> <name> "A" . }`)
	apply(t, ds, `WITH <http://g> DELETE { ?s <name> ?n } INSERT { ?s <name> "B" } WHERE { ?s <name> ?n }`)
	got := ds.Match(quad.IRI("a"), quad.IRI("name"), nil, quad.IRI("http://g"))
	require.Len(t, got, 1)
	require.Equal(t, quad.String("B"), got[0].Object)
}

func TestClear(t *testing.T) {
	ds := dataset(t, `
<a> <b> <c> .
<http://g> { <d> <e> <f> . }
`)
	apply(t, ds, `CLEAR GRAPH <http://g>`)
	require.Equal(t, 1, ds.Size())
	apply(t, ds, `CLEAR DEFAULT`)
	require.Equal(t, 0, ds.Size())
}

func TestClearAll(t *testing.T) {
	ds := dataset(t, `
<a> <b> <c> .
<http://g> { <d> <e> <f> . }
`)
	apply(t, ds, `CLEAR ALL`)
	require.Equal(t, 0, ds.Size())
}

func TestUpdateSequence(t *testing.T) {
	ds := rdf.NewDataset()
	apply(t, ds, `INSERT DATA { <a> <b> <c> } ;
DELETE DATA { <a> <b> <c> } ;
INSERT DATA { <d> <e> <f> }`)
	require.Equal(t, 1, ds.Size())
	require.Len(t, ds.Match(quad.IRI("d"), nil, nil, nil), 1)
}

func TestInsertDataRejectsVariables(t *testing.T) {
	_, err := sparql.ParseUpdate(`INSERT DATA { ?s <b> <c> }`, "")
	require.Error(t, err)
}

func TestUpdateParseErrors(t *testing.T) {
	_, err := sparql.ParseUpdate(`SELECT ?s WHERE { ?s ?p ?o }`, "")
	require.Error(t, err)

	_, err = sparql.ParseUpdate(``, "")
	require.Error(t, err)
}
