package internal

import (
	"bytes"
	"compress/gzip"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	_ "github.com/cayleygraph/quad/nquads"

	"github.com/niklasl/oxrq/rdf"
	_ "github.com/niklasl/oxrq/rdf/rdfxml"
	_ "github.com/niklasl/oxrq/rdf/turtle"
)

func run(t *testing.T, opts Options, args []string, stdin ...string) string {
	t.Helper()
	var out bytes.Buffer
	err := Run(opts, args, strings.NewReader(strings.Join(stdin, "")), &out)
	require.NoError(t, err)
	return out.String()
}

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestRunSelect(t *testing.T) {
	got := run(t, Options{}, []string{`SELECT * WHERE { ?s ?p ?o }`}, "<a> <b> <c> .\n")
	require.Equal(t, "?s\t?p\t?o\n<a>\t<b>\t<c>\n", got)
}

func TestRunAskFalse(t *testing.T) {
	got := run(t, Options{}, []string{`ASK { <a> <b> <missing> }`}, "<a> <b> <c> .\n")
	require.Equal(t, "false\n", got)
}

func TestRunInsertDataSerializesDataset(t *testing.T) {
	got := run(t, Options{}, []string{`INSERT DATA { <d> <e> <f> }`}, "<a> <b> <c> .\n")
	require.Equal(t, "<a> <b> <c> .\n<d> <e> <f> .\n", got)
}

func TestRunConstructReplacesDataset(t *testing.T) {
	got := run(t, Options{}, []string{`CONSTRUCT { ?s <p2> ?o } WHERE { ?s <b> ?o }`}, "<a> <b> <c> .\n")
	require.Equal(t, "<a> <p2> <c> .\n", got)
	require.NotContains(t, got, "<b>")
}

func TestRunFileGoesIntoNamedGraph(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "data.ttl", "<a> <b> <c> .\n")
	got := run(t, Options{NoStdin: true}, []string{`SELECT ?g WHERE { GRAPH ?g { ?s ?p ?o } }`, path})
	require.Equal(t, "?g\n<file://"+path+">\n", got)
}

func TestRunPrefixFirstWins(t *testing.T) {
	dir := t.TempDir()
	a := writeFile(t, dir, "a.ttl", "@prefix ex: <http://one/> .\nex:s ex:p ex:o .\n")
	b := writeFile(t, dir, "b.ttl", "@prefix ex: <http://two/> .\nex:s2 ex:p2 ex:o2 .\n")
	got := run(t, Options{NoStdin: true}, []string{`SELECT ?o WHERE { ?s ex:p ?o }`, a, b})
	require.Equal(t, "?o\n<http://one/o>\n", got)
}

func TestRunBaseOverrideWins(t *testing.T) {
	dir := t.TempDir()
	a := writeFile(t, dir, "a.ttl", "<s> <p> <o> .\n")
	got := run(t, Options{NoStdin: true, BaseIRI: "http://fixed/"}, []string{`SELECT ?s WHERE { ?s <http://fixed/p> ?o }`, a})
	require.Equal(t, "?s\n<http://fixed/s>\n", got)
}

func TestRunTripleFormatPicksFirstNamedGraph(t *testing.T) {
	dir := t.TempDir()
	a := writeFile(t, dir, "a.ttl", "<s1> <p> <o1> .\n")
	b := writeFile(t, dir, "b.ttl", "<s2> <p> <o2> .\n")
	got := run(t, Options{NoStdin: true, OutputFormat: "ttl"}, []string{`INSERT DATA { GRAPH <http://x> { <unrelated> <p> <o> } }`, a, b})
	require.Contains(t, got, "<file://"+dir+"/o1>")
	require.NotContains(t, got, "o2")
}

func TestRunQueryFileVerbatim(t *testing.T) {
	dir := t.TempDir()
	q := writeFile(t, dir, "q.rq", "SELECT ?o WHERE { <a> <b> ?o }\n")
	got := run(t, Options{FileQuery: true}, []string{q}, "<a> <b> <c> .\n")
	require.Equal(t, "?o\n<c>\n", got)
}

func TestRunSkipsBrokenFile(t *testing.T) {
	dir := t.TempDir()
	bad := writeFile(t, dir, "bad.ttl", "this is not turtle")
	good := writeFile(t, dir, "good.ttl", "<a> <b> <c> .\n")
	got := run(t, Options{NoStdin: true}, []string{`SELECT ?s WHERE { ?s <b> <c> }`, bad, good})
	require.Equal(t, "?s\n<file://"+dir+"/a>\n", got)
}

func TestRunMissingFileIsSkipped(t *testing.T) {
	dir := t.TempDir()
	good := writeFile(t, dir, "good.ttl", "<a> <b> <c> .\n")
	got := run(t, Options{NoStdin: true}, []string{`ASK { ?s <b> <c> }`, filepath.Join(dir, "missing.ttl"), good})
	require.Equal(t, "true\n", got)
}

func TestRunGzippedFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "data.ttl.gz")
	f, err := os.Create(path)
	require.NoError(t, err)
	zw := gzip.NewWriter(f)
	_, err = zw.Write([]byte("<a> <b> <c> .\n"))
	require.NoError(t, err)
	require.NoError(t, zw.Close())
	require.NoError(t, f.Close())

	got := run(t, Options{NoStdin: true}, []string{`ASK { ?s <b> <c> }`, path})
	require.Equal(t, "true\n", got)
}

func TestRunStdinFormatOption(t *testing.T) {
	got := run(t, Options{InputFormat: "nq"}, []string{`SELECT ?s WHERE { ?s <b> <c> }`},
		"<a> <b> <c> <http://g> .\n")
	require.Equal(t, "?s\n<a>\n", got)
}

func TestRunUpdateFallback(t *testing.T) {
	// Text that fails query parsing but is a valid update mutates the
	// dataset instead of producing query results.
	got := run(t, Options{}, []string{`DELETE DATA { <a> <b> <c> }`}, "<a> <b> <c> .\n<d> <e> <f> .\n")
	require.Equal(t, "<d> <e> <f> .\n", got)
}

func TestRunDoubleParseFailureReportsQueryError(t *testing.T) {
	var out bytes.Buffer
	err := Run(Options{}, []string{`NEITHER QUERY NOR UPDATE`}, strings.NewReader(""), &out)
	require.Error(t, err)
	require.Contains(t, err.Error(), "invalid SPARQL query")
	require.Empty(t, out.String())
}

func TestRunNoQuery(t *testing.T) {
	var out bytes.Buffer
	err := Run(Options{}, nil, strings.NewReader("<a> <b> <c> .\n"), &out)
	require.Error(t, err)
}

func TestRunTrigOutputGroupsGraphs(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "data.ttl", "<s> <p> <o> .\n")
	iri := func(name string) string { return "<file://" + dir + "/" + name + ">" }
	got := run(t, Options{}, []string{`INSERT DATA { <d> <e> <f> }`, path}, "<a> <b> <c> .\n")
	want := iri("a") + " " + iri("b") + " " + iri("c") + " .\n" +
		iri("d") + " " + iri("e") + " " + iri("f") + " .\n\n" +
		"<file://" + path + "> {\n  " + iri("s") + " " + iri("p") + " " + iri("o") + " .\n}\n"
	require.Equal(t, want, got)
}

func TestRunQueryResolvesAgainstFileBase(t *testing.T) {
	// The base used to absolutize file data also resolves the query, so
	// relative references in both name the same things.
	dir := t.TempDir()
	path := writeFile(t, dir, "good.ttl", "<d> <e> <f> .\n")
	got := run(t, Options{NoStdin: true}, []string{`ASK { <d> <e> <f> }`, path})
	require.Equal(t, "true\n", got)
}

func TestRunDeclaredBaseWinsOverFileIRI(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "data.ttl", "@base <http://db/> .\n<s> <p> <o> .\n")
	got := run(t, Options{NoStdin: true}, []string{`SELECT ?s WHERE { ?s <p> ?o }`, path})
	require.Equal(t, "?s\n<http://db/s>\n", got)
}

func TestRunRDFXMLInput(t *testing.T) {
	src := `<rdf:RDF xmlns:rdf="http://www.w3.org/1999/02/22-rdf-syntax-ns#"
  xmlns:ex="http://e/ns#">
  <rdf:Description rdf:about="http://e/s"><ex:p rdf:resource="http://e/o"/></rdf:Description>
</rdf:RDF>`
	got := run(t, Options{InputFormat: "rdf"}, []string{`ASK { <http://e/s> <http://e/ns#p> <http://e/o> }`}, src)
	require.Equal(t, "true\n", got)
}

func TestRunRDFXMLOutput(t *testing.T) {
	got := run(t, Options{OutputFormat: "rdf"}, []string{`INSERT DATA { <http://e/s> <http://e/ns#p> <http://e/o> }`})
	require.Contains(t, got, "<rdf:RDF")
	require.Contains(t, got, `rdf:about="http://e/s"`)
	require.Contains(t, got, `rdf:resource="http://e/o"`)
}

func TestRunMissingExtensionFails(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "data", "<a> <b> <c> .\n")
	var out bytes.Buffer
	err := Run(Options{NoStdin: true}, []string{`ASK { ?s ?p ?o }`, path}, strings.NewReader(""), &out)
	require.ErrorIs(t, err, rdf.ErrMissingExtension)
	require.Empty(t, out.String())
}

func TestRunUnknownExtensionFails(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "data.xyz", "<a> <b> <c> .\n")
	var out bytes.Buffer
	err := Run(Options{NoStdin: true}, []string{`ASK { ?s ?p ?o }`, path}, strings.NewReader(""), &out)
	require.ErrorIs(t, err, rdf.ErrUnknownFormat)
	require.Empty(t, out.String())
}
