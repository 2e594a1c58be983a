package internal

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/niklasl/oxrq/clog"
	"github.com/niklasl/oxrq/rdf"
	"github.com/niklasl/oxrq/sparql"
	"github.com/niklasl/oxrq/sparql/results"
)

// Run executes the whole pipeline: classify arguments, load every data
// source, assemble the operation text and dispatch it, writing the
// result to stdout. A data file that fails to open or parse is logged
// and skipped; any other failure aborts the run.
func Run(opts Options, args []string, stdin io.Reader, stdout io.Writer) error {
	job := Collect(opts, args)
	ds := rdf.NewDataset()
	state := &rdf.ParseState{BaseOverride: opts.BaseIRI}

	for _, path := range job.DataFiles {
		if err := LoadFile(ds, state, path); err != nil {
			// A wrong format token or an unresolvable extension is a
			// usage error; only IO and parse trouble is skippable.
			if errors.Is(err, rdf.ErrUnknownFormat) || errors.Is(err, rdf.ErrMissingExtension) {
				return err
			}
			clog.Errorf("Error in file %q: %v", path, err)
		}
	}
	if job.UseStdin {
		if err := LoadStdin(ds, state, stdin, opts.InputFormat); err != nil {
			return err
		}
	}

	text, err := queryText(job, state)
	if err != nil {
		return err
	}
	return Execute(ds, state, text, opts.OutputFormat, stdout)
}

// queryText assembles the operation text. A query file is used
// verbatim; an inline body gets the accumulated prefix declarations
// prepended so it need not repeat PREFIX lines the data already
// carries.
func queryText(job Job, state *rdf.ParseState) (string, error) {
	if job.QueryFile != "" {
		data, err := os.ReadFile(job.QueryFile)
		if err != nil {
			return "", fmt.Errorf("unable to open query file %q: %v", job.QueryFile, err)
		}
		return string(data), nil
	}
	if job.QueryBody == "" {
		return "", fmt.Errorf("no query given")
	}
	return state.PrefixLines() + job.QueryBody, nil
}

// Execute parses text as a query, falling back to an update, and
// routes the outcome. Solution rows stream to w as they are produced;
// a constructed graph replaces the dataset before serialization; an
// update mutates ds in place and the mutated dataset is serialized.
// When both parses fail the query error is the one reported.
func Execute(ds *rdf.Dataset, state *rdf.ParseState, text, outFormat string, w io.Writer) error {
	q, qerr := sparql.ParseQuery(text, state.Base())
	if qerr != nil {
		u, uerr := sparql.ParseUpdate(text, state.Base())
		if uerr != nil {
			if clog.V(1) {
				clog.Infof("Also failed to parse as update: %v", uerr)
			}
			return fmt.Errorf("invalid SPARQL query: %v", qerr)
		}
		if err := u.Apply(ds); err != nil {
			return err
		}
		return DumpDataset(w, ds, state, outFormat)
	}

	res, err := q.Execute(ds, true)
	if err != nil {
		return err
	}
	switch r := res.(type) {
	case *sparql.Solutions:
		return writeSolutions(w, r, outFormat)
	case sparql.Boolean:
		f, err := results.Resolve(outFormat)
		if err != nil {
			return err
		}
		return f.Boolean(w, bool(r))
	case *sparql.Graph:
		out := rdf.NewDataset()
		if _, err := out.LoadFrom(r); err != nil {
			return err
		}
		return DumpDataset(w, out, state, outFormat)
	}
	return fmt.Errorf("unexpected result type %T", res)
}

func writeSolutions(w io.Writer, sol *sparql.Solutions, outFormat string) error {
	f, err := results.Resolve(outFormat)
	if err != nil {
		return err
	}
	sw, err := f.Solutions(w, sol.Vars())
	if err != nil {
		return err
	}
	for sol.Next() {
		if err := sw.WriteRow(sol.Row()); err != nil {
			return err
		}
	}
	return sw.Close()
}
