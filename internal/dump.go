package internal

import (
	"fmt"
	"io"

	"github.com/cayleygraph/quad"

	"github.com/niklasl/oxrq/clog"
	"github.com/niklasl/oxrq/rdf"
)

const defaultDatasetFormat = "trig"

type prefixSetter interface {
	SetPrefixes(map[string]string)
}

// DumpDataset serializes ds to w in the format named by token (TriG
// when empty). Formats that cannot carry named graphs get the default
// graph, or the first named graph when the default graph is empty.
func DumpDataset(w io.Writer, ds *rdf.Dataset, state *rdf.ParseState, token string) error {
	if token == "" {
		token = defaultDatasetFormat
	}
	format, err := rdf.ResolveFormat(token, "")
	if err != nil {
		return err
	}
	if format.Writer == nil {
		return fmt.Errorf("encoding in %s format is not supported", format.Name)
	}

	qw := format.Writer(w)
	if ps, ok := qw.(prefixSetter); ok {
		ps.SetPrefixes(state.Prefixes())
	}

	if rdf.SupportsDataset(token) {
		qr := ds.Reader()
		defer qr.Close()
		if _, err := quad.Copy(qw, qr); err != nil {
			qw.Close()
			return err
		}
		return qw.Close()
	}

	quads := ds.GraphQuads(nil)
	if len(quads) == 0 {
		if graphs := ds.Graphs(); len(graphs) > 0 {
			clog.Warningf("Format %q cannot hold a dataset; emitting graph %s only.", format.Name, quad.StringOf(graphs[0]))
			quads = ds.GraphQuads(graphs[0])
		}
	}
	for _, q := range quads {
		if err := qw.WriteQuad(q); err != nil {
			qw.Close()
			return err
		}
	}
	return qw.Close()
}
