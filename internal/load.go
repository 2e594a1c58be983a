package internal

import (
	"bufio"
	"bytes"
	"compress/bzip2"
	"compress/gzip"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/cayleygraph/quad"
	"github.com/dustin/go-humanize"

	"github.com/niklasl/oxrq/clog"
	"github.com/niklasl/oxrq/rdf"
)

const (
	gzipMagic  = "\x1f\x8b"
	bzip2Magic = "BZh"
)

// decompress sniffs the magic bytes of r and wraps it in a gzip or
// bzip2 reader when the stream is compressed.
func decompress(r io.Reader) (io.Reader, error) {
	br := bufio.NewReader(r)
	buf, err := br.Peek(3)
	if err != nil {
		if err == io.EOF {
			return br, nil
		}
		return nil, err
	}
	switch {
	case bytes.Equal(buf[:2], []byte(gzipMagic)):
		return gzip.NewReader(br)
	case bytes.Equal(buf[:3], []byte(bzip2Magic)):
		return bzip2.NewReader(br), nil
	default:
		return br, nil
	}
}

type baseSetter interface {
	SetBase(string)
}

// LoadFile parses one data file into ds. Quads that the serialization
// leaves in the default graph are retagged into a named graph derived
// from the file path, so multi-file loads stay distinguishable. On
// success the file's prefixes and its effective base IRI, the declared
// base when present and the parse base otherwise, are folded into
// state so the query text resolves the same way the data did.
func LoadFile(ds *rdf.Dataset, state *rdf.ParseState, path string) error {
	format, err := rdf.ResolveFormat("", path)
	if err != nil {
		return err
	}
	if format.Reader == nil {
		return fmt.Errorf("decoding of %q is not supported", format.Name)
	}
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("could not open file %q: %v", path, err)
	}
	defer f.Close()
	r, err := decompress(f)
	if err != nil {
		return err
	}

	qr := format.Reader(r)
	defer qr.Close()

	graphIRI := rdf.FileGraphIRI(path)
	base := state.Base()
	if base == "" {
		base = string(graphIRI)
	}
	if bs, ok := qr.(baseSetter); ok {
		bs.SetBase(base)
	}

	if _, err = loadQuads(ds, qr, graphIRI, path); err != nil {
		return err
	}
	rep := rdf.SourceReport{Base: base}
	if pr, ok := qr.(rdf.PrefixReader); ok {
		rep.Prefixes = pr.Prefixes()
		if b := pr.Base(); b != "" {
			rep.Base = b
		}
	}
	state.Merge(rep)
	return nil
}

// LoadStdin parses standard input into the default graph. The format
// token defaults to Turtle. Unlike file sources, any error here is
// fatal to the run.
func LoadStdin(ds *rdf.Dataset, state *rdf.ParseState, r io.Reader, formatToken string) error {
	if formatToken == "" {
		formatToken = "turtle"
	}
	format, err := rdf.ResolveFormat(formatToken, "")
	if err != nil {
		return err
	}
	if format.Reader == nil {
		return fmt.Errorf("decoding of %q is not supported", format.Name)
	}

	qr := format.Reader(r)
	defer qr.Close()

	if base := state.Base(); base != "" {
		if bs, ok := qr.(baseSetter); ok {
			bs.SetBase(base)
		}
	}

	if _, err = loadQuads(ds, qr, nil, "stdin"); err != nil {
		return err
	}
	harvest(state, qr)
	return nil
}

// loadQuads drains qr into ds, renaming blank nodes to keep sources
// apart and retagging default-graph quads with graph when it is set.
// Explicit graph labels from dataset serializations are kept.
func loadQuads(ds *rdf.Dataset, qr quad.Reader, graph quad.Value, name string) (int, error) {
	start := time.Now()
	r := rdf.RenameBlankNodes(qr)
	n := 0
	for {
		q, err := r.ReadQuad()
		if err == io.EOF {
			break
		} else if err != nil {
			return n, err
		}
		if q.Label == nil && graph != nil {
			q.Label = graph
		}
		ds.AddQuad(q)
		n++
	}
	if clog.V(2) {
		clog.Infof("Loaded %s quads from %s in %v.", humanize.Comma(int64(n)), name, time.Since(start))
	}
	return n, nil
}

func harvest(state *rdf.ParseState, qr quad.Reader) {
	if pr, ok := qr.(rdf.PrefixReader); ok {
		state.Merge(rdf.SourceReport{Base: pr.Base(), Prefixes: pr.Prefixes()})
	}
}
