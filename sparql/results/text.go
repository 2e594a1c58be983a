package results

import (
	"encoding/csv"
	"fmt"
	"io"
	"strings"

	"github.com/cayleygraph/quad"

	"github.com/niklasl/oxrq/rdf/turtle"
)

// TSV: header names each variable with its '?', terms are rendered in
// Turtle syntax.
type tsvWriter struct {
	w    io.Writer
	vars []string
}

func newTSVWriter(w io.Writer, vars []string) (SolutionWriter, error) {
	cols := make([]string, len(vars))
	for i, v := range vars {
		cols[i] = "?" + v
	}
	if _, err := fmt.Fprintln(w, strings.Join(cols, "\t")); err != nil {
		return nil, err
	}
	return &tsvWriter{w: w, vars: vars}, nil
}

func (t *tsvWriter) WriteRow(row []quad.Value) error {
	cols := make([]string, len(row))
	for i, v := range row {
		if v == nil {
			continue
		}
		cols[i] = escapeTSV(turtle.FormatTerm(v))
	}
	_, err := fmt.Fprintln(t.w, strings.Join(cols, "\t"))
	return err
}

func (t *tsvWriter) Close() error { return nil }

func escapeTSV(s string) string {
	if !strings.ContainsAny(s, "\t\n\r") {
		return s
	}
	r := strings.NewReplacer("\t", "\\t", "\n", "\\n", "\r", "\\r")
	return r.Replace(s)
}

// CSV: plain lexical forms, quoting per RFC 4180.
type csvWriter struct {
	w    *csv.Writer
	vars []string
}

func newCSVWriter(w io.Writer, vars []string) (SolutionWriter, error) {
	cw := csv.NewWriter(w)
	cw.UseCRLF = true
	if err := cw.Write(vars); err != nil {
		return nil, err
	}
	return &csvWriter{w: cw, vars: vars}, nil
}

func (c *csvWriter) WriteRow(row []quad.Value) error {
	cols := make([]string, len(row))
	for i, v := range row {
		if v == nil {
			continue
		}
		cols[i] = plainText(v)
	}
	return c.w.Write(cols)
}

func (c *csvWriter) Close() error {
	c.w.Flush()
	return c.w.Error()
}

// plainText strips all term syntax: IRIs bare, literals their lexical
// form, blank nodes keep the _: marker.
func plainText(v quad.Value) string {
	switch t := v.(type) {
	case quad.IRI:
		return string(t)
	case quad.BNode:
		return "_:" + string(t)
	case quad.String:
		return string(t)
	case quad.LangString:
		return string(t.Value)
	case quad.TypedString:
		return string(t.Value)
	}
	return quad.StringOf(v)
}

func writeTextBoolean(w io.Writer, value bool) error {
	_, err := fmt.Fprintln(w, value)
	return err
}
