package results

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"io"

	"github.com/cayleygraph/quad"
)

const sparqlResultsNS = "http://www.w3.org/2005/sparql-results#"

type xmlWriter struct {
	w    io.Writer
	vars []string
	err  error
}

func newXMLWriter(w io.Writer, vars []string) (SolutionWriter, error) {
	if _, err := fmt.Fprintf(w, "<?xml version=\"1.0\"?>\n<sparql xmlns=%q>\n  <head>\n", sparqlResultsNS); err != nil {
		return nil, err
	}
	for _, name := range vars {
		if _, err := fmt.Fprintf(w, "    <variable name=%q/>\n", name); err != nil {
			return nil, err
		}
	}
	if _, err := io.WriteString(w, "  </head>\n  <results>\n"); err != nil {
		return nil, err
	}
	return &xmlWriter{w: w, vars: vars}, nil
}

func (x *xmlWriter) WriteRow(row []quad.Value) error {
	if x.err != nil {
		return x.err
	}
	if _, err := io.WriteString(x.w, "    <result>\n"); err != nil {
		x.err = err
		return err
	}
	for i, v := range row {
		if v == nil || i >= len(x.vars) {
			continue
		}
		if _, err := fmt.Fprintf(x.w, "      <binding name=%q>%s</binding>\n", x.vars[i], termXML(v)); err != nil {
			x.err = err
			return err
		}
	}
	if _, err := io.WriteString(x.w, "    </result>\n"); err != nil {
		x.err = err
		return err
	}
	return nil
}

func (x *xmlWriter) Close() error {
	if x.err != nil {
		return x.err
	}
	_, err := io.WriteString(x.w, "  </results>\n</sparql>\n")
	return err
}

func termXML(v quad.Value) string {
	switch t := v.(type) {
	case quad.IRI:
		return fmt.Sprintf("<uri>%s</uri>", xmlEscape(string(t)))
	case quad.BNode:
		return fmt.Sprintf("<bnode>%s</bnode>", xmlEscape(string(t)))
	case quad.String:
		return fmt.Sprintf("<literal>%s</literal>", xmlEscape(string(t)))
	case quad.LangString:
		return fmt.Sprintf("<literal xml:lang=%q>%s</literal>", t.Lang, xmlEscape(string(t.Value)))
	case quad.TypedString:
		return fmt.Sprintf("<literal datatype=%q>%s</literal>", string(t.Type), xmlEscape(string(t.Value)))
	}
	return fmt.Sprintf("<literal>%s</literal>", xmlEscape(plainText(v)))
}

func xmlEscape(s string) string {
	var buf bytes.Buffer
	if err := xml.EscapeText(&buf, []byte(s)); err != nil {
		return s
	}
	return buf.String()
}

func writeXMLBoolean(w io.Writer, value bool) error {
	_, err := fmt.Fprintf(w, "<?xml version=\"1.0\"?>\n<sparql xmlns=%q>\n  <head/>\n  <boolean>%v</boolean>\n</sparql>\n", sparqlResultsNS, value)
	return err
}
