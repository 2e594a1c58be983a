package rdfxml

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"io"
	"sort"
	"strings"
	"unicode"

	"github.com/cayleygraph/quad"
)

// Writer serializes quads as RDF/XML. Output is buffered until Close so
// statements can be grouped by subject and every namespace a predicate
// needs can be declared on the document element.
type Writer struct {
	w        io.Writer
	prefixes map[string]string
	quads    []quad.Quad
	closed   bool
}

// NewWriter returns an RDF/XML writer. Graph labels are ignored;
// callers hand it the quads of a single graph.
func NewWriter(w io.Writer) *Writer {
	return &Writer{w: w}
}

// SetPrefixes supplies namespace bindings preferred when splitting
// predicate IRIs into QNames. Namespaces no predicate needs are not
// declared, and predicates no binding covers get generated labels.
func (w *Writer) SetPrefixes(prefixes map[string]string) {
	w.prefixes = prefixes
}

func (w *Writer) WriteQuad(q quad.Quad) error {
	if w.closed {
		return fmt.Errorf("writer is closed")
	}
	if !q.IsValid() {
		return fmt.Errorf("incomplete quad: %v", q)
	}
	w.quads = append(w.quads, q)
	return nil
}

func (w *Writer) WriteQuads(buf []quad.Quad) (int, error) {
	for i, q := range buf {
		if err := w.WriteQuad(q); err != nil {
			return i, err
		}
	}
	return len(buf), nil
}

func (w *Writer) Close() error {
	if w.closed {
		return nil
	}
	w.closed = true

	ns, err := w.namespaces()
	if err != nil {
		return err
	}
	if err := w.writeHeader(ns); err != nil {
		return err
	}

	type subjGroup struct {
		subj  quad.Value
		quads []quad.Quad
	}
	var order []*subjGroup
	byKey := make(map[string]*subjGroup)
	for _, q := range w.quads {
		key := q.Subject.String()
		sg, ok := byKey[key]
		if !ok {
			sg = &subjGroup{subj: q.Subject}
			byKey[key] = sg
			order = append(order, sg)
		}
		sg.quads = append(sg.quads, q)
	}
	for _, sg := range order {
		if err := w.writeSubject(sg.subj, sg.quads, ns); err != nil {
			return err
		}
	}
	_, err = io.WriteString(w.w, "</rdf:RDF>\n")
	return err
}

// namespaces maps every namespace some predicate needs to a prefix
// label, preferring supplied bindings and generating ns1, ns2 and so
// on for the rest.
func (w *Writer) namespaces() (map[string]string, error) {
	byNS := make(map[string]string)
	for label, ns := range w.prefixes {
		if label == "" || label == "rdf" {
			continue
		}
		if _, ok := byNS[ns]; !ok && isNCName(label) {
			byNS[ns] = label
		}
	}
	out := map[string]string{nsRDF: "rdf"}
	n := 0
	for _, q := range w.quads {
		pred, ok := q.Predicate.(quad.IRI)
		if !ok {
			return nil, fmt.Errorf("predicate %s is not an IRI", quad.StringOf(q.Predicate))
		}
		ns, _, err := splitIRI(string(pred))
		if err != nil {
			return nil, err
		}
		if _, ok := out[ns]; ok {
			continue
		}
		if label, ok := byNS[ns]; ok {
			out[ns] = label
			continue
		}
		n++
		out[ns] = fmt.Sprintf("ns%d", n)
	}
	return out, nil
}

func (w *Writer) writeHeader(ns map[string]string) error {
	if _, err := io.WriteString(w.w, xml.Header); err != nil {
		return err
	}
	labels := make([]string, 0, len(ns))
	byLabel := make(map[string]string, len(ns))
	for space, label := range ns {
		labels = append(labels, label)
		byLabel[label] = space
	}
	sort.Strings(labels)
	if _, err := io.WriteString(w.w, "<rdf:RDF"); err != nil {
		return err
	}
	for _, label := range labels {
		if _, err := fmt.Fprintf(w.w, "\n  xmlns:%s=\"%s\"", label, escape(byLabel[label])); err != nil {
			return err
		}
	}
	_, err := io.WriteString(w.w, ">\n")
	return err
}

func (w *Writer) writeSubject(subj quad.Value, quads []quad.Quad, ns map[string]string) error {
	var open string
	switch s := subj.(type) {
	case quad.IRI:
		open = fmt.Sprintf("  <rdf:Description rdf:about=\"%s\">\n", escape(string(s)))
	case quad.BNode:
		open = fmt.Sprintf("  <rdf:Description rdf:nodeID=\"%s\">\n", escape(string(s)))
	default:
		return fmt.Errorf("subject %s is not an IRI or blank node", quad.StringOf(subj))
	}
	if _, err := io.WriteString(w.w, open); err != nil {
		return err
	}
	for _, q := range quads {
		if err := w.writeProperty(q, ns); err != nil {
			return err
		}
	}
	_, err := io.WriteString(w.w, "  </rdf:Description>\n")
	return err
}

func (w *Writer) writeProperty(q quad.Quad, ns map[string]string) error {
	space, local, err := splitIRI(string(q.Predicate.(quad.IRI)))
	if err != nil {
		return err
	}
	tag := ns[space] + ":" + local
	switch o := q.Object.(type) {
	case quad.IRI:
		_, err = fmt.Fprintf(w.w, "    <%s rdf:resource=\"%s\"/>\n", tag, escape(string(o)))
	case quad.BNode:
		_, err = fmt.Fprintf(w.w, "    <%s rdf:nodeID=\"%s\"/>\n", tag, escape(string(o)))
	case quad.String:
		_, err = fmt.Fprintf(w.w, "    <%s>%s</%s>\n", tag, escape(string(o)), tag)
	case quad.LangString:
		_, err = fmt.Fprintf(w.w, "    <%s xml:lang=\"%s\">%s</%s>\n", tag, escape(o.Lang), escape(string(o.Value)), tag)
	case quad.TypedString:
		_, err = fmt.Fprintf(w.w, "    <%s rdf:datatype=\"%s\">%s</%s>\n", tag, escape(string(o.Type)), escape(string(o.Value)), tag)
	default:
		_, err = fmt.Fprintf(w.w, "    <%s>%s</%s>\n", tag, escape(quad.StringOf(o)), tag)
	}
	return err
}

// splitIRI breaks an IRI into a namespace and an XML local name at the
// last separator that leaves a valid NCName, the fragment or final path
// segment in the common vocabularies.
func splitIRI(iri string) (ns, local string, err error) {
	if i := strings.LastIndexAny(iri, "#/"); i >= 0 && i+1 < len(iri) && isNCName(iri[i+1:]) {
		return iri[:i+1], iri[i+1:], nil
	}
	for i := len(iri) - 1; i > 0; i-- {
		if isNCName(iri[i:]) {
			continue
		}
		if i+1 < len(iri) {
			return iri[:i+1], iri[i+1:], nil
		}
		break
	}
	return "", "", fmt.Errorf("cannot split predicate IRI %q into a QName", iri)
}

func isNCName(s string) bool {
	for i, c := range s {
		if unicode.IsLetter(c) || c == '_' {
			continue
		}
		if i > 0 && (unicode.IsDigit(c) || c == '-' || c == '.') {
			continue
		}
		return false
	}
	return s != ""
}

func escape(s string) string {
	var b bytes.Buffer
	xml.EscapeText(&b, []byte(s))
	return b.String()
}
