package turtle

import (
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/cayleygraph/quad"
)

// Writer serializes quads as Turtle or TriG. Output is buffered until
// Close so statements can be grouped by graph and subject and only the
// prefixes actually used are declared.
type Writer struct {
	w        io.Writer
	trig     bool
	prefixes map[string]string
	quads    []quad.Quad
	closed   bool
}

// NewWriter returns a Turtle writer. Graph labels are ignored; callers
// hand it the quads of a single graph.
func NewWriter(w io.Writer) *Writer {
	return &Writer{w: w}
}

// NewTriGWriter returns a TriG writer emitting named graph blocks.
func NewTriGWriter(w io.Writer) *Writer {
	return &Writer{w: w, trig: true}
}

// SetPrefixes supplies namespace bindings used to abbreviate IRIs.
// Only bindings an emitted IRI actually uses are declared.
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
	if err := w.writeHeader(); err != nil {
		return err
	}
	if !w.trig {
		return w.writeGraph(w.quads, "")
	}
	defGraph, named, order := splitGraphs(w.quads)
	if err := w.writeGraph(defGraph, ""); err != nil {
		return err
	}
	for i, name := range order {
		if len(defGraph) > 0 || i > 0 {
			if _, err := io.WriteString(w.w, "\n"); err != nil {
				return err
			}
		}
		if _, err := fmt.Fprintf(w.w, "%s {\n", w.term(name)); err != nil {
			return err
		}
		if err := w.writeGraph(named[name.String()], "  "); err != nil {
			return err
		}
		if _, err := io.WriteString(w.w, "}\n"); err != nil {
			return err
		}
	}
	return nil
}

func splitGraphs(quads []quad.Quad) (def []quad.Quad, named map[string][]quad.Quad, order []quad.Value) {
	named = make(map[string][]quad.Quad)
	for _, q := range quads {
		if q.Label == nil {
			def = append(def, q)
			continue
		}
		key := q.Label.String()
		if _, ok := named[key]; !ok {
			order = append(order, q.Label)
		}
		named[key] = append(named[key], q)
	}
	return def, named, order
}

func (w *Writer) writeHeader() error {
	if len(w.prefixes) == 0 {
		return nil
	}
	used := make(map[string]bool)
	for _, q := range w.quads {
		for _, v := range []quad.Value{q.Subject, q.Predicate, q.Object, q.Label} {
			if iri, ok := v.(quad.IRI); ok {
				if label, _, ok := w.abbreviate(iri); ok {
					used[label] = true
				}
			}
		}
	}
	if len(used) == 0 {
		return nil
	}
	labels := make([]string, 0, len(used))
	for label := range used {
		labels = append(labels, label)
	}
	sort.Strings(labels)
	for _, label := range labels {
		if _, err := fmt.Fprintf(w.w, "@prefix %s: <%s> .\n", label, w.prefixes[label]); err != nil {
			return err
		}
	}
	_, err := io.WriteString(w.w, "\n")
	return err
}

// writeGraph emits one graph's triples grouped by subject, predicates
// joined with ';' and repeated objects with ','.
func (w *Writer) writeGraph(quads []quad.Quad, indent string) error {
	type predGroup struct {
		pred quad.Value
		objs []quad.Value
	}
	type subjGroup struct {
		subj  quad.Value
		preds []*predGroup
		byKey map[string]*predGroup
	}
	var order []*subjGroup
	byKey := make(map[string]*subjGroup)
	for _, q := range quads {
		sk := q.Subject.String()
		sg, ok := byKey[sk]
		if !ok {
			sg = &subjGroup{subj: q.Subject, byKey: make(map[string]*predGroup)}
			byKey[sk] = sg
			order = append(order, sg)
		}
		pk := q.Predicate.String()
		pg, ok := sg.byKey[pk]
		if !ok {
			pg = &predGroup{pred: q.Predicate}
			sg.byKey[pk] = pg
			sg.preds = append(sg.preds, pg)
		}
		pg.objs = append(pg.objs, q.Object)
	}
	for _, sg := range order {
		var b strings.Builder
		b.WriteString(indent)
		b.WriteString(w.term(sg.subj))
		for i, pg := range sg.preds {
			if i > 0 {
				b.WriteString(" ;\n")
				b.WriteString(indent)
				b.WriteString("    ")
			} else {
				b.WriteString(" ")
			}
			b.WriteString(w.verb(pg.pred))
			for j, o := range pg.objs {
				if j > 0 {
					b.WriteString(",")
				}
				b.WriteString(" ")
				b.WriteString(w.term(o))
			}
		}
		b.WriteString(" .\n")
		if _, err := io.WriteString(w.w, b.String()); err != nil {
			return err
		}
	}
	return nil
}

// FormatTerm renders a single term in Turtle syntax with no prefix
// abbreviation, the form SPARQL results serializers share.
func FormatTerm(v quad.Value) string {
	var w Writer
	return w.term(v)
}

func (w *Writer) verb(v quad.Value) string {
	if v == iriType {
		return "a"
	}
	return w.term(v)
}

func (w *Writer) abbreviate(iri quad.IRI) (label, local string, ok bool) {
	s := string(iri)
	best := ""
	for l, ns := range w.prefixes {
		if ns != "" && strings.HasPrefix(s, ns) && len(ns) > len(best) {
			best, label = ns, l
		}
	}
	if best == "" {
		return "", "", false
	}
	local = s[len(best):]
	for _, c := range local {
		if !isPNChar(c) {
			return "", "", false
		}
	}
	return label, local, true
}

func (w *Writer) term(v quad.Value) string {
	switch t := v.(type) {
	case quad.IRI:
		if label, local, ok := w.abbreviate(t); ok {
			return label + ":" + local
		}
		return "<" + string(t) + ">"
	case quad.BNode:
		return "_:" + string(t)
	case quad.String:
		return quoteString(string(t))
	case quad.LangString:
		return quoteString(string(t.Value)) + "@" + t.Lang
	case quad.TypedString:
		return w.typedTerm(string(t.Value), t.Type)
	case quad.Int:
		return strconv.FormatInt(int64(t), 10)
	case quad.Float:
		return strconv.FormatFloat(float64(t), 'E', -1, 64)
	case quad.Bool:
		if bool(t) {
			return "true"
		}
		return "false"
	case quad.Time:
		return w.typedTerm(time.Time(t).Format(time.RFC3339), quad.IRI(nsXSD+"dateTime"))
	default:
		return quoteString(quad.StringOf(v))
	}
}

func (w *Writer) typedTerm(text string, dt quad.IRI) string {
	switch dt {
	case quad.IRI(nsXSD + "integer"):
		if _, err := strconv.ParseInt(text, 10, 64); err == nil {
			return text
		}
	case quad.IRI(nsXSD + "decimal"):
		if isDecimal(text) {
			return text
		}
	case quad.IRI(nsXSD + "double"):
		if strings.ContainsAny(text, "eE") {
			if _, err := strconv.ParseFloat(text, 64); err == nil {
				return text
			}
		}
	case quad.IRI(nsXSD + "boolean"):
		if text == "true" || text == "false" {
			return text
		}
	}
	return quoteString(text) + "^^" + w.term(dt)
}

func isDecimal(s string) bool {
	if s == "" {
		return false
	}
	if s[0] == '+' || s[0] == '-' {
		s = s[1:]
	}
	dot := strings.IndexByte(s, '.')
	if dot < 0 || dot+1 >= len(s) {
		return false
	}
	for i, c := range s {
		if i == dot {
			continue
		}
		if c < '0' || c > '9' {
			return false
		}
	}
	return true
}

func quoteString(s string) string {
	var b strings.Builder
	b.WriteByte('"')
	for _, c := range s {
		switch c {
		case '"':
			b.WriteString(`\"`)
		case '\\':
			b.WriteString(`\\`)
		case '\n':
			b.WriteString(`\n`)
		case '\r':
			b.WriteString(`\r`)
		case '\t':
			b.WriteString(`\t`)
		default:
			b.WriteRune(c)
		}
	}
	b.WriteByte('"')
	return b.String()
}
