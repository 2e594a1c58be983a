package rdfxml

import (
	"encoding/xml"
	"fmt"
	"io"
	"strings"

	"github.com/cayleygraph/quad"

	"github.com/niklasl/oxrq/rdf"
)

// XML names the parser recognizes.
var (
	nameRDF         = xml.Name{Space: nsRDF, Local: "RDF"}
	nameDescription = xml.Name{Space: nsRDF, Local: "Description"}
	nameAbout       = xml.Name{Space: nsRDF, Local: "about"}
	nameID          = xml.Name{Space: nsRDF, Local: "ID"}
	nameNodeID      = xml.Name{Space: nsRDF, Local: "nodeID"}
	nameResource    = xml.Name{Space: nsRDF, Local: "resource"}
	nameDatatype    = xml.Name{Space: nsRDF, Local: "datatype"}
	nameParseType   = xml.Name{Space: nsRDF, Local: "parseType"}
	nameLang        = xml.Name{Space: nsXML, Local: "lang"}
	nameBase        = xml.Name{Space: nsXML, Local: "base"}
)

// Reader parses RDF/XML into quads. Namespace declarations on the
// document element are available through Prefixes once reading has
// started.
type Reader struct {
	src io.Reader
	dec *xml.Decoder

	started bool
	pending *xml.StartElement

	base         string
	declaredBase string
	prefixes     map[string]string

	queue  []quad.Quad
	bnodeN int
	err    error
}

func NewReader(r io.Reader) *Reader {
	return &Reader{src: r, dec: xml.NewDecoder(r), prefixes: make(map[string]string)}
}

// SetBase sets the base IRI relative references resolve against, until
// the input declares its own with xml:base.
func (r *Reader) SetBase(iri string) { r.base = iri }

// Prefixes returns the namespace bindings declared on the document
// element.
func (r *Reader) Prefixes() map[string]string { return r.prefixes }

// Base returns the base IRI declared by the input, or empty.
func (r *Reader) Base() string { return r.declaredBase }

func (r *Reader) ReadQuad() (quad.Quad, error) {
	for len(r.queue) == 0 {
		if r.err != nil {
			return quad.Quad{}, r.err
		}
		if !r.started {
			if err := r.start(); err != nil {
				r.err = err
				return quad.Quad{}, err
			}
			continue
		}
		if r.pending != nil {
			el := *r.pending
			r.pending = nil
			if _, err := r.parseNode(el); err != nil {
				r.err = err
				return quad.Quad{}, err
			}
			continue
		}
		tok, err := r.dec.Token()
		if err != nil {
			r.err = err
			return quad.Quad{}, err
		}
		if el, ok := tok.(xml.StartElement); ok {
			if _, err := r.parseNode(el); err != nil {
				r.err = err
				return quad.Quad{}, err
			}
		}
	}
	q := r.queue[0]
	r.queue = r.queue[1:]
	return q, nil
}

func (r *Reader) Close() error {
	if c, ok := r.src.(io.Closer); ok {
		return c.Close()
	}
	return nil
}

// start scans to the document element. An rdf:RDF wrapper contributes
// its namespace and base declarations; a bare node element as document
// element is kept for parsing.
func (r *Reader) start() error {
	for {
		tok, err := r.dec.Token()
		if err != nil {
			return err
		}
		el, ok := tok.(xml.StartElement)
		if !ok {
			continue
		}
		r.started = true
		r.harvestDeclarations(el)
		if el.Name != nameRDF {
			r.pending = &el
		}
		return nil
	}
}

func (r *Reader) harvestDeclarations(el xml.StartElement) {
	for _, a := range el.Attr {
		switch {
		case a.Name.Space == "xmlns":
			r.prefixes[a.Name.Local] = a.Value
		case a.Name.Space == "" && a.Name.Local == "xmlns":
			r.prefixes[""] = a.Value
		case a.Name == nameBase:
			r.base = a.Value
			if r.declaredBase == "" {
				r.declaredBase = a.Value
			}
		}
	}
}

// parseNode parses one node element, emitting its triples, and returns
// the subject term it denotes.
func (r *Reader) parseNode(start xml.StartElement) (quad.Value, error) {
	var subj quad.Value
	lang := ""
	var propAttrs []xml.Attr
	for _, a := range start.Attr {
		switch {
		case a.Name == nameAbout:
			subj = quad.IRI(r.resolve(a.Value))
		case a.Name == nameID:
			subj = quad.IRI(r.resolve("#" + a.Value))
		case a.Name == nameNodeID:
			subj = quad.BNode(a.Value)
		case a.Name == nameLang:
			lang = a.Value
		case a.Name.Space == "xmlns" || a.Name.Local == "xmlns" || a.Name.Space == nsXML:
		case a.Name.Space == nsRDF:
			return nil, fmt.Errorf("rdfxml: unexpected rdf:%s attribute on node element", a.Name.Local)
		default:
			propAttrs = append(propAttrs, a)
		}
	}
	if subj == nil {
		subj = r.newBNode()
	}
	if start.Name != nameDescription {
		r.emit(subj, quad.IRI(nsRDF+"type"), quad.IRI(start.Name.Space+start.Name.Local))
	}
	for _, a := range propAttrs {
		r.emit(subj, quad.IRI(a.Name.Space+a.Name.Local), quad.String(a.Value))
	}
	return subj, r.parseProperties(subj, lang)
}

// parseProperties parses the property elements of a node element up to
// its closing tag.
func (r *Reader) parseProperties(subj quad.Value, lang string) error {
	for {
		tok, err := r.dec.Token()
		if err != nil {
			return err
		}
		switch t := tok.(type) {
		case xml.StartElement:
			if err := r.parseProperty(subj, lang, t); err != nil {
				return err
			}
		case xml.EndElement:
			return nil
		}
	}
}

func (r *Reader) parseProperty(subj quad.Value, lang string, start xml.StartElement) error {
	pred := quad.IRI(start.Name.Space + start.Name.Local)
	var obj quad.Value
	dt := ""
	parseType := ""
	for _, a := range start.Attr {
		switch a.Name {
		case nameResource:
			obj = quad.IRI(r.resolve(a.Value))
		case nameNodeID:
			obj = quad.BNode(a.Value)
		case nameDatatype:
			dt = a.Value
		case nameParseType:
			parseType = a.Value
		case nameLang:
			lang = a.Value
		default:
			if a.Name.Space == "xmlns" || a.Name.Local == "xmlns" || a.Name.Space == nsXML {
				continue
			}
			return fmt.Errorf("rdfxml: unexpected attribute %s on property element %s", a.Name.Local, start.Name.Local)
		}
	}
	if obj != nil {
		r.emit(subj, pred, obj)
		return r.consumeEmpty(start)
	}
	switch parseType {
	case "":
	case "Resource":
		node := r.newBNode()
		r.emit(subj, pred, node)
		return r.parseProperties(node, lang)
	default:
		return fmt.Errorf("rdfxml: rdf:parseType=%q is not supported", parseType)
	}

	var text strings.Builder
	var nested quad.Value
	for {
		tok, err := r.dec.Token()
		if err != nil {
			return err
		}
		switch t := tok.(type) {
		case xml.CharData:
			text.Write(t)
		case xml.StartElement:
			n, err := r.parseNode(t)
			if err != nil {
				return err
			}
			nested = n
		case xml.EndElement:
			if nested != nil {
				if strings.TrimSpace(text.String()) != "" {
					return fmt.Errorf("rdfxml: mixed node and text content in %s", start.Name.Local)
				}
				r.emit(subj, pred, nested)
				return nil
			}
			r.emit(subj, pred, r.literal(text.String(), lang, dt))
			return nil
		}
	}
}

// consumeEmpty drains a property element that already yielded its
// object from attributes; anything but whitespace inside is an error.
func (r *Reader) consumeEmpty(start xml.StartElement) error {
	for {
		tok, err := r.dec.Token()
		if err != nil {
			return err
		}
		switch t := tok.(type) {
		case xml.CharData:
			if strings.TrimSpace(string(t)) != "" {
				return fmt.Errorf("rdfxml: unexpected content in %s", start.Name.Local)
			}
		case xml.StartElement:
			return fmt.Errorf("rdfxml: unexpected element in %s", start.Name.Local)
		case xml.EndElement:
			return nil
		}
	}
}

func (r *Reader) literal(text, lang, dt string) quad.Value {
	if dt != "" {
		iri := r.resolve(dt)
		if iri == nsXSD+"string" {
			return quad.String(text)
		}
		return quad.TypedString{Value: quad.String(text), Type: quad.IRI(iri)}
	}
	if lang != "" {
		return quad.LangString{Value: quad.String(text), Lang: lang}
	}
	return quad.String(text)
}

func (r *Reader) resolve(ref string) string {
	return rdf.ResolveIRI(r.base, ref)
}

func (r *Reader) newBNode() quad.BNode {
	r.bnodeN++
	return quad.BNode(fmt.Sprintf("n%d", r.bnodeN))
}

func (r *Reader) emit(s, p, o quad.Value) {
	r.queue = append(r.queue, quad.Quad{Subject: s, Predicate: p, Object: o})
}
