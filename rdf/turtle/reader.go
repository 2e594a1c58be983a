package turtle

import (
	"bytes"
	"fmt"
	"io"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/cayleygraph/quad"

	"github.com/niklasl/oxrq/rdf"
)

// ParseError describes a syntax error with its position in the input.
type ParseError struct {
	Line, Col int
	Err       error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("line %d:%d: %v", e.Line, e.Col, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// Reader parses Turtle or TriG into quads. Prefix and base directives
// encountered while parsing are available through Prefixes and Base
// once reading has started.
type Reader struct {
	src  io.Reader
	trig bool

	data    []byte
	pos     int
	started bool
	err     error

	base         string
	declaredBase string
	prefixes     map[string]string
	graph        quad.Value
	queue        []quad.Quad
	bnodeN       int
}

// NewReader returns a reader for the Turtle syntax. Graph blocks are a
// syntax error; all quads land in the default graph.
func NewReader(r io.Reader) *Reader {
	return &Reader{src: r, prefixes: make(map[string]string)}
}

// NewTriGReader returns a reader for the TriG syntax.
func NewTriGReader(r io.Reader) *Reader {
	return &Reader{src: r, trig: true, prefixes: make(map[string]string)}
}

// SetBase sets the base IRI relative references resolve against, until
// the input declares its own.
func (r *Reader) SetBase(iri string) { r.base = iri }

// Prefixes returns the prefix bindings declared by the input.
func (r *Reader) Prefixes() map[string]string { return r.prefixes }

// Base returns the base IRI declared by the input, or empty.
func (r *Reader) Base() string { return r.declaredBase }

func (r *Reader) ReadQuad() (quad.Quad, error) {
	for len(r.queue) == 0 {
		if r.err != nil {
			return quad.Quad{}, r.err
		}
		if !r.started {
			data, err := io.ReadAll(r.src)
			if err != nil {
				r.err = err
				return quad.Quad{}, err
			}
			r.data = data
			r.started = true
		}
		r.skipWS()
		if r.pos >= len(r.data) {
			r.err = io.EOF
			return quad.Quad{}, io.EOF
		}
		if err := r.parseStatement(); err != nil {
			r.err = err
			return quad.Quad{}, err
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

func (r *Reader) errorf(format string, args ...interface{}) error {
	line, col := 1, 1
	for _, c := range r.data[:r.pos] {
		if c == '\n' {
			line++
			col = 1
		} else {
			col++
		}
	}
	return &ParseError{Line: line, Col: col, Err: fmt.Errorf(format, args...)}
}

func (r *Reader) skipWS() {
	for r.pos < len(r.data) {
		c := r.data[r.pos]
		if c == ' ' || c == '\t' || c == '\r' || c == '\n' {
			r.pos++
		} else if c == '#' {
			for r.pos < len(r.data) && r.data[r.pos] != '\n' {
				r.pos++
			}
		} else {
			return
		}
	}
}

func (r *Reader) peek() byte {
	if r.pos < len(r.data) {
		return r.data[r.pos]
	}
	return 0
}

func (r *Reader) expect(c byte) error {
	if r.peek() != c {
		return r.errorf("expected %q, got %q", string(c), string(r.peek()))
	}
	r.pos++
	return nil
}

// hasKeyword reports whether a case-insensitive keyword starts at the
// current position, followed by a delimiter.
func (r *Reader) hasKeyword(kw string) bool {
	if r.pos+len(kw) > len(r.data) {
		return false
	}
	if !strings.EqualFold(string(r.data[r.pos:r.pos+len(kw)]), kw) {
		return false
	}
	if r.pos+len(kw) == len(r.data) {
		return true
	}
	c := r.data[r.pos+len(kw)]
	return c == ' ' || c == '\t' || c == '\r' || c == '\n' || c == '<' || c == '#' || c == '{'
}

func (r *Reader) parseStatement() error {
	switch {
	case bytes.HasPrefix(r.data[r.pos:], []byte("@prefix")):
		r.pos += len("@prefix")
		return r.parsePrefixDirective(true)
	case bytes.HasPrefix(r.data[r.pos:], []byte("@base")):
		r.pos += len("@base")
		return r.parseBaseDirective(true)
	case r.hasKeyword("prefix"):
		r.pos += len("prefix")
		return r.parsePrefixDirective(false)
	case r.hasKeyword("base"):
		r.pos += len("base")
		return r.parseBaseDirective(false)
	}
	if r.trig {
		if r.hasKeyword("graph") {
			r.pos += len("graph")
			r.skipWS()
			g, err := r.parseGraphName()
			if err != nil {
				return err
			}
			return r.parseGraphBlock(g)
		}
		if r.peek() == '{' {
			return r.parseGraphBlock(nil)
		}
		// An IRI or blank node followed by '{' opens a graph block.
		if c := r.peek(); c == '<' || c == '_' || isPNChar(rune(c)) || c == ':' {
			mark := r.pos
			g, err := r.parseGraphName()
			if err == nil {
				r.skipWS()
				if r.peek() == '{' {
					return r.parseGraphBlock(g)
				}
			}
			r.pos = mark
		}
	}
	if err := r.parseTriples(); err != nil {
		return err
	}
	r.skipWS()
	return r.expect('.')
}

func (r *Reader) parseGraphName() (quad.Value, error) {
	switch r.peek() {
	case '_':
		return r.parseBNodeLabel()
	case '<':
		return r.parseIRI()
	default:
		return r.parsePrefixedName()
	}
}

func (r *Reader) parseGraphBlock(g quad.Value) error {
	r.skipWS()
	if err := r.expect('{'); err != nil {
		return err
	}
	prev := r.graph
	r.graph = g
	defer func() { r.graph = prev }()
	for {
		r.skipWS()
		if r.peek() == '}' {
			r.pos++
			return nil
		}
		if r.pos >= len(r.data) {
			return r.errorf("unterminated graph block")
		}
		if err := r.parseTriples(); err != nil {
			return err
		}
		r.skipWS()
		if r.peek() == '.' {
			r.pos++
		}
	}
}

func (r *Reader) parsePrefixDirective(atForm bool) error {
	r.skipWS()
	label, err := r.readPrefixLabel()
	if err != nil {
		return err
	}
	r.skipWS()
	iri, err := r.parseIRIRef()
	if err != nil {
		return err
	}
	if atForm {
		r.skipWS()
		if err := r.expect('.'); err != nil {
			return err
		}
	}
	r.prefixes[label] = iri
	return nil
}

func (r *Reader) parseBaseDirective(atForm bool) error {
	r.skipWS()
	iri, err := r.parseIRIRef()
	if err != nil {
		return err
	}
	if atForm {
		r.skipWS()
		if err := r.expect('.'); err != nil {
			return err
		}
	}
	r.base = iri
	if r.declaredBase == "" {
		r.declaredBase = iri
	}
	return nil
}

func (r *Reader) readPrefixLabel() (string, error) {
	start := r.pos
	for r.pos < len(r.data) && r.data[r.pos] != ':' {
		c := rune(r.data[r.pos])
		if !isPNChar(c) && c != '.' {
			return "", r.errorf("invalid prefix label")
		}
		r.pos++
	}
	if r.pos >= len(r.data) {
		return "", r.errorf("unterminated prefix declaration")
	}
	label := string(r.data[start:r.pos])
	r.pos++ // ':'
	return label, nil
}

func (r *Reader) parseTriples() error {
	var subj quad.Value
	var err error
	switch r.peek() {
	case '[':
		subj, err = r.parseBNodePropertyList()
		if err != nil {
			return err
		}
		r.skipWS()
		// A bare property list may stand alone as a statement.
		if c := r.peek(); c == '.' || c == '}' || c == 0 {
			return nil
		}
	case '(':
		subj, err = r.parseCollection()
		if err != nil {
			return err
		}
	default:
		subj, err = r.parseSubjectTerm()
		if err != nil {
			return err
		}
	}
	r.skipWS()
	return r.parsePredicateObjectList(subj)
}

func (r *Reader) parseSubjectTerm() (quad.Value, error) {
	switch c := r.peek(); {
	case c == '<':
		return r.parseIRI()
	case c == '_':
		return r.parseBNodeLabel()
	case isPNChar(rune(c)) || c == ':':
		return r.parsePrefixedName()
	default:
		return nil, r.errorf("expected subject, got %q", string(c))
	}
}

func (r *Reader) parsePredicateObjectList(subj quad.Value) error {
	for {
		pred, err := r.parseVerb()
		if err != nil {
			return err
		}
		for {
			r.skipWS()
			obj, err := r.parseObject()
			if err != nil {
				return err
			}
			r.emit(subj, pred, obj)
			r.skipWS()
			if r.peek() != ',' {
				break
			}
			r.pos++
		}
		if r.peek() != ';' {
			return nil
		}
		for r.peek() == ';' {
			r.pos++
			r.skipWS()
		}
		if c := r.peek(); c == '.' || c == ']' || c == '}' || c == 0 {
			return nil
		}
	}
}

func (r *Reader) parseVerb() (quad.Value, error) {
	if r.peek() == 'a' && r.pos+1 < len(r.data) {
		c := r.data[r.pos+1]
		if c == ' ' || c == '\t' || c == '\r' || c == '\n' || c == '<' || c == '[' || c == '(' || c == '"' || c == '\'' || c == '_' {
			r.pos++
			return iriType, nil
		}
	}
	if r.peek() == '<' {
		return r.parseIRI()
	}
	return r.parsePrefixedName()
}

func (r *Reader) parseObject() (quad.Value, error) {
	switch c := r.peek(); {
	case c == '<':
		return r.parseIRI()
	case c == '"' || c == '\'':
		return r.parseLiteral()
	case c == '[':
		return r.parseBNodePropertyList()
	case c == '(':
		return r.parseCollection()
	case c == '_':
		return r.parseBNodeLabel()
	case c == '+' || c == '-' || c >= '0' && c <= '9' || c == '.' && r.pos+1 < len(r.data) && r.data[r.pos+1] >= '0' && r.data[r.pos+1] <= '9':
		return r.parseNumber()
	case isPNChar(rune(c)) || c == ':':
		return r.parsePNameOrBoolean()
	default:
		return nil, r.errorf("expected object, got %q", string(c))
	}
}

func (r *Reader) parseBNodePropertyList() (quad.Value, error) {
	r.pos++ // '['
	node := r.newBNode()
	r.skipWS()
	if r.peek() == ']' {
		r.pos++
		return node, nil
	}
	if err := r.parsePredicateObjectList(node); err != nil {
		return nil, err
	}
	r.skipWS()
	if err := r.expect(']'); err != nil {
		return nil, err
	}
	return node, nil
}

func (r *Reader) parseCollection() (quad.Value, error) {
	r.pos++ // '('
	var head, tail quad.Value
	for {
		r.skipWS()
		if r.peek() == ')' {
			r.pos++
			if head == nil {
				return iriNil, nil
			}
			r.emit(tail, iriRest, iriNil)
			return head, nil
		}
		if r.pos >= len(r.data) {
			return nil, r.errorf("unterminated collection")
		}
		obj, err := r.parseObject()
		if err != nil {
			return nil, err
		}
		node := r.newBNode()
		if head == nil {
			head = node
		} else {
			r.emit(tail, iriRest, node)
		}
		r.emit(node, iriFirst, obj)
		tail = node
	}
}

func (r *Reader) parseIRI() (quad.Value, error) {
	iri, err := r.parseIRIRef()
	if err != nil {
		return nil, err
	}
	return quad.IRI(iri), nil
}

func (r *Reader) parseIRIRef() (string, error) {
	if err := r.expect('<'); err != nil {
		return "", err
	}
	var b strings.Builder
	for {
		if r.pos >= len(r.data) {
			return "", r.errorf("unterminated IRI")
		}
		c := r.data[r.pos]
		switch c {
		case '>':
			r.pos++
			return rdf.ResolveIRI(r.base, b.String()), nil
		case '\\':
			r.pos++
			s, err := r.readUCharEscape()
			if err != nil {
				return "", err
			}
			b.WriteString(s)
		case ' ', '\n', '\t', '\r', '<', '"', '{', '}', '|', '^', '`':
			return "", r.errorf("invalid character %q in IRI", string(c))
		default:
			b.WriteByte(c)
			r.pos++
		}
	}
}

func (r *Reader) readUCharEscape() (string, error) {
	if r.pos >= len(r.data) {
		return "", r.errorf("unterminated escape")
	}
	c := r.data[r.pos]
	var n int
	switch c {
	case 'u':
		n = 4
	case 'U':
		n = 8
	default:
		return "", r.errorf("invalid escape \\%s", string(c))
	}
	r.pos++
	if r.pos+n > len(r.data) {
		return "", r.errorf("unterminated \\%s escape", string(c))
	}
	v, err := strconv.ParseUint(string(r.data[r.pos:r.pos+n]), 16, 32)
	if err != nil {
		return "", r.errorf("invalid \\%s escape", string(c))
	}
	r.pos += n
	return string(rune(v)), nil
}

func (r *Reader) parseBNodeLabel() (quad.Value, error) {
	if r.pos+1 >= len(r.data) || r.data[r.pos+1] != ':' {
		return nil, r.errorf("expected blank node label")
	}
	r.pos += 2
	start := r.pos
	for r.pos < len(r.data) {
		c := rune(r.data[r.pos])
		if isPNChar(c) || c == '.' && r.pos+1 < len(r.data) && isPNChar(rune(r.data[r.pos+1])) {
			r.pos++
		} else {
			break
		}
	}
	if r.pos == start {
		return nil, r.errorf("empty blank node label")
	}
	return quad.BNode(r.data[start:r.pos]), nil
}

func (r *Reader) newBNode() quad.BNode {
	r.bnodeN++
	return quad.BNode(fmt.Sprintf("n%d", r.bnodeN))
}

func (r *Reader) parsePrefixedName() (quad.Value, error) {
	label, local, err := r.readPName()
	if err != nil {
		return nil, err
	}
	ns, ok := r.prefixes[label]
	if !ok {
		return nil, r.errorf("undefined prefix %q", label)
	}
	return quad.IRI(ns + local), nil
}

func (r *Reader) parsePNameOrBoolean() (quad.Value, error) {
	mark := r.pos
	word := r.readBareWord()
	if (word == "true" || word == "false") && r.peek() != ':' {
		return quad.TypedString{Value: quad.String(word), Type: quad.IRI(nsXSD + "boolean")}, nil
	}
	r.pos = mark
	return r.parsePrefixedName()
}

func (r *Reader) readBareWord() string {
	start := r.pos
	for r.pos < len(r.data) {
		c := r.data[r.pos]
		if c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z' {
			r.pos++
		} else {
			break
		}
	}
	return string(r.data[start:r.pos])
}

// readPName reads a prefixed name, returning the prefix label and the
// unescaped local part.
func (r *Reader) readPName() (label, local string, err error) {
	start := r.pos
	for r.pos < len(r.data) && r.data[r.pos] != ':' {
		c := rune(r.data[r.pos])
		if !isPNChar(c) && c != '.' {
			return "", "", r.errorf("expected prefixed name")
		}
		r.pos++
	}
	if r.pos >= len(r.data) {
		return "", "", r.errorf("expected prefixed name")
	}
	label = string(r.data[start:r.pos])
	r.pos++ // ':'
	var b strings.Builder
	for r.pos < len(r.data) {
		c := rune(r.data[r.pos])
		switch {
		case c == '\\' && r.pos+1 < len(r.data):
			b.WriteByte(r.data[r.pos+1])
			r.pos += 2
		case c == '%' && r.pos+2 < len(r.data):
			b.WriteString(string(r.data[r.pos : r.pos+3]))
			r.pos += 3
		case isPNChar(c) || c == ':':
			b.WriteRune(c)
			r.pos++
		case c == '.' && r.pos+1 < len(r.data) && (isPNChar(rune(r.data[r.pos+1])) || r.data[r.pos+1] == ':'):
			b.WriteRune(c)
			r.pos++
		default:
			return label, b.String(), nil
		}
	}
	return label, b.String(), nil
}

func (r *Reader) parseNumber() (quad.Value, error) {
	start := r.pos
	if c := r.peek(); c == '+' || c == '-' {
		r.pos++
	}
	digits := func() {
		for r.pos < len(r.data) && r.data[r.pos] >= '0' && r.data[r.pos] <= '9' {
			r.pos++
		}
	}
	digits()
	decimal := false
	if r.peek() == '.' && r.pos+1 < len(r.data) && r.data[r.pos+1] >= '0' && r.data[r.pos+1] <= '9' {
		decimal = true
		r.pos++
		digits()
	}
	double := false
	if c := r.peek(); c == 'e' || c == 'E' {
		double = true
		r.pos++
		if c := r.peek(); c == '+' || c == '-' {
			r.pos++
		}
		digits()
	}
	text := string(r.data[start:r.pos])
	if _, err := strconv.ParseFloat(text, 64); err != nil {
		return nil, r.errorf("invalid numeric literal %q", text)
	}
	dt := "integer"
	if double {
		dt = "double"
	} else if decimal {
		dt = "decimal"
	}
	return quad.TypedString{Value: quad.String(text), Type: quad.IRI(nsXSD + dt)}, nil
}

func (r *Reader) parseLiteral() (quad.Value, error) {
	text, err := r.parseString()
	if err != nil {
		return nil, err
	}
	switch r.peek() {
	case '@':
		r.pos++
		start := r.pos
		for r.pos < len(r.data) {
			c := r.data[r.pos]
			if c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z' || c >= '0' && c <= '9' || c == '-' {
				r.pos++
			} else {
				break
			}
		}
		if r.pos == start {
			return nil, r.errorf("empty language tag")
		}
		return quad.LangString{Value: quad.String(text), Lang: string(r.data[start:r.pos])}, nil
	case '^':
		if r.pos+1 >= len(r.data) || r.data[r.pos+1] != '^' {
			return nil, r.errorf("expected ^^")
		}
		r.pos += 2
		var dt quad.Value
		if r.peek() == '<' {
			dt, err = r.parseIRI()
		} else {
			dt, err = r.parsePrefixedName()
		}
		if err != nil {
			return nil, err
		}
		return typedLiteral(text, dt.(quad.IRI)), nil
	}
	return quad.String(text), nil
}

// typedLiteral keeps typed literals as-is, folding only xsd:string to
// a plain literal. Lexical forms are preserved so data round-trips
// unchanged through the codec.
func typedLiteral(text string, dt quad.IRI) quad.Value {
	if dt == quad.IRI(nsXSD+"string") {
		return quad.String(text)
	}
	return quad.TypedString{Value: quad.String(text), Type: dt}
}

func (r *Reader) parseString() (string, error) {
	q := r.data[r.pos]
	// Three quotes in a row always open a long string; two followed by
	// anything else are the empty short string.
	long := r.pos+2 < len(r.data) && r.data[r.pos+1] == q && r.data[r.pos+2] == q
	if long {
		r.pos += 3
	} else {
		r.pos++
	}
	var b strings.Builder
	for {
		if r.pos >= len(r.data) {
			return "", r.errorf("unterminated string")
		}
		c := r.data[r.pos]
		if c == q {
			if !long {
				r.pos++
				return b.String(), nil
			}
			if r.pos+2 < len(r.data) && r.data[r.pos+1] == q && r.data[r.pos+2] == q {
				r.pos += 3
				return b.String(), nil
			}
			b.WriteByte(c)
			r.pos++
			continue
		}
		if !long && (c == '\n' || c == '\r') {
			return "", r.errorf("newline in string")
		}
		if c == '\\' {
			r.pos++
			if r.pos >= len(r.data) {
				return "", r.errorf("unterminated escape")
			}
			e := r.data[r.pos]
			switch e {
			case 't':
				b.WriteByte('\t')
				r.pos++
			case 'b':
				b.WriteByte('\b')
				r.pos++
			case 'n':
				b.WriteByte('\n')
				r.pos++
			case 'r':
				b.WriteByte('\r')
				r.pos++
			case 'f':
				b.WriteByte('\f')
				r.pos++
			case '"', '\'', '\\':
				b.WriteByte(e)
				r.pos++
			case 'u', 'U':
				s, err := r.readUCharEscape()
				if err != nil {
					return "", err
				}
				b.WriteString(s)
			default:
				return "", r.errorf("invalid escape \\%s", string(e))
			}
			continue
		}
		b.WriteByte(c)
		r.pos++
	}
}

func (r *Reader) emit(s, p, o quad.Value) {
	r.queue = append(r.queue, quad.Quad{Subject: s, Predicate: p, Object: o, Label: r.graph})
}

func isPNChar(c rune) bool {
	if c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z' || c >= '0' && c <= '9' || c == '_' || c == '-' {
		return true
	}
	if c >= utf8.RuneSelf {
		return true
	}
	return false
}
