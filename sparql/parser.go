package sparql

import (
	"fmt"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/cayleygraph/quad"

	"github.com/niklasl/oxrq/rdf"
)

const (
	nsRDF = "http://www.w3.org/1999/02/22-rdf-syntax-ns#"
	nsXSD = "http://www.w3.org/2001/XMLSchema#"

	iriType = quad.IRI(nsRDF + "type")
)

// SyntaxError describes a parse failure with its position in the text.
type SyntaxError struct {
	Line, Col int
	Err       error
}

func (e *SyntaxError) Error() string {
	return fmt.Sprintf("line %d:%d: %v", e.Line, e.Col, e.Err)
}

func (e *SyntaxError) Unwrap() error { return e.Err }

type parser struct {
	data     []byte
	pos      int
	base     string
	prefixes map[string]string
	bnodes   map[string]term
	anonN    int
}

func newParser(text, base string) *parser {
	return &parser{
		data:     []byte(text),
		base:     base,
		prefixes: make(map[string]string),
		bnodes:   make(map[string]term),
	}
}

// ParseQuery parses text as a SPARQL query. Relative IRIs resolve
// against base unless the text declares its own.
func ParseQuery(text, base string) (*Query, error) {
	p := newParser(text, base)
	q, err := p.parseQuery()
	if err != nil {
		return nil, err
	}
	return q, nil
}

func (p *parser) errorf(format string, args ...interface{}) error {
	line, col := 1, 1
	for _, c := range p.data[:p.pos] {
		if c == '\n' {
			line++
			col = 1
		} else {
			col++
		}
	}
	return &SyntaxError{Line: line, Col: col, Err: fmt.Errorf(format, args...)}
}

func (p *parser) skipWS() {
	for p.pos < len(p.data) {
		c := p.data[p.pos]
		if c == ' ' || c == '\t' || c == '\r' || c == '\n' {
			p.pos++
		} else if c == '#' {
			for p.pos < len(p.data) && p.data[p.pos] != '\n' {
				p.pos++
			}
		} else {
			return
		}
	}
}

func (p *parser) eof() bool {
	p.skipWS()
	return p.pos >= len(p.data)
}

func (p *parser) peek() byte {
	if p.pos < len(p.data) {
		return p.data[p.pos]
	}
	return 0
}

func (p *parser) expect(c byte) error {
	p.skipWS()
	if p.peek() != c {
		return p.errorf("expected %q, got %q", string(c), string(p.peek()))
	}
	p.pos++
	return nil
}

func isWordChar(c byte) bool {
	return c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z' || c >= '0' && c <= '9' || c == '_'
}

// matchKeyword consumes a case-insensitive keyword at the current
// position, requiring a word boundary after it.
func (p *parser) matchKeyword(kw string) bool {
	p.skipWS()
	if p.pos+len(kw) > len(p.data) {
		return false
	}
	if !strings.EqualFold(string(p.data[p.pos:p.pos+len(kw)]), kw) {
		return false
	}
	if p.pos+len(kw) < len(p.data) && isWordChar(p.data[p.pos+len(kw)]) {
		return false
	}
	p.pos += len(kw)
	return true
}

func (p *parser) peekKeyword(kw string) bool {
	mark := p.pos
	ok := p.matchKeyword(kw)
	p.pos = mark
	return ok
}

func (p *parser) parsePrologue() error {
	for {
		switch {
		case p.matchKeyword("prefix"):
			p.skipWS()
			label, err := p.readPrefixLabel()
			if err != nil {
				return err
			}
			p.skipWS()
			iri, err := p.parseIRIRef()
			if err != nil {
				return err
			}
			p.prefixes[label] = iri
		case p.matchKeyword("base"):
			p.skipWS()
			iri, err := p.parseIRIRef()
			if err != nil {
				return err
			}
			p.base = iri
		default:
			return nil
		}
	}
}

func (p *parser) parseQuery() (*Query, error) {
	if err := p.parsePrologue(); err != nil {
		return nil, err
	}
	q := &Query{limit: -1, offset: 0}
	switch {
	case p.matchKeyword("select"):
		q.kind = kindSelect
		if err := p.parseSelectClause(q); err != nil {
			return nil, err
		}
		p.matchKeyword("where")
		group, err := p.parseGroup()
		if err != nil {
			return nil, err
		}
		q.where = group
	case p.matchKeyword("ask"):
		q.kind = kindAsk
		p.matchKeyword("where")
		group, err := p.parseGroup()
		if err != nil {
			return nil, err
		}
		q.where = group
	case p.matchKeyword("construct"):
		q.kind = kindConstruct
		tmpl, err := p.parseConstructTemplate()
		if err != nil {
			return nil, err
		}
		q.template = tmpl
		if !p.matchKeyword("where") {
			return nil, p.errorf("expected WHERE")
		}
		group, err := p.parseGroup()
		if err != nil {
			return nil, err
		}
		q.where = group
	case p.matchKeyword("describe"):
		q.kind = kindDescribe
		if err := p.parseDescribeClause(q); err != nil {
			return nil, err
		}
	default:
		return nil, p.errorf("expected SELECT, ASK, CONSTRUCT or DESCRIBE")
	}
	if err := p.parseSolutionModifiers(q); err != nil {
		return nil, err
	}
	if !p.eof() {
		return nil, p.errorf("unexpected input after query")
	}
	return q, nil
}

func (p *parser) parseSelectClause(q *Query) error {
	if p.matchKeyword("distinct") {
		q.distinct = true
	} else if p.matchKeyword("reduced") {
		q.reduced = true
	}
	p.skipWS()
	if p.peek() == '*' {
		p.pos++
		return nil
	}
	for {
		p.skipWS()
		c := p.peek()
		if c != '?' && c != '$' {
			break
		}
		name, err := p.parseVarName()
		if err != nil {
			return err
		}
		q.vars = append(q.vars, name)
	}
	if len(q.vars) == 0 {
		return p.errorf("expected projection variables or *")
	}
	return nil
}

func (p *parser) parseDescribeClause(q *Query) error {
	for {
		p.skipWS()
		switch c := p.peek(); {
		case c == '?' || c == '$':
			name, err := p.parseVarName()
			if err != nil {
				return err
			}
			q.describe = append(q.describe, varTerm(name))
			continue
		case c == '<':
			iri, err := p.parseIRIRef()
			if err != nil {
				return err
			}
			q.describe = append(q.describe, valTerm(quad.IRI(iri)))
			continue
		case isPNameStart(c) && !p.peekKeyword("where"):
			v, err := p.parsePrefixedName()
			if err != nil {
				return err
			}
			q.describe = append(q.describe, valTerm(v))
			continue
		}
		break
	}
	if len(q.describe) == 0 {
		return p.errorf("expected DESCRIBE targets")
	}
	if p.matchKeyword("where") {
		group, err := p.parseGroup()
		if err != nil {
			return err
		}
		q.where = group
	} else {
		p.skipWS()
		if p.peek() == '{' {
			group, err := p.parseGroup()
			if err != nil {
				return err
			}
			q.where = group
		}
	}
	return nil
}

func (p *parser) parseSolutionModifiers(q *Query) error {
	for {
		switch {
		case p.matchKeyword("order"):
			if !p.matchKeyword("by") {
				return p.errorf("expected BY after ORDER")
			}
			if err := p.parseOrderConds(q); err != nil {
				return err
			}
		case p.matchKeyword("limit"):
			n, err := p.parseInteger()
			if err != nil {
				return err
			}
			q.limit = n
		case p.matchKeyword("offset"):
			n, err := p.parseInteger()
			if err != nil {
				return err
			}
			q.offset = n
		default:
			return nil
		}
	}
}

func (p *parser) parseOrderConds(q *Query) error {
	for {
		switch {
		case p.matchKeyword("asc"):
			e, err := p.parseBracketted()
			if err != nil {
				return err
			}
			q.orderBy = append(q.orderBy, orderCond{expr: e})
		case p.matchKeyword("desc"):
			e, err := p.parseBracketted()
			if err != nil {
				return err
			}
			q.orderBy = append(q.orderBy, orderCond{expr: e, desc: true})
		default:
			p.skipWS()
			if c := p.peek(); c == '?' || c == '$' {
				name, err := p.parseVarName()
				if err != nil {
					return err
				}
				q.orderBy = append(q.orderBy, orderCond{expr: termExpr{varTerm(name)}})
				continue
			}
			if len(q.orderBy) == 0 {
				return p.errorf("expected ordering condition")
			}
			return nil
		}
	}
}

func (p *parser) parseInteger() (int, error) {
	p.skipWS()
	start := p.pos
	for p.pos < len(p.data) && p.data[p.pos] >= '0' && p.data[p.pos] <= '9' {
		p.pos++
	}
	if p.pos == start {
		return 0, p.errorf("expected integer")
	}
	n, err := strconv.Atoi(string(p.data[start:p.pos]))
	if err != nil {
		return 0, p.errorf("invalid integer")
	}
	return n, nil
}

func (p *parser) parseBracketted() (expression, error) {
	if err := p.expect('('); err != nil {
		return nil, err
	}
	e, err := p.parseExpression()
	if err != nil {
		return nil, err
	}
	if err := p.expect(')'); err != nil {
		return nil, err
	}
	return e, nil
}

// parseGroup parses one group graph pattern enclosed in braces.
func (p *parser) parseGroup() (*groupPattern, error) {
	if err := p.expect('{'); err != nil {
		return nil, err
	}
	g := &groupPattern{}
	for {
		p.skipWS()
		if p.pos >= len(p.data) {
			return nil, p.errorf("unterminated group pattern")
		}
		if p.peek() == '}' {
			p.pos++
			return g, nil
		}
		switch {
		case p.matchKeyword("filter"):
			e, err := p.parseConstraint()
			if err != nil {
				return nil, err
			}
			g.filters = append(g.filters, e)
		case p.matchKeyword("optional"):
			inner, err := p.parseGroup()
			if err != nil {
				return nil, err
			}
			g.elems = append(g.elems, optionalPattern{group: inner})
		case p.matchKeyword("minus"):
			inner, err := p.parseGroup()
			if err != nil {
				return nil, err
			}
			g.elems = append(g.elems, minusPattern{group: inner})
		case p.matchKeyword("graph"):
			t, err := p.parseGraphTerm()
			if err != nil {
				return nil, err
			}
			inner, err := p.parseGroup()
			if err != nil {
				return nil, err
			}
			g.elems = append(g.elems, namedGraphPattern{graph: t, group: inner})
		case p.matchKeyword("bind"):
			if err := p.expect('('); err != nil {
				return nil, err
			}
			e, err := p.parseExpression()
			if err != nil {
				return nil, err
			}
			if !p.matchKeyword("as") {
				return nil, p.errorf("expected AS in BIND")
			}
			name, err := p.parseVarName()
			if err != nil {
				return nil, err
			}
			if err := p.expect(')'); err != nil {
				return nil, err
			}
			g.elems = append(g.elems, bindPattern{expr: e, varName: name})
		default:
			if p.peek() == '{' {
				u := unionPattern{}
				inner, err := p.parseGroup()
				if err != nil {
					return nil, err
				}
				u.alternatives = append(u.alternatives, inner)
				for p.matchKeyword("union") {
					alt, err := p.parseGroup()
					if err != nil {
						return nil, err
					}
					u.alternatives = append(u.alternatives, alt)
				}
				g.elems = append(g.elems, u)
			} else {
				var triples []triplePattern
				if err := p.parseTriples(&triples); err != nil {
					return nil, err
				}
				g.elems = append(g.elems, basicPattern{triples: triples})
			}
		}
		p.skipWS()
		if p.peek() == '.' {
			p.pos++
		}
	}
}

func (p *parser) parseConstraint() (expression, error) {
	p.skipWS()
	if p.peek() == '(' {
		return p.parseBracketted()
	}
	return p.parsePrimaryExpr()
}

func (p *parser) parseGraphTerm() (term, error) {
	p.skipWS()
	switch c := p.peek(); {
	case c == '?' || c == '$':
		name, err := p.parseVarName()
		if err != nil {
			return term{}, err
		}
		return varTerm(name), nil
	case c == '<':
		iri, err := p.parseIRIRef()
		if err != nil {
			return term{}, err
		}
		return valTerm(quad.IRI(iri)), nil
	default:
		v, err := p.parsePrefixedName()
		if err != nil {
			return term{}, err
		}
		return valTerm(v), nil
	}
}

// parseTriples parses one triples statement with the usual ';' and ','
// shorthand, appending the expanded patterns.
func (p *parser) parseTriples(out *[]triplePattern) error {
	p.skipWS()
	var subj term
	var err error
	if p.peek() == '[' {
		subj, err = p.parseBlankNodeProps(out)
		if err != nil {
			return err
		}
		p.skipWS()
		if c := p.peek(); c == '.' || c == '}' {
			return nil
		}
	} else {
		subj, err = p.parseTermNode(false)
		if err != nil {
			return err
		}
	}
	return p.parsePredObjList(subj, out)
}

func (p *parser) parsePredObjList(subj term, out *[]triplePattern) error {
	for {
		pred, err := p.parseVerb()
		if err != nil {
			return err
		}
		for {
			p.skipWS()
			var obj term
			if p.peek() == '[' {
				obj, err = p.parseBlankNodeProps(out)
			} else {
				obj, err = p.parseTermNode(true)
			}
			if err != nil {
				return err
			}
			*out = append(*out, triplePattern{s: subj, p: pred, o: obj})
			p.skipWS()
			if p.peek() != ',' {
				break
			}
			p.pos++
		}
		p.skipWS()
		if p.peek() != ';' {
			return nil
		}
		for p.peek() == ';' {
			p.pos++
			p.skipWS()
		}
		if c := p.peek(); c == '.' || c == '}' || c == ']' || c == 0 {
			return nil
		}
	}
}

func (p *parser) parseVerb() (term, error) {
	p.skipWS()
	if p.peek() == 'a' && p.pos+1 < len(p.data) && !isWordChar(p.data[p.pos+1]) && p.data[p.pos+1] != ':' {
		p.pos++
		return valTerm(iriType), nil
	}
	switch c := p.peek(); {
	case c == '?' || c == '$':
		name, err := p.parseVarName()
		if err != nil {
			return term{}, err
		}
		return varTerm(name), nil
	case c == '<':
		iri, err := p.parseIRIRef()
		if err != nil {
			return term{}, err
		}
		return valTerm(quad.IRI(iri)), nil
	default:
		v, err := p.parsePrefixedName()
		if err != nil {
			return term{}, err
		}
		return valTerm(v), nil
	}
}

func (p *parser) parseBlankNodeProps(out *[]triplePattern) (term, error) {
	p.pos++ // '['
	node := p.newAnon()
	p.skipWS()
	if p.peek() == ']' {
		p.pos++
		return node, nil
	}
	if err := p.parsePredObjList(node, out); err != nil {
		return term{}, err
	}
	if err := p.expect(']'); err != nil {
		return term{}, err
	}
	return node, nil
}

func (p *parser) newAnon() term {
	p.anonN++
	return anonTerm(fmt.Sprintf("*anon%d", p.anonN))
}

// parseTermNode parses a variable, IRI, blank node label or (when
// allowed) literal.
func (p *parser) parseTermNode(allowLiteral bool) (term, error) {
	p.skipWS()
	switch c := p.peek(); {
	case c == '?' || c == '$':
		name, err := p.parseVarName()
		if err != nil {
			return term{}, err
		}
		return varTerm(name), nil
	case c == '<':
		iri, err := p.parseIRIRef()
		if err != nil {
			return term{}, err
		}
		return valTerm(quad.IRI(iri)), nil
	case c == '_':
		return p.parseBNodeLabel()
	case c == '"' || c == '\'':
		if !allowLiteral {
			return term{}, p.errorf("literal not allowed here")
		}
		v, err := p.parseLiteral()
		if err != nil {
			return term{}, err
		}
		return valTerm(v), nil
	case c == '+' || c == '-' || c >= '0' && c <= '9' || c == '.' && p.pos+1 < len(p.data) && p.data[p.pos+1] >= '0' && p.data[p.pos+1] <= '9':
		if !allowLiteral {
			return term{}, p.errorf("literal not allowed here")
		}
		v, err := p.parseNumber()
		if err != nil {
			return term{}, err
		}
		return valTerm(v), nil
	default:
		mark := p.pos
		if p.matchKeyword("true") {
			if p.peek() != ':' {
				return valTerm(xsdBool(true)), nil
			}
			p.pos = mark
		}
		if p.matchKeyword("false") {
			if p.peek() != ':' {
				return valTerm(xsdBool(false)), nil
			}
			p.pos = mark
		}
		v, err := p.parsePrefixedName()
		if err != nil {
			return term{}, err
		}
		return valTerm(v), nil
	}
}

func xsdBool(b bool) quad.Value {
	s := "false"
	if b {
		s = "true"
	}
	return quad.TypedString{Value: quad.String(s), Type: quad.IRI(nsXSD + "boolean")}
}

func (p *parser) parseVarName() (string, error) {
	p.skipWS()
	if c := p.peek(); c != '?' && c != '$' {
		return "", p.errorf("expected variable")
	}
	p.pos++
	start := p.pos
	for p.pos < len(p.data) && isPNChar(rune(p.data[p.pos])) {
		p.pos++
	}
	if p.pos == start {
		return "", p.errorf("empty variable name")
	}
	return string(p.data[start:p.pos]), nil
}

func (p *parser) parseBNodeLabel() (term, error) {
	if p.pos+1 >= len(p.data) || p.data[p.pos+1] != ':' {
		return term{}, p.errorf("expected blank node label")
	}
	p.pos += 2
	start := p.pos
	for p.pos < len(p.data) && isPNChar(rune(p.data[p.pos])) {
		p.pos++
	}
	if p.pos == start {
		return term{}, p.errorf("empty blank node label")
	}
	label := string(p.data[start:p.pos])
	if t, ok := p.bnodes[label]; ok {
		return t, nil
	}
	t := anonTerm("*bnode_" + label)
	p.bnodes[label] = t
	return t, nil
}

func (p *parser) parseIRIRef() (string, error) {
	p.skipWS()
	if err := p.expect('<'); err != nil {
		return "", err
	}
	start := p.pos
	for p.pos < len(p.data) && p.data[p.pos] != '>' {
		c := p.data[p.pos]
		if c == ' ' || c == '\n' || c == '\t' || c == '<' {
			return "", p.errorf("invalid character in IRI")
		}
		p.pos++
	}
	if p.pos >= len(p.data) {
		return "", p.errorf("unterminated IRI")
	}
	iri := string(p.data[start:p.pos])
	p.pos++
	return rdf.ResolveIRI(p.base, iri), nil
}

func (p *parser) readPrefixLabel() (string, error) {
	start := p.pos
	for p.pos < len(p.data) && p.data[p.pos] != ':' {
		if !isPNChar(rune(p.data[p.pos])) && p.data[p.pos] != '.' {
			return "", p.errorf("invalid prefix label")
		}
		p.pos++
	}
	if p.pos >= len(p.data) {
		return "", p.errorf("unterminated prefix declaration")
	}
	label := string(p.data[start:p.pos])
	p.pos++
	return label, nil
}

func isPNameStart(c byte) bool {
	return isWordChar(c) || c == ':' || c >= utf8.RuneSelf
}

func (p *parser) parsePrefixedName() (quad.Value, error) {
	p.skipWS()
	start := p.pos
	for p.pos < len(p.data) && p.data[p.pos] != ':' {
		if !isPNChar(rune(p.data[p.pos])) {
			break
		}
		p.pos++
	}
	if p.pos >= len(p.data) || p.data[p.pos] != ':' {
		p.pos = start
		return nil, p.errorf("expected prefixed name")
	}
	label := string(p.data[start:p.pos])
	p.pos++
	ns, ok := p.prefixes[label]
	if !ok {
		return nil, p.errorf("undefined prefix %q", label)
	}
	var b strings.Builder
	for p.pos < len(p.data) {
		c := rune(p.data[p.pos])
		switch {
		case c == '\\' && p.pos+1 < len(p.data):
			b.WriteByte(p.data[p.pos+1])
			p.pos += 2
		case c == '%' && p.pos+2 < len(p.data):
			b.WriteString(string(p.data[p.pos : p.pos+3]))
			p.pos += 3
		case isPNChar(c):
			b.WriteRune(c)
			p.pos++
		case c == '.' && p.pos+1 < len(p.data) && isPNChar(rune(p.data[p.pos+1])):
			b.WriteRune(c)
			p.pos++
		default:
			return quad.IRI(ns + b.String()), nil
		}
	}
	return quad.IRI(ns + b.String()), nil
}

func (p *parser) parseNumber() (quad.Value, error) {
	start := p.pos
	if c := p.peek(); c == '+' || c == '-' {
		p.pos++
	}
	digits := func() {
		for p.pos < len(p.data) && p.data[p.pos] >= '0' && p.data[p.pos] <= '9' {
			p.pos++
		}
	}
	digits()
	decimal := false
	if p.peek() == '.' && p.pos+1 < len(p.data) && p.data[p.pos+1] >= '0' && p.data[p.pos+1] <= '9' {
		decimal = true
		p.pos++
		digits()
	}
	double := false
	if c := p.peek(); c == 'e' || c == 'E' {
		double = true
		p.pos++
		if c := p.peek(); c == '+' || c == '-' {
			p.pos++
		}
		digits()
	}
	text := string(p.data[start:p.pos])
	if _, err := strconv.ParseFloat(text, 64); err != nil {
		return nil, p.errorf("invalid numeric literal %q", text)
	}
	dt := "integer"
	if double {
		dt = "double"
	} else if decimal {
		dt = "decimal"
	}
	return quad.TypedString{Value: quad.String(text), Type: quad.IRI(nsXSD + dt)}, nil
}

func (p *parser) parseLiteral() (quad.Value, error) {
	text, err := p.parseString()
	if err != nil {
		return nil, err
	}
	switch p.peek() {
	case '@':
		p.pos++
		start := p.pos
		for p.pos < len(p.data) {
			c := p.data[p.pos]
			if c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z' || c >= '0' && c <= '9' || c == '-' {
				p.pos++
			} else {
				break
			}
		}
		if p.pos == start {
			return nil, p.errorf("empty language tag")
		}
		return quad.LangString{Value: quad.String(text), Lang: string(p.data[start:p.pos])}, nil
	case '^':
		if p.pos+1 >= len(p.data) || p.data[p.pos+1] != '^' {
			return nil, p.errorf("expected ^^")
		}
		p.pos += 2
		var dt quad.Value
		p.skipWS()
		if p.peek() == '<' {
			iri, err := p.parseIRIRef()
			if err != nil {
				return nil, err
			}
			dt = quad.IRI(iri)
		} else {
			dt, err = p.parsePrefixedName()
			if err != nil {
				return nil, err
			}
		}
		if dt == quad.IRI(nsXSD+"string") {
			return quad.String(text), nil
		}
		return quad.TypedString{Value: quad.String(text), Type: dt.(quad.IRI)}, nil
	}
	return quad.String(text), nil
}

func (p *parser) parseString() (string, error) {
	q := p.data[p.pos]
	long := p.pos+2 < len(p.data) && p.data[p.pos+1] == q && p.data[p.pos+2] == q
	if long {
		p.pos += 3
	} else {
		p.pos++
	}
	var b strings.Builder
	for {
		if p.pos >= len(p.data) {
			return "", p.errorf("unterminated string")
		}
		c := p.data[p.pos]
		if c == q {
			if !long {
				p.pos++
				return b.String(), nil
			}
			if p.pos+2 < len(p.data) && p.data[p.pos+1] == q && p.data[p.pos+2] == q {
				p.pos += 3
				return b.String(), nil
			}
			b.WriteByte(c)
			p.pos++
			continue
		}
		if !long && (c == '\n' || c == '\r') {
			return "", p.errorf("newline in string")
		}
		if c == '\\' {
			p.pos++
			if p.pos >= len(p.data) {
				return "", p.errorf("unterminated escape")
			}
			switch e := p.data[p.pos]; e {
			case 't':
				b.WriteByte('\t')
			case 'b':
				b.WriteByte('\b')
			case 'n':
				b.WriteByte('\n')
			case 'r':
				b.WriteByte('\r')
			case 'f':
				b.WriteByte('\f')
			case '"', '\'', '\\':
				b.WriteByte(e)
			case 'u', 'U':
				n := 4
				if e == 'U' {
					n = 8
				}
				if p.pos+1+n > len(p.data) {
					return "", p.errorf("unterminated unicode escape")
				}
				v, err := strconv.ParseUint(string(p.data[p.pos+1:p.pos+1+n]), 16, 32)
				if err != nil {
					return "", p.errorf("invalid unicode escape")
				}
				b.WriteString(string(rune(v)))
				p.pos += n
			default:
				return "", p.errorf("invalid escape \\%s", string(e))
			}
			p.pos++
			continue
		}
		b.WriteByte(c)
		p.pos++
	}
}

func (p *parser) parseConstructTemplate() ([]quadPattern, error) {
	if err := p.expect('{'); err != nil {
		return nil, err
	}
	var out []quadPattern
	for {
		p.skipWS()
		if p.pos >= len(p.data) {
			return nil, p.errorf("unterminated template")
		}
		if p.peek() == '}' {
			p.pos++
			return out, nil
		}
		var triples []triplePattern
		if err := p.parseTriples(&triples); err != nil {
			return nil, err
		}
		for _, t := range triples {
			out = append(out, quadPattern{triplePattern: t})
		}
		p.skipWS()
		if p.peek() == '.' {
			p.pos++
		}
	}
}

func isPNChar(c rune) bool {
	if c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z' || c >= '0' && c <= '9' || c == '_' || c == '-' {
		return true
	}
	return c >= utf8.RuneSelf
}
