package sparql

import (
	"fmt"

	"github.com/cayleygraph/quad"

	"github.com/niklasl/oxrq/rdf"
)

// Update is a parsed SPARQL update request: one or more operations
// applied in order.
type Update struct {
	ops []updateOp
}

type updateOp interface {
	isUpdateOp()
}

type insertDataOp struct {
	quads []quad.Quad
}

type deleteDataOp struct {
	quads []quad.Quad
}

type modifyOp struct {
	with  quad.Value // default graph for the operation, or nil
	del   []quadPattern
	ins   []quadPattern
	where *groupPattern
}

type clearKind int

const (
	clearDefault clearKind = iota
	clearGraph
	clearNamed
	clearAll
)

type clearOp struct {
	kind  clearKind
	graph quad.Value
}

func (insertDataOp) isUpdateOp() {}
func (deleteDataOp) isUpdateOp() {}
func (modifyOp) isUpdateOp()     {}
func (clearOp) isUpdateOp()      {}

// ParseUpdate parses text as a SPARQL update request.
func ParseUpdate(text, base string) (*Update, error) {
	p := newParser(text, base)
	u := &Update{}
	for {
		if err := p.parsePrologue(); err != nil {
			return nil, err
		}
		if p.eof() {
			break
		}
		op, err := p.parseUpdateOp()
		if err != nil {
			return nil, err
		}
		u.ops = append(u.ops, op)
		p.skipWS()
		if p.peek() == ';' {
			p.pos++
			continue
		}
		if !p.eof() {
			return nil, p.errorf("unexpected input after update operation")
		}
		break
	}
	if len(u.ops) == 0 {
		return nil, p.errorf("empty update request")
	}
	return u, nil
}

func (p *parser) parseUpdateOp() (updateOp, error) {
	switch {
	case p.matchKeyword("insert"):
		if p.matchKeyword("data") {
			quads, err := p.parseQuadData()
			if err != nil {
				return nil, err
			}
			return insertDataOp{quads: quads}, nil
		}
		ins, err := p.parseQuadBlock()
		if err != nil {
			return nil, err
		}
		if !p.matchKeyword("where") {
			return nil, p.errorf("expected WHERE")
		}
		where, err := p.parseGroup()
		if err != nil {
			return nil, err
		}
		return modifyOp{ins: ins, where: where}, nil
	case p.matchKeyword("delete"):
		if p.matchKeyword("data") {
			quads, err := p.parseQuadData()
			if err != nil {
				return nil, err
			}
			return deleteDataOp{quads: quads}, nil
		}
		if p.matchKeyword("where") {
			pat, err := p.parseQuadBlock()
			if err != nil {
				return nil, err
			}
			return modifyOp{del: pat, where: quadsAsGroup(pat)}, nil
		}
		del, err := p.parseQuadBlock()
		if err != nil {
			return nil, err
		}
		op := modifyOp{del: del}
		if p.matchKeyword("insert") {
			ins, err := p.parseQuadBlock()
			if err != nil {
				return nil, err
			}
			op.ins = ins
		}
		if !p.matchKeyword("where") {
			return nil, p.errorf("expected WHERE")
		}
		where, err := p.parseGroup()
		if err != nil {
			return nil, err
		}
		op.where = where
		return op, nil
	case p.matchKeyword("with"):
		p.skipWS()
		iri, err := p.parseIRIRef()
		if err != nil {
			return nil, err
		}
		op, err := p.parseUpdateOp()
		if err != nil {
			return nil, err
		}
		mod, ok := op.(modifyOp)
		if !ok {
			return nil, p.errorf("WITH requires a DELETE/INSERT operation")
		}
		mod.with = quad.IRI(iri)
		return mod, nil
	case p.matchKeyword("clear"), p.matchKeyword("drop"):
		p.matchKeyword("silent")
		switch {
		case p.matchKeyword("default"):
			return clearOp{kind: clearDefault}, nil
		case p.matchKeyword("named"):
			return clearOp{kind: clearNamed}, nil
		case p.matchKeyword("all"):
			return clearOp{kind: clearAll}, nil
		case p.matchKeyword("graph"):
			t, err := p.parseGraphTerm()
			if err != nil {
				return nil, err
			}
			if t.isVar {
				return nil, p.errorf("expected graph IRI")
			}
			return clearOp{kind: clearGraph, graph: t.val}, nil
		}
		return nil, p.errorf("expected DEFAULT, NAMED, ALL or GRAPH")
	}
	return nil, p.errorf("expected update operation")
}

// parseQuadBlock parses '{ triples (GRAPH name { triples })* }' into
// quad patterns.
func (p *parser) parseQuadBlock() ([]quadPattern, error) {
	if err := p.expect('{'); err != nil {
		return nil, err
	}
	var out []quadPattern
	for {
		p.skipWS()
		if p.pos >= len(p.data) {
			return nil, p.errorf("unterminated quad block")
		}
		if p.peek() == '}' {
			p.pos++
			return out, nil
		}
		if p.matchKeyword("graph") {
			g, err := p.parseGraphTerm()
			if err != nil {
				return nil, err
			}
			if err := p.expect('{'); err != nil {
				return nil, err
			}
			for {
				p.skipWS()
				if p.peek() == '}' {
					p.pos++
					break
				}
				if p.pos >= len(p.data) {
					return nil, p.errorf("unterminated graph block")
				}
				var triples []triplePattern
				if err := p.parseTriples(&triples); err != nil {
					return nil, err
				}
				gt := g
				for _, t := range triples {
					out = append(out, quadPattern{triplePattern: t, graph: &gt})
				}
				p.skipWS()
				if p.peek() == '.' {
					p.pos++
				}
			}
		} else {
			var triples []triplePattern
			if err := p.parseTriples(&triples); err != nil {
				return nil, err
			}
			for _, t := range triples {
				out = append(out, quadPattern{triplePattern: t})
			}
		}
		p.skipWS()
		if p.peek() == '.' {
			p.pos++
		}
	}
}

// parseQuadData parses a quad block and requires every term ground.
func (p *parser) parseQuadData() ([]quad.Quad, error) {
	pats, err := p.parseQuadBlock()
	if err != nil {
		return nil, err
	}
	quads := make([]quad.Quad, 0, len(pats))
	bnodes := make(map[string]quad.BNode)
	n := 0
	for _, pat := range pats {
		if pat.s.isVar && !pat.s.anon || pat.p.isVar || pat.o.isVar && !pat.o.anon ||
			pat.graph != nil && pat.graph.isVar {
			return nil, p.errorf("variables are not allowed in data blocks")
		}
		qd, ok := instantiate(pat, binding{}, bnodes, &n)
		if !ok {
			return nil, p.errorf("invalid quad in data block")
		}
		quads = append(quads, qd)
	}
	return quads, nil
}

// quadsAsGroup turns DELETE WHERE patterns into the equivalent WHERE
// group.
func quadsAsGroup(pats []quadPattern) *groupPattern {
	g := &groupPattern{}
	var plain []triplePattern
	for _, pat := range pats {
		if pat.graph == nil {
			plain = append(plain, pat.triplePattern)
			continue
		}
		g.elems = append(g.elems, namedGraphPattern{
			graph: *pat.graph,
			group: &groupPattern{elems: []patternElem{basicPattern{triples: []triplePattern{pat.triplePattern}}}},
		})
	}
	if len(plain) > 0 {
		g.elems = append([]patternElem{basicPattern{triples: plain}}, g.elems...)
	}
	return g
}

// Apply executes the update against the dataset, mutating it in place.
func (u *Update) Apply(ds *rdf.Dataset) error {
	for _, op := range u.ops {
		switch o := op.(type) {
		case insertDataOp:
			for _, q := range o.quads {
				ds.AddQuad(q)
			}
		case deleteDataOp:
			for _, q := range o.quads {
				ds.DeleteQuad(q)
			}
		case modifyOp:
			if err := applyModify(ds, o); err != nil {
				return err
			}
		case clearOp:
			switch o.kind {
			case clearDefault:
				ds.Clear(nil)
			case clearGraph:
				ds.Clear(o.graph)
			case clearNamed:
				for _, g := range ds.Graphs() {
					ds.Clear(g)
				}
			case clearAll:
				ds.Clear(nil)
				for _, g := range ds.Graphs() {
					ds.Clear(g)
				}
			}
		default:
			return fmt.Errorf("unsupported update operation")
		}
	}
	return nil
}

func applyModify(ds *rdf.Dataset, op modifyOp) error {
	ctx := evalCtx{ds: ds}
	if op.with != nil {
		ctx.inGraph = true
		ctx.graph = op.with
	}
	rows := evalGroup(ctx, op.where, []binding{{}})

	// Both template sets are instantiated against the original state
	// before any mutation is applied.
	var deletes, inserts []quad.Quad
	n := 0
	for _, b := range rows {
		for _, pat := range op.del {
			// Blank nodes in a delete template can never match.
			if pat.s.anon || pat.o.anon {
				continue
			}
			qd, ok := instantiate(withGraph(pat, op.with), b, map[string]quad.BNode{}, &n)
			if ok {
				deletes = append(deletes, qd)
			}
		}
		bnodes := make(map[string]quad.BNode)
		for _, pat := range op.ins {
			qd, ok := instantiate(withGraph(pat, op.with), b, bnodes, &n)
			if ok {
				inserts = append(inserts, qd)
			}
		}
	}
	for _, q := range deletes {
		ds.DeleteQuad(q)
	}
	for _, q := range inserts {
		ds.AddQuad(q)
	}
	return nil
}

func withGraph(pat quadPattern, g quad.Value) quadPattern {
	if g == nil || pat.graph != nil {
		return pat
	}
	gt := valTerm(g)
	pat.graph = &gt
	return pat
}
