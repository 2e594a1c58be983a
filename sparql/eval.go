package sparql

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/cayleygraph/quad"

	"github.com/niklasl/oxrq/rdf"
)

// binding maps variable names to values for one solution row.
type binding map[string]quad.Value

func (b binding) clone() binding {
	nb := make(binding, len(b)+2)
	for k, v := range b {
		nb[k] = v
	}
	return nb
}

type evalCtx struct {
	ds      *rdf.Dataset
	union   bool
	graph   quad.Value
	inGraph bool
}

func (c evalCtx) matchGraph() quad.Value {
	if c.inGraph {
		return c.graph
	}
	if c.union {
		return rdf.AnyGraph
	}
	return nil
}

// Execute runs the query against the dataset. With union set, patterns
// addressing the default graph match quads in every graph. Solution
// rows and constructed triples stream from the returned result as they
// are consumed.
func (q *Query) Execute(ds *rdf.Dataset, union bool) (Result, error) {
	ctx := evalCtx{ds: ds, union: union}
	rows := sliceIter([]binding{{}})
	if q.where != nil {
		rows = evalGroupIter(ctx, q.where, rows)
	}
	switch q.kind {
	case kindAsk:
		_, ok := rows()
		return Boolean(ok), nil
	case kindSelect:
		return q.buildSolutions(rows), nil
	case kindConstruct:
		return q.constructGraph(rows), nil
	case kindDescribe:
		return q.describeGraph(ctx, collectRows(rows)), nil
	}
	return nil, errType
}

// rowIter yields solution bindings one at a time; ok is false once the
// sequence is exhausted.
type rowIter func() (b binding, ok bool)

func sliceIter(rows []binding) rowIter {
	i := 0
	return func() (binding, bool) {
		if i >= len(rows) {
			return nil, false
		}
		b := rows[i]
		i++
		return b, true
	}
}

func collectRows(it rowIter) []binding {
	var out []binding
	for {
		b, ok := it()
		if !ok {
			return out
		}
		out = append(out, b)
	}
}

func evalGroup(ctx evalCtx, g *groupPattern, in []binding) []binding {
	return collectRows(evalGroupIter(ctx, g, sliceIter(in)))
}

// evalGroupIter streams a group's rows, pulling one seed binding at a
// time through the group's elements, so consumers that do not sort
// never hold the whole sequence.
func evalGroupIter(ctx evalCtx, g *groupPattern, in rowIter) rowIter {
	cur := in
	for _, elem := range g.elems {
		cur = expandIter(ctx, elem, cur)
	}
	if len(g.filters) == 0 {
		return cur
	}
	inner := cur
	return func() (binding, bool) {
		for {
			b, ok := inner()
			if !ok {
				return nil, false
			}
			if passesFilters(g.filters, b) {
				return b, true
			}
		}
	}
}

func passesFilters(filters []expression, b binding) bool {
	for _, f := range filters {
		ok, err := evalBool(f, b)
		if err != nil || !ok {
			return false
		}
	}
	return true
}

// expandIter applies one group element to a row stream. A single row's
// expansion is materialized; the stream as a whole is not. The right
// side of MINUS does not depend on the incoming rows and is evaluated
// once.
func expandIter(ctx evalCtx, elem patternElem, in rowIter) rowIter {
	if m, ok := elem.(minusPattern); ok {
		var right []binding
		computed := false
		return func() (binding, bool) {
			for {
				b, ok := in()
				if !ok {
					return nil, false
				}
				if !computed {
					right = evalGroup(ctx, m.group, []binding{{}})
					computed = true
				}
				if !excludedByMinus(b, right) {
					return b, true
				}
			}
		}
	}
	var pending []binding
	return func() (binding, bool) {
		for {
			if len(pending) > 0 {
				b := pending[0]
				pending = pending[1:]
				return b, true
			}
			b, ok := in()
			if !ok {
				return nil, false
			}
			pending = expandElem(ctx, elem, b)
		}
	}
}

func expandElem(ctx evalCtx, elem patternElem, b binding) []binding {
	switch e := elem.(type) {
	case basicPattern:
		cur := []binding{b}
		for _, tp := range e.triples {
			cur = matchPattern(ctx, tp, cur)
		}
		return cur
	case namedGraphPattern:
		return evalNamedGraph(ctx, e, []binding{b})
	case optionalPattern:
		rows := evalGroup(ctx, e.group, []binding{b})
		if len(rows) == 0 {
			return []binding{b}
		}
		return rows
	case unionPattern:
		var out []binding
		for _, alt := range e.alternatives {
			out = append(out, evalGroup(ctx, alt, []binding{b})...)
		}
		return out
	case bindPattern:
		if v, err := evalExpr(e.expr, b); err == nil {
			nb := b.clone()
			nb[e.varName] = v
			return []binding{nb}
		}
		return []binding{b}
	}
	return nil
}

func evalNamedGraph(ctx evalCtx, e namedGraphPattern, in []binding) []binding {
	var out []binding
	if !e.graph.isVar {
		inner := ctx
		inner.inGraph = true
		inner.graph = e.graph.val
		return evalGroup(inner, e.group, in)
	}
	for _, b := range in {
		if gv, ok := b[e.graph.name]; ok {
			inner := ctx
			inner.inGraph = true
			inner.graph = gv
			out = append(out, evalGroup(inner, e.group, []binding{b})...)
			continue
		}
		for _, gv := range ctx.ds.Graphs() {
			inner := ctx
			inner.inGraph = true
			inner.graph = gv
			nb := b.clone()
			nb[e.graph.name] = gv
			out = append(out, evalGroup(inner, e.group, []binding{nb})...)
		}
	}
	return out
}

func resolveTerm(t term, b binding) quad.Value {
	if !t.isVar {
		return t.val
	}
	if v, ok := b[t.name]; ok {
		return v
	}
	return nil
}

func matchPattern(ctx evalCtx, tp triplePattern, in []binding) []binding {
	var out []binding
	for _, b := range in {
		s := resolveTerm(tp.s, b)
		p := resolveTerm(tp.p, b)
		o := resolveTerm(tp.o, b)
		for _, q := range ctx.ds.Match(s, p, o, ctx.matchGraph()) {
			if nb := extendBinding(b, tp, q); nb != nil {
				out = append(out, nb)
			}
		}
	}
	return out
}

func extendBinding(b binding, tp triplePattern, q quad.Quad) binding {
	nb := b.clone()
	for _, pair := range []struct {
		t term
		v quad.Value
	}{{tp.s, q.Subject}, {tp.p, q.Predicate}, {tp.o, q.Object}} {
		if !pair.t.isVar {
			continue
		}
		if prev, ok := nb[pair.t.name]; ok {
			if quad.StringOf(prev) != quad.StringOf(pair.v) {
				return nil
			}
			continue
		}
		nb[pair.t.name] = pair.v
	}
	return nb
}

// excludedByMinus implements MINUS compatibility: a row is removed when
// some right-side row shares at least one variable and agrees on every
// shared one.
func excludedByMinus(b binding, right []binding) bool {
	for _, r := range right {
		shared := false
		compatible := true
		for k, v := range r {
			if bv, ok := b[k]; ok {
				shared = true
				if quad.StringOf(bv) != quad.StringOf(v) {
					compatible = false
					break
				}
			}
		}
		if shared && compatible {
			return true
		}
	}
	return false
}

// visibleVars collects projectable variable names in appearance order.
func visibleVars(g *groupPattern) []string {
	var names []string
	seen := make(map[string]bool)
	add := func(t term) {
		if t.isVar && !t.anon && !seen[t.name] {
			seen[t.name] = true
			names = append(names, t.name)
		}
	}
	var walk func(g *groupPattern)
	walk = func(g *groupPattern) {
		for _, elem := range g.elems {
			switch e := elem.(type) {
			case basicPattern:
				for _, tp := range e.triples {
					add(tp.s)
					add(tp.p)
					add(tp.o)
				}
			case namedGraphPattern:
				add(e.graph)
				walk(e.group)
			case optionalPattern:
				walk(e.group)
			case unionPattern:
				for _, alt := range e.alternatives {
					walk(alt)
				}
			case bindPattern:
				add(varTerm(e.varName))
			}
		}
	}
	walk(g)
	return names
}

func (q *Query) buildSolutions(in rowIter) *Solutions {
	vars := q.vars
	if len(vars) == 0 && q.where != nil {
		vars = visibleVars(q.where)
	}
	project := func(b binding) []quad.Value {
		row := make([]quad.Value, len(vars))
		for i, name := range vars {
			row[i] = b[name]
		}
		return row
	}
	if len(q.orderBy) > 0 || q.distinct || q.reduced {
		// Ordering and duplicate removal need the whole sequence.
		bindings := collectRows(in)
		out := make([][]quad.Value, 0, len(bindings))
		for _, b := range bindings {
			out = append(out, project(b))
		}
		if len(q.orderBy) > 0 {
			sortRows(out, vars, bindings, q.orderBy)
		}
		if q.distinct || q.reduced {
			out = dedupRows(out)
		}
		if q.offset > 0 {
			if q.offset >= len(out) {
				out = nil
			} else {
				out = out[q.offset:]
			}
		}
		if q.limit >= 0 && q.limit < len(out) {
			out = out[:q.limit]
		}
		i := 0
		return &Solutions{vars: vars, next: func() ([]quad.Value, bool) {
			if i >= len(out) {
				return nil, false
			}
			row := out[i]
			i++
			return row, true
		}}
	}
	skipped, emitted := 0, 0
	return &Solutions{vars: vars, next: func() ([]quad.Value, bool) {
		for {
			if q.limit >= 0 && emitted >= q.limit {
				return nil, false
			}
			b, ok := in()
			if !ok {
				return nil, false
			}
			if skipped < q.offset {
				skipped++
				continue
			}
			emitted++
			return project(b), true
		}
	}}
}

func sortRows(rows [][]quad.Value, vars []string, bindings []binding, conds []orderCond) {
	keys := make([][]quad.Value, len(rows))
	for i := range rows {
		ks := make([]quad.Value, len(conds))
		for j, c := range conds {
			v, err := evalExpr(c.expr, bindings[i])
			if err == nil {
				ks[j] = v
			}
		}
		keys[i] = ks
	}
	idx := make([]int, len(rows))
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(a, b int) bool {
		for j, c := range conds {
			cmp := orderCompare(keys[idx[a]][j], keys[idx[b]][j])
			if cmp == 0 {
				continue
			}
			if c.desc {
				return cmp > 0
			}
			return cmp < 0
		}
		return false
	})
	sorted := make([][]quad.Value, len(rows))
	for i, j := range idx {
		sorted[i] = rows[j]
	}
	copy(rows, sorted)
}

// orderCompare orders unbound first, then numerics, then everything
// else by lexical form.
func orderCompare(a, b quad.Value) int {
	if a == nil || b == nil {
		switch {
		case a == nil && b == nil:
			return 0
		case a == nil:
			return -1
		default:
			return 1
		}
	}
	if c, err := compareValues(a, b); err == nil {
		return c
	}
	return strings.Compare(quad.StringOf(a), quad.StringOf(b))
}

func dedupRows(rows [][]quad.Value) [][]quad.Value {
	seen := make(map[string]bool, len(rows))
	out := rows[:0]
	for _, row := range rows {
		var b strings.Builder
		for _, v := range row {
			b.WriteString(quad.StringOf(v))
			b.WriteByte('\x00')
		}
		key := b.String()
		if !seen[key] {
			seen[key] = true
			out = append(out, row)
		}
	}
	return out
}

// constructGraph instantiates the template lazily, pulling one
// solution row at a time.
func (q *Query) constructGraph(rows rowIter) *Graph {
	var cur binding
	have := false
	ti := 0
	bnodeN := 0
	var bnodes map[string]quad.BNode
	seen := make(map[string]bool)
	next := func() (quad.Quad, error) {
		for {
			if !have {
				b, ok := rows()
				if !ok {
					return quad.Quad{}, io.EOF
				}
				cur = b
				have = true
				ti = 0
				bnodes = make(map[string]quad.BNode)
			}
			if ti >= len(q.template) {
				have = false
				continue
			}
			tp := q.template[ti]
			ti++
			qd, ok := instantiate(tp, cur, bnodes, &bnodeN)
			if !ok {
				continue
			}
			key := qd.String()
			if seen[key] {
				continue
			}
			seen[key] = true
			return qd, nil
		}
	}
	return &Graph{next: next}
}

// instantiate fills a template pattern from a solution. Rows leaving a
// template variable unbound or putting a literal where the term kind
// forbids it produce no triple.
func instantiate(tp quadPattern, b binding, bnodes map[string]quad.BNode, bnodeN *int) (quad.Quad, bool) {
	fill := func(t term) (quad.Value, bool) {
		if !t.isVar {
			return t.val, true
		}
		if t.anon {
			if n, ok := bnodes[t.name]; ok {
				return n, true
			}
			*bnodeN++
			n := quad.BNode(newTemplateBNode(*bnodeN))
			bnodes[t.name] = n
			return n, true
		}
		v, ok := b[t.name]
		return v, ok
	}
	s, ok := fill(tp.s)
	if !ok || s == nil {
		return quad.Quad{}, false
	}
	switch s.(type) {
	case quad.IRI, quad.BNode:
	default:
		return quad.Quad{}, false
	}
	p, ok := fill(tp.p)
	if !ok || p == nil {
		return quad.Quad{}, false
	}
	if _, ok := p.(quad.IRI); !ok {
		return quad.Quad{}, false
	}
	o, ok := fill(tp.o)
	if !ok || o == nil {
		return quad.Quad{}, false
	}
	qd := quad.Quad{Subject: s, Predicate: p, Object: o}
	if tp.graph != nil {
		g, ok := fill(*tp.graph)
		if !ok || g == nil {
			return quad.Quad{}, false
		}
		qd.Label = g
	}
	return qd, true
}

func newTemplateBNode(n int) string {
	return fmt.Sprintf("t%d", n)
}

// describeGraph emits every triple whose subject is a described
// resource, across all graphs, with graph labels dropped.
func (q *Query) describeGraph(ctx evalCtx, rows []binding) *Graph {
	var resources []quad.Value
	seenRes := make(map[string]bool)
	addRes := func(v quad.Value) {
		if v == nil {
			return
		}
		if _, ok := v.(quad.IRI); !ok {
			if _, ok := v.(quad.BNode); !ok {
				return
			}
		}
		key := v.String()
		if !seenRes[key] {
			seenRes[key] = true
			resources = append(resources, v)
		}
	}
	for _, t := range q.describe {
		if !t.isVar {
			addRes(t.val)
			continue
		}
		for _, b := range rows {
			addRes(b[t.name])
		}
	}
	ri := 0
	var pending []quad.Quad
	seen := make(map[string]bool)
	next := func() (quad.Quad, error) {
		for {
			if len(pending) > 0 {
				qd := pending[0]
				pending = pending[1:]
				key := qd.String()
				if seen[key] {
					continue
				}
				seen[key] = true
				return qd, nil
			}
			if ri >= len(resources) {
				return quad.Quad{}, io.EOF
			}
			for _, qd := range ctx.ds.Match(resources[ri], nil, nil, rdf.AnyGraph) {
				qd.Label = nil
				pending = append(pending, qd)
			}
			ri++
		}
	}
	return &Graph{next: next}
}
