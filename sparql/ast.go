package sparql

import "github.com/cayleygraph/quad"

type queryKind int

const (
	kindSelect queryKind = iota
	kindAsk
	kindConstruct
	kindDescribe
)

// term is one node of a pattern: either a variable or a concrete
// value. Anonymous blank nodes in patterns act as variables that are
// never projected.
type term struct {
	isVar bool
	anon  bool
	name  string
	val   quad.Value
}

func varTerm(name string) term        { return term{isVar: true, name: name} }
func valTerm(v quad.Value) term       { return term{val: v} }
func anonTerm(name string) term       { return term{isVar: true, anon: true, name: name} }

type triplePattern struct {
	s, p, o term
}

// quadPattern adds an optional graph term; nil means the default graph
// of the surrounding context.
type quadPattern struct {
	triplePattern
	graph *term
}

// groupPattern is one group graph pattern: ordered elements plus the
// filters declared anywhere inside the group, applied after the
// elements have produced their bindings.
type groupPattern struct {
	elems   []patternElem
	filters []expression
}

type patternElem interface {
	isPatternElem()
}

type basicPattern struct {
	triples []triplePattern
}

type namedGraphPattern struct {
	graph term
	group *groupPattern
}

type optionalPattern struct {
	group *groupPattern
}

type unionPattern struct {
	alternatives []*groupPattern
}

type minusPattern struct {
	group *groupPattern
}

type bindPattern struct {
	expr    expression
	varName string
}

func (basicPattern) isPatternElem()      {}
func (namedGraphPattern) isPatternElem() {}
func (optionalPattern) isPatternElem()   {}
func (unionPattern) isPatternElem()      {}
func (minusPattern) isPatternElem()      {}
func (bindPattern) isPatternElem()       {}

type orderCond struct {
	expr expression
	desc bool
}

// Query is a parsed SPARQL query form.
type Query struct {
	kind     queryKind
	distinct bool
	reduced  bool
	vars     []string // projection; empty means every visible variable
	where    *groupPattern
	template []quadPattern // CONSTRUCT template
	describe []term        // DESCRIBE targets
	orderBy  []orderCond
	limit    int
	offset   int
}

// expression is a parsed filter or bind expression.
type expression interface {
	isExpr()
}

type termExpr struct {
	t term
}

type binaryExpr struct {
	op          string
	left, right expression
}

type unaryExpr struct {
	op string
	x  expression
}

type callExpr struct {
	name string
	args []expression
}

func (termExpr) isExpr()   {}
func (binaryExpr) isExpr() {}
func (unaryExpr) isExpr()  {}
func (callExpr) isExpr()   {}
