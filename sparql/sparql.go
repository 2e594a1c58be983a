// Package sparql implements a SPARQL 1.1 query and update engine over
// an in-memory RDF dataset.
//
// Queries and updates are parsed separately; callers that accept
// either try ParseQuery first and fall back to ParseUpdate. Execution
// returns a tagged Result: *Solutions for SELECT, Boolean for ASK, and
// *Graph for CONSTRUCT and DESCRIBE.
package sparql

import (
	"io"

	"github.com/cayleygraph/quad"
)

// Result is the tagged outcome of executing a query.
type Result interface {
	isResult()
}

// Solutions is an ordered sequence of variable binding rows. The
// sequence is single-pass: rows are produced as they are consumed,
// except where a solution modifier forces the engine to buffer.
type Solutions struct {
	vars []string
	next func() ([]quad.Value, bool)
	cur  []quad.Value
	n    int
}

func (*Solutions) isResult() {}

// Vars lists the projected variable names in order.
func (s *Solutions) Vars() []string { return s.vars }

// Next advances to the next row, reporting whether one is available.
func (s *Solutions) Next() bool {
	if s.next == nil {
		return false
	}
	row, ok := s.next()
	if !ok {
		s.next = nil
		s.cur = nil
		return false
	}
	s.cur = row
	s.n++
	return true
}

// Row returns the current binding row, aligned with Vars. Unbound
// variables are nil.
func (s *Solutions) Row() []quad.Value { return s.cur }

// Len reports the number of rows consumed so far; after the sequence is
// drained it is the total.
func (s *Solutions) Len() int { return s.n }

// Boolean is the result of an ASK query.
type Boolean bool

func (Boolean) isResult() {}

// Graph is the lazy triple sequence produced by CONSTRUCT or DESCRIBE.
// It implements quad.Reader; the sequence is single-pass and may fail
// partway through.
type Graph struct {
	next func() (quad.Quad, error)
}

func (*Graph) isResult() {}

func (g *Graph) ReadQuad() (quad.Quad, error) {
	if g.next == nil {
		return quad.Quad{}, io.EOF
	}
	return g.next()
}
