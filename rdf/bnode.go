package rdf

import (
	"fmt"
	"sync/atomic"

	"github.com/cayleygraph/quad"
)

var bnodeSeq int64

// RenameBlankNodes wraps a quad reader so that every blank node label
// is replaced with a process-unique one. Identity within the wrapped
// source is preserved; collisions between sources that happen to reuse
// the same labels are not possible.
func RenameBlankNodes(r quad.Reader) quad.Reader {
	return &bnodeRenamer{r: r, seen: make(map[quad.BNode]quad.BNode)}
}

type bnodeRenamer struct {
	r    quad.Reader
	seen map[quad.BNode]quad.BNode
}

func (br *bnodeRenamer) rename(v quad.Value) quad.Value {
	b, ok := v.(quad.BNode)
	if !ok {
		return v
	}
	if n, ok := br.seen[b]; ok {
		return n
	}
	n := quad.BNode(fmt.Sprintf("b%d", atomic.AddInt64(&bnodeSeq, 1)))
	br.seen[b] = n
	return n
}

func (br *bnodeRenamer) ReadQuad() (quad.Quad, error) {
	q, err := br.r.ReadQuad()
	if err != nil {
		return q, err
	}
	q.Subject = br.rename(q.Subject)
	q.Object = br.rename(q.Object)
	if q.Label != nil {
		q.Label = br.rename(q.Label)
	}
	return q, nil
}
