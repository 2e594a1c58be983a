// Package rdf implements the in-memory RDF dataset the tool assembles
// its inputs into, along with format resolution helpers shared by the
// load and dump stages.
package rdf

import (
	"io"

	"github.com/cayleygraph/quad"
)

// AnyGraph is a pattern value matching quads in every graph of a
// dataset, the default graph included.
var AnyGraph quad.Value = anyGraph{}

type anyGraph struct{}

func (anyGraph) String() string      { return "*" }
func (anyGraph) Native() interface{} { return nil }

type internalQuad struct {
	dirs  [4]int64 // Subject, Predicate, Object, Label; Label 0 is the default graph
	alive bool
}

// Dataset is an in-memory quad store. Values are interned to integer
// ids; named graphs keep first-insertion order. It is a single-owner
// structure and performs no locking.
type Dataset struct {
	ids    map[string]int64
	vals   map[int64]quad.Value
	nextID int64

	quads []internalQuad
	live  int
	keys  map[[4]int64]int           // quad key to index in quads
	index [4]map[int64][]int         // per direction posting lists
	grset map[int64]struct{}         // named graph ids
	graphs []quad.Value              // named graphs, insertion order
}

func NewDataset() *Dataset {
	return &Dataset{
		ids:    make(map[string]int64),
		vals:   make(map[int64]quad.Value),
		nextID: 1,
		keys:   make(map[[4]int64]int),
		index: [4]map[int64][]int{
			make(map[int64][]int),
			make(map[int64][]int),
			make(map[int64][]int),
			make(map[int64][]int),
		},
		grset: make(map[int64]struct{}),
	}
}

func (d *Dataset) resolve(v quad.Value, add bool) (int64, bool) {
	if v == nil {
		return 0, true
	}
	key := v.String()
	if id, ok := d.ids[key]; ok {
		return id, true
	}
	if !add {
		return 0, false
	}
	id := d.nextID
	d.nextID++
	d.ids[key] = id
	d.vals[id] = v
	return id, true
}

func (d *Dataset) internQuad(q quad.Quad, add bool) ([4]int64, bool) {
	var ids [4]int64
	for i, v := range []quad.Value{q.Subject, q.Predicate, q.Object, q.Label} {
		id, ok := d.resolve(v, add)
		if !ok {
			return ids, false
		}
		ids[i] = id
	}
	return ids, true
}

// AddQuad inserts q, reporting whether it was not already present.
func (d *Dataset) AddQuad(q quad.Quad) bool {
	ids, _ := d.internQuad(q, true)
	if i, ok := d.keys[ids]; ok && d.quads[i].alive {
		return false
	}
	i := len(d.quads)
	d.quads = append(d.quads, internalQuad{dirs: ids, alive: true})
	d.keys[ids] = i
	d.live++
	for dir, id := range ids {
		if id != 0 {
			d.index[dir][id] = append(d.index[dir][id], i)
		}
	}
	if g := ids[3]; g != 0 {
		if _, ok := d.grset[g]; !ok {
			d.grset[g] = struct{}{}
			d.graphs = append(d.graphs, q.Label)
		}
	}
	return true
}

// DeleteQuad removes q, reporting whether it was present. Named graph
// enumeration keeps a graph once seen, even if emptied.
func (d *Dataset) DeleteQuad(q quad.Quad) bool {
	ids, ok := d.internQuad(q, false)
	if !ok {
		return false
	}
	i, ok := d.keys[ids]
	if !ok || !d.quads[i].alive {
		return false
	}
	d.quads[i].alive = false
	delete(d.keys, ids)
	d.live--
	return true
}

// Size is the number of quads currently in the dataset.
func (d *Dataset) Size() int { return d.live }

// Graphs lists the named graph labels in first-insertion order.
func (d *Dataset) Graphs() []quad.Value {
	out := make([]quad.Value, len(d.graphs))
	copy(out, d.graphs)
	return out
}

func (d *Dataset) materialize(i int) quad.Quad {
	iq := d.quads[i]
	return quad.Quad{
		Subject:   d.vals[iq.dirs[0]],
		Predicate: d.vals[iq.dirs[1]],
		Object:    d.vals[iq.dirs[2]],
		Label:     d.vals[iq.dirs[3]],
	}
}

// Match returns quads matching the pattern in insertion order. A nil
// subject, predicate or object matches any value. A nil graph matches
// the default graph only; AnyGraph matches every graph.
func (d *Dataset) Match(s, p, o, g quad.Value) []quad.Quad {
	pat := [4]int64{}
	anyG := false
	if _, ok := g.(anyGraph); ok {
		anyG = true
		g = nil
	}
	for i, v := range []quad.Value{s, p, o, g} {
		if v == nil {
			continue
		}
		id, ok := d.resolve(v, false)
		if !ok {
			return nil
		}
		pat[i] = id
	}

	// Scan the shortest posting list among the bound directions, or
	// everything when the pattern is unbound.
	best := -1
	for dir, id := range pat {
		if id == 0 {
			continue
		}
		if best < 0 || len(d.index[dir][id]) < len(d.index[best][pat[best]]) {
			best = dir
		}
	}
	var idxs []int
	if best >= 0 {
		idxs = d.index[best][pat[best]]
	}

	var out []quad.Quad
	match := func(i int) {
		iq := d.quads[i]
		if !iq.alive {
			return
		}
		for dir, id := range pat {
			if id != 0 && iq.dirs[dir] != id {
				return
			}
		}
		if !anyG && g == nil && pat[3] == 0 && iq.dirs[3] != 0 {
			return
		}
		out = append(out, d.materialize(i))
	}
	if idxs != nil {
		for _, i := range idxs {
			match(i)
		}
	} else {
		for i := range d.quads {
			match(i)
		}
	}
	return out
}

// Quads returns every quad in insertion order.
func (d *Dataset) Quads() []quad.Quad {
	out := make([]quad.Quad, 0, d.live)
	for i := range d.quads {
		if d.quads[i].alive {
			out = append(out, d.materialize(i))
		}
	}
	return out
}

// GraphQuads returns the quads of a single graph; nil selects the
// default graph. Labels are cleared so the result reads as triples.
func (d *Dataset) GraphQuads(label quad.Value) []quad.Quad {
	var gid int64
	if label != nil {
		id, ok := d.resolve(label, false)
		if !ok {
			return nil
		}
		gid = id
	}
	var out []quad.Quad
	for i := range d.quads {
		iq := d.quads[i]
		if iq.alive && iq.dirs[3] == gid {
			q := d.materialize(i)
			q.Label = nil
			out = append(out, q)
		}
	}
	return out
}

// Clear drops the quads of one graph; nil selects the default graph.
func (d *Dataset) Clear(label quad.Value) {
	var gid int64
	if label != nil {
		id, ok := d.resolve(label, false)
		if !ok {
			return
		}
		gid = id
	}
	for i := range d.quads {
		if d.quads[i].alive && d.quads[i].dirs[3] == gid {
			d.quads[i].alive = false
			delete(d.keys, d.quads[i].dirs)
			d.live--
		}
	}
}

// LoadFrom drains a quad reader into the dataset, returning the number
// of quads read.
func (d *Dataset) LoadFrom(r quad.Reader) (int, error) {
	n := 0
	for {
		q, err := r.ReadQuad()
		if err == io.EOF {
			return n, nil
		} else if err != nil {
			return n, err
		}
		d.AddQuad(q)
		n++
	}
}

// Reader streams the dataset contents in insertion order.
func (d *Dataset) Reader() quad.ReadCloser {
	return &quadSliceReader{s: d.Quads()}
}

type quadSliceReader struct {
	s []quad.Quad
}

func (r *quadSliceReader) ReadQuad() (quad.Quad, error) {
	if len(r.s) == 0 {
		return quad.Quad{}, io.EOF
	}
	q := r.s[0]
	r.s = r.s[1:]
	return q, nil
}

func (r *quadSliceReader) Close() error { return nil }
