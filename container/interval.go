package container

import (
	"golang.org/x/exp/constraints"
)

// IntervalTree maps closed intervals [min, max] to values. Values inserted for identical intervals are kept together
// in insertion order.
//
// It is a red-black tree ordered by (min, max). Every node caches the largest max in its subtree, which lets
// overlap queries skip subtrees that end before the query starts.
type IntervalTree[T constraints.Ordered, V any] struct {
	root  *ivNode[T, V]
	nodes int
}

type ivNode[T constraints.Ordered, V any] struct {
	parent   *ivNode[T, V]
	kids     [2]*ivNode[T, V]
	min, max T
	maxSub   T
	vals     []V
	red      bool
}

func NewIntervalTree[T constraints.Ordered, V any]() *IntervalTree[T, V] {
	return &IntervalTree[T, V]{}
}

// Len returns the number of distinct intervals.
func (t *IntervalTree[T, V]) Len() int { return t.nodes }

func compareIntervals[T constraints.Ordered](amin, amax, bmin, bmax T) int {
	switch {
	case amin < bmin:
		return -1
	case amin > bmin:
		return 1
	case amax < bmax:
		return -1
	case amax > bmax:
		return 1
	default:
		return 0
	}
}

// Insert adds v to the interval [min, max].
func (t *IntervalTree[T, V]) Insert(min, max T, v V) {
	var parent *ivNode[T, V]
	var dir int
	for n := t.root; n != nil; {
		c := compareIntervals(min, max, n.min, n.max)
		if c == 0 {
			n.vals = append(n.vals, v)
			return
		}
		parent = n
		dir = 0
		if c > 0 {
			dir = 1
		}
		n = n.kids[dir]
	}

	n := &ivNode[T, V]{parent: parent, min: min, max: max, maxSub: max, vals: []V{v}, red: true}
	t.nodes++
	if parent == nil {
		t.root = n
		n.red = false
		return
	}
	parent.kids[dir] = n
	for p := parent; p != nil && p.maxSub < max; p = p.parent {
		p.maxSub = max
	}
	t.rebalance(n)
}

func (n *ivNode[T, V]) updateMaxSub() {
	m := n.max
	for _, k := range n.kids {
		if k != nil && k.maxSub > m {
			m = k.maxSub
		}
	}
	n.maxSub = m
}

// rotate moves x down in direction dir and puts its child from the other side in its place.
func (t *IntervalTree[T, V]) rotate(x *ivNode[T, V], dir int) {
	y := x.kids[1-dir]
	x.kids[1-dir] = y.kids[dir]
	if c := y.kids[dir]; c != nil {
		c.parent = x
	}
	y.parent = x.parent
	switch {
	case x.parent == nil:
		t.root = y
	case x == x.parent.kids[0]:
		x.parent.kids[0] = y
	default:
		x.parent.kids[1] = y
	}
	y.kids[dir] = x
	x.parent = y

	// y now spans the subtree x used to span.
	y.maxSub = x.maxSub
	x.updateMaxSub()
}

func (t *IntervalTree[T, V]) rebalance(n *ivNode[T, V]) {
	for n.parent != nil && n.parent.red {
		p := n.parent
		// p is red, so it isn't the root.
		g := p.parent
		dir := 0
		if p == g.kids[1] {
			dir = 1
		}
		if u := g.kids[1-dir]; u != nil && u.red {
			p.red, u.red, g.red = false, false, true
			n = g
			continue
		}
		if n == p.kids[1-dir] {
			t.rotate(p, dir)
			n, p = p, n
		}
		p.red, g.red = false, true
		t.rotate(g, 1-dir)
	}
	t.root.red = false
}

// Overlapping calls yield for every interval that overlaps [min, max], in ascending (min, max) order, until yield
// returns false.
func (t *IntervalTree[T, V]) Overlapping(min, max T, yield func(min, max T, vals []V) bool) {
	t.root.visit(min, max, yield)
}

func (n *ivNode[T, V]) visit(min, max T, yield func(min, max T, vals []V) bool) bool {
	if n == nil || min > n.maxSub {
		return true
	}
	if !n.kids[0].visit(min, max, yield) {
		return false
	}
	if n.min > max {
		// Everything to the right starts even later.
		return true
	}
	if n.max >= min && !yield(n.min, n.max, n.vals) {
		return false
	}
	return n.kids[1].visit(min, max, yield)
}
