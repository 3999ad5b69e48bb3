// Copyright 2024 Francis Michael Stephens. All rights reserved.  Use of this
// source code is governed by an MIT license that can be found in the LICENSE
// file.

package cyclegc

import "github.com/fmstephe/cyclegc/internal/arena"

// Leaf wraps a plain value that owns no Gc fields of its own, satisfying
// Traceable with no-op Trace/Sever. Most payload types at the edge of an
// ownership graph — strings, numbers, small structs with no outgoing
// references — can be wrapped this way instead of hand-writing the two
// no-op methods themselves.
type Leaf[T any] struct {
	Value T
}

func (Leaf[T]) Trace(*Visitor)   {}
func (Leaf[T]) Sever(*Destroyer) {}

// arenaLeaf is the off-heap-backed flavour of Leaf: the value itself lives
// in an internal/arena.Store rather than on the Go-scanned heap. It is not
// exported directly; LeafStore is the entry point, a typed Store plus
// handles rather than a bare pointer.
type arenaLeaf[T any] struct {
	ref   arena.Ref[T]
	store *arena.Store[T]
}

func (arenaLeaf[T]) Trace(*Visitor)   {}
func (arenaLeaf[T]) Sever(*Destroyer) {}

func (l arenaLeaf[T]) Get() *T {
	return l.ref.Value()
}

// LeafStore backs Leaf payloads with off-heap storage, for callers who want
// many small, pointer-free leaves without adding to the Go collector's scan
// set. The values never contain a Gc (or any other conventional pointer),
// so there is nothing unsound about moving them off-heap.
type LeafStore[T any] struct {
	store *arena.Store[T]
}

func NewLeafStore[T any]() *LeafStore[T] {
	return &LeafStore[T]{store: arena.New[T]()}
}

// New allocates a new off-heap leaf and returns a Gc wrapping it, in d.
func (s *LeafStore[T]) New(d *Dumpster, value T) Gc[arenaLeaf[T]] {
	ref, v := s.store.Alloc()
	*v = value
	return New(d, arenaLeaf[T]{ref: ref, store: s.store})
}

// Cell is a transparent single-value wrapper with interior mutability:
// Get/Set replace the held value, and Trace/Sever delegate straight through
// to whatever the current value's own Traceable implementation does.
type Cell[T Traceable] struct {
	value T
}

func NewCell[T Traceable](value T) *Cell[T] {
	return &Cell[T]{value: value}
}

func (c *Cell[T]) Get() T {
	return c.value
}

func (c *Cell[T]) Set(value T) {
	c.value = value
}

func (c *Cell[T]) Trace(v *Visitor) {
	c.value.Trace(v)
}

func (c *Cell[T]) Sever(d *Destroyer) {
	c.value.Sever(d)
}

// Optional wraps a Gc that may or may not be present. A present-but-nil Gc
// and an absent Optional behave identically: both are no-ops to Trace/Sever
// and both report IsSome false.
type Optional[T Traceable] struct {
	gc   Gc[T]
	some bool
}

func Some[T Traceable](g Gc[T]) Optional[T] {
	return Optional[T]{gc: g, some: true}
}

func None[T Traceable]() Optional[T] {
	return Optional[T]{}
}

func (o Optional[T]) IsSome() bool {
	return o.some && !o.gc.IsNil()
}

func (o Optional[T]) Get() (Gc[T], bool) {
	if !o.IsSome() {
		return Gc[T]{}, false
	}
	return o.gc, true
}

func (o *Optional[T]) Trace(v *Visitor) {
	if !o.IsSome() {
		return
	}
	Accept(v, &o.gc)
}

func (o *Optional[T]) Sever(d *Destroyer) {
	if !o.IsSome() {
		return
	}
	Release(d, &o.gc)
	o.some = false
}

// Slice is an iterable container of Gc children: Trace/Sever visit every
// element. Element order is unspecified; this implementation visits them in
// storage order purely as an implementation detail.
type Slice[T Traceable] struct {
	items []Gc[T]
}

func NewSlice[T Traceable](items ...Gc[T]) *Slice[T] {
	s := &Slice[T]{}
	s.items = append(s.items, items...)
	return s
}

func (s *Slice[T]) Append(g Gc[T]) {
	s.items = append(s.items, g)
}

func (s *Slice[T]) Len() int {
	return len(s.items)
}

func (s *Slice[T]) At(i int) Gc[T] {
	return s.items[i]
}

func (s *Slice[T]) Trace(v *Visitor) {
	for i := range s.items {
		Accept(v, &s.items[i])
	}
}

func (s *Slice[T]) Sever(d *Destroyer) {
	for i := range s.items {
		Release(d, &s.items[i])
	}
	s.items = nil
}

// Borrowed is a non-owning marker: it never contributes to a strong count
// and is always a no-op to Trace/Sever. Useful for payloads that need to
// refer to an allocation without owning it or influencing its reachability.
type Borrowed[T Traceable] struct {
	box *Box[T]
}

// Borrow produces a non-owning view of g. The view does not keep g's
// allocation alive: it is the caller's responsibility to ensure a strong
// Gc to the same allocation outlives every Borrowed derived from it.
func Borrow[T Traceable](g Gc[T]) Borrowed[T] {
	return Borrowed[T]{box: g.box}
}

// Deref returns the borrowed payload. Panics (when Debug is set) if the
// underlying allocation has already been destroyed.
func (b Borrowed[T]) Deref() T {
	return *b.box.deref()
}

func (Borrowed[T]) Trace(*Visitor)   {}
func (Borrowed[T]) Sever(*Destroyer) {}
