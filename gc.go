// Copyright 2024 Francis Michael Stephens. All rights reserved.  Use of this
// source code is governed by an MIT license that can be found in the LICENSE
// file.

package cyclegc

// Gc is a strong, reference-counted smart pointer participating in a
// Dumpster's cycle collection. The zero value is a valid "null" Gc: IsNil
// reports true, and a null Gc is always a no-op to Accept/Release.
//
// Gc carries no implicit ownership of a Dumpster: every operation that can
// mutate the strong count (New, Clone, Drop) takes the Dumpster explicitly,
// rather than hiding it inside the handle.
//
// Methods cannot themselves be generic in Go, so the operations that need a
// type parameter beyond Gc's own T (New, Clone, Drop) are top-level generic
// functions rather than methods on Dumpster — the same shape as Accept and
// Release.
type Gc[T Traceable] struct {
	box *Box[T]
}

// IsNil reports whether g is the null Gc, i.e. the zero value or the result
// of Drop.
func (g Gc[T]) IsNil() bool {
	return g.box == nil
}

// Deref returns g's payload. Panics if g is nil; when Debug is set, also
// panics if g's box has already been destroyed.
//
// For a payload type that is itself a pointer (the usual shape for a type
// that owns Gc fields of its own, e.g. Gc[*Node[T]]), this hands back that
// pointer directly, so callers mutate the pointee's fields the ordinary Go
// way rather than through a second layer of indirection.
func (g Gc[T]) Deref() T {
	return *g.box.deref()
}

// New allocates value, wraps it in a Gc with a strong count of one, and
// accounts for the new live reference in d.
func New[T Traceable](d *Dumpster, value T) Gc[T] {
	d.liveRefs++
	return Gc[T]{box: newBox(value)}
}

// Clone increments g's strong count and returns a new handle to the same
// allocation, also accounted as a new live reference in d.
func Clone[T Traceable](d *Dumpster, g Gc[T]) Gc[T] {
	if g.box == nil {
		return Gc[T]{}
	}
	g.box.incRef()
	d.liveRefs++
	return Gc[T]{box: g.box}
}

// Drop releases g's strong reference. If this was the last strong reference,
// the acyclic fast path runs immediately: the box is removed from the
// registry if an earlier Drop recorded it there, and is destroyed without
// invoking Collect. Otherwise the box is recorded
// in d as possibly part of a dead cycle, and the trigger heuristic decides
// whether to run a collection now.
//
// After Drop returns, g must never be used again; Drop sets it to the nil Gc
// so a caller that keeps the (now-stale) variable around at least gets a
// predictable nil rather than a dangling handle.
func Drop[T Traceable](d *Dumpster, g *Gc[T]) {
	box := g.box
	if box == nil {
		return
	}
	*g = Gc[T]{}

	d.liveRefs--
	if d.liveRefs < 0 {
		d.liveRefs = 0
	}

	if box.decRef() == 0 {
		d.markCleaned(box.id())
		destroyAcyclic(box)
		return
	}

	d.markDirty(newCleanupRecord(box))
	d.dropsSinceCollect++
	if d.shouldCollect() {
		d.Collect()
	}
}

// destroyAcyclic runs the acyclic fast path: the box's count has already
// reached zero through an ordinary Drop, so it cannot be part of a dead
// cycle that needs graph tracing — Sever is reserved for the collector's
// own destroy pass and is deliberately not called here.
//
// Go runs no destructor when the last reference to a value goes away, so a
// payload that owns Gc fields is responsible for releasing them itself from
// Teardown, the same way a Go type holding an *os.File releases it from its
// own Close method rather than relying on a finalizer. When the collector's
// destroy pass runs Teardown after Sever has already nulled every child
// field, those release calls are no-ops (Drop on a nil Gc returns
// immediately), so a Teardown written this way is safe on both paths.
func destroyAcyclic[T Traceable](box *Box[T]) {
	box.destroyed = true
	t, ok := any(box.value).(Teardown)
	if !ok {
		t, ok = any(&box.value).(Teardown)
	}
	if ok {
		defer containDestructorPanic()
		t.Teardown()
	}
}
