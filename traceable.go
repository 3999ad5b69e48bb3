// Copyright 2024 Francis Michael Stephens. All rights reserved.  Use of this
// source code is governed by an MIT license that can be found in the LICENSE
// file.

package cyclegc

import (
	"fmt"
	"math"
)

// Debug gates traversal-contract assertions: violating the traversal
// contract is undefined behaviour, but a debug build is expected to catch
// what it can. Off by default for zero overhead; flip it on in tests.
var Debug = false

// Traceable is the obligation every payload type must satisfy to be wrapped
// in a Gc[T]: report every managed pointer it directly owns.
//
// Trace is used for both the graph-build and the sweep passes of a
// collection — one "accept" method serving two visitor flavors; it must
// call Accept once for every Gc field the receiver directly owns, and must
// never report a pointer it does not own.
//
// Sever is used only during the destroy pass and must call
// Release once for every Gc field the receiver directly owns, exactly the
// same set Trace would report — Release takes care of nulling the field and
// deciding whether to recurse.
type Traceable interface {
	Trace(v *Visitor)
	Sever(d *Destroyer)
}

// Visitor accumulates state across one traversal of the registered
// allocations' reference graph. The same type serves both the graph-build
// pass (accumulating refState) and the sweep pass (accumulating reachable);
// which behaviour Accept performs is selected by sweep.
type Visitor struct {
	sweep bool

	// graph-build pass state
	visited  map[AllocationId]struct{}
	refState map[AllocationId]uint64

	// sweep pass state (reachable doubles as "already visited this pass",
	// exactly as in the reference implementation: a Sweep visitor needs no
	// separate visited set)
	reachable map[AllocationId]struct{}
}

func newGraphVisitor() *Visitor {
	return &Visitor{
		visited:  make(map[AllocationId]struct{}),
		refState: make(map[AllocationId]uint64),
	}
}

func newSweepVisitor() *Visitor {
	return &Visitor{
		sweep:     true,
		reachable: make(map[AllocationId]struct{}),
	}
}

// Accept is the generic free-function realization of a visitor's
// "visit(child)" call: Go does not allow an interface method to carry its
// own type parameter, so Traceable.Trace implementations call this
// directly, once per Gc field they own, instead of calling a method on v.
func Accept[T Traceable](v *Visitor, child *Gc[T]) {
	box := child.box
	if box == nil {
		return
	}
	id := box.id()

	if v.sweep {
		if _, seen := v.reachable[id]; seen {
			return
		}
		v.reachable[id] = struct{}{}
		box.value.Trace(v)
		return
	}

	v.refState[id] = saturatingAdd(v.refState[id], 1)
	if _, seen := v.visited[id]; seen {
		return
	}
	v.visited[id] = struct{}{}
	box.value.Trace(v)
}

// Destroyer drives Pass 3 of a collection: it nulls out every Gc field in the
// doomed subgraph before recursing, and accumulates the boxes that have been
// torn down so they stay reachable (and so their memory stays a valid,
// logically-dead image) for the remainder of the pass.
type Destroyer struct {
	reachable map[AllocationId]struct{}
	visited   map[AllocationId]struct{}
	queue     []any
}

// Release is the destroy-pass analogue of Accept: Traceable.Sever
// implementations call this once per Gc field they own. It always nulls the
// field. If the referenced box is still reachable from outside the doomed
// subgraph, Release stops there — the box stays alive, and not recursing
// into it is correct because a live box's own fields must not be touched by
// someone else's teardown. If the box has already been torn down by some
// other path into the same cycle, Release also stops, to guarantee every box
// is destroyed exactly once. Otherwise it tears the child down in full.
func Release[T Traceable](d *Destroyer, child *Gc[T]) {
	box := child.box
	if box == nil {
		return
	}
	id := box.id()
	*child = Gc[T]{}

	if _, alive := d.reachable[id]; alive {
		return
	}
	if _, done := d.visited[id]; done {
		return
	}
	d.visited[id] = struct{}{}
	finalizeBox(d, box)
}

// finalizeBox performs the four per-allocation steps of the destroy pass:
// force the count to zero, sever (and possibly recurse into) its children,
// queue it for end-of-pass handling, then run any Teardown hook. It is
// called both from the top-level registry drain in collectAll and
// recursively from Release.
func finalizeBox[T Traceable](d *Destroyer, box *Box[T]) {
	box.refCount.Store(0)

	func() {
		defer containDestructorPanic()
		box.value.Sever(d)
	}()

	box.destroyed = true
	d.queue = append(d.queue, box)

	t, ok := any(box.value).(Teardown)
	if !ok {
		t, ok = any(&box.value).(Teardown)
	}
	if ok {
		defer containDestructorPanic()
		t.Teardown()
	}
}

func containDestructorPanic() {
	if r := recover(); r != nil {
		// A panicking destructor must not stop the rest of the collection
		// queue from being processed. We contain it here and move on; there
		// is nowhere meaningful to report it to, since Collect() returns
		// nothing.
	}
}

// Teardown is the Go-native analogue of a payload destructor: Go has no
// destructors, so a payload that needs one implements this interface and
// cyclegc invokes it explicitly, exactly once, when the collector determines
// the payload is unreachable (or when the acyclic fast path drops its last
// strong reference).
type Teardown interface {
	Teardown()
}

func saturatingAdd(n uint64, delta uint64) uint64 {
	if math.MaxUint64-n < delta {
		return math.MaxUint64
	}
	return n + delta
}

func assertf(cond bool, format string, args ...any) {
	if !Debug || cond {
		return
	}
	panic(fmt.Sprintf(format, args...))
}
