// Copyright 2024 Francis Michael Stephens. All rights reserved.  Use of this
// source code is governed by an MIT license that can be found in the LICENSE
// file.

package cyclegc

// cleanupRecord is the type-erased entry the registry keeps for one possibly
// dead allocation. Closing over T's concrete Box here erases it from the
// registry's own map type without needing unsafe pointer casting: the
// closures already know their own T, so the registry never has to.
type cleanupRecord struct {
	id    AllocationId
	refs  func() uint64
	trace func(v *Visitor)
	sever func(d *Destroyer)
}

func newCleanupRecord[T Traceable](box *Box[T]) *cleanupRecord {
	return &cleanupRecord{
		id:   box.id(),
		refs: box.refs,
		trace: func(v *Visitor) {
			box.value.Trace(v)
		},
		sever: func(d *Destroyer) {
			finalizeBox(d, box)
		},
	}
}

// collectAll runs one full collection over d's registry: three passes,
// build the reference graph, sweep from the roots it reveals, then destroy
// whatever the sweep failed to reach.
func collectAll(d *Dumpster) {
	graph := newGraphVisitor()
	for id, rec := range d.registry {
		if _, seen := graph.visited[id]; seen {
			continue
		}
		graph.visited[id] = struct{}{}
		rec.trace(graph)
	}

	sweep := newSweepVisitor()
	for id, rec := range d.registry {
		discovered, traced := graph.refState[id]
		assertf(!traced || rec.refs() >= discovered,
			"cyclegc: traversal contract violation: %d inbound edges traced to an allocation with %d strong references", discovered, rec.refs())
		isRoot := !traced || rec.refs() != discovered
		if !isRoot {
			continue
		}
		if _, seen := sweep.reachable[id]; seen {
			continue
		}
		sweep.reachable[id] = struct{}{}
		rec.trace(sweep)
	}

	destroyer := &Destroyer{
		reachable: sweep.reachable,
		visited:   make(map[AllocationId]struct{}),
	}
	for id, rec := range d.registry {
		if _, reachable := destroyer.reachable[id]; reachable {
			continue
		}
		if _, done := destroyer.visited[id]; done {
			continue
		}
		destroyer.visited[id] = struct{}{}
		rec.sever(destroyer)
	}
	d.registry = make(map[AllocationId]*cleanupRecord)

	// destroyer.queue is retained for the duration of the pass so every
	// torn-down box stays a valid (if logically dead) memory image while
	// Sever calls for siblings in the same cycle may still be running;
	// nothing further needs to read it once the pass is complete.
	_ = destroyer.queue
}
