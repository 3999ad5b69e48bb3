// Copyright 2024 Francis Michael Stephens. All rights reserved.  Use of this
// source code is governed by an MIT license that can be found in the LICENSE
// file.

package cyclegc

import (
	"sync"

	"github.com/fmstephe/flib/fmath"
)

// DumpsterStats reports registry bookkeeping for a Dumpster, in the same
// spirit as objectstore.Store's Stats() reporting.
type DumpsterStats struct {
	Registered        int
	LiveRefs          int
	DropsSinceCollect int
	CollectionsRun    int
}

// Dumpster is a collector registry: the set of allocations that may be part
// of a reference cycle and so cannot be freed by ordinary reference counting
// alone, plus enough bookkeeping to decide when to trace them.
//
// A Dumpster is not safe for concurrent use, the same way a bytes.Buffer or
// an objectstore.Store is not: callers that need concurrent access must
// provide their own external synchronisation.
type Dumpster struct {
	minDropsToCollect int

	registry map[AllocationId]*cleanupRecord

	liveRefs          int
	dropsSinceCollect int
	collectionsRun    int

	// collecting guards against a Collect() triggered from inside a
	// Teardown call, either directly or through a Drop that leaves a count
	// above zero and so re-enters shouldCollect's trigger path.
	collecting bool
}

// Option configures a Dumpster at construction time, in the usual
// functional-options shape.
type Option func(*Dumpster)

// WithMinDropsToCollect overrides the floor on the trigger heuristic that
// decides when to run a collection automatically. n <= 0 is ignored and the
// default of 16 is kept.
func WithMinDropsToCollect(n int) Option {
	return func(d *Dumpster) {
		if n > 0 {
			d.minDropsToCollect = n
		}
	}
}

// NewDumpster constructs an empty Dumpster, applying opts in order.
func NewDumpster(opts ...Option) *Dumpster {
	d := &Dumpster{
		minDropsToCollect: 16,
		registry:          make(map[AllocationId]*cleanupRecord),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

var (
	defaultMu       sync.Mutex
	defaultDumpster = NewDumpster()
)

// Default returns the package-level Dumpster. New, Clone and Drop always take
// a Dumpster explicitly; callers that do not want to construct and carry
// their own pass this one. Most programs with a single, unsynchronised ownership graph can use this
// instead of constructing and carrying their own.
func Default() *Dumpster {
	defaultMu.Lock()
	defer defaultMu.Unlock()
	return defaultDumpster
}

// SetDefault replaces the package-level default Dumpster. Intended for tests
// that want a clean registry without a process restart.
func SetDefault(d *Dumpster) {
	defaultMu.Lock()
	defer defaultMu.Unlock()
	defaultDumpster = d
}

// Stats reports the current registry bookkeeping.
func (d *Dumpster) Stats() DumpsterStats {
	return DumpsterStats{
		Registered:        len(d.registry),
		LiveRefs:          d.liveRefs,
		DropsSinceCollect: d.dropsSinceCollect,
		CollectionsRun:    d.collectionsRun,
	}
}

// markDirty registers rec as possibly belonging to a dead cycle. A box
// already in the registry keeps its earlier record, since a record only
// ever describes how to trace and sever the box's own fixed type, which
// does not change between Drop calls.
func (d *Dumpster) markDirty(rec *cleanupRecord) {
	if _, exists := d.registry[rec.id]; exists {
		return
	}
	d.registry[rec.id] = rec
}

// markCleaned removes id from the registry: used when the acyclic fast path
// proves a box was never actually part of a cycle. The collector does not
// call it; collectAll empties the whole registry at the end of its pass.
func (d *Dumpster) markCleaned(id AllocationId) {
	delete(d.registry, id)
}

// shouldCollect implements the trigger heuristic: collect once dirty drops
// since the last collection reach a floor that scales with how many
// references are currently live, so a program holding many long-lived
// references doesn't trigger constant small collections. The scaled floor is
// rounded up to the next power of two, so the trigger point lands on the
// same kind of round growth boundary a slab allocator sizes itself by,
// rather than drifting by one drop at a time as liveRefs changes.
func (d *Dumpster) shouldCollect() bool {
	threshold := d.minDropsToCollect
	if half := d.liveRefs / 2; half > threshold {
		threshold = int(fmath.NxtPowerOfTwo(int64(half)))
	}
	return d.dropsSinceCollect >= threshold
}

// Collect forces an immediate collection, tracing the registry for dead
// cycles and destroying whatever it finds. Safe to call when nothing is
// dirty: it is simply a no-op pass over an empty registry.
//
// Collect must not be called re-entrantly from within a Teardown triggered
// by a collection already in progress; the guard below turns that into a
// no-op rather than a corrupted second pass over the same registry.
func (d *Dumpster) Collect() {
	if d.collecting {
		return
	}
	d.collecting = true
	defer func() { d.collecting = false }()

	collectAll(d)
	d.dropsSinceCollect = 0
	d.collectionsRun++
}
