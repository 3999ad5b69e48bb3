// Copyright 2024 Francis Michael Stephens. All rights reserved.  Use of this
// source code is governed by an MIT license that can be found in the LICENSE
// file.

package cyclegc

import (
	"testing"

	"github.com/fmstephe/cyclegc/testpkg/fuzzutil"
)

// FuzzDumpster drives random sequences of New/Clone/Drop/Collect over a
// small pool of nodes capable of referencing each other arbitrarily,
// including forming cycles. The only property checked is that none of this
// ever panics and that destruction is monotonic: once a node is torn down it
// never becomes live again.
func FuzzDumpster(f *testing.F) {
	for _, tc := range fuzzutil.MakeRandomTestCases() {
		f.Add(tc)
	}
	f.Fuzz(func(t *testing.T, bytes []byte) {
		tr := newDumpsterTestRun(bytes)
		tr.Run()
	})
}

func newDumpsterTestRun(bytes []byte) *fuzzutil.TestRun {
	pool := newFuzzPool()

	stepMaker := func(byteConsumer *fuzzutil.ByteConsumer) fuzzutil.Step {
		switch byteConsumer.Byte() % 4 {
		case 0:
			return &allocStep{pool: pool}
		case 1:
			return &cloneStep{pool: pool, from: byteConsumer.Uint32(), to: byteConsumer.Uint32()}
		case 2:
			return &dropStep{pool: pool, at: byteConsumer.Uint32()}
		case 3:
			return &collectStep{pool: pool}
		}
		panic("unreachable")
	}

	cleanup := func() {
		pool.dropAll()
		pool.d.Collect()
	}

	return fuzzutil.NewTestRun(bytes, stepMaker, cleanup)
}

// fuzzNode is a Traceable payload with a single outgoing edge, enough to let
// the fuzzer build chains, rings and self-cycles of arbitrary shape.
type fuzzNode struct {
	next Gc[*fuzzNode]
	torn *bool
}

func (n *fuzzNode) Trace(v *Visitor)   { Accept(v, &n.next) }
func (n *fuzzNode) Sever(d *Destroyer) { Release(d, &n.next) }
func (n *fuzzNode) Teardown() {
	if *n.torn {
		panic("cyclegc: fuzz node torn down twice")
	}
	*n.torn = true
}

// fuzzPool holds every handle the harness currently keeps as a root: a
// handle dropped from the pool releases the harness's own strong reference,
// but the node may still be kept alive by another node's next field.
type fuzzPool struct {
	d       *Dumpster
	handles []Gc[*fuzzNode]
	torn    []*bool
}

func newFuzzPool() *fuzzPool {
	return &fuzzPool{d: NewDumpster(WithMinDropsToCollect(8))}
}

func (p *fuzzPool) alloc() {
	torn := new(bool)
	g := New(p.d, &fuzzNode{torn: torn})
	p.handles = append(p.handles, g)
	p.torn = append(p.torn, torn)
}

// setNext rewires the node at "from" to point at the node at "to", dropping
// whatever it previously pointed at. Both indices are normalised into range;
// this is a no-op if the pool is empty or the pool's handle at "from" has
// already been dropped.
func (p *fuzzPool) setNext(from, to uint32) {
	if len(p.handles) == 0 {
		return
	}
	fromHandle := p.handles[from%uint32(len(p.handles))]
	if fromHandle.IsNil() {
		return
	}
	fromNode := fromHandle.Deref()
	toHandle := p.handles[to%uint32(len(p.handles))]

	Drop(p.d, &fromNode.next)
	fromNode.next = Clone(p.d, toHandle)
}

// dropOne releases the pool's own handle at the given index, if it is still
// holding one; an already-nil handle is left alone.
func (p *fuzzPool) dropOne(at uint32) {
	if len(p.handles) == 0 {
		return
	}
	i := at % uint32(len(p.handles))
	Drop(p.d, &p.handles[i])
}

func (p *fuzzPool) dropAll() {
	for i := range p.handles {
		Drop(p.d, &p.handles[i])
	}
}

type allocStep struct {
	pool *fuzzPool
}

func (s *allocStep) DoStep() { s.pool.alloc() }

type cloneStep struct {
	pool     *fuzzPool
	from, to uint32
}

func (s *cloneStep) DoStep() { s.pool.setNext(s.from, s.to) }

type dropStep struct {
	pool *fuzzPool
	at   uint32
}

func (s *dropStep) DoStep() { s.pool.dropOne(s.at) }

type collectStep struct {
	pool *fuzzPool
}

func (s *collectStep) DoStep() { s.pool.d.Collect() }
