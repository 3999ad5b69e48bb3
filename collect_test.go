// Copyright 2024 Francis Michael Stephens. All rights reserved.  Use of this
// source code is governed by an MIT license that can be found in the LICENSE
// file.

package cyclegc

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func Test_Dumpster_Stats_TracksRegistryAndLiveRefs(t *testing.T) {
	d := NewDumpster(WithMinDropsToCollect(1000))

	g := New(d, &selfRefNode{})
	node := g.Deref()
	node.next = Clone(d, g)

	stats := d.Stats()
	assert.Equal(t, 2, stats.LiveRefs)
	assert.Equal(t, 0, stats.Registered)

	Drop(d, &g)
	stats = d.Stats()
	assert.Equal(t, 1, stats.LiveRefs)
	assert.Equal(t, 1, stats.Registered)
	assert.Equal(t, 1, stats.DropsSinceCollect)

	d.Collect()
	stats = d.Stats()
	assert.Equal(t, 0, stats.Registered)
	assert.Equal(t, 0, stats.DropsSinceCollect)
	assert.Equal(t, 1, stats.CollectionsRun)
}

func Test_Dumpster_Collect_NoOpOnCleanRegistry(t *testing.T) {
	d := NewDumpster()
	assert.NotPanics(t, func() { d.Collect() })
	assert.Equal(t, 1, d.Stats().CollectionsRun)
}

func Test_Dumpster_Collect_ReentrantCallIsNoOp(t *testing.T) {
	d := NewDumpster()
	reentered := false

	g := New(d, &selfRefNode{})
	node := g.Deref()
	node.next = Clone(d, g)
	node.onTeardown = func() {
		d.Collect()
		reentered = true
	}
	Drop(d, &g)

	assert.NotPanics(t, func() { d.Collect() })
	assert.True(t, reentered)
}

func Test_Drop_LastReferenceIsFreedWithoutRegistry(t *testing.T) {
	d := NewDumpster()

	var torn []string
	leafG := New(d, &teardownLeaf{onTeardown: func() { torn = append(torn, "leaf") }})

	root := New(d, &selfRefNode{onTeardown: func() { torn = append(torn, "root") }})
	_ = leafG

	Drop(d, &root)
	assert.Equal(t, []string{"root"}, torn, "a box with no remaining strong references must be freed immediately, without being added to the registry")
	assert.Equal(t, 0, d.Stats().Registered)
}

func Test_Teardown_PanicDoesNotHaltPass3(t *testing.T) {
	d := NewDumpster()
	var tornB bool

	a := New(d, &selfRefNode{onTeardown: func() { panic("boom") }})
	b := New(d, &selfRefNode{onTeardown: func() { tornB = true }})

	a.Deref().next = Clone(d, b)
	b.Deref().next = Clone(d, a)

	Drop(d, &a)
	Drop(d, &b)

	assert.NotPanics(t, func() { d.Collect() })
	assert.True(t, tornB, "a panic in one destructor must not stop the rest of the pass")
}
