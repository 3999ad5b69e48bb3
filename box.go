// Copyright 2024 Francis Michael Stephens. All rights reserved.  Use of this
// source code is governed by an MIT license that can be found in the LICENSE
// file.

package cyclegc

import (
	"sync/atomic"
	"unsafe"
)

// AllocationId uniquely and stably identifies a live Box for as long as it
// lives. It is derived from the address of the box's own reference count, so
// it is never reused while the box is alive: Go's collector does not
// relocate heap objects that are reachable through ordinary pointers, so this
// address stays fixed.
type AllocationId uintptr

// Box is the heap record backing every Gc[T]: a strong reference count plus
// the payload. Box is never constructed directly by callers of this package;
// New creates one and returns a Gc[T] wrapping it.
type Box[T Traceable] struct {
	refCount  atomic.Uint64
	value     T
	destroyed bool
}

func newBox[T Traceable](value T) *Box[T] {
	b := &Box[T]{value: value}
	b.refCount.Store(1)
	return b
}

// id returns the box's AllocationId: the address of refCount, not of the Box
// itself, so the identity survives a hypothetical future layout change that
// adds fields before refCount.
func (b *Box[T]) id() AllocationId {
	return AllocationId(uintptr(unsafe.Pointer(&b.refCount)))
}

func (b *Box[T]) incRef() {
	b.refCount.Add(1)
}

// decRef decrements the strong count and returns the value after the
// decrement, so the caller can detect the zero crossing.
func (b *Box[T]) decRef() uint64 {
	return b.refCount.Add(^uint64(0))
}

func (b *Box[T]) refs() uint64 {
	return b.refCount.Load()
}

// deref returns a pointer to the payload. Panics in debug mode if the box has
// already been destroyed; deref is only ever meant to be called while
// refCount > 0, and a destroyed box's count is forced to zero before
// teardown.
func (b *Box[T]) deref() *T {
	assertf(!b.destroyed, "cyclegc: deref called on a destroyed box")
	return &b.value
}
