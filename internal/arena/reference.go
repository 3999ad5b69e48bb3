// Copyright 2024 Francis Michael Stephens. All rights reserved.  Use of this
// source code is governed by an MIT license that can be found in the LICENSE
// file.

package arena

import (
	"fmt"
	"unsafe"
)

const genShift = 56 // leaves 8 bits of generation tag in the top byte
const genMask = uint64(0xFF << genShift)
const addrMask = ^genMask

// Ref is a handle to a value allocated by a Store[T]. It carries no
// conventional Go pointer: the address is masked into the low 56 bits of an
// otherwise opaque uint64, with a one-byte generation tag in the high byte
// used to make use-after-free a best-effort panic rather than silent
// corruption.
type Ref[T any] struct {
	address uint64
}

type slot[T any] struct {
	nextFree Ref[T]
	gen      uint8
	value    T
}

func newRef[T any](s *slot[T]) Ref[T] {
	if s == nil {
		panic("arena: cannot build a Ref around a nil slot")
	}

	addr := uint64(uintptr(unsafe.Pointer(s)))
	masked := addr & addrMask
	if masked != addr {
		panic(fmt.Errorf("arena: address %#x does not fit in %d bits", addr, genShift))
	}

	return Ref[T]{address: masked}
}

func (r *Ref[T]) slot() *slot[T] {
	return (*slot[T])(unsafe.Pointer(uintptr(r.address & addrMask)))
}

// IsNil reports whether r is the zero Ref, i.e. not currently pointing at any
// allocation.
func (r Ref[T]) IsNil() bool {
	return r.address&addrMask == 0
}

func (r *Ref[T]) gen() uint8 {
	return uint8((r.address & genMask) >> genShift)
}

func (r *Ref[T]) setGen(gen uint8) {
	r.address = (r.address & addrMask) | (uint64(gen) << genShift)
}

// Value returns a pointer to the referenced value. Panics if the allocation
// has already been freed or if r is stale (points at a slot that has since
// been reused by a new allocation).
func (r Ref[T]) Value() *T {
	s := r.slot()
	if !s.nextFree.IsNil() {
		panic(fmt.Errorf("arena: use of freed reference %#x", r.address))
	}
	if s.gen != r.gen() {
		panic(fmt.Errorf("arena: stale reference %#x (slot generation %d)", r.address, s.gen))
	}
	return &s.value
}
