// Copyright 2024 Francis Michael Stephens. All rights reserved.  Use of this
// source code is governed by an MIT license that can be found in the LICENSE
// file.

// Package arena allocates and frees fixed-type, pointer-free Go values off the
// Go-scanned heap.
//
// cyclegc's Box[T] headers always hold Gc fields, i.e. ordinary Go pointers,
// and therefore always live on the normal Go heap where the runtime collector
// can see them. But trivial leaf payloads (ints, floats, fixed-size structs
// of these) never hold a managed pointer at all, so they are a natural fit
// for off-heap storage: placing a large number of small, short-lived leaves
// outside the scanned heap keeps them from adding to the runtime collector's
// scan work.
//
// A Ref returned by Alloc is a plain uint64 (a masked address plus a
// one-byte generation counter), never a conventional Go pointer, so holding
// one costs the Go garbage collector nothing.
package arena
