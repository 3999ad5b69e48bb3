// Copyright 2024 Francis Michael Stephens. All rights reserved.  Use of this
// source code is governed by an MIT license that can be found in the LICENSE
// file.

package arena

import (
	"fmt"
	"unsafe"

	"golang.org/x/sys/unix"
)

// slabLen is the number of slots carved out of each mmap'd region.
//
// TODO this is a fixed slot count, but really it should be sized by some
// fixed number of pages, with the number of slots that fit into each
// allocation determined dynamically from that.
const slabLen = 1024

func mmapSlab[T any]() *[slabLen]slot[T] {
	var s slot[T]
	slotSize := uint64(unsafe.Sizeof(s))

	data, err := unix.Mmap(-1, 0, int(slotSize*slabLen), unix.PROT_READ|unix.PROT_WRITE, unix.MAP_ANON|unix.MAP_PRIVATE)
	if err != nil {
		panic(fmt.Errorf("arena: mmap of %d bytes for %T failed: %w", slotSize*slabLen, s.value, err))
	}

	return (*[slabLen]slot[T])(unsafe.Pointer(&data[0]))
}

func munmapSlab[T any](slab *[slabLen]slot[T]) error {
	var s slot[T]
	slotSize := int(unsafe.Sizeof(s))
	b := unsafe.Slice((*byte)(unsafe.Pointer(slab)), slotSize*slabLen)
	return unix.Munmap(b)
}
