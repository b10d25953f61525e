/*
 * Copyright 2025 CloudWeGo Authors
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package malloc

import (
	"unsafe"

	"github.com/bytedance/gopkg/lang/mcache"
)

var _ Allocator = (*HostAllocator)(nil)

// HostAllocator serves allocations from the Go heap through mcache.
//
// Live blocks are kept in a map keyed by their data pointer, so Free only needs the pointer
// and the blocks stay reachable until they are freed.
// The memory is typed as bytes and never scanned by the garbage collector.
type HostAllocator struct {
	live map[unsafe.Pointer][]byte
}

// NewHostAllocator creates a HostAllocator.
func NewHostAllocator() *HostAllocator {
	return &HostAllocator{live: make(map[unsafe.Pointer][]byte)}
}

// Malloc implements Allocator.
func (a *HostAllocator) Malloc(size int) unsafe.Pointer {
	if size <= 0 {
		return nil
	}
	// small blocks may come from the tiny allocator, which only aligns to their size
	n := size
	if n < MaxAlign {
		n = MaxAlign
	}
	buf := mcache.Malloc(n)
	p := unsafe.Pointer(&buf[0])
	a.live[p] = buf
	return p
}

// Free implements Allocator.
// Panics on a pointer that is not live, which catches double frees.
func (a *HostAllocator) Free(p unsafe.Pointer) {
	if p == nil {
		return
	}
	buf, ok := a.live[p]
	if !ok {
		panic("malloc: double free or invalid pointer")
	}
	delete(a.live, p)
	mcache.Free(buf)
}

// Len returns the number of live blocks.
func (a *HostAllocator) Len() int {
	return len(a.live)
}
