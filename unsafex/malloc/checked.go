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
	"fmt"
	"log"
	"sort"
	"unsafe"
)

var _ Allocator = (*CheckedAllocator)(nil)

// CheckedAllocator records every live block of the wrapped allocator.
// Freeing a pointer it does not know about panics, and Report lists whatever was never freed.
type CheckedAllocator struct {
	a    Allocator
	live map[unsafe.Pointer]int

	// Logf is used by Report. By default it's log.Printf.
	Logf func(format string, args ...interface{})
}

// NewCheckedAllocator wraps a.
func NewCheckedAllocator(a Allocator) *CheckedAllocator {
	return &CheckedAllocator{a: a, live: make(map[unsafe.Pointer]int), Logf: log.Printf}
}

// Malloc implements Allocator.
func (c *CheckedAllocator) Malloc(size int) unsafe.Pointer {
	p := c.a.Malloc(size)
	if p != nil {
		c.live[p] = size
	}
	return p
}

// Free implements Allocator.
func (c *CheckedAllocator) Free(p unsafe.Pointer) {
	if _, ok := c.live[p]; !ok {
		panic(fmt.Sprintf("malloc: free of unknown pointer %p", p))
	}
	delete(c.live, p)
	c.a.Free(p)
}

// Outstanding returns the number of live blocks and their total size.
func (c *CheckedAllocator) Outstanding() (blocks, bytes int) {
	for _, sz := range c.live {
		bytes += sz
	}
	return len(c.live), bytes
}

// Report logs every live block, lowest address first, and returns how many there are.
func (c *CheckedAllocator) Report() int {
	if len(c.live) == 0 {
		return 0
	}
	ptrs := make([]unsafe.Pointer, 0, len(c.live))
	for p := range c.live {
		ptrs = append(ptrs, p)
	}
	sort.Slice(ptrs, func(i, j int) bool { return uintptr(ptrs[i]) < uintptr(ptrs[j]) })

	logf := c.Logf
	if logf == nil {
		logf = log.Printf
	}
	_, total := c.Outstanding()
	logf("MALLOC: %d blocks leaked, %d bytes", len(ptrs), total)
	for _, p := range ptrs {
		logf("MALLOC: leaked %d bytes at %p", c.live[p], p)
	}
	return len(ptrs)
}
