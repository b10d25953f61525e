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

import "unsafe"

var _ Allocator = (*LimitAllocator)(nil)

// LimitAllocator fails every Malloc that would push the live bytes above a fixed budget.
// It's mostly used to exercise out-of-memory paths.
type LimitAllocator struct {
	a     Allocator
	limit int
	inuse int
	sizes map[unsafe.Pointer]int
}

// NewLimitAllocator wraps a with a budget of limit live bytes.
func NewLimitAllocator(a Allocator, limit int) *LimitAllocator {
	return &LimitAllocator{a: a, limit: limit, sizes: make(map[unsafe.Pointer]int)}
}

// Malloc implements Allocator.
func (l *LimitAllocator) Malloc(size int) unsafe.Pointer {
	if size <= 0 || l.inuse+size > l.limit {
		return nil
	}
	p := l.a.Malloc(size)
	if p == nil {
		return nil
	}
	l.inuse += size
	l.sizes[p] = size
	return p
}

// Free implements Allocator.
func (l *LimitAllocator) Free(p unsafe.Pointer) {
	if size, ok := l.sizes[p]; ok {
		l.inuse -= size
		delete(l.sizes, p)
	}
	l.a.Free(p)
}

// InUse returns the live bytes.
func (l *LimitAllocator) InUse() int { return l.inuse }

// SetLimit changes the budget. Live allocations are not affected.
func (l *LimitAllocator) SetLimit(limit int) { l.limit = limit }
