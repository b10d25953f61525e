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

// Package malloc provides raw allocate/deallocate bindings for manually managed memory.
//
// None of the allocators in this package are safe for concurrent use.
// Callers are expected to run on a single goroutine or to serialize access themselves.
package malloc

import "unsafe"

// MaxAlign is the alignment every Allocator guarantees for returned memory.
const MaxAlign = 8

// Allocator is the raw allocate/deallocate pair.
//
// Malloc returns a pointer to at least size bytes, or nil if the request can not be served.
// The memory is not zeroed. Malloc never panics on allocation failure.
//
// Free releases memory returned by a matching Malloc of the same Allocator.
// Freeing a pointer twice, or a pointer that was never returned by Malloc, is undefined.
// Implementations may panic when they detect such misuse.
type Allocator interface {
	Malloc(size int) unsafe.Pointer
	Free(p unsafe.Pointer)
}
