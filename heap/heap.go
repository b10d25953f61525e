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

// Package heap implements manually managed heap containers on top of a raw allocator:
// Box, an exclusive owner of one value, and Ref/Weak, a reference counted shared owner
// with weak observers.
//
// Every allocation goes through the Allocator bound with SetAllocator and is counted by
// package trace. Values live in memory the garbage collector never scans, so a boxed type
// must be plain data: no pointers, strings, slices, maps, channels, funcs or interfaces.
//
// Nothing in this package is safe for concurrent use.
package heap

import (
	"errors"
	"fmt"
	"reflect"
	"unsafe"

	"github.com/cloudwego/heapx/trace"
	"github.com/cloudwego/heapx/unsafex/malloc"
)

var (
	// ErrOutOfMemory is returned when the allocator can not serve a request.
	ErrOutOfMemory = errors.New("heap: out of memory")

	// ErrExhausted is returned when a generator runs dry before an array is filled.
	ErrExhausted = errors.New("heap: generator exhausted")
)

// Dropper is implemented by values that need teardown before their memory is released.
// Drop is called on Box.Free and when the last strong Ref is released,
// never when the value is moved out. Arrays of Droppers drop every element.
type Dropper interface {
	Drop()
}

var dropperType = reflect.TypeFor[Dropper]()

// drop tears down *p: the value itself if it is a Dropper, otherwise every element of an
// array, recursively, in index order.
func drop[T any](p *T) {
	if d, ok := any(p).(Dropper); ok {
		d.Drop()
		return
	}
	dropElems(reflect.TypeFor[T](), unsafe.Pointer(p))
}

func dropElems(t reflect.Type, p unsafe.Pointer) {
	if t.Kind() != reflect.Array || t.Len() == 0 {
		return
	}
	et := t.Elem()
	droppable := reflect.PointerTo(et).Implements(dropperType)
	if !droppable && et.Kind() != reflect.Array {
		return
	}
	for i := 0; i < t.Len(); i++ {
		ep := unsafe.Add(p, uintptr(i)*et.Size())
		if droppable {
			reflect.NewAt(et, ep).Interface().(Dropper).Drop()
		} else {
			dropElems(et, ep)
		}
	}
}

var allocator malloc.Allocator = malloc.NewHostAllocator()

// SetAllocator binds a as the allocator for all later allocations and returns the previous one.
// Boxes and references allocated through the previous allocator must be released
// before it is rebound.
func SetAllocator(a malloc.Allocator) malloc.Allocator {
	prev := allocator
	allocator = a
	return prev
}

// Size returns the number of bytes a Box[T] holds.
func Size[T any]() int {
	var zero T
	return int(unsafe.Sizeof(zero))
}

// alloc returns room for one T, or nil if the allocator fails.
func alloc[T any]() *T {
	mustBePlain(reflect.TypeFor[T]())
	size := Size[T]()
	n := size
	if n == 0 {
		// a zero-sized value still needs a unique, non-nil address
		n = 1
	}
	p := allocator.Malloc(n)
	if p == nil {
		return nil
	}
	trace.Increment(size)
	return (*T)(p)
}

func dealloc[T any](p *T) {
	allocator.Free(unsafe.Pointer(p))
	trace.Decrement(Size[T]())
}

func mustBePlain(t reflect.Type) {
	if !isPlain(t) {
		panic(fmt.Sprintf("heap: %v contains Go pointers and can not live in manually managed memory", t))
	}
}

func isPlain(t reflect.Type) bool {
	switch k := t.Kind(); {
	case k >= reflect.Bool && k <= reflect.Complex128:
		return true
	case k == reflect.Array:
		return t.Len() == 0 || isPlain(t.Elem())
	case k == reflect.Struct:
		for i := 0; i < t.NumField(); i++ {
			if !isPlain(t.Field(i).Type) {
				return false
			}
		}
		return true
	}
	return false
}

func nilPointer() {
	panic("heap: unexpected nil pointer")
}
