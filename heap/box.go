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

package heap

import (
	"fmt"

	"github.com/cloudwego/heapx/unsafex"
)

// Box exclusively owns one value of type T in manually managed memory.
//
// A Box must be released exactly once: by Free, by IntoInner, or by handing the pointer out
// with IntoRaw. After that the Box is empty and any access to the value panics.
type Box[T any] struct {
	ptr *T
}

// New moves v into a new Box.
// It returns nil if the allocation fails; v is left untouched with the caller then.
func New[T any](v T) *Box[T] {
	u := NewUninit[T]()
	if u == nil {
		return nil
	}
	u.Write(v)
	return u.AssumeInit()
}

// FromRaw takes ownership of a pointer returned by Box.IntoRaw.
//
// The pointer must not have been reclaimed already. Calling FromRaw twice with the same
// pointer, or with a pointer from anywhere else, leads to a double free.
func FromRaw[T any](p *T) *Box[T] {
	if p == nil {
		nilPointer()
	}
	return &Box[T]{ptr: p}
}

// Inner returns a pointer to the value. It panics if the box is empty.
func (b *Box[T]) Inner() *T {
	if b == nil || b.ptr == nil {
		nilPointer()
	}
	return b.ptr
}

// Get returns a copy of the value.
func (b *Box[T]) Get() T {
	return *b.Inner()
}

// Set overwrites the value. The old value is not dropped.
func (b *Box[T]) Set(v T) {
	*b.Inner() = v
}

// Bytes returns the memory of the value without copy.
func (b *Box[T]) Bytes() []byte {
	return unsafex.BytesOf(b.Inner())
}

// IntoInner moves the value out and releases the memory.
func (b *Box[T]) IntoInner() T {
	p := b.take()
	v := *p
	dealloc(p)
	return v
}

// IntoRaw gives up ownership without releasing anything.
// The caller becomes responsible for passing the pointer back to FromRaw eventually.
func (b *Box[T]) IntoRaw() *T {
	return b.take()
}

// Free drops the value and releases the memory. Free on an empty box does nothing.
func (b *Box[T]) Free() {
	if b == nil || b.ptr == nil {
		return
	}
	p := b.take()
	drop(p)
	dealloc(p)
}

func (b *Box[T]) String() string {
	if b == nil || b.ptr == nil {
		return "<nil>"
	}
	return fmt.Sprint(*b.ptr)
}

func (b *Box[T]) take() *T {
	p := b.Inner()
	b.ptr = nil
	return p
}
