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
	"unsafe"
)

// counter is the record shared by every Ref and Weak of one value.
// It lives in its own allocation and outlives the value while weak references remain.
type counter struct {
	strong uint
	weak   uint
}

// Overhead is the size of the counter record allocated next to every shared value.
const Overhead = int(unsafe.Sizeof(counter{}))

// RefSize returns the number of bytes a Ref[T] family holds while its value is alive.
func RefSize[T any]() int {
	return Size[T]() + Overhead
}

// Ref is a strong, reference counted handle to a shared value.
//
// The value is alive as long as at least one Ref is. Each Ref must be released exactly once,
// by Release or by a successful TryUnwrap; it is empty afterwards.
// The counts are plain integers: handles of one family must never be used concurrently.
type Ref[T any] struct {
	value *T
	refs  *counter
}

// Weak observes a shared value without keeping it alive.
// It keeps the counter record alive until it is released.
type Weak[T any] struct {
	value *T
	refs  *counter
}

// NewRef moves v into a new shared value with one strong reference.
// It returns nil if either allocation fails; v is left untouched with the caller then.
func NewRef[T any](v T) *Ref[T] {
	b := New(v)
	if b == nil {
		return nil
	}
	r := NewRefFromBox(b)
	if r == nil {
		b.IntoInner()
		return nil
	}
	return r
}

// NewRefFromBox moves the value of b into a new shared value with one strong reference.
// On success b is left empty. It returns nil if the counter can not be allocated,
// in which case b is left as it was.
func NewRefFromBox[T any](b *Box[T]) *Ref[T] {
	b.Inner()
	refs := New(counter{strong: 1})
	if refs == nil {
		return nil
	}
	return &Ref[T]{value: b.IntoRaw(), refs: refs.IntoRaw()}
}

// Inner returns a pointer to the shared value. It panics if r has been released.
func (r *Ref[T]) Inner() *T {
	if r == nil || r.value == nil {
		nilPointer()
	}
	return r.value
}

// Get returns a copy of the shared value.
func (r *Ref[T]) Get() T {
	return *r.Inner()
}

// StrongCount returns the number of strong references.
func (r *Ref[T]) StrongCount() uint {
	return r.counter().strong
}

// WeakCount returns the number of weak references.
func (r *Ref[T]) WeakCount() uint {
	return r.counter().weak
}

// Clone returns another strong reference to the same value.
func (r *Ref[T]) Clone() *Ref[T] {
	r.counter().strong++
	return &Ref[T]{value: r.value, refs: r.refs}
}

// Downgrade returns a weak reference to the same value.
func (r *Ref[T]) Downgrade() *Weak[T] {
	r.counter().weak++
	return &Weak[T]{value: r.value, refs: r.refs}
}

// Release drops this strong reference.
// The last strong reference drops the value and releases its memory; the counter record
// goes too unless weak references remain. Release on an empty Ref does nothing.
func (r *Ref[T]) Release() {
	if r == nil || r.refs == nil {
		return
	}
	value, c := r.value, r.refs
	r.value, r.refs = nil, nil

	c.strong--
	if c.strong > 0 {
		return
	}
	// Drop may release the last Weak of this value held outside of it,
	// e.g. in a package variable; hold one so the record outlives the drop.
	c.weak++
	FromRaw(value).Free()
	c.weak--
	if c.weak == 0 {
		FromRaw(c).Free()
	}
}

// TryUnwrapBox takes the value out if r is the only strong reference.
//
// On success r is left empty, the value is moved into a new Box without being copied,
// and the counter record is released unless weak references remain; those can no longer
// be upgraded. Otherwise r and every count are left as they were and false is returned.
func (r *Ref[T]) TryUnwrapBox() (*Box[T], bool) {
	c := r.counter()
	if c.strong > 1 {
		return nil, false
	}
	value := r.value
	r.value, r.refs = nil, nil

	c.strong = 0
	if c.weak == 0 {
		FromRaw(c).Free()
	}
	return FromRaw(value), true
}

// TryUnwrap is like TryUnwrapBox but moves the value out of the Box as well.
func (r *Ref[T]) TryUnwrap() (T, bool) {
	b, ok := r.TryUnwrapBox()
	if !ok {
		var zero T
		return zero, false
	}
	return b.IntoInner(), true
}

func (r *Ref[T]) String() string {
	if r == nil || r.value == nil {
		return "<nil>"
	}
	return fmt.Sprint(*r.value)
}

func (r *Ref[T]) counter() *counter {
	if r == nil || r.refs == nil {
		nilPointer()
	}
	return r.refs
}

// StrongCount returns the number of strong references.
func (w *Weak[T]) StrongCount() uint {
	return w.counter().strong
}

// WeakCount returns the number of weak references.
func (w *Weak[T]) WeakCount() uint {
	return w.counter().weak
}

// Upgrade returns a new strong reference, or nil if the value is gone.
// A value is never brought back once its last strong reference was released.
func (w *Weak[T]) Upgrade() *Ref[T] {
	c := w.counter()
	if c.strong == 0 {
		return nil
	}
	c.strong++
	return &Ref[T]{value: w.value, refs: w.refs}
}

// Clone returns another weak reference to the same value.
func (w *Weak[T]) Clone() *Weak[T] {
	w.counter().weak++
	return &Weak[T]{value: w.value, refs: w.refs}
}

// Release drops this weak reference, releasing the counter record if it was the last
// reference of any kind. Release on an empty Weak does nothing.
func (w *Weak[T]) Release() {
	if w == nil || w.refs == nil {
		return
	}
	c := w.refs
	w.value, w.refs = nil, nil

	c.weak--
	if c.strong == 0 && c.weak == 0 {
		FromRaw(c).Free()
	}
}

func (w *Weak[T]) counter() *counter {
	if w == nil || w.refs == nil {
		nilPointer()
	}
	return w.refs
}
