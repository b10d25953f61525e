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

// UninitBox is memory for one T that has not been initialized yet.
// Write the value (or fill it through Ptr) and finish with AssumeInit.
type UninitBox[T any] struct {
	ptr *T
}

// NewUninit allocates memory for one T without initializing it.
// It returns nil if the allocation fails.
func NewUninit[T any]() *UninitBox[T] {
	p := alloc[T]()
	if p == nil {
		return nil
	}
	return &UninitBox[T]{ptr: p}
}

// Ptr returns the pointer to the uninitialized memory.
func (u *UninitBox[T]) Ptr() *T {
	if u == nil || u.ptr == nil {
		nilPointer()
	}
	return u.ptr
}

// Write initializes the memory with v.
func (u *UninitBox[T]) Write(v T) {
	*u.Ptr() = v
}

// AssumeInit turns u into a Box and leaves u empty.
//
// Nothing is checked: the caller guarantees every byte of the value has been written with
// a valid T. Reading a value that was only partially written is undefined.
func (u *UninitBox[T]) AssumeInit() *Box[T] {
	p := u.Ptr()
	u.ptr = nil
	return &Box[T]{ptr: p}
}

// Free releases the memory without dropping anything. Free on an empty UninitBox does nothing.
func (u *UninitBox[T]) Free() {
	if u == nil || u.ptr == nil {
		return
	}
	p := u.ptr
	u.ptr = nil
	dealloc(p)
}
