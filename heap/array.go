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
	"reflect"
	"unsafe"
)

// Defaulter provides the default value of a type.
type Defaulter[T any] interface {
	Default() T
}

// NewDefault allocates an array A = [N]T and sets every element to T's Default().
// It returns nil if the allocation fails.
func NewDefault[A any, T Defaulter[T]]() *Box[A] {
	var d T
	return NewFromFunc[A](d.Default)
}

// NewZeroed allocates a zeroed value of A.
// It returns nil if the allocation fails.
func NewZeroed[A any]() *Box[A] {
	var zero A
	return New(zero)
}

// NewFromFunc allocates an array A = [N]T and fills it with gen, calling it exactly once
// per element from index 0 to N-1. gen must always be able to produce a value;
// use TryNewFromFunc for a source that can run dry.
// It returns nil if the allocation fails, in which case gen is never called.
func NewFromFunc[A, T any](gen func() T) *Box[A] {
	n := arrayLen[A, T]()
	u := NewUninit[A]()
	if u == nil {
		return nil
	}
	elems := elements[A, T](u, n)
	for i := range elems {
		elems[i] = gen()
	}
	return u.AssumeInit()
}

// TryNewFromFunc is like NewFromFunc for a source that may run dry.
//
// If next reports false before the array is full, the elements produced so far are dropped,
// the memory is released and ErrExhausted is returned.
// ErrOutOfMemory is returned if the allocation fails.
func TryNewFromFunc[A, T any](next func() (T, bool)) (*Box[A], error) {
	n := arrayLen[A, T]()
	u := NewUninit[A]()
	if u == nil {
		return nil, ErrOutOfMemory
	}
	elems := elements[A, T](u, n)
	for i := 0; i < n; i++ {
		v, ok := next()
		if !ok {
			for j := range elems[:i] {
				drop(&elems[j])
			}
			u.Free()
			return nil, ErrExhausted
		}
		elems[i] = v
	}
	return u.AssumeInit(), nil
}

func arrayLen[A, T any]() int {
	at, et := reflect.TypeFor[A](), reflect.TypeFor[T]()
	if at.Kind() != reflect.Array || at.Elem() != et {
		panic(fmt.Sprintf("heap: %v is not an array of %v", at, et))
	}
	return at.Len()
}

func elements[A, T any](u *UninitBox[A], n int) []T {
	return unsafe.Slice((*T)(unsafe.Pointer(u.Ptr())), n)
}
