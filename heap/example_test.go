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

package heap_test

import (
	"fmt"

	"github.com/cloudwego/heapx/heap"
)

func Example() {
	r := heap.NewRef([9]byte([]byte("Testolope")))
	if r == nil {
		panic("out of memory")
	}
	w := r.Downgrade()
	fmt.Println(w.StrongCount(), w.WeakCount())

	r.Release()
	fmt.Println(w.StrongCount(), w.WeakCount(), w.Upgrade() == nil)
	w.Release()

	// Output:
	// 1 1
	// 0 1 true
}

func ExampleUninitBox() {
	u := heap.NewUninit[[4]uint16]()
	if u == nil {
		panic("out of memory")
	}
	for i := range u.Ptr() {
		u.Ptr()[i] = uint16(i * 10)
	}
	b := u.AssumeInit()
	fmt.Println(b.IntoInner())

	// Output:
	// [0 10 20 30]
}
