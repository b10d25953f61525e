//go:build heapx_notrace

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

package trace

// Enabled reports whether the counter is compiled in.
const Enabled = false

// Allocated returns the number of live bytes.
func Allocated() int { return 0 }

// Increment adds n live bytes. Called by package heap after each allocation.
func Increment(n int) {}

// Decrement removes n live bytes. Called by package heap after each deallocation.
func Decrement(n int) {}
