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

// Package trace counts the bytes currently held by heap boxes and references.
//
// The counter is a plain process-wide integer. It is not safe for concurrent use and it is
// never reset; after every box and reference has been released it reads 0 again.
//
// Build with -tags heapx_notrace to compile the counter out. Enabled is false then,
// Allocated always returns 0 and Increment/Decrement do nothing.
package trace
