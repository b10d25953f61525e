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

// Option configures an ArenaAllocator.
type Option struct {
	// ArenaSize is the number of bytes reserved up front.
	// It's rounded up to a multiple of MaxBlockSize.
	ArenaSize int

	// MinBlockSize is the smallest block handed out, header included.
	// Must be a power of two greater than 8.
	MinBlockSize int

	// MaxBlockSize is the largest block handed out, header included.
	// Must be a power of two.
	MaxBlockSize int
}

// DefaultOption returns the default values of Option.
func DefaultOption() *Option {
	return &Option{
		ArenaSize:    1 << 20,
		MinBlockSize: DefaultMinBlockSize,
		MaxBlockSize: DefaultMaxBlockSize,
	}
}

func (o *Option) arenaSize() int {
	n := o.ArenaSize
	if n < o.MaxBlockSize {
		n = o.MaxBlockSize
	}
	if r := n % o.MaxBlockSize; r != 0 {
		n += o.MaxBlockSize - r
	}
	return n
}
