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

import "errors"

var _ Allocator = (*ArenaAllocator)(nil)

// ArenaAllocator runs a BuddyAllocator over a region reserved once at creation.
// It models a fixed firmware heap: nothing is ever returned to the host until Close.
type ArenaAllocator struct {
	*BuddyAllocator

	unmap func() error
}

// NewArenaAllocator reserves an arena sized by opt and returns an allocator on top of it.
// DefaultOption is used if opt is nil.
func NewArenaAllocator(opt *Option) (*ArenaAllocator, error) {
	if opt == nil {
		opt = DefaultOption()
	}
	if opt.MaxBlockSize <= 0 {
		return nil, errors.New("MaxBlockSize must be positive")
	}
	arena, unmap, err := mapArena(opt.arenaSize())
	if err != nil {
		return nil, err
	}
	b, err := NewBuddyAllocatorWithBlockSize(arena, opt.MinBlockSize, opt.MaxBlockSize)
	if err != nil {
		_ = unmap()
		return nil, err
	}
	return &ArenaAllocator{BuddyAllocator: b, unmap: unmap}, nil
}

// Size returns the size of the reserved arena in bytes.
func (a *ArenaAllocator) Size() int {
	return len(a.arena)
}

// Close releases the arena. Every pointer returned by Malloc becomes invalid.
func (a *ArenaAllocator) Close() error {
	if a.unmap == nil {
		return nil
	}
	err := a.unmap()
	a.unmap = nil
	// an empty allocator: every Malloc fails from now on
	b := a.BuddyAllocator
	b.arena, b.arenaStart = nil, nil
	b.freeLists = make([][]int, b.maxBlockOrder+1)
	b.needsCoalesce = false
	return err
}
