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

import (
	"fmt"
	"math/bits"
	"unsafe"
)

const (
	// headerSize is the size of the header added to each allocation.
	// It also keeps returned pointers aligned to MaxAlign.
	headerSize = 8

	// magic is the magic number checked to detect double-free/invalid blocks.
	magic uint32 = 0xBADF00D

	// DefaultMinBlockSize is the default minimum block size.
	// Boxed values are small, so blocks start at 32 bytes (24 usable).
	DefaultMinBlockSize = 32

	// DefaultMaxBlockSize is the default maximum block size (64KB).
	DefaultMaxBlockSize = 64 * 1024
)

var _ Allocator = (*BuddyAllocator)(nil)

// BuddyAllocator is a buddy system allocator over a fixed arena.
type BuddyAllocator struct {
	// arena is the underlying memory slab we are managing.
	arena []byte

	// arenaStart is a cached pointer to the start of the arena.
	// Used for fast offset calculations in Free().
	arenaStart unsafe.Pointer

	// freeLists holds slices of free block offsets for each order.
	// freeLists[0] is for minBlockSize blocks (order 0).
	// freeLists[maxBlockOrder] is for maxBlockSize blocks (the largest).
	freeLists [][]int

	// needsCoalesce is a hint that adjacent free blocks may exist that can be merged.
	// Set to true on Free() of non-max-order blocks, cleared when coalescing fails.
	needsCoalesce bool

	minBlockSize  int
	minBlockShift int // log2(minBlockSize)
	maxBlockSize  int
	maxBlockOrder int // log2(maxBlockSize) - log2(minBlockSize)
}

// NewBuddyAllocator creates a new buddy allocator with default block sizes (32B min, 64KB max).
// The arena's size MUST be a multiple of the max block size.
func NewBuddyAllocator(arena []byte) (*BuddyAllocator, error) {
	return NewBuddyAllocatorWithBlockSize(arena, DefaultMinBlockSize, DefaultMaxBlockSize)
}

// NewBuddyAllocatorWithBlockSize creates a new buddy allocator with custom block sizes.
// Both minBlock and maxBlock must be powers of two, and headerSize < minBlock <= maxBlock.
// The arena's size MUST be a multiple of maxBlock and its start must be MaxAlign aligned.
func NewBuddyAllocatorWithBlockSize(arena []byte, minBlock, maxBlock int) (*BuddyAllocator, error) {
	if minBlock <= 0 || (minBlock&(minBlock-1)) != 0 {
		return nil, fmt.Errorf("minBlockSize must be a power of two, got %d", minBlock)
	}
	if maxBlock <= 0 || (maxBlock&(maxBlock-1)) != 0 {
		return nil, fmt.Errorf("maxBlockSize must be a power of two, got %d", maxBlock)
	}
	if minBlock > maxBlock {
		return nil, fmt.Errorf("minBlockSize (%d) must be <= maxBlockSize (%d)", minBlock, maxBlock)
	}
	if minBlock <= headerSize {
		return nil, fmt.Errorf("minBlockSize must be > headerSize (%d), got %d", headerSize, minBlock)
	}

	totalSize := len(arena)
	if totalSize < maxBlock || totalSize%maxBlock != 0 {
		return nil, fmt.Errorf("arena size must be a multiple of %d bytes and >= %d, got %d",
			maxBlock, maxBlock, totalSize)
	}
	start := unsafe.Pointer(&arena[0])
	if uintptr(start)%MaxAlign != 0 {
		return nil, fmt.Errorf("arena must be %d-byte aligned", MaxAlign)
	}

	minShift := bits.TrailingZeros(uint(minBlock))
	maxShift := bits.TrailingZeros(uint(maxBlock))
	maxOrder := maxShift - minShift

	a := &BuddyAllocator{
		arena:         arena,
		arenaStart:    start,
		minBlockSize:  minBlock,
		minBlockShift: minShift,
		maxBlockSize:  maxBlock,
		maxBlockOrder: maxOrder,
		freeLists:     make([][]int, maxOrder+1),
	}

	// Lower orders can hold more blocks (each split doubles the count),
	// so capacity = 2^(maxOrder-i). Capped at 64 to avoid over-allocation.
	for i := 0; i < maxOrder; i++ {
		capacity := 1 << (maxOrder - i)
		if capacity > 64 {
			capacity = 64
		}
		a.freeLists[i] = make([]int, 0, capacity)
	}
	a.freeLists[maxOrder] = make([]int, 0, totalSize/maxBlock)
	a.resetRoots()
	return a, nil
}

// Malloc returns a pointer to at least size bytes inside the arena,
// or nil if no sufficiently large block is available.
func (a *BuddyAllocator) Malloc(size int) unsafe.Pointer {
	if size <= 0 || size > a.maxBlockSize-headerSize {
		return nil
	}
	order := a.getOrderForSize(size + headerSize)

	offset, ok := a.popBlock(order)
	if !ok {
		return nil
	}

	// header: [4 bytes magic][4 bytes size]
	ptr := unsafe.Add(a.arenaStart, offset)
	*(*uint32)(ptr) = magic
	*(*uint32)(unsafe.Add(ptr, 4)) = uint32(size)
	return unsafe.Add(ptr, headerSize)
}

// popBlock removes a free block of exactly the given order, splitting a larger one if needed.
func (a *BuddyAllocator) popBlock(order int) (int, bool) {
	// Fast path: exact order match
	if freeList := a.freeLists[order]; len(freeList) > 0 {
		n := len(freeList) - 1
		a.freeLists[order] = freeList[:n]
		return freeList[n], true
	}

	foundOrder := -1
	for o := order + 1; o <= a.maxBlockOrder; o++ {
		if len(a.freeLists[o]) > 0 {
			foundOrder = o
			break
		}
	}
	if foundOrder == -1 {
		if !a.needsCoalesce {
			return 0, false
		}
		foundOrder = a.CoalesceUntil(order)
		if foundOrder == -1 {
			a.needsCoalesce = false
			return 0, false
		}
	}

	freeList := a.freeLists[foundOrder]
	n := len(freeList) - 1
	offset := freeList[n]
	a.freeLists[foundOrder] = freeList[:n]

	// The left half keeps the offset, the right half goes to the lower order free list.
	for foundOrder > order {
		foundOrder--
		right := offset + (a.minBlockSize << foundOrder)
		a.freeLists[foundOrder] = append(a.freeLists[foundOrder], right)
	}
	return offset, true
}

// Free returns a block to the allocator.
// Panics if the pointer doesn't belong to this allocator or the block is already free.
// Blocks are not merged until an allocation needs it.
func (a *BuddyAllocator) Free(p unsafe.Pointer) {
	if p == nil {
		return
	}
	offset := int(uintptr(p)-uintptr(a.arenaStart)) - headerSize
	if offset < 0 || offset >= len(a.arena) {
		panic("buddy: block not in arena")
	}
	if offset&(a.minBlockSize-1) != 0 {
		panic("buddy: misaligned block")
	}

	headerPtr := unsafe.Add(a.arenaStart, offset)
	magicPtr := (*uint32)(headerPtr)
	if *magicPtr != magic {
		panic("buddy: double free or invalid block")
	}

	size := int(*(*uint32)(unsafe.Add(headerPtr, 4)))
	order := a.getOrderForSize(size + headerSize)
	if offset&((a.minBlockSize<<order)-1) != 0 {
		panic("buddy: misaligned block")
	}

	*magicPtr = 0
	a.freeLists[order] = append(a.freeLists[order], offset)
	if order < a.maxBlockOrder {
		a.needsCoalesce = true
	}
}

// Owns reports whether p could be a pointer returned by Malloc of this allocator.
// It validates bounds and alignment without checking the allocation state.
func (a *BuddyAllocator) Owns(p unsafe.Pointer) bool {
	blockOffset := int(uintptr(p)-uintptr(a.arenaStart)) - headerSize
	if blockOffset < 0 || blockOffset >= len(a.arena) {
		return false
	}
	return blockOffset&(a.minBlockSize-1) == 0
}

// Available returns the total free bytes available for allocation.
func (a *BuddyAllocator) Available() int {
	total := 0
	for order, freeList := range a.freeLists {
		blockSize := a.minBlockSize << order
		total += len(freeList) * (blockSize - headerSize)
	}
	return total
}

// CoalesceUntil merges adjacent free buddy blocks until we have a block >= targetOrder.
// Returns the order of a suitable block found, or -1 if none available.
func (a *BuddyAllocator) CoalesceUntil(targetOrder int) int {
	if o := a.firstFreeOrder(targetOrder); o != -1 {
		return o
	}

	// Merging at lower orders creates blocks that can be merged at higher orders.
	for order := 0; order < targetOrder; order++ {
		freeList := a.freeLists[order]
		listLen := len(freeList)
		if listLen < 2 {
			continue
		}

		// Insertion sort so buddies are adjacent; free lists are small and nearly sorted.
		for i := 1; i < listLen; i++ {
			for j := i; j > 0 && freeList[j] < freeList[j-1]; j-- {
				freeList[j], freeList[j-1] = freeList[j-1], freeList[j]
			}
		}

		blockSize := a.minBlockSize << order
		n := 0
		for i := 0; i < listLen; {
			offset := freeList[i]
			if i+1 < listLen && freeList[i+1] == offset^blockSize {
				a.freeLists[order+1] = append(a.freeLists[order+1], offset&^blockSize)
				i += 2
			} else {
				freeList[n] = offset
				n++
				i++
			}
		}
		a.freeLists[order] = freeList[:n]
	}
	return a.firstFreeOrder(targetOrder)
}

func (a *BuddyAllocator) firstFreeOrder(from int) int {
	for o := from; o <= a.maxBlockOrder; o++ {
		if len(a.freeLists[o]) > 0 {
			return o
		}
	}
	return -1
}

// Reset forgets all allocations and returns the allocator to its initial state.
func (a *BuddyAllocator) Reset() {
	for i := 0; i < a.maxBlockOrder; i++ {
		a.freeLists[i] = a.freeLists[i][:0]
	}
	a.resetRoots()
	a.needsCoalesce = false
}

func (a *BuddyAllocator) resetRoots() {
	roots := a.freeLists[a.maxBlockOrder][:0]
	for off := 0; off < len(a.arena); off += a.maxBlockSize {
		roots = append(roots, off)
	}
	a.freeLists[a.maxBlockOrder] = roots
}

// getOrderForSize calculates the smallest order that can fit the given size.
func (a *BuddyAllocator) getOrderForSize(size int) int {
	if size <= a.minBlockSize {
		return 0
	}
	return bits.Len(uint(size-1)) - a.minBlockShift
}
