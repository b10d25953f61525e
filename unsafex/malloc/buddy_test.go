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
	"math/rand"
	"testing"
	"unsafe"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewBuddyAllocator(t *testing.T) {
	tests := []struct {
		size    int
		wantErr bool
	}{
		{64 * 1024, false},  // min valid
		{256 * 1024, false}, // 4 roots
		{32 * 1024, true},   // too small
		{96 * 1024, true},   // not multiple
		{0, true},           // empty
	}
	for _, tt := range tests {
		_, err := NewBuddyAllocator(make([]byte, tt.size))
		if tt.wantErr {
			assert.Error(t, err, "size=%d", tt.size)
		} else {
			assert.NoError(t, err, "size=%d", tt.size)
		}
	}
}

func TestNewBuddyAllocatorWithBlockSize(t *testing.T) {
	tests := []struct {
		name    string
		size    int
		min     int
		max     int
		wantErr bool
	}{
		{"valid_custom", 64 * 1024, 1024, 64 * 1024, false},
		{"valid_same_min_max", 4096, 4096, 4096, false},
		{"valid_multi_root", 128 * 1024, 16, 64 * 1024, false},
		{"min_not_pow2", 64 * 1024, 1000, 64 * 1024, true},
		{"max_not_pow2", 64 * 1024, 1024, 60000, true},
		{"min_gt_max", 64 * 1024, 8192, 4096, true},
		{"min_le_header", 64 * 1024, 8, 64 * 1024, true},
		{"arena_not_multiple", 100 * 1024, 1024, 64 * 1024, true},
		{"arena_too_small", 32 * 1024, 1024, 64 * 1024, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewBuddyAllocatorWithBlockSize(make([]byte, tt.size), tt.min, tt.max)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestBuddyMallocFree(t *testing.T) {
	a := newTestBuddyAllocator(t, 64*1024)
	initial := a.Available()

	p1 := a.Malloc(9)
	require.NotNil(t, p1)
	assert.Zero(t, uintptr(p1)%MaxAlign)
	copy(unsafe.Slice((*byte)(p1), 9), "Testolope")

	p2 := a.Malloc(1000)
	require.NotNil(t, p2)
	assert.False(t, overlap(p1, 9, p2, 1000))
	assert.Equal(t, "Testolope", string(unsafe.Slice((*byte)(p1), 9)))

	a.Free(p1)
	a.Free(p2)
	a.CoalesceUntil(a.maxBlockOrder)
	assert.Equal(t, initial, a.Available())
}

func TestBuddyMallocSizes(t *testing.T) {
	a := newTestBuddyAllocator(t, 128*1024)

	sizes := []int{1, 9, 16, 24, 25, 100, 1024, 4096, 32768, DefaultMaxBlockSize - headerSize}
	for _, sz := range sizes {
		p := a.Malloc(sz)
		require.NotNil(t, p, "size=%d", sz)
		a.Free(p)
	}
}

func TestBuddyMallocInvalid(t *testing.T) {
	a := newTestBuddyAllocator(t, 64*1024)
	assert.Nil(t, a.Malloc(0))
	assert.Nil(t, a.Malloc(-1))
	assert.Nil(t, a.Malloc(DefaultMaxBlockSize))
}

func TestBuddyExhaustion(t *testing.T) {
	a := newTestBuddyAllocator(t, 64*1024)

	var ptrs []unsafe.Pointer
	for {
		p := a.Malloc(16) // fits in a 32B block
		if p == nil {
			break
		}
		ptrs = append(ptrs, p)
	}
	assert.Equal(t, 64*1024/DefaultMinBlockSize, len(ptrs))
	assert.Nil(t, a.Malloc(1))

	for _, p := range ptrs {
		a.Free(p)
	}
	// lazy coalescing kicks in for the large request
	require.NotNil(t, a.Malloc(DefaultMaxBlockSize-headerSize))
}

func TestBuddyCoalesceUntil(t *testing.T) {
	tests := []struct {
		name   string
		nodes  []int // offsets
		target int
		want   int
	}{
		{"TwoBuddies", []int{0, 32}, 1, 1},
		{"FourNodes", []int{0, 32, 64, 96}, 2, 2},
		{"Unsorted", []int{96, 0, 64, 32}, 2, 2},
		{"NoBuddies", []int{0, 64, 128, 192}, 1, -1},
		{"SingleNode", []int{64}, 1, -1},
		{"PartialBuddies", []int{0, 32, 128}, 2, -1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := newTestBuddyAllocator(t, 64*1024)
			clearBuddyFreeLists(a)
			a.freeLists[0] = append(a.freeLists[0], tt.nodes...)
			assert.Equal(t, tt.want, a.CoalesceUntil(tt.target))
		})
	}

	t.Run("HigherOrderAvailable", func(t *testing.T) {
		a := newTestBuddyAllocator(t, 64*1024)
		clearBuddyFreeLists(a)
		a.freeLists[3] = append(a.freeLists[3], 0)
		assert.Equal(t, 3, a.CoalesceUntil(1))
	})
}

func TestBuddyFreeInvalid(t *testing.T) {
	a := newTestBuddyAllocator(t, 64*1024)
	other := make([]byte, 64)

	assert.Panics(t, func() { a.Free(unsafe.Pointer(&other[8])) })
	assert.Panics(t, func() { a.Free(unsafe.Add(a.arenaStart, headerSize+3)) })
	assert.NotPanics(t, func() { a.Free(nil) })

	p := a.Malloc(100)
	assert.NotPanics(t, func() { a.Free(p) })
	assert.Panics(t, func() { a.Free(p) }, "double free")
}

func TestBuddyOwns(t *testing.T) {
	a := newTestBuddyAllocator(t, 64*1024)
	p := a.Malloc(10)
	assert.True(t, a.Owns(p))
	assert.True(t, a.Owns(unsafe.Add(a.arenaStart, DefaultMinBlockSize+headerSize)))
	assert.False(t, a.Owns(a.arenaStart))
	assert.False(t, a.Owns(unsafe.Add(a.arenaStart, headerSize+1)))
	x := 1
	assert.False(t, a.Owns(unsafe.Pointer(&x)))
	a.Free(p)
}

func TestBuddyReset(t *testing.T) {
	a := newTestBuddyAllocator(t, 128*1024)
	initial := a.Available()
	for i := 0; i < 100; i++ {
		require.NotNil(t, a.Malloc(i+1))
	}
	a.Reset()
	assert.Equal(t, initial, a.Available())
}

func TestBuddyAvailableAfterRandomMallocFree(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	a := newTestBuddyAllocator(t, 1024*1024)
	initial := a.Available()

	var ptrs []unsafe.Pointer
	sizes := []int{1, 9, 16, 100, 512, 1024, 4096, 16384}
	for i := 0; i < 100000; i++ {
		if len(ptrs) == 0 || rng.Intn(3) != 0 {
			if p := a.Malloc(sizes[rng.Intn(len(sizes))]); p != nil {
				ptrs = append(ptrs, p)
			}
		} else {
			idx := rng.Intn(len(ptrs))
			a.Free(ptrs[idx])
			ptrs[idx] = ptrs[len(ptrs)-1]
			ptrs = ptrs[:len(ptrs)-1]
		}
	}
	for _, p := range ptrs {
		a.Free(p)
	}
	a.CoalesceUntil(a.maxBlockOrder)
	assert.Equal(t, initial, a.Available())
}

func BenchmarkBuddyMallocFree(b *testing.B) {
	a, err := NewBuddyAllocator(make([]byte, 1024*1024))
	require.NoError(b, err)
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		a.Free(a.Malloc(16))
	}
}

// helpers

func newTestBuddyAllocator(t *testing.T, size int) *BuddyAllocator {
	t.Helper()
	a, err := NewBuddyAllocator(make([]byte, size))
	require.NoError(t, err)
	return a
}

func clearBuddyFreeLists(a *BuddyAllocator) {
	for i := range a.freeLists {
		a.freeLists[i] = a.freeLists[i][:0]
	}
}

func overlap(a unsafe.Pointer, alen int, b unsafe.Pointer, blen int) bool {
	as, bs := uintptr(a), uintptr(b)
	return as < bs+uintptr(blen) && bs < as+uintptr(alen)
}
