// Copyright (c) 2015-2021, NVIDIA CORPORATION.
// SPDX-License-Identifier: Apache-2.0

package bptree

import (
	"fmt"
	"sort"
	"testing"

	"github.com/NVIDIA/bptree/blunder"
	"github.com/NVIDIA/bptree/utils"
)

// testFailingAllocatorStruct fails its allocate hook after a countdown and
// balance-checks allocate against release, so these tests prove both that a
// failed operation is a no-op and that no slot array leaks on any path.
type testFailingAllocatorStruct struct {
	callsRemaining int // 0 fails every call; < 0 never fails
	liveSlices     int
}

func (allocator *testFailingAllocatorStruct) alloc(slotCount int) (slots []Value, err error) {
	if 0 == allocator.callsRemaining {
		err = fmt.Errorf("injected allocation failure")
		return
	}
	if 0 < allocator.callsRemaining {
		allocator.callsRemaining--
	}
	allocator.liveSlices++
	slots = make([]Value, slotCount)
	return
}

func (allocator *testFailingAllocatorStruct) release(slots []Value) {
	if nil != slots {
		allocator.liveSlices--
	}
}

func TestInsertAllocationFailureAtomicity(t *testing.T) {
	const (
		maxKeysPerNode = 4
		numKeys        = 200
	)
	var (
		allocator *testFailingAllocatorStruct
		err       error
		inserted  []int
		tree      BPlusTree
	)

	keysToPut := utils.KnuthShuffledIntSlice(numKeys, 0x0A110C)

	for failAfter := 1; failAfter <= 80; failAfter++ {
		allocator = &testFailingAllocatorStruct{callsRemaining: failAfter}

		tree, err = NewBPlusTree(maxKeysPerNode, CompareInt, nil, allocator.alloc, allocator.release, false)
		if nil != err {
			// the initial root leaf never got built
			if !blunder.Is(err, blunder.AllocationError) {
				t.Fatalf("NewBPlusTree() [failAfter=%d] returned %v...expected AllocationError", failAfter, err)
			}
			if 0 != allocator.liveSlices {
				t.Fatalf("NewBPlusTree() [failAfter=%d] leaked %d slices", failAfter, allocator.liveSlices)
			}
			continue
		}

		inserted = []int{}
		sawFailure := false

		for _, key := range keysToPut {
			err = tree.Insert(key)
			if nil == err {
				inserted = append(inserted, key)
				continue
			}
			if !blunder.Is(err, blunder.AllocationError) {
				t.Fatalf("tree.Insert(%d) [failAfter=%d] returned %v...expected AllocationError", key, failAfter, err)
			}
			sawFailure = true

			// the failed insert must be a perfect no-op

			err = tree.Validate()
			if nil != err {
				t.Fatalf("tree.Validate() [failAfter=%d] after failed Insert(%d): %v", failAfter, key, err)
			}

			walked := testCollectInOrder(t, tree)
			expected := make([]int, len(inserted))
			copy(expected, inserted)
			sort.Ints(expected)
			if len(walked) != len(expected) {
				t.Fatalf("failed Insert(%d) [failAfter=%d] changed the item population", key, failAfter)
			}
			for i := range expected {
				if expected[i] != walked[i] {
					t.Fatalf("failed Insert(%d) [failAfter=%d] disturbed the in-order walk", key, failAfter)
				}
			}

			// lift the failure and prove the tree still takes the key

			allocator.callsRemaining = -1
			err = tree.Insert(key)
			if nil != err {
				t.Fatalf("tree.Insert(%d) [failAfter=%d, retried] failed: %v", key, failAfter, err)
			}
			inserted = append(inserted, key)
		}

		if !sawFailure && failAfter < 40 {
			t.Fatalf("allocator with failAfter=%d never fired during %d inserts", failAfter, numKeys)
		}

		err = tree.Validate()
		if nil != err {
			t.Fatalf("tree.Validate() [failAfter=%d, final] failed: %v", failAfter, err)
		}

		tree.Free()
		if 0 != allocator.liveSlices {
			t.Fatalf("workload [failAfter=%d] leaked %d slices", failAfter, allocator.liveSlices)
		}
	}
}

func TestDeleteAllocationFailureAtomicity(t *testing.T) {
	var (
		allocator *testFailingAllocatorStruct
		err       error
		tree      BPlusTree
	)

	allocator = &testFailingAllocatorStruct{callsRemaining: -1}

	tree, err = NewBPlusTree(4, CompareInt, nil, allocator.alloc, allocator.release, false)
	if nil != err {
		t.Fatalf("NewBPlusTree() failed: %v", err)
	}

	for key := 0; key < 100; key++ {
		err = tree.Insert(key)
		if nil != err {
			t.Fatalf("tree.Insert(%d) failed: %v", key, err)
		}
	}

	before := testCollectInOrder(t, tree)

	// the parent stack is the delete path's only allocation
	allocator.callsRemaining = 0

	err = tree.Delete(50)
	if !blunder.Is(err, blunder.AllocationError) {
		t.Fatalf("tree.Delete(50) returned %v...expected AllocationError", err)
	}

	err = tree.Validate()
	if nil != err {
		t.Fatalf("tree.Validate() after failed Delete(50): %v", err)
	}
	after := testCollectInOrder(t, tree)
	testExpectItems(t, "failed delete", after, before...)

	allocator.callsRemaining = -1

	err = tree.Delete(50)
	if nil != err {
		t.Fatalf("tree.Delete(50) [retried] failed: %v", err)
	}

	tree.Free()
	if 0 != allocator.liveSlices {
		t.Fatalf("workload leaked %d slices", allocator.liveSlices)
	}
}

func TestRangeSearchAllocationFailure(t *testing.T) {
	var (
		allocator *testFailingAllocatorStruct
		err       error
		items     []Value
		tree      BPlusTree
	)

	allocator = &testFailingAllocatorStruct{callsRemaining: -1}

	tree, err = NewBPlusTree(4, CompareInt, nil, allocator.alloc, allocator.release, false)
	if nil != err {
		t.Fatalf("NewBPlusTree() failed: %v", err)
	}

	for key := 0; key < 100; key++ {
		err = tree.Insert(key)
		if nil != err {
			t.Fatalf("tree.Insert(%d) failed: %v", key, err)
		}
	}

	// result buffer allocation fails outright

	allocator.callsRemaining = 0
	items, err = tree.RangeSearch(0, 99)
	if !blunder.Is(err, blunder.AllocationError) {
		t.Fatalf("tree.RangeSearch(0, 99) returned %v...expected AllocationError", err)
	}
	if nil != items {
		t.Fatalf("tree.RangeSearch(0, 99) returned items alongside an error")
	}

	// result buffer growth fails after the initial 16 slots fill up

	allocator.callsRemaining = 1
	items, err = tree.RangeSearch(0, 99)
	if !blunder.Is(err, blunder.AllocationError) {
		t.Fatalf("tree.RangeSearch(0, 99) [growth] returned %v...expected AllocationError", err)
	}
	if nil != items {
		t.Fatalf("tree.RangeSearch(0, 99) [growth] returned items alongside an error")
	}

	// and with a generous allocator the same scan succeeds

	allocator.callsRemaining = -1
	items, err = tree.RangeSearch(0, 99)
	if nil != err {
		t.Fatalf("tree.RangeSearch(0, 99) [retried] failed: %v", err)
	}
	if 100 != len(items) {
		t.Fatalf("tree.RangeSearch(0, 99) [retried] returned %d items...expected 100", len(items))
	}
	tree.ReleaseItems(items)

	tree.Free()
	if 0 != allocator.liveSlices {
		t.Fatalf("workload leaked %d slices", allocator.liveSlices)
	}
}

func TestBulkLoadAllocationFailure(t *testing.T) {
	var (
		allocator *testFailingAllocatorStruct
		err       error
		items     []Value
		ok        bool
		tree      BPlusTree
	)

	items = make([]Value, 100)
	for i := range items {
		items[i] = i
	}

	for failAfter := 0; failAfter <= 30; failAfter++ {
		allocator = &testFailingAllocatorStruct{callsRemaining: failAfter}

		tree, ok, err = BulkLoadBPlusTree(items, 5, CompareInt, nil, allocator.alloc, allocator.release, false)
		if nil == err {
			if !ok {
				t.Fatalf("BulkLoadBPlusTree() [failAfter=%d] returned !ok without an error", failAfter)
			}
			tree.Free()
		} else {
			if !blunder.Is(err, blunder.AllocationError) {
				t.Fatalf("BulkLoadBPlusTree() [failAfter=%d] returned %v...expected AllocationError", failAfter, err)
			}
			if nil != tree {
				t.Fatalf("BulkLoadBPlusTree() [failAfter=%d] returned a tree alongside an error", failAfter)
			}
		}

		if 0 != allocator.liveSlices {
			t.Fatalf("BulkLoadBPlusTree() [failAfter=%d] leaked %d slices", failAfter, allocator.liveSlices)
		}
	}
}
