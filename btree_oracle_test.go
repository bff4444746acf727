// Copyright (c) 2015-2021, NVIDIA CORPORATION.
// SPDX-License-Identifier: Apache-2.0

package bptree

import (
	"math/rand"
	"testing"

	"github.com/google/btree"

	"github.com/NVIDIA/bptree/blunder"
)

// TestBPlusTreeAgainstOracle drives the same randomized mixed workload into
// this tree and into google/btree, then insists the two agree: same
// membership, same in-order walk, same range results.
func TestBPlusTreeAgainstOracle(t *testing.T) {
	const (
		keySpace       = 500
		maxKeysPerNode = 4
		numOperations  = 20000
		oracleDegree   = 8
		randSeed       = int64(0x0BADBEEF)
	)
	var (
		endKey   int
		err      error
		item     Value
		items    []Value
		key      int
		ok       bool
		oracle   *btree.BTree
		report   StatsReport
		startKey int
		tree     BPlusTree
	)

	randSource := rand.New(rand.NewSource(randSeed))

	tree, err = NewBPlusTree(maxKeysPerNode, CompareInt, nil, nil, nil, false)
	if nil != err {
		t.Fatalf("NewBPlusTree() failed: %v", err)
	}
	defer tree.Free()

	oracle = btree.New(oracleDegree)

	for opIndex := 0; opIndex < numOperations; opIndex++ {
		key = randSource.Intn(keySpace)

		switch randSource.Intn(4) {
		case 0, 1: // insert
			err = tree.Insert(key)
			if oracle.Has(btree.Int(key)) {
				if !blunder.Is(err, blunder.DuplicateKeyError) {
					t.Fatalf("op %d: tree.Insert(%d) returned %v...oracle says DuplicateKeyError", opIndex, key, err)
				}
			} else {
				if nil != err {
					t.Fatalf("op %d: tree.Insert(%d) failed: %v", opIndex, key, err)
				}
				oracle.ReplaceOrInsert(btree.Int(key))
			}
		case 2: // delete
			err = tree.Delete(key)
			if oracle.Has(btree.Int(key)) {
				if nil != err {
					t.Fatalf("op %d: tree.Delete(%d) failed: %v", opIndex, key, err)
				}
				oracle.Delete(btree.Int(key))
			} else {
				if !blunder.Is(err, blunder.KeyNotFoundError) {
					t.Fatalf("op %d: tree.Delete(%d) returned %v...oracle says KeyNotFoundError", opIndex, key, err)
				}
			}
		case 3: // search
			item, ok, err = tree.Search(key)
			if nil != err {
				t.Fatalf("op %d: tree.Search(%d) failed: %v", opIndex, key, err)
			}
			if ok != oracle.Has(btree.Int(key)) {
				t.Fatalf("op %d: tree.Search(%d) returned ok=%v...oracle disagrees", opIndex, key, ok)
			}
			if ok && key != item {
				t.Fatalf("op %d: tree.Search(%d) returned item %v", opIndex, key, item)
			}
		}
	}

	report = tree.Stats()
	if report.Count != oracle.Len() {
		t.Fatalf("tree.Stats() returned Count %d...oracle has %d", report.Count, oracle.Len())
	}

	err = tree.Validate()
	if nil != err {
		t.Fatalf("tree.Validate() failed: %v", err)
	}

	// full in-order walk agreement

	expected := make([]int, 0, oracle.Len())
	oracle.Ascend(func(oracleItem btree.Item) bool {
		expected = append(expected, int(oracleItem.(btree.Int)))
		return true
	})

	walked := testCollectInOrder(t, tree)
	if len(walked) != len(expected) {
		t.Fatalf("in-order walk returned %d items...oracle has %d", len(walked), len(expected))
	}
	for i := range expected {
		if expected[i] != walked[i] {
			t.Fatalf("in-order walk item %d was %v...oracle says %d", i, walked[i], expected[i])
		}
	}

	// sampled range agreement

	for rangeIndex := 0; rangeIndex < 100; rangeIndex++ {
		startKey = randSource.Intn(keySpace)
		endKey = startKey + randSource.Intn(keySpace/4)

		items, err = tree.RangeSearch(startKey, endKey)
		if nil != err {
			t.Fatalf("tree.RangeSearch(%d, %d) failed: %v", startKey, endKey, err)
		}

		expectedRange := make([]int, 0)
		oracle.AscendGreaterOrEqual(btree.Int(startKey), func(oracleItem btree.Item) bool {
			oracleKey := int(oracleItem.(btree.Int))
			if oracleKey > endKey {
				return false
			}
			expectedRange = append(expectedRange, oracleKey)
			return true
		})

		if len(items) != len(expectedRange) {
			t.Fatalf("tree.RangeSearch(%d, %d) returned %d items...oracle has %d", startKey, endKey, len(items), len(expectedRange))
		}
		for i := range expectedRange {
			if expectedRange[i] != items[i] {
				t.Fatalf("tree.RangeSearch(%d, %d) item %d was %v...oracle says %d", startKey, endKey, i, items[i], expectedRange[i])
			}
		}

		tree.ReleaseItems(items)
	}
}
