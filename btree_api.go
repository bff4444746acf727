// Copyright (c) 2015-2021, NVIDIA CORPORATION.
// SPDX-License-Identifier: Apache-2.0

package bptree

// BPlusTree declares the methods available on a B+ tree index.
//
// Methods returning an error report the outcome through the blunder error
// namespace; callers classify with blunder.Is() against DuplicateKeyError,
// KeyNotFoundError, AllocationError, or InvalidArgError. A nil error means
// the operation took effect. On any non-nil error the tree is left in the
// valid state it had before the call.
type BPlusTree interface {
	// Insert publishes item into the tree. The item itself is handed to the
	// comparator as a key, so whatever total order the comparator implements
	// over items is the index order. Fails with DuplicateKeyError if an equal
	// key is already present.
	Insert(item Value) (err error)

	// Search returns the item whose key compares equal to key, if any.
	Search(key Key) (item Value, ok bool, err error)

	// Delete removes the item whose key compares equal to key. Fails with
	// KeyNotFoundError if no such item is indexed.
	Delete(key Key) (err error)

	// RangeSearch returns, in key order, every item whose key lies in the
	// inclusive interval [startKey, endKey]. An empty result is a valid
	// outcome (as is any inverted interval). The returned slice is obtained
	// from the tree's allocate hook; the caller owns it and hands it back
	// via ReleaseItems when done.
	RangeSearch(startKey Key, endKey Key) (items []Value, err error)

	// ReleaseItems returns a RangeSearch result to the tree's release hook.
	ReleaseItems(items []Value)

	// NewIterator positions a fresh iterator before the smallest key.
	// ok is false on an empty tree. The iterator holds no locks and is
	// invalidated by any mutation of the tree.
	NewIterator() (iter Iterator, ok bool)

	// Stats reports the current item count, tree height (leaf level == 1),
	// and total node count.
	Stats() (report StatsReport)

	// Validate walks the whole tree and errors on the first violated shape
	// invariant: per-node key order, fill bounds, uniform leaf depth,
	// separator-key bounds, leaf-chain order, or item-count mismatch.
	Validate() (err error)

	// Dump renders the node graph through the logger (one line per node).
	Dump()

	// Free releases the node graph back to the release hook. The tree must
	// not be used afterwards. Free of an already-freed tree is a no-op.
	Free()
}

// Iterator walks a tree's items in ascending key order.
type Iterator interface {
	// Next returns the current item and advances; ok is false once the
	// iterator has passed the largest key.
	Next() (item Value, ok bool)
}

// StatsReport carries the counters returned by BPlusTree.Stats().
//
// Count and Height are maintained incrementally by the mutating operations;
// NodeCount is measured by a full traversal at Stats() time.
type StatsReport struct {
	Count     int
	Height    int
	NodeCount int
}

// NewBPlusTree constructs an empty B+ tree.
//
// maxKeysPerNode is the fan-out M (keys per node; an internal node holds up
// to M+1 children) and is silently clamped up to 3. compare supplies the
// total order over keys; userData is handed back verbatim on every compare
// call. allocFn/releaseFn may be nil, selecting make()-backed defaults.
// debugEnabled turns on the tree's decision-point debug logging.
//
// The only error is an AllocationError from allocFn while building the
// initial (empty) root leaf.
func NewBPlusTree(maxKeysPerNode int, compare Compare, userData interface{}, allocFn AllocFunc, releaseFn ReleaseFunc, debugEnabled bool) (tree BPlusTree, err error) {
	var (
		treePtr *btreeTreeStruct
	)

	treePtr = newTreeStruct(maxKeysPerNode, compare, userData, allocFn, releaseFn, debugEnabled)

	treePtr.root, err = treePtr.createLeafNode()
	if nil != err {
		return
	}

	treePtr.logDebugf("B+ tree created (maxKeysPerNode=%d minKeysPerLeaf=%d minKeysPerInternal=%d)", treePtr.maxKeysPerNode, treePtr.minKeysPerLeaf, treePtr.minKeysPerInternal)

	tree = treePtr

	return
}

// BulkLoadBPlusTree constructs a B+ tree directly from items, which must be
// presorted in strictly increasing comparator order with no duplicates.
//
// Leaves are packed to exactly maxKeysPerNode items apiece (the final leaf
// takes the remainder) and the internal levels are built bottom-up from the
// leaves' first keys, so a bulk-loaded tree is as shallow as the fan-out
// permits. ok is false (and tree nil) for empty input. Unsorted or duplicate
// input is detected during packing and fails with InvalidArgError.
func BulkLoadBPlusTree(items []Value, maxKeysPerNode int, compare Compare, userData interface{}, allocFn AllocFunc, releaseFn ReleaseFunc, debugEnabled bool) (tree BPlusTree, ok bool, err error) {
	var (
		treePtr *btreeTreeStruct
	)

	if 0 == len(items) {
		ok = false
		err = nil
		return
	}

	treePtr = newTreeStruct(maxKeysPerNode, compare, userData, allocFn, releaseFn, debugEnabled)

	err = treePtr.bulkLoad(items)
	if nil != err {
		return
	}

	treePtr.logDebugf("B+ tree bulk-loaded (items=%d height=%d)", treePtr.count, treePtr.height)

	tree = treePtr
	ok = true

	return
}
