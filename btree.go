// Copyright (c) 2015-2021, NVIDIA CORPORATION.
// SPDX-License-Identifier: Apache-2.0

package bptree

import (
	"github.com/NVIDIA/bptree/blunder"
	"github.com/NVIDIA/bptree/logger"
)

// A node is either a leaf or an internal node. Both variants carry a sorted
// key array of capacity maxKeysPerNode with numKeys slots in use. A leaf
// additionally carries an item array parallel to its keys and the next-leaf
// sibling link; an internal node carries a child array of capacity
// maxKeysPerNode+1 with numKeys+1 slots in use.
//
// Key, item, and child arrays come from the tree's alloc hook. Child slots
// hold *btreeNodeStruct values typed as Value so that the hook serves every
// array shape the tree grows.
//
// Ownership: the internal spine exclusively owns the node graph; the
// next-leaf chain is a non-owning convenience for in-order walks.
type btreeNodeStruct struct {
	leaf     bool
	numKeys  int
	keys     []Value          //                  keys[0:numKeys] strictly increasing under tree.compare
	items    []Value          // leaf:            items[i] is the item published under keys[i]
	next     *btreeNodeStruct // leaf:            right sibling in key order (nil at the rightmost leaf)
	children []Value          // internal:        children[0:numKeys+1] each hold a *btreeNodeStruct
}

type btreeTreeStruct struct {
	maxKeysPerNode     int //               M; splits trigger when a node would exceed M keys
	minKeysPerLeaf     int //               (M + 1) / 2; what a leaf split leaves behind
	minKeysPerInternal int //               M - (M + 1) / 2; what an internal split leaves in the right half
	height             int //               leaf level counts as 1
	count              int //               items across all leaves
	compare            Compare
	userData           interface{} //       handed back verbatim on every compare call
	allocFn            AllocFunc
	releaseFn          ReleaseFunc
	debugEnabled       bool
	root               *btreeNodeStruct //  nil only after Free()
}

func defaultAlloc(slotCount int) (slots []Value, err error) {
	slots = make([]Value, slotCount)
	err = nil
	return
}

func defaultRelease(slots []Value) {
	// the runtime reclaims the slice once unreferenced
}

func newTreeStruct(maxKeysPerNode int, compare Compare, userData interface{}, allocFn AllocFunc, releaseFn ReleaseFunc, debugEnabled bool) (treePtr *btreeTreeStruct) {
	if 3 > maxKeysPerNode {
		maxKeysPerNode = 3
	}
	if nil == allocFn {
		allocFn = defaultAlloc
	}
	if nil == releaseFn {
		releaseFn = defaultRelease
	}

	treePtr = &btreeTreeStruct{
		maxKeysPerNode:     maxKeysPerNode,
		minKeysPerLeaf:     (maxKeysPerNode + 1) / 2,
		minKeysPerInternal: maxKeysPerNode - (maxKeysPerNode+1)/2,
		height:             1,
		count:              0,
		compare:            compare,
		userData:           userData,
		allocFn:            allocFn,
		releaseFn:          releaseFn,
		debugEnabled:       debugEnabled,
	}

	return
}

// minKeysForNode is the fill floor rebalancing restores a non-root node to.
// The two variants have different floors because their splits leave behind
// different shares: a leaf split keeps (M+1)/2 keys while an internal split
// also surrenders its middle key to the parent.
func (tree *btreeTreeStruct) minKeysForNode(node *btreeNodeStruct) (minKeys int) {
	if node.leaf {
		minKeys = tree.minKeysPerLeaf
	} else {
		minKeys = tree.minKeysPerInternal
	}
	return
}

func (tree *btreeTreeStruct) logDebugf(format string, args ...interface{}) {
	if !tree.debugEnabled {
		return
	}
	logger.DebugfID(logger.DbgInternal, format, args...)
}

// allocValueSlots funnels every slot-array allocation through the tree's
// alloc hook, stamping failures with AllocationError.
func (tree *btreeTreeStruct) allocValueSlots(slotCount int) (slots []Value, err error) {
	slots, err = tree.allocFn(slotCount)
	if nil != err {
		tree.logDebugf("allocation failure (%d slots): %v", slotCount, err)
		err = blunder.NewError(blunder.AllocationError, "allocate hook failed for %d slots: %v", slotCount, err)
	}
	return
}

func (tree *btreeTreeStruct) createLeafNode() (node *btreeNodeStruct, err error) {
	var (
		itemSlots []Value
		keySlots  []Value
	)

	keySlots, err = tree.allocValueSlots(tree.maxKeysPerNode)
	if nil != err {
		return
	}
	itemSlots, err = tree.allocValueSlots(tree.maxKeysPerNode)
	if nil != err {
		tree.releaseFn(keySlots)
		return
	}

	node = &btreeNodeStruct{
		leaf:    true,
		numKeys: 0,
		keys:    keySlots,
		items:   itemSlots,
		next:    nil,
	}

	return
}

func (tree *btreeTreeStruct) createInternalNode() (node *btreeNodeStruct, err error) {
	var (
		childSlots []Value
		keySlots   []Value
	)

	keySlots, err = tree.allocValueSlots(tree.maxKeysPerNode)
	if nil != err {
		return
	}
	childSlots, err = tree.allocValueSlots(tree.maxKeysPerNode + 1)
	if nil != err {
		tree.releaseFn(keySlots)
		return
	}

	node = &btreeNodeStruct{
		leaf:     false,
		numKeys:  0,
		keys:     keySlots,
		children: childSlots,
	}

	return
}

// releaseNode hands a single node's arrays back to the release hook without
// touching any subtree it may reference. Merges release the departed node
// this way (its children were just adopted by the survivor); teardown uses
// releaseSubtree instead.
func (tree *btreeTreeStruct) releaseNode(node *btreeNodeStruct) {
	if nil == node {
		return
	}
	tree.releaseFn(node.keys)
	if node.leaf {
		tree.releaseFn(node.items)
	} else {
		tree.releaseFn(node.children)
	}
	node.keys = nil
	node.items = nil
	node.children = nil
	node.next = nil
	node.numKeys = 0
}

func (tree *btreeTreeStruct) releaseSubtree(node *btreeNodeStruct) {
	if nil == node {
		return
	}
	if !node.leaf {
		for childIndex := 0; childIndex <= node.numKeys; childIndex++ {
			tree.releaseSubtree(node.children[childIndex].(*btreeNodeStruct))
		}
	}
	tree.releaseNode(node)
}

// searchLeafNode returns the position of the first key not less than key
// (numKeys if key exceeds every key) and whether the key at that position
// compares equal.
func (tree *btreeTreeStruct) searchLeafNode(node *btreeNodeStruct, key Key) (pos int, found bool, err error) {
	var (
		compareResult int
		high          int
		low           int
		mid           int
	)

	low = 0
	high = node.numKeys - 1

	for low <= high {
		mid = (low + high) / 2
		compareResult, err = tree.compare(key, node.keys[mid], tree.userData)
		if nil != err {
			err = blunder.NewError(blunder.InvalidArgError, "comparator failed: %v", err)
			return
		}
		if 0 == compareResult {
			pos = mid
			found = true
			return
		}
		if 0 > compareResult {
			high = mid - 1
		} else {
			low = mid + 1
		}
	}

	pos = low
	found = false

	return
}

// searchInternalNode returns the child index to descend through: the unique
// i in [0, numKeys] with keys[i-1] <= key < keys[i] (sentinels at the ends).
// An equal separator sends the descent right, where the key's leaf lives.
func (tree *btreeTreeStruct) searchInternalNode(node *btreeNodeStruct, key Key) (childIndex int, err error) {
	var (
		compareResult int
		high          int
		low           int
		mid           int
	)

	low = 0
	high = node.numKeys

	for low < high {
		mid = (low + high) / 2
		compareResult, err = tree.compare(key, node.keys[mid], tree.userData)
		if nil != err {
			err = blunder.NewError(blunder.InvalidArgError, "comparator failed: %v", err)
			return
		}
		if 0 > compareResult {
			high = mid
		} else {
			low = mid + 1
		}
	}

	childIndex = low

	return
}

// findLeafNode descends from the root to the leaf that does (or would)
// contain key.
func (tree *btreeTreeStruct) findLeafNode(key Key) (node *btreeNodeStruct, err error) {
	var (
		childIndex int
	)

	node = tree.root

	for !node.leaf {
		childIndex, err = tree.searchInternalNode(node, key)
		if nil != err {
			return
		}
		node = node.children[childIndex].(*btreeNodeStruct)
	}

	return
}

func (tree *btreeTreeStruct) Search(key Key) (item Value, ok bool, err error) {
	var (
		found bool
		node  *btreeNodeStruct
		pos   int
	)

	if nil == tree || nil == tree.root {
		err = blunder.NewError(blunder.InvalidArgError, "Search() called on absent tree")
		return
	}

	node, err = tree.findLeafNode(key)
	if nil != err {
		return
	}

	pos, found, err = tree.searchLeafNode(node, key)
	if nil != err {
		return
	}
	if !found {
		ok = false
		return
	}

	item = node.items[pos]
	ok = true

	return
}

// An insert that lands on a full leaf cascades splits up the spine. Every
// node and scratch array the cascade could need is reserved up front so that
// an allocation failure aborts before the first mutation; a reserve left
// (partially) unconsumed (duplicate key, or a cascade that stopped short) is
// handed back to the release hook.
type insertReserveStruct struct {
	scratchKeys [][]Value          // per splitting level: maxKeysPerNode+1 key slots
	scratchSide [][]Value          // per splitting level: item slots (leaf) or child slots (internal)
	siblings    []*btreeNodeStruct // per splitting level: the prospective right sibling
	newRoot     *btreeNodeStruct   // non-nil only if the cascade escapes the old root
	consumed    int
}

// reserveForInsert sizes the split cascade for key: the landing leaf splits
// iff it is full, its parent splits iff it too is full, and so on up the
// search path.
func (tree *btreeTreeStruct) reserveForInsert(key Key) (reserve *insertReserveStruct, err error) {
	var (
		childIndex  int
		node        *btreeNodeStruct
		searchPath  []*btreeNodeStruct
		sibling     *btreeNodeStruct
		splitLevels int
	)

	reserve = &insertReserveStruct{}

	node = tree.root
	searchPath = make([]*btreeNodeStruct, 0, tree.height)
	for {
		searchPath = append(searchPath, node)
		if node.leaf {
			break
		}
		childIndex, err = tree.searchInternalNode(node, key)
		if nil != err {
			return
		}
		node = node.children[childIndex].(*btreeNodeStruct)
	}

	splitLevels = 0
	for levelIndex := len(searchPath) - 1; levelIndex >= 0; levelIndex-- {
		if searchPath[levelIndex].numKeys < tree.maxKeysPerNode {
			break
		}
		splitLevels++
	}

	if 0 == splitLevels {
		return
	}

	for levelIndex := 0; levelIndex < splitLevels; levelIndex++ {
		var (
			scratchKeys []Value
			scratchSide []Value
		)

		scratchKeys, err = tree.allocValueSlots(tree.maxKeysPerNode + 1)
		if nil != err {
			tree.releaseReserve(reserve)
			return
		}
		reserve.scratchKeys = append(reserve.scratchKeys, scratchKeys)

		if 0 == levelIndex {
			scratchSide, err = tree.allocValueSlots(tree.maxKeysPerNode + 1)
		} else {
			scratchSide, err = tree.allocValueSlots(tree.maxKeysPerNode + 2)
		}
		if nil != err {
			tree.releaseReserve(reserve)
			return
		}
		reserve.scratchSide = append(reserve.scratchSide, scratchSide)

		if 0 == levelIndex {
			sibling, err = tree.createLeafNode()
		} else {
			sibling, err = tree.createInternalNode()
		}
		if nil != err {
			tree.releaseReserve(reserve)
			return
		}
		reserve.siblings = append(reserve.siblings, sibling)
	}

	if splitLevels == len(searchPath) {
		reserve.newRoot, err = tree.createInternalNode()
		if nil != err {
			tree.releaseReserve(reserve)
			return
		}
	}

	return
}

// releaseReserve returns the unconsumed remainder of a reserve.
func (tree *btreeTreeStruct) releaseReserve(reserve *insertReserveStruct) {
	for levelIndex := reserve.consumed; levelIndex < len(reserve.scratchKeys); levelIndex++ {
		tree.releaseFn(reserve.scratchKeys[levelIndex])
	}
	for levelIndex := reserve.consumed; levelIndex < len(reserve.scratchSide); levelIndex++ {
		tree.releaseFn(reserve.scratchSide[levelIndex])
	}
	for levelIndex := reserve.consumed; levelIndex < len(reserve.siblings); levelIndex++ {
		tree.releaseNode(reserve.siblings[levelIndex])
	}
	if nil != reserve.newRoot {
		tree.releaseNode(reserve.newRoot)
		reserve.newRoot = nil
	}
}

func (tree *btreeTreeStruct) Insert(item Value) (err error) {
	var (
		newChild    *btreeNodeStruct
		newRoot     *btreeNodeStruct
		promotedKey Value
		reserve     *insertReserveStruct
	)

	if nil == tree || nil == tree.root {
		err = blunder.NewError(blunder.InvalidArgError, "Insert() called on absent tree")
		return
	}

	reserve, err = tree.reserveForInsert(item)
	if nil != err {
		return
	}

	promotedKey, newChild, err = tree.insertIntoSubtree(tree.root, item, reserve)
	if nil != err {
		tree.releaseReserve(reserve)
		return
	}

	if nil != newChild {
		// the cascade escaped the old root
		newRoot = reserve.newRoot
		newRoot.numKeys = 1
		newRoot.keys[0] = promotedKey
		newRoot.children[0] = tree.root
		newRoot.children[1] = newChild
		reserve.newRoot = nil
		tree.root = newRoot
		tree.height++
	}

	tree.releaseReserve(reserve)
	tree.count++

	return
}

// insertIntoSubtree descends to the landing leaf and inserts, splitting on
// the way back up. A non-nil newChild reports that node split, handing the
// caller the separator to publish (promotedKey) and the freshly attached
// right sibling.
func (tree *btreeTreeStruct) insertIntoSubtree(node *btreeNodeStruct, item Value, reserve *insertReserveStruct) (promotedKey Value, newChild *btreeNodeStruct, err error) {
	var (
		childIndex       int
		childNewChild    *btreeNodeStruct
		childPromotedKey Value
		found            bool
		pos              int
	)

	if node.leaf {
		pos, found, err = tree.searchLeafNode(node, item)
		if nil != err {
			return
		}
		if found {
			err = blunder.NewError(blunder.DuplicateKeyError, "key already present")
			return
		}

		if node.numKeys < tree.maxKeysPerNode {
			copy(node.keys[pos+1:node.numKeys+1], node.keys[pos:node.numKeys])
			copy(node.items[pos+1:node.numKeys+1], node.items[pos:node.numKeys])
			node.keys[pos] = item
			node.items[pos] = item
			node.numKeys++
			err = nil
			return
		}

		promotedKey, newChild = tree.splitLeafNode(node, item, pos, reserve)
		err = nil
		return
	}

	childIndex, err = tree.searchInternalNode(node, item)
	if nil != err {
		return
	}

	childPromotedKey, childNewChild, err = tree.insertIntoSubtree(node.children[childIndex].(*btreeNodeStruct), item, reserve)
	if nil != err {
		return
	}
	if nil == childNewChild {
		return
	}

	if node.numKeys < tree.maxKeysPerNode {
		copy(node.keys[childIndex+1:node.numKeys+1], node.keys[childIndex:node.numKeys])
		copy(node.children[childIndex+2:node.numKeys+2], node.children[childIndex+1:node.numKeys+1])
		node.keys[childIndex] = childPromotedKey
		node.children[childIndex+1] = childNewChild
		node.numKeys++
		err = nil
		return
	}

	promotedKey, newChild = tree.splitInternalNode(node, childPromotedKey, childNewChild, childIndex, reserve)
	err = nil
	return
}

// splitLeafNode distributes the over-full leaf (node's maxKeysPerNode keys
// plus item at pos) across node and the reserved right sibling, keeping
// slots [0, split) and handing [split, maxKeysPerNode+1) to the sibling.
// The separator is the sibling's first key, which also remains in the
// sibling (copy-up).
func (tree *btreeTreeStruct) splitLeafNode(node *btreeNodeStruct, item Value, pos int, reserve *insertReserveStruct) (promotedKey Value, newLeaf *btreeNodeStruct) {
	var (
		scratchItems []Value
		scratchKeys  []Value
		split        int
		total        int
	)

	scratchKeys = reserve.scratchKeys[reserve.consumed]
	scratchItems = reserve.scratchSide[reserve.consumed]
	newLeaf = reserve.siblings[reserve.consumed]
	reserve.consumed++

	total = node.numKeys + 1
	split = total / 2

	copy(scratchKeys[0:pos], node.keys[0:pos])
	copy(scratchItems[0:pos], node.items[0:pos])
	scratchKeys[pos] = item
	scratchItems[pos] = item
	copy(scratchKeys[pos+1:total], node.keys[pos:node.numKeys])
	copy(scratchItems[pos+1:total], node.items[pos:node.numKeys])

	node.numKeys = split
	copy(node.keys[0:split], scratchKeys[0:split])
	copy(node.items[0:split], scratchItems[0:split])

	newLeaf.numKeys = total - split
	copy(newLeaf.keys[0:total-split], scratchKeys[split:total])
	copy(newLeaf.items[0:total-split], scratchItems[split:total])

	newLeaf.next = node.next
	node.next = newLeaf

	promotedKey = newLeaf.keys[0]

	tree.releaseFn(scratchKeys)
	tree.releaseFn(scratchItems)

	return
}

// splitInternalNode distributes the over-full internal node (node's
// maxKeysPerNode keys plus newKey at pos, with newChild at pos+1) across
// node and the reserved right sibling. The middle key moves up: it lands in
// neither half and becomes the caller's separator (move-up).
func (tree *btreeTreeStruct) splitInternalNode(node *btreeNodeStruct, newKey Value, newChild *btreeNodeStruct, pos int, reserve *insertReserveStruct) (promotedKey Value, newInternal *btreeNodeStruct) {
	var (
		scratchChildren []Value
		scratchKeys     []Value
		split           int
		total           int
	)

	scratchKeys = reserve.scratchKeys[reserve.consumed]
	scratchChildren = reserve.scratchSide[reserve.consumed]
	newInternal = reserve.siblings[reserve.consumed]
	reserve.consumed++

	total = node.numKeys + 1
	split = total / 2

	copy(scratchKeys[0:pos], node.keys[0:pos])
	scratchKeys[pos] = newKey
	copy(scratchKeys[pos+1:total], node.keys[pos:node.numKeys])

	copy(scratchChildren[0:pos+1], node.children[0:pos+1])
	scratchChildren[pos+1] = newChild
	copy(scratchChildren[pos+2:total+1], node.children[pos+1:node.numKeys+1])

	node.numKeys = split
	copy(node.keys[0:split], scratchKeys[0:split])
	copy(node.children[0:split+1], scratchChildren[0:split+1])

	newInternal.numKeys = total - split - 1
	copy(newInternal.keys[0:total-split-1], scratchKeys[split+1:total])
	copy(newInternal.children[0:total-split], scratchChildren[split+1:total+1])

	promotedKey = scratchKeys[split]

	tree.releaseFn(scratchKeys)
	tree.releaseFn(scratchChildren)

	return
}

func (tree *btreeTreeStruct) Stats() (report StatsReport) {
	if nil == tree || nil == tree.root {
		return
	}

	report.Count = tree.count
	report.Height = tree.height
	report.NodeCount = tree.countNodesInSubtree(tree.root)

	return
}

func (tree *btreeTreeStruct) countNodesInSubtree(node *btreeNodeStruct) (nodeCount int) {
	nodeCount = 1
	if !node.leaf {
		for childIndex := 0; childIndex <= node.numKeys; childIndex++ {
			nodeCount += tree.countNodesInSubtree(node.children[childIndex].(*btreeNodeStruct))
		}
	}
	return
}

func (tree *btreeTreeStruct) Free() {
	if nil == tree || nil == tree.root {
		return
	}

	tree.releaseSubtree(tree.root)
	tree.root = nil
	tree.count = 0
	tree.height = 0
}
