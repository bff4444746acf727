// Copyright (c) 2015-2021, NVIDIA CORPORATION.
// SPDX-License-Identifier: Apache-2.0

package bptree

import (
	"github.com/NVIDIA/bptree/blunder"
)

// bulkLoad builds the node graph for a presorted, duplicate-free item slice.
//
// Phase 1 packs consecutive items into leaves of exactly maxKeysPerNode
// (the final leaf takes the remainder) and wires the sibling chain. Phase 2
// builds each internal level over the one below, an internal node taking up
// to maxKeysPerNode+1 children with the children's subtree-minimum keys
// (first child excluded) as its separators; if the tail of a level would
// leave a lone child, the preceding node gives one up so every internal
// node has at least two. Phase 3 stops when one node remains: the root.
//
// Input order is verified while packing; out-of-order or duplicate items
// fail with InvalidArgError. An allocation failure releases every node
// built so far. In both cases no tree results.
func (tree *btreeTreeStruct) bulkLoad(items []Value) (err error) {
	var (
		built         []*btreeNodeStruct
		compareResult int
		leaf          *btreeNodeStruct
		levelMinKeys  []Value
		levelNodes    []*btreeNodeStruct
		prevLeaf      *btreeNodeStruct
		take          int
	)

	releaseBuilt := func() {
		for _, node := range built {
			tree.releaseNode(node)
		}
	}

	// phase 1: leaves

	for itemIndex := 0; itemIndex < len(items); {
		if 0 < itemIndex {
			compareResult, err = tree.compare(items[itemIndex-1], items[itemIndex], tree.userData)
			if nil != err {
				releaseBuilt()
				err = blunder.NewError(blunder.InvalidArgError, "comparator failed: %v", err)
				return
			}
			if 0 <= compareResult {
				releaseBuilt()
				err = blunder.NewError(blunder.InvalidArgError, "bulk-load input not strictly increasing at index %d", itemIndex)
				return
			}
		}

		if nil == leaf || leaf.numKeys == tree.maxKeysPerNode {
			leaf, err = tree.createLeafNode()
			if nil != err {
				releaseBuilt()
				return
			}
			built = append(built, leaf)
			if nil != prevLeaf {
				prevLeaf.next = leaf
			}
			prevLeaf = leaf
			levelNodes = append(levelNodes, leaf)
			levelMinKeys = append(levelMinKeys, items[itemIndex])
		}

		leaf.keys[leaf.numKeys] = items[itemIndex]
		leaf.items[leaf.numKeys] = items[itemIndex]
		leaf.numKeys++
		itemIndex++
	}

	// phase 2: internal levels, bottom-up

	tree.height = 1

	for 1 < len(levelNodes) {
		var (
			upperMinKeys []Value
			upperNodes   []*btreeNodeStruct
		)

		for nodeIndex := 0; nodeIndex < len(levelNodes); {
			var (
				internal  *btreeNodeStruct
				remaining int
			)

			remaining = len(levelNodes) - nodeIndex
			if remaining > tree.maxKeysPerNode+1 && 1 == remaining-(tree.maxKeysPerNode+1) {
				take = tree.maxKeysPerNode // leave two for the final node
			} else if remaining > tree.maxKeysPerNode+1 {
				take = tree.maxKeysPerNode + 1
			} else {
				take = remaining
			}

			internal, err = tree.createInternalNode()
			if nil != err {
				releaseBuilt()
				return
			}
			built = append(built, internal)

			for childOffset := 0; childOffset < take; childOffset++ {
				internal.children[childOffset] = levelNodes[nodeIndex+childOffset]
				if 0 < childOffset {
					internal.keys[childOffset-1] = levelMinKeys[nodeIndex+childOffset]
				}
			}
			internal.numKeys = take - 1

			upperNodes = append(upperNodes, internal)
			upperMinKeys = append(upperMinKeys, levelMinKeys[nodeIndex])

			nodeIndex += take
		}

		levelNodes = upperNodes
		levelMinKeys = upperMinKeys
		tree.height++
	}

	tree.root = levelNodes[0]
	tree.count = len(items)
	err = nil

	return
}
