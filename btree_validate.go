// Copyright (c) 2015-2021, NVIDIA CORPORATION.
// SPDX-License-Identifier: Apache-2.0

package bptree

import (
	"fmt"

	"github.com/NVIDIA/bptree/blunder"
)

// Validate re-derives every shape invariant from the node graph and errors
// on the first violation:
//
//   - keys strictly increase within every node and sit inside the key
//     bounds implied by the separators above (fence-key discipline)
//   - every non-root node is within its fill band (nodes on the rightmost
//     spine may sit below the floor: bulk loading leaves its remainder
//     there)
//   - every leaf sits at depth == height
//   - the leaf sibling chain visits exactly the leaves of the spine, in
//     order, ending in nil
//   - the item count equals the number of leaf slots in use
func (tree *btreeTreeStruct) Validate() (err error) {
	var (
		chainNode   *btreeNodeStruct
		itemCount   int
		spineLeaves []*btreeNodeStruct
	)

	if nil == tree || nil == tree.root {
		err = blunder.NewError(blunder.InvalidArgError, "Validate() called on absent tree")
		return
	}

	err = tree.validateSubtree(tree.root, 1, true, true, nil, nil, &spineLeaves, &itemCount)
	if nil != err {
		return
	}

	chainNode = spineLeaves[0]
	for leafIndex := 0; leafIndex < len(spineLeaves); leafIndex++ {
		if chainNode != spineLeaves[leafIndex] {
			err = fmt.Errorf("leaf chain diverges from the spine at leaf %d", leafIndex)
			return
		}
		chainNode = chainNode.next
	}
	if nil != chainNode {
		err = fmt.Errorf("leaf chain extends past the rightmost spine leaf")
		return
	}

	if itemCount != tree.count {
		err = fmt.Errorf("item count %d != %d leaf slots in use", tree.count, itemCount)
		return
	}

	err = nil

	return
}

func (tree *btreeTreeStruct) validateSubtree(node *btreeNodeStruct, depth int, isRoot bool, isRightmost bool, lowerKey Value, upperKey Value, spineLeaves *[]*btreeNodeStruct, itemCount *int) (err error) {
	var (
		childLowerKey Value
		childUpperKey Value
		compareResult int
	)

	if isRoot {
		if !node.leaf && 1 > node.numKeys {
			err = fmt.Errorf("internal root has no keys")
			return
		}
	} else {
		if 1 > node.numKeys {
			err = fmt.Errorf("non-root node has no keys")
			return
		}
		if !isRightmost && node.numKeys < tree.minKeysForNode(node) {
			err = fmt.Errorf("node below fill floor: numKeys %d < %d (leaf=%v)", node.numKeys, tree.minKeysForNode(node), node.leaf)
			return
		}
	}
	if node.numKeys > tree.maxKeysPerNode {
		err = fmt.Errorf("node above fill ceiling: numKeys %d > %d", node.numKeys, tree.maxKeysPerNode)
		return
	}

	for keyIndex := 0; keyIndex < node.numKeys; keyIndex++ {
		if 0 < keyIndex {
			compareResult, err = tree.compare(node.keys[keyIndex-1], node.keys[keyIndex], tree.userData)
			if nil != err {
				return
			}
			if 0 <= compareResult {
				err = fmt.Errorf("keys not strictly increasing at slot %d", keyIndex)
				return
			}
		}
		if nil != lowerKey {
			compareResult, err = tree.compare(node.keys[keyIndex], lowerKey, tree.userData)
			if nil != err {
				return
			}
			if 0 > compareResult {
				err = fmt.Errorf("key at slot %d below its separator fence", keyIndex)
				return
			}
		}
		if nil != upperKey {
			compareResult, err = tree.compare(node.keys[keyIndex], upperKey, tree.userData)
			if nil != err {
				return
			}
			if 0 <= compareResult {
				err = fmt.Errorf("key at slot %d at or above its separator fence", keyIndex)
				return
			}
		}
	}

	if node.leaf {
		if depth != tree.height {
			err = fmt.Errorf("leaf at depth %d in a height %d tree", depth, tree.height)
			return
		}
		*spineLeaves = append(*spineLeaves, node)
		*itemCount += node.numKeys
		err = nil
		return
	}

	for childIndex := 0; childIndex <= node.numKeys; childIndex++ {
		if 0 == childIndex {
			childLowerKey = lowerKey
		} else {
			childLowerKey = node.keys[childIndex-1]
		}
		if childIndex == node.numKeys {
			childUpperKey = upperKey
		} else {
			childUpperKey = node.keys[childIndex]
		}

		err = tree.validateSubtree(node.children[childIndex].(*btreeNodeStruct), depth+1, false, isRightmost && childIndex == node.numKeys, childLowerKey, childUpperKey, spineLeaves, itemCount)
		if nil != err {
			return
		}
	}

	err = nil

	return
}
