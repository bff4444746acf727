// Copyright (c) 2015-2021, NVIDIA CORPORATION.
// SPDX-License-Identifier: Apache-2.0

package bptree

import (
	"github.com/NVIDIA/bptree/blunder"
)

// Deletion descends iteratively, recording a (parent, childIndex) frame per
// internal level, then removes at the leaf and walks the recorded frames
// back up while the just-shrunk node is under its fill floor. The frame
// stack lives in slots from the alloc hook (initial capacity 16, doubling),
// so a hostile allocator surfaces here before anything is mutated.
const initialDeleteStackCapacity = 16

type deleteStackFrameStruct struct {
	node       *btreeNodeStruct
	childIndex int
}

func (tree *btreeTreeStruct) Delete(key Key) (err error) {
	var (
		childIndex int
		depth      int
		found      bool
		frame      *deleteStackFrameStruct
		newSlots   []Value
		node       *btreeNodeStruct
		pos        int
		stackSlots []Value
	)

	if nil == tree || nil == tree.root {
		err = blunder.NewError(blunder.InvalidArgError, "Delete() called on absent tree")
		return
	}

	stackSlots, err = tree.allocValueSlots(initialDeleteStackCapacity)
	if nil != err {
		return
	}

	// locate phase

	node = tree.root

	for !node.leaf {
		childIndex, err = tree.searchInternalNode(node, key)
		if nil != err {
			tree.releaseFn(stackSlots)
			return
		}
		if depth >= len(stackSlots) {
			newSlots, err = tree.allocValueSlots(2 * len(stackSlots))
			if nil != err {
				tree.releaseFn(stackSlots)
				return
			}
			copy(newSlots, stackSlots)
			tree.releaseFn(stackSlots)
			stackSlots = newSlots
		}
		stackSlots[depth] = &deleteStackFrameStruct{node: node, childIndex: childIndex}
		depth++
		node = node.children[childIndex].(*btreeNodeStruct)
	}

	pos, found, err = tree.searchLeafNode(node, key)
	if nil != err {
		tree.releaseFn(stackSlots)
		return
	}
	if !found {
		tree.releaseFn(stackSlots)
		err = blunder.NewError(blunder.KeyNotFoundError, "key not present")
		return
	}

	copy(node.keys[pos:node.numKeys-1], node.keys[pos+1:node.numKeys])
	copy(node.items[pos:node.numKeys-1], node.items[pos+1:node.numKeys])
	node.numKeys--
	node.keys[node.numKeys] = nil
	node.items[node.numKeys] = nil

	// rebalance phase

	for node != tree.root && node.numKeys < tree.minKeysForNode(node) && depth > 0 {
		var (
			child *btreeNodeStruct
			left  *btreeNodeStruct
			right *btreeNodeStruct
		)

		depth--
		frame = stackSlots[depth].(*deleteStackFrameStruct)
		childIndex = frame.childIndex
		child = frame.node.children[childIndex].(*btreeNodeStruct)

		if 0 < childIndex {
			left = frame.node.children[childIndex-1].(*btreeNodeStruct)
		}
		if childIndex < frame.node.numKeys {
			right = frame.node.children[childIndex+1].(*btreeNodeStruct)
		}

		tree.logDebugf("rebalance at depth %d: parent numKeys=%d childIndex=%d (leaf=%v numKeys=%d)",
			depth, frame.node.numKeys, childIndex, child.leaf, child.numKeys)

		if nil != left && left.numKeys > tree.minKeysForNode(left) {
			tree.borrowFromLeftSibling(frame.node, childIndex, child, left)
			break
		}
		if nil != right && right.numKeys > tree.minKeysForNode(right) {
			tree.borrowFromRightSibling(frame.node, childIndex, child, right)
			break
		}
		if nil != left {
			tree.logDebugf("merging child index %d with left sibling", childIndex)
			tree.mergeWithLeftSibling(frame.node, childIndex, child, left)
		} else {
			tree.logDebugf("merging child index %d with right sibling", childIndex)
			tree.mergeWithRightSibling(frame.node, childIndex, child, right)
		}

		// the merge removed a separator from the parent; keep walking up
		node = frame.node
	}

	// root collapse

	if !tree.root.leaf && 0 == tree.root.numKeys {
		var (
			oldRoot *btreeNodeStruct
		)

		oldRoot = tree.root
		tree.root = oldRoot.children[0].(*btreeNodeStruct)
		oldRoot.children[0] = nil
		tree.releaseNode(oldRoot)
		tree.height--
		tree.logDebugf("root collapsed (height now %d)", tree.height)
	}

	tree.count--
	tree.releaseFn(stackSlots)
	err = nil

	return
}

// borrowFromLeftSibling moves left's last entry to the front of child.
// For leaves the entry moves intact and the parent's separator becomes
// child's new first key; for internals the parent's separator rotates down
// into child while left's last key rotates up to replace it, and left's
// last child pointer comes along.
func (tree *btreeTreeStruct) borrowFromLeftSibling(parent *btreeNodeStruct, childIndex int, child *btreeNodeStruct, left *btreeNodeStruct) {
	if child.leaf {
		copy(child.keys[1:child.numKeys+1], child.keys[0:child.numKeys])
		copy(child.items[1:child.numKeys+1], child.items[0:child.numKeys])
		child.keys[0] = left.keys[left.numKeys-1]
		child.items[0] = left.items[left.numKeys-1]
		left.keys[left.numKeys-1] = nil
		left.items[left.numKeys-1] = nil
		left.numKeys--
		child.numKeys++
		parent.keys[childIndex-1] = child.keys[0]
	} else {
		copy(child.keys[1:child.numKeys+1], child.keys[0:child.numKeys])
		copy(child.children[1:child.numKeys+2], child.children[0:child.numKeys+1])
		child.keys[0] = parent.keys[childIndex-1]
		parent.keys[childIndex-1] = left.keys[left.numKeys-1]
		child.children[0] = left.children[left.numKeys]
		left.keys[left.numKeys-1] = nil
		left.children[left.numKeys] = nil
		left.numKeys--
		child.numKeys++
	}
}

// borrowFromRightSibling appends right's first entry to child, mirroring
// borrowFromLeftSibling.
func (tree *btreeTreeStruct) borrowFromRightSibling(parent *btreeNodeStruct, childIndex int, child *btreeNodeStruct, right *btreeNodeStruct) {
	if child.leaf {
		child.keys[child.numKeys] = right.keys[0]
		child.items[child.numKeys] = right.items[0]
		copy(right.keys[0:right.numKeys-1], right.keys[1:right.numKeys])
		copy(right.items[0:right.numKeys-1], right.items[1:right.numKeys])
		right.keys[right.numKeys-1] = nil
		right.items[right.numKeys-1] = nil
		right.numKeys--
		child.numKeys++
		parent.keys[childIndex] = right.keys[0]
	} else {
		child.keys[child.numKeys] = parent.keys[childIndex]
		child.children[child.numKeys+1] = right.children[0]
		parent.keys[childIndex] = right.keys[0]
		copy(right.keys[0:right.numKeys-1], right.keys[1:right.numKeys])
		copy(right.children[0:right.numKeys], right.children[1:right.numKeys+1])
		right.keys[right.numKeys-1] = nil
		right.children[right.numKeys] = nil
		right.numKeys--
		child.numKeys++
	}
}

// mergeWithLeftSibling folds child into left and drops child from the
// parent. A leaf merge stitches the sibling chain past the departed leaf;
// an internal merge first pulls the parent's separator down into left.
func (tree *btreeTreeStruct) mergeWithLeftSibling(parent *btreeNodeStruct, childIndex int, child *btreeNodeStruct, left *btreeNodeStruct) {
	if child.leaf {
		copy(left.keys[left.numKeys:left.numKeys+child.numKeys], child.keys[0:child.numKeys])
		copy(left.items[left.numKeys:left.numKeys+child.numKeys], child.items[0:child.numKeys])
		left.numKeys += child.numKeys
		left.next = child.next
	} else {
		left.keys[left.numKeys] = parent.keys[childIndex-1]
		left.numKeys++
		copy(left.keys[left.numKeys:left.numKeys+child.numKeys], child.keys[0:child.numKeys])
		copy(left.children[left.numKeys:left.numKeys+child.numKeys+1], child.children[0:child.numKeys+1])
		left.numKeys += child.numKeys
	}

	tree.removeFromParent(parent, childIndex-1, childIndex)
	tree.releaseNode(child)
}

// mergeWithRightSibling folds right into child and drops right from the
// parent, mirroring mergeWithLeftSibling.
func (tree *btreeTreeStruct) mergeWithRightSibling(parent *btreeNodeStruct, childIndex int, child *btreeNodeStruct, right *btreeNodeStruct) {
	if child.leaf {
		copy(child.keys[child.numKeys:child.numKeys+right.numKeys], right.keys[0:right.numKeys])
		copy(child.items[child.numKeys:child.numKeys+right.numKeys], right.items[0:right.numKeys])
		child.numKeys += right.numKeys
		child.next = right.next
	} else {
		child.keys[child.numKeys] = parent.keys[childIndex]
		child.numKeys++
		copy(child.keys[child.numKeys:child.numKeys+right.numKeys], right.keys[0:right.numKeys])
		copy(child.children[child.numKeys:child.numKeys+right.numKeys+1], right.children[0:right.numKeys+1])
		child.numKeys += right.numKeys
	}

	tree.removeFromParent(parent, childIndex, childIndex+1)
	tree.releaseNode(right)
}

// removeFromParent shifts out the separator at keyIndex and the child slot
// at childSlot after a merge.
func (tree *btreeTreeStruct) removeFromParent(parent *btreeNodeStruct, keyIndex int, childSlot int) {
	copy(parent.keys[keyIndex:parent.numKeys-1], parent.keys[keyIndex+1:parent.numKeys])
	copy(parent.children[childSlot:parent.numKeys], parent.children[childSlot+1:parent.numKeys+1])
	parent.numKeys--
	parent.keys[parent.numKeys] = nil
	parent.children[parent.numKeys+1] = nil
}
