// Copyright (c) 2015-2021, NVIDIA CORPORATION.
// SPDX-License-Identifier: Apache-2.0

package bptree

import (
	"github.com/NVIDIA/bptree/blunder"
)

const initialRangeResultCapacity = 16

func (tree *btreeTreeStruct) RangeSearch(startKey Key, endKey Key) (items []Value, err error) {
	var (
		compareToEnd   int
		compareToStart int
		count          int
		grownSlots     []Value
		node           *btreeNodeStruct
		resultSlots    []Value
	)

	if nil == tree || nil == tree.root {
		err = blunder.NewError(blunder.InvalidArgError, "RangeSearch() called on absent tree")
		return
	}

	node, err = tree.findLeafNode(startKey)
	if nil != err {
		return
	}

	resultSlots, err = tree.allocValueSlots(initialRangeResultCapacity)
	if nil != err {
		return
	}

	for nil != node {
		for pos := 0; pos < node.numKeys; pos++ {
			compareToEnd, err = tree.compare(node.keys[pos], endKey, tree.userData)
			if nil != err {
				tree.releaseFn(resultSlots)
				items = nil
				err = blunder.NewError(blunder.InvalidArgError, "comparator failed: %v", err)
				return
			}
			if 0 < compareToEnd {
				items = resultSlots[0:count]
				return
			}
			compareToStart, err = tree.compare(node.keys[pos], startKey, tree.userData)
			if nil != err {
				tree.releaseFn(resultSlots)
				items = nil
				err = blunder.NewError(blunder.InvalidArgError, "comparator failed: %v", err)
				return
			}
			if 0 > compareToStart {
				continue
			}
			if count >= len(resultSlots) {
				grownSlots, err = tree.allocValueSlots(2 * len(resultSlots))
				if nil != err {
					tree.releaseFn(resultSlots)
					items = nil
					return
				}
				copy(grownSlots, resultSlots)
				tree.releaseFn(resultSlots)
				resultSlots = grownSlots
			}
			resultSlots[count] = node.items[pos]
			count++
		}
		node = node.next
	}

	items = resultSlots[0:count]

	return
}

func (tree *btreeTreeStruct) ReleaseItems(items []Value) {
	if nil == tree || nil == items {
		return
	}
	tree.releaseFn(items)
}

type btreeIteratorStruct struct {
	node *btreeNodeStruct // nil once the walk is done
	pos  int
}

func (tree *btreeTreeStruct) NewIterator() (iter Iterator, ok bool) {
	var (
		node *btreeNodeStruct
	)

	if nil == tree || nil == tree.root || 0 == tree.count {
		ok = false
		return
	}

	node = tree.root
	for !node.leaf {
		node = node.children[0].(*btreeNodeStruct)
	}

	iter = &btreeIteratorStruct{node: node, pos: 0}
	ok = true

	return
}

func (iterator *btreeIteratorStruct) Next() (item Value, ok bool) {
	if nil == iterator.node {
		ok = false
		return
	}

	item = iterator.node.items[iterator.pos]
	ok = true

	iterator.pos++
	if iterator.pos >= iterator.node.numKeys {
		// non-rightmost leaves are never empty, so landing on the next
		// leaf means there is an item to return on the next call
		iterator.node = iterator.node.next
		iterator.pos = 0
	}

	return
}
