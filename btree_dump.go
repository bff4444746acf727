// Copyright (c) 2015-2021, NVIDIA CORPORATION.
// SPDX-License-Identifier: Apache-2.0

package bptree

import (
	"fmt"
	"strings"

	"github.com/NVIDIA/bptree/logger"
)

// Dump renders the node graph through the logger, one line per node,
// indented by depth. Keys and items print with their %v rendering; callers
// indexing unprintable keys get their type names instead of garbage.
func (tree *btreeTreeStruct) Dump() {
	if nil == tree || nil == tree.root {
		logger.Infof("bptree.Dump(): absent tree")
		return
	}

	logger.Infof("bptree.Dump(): maxKeysPerNode=%d height=%d count=%d", tree.maxKeysPerNode, tree.height, tree.count)

	tree.dumpSubtree(tree.root, 0)
}

func (tree *btreeTreeStruct) dumpSubtree(node *btreeNodeStruct, depth int) {
	var (
		indent  string
		keyList []string
	)

	indent = strings.Repeat("  ", depth)

	for keyIndex := 0; keyIndex < node.numKeys; keyIndex++ {
		keyList = append(keyList, fmt.Sprintf("%v", node.keys[keyIndex]))
	}

	if node.leaf {
		logger.Infof("%sleaf     numKeys=%d keys=[%s] next=%v", indent, node.numKeys, strings.Join(keyList, " "), nil != node.next)
		return
	}

	logger.Infof("%sinternal numKeys=%d keys=[%s]", indent, node.numKeys, strings.Join(keyList, " "))

	for childIndex := 0; childIndex <= node.numKeys; childIndex++ {
		tree.dumpSubtree(node.children[childIndex].(*btreeNodeStruct), depth+1)
	}
}
