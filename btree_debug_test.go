// Copyright (c) 2015-2021, NVIDIA CORPORATION.
// SPDX-License-Identifier: Apache-2.0

package bptree

import (
	"strings"
	"testing"

	"github.com/NVIDIA/bptree/conf"
	"github.com/NVIDIA/bptree/logger"
)

// TestDebugLogging proves the per-tree debug flag routes rebalance decision
// points to the log sink and that successful point operations stay quiet.
func TestDebugLogging(t *testing.T) {
	var (
		err    error
		target logger.LogTarget
		tree   BPlusTree
	)

	confMap, err := conf.MakeConfMapFromStrings([]string{
		"Logging.LogFilePath=/dev/null",
		"Logging.DebugLevelLogging=bptree",
	})
	if nil != err {
		t.Fatalf("conf.MakeConfMapFromStrings() failed: %v", err)
	}

	err = logger.Up(confMap)
	if nil != err {
		t.Fatalf("logger.Up() failed: %v", err)
	}
	defer func() {
		_ = logger.Down()
	}()

	target.Init(100)
	logger.AddLogTarget(target)

	tree, err = NewBPlusTree(4, CompareInt, nil, nil, nil, true)
	if nil != err {
		t.Fatalf("NewBPlusTree() failed: %v", err)
	}
	defer tree.Free()

	for key := 0; key < 50; key++ {
		err = tree.Insert(key)
		if nil != err {
			t.Fatalf("tree.Insert(%d) failed: %v", key, err)
		}
	}

	// successful point operations must not log

	entriesBeforeSearches := target.LogBuf.TotalEntries
	for key := 0; key < 50; key++ {
		_, _, err = tree.Search(key)
		if nil != err {
			t.Fatalf("tree.Search(%d) failed: %v", key, err)
		}
	}
	if target.LogBuf.TotalEntries != entriesBeforeSearches {
		t.Fatalf("successful searches emitted %d debug entries", target.LogBuf.TotalEntries-entriesBeforeSearches)
	}

	tree.Dump()

	sawDump := false
	for _, entry := range target.LogBuf.LogEntries {
		if strings.Contains(entry, "bptree.Dump()") {
			sawDump = true
		}
	}
	if !sawDump {
		t.Fatalf("tree.Dump() emitted nothing")
	}

	// draining the tree forces borrows, merges, and root collapses

	for key := 0; key < 50; key++ {
		err = tree.Delete(key)
		if nil != err {
			t.Fatalf("tree.Delete(%d) failed: %v", key, err)
		}
	}

	sawMerge := false
	sawRebalance := false
	for _, entry := range target.LogBuf.LogEntries {
		if strings.Contains(entry, "merging child index") {
			sawMerge = true
		}
		if strings.Contains(entry, "rebalance at depth") {
			sawRebalance = true
		}
	}
	if !sawRebalance {
		t.Fatalf("draining the tree logged no rebalance steps")
	}
	if !sawMerge {
		t.Fatalf("draining the tree logged no merge directions")
	}
}

// TestDebugLoggingDisabled proves a debugEnabled=false tree stays silent
// even with the sink wide open.
func TestDebugLoggingDisabled(t *testing.T) {
	var (
		err    error
		target logger.LogTarget
		tree   BPlusTree
	)

	confMap, err := conf.MakeConfMapFromStrings([]string{
		"Logging.LogFilePath=/dev/null",
		"Logging.DebugLevelLogging=bptree",
	})
	if nil != err {
		t.Fatalf("conf.MakeConfMapFromStrings() failed: %v", err)
	}

	err = logger.Up(confMap)
	if nil != err {
		t.Fatalf("logger.Up() failed: %v", err)
	}
	defer func() {
		_ = logger.Down()
	}()

	target.Init(100)
	logger.AddLogTarget(target)

	tree, err = NewBPlusTree(4, CompareInt, nil, nil, nil, false)
	if nil != err {
		t.Fatalf("NewBPlusTree() failed: %v", err)
	}
	defer tree.Free()

	entriesBefore := target.LogBuf.TotalEntries

	for key := 0; key < 50; key++ {
		err = tree.Insert(key)
		if nil != err {
			t.Fatalf("tree.Insert(%d) failed: %v", key, err)
		}
	}
	for key := 0; key < 50; key++ {
		err = tree.Delete(key)
		if nil != err {
			t.Fatalf("tree.Delete(%d) failed: %v", key, err)
		}
	}

	if target.LogBuf.TotalEntries != entriesBefore {
		t.Fatalf("debug-disabled tree emitted %d entries", target.LogBuf.TotalEntries-entriesBefore)
	}
}
