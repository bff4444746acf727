// Copyright (c) 2015-2021, NVIDIA CORPORATION.
// SPDX-License-Identifier: Apache-2.0

package bptree

import (
	"os"
	"strconv"
	"testing"

	"github.com/NVIDIA/bptree/utils"
)

// The benchmarks honor the harness environment of the original bench
// programs: SEED drives the shuffles, N sizes the preloaded tree, and
// MAX_ITEMS caps the per-iteration batch.
const (
	benchDefaultMaxItems = 1000
	benchDefaultN        = 100000
	benchDefaultSeed     = int64(42)
	benchMaxKeysPerNode  = 32
)

func benchEnvInt64(name string, defaultValue int64) (value int64) {
	var (
		err      error
		envValue string
	)

	envValue = os.Getenv(name)
	if "" == envValue {
		value = defaultValue
		return
	}
	value, err = strconv.ParseInt(envValue, 10, 64)
	if nil != err {
		value = defaultValue
	}
	return
}

func benchPreloadedTree(b *testing.B, numKeys int, seed int64) (tree BPlusTree) {
	var (
		err error
	)

	tree, err = NewBPlusTree(benchMaxKeysPerNode, CompareInt, nil, nil, nil, false)
	if nil != err {
		b.Fatalf("NewBPlusTree() failed: %v", err)
	}

	for _, key := range utils.KnuthShuffledIntSlice(numKeys, seed) {
		err = tree.Insert(key)
		if nil != err {
			b.Fatalf("tree.Insert(%d) failed: %v", key, err)
		}
	}

	return
}

func BenchmarkInsert(b *testing.B) {
	var (
		err  error
		seed = benchEnvInt64("SEED", benchDefaultSeed)
		tree BPlusTree
	)

	keys := utils.KnuthShuffledIntSlice(b.N, seed)

	tree, err = NewBPlusTree(benchMaxKeysPerNode, CompareInt, nil, nil, nil, false)
	if nil != err {
		b.Fatalf("NewBPlusTree() failed: %v", err)
	}
	defer tree.Free()

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		err = tree.Insert(keys[i])
		if nil != err {
			b.Fatalf("tree.Insert(%d) failed: %v", keys[i], err)
		}
	}
}

func BenchmarkSearch(b *testing.B) {
	var (
		numKeys = int(benchEnvInt64("N", benchDefaultN))
		seed    = benchEnvInt64("SEED", benchDefaultSeed)
	)

	tree := benchPreloadedTree(b, numKeys, seed)
	defer tree.Free()

	probes := utils.KnuthShuffledIntSlice(numKeys, seed+1)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, ok, err := tree.Search(probes[i%numKeys])
		if nil != err {
			b.Fatalf("tree.Search() failed: %v", err)
		}
		if !ok {
			b.Fatalf("tree.Search(%d) returned !ok", probes[i%numKeys])
		}
	}
}

func BenchmarkDelete(b *testing.B) {
	var (
		err  error
		seed = benchEnvInt64("SEED", benchDefaultSeed)
	)

	tree := benchPreloadedTree(b, b.N, seed)
	defer tree.Free()

	victims := utils.KnuthShuffledIntSlice(b.N, seed+2)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		err = tree.Delete(victims[i])
		if nil != err {
			b.Fatalf("tree.Delete(%d) failed: %v", victims[i], err)
		}
	}
}

func BenchmarkRangeSearch(b *testing.B) {
	var (
		maxItems = int(benchEnvInt64("MAX_ITEMS", benchDefaultMaxItems))
		numKeys  = int(benchEnvInt64("N", benchDefaultN))
		seed     = benchEnvInt64("SEED", benchDefaultSeed)
	)

	tree := benchPreloadedTree(b, numKeys, seed)
	defer tree.Free()

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		startKey := (i * 7919) % numKeys
		endKey := startKey + maxItems - 1

		items, err := tree.RangeSearch(startKey, endKey)
		if nil != err {
			b.Fatalf("tree.RangeSearch(%d, %d) failed: %v", startKey, endKey, err)
		}
		tree.ReleaseItems(items)
	}
}

func BenchmarkIterate(b *testing.B) {
	var (
		numKeys = int(benchEnvInt64("N", benchDefaultN))
		seed    = benchEnvInt64("SEED", benchDefaultSeed)
	)

	tree := benchPreloadedTree(b, numKeys, seed)
	defer tree.Free()

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		iter, ok := tree.NewIterator()
		if !ok {
			b.Fatalf("tree.NewIterator() returned !ok")
		}
		walked := 0
		for {
			_, ok = iter.Next()
			if !ok {
				break
			}
			walked++
		}
		if walked != numKeys {
			b.Fatalf("iterator walked %d items...expected %d", walked, numKeys)
		}
	}
}

func BenchmarkBulkLoad(b *testing.B) {
	var (
		numKeys = int(benchEnvInt64("N", benchDefaultN))
	)

	items := make([]Value, numKeys)
	for i := range items {
		items[i] = i
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		tree, ok, err := BulkLoadBPlusTree(items, benchMaxKeysPerNode, CompareInt, nil, nil, nil, false)
		if nil != err {
			b.Fatalf("BulkLoadBPlusTree() failed: %v", err)
		}
		if !ok {
			b.Fatalf("BulkLoadBPlusTree() returned !ok")
		}
		tree.Free()
	}
}
