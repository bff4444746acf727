// Copyright (c) 2015-2021, NVIDIA CORPORATION.
// SPDX-License-Identifier: Apache-2.0

// Package bptree provides an in-memory B+ tree index over opaque items keyed
// by a caller-supplied total order.
//
// All items live in leaf nodes; non-leaf ("internal") nodes hold only
// separator keys. Leaves are linked left-to-right in key order, so range
// searches and in-order iteration walk the leaf chain without revisiting the
// internal spine.
//
// The tree is parametric over three caller-supplied capabilities: the
// comparator (plus an opaque userData value handed back on every compare),
// and an allocate/release hook pair through which every slot array the tree
// grows is obtained. Callers that don't care pass nil hooks and get
// make()-backed defaults; callers that do care (pooling, failure injection)
// see every growth path of the tree.
//
// A tree is a single-owner data structure. No operation blocks or yields,
// and no internal locking is performed; mutating a tree from two goroutines,
// or mutating it while an Iterator is live, is not supported.
package bptree

import (
	"bytes"
	"fmt"
	"strings"
)

type Key interface{}
type Value interface{}

// Compare returns <0 if key1 < key2, 0 if key1 == key2, >0 if key1 > key2.
//
// userData is the value supplied at tree construction, handed back verbatim
// on every call. A Compare must be pure, total, and deterministic over the
// keys it will ever see; returning 0 means "same key" and is treated as a
// duplicate on Insert and a hit on Search.
type Compare func(key1 Key, key2 Key, userData interface{}) (result int, err error)

// AllocFunc returns a freshly allocated slice of slotCount nil slots or an
// error. ReleaseFunc accepts anything AllocFunc returned; it must tolerate a
// nil slice (no-op).
//
// The tree obtains every slot array it grows through its AllocFunc: node
// key/item/child arrays, split scratch arrays, the deletion parent stack,
// and the range-search result buffer. An AllocFunc error surfaces to the
// caller as an AllocationError with the tree left in its prior valid state.
type AllocFunc func(slotCount int) (slots []Value, err error)
type ReleaseFunc func(slots []Value)

func CompareInt(key1 Key, key2 Key, userData interface{}) (result int, err error) {
	key1Int, ok := key1.(int)
	if !ok {
		err = fmt.Errorf("CompareInt(non-int,) not supported")
		return
	}
	key2Int, ok := key2.(int)
	if !ok {
		err = fmt.Errorf("CompareInt(int, non-int) not supported")
		return
	}

	result = key1Int - key2Int
	err = nil

	return
}

func CompareUint32(key1 Key, key2 Key, userData interface{}) (result int, err error) {
	key1Uint32, ok := key1.(uint32)
	if !ok {
		err = fmt.Errorf("CompareUint32(non-uint32,) not supported")
		return
	}
	key2Uint32, ok := key2.(uint32)
	if !ok {
		err = fmt.Errorf("CompareUint32(uint32, non-uint32) not supported")
		return
	}

	if key1Uint32 < key2Uint32 {
		result = -1
	} else if key1Uint32 == key2Uint32 {
		result = 0
	} else { // key1Uint32 > key2Uint32
		result = 1
	}

	err = nil

	return
}

func CompareUint64(key1 Key, key2 Key, userData interface{}) (result int, err error) {
	key1Uint64, ok := key1.(uint64)
	if !ok {
		err = fmt.Errorf("CompareUint64(non-uint64,) not supported")
		return
	}
	key2Uint64, ok := key2.(uint64)
	if !ok {
		err = fmt.Errorf("CompareUint64(uint64, non-uint64) not supported")
		return
	}

	if key1Uint64 < key2Uint64 {
		result = -1
	} else if key1Uint64 == key2Uint64 {
		result = 0
	} else { // key1Uint64 > key2Uint64
		result = 1
	}

	err = nil

	return
}

func CompareString(key1 Key, key2 Key, userData interface{}) (result int, err error) {
	key1String, ok := key1.(string)
	if !ok {
		err = fmt.Errorf("CompareString(non-string,) not supported")
		return
	}
	key2String, ok := key2.(string)
	if !ok {
		err = fmt.Errorf("CompareString(string, non-string) not supported")
		return
	}

	result = strings.Compare(key1String, key2String)
	err = nil

	return
}

func CompareByteSlice(key1 Key, key2 Key, userData interface{}) (result int, err error) {
	key1Slice, ok := key1.([]byte)
	if !ok {
		err = fmt.Errorf("CompareByteSlice(non-[]byte,) not supported")
		return
	}
	key2Slice, ok := key2.([]byte)
	if !ok {
		err = fmt.Errorf("CompareByteSlice([]byte, non-[]byte) not supported")
		return
	}

	result = bytes.Compare(key1Slice, key2Slice)
	err = nil

	return
}
