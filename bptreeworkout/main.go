// Copyright (c) 2015-2021, NVIDIA CORPORATION.
// SPDX-License-Identifier: Apache-2.0

// bptreeworkout drives measured batches of index operations against the
// bptree engine, and, for comparison, against two reference ordered
// containers: sortedmap's LLRB tree and google/btree.
//
// Each worker goroutine owns its tree outright (the engine is a single-owner
// structure), so adding workers scales the measured population, not
// contention.
package main

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/NVIDIA/sortedmap"
	googlebtree "github.com/google/btree"

	"github.com/NVIDIA/bptree"
	"github.com/NVIDIA/bptree/conf"
	"github.com/NVIDIA/bptree/logger"
	"github.com/NVIDIA/bptree/utils"
)

var (
	debugEnabled   bool
	doNextStepChan chan bool
	keysPerWorker  uint64
	maxKeysPerNode uint64
	measureBulk    bool
	measureDelete  bool
	measureInsert  bool
	measureLLRB    bool
	measureOracle  bool
	measureRange   bool
	measureSearch  bool
	seed           int64
	stepErrChan    chan error
	workers        uint64
)

func usage(file *os.File) {
	fmt.Fprintf(file, "Usage:\n")
	fmt.Fprintf(file, "    %v [isrdblg] workers keys-per-worker conf-file [section.option=value]*\n", os.Args[0])
	fmt.Fprintf(file, "  where:\n")
	fmt.Fprintf(file, "    i                       measure bptree insert\n")
	fmt.Fprintf(file, "    s                       measure bptree search (after an unmeasured insert pass)\n")
	fmt.Fprintf(file, "    r                       measure bptree range search (after an unmeasured insert pass)\n")
	fmt.Fprintf(file, "    d                       measure bptree delete (after an unmeasured insert pass)\n")
	fmt.Fprintf(file, "    b                       measure bptree bulk load\n")
	fmt.Fprintf(file, "    l                       measure sortedmap LLRB put (baseline)\n")
	fmt.Fprintf(file, "    g                       measure google/btree insert (baseline)\n")
	fmt.Fprintf(file, "    workers                 number of worker goroutines (each owns its own tree)\n")
	fmt.Fprintf(file, "    keys-per-worker         number of keys each worker indexes\n")
	fmt.Fprintf(file, "    conf-file               input to conf.MakeConfMapFromFile()\n")
	fmt.Fprintf(file, "    [section.option=value]* optional input to confMap.UpdateFromStrings()\n")
	fmt.Fprintf(file, "\n")
	fmt.Fprintf(file, "Note: Precisely one test selector must be specified\n")
	fmt.Fprintf(file, "      The conf file's [BPTreeWorkout] section supplies MaxKeysPerNode, Seed, and DebugEnabled\n")
}

func main() {
	var (
		confMap                      conf.ConfMap
		durationOfMeasuredOperations time.Duration
		err                          error
		latencyPerOpInMicroSeconds   float64
		opsPerSecond                 float64
		timeAfterMeasuredOperations  time.Time
		timeBeforeMeasuredOperations time.Time
		totalOperations              uint64
		workerIndex                  uint64
	)

	// Parse arguments

	if 5 > len(os.Args) {
		usage(os.Stderr)
		os.Exit(1)
	}

	switch os.Args[1] {
	case "i":
		measureInsert = true
	case "s":
		measureSearch = true
	case "r":
		measureRange = true
	case "d":
		measureDelete = true
	case "b":
		measureBulk = true
	case "l":
		measureLLRB = true
	case "g":
		measureOracle = true
	default:
		fmt.Fprintf(os.Stderr, "os.Args[1] ('%v') must be one of 'i', 's', 'r', 'd', 'b', 'l', or 'g'\n", os.Args[1])
		os.Exit(1)
	}

	workers, err = strconv.ParseUint(os.Args[2], 10, 64)
	if nil != err {
		fmt.Fprintf(os.Stderr, "strconv.ParseUint(\"%v\", 10, 64) of workers failed: %v\n", os.Args[2], err)
		os.Exit(1)
	}
	if 0 == workers {
		fmt.Fprintf(os.Stderr, "workers must be a positive number\n")
		os.Exit(1)
	}

	keysPerWorker, err = strconv.ParseUint(os.Args[3], 10, 64)
	if nil != err {
		fmt.Fprintf(os.Stderr, "strconv.ParseUint(\"%v\", 10, 64) of keys-per-worker failed: %v\n", os.Args[3], err)
		os.Exit(1)
	}
	if 0 == keysPerWorker {
		fmt.Fprintf(os.Stderr, "keys-per-worker must be a positive number\n")
		os.Exit(1)
	}

	confMap, err = conf.MakeConfMapFromFile(os.Args[4])
	if nil != err {
		fmt.Fprintf(os.Stderr, "conf.MakeConfMapFromFile(\"%v\") failed: %v\n", os.Args[4], err)
		os.Exit(1)
	}

	if 5 < len(os.Args) {
		err = confMap.UpdateFromStrings(os.Args[5:])
		if nil != err {
			fmt.Fprintf(os.Stderr, "confMap.UpdateFromStrings(%#v) failed: %v\n", os.Args[5:], err)
			os.Exit(1)
		}
	}

	// Start up needed components

	err = logger.Up(confMap)
	if nil != err {
		fmt.Fprintf(os.Stderr, "logger.Up() failed: %v\n", err)
		os.Exit(1)
	}

	maxKeysPerNode, err = confMap.FetchOptionValueUint64("BPTreeWorkout", "MaxKeysPerNode")
	if nil != err {
		maxKeysPerNode = 32
	}

	seed, err = confMap.FetchOptionValueInt64("BPTreeWorkout", "Seed")
	if nil != err {
		seed = 42
	}

	debugEnabled, err = confMap.FetchOptionValueBool("BPTreeWorkout", "DebugEnabled")
	if nil != err {
		debugEnabled = false
	}

	// Launch the workers and measure the selected step

	stepErrChan = make(chan error)
	doNextStepChan = make(chan bool)

	for workerIndex = 0; workerIndex < workers; workerIndex++ {
		switch {
		case measureLLRB:
			go llrbWorkout(workerIndex)
		case measureOracle:
			go googleBTreeWorkout(workerIndex)
		default:
			go bptreeWorkout(workerIndex)
		}
	}

	// Await every worker's setup step

	for workerIndex = 0; workerIndex < workers; workerIndex++ {
		err = <-stepErrChan
		if nil != err {
			fmt.Fprintf(os.Stderr, "worker setup failed: %v\n", err)
			os.Exit(1)
		}
	}

	// Release the measured step and time it

	timeBeforeMeasuredOperations = time.Now()

	for workerIndex = 0; workerIndex < workers; workerIndex++ {
		doNextStepChan <- true
	}

	for workerIndex = 0; workerIndex < workers; workerIndex++ {
		err = <-stepErrChan
		if nil != err {
			fmt.Fprintf(os.Stderr, "worker measured step failed: %v\n", err)
			os.Exit(1)
		}
	}

	timeAfterMeasuredOperations = time.Now()

	// Report

	durationOfMeasuredOperations = timeAfterMeasuredOperations.Sub(timeBeforeMeasuredOperations)

	totalOperations = workers * keysPerWorker
	opsPerSecond = float64(totalOperations) * float64(time.Second) / float64(durationOfMeasuredOperations)
	latencyPerOpInMicroSeconds = float64(durationOfMeasuredOperations) / float64(totalOperations) / float64(time.Microsecond)

	fmt.Printf("%v workers x %v keys: %v in %v\n", workers, keysPerWorker, os.Args[1], durationOfMeasuredOperations)
	fmt.Printf("  %.0f ops/sec, %.3f us/op\n", opsPerSecond, latencyPerOpInMicroSeconds)

	err = logger.Down()
	if nil != err {
		fmt.Fprintf(os.Stderr, "logger.Down() failed: %v\n", err)
		os.Exit(1)
	}
}

// bptreeWorkout builds this engine's tree and runs the selected measured
// step over keysPerWorker shuffled keys.
func bptreeWorkout(workerIndex uint64) {
	var (
		err       error
		items     []bptree.Value
		key       int
		loadItems []bptree.Value
		ok        bool
		sw        *utils.Stopwatch
		tree      bptree.BPlusTree
	)

	keys := utils.KnuthShuffledIntSlice(int(keysPerWorker), seed+int64(workerIndex))

	tree, err = bptree.NewBPlusTree(int(maxKeysPerNode), bptree.CompareInt, nil, nil, nil, debugEnabled)
	if nil != err {
		stepErrChan <- err
		return
	}

	// setup step: everything but the measured pass

	if !measureInsert && !measureBulk {
		for _, key = range keys {
			err = tree.Insert(key)
			if nil != err {
				stepErrChan <- err
				return
			}
		}
	}
	if measureBulk {
		loadItems = make([]bptree.Value, keysPerWorker)
		for i := range loadItems {
			loadItems[i] = i
		}
	}

	stepErrChan <- nil
	_ = <-doNextStepChan

	sw = utils.NewStopwatch()

	switch {
	case measureInsert:
		for _, key = range keys {
			err = tree.Insert(key)
			if nil != err {
				stepErrChan <- err
				return
			}
		}
	case measureSearch:
		for _, key = range keys {
			_, ok, err = tree.Search(key)
			if nil != err {
				stepErrChan <- err
				return
			}
			if !ok {
				stepErrChan <- fmt.Errorf("worker %d: Search(%d) returned !ok", workerIndex, key)
				return
			}
		}
	case measureRange:
		for _, key = range keys {
			items, err = tree.RangeSearch(key, key+100)
			if nil != err {
				stepErrChan <- err
				return
			}
			tree.ReleaseItems(items)
		}
	case measureDelete:
		for _, key = range keys {
			err = tree.Delete(key)
			if nil != err {
				stepErrChan <- err
				return
			}
		}
	case measureBulk:
		tree.Free()
		tree, ok, err = bptree.BulkLoadBPlusTree(loadItems, int(maxKeysPerNode), bptree.CompareInt, nil, nil, nil, debugEnabled)
		if nil != err {
			stepErrChan <- err
			return
		}
		if !ok {
			stepErrChan <- fmt.Errorf("worker %d: BulkLoadBPlusTree() returned !ok", workerIndex)
			return
		}
	}

	_ = sw.Stop()
	logger.Infof("worker %d: measured step took %s", workerIndex, sw.ElapsedMsString())

	tree.Free()

	stepErrChan <- nil
}

// llrbWorkoutContext satisfies sortedmap's dump callbacks; the workout
// never dumps, so the renderings are minimal.
type llrbWorkoutContext struct{}

func (context *llrbWorkoutContext) DumpKey(key sortedmap.Key) (keyAsString string, err error) {
	keyAsString = fmt.Sprintf("%v", key)
	err = nil
	return
}

func (context *llrbWorkoutContext) DumpValue(value sortedmap.Value) (valueAsString string, err error) {
	valueAsString = fmt.Sprintf("%v", value)
	err = nil
	return
}

// llrbWorkout runs the measured put pass against sortedmap's LLRB tree for
// a baseline on the same key stream.
func llrbWorkout(workerIndex uint64) {
	var (
		err  error
		key  int
		ok   bool
		tree sortedmap.LLRBTree
	)

	keys := utils.KnuthShuffledIntSlice(int(keysPerWorker), seed+int64(workerIndex))

	tree = sortedmap.NewLLRBTree(sortedmap.CompareInt, &llrbWorkoutContext{})

	stepErrChan <- nil
	_ = <-doNextStepChan

	for _, key = range keys {
		ok, err = tree.Put(key, key)
		if nil != err {
			stepErrChan <- err
			return
		}
		if !ok {
			stepErrChan <- fmt.Errorf("worker %d: LLRB Put(%d) returned !ok", workerIndex, key)
			return
		}
	}

	stepErrChan <- nil
}

// googleBTreeWorkout runs the measured insert pass against google/btree for
// a second baseline on the same key stream.
func googleBTreeWorkout(workerIndex uint64) {
	var (
		degree int
		key    int
		tree   *googlebtree.BTree
	)

	keys := utils.KnuthShuffledIntSlice(int(keysPerWorker), seed+int64(workerIndex))

	degree = int(maxKeysPerNode) / 2
	if 2 > degree {
		degree = 2
	}
	tree = googlebtree.New(degree)

	stepErrChan <- nil
	_ = <-doNextStepChan

	for _, key = range keys {
		if nil != tree.ReplaceOrInsert(googlebtree.Int(key)) {
			stepErrChan <- fmt.Errorf("worker %d: google/btree ReplaceOrInsert(%d) hit a duplicate", workerIndex, key)
			return
		}
	}

	stepErrChan <- nil
}
