// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package blob is the public entry point of the tensorblob runtime.
//
// A Blob is a typed view over a header region and a body region of raw
// memory. The header carries optional per-instance metadata fields (data
// ids, column counts and valid-extent counters); the body carries the
// densely packed elements. Blobs never own memory: registers (Regst) do.
//
// # Quick Start
//
//	desc, _ := blob.NewDesc(tensor.Shape{4, 8}, tensor.Float32,
//	    blob.WithDim0ValidNum(tensor.Shape{2, 2}))
//	r, _ := blob.NewRegst(&blob.RegstDesc{
//	    Name:    "in",
//	    MemCase: blob.HostMemCase(),
//	    Blobs:   []blob.NamedBlobDesc{{Name: "x", Desc: desc}},
//	}, blob.HeapAllocator{}, blob.NewDefaultDispatcher())
//	defer r.Close()
//
//	x := r.Blob("x")
//	x.SetDim0ValidNum(1, 3)
//	x.Shape() // (3,8): the last group is truncated
//
// # Copies
//
// Every copy is issued on a Ctx. SyncCtx runs copies inline; StreamCtx runs
// them in FIFO order on a background goroutine and reports failures from
// Sync. Body copies route through the Dispatcher, which picks an engine for
// the source and destination placements.
//
// # Preconditions
//
// Violated preconditions (absent fields, out-of-range indices, size
// mismatches) panic with a *CheckError.
package blob
