// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package tensor provides the shape, data type and device vocabulary of the
// tensorblob runtime.
//
// # Overview
//
// A Shape is an ordered list of non-negative extents. Only axis 0 of a shape
// is ever mutated, and only by a blob refreshing its dynamic shape:
//
//	s := tensor.Shape{4, 8}
//	s.NumElements()   // 32
//	s.Count(1)        // 8
//	s.ComputeStrides() // [8 1]
//
// # Reductions
//
// Reduction consumers compute their output shape with Ones (full
// reduction) or ReducedShape (selected axes collapsed to 1):
//
//	tensor.Ones(3)                                   // (1,1,1)
//	tensor.ReducedShape(tensor.Shape{2, 3, 4}, []int{-1}) // (2,3,1)
//
// # Supported Data Types
//
// Blob bodies can be viewed as any type of the DType constraint:
//   - float32, float64 (floating-point)
//   - int32, int64, int8 (signed integers)
//   - uint8 (unsigned integers)
//   - bool (boolean masks)
//
// # Device Support
//
// Device names the kind of memory a region lives in: CPU, CUDA, Vulkan,
// Metal or WebGPU. Copies between devices are routed by package blob.
package tensor
