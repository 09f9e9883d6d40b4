// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

package tensor

import (
	"github.com/born-ml/tensorblob/internal/tensor"
)

// Type aliases for public API

// DType is a constraint for blob element types.
// Supported types: float32, float64, int32, int64, int8, uint8, bool.
type DType = tensor.DType

// DataType represents the element type of a blob body.
type DataType = tensor.DataType

// Data type constants.
const (
	Float32 DataType = tensor.Float32
	Float64 DataType = tensor.Float64
	Int32   DataType = tensor.Int32
	Int64   DataType = tensor.Int64
	Int8    DataType = tensor.Int8
	Uint8   DataType = tensor.Uint8
	Bool    DataType = tensor.Bool
)

// Device represents the kind of memory a region lives in.
type Device = tensor.Device

// Device constants.
const (
	CPU    Device = tensor.CPU
	CUDA   Device = tensor.CUDA
	Vulkan Device = tensor.Vulkan
	Metal  Device = tensor.Metal
	WebGPU Device = tensor.WebGPU
)

// Shape represents the extents of a blob.
// Example: Shape{2, 3, 4} has 3 axes and 24 elements.
type Shape = tensor.Shape

// Ones returns an n-axis shape of all ones.
func Ones(n int) Shape {
	return tensor.Ones(n)
}

// ReducedShape returns a copy of base with the listed axes collapsed to 1.
// Negative axes count from the end.
func ReducedShape(base Shape, axes []int) Shape {
	return tensor.ReducedShape(base, axes)
}

// ParseDataType maps a name such as "float32" to its DataType.
func ParseDataType(name string) (DataType, error) {
	return tensor.ParseDataType(name)
}

// ParseDevice maps a name such as "CUDA" to its Device.
func ParseDevice(name string) (Device, bool) {
	return tensor.ParseDevice(name)
}

// DataTypeOf returns the DataType of the Go type T.
func DataTypeOf[T DType]() DataType {
	return tensor.DataTypeOf[T]()
}
