package tensor

import (
	"fmt"
	"strings"
)

// Shape represents the extents of a blob, one entry per axis.
//
// A Shape is treated as immutable. The only exception is axis 0, which a
// blob rewrites in its cached dynamic shape when the valid instance count
// changes (see Set).
type Shape []int

// NumAxes returns the number of axes.
func (s Shape) NumAxes() int {
	return len(s)
}

// At returns the extent of axis i.
// Panics if i is outside [0, NumAxes()).
func (s Shape) At(i int) int {
	if i < 0 || i >= len(s) {
		panic(fmt.Sprintf("shape: axis %d out of range for %d-axis shape %v", i, len(s), s))
	}
	return s[i]
}

// Set overwrites the extent of axis 0.
// Any other axis panics: the remaining axes are fixed by the layout.
func (s Shape) Set(axis, val int) {
	if axis != 0 {
		panic(fmt.Sprintf("shape: only axis 0 is mutable, got axis %d", axis))
	}
	if len(s) == 0 {
		panic("shape: cannot set axis 0 of an empty shape")
	}
	if val < 0 {
		panic(fmt.Sprintf("shape: negative extent %d", val))
	}
	s[0] = val
}

// Count returns the product of the extents from axis begin to the last axis.
// Count(NumAxes()) is 1. Panics if begin is outside [0, NumAxes()].
func (s Shape) Count(begin int) int {
	if begin < 0 || begin > len(s) {
		panic(fmt.Sprintf("shape: count begin %d out of range for %d-axis shape %v", begin, len(s), s))
	}
	n := 1
	for _, dim := range s[begin:] {
		n *= dim
	}
	return n
}

// NumElements returns the total number of elements.
func (s Shape) NumElements() int {
	return s.Count(0)
}

// Validate checks that every extent is non-negative.
func (s Shape) Validate() error {
	for i, dim := range s {
		if dim < 0 {
			return fmt.Errorf("invalid dimension at index %d: %d (must be >= 0)", i, dim)
		}
	}
	return nil
}

// Equal checks if two shapes are equal.
func (s Shape) Equal(other Shape) bool {
	if len(s) != len(other) {
		return false
	}
	for i := range s {
		if s[i] != other[i] {
			return false
		}
	}
	return true
}

// Clone returns a copy of the shape.
func (s Shape) Clone() Shape {
	clone := make(Shape, len(s))
	copy(clone, s)
	return clone
}

// ComputeStrides calculates row-major element strides for the shape.
// stride[i] = Count(i+1).
func (s Shape) ComputeStrides() []int {
	strides := make([]int, len(s))
	if len(s) == 0 {
		return strides
	}

	strides[len(s)-1] = 1
	for i := len(s) - 2; i >= 0; i-- {
		strides[i] = strides[i+1] * s[i+1]
	}
	return strides
}

// String formats the shape as "(d0,d1,...)".
func (s Shape) String() string {
	parts := make([]string, len(s))
	for i, dim := range s {
		parts[i] = fmt.Sprint(dim)
	}
	return "(" + strings.Join(parts, ",") + ")"
}

// Ones returns an n-axis shape of all ones, the output shape of a full reduction.
func Ones(n int) Shape {
	if n < 0 {
		panic(fmt.Sprintf("shape: negative axis count %d", n))
	}
	s := make(Shape, n)
	for i := range s {
		s[i] = 1
	}
	return s
}

// ReducedShape returns a copy of base with every axis listed in axes
// collapsed to 1. Negative axes count from the end (-1 = last axis).
// Panics if an axis is out of range.
//
// Example:
//
//	ReducedShape(Shape{2, 3, 4}, []int{-1})    // (2,3,1)
//	ReducedShape(Shape{2, 3, 4}, []int{0, 2})  // (1,3,1)
func ReducedShape(base Shape, axes []int) Shape {
	out := base.Clone()
	for _, axis := range axes {
		if axis < 0 {
			axis += len(base)
		}
		if axis < 0 || axis >= len(base) {
			panic(fmt.Sprintf("shape: reduce axis out of range for %d-axis shape %v", len(base), base))
		}
		out[axis] = 1
	}
	return out
}
