// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

package blob

import (
	"github.com/born-ml/tensorblob/internal/blob"
	"github.com/born-ml/tensorblob/internal/config"
	"github.com/born-ml/tensorblob/internal/device"
	"github.com/born-ml/tensorblob/internal/kernel"
	"github.com/born-ml/tensorblob/internal/pod"
	"github.com/born-ml/tensorblob/internal/regst"
	"github.com/born-ml/tensorblob/tensor"
)

// Blob is a typed view over a header region and a body region.
type Blob = blob.Blob

// Owner supplies the column ids, placement and copier shared by the blobs of
// one register.
type Owner = blob.Owner

// CheckError is the panic value of a violated precondition.
type CheckError = blob.CheckError

// CheckKind classifies a CheckError.
type CheckKind = blob.CheckKind

// Precondition classes.
const (
	FieldAbsent     = blob.FieldAbsent
	IndexOutOfRange = blob.IndexOutOfRange
	ValueOutOfRange = blob.ValueOutOfRange
	SizeMismatch    = blob.SizeMismatch
	RegionTooSmall  = blob.RegionTooSmall
	TypeMismatch    = blob.TypeMismatch
)

// Desc describes the static layout of a blob.
type Desc = pod.BlobDesc

// DescOption adds a header field to a Desc.
type DescOption = pod.Option

// NewDesc lays out a blob of the given shape and type.
func NewDesc(shape tensor.Shape, dtype tensor.DataType, opts ...DescOption) (*Desc, error) {
	return pod.NewBlobDesc(shape, dtype, opts...)
}

// WithDataID adds a data-id field.
func WithDataID() DescOption { return pod.WithDataID() }

// WithColNum adds a col-num field.
func WithColNum() DescOption { return pod.WithColNum() }

// WithDim0ValidNum adds a dim0-valid-num field grouped by inner.
// A nil inner groups axis 0 as a single group.
func WithDim0ValidNum(inner tensor.Shape) DescOption { return pod.WithDim0ValidNum(inner) }

// WithDim1ValidNum adds a dim1-valid-num field.
func WithDim1ValidNum() DescOption { return pod.WithDim1ValidNum() }

// New builds a blob over one contiguous region.
func New(owner Owner, desc *Desc, mem []byte) *Blob {
	return blob.New(owner, desc, mem)
}

// NewSplit builds a blob over separate header and body regions.
func NewSplit(owner Owner, desc *Desc, header, body []byte) *Blob {
	return blob.NewSplit(owner, desc, header, body)
}

// Data returns the body of b as a slice of T.
func Data[T tensor.DType](b *Blob) []T {
	return blob.Data[T](b)
}

// MemCase names a placement.
type MemCase = device.MemCase

// HostMemCase returns the host placement.
func HostMemCase() MemCase { return device.HostMemCase() }

// Ctx orders copies and kernels.
type Ctx = device.Ctx

// NewSyncCtx returns a Ctx that runs operations inline.
func NewSyncCtx() *device.SyncCtx { return device.NewSyncCtx() }

// NewStreamCtx returns a Ctx that runs operations on a background goroutine.
func NewStreamCtx(depth int) *device.StreamCtx { return device.NewStreamCtx(depth) }

// Copier moves bytes between placements.
type Copier = device.Copier

// Dispatcher routes copies to the first engine supporting a placement pair.
type Dispatcher = device.Dispatcher

// NewDefaultDispatcher returns a Dispatcher with the engines available on
// this platform, configured from the global config.
func NewDefaultDispatcher() *Dispatcher {
	return device.NewDefaultDispatcher(config.Global())
}

// Regst owns the memory of a set of named blobs.
type Regst = regst.Regst

// RegstDesc describes a register.
type RegstDesc = regst.RegstDesc

// NamedBlobDesc is one blob of a RegstDesc.
type NamedBlobDesc = regst.NamedBlobDesc

// Layout selects how a register places headers and bodies.
type Layout = regst.Layout

// Register layouts.
const (
	Contiguous = regst.Contiguous
	Separated  = regst.Separated
)

// Allocator provides register memory.
type Allocator = regst.Allocator

// Register allocators.
type (
	HeapAllocator = regst.HeapAllocator
	MmapAllocator = regst.MmapAllocator
)

// NewRegst allocates a register and builds its blobs.
func NewRegst(desc *RegstDesc, alloc Allocator, copier Copier) (*Regst, error) {
	return regst.New(desc, alloc, copier)
}

// ReduceMin writes the minima of in over axes into out, using tmp for
// intermediate stages. An empty axes list reduces every axis.
func ReduceMin(ctx Ctx, in, out, tmp *Blob, axes []int) {
	kernel.ReduceMin(ctx, in, out, tmp, axes)
}
