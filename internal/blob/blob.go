// Package blob implements the tensor buffer view.
//
// A Blob owns no memory. It is laid over a header region and a body region
// allocated by its Owner, and interprets them through an immutable
// pod.BlobDesc. The header carries optional per-instance fields (data ids,
// column counts, dim0 and dim1 valid counts); the body carries the array.
//
// A Blob is not safe for concurrent mutation. Producers and consumers take
// turns on it under the ordering of whatever schedules them.
package blob

import (
	"bytes"
	"fmt"
	"unsafe"

	"github.com/born-ml/tensorblob/internal/device"
	"github.com/born-ml/tensorblob/internal/pod"
	"github.com/born-ml/tensorblob/internal/tensor"
)

// Owner is the container that allocated a blob's memory. Column ids are
// properties of the owner shared by all of its blobs.
type Owner interface {
	ColID() int32
	SetColID(int32)
	MaxColID() int32
	SetMaxColID(int32)
	// MemCase is the placement of the body regions.
	MemCase() device.MemCase
	Copier() device.Copier
}

// Blob is a view over one header region and one body region.
type Blob struct {
	owner Owner
	desc  *pod.BlobDesc

	header []byte
	body   []byte
	// span covers header and body when they are adjacent, nil otherwise.
	span []byte

	dataID       pod.FieldView[byte]
	colNum       pod.FieldView[int32]
	dim0ValidNum pod.FieldView[int32]
	dim1ValidNum pod.FieldView[int32]

	dynamicShape tensor.Shape
}

// New lays a blob over mem, header first and body immediately after.
// Panics if mem is shorter than desc.TotalByteSize().
func New(owner Owner, desc *pod.BlobDesc, mem []byte) *Blob {
	total := desc.TotalByteSize()
	check(len(mem) >= total, "New", RegionTooSmall, "region is %d bytes, layout needs %d", len(mem), total)
	h := desc.ByteSizeOfBlobHeader()
	span := mem[:total:total]
	return newBlob(owner, desc, span[:h:h], span[h:], span)
}

// NewSplit lays a blob over separately supplied header and body regions.
// The blob is contiguous iff body starts exactly where the header ends
// inside the same backing array. The capacity of header must reach over
// body, so a header capped at its length never yields a contiguous blob.
func NewSplit(owner Owner, desc *pod.BlobDesc, header, body []byte) *Blob {
	h := desc.ByteSizeOfBlobHeader()
	n := desc.ByteSizeOfDataContentField()
	check(len(header) >= h, "NewSplit", RegionTooSmall, "header region is %d bytes, layout needs %d", len(header), h)
	check(len(body) >= n, "NewSplit", RegionTooSmall, "body region is %d bytes, layout needs %d", len(body), n)
	span := adjacentSpan(header[:h], body[:n])
	return newBlob(owner, desc, header[:h:h], body[:n:n], span)
}

func newBlob(owner Owner, desc *pod.BlobDesc, header, body, span []byte) *Blob {
	hp := pod.NewHeaderPodPtr(desc.HeaderPod(), header)
	return &Blob{
		owner:        owner,
		desc:         desc,
		header:       header,
		body:         body,
		span:         span,
		dataID:       pod.ResolveBytes(hp, pod.DataID),
		colNum:       pod.ResolveInt32(hp, pod.ColNum),
		dim0ValidNum: pod.ResolveInt32(hp, pod.Dim0ValidNum),
		dim1ValidNum: pod.ResolveInt32(hp, pod.Dim1ValidNum),
		dynamicShape: desc.Shape().Clone(),
	}
}

// adjacentSpan returns header and body as one slice when body begins at
// header+len(header) and the header's backing array reaches over body.
func adjacentSpan(header, body []byte) []byte {
	h, n := len(header), len(body)
	if cap(header) < h+n {
		return nil
	}
	//nolint:gosec // address comparison only, nothing is dereferenced
	end := uintptr(unsafe.Pointer(unsafe.SliceData(header))) + uintptr(h)
	//nolint:gosec // address comparison only, nothing is dereferenced
	if end != uintptr(unsafe.Pointer(unsafe.SliceData(body))) {
		return nil
	}
	return header[: h+n : h+n]
}

// Desc returns the layout descriptor.
func (b *Blob) Desc() *pod.BlobDesc { return b.desc }

// Owner returns the container the blob was built by.
func (b *Blob) Owner() Owner { return b.owner }

// IsContiguous reports whether the body immediately follows the header.
func (b *Blob) IsContiguous() bool { return b.span != nil }

// DataType returns the element type of the body.
func (b *Blob) DataType() tensor.DataType { return b.desc.DataType() }

// Header returns the header region.
func (b *Blob) Header() []byte { return b.header }

// Body returns the body region.
func (b *Blob) Body() []byte { return b.body }

// Data returns the body of b as a slice of T. Panics if T does not match the
// blob's data type.
func Data[T tensor.DType](b *Blob) []T {
	want := tensor.DataTypeOf[T]()
	check(want == b.desc.DataType(), "Data", TypeMismatch, "blob holds %s, asked for %s", b.desc.DataType(), want)
	if len(b.body) == 0 {
		return nil
	}
	//nolint:gosec // body length is NumElements * element size by construction
	return unsafe.Slice((*T)(unsafe.Pointer(unsafe.SliceData(b.body))), len(b.body)/want.Size())
}

// ByteSizeOfBlobHeader returns the header size in bytes.
func (b *Blob) ByteSizeOfBlobHeader() int { return b.desc.ByteSizeOfBlobHeader() }

// ByteSizeOfDataContentField returns the body size in bytes.
func (b *Blob) ByteSizeOfDataContentField() int { return b.desc.ByteSizeOfDataContentField() }

// TotalByteSize returns header plus body size.
func (b *Blob) TotalByteSize() int { return b.desc.TotalByteSize() }

// ColID returns the owner's column id.
func (b *Blob) ColID() int32 { return b.owner.ColID() }

// SetColID sets the owner's column id.
func (b *Blob) SetColID(v int32) { b.owner.SetColID(v) }

// MaxColID returns the owner's maximum column id.
func (b *Blob) MaxColID() int32 { return b.owner.MaxColID() }

// SetMaxColID sets the owner's maximum column id.
func (b *Blob) SetMaxColID(v int32) { b.owner.SetMaxColID(v) }

// IsColValid reports whether the owner's column id has not passed its maximum.
func (b *Blob) IsColValid() bool { return b.ColID() <= b.MaxColID() }

// MemCase returns the placement of the body.
func (b *Blob) MemCase() device.MemCase { return b.owner.MemCase() }

// DataID returns the id slot of instance i. The slot is
// desc.SizeOfOneDataID() bytes wide.
func (b *Blob) DataID(i int) []byte {
	check(b.dataID.Present(), "DataID", FieldAbsent, "layout has no %s field", pod.DataID)
	checkIndex("DataID", i, b.desc.Shape().At(0))
	size := b.desc.SizeOfOneDataID()
	return b.dataID.Slice()[i*size : (i+1)*size : (i+1)*size]
}

// SetDataID stores id in slot i, zero padded. Panics if id does not fit.
func (b *Blob) SetDataID(i int, id string) {
	slot := b.DataID(i)
	check(len(id) <= len(slot), "SetDataID", ValueOutOfRange, "id is %d bytes, slot holds %d", len(id), len(slot))
	clear(slot[copy(slot, id):])
}

// DataIDString returns slot i up to its first zero byte.
func (b *Blob) DataIDString(i int) string {
	slot := b.DataID(i)
	if n := bytes.IndexByte(slot, 0); n >= 0 {
		slot = slot[:n]
	}
	return string(slot)
}

// ColNum returns the column count of instance i, or 1 when the layout
// does not track column counts.
func (b *Blob) ColNum(i int) int32 {
	checkIndex("ColNum", i, b.desc.Shape().At(0))
	if !b.colNum.Present() {
		return 1
	}
	return b.colNum.At(i)
}

// SetColNum sets the column count of instance i.
func (b *Blob) SetColNum(i int, v int32) {
	check(b.colNum.Present(), "SetColNum", FieldAbsent, "layout has no %s field", pod.ColNum)
	checkIndex("SetColNum", i, b.desc.Shape().At(0))
	b.colNum.Set(i, v)
}

// Dim0ValidNum returns the valid count of axis-0 group i.
func (b *Blob) Dim0ValidNum(i int) int32 {
	check(b.dim0ValidNum.Present(), "Dim0ValidNum", FieldAbsent, "layout has no %s field", pod.Dim0ValidNum)
	checkIndex("Dim0ValidNum", i, b.desc.Dim0InnerShape().At(0))
	return b.dim0ValidNum.At(i)
}

// SetDim0ValidNum sets the valid count of axis-0 group i. v may equal the
// group size.
func (b *Blob) SetDim0ValidNum(i int, v int32) {
	inner := b.desc.Dim0InnerShape()
	check(b.dim0ValidNum.Present(), "SetDim0ValidNum", FieldAbsent, "layout has no %s field", pod.Dim0ValidNum)
	checkIndex("SetDim0ValidNum", i, inner.At(0))
	checkValue("SetDim0ValidNum", v, inner.Count(1))
	b.dim0ValidNum.Set(i, v)
}

// Dim1ValidNum returns the axis-1 valid count of instance i.
func (b *Blob) Dim1ValidNum(i int) int32 {
	check(b.dim1ValidNum.Present(), "Dim1ValidNum", FieldAbsent, "layout has no %s field", pod.Dim1ValidNum)
	checkIndex("Dim1ValidNum", i, b.desc.Shape().At(0))
	return b.dim1ValidNum.At(i)
}

// SetDim1ValidNum sets the axis-1 valid count of instance i. v may equal
// the axis-1 extent.
func (b *Blob) SetDim1ValidNum(i int, v int32) {
	static := b.desc.Shape()
	check(b.dim1ValidNum.Present(), "SetDim1ValidNum", FieldAbsent, "layout has no %s field", pod.Dim1ValidNum)
	checkIndex("SetDim1ValidNum", i, static.At(0))
	checkValue("SetDim1ValidNum", v, static.At(1))
	b.dim1ValidNum.Set(i, v)
}

// StaticShape returns the allocated shape. Callers must not modify it.
func (b *Blob) StaticShape() tensor.Shape { return b.desc.Shape() }

// Dim0InnerShape returns the partition of axis 0 into validity groups.
func (b *Blob) Dim0InnerShape() tensor.Shape { return b.desc.Dim0InnerShape() }

// Shape returns the static shape when the layout has no dim0 valid counts,
// the dynamic shape otherwise. Callers must not modify it.
func (b *Blob) Shape() tensor.Shape {
	if !b.dim0ValidNum.Present() {
		return b.StaticShape()
	}
	return b.DynamicShape()
}

// DynamicShape derives the logical shape from the valid count of the last
// axis-0 group: only trailing slots of that group are treated as invalid.
// The result is cached and only axis 0 of the cache is ever rewritten, so
// consecutive calls return the same slice.
func (b *Blob) DynamicShape() tensor.Shape {
	inner := b.desc.Dim0InnerShape()
	last := b.Dim0ValidNum(inner.At(0) - 1)
	lastInvalid := inner.Count(1) - int(last)
	extent := b.desc.Shape().At(0) - lastInvalid
	if b.dynamicShape.At(0) != extent {
		b.dynamicShape.Set(0, extent)
	}
	return b.dynamicShape
}

// String summarises the blob for logs.
func (b *Blob) String() string {
	shape := b.Shape()
	return fmt.Sprintf("blob{%s static=%v shape=%v header=%d body=%d contiguous=%t}",
		b.desc.DataType(), b.desc.Shape(), shape,
		b.ByteSizeOfBlobHeader(), b.ByteSizeOfDataContentField(), b.IsContiguous())
}
