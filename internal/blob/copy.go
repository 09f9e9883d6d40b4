package blob

import (
	"github.com/born-ml/tensorblob/internal/device"
	"github.com/born-ml/tensorblob/internal/pod"
)

// Copies are issued on ctx and complete in its order; none of them waits
// for completion. Copying a blob onto itself is a no-op. A size mismatch
// between the two sides panics with SizeMismatch before anything is issued.

// CopyDataContentFrom copies the body of rhs into b, crossing devices when
// the two placements differ.
func (b *Blob) CopyDataContentFrom(ctx device.Ctx, rhs *Blob) {
	if b == rhs {
		return
	}
	checkSize("CopyDataContentFrom", "data content", b.ByteSizeOfDataContentField(), rhs.ByteSizeOfDataContentField())
	b.owner.Copier().AutoMemcpy(ctx, b.body, rhs.body, b.MemCase(), rhs.MemCase())
}

// CopyHeaderFrom copies the whole header of rhs into b. Headers are host
// resident.
func (b *Blob) CopyHeaderFrom(ctx device.Ctx, rhs *Blob) {
	if b == rhs {
		return
	}
	checkSize("CopyHeaderFrom", "header", b.ByteSizeOfBlobHeader(), rhs.ByteSizeOfBlobHeader())
	if len(b.header) == 0 {
		return
	}
	b.owner.Copier().Memcpy(ctx, b.header, rhs.header)
}

// CopyDataIDFrom copies the data-id field of rhs into b.
func (b *Blob) CopyDataIDFrom(ctx device.Ctx, rhs *Blob) {
	b.copyField(ctx, rhs, "CopyDataIDFrom", b.dataID.Key(), b.dataID, rhs.dataID)
}

// CopyColNumFrom copies the col-num field of rhs into b.
func (b *Blob) CopyColNumFrom(ctx device.Ctx, rhs *Blob) {
	b.copyField(ctx, rhs, "CopyColNumFrom", b.colNum.Key(), b.colNum, rhs.colNum)
}

// CopyDim0ValidNumFrom copies the dim0-valid-num field of rhs into b.
func (b *Blob) CopyDim0ValidNumFrom(ctx device.Ctx, rhs *Blob) {
	b.copyField(ctx, rhs, "CopyDim0ValidNumFrom", b.dim0ValidNum.Key(), b.dim0ValidNum, rhs.dim0ValidNum)
}

// CopyDim1ValidNumFrom copies the dim1-valid-num field of rhs into b.
func (b *Blob) CopyDim1ValidNumFrom(ctx device.Ctx, rhs *Blob) {
	b.copyField(ctx, rhs, "CopyDim1ValidNumFrom", b.dim1ValidNum.Key(), b.dim1ValidNum, rhs.dim1ValidNum)
}

// CopyFrom copies header and body of rhs into b. When both blobs are
// contiguous the copy is one transfer over the combined span; otherwise it
// is a header copy followed by a data-content copy.
func (b *Blob) CopyFrom(ctx device.Ctx, rhs *Blob) {
	if b == rhs {
		return
	}
	if b.IsContiguous() && rhs.IsContiguous() {
		checkSize("CopyFrom", "total", b.TotalByteSize(), rhs.TotalByteSize())
		b.owner.Copier().AutoMemcpy(ctx, b.span, rhs.span, b.MemCase(), rhs.MemCase())
		return
	}
	b.CopyHeaderFrom(ctx, rhs)
	b.CopyDataContentFrom(ctx, rhs)
}

type fieldBytes interface {
	Present() bool
	Bytes() []byte
}

func (b *Blob) copyField(ctx device.Ctx, rhs *Blob, op string, key pod.FieldKey, dst, src fieldBytes) {
	if b == rhs {
		return
	}
	checkSize(op, key.String(), fieldSize(dst), fieldSize(src))
	if fieldSize(dst) == 0 {
		return
	}
	b.owner.Copier().Memcpy(ctx, dst.Bytes(), src.Bytes())
}

func fieldSize(f fieldBytes) int {
	if !f.Present() {
		return 0
	}
	return len(f.Bytes())
}

func checkSize(op, what string, dst, src int) {
	check(dst == src, op, SizeMismatch, "%s is %d bytes, source has %d", what, dst, src)
}
