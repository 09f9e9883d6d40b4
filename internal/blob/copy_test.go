package blob

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/born-ml/tensorblob/internal/device"
	"github.com/born-ml/tensorblob/internal/pod"
	"github.com/born-ml/tensorblob/internal/tensor"
)

func populated(t *testing.T, owner Owner, desc *pod.BlobDesc, seed byte) *Blob {
	t.Helper()
	mem := make([]byte, desc.TotalByteSize())
	fill(mem, seed)
	return New(owner, desc, mem)
}

func splitBlob(t *testing.T, owner Owner, desc *pod.BlobDesc, seed byte) *Blob {
	t.Helper()
	header := make([]byte, desc.ByteSizeOfBlobHeader())
	body := make([]byte, desc.ByteSizeOfDataContentField())
	fill(header, seed)
	fill(body, seed+1)
	return NewSplit(owner, desc, header, body)
}

func TestCopyDataContentAcrossPlacements(t *testing.T) {
	desc := fullDesc(t)

	owners := map[string]func() Owner{
		"host":     func() Owner { return hostOwner() },
		"device 0": func() Owner { return deviceOwner(0) },
		"device 1": func() Owner { return deviceOwner(1) },
	}

	for dstName, dstOwner := range owners {
		for srcName, srcOwner := range owners {
			t.Run(srcName+" to "+dstName, func(t *testing.T) {
				src := populated(t, srcOwner(), desc, 7)
				dst := newTestBlob(t, dstOwner(), desc)

				ctx := device.NewSyncCtx()
				dst.CopyDataContentFrom(ctx, src)
				require.NoError(t, ctx.Sync())

				assert.True(t, bytes.Equal(src.Body(), dst.Body()))
				assert.Equal(t, make([]byte, desc.ByteSizeOfBlobHeader()), dst.Header(), "header untouched")
			})
		}
	}
}

func TestCopyOnStream(t *testing.T) {
	desc := fullDesc(t)
	src := populated(t, hostOwner(), desc, 3)
	mid := newTestBlob(t, deviceOwner(0), desc)
	dst := newTestBlob(t, hostOwner(), desc)

	s := device.NewStreamCtx(4)
	defer s.Close()

	mid.CopyFrom(s, src)
	dst.CopyFrom(s, mid)
	require.NoError(t, s.Sync())
	assert.Equal(t, src.Fingerprint(), dst.Fingerprint())
}

func TestSelfCopyIsNoop(t *testing.T) {
	b := populated(t, hostOwner(), fullDesc(t), 11)
	before := append([]byte(nil), b.Header()...)
	before = append(before, b.Body()...)
	fp := b.Fingerprint()

	ctx := device.NewSyncCtx()
	ops := map[string]func(device.Ctx, *Blob){
		"CopyFrom":             b.CopyFrom,
		"CopyHeaderFrom":       b.CopyHeaderFrom,
		"CopyDataContentFrom":  b.CopyDataContentFrom,
		"CopyDataIDFrom":       b.CopyDataIDFrom,
		"CopyColNumFrom":       b.CopyColNumFrom,
		"CopyDim0ValidNumFrom": b.CopyDim0ValidNumFrom,
		"CopyDim1ValidNumFrom": b.CopyDim1ValidNumFrom,
	}
	for name, op := range ops {
		assert.NotPanics(t, func() { op(ctx, b) }, name)
	}
	require.NoError(t, ctx.Sync())
	assert.Equal(t, fp, b.Fingerprint())

	after := append([]byte(nil), b.Header()...)
	after = append(after, b.Body()...)
	assert.Equal(t, before, after)
}

func TestCopyFromContiguousMatchesHeaderPlusContent(t *testing.T) {
	desc := fullDesc(t)
	src := populated(t, hostOwner(), desc, 21)
	whole := newTestBlob(t, hostOwner(), desc)
	parts := newTestBlob(t, hostOwner(), desc)
	require.True(t, src.IsContiguous())
	require.True(t, whole.IsContiguous())

	ctx := device.NewSyncCtx()
	whole.CopyFrom(ctx, src)
	parts.CopyHeaderFrom(ctx, src)
	parts.CopyDataContentFrom(ctx, src)
	require.NoError(t, ctx.Sync())

	assert.Equal(t, parts.Header(), whole.Header())
	assert.Equal(t, parts.Body(), whole.Body())
	assert.Equal(t, src.Fingerprint(), whole.Fingerprint())
}

func TestCopyFromSplitFallsBack(t *testing.T) {
	desc := fullDesc(t)

	cases := []struct {
		name     string
		dst, src *Blob
	}{
		{"split to contiguous", newTestBlob(t, deviceOwner(0), desc), splitBlob(t, hostOwner(), desc, 5)},
		{"contiguous to split", splitBlob(t, hostOwner(), desc, 0), populated(t, deviceOwner(1), desc, 9)},
		{"split to split", splitBlob(t, hostOwner(), desc, 0), splitBlob(t, hostOwner(), desc, 40)},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			ctx := device.NewSyncCtx()
			tc.dst.CopyFrom(ctx, tc.src)
			require.NoError(t, ctx.Sync())
			assert.Equal(t, tc.src.Header(), tc.dst.Header())
			assert.Equal(t, tc.src.Body(), tc.dst.Body())
		})
	}
}

func TestCopyFromSizeMismatch(t *testing.T) {
	small := newTestBlob(t, hostOwner(), mustDesc(t, tensor.Shape{2, 8}))
	large := newTestBlob(t, hostOwner(), mustDesc(t, tensor.Shape{4, 8}))
	ctx := device.NewSyncCtx()

	requireCheck(t, SizeMismatch, func() { small.CopyFrom(ctx, large) })
	requireCheck(t, SizeMismatch, func() { small.CopyDataContentFrom(ctx, large) })
}

func TestHeaderFieldCopies(t *testing.T) {
	desc := fullDesc(t)
	src := newTestBlob(t, hostOwner(), desc)
	src.SetDataID(1, "row-1")
	src.SetColNum(2, 6)
	src.SetDim0ValidNum(0, 3)
	src.SetDim1ValidNum(3, 5)

	ctx := device.NewSyncCtx()

	dst := newTestBlob(t, hostOwner(), desc)
	dst.CopyDataIDFrom(ctx, src)
	assert.Equal(t, "row-1", dst.DataIDString(1))
	assert.Equal(t, int32(0), dst.ColNum(2), "only the data-id field moved")

	dst.CopyColNumFrom(ctx, src)
	assert.Equal(t, int32(6), dst.ColNum(2))

	dst.CopyDim0ValidNumFrom(ctx, src)
	assert.Equal(t, int32(3), dst.Dim0ValidNum(0))
	assert.Equal(t, 3, dst.Shape().At(0))

	dst.CopyDim1ValidNumFrom(ctx, src)
	assert.Equal(t, int32(5), dst.Dim1ValidNum(3))
	require.NoError(t, ctx.Sync())

	assert.Equal(t, src.HeaderFingerprint(), dst.HeaderFingerprint())

	other := newTestBlob(t, hostOwner(), desc)
	other.CopyHeaderFrom(ctx, src)
	assert.Equal(t, src.Header(), other.Header())
	assert.Equal(t, make([]byte, desc.ByteSizeOfDataContentField()), other.Body())
}

func TestDim1CopyWithoutDim0Field(t *testing.T) {
	desc := mustDesc(t, tensor.Shape{4, 8}, pod.WithDim1ValidNum())
	src := newTestBlob(t, hostOwner(), desc)
	dst := newTestBlob(t, hostOwner(), desc)
	src.SetDim1ValidNum(0, 4)

	ctx := device.NewSyncCtx()
	dst.CopyDim1ValidNumFrom(ctx, src)
	require.NoError(t, ctx.Sync())
	assert.Equal(t, int32(4), dst.Dim1ValidNum(0))
}

func TestFieldCopyPresenceMismatch(t *testing.T) {
	with := newTestBlob(t, hostOwner(), mustDesc(t, tensor.Shape{4, 8}, pod.WithColNum()))
	without := newTestBlob(t, hostOwner(), mustDesc(t, tensor.Shape{4, 8}))
	ctx := device.NewSyncCtx()

	requireCheck(t, SizeMismatch, func() { with.CopyColNumFrom(ctx, without) })
	requireCheck(t, SizeMismatch, func() { without.CopyColNumFrom(ctx, with) })
	requireCheck(t, SizeMismatch, func() { with.CopyHeaderFrom(ctx, without) })
}

func TestAbsentFieldCopiesAreNoops(t *testing.T) {
	desc := mustDesc(t, tensor.Shape{4, 8})
	src := populated(t, hostOwner(), desc, 1)
	dst := newTestBlob(t, hostOwner(), desc)
	ctx := device.NewSyncCtx()

	assert.NotPanics(t, func() {
		dst.CopyHeaderFrom(ctx, src)
		dst.CopyDataIDFrom(ctx, src)
		dst.CopyColNumFrom(ctx, src)
		dst.CopyDim0ValidNumFrom(ctx, src)
		dst.CopyDim1ValidNumFrom(ctx, src)
	})
	require.NoError(t, ctx.Sync())
	assert.Equal(t, make([]byte, desc.ByteSizeOfDataContentField()), dst.Body())
}
