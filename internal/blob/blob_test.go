package blob

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/born-ml/tensorblob/internal/config"
	"github.com/born-ml/tensorblob/internal/device"
	"github.com/born-ml/tensorblob/internal/pod"
	"github.com/born-ml/tensorblob/internal/tensor"
)

type testOwner struct {
	colID, maxColID int32
	memCase         device.MemCase
	copier          device.Copier
}

func (o *testOwner) ColID() int32 { return o.colID }
func (o *testOwner) SetColID(v int32) { o.colID = v }
func (o *testOwner) MaxColID() int32 { return o.maxColID }
func (o *testOwner) SetMaxColID(v int32) { o.maxColID = v }
func (o *testOwner) MemCase() device.MemCase { return o.memCase }
func (o *testOwner) Copier() device.Copier { return o.copier }

var testCopier = device.NewDispatcher(device.NewStagingEngine(device.NewStagingPool(4)))

func hostOwner() *testOwner {
	return &testOwner{memCase: device.HostMemCase(), copier: testCopier}
}

func deviceOwner(id int) *testOwner {
	return &testOwner{memCase: device.MemCase{Device: tensor.CUDA, DeviceID: id}, copier: testCopier}
}

func mustDesc(t *testing.T, shape tensor.Shape, opts ...pod.Option) *pod.BlobDesc {
	t.Helper()
	desc, err := pod.NewBlobDesc(shape, tensor.Float32, opts...)
	require.NoError(t, err)
	return desc
}

func fullDesc(t *testing.T) *pod.BlobDesc {
	return mustDesc(t, tensor.Shape{4, 8},
		pod.WithDataID(), pod.WithColNum(),
		pod.WithDim0ValidNum(tensor.Shape{1, 4}), pod.WithDim1ValidNum())
}

func newTestBlob(t *testing.T, owner Owner, desc *pod.BlobDesc) *Blob {
	t.Helper()
	return New(owner, desc, make([]byte, desc.TotalByteSize()))
}

func fill(b []byte, seed byte) {
	for i := range b {
		b[i] = seed + byte(i*13)
	}
}

func requireCheck(t *testing.T, kind CheckKind, f func()) {
	t.Helper()
	defer func() {
		r := recover()
		require.NotNil(t, r, "expected a panic")
		ce, ok := r.(*CheckError)
		require.True(t, ok, "panic value %v is not a *CheckError", r)
		assert.Equal(t, kind, ce.Kind, ce.Error())
	}()
	f()
}

func TestNewIsContiguous(t *testing.T) {
	desc := fullDesc(t)
	b := newTestBlob(t, hostOwner(), desc)

	assert.True(t, b.IsContiguous())
	assert.Len(t, b.Header(), desc.ByteSizeOfBlobHeader())
	assert.Len(t, b.Body(), desc.ByteSizeOfDataContentField())
	assert.Equal(t, desc.TotalByteSize(), b.TotalByteSize())
}

func TestNewSplitContiguity(t *testing.T) {
	desc := fullDesc(t)
	h, n := desc.ByteSizeOfBlobHeader(), desc.ByteSizeOfDataContentField()

	mem := make([]byte, h+n+1)
	assert.True(t, NewSplit(hostOwner(), desc, mem[:h], mem[h:]).IsContiguous(), "adjacent regions")
	assert.False(t, NewSplit(hostOwner(), desc, mem[:h], mem[h+1:]).IsContiguous(), "one byte gap")
	assert.False(t, NewSplit(hostOwner(), desc, make([]byte, h), make([]byte, n)).IsContiguous(), "separate allocations")
}

func TestNewSplitCappedHeaderIsNotContiguous(t *testing.T) {
	desc := fullDesc(t)
	h := desc.ByteSizeOfBlobHeader()
	mem := make([]byte, desc.TotalByteSize())
	fill(mem, 3)

	b := NewSplit(hostOwner(), desc, mem[:h:h], mem[h:])
	assert.False(t, b.IsContiguous())

	dst := newTestBlob(t, hostOwner(), desc)
	dst.CopyFrom(device.NewSyncCtx(), b)
	assert.Equal(t, mem[:h], dst.Header())
	assert.Equal(t, mem[h:], dst.Body())
}

func TestDynamicShapeEmptyAxis0(t *testing.T) {
	b := newTestBlob(t, hostOwner(), mustDesc(t, tensor.Shape{0, 8}, pod.WithDim0ValidNum(nil)))

	assert.Equal(t, tensor.Shape{0, 8}, b.Shape())
	b.SetDim0ValidNum(0, 0)
	assert.Equal(t, tensor.Shape{0, 8}, b.Shape())
	requireCheck(t, ValueOutOfRange, func() { b.SetDim0ValidNum(0, 1) })
}

func TestNewRegionTooSmall(t *testing.T) {
	desc := fullDesc(t)
	requireCheck(t, RegionTooSmall, func() {
		New(hostOwner(), desc, make([]byte, desc.TotalByteSize()-1))
	})
	requireCheck(t, RegionTooSmall, func() {
		NewSplit(hostOwner(), desc, make([]byte, desc.ByteSizeOfBlobHeader()), make([]byte, 3))
	})
}

func TestShapeIsStaticWithoutDim0ValidNum(t *testing.T) {
	desc := mustDesc(t, tensor.Shape{4, 8}, pod.WithColNum(), pod.WithDim1ValidNum())
	b := newTestBlob(t, hostOwner(), desc)

	assert.True(t, b.Shape().Equal(tensor.Shape{4, 8}))
	b.SetColNum(2, 5)
	b.SetDim1ValidNum(0, 3)
	assert.True(t, b.Shape().Equal(b.StaticShape()))
	requireCheck(t, FieldAbsent, func() { b.DynamicShape() })
}

func TestDynamicShapeExample(t *testing.T) {
	b := newTestBlob(t, hostOwner(), fullDesc(t))

	b.SetDim0ValidNum(0, 1)
	assert.Equal(t, tensor.Shape{1, 8}, b.Shape())
	assert.Equal(t, tensor.Shape{4, 8}, b.StaticShape())
}

func TestDynamicShapeBounds(t *testing.T) {
	desc := mustDesc(t, tensor.Shape{6, 3}, pod.WithDim0ValidNum(tensor.Shape{2, 3}))
	b := newTestBlob(t, hostOwner(), desc)

	b.SetDim0ValidNum(1, 3)
	assert.Equal(t, 6, b.Shape().At(0), "full last group")

	b.SetDim0ValidNum(1, 0)
	assert.Equal(t, 6-3, b.Shape().At(0), "empty last group")

	b.SetDim0ValidNum(0, 0)
	assert.Equal(t, 3, b.Shape().At(0), "only the last group counts")
	assert.Equal(t, 3, b.Shape().At(1))
}

func TestDynamicShapeMemoized(t *testing.T) {
	b := newTestBlob(t, hostOwner(), fullDesc(t))
	b.SetDim0ValidNum(0, 2)

	first := b.Shape()
	second := b.Shape()
	assert.Same(t, &first[0], &second[0], "repeated reads share the cache")
	assert.Equal(t, 2, second.At(0))

	b.SetDim0ValidNum(0, 4)
	third := b.Shape()
	assert.Same(t, &first[0], &third[0])
	assert.Equal(t, 4, third.At(0))
	assert.Equal(t, 4, first.At(0), "earlier results observe the update")

	assert.Equal(t, tensor.Shape{4, 8}, b.StaticShape(), "static shape untouched")
}

func TestColNum(t *testing.T) {
	t.Run("absent reads one", func(t *testing.T) {
		b := newTestBlob(t, hostOwner(), mustDesc(t, tensor.Shape{5, 2}))
		for i := 0; i < 5; i++ {
			assert.Equal(t, int32(1), b.ColNum(i))
		}
		requireCheck(t, IndexOutOfRange, func() { b.ColNum(5) })
		requireCheck(t, FieldAbsent, func() { b.SetColNum(0, 2) })
	})

	t.Run("present", func(t *testing.T) {
		b := newTestBlob(t, hostOwner(), fullDesc(t))
		assert.Equal(t, int32(0), b.ColNum(3))
		b.SetColNum(3, 7)
		assert.Equal(t, int32(7), b.ColNum(3))
		requireCheck(t, IndexOutOfRange, func() { b.SetColNum(-1, 1) })
	})
}

func TestDim1ValidNumRoundTrip(t *testing.T) {
	b := newTestBlob(t, hostOwner(), fullDesc(t))

	for v := int32(0); v <= 8; v++ {
		b.SetDim1ValidNum(1, v)
		assert.Equal(t, v, b.Dim1ValidNum(1))
	}

	requireCheck(t, ValueOutOfRange, func() { b.SetDim1ValidNum(1, 9) })
	requireCheck(t, ValueOutOfRange, func() { b.SetDim1ValidNum(1, -1) })
	requireCheck(t, IndexOutOfRange, func() { b.SetDim1ValidNum(4, 0) })
	requireCheck(t, IndexOutOfRange, func() { b.Dim1ValidNum(-1) })
	assert.Equal(t, int32(8), b.Dim1ValidNum(1), "failed writes leave the slot alone")

	absent := newTestBlob(t, hostOwner(), mustDesc(t, tensor.Shape{4, 8}))
	requireCheck(t, FieldAbsent, func() { absent.Dim1ValidNum(0) })
	requireCheck(t, FieldAbsent, func() { absent.SetDim1ValidNum(0, 1) })
}

func TestDim0ValidNumBounds(t *testing.T) {
	desc := mustDesc(t, tensor.Shape{6, 3}, pod.WithDim0ValidNum(tensor.Shape{2, 3}))
	b := newTestBlob(t, hostOwner(), desc)

	b.SetDim0ValidNum(0, 3)
	assert.Equal(t, int32(3), b.Dim0ValidNum(0))
	requireCheck(t, ValueOutOfRange, func() { b.SetDim0ValidNum(0, 4) })
	requireCheck(t, IndexOutOfRange, func() { b.SetDim0ValidNum(2, 0) })
	requireCheck(t, IndexOutOfRange, func() { b.Dim0ValidNum(2) })

	absent := newTestBlob(t, hostOwner(), mustDesc(t, tensor.Shape{6, 3}))
	requireCheck(t, FieldAbsent, func() { absent.Dim0ValidNum(0) })
}

func TestDataID(t *testing.T) {
	b := newTestBlob(t, hostOwner(), fullDesc(t))
	size := config.Global().SizeOfOneDataID

	assert.Len(t, b.DataID(0), size)
	b.SetDataID(2, "sample-0042")
	assert.Equal(t, "sample-0042", b.DataIDString(2))
	assert.Equal(t, "", b.DataIDString(1))

	b.SetDataID(2, "x")
	assert.Equal(t, "x", b.DataIDString(2), "shorter ids clear the tail")

	b.DataID(3)[0] = 'z'
	assert.Equal(t, "z", b.DataIDString(3), "slot aliases the header")

	requireCheck(t, ValueOutOfRange, func() { b.SetDataID(0, string(make([]byte, size+1))) })
	requireCheck(t, IndexOutOfRange, func() { b.DataID(4) })

	absent := newTestBlob(t, hostOwner(), mustDesc(t, tensor.Shape{4, 8}))
	requireCheck(t, FieldAbsent, func() { absent.DataID(0) })
}

func TestData(t *testing.T) {
	b := newTestBlob(t, hostOwner(), fullDesc(t))

	data := Data[float32](b)
	require.Len(t, data, 32)
	data[31] = 1.5
	assert.Equal(t, float32(1.5), Data[float32](b)[31])

	requireCheck(t, TypeMismatch, func() { Data[float64](b) })
}

func TestOwnerDelegation(t *testing.T) {
	owner := hostOwner()
	b := newTestBlob(t, owner, fullDesc(t))

	b.SetMaxColID(3)
	b.SetColID(2)
	assert.Equal(t, int32(2), owner.colID)
	assert.Equal(t, int32(3), b.MaxColID())
	assert.True(t, b.IsColValid())

	owner.SetColID(4)
	assert.Equal(t, int32(4), b.ColID())
	assert.False(t, b.IsColValid())
	assert.Equal(t, device.HostMemCase(), b.MemCase())
}

func TestFingerprint(t *testing.T) {
	b := newTestBlob(t, hostOwner(), fullDesc(t))
	fp, hfp := b.Fingerprint(), b.HeaderFingerprint()

	b.Body()[0] = 9
	assert.NotEqual(t, fp, b.Fingerprint())
	assert.Equal(t, hfp, b.HeaderFingerprint())

	b.SetColNum(0, 2)
	assert.NotEqual(t, hfp, b.HeaderFingerprint())
}

func TestString(t *testing.T) {
	b := newTestBlob(t, hostOwner(), fullDesc(t))
	b.SetDim0ValidNum(0, 1)
	assert.Equal(t, "blob{float32 static=(4,8) shape=(1,8) header=292 body=128 contiguous=true}", b.String())
}
