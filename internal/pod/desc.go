package pod

import (
	"fmt"
	"strings"

	"github.com/born-ml/tensorblob/internal/config"
	"github.com/born-ml/tensorblob/internal/tensor"
)

// BlobDesc is the runtime descriptor of a blob: its static shape, the
// partition of axis 0 into validity groups, the element type, the header
// layout and the size of the data content.
//
// A BlobDesc is immutable and may be shared by any number of blobs.
type BlobDesc struct {
	shape      tensor.Shape
	dim0Inner  tensor.Shape
	dtype      tensor.DataType
	header     *HeaderPodDesc
	bodyBytes  int
	dataIDSize int
}

// Option configures which header fields NewBlobDesc lays out.
type Option func(*layoutOptions)

type layoutOptions struct {
	dataID    bool
	colNum    bool
	dim0      bool
	dim0Inner tensor.Shape
	dim1      bool
}

// WithDataID adds one data-id slot per axis-0 instance.
// The slot size is config.Global().SizeOfOneDataID.
func WithDataID() Option {
	return func(o *layoutOptions) { o.dataID = true }
}

// WithColNum adds one int32 column count per axis-0 instance.
func WithColNum() Option {
	return func(o *layoutOptions) { o.colNum = true }
}

// WithDim0ValidNum adds one int32 valid count per axis-0 group.
// inner partitions axis 0: inner.At(0) groups of inner.Count(1) instances.
// A nil inner means a single group spanning the whole axis.
func WithDim0ValidNum(inner tensor.Shape) Option {
	return func(o *layoutOptions) {
		o.dim0 = true
		o.dim0Inner = inner
	}
}

// WithDim1ValidNum adds one int32 axis-1 valid count per axis-0 instance.
func WithDim1ValidNum() Option {
	return func(o *layoutOptions) { o.dim1 = true }
}

// NewBlobDesc compiles the layout for a blob of the given shape and type.
//
// Counter fields are laid out first so every int32 slot is aligned; the
// data-id field comes last.
//
// Example:
//
//	desc, err := pod.NewBlobDesc(tensor.Shape{4, 8}, tensor.Float32,
//	    pod.WithDim0ValidNum(tensor.Shape{1, 4}),
//	    pod.WithDim1ValidNum(),
//	)
func NewBlobDesc(shape tensor.Shape, dtype tensor.DataType, opts ...Option) (*BlobDesc, error) {
	var o layoutOptions
	for _, opt := range opts {
		opt(&o)
	}

	if err := validateShape(shape); err != nil {
		return nil, err
	}
	inner, err := resolveInner(shape, o.dim0Inner)
	if err != nil {
		return nil, err
	}
	if o.dim1 && shape.NumAxes() < 2 {
		return nil, &LayoutError{
			Err:     ErrInvalidShape,
			Field:   Dim1ValidNum.String(),
			Details: fmt.Sprintf("needs at least 2 axes, shape is %v", shape),
		}
	}

	dataIDSize := config.Global().SizeOfOneDataID
	instances := shape.At(0)

	var fields []FieldDesc
	offset := 0
	place := func(key FieldKey, size int) {
		fields = append(fields, FieldDesc{Key: key, Offset: offset, ByteSize: size})
		offset += size
	}
	if o.colNum {
		place(ColNum, instances*4)
	}
	if o.dim0 {
		place(Dim0ValidNum, inner.At(0)*4)
	}
	if o.dim1 {
		place(Dim1ValidNum, instances*4)
	}
	if o.dataID {
		place(DataID, instances*dataIDSize)
	}

	header, err := NewHeaderPodDesc(fields...)
	if err != nil {
		return nil, err
	}

	return &BlobDesc{
		shape:      shape.Clone(),
		dim0Inner:  inner,
		dtype:      dtype,
		header:     header,
		bodyBytes:  shape.NumElements() * dtype.Size(),
		dataIDSize: dataIDSize,
	}, nil
}

// NewBlobDescFromPod wraps a header layout compiled elsewhere.
// Every present field must have the size implied by shape and inner.
func NewBlobDescFromPod(shape, inner tensor.Shape, dtype tensor.DataType, header *HeaderPodDesc) (*BlobDesc, error) {
	if err := validateShape(shape); err != nil {
		return nil, err
	}
	inner, err := resolveInner(shape, inner)
	if err != nil {
		return nil, err
	}

	dataIDSize := config.Global().SizeOfOneDataID
	instances := shape.At(0)
	want := map[FieldKey]int{
		DataID:       instances * dataIDSize,
		ColNum:       instances * 4,
		Dim0ValidNum: inner.At(0) * 4,
		Dim1ValidNum: instances * 4,
	}
	for _, f := range header.Fields() {
		if f.ByteSize != want[f.Key] {
			return nil, &LayoutError{
				Err:     ErrFieldSize,
				Field:   f.Key.String(),
				Details: fmt.Sprintf("size %d, shape %v needs %d", f.ByteSize, shape, want[f.Key]),
			}
		}
	}
	if header.HasField(Dim1ValidNum) && shape.NumAxes() < 2 {
		return nil, &LayoutError{
			Err:     ErrInvalidShape,
			Field:   Dim1ValidNum.String(),
			Details: fmt.Sprintf("needs at least 2 axes, shape is %v", shape),
		}
	}

	return &BlobDesc{
		shape:      shape.Clone(),
		dim0Inner:  inner,
		dtype:      dtype,
		header:     header,
		bodyBytes:  shape.NumElements() * dtype.Size(),
		dataIDSize: dataIDSize,
	}, nil
}

func validateShape(shape tensor.Shape) error {
	if shape.NumAxes() == 0 {
		return &LayoutError{Err: ErrInvalidShape, Details: "blob shape needs at least one axis"}
	}
	if err := shape.Validate(); err != nil {
		return &LayoutError{Err: ErrInvalidShape, Details: err.Error()}
	}
	return nil
}

// resolveInner defaults inner to a single group and checks that it covers axis 0 exactly
// with at least one group.
func resolveInner(shape, inner tensor.Shape) (tensor.Shape, error) {
	if inner == nil {
		return tensor.Shape{1, shape.At(0)}, nil
	}
	if inner.NumAxes() == 0 || inner.Validate() != nil || inner.At(0) == 0 {
		return nil, &LayoutError{Err: ErrInvalidInnerShape, Details: fmt.Sprintf("inner shape %v", inner)}
	}
	if inner.Count(0) != shape.At(0) {
		return nil, &LayoutError{
			Err:     ErrInvalidInnerShape,
			Details: fmt.Sprintf("inner shape %v covers %d instances, axis 0 has %d", inner, inner.Count(0), shape.At(0)),
		}
	}
	return inner.Clone(), nil
}

// Shape returns the static shape. Callers must not modify it.
func (d *BlobDesc) Shape() tensor.Shape { return d.shape }

// Dim0InnerShape returns the partition of axis 0 into validity groups.
func (d *BlobDesc) Dim0InnerShape() tensor.Shape { return d.dim0Inner }

// DataType returns the element type of the data content.
func (d *BlobDesc) DataType() tensor.DataType { return d.dtype }

// HeaderPod returns the header layout.
func (d *BlobDesc) HeaderPod() *HeaderPodDesc { return d.header }

// SizeOfOneDataID returns the data-id slot stride captured when the layout was compiled.
func (d *BlobDesc) SizeOfOneDataID() int { return d.dataIDSize }

// HasField reports whether the header carries key.
func (d *BlobDesc) HasField(key FieldKey) bool { return d.header.HasField(key) }

// ByteSizeOfBlobHeader returns the header size in bytes.
func (d *BlobDesc) ByteSizeOfBlobHeader() int { return d.header.ByteSize() }

// ByteSizeOfDataContentField returns the body size in bytes.
func (d *BlobDesc) ByteSizeOfDataContentField() int { return d.bodyBytes }

// ByteSizeOfDataIDField returns the data-id field size, 0 when absent.
func (d *BlobDesc) ByteSizeOfDataIDField() int { return d.header.FieldByteSize(DataID) }

// ByteSizeOfColNumField returns the col-num field size, 0 when absent.
func (d *BlobDesc) ByteSizeOfColNumField() int { return d.header.FieldByteSize(ColNum) }

// ByteSizeOfDim0ValidNumField returns the dim0-valid-num field size, 0 when absent.
func (d *BlobDesc) ByteSizeOfDim0ValidNumField() int { return d.header.FieldByteSize(Dim0ValidNum) }

// ByteSizeOfDim1ValidNumField returns the dim1-valid-num field size, 0 when absent.
func (d *BlobDesc) ByteSizeOfDim1ValidNumField() int { return d.header.FieldByteSize(Dim1ValidNum) }

// TotalByteSize returns header plus body size.
func (d *BlobDesc) TotalByteSize() int {
	return d.ByteSizeOfBlobHeader() + d.ByteSizeOfDataContentField()
}

// String summarises the layout, e.g. "float32(4,8) header=20[col_num@0+16 dim0_valid_num@16+4] body=128".
func (d *BlobDesc) String() string {
	parts := make([]string, 0, numFieldKeys)
	for _, f := range d.header.Fields() {
		parts = append(parts, fmt.Sprintf("%s@%d+%d", f.Key, f.Offset, f.ByteSize))
	}
	return fmt.Sprintf("%s%v header=%d[%s] body=%d",
		d.dtype, d.shape, d.ByteSizeOfBlobHeader(), strings.Join(parts, " "), d.bodyBytes)
}
