package pod

import (
	"fmt"
	"sort"
)

// FieldKey names an optional header field.
type FieldKey int

// Header fields.
const (
	DataID FieldKey = iota
	ColNum
	Dim0ValidNum
	Dim1ValidNum

	numFieldKeys
)

// String returns the field name.
func (k FieldKey) String() string {
	switch k {
	case DataID:
		return "data_id"
	case ColNum:
		return "col_num"
	case Dim0ValidNum:
		return "dim0_valid_num"
	case Dim1ValidNum:
		return "dim1_valid_num"
	default:
		return fmt.Sprintf("field(%d)", int(k))
	}
}

// elemSize is the byte size of one slot. Counter fields are int32, data ids are raw bytes.
func (k FieldKey) elemSize() int {
	if k == DataID {
		return 1
	}
	return 4
}

// FieldDesc locates one field inside the header region.
type FieldDesc struct {
	Key      FieldKey
	Offset   int
	ByteSize int
}

func (f FieldDesc) end() int {
	return f.Offset + f.ByteSize
}

// HeaderPodDesc is the immutable layout of a blob header: which fields are
// present and where each one lives.
type HeaderPodDesc struct {
	fields   [numFieldKeys]FieldDesc
	present  [numFieldKeys]bool
	byteSize int
}

// NewHeaderPodDesc builds a header layout from explicit field placements.
// Fields must not overlap, int32 fields must be 4-byte aligned, and the
// header size is the sum of the field sizes, so the fields must tile
// [0, size) without gaps.
func NewHeaderPodDesc(fields ...FieldDesc) (*HeaderPodDesc, error) {
	d := &HeaderPodDesc{}

	for _, f := range fields {
		if f.Key < 0 || f.Key >= numFieldKeys {
			return nil, &LayoutError{Err: ErrUnknownField, Field: f.Key.String(), Details: "not a known key"}
		}
		if d.present[f.Key] {
			return nil, &LayoutError{Err: ErrDuplicateField, Field: f.Key.String(), Details: "declared twice"}
		}
		if f.Offset < 0 || f.ByteSize < 0 {
			return nil, &LayoutError{
				Err:     ErrNegativeOffset,
				Field:   f.Key.String(),
				Details: fmt.Sprintf("offset=%d, size=%d", f.Offset, f.ByteSize),
			}
		}
		if f.Offset%f.Key.elemSize() != 0 || f.ByteSize%f.Key.elemSize() != 0 {
			return nil, &LayoutError{
				Err:     ErrMisalignedField,
				Field:   f.Key.String(),
				Details: fmt.Sprintf("offset=%d, size=%d, alignment %d", f.Offset, f.ByteSize, f.Key.elemSize()),
			}
		}
		d.fields[f.Key] = f
		d.present[f.Key] = true
		d.byteSize += f.ByteSize
	}

	if err := d.validateOffsets(); err != nil {
		return nil, err
	}
	return d, nil
}

// validateOffsets checks for overlapping fields and fields beyond the header end.
func (d *HeaderPodDesc) validateOffsets() error {
	sorted := d.Fields()
	for i, f := range sorted {
		if f.end() > d.byteSize {
			return &LayoutError{
				Err:     ErrHeaderSize,
				Field:   f.Key.String(),
				Details: fmt.Sprintf("offset %d + size %d > header size %d", f.Offset, f.ByteSize, d.byteSize),
			}
		}
		if i < len(sorted)-1 {
			next := sorted[i+1]
			if f.end() > next.Offset {
				return &LayoutError{
					Err:    ErrFieldOverlap,
					Field:  f.Key.String(),
					Field2: next.Key.String(),
					Details: fmt.Sprintf("regions [%d-%d] and [%d-%d] overlap",
						f.Offset, f.end(), next.Offset, next.end()),
				}
			}
		}
	}
	return nil
}

// Field returns the placement of key and whether it is present.
func (d *HeaderPodDesc) Field(key FieldKey) (FieldDesc, bool) {
	if key < 0 || key >= numFieldKeys || !d.present[key] {
		return FieldDesc{Key: key}, false
	}
	return d.fields[key], true
}

// HasField reports whether key is present in this layout.
func (d *HeaderPodDesc) HasField(key FieldKey) bool {
	_, ok := d.Field(key)
	return ok
}

// FieldByteSize returns the byte size of key, 0 when absent.
func (d *HeaderPodDesc) FieldByteSize(key FieldKey) int {
	f, _ := d.Field(key)
	return f.ByteSize
}

// ByteSize returns the total header size.
func (d *HeaderPodDesc) ByteSize() int {
	return d.byteSize
}

// Fields returns the present fields ordered by offset.
func (d *HeaderPodDesc) Fields() []FieldDesc {
	out := make([]FieldDesc, 0, numFieldKeys)
	for k := FieldKey(0); k < numFieldKeys; k++ {
		if d.present[k] {
			out = append(out, d.fields[k])
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Offset != out[j].Offset {
			return out[i].Offset < out[j].Offset
		}
		return out[i].ByteSize < out[j].ByteSize
	})
	return out
}
