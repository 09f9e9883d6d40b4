package pod

import (
	"fmt"
	"unsafe"
)

// HeaderPodPtr binds a header layout to the memory of one header region.
type HeaderPodPtr struct {
	desc *HeaderPodDesc
	base []byte
}

// NewHeaderPodPtr binds desc to base. Panics if base is shorter than the header.
func NewHeaderPodPtr(desc *HeaderPodDesc, base []byte) HeaderPodPtr {
	if len(base) < desc.ByteSize() {
		panic(fmt.Sprintf("pod: header region is %d bytes, layout needs %d", len(base), desc.ByteSize()))
	}
	return HeaderPodPtr{desc: desc, base: base}
}

// Desc returns the bound layout.
func (p HeaderPodPtr) Desc() *HeaderPodDesc { return p.desc }

// Field returns the bytes of key inside the header and whether it is present.
func (p HeaderPodPtr) Field(key FieldKey) ([]byte, bool) {
	f, ok := p.desc.Field(key)
	if !ok {
		return nil, false
	}
	end := f.Offset + f.ByteSize
	return p.base[f.Offset:end:end], true
}

// Elem is the set of slot types a header field can hold.
type Elem interface {
	~int32 | ~byte
}

// FieldView is a typed, possibly absent, accessor for one header field.
// The zero FieldView is absent. Reading or writing an absent view panics;
// check Present first.
type FieldView[T Elem] struct {
	key     FieldKey
	raw     []byte
	data    []T
	present bool
}

// ResolveInt32 resolves a counter field as int32 slots.
func ResolveInt32(p HeaderPodPtr, key FieldKey) FieldView[int32] {
	raw, ok := p.Field(key)
	if !ok {
		return FieldView[int32]{key: key}
	}
	v := FieldView[int32]{key: key, raw: raw, present: true}
	if len(raw) > 0 {
		//nolint:gosec // unsafe.Slice over a 4-byte aligned field, length checked by the layout
		v.data = unsafe.Slice((*int32)(unsafe.Pointer(&raw[0])), len(raw)/4)
	}
	return v
}

// ResolveBytes resolves a field as raw byte slots.
func ResolveBytes(p HeaderPodPtr, key FieldKey) FieldView[byte] {
	raw, ok := p.Field(key)
	if !ok {
		return FieldView[byte]{key: key}
	}
	return FieldView[byte]{key: key, raw: raw, data: raw, present: true}
}

// Key returns the field this view resolves.
func (v FieldView[T]) Key() FieldKey { return v.key }

// Present reports whether the field exists in the layout.
func (v FieldView[T]) Present() bool { return v.present }

// Len returns the number of slots, 0 when absent.
func (v FieldView[T]) Len() int { return len(v.data) }

// At returns slot i.
func (v FieldView[T]) At(i int) T {
	v.mustBePresent("read")
	return v.data[i]
}

// Set writes slot i.
func (v FieldView[T]) Set(i int, val T) {
	v.mustBePresent("write")
	v.data[i] = val
}

// Slice returns the typed slots.
func (v FieldView[T]) Slice() []T {
	v.mustBePresent("slice")
	return v.data
}

// Bytes returns the raw field bytes.
func (v FieldView[T]) Bytes() []byte {
	v.mustBePresent("bytes")
	return v.raw
}

func (v FieldView[T]) mustBePresent(op string) {
	if !v.present {
		panic(fmt.Sprintf("pod: %s of absent field %s", op, v.key))
	}
}
