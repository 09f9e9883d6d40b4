package regst

import (
	"errors"
	"fmt"

	"github.com/born-ml/tensorblob/internal/device"
	"github.com/born-ml/tensorblob/internal/pod"
)

// Register errors.
var (
	ErrNoBlobs        = errors.New("register has no blobs")
	ErrEmptyName      = errors.New("blob name is empty")
	ErrDuplicateBlob  = errors.New("duplicate blob name")
	ErrNilDesc        = errors.New("blob descriptor is nil")
	ErrLayoutMismatch = errors.New("register layouts differ")
	ErrClosed         = errors.New("register is closed")
)

// regionAlign is the alignment of every header and body region offset.
const regionAlign = 64

// Layout selects how a register carves its memory.
type Layout int

const (
	// Contiguous gives every blob one region, header immediately followed by body.
	Contiguous Layout = iota
	// Separated packs all headers in one allocation and all bodies in another.
	Separated
)

// String returns the layout name.
func (l Layout) String() string {
	switch l {
	case Contiguous:
		return "contiguous"
	case Separated:
		return "separated"
	default:
		return "unknown"
	}
}

// ParseLayout maps a name produced by Layout.String back to its Layout.
func ParseLayout(name string) (Layout, error) {
	for l := Contiguous; l <= Separated; l++ {
		if l.String() == name {
			return l, nil
		}
	}
	return 0, fmt.Errorf("unknown layout %q", name)
}

// NamedBlobDesc names one blob of a register.
type NamedBlobDesc struct {
	Name string
	Desc *pod.BlobDesc
}

// RegstDesc describes the blobs a register holds and where they live.
type RegstDesc struct {
	Name    string
	MemCase device.MemCase
	Layout  Layout
	Blobs   []NamedBlobDesc
}

// Validate checks that the register has blobs with unique, non-empty names.
func (d *RegstDesc) Validate() error {
	if len(d.Blobs) == 0 {
		return fmt.Errorf("%s: %w", d.Name, ErrNoBlobs)
	}
	seen := make(map[string]bool, len(d.Blobs))
	for i, b := range d.Blobs {
		if b.Name == "" {
			return fmt.Errorf("%s: blob %d: %w", d.Name, i, ErrEmptyName)
		}
		if b.Desc == nil {
			return fmt.Errorf("%s: blob %q: %w", d.Name, b.Name, ErrNilDesc)
		}
		if seen[b.Name] {
			return fmt.Errorf("%s: blob %q: %w", d.Name, b.Name, ErrDuplicateBlob)
		}
		seen[b.Name] = true
	}
	return nil
}

// region is where one blob lives inside the register allocations.
type region struct {
	headerOff, bodyOff int
}

// plan computes blob offsets and the sizes of the allocations.
// Contiguous layouts use only the first allocation.
func (d *RegstDesc) plan() (regions []region, first, second int) {
	regions = make([]region, len(d.Blobs))
	for i, b := range d.Blobs {
		h, n := b.Desc.ByteSizeOfBlobHeader(), b.Desc.ByteSizeOfDataContentField()
		switch d.Layout {
		case Separated:
			regions[i] = region{headerOff: first, bodyOff: second}
			first = alignUp(first + h)
			second = alignUp(second + n)
		default:
			regions[i] = region{headerOff: first, bodyOff: first + h}
			first = alignUp(first + h + n)
		}
	}
	return regions, first, second
}

func alignUp(n int) int {
	return (n + regionAlign - 1) / regionAlign * regionAlign
}
