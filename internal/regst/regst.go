// Package regst implements the register: the container that allocates the
// memory of a group of blobs, builds the blobs over it and holds the column
// ids they share.
package regst

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/cespare/xxhash/v2"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/born-ml/tensorblob/internal/blob"
	"github.com/born-ml/tensorblob/internal/config"
	"github.com/born-ml/tensorblob/internal/device"
	"github.com/born-ml/tensorblob/internal/metrics"
)

var log = logrus.WithField("module", "regst")

// Option configures a Regst.
type Option func(*Regst)

// WithCopyParallelism bounds how many blob copies CopyFrom runs at once.
// Defaults to config.Global().CopyParallelism.
func WithCopyParallelism(n int) Option {
	return func(r *Regst) {
		if n > 0 {
			r.parallelism = n
		}
	}
}

// Regst owns the memory of its blobs. Column ids are guarded by the
// register's own lock; blobs are not.
type Regst struct {
	desc        *RegstDesc
	alloc       Allocator
	copier      device.Copier
	parallelism int

	mems  [][]byte
	total int
	blobs map[string]*blob.Blob
	names []string

	mu       sync.Mutex
	colID    int32
	maxColID int32
	closed   bool
}

// New allocates the memory described by desc and builds its blobs.
func New(desc *RegstDesc, alloc Allocator, copier device.Copier, opts ...Option) (*Regst, error) {
	if err := desc.Validate(); err != nil {
		return nil, err
	}

	r := &Regst{
		desc:        desc,
		alloc:       alloc,
		copier:      copier,
		parallelism: config.Global().CopyParallelism,
		blobs:       make(map[string]*blob.Blob, len(desc.Blobs)),
	}
	for _, opt := range opts {
		opt(r)
	}

	regions, first, second := desc.plan()
	sizes := []int{first}
	if desc.Layout == Separated {
		sizes = append(sizes, second)
	}
	for _, n := range sizes {
		mem, err := alloc.Alloc(n)
		if err != nil {
			_ = r.free()
			return nil, fmt.Errorf("%s: failed to allocate %d bytes with %s allocator: %w", desc.Name, n, alloc.Name(), err)
		}
		r.mems = append(r.mems, mem)
		r.total += n
	}
	metrics.RegstAllocated(alloc.Name(), r.total)

	for i, nb := range desc.Blobs {
		h, n := nb.Desc.ByteSizeOfBlobHeader(), nb.Desc.ByteSizeOfDataContentField()
		reg := regions[i]

		var b *blob.Blob
		if desc.Layout == Separated {
			header := r.mems[0][reg.headerOff : reg.headerOff+h : reg.headerOff+h]
			body := r.mems[1][reg.bodyOff : reg.bodyOff+n : reg.bodyOff+n]
			b = blob.NewSplit(r, nb.Desc, header, body)
		} else {
			b = blob.New(r, nb.Desc, r.mems[0][reg.headerOff:reg.headerOff+h+n])
		}
		r.blobs[nb.Name] = b
		r.names = append(r.names, nb.Name)
	}

	log.WithFields(logrus.Fields{
		"regst":     desc.Name,
		"layout":    desc.Layout.String(),
		"blobs":     len(desc.Blobs),
		"bytes":     r.total,
		"allocator": alloc.Name(),
		"mem_case":  desc.MemCase.String(),
	}).Debug("allocated register")

	return r, nil
}

// Desc returns the register descriptor.
func (r *Regst) Desc() *RegstDesc { return r.desc }

// ByteSize returns the number of bytes the register allocated.
func (r *Regst) ByteSize() int { return r.total }

// Blob returns the named blob, or nil if the register has none by that name.
func (r *Regst) Blob(name string) *blob.Blob { return r.blobs[name] }

// Names returns the blob names in declaration order.
func (r *Regst) Names() []string { return append([]string(nil), r.names...) }

// ColID implements blob.Owner.
func (r *Regst) ColID() int32 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.colID
}

// SetColID implements blob.Owner.
func (r *Regst) SetColID(v int32) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.colID = v
}

// MaxColID implements blob.Owner.
func (r *Regst) MaxColID() int32 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.maxColID
}

// SetMaxColID implements blob.Owner.
func (r *Regst) SetMaxColID(v int32) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.maxColID = v
}

// MemCase implements blob.Owner.
func (r *Regst) MemCase() device.MemCase { return r.desc.MemCase }

// Copier implements blob.Owner.
func (r *Regst) Copier() device.Copier { return r.copier }

// CopyFrom copies every blob of rhs into the blob of the same name in r.
// Both registers must hold the same names with the same byte layouts. Blobs
// are copied concurrently, at most the configured parallelism at a time, and
// CopyFrom returns once all copies have completed.
func (r *Regst) CopyFrom(ctx context.Context, rhs *Regst) error {
	if r == rhs {
		return nil
	}
	if err := r.checkOpen(); err != nil {
		return err
	}
	if err := rhs.checkOpen(); err != nil {
		return fmt.Errorf("source: %w", err)
	}
	if err := r.matches(rhs); err != nil {
		return err
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.parallelism)
	for _, name := range r.names {
		dst, src := r.blobs[name], rhs.blobs[name]
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			dc := device.NewSyncCtx()
			dst.CopyFrom(dc, src)
			if err := dc.Sync(); err != nil {
				return fmt.Errorf("%s: blob %q: %w", r.desc.Name, name, err)
			}
			return nil
		})
	}
	return g.Wait()
}

// matches reports whether rhs can be copied into r blob by blob.
func (r *Regst) matches(rhs *Regst) error {
	if len(r.names) != len(rhs.names) {
		return fmt.Errorf("%w: %d blobs vs %d", ErrLayoutMismatch, len(r.names), len(rhs.names))
	}
	for _, name := range r.names {
		dst, src := r.blobs[name], rhs.blobs[name]
		if src == nil {
			return fmt.Errorf("%w: source has no blob %q", ErrLayoutMismatch, name)
		}
		if dst.ByteSizeOfBlobHeader() != src.ByteSizeOfBlobHeader() ||
			dst.ByteSizeOfDataContentField() != src.ByteSizeOfDataContentField() {
			return fmt.Errorf("%w: blob %q is %d+%d bytes, source is %d+%d", ErrLayoutMismatch, name,
				dst.ByteSizeOfBlobHeader(), dst.ByteSizeOfDataContentField(),
				src.ByteSizeOfBlobHeader(), src.ByteSizeOfDataContentField())
		}
	}
	return nil
}

// Fingerprint hashes every blob, in name order, into one xxHash64.
func (r *Regst) Fingerprint() uint64 {
	names := r.Names()
	sort.Strings(names)

	d := xxhash.New()
	var buf [8]byte
	for _, name := range names {
		_, _ = d.WriteString(name)
		binary.LittleEndian.PutUint64(buf[:], r.blobs[name].Fingerprint())
		_, _ = d.Write(buf[:])
	}
	return d.Sum64()
}

func (r *Regst) checkOpen() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return fmt.Errorf("%s: %w", r.desc.Name, ErrClosed)
	}
	return nil
}

// Close releases the register memory. Blobs of a closed register must not
// be used. Subsequent calls return nil.
func (r *Regst) Close() error {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return nil
	}
	r.closed = true
	r.mu.Unlock()

	err := r.free()
	metrics.RegstAllocated(r.alloc.Name(), -r.total)
	log.WithField("regst", r.desc.Name).Debug("released register")
	return err
}

func (r *Regst) free() error {
	var errs []error
	for _, mem := range r.mems {
		if err := r.alloc.Free(mem); err != nil {
			errs = append(errs, err)
		}
	}
	r.mems = nil
	r.blobs = nil
	return errors.Join(errs...)
}
