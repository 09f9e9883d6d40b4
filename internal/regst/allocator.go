package regst

// Allocator provides the raw memory a register lays its blobs over.
type Allocator interface {
	// Name identifies the allocator in logs and metrics.
	Name() string
	// Alloc returns n zeroed bytes. Alloc(0) returns nil.
	Alloc(n int) ([]byte, error)
	// Free releases memory returned by Alloc.
	Free(mem []byte) error
}

// HeapAllocator allocates from the Go heap.
type HeapAllocator struct{}

// Name implements Allocator.
func (HeapAllocator) Name() string { return "heap" }

// Alloc implements Allocator.
func (HeapAllocator) Alloc(n int) ([]byte, error) {
	if n == 0 {
		return nil, nil
	}
	return make([]byte, n), nil
}

// Free implements Allocator. The garbage collector reclaims the memory.
func (HeapAllocator) Free([]byte) error { return nil }

// MmapAllocator allocates anonymous page-aligned mappings outside the Go
// heap. Memory must be released with Free.
type MmapAllocator struct{}

// Name implements Allocator.
func (MmapAllocator) Name() string { return "mmap" }

// Alloc implements Allocator.
func (MmapAllocator) Alloc(n int) ([]byte, error) {
	if n == 0 {
		return nil, nil
	}
	return mmapAnon(n)
}

// Free implements Allocator.
func (MmapAllocator) Free(mem []byte) error {
	if len(mem) == 0 {
		return nil
	}
	return munmapAnon(mem)
}
