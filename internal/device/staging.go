package device

import (
	"sync"

	"github.com/born-ml/tensorblob/internal/metrics"
)

// StagingClass represents the size category of a staging buffer.
type StagingClass int

const (
	// SmallStaging for transfers < 4KB.
	SmallStaging StagingClass = iota
	// MediumStaging for transfers 4KB-1MB.
	MediumStaging
	// LargeStaging for transfers > 1MB.
	LargeStaging
)

const (
	smallThreshold  = 4 * 1024    // 4KB
	mediumThreshold = 1024 * 1024 // 1MB
)

// StagingPool reuses host bounce buffers for cross-device transfers.
// Buffers are grouped by size class; at most maxPerClass are kept per class.
type StagingPool struct {
	maxPerClass int

	mu      sync.Mutex
	classes [3][][]byte

	totalAllocated uint64
	totalReleased  uint64
	poolHits       uint64
	poolMisses     uint64
}

// NewStagingPool creates a pool keeping up to maxPerClass buffers per size class.
func NewStagingPool(maxPerClass int) *StagingPool {
	return &StagingPool{maxPerClass: maxPerClass}
}

// Acquire returns a buffer of exactly size bytes, reusing a pooled one when
// its capacity suffices.
func (p *StagingPool) Acquire(size int) []byte {
	p.mu.Lock()
	defer p.mu.Unlock()

	class := categorize(size)
	pool := p.classes[class]
	for i, buf := range pool {
		if cap(buf) >= size {
			p.classes[class] = append(pool[:i], pool[i+1:]...)
			p.poolHits++
			metrics.StagingPoolLookup(true)
			return buf[:size]
		}
	}

	p.poolMisses++
	p.totalAllocated++
	metrics.StagingPoolLookup(false)
	return make([]byte, size)
}

// Release returns buf to the pool, dropping it when its class is full.
func (p *StagingPool) Release(buf []byte) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.totalReleased++
	class := categorize(cap(buf))
	if len(p.classes[class]) >= p.maxPerClass {
		return
	}
	p.classes[class] = append(p.classes[class], buf[:0])
}

// Clear drops all pooled buffers.
func (p *StagingPool) Clear() {
	p.mu.Lock()
	defer p.mu.Unlock()
	for i := range p.classes {
		p.classes[i] = nil
	}
}

// Stats returns statistics about pool usage.
func (p *StagingPool) Stats() (allocated, released, hits, misses uint64, pooledCount int) {
	p.mu.Lock()
	defer p.mu.Unlock()

	for _, c := range p.classes {
		pooledCount += len(c)
	}
	return p.totalAllocated, p.totalReleased, p.poolHits, p.poolMisses, pooledCount
}

func categorize(size int) StagingClass {
	if size < smallThreshold {
		return SmallStaging
	}
	if size < mediumThreshold {
		return MediumStaging
	}
	return LargeStaging
}

// StagingEngine performs cross-device copies in two hops through a pooled
// host staging buffer: source to staging, then staging to destination.
type StagingEngine struct {
	pool *StagingPool
}

// NewStagingEngine creates an engine drawing bounce buffers from pool.
func NewStagingEngine(pool *StagingPool) *StagingEngine {
	return &StagingEngine{pool: pool}
}

// Name implements Engine.
func (e *StagingEngine) Name() string { return "staging" }

// Supports implements Engine. Any cross-device pair qualifies.
func (e *StagingEngine) Supports(dst, src MemCase) bool {
	return !dst.SameDevice(src)
}

// Copy implements Engine.
func (e *StagingEngine) Copy(dst, src []byte, _, _ MemCase) error {
	staging := e.pool.Acquire(len(src))
	defer e.pool.Release(staging)

	copy(staging, src)
	copy(dst, staging)
	return nil
}

// Pool returns the engine's staging pool.
func (e *StagingEngine) Pool() *StagingPool {
	return e.pool
}
