// Package metrics exposes prometheus collectors for copy traffic and
// register allocations.
package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	namespace = "tensorblob"

	copyBytesKey      = "copy_bytes_total"
	copyOpsKey        = "copy_ops_total"
	copyErrorsKey     = "copy_errors_total"
	regstBytesKey     = "regst_allocated_bytes"
	stagingPoolHitKey = "staging_pool_hits_total"
)

var (
	copyBytes = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "copy",
			Name:      copyBytesKey,
			Help:      "Bytes issued to copy engines. Broken down by engine.",
		},
		[]string{"engine"},
	)

	copyOps = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "copy",
			Name:      copyOpsKey,
			Help:      "Copy operations issued. Broken down by engine.",
		},
		[]string{"engine"},
	)

	copyErrors = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "copy",
			Name:      copyErrorsKey,
			Help:      "Copy operations that failed. Broken down by engine.",
		},
		[]string{"engine"},
	)

	regstBytes = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "regst",
			Name:      regstBytesKey,
			Help:      "Bytes currently allocated by registers. Broken down by allocator.",
		},
		[]string{"allocator"},
	)

	stagingPoolHits = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "copy",
			Name:      stagingPoolHitKey,
			Help:      "Staging buffer requests served from the pool. Broken down by hit/miss.",
		},
		[]string{"result"},
	)
)

var register sync.Once

// Registry holds every collector of this package.
var Registry *prometheus.Registry

// Register registers the collectors. Safe to call more than once.
func Register() *prometheus.Registry {
	register.Do(func() {
		Registry = prometheus.NewRegistry()
		Registry.MustRegister(copyBytes, copyOps, copyErrors, regstBytes, stagingPoolHits)
	})
	return Registry
}

// CopyIssued records one copy of n bytes through engine.
func CopyIssued(engine string, n int) {
	copyOps.WithLabelValues(engine).Inc()
	copyBytes.WithLabelValues(engine).Add(float64(n))
}

// CopyBytesFor returns the byte counter of engine.
func CopyBytesFor(engine string) prometheus.Counter {
	return copyBytes.WithLabelValues(engine)
}

// CopyFailed records a failed copy through engine.
func CopyFailed(engine string) {
	copyErrors.WithLabelValues(engine).Inc()
}

// RegstAllocated adjusts the allocated byte gauge of allocator by delta.
func RegstAllocated(allocator string, delta int) {
	regstBytes.WithLabelValues(allocator).Add(float64(delta))
}

// RegstBytesFor returns the allocated byte gauge of allocator.
func RegstBytesFor(allocator string) prometheus.Gauge {
	return regstBytes.WithLabelValues(allocator)
}

// StagingPoolLookup records whether a staging buffer came from the pool.
func StagingPoolLookup(hit bool) {
	if hit {
		stagingPoolHits.WithLabelValues("hit").Inc()
		return
	}
	stagingPoolHits.WithLabelValues("miss").Inc()
}
