// Package parallel splits index ranges across a bounded set of goroutines.
package parallel

import (
	"golang.org/x/sync/errgroup"

	"github.com/born-ml/tensorblob/internal/config"
)

// Config controls parallel execution behavior.
type Config struct {
	Enabled      bool // Whether parallel execution is enabled.
	NumWorkers   int  // Upper bound on concurrently running chunks.
	MinChunkSize int  // Minimum items per chunk to avoid overhead.
}

// DefaultConfig derives the worker count from the process configuration.
func DefaultConfig() Config {
	n := config.Global().CopyParallelism
	return Config{
		Enabled:      n > 1,
		NumWorkers:   n,
		MinChunkSize: 64, // Typical cache line aware chunk.
	}
}

// For calls f(lo, hi) over consecutive chunks covering [0, n) and returns
// once every chunk is done. Falls back to a single f(0, n) call if
// parallelism is disabled or n is too small.
func For(n int, f func(lo, hi int), cfg Config) {
	if n <= 0 {
		return
	}
	if !cfg.Enabled || cfg.NumWorkers < 2 || n < cfg.MinChunkSize {
		f(0, n)
		return
	}

	var g errgroup.Group
	g.SetLimit(cfg.NumWorkers)
	chunkSize := max((n+cfg.NumWorkers-1)/cfg.NumWorkers, cfg.MinChunkSize)
	for start := 0; start < n; start += chunkSize {
		end := min(start+chunkSize, n)
		g.Go(func() error {
			f(start, end)
			return nil
		})
	}
	_ = g.Wait()
}
