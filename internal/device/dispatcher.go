package device

import (
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/born-ml/tensorblob/internal/config"
	"github.com/born-ml/tensorblob/internal/metrics"
)

var log = logrus.WithField("module", "device")

// Copier is what a blob needs from its environment to move bytes.
type Copier interface {
	// Memcpy issues a host-local copy of src into dst on ctx.
	Memcpy(ctx Ctx, dst, src []byte)
	// AutoMemcpy issues a copy of src into dst on ctx, choosing the transfer
	// path from the two placements.
	AutoMemcpy(ctx Ctx, dst, src []byte, dstCase, srcCase MemCase)
}

// Dispatcher selects an Engine per copy. It is immutable after construction
// and safe for concurrent use.
type Dispatcher struct {
	host    Engine
	engines []Engine
}

// NewDispatcher creates a dispatcher. Same-device copies always use the host
// engine; cross-device copies use the first engine in engines that supports
// the placement pair.
func NewDispatcher(engines ...Engine) *Dispatcher {
	return &Dispatcher{
		host:    HostEngine{},
		engines: engines,
	}
}

// NewDefaultDispatcher wires the WebGPU engine when an adapter is present,
// then the staging engine as the fallback for every other cross-device pair.
func NewDefaultDispatcher(cfg *config.Config) *Dispatcher {
	var engines []Engine

	gpu, err := NewWebGPUEngine()
	switch {
	case err == nil:
		engines = append(engines, gpu)
		log.Info("webgpu copy engine enabled")
	case errors.Is(err, ErrUnavailable):
		log.WithError(err).Debug("webgpu copy engine disabled")
	default:
		log.WithError(err).Warn("webgpu copy engine failed to start")
	}

	engines = append(engines, NewStagingEngine(NewStagingPool(cfg.Staging.MaxPooledPerClass)))
	return NewDispatcher(engines...)
}

// Engines returns the cross-device engines in selection order.
func (d *Dispatcher) Engines() []Engine {
	return append([]Engine(nil), d.engines...)
}

// Select returns the engine for a copy from src placement to dst placement.
func (d *Dispatcher) Select(dst, src MemCase) (Engine, error) {
	if dst.SameDevice(src) {
		return d.host, nil
	}
	for _, e := range d.engines {
		if e.Supports(dst, src) {
			return e, nil
		}
	}
	return nil, fmt.Errorf("%w: %s -> %s", ErrNoCopyPath, src, dst)
}

// Memcpy implements Copier.
func (d *Dispatcher) Memcpy(ctx Ctx, dst, src []byte) {
	d.issue(ctx, d.host, dst, src, HostMemCase(), HostMemCase())
}

// AutoMemcpy implements Copier. Panics if len(dst) != len(src).
// A missing transfer path is reported through ctx.Sync.
func (d *Dispatcher) AutoMemcpy(ctx Ctx, dst, src []byte, dstCase, srcCase MemCase) {
	e, err := d.Select(dstCase, srcCase)
	if err != nil {
		metrics.CopyFailed("none")
		ctx.Enqueue(func() error { return err })
		return
	}
	d.issue(ctx, e, dst, src, dstCase, srcCase)
}

func (d *Dispatcher) issue(ctx Ctx, e Engine, dst, src []byte, dstCase, srcCase MemCase) {
	if len(dst) != len(src) {
		panic(fmt.Sprintf("device: copy length mismatch: dst %d bytes, src %d bytes", len(dst), len(src)))
	}
	if len(src) == 0 {
		return
	}

	log.WithFields(logrus.Fields{
		"engine": e.Name(),
		"bytes":  len(src),
		"src":    srcCase.String(),
		"dst":    dstCase.String(),
	}).Debug("issue copy")
	metrics.CopyIssued(e.Name(), len(src))

	ctx.Enqueue(func() error {
		if err := e.Copy(dst, src, dstCase, srcCase); err != nil {
			metrics.CopyFailed(e.Name())
			return fmt.Errorf("%s copy %s -> %s: %w", e.Name(), srcCase, dstCase, err)
		}
		return nil
	})
}
