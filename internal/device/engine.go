package device

import (
	"errors"
)

// Common copy errors.
var (
	ErrNoCopyPath  = errors.New("no copy engine supports this placement pair")
	ErrUnavailable = errors.New("copy engine not available on this platform")
)

// Engine moves bytes between two placements.
type Engine interface {
	// Name identifies the engine in logs and metrics.
	Name() string
	// Supports reports whether the engine can copy from src placement to dst placement.
	Supports(dst, src MemCase) bool
	// Copy copies len(src) bytes into dst. len(dst) == len(src).
	Copy(dst, src []byte, dstCase, srcCase MemCase) error
}

// HostEngine is the same-device fast path: a plain memcpy.
type HostEngine struct{}

// Name implements Engine.
func (HostEngine) Name() string { return "host" }

// Supports implements Engine. Only same-device pairs qualify.
func (HostEngine) Supports(dst, src MemCase) bool {
	return dst.SameDevice(src)
}

// Copy implements Engine.
func (HostEngine) Copy(dst, src []byte, _, _ MemCase) error {
	copy(dst, src)
	return nil
}
