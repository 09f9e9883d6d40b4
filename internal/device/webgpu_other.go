//go:build !windows

package device

import "github.com/born-ml/tensorblob/internal/tensor"

// WebGPUEngine is only backed by a native adapter on windows.
type WebGPUEngine struct{}

// NewWebGPUEngine always reports ErrUnavailable on this platform.
func NewWebGPUEngine() (*WebGPUEngine, error) {
	return nil, ErrUnavailable
}

// Name implements Engine.
func (e *WebGPUEngine) Name() string { return "webgpu" }

// Supports implements Engine.
func (e *WebGPUEngine) Supports(dst, src MemCase) bool {
	if dst.SameDevice(src) {
		return false
	}
	return dst.Device == tensor.WebGPU || src.Device == tensor.WebGPU
}

// Copy implements Engine.
func (e *WebGPUEngine) Copy(_, _ []byte, _, _ MemCase) error {
	return ErrUnavailable
}

// Release is a no-op.
func (e *WebGPUEngine) Release() {}
