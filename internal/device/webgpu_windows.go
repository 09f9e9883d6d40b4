//go:build windows

package device

import (
	"fmt"
	"sync"
	"unsafe"

	"github.com/go-webgpu/webgpu/wgpu"

	"github.com/born-ml/tensorblob/internal/tensor"
)

// WebGPUEngine moves bytes to and from a WebGPU device through the device
// queue: the source is uploaded into a mapped storage buffer, copied on the
// GPU into a MapRead staging buffer and read back into the destination.
type WebGPUEngine struct {
	instance *wgpu.Instance
	adapter  *wgpu.Adapter
	device   *wgpu.Device
	queue    *wgpu.Queue

	mu sync.Mutex
}

// NewWebGPUEngine opens the default adapter.
// Returns ErrUnavailable if the native library or an adapter is missing.
func NewWebGPUEngine() (engine *WebGPUEngine, err error) {
	// Recover from panic if wgpu_native library is not found.
	defer func() {
		if r := recover(); r != nil {
			engine = nil
			err = fmt.Errorf("%w: webgpu native library: %v", ErrUnavailable, r)
		}
	}()

	if err := wgpu.Init(); err != nil {
		return nil, fmt.Errorf("%w: webgpu init: %v", ErrUnavailable, err)
	}

	instance, err := wgpu.CreateInstance(nil)
	if err != nil {
		return nil, fmt.Errorf("%w: webgpu instance: %v", ErrUnavailable, err)
	}

	adapter, err := instance.RequestAdapter(nil)
	if err != nil {
		instance.Release()
		return nil, fmt.Errorf("%w: webgpu adapter: %v", ErrUnavailable, err)
	}

	device, err := adapter.RequestDevice(nil)
	if err != nil {
		adapter.Release()
		instance.Release()
		return nil, fmt.Errorf("%w: webgpu device: %v", ErrUnavailable, err)
	}

	queue := device.GetQueue()
	if queue == nil {
		device.Release()
		adapter.Release()
		instance.Release()
		return nil, fmt.Errorf("%w: webgpu queue", ErrUnavailable)
	}

	return &WebGPUEngine{
		instance: instance,
		adapter:  adapter,
		device:   device,
		queue:    queue,
	}, nil
}

// Name implements Engine.
func (e *WebGPUEngine) Name() string { return "webgpu" }

// Supports implements Engine. Pairs crossing into or out of a WebGPU device qualify.
func (e *WebGPUEngine) Supports(dst, src MemCase) bool {
	if dst.SameDevice(src) {
		return false
	}
	return dst.Device == tensor.WebGPU || src.Device == tensor.WebGPU
}

// Copy implements Engine.
func (e *WebGPUEngine) Copy(dst, src []byte, _, _ MemCase) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.device == nil {
		return ErrUnavailable
	}

	size := uint64(len(src))
	// CopyBufferToBuffer needs 4-byte aligned sizes.
	aligned := (size + 3) &^ 3

	upload := e.device.CreateBuffer(&wgpu.BufferDescriptor{
		Usage:            wgpu.BufferUsageStorage | wgpu.BufferUsageCopySrc,
		Size:             aligned,
		MappedAtCreation: wgpu.True,
	})
	defer upload.Release()

	mappedPtr := upload.GetMappedRange(0, aligned)
	//nolint:gosec // unsafe.Slice for zero-copy conversion from unsafe.Pointer
	copy(unsafe.Slice((*byte)(mappedPtr), aligned), src)
	upload.Unmap()

	staging := e.device.CreateBuffer(&wgpu.BufferDescriptor{
		Usage: wgpu.BufferUsageMapRead | wgpu.BufferUsageCopyDst,
		Size:  aligned,
	})
	defer staging.Release()

	encoder := e.device.CreateCommandEncoder(nil)
	encoder.CopyBufferToBuffer(upload, 0, staging, 0, aligned)
	e.queue.Submit(encoder.Finish(nil))

	if err := staging.MapAsync(e.device, wgpu.MapModeRead, 0, aligned); err != nil {
		return fmt.Errorf("webgpu: failed to map staging buffer: %w", err)
	}
	mapped := staging.GetMappedRange(0, aligned)
	//nolint:gosec // unsafe.Slice for zero-copy conversion from unsafe.Pointer
	copy(dst, unsafe.Slice((*byte)(mapped), size))
	staging.Unmap()

	return nil
}

// Release releases all WebGPU resources.
func (e *WebGPUEngine) Release() {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.queue != nil {
		e.queue.Release()
		e.queue = nil
	}
	if e.device != nil {
		e.device.Release()
		e.device = nil
	}
	if e.adapter != nil {
		e.adapter.Release()
		e.adapter = nil
	}
	if e.instance != nil {
		e.instance.Release()
		e.instance = nil
	}
}
