// Package device moves bytes between memory regions that may live on
// different devices.
//
// A Dispatcher picks an Engine by comparing the placement (MemCase) of the
// source and destination: same-device copies take the host memcpy path,
// cross-device copies go to the first registered engine that supports the
// pair. Copies are issued on a Ctx, which orders them and reports their
// errors on Sync.
package device

import (
	"fmt"

	"github.com/born-ml/tensorblob/internal/tensor"
)

// MemCase describes where a memory region lives.
type MemCase struct {
	Device   tensor.Device
	DeviceID int // Ordinal among devices of the same kind, 0 for the host.
}

// HostMemCase is the placement of ordinary host memory.
func HostMemCase() MemCase {
	return MemCase{Device: tensor.CPU}
}

// IsHost reports whether the region is host memory.
func (m MemCase) IsHost() bool {
	return m.Device == tensor.CPU
}

// SameDevice reports whether m and other name the same physical device.
func (m MemCase) SameDevice(other MemCase) bool {
	if m.IsHost() && other.IsHost() {
		return true
	}
	return m == other
}

// String returns "CPU" for host memory and "<device>:<id>" otherwise.
func (m MemCase) String() string {
	if m.IsHost() {
		return m.Device.String()
	}
	return fmt.Sprintf("%s:%d", m.Device, m.DeviceID)
}
