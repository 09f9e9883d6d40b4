package tensor

// Device represents the kind of memory a region lives in.
type Device int

// Supported devices.
const (
	CPU Device = iota
	CUDA
	Vulkan
	Metal
	WebGPU
)

// String returns a human-readable device name.
func (d Device) String() string {
	switch d {
	case CPU:
		return "CPU"
	case CUDA:
		return "CUDA"
	case Vulkan:
		return "Vulkan"
	case Metal:
		return "Metal"
	case WebGPU:
		return "WebGPU"
	default:
		return "Unknown"
	}
}

// ParseDevice maps a device name (as produced by String) back to a Device.
func ParseDevice(name string) (Device, bool) {
	for d := CPU; d <= WebGPU; d++ {
		if d.String() == name {
			return d, true
		}
	}
	return 0, false
}
