package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/born-ml/tensorblob/internal/device"
	"github.com/born-ml/tensorblob/internal/pod"
	"github.com/born-ml/tensorblob/internal/tensor"
)

// parseShape parses a comma separated dimension list such as "4,8".
func parseShape(s string) (tensor.Shape, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, fmt.Errorf("empty shape")
	}
	parts := strings.Split(s, ",")
	shape := make(tensor.Shape, len(parts))
	for i, p := range parts {
		d, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil {
			return nil, fmt.Errorf("invalid dimension %q in shape %q", p, s)
		}
		shape[i] = d
	}
	if err := shape.Validate(); err != nil {
		return nil, err
	}
	return shape, nil
}

// parseMemCase parses "CPU", "CUDA:1" or "WebGPU".
func parseMemCase(s string) (device.MemCase, error) {
	name, id, hasID := strings.Cut(s, ":")
	d, ok := tensor.ParseDevice(name)
	if !ok {
		return device.MemCase{}, fmt.Errorf("unknown device %q", name)
	}
	mc := device.MemCase{Device: d}
	if hasID {
		n, err := strconv.Atoi(id)
		if err != nil || n < 0 {
			return device.MemCase{}, fmt.Errorf("invalid device id %q", id)
		}
		mc.DeviceID = n
	}
	return mc, nil
}

// layoutSpec collects the layout flags shared by the commands.
type layoutSpec struct {
	shape     string
	dtype     string
	dataID    bool
	colNum    bool
	dim0Inner string
	dim1      bool
}

func (l layoutSpec) desc() (*pod.BlobDesc, error) {
	shape, err := parseShape(l.shape)
	if err != nil {
		return nil, err
	}
	dtype, err := tensor.ParseDataType(l.dtype)
	if err != nil {
		return nil, err
	}

	var opts []pod.Option
	if l.dataID {
		opts = append(opts, pod.WithDataID())
	}
	if l.colNum {
		opts = append(opts, pod.WithColNum())
	}
	if l.dim0Inner != "" {
		inner, err := parseShape(l.dim0Inner)
		if err != nil {
			return nil, fmt.Errorf("dim0 inner shape: %w", err)
		}
		opts = append(opts, pod.WithDim0ValidNum(inner))
	}
	if l.dim1 {
		opts = append(opts, pod.WithDim1ValidNum())
	}
	return pod.NewBlobDesc(shape, dtype, opts...)
}
