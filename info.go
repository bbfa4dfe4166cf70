// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package compute

import (
	"fmt"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"
)

// DeviceInfo describes one compute-capable adapter.
type DeviceInfo struct {
	// Name is the adapter name (e.g., "NVIDIA GeForce RTX 3080").
	Name string
	// Type is the adapter classification (discrete, integrated, CPU, ...).
	Type gputypes.DeviceType
	// Backend is the graphics API the adapter was enumerated from.
	Backend gputypes.Backend
	// Index is the adapter's position in enumeration order. Pass it to
	// WithAdapter to select this adapter in New.
	Index int
}

// String returns a human-readable description of the adapter.
func (info DeviceInfo) String() string {
	return fmt.Sprintf("%s (%v, %v)", info.Name, info.Type, info.Backend)
}

// Query enumerates the compute-capable adapters of the chosen backend
// (Vulkan unless overridden with WithBackend) without opening a device.
// An empty result means no adapters are present; that is not an error.
//
// Query exists to pick an adapter index for WithAdapter; nothing else in
// this package depends on it.
func Query(opts ...Option) ([]DeviceInfo, error) {
	o := defaultDeviceOptions()
	for _, opt := range opts {
		opt(&o)
	}

	backend, ok := hal.GetBackend(o.backend)
	if !ok {
		return nil, fmt.Errorf("%w: backend %v not registered", ErrNoGPU, o.backend)
	}
	instance, err := backend.CreateInstance(&hal.InstanceDescriptor{Flags: 0})
	if err != nil {
		return nil, fmt.Errorf("%w: create instance: %w", ErrNoGPU, err)
	}
	defer instance.Destroy()

	adapters := instance.EnumerateAdapters(nil)
	infos := make([]DeviceInfo, len(adapters))
	for i := range adapters {
		infos[i] = DeviceInfo{
			Name:    adapters[i].Info.Name,
			Type:    adapters[i].Info.DeviceType,
			Backend: o.backend,
			Index:   i,
		}
	}
	return infos, nil
}
