// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package compute

import (
	"fmt"
	"sync"
	"time"

	"github.com/gogpu/gpucontext"
	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"

	// Import Vulkan backend so it registers via init().
	_ "github.com/gogpu/wgpu/hal/vulkan"
)

// defaultReadbackTimeout bounds fence waits in readback and WaitIdle.
const defaultReadbackTimeout = 5 * time.Second

// Device owns (or borrows) a logical GPU device and its command queue and
// exposes buffer upload, pipeline compilation, dispatch and asynchronous
// readback.
//
// Upload, Dispatch and Compile return as soon as their commands are recorded
// and submitted; only Readback and WaitIdle block. The queue executes
// submissions in FIFO order, so a readback always observes the cumulative
// effect of everything submitted before it and nothing submitted after.
//
// A mutex serializes every submission path, so a Device may be shared
// between goroutines even though the design assumes a single orchestrating
// caller.
type Device struct {
	mu sync.Mutex

	instance hal.Instance
	device   hal.Device
	queue    hal.Queue

	info            DeviceInfo
	readbackTimeout time.Duration

	// retired holds bind groups whose submissions may still be in flight.
	// Drained after every successful fence wait, when completion of all
	// earlier work is known.
	retired []hal.BindGroup

	externalDevice bool // true when adopted from a provider (don't destroy on Close)
	closed         bool
}

// New acquires a GPU device and command queue from the registered HAL
// backend (Vulkan unless overridden with WithBackend).
//
// By default the first discrete or integrated GPU adapter is selected,
// falling back to adapter 0. Use WithAdapter with an index from Query to
// force a specific adapter.
//
// Every failure mode (backend missing, no adapters, index out of range,
// device open rejected) wraps ErrNoGPU; there is no recovery path besides
// choosing a different adapter.
func New(opts ...Option) (*Device, error) {
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

	adapters := instance.EnumerateAdapters(nil)
	if len(adapters) == 0 {
		instance.Destroy()
		return nil, fmt.Errorf("%w: no adapters found", ErrNoGPU)
	}

	index := o.adapterIndex
	var selected *hal.ExposedAdapter
	if index >= 0 {
		if index >= len(adapters) {
			instance.Destroy()
			return nil, fmt.Errorf("%w: adapter index %d out of range (%d adapters)",
				ErrNoGPU, index, len(adapters))
		}
		selected = &adapters[index]
	} else {
		for i := range adapters {
			if adapters[i].Info.DeviceType == gputypes.DeviceTypeDiscreteGPU ||
				adapters[i].Info.DeviceType == gputypes.DeviceTypeIntegratedGPU {
				selected = &adapters[i]
				index = i
				break
			}
		}
		if selected == nil {
			selected = &adapters[0]
			index = 0
		}
	}

	openDev, err := selected.Adapter.Open(gputypes.Features(0), gputypes.DefaultLimits())
	if err != nil {
		instance.Destroy()
		return nil, fmt.Errorf("%w: open device: %w", ErrNoGPU, err)
	}

	d := &Device{
		instance: instance,
		device:   openDev.Device,
		queue:    openDev.Queue,
		info: DeviceInfo{
			Name:    selected.Info.Name,
			Type:    selected.Info.DeviceType,
			Backend: o.backend,
			Index:   index,
		},
		readbackTimeout: o.readbackTimeout,
	}
	slogger().Info("compute: device acquired", "adapter", d.info.Name, "index", index)
	return d, nil
}

// DeviceHandle is the provider interface through which a host application
// (for example a gogpu window) shares its GPU device with this package.
type DeviceHandle = gpucontext.DeviceProvider

// NewFromProvider adopts the device and queue of an existing provider
// instead of creating a standalone device. The provider must expose its
// HAL handles via HalDevice() any and HalQueue() any returning hal.Device
// and hal.Queue.
//
// The returned Device does not own the underlying handles: Close releases
// only this package's resources and leaves the provider's device intact.
func NewFromProvider(provider DeviceHandle, opts ...Option) (*Device, error) {
	if provider == nil {
		return nil, fmt.Errorf("%w: nil provider", ErrNoGPU)
	}
	type halProvider interface {
		HalDevice() any
		HalQueue() any
	}
	hp, ok := provider.(halProvider)
	if !ok {
		return nil, fmt.Errorf("%w: provider does not expose HAL types", ErrNoGPU)
	}
	device, ok := hp.HalDevice().(hal.Device)
	if !ok || device == nil {
		return nil, fmt.Errorf("%w: provider HalDevice is not hal.Device", ErrNoGPU)
	}
	queue, ok := hp.HalQueue().(hal.Queue)
	if !ok || queue == nil {
		return nil, fmt.Errorf("%w: provider HalQueue is not hal.Queue", ErrNoGPU)
	}

	o := defaultDeviceOptions()
	for _, opt := range opts {
		opt(&o)
	}

	d := &Device{
		device: device,
		queue:  queue,
		info: DeviceInfo{
			Name:  "shared device",
			Index: -1,
		},
		readbackTimeout: o.readbackTimeout,
		externalDevice:  true,
	}
	slogger().Debug("compute: adopted shared GPU device")
	return d, nil
}

// Info returns metadata for the adapter backing this Device.
func (d *Device) Info() DeviceInfo { return d.info }

// WaitIdle blocks until all work submitted to the queue has completed.
// Upload and Dispatch are fire-and-forget; WaitIdle is the explicit way to
// observe their completion without reading data back.
func (d *Device) WaitIdle() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return ErrDeviceClosed
	}
	if err := d.waitIdleLocked(); err != nil {
		return err
	}
	d.drainRetired()
	return nil
}

// waitIdleLocked submits a fence-only signal and waits for it. Since the
// queue is FIFO, a signaled fence proves every earlier submission completed.
func (d *Device) waitIdleLocked() error {
	fence, err := d.device.CreateFence()
	if err != nil {
		return fmt.Errorf("compute: create fence: %w", err)
	}
	defer d.device.DestroyFence(fence)

	if err := d.queue.Submit(nil, fence, 1); err != nil {
		return fmt.Errorf("compute: submit fence: %w", err)
	}
	ok, err := d.device.Wait(fence, 1, d.readbackTimeout)
	if err != nil {
		return fmt.Errorf("compute: wait for fence: %w", err)
	}
	if !ok {
		return fmt.Errorf("compute: idle wait timed out after %v", d.readbackTimeout)
	}
	return nil
}

// Close waits for pending work and releases all GPU resources held by the
// Device, in reverse acquisition order. A Device adopted from a provider
// releases only this package's resources. Close is idempotent.
func (d *Device) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return nil
	}

	// Wait for in-flight submissions so retired resources can be
	// destroyed; on failure destroy anyway, the device is going down.
	waitErr := d.waitIdleLocked()
	if waitErr != nil {
		slogger().Warn("compute: close: wait for idle", "error", waitErr)
	}
	d.drainRetired()

	if !d.externalDevice {
		if d.device != nil {
			d.device.Destroy()
		}
		if d.instance != nil {
			d.instance.Destroy()
		}
	}
	d.device = nil
	d.instance = nil
	d.queue = nil
	d.closed = true

	slogger().Info("compute: device closed", "adapter", d.info.Name)
	return waitErr
}

// submitNoWait submits one command buffer fire-and-forget and frees it.
// The caller must hold d.mu.
func (d *Device) submitNoWait(cmdBuf hal.CommandBuffer) error {
	err := d.queue.Submit([]hal.CommandBuffer{cmdBuf}, nil, 0)
	d.device.FreeCommandBuffer(cmdBuf)
	if err != nil {
		return fmt.Errorf("compute: submit: %w", err)
	}
	return nil
}

// submitAndWait submits one command buffer with a fence and blocks until
// the device signals completion or the readback timeout elapses. After a
// successful wait all earlier submissions are complete too, so retired
// resources are drained here. The caller must hold d.mu.
func (d *Device) submitAndWait(cmdBuf hal.CommandBuffer) error {
	defer d.device.FreeCommandBuffer(cmdBuf)

	fence, err := d.device.CreateFence()
	if err != nil {
		return fmt.Errorf("create fence: %w", err)
	}
	defer d.device.DestroyFence(fence)

	if err := d.queue.Submit([]hal.CommandBuffer{cmdBuf}, fence, 1); err != nil {
		return fmt.Errorf("submit: %w", err)
	}
	ok, err := d.device.Wait(fence, 1, d.readbackTimeout)
	if err != nil {
		return fmt.Errorf("wait for fence: %w", err)
	}
	if !ok {
		return fmt.Errorf("timeout after %v", d.readbackTimeout)
	}
	d.drainRetired()
	return nil
}

// drainRetired destroys bind groups retired by earlier dispatches.
// Call only after a successful fence wait; holding d.mu.
func (d *Device) drainRetired() {
	for _, bg := range d.retired {
		d.device.DestroyBindGroup(bg)
	}
	d.retired = d.retired[:0]
}
