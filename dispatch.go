// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package compute

import (
	"fmt"
	"sort"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"
)

// maxDispatchDim is the WebGPU default limit on workgroup counts per
// dispatch dimension.
const maxDispatchDim = 65535

// Dispatch records one compute pass running the pipeline over the given
// workgroup counts and submits it without waiting. Completion is observed
// only through a later Readback or WaitIdle; submissions execute in queue
// order, so a readback enqueued after a dispatch sees its writes.
//
// args supplies the resources for the pipeline's descriptor sets, one
// DispatchArgs per set, matched by set id. Each entry binds at the same
// index as the layout slot it was built with, so a pipeline compiled from
// a builder's layout always receives its buffers at the intended bindings.
//
// Programmer errors panic rather than return: zero or out-of-range
// workgroup counts, args that do not cover exactly the pipeline's sets,
// slots left without a bound buffer, or a released pipeline.
func (d *Device) Dispatch(p *Pipeline, x, y, z uint32, args ...*DispatchArgs) error {
	if p == nil {
		panic("compute: Dispatch of nil pipeline")
	}
	if x == 0 || y == 0 || z == 0 || x > maxDispatchDim || y > maxDispatchDim || z > maxDispatchDim {
		panic(fmt.Sprintf("compute: workgroup counts must be in 1..%d, got (%d, %d, %d)", maxDispatchDim, x, y, z))
	}

	sorted := make([]*DispatchArgs, len(args))
	copy(sorted, args)
	for i, a := range sorted {
		if a == nil {
			panic(fmt.Sprintf("compute: Dispatch args %d is nil", i))
		}
	}
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].set < sorted[j].set })
	if len(sorted) != len(p.sets) {
		panic(fmt.Sprintf("compute: pipeline has %d sets, got %d argument sets", len(p.sets), len(sorted)))
	}
	for i, a := range sorted {
		set := p.sets[i]
		if a.set != set.set {
			panic(fmt.Sprintf("compute: no arguments for set %d", set.set))
		}
		if a.Len() != set.Len() {
			panic(fmt.Sprintf("compute: set %d has %d bindings, arguments carry %d", set.set, set.Len(), a.Len()))
		}
		for j := range a.entries {
			if a.entries[j].buffer == nil {
				panic(fmt.Sprintf("compute: binding %d in set %d has no bound buffer", set.bindings[j].Index, set.set))
			}
		}
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return ErrDeviceClosed
	}
	if p.released {
		panic("compute: Dispatch of released pipeline")
	}

	groups := make([]hal.BindGroup, 0, len(sorted))
	release := func() {
		for _, g := range groups {
			d.device.DestroyBindGroup(g)
		}
	}
	for i, a := range sorted {
		entries := make([]gputypes.BindGroupEntry, len(a.entries))
		for j, e := range a.entries {
			entries[j] = gputypes.BindGroupEntry{
				Binding: p.sets[i].bindings[j].Index,
				Resource: gputypes.BufferBinding{
					Buffer: e.buffer.NativeHandle(),
					Offset: 0,
					Size:   e.size,
				},
			}
		}
		bg, err := d.device.CreateBindGroup(&hal.BindGroupDescriptor{
			Label:   fmt.Sprintf("compute_bind_set%d", a.set),
			Layout:  p.bindLayouts[i],
			Entries: entries,
		})
		if err != nil {
			release()
			return fmt.Errorf("compute: create bind group (set %d): %w", a.set, err)
		}
		groups = append(groups, bg)
	}

	encoder, err := d.device.CreateCommandEncoder(&hal.CommandEncoderDescriptor{Label: "compute_dispatch"})
	if err != nil {
		release()
		return fmt.Errorf("compute: create command encoder: %w", err)
	}
	if err := encoder.BeginEncoding("compute_dispatch"); err != nil {
		release()
		return fmt.Errorf("compute: begin encoding: %w", err)
	}

	pass := encoder.BeginComputePass(&hal.ComputePassDescriptor{Label: "compute_pass"})
	pass.SetPipeline(p.pipeline)
	for i, g := range groups {
		pass.SetBindGroup(sorted[i].set, g, nil)
	}
	pass.Dispatch(x, y, z)
	pass.End()

	cmdBuf, err := encoder.EndEncoding()
	if err != nil {
		release()
		return fmt.Errorf("compute: end encoding: %w", err)
	}
	if err := d.submitNoWait(cmdBuf); err != nil {
		release()
		return err
	}

	// The submission may still be executing; destroy the bind groups only
	// once a later fence wait proves completion.
	d.retired = append(d.retired, groups...)

	slogger().Debug("compute: dispatched", "entry", p.entry, "x", x, "y", y, "z", z, "sets", len(groups))
	return nil
}

// Readback copies a buffer's device-local contents back to the host and
// reinterprets the bytes as []T. This is the package's single blocking
// point: it submits the copy with a fence and waits up to the device's
// readback timeout (WithReadbackTimeout).
//
// The result reflects every submission enqueued before this call and none
// after. A timeout or a rejected wait reports ErrReadbackUnavailable; the
// data is unavailable now, the device stays usable and the call may be
// retried.
//
// buf must have been produced by Upload on the same Device. A zero-length
// buffer reads back as an empty slice without touching the device.
func Readback[T any](d *Device, buf *Buffer[T]) ([]T, error) {
	if buf == nil {
		panic("compute: Readback of nil buffer")
	}
	if buf.size == 0 {
		return []T{}, nil
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return nil, ErrDeviceClosed
	}

	encoder, err := d.device.CreateCommandEncoder(&hal.CommandEncoderDescriptor{Label: "compute_readback"})
	if err != nil {
		return nil, fmt.Errorf("%w: create command encoder: %w", ErrReadbackUnavailable, err)
	}
	if err := encoder.BeginEncoding("compute_readback"); err != nil {
		return nil, fmt.Errorf("%w: begin encoding: %w", ErrReadbackUnavailable, err)
	}
	encoder.CopyBufferToBuffer(buf.storage, buf.staging, []hal.BufferCopy{
		{SrcOffset: 0, DstOffset: 0, Size: buf.size},
	})
	cmdBuf, err := encoder.EndEncoding()
	if err != nil {
		return nil, fmt.Errorf("%w: end encoding: %w", ErrReadbackUnavailable, err)
	}

	if err := d.submitAndWait(cmdBuf); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrReadbackUnavailable, err)
	}

	raw := make([]byte, buf.size)
	if err := d.queue.ReadBuffer(buf.staging, 0, raw); err != nil {
		return nil, fmt.Errorf("%w: read staging buffer: %w", ErrReadbackUnavailable, err)
	}

	slogger().Debug("compute: readback complete", "bytes", buf.size, "elements", buf.count)
	return bytesToSlice[T](raw), nil
}
