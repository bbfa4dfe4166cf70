// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package compute

import (
	"fmt"
	"unsafe"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"
)

// Buffer is a typed handle pair for one logical array of T resident on the
// device: a host-mappable staging region used for upload and readback, and
// a device-local storage region bound to compute pipelines. Both regions
// always have the same byte length, and after any completed upload or
// readback round-trip they hold the same logical content.
//
// T must be a fixed-layout plain-data type: an integer or float scalar, an
// array of those, or a struct composed of them (respecting the shader's
// alignment rules). The element type is never validated against the shader;
// layouts record it as a diagnostic tag only.
//
// A Buffer has exactly one owner. Layout building, dispatch and readback
// borrow it; Release destroys both regions.
type Buffer[T any] struct {
	staging hal.Buffer
	storage hal.Buffer
	size    uint64 // byte length of each region
	count   int    // element count
}

// ByteSize returns the byte length of each region (len * sizeof(T)).
func (b *Buffer[T]) ByteSize() uint64 { return b.size }

// Len returns the number of elements the buffer holds.
func (b *Buffer[T]) Len() int { return b.count }

// Release destroys the staging and storage regions. The buffer must not be
// referenced by an in-flight dispatch; observe completion via Readback or
// Device.WaitIdle first. Safe on a zero-size buffer and after Close.
func (b *Buffer[T]) Release(d *Device) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return
	}
	if b.staging != nil {
		d.device.DestroyBuffer(b.staging)
		b.staging = nil
	}
	if b.storage != nil {
		d.device.DestroyBuffer(b.storage)
		b.storage = nil
	}
	b.size = 0
	b.count = 0
}

// Upload serializes data to raw bytes, creates the staging and storage
// regions, fills staging through the queue and schedules one
// staging-to-storage copy. It returns as soon as the copy is submitted;
// no wait is performed. A readback that follows with no dispatch in
// between observes exactly data, because the queue executes submissions
// in FIFO order.
//
// A zero-length slice is a valid degenerate case: the returned Buffer has
// byte size 0, holds no device regions, and nothing is submitted.
func Upload[T any](d *Device, data []T) (*Buffer[T], error) {
	var zero T
	elem := uint64(unsafe.Sizeof(zero))
	if elem == 0 {
		panic("compute: Upload element type has zero size")
	}
	if len(data) == 0 {
		return &Buffer[T]{}, nil
	}
	size := elem * uint64(len(data))
	raw := unsafe.Slice((*byte)(unsafe.Pointer(&data[0])), int(size)) //nolint:gosec // plain-data serialization

	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return nil, ErrDeviceClosed
	}

	staging, err := d.device.CreateBuffer(&hal.BufferDescriptor{
		Label: "compute_staging",
		Size:  size,
		Usage: gputypes.BufferUsageMapRead | gputypes.BufferUsageCopyDst | gputypes.BufferUsageCopySrc,
	})
	if err != nil {
		return nil, fmt.Errorf("compute: create staging buffer: %w", err)
	}
	storage, err := d.device.CreateBuffer(&hal.BufferDescriptor{
		Label: "compute_storage",
		Size:  size,
		Usage: gputypes.BufferUsageStorage | gputypes.BufferUsageCopyDst | gputypes.BufferUsageCopySrc,
	})
	if err != nil {
		d.device.DestroyBuffer(staging)
		return nil, fmt.Errorf("compute: create storage buffer: %w", err)
	}

	release := func() {
		d.device.DestroyBuffer(storage)
		d.device.DestroyBuffer(staging)
	}

	// Host-visible fill, then a device-side copy into storage. On targets
	// where host memory cannot alias device memory the queue write is a
	// second upload; the observable storage content is identical either way.
	d.queue.WriteBuffer(staging, 0, raw)

	encoder, err := d.device.CreateCommandEncoder(&hal.CommandEncoderDescriptor{Label: "compute_upload"})
	if err != nil {
		release()
		return nil, fmt.Errorf("compute: create command encoder: %w", err)
	}
	if err := encoder.BeginEncoding("compute_upload"); err != nil {
		release()
		return nil, fmt.Errorf("compute: begin encoding: %w", err)
	}
	encoder.CopyBufferToBuffer(staging, storage, []hal.BufferCopy{
		{SrcOffset: 0, DstOffset: 0, Size: size},
	})
	cmdBuf, err := encoder.EndEncoding()
	if err != nil {
		release()
		return nil, fmt.Errorf("compute: end encoding: %w", err)
	}
	if err := d.submitNoWait(cmdBuf); err != nil {
		release()
		return nil, err
	}

	slogger().Debug("compute: buffer uploaded", "elements", len(data), "bytes", size)
	return &Buffer[T]{staging: staging, storage: storage, size: size, count: len(data)}, nil
}

// bytesToSlice copies raw bytes into a freshly allocated []T, chunk by
// chunk in order. The byte length must be an exact multiple of sizeof(T);
// anything else is a corruption from upload time, not a runtime condition.
func bytesToSlice[T any](raw []byte) []T {
	var zero T
	elem := int(unsafe.Sizeof(zero))
	if len(raw) == 0 {
		return []T{}
	}
	if len(raw)%elem != 0 {
		panic(fmt.Sprintf("compute: byte length %d is not a multiple of element size %d", len(raw), elem))
	}
	out := make([]T, len(raw)/elem)
	copy(unsafe.Slice((*byte)(unsafe.Pointer(&out[0])), len(raw)), raw) //nolint:gosec // plain-data deserialization
	return out
}
