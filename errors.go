// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package compute

import "errors"

// Package errors. Acquisition and compilation errors are fatal for the call
// that produced them; ErrReadbackUnavailable is a soft signal the caller may
// retry. Programmer errors (zero workgroup counts, mismatched dispatch
// arguments) panic instead of returning an error.
var (
	// ErrNoGPU is returned when no compatible GPU adapter can be acquired:
	// the HAL backend is not registered, instance creation failed, no
	// adapters were enumerated, the requested adapter index is out of
	// range, or the device/queue open was rejected.
	ErrNoGPU = errors.New("compute: no GPU available")

	// ErrPipelineCompile is returned when a pipeline cannot be built:
	// the shader compiler rejected the source, the requested entry point
	// does not exist, the pre-compiled binary is malformed, or the device
	// rejected the pipeline. No partially built Pipeline is ever returned.
	ErrPipelineCompile = errors.New("compute: pipeline compilation failed")

	// ErrInvalidSPIRV is returned when a pre-compiled shader binary does
	// not start with the SPIR-V magic number or is not a whole number of
	// 32-bit words.
	ErrInvalidSPIRV = errors.New("compute: invalid SPIR-V binary")

	// ErrReadbackUnavailable is returned when a readback could not observe
	// the buffer contents: the fence wait timed out or the staging read
	// was rejected. The data is unavailable, not corrupted; callers may
	// retry the readback.
	ErrReadbackUnavailable = errors.New("compute: readback unavailable")

	// ErrDeviceClosed is returned when an operation is attempted on a
	// Device after Close.
	ErrDeviceClosed = errors.New("compute: device closed")
)
