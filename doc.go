// Package compute provides host-side GPU compute orchestration for Go.
//
// # Overview
//
// compute is a thin layer over the GoGPU hardware abstraction layer for
// running compute shaders. It manages paired staging/storage device
// buffers for plain-data element types, builds binding layouts across
// descriptor sets, compiles WGSL or SPIR-V into reusable pipelines, and
// dispatches workgroups with deferred result readback.
//
// # Quick Start
//
//	import "github.com/gogpu/compute"
//
//	dev, err := compute.New()
//	if err != nil {
//		// no usable GPU
//	}
//	defer dev.Close()
//
//	buf, _ := compute.Upload(dev, []uint32{1, 2, 3, 4})
//	layout, args := compute.Param(compute.NewLayoutBuilder(), buf).Build(0)
//
//	pipe, _ := dev.Compile("main", compute.Shader{WGSL: src}, layout)
//	dev.Dispatch(pipe, 4, 1, 1, args)
//
//	out, _ := compute.Readback(dev, buf) // [2 4 6 8] for a doubling kernel
//
// # Execution Model
//
// Upload and Dispatch submit to the device queue and return without
// waiting. The queue executes submissions in order, and Readback is the
// single blocking point: it waits on a fence before reading, so its
// result reflects everything submitted before it and nothing after.
//
// # Shaders
//
// WGSL sources compile through the pure-Go naga front end, so shader
// errors surface on the host before any device call. Precompiled SPIR-V
// binaries load directly via LoadSPIRVFile. Entry points must belong to
// the compute stage.
//
// # Concurrency
//
// A Device serializes all submission paths with an internal mutex, so one
// Device with its buffers and pipelines may be shared across goroutines.
// A compiled Pipeline is immutable and backs any number of dispatches.
package compute

// Version information
const (
	// Version is the current version of the library
	Version = "0.1.0"

	// VersionMajor is the major version
	VersionMajor = 0

	// VersionMinor is the minor version
	VersionMinor = 1

	// VersionPatch is the patch version
	VersionPatch = 0
)
