// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package compute

import (
	"fmt"
	"sort"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"
)

// Pipeline is the opaque result of Compile: a compute pipeline plus the
// per-set binding layout objects used to construct it, held in ascending
// set-id order.
//
// A Pipeline is immutable once built and can back any number of Dispatch
// calls. Release it once no dispatch references it anymore.
type Pipeline struct {
	pipeline    hal.ComputePipeline
	layout      hal.PipelineLayout
	bindLayouts []hal.BindGroupLayout // parallel to sets
	module      hal.ShaderModule
	sets        []*SetLayout // ascending set id
	entry       string
	released    bool
}

// Entry returns the shader entry point the pipeline was compiled for.
func (p *Pipeline) Entry() string { return p.entry }

// Sets returns the per-set layouts the pipeline was built from, in
// ascending set-id order.
func (p *Pipeline) Sets() []*SetLayout { return p.sets }

// Release destroys the pipeline's GPU objects in reverse creation order.
// The pipeline must not be referenced by an in-flight dispatch; observe
// completion via Readback or Device.WaitIdle first. Idempotent.
func (p *Pipeline) Release(d *Device) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed || p.released {
		p.released = true
		return
	}
	p.destroyLocked(d)
}

// destroyLocked releases whatever pipeline objects exist, tolerating a
// partially constructed state. The caller must hold d.mu.
func (p *Pipeline) destroyLocked(d *Device) {
	if p.pipeline != nil {
		d.device.DestroyComputePipeline(p.pipeline)
		p.pipeline = nil
	}
	if p.layout != nil {
		d.device.DestroyPipelineLayout(p.layout)
		p.layout = nil
	}
	for _, bl := range p.bindLayouts {
		if bl != nil {
			d.device.DestroyBindGroupLayout(bl)
		}
	}
	p.bindLayouts = nil
	if p.module != nil {
		d.device.DestroyShaderModule(p.module)
		p.module = nil
	}
	p.released = true
}

// Compile builds a compute pipeline for the given entry point from shader
// source or binary plus the per-set binding layouts.
//
// One native binding-layout object is created per set from its ordered
// descriptors; the pipeline layout is assembled over them in ascending
// set-id order, which fixes the shader-visible set numbering; the pipeline
// itself is then bound to the module's entry point.
//
// Every failure mode (shader rejected by the compiler, entry point
// absent, malformed binary, duplicate or non-dense set ids, pipeline
// rejected by the device) wraps ErrPipelineCompile, and no partially
// built Pipeline ever escapes: objects constructed before the failure are
// destroyed first.
//
// Compiling with zero layouts is valid and yields a pipeline that binds
// no resources.
func (d *Device) Compile(entry string, shader Shader, layouts ...*SetLayout) (*Pipeline, error) {
	// Resolve the instruction stream first; naga is pure Go and needs no
	// device access.
	var words []uint32
	switch {
	case shader.WGSL != "" && shader.SPIRV != nil:
		return nil, fmt.Errorf("%w: both WGSL source and SPIR-V binary set", ErrPipelineCompile)
	case shader.WGSL != "":
		w, err := compileWGSL(entry, shader.WGSL)
		if err != nil {
			return nil, err
		}
		words = w
	case shader.SPIRV != nil:
		if err := validateSPIRV(shader.SPIRV); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrPipelineCompile, err)
		}
		words = spirvWords(shader.SPIRV)
	default:
		return nil, fmt.Errorf("%w: empty shader", ErrPipelineCompile)
	}

	sets := make([]*SetLayout, len(layouts))
	copy(sets, layouts)
	for i, set := range sets {
		if set == nil {
			panic(fmt.Sprintf("compute: Compile layout %d is nil", i))
		}
	}
	sort.Slice(sets, func(i, j int) bool { return sets[i].set < sets[j].set })
	for i := 1; i < len(sets); i++ {
		if sets[i].set == sets[i-1].set {
			return nil, fmt.Errorf("%w: duplicate set id %d", ErrPipelineCompile, sets[i].set)
		}
	}
	// Position in the pipeline-layout array is the shader-visible set
	// number, so the ids must be exactly 0..N-1.
	for i, set := range sets {
		if set.set != uint32(i) {
			return nil, fmt.Errorf("%w: set ids must be dense from 0, missing set %d", ErrPipelineCompile, i)
		}
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return nil, ErrDeviceClosed
	}

	p := &Pipeline{sets: sets, entry: entry}

	module, err := d.device.CreateShaderModule(&hal.ShaderModuleDescriptor{
		Label:  "compute_shader",
		Source: hal.ShaderSource{SPIRV: words},
	})
	if err != nil {
		return nil, fmt.Errorf("%w: create shader module: %w", ErrPipelineCompile, err)
	}
	p.module = module

	p.bindLayouts = make([]hal.BindGroupLayout, 0, len(sets))
	for _, set := range sets {
		entries := make([]gputypes.BindGroupLayoutEntry, len(set.bindings))
		for i := range set.bindings {
			typ := gputypes.BufferBindingTypeStorage
			if set.bindings[i].Kind == BindingReadOnlyStorage {
				typ = gputypes.BufferBindingTypeReadOnlyStorage
			}
			entries[i] = gputypes.BindGroupLayoutEntry{
				Binding:    set.bindings[i].Index,
				Visibility: gputypes.ShaderStageCompute,
				Buffer:     &gputypes.BufferBindingLayout{Type: typ},
			}
		}
		bl, err := d.device.CreateBindGroupLayout(&hal.BindGroupLayoutDescriptor{
			Label:   fmt.Sprintf("compute_bind_layout_set%d", set.set),
			Entries: entries,
		})
		if err != nil {
			p.destroyLocked(d)
			return nil, fmt.Errorf("%w: create bind group layout (set %d): %w", ErrPipelineCompile, set.set, err)
		}
		p.bindLayouts = append(p.bindLayouts, bl)
	}

	layout, err := d.device.CreatePipelineLayout(&hal.PipelineLayoutDescriptor{
		Label:            "compute_pipe_layout",
		BindGroupLayouts: p.bindLayouts,
	})
	if err != nil {
		p.destroyLocked(d)
		return nil, fmt.Errorf("%w: create pipeline layout: %w", ErrPipelineCompile, err)
	}
	p.layout = layout

	pipeline, err := d.device.CreateComputePipeline(&hal.ComputePipelineDescriptor{
		Label:   "compute_pipeline",
		Layout:  p.layout,
		Compute: hal.ComputeState{Module: p.module, EntryPoint: entry},
	})
	if err != nil {
		p.destroyLocked(d)
		return nil, fmt.Errorf("%w: create compute pipeline: %w", ErrPipelineCompile, err)
	}
	p.pipeline = pipeline

	slogger().Debug("compute: pipeline compiled", "entry", entry, "sets", len(sets))
	return p, nil
}
