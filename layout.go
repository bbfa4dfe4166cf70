// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package compute

import (
	"fmt"
	"reflect"

	"github.com/gogpu/wgpu/hal"
)

// BindingKind identifies how a compute shader accesses a bound buffer.
type BindingKind int

const (
	// BindingStorage is a read-write storage buffer.
	BindingStorage BindingKind = iota
	// BindingReadOnlyStorage is a storage buffer the shader only reads.
	BindingReadOnlyStorage
)

// String returns the binding kind name.
func (k BindingKind) String() string {
	switch k {
	case BindingStorage:
		return "Storage"
	case BindingReadOnlyStorage:
		return "ReadOnlyStorage"
	default:
		return fmt.Sprintf("Unknown(%d)", int(k))
	}
}

// Binding describes one slot of a set layout.
//
// TypeTag records the element type supplied at build time for diagnostics
// only; nothing validates it against the shader's declared buffer layout.
type Binding struct {
	// Index is the binding index within the set, assigned sequentially
	// from 0 in Param call order, never reused or reordered.
	Index uint32
	// Kind is the buffer access mode declared to the pipeline.
	Kind BindingKind
	// TypeTag is the bound element type name (diagnostic only).
	TypeTag string

	// resource is the storage region to bind; nil for layout-only slots.
	resource hal.Buffer
	// resourceSize is the whole-buffer byte range to bind.
	resourceSize uint64
}

// Bound reports whether a concrete buffer was recorded for this slot.
func (b Binding) Bound() bool { return b.resource != nil }

// SetLayout is the ordered binding description of one descriptor set,
// finalized under an explicit set id. Slice order is binding-index order:
// pipeline layouts and bind groups are both constructed by walking it,
// which guarantees the Nth layout entry and the Nth bind-group entry
// always describe the same logical binding.
type SetLayout struct {
	set      uint32
	bindings []Binding
}

// Set returns the descriptor set id the layout was built for.
func (l *SetLayout) Set() uint32 { return l.set }

// Len returns the number of bindings in the set.
func (l *SetLayout) Len() int { return len(l.bindings) }

// Bindings returns the binding descriptors in index order.
func (l *SetLayout) Bindings() []Binding { return l.bindings }

// DispatchArgs is the per-set resource list aligned index-for-index with
// the SetLayout it was built with. Build produces it; slots that were
// layout-only can be filled in later with Bind.
type DispatchArgs struct {
	set     uint32
	entries []argEntry
}

type argEntry struct {
	buffer hal.Buffer
	size   uint64
}

// Set returns the descriptor set id the arguments target.
func (a *DispatchArgs) Set() uint32 { return a.set }

// Len returns the number of binding slots.
func (a *DispatchArgs) Len() int { return len(a.entries) }

// Bound reports whether the slot at index holds a resource.
func (a *DispatchArgs) Bound(index uint32) bool {
	return int(index) < len(a.entries) && a.entries[index].buffer != nil
}

// Bind fills the slot at index with a concrete buffer, so a pipeline
// compiled from a layout-only builder can be dispatched once its data
// exists. Panics if index is out of range for the originating layout or
// if buf carries no storage to bind.
func Bind[T any](a *DispatchArgs, index uint32, buf *Buffer[T]) {
	if int(index) >= len(a.entries) {
		panic(fmt.Sprintf("compute: Bind index %d out of range (%d slots)", index, len(a.entries)))
	}
	if buf == nil || buf.storage == nil {
		panic(fmt.Sprintf("compute: Bind index %d with nil or zero-size buffer", index))
	}
	a.entries[index] = argEntry{buffer: buf.storage, size: buf.size}
}

// LayoutBuilder accumulates an ordered list of binding descriptors for one
// descriptor set. Each Param call takes the next sequential binding index;
// Build wraps the accumulated state under an explicit set id.
type LayoutBuilder struct {
	bindings []Binding
}

// NewLayoutBuilder returns an empty layout builder.
func NewLayoutBuilder() *LayoutBuilder {
	return &LayoutBuilder{}
}

// Len returns the number of bindings accumulated so far.
func (b *LayoutBuilder) Len() int { return len(b.bindings) }

// Param appends a read-write storage binding at the next sequential index
// and returns b for chaining. A non-nil buf records the buffer's storage
// region (whole-buffer range) as the slot's resource; nil (or a zero-size
// buffer) leaves the slot layout-only so a pipeline can be compiled before
// its data exists. The element type name is recorded as a diagnostic tag.
func Param[T any](b *LayoutBuilder, buf *Buffer[T]) *LayoutBuilder {
	return addParam(b, buf, BindingStorage)
}

// ParamReadOnly appends a read-only storage binding at the next sequential
// index. Otherwise identical to Param.
func ParamReadOnly[T any](b *LayoutBuilder, buf *Buffer[T]) *LayoutBuilder {
	return addParam(b, buf, BindingReadOnlyStorage)
}

func addParam[T any](b *LayoutBuilder, buf *Buffer[T], kind BindingKind) *LayoutBuilder {
	bind := Binding{
		Index:   uint32(len(b.bindings)),
		Kind:    kind,
		TypeTag: reflect.TypeFor[T]().String(),
	}
	if buf != nil && buf.storage != nil {
		bind.resource = buf.storage
		bind.resourceSize = buf.size
	}
	b.bindings = append(b.bindings, bind)
	return b
}

// Build finalizes the accumulated descriptors under the given descriptor
// set id and returns them alongside the aligned dispatch arguments. Set 0
// is the conventional choice for single-set pipelines; the id is an
// explicit parameter, never an implicit default.
//
// Build snapshots the builder: an empty builder yields a valid empty
// layout, and the builder itself can keep accumulating afterwards without
// affecting layouts already built.
func (b *LayoutBuilder) Build(set uint32) (*SetLayout, *DispatchArgs) {
	bindings := make([]Binding, len(b.bindings))
	copy(bindings, b.bindings)

	entries := make([]argEntry, len(bindings))
	for i := range bindings {
		if bindings[i].resource != nil {
			entries[i] = argEntry{buffer: bindings[i].resource, size: bindings[i].resourceSize}
		}
	}
	return &SetLayout{set: set, bindings: bindings}, &DispatchArgs{set: set, entries: entries}
}
