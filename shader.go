// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package compute

import (
	"fmt"
	"os"

	"github.com/gogpu/naga"
	"github.com/gogpu/naga/ir"
	"github.com/gogpu/naga/spirv"
)

// Shader carries the compute shader for Compile: either WGSL source text,
// compiled through naga, or a pre-compiled SPIR-V binary used as-is.
// Exactly one field must be set.
type Shader struct {
	// WGSL is shader source text.
	WGSL string
	// SPIRV is a pre-compiled binary instruction stream: little-endian
	// 32-bit words starting with the SPIR-V magic number.
	SPIRV []byte
}

// LoadSPIRVFile reads a pre-compiled SPIR-V binary from path, validating
// the magic-number header and word alignment before treating the contents
// as an instruction stream. Validation failures wrap ErrInvalidSPIRV.
func LoadSPIRVFile(path string) (Shader, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return Shader{}, fmt.Errorf("compute: read shader binary: %w", err)
	}
	if err := validateSPIRV(raw); err != nil {
		return Shader{}, fmt.Errorf("compute: %s: %w", path, err)
	}
	return Shader{SPIRV: raw}, nil
}

// validateSPIRV checks the magic-number header and 32-bit word alignment.
func validateSPIRV(raw []byte) error {
	if len(raw) < 4 || len(raw)%4 != 0 {
		return fmt.Errorf("%w: %d bytes is not a whole number of words", ErrInvalidSPIRV, len(raw))
	}
	magic := uint32(raw[0]) | uint32(raw[1])<<8 | uint32(raw[2])<<16 | uint32(raw[3])<<24
	if magic != spirv.MagicNumber {
		return fmt.Errorf("%w: magic 0x%08X, want 0x%08X", ErrInvalidSPIRV, magic, uint32(spirv.MagicNumber))
	}
	return nil
}

// compileWGSL compiles WGSL source to SPIR-V words after verifying that
// entry names a compute entry point in the module. Every failure wraps
// ErrPipelineCompile.
func compileWGSL(entry, source string) ([]uint32, error) {
	ast, err := naga.Parse(source)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrPipelineCompile, err)
	}
	module, err := naga.LowerWithSource(ast, source)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrPipelineCompile, err)
	}
	if !hasComputeEntry(module.EntryPoints, entry) {
		return nil, fmt.Errorf("%w: no compute entry point %q", ErrPipelineCompile, entry)
	}

	spirvBytes, err := naga.Compile(source)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrPipelineCompile, err)
	}
	return spirvWords(spirvBytes), nil
}

func hasComputeEntry(entries []ir.EntryPoint, name string) bool {
	for i := range entries {
		if entries[i].Name == name && entries[i].Stage == ir.StageCompute {
			return true
		}
	}
	return false
}

// spirvWords converts SPIR-V bytes to the uint32 words the HAL consumes.
// SPIR-V is little-endian 32-bit words.
func spirvWords(raw []byte) []uint32 {
	words := make([]uint32, len(raw)/4)
	for i := range words {
		words[i] = uint32(raw[i*4]) |
			uint32(raw[i*4+1])<<8 |
			uint32(raw[i*4+2])<<16 |
			uint32(raw[i*4+3])<<24
	}
	return words
}
