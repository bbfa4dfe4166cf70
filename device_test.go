// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package compute

import (
	"errors"
	"testing"

	"github.com/gogpu/gpucontext"
	"github.com/gogpu/gputypes"
)

// nullProvider implements gpucontext.DeviceProvider without exposing HAL
// handles, like a CPU-only host application.
type nullProvider struct{}

func (nullProvider) Device() gpucontext.Device   { return nil }
func (nullProvider) Queue() gpucontext.Queue     { return nil }
func (nullProvider) Adapter() gpucontext.Adapter { return nil }
func (nullProvider) SurfaceFormat() gputypes.TextureFormat {
	return gputypes.TextureFormatUndefined
}

// halNilProvider exposes the HAL accessor methods but returns no handles.
type halNilProvider struct{ nullProvider }

func (halNilProvider) HalDevice() any { return nil }
func (halNilProvider) HalQueue() any  { return nil }

func TestNewFromProviderNil(t *testing.T) {
	_, err := NewFromProvider(nil)
	if !errors.Is(err, ErrNoGPU) {
		t.Errorf("NewFromProvider(nil) = %v, want ErrNoGPU", err)
	}
}

// TestNewFromProviderNoHALAccess verifies providers that cannot hand over
// hal.Device/hal.Queue are rejected instead of half-adopted.
func TestNewFromProviderNoHALAccess(t *testing.T) {
	_, err := NewFromProvider(nullProvider{})
	if !errors.Is(err, ErrNoGPU) {
		t.Errorf("NewFromProvider(nullProvider) = %v, want ErrNoGPU", err)
	}
}

func TestNewFromProviderNilHandles(t *testing.T) {
	_, err := NewFromProvider(halNilProvider{})
	if !errors.Is(err, ErrNoGPU) {
		t.Errorf("NewFromProvider(halNilProvider) = %v, want ErrNoGPU", err)
	}
}

// TestNewAndClose exercises the full acquisition lifecycle against real
// hardware. Skipped where no GPU is available (CI).
func TestNewAndClose(t *testing.T) {
	d, err := New()
	if err != nil {
		t.Skipf("GPU not available: %v", err)
	}

	info := d.Info()
	if info.Name == "" {
		t.Error("Info().Name is empty")
	}
	if info.Index < 0 {
		t.Errorf("Info().Index = %d, want >= 0", info.Index)
	}

	if err := d.WaitIdle(); err != nil {
		t.Errorf("WaitIdle() on fresh device = %v", err)
	}
	if err := d.Close(); err != nil {
		t.Errorf("Close() = %v", err)
	}
	if err := d.Close(); err != nil {
		t.Errorf("second Close() = %v, want nil", err)
	}
}

// TestNewAdapterOutOfRange verifies an impossible adapter index reports
// acquisition failure. Runs with or without a GPU: both the missing-GPU
// and the out-of-range path wrap the same sentinel.
func TestNewAdapterOutOfRange(t *testing.T) {
	d, err := New(WithAdapter(1 << 20))
	if err == nil {
		d.Close()
		t.Fatal("New() with absurd adapter index succeeded")
	}
	if !errors.Is(err, ErrNoGPU) {
		t.Errorf("error = %v, want ErrNoGPU", err)
	}
}
