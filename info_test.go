// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package compute

import (
	"strings"
	"testing"

	"github.com/gogpu/gputypes"
)

// TestDeviceInfoString verifies the "name (type, backend)" rendering.
func TestDeviceInfoString(t *testing.T) {
	info := DeviceInfo{
		Name:    "Test Adapter",
		Type:    gputypes.DeviceTypeDiscreteGPU,
		Backend: gputypes.BackendVulkan,
		Index:   0,
	}

	got := info.String()
	if !strings.HasPrefix(got, "Test Adapter (") {
		t.Errorf("String() = %q, want prefix %q", got, "Test Adapter (")
	}
	if !strings.HasSuffix(got, ")") {
		t.Errorf("String() = %q, want suffix %q", got, ")")
	}
	if !strings.Contains(got, ",") {
		t.Errorf("String() = %q, want type and backend separated by a comma", got)
	}
}

// TestQueryAdapters enumerates real adapters where present.
func TestQueryAdapters(t *testing.T) {
	infos, err := Query()
	if err != nil {
		t.Skipf("GPU not available: %v", err)
	}
	if len(infos) == 0 {
		t.Skip("no adapters present")
	}

	for i, info := range infos {
		if info.Index != i {
			t.Errorf("infos[%d].Index = %d, want %d", i, info.Index, i)
		}
		if info.Name == "" {
			t.Errorf("infos[%d].Name is empty", i)
		}
		if info.Backend != gputypes.BackendVulkan {
			t.Errorf("infos[%d].Backend = %v, want Vulkan", i, info.Backend)
		}
	}
}
