package compute

import (
	"time"

	"github.com/gogpu/gputypes"
)

// Option configures a Device during creation.
// Use functional options to customize acquisition behavior.
//
// Example:
//
//	// Default: best available adapter on the Vulkan backend
//	dev, err := compute.New()
//
//	// Force a specific adapter picked from compute.Query()
//	dev, err := compute.New(compute.WithAdapter(1))
type Option func(*deviceOptions)

// deviceOptions holds optional configuration for Device creation.
type deviceOptions struct {
	backend         gputypes.Backend
	adapterIndex    int
	readbackTimeout time.Duration
}

// defaultDeviceOptions returns the default device options.
func defaultDeviceOptions() deviceOptions {
	return deviceOptions{
		backend:         gputypes.BackendVulkan,
		adapterIndex:    -1, // Auto-select: first discrete or integrated GPU
		readbackTimeout: defaultReadbackTimeout,
	}
}

// WithAdapter selects the adapter at the given enumeration index instead of
// the automatic discrete-then-integrated preference. Indices correspond to
// the order reported by [Query]. An out-of-range index makes [New] fail
// with [ErrNoGPU].
//
// Example:
//
//	infos, _ := compute.Query()
//	for _, info := range infos {
//	    fmt.Println(info)
//	}
//	dev, err := compute.New(compute.WithAdapter(infos[1].Index))
func WithAdapter(index int) Option {
	return func(o *deviceOptions) {
		o.adapterIndex = index
	}
}

// WithBackend selects the HAL backend to acquire the device from.
// The default is Vulkan, which this package registers by importing
// gogpu/wgpu's Vulkan HAL. Any other backend must be registered by the
// caller with a corresponding blank import before New is called.
func WithBackend(b gputypes.Backend) Option {
	return func(o *deviceOptions) {
		o.backend = b
	}
}

// WithReadbackTimeout sets how long a readback waits for the device before
// reporting [ErrReadbackUnavailable]. The default is 5 seconds.
func WithReadbackTimeout(d time.Duration) Option {
	return func(o *deviceOptions) {
		if d > 0 {
			o.readbackTimeout = d
		}
	}
}
