// Package device tracks the devices the tool can see and which of them
// expose a file-system service.
package device

import (
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/marmos91/fstool/pkg/volume"
)

// Device is a named device. FileSystem is nil for devices without a
// file-system service (for example the firmware image the tool was loaded
// from).
type Device struct {
	Name       string
	FileSystem volume.FileSystem
}

// HasFileSystem reports whether the device exposes a file-system service.
func (d *Device) HasFileSystem() bool {
	return d.FileSystem != nil
}

// Registry manages all named devices. Registration order is preserved and
// defines the fallback order used when resolving the root volume.
//
// Example usage:
//
//	reg := device.NewRegistry()
//	reg.Register(&device.Device{Name: "fw0"})
//	reg.Register(&device.Device{Name: "fs0", FileSystem: fsys})
//
//	dev, _ := reg.Lookup("fs0")
type Registry struct {
	mu      sync.RWMutex
	devices map[string]*Device
	order   []string
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{devices: make(map[string]*Device)}
}

// Register adds a device to the registry.
// Returns an error if the device is nil, unnamed, or already registered.
func (r *Registry) Register(dev *Device) error {
	if dev == nil {
		return fmt.Errorf("cannot register nil device")
	}
	if dev.Name == "" {
		return fmt.Errorf("cannot register device with empty name")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.devices[dev.Name]; exists {
		return fmt.Errorf("device %q already registered", dev.Name)
	}

	r.devices[dev.Name] = dev
	r.order = append(r.order, dev.Name)
	return nil
}

// Lookup returns the named device.
func (r *Registry) Lookup(name string) (*Device, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	dev, exists := r.devices[name]
	if !exists {
		return nil, volume.NewError(volume.StatusNotFound, "lookup device", name, nil)
	}
	return dev, nil
}

// FileSystems returns the devices exposing a file-system service, in
// registration order.
func (r *Registry) FileSystems() []*Device {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var result []*Device
	for _, name := range r.order {
		if dev := r.devices[name]; dev.HasFileSystem() {
			result = append(result, dev)
		}
	}
	return result
}

// Names returns all device names in registration order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]string(nil), r.order...)
}

// Count returns the number of registered devices.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.order)
}

// Close releases every file system that holds resources (for example an
// open database), in reverse registration order. All closers run; their
// errors are joined.
func (r *Registry) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	var errs []error
	for i := len(r.order) - 1; i >= 0; i-- {
		dev := r.devices[r.order[i]]
		closer, ok := dev.FileSystem.(io.Closer)
		if !ok {
			continue
		}
		if err := closer.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close device %q: %w", dev.Name, err))
		}
	}
	return errors.Join(errs...)
}
