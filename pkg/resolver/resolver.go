// Package resolver locates the volume the tool operates on and opens its
// root directory.
package resolver

import (
	"context"
	"errors"
	"fmt"

	"github.com/marmos91/fstool/internal/logger"
	"github.com/marmos91/fstool/pkg/device"
	"github.com/marmos91/fstool/pkg/volume"
)

// ErrNoVolume is returned when no registered device exposes a file-system
// service.
var ErrNoVolume = fmt.Errorf("no file system volume available: %w", volume.StatusNotFound)

// BootContext describes how the tool was started.
type BootContext struct {
	// ImageDevice names the device the tool was loaded from. It may be
	// empty or name a device without a file system.
	ImageDevice string
}

// ResolveRoot opens the root directory of the volume the tool should work
// on. The returned directory is owned by the caller and must be closed
// exactly once at shutdown.
//
// Resolution order:
//  1. The device the tool was loaded from, if it exposes a file system.
//  2. Otherwise the first registered device that exposes one. A failure
//     opening that volume is returned; no further candidates are tried.
//
// Returns ErrNoVolume when no device exposes a file system.
func ResolveRoot(ctx context.Context, devices *device.Registry, boot BootContext) (volume.Directory, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if devices == nil {
		return nil, volume.NewError(volume.StatusInvalidParameter, "resolve root", "", nil)
	}

	// ========================================================================
	// Step 1: Primary - the boot device
	// ========================================================================

	root, err := openBootVolume(ctx, devices, boot)
	if err == nil {
		return root, nil
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return nil, err
	}
	logger.Warn("Boot device volume unavailable, falling back to first file system: %v", err)

	// ========================================================================
	// Step 2: Fallback - first device with a file system
	// ========================================================================

	candidates := devices.FileSystems()
	if len(candidates) == 0 {
		return nil, ErrNoVolume
	}

	dev := candidates[0]
	root, err = dev.FileSystem.OpenVolume(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to open volume on device %q: %w", dev.Name, err)
	}

	logger.Info("Opened %s volume on device %s (fallback)", dev.FileSystem.Name(), dev.Name)
	return root, nil
}

func openBootVolume(ctx context.Context, devices *device.Registry, boot BootContext) (volume.Directory, error) {
	if boot.ImageDevice == "" {
		return nil, volume.NewError(volume.StatusNotFound, "resolve boot device", "", nil)
	}

	dev, err := devices.Lookup(boot.ImageDevice)
	if err != nil {
		return nil, err
	}
	if !dev.HasFileSystem() {
		return nil, volume.NewError(volume.StatusUnsupported, "resolve boot device", dev.Name, nil)
	}

	root, err := dev.FileSystem.OpenVolume(ctx)
	if err != nil {
		return nil, err
	}

	logger.Info("Opened %s volume on boot device %s", dev.FileSystem.Name(), dev.Name)
	return root, nil
}
