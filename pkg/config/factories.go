package config

import (
	"context"
	"fmt"
	"io"

	"github.com/marmos91/fstool/internal/logger"
	"github.com/marmos91/fstool/pkg/device"
	"github.com/marmos91/fstool/pkg/volume"
	volBadger "github.com/marmos91/fstool/pkg/volume/badger"
	volFs "github.com/marmos91/fstool/pkg/volume/fs"
	volMemory "github.com/marmos91/fstool/pkg/volume/memory"
	volS3 "github.com/marmos91/fstool/pkg/volume/s3"
	"github.com/mitchellh/mapstructure"
)

// CreateFileSystem creates the volume backend for a device based on configuration.
//
// This factory function uses the Type field to determine which backend
// to create, then decodes the type-specific configuration from the corresponding
// map and passes it to the backend's constructor.
//
// Supported types:
//   - "memory": pkg/volume/memory (in-process, lost on exit)
//   - "filesystem": pkg/volume/fs (a host directory)
//   - "badger": pkg/volume/badger (embedded BadgerDB)
//   - "s3": pkg/volume/s3 (Amazon S3 or compatible storage)
//   - "none": no file-system service; returns a nil FileSystem
//
// Returns:
//   - volume.FileSystem: Initialized backend (nil for "none")
//   - error: Configuration or initialization error
func CreateFileSystem(ctx context.Context, cfg *DeviceConfig) (volume.FileSystem, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	switch cfg.Type {
	case "memory":
		return createMemoryFileSystem(cfg.Memory)
	case "filesystem":
		return createFsFileSystem(ctx, cfg.Filesystem)
	case "badger":
		return createBadgerFileSystem(ctx, cfg.Badger)
	case "s3":
		return createS3FileSystem(ctx, cfg.S3)
	case "none":
		return nil, nil
	default:
		return nil, fmt.Errorf("unknown device type: %q", cfg.Type)
	}
}

// decodeOptions decodes a type-specific options map into out. Unknown keys
// are rejected so that typos surface at startup.
func decodeOptions(options map[string]any, out any) error {
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           out,
		WeaklyTypedInput: true,
		ErrorUnused:      true,
	})
	if err != nil {
		return err
	}
	return decoder.Decode(options)
}

// createMemoryFileSystem creates an in-memory volume.
func createMemoryFileSystem(options map[string]any) (volume.FileSystem, error) {
	var fsCfg volMemory.Config
	if err := decodeOptions(options, &fsCfg); err != nil {
		return nil, fmt.Errorf("failed to decode memory volume config: %w", err)
	}

	return volMemory.New(fsCfg), nil
}

// createFsFileSystem creates a volume rooted at a host directory.
func createFsFileSystem(ctx context.Context, options map[string]any) (volume.FileSystem, error) {
	var fsCfg volFs.Config
	if err := decodeOptions(options, &fsCfg); err != nil {
		return nil, fmt.Errorf("failed to decode filesystem volume config: %w", err)
	}

	fsys, err := volFs.New(ctx, fsCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create filesystem volume: %w", err)
	}
	return fsys, nil
}

// createBadgerFileSystem creates a BadgerDB-backed volume.
func createBadgerFileSystem(ctx context.Context, options map[string]any) (volume.FileSystem, error) {
	var fsCfg volBadger.Config
	if err := decodeOptions(options, &fsCfg); err != nil {
		return nil, fmt.Errorf("failed to decode badger volume config: %w", err)
	}

	fsys, err := volBadger.New(ctx, fsCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create badger volume: %w", err)
	}
	return fsys, nil
}

// createS3FileSystem creates an S3-backed volume.
func createS3FileSystem(ctx context.Context, options map[string]any) (volume.FileSystem, error) {
	var fsCfg volS3.Config
	if err := decodeOptions(options, &fsCfg); err != nil {
		return nil, fmt.Errorf("failed to decode S3 volume config: %w", err)
	}

	if fsCfg.Bucket == "" {
		return nil, fmt.Errorf("S3 volume: bucket is required")
	}
	if fsCfg.Region == "" {
		return nil, fmt.Errorf("S3 volume: region is required")
	}

	client, err := volS3.NewClient(ctx, fsCfg)
	if err != nil {
		return nil, err
	}

	fsys, err := volS3.New(ctx, client, fsCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create S3 volume: %w", err)
	}

	logger.Info("S3 volume initialized: bucket=%s, region=%s, prefix=%s",
		fsCfg.Bucket, fsCfg.Region, fsCfg.KeyPrefix)
	return fsys, nil
}

// BuildRegistry creates every configured device and registers it, in
// configuration order. On failure, devices created so far are closed.
func BuildRegistry(ctx context.Context, cfg *Config) (*device.Registry, error) {
	reg := device.NewRegistry()

	for i := range cfg.Devices {
		devCfg := &cfg.Devices[i]

		fsys, err := CreateFileSystem(ctx, devCfg)
		if err != nil {
			_ = reg.Close()
			return nil, fmt.Errorf("device %q: %w", devCfg.Name, err)
		}

		if err := reg.Register(&device.Device{Name: devCfg.Name, FileSystem: fsys}); err != nil {
			if c, ok := fsys.(io.Closer); ok {
				_ = c.Close()
			}
			_ = reg.Close()
			return nil, err
		}

		logger.Debug("Registered device %s (type=%s)", devCfg.Name, devCfg.Type)
	}

	return reg, nil
}
