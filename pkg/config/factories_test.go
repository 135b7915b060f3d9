package config

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/marmos91/fstool/pkg/volume"
)

func TestCreateFileSystem_Filesystem(t *testing.T) {
	ctx := context.Background()
	cfg := &DeviceConfig{
		Name: "fs0",
		Type: "filesystem",
		Filesystem: map[string]any{
			"path": t.TempDir(),
		},
	}

	fsys, err := CreateFileSystem(ctx, cfg)
	if err != nil {
		t.Fatalf("Failed to create filesystem volume: %v", err)
	}

	if fsys == nil {
		t.Fatal("Expected non-nil file system")
	}
	if fsys.Name() != "filesystem" {
		t.Errorf("Expected backend 'filesystem', got %q", fsys.Name())
	}
}

func TestCreateFileSystem_FilesystemMissingPath(t *testing.T) {
	ctx := context.Background()
	cfg := &DeviceConfig{
		Type:       "filesystem",
		Filesystem: map[string]any{},
	}

	_, err := CreateFileSystem(ctx, cfg)
	if err == nil {
		t.Fatal("Expected error for missing path")
	}
	if !strings.Contains(err.Error(), "path is required") {
		t.Errorf("Expected 'path is required' error, got: %v", err)
	}
}

func TestCreateFileSystem_Memory(t *testing.T) {
	ctx := context.Background()
	cfg := &DeviceConfig{
		Type: "memory",
		Memory: map[string]any{
			// Weakly typed input: strings from env or TOML decode into numbers
			"max_size_bytes": "1048576",
		},
	}

	fsys, err := CreateFileSystem(ctx, cfg)
	if err != nil {
		t.Fatalf("Failed to create memory volume: %v", err)
	}
	if fsys.Name() != "memory" {
		t.Errorf("Expected backend 'memory', got %q", fsys.Name())
	}
}

func TestCreateFileSystem_Badger(t *testing.T) {
	ctx := context.Background()
	cfg := &DeviceConfig{
		Type: "badger",
		Badger: map[string]any{
			"in_memory": true,
		},
	}

	fsys, err := CreateFileSystem(ctx, cfg)
	if err != nil {
		t.Fatalf("Failed to create badger volume: %v", err)
	}
	defer func() { _ = fsys.(io.Closer).Close() }()

	if fsys.Name() != "badger" {
		t.Errorf("Expected backend 'badger', got %q", fsys.Name())
	}
}

func TestCreateFileSystem_UnknownOption(t *testing.T) {
	ctx := context.Background()
	cfg := &DeviceConfig{
		Type: "memory",
		Memory: map[string]any{
			"max_size": 10,
		},
	}

	_, err := CreateFileSystem(ctx, cfg)
	if err == nil {
		t.Fatal("Expected error for unknown option")
	}
	if !strings.Contains(err.Error(), "failed to decode memory volume config") {
		t.Errorf("Expected decode error, got: %v", err)
	}
}

func TestCreateFileSystem_S3MissingBucket(t *testing.T) {
	ctx := context.Background()
	cfg := &DeviceConfig{
		Type: "s3",
		S3: map[string]any{
			"region": "us-east-1",
		},
	}

	_, err := CreateFileSystem(ctx, cfg)
	if err == nil {
		t.Fatal("Expected error for missing bucket")
	}
	if !strings.Contains(err.Error(), "bucket is required") {
		t.Errorf("Expected 'bucket is required' error, got: %v", err)
	}
}

func TestCreateFileSystem_S3MissingRegion(t *testing.T) {
	ctx := context.Background()
	cfg := &DeviceConfig{
		Type: "s3",
		S3: map[string]any{
			"bucket": "volumes",
		},
	}

	_, err := CreateFileSystem(ctx, cfg)
	if err == nil {
		t.Fatal("Expected error for missing region")
	}
	if !strings.Contains(err.Error(), "region is required") {
		t.Errorf("Expected 'region is required' error, got: %v", err)
	}
}

func TestCreateFileSystem_None(t *testing.T) {
	fsys, err := CreateFileSystem(context.Background(), &DeviceConfig{Type: "none"})
	if err != nil {
		t.Fatalf("Expected no error for device without file system, got: %v", err)
	}
	if fsys != nil {
		t.Errorf("Expected nil file system, got %v", fsys)
	}
}

func TestCreateFileSystem_UnknownType(t *testing.T) {
	ctx := context.Background()
	cfg := &DeviceConfig{
		Type: "nvme",
	}

	_, err := CreateFileSystem(ctx, cfg)
	if err == nil {
		t.Fatal("Expected error for unknown device type")
	}
	if !strings.Contains(err.Error(), "unknown device type") {
		t.Errorf("Expected 'unknown device type' error, got: %v", err)
	}
}

func TestCreateFileSystem_ContextCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel() // Cancel immediately

	cfg := &DeviceConfig{
		Type:   "memory",
		Memory: map[string]any{},
	}

	_, err := CreateFileSystem(ctx, cfg)
	if err == nil {
		t.Fatal("Expected error for canceled context")
	}
	if err != context.Canceled {
		t.Errorf("Expected context.Canceled error, got: %v", err)
	}
}

func TestBuildRegistry(t *testing.T) {
	ctx := context.Background()
	cfg := &Config{
		Devices: []DeviceConfig{
			{Name: "pxe0", Type: "none"},
			{Name: "ram0", Type: "memory", Memory: map[string]any{}},
			{Name: "kv0", Type: "badger", Badger: map[string]any{"in_memory": true}},
		},
	}

	reg, err := BuildRegistry(ctx, cfg)
	if err != nil {
		t.Fatalf("Failed to build registry: %v", err)
	}
	defer func() { _ = reg.Close() }()

	if reg.Count() != 3 {
		t.Errorf("Expected 3 devices, got %d", reg.Count())
	}

	fileSystems := reg.FileSystems()
	if len(fileSystems) != 2 {
		t.Fatalf("Expected 2 devices with a file system, got %d", len(fileSystems))
	}
	if fileSystems[0].Name != "ram0" || fileSystems[1].Name != "kv0" {
		t.Errorf("Expected configuration order [ram0 kv0], got [%s %s]",
			fileSystems[0].Name, fileSystems[1].Name)
	}

	dev, err := reg.Lookup("pxe0")
	if err != nil {
		t.Fatalf("Failed to look up pxe0: %v", err)
	}
	if dev.HasFileSystem() {
		t.Error("Expected pxe0 to have no file system")
	}
}

func TestBuildRegistry_DeviceError(t *testing.T) {
	ctx := context.Background()
	cfg := &Config{
		Devices: []DeviceConfig{
			{Name: "ram0", Type: "memory", Memory: map[string]any{}},
			{Name: "fs0", Type: "filesystem", Filesystem: map[string]any{}},
		},
	}

	_, err := BuildRegistry(ctx, cfg)
	if err == nil {
		t.Fatal("Expected error for misconfigured device")
	}
	if !strings.Contains(err.Error(), `device "fs0"`) {
		t.Errorf("Expected error to name the device, got: %v", err)
	}
}

func TestBuildRegistry_DuplicateName(t *testing.T) {
	ctx := context.Background()
	cfg := &Config{
		Devices: []DeviceConfig{
			{Name: "ram0", Type: "memory", Memory: map[string]any{}},
			{Name: "ram0", Type: "memory", Memory: map[string]any{}},
		},
	}

	_, err := BuildRegistry(ctx, cfg)
	if err == nil {
		t.Fatal("Expected error for duplicate device name")
	}
}

func TestBuildRegistry_VolumeUsable(t *testing.T) {
	ctx := context.Background()
	cfg := &Config{
		Devices: []DeviceConfig{
			{Name: "ram0", Type: "memory", Memory: map[string]any{}},
		},
	}

	reg, err := BuildRegistry(ctx, cfg)
	if err != nil {
		t.Fatalf("Failed to build registry: %v", err)
	}

	dev, err := reg.Lookup("ram0")
	if err != nil {
		t.Fatalf("Failed to look up ram0: %v", err)
	}

	root, err := dev.FileSystem.OpenVolume(ctx)
	if err != nil {
		t.Fatalf("Failed to open volume: %v", err)
	}
	defer func() { _ = root.Close() }()

	_, err = root.Open(ctx, "missing.txt", volume.ModeRead)
	if !errors.Is(err, volume.StatusNotFound) {
		t.Errorf("Expected Not Found opening a missing file, got: %v", err)
	}
}
