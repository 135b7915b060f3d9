// Package fs implements a volume backed by a directory of the host file
// system.
package fs

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"syscall"

	"github.com/marmos91/fstool/internal/logger"
	"github.com/marmos91/fstool/pkg/volume"
)

// Config contains configuration for a host-directory volume.
type Config struct {
	// Path is the host directory that acts as the volume root.
	Path string `mapstructure:"path"`

	// CreateIfMissing creates Path (mode 0755) when it does not exist.
	CreateIfMissing bool `mapstructure:"create_if_missing"`
}

// FileSystem implements volume.FileSystem on top of a host directory.
//
// Every file of the volume is a regular file directly inside Path. The
// volume never descends into subdirectories.
//
// Opening with ModeCreate truncates, so it is refused while another handle
// has the same host file open. The check uses os.SameFile rather than the
// name: on a case-insensitive host "a.txt" and "A.TXT" are one file, and so
// are two hard links.
type FileSystem struct {
	basePath string

	mu   sync.Mutex
	open map[*file]os.FileInfo
}

var _ volume.FileSystem = (*FileSystem)(nil)

// New creates a host-directory volume.
//
// Context Cancellation:
// This operation checks the context before touching the file system.
func New(ctx context.Context, cfg Config) (*FileSystem, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if cfg.Path == "" {
		return nil, fmt.Errorf("filesystem volume: path is required")
	}

	if cfg.CreateIfMissing {
		if err := os.MkdirAll(cfg.Path, 0755); err != nil {
			return nil, fmt.Errorf("failed to create volume directory: %w", err)
		}
	}

	return &FileSystem{basePath: cfg.Path, open: make(map[*file]os.FileInfo)}, nil
}

// Name implements volume.FileSystem.
func (s *FileSystem) Name() string { return "filesystem" }

// Path returns the host directory backing the volume.
func (s *FileSystem) Path() string { return s.basePath }

// OpenVolume implements volume.FileSystem. It fails with StatusNotFound when
// the host directory is missing.
func (s *FileSystem) OpenVolume(ctx context.Context) (volume.Directory, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	info, err := os.Stat(s.basePath)
	if err != nil {
		return nil, mapError("open volume", s.basePath, err)
	}
	if !info.IsDir() {
		return nil, volume.NewError(volume.StatusNotFound, "open volume", s.basePath, nil)
	}

	logger.Debug("filesystem volume opened at %s", s.basePath)
	return &rootDir{fsys: s, basePath: s.basePath}, nil
}

// inUse reports whether an open handle refers to the same host file as info.
// The caller holds s.mu.
func (s *FileSystem) inUse(info os.FileInfo) bool {
	for _, other := range s.open {
		if os.SameFile(info, other) {
			return true
		}
	}
	return false
}

func (s *FileSystem) forget(f *file) {
	s.mu.Lock()
	delete(s.open, f)
	s.mu.Unlock()
}

// ============================================================================
// Directory
// ============================================================================

type rootDir struct {
	fsys     *FileSystem
	basePath string
	closed   bool
}

func (d *rootDir) Open(ctx context.Context, name string, mode volume.OpenMode) (volume.File, error) {
	if d.closed {
		return nil, volume.NewError(volume.StatusNotReady, "open", name, nil)
	}
	if err := volume.CheckOpen(ctx, name, mode); err != nil {
		return nil, err
	}

	flags := os.O_RDONLY
	if mode.Writable() {
		flags = os.O_RDWR
	}
	if mode.Creates() {
		flags |= os.O_CREATE | os.O_TRUNC
	}

	path := filepath.Join(d.basePath, name)

	d.fsys.mu.Lock()
	defer d.fsys.mu.Unlock()

	if mode.Creates() {
		if existing, err := os.Stat(path); err == nil && d.fsys.inUse(existing) {
			return nil, volume.NewError(volume.StatusAccessDenied, "open", name, errFileInUse)
		}
	}

	osFile, err := os.OpenFile(path, flags, 0644)
	if err != nil {
		return nil, mapError("open", name, err)
	}

	info, err := osFile.Stat()
	if err != nil {
		_ = osFile.Close()
		return nil, mapError("open", name, err)
	}
	if info.IsDir() {
		_ = osFile.Close()
		return nil, volume.NewError(volume.StatusAccessDenied, "open", name, nil)
	}

	f := &file{
		Handle: volume.NewHandle(name, mode),
		owner:  d.fsys,
		path:   path,
		f:      osFile,
	}
	d.fsys.open[f] = info
	return f, nil
}

func (d *rootDir) Close() error {
	if d.closed {
		return volume.NewError(volume.StatusInvalidParameter, "close", "", nil)
	}
	d.closed = true
	return nil
}

var errFileInUse = errors.New("file is open through another handle")

// mapError translates host file-system errors into volume statuses.
func mapError(op, name string, err error) error {
	switch {
	case errors.Is(err, fs.ErrNotExist):
		return volume.NewError(volume.StatusNotFound, op, name, err)
	case errors.Is(err, fs.ErrPermission):
		return volume.NewError(volume.StatusAccessDenied, op, name, err)
	case errors.Is(err, syscall.ENOSPC), errors.Is(err, syscall.EDQUOT):
		return volume.NewError(volume.StatusVolumeFull, op, name, err)
	case errors.Is(err, syscall.EISDIR):
		return volume.NewError(volume.StatusAccessDenied, op, name, err)
	default:
		return volume.NewError(volume.StatusDeviceError, op, name, err)
	}
}
