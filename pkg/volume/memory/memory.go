// Package memory implements an in-memory volume.
package memory

import (
	"context"
	"sync"

	"github.com/marmos91/fstool/pkg/volume"
)

// defaultPageSize is the allocation granularity of file content.
const defaultPageSize = 64 * 1024

// Config contains configuration for an in-memory volume.
type Config struct {
	// MaxSizeBytes caps the total bytes stored across all files.
	// 0 means unlimited.
	MaxSizeBytes uint64 `mapstructure:"max_size_bytes"`

	// PageSize is the allocation granularity (default: 64KB).
	PageSize int `mapstructure:"page_size"`
}

// FileSystem implements volume.FileSystem using page-based in-memory
// storage.
//
// Instead of copying an entire file on each write, content is divided into
// fixed-size pages and only the pages a write touches are allocated. Data
// lives as long as the FileSystem value, so reopening the volume sees the
// files written through an earlier root handle.
//
// Thread Safety:
// The file table is protected by mu and each file by its own mutex, so the
// volume is safe to share even though fstool never does.
type FileSystem struct {
	mu       sync.RWMutex
	files    map[string]*pagedFile
	pageSize int
	maxSize  uint64
	used     uint64
}

// pagedFile represents a file as an array of pages.
type pagedFile struct {
	mu    sync.RWMutex
	pages [][]byte // nil entries are unallocated
	size  uint64
}

var _ volume.FileSystem = (*FileSystem)(nil)

// New creates an empty in-memory volume.
func New(cfg Config) *FileSystem {
	pageSize := cfg.PageSize
	if pageSize <= 0 {
		pageSize = defaultPageSize
	}

	return &FileSystem{
		files:    make(map[string]*pagedFile),
		pageSize: pageSize,
		maxSize:  cfg.MaxSizeBytes,
	}
}

// Name implements volume.FileSystem.
func (s *FileSystem) Name() string { return "memory" }

// OpenVolume implements volume.FileSystem.
func (s *FileSystem) OpenVolume(ctx context.Context) (volume.Directory, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return &rootDir{fs: s}, nil
}

// UsedBytes returns the bytes currently stored across all files.
func (s *FileSystem) UsedBytes() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.used
}

// reserve accounts for growth of n bytes and returns how many bytes may
// actually be written under the quota.
func (s *FileSystem) reserve(n uint64) uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.maxSize > 0 && s.used+n > s.maxSize {
		n = s.maxSize - s.used
	}
	s.used += n
	return n
}

// release gives back n bytes of quota.
func (s *FileSystem) release(n uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if n > s.used {
		n = s.used
	}
	s.used -= n
}

// ============================================================================
// Directory
// ============================================================================

type rootDir struct {
	fs     *FileSystem
	closed bool
}

func (d *rootDir) Open(ctx context.Context, name string, mode volume.OpenMode) (volume.File, error) {
	if d.closed {
		return nil, volume.NewError(volume.StatusNotReady, "open", name, nil)
	}
	if err := volume.CheckOpen(ctx, name, mode); err != nil {
		return nil, err
	}

	d.fs.mu.Lock()
	pf, exists := d.fs.files[name]
	if !exists {
		if !mode.Creates() {
			d.fs.mu.Unlock()
			return nil, volume.NewError(volume.StatusNotFound, "open", name, nil)
		}
		pf = &pagedFile{}
		d.fs.files[name] = pf
	}
	d.fs.mu.Unlock()

	if exists && mode.Creates() {
		d.fs.release(pf.truncate())
	}

	return &file{
		Handle: volume.NewHandle(name, mode),
		fs:     d.fs,
		pf:     pf,
	}, nil
}

func (d *rootDir) Close() error {
	if d.closed {
		return volume.NewError(volume.StatusInvalidParameter, "close", "", nil)
	}
	d.closed = true
	return nil
}

// truncate drops all pages and returns the previous size.
func (pf *pagedFile) truncate() uint64 {
	pf.mu.Lock()
	defer pf.mu.Unlock()

	old := pf.size
	pf.pages = nil
	pf.size = 0
	return old
}
