// Package volume defines the file-system collaborator used by fstool.
//
// A FileSystem is a service bound to a device that can open the root
// Directory of its volume. Files are always opened by flat name relative to
// that root. Backends live in the sub-packages (memory, fs, badger, s3) and
// all of them satisfy the contract exercised by volume/testing.
package volume

import (
	"context"
	"strings"
)

// ============================================================================
// FileSystem / Directory / File
// ============================================================================

// FileSystem is a file-system service exposed by a device.
//
// OpenVolume returns a handle to the root directory of the volume. The
// caller owns the returned Directory and must Close it exactly once.
type FileSystem interface {
	// Name identifies the backend type in logs (e.g. "memory", "s3").
	Name() string

	// OpenVolume opens the root directory of the volume.
	OpenVolume(ctx context.Context) (Directory, error)
}

// Directory is an open directory of a volume. fstool only ever holds the
// root directory.
type Directory interface {
	// Open opens the file called name relative to this directory.
	//
	// Supported modes are ModeRead, ModeRead|ModeWrite and
	// ModeRead|ModeWrite|ModeCreate. With ModeCreate a missing file is
	// created and an existing file is truncated to zero length. Without it
	// a missing file yields StatusNotFound.
	Open(ctx context.Context, name string, mode OpenMode) (File, error)

	// Close releases the directory handle.
	Close() error
}

// File is an open file handle.
//
// Reads and writes advance a shared position that starts at zero. Handles
// are not safe for concurrent use.
type File interface {
	// Read reads up to len(p) bytes. At end of file it returns 0 and a nil
	// error, never io.EOF.
	Read(ctx context.Context, p []byte) (int, error)

	// Write writes p at the current position. Like a block device it may
	// return a count shorter than len(p) with a nil error; callers must
	// check the count.
	Write(ctx context.Context, p []byte) (int, error)

	// Size returns the current file size in bytes.
	Size(ctx context.Context) (uint64, error)

	// Delete removes the file and closes the handle. The handle is
	// consumed even when the removal fails.
	Delete(ctx context.Context) error

	// Close releases the handle.
	Close() error
}

// ============================================================================
// Open modes
// ============================================================================

// OpenMode is a set of flags passed to Directory.Open.
type OpenMode uint8

const (
	ModeRead OpenMode = 1 << iota
	ModeWrite
	ModeCreate
)

// Writable reports whether the mode allows writes.
func (m OpenMode) Writable() bool {
	return m&ModeWrite != 0
}

// Creates reports whether the mode creates (and truncates) the file.
func (m OpenMode) Creates() bool {
	return m&ModeCreate != 0
}

func (m OpenMode) String() string {
	var parts []string
	if m&ModeRead != 0 {
		parts = append(parts, "read")
	}
	if m&ModeWrite != 0 {
		parts = append(parts, "write")
	}
	if m&ModeCreate != 0 {
		parts = append(parts, "create")
	}
	if len(parts) == 0 {
		return "none"
	}
	return strings.Join(parts, "|")
}

// ValidateMode checks that mode is one of the supported combinations.
func ValidateMode(mode OpenMode) error {
	switch mode {
	case ModeRead, ModeRead | ModeWrite, ModeRead | ModeWrite | ModeCreate:
		return nil
	default:
		return NewError(StatusInvalidParameter, "open", "", nil)
	}
}

// ValidateName checks that name is a flat file name: non-empty, no path
// separators, and not a dot entry.
func ValidateName(name string) error {
	if name == "" || name == "." || name == ".." || strings.ContainsAny(name, `/\`) || strings.ContainsRune(name, 0) {
		return NewError(StatusInvalidParameter, "open", name, nil)
	}
	return nil
}

// CheckOpen validates both name and mode, the common prologue of every
// Directory.Open implementation.
func CheckOpen(ctx context.Context, name string, mode OpenMode) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := ValidateName(name); err != nil {
		return err
	}
	return ValidateMode(mode)
}
