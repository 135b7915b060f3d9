package fs

import (
	"context"
	"errors"
	"io"
	"os"

	"github.com/marmos91/fstool/pkg/volume"
)

// file is an open handle onto a host file.
type file struct {
	volume.Handle
	owner *FileSystem
	path  string
	f     *os.File
}

func (f *file) Read(ctx context.Context, p []byte) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	if err := f.CheckUsable("read"); err != nil {
		return 0, err
	}

	// A single read may return fewer bytes than asked even before EOF;
	// keep reading so that only end of file yields a short count.
	total := 0
	for total < len(p) {
		n, err := f.f.Read(p[total:])
		total += n
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			f.Advance(total)
			return total, mapError("read", f.FileName(), err)
		}
		if n == 0 {
			break
		}
	}

	f.Advance(total)
	return total, nil
}

func (f *file) Write(ctx context.Context, p []byte) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	if err := f.CheckWritable("write"); err != nil {
		return 0, err
	}

	n, err := f.f.Write(p)
	f.Advance(n)
	if err != nil {
		return n, mapError("write", f.FileName(), err)
	}
	return n, nil
}

func (f *file) Size(ctx context.Context) (uint64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	if err := f.CheckUsable("size"); err != nil {
		return 0, err
	}

	info, err := f.f.Stat()
	if err != nil {
		return 0, mapError("size", f.FileName(), err)
	}
	return uint64(info.Size()), nil
}

// Delete closes the host file and removes it. The handle is consumed
// even when the removal is refused.
func (f *file) Delete(ctx context.Context) error {
	if err := f.CheckUsable("delete"); err != nil {
		return err
	}
	f.Release()
	f.owner.forget(f)
	closeErr := f.f.Close()

	if err := ctx.Err(); err != nil {
		return err
	}
	if !f.Mode().Writable() {
		return volume.NewError(volume.StatusAccessDenied, "delete", f.FileName(), nil)
	}
	if closeErr != nil {
		return mapError("delete", f.FileName(), closeErr)
	}

	if err := os.Remove(f.path); err != nil {
		return mapError("delete", f.FileName(), err)
	}
	return nil
}

func (f *file) Close() error {
	if !f.Release() {
		return volume.NewError(volume.StatusInvalidParameter, "close", f.FileName(), nil)
	}
	f.owner.forget(f)
	if err := f.f.Close(); err != nil {
		return mapError("close", f.FileName(), err)
	}
	return nil
}
