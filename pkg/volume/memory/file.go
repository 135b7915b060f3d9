package memory

import (
	"context"

	"github.com/marmos91/fstool/pkg/volume"
)

// file is an open handle onto a pagedFile.
type file struct {
	volume.Handle
	fs *FileSystem
	pf *pagedFile
}

func (f *file) Read(ctx context.Context, p []byte) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	if err := f.CheckUsable("read"); err != nil {
		return 0, err
	}

	f.pf.mu.RLock()
	defer f.pf.mu.RUnlock()

	offset := f.Pos()
	if offset >= f.pf.size {
		return 0, nil
	}

	n := uint64(len(p))
	if remaining := f.pf.size - offset; n > remaining {
		n = remaining
	}

	pageSize := uint64(f.fs.pageSize)
	read := uint64(0)
	for read < n {
		pos := offset + read
		pageIdx := pos / pageSize
		inPage := pos % pageSize
		chunk := min(pageSize-inPage, n-read)

		dst := p[read : read+chunk]
		if pageIdx < uint64(len(f.pf.pages)) && f.pf.pages[pageIdx] != nil {
			copy(dst, f.pf.pages[pageIdx][inPage:inPage+chunk])
		} else {
			clear(dst)
		}
		read += chunk
	}

	f.Advance(int(n))
	return int(n), nil
}

// Write writes p at the current position. When the volume quota is
// reached the write is truncated and StatusVolumeFull is returned with the
// count of bytes that fit.
func (f *file) Write(ctx context.Context, p []byte) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	if err := f.CheckWritable("write"); err != nil {
		return 0, err
	}
	if len(p) == 0 {
		return 0, nil
	}

	f.pf.mu.Lock()
	defer f.pf.mu.Unlock()

	offset := f.Pos()
	end := offset + uint64(len(p))

	var growth uint64
	if end > f.pf.size {
		growth = end - f.pf.size
	}
	allowed := f.fs.reserve(growth)

	data := p
	if allowed < growth {
		data = p[:uint64(len(p))-(growth-allowed)]
	}

	f.writePages(offset, data)

	f.Advance(len(data))
	if len(data) < len(p) {
		return len(data), volume.NewError(volume.StatusVolumeFull, "write", f.FileName(), nil)
	}
	return len(data), nil
}

// writePages copies data into the pages starting at offset, allocating
// only the pages touched. Caller holds pf.mu.
func (f *file) writePages(offset uint64, data []byte) {
	if len(data) == 0 {
		return
	}

	pageSize := uint64(f.fs.pageSize)
	end := offset + uint64(len(data))
	if end > f.pf.size {
		f.pf.size = end
	}

	required := int((end-1)/pageSize) + 1
	if len(f.pf.pages) < required {
		pages := make([][]byte, required)
		copy(pages, f.pf.pages)
		f.pf.pages = pages
	}

	written := uint64(0)
	for written < uint64(len(data)) {
		pos := offset + written
		pageIdx := pos / pageSize
		inPage := pos % pageSize
		chunk := min(pageSize-inPage, uint64(len(data))-written)

		if f.pf.pages[pageIdx] == nil {
			f.pf.pages[pageIdx] = make([]byte, pageSize)
		}
		copy(f.pf.pages[pageIdx][inPage:inPage+chunk], data[written:written+chunk])
		written += chunk
	}
}

func (f *file) Size(ctx context.Context) (uint64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	if err := f.CheckUsable("size"); err != nil {
		return 0, err
	}

	f.pf.mu.RLock()
	defer f.pf.mu.RUnlock()
	return f.pf.size, nil
}

// Delete removes the file from the volume. The handle is released first,
// so it is consumed even when the delete is refused.
func (f *file) Delete(ctx context.Context) error {
	if err := f.CheckUsable("delete"); err != nil {
		return err
	}
	f.Release()

	if err := ctx.Err(); err != nil {
		return err
	}
	if !f.Mode().Writable() {
		return volume.NewError(volume.StatusAccessDenied, "delete", f.FileName(), nil)
	}

	f.fs.mu.Lock()
	if current, ok := f.fs.files[f.FileName()]; ok && current == f.pf {
		delete(f.fs.files, f.FileName())
	}
	f.fs.mu.Unlock()

	f.fs.release(f.pf.truncate())
	return nil
}

func (f *file) Close() error {
	if !f.Release() {
		return volume.NewError(volume.StatusInvalidParameter, "close", f.FileName(), nil)
	}
	return nil
}
