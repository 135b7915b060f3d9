package badger

import (
	"context"
	"errors"

	badger "github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"
	"github.com/marmos91/fstool/pkg/volume"
)

// file is an open handle onto a stored file.
type file struct {
	volume.Handle
	fs *FileSystem
	id uuid.UUID
}

func (f *file) Read(ctx context.Context, p []byte) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	if err := f.CheckUsable("read"); err != nil {
		return 0, err
	}

	var n uint64
	err := f.fs.db.View(func(txn *badger.Txn) error {
		rec, err := getRecord(txn, f.id)
		if err != nil {
			return err
		}

		offset := f.Pos()
		if offset >= rec.Size {
			return nil
		}

		n = min(uint64(len(p)), rec.Size-offset)
		chunkSize := uint64(rec.ChunkSize)

		read := uint64(0)
		for read < n {
			pos := offset + read
			idx := uint32(pos / chunkSize)
			inChunk := pos % chunkSize
			span := min(chunkSize-inChunk, n-read)
			dst := p[read : read+span]

			item, err := txn.Get(keyChunk(f.id, idx))
			switch {
			case errors.Is(err, badger.ErrKeyNotFound):
				clear(dst)
			case err != nil:
				return err
			default:
				if err := item.Value(func(val []byte) error {
					copyChunk(dst, val, inChunk)
					return nil
				}); err != nil {
					return err
				}
			}
			read += span
		}
		return nil
	})
	if err != nil {
		return 0, mapError("read", f.FileName(), err)
	}

	f.Advance(int(n))
	return int(n), nil
}

// copyChunk fills dst from val starting at off, zero-filling past the end
// of a short chunk.
func copyChunk(dst, val []byte, off uint64) {
	copied := 0
	if off < uint64(len(val)) {
		copied = copy(dst, val[off:])
	}
	clear(dst[copied:])
}

// Write writes p at the current position, rewriting each touched chunk and
// the file record in a single transaction.
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

	err := f.fs.db.Update(func(txn *badger.Txn) error {
		rec, err := getRecord(txn, f.id)
		if err != nil {
			return err
		}

		offset := f.Pos()
		chunkSize := uint64(rec.ChunkSize)
		total := uint64(len(p))

		written := uint64(0)
		for written < total {
			pos := offset + written
			idx := uint32(pos / chunkSize)
			inChunk := pos % chunkSize
			span := min(chunkSize-inChunk, total-written)

			key := keyChunk(f.id, idx)
			var chunk []byte
			item, err := txn.Get(key)
			switch {
			case errors.Is(err, badger.ErrKeyNotFound):
			case err != nil:
				return err
			default:
				if chunk, err = item.ValueCopy(nil); err != nil {
					return err
				}
			}

			if need := int(inChunk + span); len(chunk) < need {
				grown := make([]byte, need)
				copy(grown, chunk)
				chunk = grown
			}
			copy(chunk[inChunk:], p[written:written+span])

			if err := txn.Set(key, chunk); err != nil {
				return err
			}
			written += span
		}

		if end := offset + total; end > rec.Size {
			rec.Size = end
		}
		return putRecord(txn, f.id, rec)
	})
	if err != nil {
		return 0, mapError("write", f.FileName(), err)
	}

	f.Advance(len(p))
	return len(p), nil
}

func (f *file) Size(ctx context.Context) (uint64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	if err := f.CheckUsable("size"); err != nil {
		return 0, err
	}

	var size uint64
	err := f.fs.db.View(func(txn *badger.Txn) error {
		rec, err := getRecord(txn, f.id)
		if err != nil {
			return err
		}
		size = rec.Size
		return nil
	})
	if err != nil {
		return 0, mapError("size", f.FileName(), err)
	}
	return size, nil
}

// Delete removes the name and record in one transaction, then drops the
// content chunks. The handle is consumed even when the delete is refused.
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

	err := f.fs.db.Update(func(txn *badger.Txn) error {
		item, err := txn.Get(keyName(f.FileName()))
		switch {
		case errors.Is(err, badger.ErrKeyNotFound):
			return nil
		case err != nil:
			return err
		}

		raw, err := item.ValueCopy(nil)
		if err != nil {
			return err
		}
		// Only unlink the name if it still points at this file.
		if current, err := uuid.FromBytes(raw); err == nil && current == f.id {
			if err := txn.Delete(keyName(f.FileName())); err != nil {
				return err
			}
		}
		return txn.Delete(keyFile(f.id))
	})
	if err != nil {
		return mapError("delete", f.FileName(), err)
	}

	if err := f.fs.dropChunks(f.id); err != nil {
		return mapError("delete", f.FileName(), err)
	}
	return nil
}

func (f *file) Close() error {
	if !f.Release() {
		return volume.NewError(volume.StatusInvalidParameter, "close", f.FileName(), nil)
	}
	return nil
}
