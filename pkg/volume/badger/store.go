// Package badger implements a volume whose files live in an embedded
// BadgerDB key-value store.
package badger

import (
	"context"
	"errors"
	"fmt"

	badger "github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"
	"github.com/marmos91/fstool/internal/logger"
	"github.com/marmos91/fstool/pkg/volume"
)

// defaultChunkSize is the size of each stored content chunk.
const defaultChunkSize = 64 * 1024

// Config contains configuration for a BadgerDB volume.
type Config struct {
	// DBPath is the directory where BadgerDB stores its files.
	// Ignored when InMemory is set.
	DBPath string `mapstructure:"db_path"`

	// InMemory keeps the whole database in memory (tests, scratch volumes).
	InMemory bool `mapstructure:"in_memory"`

	// ChunkSize is the size of each content chunk (default: 64KB).
	ChunkSize int `mapstructure:"chunk_size"`
}

// FileSystem implements volume.FileSystem using BadgerDB.
//
// Storage Model: see keys.go. Every mutating file operation runs in its own
// transaction, so a crash leaves each file either before or after a given
// write, never torn inside one chunk update.
type FileSystem struct {
	db        *badger.DB
	chunkSize int
}

var _ volume.FileSystem = (*FileSystem)(nil)

// New opens (or creates) the BadgerDB database backing the volume.
func New(ctx context.Context, cfg Config) (*FileSystem, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var opts badger.Options
	if cfg.InMemory {
		opts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		if cfg.DBPath == "" {
			return nil, fmt.Errorf("badger volume: db_path is required")
		}
		opts = badger.DefaultOptions(cfg.DBPath)
	}
	opts = opts.WithLoggingLevel(badger.WARNING)

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open BadgerDB at %s: %w", cfg.DBPath, err)
	}

	chunkSize := cfg.ChunkSize
	if chunkSize <= 0 {
		chunkSize = defaultChunkSize
	}

	return &FileSystem{db: db, chunkSize: chunkSize}, nil
}

// Name implements volume.FileSystem.
func (s *FileSystem) Name() string { return "badger" }

// OpenVolume implements volume.FileSystem.
func (s *FileSystem) OpenVolume(ctx context.Context) (volume.Directory, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s.db.IsClosed() {
		return nil, volume.NewError(volume.StatusNotReady, "open volume", "", nil)
	}
	return &rootDir{fs: s}, nil
}

// Close closes the database. Root handles must not be used afterwards.
func (s *FileSystem) Close() error {
	if err := s.db.Close(); err != nil {
		return fmt.Errorf("failed to close BadgerDB: %w", err)
	}
	return nil
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

	var (
		id      uuid.UUID
		created bool
		stale   uuid.UUID
	)

	err := d.fs.db.Update(func(txn *badger.Txn) error {
		item, err := txn.Get(keyName(name))
		switch {
		case errors.Is(err, badger.ErrKeyNotFound):
			if !mode.Creates() {
				return volume.NewError(volume.StatusNotFound, "open", name, nil)
			}
			id = uuid.New()
			created = true
			if err := txn.Set(keyName(name), id[:]); err != nil {
				return err
			}
			return putRecord(txn, id, &fileRecord{Name: name, ChunkSize: uint32(d.fs.chunkSize)})

		case err != nil:
			return err
		}

		raw, err := item.ValueCopy(nil)
		if err != nil {
			return err
		}
		if id, err = uuid.FromBytes(raw); err != nil {
			return err
		}

		if mode.Creates() {
			// Truncate by moving the name to a fresh id; the old chunks
			// are dropped after the transaction commits.
			stale = id
			id = uuid.New()
			if err := txn.Set(keyName(name), id[:]); err != nil {
				return err
			}
			if err := txn.Delete(keyFile(stale)); err != nil {
				return err
			}
			return putRecord(txn, id, &fileRecord{Name: name, ChunkSize: uint32(d.fs.chunkSize)})
		}
		return nil
	})
	if err != nil {
		return nil, mapError("open", name, err)
	}

	if stale != uuid.Nil {
		if err := d.fs.dropChunks(stale); err != nil {
			logger.Warn("badger volume: failed to drop chunks of truncated %s: %v", name, err)
		}
	}
	if created {
		logger.Debug("badger volume: created %s as %s", name, id)
	}

	return &file{
		Handle: volume.NewHandle(name, mode),
		fs:     d.fs,
		id:     id,
	}, nil
}

func (d *rootDir) Close() error {
	if d.closed {
		return volume.NewError(volume.StatusInvalidParameter, "close", "", nil)
	}
	d.closed = true
	return nil
}

// ============================================================================
// Helpers
// ============================================================================

func putRecord(txn *badger.Txn, id uuid.UUID, rec *fileRecord) error {
	data, err := encodeFileRecord(rec)
	if err != nil {
		return err
	}
	return txn.Set(keyFile(id), data)
}

func getRecord(txn *badger.Txn, id uuid.UUID) (*fileRecord, error) {
	item, err := txn.Get(keyFile(id))
	if err != nil {
		return nil, err
	}
	data, err := item.ValueCopy(nil)
	if err != nil {
		return nil, err
	}
	return decodeFileRecord(data)
}

// dropChunks deletes every chunk of id. Chunks are collected in a read
// transaction and removed through a WriteBatch so large files never exceed
// the transaction size limit.
func (s *FileSystem) dropChunks(id uuid.UUID) error {
	prefix := keyChunkPrefix(id)

	var keys [][]byte
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		opts.Prefix = prefix

		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			keys = append(keys, it.Item().KeyCopy(nil))
		}
		return nil
	})
	if err != nil {
		return err
	}

	if len(keys) == 0 {
		return nil
	}

	wb := s.db.NewWriteBatch()
	defer wb.Cancel()

	for _, key := range keys {
		if err := wb.Delete(key); err != nil {
			return err
		}
	}
	return wb.Flush()
}

// mapError translates BadgerDB errors into volume statuses, keeping
// errors that already carry one.
func mapError(op, name string, err error) error {
	var se *volume.StatusError
	switch {
	case errors.As(err, &se):
		return err
	case errors.Is(err, badger.ErrKeyNotFound):
		return volume.NewError(volume.StatusNotFound, op, name, err)
	case errors.Is(err, badger.ErrDBClosed):
		return volume.NewError(volume.StatusNotReady, op, name, err)
	case errors.Is(err, badger.ErrTxnTooBig):
		return volume.NewError(volume.StatusOutOfResources, op, name, err)
	default:
		return volume.NewError(volume.StatusDeviceError, op, name, err)
	}
}
