package badger

import (
	"context"
	"testing"

	badger "github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"
	"github.com/marmos91/fstool/pkg/volume"
	voltesting "github.com/marmos91/fstool/pkg/volume/testing"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const rwc = volume.ModeRead | volume.ModeWrite | volume.ModeCreate

func newTestFileSystem(t *testing.T, cfg Config) *FileSystem {
	t.Helper()

	fsys, err := New(context.Background(), cfg)
	require.NoError(t, err)
	t.Cleanup(func() { _ = fsys.Close() })
	return fsys
}

// TestBadgerVolume runs the complete volume test suite against an
// in-memory BadgerDB. The odd chunk size exercises chunk boundaries.
func TestBadgerVolume(t *testing.T) {
	suite := &voltesting.VolumeTestSuite{
		NewFileSystem: func(t *testing.T) volume.FileSystem {
			return newTestFileSystem(t, Config{InMemory: true, ChunkSize: 1000})
		},
	}

	suite.Run(t)
}

func TestNew_RequiresPath(t *testing.T) {
	_, err := New(context.Background(), Config{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "db_path")
}

func TestBadgerVolume_PersistsAcrossReopen(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	fsys, err := New(ctx, Config{DBPath: dir})
	require.NoError(t, err)

	root, err := fsys.OpenVolume(ctx)
	require.NoError(t, err)
	f, err := root.Open(ctx, "kept.txt", rwc)
	require.NoError(t, err)
	_, err = f.Write(ctx, []byte("survives restart"))
	require.NoError(t, err)
	require.NoError(t, f.Close())
	require.NoError(t, fsys.Close())

	fsys = newTestFileSystem(t, Config{DBPath: dir})
	root, err = fsys.OpenVolume(ctx)
	require.NoError(t, err)

	f, err = root.Open(ctx, "kept.txt", volume.ModeRead)
	require.NoError(t, err)
	defer f.Close()

	buf := make([]byte, 64)
	n, err := f.Read(ctx, buf)
	require.NoError(t, err)
	assert.Equal(t, "survives restart", string(buf[:n]))
}

func TestBadgerVolume_CreateDropsOldChunks(t *testing.T) {
	ctx := context.Background()
	fsys := newTestFileSystem(t, Config{InMemory: true, ChunkSize: 16})

	root, err := fsys.OpenVolume(ctx)
	require.NoError(t, err)

	f, err := root.Open(ctx, "big.bin", rwc)
	require.NoError(t, err)
	_, err = f.Write(ctx, make([]byte, 100))
	require.NoError(t, err)
	old := f.(*file).id
	require.NoError(t, f.Close())
	assert.Equal(t, 7, countChunks(t, fsys, old))

	f, err = root.Open(ctx, "big.bin", rwc)
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, 0, countChunks(t, fsys, old))
	size, err := f.Size(ctx)
	require.NoError(t, err)
	assert.Equal(t, uint64(0), size)
}

func TestBadgerVolume_DeleteDropsChunks(t *testing.T) {
	ctx := context.Background()
	fsys := newTestFileSystem(t, Config{InMemory: true, ChunkSize: 8})

	root, err := fsys.OpenVolume(ctx)
	require.NoError(t, err)

	f, err := root.Open(ctx, "gone.bin", rwc)
	require.NoError(t, err)
	_, err = f.Write(ctx, []byte("twenty bytes of text"))
	require.NoError(t, err)
	id := f.(*file).id

	require.NoError(t, f.Delete(ctx))
	assert.Equal(t, 0, countChunks(t, fsys, id))

	err = fsys.db.View(func(txn *badger.Txn) error {
		_, err := txn.Get(keyFile(id))
		return err
	})
	assert.ErrorIs(t, err, badger.ErrKeyNotFound)
}

func TestBadgerVolume_OpenAfterClose(t *testing.T) {
	ctx := context.Background()
	fsys, err := New(ctx, Config{InMemory: true})
	require.NoError(t, err)
	require.NoError(t, fsys.Close())

	_, err = fsys.OpenVolume(ctx)
	assert.ErrorIs(t, err, volume.StatusNotReady)
}

func TestFileRecordEncoding(t *testing.T) {
	data, err := encodeFileRecord(&fileRecord{Name: "a.txt", Size: 1 << 33, ChunkSize: 4096})
	require.NoError(t, err)

	rec, err := decodeFileRecord(data)
	require.NoError(t, err)
	assert.Equal(t, "a.txt", rec.Name)
	assert.Equal(t, uint64(1<<33), rec.Size)
	assert.Equal(t, uint32(4096), rec.ChunkSize)

	_, err = decodeFileRecord(data[:3])
	assert.Error(t, err)
}

func TestChunkKeysSortInFileOrder(t *testing.T) {
	id := uuid.New()
	assert.Less(t, string(keyChunk(id, 1)), string(keyChunk(id, 2)))
	assert.Less(t, string(keyChunk(id, 255)), string(keyChunk(id, 256)))
}

func countChunks(t *testing.T, fsys *FileSystem, id uuid.UUID) int {
	t.Helper()

	prefix := keyChunkPrefix(id)
	count := 0
	err := fsys.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		opts.Prefix = prefix
		it := txn.NewIterator(opts)
		defer it.Close()
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			count++
		}
		return nil
	})
	require.NoError(t, err)
	return count
}
