package testing

import (
	"bytes"
	"testing"

	"github.com/marmos91/fstool/pkg/volume"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// RunReadWriteTests executes File.Read / File.Write / File.Size tests.
func (suite *VolumeTestSuite) RunReadWriteTests(t *testing.T) {
	t.Run("Write_Sequential", suite.testWriteSequential)
	t.Run("Write_ReadOnlyHandle", suite.testWriteReadOnlyHandle)
	t.Run("Write_LargeMultiChunk", suite.testWriteLargeMultiChunk)
	t.Run("Read_AtEOF", suite.testReadAtEOF)
	t.Run("Read_EmptyFile", suite.testReadEmptyFile)
	t.Run("Size_TracksWrites", suite.testSizeTracksWrites)
}

func (suite *VolumeTestSuite) testWriteSequential(t *testing.T) {
	root := suite.openRoot(t)

	f := mustOpen(t, root, "seq.txt", modeCreate)
	for _, part := range []string{"hello", ", ", "world"} {
		n, err := f.Write(testContext(), []byte(part))
		require.NoError(t, err)
		require.Equal(t, len(part), n)
	}
	require.NoError(t, f.Close())

	assertFileContent(t, root, "seq.txt", []byte("hello, world"))
}

func (suite *VolumeTestSuite) testWriteReadOnlyHandle(t *testing.T) {
	root := suite.openRoot(t)

	mustWriteFile(t, root, "ro.txt", []byte("data"))

	f := mustOpen(t, root, "ro.txt", modeRead)
	defer func() { _ = f.Close() }()

	n, err := f.Write(testContext(), []byte("more"))
	assert.Equal(t, 0, n)
	require.ErrorIs(t, err, volume.StatusAccessDenied)
}

func (suite *VolumeTestSuite) testWriteLargeMultiChunk(t *testing.T) {
	root := suite.openRoot(t)

	// Crosses every backend's internal page/chunk boundary at least once.
	data := bytes.Repeat([]byte("0123456789abcdef"), 20000)

	f := mustOpen(t, root, "large.bin", modeCreate)
	for off := 0; off < len(data); off += 4096 {
		end := min(off+4096, len(data))
		n, err := f.Write(testContext(), data[off:end])
		require.NoError(t, err)
		require.Equal(t, end-off, n)
	}
	require.NoError(t, f.Close())

	assertFileContent(t, root, "large.bin", data)
}

func (suite *VolumeTestSuite) testReadAtEOF(t *testing.T) {
	root := suite.openRoot(t)

	mustWriteFile(t, root, "eof.txt", []byte("abc"))

	f := mustOpen(t, root, "eof.txt", modeRead)
	defer func() { _ = f.Close() }()

	buf := make([]byte, 16)
	n, err := f.Read(testContext(), buf)
	require.NoError(t, err)
	require.Equal(t, 3, n)
	assert.Equal(t, "abc", string(buf[:n]))

	n, err = f.Read(testContext(), buf)
	require.NoError(t, err)
	assert.Equal(t, 0, n)
}

func (suite *VolumeTestSuite) testReadEmptyFile(t *testing.T) {
	root := suite.openRoot(t)

	mustWriteFile(t, root, "empty.txt", nil)

	f := mustOpen(t, root, "empty.txt", modeRead)
	defer func() { _ = f.Close() }()

	size, err := f.Size(testContext())
	require.NoError(t, err)
	assert.Equal(t, uint64(0), size)

	n, err := f.Read(testContext(), make([]byte, 8))
	require.NoError(t, err)
	assert.Equal(t, 0, n)
}

func (suite *VolumeTestSuite) testSizeTracksWrites(t *testing.T) {
	root := suite.openRoot(t)

	f := mustOpen(t, root, "size.txt", modeCreate)
	defer func() { _ = f.Close() }()

	_, err := f.Write(testContext(), []byte("12345"))
	require.NoError(t, err)

	size, err := f.Size(testContext())
	require.NoError(t, err)
	assert.Equal(t, uint64(5), size)
}
