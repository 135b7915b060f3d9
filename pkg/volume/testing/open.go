package testing

import (
	"testing"

	"github.com/marmos91/fstool/pkg/volume"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// RunOpenTests executes Directory.Open tests.
func (suite *VolumeTestSuite) RunOpenTests(t *testing.T) {
	t.Run("Open_NotFound", suite.testOpenNotFound)
	t.Run("Open_CreateNew", suite.testOpenCreateNew)
	t.Run("Open_CreateTruncates", suite.testOpenCreateTruncates)
	t.Run("Open_ReadWriteKeepsContent", suite.testOpenReadWriteKeepsContent)
	t.Run("Open_InvalidName", suite.testOpenInvalidName)
	t.Run("Open_InvalidMode", suite.testOpenInvalidMode)
}

func (suite *VolumeTestSuite) testOpenNotFound(t *testing.T) {
	root := suite.openRoot(t)

	assertNotExists(t, root, "missing.txt")

	f, err := root.Open(testContext(), "missing.txt", modeRW)
	assert.Nil(t, f)
	require.ErrorIs(t, err, volume.StatusNotFound)
}

func (suite *VolumeTestSuite) testOpenCreateNew(t *testing.T) {
	root := suite.openRoot(t)

	f := mustOpen(t, root, "new.txt", modeCreate)
	require.NoError(t, f.Close())

	assertFileContent(t, root, "new.txt", nil)
}

func (suite *VolumeTestSuite) testOpenCreateTruncates(t *testing.T) {
	root := suite.openRoot(t)

	mustWriteFile(t, root, "trunc.txt", []byte("a much longer original body"))
	mustWriteFile(t, root, "trunc.txt", []byte("short"))

	assertFileContent(t, root, "trunc.txt", []byte("short"))
}

func (suite *VolumeTestSuite) testOpenReadWriteKeepsContent(t *testing.T) {
	root := suite.openRoot(t)

	mustWriteFile(t, root, "keep.txt", []byte("keep me"))

	f := mustOpen(t, root, "keep.txt", modeRW)
	require.NoError(t, f.Close())

	assertFileContent(t, root, "keep.txt", []byte("keep me"))
}

func (suite *VolumeTestSuite) testOpenInvalidName(t *testing.T) {
	root := suite.openRoot(t)

	for _, name := range []string{"", ".", "..", "dir/file", `dir\file`} {
		f, err := root.Open(testContext(), name, modeCreate)
		assert.Nil(t, f, "name %q", name)
		assert.ErrorIs(t, err, volume.StatusInvalidParameter, "name %q", name)
	}
}

func (suite *VolumeTestSuite) testOpenInvalidMode(t *testing.T) {
	root := suite.openRoot(t)

	for _, mode := range []volume.OpenMode{0, volume.ModeWrite, volume.ModeCreate, volume.ModeRead | volume.ModeCreate} {
		f, err := root.Open(testContext(), "mode.txt", mode)
		assert.Nil(t, f, "mode %s", mode)
		assert.ErrorIs(t, err, volume.StatusInvalidParameter, "mode %s", mode)
	}
}
