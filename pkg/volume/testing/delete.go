package testing

import (
	"testing"

	"github.com/marmos91/fstool/pkg/volume"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// RunDeleteTests executes File.Delete tests.
func (suite *VolumeTestSuite) RunDeleteTests(t *testing.T) {
	t.Run("Delete_Success", suite.testDeleteSuccess)
	t.Run("Delete_ConsumesHandle", suite.testDeleteConsumesHandle)
	t.Run("Delete_ReadOnlyHandle", suite.testDeleteReadOnlyHandle)
	t.Run("Delete_LeavesOthers", suite.testDeleteLeavesOthers)
}

func (suite *VolumeTestSuite) testDeleteSuccess(t *testing.T) {
	root := suite.openRoot(t)

	mustWriteFile(t, root, "gone.txt", []byte("bye"))

	f := mustOpen(t, root, "gone.txt", modeRW)
	require.NoError(t, f.Delete(testContext()))

	assertNotExists(t, root, "gone.txt")
}

func (suite *VolumeTestSuite) testDeleteConsumesHandle(t *testing.T) {
	root := suite.openRoot(t)

	mustWriteFile(t, root, "consumed.txt", []byte("x"))

	f := mustOpen(t, root, "consumed.txt", modeRW)
	require.NoError(t, f.Delete(testContext()))

	_, err := f.Read(testContext(), make([]byte, 1))
	assert.ErrorIs(t, err, volume.StatusInvalidParameter)
}

func (suite *VolumeTestSuite) testDeleteReadOnlyHandle(t *testing.T) {
	root := suite.openRoot(t)

	mustWriteFile(t, root, "stay.txt", []byte("still here"))

	f := mustOpen(t, root, "stay.txt", modeRead)
	err := f.Delete(testContext())
	require.ErrorIs(t, err, volume.StatusAccessDenied)

	// The failed delete still consumed the handle.
	assert.ErrorIs(t, f.Close(), volume.StatusInvalidParameter)

	assertFileContent(t, root, "stay.txt", []byte("still here"))
}

func (suite *VolumeTestSuite) testDeleteLeavesOthers(t *testing.T) {
	root := suite.openRoot(t)

	mustWriteFile(t, root, "a.txt", []byte("a"))
	mustWriteFile(t, root, "b.txt", []byte("b"))

	f := mustOpen(t, root, "a.txt", modeRW)
	require.NoError(t, f.Delete(testContext()))

	assertNotExists(t, root, "a.txt")
	assertFileContent(t, root, "b.txt", []byte("b"))
}
