package testing

import (
	"testing"

	"github.com/marmos91/fstool/pkg/volume"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// RunLifecycleTests executes handle lifecycle tests.
func (suite *VolumeTestSuite) RunLifecycleTests(t *testing.T) {
	t.Run("Close_Twice", suite.testCloseTwice)
	t.Run("UseAfterClose", suite.testUseAfterClose)
	t.Run("IndependentHandles", suite.testIndependentHandles)
}

func (suite *VolumeTestSuite) testCloseTwice(t *testing.T) {
	root := suite.openRoot(t)

	f := mustOpen(t, root, "twice.txt", modeCreate)
	require.NoError(t, f.Close())
	assert.ErrorIs(t, f.Close(), volume.StatusInvalidParameter)
}

func (suite *VolumeTestSuite) testUseAfterClose(t *testing.T) {
	root := suite.openRoot(t)

	f := mustOpen(t, root, "after.txt", modeCreate)
	require.NoError(t, f.Close())

	_, err := f.Write(testContext(), []byte("x"))
	assert.ErrorIs(t, err, volume.StatusInvalidParameter)

	_, err = f.Read(testContext(), make([]byte, 1))
	assert.ErrorIs(t, err, volume.StatusInvalidParameter)

	_, err = f.Size(testContext())
	assert.ErrorIs(t, err, volume.StatusInvalidParameter)
}

func (suite *VolumeTestSuite) testIndependentHandles(t *testing.T) {
	root := suite.openRoot(t)

	mustWriteFile(t, root, "shared.txt", []byte("0123456789"))

	a := mustOpen(t, root, "shared.txt", modeRead)
	defer func() { _ = a.Close() }()
	b := mustOpen(t, root, "shared.txt", modeRead)
	defer func() { _ = b.Close() }()

	buf := make([]byte, 4)
	n, err := a.Read(testContext(), buf)
	require.NoError(t, err)
	assert.Equal(t, "0123", string(buf[:n]))

	// b has its own position.
	n, err = b.Read(testContext(), buf)
	require.NoError(t, err)
	assert.Equal(t, "0123", string(buf[:n]))
}
