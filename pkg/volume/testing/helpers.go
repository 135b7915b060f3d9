package testing

import (
	"testing"

	"github.com/marmos91/fstool/pkg/volume"
	"github.com/stretchr/testify/require"
)

const (
	modeRead   = volume.ModeRead
	modeRW     = volume.ModeRead | volume.ModeWrite
	modeCreate = volume.ModeRead | volume.ModeWrite | volume.ModeCreate
)

// mustOpen opens name or fails the test.
func mustOpen(t *testing.T, root volume.Directory, name string, mode volume.OpenMode) volume.File {
	t.Helper()

	f, err := root.Open(testContext(), name, mode)
	require.NoError(t, err, "open %s (%s)", name, mode)
	require.NotNil(t, f)

	return f
}

// mustWriteFile creates name with data and closes it.
func mustWriteFile(t *testing.T, root volume.Directory, name string, data []byte) {
	t.Helper()

	f := mustOpen(t, root, name, modeCreate)
	n, err := f.Write(testContext(), data)
	require.NoError(t, err)
	require.Equal(t, len(data), n)
	require.NoError(t, f.Close())
}

// readAll drains f with small reads until a zero-length read.
func readAll(t *testing.T, f volume.File) []byte {
	t.Helper()

	var out []byte
	buf := make([]byte, 7)
	for {
		n, err := f.Read(testContext(), buf)
		require.NoError(t, err)
		if n == 0 {
			return out
		}
		out = append(out, buf[:n]...)
	}
}

// assertFileContent opens name read-only and compares its content and size.
func assertFileContent(t *testing.T, root volume.Directory, name string, expected []byte) {
	t.Helper()

	f := mustOpen(t, root, name, modeRead)
	defer func() { _ = f.Close() }()

	size, err := f.Size(testContext())
	require.NoError(t, err)
	require.Equal(t, uint64(len(expected)), size)

	got := readAll(t, f)
	if len(expected) == 0 {
		require.Empty(t, got)
		return
	}
	require.Equal(t, expected, got)
}

// assertNotExists checks that opening name without create fails with
// StatusNotFound.
func assertNotExists(t *testing.T, root volume.Directory, name string) {
	t.Helper()

	f, err := root.Open(testContext(), name, modeRead)
	if f != nil {
		_ = f.Close()
	}
	require.Error(t, err)
	require.ErrorIs(t, err, volume.StatusNotFound)
}
