package bufpool

import (
	"testing"

	"github.com/marmos91/fstool/pkg/volume"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGet_ZeroedAndSized(t *testing.T) {
	a := New(DefaultBudget)

	for _, n := range []int{0, 1, 4096, 5000, 64 << 10, 1<<20 + 1} {
		buf, err := a.Get(n)
		require.NoError(t, err, "size %d", n)
		assert.Len(t, buf, n)

		for i := range buf {
			buf[i] = 0xAA
		}
		a.Put(buf)
	}

	// Recycled buffers come back zeroed.
	buf, err := a.Get(4096)
	require.NoError(t, err)
	for _, b := range buf {
		require.Zero(t, b)
	}
	a.Put(buf)
	assert.Zero(t, a.InUse())
}

func TestGet_BudgetExhausted(t *testing.T) {
	a := New(3 * smallBufferSize)

	var held [][]byte
	for range 3 {
		buf, err := a.Get(100)
		require.NoError(t, err)
		held = append(held, buf)
	}

	_, err := a.Get(1)
	assert.ErrorIs(t, err, volume.StatusOutOfResources)

	a.Put(held[0])
	buf, err := a.Get(1)
	require.NoError(t, err)
	a.Put(buf)

	for _, b := range held[1:] {
		a.Put(b)
	}
	assert.Zero(t, a.InUse())
}

func TestGet_LargerThanBudget(t *testing.T) {
	a := New(1 << 20)

	_, err := a.Get(1<<20 + 1)
	assert.ErrorIs(t, err, volume.StatusOutOfResources)
	assert.Zero(t, a.InUse())
}

func TestGet_Unlimited(t *testing.T) {
	a := New(0)

	buf, err := a.Get(16 << 20)
	require.NoError(t, err)
	assert.Equal(t, int64(16<<20), a.InUse())
	a.Put(buf)
	assert.Zero(t, a.InUse())
}

func TestGet_Negative(t *testing.T) {
	_, err := New(0).Get(-1)
	assert.ErrorIs(t, err, volume.StatusInvalidParameter)
}

func TestPut_Nil(t *testing.T) {
	a := New(DefaultBudget)
	a.Put(nil)
	assert.Zero(t, a.InUse())
}
