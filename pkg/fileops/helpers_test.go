package fileops

import (
	"context"
	"testing"

	"github.com/marmos91/fstool/internal/bufpool"
	"github.com/marmos91/fstool/pkg/console"
	"github.com/marmos91/fstool/pkg/volume"
	"github.com/marmos91/fstool/pkg/volume/memory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// spyDir wraps a directory and records every handle it opens.
type spyDir struct {
	volume.Directory
	files     []*spyFile
	configure func(f *spyFile)
}

func (d *spyDir) Open(ctx context.Context, name string, mode volume.OpenMode) (volume.File, error) {
	f, err := d.Directory.Open(ctx, name, mode)
	if err != nil {
		return nil, err
	}
	sf := &spyFile{File: f, name: name}
	if d.configure != nil {
		d.configure(sf)
	}
	d.files = append(d.files, sf)
	return sf, nil
}

func (d *spyDir) file(name string) *spyFile {
	for _, f := range d.files {
		if f.name == name {
			return f
		}
	}
	return nil
}

func (d *spyDir) assertAllClosed(t *testing.T) {
	t.Helper()
	for _, f := range d.files {
		assert.True(t, f.closed, "handle for %s left open", f.name)
	}
}

// spyFile counts calls and can inject failures.
type spyFile struct {
	volume.File
	name   string
	reads  int
	writes int
	closed bool

	readErr    error
	sizeErr    error
	shortWrite bool
	failWrite  func(p []byte) error
}

func (f *spyFile) Read(ctx context.Context, p []byte) (int, error) {
	f.reads++
	if f.readErr != nil {
		return 0, f.readErr
	}
	return f.File.Read(ctx, p)
}

func (f *spyFile) Write(ctx context.Context, p []byte) (int, error) {
	f.writes++
	if f.failWrite != nil {
		if err := f.failWrite(p); err != nil {
			return 0, err
		}
	}
	if f.shortWrite && len(p) > 1 {
		return f.File.Write(ctx, p[:len(p)-1])
	}
	return f.File.Write(ctx, p)
}

func (f *spyFile) Size(ctx context.Context) (uint64, error) {
	if f.sizeErr != nil {
		return 0, f.sizeErr
	}
	return f.File.Size(ctx)
}

func (f *spyFile) Delete(ctx context.Context) error {
	f.closed = true
	return f.File.Delete(ctx)
}

func (f *spyFile) Close() error {
	f.closed = true
	return f.File.Close()
}

type fixture struct {
	exec *Executor
	dir  *spyDir
	con  *console.Scripted
}

func newFixture(t *testing.T, opts ...Option) *fixture {
	t.Helper()

	root, err := memory.New(memory.Config{}).OpenVolume(context.Background())
	require.NoError(t, err)

	dir := &spyDir{Directory: root}
	con := console.NewScripted()

	exec, err := New(dir, con, opts...)
	require.NoError(t, err)

	return &fixture{exec: exec, dir: dir, con: con}
}

func tinyAllocator() Option {
	return WithAllocator(bufpool.New(1))
}

// writeFile writes data through the underlying root, bypassing the spy.
func (fx *fixture) writeFile(t *testing.T, name string, data []byte) {
	t.Helper()
	ctx := context.Background()

	f, err := fx.dir.Directory.Open(ctx, name, volume.ModeRead|volume.ModeWrite|volume.ModeCreate)
	require.NoError(t, err)
	n, err := f.Write(ctx, data)
	require.NoError(t, err)
	require.Equal(t, len(data), n)
	require.NoError(t, f.Close())
}

// readFile returns the content of name through the underlying root.
func (fx *fixture) readFile(t *testing.T, name string) []byte {
	t.Helper()
	ctx := context.Background()

	f, err := fx.dir.Directory.Open(ctx, name, volume.ModeRead)
	require.NoError(t, err)
	defer f.Close()

	var data []byte
	buf := make([]byte, 1000)
	for {
		n, err := f.Read(ctx, buf)
		require.NoError(t, err)
		if n == 0 {
			return data
		}
		data = append(data, buf[:n]...)
	}
}

func (fx *fixture) exists(name string) bool {
	f, err := fx.dir.Directory.Open(context.Background(), name, volume.ModeRead)
	if err != nil {
		return false
	}
	_ = f.Close()
	return true
}

func assertStep(t *testing.T, err error, step Step) {
	t.Helper()
	var se *StepError
	if assert.ErrorAs(t, err, &se) {
		assert.Equal(t, step, se.Step)
	}
}
