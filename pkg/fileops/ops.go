package fileops

import (
	"bytes"
	"context"
	"unicode/utf8"

	"github.com/marmos91/fstool/internal/logger"
	"github.com/marmos91/fstool/pkg/volume"
)

const (
	modeRead   = volume.ModeRead
	modeRW     = volume.ModeRead | volume.ModeWrite
	modeCreate = volume.ModeRead | volume.ModeWrite | volume.ModeCreate
)

// ReadResult is the outcome of Read.
type ReadResult struct {
	// Data holds the bytes obtained. On a failed read it holds whatever
	// the read delivered.
	Data []byte

	// Size is the file size reported by the volume.
	Size uint64

	// Empty is set when the file has no content; no read was issued.
	Empty bool
}

// Create creates name (truncating any existing content) and writes data
// to it. Each character of data is stored as one byte (its low 8 bits).
func (e *Executor) Create(ctx context.Context, name, data string) (err error) {
	if err := ctx.Err(); err != nil {
		return err
	}

	f, err := e.root.Open(ctx, name, modeCreate)
	if err != nil {
		return stepErr(StepOpen, err)
	}
	defer closeFile(f, name, &err)

	buf, err := e.alloc.Get(utf8.RuneCountInString(data))
	if err != nil {
		return stepErr(StepAlloc, err)
	}
	defer e.alloc.Put(buf)

	i := 0
	for _, r := range data {
		buf[i] = byte(r)
		i++
	}

	n, err := f.Write(ctx, buf)
	if err != nil {
		return stepErr(StepIO, err)
	}
	if n != len(buf) {
		return stepErr(StepIO, volume.NewError(volume.StatusDeviceError, "write", name, nil))
	}

	logger.Debug("Created %s (%d bytes)", name, n)
	return nil
}

// Delete removes name. The handle opened for the delete is consumed
// whether or not the delete succeeds.
func (e *Executor) Delete(ctx context.Context, name string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	f, err := e.root.Open(ctx, name, modeRW)
	if err != nil {
		return stepErr(StepOpen, err)
	}

	if err := f.Delete(ctx); err != nil {
		return stepErr(StepIO, err)
	}

	logger.Debug("Deleted %s", name)
	return nil
}

// Read loads the whole content of name.
//
// Empty files and files larger than MaxReadSize are reported without
// issuing any read. Otherwise the content is read in a single call into a
// zeroed buffer one byte larger than the file, and the handle is closed
// before returning.
func (e *Executor) Read(ctx context.Context, name string) (result *ReadResult, err error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	f, err := e.root.Open(ctx, name, modeRead)
	if err != nil {
		return nil, stepErr(StepOpen, err)
	}
	defer closeFile(f, name, &err)

	size, err := f.Size(ctx)
	if err != nil {
		return nil, stepErr(StepSize, err)
	}

	result = &ReadResult{Size: size}
	if size == 0 {
		result.Empty = true
		return result, nil
	}
	if size > MaxReadSize {
		return result, stepErr(StepLimit, volume.NewError(volume.StatusUnsupported, "read", name, nil))
	}

	buf, err := e.alloc.Get(int(size) + 1)
	if err != nil {
		return result, stepErr(StepAlloc, err)
	}
	defer e.alloc.Put(buf)

	n, readErr := f.Read(ctx, buf[:size])
	result.Data = bytes.Clone(buf[:n])
	if readErr != nil {
		return result, stepErr(StepIO, readErr)
	}

	logger.Debug("Read %s (%d of %d bytes)", name, n, size)
	return result, nil
}

// Copy copies the content of src into dst, creating or truncating dst.
func (e *Executor) Copy(ctx context.Context, src, dst string) (err error) {
	if err := ctx.Err(); err != nil {
		return err
	}

	in, err := e.root.Open(ctx, src, modeRead)
	if err != nil {
		return stepErr(StepOpenSource, err)
	}
	defer closeFile(in, src, &err)

	// Creating dst would truncate the source before it is read. Names are
	// compared exactly; a backend whose names alias one file (case folding,
	// hard links) refuses the create itself while src is open.
	if dst == src {
		return stepErr(StepOpenDest, volume.NewError(volume.StatusInvalidParameter, "open", dst, nil))
	}

	out, err := e.root.Open(ctx, dst, modeCreate)
	if err != nil {
		return stepErr(StepOpenDest, err)
	}
	defer closeFile(out, dst, &err)

	chunk, err := e.alloc.Get(ChunkSize)
	if err != nil {
		return stepErr(StepAlloc, err)
	}
	defer e.alloc.Put(chunk)

	if err := Transfer(ctx, out, in, chunk); err != nil {
		return stepErr(StepIO, err)
	}

	logger.Debug("Copied %s to %s", src, dst)
	return nil
}

// Merge writes the content of a, a newline, then the content of b into
// out, creating or truncating out. If copying a fails, b is not copied.
// A failure writing the newline is logged and does not fail the merge.
func (e *Executor) Merge(ctx context.Context, a, b, out string) (err error) {
	if err := ctx.Err(); err != nil {
		return err
	}

	fa, err := e.root.Open(ctx, a, modeRead)
	if err != nil {
		return stepErr(StepOpenA, err)
	}
	defer closeFile(fa, a, &err)

	fb, err := e.root.Open(ctx, b, modeRead)
	if err != nil {
		return stepErr(StepOpenB, err)
	}
	defer closeFile(fb, b, &err)

	// Same exact-name rule as Copy; the open inputs guard aliases.
	if out == a || out == b {
		return stepErr(StepOpenOutput, volume.NewError(volume.StatusInvalidParameter, "open", out, nil))
	}

	fo, err := e.root.Open(ctx, out, modeCreate)
	if err != nil {
		return stepErr(StepOpenOutput, err)
	}
	defer closeFile(fo, out, &err)

	chunk, err := e.alloc.Get(ChunkSize)
	if err != nil {
		return stepErr(StepAlloc, err)
	}
	defer e.alloc.Put(chunk)

	if err := Transfer(ctx, fo, fa, chunk); err != nil {
		return stepErr(StepIO, err)
	}

	if n, err := fo.Write(ctx, []byte{'\n'}); err != nil || n != 1 {
		logger.Warn("Merge %s: separator write failed (wrote %d bytes): %v", out, n, err)
	}

	if err := Transfer(ctx, fo, fb, chunk); err != nil {
		return stepErr(StepIO, err)
	}

	logger.Debug("Merged %s and %s into %s", a, b, out)
	return nil
}

// Transfer streams src into dst through chunk until src is exhausted.
//
// A read error stops the transfer with that error. Every chunk read is
// written in full; a write error, or a short write without one, stops the
// transfer (the latter with volume.StatusDeviceError).
func Transfer(ctx context.Context, dst, src volume.File, chunk []byte) error {
	if len(chunk) == 0 {
		return volume.NewError(volume.StatusInvalidParameter, "transfer", "", nil)
	}

	for {
		n, err := src.Read(ctx, chunk)
		if err != nil {
			return err
		}
		if n == 0 {
			return nil
		}

		written, err := dst.Write(ctx, chunk[:n])
		if err != nil {
			return err
		}
		if written != n {
			return volume.NewError(volume.StatusDeviceError, "write", "", nil)
		}
	}
}
