package volume

// Handle carries the per-handle bookkeeping every backend needs: the file
// name, the mode it was opened with, the current position and whether the
// handle has been released. Backends embed it in their File types.
type Handle struct {
	name   string
	mode   OpenMode
	pos    uint64
	closed bool
}

// NewHandle returns the bookkeeping for a freshly opened file.
func NewHandle(name string, mode OpenMode) Handle {
	return Handle{name: name, mode: mode}
}

// FileName returns the name the handle was opened with.
func (h *Handle) FileName() string { return h.name }

// Mode returns the open mode.
func (h *Handle) Mode() OpenMode { return h.mode }

// Pos returns the current position.
func (h *Handle) Pos() uint64 { return h.pos }

// Advance moves the position forward by n bytes.
func (h *Handle) Advance(n int) { h.pos += uint64(n) }

// Closed reports whether the handle has been closed or deleted.
func (h *Handle) Closed() bool { return h.closed }

// Release marks the handle closed. It reports false if it already was.
func (h *Handle) Release() bool {
	if h.closed {
		return false
	}
	h.closed = true
	return true
}

// CheckUsable returns an error if the handle was already released.
func (h *Handle) CheckUsable(op string) error {
	if h.closed {
		return NewError(StatusInvalidParameter, op, h.name, nil)
	}
	return nil
}

// CheckWritable returns an error if the handle is released or read-only.
func (h *Handle) CheckWritable(op string) error {
	if err := h.CheckUsable(op); err != nil {
		return err
	}
	if !h.mode.Writable() {
		return NewError(StatusAccessDenied, op, h.name, nil)
	}
	return nil
}
