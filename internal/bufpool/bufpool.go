// Package bufpool provides the budgeted byte-buffer allocator used for
// file transfer and read buffers.
package bufpool

import (
	"sync"

	"github.com/marmos91/fstool/pkg/volume"
)

// ============================================================================
// Budgeted Buffer Allocator
// ============================================================================
//
// Every buffer the file operations need (the transfer chunk, the conversion
// buffer of Create, the whole-file buffer of Read) is acquired here. The
// allocator charges each buffer against a byte budget and refuses requests
// that would exceed it with StatusOutOfResources, which is how the tool's
// out-of-resources paths are reached.
//
// Buffers in the small and medium size classes are recycled through
// sync.Pool; larger ones are allocated directly and left to the GC.

const (
	// DefaultBudget is the default limit on bytes held at once.
	DefaultBudget = 8 << 20 // 8MB

	// smallBufferSize matches the transfer chunk size.
	smallBufferSize = 4 << 10 // 4KB

	// mediumBufferSize covers typical small-file reads.
	mediumBufferSize = 64 << 10 // 64KB
)

// Allocator hands out zeroed buffers within a byte budget.
//
// Thread Safety: safe for concurrent use.
type Allocator struct {
	mu     sync.Mutex
	budget int64
	inUse  int64

	small  sync.Pool
	medium sync.Pool
}

// New creates an allocator with the given budget in bytes. A budget of
// zero or less disables the limit.
func New(budget int64) *Allocator {
	return &Allocator{
		budget: budget,
		small: sync.Pool{
			New: func() any {
				buf := make([]byte, smallBufferSize)
				return &buf
			},
		},
		medium: sync.Pool{
			New: func() any {
				buf := make([]byte, mediumBufferSize)
				return &buf
			},
		},
	}
}

// classSize returns the capacity charged for a request of n bytes.
func classSize(n int) int {
	switch {
	case n <= smallBufferSize:
		return smallBufferSize
	case n <= mediumBufferSize:
		return mediumBufferSize
	default:
		return n
	}
}

// Get returns a zeroed buffer of length n.
//
// The caller must return it with Put when finished. Returns an error
// matching volume.StatusOutOfResources if the buffer would exceed the budget.
func (a *Allocator) Get(n int) ([]byte, error) {
	if n < 0 {
		return nil, volume.NewError(volume.StatusInvalidParameter, "allocate", "", nil)
	}

	charge := int64(classSize(n))
	if err := a.reserve(charge); err != nil {
		return nil, err
	}

	var bufPtr *[]byte
	switch charge {
	case smallBufferSize:
		bufPtr = a.small.Get().(*[]byte)
	case mediumBufferSize:
		bufPtr = a.medium.Get().(*[]byte)
	default:
		return make([]byte, n), nil
	}

	buf := (*bufPtr)[:n]
	clear(buf)
	return buf, nil
}

func (a *Allocator) reserve(charge int64) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.budget > 0 && a.inUse+charge > a.budget {
		return volume.NewError(volume.StatusOutOfResources, "allocate", "", nil)
	}
	a.inUse += charge
	return nil
}

// Put returns a buffer obtained from Get. The buffer must not be used
// afterwards. Nil buffers are ignored.
func (a *Allocator) Put(buf []byte) {
	if buf == nil {
		return
	}

	capacity := cap(buf)

	a.mu.Lock()
	a.inUse = max(a.inUse-int64(capacity), 0)
	a.mu.Unlock()

	fullBuf := buf[:capacity]
	switch capacity {
	case smallBufferSize:
		a.small.Put(&fullBuf)
	case mediumBufferSize:
		a.medium.Put(&fullBuf)
	}
}

// InUse returns the number of bytes currently charged against the budget.
func (a *Allocator) InUse() int64 {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.inUse
}

// Budget returns the configured budget (zero or less means unlimited).
func (a *Allocator) Budget() int64 {
	return a.budget
}
