// Package fileops implements the tool's file operations (create, delete,
// read, copy, merge) against an open volume root, both as plain calls and
// as interactive prompts on a console.
package fileops

import (
	"fmt"

	"github.com/marmos91/fstool/internal/bufpool"
	"github.com/marmos91/fstool/internal/logger"
	"github.com/marmos91/fstool/pkg/console"
	"github.com/marmos91/fstool/pkg/volume"
)

const (
	// ChunkSize is the transfer buffer size used by Copy and Merge.
	ChunkSize = 4096

	// MaxReadSize is the largest file Read will load.
	MaxReadSize = 1 << 20 // 1MB
)

// Step identifies the stage of an operation that failed. The interactive
// variants use it to pick the message shown to the user.
type Step int

const (
	StepOpen Step = iota
	StepOpenSource
	StepOpenDest
	StepOpenA
	StepOpenB
	StepOpenOutput
	StepSize
	StepLimit
	StepAlloc
	StepIO
	StepClose
)

var stepNames = map[Step]string{
	StepOpen:       "open",
	StepOpenSource: "open source",
	StepOpenDest:   "open dest",
	StepOpenA:      "open A",
	StepOpenB:      "open B",
	StepOpenOutput: "open output",
	StepSize:       "get size",
	StepLimit:      "size limit",
	StepAlloc:      "allocate",
	StepIO:         "transfer",
	StepClose:      "close",
}

func (s Step) String() string {
	if name, ok := stepNames[s]; ok {
		return name
	}
	return fmt.Sprintf("step(%d)", int(s))
}

// StepError records which stage of an operation failed.
type StepError struct {
	Step Step
	Err  error
}

func (e *StepError) Error() string {
	return fmt.Sprintf("%s: %v", e.Step, e.Err)
}

func (e *StepError) Unwrap() error {
	return e.Err
}

func stepErr(step Step, err error) error {
	return &StepError{Step: step, Err: err}
}

// Executor runs file operations against one volume root.
//
// The root is owned by the caller: the executor never closes or replaces
// it. Every file handle an operation opens is closed before the operation
// returns, on every path.
type Executor struct {
	root  volume.Directory
	con   console.Console
	alloc *bufpool.Allocator
}

// Option configures an Executor.
type Option func(*Executor)

// WithAllocator sets the allocator used for transfer and read buffers.
func WithAllocator(alloc *bufpool.Allocator) Option {
	return func(e *Executor) {
		e.alloc = alloc
	}
}

// New creates an executor for root. con is used by the interactive
// variants only and may be nil when just the plain operations are used.
//
// Returns volume.StatusNotReady if root is nil.
func New(root volume.Directory, con console.Console, opts ...Option) (*Executor, error) {
	if root == nil {
		return nil, volume.NewError(volume.StatusNotReady, "new executor", "", nil)
	}

	e := &Executor{root: root, con: con}
	for _, opt := range opts {
		opt(e)
	}
	if e.alloc == nil {
		e.alloc = bufpool.New(bufpool.DefaultBudget)
	}
	return e, nil
}

// closeFile closes f. A close failure becomes the operation's error only
// if nothing failed before it.
func closeFile(f volume.File, name string, errp *error) {
	if err := f.Close(); err != nil {
		if *errp == nil {
			*errp = stepErr(StepClose, err)
			return
		}
		logger.Warn("Failed to close %s after earlier error: %v", name, err)
	}
}
