package fileops

import (
	"bytes"
	"context"
	"errors"

	"github.com/marmos91/fstool/pkg/console"
	"github.com/marmos91/fstool/pkg/lineedit"
	"github.com/marmos91/fstool/pkg/volume"
	"golang.org/x/text/encoding/charmap"
)

// ============================================================================
// Interactive Operations
// ============================================================================
//
// Each Run* method prints a header, prompts for its inputs, runs the plain
// operation, reports the outcome and waits for a key before returning the
// operation's error. A cancelled prompt prints "(Canceled)" and returns
// lineedit.ErrCancelled before any file is touched.

// RunCreate prompts for a file name and its content and creates the file.
func (e *Executor) RunCreate(ctx context.Context) error {
	if err := e.begin("[Create file]"); err != nil {
		return err
	}

	inputs, err := e.prompt(ctx, "Please input file name: ", "Please input file data: ")
	if err != nil {
		return err
	}

	err = e.Create(ctx, inputs[0], inputs[1])
	switch stepOf(err) {
	case StepOpen:
		e.con.Print("Open/Create failed: %s\n", volume.StatusOf(err))
	case StepAlloc:
		e.con.Print("Out of resources.\n")
	default:
		e.con.Print("\nCreate done: %s\n", volume.StatusOf(err))
	}
	e.pause(ctx)
	return err
}

// RunDelete prompts for a file name and deletes the file.
func (e *Executor) RunDelete(ctx context.Context) error {
	if err := e.begin("[Delete file]"); err != nil {
		return err
	}

	inputs, err := e.prompt(ctx, "Please input file name: ")
	if err != nil {
		return err
	}

	err = e.Delete(ctx, inputs[0])
	if stepOf(err) == StepOpen {
		e.con.Print("Open failed: %s\n", volume.StatusOf(err))
	} else {
		e.con.Print("\nDelete done: %s\n", volume.StatusOf(err))
	}
	e.pause(ctx)
	return err
}

// RunRead prompts for a file name and prints its content.
func (e *Executor) RunRead(ctx context.Context) error {
	if err := e.begin("[Read file]"); err != nil {
		return err
	}

	inputs, err := e.prompt(ctx, "Please input file name: ")
	if err != nil {
		return err
	}

	result, err := e.Read(ctx, inputs[0])
	switch stepOf(err) {
	case StepOpen:
		e.con.Print("Open failed: %s\n", volume.StatusOf(err))
	case StepSize:
		e.con.Print("GetInfo failed: %s\n", volume.StatusOf(err))
	case StepLimit:
		e.con.Print("\nFile too large (%d bytes). Demo limits to 1MB.\n", result.Size)
	case StepAlloc:
		e.con.Print("Out of resources.\n")
	default:
		if result != nil && result.Empty {
			e.con.Print("\n[Empty file]\n")
			break
		}
		var data []byte
		if result != nil {
			data = result.Data
		}
		e.con.Print("\n---- File Data (ASCII) ----\n")
		e.con.Print("%s\n", DisplayText(data))
		e.con.Print("---------------------------\n")
	}
	e.pause(ctx)
	return err
}

// RunCopy prompts for source and destination names and copies the file.
func (e *Executor) RunCopy(ctx context.Context) error {
	if err := e.begin("[Copy file]"); err != nil {
		return err
	}

	inputs, err := e.prompt(ctx, "Source file name: ", "Dest file name: ")
	if err != nil {
		return err
	}

	err = e.Copy(ctx, inputs[0], inputs[1])
	switch stepOf(err) {
	case StepOpenSource:
		e.con.Print("Open source failed: %s\n", volume.StatusOf(err))
	case StepOpenDest:
		e.con.Print("Open/Create dest failed: %s\n", volume.StatusOf(err))
	case StepAlloc:
		e.con.Print("Out of resources.\n")
	default:
		e.con.Print("\nCopy done: %s\n", volume.StatusOf(err))
	}
	e.pause(ctx)
	return err
}

// RunMerge prompts for two input names and an output name and merges the
// inputs into the output.
func (e *Executor) RunMerge(ctx context.Context) error {
	if err := e.begin("[Merge two file]"); err != nil {
		return err
	}

	inputs, err := e.prompt(ctx, "File A name: ", "File B name: ", "Output file name: ")
	if err != nil {
		return err
	}

	err = e.Merge(ctx, inputs[0], inputs[1], inputs[2])
	switch stepOf(err) {
	case StepOpenA:
		e.con.Print("Open A failed: %s\n", volume.StatusOf(err))
	case StepOpenB:
		e.con.Print("Open B failed: %s\n", volume.StatusOf(err))
	case StepOpenOutput:
		e.con.Print("Open/Create output failed: %s\n", volume.StatusOf(err))
	case StepAlloc:
		e.con.Print("Out of resources.\n")
	default:
		e.con.Print("\nMerge done: %s\n", volume.StatusOf(err))
	}
	e.pause(ctx)
	return err
}

// begin prints an operation header.
func (e *Executor) begin(header string) error {
	if e.con == nil {
		return volume.NewError(volume.StatusNotReady, "prompt", "", nil)
	}
	e.con.Print("%s\n\n", header)
	return nil
}

// prompt reads one line per prompt. On cancel it reports and pauses.
func (e *Executor) prompt(ctx context.Context, prompts ...string) ([]string, error) {
	if e.con == nil {
		return nil, volume.NewError(volume.StatusNotReady, "prompt", "", nil)
	}

	lines := make([]string, 0, len(prompts))
	for _, p := range prompts {
		line, err := lineedit.ReadLine(ctx, e.con, p, lineedit.MaxLineChars)
		if err != nil {
			if errors.Is(err, lineedit.ErrCancelled) {
				e.con.Print("(Canceled)\n")
				e.pause(ctx)
			}
			return nil, err
		}
		lines = append(lines, line)
	}
	return lines, nil
}

func (e *Executor) pause(ctx context.Context) {
	_ = console.Pause(ctx, e.con)
}

// stepOf returns the failed step of err, or -1 when err carries none
// (including success).
func stepOf(err error) Step {
	var se *StepError
	if errors.As(err, &se) {
		return se.Step
	}
	return -1
}

// DisplayText renders file bytes as single-byte (Latin-1) text, stopping
// at the first NUL byte.
func DisplayText(data []byte) string {
	if i := bytes.IndexByte(data, 0); i >= 0 {
		data = data[:i]
	}
	text, err := charmap.ISO8859_1.NewDecoder().Bytes(data)
	if err != nil {
		return string(data)
	}
	return string(text)
}
