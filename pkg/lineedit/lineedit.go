// Package lineedit reads a bounded, editable line of text from a console.
package lineedit

import (
	"context"
	"fmt"

	"github.com/marmos91/fstool/pkg/console"
	"github.com/marmos91/fstool/pkg/volume"
)

// MaxLineChars is the line capacity used by the tool's prompts, counting
// the terminator slot: at most MaxLineChars-1 characters are collected.
const MaxLineChars = 128

// ErrCancelled is returned when the user presses Esc. It matches
// volume.StatusAborted.
var ErrCancelled = fmt.Errorf("input cancelled: %w", volume.StatusAborted)

// ReadLine prints prompt and collects printable ASCII characters until
// Enter (returns the text) or Esc (returns ErrCancelled).
//
// maxChars is the capacity including the terminator slot, so at most
// maxChars-1 characters are kept; further printable input is dropped
// without echo. Backspace erases the last character. Other keys and key
// read errors are ignored.
//
// Returns:
//   - volume.StatusInvalidParameter if maxChars < 2 (nothing is printed)
//   - ctx.Err() if ctx is done while waiting for a key
//   - the WaitForKey error if the console can no longer deliver keys
func ReadLine(ctx context.Context, con console.Console, prompt string, maxChars int) (string, error) {
	if maxChars < 2 {
		return "", volume.NewError(volume.StatusInvalidParameter, "read line", "", nil)
	}

	con.Print("%s", prompt)

	line := make([]byte, 0, maxChars-1)
	for {
		if err := con.WaitForKey(ctx); err != nil {
			return "", err
		}

		key, err := con.ReadKey()
		if err != nil {
			continue
		}

		switch {
		case key.Char == console.CharEnter:
			con.Print("\n")
			return string(line), nil

		case key.Scan == console.ScanEsc:
			con.Print("\n")
			return "", ErrCancelled

		case key.Char == console.CharBackspace:
			if len(line) > 0 {
				line = line[:len(line)-1]
				con.Print("\b \b")
			}

		case key.Scan == console.ScanNone && key.Char >= 0x20 && key.Char <= 0x7e:
			if len(line)+1 < maxChars {
				line = append(line, byte(key.Char))
				con.Print("%c", key.Char)
			}
		}
	}
}
