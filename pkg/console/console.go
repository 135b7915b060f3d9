// Package console provides the text display and keyboard input the
// interactive tool is driven through.
package console

import (
	"context"
	"errors"
)

// ScanCode identifies a non-character key.
type ScanCode uint8

const (
	ScanNone ScanCode = iota
	ScanUp
	ScanDown
	ScanEsc
)

func (s ScanCode) String() string {
	switch s {
	case ScanNone:
		return "None"
	case ScanUp:
		return "Up"
	case ScanDown:
		return "Down"
	case ScanEsc:
		return "Esc"
	default:
		return "Unknown"
	}
}

// Character codes delivered in Key.Char.
const (
	CharEnter     rune = '\r'
	CharBackspace rune = 0x08
)

// Key is one keystroke. Exactly one of Char and Scan is meaningful: Char
// is zero for scan-code keys and Scan is ScanNone for character keys.
type Key struct {
	Char rune
	Scan ScanCode
}

// Convenience keys.
var (
	KeyEnter     = Key{Char: CharEnter}
	KeyBackspace = Key{Char: CharBackspace}
	KeyEsc       = Key{Scan: ScanEsc}
	KeyUp        = Key{Scan: ScanUp}
	KeyDown      = Key{Scan: ScanDown}
)

// Attribute selects the colours used by subsequent output.
type Attribute uint8

const (
	// AttrNormal is the default colours.
	AttrNormal Attribute = iota
	// AttrTitle is white on green.
	AttrTitle
	// AttrSelect is white on blue.
	AttrSelect
)

// ErrNoKey is returned by ReadKey when no keystroke is pending.
var ErrNoKey = errors.New("no key pending")

// Console is the text output and keyboard input used by prompts and file
// operations.
type Console interface {
	// Print formats and writes text. "\n" starts a new line.
	Print(format string, args ...any)

	// WaitForKey blocks until a keystroke is available or ctx is done.
	WaitForKey(ctx context.Context) error

	// ReadKey returns the next pending keystroke, or ErrNoKey.
	ReadKey() (Key, error)
}

// Display is a Console that can also clear the screen and change colours,
// as the menu needs.
type Display interface {
	Console

	// Clear blanks the screen and homes the cursor.
	Clear()

	// SetAttribute sets the colours for subsequent output.
	SetAttribute(attr Attribute)
}

// Pause prints the continue hint and waits for any key, consuming it.
func Pause(ctx context.Context, con Console) error {
	con.Print("\nPress any key to continue...")
	if err := con.WaitForKey(ctx); err != nil {
		return err
	}
	_, _ = con.ReadKey()
	return nil
}
