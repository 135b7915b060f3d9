package console

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/muesli/termenv"
	"golang.org/x/term"
)

const esc = 0x1b

// Terminal is a Display on a real terminal.
//
// Input is switched to raw mode and decoded into keys: CR or LF is Enter,
// DEL or BS is Backspace, "ESC [ A" / "ESC [ B" are Up / Down and a lone
// ESC is Esc. Output goes through termenv, with "\n" translated to "\r\n"
// because raw mode disables output post-processing.
type Terminal struct {
	in    *os.File
	fd    int
	state *term.State
	out   *termenv.Output

	attr Attribute

	// chunks carries raw input reads from the reader goroutine.
	chunks  chan []byte
	readErr chan error
	once    sync.Once
	pending []byte

	// afterCR is set when the last key was a CR, so that the LF of a
	// CRLF pair split across reads is not taken as a second Enter.
	afterCR bool
}

var _ Display = (*Terminal)(nil)

// NewTerminal puts in into raw mode (when it is a terminal) and prepares
// out for styled output. Close restores the terminal.
func NewTerminal(in, out *os.File) (*Terminal, error) {
	t := &Terminal{
		in:      in,
		fd:      int(in.Fd()),
		out:     termenv.NewOutput(out),
		chunks:  make(chan []byte),
		readErr: make(chan error, 1),
	}

	if term.IsTerminal(t.fd) {
		state, err := term.MakeRaw(t.fd)
		if err != nil {
			return nil, fmt.Errorf("failed to set raw mode: %w", err)
		}
		t.state = state
	}

	return t, nil
}

// Close restores the terminal to its previous mode.
func (t *Terminal) Close() error {
	t.out.Reset()
	if t.state == nil {
		return nil
	}
	if err := term.Restore(t.fd, t.state); err != nil {
		return fmt.Errorf("failed to restore terminal: %w", err)
	}
	t.state = nil
	return nil
}

func (t *Terminal) Print(format string, args ...any) {
	text := fmt.Sprintf(format, args...)
	text = strings.ReplaceAll(text, "\n", "\r\n")

	if t.attr != AttrNormal {
		text = t.style(text)
	}
	_, _ = io.WriteString(t.out, text)
}

func (t *Terminal) style(text string) string {
	s := t.out.String(text).Foreground(t.out.Color("15"))
	switch t.attr {
	case AttrTitle:
		s = s.Background(t.out.Color("2"))
	case AttrSelect:
		s = s.Background(t.out.Color("4"))
	}
	return s.String()
}

func (t *Terminal) Clear() {
	t.out.ClearScreen()
}

func (t *Terminal) SetAttribute(attr Attribute) {
	t.attr = attr
}

// WaitForKey blocks until a complete key is available. Input is read by a
// single background goroutine started on first use, so a cancelled wait
// does not lose keystrokes. An escape sequence split across reads is held
// until its final byte arrives.
func (t *Terminal) WaitForKey(ctx context.Context) error {
	for {
		t.skipLF()
		if _, consumed, _ := decodeKey(t.pending); consumed > 0 {
			return nil
		}

		t.once.Do(func() { go t.readLoop() })

		select {
		case <-ctx.Done():
			return ctx.Err()
		case chunk := <-t.chunks:
			t.pending = append(t.pending, chunk...)
		case err := <-t.readErr:
			return fmt.Errorf("failed to read terminal input: %w", err)
		}
	}
}

// skipLF drops an LF that completes a CR delivered by an earlier read.
func (t *Terminal) skipLF() {
	if !t.afterCR || len(t.pending) == 0 {
		return
	}
	if t.pending[0] == '\n' {
		t.pending = t.pending[1:]
	}
	t.afterCR = false
}

func (t *Terminal) readLoop() {
	buf := make([]byte, 64)
	for {
		n, err := t.in.Read(buf)
		if n > 0 {
			t.chunks <- append([]byte(nil), buf[:n]...)
		}
		if err != nil {
			t.readErr <- err
			return
		}
	}
}

// ReadKey decodes the next key from the pending input.
func (t *Terminal) ReadKey() (Key, error) {
	t.skipLF()
	key, consumed, ok := decodeKey(t.pending)
	if consumed == 0 {
		return Key{}, ErrNoKey
	}
	t.afterCR = t.pending[consumed-1] == '\r'
	t.pending = t.pending[consumed:]
	if !ok {
		return Key{}, fmt.Errorf("unsupported key sequence")
	}
	return key, nil
}

// decodeKey decodes one key from the front of input. It returns the key,
// the number of bytes consumed and whether the bytes formed a known key.
// Unknown escape sequences are consumed whole and reported as not ok. An
// escape sequence still missing its final byte consumes nothing, as does
// empty input. CRLF is a single Enter.
func decodeKey(input []byte) (Key, int, bool) {
	if len(input) == 0 {
		return Key{}, 0, false
	}

	switch b := input[0]; {
	case b == '\r':
		if len(input) > 1 && input[1] == '\n' {
			return KeyEnter, 2, true
		}
		return KeyEnter, 1, true
	case b == '\n':
		return KeyEnter, 1, true
	case b == 0x7f || b == 0x08:
		return KeyBackspace, 1, true
	case b == esc:
		if len(input) == 1 || (input[1] != '[' && input[1] != 'O') {
			return KeyEsc, 1, true
		}
		// CSI / SS3: parameters then a final byte in 0x40..0x7E.
		for i := 2; i < len(input); i++ {
			if input[i] >= 0x40 && input[i] <= 0x7e {
				switch input[i] {
				case 'A':
					return KeyUp, i + 1, true
				case 'B':
					return KeyDown, i + 1, true
				}
				return Key{}, i + 1, false
			}
		}
		return Key{}, 0, false
	default:
		// Bytes are delivered as single code units; multi-byte UTF-8
		// arrives as several non-printable keys.
		return Key{Char: rune(b)}, 1, true
	}
}
