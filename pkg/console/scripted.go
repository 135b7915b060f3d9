package console

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// ErrScriptExhausted is returned by Scripted.WaitForKey once every
// scripted key has been consumed.
var ErrScriptExhausted = errors.New("key script exhausted")

type scriptStep struct {
	key Key
	err error
}

// Scripted is a Display that replays a fixed key script and captures all
// output. It is used to drive prompts and menus deterministically.
type Scripted struct {
	steps []scriptStep
	out   strings.Builder

	// Clears counts calls to Clear.
	Clears int

	// Attributes records every SetAttribute call in order.
	Attributes []Attribute

	// Waits counts calls to WaitForKey.
	Waits int
}

var _ Display = (*Scripted)(nil)

// NewScripted returns a console that will deliver keys in order.
func NewScripted(keys ...Key) *Scripted {
	s := &Scripted{}
	s.Push(keys...)
	return s
}

// Push appends keys to the script.
func (s *Scripted) Push(keys ...Key) {
	for _, k := range keys {
		s.steps = append(s.steps, scriptStep{key: k})
	}
}

// PushText appends one character key per byte of text.
func (s *Scripted) PushText(text string) {
	s.Push(Text(text)...)
}

// PushError appends a step on which ReadKey fails with err.
func (s *Scripted) PushError(err error) {
	s.steps = append(s.steps, scriptStep{err: err})
}

// Remaining returns the number of unconsumed script steps.
func (s *Scripted) Remaining() int {
	return len(s.steps)
}

// Output returns everything printed so far.
func (s *Scripted) Output() string {
	return s.out.String()
}

// ResetOutput discards captured output.
func (s *Scripted) ResetOutput() {
	s.out.Reset()
}

func (s *Scripted) Print(format string, args ...any) {
	fmt.Fprintf(&s.out, format, args...)
}

func (s *Scripted) WaitForKey(ctx context.Context) error {
	s.Waits++
	if err := ctx.Err(); err != nil {
		return err
	}
	if len(s.steps) == 0 {
		return ErrScriptExhausted
	}
	return nil
}

func (s *Scripted) ReadKey() (Key, error) {
	if len(s.steps) == 0 {
		return Key{}, ErrNoKey
	}
	step := s.steps[0]
	s.steps = s.steps[1:]
	if step.err != nil {
		return Key{}, step.err
	}
	return step.key, nil
}

func (s *Scripted) Clear() {
	s.Clears++
}

func (s *Scripted) SetAttribute(attr Attribute) {
	s.Attributes = append(s.Attributes, attr)
}

// Text converts each byte of text into a character key.
func Text(text string) []Key {
	keys := make([]Key, 0, len(text))
	for i := 0; i < len(text); i++ {
		keys = append(keys, Key{Char: rune(text[i])})
	}
	return keys
}
