// Package shell implements the menu that drives the file operations.
package shell

import (
	"context"
	"errors"
	"fmt"

	"github.com/marmos91/fstool/internal/logger"
	"github.com/marmos91/fstool/pkg/console"
	"github.com/marmos91/fstool/pkg/lineedit"
)

// Item is a menu entry.
type Item int

const (
	ItemCreate Item = iota
	ItemDelete
	ItemRead
	ItemCopy
	ItemMerge
	ItemExit

	itemCount
)

var itemLabels = [itemCount]string{
	"1. Create file",
	"2. Delete file",
	"3. Read file",
	"4. Copy file",
	"5. Merge two file",
	"6. Exit",
}

func (i Item) String() string {
	if i < 0 || i >= itemCount {
		return fmt.Sprintf("Item(%d)", int(i))
	}
	return itemLabels[i]
}

const (
	title  = "File System Utility"
	footer = "\n\nUp: Up   Down: Down   Enter: Select   Esc: Return\n"
)

// Operations are the interactive file operations the menu dispatches to.
// *fileops.Executor implements it.
type Operations interface {
	RunCreate(ctx context.Context) error
	RunDelete(ctx context.Context) error
	RunRead(ctx context.Context) error
	RunCopy(ctx context.Context) error
	RunMerge(ctx context.Context) error
}

// Shell is the interactive menu.
type Shell struct {
	display  console.Display
	ops      Operations
	selected Item
}

// New creates a shell with the first item selected.
func New(display console.Display, ops Operations) *Shell {
	return &Shell{display: display, ops: ops}
}

// Selected returns the highlighted item.
func (s *Shell) Selected() Item {
	return s.selected
}

// Run draws the menu and handles keys until the user exits (Esc, or Enter
// on Exit), returning nil. It returns an error only when the display can
// no longer deliver keys or ctx is done. Operation failures are reported
// by the operations themselves and never stop the menu.
func (s *Shell) Run(ctx context.Context) error {
	for {
		s.draw()

		if err := s.display.WaitForKey(ctx); err != nil {
			return err
		}
		key, err := s.display.ReadKey()
		if err != nil {
			continue
		}

		switch {
		case key.Scan == console.ScanUp:
			if s.selected > 0 {
				s.selected--
			}
		case key.Scan == console.ScanDown:
			if s.selected+1 < itemCount {
				s.selected++
			}
		case key.Char == console.CharEnter:
			if s.selected == ItemExit {
				return nil
			}
			if err := s.dispatch(ctx, s.selected); err != nil {
				return err
			}
		case key.Scan == console.ScanEsc:
			return nil
		}
	}
}

// dispatch runs one operation. Only context errors are returned.
func (s *Shell) dispatch(ctx context.Context, item Item) error {
	s.display.Clear()

	var err error
	switch item {
	case ItemCreate:
		err = s.ops.RunCreate(ctx)
	case ItemDelete:
		err = s.ops.RunDelete(ctx)
	case ItemRead:
		err = s.ops.RunRead(ctx)
	case ItemCopy:
		err = s.ops.RunCopy(ctx)
	case ItemMerge:
		err = s.ops.RunMerge(ctx)
	}

	switch {
	case err == nil:
		logger.Debug("%s: success", item)
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return err
	case errors.Is(err, lineedit.ErrCancelled):
		logger.Debug("%s: cancelled", item)
	default:
		logger.Info("%s: %v", item, err)
	}
	return nil
}

func (s *Shell) draw() {
	s.display.Clear()

	s.display.SetAttribute(console.AttrTitle)
	s.display.Print("%s\n", title)
	s.display.SetAttribute(console.AttrNormal)

	for i, label := range itemLabels {
		if Item(i) == s.selected {
			s.display.SetAttribute(console.AttrSelect)
		} else {
			s.display.SetAttribute(console.AttrNormal)
		}
		s.display.Print("%s\n", label)
	}

	s.display.SetAttribute(console.AttrNormal)
	s.display.Print(footer)
}
