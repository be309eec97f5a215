// Package screen draws frames in place on the terminal and restores it
// afterwards.
package screen

import (
	"bufio"
	"io"
	"os"
	"sync"

	"golang.org/x/term"

	"termreel/internal/model"
)

const (
	escHome         = "\x1b[H"
	escClear        = "\x1b[2J"
	escClearBelow   = "\x1b[J"
	escReset        = "\x1b[0m"
	escHideCursor   = "\x1b[?25l"
	escShowCursor   = "\x1b[?25h"
	escAltScreenOn  = "\x1b[?1049h"
	escAltScreenOff = "\x1b[?1049l"
)

// Options configure a Screen.
type Options struct {
	AltScreen bool // Draw on the alternate screen buffer.
}

// Screen is the only writer of terminal display state during playback.
type Screen struct {
	mu       sync.Mutex
	w        *bufio.Writer
	opts     Options
	setup    bool
	restored bool
	restore  sync.Once
}

// New wraps out, typically os.Stdout.
func New(out io.Writer, opts Options) *Screen {
	return &Screen{
		w:    bufio.NewWriterSize(out, 64*1024),
		opts: opts,
	}
}

// Setup clears the display and hides the cursor.
func (s *Screen) Setup() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.restored {
		return nil
	}
	s.setup = true
	if s.opts.AltScreen {
		s.w.WriteString(escAltScreenOn)
	}
	s.w.WriteString(escClear + escHome + escHideCursor)
	return s.flush()
}

// Render overwrites the previous frame with f and flushes before returning.
func (s *Screen) Render(f model.FrameUnit) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.restored {
		return nil
	}
	s.w.WriteString(escHome)
	s.w.Write(f.Data)
	s.w.WriteString(escReset + escClearBelow)
	return s.flush()
}

// Restore undoes Setup. Only the first call writes anything; later and
// concurrent calls are no-ops.
func (s *Screen) Restore() error {
	var err error
	s.restore.Do(func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		s.restored = true
		if !s.setup {
			return
		}
		s.w.WriteString(escReset + escShowCursor)
		if s.opts.AltScreen {
			s.w.WriteString(escAltScreenOff)
		} else {
			s.w.WriteString("\n")
		}
		err = s.flush()
	})
	return err
}

func (s *Screen) flush() error {
	return s.w.Flush()
}

// IsTerminal reports whether f is attached to a terminal.
func IsTerminal(f *os.File) bool {
	return term.IsTerminal(int(f.Fd()))
}

// Width returns the column count of the terminal behind f, or 0 when f is
// not a terminal.
func Width(f *os.File) int {
	w, _, err := term.GetSize(int(f.Fd()))
	if err != nil {
		return 0
	}
	return w
}
