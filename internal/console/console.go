// Package console provides the command/display collaborator for the node
// loop: single-character role commands in, human-readable status lines out.
// The interactive implementation reads a raw-mode TTY; scripted and channel
// implementations back tests and the TUI.
package console

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/mattn/go-isatty"
)

// Console is consumed by the node loop.
type Console interface {
	// ReadCommand waits up to timeout for one input character.
	ReadCommand(timeout time.Duration) (rune, bool)
	// Display emits one status line.
	Display(text string)
}

// Interrupt is delivered as a command byte when the terminal is in raw mode
// and the operator presses ctrl-c. Callers that care should check for it.
const Interrupt = rune(0x03)

// Terminal is an interactive Console on a TTY. Input is pumped a byte at a
// time by a background reader so command polls can time out; output lines are
// written CR/LF-terminated while the terminal is raw.
type Terminal struct {
	out   io.Writer
	keys  chan byte
	guard *RawModeGuard
	raw   bool
}

// Open puts stdin in raw mode when it is a TTY and returns a Terminal on
// stdin/stdout. On a non-TTY stdin (a pipe, say) raw mode is skipped and
// commands arrive line-buffered.
func Open() (*Terminal, error) {
	raw := isatty.IsTerminal(os.Stdin.Fd()) || isatty.IsCygwinTerminal(os.Stdin.Fd())
	return open(os.Stdin, os.Stdout, raw)
}

func open(in *os.File, out io.Writer, raw bool) (*Terminal, error) {
	t := &Terminal{out: out, keys: make(chan byte, 16), raw: raw}
	if raw {
		guard, err := EnableRawMode(in)
		if err != nil {
			return nil, fmt.Errorf("entering raw mode: %w", err)
		}
		t.guard = guard
	}
	go t.pump(in)
	return t, nil
}

// pump feeds stdin bytes into the key channel. It exits on read error; a
// blocked read simply dies with the process.
func (t *Terminal) pump(in *os.File) {
	buf := make([]byte, 1)
	for {
		n, err := in.Read(buf)
		if n > 0 {
			t.keys <- buf[0]
		}
		if err != nil {
			return
		}
	}
}

// ReadCommand returns the next queued input byte, waiting up to timeout.
func (t *Terminal) ReadCommand(timeout time.Duration) (rune, bool) {
	select {
	case b := <-t.keys:
		return rune(b), true
	case <-time.After(timeout):
		return 0, false
	}
}

// Display writes one line, carriage-return aware for raw terminals.
func (t *Terminal) Display(text string) {
	if t.raw {
		fmt.Fprintf(t.out, "%s\r\n", text)
		return
	}
	fmt.Fprintf(t.out, "%s\n", text)
}

// Close restores the terminal state.
func (t *Terminal) Close() {
	if t.guard != nil {
		t.guard.Restore()
	}
}
