package console

import (
	"os"

	"golang.org/x/term"
)

// RawModeGuard remembers the terminal state so it can be restored.
type RawModeGuard struct {
	fd       int
	oldState *term.State
}

// EnableRawMode switches f into raw mode.
func EnableRawMode(f *os.File) (*RawModeGuard, error) {
	fd := int(f.Fd())
	oldState, err := term.MakeRaw(fd)
	if err != nil {
		return nil, err
	}
	return &RawModeGuard{fd: fd, oldState: oldState}, nil
}

// Restore puts the terminal back the way it was.
func (g *RawModeGuard) Restore() {
	term.Restore(g.fd, g.oldState)
}
