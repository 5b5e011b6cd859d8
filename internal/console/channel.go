package console

import "time"

// Channel bridges an event-driven front end (the TUI) onto the Console
// contract: key presses are pushed in, display lines are consumed out.
type Channel struct {
	keys  chan rune
	lines chan string
}

// NewChannel returns a Channel with bounded queues on both sides.
func NewChannel() *Channel {
	return &Channel{
		keys:  make(chan rune, 16),
		lines: make(chan string, 64),
	}
}

// Push queues a key press, dropping it if the node loop is behind.
func (c *Channel) Push(cmd rune) {
	select {
	case c.keys <- cmd:
	default:
	}
}

// ReadCommand waits up to timeout for a pushed key.
func (c *Channel) ReadCommand(timeout time.Duration) (rune, bool) {
	select {
	case cmd := <-c.keys:
		return cmd, true
	case <-time.After(timeout):
		return 0, false
	}
}

// Display queues the line for the front end, dropping the line if the front
// end is behind.
func (c *Channel) Display(text string) {
	select {
	case c.lines <- text:
	default:
	}
}

// Lines is the stream of displayed lines.
func (c *Channel) Lines() <-chan string {
	return c.lines
}
