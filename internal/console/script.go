package console

import (
	"sync"
	"time"
)

// Script is a canned Console for tests and demos: commands are served from a
// queue without waiting, displayed lines are recorded.
type Script struct {
	mu    sync.Mutex
	queue []rune
	lines []string
}

// NewScript returns a Script that will serve cmds in order.
func NewScript(cmds ...rune) *Script {
	return &Script{queue: cmds}
}

// Push appends a command to the queue.
func (s *Script) Push(cmd rune) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.queue = append(s.queue, cmd)
}

// ReadCommand pops the next queued command immediately; the timeout is not
// waited out.
func (s *Script) ReadCommand(time.Duration) (rune, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.queue) == 0 {
		return 0, false
	}
	cmd := s.queue[0]
	s.queue = s.queue[1:]
	return cmd, true
}

// Display records the line.
func (s *Script) Display(text string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lines = append(s.lines, text)
}

// Lines returns a copy of everything displayed so far.
func (s *Script) Lines() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.lines...)
}
