package serial

import (
	"bufio"
	"io"
)

// Wire framing: every frame travels as
//
//	0xC0  stuffed(payload + xor)  0xC0
//
// with 0xC0 escaped as 0xDB 0xDC and 0xDB as 0xDB 0xDD inside the body, so a
// delimiter byte can never appear mid-frame. The trailing byte is the XOR of
// the payload. Anything between delimiters that does not check out is
// discarded, which lets a reader resynchronize on a noisy line.
const (
	frameEnd = 0xC0
	frameEsc = 0xDB
	escEnd   = 0xDC
	escEsc   = 0xDD
	maxFrame = 4096
)

func xorSum(p []byte) byte {
	var s byte
	for _, b := range p {
		s ^= b
	}
	return s
}

// encodeFrame wraps payload in the wire framing.
func encodeFrame(payload []byte) []byte {
	out := make([]byte, 0, len(payload)+4)
	out = append(out, frameEnd)
	body := make([]byte, 0, len(payload)+1)
	body = append(body, payload...)
	body = append(body, xorSum(payload))
	for _, b := range body {
		switch b {
		case frameEnd:
			out = append(out, frameEsc, escEnd)
		case frameEsc:
			out = append(out, frameEsc, escEsc)
		default:
			out = append(out, b)
		}
	}
	return append(out, frameEnd)
}

// Scanner extracts framed payloads from a byte stream.
type Scanner struct {
	r   *bufio.Reader
	cur []byte
	esc bool
	bad bool
}

// NewScanner wraps r.
func NewScanner(r io.Reader) *Scanner {
	return &Scanner{r: bufio.NewReader(r)}
}

// Next blocks until the next valid frame and returns its payload. Invalid or
// oversized segments are skipped. The returned slice is freshly allocated.
func (s *Scanner) Next() ([]byte, error) {
	for {
		b, err := s.r.ReadByte()
		if err != nil {
			return nil, err
		}
		switch {
		case b == frameEnd:
			payload, ok := s.finish()
			if ok {
				return payload, nil
			}
		case s.bad:
			// skip until the next delimiter
		case b == frameEsc:
			s.esc = true
		case s.esc:
			s.esc = false
			switch b {
			case escEnd:
				s.push(frameEnd)
			case escEsc:
				s.push(frameEsc)
			default:
				s.bad = true
			}
		default:
			s.push(b)
		}
	}
}

func (s *Scanner) push(b byte) {
	if len(s.cur) >= maxFrame {
		s.bad = true
		return
	}
	s.cur = append(s.cur, b)
}

// finish validates the accumulated segment and resets state for the next one.
func (s *Scanner) finish() ([]byte, bool) {
	seg := s.cur
	bad := s.bad || s.esc
	s.cur = nil
	s.esc = false
	s.bad = false

	if bad || len(seg) < 2 {
		return nil, false
	}
	payload, sum := seg[:len(seg)-1], seg[len(seg)-1]
	if xorSum(payload) != sum {
		return nil, false
	}
	return payload, true
}
