// Package stream implements the half-duplex streaming engine: deterministic
// payload synthesis, the retry-with-reuse transmit burst, the poll-and-count
// receive step, and the role state machine that decides which of the two runs
// on a given tick.
package stream

import "fmt"

// Default stream geometry. Frame length and burst length are independent
// knobs; they coincide in the classic configuration.
const (
	DefaultFrameLen  = 32
	DefaultBurstLen  = 32
	DefaultThreshold = 100
)

// Frame is one fixed-length payload. Byte 0 is the marker identifying the
// frame's position within a burst; the remaining bytes are the pattern body.
type Frame []byte

// Marker returns the identifying first byte.
func (f Frame) Marker() byte {
	if len(f) == 0 {
		return 0
	}
	return f[0]
}

// String renders the frame for display. Payload bytes are printable ASCII by
// construction, but a frame that arrived over a real link is not trusted:
// anything unprintable is shown as '.'.
func (f Frame) String() string {
	out := make([]byte, len(f))
	for i, b := range f {
		if b < 0x20 || b > 0x7e {
			b = '.'
		}
		out[i] = b
	}
	return string(out)
}

// Generator synthesizes the deterministic test frames of one burst. It is
// pure: the same (FrameLen, BurstLen, i) always yields the same bytes.
type Generator struct {
	FrameLen int // L, bytes per frame, >= 1
	BurstLen int // N, frames per burst
}

// NewGenerator returns a Generator with the given geometry, falling back to
// the defaults for out-of-range values.
func NewGenerator(frameLen, burstLen int) Generator {
	if frameLen < 1 {
		frameLen = DefaultFrameLen
	}
	if burstLen < 1 {
		burstLen = DefaultBurstLen
	}
	return Generator{FrameLen: frameLen, BurstLen: burstLen}
}

// Marker returns the marker byte for burst position i: 'A'..'Z' for the first
// 26 positions, then 'a' onward. Distinct for every i while the burst fits
// the 52-letter alphabet.
func (g Generator) Marker(i int) byte {
	if i < 26 {
		return byte('A' + i)
	}
	return byte('a' + i - 26)
}

// Generate returns a freshly allocated frame for burst position i.
func (g Generator) Generate(i int) Frame {
	f := make(Frame, g.FrameLen)
	g.Fill(f, i)
	return f
}

// Fill writes frame i into dst, which must be exactly FrameLen bytes. The
// body draws a chevron: a '0' window centered on the middle of the body whose
// half-width grows as i moves away from the burst midpoint, '1' outside it.
// Positions i and BurstLen-1-i produce identical bodies.
func (g Generator) Fill(dst Frame, i int) {
	if len(dst) != g.FrameLen {
		panic(fmt.Sprintf("stream: Fill dst length %d, frame length %d", len(dst), g.FrameLen))
	}
	dst[0] = g.Marker(i)

	mid := (g.FrameLen - 1) / 2
	dist := g.BurstLen - 1 - 2*i
	if dist < 0 {
		dist = -dist
	}
	dist /= 2
	for j := 0; j < g.FrameLen-1; j++ {
		if j >= mid-dist && j < mid+dist {
			dst[j+1] = '0'
		} else {
			dst[j+1] = '1'
		}
	}
}
