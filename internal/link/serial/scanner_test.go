package serial

import (
	"bytes"
	"errors"
	"io"
	"testing"
)

func TestScannerRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	frames := [][]byte{
		[]byte("A0000000000000011111111111111111"),
		[]byte("B"),
		[]byte("C1111111"),
	}
	for _, f := range frames {
		buf.Write(encodeFrame(f))
	}

	sc := NewScanner(&buf)
	for i, want := range frames {
		got, err := sc.Next()
		if err != nil {
			t.Fatalf("frame %d: %v", i, err)
		}
		if !bytes.Equal(got, want) {
			t.Fatalf("frame %d = %q, want %q", i, got, want)
		}
	}
	if _, err := sc.Next(); !errors.Is(err, io.EOF) {
		t.Fatalf("expected EOF, got %v", err)
	}
}

func TestScannerStuffsDelimiterBytes(t *testing.T) {
	payload := []byte{0xC0, 0xDB, 0x41, 0xC0}
	var buf bytes.Buffer
	buf.Write(encodeFrame(payload))

	sc := NewScanner(&buf)
	got, err := sc.Next()
	if err != nil {
		t.Fatalf("next: %v", err)
	}
	if !bytes.Equal(got, payload) {
		t.Fatalf("got %x, want %x", got, payload)
	}
}

func TestScannerResyncsAfterGarbage(t *testing.T) {
	var buf bytes.Buffer
	buf.Write([]byte{0x01, 0x02, 0xDB, 0xFF, 0x03})
	buf.Write(encodeFrame([]byte("good")))

	sc := NewScanner(&buf)
	got, err := sc.Next()
	if err != nil {
		t.Fatalf("next: %v", err)
	}
	if string(got) != "good" {
		t.Fatalf("got %q, want %q", got, "good")
	}
}

func TestScannerRejectsBadChecksum(t *testing.T) {
	frame := encodeFrame([]byte("tampered"))
	frame[2] ^= 0xFF

	var buf bytes.Buffer
	buf.Write(frame)
	buf.Write(encodeFrame([]byte("clean")))

	sc := NewScanner(&buf)
	got, err := sc.Next()
	if err != nil {
		t.Fatalf("next: %v", err)
	}
	if string(got) != "clean" {
		t.Fatalf("got %q, want %q", got, "clean")
	}
}

func TestScannerSkipsOversizedSegment(t *testing.T) {
	var buf bytes.Buffer
	buf.WriteByte(frameEnd)
	buf.Write(bytes.Repeat([]byte{0x01}, maxFrame+10))
	buf.WriteByte(frameEnd)
	buf.Write(encodeFrame([]byte("after")))

	sc := NewScanner(&buf)
	got, err := sc.Next()
	if err != nil {
		t.Fatalf("next: %v", err)
	}
	if string(got) != "after" {
		t.Fatalf("got %q, want %q", got, "after")
	}
}
