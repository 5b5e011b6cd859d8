package profile

import "testing"

func TestDeriveDeterministic(t *testing.T) {
	a, err := Derive("orchard valley static", false)
	if err != nil {
		t.Fatalf("derive: %v", err)
	}
	b, err := Derive("orchard valley static", false)
	if err != nil {
		t.Fatalf("derive: %v", err)
	}
	if a != b {
		t.Fatalf("expected identical profiles, got %v and %v", a, b)
	}
}

func TestDeriveDistinctPassphrases(t *testing.T) {
	a, _ := Derive("orchard valley static", false)
	b, _ := Derive("orchard valley dynamic", false)
	if a == b {
		t.Fatalf("different passphrases derived the same profile: %v", a)
	}
}

func TestDeriveOrientations(t *testing.T) {
	first, err := Derive("orchard valley static", false)
	if err != nil {
		t.Fatalf("derive first: %v", err)
	}
	second, err := Derive("orchard valley static", true)
	if err != nil {
		t.Fatalf("derive second: %v", err)
	}
	if first.Channel != second.Channel {
		t.Fatalf("orientations disagree on channel: %d vs %d", first.Channel, second.Channel)
	}
	if first.LocalAddr != second.PeerAddr || first.PeerAddr != second.LocalAddr {
		t.Fatalf("expected mirrored addresses:\nfirst  %v\nsecond %v", first, second)
	}
	if first.Swapped() != second {
		t.Fatalf("Swapped does not produce the peer orientation")
	}
}

func TestDeriveChannelInRange(t *testing.T) {
	for _, phrase := range []string{"a", "b", "c", "longer passphrase here", "0x00"} {
		p, err := Derive(phrase, false)
		if err != nil {
			t.Fatalf("derive %q: %v", phrase, err)
		}
		if p.Channel > MaxChannel {
			t.Fatalf("channel %d out of range for %q", p.Channel, phrase)
		}
	}
}

func TestDeriveEmptyPassphrase(t *testing.T) {
	if _, err := Derive("", false); err == nil {
		t.Fatalf("expected error for empty passphrase")
	}
}

func TestEncodeDecodePairing(t *testing.T) {
	first, _ := Derive("orchard valley static", false)
	encoded := first.Encode()

	decoded, err := Decode(encoded)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	// The encoded orientation is the peer's: decoding on the other node
	// must yield the mirror of the encoder's profile.
	if decoded != first.Swapped() {
		t.Fatalf("expected %v, got %v", first.Swapped(), decoded)
	}
}

func TestDecodeRejectsGarbage(t *testing.T) {
	cases := []string{
		"",
		"AW1:zz:314e6f6465:324e6f6465",
		"AW2:4c:314e6f6465:324e6f6465",
		"AW1:4c:314e",
		"AW1:ff:314e6f6465:324e6f6465", // channel 255 out of range
	}
	for _, s := range cases {
		if _, err := Decode(s); err == nil {
			t.Fatalf("expected decode error for %q", s)
		}
	}
}

func TestParseExplicit(t *testing.T) {
	p, err := Parse(76, "314e6f6465", "324e6f6465")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if p.Channel != 76 {
		t.Fatalf("expected channel 76, got %d", p.Channel)
	}
	if string(p.LocalAddr[:]) != "1Node" || string(p.PeerAddr[:]) != "2Node" {
		t.Fatalf("unexpected addresses: %v", p)
	}
	if _, err := Parse(130, "314e6f6465", "324e6f6465"); err == nil {
		t.Fatalf("expected channel range error")
	}
	if _, err := Parse(76, "314e", "324e6f6465"); err == nil {
		t.Fatalf("expected short address error")
	}
}
