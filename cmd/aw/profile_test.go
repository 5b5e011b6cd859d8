package main

import (
	"encoding/hex"
	"testing"

	"github.com/airwire/airwire/internal/config"
	"github.com/airwire/airwire/internal/profile"
)

func TestResolveProfileExplicit(t *testing.T) {
	cfg := config.Default()
	cfg.Profile.Channel = 90
	cfg.Profile.LocalAddr = "314e6f6465"
	cfg.Profile.PeerAddr = "324e6f6465"

	p, err := resolveProfile(cfg)
	if err != nil {
		t.Fatalf("resolveProfile: %v", err)
	}
	if p.Channel != 90 {
		t.Errorf("channel = %d, want 90", p.Channel)
	}
	if got := hex.EncodeToString(p.LocalAddr[:]); got != "314e6f6465" {
		t.Errorf("local addr = %s, want 314e6f6465", got)
	}
	if got := hex.EncodeToString(p.PeerAddr[:]); got != "324e6f6465" {
		t.Errorf("peer addr = %s, want 324e6f6465", got)
	}
}

func TestResolveProfilePassphraseWins(t *testing.T) {
	cfg := config.Default()
	cfg.Profile.Passphrase = "over the drawbridge"

	p, err := resolveProfile(cfg)
	if err != nil {
		t.Fatalf("resolveProfile: %v", err)
	}
	want, err := profile.Derive("over the drawbridge", false)
	if err != nil {
		t.Fatalf("Derive: %v", err)
	}
	if p != want {
		t.Errorf("profile = %+v, want derived %+v", p, want)
	}
}

func TestResolveProfileOrientationsMirror(t *testing.T) {
	first := config.Default()
	first.Profile.Passphrase = "same phrase"
	second := config.Default()
	second.Profile.Passphrase = "same phrase"
	second.Profile.Second = true

	a, err := resolveProfile(first)
	if err != nil {
		t.Fatalf("resolveProfile first: %v", err)
	}
	b, err := resolveProfile(second)
	if err != nil {
		t.Fatalf("resolveProfile second: %v", err)
	}
	if a.Channel != b.Channel {
		t.Errorf("channels differ: %d vs %d", a.Channel, b.Channel)
	}
	if a.LocalAddr != b.PeerAddr || a.PeerAddr != b.LocalAddr {
		t.Errorf("orientations do not mirror: %+v vs %+v", a, b)
	}
}

func TestApplyProfileRoundTrip(t *testing.T) {
	cfg := config.Default()
	cfg.Profile.Passphrase = "about to be replaced"
	cfg.Profile.Second = true

	p, err := profile.Derive("fresh pairing", false)
	if err != nil {
		t.Fatalf("Derive: %v", err)
	}
	applyProfile(cfg, p)

	if cfg.Profile.Passphrase != "" || cfg.Profile.Second {
		t.Errorf("passphrase fields not cleared: %+v", cfg.Profile)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate after apply: %v", err)
	}
	round, err := resolveProfile(cfg)
	if err != nil {
		t.Fatalf("resolveProfile after apply: %v", err)
	}
	if round != p {
		t.Errorf("round trip = %+v, want %+v", round, p)
	}
}
