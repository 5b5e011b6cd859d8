// Package profile identifies one point-to-point pairing: the radio channel
// and the two 5-byte pipe addresses. A profile can be stated explicitly in
// the config or derived from a shared passphrase, so two field nodes can pair
// by agreeing on a phrase instead of exchanging addresses.
package profile

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"strings"

	"golang.org/x/crypto/hkdf"
)

// AddrLen is the pipe address width in bytes.
const AddrLen = 5

// MaxChannel is the highest usable radio channel.
const MaxChannel = 125

// hkdf parameters; fixed so both nodes derive identical profiles.
var (
	deriveSalt = []byte("airwire profile v1")
	deriveInfo = []byte("pairing")
)

// Profile is one node's view of a pairing: the channel, the address it
// listens on, and the address it transmits to. The peer holds the mirror
// image.
type Profile struct {
	Channel   uint8
	LocalAddr [AddrLen]byte
	PeerAddr  [AddrLen]byte
}

// Derive builds a profile from a shared passphrase. Both nodes call this
// with the same phrase; exactly one of them passes second=true to take the
// mirrored orientation.
func Derive(passphrase string, second bool) (Profile, error) {
	if passphrase == "" {
		return Profile{}, fmt.Errorf("profile: empty passphrase")
	}
	r := hkdf.New(sha256.New, []byte(passphrase), deriveSalt, deriveInfo)
	var raw [2*AddrLen + 1]byte
	if _, err := io.ReadFull(r, raw[:]); err != nil {
		return Profile{}, fmt.Errorf("profile: deriving key material: %w", err)
	}

	var p Profile
	p.Channel = raw[2*AddrLen] % (MaxChannel + 1)
	copy(p.LocalAddr[:], raw[:AddrLen])
	copy(p.PeerAddr[:], raw[AddrLen:2*AddrLen])
	if second {
		p.LocalAddr, p.PeerAddr = p.PeerAddr, p.LocalAddr
	}
	return p, nil
}

// Parse builds a profile from explicit channel and hex addresses.
func Parse(channel int, localHex, peerHex string) (Profile, error) {
	if channel < 0 || channel > MaxChannel {
		return Profile{}, fmt.Errorf("profile: channel %d out of range 0..%d", channel, MaxChannel)
	}
	var p Profile
	p.Channel = uint8(channel)
	if err := decodeAddr(localHex, &p.LocalAddr); err != nil {
		return Profile{}, fmt.Errorf("profile: local address: %w", err)
	}
	if err := decodeAddr(peerHex, &p.PeerAddr); err != nil {
		return Profile{}, fmt.Errorf("profile: peer address: %w", err)
	}
	return p, nil
}

func decodeAddr(s string, dst *[AddrLen]byte) error {
	raw, err := hex.DecodeString(s)
	if err != nil {
		return err
	}
	if len(raw) != AddrLen {
		return fmt.Errorf("need %d bytes, got %d", AddrLen, len(raw))
	}
	copy(dst[:], raw)
	return nil
}

// Swapped returns the peer's orientation of the same pairing.
func (p Profile) Swapped() Profile {
	p.LocalAddr, p.PeerAddr = p.PeerAddr, p.LocalAddr
	return p
}

// Encode renders the profile as a compact single-line pairing string,
// suitable for a QR code. The encoded orientation is the receiver's: parse
// it on the other node as-is.
func (p Profile) Encode() string {
	m := p.Swapped()
	return fmt.Sprintf("AW1:%02x:%s:%s",
		m.Channel,
		hex.EncodeToString(m.LocalAddr[:]),
		hex.EncodeToString(m.PeerAddr[:]))
}

// Decode parses a pairing string produced by Encode.
func Decode(s string) (Profile, error) {
	parts := strings.Split(strings.TrimSpace(s), ":")
	if len(parts) != 4 || parts[0] != "AW1" {
		return Profile{}, fmt.Errorf("profile: not an AW1 pairing string")
	}
	chRaw, err := hex.DecodeString(parts[1])
	if err != nil || len(chRaw) != 1 {
		return Profile{}, fmt.Errorf("profile: bad channel field %q", parts[1])
	}
	if chRaw[0] > MaxChannel {
		return Profile{}, fmt.Errorf("profile: channel %d out of range 0..%d", chRaw[0], MaxChannel)
	}
	var p Profile
	p.Channel = chRaw[0]
	if err := decodeAddr(parts[2], &p.LocalAddr); err != nil {
		return Profile{}, fmt.Errorf("profile: local address: %w", err)
	}
	if err := decodeAddr(parts[3], &p.PeerAddr); err != nil {
		return Profile{}, fmt.Errorf("profile: peer address: %w", err)
	}
	return p, nil
}

// String renders the profile for display.
func (p Profile) String() string {
	return fmt.Sprintf("channel %d, local %s, peer %s",
		p.Channel,
		hex.EncodeToString(p.LocalAddr[:]),
		hex.EncodeToString(p.PeerAddr[:]))
}
