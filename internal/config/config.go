package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"time"

	"github.com/BurntSushi/toml"
)

// Link kinds accepted by [link] kind.
const (
	LinkMemory = "memory"
	LinkUDP    = "udp"
	LinkWS     = "ws"
	LinkNRF24  = "nrf24"
	LinkSerial = "serial"
)

// NRF24MaxPayload is the radio's static payload ceiling in bytes.
const NRF24MaxPayload = 32

// Config is the top-level configuration loaded from config.toml.
type Config struct {
	// Human-readable name for this node (used in burst history records).
	NodeName string `toml:"node_name"`

	Stream  StreamConfig  `toml:"stream"`
	Link    LinkConfig    `toml:"link"`
	Profile ProfileConfig `toml:"profile"`
	Store   StoreConfig   `toml:"store"`
}

// StreamConfig holds the streaming engine geometry and timing.
type StreamConfig struct {
	FrameLen         int `toml:"frame_len"`
	BurstLen         int `toml:"burst_len"`
	FailureThreshold int `toml:"failure_threshold"`
	PacingMs         int `toml:"pacing_ms"`
	PollTimeoutMs    int `toml:"poll_timeout_ms"`
}

// Pacing is the delay between transmit bursts.
func (s StreamConfig) Pacing() time.Duration { return time.Duration(s.PacingMs) * time.Millisecond }

// PollTimeout bounds the per-tick console command wait.
func (s StreamConfig) PollTimeout() time.Duration {
	return time.Duration(s.PollTimeoutMs) * time.Millisecond
}

// LinkConfig selects and parameterizes the transport.
type LinkConfig struct {
	Kind string `toml:"kind"`

	UDP    UDPConfig    `toml:"udp"`
	WS     WSConfig     `toml:"ws"`
	NRF24  NRF24Config  `toml:"nrf24"`
	Serial SerialConfig `toml:"serial"`
}

// UDPConfig describes the UDP link: a local bind address and the peer.
type UDPConfig struct {
	Listen string `toml:"listen,omitempty"`
	Peer   string `toml:"peer,omitempty"`
}

// WSConfig describes the WebSocket link. Exactly one of URL (dial out) or
// Listen (accept one peer) is used.
type WSConfig struct {
	URL    string `toml:"url,omitempty"`
	Listen string `toml:"listen,omitempty"`
}

// NRF24Config describes the SPI-attached radio.
type NRF24Config struct {
	// SPI port name as known to the host, e.g. "SPI0.0". Empty selects the
	// first available port.
	SPIPort string `toml:"spi_port,omitempty"`
	// Chip-enable GPIO pin name, e.g. "GPIO25".
	CEPin string `toml:"ce_pin"`
	// Air data rate: "250k", "1m" or "2m".
	DataRate string `toml:"data_rate,omitempty"`
	// Output power: "min", "low", "high" or "max". Defaults to "low", which
	// suits bench setups with the two radios close together.
	PALevel string `toml:"pa_level,omitempty"`
}

// SerialConfig describes a frame modem on a serial port.
type SerialConfig struct {
	Port string `toml:"port"`
	Baud int    `toml:"baud"`
}

// ProfileConfig identifies the point-to-point pairing. Either a shared
// passphrase (addresses and channel are derived from it) or explicit values.
type ProfileConfig struct {
	Passphrase string `toml:"passphrase,omitempty"`
	// Second marks this node as the second of the pair, swapping the
	// derived address orientation.
	Second bool `toml:"second,omitempty"`

	Channel   int    `toml:"channel,omitempty"`
	LocalAddr string `toml:"local_addr,omitempty"` // 5 bytes, hex
	PeerAddr  string `toml:"peer_addr,omitempty"`  // 5 bytes, hex
}

// StoreConfig controls the burst history database.
type StoreConfig struct {
	Enabled       bool   `toml:"enabled"`
	Path          string `toml:"path,omitempty"` // default <dataDir>/history.db
	RetentionDays int    `toml:"retention_days"`
}

var validNodeName = regexp.MustCompile(`^[a-zA-Z0-9_-]+$`)

// ValidateNodeName checks that name is non-empty and contains only
// alphanumeric characters, hyphens, or underscores.
func ValidateNodeName(name string) error {
	if name == "" || !validNodeName.MatchString(name) {
		return fmt.Errorf("node name must be non-empty and alphanumeric (with - or _), got: %q", name)
	}
	return nil
}

// defaultName derives a node name from the HOSTNAME or HOST environment
// variable, sanitising invalid characters to hyphens. Falls back to
// "airwire" if neither variable is set.
func defaultName() string {
	raw := os.Getenv("HOSTNAME")
	if raw == "" {
		raw = os.Getenv("HOST")
	}
	if raw == "" {
		return "airwire"
	}
	out := make([]byte, len(raw))
	for i := 0; i < len(raw); i++ {
		c := raw[i]
		if (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9') || c == '-' || c == '_' {
			out[i] = c
		} else {
			out[i] = '-'
		}
	}
	return string(out)
}

// Default returns the configuration used when no config.toml exists: the
// classic 32-frame stream over the in-memory link, history enabled.
func Default() *Config {
	return &Config{
		NodeName: defaultName(),
		Stream: StreamConfig{
			FrameLen:         32,
			BurstLen:         32,
			FailureThreshold: 100,
			PacingMs:         500,
			PollTimeoutMs:    500,
		},
		Link: LinkConfig{
			Kind: LinkMemory,
			Serial: SerialConfig{
				Baud: 115200,
			},
		},
		Profile: ProfileConfig{
			Channel:   76,
			LocalAddr: "314e6f6465", // "1Node"
			PeerAddr:  "324e6f6465", // "2Node"
		},
		Store: StoreConfig{
			Enabled:       true,
			RetentionDays: 30,
		},
	}
}

// Load reads config.toml from dataDir, applies environment variable
// overrides, and validates the result. A missing file yields the defaults.
func Load(dataDir string) (*Config, error) {
	path := filepath.Join(dataDir, "config.toml")

	cfg := Default()

	if _, err := os.Stat(path); err == nil {
		if _, err := toml.DecodeFile(path, cfg); err != nil {
			return nil, fmt.Errorf("parsing %s: %w", path, err)
		}
		if cfg.NodeName == "" {
			cfg.NodeName = defaultName()
		}
	}

	applyEnv(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyEnv layers AIRWIRE_* environment variables over cfg.
func applyEnv(cfg *Config) {
	if v := os.Getenv("AIRWIRE_NODE_NAME"); v != "" {
		cfg.NodeName = v
	}
	if v := os.Getenv("AIRWIRE_LINK"); v != "" {
		cfg.Link.Kind = v
	}
	if v := os.Getenv("AIRWIRE_UDP_LISTEN"); v != "" {
		cfg.Link.UDP.Listen = v
	}
	if v := os.Getenv("AIRWIRE_UDP_PEER"); v != "" {
		cfg.Link.UDP.Peer = v
	}
	if v := os.Getenv("AIRWIRE_WS_URL"); v != "" {
		cfg.Link.WS.URL = v
	}
	if v := os.Getenv("AIRWIRE_WS_LISTEN"); v != "" {
		cfg.Link.WS.Listen = v
	}
	if v := os.Getenv("AIRWIRE_SERIAL_PORT"); v != "" {
		cfg.Link.Serial.Port = v
	}
	if v := os.Getenv("AIRWIRE_PASSPHRASE"); v != "" {
		cfg.Profile.Passphrase = v
	}
}

var validHexAddr = regexp.MustCompile(`^[0-9a-fA-F]{10}$`)

// Validate checks the whole configuration and returns the first problem.
func (c *Config) Validate() error {
	if err := ValidateNodeName(c.NodeName); err != nil {
		return err
	}
	if c.Stream.FrameLen < 1 {
		return fmt.Errorf("stream.frame_len must be >= 1, got %d", c.Stream.FrameLen)
	}
	if c.Stream.BurstLen < 1 {
		return fmt.Errorf("stream.burst_len must be >= 1, got %d", c.Stream.BurstLen)
	}
	if c.Stream.FailureThreshold < 1 {
		return fmt.Errorf("stream.failure_threshold must be >= 1, got %d", c.Stream.FailureThreshold)
	}
	if c.Stream.PacingMs < 0 || c.Stream.PollTimeoutMs < 0 {
		return fmt.Errorf("stream pacing and poll timeout must not be negative")
	}

	switch c.Link.Kind {
	case LinkMemory:
	case LinkUDP:
		if c.Link.UDP.Listen == "" && c.Link.UDP.Peer == "" {
			return fmt.Errorf("link.udp needs a listen address, a peer address, or both")
		}
	case LinkWS:
		if (c.Link.WS.URL == "") == (c.Link.WS.Listen == "") {
			return fmt.Errorf("link.ws needs exactly one of url or listen")
		}
	case LinkNRF24:
		if c.Stream.FrameLen > NRF24MaxPayload {
			return fmt.Errorf("stream.frame_len %d exceeds the radio payload limit of %d", c.Stream.FrameLen, NRF24MaxPayload)
		}
		if c.Link.NRF24.CEPin == "" {
			return fmt.Errorf("link.nrf24.ce_pin is required")
		}
		switch c.Link.NRF24.DataRate {
		case "", "250k", "1m", "2m":
		default:
			return fmt.Errorf("link.nrf24.data_rate must be 250k, 1m or 2m, got %q", c.Link.NRF24.DataRate)
		}
		switch c.Link.NRF24.PALevel {
		case "", "min", "low", "high", "max":
		default:
			return fmt.Errorf("link.nrf24.pa_level must be min, low, high or max, got %q", c.Link.NRF24.PALevel)
		}
	case LinkSerial:
		if c.Link.Serial.Port == "" {
			return fmt.Errorf("link.serial.port is required")
		}
		if c.Link.Serial.Baud <= 0 {
			return fmt.Errorf("link.serial.baud must be positive, got %d", c.Link.Serial.Baud)
		}
	default:
		return fmt.Errorf("unknown link kind %q", c.Link.Kind)
	}

	if c.Profile.Channel < 0 || c.Profile.Channel > 125 {
		return fmt.Errorf("profile.channel must be in 0..125, got %d", c.Profile.Channel)
	}
	if c.Profile.Passphrase == "" {
		if c.Profile.LocalAddr != "" && !validHexAddr.MatchString(c.Profile.LocalAddr) {
			return fmt.Errorf("profile.local_addr must be 5 bytes of hex, got %q", c.Profile.LocalAddr)
		}
		if c.Profile.PeerAddr != "" && !validHexAddr.MatchString(c.Profile.PeerAddr) {
			return fmt.Errorf("profile.peer_addr must be 5 bytes of hex, got %q", c.Profile.PeerAddr)
		}
	}
	if c.Store.RetentionDays < 0 {
		return fmt.Errorf("store.retention_days must not be negative, got %d", c.Store.RetentionDays)
	}
	return nil
}

// Save writes the configuration to config.toml inside dataDir, creating the
// directory if necessary.
func (c *Config) Save(dataDir string) error {
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return fmt.Errorf("creating data dir: %w", err)
	}

	path := filepath.Join(dataDir, "config.toml")
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating %s: %w", path, err)
	}
	defer f.Close()

	enc := toml.NewEncoder(f)
	if err := enc.Encode(c); err != nil {
		return fmt.Errorf("encoding config.toml: %w", err)
	}
	return nil
}

// StorePath resolves the history database location for dataDir.
func (c *Config) StorePath(dataDir string) string {
	if c.Store.Path != "" {
		return c.Store.Path
	}
	return filepath.Join(dataDir, "history.db")
}
