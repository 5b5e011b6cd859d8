// Package nrf24 drives an nRF24L01+ transceiver over SPI plus a CE GPIO
// line. Auto-acknowledge, retransmission, and dynamic payloads are all
// disabled: the stream is fire-and-forget, and a send is rejected only when
// the transmit FIFO is full. ResendLast maps to the chip's REUSE_TX_PL
// command.
package nrf24

import (
	"fmt"
	"sync"
	"time"

	"periph.io/x/periph/conn/gpio"
	"periph.io/x/periph/conn/gpio/gpioreg"
	"periph.io/x/periph/conn/physic"
	"periph.io/x/periph/conn/spi"
	"periph.io/x/periph/conn/spi/spireg"
	"periph.io/x/periph/host"

	"github.com/airwire/airwire/internal/link"
)

// MaxPayload is the chip's static payload ceiling.
const MaxPayload = 32

// Options carries the bring-up parameters for one radio.
type Options struct {
	SPIPort     string
	CEPin       string
	Channel     uint8
	LocalAddr   [5]byte // this node's writing pipe
	PeerAddr    [5]byte // the peer's writing pipe, our reading pipe
	PayloadSize int
	DataRate    string // "250k", "1m", "2m"
	PALevel     string // "min", "low", "high", "max"
}

// Link is an nRF24L01+ transport end.
type Link struct {
	mu      sync.Mutex
	port    spi.PortCloser // nil when the conn was injected
	conn    spi.Conn
	ce      gpio.PinIO
	size    int
	baseCfg byte // CONFIG with PWR_UP and CRC, without PRIM_RX
	closed  bool
}

// Open initializes the periph host, claims the SPI port and CE pin, and
// programs the radio.
func Open(opts Options) (*Link, error) {
	if _, err := host.Init(); err != nil {
		return nil, fmt.Errorf("initializing periph host: %w", err)
	}
	port, err := spireg.Open(opts.SPIPort)
	if err != nil {
		return nil, fmt.Errorf("opening spi port %q: %w", opts.SPIPort, err)
	}
	conn, err := port.Connect(8*physic.MegaHertz, spi.Mode0, 8)
	if err != nil {
		port.Close()
		return nil, fmt.Errorf("configuring spi: %w", err)
	}
	ce := gpioreg.ByName(opts.CEPin)
	if ce == nil {
		port.Close()
		return nil, fmt.Errorf("ce pin %q not found", opts.CEPin)
	}
	l, err := newLink(conn, ce, opts)
	if err != nil {
		port.Close()
		return nil, err
	}
	l.port = port
	return l, nil
}

// newLink programs the radio through an already-connected SPI conn.
func newLink(conn spi.Conn, ce gpio.PinIO, opts Options) (*Link, error) {
	size := opts.PayloadSize
	if size <= 0 || size > MaxPayload {
		return nil, fmt.Errorf("payload size %d out of range 1..%d", opts.PayloadSize, MaxPayload)
	}
	if opts.Channel > 125 {
		return nil, fmt.Errorf("channel %d out of range 0..125", opts.Channel)
	}
	rate, err := dataRateBits(opts.DataRate)
	if err != nil {
		return nil, err
	}
	pa, err := paLevelBits(opts.PALevel)
	if err != nil {
		return nil, err
	}

	l := &Link{
		conn:    conn,
		ce:      ce,
		size:    size,
		baseCfg: cfgEnCRC | cfgCRCO | cfgPwrUp,
	}
	if err := l.ce.Out(gpio.Low); err != nil {
		return nil, fmt.Errorf("lowering ce: %w", err)
	}
	time.Sleep(5 * time.Millisecond) // power-on reset settle

	setup := []struct {
		reg byte
		val byte
	}{
		{regConfig, cfgEnCRC | cfgCRCO}, // configure powered down
		{regEnAA, 0x00},
		{regSetupRetr, 0x00},
		{regEnRXAddr, 0x03}, // pipes 0 and 1
		{regSetupAW, 0x03},  // 5-byte addresses
		{regRFCh, opts.Channel},
		{regRFSetup, rate | pa},
		{regDynPD, 0x00},
		{regFeature, 0x00},
		{regRXPwP0, byte(size)},
		{regRXPwP1, byte(size)},
	}
	for _, s := range setup {
		if err := l.writeReg(s.reg, s.val); err != nil {
			return nil, err
		}
	}
	if err := l.writeAddr(regTXAddr, opts.LocalAddr); err != nil {
		return nil, err
	}
	if err := l.writeAddr(regRXAddrP0, opts.LocalAddr); err != nil {
		return nil, err
	}
	if err := l.writeAddr(regRXAddrP1, opts.PeerAddr); err != nil {
		return nil, err
	}

	if err := l.command(cmdFlushTX); err != nil {
		return nil, err
	}
	if err := l.command(cmdFlushRX); err != nil {
		return nil, err
	}
	if err := l.writeReg(regStatus, statRXDR|statTXDS|statMaxRT); err != nil {
		return nil, err
	}

	if err := l.writeReg(regConfig, l.baseCfg); err != nil {
		return nil, err
	}
	time.Sleep(2 * time.Millisecond) // power-up settle
	return l, nil
}

// --- SPI plumbing ---

func (l *Link) xfer(out []byte) ([]byte, error) {
	in := make([]byte, len(out))
	if err := l.conn.Tx(out, in); err != nil {
		return nil, fmt.Errorf("spi transfer: %w", err)
	}
	return in, nil
}

func (l *Link) command(cmd byte) error {
	_, err := l.xfer([]byte{cmd})
	return err
}

func (l *Link) readReg(reg byte) (byte, error) {
	in, err := l.xfer([]byte{cmdRRegister | reg, cmdNop})
	if err != nil {
		return 0, err
	}
	return in[1], nil
}

func (l *Link) writeReg(reg, val byte) error {
	_, err := l.xfer([]byte{cmdWRegister | reg, val})
	return err
}

func (l *Link) writeAddr(reg byte, addr [5]byte) error {
	out := make([]byte, 6)
	out[0] = cmdWRegister | reg
	copy(out[1:], addr[:])
	_, err := l.xfer(out)
	return err
}

func (l *Link) status() (byte, error) {
	in, err := l.xfer([]byte{cmdNop})
	if err != nil {
		return 0, err
	}
	return in[0], nil
}

// --- Link interface ---

// FlushOutbound empties the transmit FIFO and clears the transmit flags.
func (l *Link) FlushOutbound() {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return
	}
	_ = l.command(cmdFlushTX)
	_ = l.writeReg(regStatus, statTXDS|statMaxRT)
}

// SendNonblocking loads frame into the transmit FIFO. Rejected when the FIFO
// is full or the bus transfer fails.
func (l *Link) SendNonblocking(frame []byte) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return false
	}
	st, err := l.status()
	if err != nil || st&statTXFull != 0 {
		return false
	}
	out := make([]byte, 1+l.size)
	out[0] = cmdWTXPayload
	copy(out[1:], frame)
	_, err = l.xfer(out)
	return err == nil
}

// ResendLast issues REUSE_TX_PL so the chip retransmits the last payload.
func (l *Link) ResendLast() {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return
	}
	_ = l.command(cmdReuseTXPL)
}

// InboundAvailable reports whether the receive FIFO holds a payload.
func (l *Link) InboundAvailable() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return false
	}
	fifo, err := l.readReg(regFIFOStatus)
	return err == nil && fifo&fifoRXEmpty == 0
}

// Receive reads one payload from the receive FIFO into buf.
func (l *Link) Receive(buf []byte) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return link.ErrClosed
	}
	fifo, err := l.readReg(regFIFOStatus)
	if err != nil {
		return err
	}
	if fifo&fifoRXEmpty != 0 {
		return link.ErrNoFrame
	}
	if len(buf) < l.size {
		return link.ErrShortBuf
	}
	out := make([]byte, 1+l.size)
	out[0] = cmdRRXPayload
	for i := 1; i < len(out); i++ {
		out[i] = cmdNop
	}
	in, err := l.xfer(out)
	if err != nil {
		return err
	}
	copy(buf, in[1:])
	return l.writeReg(regStatus, statRXDR)
}

// EnterTransmitMode drops PRIM_RX and holds CE high so queued payloads
// stream back to back.
func (l *Link) EnterTransmitMode() {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return
	}
	_ = l.ce.Out(gpio.Low)
	_ = l.writeReg(regConfig, l.baseCfg)
	time.Sleep(130 * time.Microsecond) // mode settle
	_ = l.ce.Out(gpio.High)
}

// EnterReceiveMode raises PRIM_RX and CE to listen.
func (l *Link) EnterReceiveMode() {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return
	}
	_ = l.writeReg(regConfig, l.baseCfg|cfgPrimRX)
	_ = l.writeReg(regStatus, statRXDR|statTXDS|statMaxRT)
	_ = l.ce.Out(gpio.High)
	time.Sleep(130 * time.Microsecond) // mode settle
}

// Close powers the radio down and releases the SPI port.
func (l *Link) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return nil
	}
	l.closed = true
	_ = l.ce.Out(gpio.Low)
	_ = l.writeReg(regConfig, cfgEnCRC|cfgCRCO) // power down
	if l.port != nil {
		return l.port.Close()
	}
	return nil
}
