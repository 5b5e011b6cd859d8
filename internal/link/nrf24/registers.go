package nrf24

import "fmt"

// SPI command set.
const (
	cmdRRegister  = 0x00 // OR with register address
	cmdWRegister  = 0x20 // OR with register address
	cmdRRXPayload = 0x61
	cmdWTXPayload = 0xA0
	cmdFlushTX    = 0xE1
	cmdFlushRX    = 0xE2
	cmdReuseTXPL  = 0xE3
	cmdNop        = 0xFF
)

// Register map.
const (
	regConfig     = 0x00
	regEnAA       = 0x01
	regEnRXAddr   = 0x02
	regSetupAW    = 0x03
	regSetupRetr  = 0x04
	regRFCh       = 0x05
	regRFSetup    = 0x06
	regStatus     = 0x07
	regRXAddrP0   = 0x0A
	regRXAddrP1   = 0x0B
	regTXAddr     = 0x10
	regRXPwP0     = 0x11
	regRXPwP1     = 0x12
	regFIFOStatus = 0x17
	regDynPD      = 0x1C
	regFeature    = 0x1D
)

// CONFIG bits.
const (
	cfgPrimRX = 1 << 0
	cfgPwrUp  = 1 << 1
	cfgCRCO   = 1 << 2
	cfgEnCRC  = 1 << 3
)

// STATUS bits.
const (
	statTXFull = 1 << 0
	statMaxRT  = 1 << 4
	statTXDS   = 1 << 5
	statRXDR   = 1 << 6
)

// FIFO_STATUS bits.
const (
	fifoRXEmpty = 1 << 0
	fifoTXFull  = 1 << 5
)

// RF_SETUP data-rate bits: both clear is 1 Mbps.
const (
	rfDRHigh = 1 << 3 // 2 Mbps
	rfDRLow  = 1 << 5 // 250 kbps
)

// RF_SETUP output power field (bits 2:1).
const (
	rfPwrMin  = 0x00 // -18 dBm
	rfPwrLow  = 0x02 // -12 dBm
	rfPwrHigh = 0x04 // -6 dBm
	rfPwrMax  = 0x06 // 0 dBm
)

func dataRateBits(rate string) (byte, error) {
	switch rate {
	case "250k":
		return rfDRLow, nil
	case "1m", "":
		return 0, nil
	case "2m":
		return rfDRHigh, nil
	}
	return 0, fmt.Errorf("unknown data rate %q", rate)
}

func paLevelBits(level string) (byte, error) {
	switch level {
	case "min":
		return rfPwrMin, nil
	case "low", "":
		return rfPwrLow, nil
	case "high":
		return rfPwrHigh, nil
	case "max":
		return rfPwrMax, nil
	}
	return 0, fmt.Errorf("unknown pa level %q", level)
}
