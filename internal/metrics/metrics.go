// Package metrics holds lightweight atomic counters for the node loop,
// consumed by the live monitor.
package metrics

import "sync/atomic"

// Metrics counts the key streaming events since process start.
type Metrics struct {
	bursts         atomic.Int64
	burstsAborted  atomic.Int64
	framesSent     atomic.Int64
	sendFailures   atomic.Int64
	framesReceived atomic.Int64
	roleSwitches   atomic.Int64
}

// New returns a zero-initialised Metrics.
func New() *Metrics {
	return &Metrics{}
}

func (m *Metrics) AddBurst(aborted bool) {
	m.bursts.Add(1)
	if aborted {
		m.burstsAborted.Add(1)
	}
}

func (m *Metrics) AddFramesSent(n int)   { m.framesSent.Add(int64(n)) }
func (m *Metrics) AddSendFailures(n int) { m.sendFailures.Add(int64(n)) }
func (m *Metrics) AddFrameReceived()     { m.framesReceived.Add(1) }
func (m *Metrics) AddRoleSwitch()        { m.roleSwitches.Add(1) }

// Snapshot returns the current counter values.
func (m *Metrics) Snapshot() map[string]int64 {
	return map[string]int64{
		"bursts":          m.bursts.Load(),
		"bursts_aborted":  m.burstsAborted.Load(),
		"frames_sent":     m.framesSent.Load(),
		"send_failures":   m.sendFailures.Load(),
		"frames_received": m.framesReceived.Load(),
		"role_switches":   m.roleSwitches.Load(),
	}
}
