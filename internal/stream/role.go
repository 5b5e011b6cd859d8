package stream

import "github.com/airwire/airwire/internal/link"

// Role is which half of the stream a node currently runs.
type Role int

const (
	// RoleReceiver is the power-on default: a fresh node listens rather
	// than transmits unattended.
	RoleReceiver Role = iota
	RoleTransmitter
)

func (r Role) String() string {
	if r == RoleTransmitter {
		return "transmitter"
	}
	return "receiver"
}

// Role-switch command characters, matched case-insensitively.
const (
	CmdTransmit = 'T'
	CmdReceive  = 'R'
)

// RoleController owns the current role and the transition semantics: turning
// into a transmitter resets the receive counter and takes the link out of
// listen mode; turning into a receiver puts it back. Commands naming the
// current role, and any unrecognized command, are ignored.
type RoleController struct {
	role Role
	link link.Link
	rx   *ReceiveEngine
}

// NewRoleController returns a controller in the receiver role with the link
// already listening.
func NewRoleController(l link.Link, rx *ReceiveEngine) *RoleController {
	l.EnterReceiveMode()
	return &RoleController{role: RoleReceiver, link: l, rx: rx}
}

// Role returns the current role.
func (c *RoleController) Role() Role { return c.role }

// Apply processes one command character and reports whether a transition
// happened.
func (c *RoleController) Apply(cmd rune) bool {
	switch cmd {
	case CmdTransmit, 't':
		if c.role == RoleTransmitter {
			return false
		}
		c.role = RoleTransmitter
		c.rx.ResetCount()
		c.link.EnterTransmitMode()
		return true
	case CmdReceive, 'r':
		if c.role == RoleReceiver {
			return false
		}
		c.role = RoleReceiver
		c.link.EnterReceiveMode()
		return true
	default:
		return false
	}
}
