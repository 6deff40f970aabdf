// Package modbusclient adapts the Nibe register model onto an
// industrial Modbus TCP/RTU fieldbus, delegating bit-exact transport
// behavior to github.com/goburrow/modbus per §6.
package modbusclient

import (
	"fmt"
	"time"
)

// Mode selects the Modbus transport variant.
type Mode string

const (
	ModeTCP Mode = "tcp"
	ModeRTU Mode = "rtu"
)

// Config configures a Client, mirroring the teacher's modbus.Config
// shape (plain struct + Verify, Mode/Kind split) generalized to the two
// transports goburrow/modbus actually offers.
type Config struct {
	Mode Mode
	// Endpoint is "host:port" for ModeTCP, or a serial device path (e.g.
	// "/dev/ttyUSB0") for ModeRTU.
	Endpoint string
	// SlaveID is the Modbus unit identifier.
	SlaveID byte

	// BaudRate, DataBits, Parity, StopBits configure ModeRTU; ignored
	// for ModeTCP.
	BaudRate int
	DataBits int
	Parity   string
	StopBits int

	Timeout time.Duration
	Retries int
	WordSwap *bool
}

func (c *Config) Verify() error {
	switch c.Mode {
	case ModeTCP, ModeRTU:
	default:
		return fmt.Errorf("modbusclient: unknown mode %q", c.Mode)
	}
	if c.Endpoint == "" {
		return fmt.Errorf("modbusclient: endpoint must be set")
	}
	if c.Timeout <= 0 {
		c.Timeout = 5 * time.Second
	}
	if c.Retries <= 0 {
		c.Retries = 3
	}
	if c.Mode == ModeRTU {
		if c.BaudRate == 0 {
			c.BaudRate = 9600
		}
		if c.DataBits == 0 {
			c.DataBits = 8
		}
		if c.Parity == "" {
			c.Parity = "N"
		}
		if c.StopBits == 0 {
			c.StopBits = 1
		}
	}
	return nil
}
