package nibegw

import (
	"fmt"
	"time"
)

// Config configures an Engine, grounded on the teacher's modbus.Config
// shape (plain struct + Verify) and on NibeGW's constructor arguments in
// the original Python (remote_ip, remote_read_port, remote_write_port,
// listening_ip, listening_port).
type Config struct {
	// ListenAddr is the local UDP address to bind, e.g. "0.0.0.0:9999".
	// Defaults to ":9999" if empty.
	ListenAddr string

	// PeerAddr is the pump's address, host only (no port). Leave empty to
	// rely on peer discovery (§8 scenario 6): the engine adopts the
	// source address of the first inbound datagram.
	PeerAddr string
	// ReadPort is the remote port read requests are sent to. Defaults to
	// 9999.
	ReadPort int
	// WritePort is the remote port write requests are sent to. Defaults
	// to 10000.
	WritePort int

	// Multicast, if true, joins ListenAddr's group (IP_ADD_MEMBERSHIP or
	// IPV6_JOIN_GROUP depending on address family) after binding.
	Multicast bool
	// ReusePort sets SO_REUSEPORT on the listening socket, letting
	// multiple processes share one UDP port.
	ReusePort bool

	// WordSwap pins the 32-bit word-swap convention. When nil, Start does
	// not detect it: 32-bit reads and writes fail until the caller runs
	// Engine.CalibrateWordSwap against a known boolean register (§4.6).
	WordSwap *bool

	// Timeout bounds an ordinary read/write round trip. Defaults to
	// nibe.DefaultTimeout.
	Timeout time.Duration
	// ProductInfoTimeout bounds a read_product_info call. Defaults to
	// nibe.ReadProductTimeout: the pump only emits this unsolicited, on
	// its own ~15s cadence.
	ProductInfoTimeout time.Duration
	// Retries is the retry budget for I/O-class failures. Defaults to 3.
	Retries int

	// Strict selects table-frame processing mode: true publishes no
	// coil_update events for a MODBUS_DATA_MSG in which any row fails to
	// decode or validate, false (default, "permissive") logs the failing
	// row and publishes the rest. Either way, pending reads for every row
	// of the frame are completed.
	Strict bool
}

// Verify validates the Config, filling in defaults for zero-valued
// fields, mirroring the teacher's Config.Verify.
func (c *Config) Verify() error {
	if c.ListenAddr == "" {
		c.ListenAddr = ":9999"
	}
	if c.ReadPort == 0 {
		c.ReadPort = 9999
	}
	if c.WritePort == 0 {
		c.WritePort = 10000
	}
	if c.Timeout <= 0 {
		c.Timeout = defaultTimeout
	}
	if c.ProductInfoTimeout <= 0 {
		c.ProductInfoTimeout = productInfoTimeout
	}
	if c.Retries <= 0 {
		c.Retries = defaultRetries
	}
	if c.ReadPort < 0 || c.ReadPort > 65535 || c.WritePort < 0 || c.WritePort > 65535 {
		return fmt.Errorf("nibegw: invalid port configuration")
	}
	return nil
}

const (
	defaultTimeout     = 5 * time.Second
	productInfoTimeout = 20 * time.Second
	defaultRetries     = 3
)
