package modbusclient

import (
	"encoding/binary"
	"fmt"
	"time"

	gomodbus "github.com/goburrow/modbus"

	"github.com/GoAethereal/cancel"

	"github.com/yozik04/nibe"
)

// functionClass identifies the Modbus object table an address quotient
// selects, per §4.7's split_modbus_data-equivalent routing.
type functionClass int

const (
	classCoil functionClass = iota
	classDiscreteInput
	classUnused
	classInputRegister
	classHoldingRegister
)

// splitAddress decomposes a Nibe register address into the Modbus
// function class and zero-based offset it maps to: quotient =
// address/10000 selects the class (0=coil, 1=discrete input, 3=input
// register, 4=holding register), offset = (address mod 10000) - 1.
// Grounded on nibe/connection/modbus.py's split_modbus_data.
func splitAddress(address uint16) (functionClass, uint16, error) {
	quotient := address / 10000
	offset := address % 10000
	if offset == 0 {
		return 0, 0, fmt.Errorf("modbusclient: address %d has no valid offset (mod 10000 == 0)", address)
	}
	offset--

	switch quotient {
	case 0:
		return classCoil, offset, nil
	case 1:
		return classDiscreteInput, offset, nil
	case 3:
		return classInputRegister, offset, nil
	case 4:
		return classHoldingRegister, offset, nil
	default:
		return 0, 0, fmt.Errorf("modbusclient: address %d maps to unsupported function class %d", address, quotient)
	}
}

// registerCount is 2 for 32-bit widths (they occupy a register pair) and
// 1 otherwise, per §4.7.
func registerCount(w nibe.Width) uint16 {
	if w == nibe.WidthU32 || w == nibe.WidthS32 {
		return 2
	}
	return 1
}

// Client is the fieldbus adapter implementing nibe.Connection over a
// goburrow/modbus transport. Unlike the UDP engine it has no
// asynchronous correlation state: every call is a single synchronous
// Modbus PDU round trip, retried up to Config.Retries on I/O failure.
type Client struct {
	cfg      Config
	registry *nibe.Registry
	events   *nibe.EventBus

	handler interface {
		Connect() error
		Close() error
	}
	client   gomodbus.Client
	wordSwap *bool

	// setTimeout mutates the concrete handler's Timeout field, captured
	// at Start() time since the handler interface above deliberately
	// exposes nothing but Connect/Close. It lets ReadRegister/
	// WriteRegister/ReadProductInfo honor a per-call WithTimeout override
	// (§5/§8) without widening the handler field's type.
	setTimeout func(time.Duration)

	state nibe.ConnectionState
}

var _ nibe.Connection = (*Client)(nil)

// New constructs a Client from Config. registry is used only by
// VerifyConnectivity to look up the alarm-reset register; it may be nil.
func New(cfg Config, registry *nibe.Registry) (*Client, error) {
	if err := cfg.Verify(); err != nil {
		return nil, err
	}
	return &Client{cfg: cfg, registry: registry, events: nibe.NewEventBus(), wordSwap: cfg.WordSwap}, nil
}

func (c *Client) Events() *nibe.EventBus { return c.events }
func (c *Client) State() nibe.ConnectionState { return c.state }

// Start opens the underlying transport, per §6's "adapter issues exactly
// one read or write function per call" contract.
func (c *Client) Start(ctx cancel.Context) error {
	c.state = nibe.StateInitializing

	switch c.cfg.Mode {
	case ModeTCP:
		handler := gomodbus.NewTCPClientHandler(c.cfg.Endpoint)
		handler.Timeout = c.cfg.Timeout
		handler.SlaveId = c.cfg.SlaveID
		if err := handler.Connect(); err != nil {
			c.state = nibe.StateDisconnected
			return fmt.Errorf("modbusclient: connect to %s: %w", c.cfg.Endpoint, err)
		}
		c.handler = handler
		c.client = gomodbus.NewClient(handler)
		c.setTimeout = func(d time.Duration) { handler.Timeout = d }

	case ModeRTU:
		handler := gomodbus.NewRTUClientHandler(c.cfg.Endpoint)
		handler.BaudRate = c.cfg.BaudRate
		handler.DataBits = c.cfg.DataBits
		handler.Parity = c.cfg.Parity
		handler.StopBits = c.cfg.StopBits
		handler.SlaveId = c.cfg.SlaveID
		handler.Timeout = c.cfg.Timeout
		if err := handler.Connect(); err != nil {
			c.state = nibe.StateDisconnected
			return err
		}
		c.handler = handler
		c.client = gomodbus.NewClient(handler)
		c.setTimeout = func(d time.Duration) { handler.Timeout = d }
	}

	c.state = nibe.StateConnected
	c.events.Publish(nibe.EventStatusUpdate, c.state)
	return nil
}

func (c *Client) Stop() error {
	c.state = nibe.StateDisconnected
	c.events.Publish(nibe.EventStatusUpdate, c.state)
	if c.handler != nil {
		return c.handler.Close()
	}
	return nil
}

// withTimeout applies a per-call WithTimeout override, if any, by
// mutating the concrete handler's Timeout field for the duration of fn
// and restoring the configured default afterward. A zero or
// default-valued timeout skips the mutation entirely.
func (c *Client) withTimeout(d time.Duration, fn func() error) error {
	if c.setTimeout == nil || d <= 0 || d == c.cfg.Timeout {
		return fn()
	}
	c.setTimeout(d)
	defer c.setTimeout(c.cfg.Timeout)
	return fn()
}

func (c *Client) withRetry(fn func() error) error {
	var lastErr error
	for attempt := 0; attempt < c.cfg.Retries; attempt++ {
		if err := fn(); err != nil {
			lastErr = err
			continue
		}
		return nil
	}
	return lastErr
}

// ReadRegister reads one or two registers (per registerCount), routed by
// splitAddress, and decodes them with nibe.RegisterPairCodec.
func (c *Client) ReadRegister(ctx cancel.Context, reg *nibe.Register, opts ...nibe.CallOption) (nibe.Value, error) {
	o := nibe.ResolveCallOptions(c.cfg.Timeout, opts...)
	class, offset, err := splitAddress(reg.Address)
	if err != nil {
		return nibe.Value{}, &nibe.ConfigError{Op: "ReadRegister", Err: err}
	}
	count := registerCount(reg.Width)

	var raw []byte
	readErr := c.withTimeout(o.Timeout, func() error {
		return c.withRetry(func() error {
			var e error
			switch class {
			case classHoldingRegister:
				raw, e = c.client.ReadHoldingRegisters(offset, count)
			case classInputRegister:
				raw, e = c.client.ReadInputRegisters(offset, count)
			case classCoil:
				raw, e = c.client.ReadCoils(offset, count)
			case classDiscreteInput:
				raw, e = c.client.ReadDiscreteInputs(offset, count)
			}
			return e
		})
	})
	if readErr != nil {
		return nibe.Value{}, &nibe.IOError{Kind: nibe.ReadTimeout, Register: reg.Name, Err: readErr}
	}

	var regs []uint16
	if class == classCoil || class == classDiscreteInput {
		// Bit reads come back packed, one bit per coil, least significant first.
		if len(raw) < 1 {
			return nibe.Value{}, &nibe.DecodeError{Register: reg.Name, Err: fmt.Errorf("modbusclient: empty bit response")}
		}
		regs = []uint16{uint16(raw[0] & 0x01)}
	} else {
		regs, err = bytesToRegisters(raw, int(count))
		if err != nil {
			return nibe.Value{}, &nibe.DecodeError{Register: reg.Name, Err: err}
		}
	}

	codec := nibe.RegisterPairCodec{WordSwap: c.wordSwap}
	decoded, ok, err := codec.Decode(reg.Width, regs)
	if err != nil {
		return nibe.Value{}, &nibe.DecodeError{Register: reg.Name, Err: err}
	}
	if !ok {
		return nibe.Unset(reg), nil
	}

	value, err := nibe.FromRaw(reg, int(decoded))
	if err != nil {
		return nibe.Value{}, err
	}
	c.events.Publish(nibe.EventCoilUpdate, nibe.CoilUpdate{Register: reg, Value: value})
	return value, nil
}

// ReadRegisters streams one result per register; never fails the whole
// batch on a single register's error, per §4.8/§7.
func (c *Client) ReadRegisters(ctx cancel.Context, regs []*nibe.Register, opts ...nibe.CallOption) <-chan nibe.RegisterResult {
	out := make(chan nibe.RegisterResult, len(regs))
	go func() {
		defer close(out)
		for _, reg := range regs {
			value, err := c.ReadRegister(ctx, reg, opts...)
			out <- nibe.RegisterResult{Register: reg, Value: value, Err: err}
		}
	}()
	return out
}

// WriteRegister writes one or two registers via RegisterPairCodec.
func (c *Client) WriteRegister(ctx cancel.Context, reg *nibe.Register, value nibe.Value, opts ...nibe.CallOption) error {
	o := nibe.ResolveCallOptions(c.cfg.Timeout, opts...)
	value.Register = reg
	raw, err := value.RawValue()
	if err != nil {
		return err
	}
	if !reg.Writable {
		return &nibe.WriteDeniedError{Register: reg.Name}
	}

	class, offset, err := splitAddress(reg.Address)
	if err != nil {
		return &nibe.ConfigError{Op: "WriteRegister", Err: err}
	}

	codec := nibe.RegisterPairCodec{WordSwap: c.wordSwap}
	regs, err := codec.Encode(reg.Width, int64(raw))
	if err != nil {
		return &nibe.EncodeError{Register: reg.Name, Err: err}
	}

	return c.withTimeout(o.Timeout, func() error {
		return c.withRetry(func() error {
			var e error
			switch class {
			case classHoldingRegister:
				if len(regs) == 1 {
					_, e = c.client.WriteSingleRegister(offset, regs[0])
				} else {
					_, e = c.client.WriteMultipleRegisters(offset, uint16(len(regs)), registersToBytes(regs))
				}
			case classCoil:
				status := uint16(0)
				if raw != 0 {
					status = 0xFF00
				}
				_, e = c.client.WriteSingleCoil(offset, status)
			default:
				e = fmt.Errorf("modbusclient: function class %d is not writable", class)
			}
			if e != nil {
				return &nibe.IOError{Kind: nibe.WriteTimeout, Register: reg.Name, Err: e}
			}
			return nil
		})
	})
}

// ReadProductInfo has no Modbus-native equivalent; the fieldbus transport
// has no PRODUCT_INFO_MSG analogue, so this always fails with a
// configuration error rather than silently returning a zero Product. opts
// is accepted only to satisfy nibe.Connection; there is no request to
// apply a timeout override to.
func (c *Client) ReadProductInfo(ctx cancel.Context, opts ...nibe.CallOption) (nibe.Product, error) {
	return nibe.Product{}, &nibe.ConfigError{Op: "ReadProductInfo", Err: fmt.Errorf("modbusclient: product info has no Modbus representation")}
}

// VerifyConnectivity implements §4.8: read the unit's "alarm reset"
// register, then write the same value straight back (the pump ignores
// the written value; it is a momentary reset trigger). Falls back to a
// bare one-register holding-register read when no registry was supplied,
// since there is then no way to resolve the alarm-reset address.
func (c *Client) VerifyConnectivity(ctx cancel.Context) error {
	if c.registry == nil {
		return c.withRetry(func() error {
			_, err := c.client.ReadHoldingRegisters(0, 1)
			return err
		})
	}
	reg, err := c.registry.GetByAddress(nibe.UnitGroups(c.registry.Series())["main"].AlarmReset)
	if err != nil {
		return err
	}
	value, err := c.ReadRegister(ctx, reg)
	if err != nil {
		return err
	}
	return c.WriteRegister(ctx, reg, value)
}

func bytesToRegisters(b []byte, count int) ([]uint16, error) {
	if len(b) != count*2 {
		return nil, fmt.Errorf("modbusclient: expected %d bytes, got %d", count*2, len(b))
	}
	out := make([]uint16, count)
	for i := 0; i < count; i++ {
		out[i] = binary.BigEndian.Uint16(b[i*2:])
	}
	return out, nil
}

func registersToBytes(regs []uint16) []byte {
	out := make([]byte, len(regs)*2)
	for i, r := range regs {
		binary.BigEndian.PutUint16(out[i*2:], r)
	}
	return out
}
