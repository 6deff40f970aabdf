package nibe

import (
	"fmt"
	"time"

	"github.com/GoAethereal/cancel"
)

// Default timeouts, per §5: ordinary reads/writes budget 5 seconds,
// product-info reads (which the pump answers far slower) budget 20.
const (
	DefaultTimeout       = 5 * time.Second
	ReadProductTimeout   = 20 * time.Second
	DefaultRetries       = 3
)

// ConnectionState is the lifecycle of a transport underneath a
// Connection, grounded on connection/mixins.py's ConnectionStatus enum.
type ConnectionState int

const (
	StateUnknown ConnectionState = iota
	StateInitializing
	StateListening
	StateConnected
	StateDisconnected
)

func (s ConnectionState) String() string {
	switch s {
	case StateInitializing:
		return "INITIALIZING"
	case StateListening:
		return "LISTENING"
	case StateConnected:
		return "CONNECTED"
	case StateDisconnected:
		return "DISCONNECTED"
	default:
		return "UNKNOWN"
	}
}

// validConnectionTransition reports whether moving from 'from' to 'to' is
// legal: any state may fall back to DISCONNECTED; forward progress goes
// UNKNOWN -> INITIALIZING -> LISTENING -> CONNECTED, INITIALIZING may also
// go straight to CONNECTED, and DISCONNECTED may restart at INITIALIZING.
func validConnectionTransition(from, to ConnectionState) bool {
	if to == StateDisconnected {
		return true
	}
	switch from {
	case StateUnknown:
		return to == StateInitializing
	case StateInitializing:
		return to == StateListening || to == StateConnected
	case StateListening:
		return to == StateConnected
	case StateDisconnected:
		return to == StateInitializing
	}
	return false
}

// CallOptions holds the per-call overrides a CallOption applies on top of
// a transport's configured defaults.
type CallOptions struct {
	// Timeout overrides the transport's default timeout for this call
	// only; zero means "use the transport default".
	Timeout time.Duration
}

// CallOption customizes a single Connection call, per §5/§8's optional
// per-operation timeout? parameter.
type CallOption func(*CallOptions)

// WithTimeout overrides the timeout for a single ReadRegister,
// WriteRegister, or ReadProductInfo call.
func WithTimeout(d time.Duration) CallOption {
	return func(o *CallOptions) { o.Timeout = d }
}

// ResolveCallOptions applies opts over fallback (the transport's
// configured default for this kind of call), returning the effective
// CallOptions a transport should honor.
func ResolveCallOptions(fallback time.Duration, opts ...CallOption) CallOptions {
	o := CallOptions{Timeout: fallback}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// RegisterResult is one element of the stream ReadRegisters yields: either
// a decoded Value, or the error encountered reading that particular
// register. The stream itself never fails; GroupError aggregates these at
// the end, per §4.8/§7.
type RegisterResult struct {
	Register *Register
	Value    Value
	Err      error
}

// Connection is the transport-agnostic façade every transport
// (nibegw.Engine, modbusclient.Client) implements, per §4.8. It is the
// single type application code is expected to hold onto.
type Connection interface {
	// Start brings the transport up: binds sockets, launches background
	// goroutines. It must be called before any other method.
	Start(ctx cancel.Context) error
	// Stop tears the transport down. It does not cancel calls already in
	// flight; those end on their own timeout or context.
	Stop() error

	// State reports the current lifecycle state.
	State() ConnectionState

	// ReadRegister fetches the current value of one register. opts may
	// include WithTimeout to override the transport's default timeout for
	// this call only.
	ReadRegister(ctx cancel.Context, reg *Register, opts ...CallOption) (Value, error)
	// ReadRegisters fetches several registers, streaming results in
	// request order and never failing the whole batch on one register's
	// error; call DrainGroup or range the returned channel and check the
	// accumulated GroupError only once it closes. opts apply to every
	// register in the batch.
	ReadRegisters(ctx cancel.Context, regs []*Register, opts ...CallOption) <-chan RegisterResult
	// WriteRegister pushes a value to a writable register and waits for
	// the pump's acknowledgement (or denial).
	WriteRegister(ctx cancel.Context, reg *Register, value Value, opts ...CallOption) error

	// ReadProductInfo fetches the connected pump's model and firmware
	// version, using ReadProductTimeout rather than DefaultTimeout unless
	// overridden by WithTimeout.
	ReadProductInfo(ctx cancel.Context, opts ...CallOption) (Product, error)
	// VerifyConnectivity confirms the transport is actually talking to a
	// pump by reading the model's alarm-reset register and writing the
	// value back. Without a registry it falls back to a lighter probe: a
	// product-info read (nibegw) or a one-register holding read at offset 0
	// (modbusclient).
	VerifyConnectivity(ctx cancel.Context) error

	// Events exposes the connection's event bus for subscription.
	Events() *EventBus
}

// DrainGroup collects a ReadRegisters stream into a slice of successful
// values, returning a *GroupError (or nil) for whatever failed.
func DrainGroup(stream <-chan RegisterResult) ([]Value, error) {
	var values []Value
	var failures []error
	for r := range stream {
		if r.Err != nil {
			failures = append(failures, fmt.Errorf("%s: %w", r.Register.Name, r.Err))
			continue
		}
		values = append(values, r.Value)
	}
	if len(failures) > 0 {
		return values, &GroupError{Errors: failures}
	}
	return values, nil
}
