// Package watlow drives Watlow EZ-Zone temperature controllers, either
// directly over their serial protocol (TemperatureController) or through
// the EZ-Zone ModBus gateway (Gateway).
//
// All temperatures are in Celsius. Transport failures surface unchanged
// (serial and net errors, including timeouts); malformed or misdirected
// responses surface as errors wrapping ezzone.ErrProtocol or
// modbus.ErrProtocol. Neither driver retries: the documented caller
// pattern for long polls is match the error kind, log, sleep, retry.
package watlow

import (
	"context"
	"errors"
)

// ErrNotConnected is returned by gateway operations attempted while the
// connection is not open. No socket I/O happens in that case.
var ErrNotConnected = errors.New("watlow: not connected")

// Reading is one snapshot of a controller. Output is only available
// through the gateway.
type Reading struct {
	Actual   float64  `json:"actual"`
	Setpoint float64  `json:"setpoint"`
	Output   *float64 `json:"output,omitempty"`
}

// Client is the contract shared by the gateway driver and its mock.
type Client interface {
	Connect(ctx context.Context) error
	Get(ctx context.Context, zone int) (Reading, error)
	Set(ctx context.Context, zone int, setpoint float64) error
	Close() error
}

// ControlPort manipulates simulated oven state from outside the wire
// protocol, e.g. from an interactive console.
type ControlPort interface {
	Status() string
	SetActual(zone int, valueC float64) error
	SetSetpoint(zone int, valueC float64) error
}
