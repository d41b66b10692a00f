package watlow

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"sync"
	"time"

	"github.com/numat/watlow/encoding"
	"github.com/numat/watlow/pkg/modbus"
)

// GatewayConfig configures the connection to an EZ-Zone ModBus gateway.
// Zero fields take defaults: port 502, unit id 1, 1s timeout, zone blocks
// of DefaultModbusOffset registers, DefaultMaxSetpoint upper limit.
type GatewayConfig struct {
	Address      string // host or host:port
	UnitID       uint8
	Timeout      time.Duration
	ModbusOffset int
	MaxSetpoint  float64
}

// Gateway drives ovens behind an EZ-Zone ModBus gateway. Connect must be
// called before Get or Set; both return ErrNotConnected otherwise.
//
// The gateway correlates responses by transaction id per connection, so
// the driver keeps exactly one request in flight: concurrent calls on one
// Gateway queue behind each other. After a failed or cancelled exchange
// the connection may be desynchronized; close and reconnect before reuse.
type Gateway struct {
	cfg GatewayConfig

	mu    sync.Mutex
	conn  net.Conn
	txnID uint16
}

var _ Client = (*Gateway)(nil)

// NewGateway returns an unconnected gateway driver.
func NewGateway(cfg GatewayConfig) *Gateway {
	if _, _, err := net.SplitHostPort(cfg.Address); err != nil {
		cfg.Address = net.JoinHostPort(cfg.Address, "502")
	}
	if cfg.UnitID == 0 {
		cfg.UnitID = 1
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = time.Second
	}
	if cfg.ModbusOffset == 0 {
		cfg.ModbusOffset = DefaultModbusOffset
	}
	if cfg.MaxSetpoint == 0 {
		cfg.MaxSetpoint = DefaultMaxSetpoint
	}
	return &Gateway{cfg: cfg}
}

// Connect establishes the TCP connection. It blocks until the connect
// completes, fails, or ctx is done.
func (g *Gateway) Connect(ctx context.Context) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.conn != nil {
		return nil
	}
	dialer := net.Dialer{Timeout: g.cfg.Timeout}
	conn, err := dialer.DialContext(ctx, "tcp", g.cfg.Address)
	if err != nil {
		return fmt.Errorf("could not connect to %q: %w", g.cfg.Address, err)
	}
	g.conn = conn
	slog.Debug("gateway connected", "address", g.cfg.Address)
	return nil
}

// Close closes the socket. Safe to call while already disconnected.
func (g *Gateway) Close() error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.conn == nil {
		return nil
	}
	err := g.conn.Close()
	g.conn = nil
	return err
}

// Get reads actual temperature, setpoint and output power for a zone.
// Output is left nil when the gateway answers the output register with an
// exception, which happens on gateways that don't map it.
func (g *Gateway) Get(ctx context.Context, zone int) (Reading, error) {
	actual, err := g.readFloat(ctx, zone, ActualAddress)
	if err != nil {
		return Reading{}, err
	}
	setpoint, err := g.readFloat(ctx, zone, SetpointAddress)
	if err != nil {
		return Reading{}, err
	}
	reading := Reading{Actual: actual, Setpoint: setpoint}
	output, err := g.readFloat(ctx, zone, OutputAddress)
	var exc modbus.ExceptionError
	if errors.As(err, &exc) {
		return reading, nil
	}
	if err != nil {
		return Reading{}, err
	}
	reading.Output = &output
	return reading, nil
}

// Set changes the setpoint for a zone, in Celsius.
func (g *Gateway) Set(ctx context.Context, zone int, setpoint float64) error {
	if setpoint < MinSetpoint || setpoint > g.cfg.MaxSetpoint {
		return fmt.Errorf("watlow: setpoint %v is not in the valid range from %v to %v",
			setpoint, MinSetpoint, g.cfg.MaxSetpoint)
	}
	addr, err := ZoneAddress(zone, SetpointAddress, g.cfg.ModbusOffset)
	if err != nil {
		return err
	}
	high, low := encoding.Float32ToRegisters(float32(setpoint))
	req := modbus.WriteRegistersPDU(g.cfg.UnitID, addr, []uint16{high, low})
	res, reqTxnID, resTxnID, err := g.request(ctx, req)
	if err != nil {
		return err
	}
	return modbus.ParseWriteResponse(req, reqTxnID, res, resTxnID)
}

func (g *Gateway) readFloat(ctx context.Context, zone int, base uint16) (float64, error) {
	addr, err := ZoneAddress(zone, base, g.cfg.ModbusOffset)
	if err != nil {
		return 0, err
	}
	req := modbus.ReadHoldingRegistersPDU(g.cfg.UnitID, addr, 2)
	res, reqTxnID, resTxnID, err := g.request(ctx, req)
	if err != nil {
		return 0, err
	}
	regs, err := modbus.ParseReadRegisters(req, reqTxnID, res, resTxnID)
	if err != nil {
		return 0, err
	}
	return float64(encoding.RegistersToFloat32(regs[0], regs[1])), nil
}

// request performs one serialized exchange: assemble, write, read frames
// until the fresh transaction id comes back. Stale ids from earlier timed
// out requests are discarded; anything else is the codec's problem.
func (g *Gateway) request(ctx context.Context, pdu *modbus.PDU) (*modbus.PDU, uint16, uint16, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.conn == nil {
		return nil, 0, 0, ErrNotConnected
	}
	if err := ctx.Err(); err != nil {
		return nil, 0, 0, err
	}

	deadline := time.Now().Add(g.cfg.Timeout)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}
	if err := g.conn.SetDeadline(deadline); err != nil {
		return nil, 0, 0, err
	}

	g.txnID++
	txnID := g.txnID
	frame := modbus.AssembleMBAPFrame(txnID, pdu)
	slog.Debug("gateway request", "txn", txnID, "data", fmt.Sprintf("% X", frame))
	if _, err := g.conn.Write(frame); err != nil {
		return nil, 0, 0, fmt.Errorf("gateway write: %w", err)
	}

	for {
		res, resTxnID, err := modbus.ReadMBAPFrame(g.conn)
		if err != nil {
			return nil, 0, 0, fmt.Errorf("gateway read: %w", err)
		}
		slog.Debug("gateway response", "txn", resTxnID, "pdu", res)
		if resTxnID < txnID {
			slog.Debug("discarding stale response", "txn", resTxnID, "want", txnID)
			continue
		}
		return res, txnID, resTxnID, nil
	}
}
