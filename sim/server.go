// Package sim is a ModBus-TCP stand-in for an EZ-Zone gateway with ovens
// behind it. It serves function 3 and 16 from per-zone oven state laid
// out exactly as the real gateway maps it, so the driver, the CLI and
// integration tests can run against it unchanged.
package sim

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"strings"
	"sync"

	"github.com/numat/watlow"
	"github.com/numat/watlow/encoding"
	"github.com/numat/watlow/message"
	"github.com/numat/watlow/pkg/modbus"
)

// Modbus exception codes the simulator answers with.
const (
	excIllegalFunction    uint8 = 0x01
	excIllegalDataAddress uint8 = 0x02
)

// Config configures a simulated gateway.
type Config struct {
	UnitID uint8
	Zones  int
	// ModbusOffset is the register distance between zone blocks.
	ModbusOffset int
	// MapOutput controls whether the output power register block is
	// served. Real gateways exist that leave it unmapped; those answer
	// reads of it with an illegal-data-address exception.
	MapOutput bool
	// Trace receives protocol traffic. Optional.
	Trace watlow.ProtocolPort
}

// Server is a single-unit gateway simulator.
type Server struct {
	cfg      Config
	listener net.Listener
	trace    watlow.ProtocolPort

	mu    sync.Mutex
	zones map[int]*oven
	conns map[net.Conn]struct{}
}

type oven struct {
	actual   float64
	setpoint float64
	output   float64
}

var _ watlow.ControlPort = (*Server)(nil)

// NewServer creates a simulator with every zone at 25 degrees, setpoint
// 25, output 0.
func NewServer(cfg Config) *Server {
	if cfg.UnitID == 0 {
		cfg.UnitID = 1
	}
	if cfg.Zones == 0 {
		cfg.Zones = 8
	}
	if cfg.ModbusOffset == 0 {
		cfg.ModbusOffset = watlow.DefaultModbusOffset
	}
	trace := cfg.Trace
	if trace == nil {
		trace = nopPort{}
	}
	zones := make(map[int]*oven, cfg.Zones)
	for i := 1; i <= cfg.Zones; i++ {
		zones[i] = &oven{actual: 25, setpoint: 25}
	}
	return &Server{cfg: cfg, trace: trace, zones: zones, conns: make(map[net.Conn]struct{})}
}

// Start listens on address and serves connections until ctx is done or
// Stop is called. Pass "127.0.0.1:0" to pick a free port; Addr reports
// the one chosen.
func (s *Server) Start(ctx context.Context, address string) (err error) {
	s.listener, err = net.Listen("tcp", address)
	if err != nil {
		return fmt.Errorf("failed to start TCP listener: %w", err)
	}
	go s.acceptClients(ctx)
	slog.Info("simulated gateway started", "addr", s.listener.Addr())
	return nil
}

// Addr returns the listen address.
func (s *Server) Addr() string {
	return s.listener.Addr().String()
}

// Stop closes the listener and drops every client.
func (s *Server) Stop() error {
	if s.listener == nil {
		return nil
	}
	slog.Info("stopping simulated gateway", "addr", s.listener.Addr())
	err := s.listener.Close()
	s.DropConnections()
	return err
}

func (s *Server) acceptClients(ctx context.Context) {
	for {
		conn, err := s.listener.Accept()
		if err != nil {
			return
		}
		slog.Debug("client connected", "remote addr", conn.RemoteAddr())
		go s.handleConnection(ctx, conn)
	}
}

// DropConnections closes every active client connection, simulating a
// gateway reboot or network fault mid-conversation.
func (s *Server) DropConnections() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for conn := range s.conns {
		conn.Close()
	}
	clear(s.conns)
}

func (s *Server) handleConnection(ctx context.Context, conn net.Conn) {
	s.mu.Lock()
	s.conns[conn] = struct{}{}
	s.mu.Unlock()
	defer func() {
		s.mu.Lock()
		delete(s.conns, conn)
		s.mu.Unlock()
		conn.Close()
	}()
	for {
		if ctx.Err() != nil {
			return
		}
		pdu, txnID, err := modbus.ReadMBAPFrame(conn)
		if err != nil {
			if err == io.EOF || errors.Is(err, net.ErrClosed) {
				slog.Debug("client disconnected", "remote addr", conn.RemoteAddr())
				return
			}
			slog.Error("failed to read MBAP frame", "error", err)
			return
		}
		s.trace.InfoX(message.NewRaw(fmt.Sprintf("TX % X", modbus.AssembleMBAPFrame(txnID, pdu))))
		res := s.processPDU(pdu)
		if res == nil {
			continue
		}
		frame := modbus.AssembleMBAPFrame(txnID, res)
		if _, err := conn.Write(frame); err != nil {
			slog.Error("failed to write response", "error", err)
			return
		}
		s.trace.InfoX(message.NewRaw(fmt.Sprintf("RX % X", frame)))
	}
}

func (s *Server) processPDU(pdu *modbus.PDU) *modbus.PDU {
	s.mu.Lock()
	defer s.mu.Unlock()
	if pdu.UnitID != s.cfg.UnitID {
		slog.Debug("ignoring request for foreign unit", "unitID", pdu.UnitID)
		return nil
	}

	switch pdu.FunctionCode {
	case modbus.FC3ReadHoldingRegisters:
		return s.processFC3(pdu)
	case modbus.FC16WriteMultipleRegisters:
		return s.processFC16(pdu)
	}
	s.trace.Info(fmt.Sprintf("FC=%d not implemented", pdu.FunctionCode))
	return modbus.ExceptionPDU(pdu, excIllegalFunction)
}

func (s *Server) processFC3(pdu *modbus.PDU) *modbus.PDU {
	if len(pdu.Payload) < 4 {
		return modbus.ExceptionPDU(pdu, excIllegalDataAddress)
	}
	addr := encoding.BytesToUint16(pdu.Payload[0:2])
	quantity := encoding.BytesToUint16(pdu.Payload[2:4])
	s.trace.InfoX(message.NewDecoded(fmt.Sprintf("TX FC=%d UnitID=%d Address=0x%X Quantity=%d",
		pdu.FunctionCode, pdu.UnitID, addr, quantity)))

	regs := make([]uint16, 0, quantity)
	for i := uint16(0); i < quantity; i += 2 {
		high, low, ok := s.readRegisterPair(addr + i)
		if !ok || quantity-i < 2 {
			return modbus.ExceptionPDU(pdu, excIllegalDataAddress)
		}
		regs = append(regs, high, low)
	}

	payload := []byte{byte(quantity * 2)}
	payload = append(payload, encoding.RegistersToBytes(regs...)...)
	res := &modbus.PDU{UnitID: pdu.UnitID, FunctionCode: pdu.FunctionCode, Payload: payload}
	s.trace.InfoX(message.NewDecoded(fmt.Sprintf("RX FC=%d UnitID=%d Registers=%v", res.FunctionCode, res.UnitID, regs)))
	return res
}

func (s *Server) processFC16(pdu *modbus.PDU) *modbus.PDU {
	if len(pdu.Payload) < 5 {
		return modbus.ExceptionPDU(pdu, excIllegalDataAddress)
	}
	addr := encoding.BytesToUint16(pdu.Payload[0:2])
	quantity := encoding.BytesToUint16(pdu.Payload[2:4])
	byteCount := pdu.Payload[4]
	if int(byteCount) != int(quantity)*2 || len(pdu.Payload) != 5+int(byteCount) {
		slog.Debug("FC16 byte count mismatch", "expected", quantity*2, "got", byteCount)
		return modbus.ExceptionPDU(pdu, excIllegalDataAddress)
	}
	regs := encoding.BytesToRegisters(pdu.Payload[5:])
	s.trace.InfoX(message.NewDecoded(fmt.Sprintf("TX FC=%d UnitID=%d Address=0x%X Quantity=%d Registers=%v",
		pdu.FunctionCode, pdu.UnitID, addr, quantity, regs)))

	// The driver only ever writes whole float pairs; partial writes hit
	// no known register and are rejected.
	if quantity != 2 {
		return modbus.ExceptionPDU(pdu, excIllegalDataAddress)
	}
	if !s.writeRegisterPair(addr, regs[0], regs[1]) {
		return modbus.ExceptionPDU(pdu, excIllegalDataAddress)
	}

	// FC16 response: echo back starting address and quantity
	res := &modbus.PDU{UnitID: pdu.UnitID, FunctionCode: pdu.FunctionCode, Payload: pdu.Payload[0:4]}
	s.trace.InfoX(message.NewDecoded(fmt.Sprintf("RX FC=%d UnitID=%d Payload=% X", res.FunctionCode, res.UnitID, res.Payload)))
	return res
}

// locate resolves a register address to the zone and value it belongs to.
func (s *Server) locate(addr uint16) (z *oven, base uint16, ok bool) {
	zone := int(addr)/s.cfg.ModbusOffset + 1
	z, exists := s.zones[zone]
	if !exists {
		return nil, 0, false
	}
	base = uint16(int(addr) % s.cfg.ModbusOffset)
	switch base {
	case watlow.ActualAddress, watlow.SetpointAddress:
		return z, base, true
	case watlow.OutputAddress:
		return z, base, s.cfg.MapOutput
	}
	return nil, 0, false
}

func (s *Server) readRegisterPair(addr uint16) (high, low uint16, ok bool) {
	z, base, ok := s.locate(addr)
	if !ok {
		return 0, 0, false
	}
	var value float64
	switch base {
	case watlow.ActualAddress:
		// The oven settles toward its setpoint one degree per read.
		switch {
		case z.actual < z.setpoint:
			z.actual++
		case z.actual > z.setpoint:
			z.actual--
		}
		value = z.actual
	case watlow.SetpointAddress:
		value = z.setpoint
	case watlow.OutputAddress:
		value = z.output
	}
	high, low = encoding.Float32ToRegisters(float32(value))
	return high, low, true
}

func (s *Server) writeRegisterPair(addr, high, low uint16) bool {
	z, base, ok := s.locate(addr)
	if !ok || base != watlow.SetpointAddress {
		return false
	}
	z.setpoint = float64(encoding.RegistersToFloat32(high, low))
	return true
}

// Status renders the oven state for the interactive console.
func (s *Server) Status() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	var b strings.Builder
	fmt.Fprintf(&b, "Gateway unit %d, %d zones", s.cfg.UnitID, s.cfg.Zones)
	for i := 1; i <= s.cfg.Zones; i++ {
		z := s.zones[i]
		fmt.Fprintf(&b, "\n  - Zone %d: actual=%.2f setpoint=%.2f output=%.2f",
			i, z.actual, z.setpoint, z.output)
	}
	return b.String()
}

// SetActual forces a zone's process value, e.g. to simulate a heat loss.
func (s *Server) SetActual(zone int, valueC float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	z, ok := s.zones[zone]
	if !ok {
		return fmt.Errorf("sim: no such zone %d", zone)
	}
	z.actual = valueC
	return nil
}

// SetSetpoint changes a zone's setpoint from the control side.
func (s *Server) SetSetpoint(zone int, valueC float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	z, ok := s.zones[zone]
	if !ok {
		return fmt.Errorf("sim: no such zone %d", zone)
	}
	z.setpoint = valueC
	return nil
}

type nopPort struct{}

func (nopPort) InfoX(message.Message) {}
func (nopPort) Info(string)           {}
func (nopPort) Println(string)        {}
func (nopPort) Separator()            {}
func (nopPort) Mute()                 {}
func (nopPort) Unmute()               {}
func (nopPort) Toggle()               {}
