package sim

import (
	"strings"
	"testing"

	"github.com/numat/watlow"
	"github.com/numat/watlow/encoding"
	"github.com/numat/watlow/pkg/modbus"
)

func TestProcessFC3(t *testing.T) {
	s := NewServer(Config{MapOutput: true})

	req := modbus.ReadHoldingRegistersPDU(1, watlow.SetpointAddress, 2)
	res := s.processPDU(req)
	if res == nil {
		t.Fatal("no response")
	}
	regs, err := modbus.ParseReadRegisters(req, 1, res, 1)
	if err != nil {
		t.Fatal(err)
	}
	if got := encoding.RegistersToFloat32(regs[0], regs[1]); got != 25.0 {
		t.Errorf("setpoint = %v, want 25.0", got)
	}
}

func TestProcessFC16(t *testing.T) {
	s := NewServer(Config{})

	high, low := encoding.Float32ToRegisters(42.5)
	req := modbus.WriteRegistersPDU(1, watlow.SetpointAddress, []uint16{high, low})
	res := s.processPDU(req)
	if res == nil {
		t.Fatal("no response")
	}
	if err := modbus.ParseWriteResponse(req, 1, res, 1); err != nil {
		t.Fatal(err)
	}
	if s.zones[1].setpoint != 42.5 {
		t.Errorf("setpoint = %v, want 42.5", s.zones[1].setpoint)
	}
}

func TestProcessRejectsUnknown(t *testing.T) {
	s := NewServer(Config{})

	// unknown function code
	res := s.processPDU(&modbus.PDU{UnitID: 1, FunctionCode: 0x06, Payload: []byte{0, 0, 0, 0}})
	if res == nil || res.FunctionCode&modbus.ExceptionFlag == 0 {
		t.Errorf("unknown function: got %v, want exception", res)
	}

	// unmapped register
	req := modbus.ReadHoldingRegistersPDU(1, 42, 2)
	res = s.processPDU(req)
	if res == nil || res.FunctionCode&modbus.ExceptionFlag == 0 {
		t.Errorf("unmapped register: got %v, want exception", res)
	}

	// output block unmapped by default in this config
	req = modbus.ReadHoldingRegistersPDU(1, watlow.OutputAddress, 2)
	res = s.processPDU(req)
	if res == nil || res.FunctionCode&modbus.ExceptionFlag == 0 {
		t.Errorf("output register: got %v, want exception", res)
	}

	// foreign unit ids are ignored, not answered
	if res := s.processPDU(modbus.ReadHoldingRegistersPDU(9, watlow.ActualAddress, 2)); res != nil {
		t.Errorf("foreign unit: got %v, want no response", res)
	}
}

func TestDrift(t *testing.T) {
	s := NewServer(Config{})
	s.zones[1].setpoint = 30

	req := modbus.ReadHoldingRegistersPDU(1, watlow.ActualAddress, 2)
	for i := 0; i < 3; i++ {
		res := s.processPDU(req)
		regs, err := modbus.ParseReadRegisters(req, 1, res, 1)
		if err != nil {
			t.Fatal(err)
		}
		want := float32(26 + i)
		if got := encoding.RegistersToFloat32(regs[0], regs[1]); got != want {
			t.Errorf("read %d: actual = %v, want %v", i, got, want)
		}
	}
}

func TestControlPort(t *testing.T) {
	s := NewServer(Config{Zones: 2})

	if err := s.SetActual(2, 100); err != nil {
		t.Fatal(err)
	}
	if err := s.SetSetpoint(2, 150); err != nil {
		t.Fatal(err)
	}
	if err := s.SetActual(3, 100); err == nil {
		t.Error("expected an error for an unknown zone")
	}

	status := s.Status()
	if !strings.Contains(status, "Zone 2: actual=100.00 setpoint=150.00") {
		t.Errorf("status does not reflect zone 2:\n%s", status)
	}
}
