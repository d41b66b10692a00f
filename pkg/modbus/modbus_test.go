package modbus

import (
	"bytes"
	"errors"
	"testing"

	"github.com/numat/watlow/encoding"
)

func TestAssembleMBAPFrame(t *testing.T) {
	req := ReadHoldingRegistersPDU(1, 360, 2)
	frame := AssembleMBAPFrame(0x1234, req)
	want := []byte{
		0x12, 0x34, // transaction id
		0x00, 0x00, // protocol id
		0x00, 0x06, // length: unit id + fc + 4 payload bytes
		0x01,       // unit id
		0x03,       // function code
		0x01, 0x68, // address 360
		0x00, 0x02, // quantity
	}
	if !bytes.Equal(frame, want) {
		t.Errorf("frame = % X, want % X", frame, want)
	}
}

func TestWriteRegistersPDU(t *testing.T) {
	high, low := encoding.Float32ToRegisters(30.0)
	req := WriteRegistersPDU(1, 2160, []uint16{high, low})
	want := []byte{
		0x08, 0x70, // address 2160
		0x00, 0x02, // quantity
		0x04,                   // byte count
		0x41, 0xF0, 0x00, 0x00, // 30.0f
	}
	if req.FunctionCode != FC16WriteMultipleRegisters {
		t.Errorf("function code = %d", req.FunctionCode)
	}
	if !bytes.Equal(req.Payload, want) {
		t.Errorf("payload = % X, want % X", req.Payload, want)
	}
}

func TestFrameRoundtrip(t *testing.T) {
	req := ReadHoldingRegistersPDU(3, 10360, 2)
	frame := AssembleMBAPFrame(77, req)
	got, txnID, err := ReadMBAPFrame(bytes.NewReader(frame))
	if err != nil {
		t.Fatal(err)
	}
	if txnID != 77 {
		t.Errorf("transaction id = %d, want 77", txnID)
	}
	if got.UnitID != 3 || got.FunctionCode != FC3ReadHoldingRegisters {
		t.Errorf("got %v", got)
	}
	if !bytes.Equal(got.Payload, req.Payload) {
		t.Errorf("payload = % X, want % X", got.Payload, req.Payload)
	}
}

func TestReadMBAPFrameBadProtocolID(t *testing.T) {
	frame := AssembleMBAPFrame(1, ReadHoldingRegistersPDU(1, 0, 1))
	frame[3] = 0x01
	if _, _, err := ReadMBAPFrame(bytes.NewReader(frame)); !errors.Is(err, ErrProtocol) {
		t.Errorf("got %v, want ErrProtocol", err)
	}
}

func TestReadMBAPFrameTruncated(t *testing.T) {
	frame := AssembleMBAPFrame(1, ReadHoldingRegistersPDU(1, 0, 1))
	if _, _, err := ReadMBAPFrame(bytes.NewReader(frame[:9])); err == nil {
		t.Error("expected an error for a truncated frame")
	}
}

func readResponse(req *PDU, regs []uint16) *PDU {
	payload := []byte{byte(len(regs) * 2)}
	payload = append(payload, encoding.RegistersToBytes(regs...)...)
	return &PDU{UnitID: req.UnitID, FunctionCode: req.FunctionCode, Payload: payload}
}

func TestParseReadRegisters(t *testing.T) {
	req := ReadHoldingRegistersPDU(1, 360, 2)
	res := readResponse(req, []uint16{0x41C8, 0x0000})
	regs, err := ParseReadRegisters(req, 5, res, 5)
	if err != nil {
		t.Fatal(err)
	}
	if len(regs) != 2 || regs[0] != 0x41C8 || regs[1] != 0x0000 {
		t.Errorf("regs = %v", regs)
	}
	if got := encoding.RegistersToFloat32(regs[0], regs[1]); got != 25.0 {
		t.Errorf("value = %v, want 25.0", got)
	}
}

func TestParseReadRegistersMismatches(t *testing.T) {
	req := ReadHoldingRegistersPDU(1, 360, 2)
	good := readResponse(req, []uint16{1, 2})

	cases := []struct {
		name     string
		res      *PDU
		resTxnID uint16
	}{
		{"transaction id", good, 6},
		{"unit id", &PDU{UnitID: 2, FunctionCode: good.FunctionCode, Payload: good.Payload}, 5},
		{"function code", &PDU{UnitID: 1, FunctionCode: FC16WriteMultipleRegisters, Payload: good.Payload}, 5},
		{"byte count", &PDU{UnitID: 1, FunctionCode: good.FunctionCode, Payload: []byte{6, 0, 1, 0, 2}}, 5},
		{"quantity", &PDU{UnitID: 1, FunctionCode: good.FunctionCode, Payload: []byte{2, 0, 1}}, 5},
		{"exception", ExceptionPDU(req, 2), 5},
		{"empty", &PDU{UnitID: 1, FunctionCode: good.FunctionCode}, 5},
	}
	for _, c := range cases {
		if _, err := ParseReadRegisters(req, 5, c.res, c.resTxnID); !errors.Is(err, ErrProtocol) {
			t.Errorf("%s: got %v, want ErrProtocol", c.name, err)
		}
	}

	if _, err := ParseReadRegisters(req, 5, good, 5); err != nil {
		t.Errorf("valid response rejected: %v", err)
	}
}

func TestParseWriteResponse(t *testing.T) {
	req := WriteRegistersPDU(1, 2160, []uint16{0x41F0, 0})
	echo := &PDU{UnitID: 1, FunctionCode: FC16WriteMultipleRegisters, Payload: req.Payload[0:4]}
	if err := ParseWriteResponse(req, 9, echo, 9); err != nil {
		t.Fatal(err)
	}

	wrong := &PDU{UnitID: 1, FunctionCode: FC16WriteMultipleRegisters, Payload: []byte{0x00, 0x00, 0x00, 0x02}}
	if err := ParseWriteResponse(req, 9, wrong, 9); !errors.Is(err, ErrProtocol) {
		t.Errorf("got %v, want ErrProtocol", err)
	}
}
