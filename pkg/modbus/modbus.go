// Package modbus implements the subset of ModBus-TCP the EZ-Zone gateway
// speaks: function 3 (read holding registers) and function 16 (write
// multiple registers), framed with the standard MBAP header.
package modbus

import (
	"errors"
	"fmt"
	"io"

	"github.com/numat/watlow/encoding"
)

const (
	FC3ReadHoldingRegisters    uint8 = 0x03
	FC16WriteMultipleRegisters uint8 = 0x10

	// ExceptionFlag is set on the function code of an exception response.
	ExceptionFlag uint8 = 0x80

	mbapHeaderSize = 7
	maxPDUSize     = 253
)

// ErrProtocol is wrapped by every response validation failure: mismatched
// transaction id, unit id or function code, bad byte counts, and gateway
// exception responses.
var ErrProtocol = errors.New("modbus: protocol error")

// ExceptionError is the exception code of a slave exception response. It
// always travels wrapped together with ErrProtocol.
type ExceptionError uint8

func (e ExceptionError) Error() string {
	return fmt.Sprintf("exception response, code %d", uint8(e))
}

// PDU is a struct to represent a ModBus Protocol Data Unit.
type PDU struct {
	UnitID       uint8
	FunctionCode uint8
	Payload      []byte
}

func (p PDU) String() string {
	return fmt.Sprintf("UnitID:%d FC:%d Payload:% X", p.UnitID, p.FunctionCode, p.Payload)
}

// AssembleMBAPFrame turns a PDU into an MBAP frame (MBAP header + PDU) and
// returns it as bytes.
func AssembleMBAPFrame(txnID uint16, p *PDU) []byte {
	// transaction identifier
	frame := encoding.Uint16ToBytes(txnID)

	// protocol identifier (always 0x0000)
	frame = append(frame, 0x00, 0x00)

	// length (covers unit identifier + function code + payload fields)
	frame = append(frame, encoding.Uint16ToBytes(uint16(2+len(p.Payload)))...)

	// unit identifier
	frame = append(frame, p.UnitID)

	// function code
	frame = append(frame, p.FunctionCode)

	// payload
	frame = append(frame, p.Payload...)

	return frame
}

// ReadMBAPFrame reads one complete ADU: the 7-byte MBAP header followed by
// as many bytes as the header's length field declares. It returns the PDU
// and the transaction id.
func ReadMBAPFrame(r io.Reader) (*PDU, uint16, error) {
	header := make([]byte, mbapHeaderSize)
	if _, err := io.ReadFull(r, header); err != nil {
		return nil, 0, err
	}
	txnID := encoding.BytesToUint16(header[0:2])
	if protoID := encoding.BytesToUint16(header[2:4]); protoID != 0 {
		return nil, txnID, fmt.Errorf("%w: protocol id %d, want 0", ErrProtocol, protoID)
	}
	length := encoding.BytesToUint16(header[4:6])
	if length < 2 || length > maxPDUSize+1 {
		return nil, txnID, fmt.Errorf("%w: implausible length field %d", ErrProtocol, length)
	}
	// length covers unit id + function code + payload; unit id is part of
	// the header we already read
	rest := make([]byte, length-1)
	if _, err := io.ReadFull(r, rest); err != nil {
		return nil, txnID, err
	}
	return &PDU{
		UnitID:       header[6],
		FunctionCode: rest[0],
		Payload:      rest[1:],
	}, txnID, nil
}

// ReadHoldingRegistersPDU builds a function 3 request PDU.
func ReadHoldingRegistersPDU(unitID uint8, addr, quantity uint16) *PDU {
	payload := encoding.Uint16ToBytes(addr)
	payload = append(payload, encoding.Uint16ToBytes(quantity)...)
	return &PDU{UnitID: unitID, FunctionCode: FC3ReadHoldingRegisters, Payload: payload}
}

// WriteRegistersPDU builds a function 16 request PDU writing the given
// registers starting at addr.
func WriteRegistersPDU(unitID uint8, addr uint16, regs []uint16) *PDU {
	payload := encoding.Uint16ToBytes(addr)
	payload = append(payload, encoding.Uint16ToBytes(uint16(len(regs)))...)
	payload = append(payload, byte(len(regs)*2))
	payload = append(payload, encoding.RegistersToBytes(regs...)...)
	return &PDU{UnitID: unitID, FunctionCode: FC16WriteMultipleRegisters, Payload: payload}
}

// verify checks the response correlation fields against the request. The
// gateway must echo transaction id and unit id; the function code must
// match unless the exception flag is set.
func verify(req *PDU, reqTxnID uint16, res *PDU, resTxnID uint16) error {
	if resTxnID != reqTxnID {
		return fmt.Errorf("%w: transaction id mismatch: got %d, want %d", ErrProtocol, resTxnID, reqTxnID)
	}
	if res.UnitID != req.UnitID {
		return fmt.Errorf("%w: unit id mismatch: got %d, want %d", ErrProtocol, res.UnitID, req.UnitID)
	}
	if res.FunctionCode == req.FunctionCode|ExceptionFlag {
		code := uint8(0)
		if len(res.Payload) > 0 {
			code = res.Payload[0]
		}
		return fmt.Errorf("%w: %w", ErrProtocol, ExceptionError(code))
	}
	if res.FunctionCode != req.FunctionCode {
		return fmt.Errorf("%w: function code mismatch: got %d, want %d",
			ErrProtocol, res.FunctionCode, req.FunctionCode)
	}
	return nil
}

// ParseReadRegisters validates a function 3 response against its request
// and returns the register values.
func ParseReadRegisters(req *PDU, reqTxnID uint16, res *PDU, resTxnID uint16) ([]uint16, error) {
	if err := verify(req, reqTxnID, res, resTxnID); err != nil {
		return nil, err
	}
	if len(res.Payload) < 1 {
		return nil, fmt.Errorf("%w: empty read response", ErrProtocol)
	}
	byteCount := int(res.Payload[0])
	if byteCount%2 != 0 {
		return nil, fmt.Errorf("%w: odd byte count %d", ErrProtocol, byteCount)
	}
	if len(res.Payload)-1 != byteCount {
		return nil, fmt.Errorf("%w: byte count %d disagrees with payload length %d",
			ErrProtocol, byteCount, len(res.Payload)-1)
	}
	wantQuantity := encoding.BytesToUint16(req.Payload[2:4])
	if byteCount != int(wantQuantity)*2 {
		return nil, fmt.Errorf("%w: got %d registers, want %d", ErrProtocol, byteCount/2, wantQuantity)
	}
	return encoding.BytesToRegisters(res.Payload[1:]), nil
}

// ParseWriteResponse validates a function 16 response, which echoes the
// start address and register quantity of the request.
func ParseWriteResponse(req *PDU, reqTxnID uint16, res *PDU, resTxnID uint16) error {
	if err := verify(req, reqTxnID, res, resTxnID); err != nil {
		return err
	}
	if len(res.Payload) != 4 {
		return fmt.Errorf("%w: write response payload length %d, want 4", ErrProtocol, len(res.Payload))
	}
	if encoding.BytesToUint16(res.Payload[0:2]) != encoding.BytesToUint16(req.Payload[0:2]) ||
		encoding.BytesToUint16(res.Payload[2:4]) != encoding.BytesToUint16(req.Payload[2:4]) {
		return fmt.Errorf("%w: write response % X does not echo request", ErrProtocol, res.Payload)
	}
	return nil
}

// ExceptionPDU builds the exception response for a request.
func ExceptionPDU(req *PDU, code uint8) *PDU {
	return &PDU{
		UnitID:       req.UnitID,
		FunctionCode: req.FunctionCode | ExceptionFlag,
		Payload:      []byte{code},
	}
}
