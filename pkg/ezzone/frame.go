// Package ezzone frames and parses the Watlow EZ-Zone serial protocol.
//
// The controller speaks BACnet MS/TP over RS-485/422. A frame is:
//
//	55 FF | header(5) | header CRC-8(1) | body(N) | data CRC-16(2, LE)
//
// Request headers are 05 10 00 00 <bodyLen>, response headers are
// 06 00 10 00 <bodyLen>. The length byte counts body bytes only, neither
// checksum included. Values travel as big endian float32, in Fahrenheit.
package ezzone

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"
)

// ErrProtocol is wrapped by every framing and decoding failure: bad
// preamble, short frame, length disagreement or checksum mismatch.
var ErrProtocol = errors.New("ezzone: protocol error")

// Member identifies a readable controller value.
type Member uint16

const (
	MemberActual   Member = 0x0401 // process value
	MemberSetpoint Member = 0x0701
)

// Frame sizes are fixed because the driver only ever exchanges float32
// values.
const (
	ReadRequestLen  = 16
	SetRequestLen   = 20
	ReadResponseLen = 21
	SetResponseLen  = 20

	preambleLen = 2
	headerLen   = 5
)

var preamble = []byte{0x55, 0xFF}

// crc8 is the BACnet MS/TP header CRC: poly x^8+x^7+1 reflected (0x81),
// initial value 0xFF. The wire value is the ones complement.
func crc8(data []byte) byte {
	crc := byte(0xFF)
	for _, b := range data {
		crc ^= b
		for i := 0; i < 8; i++ {
			if crc&0x01 != 0 {
				crc = (crc >> 1) ^ 0x81
			} else {
				crc = crc >> 1
			}
		}
	}
	return crc
}

// crc16 is the BACnet MS/TP data CRC: poly x^16+x^12+x^5+1 reflected
// (0x8408), initial value 0xFFFF. The wire value is the ones complement,
// low byte first.
func crc16(data []byte) uint16 {
	crc := uint16(0xFFFF)
	for _, b := range data {
		crc ^= uint16(b)
		for i := 0; i < 8; i++ {
			if crc&0x0001 != 0 {
				crc = (crc >> 1) ^ 0x8408
			} else {
				crc = crc >> 1
			}
		}
	}
	return crc
}

// assemble builds a complete frame from header and body, computing both
// checksums.
func assemble(header, body []byte) []byte {
	frame := make([]byte, 0, preambleLen+headerLen+1+len(body)+2)
	frame = append(frame, preamble...)
	frame = append(frame, header...)
	frame = append(frame, ^crc8(header))
	frame = append(frame, body...)
	frame = binary.LittleEndian.AppendUint16(frame, ^crc16(body))
	return frame
}

// ReadRequest builds the fixed frame requesting the given member.
func ReadRequest(m Member) []byte {
	header := []byte{0x05, 0x10, 0x00, 0x00, 0x06}
	body := []byte{0x01, 0x03, 0x01, byte(m >> 8), byte(m), 0x01}
	return assemble(header, body)
}

// SetRequest builds the write-setpoint frame for a setpoint in Celsius.
// The value is converted to Fahrenheit and packed as big endian float32.
func SetRequest(setpointC float64) []byte {
	header := []byte{0x05, 0x10, 0x00, 0x00, 0x0A}
	body := make([]byte, 0, 10)
	body = append(body, 0x01, 0x04, 0x07, 0x01, 0x01, 0x08)
	body = binary.BigEndian.AppendUint32(body, math.Float32bits(float32(CToF(setpointC))))
	return assemble(header, body)
}

// split validates the outer framing shared by all responses and returns
// header and body. Both checksums are verified here.
func split(frame []byte) (header, body []byte, err error) {
	if len(frame) < preambleLen+headerLen+1+2 {
		return nil, nil, fmt.Errorf("%w: frame too short (%d bytes)", ErrProtocol, len(frame))
	}
	if frame[0] != preamble[0] || frame[1] != preamble[1] {
		return nil, nil, fmt.Errorf("%w: bad preamble % X", ErrProtocol, frame[:2])
	}
	header = frame[preambleLen : preambleLen+headerLen]
	bodyLen := int(header[headerLen-1])
	if len(frame) != preambleLen+headerLen+1+bodyLen+2 {
		return nil, nil, fmt.Errorf("%w: length byte %d disagrees with frame size %d",
			ErrProtocol, bodyLen, len(frame))
	}
	if got := frame[preambleLen+headerLen]; got != ^crc8(header) {
		return nil, nil, fmt.Errorf("%w: header checksum mismatch: got %02X want %02X",
			ErrProtocol, got, ^crc8(header))
	}
	body = frame[preambleLen+headerLen+1 : len(frame)-2]
	if got := binary.LittleEndian.Uint16(frame[len(frame)-2:]); got != ^crc16(body) {
		return nil, nil, fmt.Errorf("%w: data checksum mismatch: got %04X want %04X",
			ErrProtocol, got, ^crc16(body))
	}
	return header, body, nil
}

// parseValue validates a response body against the expected prefix and
// extracts the trailing float32, converted to Celsius.
func parseValue(header, body, wantPrefix []byte) (float64, error) {
	if header[0] != 0x06 {
		return 0, fmt.Errorf("%w: not a response frame (header % X)", ErrProtocol, header)
	}
	if len(body) != len(wantPrefix)+4 {
		return 0, fmt.Errorf("%w: body length %d, want %d", ErrProtocol, len(body), len(wantPrefix)+4)
	}
	for i, b := range wantPrefix {
		if body[i] != b {
			return 0, fmt.Errorf("%w: unexpected body % X", ErrProtocol, body)
		}
	}
	f := math.Float32frombits(binary.BigEndian.Uint32(body[len(wantPrefix):]))
	return FToC(float64(f)), nil
}

// ParseReadResponse decodes the response to ReadRequest(m) and returns the
// value in Celsius.
func ParseReadResponse(frame []byte, m Member) (float64, error) {
	header, body, err := split(frame)
	if err != nil {
		return 0, err
	}
	prefix := []byte{0x02, 0x03, 0x01, byte(m >> 8), byte(m), 0x01, 0x08}
	return parseValue(header, body, prefix)
}

// ParseSetResponse decodes the response to SetRequest and returns the
// setpoint echoed by the controller, in Celsius.
func ParseSetResponse(frame []byte) (float64, error) {
	header, body, err := split(frame)
	if err != nil {
		return 0, err
	}
	prefix := []byte{0x02, 0x04, 0x07, 0x01, 0x01, 0x08}
	return parseValue(header, body, prefix)
}

// CToF converts Celsius to Fahrenheit.
func CToF(c float64) float64 {
	return c*1.8 + 32.0
}

// FToC converts Fahrenheit to Celsius.
func FToC(f float64) float64 {
	return (f - 32.0) / 1.8
}
