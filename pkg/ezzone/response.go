package ezzone

import (
	"encoding/binary"
	"math"
)

// Response builders for the controller side of the exchange. The driver
// never sends these; they exist for simulation and tests.

// ReadResponse builds the controller's response to ReadRequest(m) carrying
// the given value in Celsius.
func ReadResponse(m Member, valueC float64) []byte {
	header := []byte{0x06, 0x00, 0x10, 0x00, 0x0B}
	body := make([]byte, 0, 11)
	body = append(body, 0x02, 0x03, 0x01, byte(m >> 8), byte(m), 0x01, 0x08)
	body = binary.BigEndian.AppendUint32(body, math.Float32bits(float32(CToF(valueC))))
	return assemble(header, body)
}

// SetResponse builds the controller's response to SetRequest, echoing the
// accepted setpoint in Celsius.
func SetResponse(setpointC float64) []byte {
	header := []byte{0x06, 0x00, 0x10, 0x00, 0x0A}
	body := make([]byte, 0, 10)
	body = append(body, 0x02, 0x04, 0x07, 0x01, 0x01, 0x08)
	body = binary.BigEndian.AppendUint32(body, math.Float32bits(float32(CToF(setpointC))))
	return assemble(header, body)
}
