package encoding

import (
	"encoding/binary"
	"math"
)

func Uint16ToBytes(in uint16) []byte {
	out := make([]byte, 2)
	binary.BigEndian.PutUint16(out, in)
	return out
}

func BytesToUint16(in []byte) uint16 {
	return binary.BigEndian.Uint16(in)
}

// Float32ToRegisters converts a float32 value to two uint16 registers. The
// EZ-Zone gateway stores 32-bit floats high word first.
func Float32ToRegisters(f float32) (uint16, uint16) {
	bits := math.Float32bits(f)
	high := uint16(bits >> 16)
	low := uint16(bits & 0xFFFF)
	return high, low
}

// RegistersToFloat32 converts two uint16 registers (high word first) to a
// float32 value.
func RegistersToFloat32(high, low uint16) float32 {
	bits := (uint32(high) << 16) | uint32(low)
	return math.Float32frombits(bits)
}

// RegistersToBytes packs registers big endian, two bytes per register, the
// layout modbus uses for register payloads.
func RegistersToBytes(regs ...uint16) []byte {
	out := make([]byte, 0, len(regs)*2)
	for _, r := range regs {
		out = append(out, byte(r>>8), byte(r))
	}
	return out
}

// BytesToRegisters unpacks a big endian register payload. The payload length
// must be even.
func BytesToRegisters(in []byte) []uint16 {
	out := make([]uint16, len(in)/2)
	for i := range out {
		out[i] = uint16(in[2*i])<<8 | uint16(in[2*i+1])
	}
	return out
}
