package encoding

import (
	"math"
	"testing"
)

func TestFloat32RegisterRoundtrip(t *testing.T) {
	values := []float32{
		0,
		float32(math.Copysign(0, -1)),
		1,
		-1,
		21.66,
		-40,
		220,
		math.MaxFloat32,
		-math.MaxFloat32,
		math.SmallestNonzeroFloat32,
		-math.SmallestNonzeroFloat32,
		1.4e-42, // subnormal
	}
	for _, v := range values {
		high, low := Float32ToRegisters(v)
		got := RegistersToFloat32(high, low)
		if math.Float32bits(got) != math.Float32bits(v) {
			t.Errorf("roundtrip %v: got %v (bits %08x want %08x)",
				v, got, math.Float32bits(got), math.Float32bits(v))
		}
	}
}

func TestFloat32RegisterLayout(t *testing.T) {
	// 25.0 = 0x41C80000, high word first
	high, low := Float32ToRegisters(25.0)
	if high != 0x41C8 || low != 0x0000 {
		t.Errorf("got high=%04x low=%04x, want 41c8 0000", high, low)
	}
}

func TestRegisterBytes(t *testing.T) {
	b := RegistersToBytes(0x41C8, 0x0001)
	want := []byte{0x41, 0xC8, 0x00, 0x01}
	if len(b) != len(want) {
		t.Fatalf("got %d bytes, want %d", len(b), len(want))
	}
	for i := range want {
		if b[i] != want[i] {
			t.Fatalf("byte %d: got %02x want %02x", i, b[i], want[i])
		}
	}
	regs := BytesToRegisters(b)
	if regs[0] != 0x41C8 || regs[1] != 0x0001 {
		t.Errorf("unpack: got %04x %04x", regs[0], regs[1])
	}
}

func TestHex(t *testing.T) {
	h, err := NewHex("0x870")
	if err != nil {
		t.Fatal(err)
	}
	if h.Uint16() != 2160 {
		t.Errorf("got %d, want 2160", h.Uint16())
	}
	if err := h.Set("360"); err != nil {
		t.Fatal(err)
	}
	if h.Uint16() != 360 {
		t.Errorf("got %d, want 360", h.Uint16())
	}
	if err := h.Set("0x10000"); err == nil {
		t.Error("expected overflow error")
	}
	if err := h.Set("bogus"); err == nil {
		t.Error("expected parse error")
	}
}
