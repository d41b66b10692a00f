package encoding

import (
	"fmt"
	"strconv"
	"strings"
)

// Hex is a uint16 register address that parses from decimal, hex (0x...) or
// octal notation. It implements flag.Value for CLI use.
type Hex uint16

func NewHex(value string) (*Hex, error) {
	var h = new(Hex)
	if err := h.Set(value); err != nil {
		return nil, err
	}
	return h, nil
}

func (h *Hex) Uint16() uint16 {
	return uint16(*h)
}

func (h *Hex) Set(value string) error {
	value = strings.TrimSpace(value)
	addr, err := strconv.ParseUint(value, 0, 16)
	if err != nil {
		return fmt.Errorf("invalid register address: %v", err)
	}
	*h = Hex(addr)
	return nil
}

func (h *Hex) String() string {
	return fmt.Sprintf("0x%X", uint64(*h))
}
