package watlow

import "fmt"

// Gateway register map. Each zone occupies its own block of
// DefaultModbusOffset registers; within a block the interesting values
// are 32-bit floats at fixed bases, high word first.
const (
	ActualAddress   uint16 = 360
	SetpointAddress uint16 = 2160
	OutputAddress   uint16 = 1904

	// DefaultModbusOffset is the register distance between zone blocks.
	DefaultModbusOffset = 5000
)

// Default setpoint limits, in Celsius. The upper limit is configurable on
// the gateway driver; ovens able to run hotter exist.
const (
	MinSetpoint        = 10.0
	DefaultMaxSetpoint = 220.0
)

// ZoneAddress maps a 1-based zone and a base register to the zone's
// absolute register address.
func ZoneAddress(zone int, base uint16, offset int) (uint16, error) {
	if zone < 1 {
		return 0, fmt.Errorf("watlow: zone %d out of range, zones are 1-based", zone)
	}
	addr := (zone-1)*offset + int(base)
	if addr > 0xFFFF {
		return 0, fmt.Errorf("watlow: zone %d register %d exceeds the address space", zone, addr)
	}
	return uint16(addr), nil
}
