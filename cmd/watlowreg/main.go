// Command watlowreg reads and writes raw gateway holding registers. The
// EZ-Zone exposes far more registers than the driver maps (PID
// parameters, alarms, profiles); this tool exists to poke at them.
package main

import (
	"flag"
	"fmt"
	"log"
	"time"

	bmodbus "github.com/goburrow/modbus"
	"github.com/numat/watlow/encoding"
)

func main() {
	addr := flag.String("addr", "localhost:502", "gateway address")
	unitID := flag.Int("unit", 1, "modbus unit id")
	register := new(encoding.Hex)
	flag.Var(register, "register", "register address, e.g. 0x870 or 2160")
	count := flag.Int("count", 2, "registers to read")
	value := flag.Float64("write", 0, "float value to write as a register pair")
	doWrite := flag.Bool("w", false, "write instead of read")
	flag.Parse()

	h := bmodbus.NewTCPClientHandler(*addr)
	h.Timeout = 1 * time.Second
	h.SlaveId = byte(*unitID)
	if err := h.Connect(); err != nil {
		log.Fatal(err)
	}
	defer h.Close()

	client := bmodbus.NewClient(h)
	if *doWrite {
		high, low := encoding.Float32ToRegisters(float32(*value))
		bb, err := client.WriteMultipleRegisters(register.Uint16(), 2, encoding.RegistersToBytes(high, low))
		if err != nil {
			log.Fatal(err)
		}
		fmt.Printf("response: % X\n", bb)
		return
	}

	bb, err := client.ReadHoldingRegisters(register.Uint16(), uint16(*count))
	if err != nil {
		log.Fatal(err)
	}
	regs := encoding.BytesToRegisters(bb)
	for i, r := range regs {
		fmt.Printf("%s+%d: 0x%04X (%d)\n", register, i, r, r)
	}
	if len(regs) >= 2 {
		fmt.Printf("as float32: %v\n", encoding.RegistersToFloat32(regs[0], regs[1]))
	}
}
