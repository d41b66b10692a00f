package console

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/chzyer/readline"
	"github.com/numat/watlow"
)

// KeyboardAdapter runs the interactive simulator console. It manipulates
// oven state through a watlow.ControlPort and trace verbosity through a
// watlow.ProtocolPort.
type KeyboardAdapter struct {
	control  watlow.ControlPort
	protocol watlow.ProtocolPort
}

func NewKeyboardAdapter(control watlow.ControlPort, protocol watlow.ProtocolPort) *KeyboardAdapter {
	return &KeyboardAdapter{control: control, protocol: protocol}
}

func (a *KeyboardAdapter) Start(cancel context.CancelFunc) {
	rl, err := readline.New("> ")
	if err != nil {
		fmt.Println("console unavailable:", err)
		return
	}
	defer rl.Close()

	a.protocol.Println("Enter 'h' followed by <enter> for help...")
	for {
		line, err := rl.Readline()
		if err != nil { // io.EOF or readline.ErrInterrupt
			cancel()
			return
		}
		fields := strings.Fields(line)
		if len(fields) == 0 {
			continue
		}
		switch fields[0] {
		case "quit", "exit", "q":
			a.protocol.Println("Terminating simulator...")
			cancel()
			return
		case "status", "s":
			a.protocol.Println(a.control.Status())
		case "actual", "a":
			a.setZoneValue(fields[1:], a.control.SetActual)
		case "setpoint", "sp":
			a.setZoneValue(fields[1:], a.control.SetSetpoint)
		case "mute", "m":
			a.protocol.Mute()
		case "unmute", "u":
			a.protocol.Unmute()
		case "toggle", "t":
			a.protocol.Toggle()
		case "help", "h":
			a.protocol.Println("Commands:")
			a.protocol.Println("  quit/exit/q          - Quit simulator")
			a.protocol.Println("  status/s             - Show oven state")
			a.protocol.Println("  actual/a ZONE VALUE  - Force a zone's process value")
			a.protocol.Println("  setpoint/sp ZONE VALUE - Change a zone's setpoint")
			a.protocol.Println("  mute/m, unmute/u     - Silence / resume traffic traces")
			a.protocol.Println("  toggle/t             - Switch raw vs decoded traces")
			a.protocol.Println("  help/h               - Show help")
		default:
			a.protocol.Println(fmt.Sprintf("Unknown command: %s (use 'h' for help)", fields[0]))
		}
	}
}

func (a *KeyboardAdapter) setZoneValue(args []string, set func(int, float64) error) {
	if len(args) != 2 {
		a.protocol.Println("usage: <command> ZONE VALUE")
		return
	}
	zone, err := strconv.Atoi(args[0])
	if err != nil {
		a.protocol.Println("bad zone: " + args[0])
		return
	}
	value, err := strconv.ParseFloat(args[1], 64)
	if err != nil {
		a.protocol.Println("bad value: " + args[1])
		return
	}
	if err := set(zone, value); err != nil {
		a.protocol.Println(err.Error())
	}
}
