// Command watlowsim simulates an EZ-Zone ModBus gateway with ovens
// behind it, for exercising the driver and CLI without hardware. An
// interactive console manipulates oven state and trace verbosity.
package main

import (
	"context"
	"flag"
	"log/slog"
	"os"

	"github.com/numat/watlow/console"
	"github.com/numat/watlow/sim"
)

func main() {
	addr := flag.String("addr", "localhost:5502", "listen address")
	zones := flag.Int("zones", 8, "number of simulated zones")
	unitID := flag.Int("unit", 1, "modbus unit id")
	noOutput := flag.Bool("no-output", false, "leave the output power register unmapped")
	debug := flag.Bool("debug", false, "set log level to debug")
	flag.Parse()

	if *debug {
		slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug})))
	}

	protocol := console.NewProtocolAdapter()
	server := sim.NewServer(sim.Config{
		UnitID:    uint8(*unitID),
		Zones:     *zones,
		MapOutput: !*noOutput,
		Trace:     protocol,
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := server.Start(ctx, *addr); err != nil {
		panic(err)
	}
	defer server.Stop()

	keyboard := console.NewKeyboardAdapter(server, protocol)
	go keyboard.Start(cancel)

	<-ctx.Done()
}
