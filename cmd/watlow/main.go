// Command watlow reads and adjusts Watlow EZ-Zone temperature
// controllers from the command line.
//
//	watlow /dev/ttyUSB0
//	watlow /dev/ttyUSB0 --set-setpoint 60
//	watlow oven-gateway -z 2
//
// The positional argument is a serial device path, or a host when a
// zone is given (gateway mode). On success one JSON object is printed;
// on any failure the process exits non-zero without emitting JSON.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"math"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/numat/watlow"
	"github.com/numat/watlow/config"
)

func main() {
	var setpoint float64
	flag.Float64Var(&setpoint, "set-setpoint", math.NaN(), "set the setpoint temperature, in Celsius")
	flag.Float64Var(&setpoint, "f", math.NaN(), "shorthand for -set-setpoint")
	var zone int
	flag.IntVar(&zone, "zone", 0, "zone to address, gateway mode only")
	flag.IntVar(&zone, "z", 0, "shorthand for -zone")
	cfgPath := flag.String("config", "", "optional TOML config file")
	debug := flag.Bool("debug", false, "set log level to debug")
	flag.Parse()

	if *debug {
		slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug})))
	}

	cfg := &config.Config{}
	if *cfgPath != "" {
		var err error
		cfg, err = config.Load(*cfgPath)
		if err != nil {
			fatal(err)
		}
	}

	target := flag.Arg(0)
	var reading watlow.Reading
	var err error
	if zone > 0 {
		if target == "" {
			target = cfg.Gateway.Address
		}
		if target == "" {
			fatal(fmt.Errorf("gateway mode needs a host argument"))
		}
		reading, err = runGateway(target, zone, setpoint, cfg.Gateway)
	} else {
		if target == "" {
			target = cfg.Serial.Port
		}
		if target == "" {
			target = "/dev/ttyUSB0"
		}
		reading, err = runController(target, setpoint, cfg.Serial)
	}
	if err != nil {
		fatal(err)
	}

	out, err := json.MarshalIndent(reading, "", "  ")
	if err != nil {
		fatal(err)
	}
	fmt.Println(string(out))
}

func runController(port string, setpoint float64, cfg config.Serial) (watlow.Reading, error) {
	c, err := watlow.OpenController(watlow.ControllerConfig{
		Address:  port,
		BaudRate: cfg.BaudRate,
		Timeout:  time.Duration(cfg.TimeoutMS) * time.Millisecond,
	})
	if err != nil {
		return watlow.Reading{}, err
	}
	defer c.Close()

	if !math.IsNaN(setpoint) {
		if err := c.Set(setpoint); err != nil {
			return watlow.Reading{}, err
		}
	}
	return c.Get()
}

func runGateway(host string, zone int, setpoint float64, cfg config.Gateway) (watlow.Reading, error) {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g := watlow.NewGateway(watlow.GatewayConfig{
		Address:      host,
		UnitID:       cfg.UnitID,
		Timeout:      time.Duration(cfg.TimeoutMS) * time.Millisecond,
		ModbusOffset: cfg.ModbusOffset,
		MaxSetpoint:  cfg.MaxSetpoint,
	})
	if err := g.Connect(ctx); err != nil {
		return watlow.Reading{}, err
	}
	defer g.Close()

	if !math.IsNaN(setpoint) {
		if err := g.Set(ctx, zone, setpoint); err != nil {
			return watlow.Reading{}, err
		}
	}
	return g.Get(ctx, zone)
}

func fatal(err error) {
	fmt.Fprintln(os.Stderr, "error:", err)
	os.Exit(1)
}
