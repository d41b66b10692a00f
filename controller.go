package watlow

import (
	"fmt"
	"io"
	"log/slog"
	"math"
	"time"

	"github.com/goburrow/serial"
	"github.com/numat/watlow/pkg/ezzone"
)

// ControllerConfig configures the serial connection to a controller.
// Zero fields take the vendor defaults: 38400 baud, 8N1, 500ms timeout.
type ControllerConfig struct {
	// Address is the serial device path, e.g. /dev/ttyUSB0. The
	// controller uses RS-422 instead of RS-232; a converter is usually
	// required.
	Address  string
	BaudRate int
	Timeout  time.Duration
}

// TemperatureController drives a single EZ-Zone controller over a serial
// line. It is synchronous: each call blocks until the exchange completes
// or the read timeout elapses. It does not retry; callers polling in a
// loop are expected to catch, log and retry.
type TemperatureController struct {
	port serial.Port
}

// OpenController opens the serial port eagerly and returns a ready
// controller.
func OpenController(cfg ControllerConfig) (*TemperatureController, error) {
	if cfg.BaudRate == 0 {
		cfg.BaudRate = 38400
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 500 * time.Millisecond
	}
	port, err := serial.Open(&serial.Config{
		Address:  cfg.Address,
		BaudRate: cfg.BaudRate,
		DataBits: 8,
		Parity:   "N",
		StopBits: 1,
		Timeout:  cfg.Timeout,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open serial port: %w", err)
	}
	return &TemperatureController{port: port}, nil
}

// Get reads the current temperature and setpoint, in Celsius.
func (c *TemperatureController) Get() (Reading, error) {
	actual, err := c.exchange(ezzone.ReadRequest(ezzone.MemberActual), ezzone.ReadResponseLen,
		func(frame []byte) (float64, error) {
			return ezzone.ParseReadResponse(frame, ezzone.MemberActual)
		})
	if err != nil {
		return Reading{}, err
	}
	setpoint, err := c.exchange(ezzone.ReadRequest(ezzone.MemberSetpoint), ezzone.ReadResponseLen,
		func(frame []byte) (float64, error) {
			return ezzone.ParseReadResponse(frame, ezzone.MemberSetpoint)
		})
	if err != nil {
		return Reading{}, err
	}
	return Reading{Actual: actual, Setpoint: setpoint}, nil
}

// Set changes the setpoint temperature, in Celsius. The controller echoes
// the value it accepted; a disagreement beyond 0.01 degrees is an error.
func (c *TemperatureController) Set(setpoint float64) error {
	echoed, err := c.exchange(ezzone.SetRequest(setpoint), ezzone.SetResponseLen, ezzone.ParseSetResponse)
	if err != nil {
		return err
	}
	if math.Round(echoed*100) != math.Round(setpoint*100) {
		return fmt.Errorf("watlow: could not change setpoint from %.2f to %.2f", echoed, setpoint)
	}
	return nil
}

// Close releases the serial port. Safe to call more than once.
func (c *TemperatureController) Close() error {
	if c.port == nil {
		return nil
	}
	err := c.port.Close()
	c.port = nil
	return err
}

func (c *TemperatureController) exchange(request []byte, responseLen int,
	parse func([]byte) (float64, error)) (float64, error) {
	if c.port == nil {
		return 0, ErrNotConnected
	}
	slog.Debug("serial request", "data", fmt.Sprintf("% X", request))
	if _, err := c.port.Write(request); err != nil {
		return 0, fmt.Errorf("serial write: %w", err)
	}
	response := make([]byte, responseLen)
	if _, err := io.ReadFull(c.port, response); err != nil {
		return 0, fmt.Errorf("serial read: %w", err)
	}
	slog.Debug("serial response", "data", fmt.Sprintf("% X", response))
	return parse(response)
}
