// Package config loads TOML configuration for the watlow tools.
package config

import (
	"fmt"
	"os"

	"github.com/BurntSushi/toml"
)

// Config represents the watlow tool configuration. Both sections are
// optional; zero values fall back to the vendor defaults.
type Config struct {
	Serial  Serial  `toml:"serial"`
	Gateway Gateway `toml:"gateway"`
}

// Serial configures the direct serial connection to a controller.
type Serial struct {
	Port      string `toml:"port"`       // e.g. "/dev/ttyUSB0"
	BaudRate  int    `toml:"baud_rate"`  // default 38400
	TimeoutMS int    `toml:"timeout_ms"` // default 500
}

// Gateway configures the connection to an EZ-Zone ModBus gateway.
type Gateway struct {
	Address      string  `toml:"address"` // host or host:port, port 502 default
	UnitID       uint8   `toml:"unit_id"`
	TimeoutMS    int     `toml:"timeout_ms"`
	ModbusOffset int     `toml:"modbus_offset"` // register distance between zones
	MaxSetpoint  float64 `toml:"max_setpoint"`  // Celsius
	Zones        int     `toml:"zones"`
}

// Load reads and parses a TOML configuration file.
func Load(filename string) (*Config, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg Config
	if err := toml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse TOML: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c.Serial.BaudRate < 0 {
		return fmt.Errorf("serial: invalid baud rate %d", c.Serial.BaudRate)
	}
	if c.Serial.TimeoutMS < 0 {
		return fmt.Errorf("serial: invalid timeout %d", c.Serial.TimeoutMS)
	}
	if c.Gateway.TimeoutMS < 0 {
		return fmt.Errorf("gateway: invalid timeout %d", c.Gateway.TimeoutMS)
	}
	if c.Gateway.ModbusOffset < 0 {
		return fmt.Errorf("gateway: invalid modbus offset %d", c.Gateway.ModbusOffset)
	}
	if c.Gateway.MaxSetpoint < 0 {
		return fmt.Errorf("gateway: invalid max setpoint %v", c.Gateway.MaxSetpoint)
	}
	if c.Gateway.Zones < 0 || c.Gateway.Zones > 255 {
		return fmt.Errorf("gateway: invalid zone count %d", c.Gateway.Zones)
	}
	return nil
}
