// Package mock provides an in-process stand-in for the gateway driver,
// for exercising systems without oven hardware.
package mock

import (
	"context"
	"fmt"
	"sync"

	"github.com/numat/watlow"
)

// Gateway implements the watlow.Client contract against in-memory state.
// Zones 1 through 8 exist; each starts at 25 degrees with a 25 degree
// setpoint and zero output. The actual temperature drifts one degree
// toward the setpoint on every Get, so simulated ovens settle over time.
type Gateway struct {
	mu          sync.Mutex
	connected   bool
	maxSetpoint float64
	zones       map[int]*zone
}

type zone struct {
	actual   float64
	setpoint float64
	output   float64
}

var _ watlow.Client = (*Gateway)(nil)

// NewGateway returns a mock with the default eight zones.
func NewGateway() *Gateway {
	zones := make(map[int]*zone, 8)
	for i := 1; i <= 8; i++ {
		zones[i] = &zone{actual: 25, setpoint: 25}
	}
	return &Gateway{maxSetpoint: watlow.DefaultMaxSetpoint, zones: zones}
}

func (g *Gateway) Connect(ctx context.Context) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.connected = true
	return nil
}

func (g *Gateway) Close() error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.connected = false
	return nil
}

func (g *Gateway) Get(ctx context.Context, zone int) (watlow.Reading, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if !g.connected {
		return watlow.Reading{}, watlow.ErrNotConnected
	}
	z, ok := g.zones[zone]
	if !ok {
		return watlow.Reading{}, fmt.Errorf("mock: no such zone %d", zone)
	}
	g.drift()
	output := z.output
	return watlow.Reading{Actual: z.actual, Setpoint: z.setpoint, Output: &output}, nil
}

func (g *Gateway) Set(ctx context.Context, zone int, setpoint float64) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if !g.connected {
		return watlow.ErrNotConnected
	}
	if setpoint < watlow.MinSetpoint || setpoint > g.maxSetpoint {
		return fmt.Errorf("mock: setpoint %v is not in the valid range from %v to %v",
			setpoint, watlow.MinSetpoint, g.maxSetpoint)
	}
	z, ok := g.zones[zone]
	if !ok {
		return fmt.Errorf("mock: no such zone %d", zone)
	}
	z.setpoint = setpoint
	return nil
}

// drift moves every zone one degree toward its setpoint.
func (g *Gateway) drift() {
	for _, z := range g.zones {
		switch {
		case z.actual < z.setpoint:
			z.actual++
		case z.actual > z.setpoint:
			z.actual--
		}
	}
}
