package mock

import (
	"context"
	"errors"
	"testing"

	"github.com/numat/watlow"
)

func TestRoundtrip(t *testing.T) {
	g := NewGateway()
	ctx := context.Background()
	if err := g.Connect(ctx); err != nil {
		t.Fatal(err)
	}

	reading, err := g.Get(ctx, 1)
	if err != nil {
		t.Fatal(err)
	}
	if reading.Actual != 25 || reading.Setpoint != 25 || *reading.Output != 0 {
		t.Errorf("reading = %+v, want 25/25/0", reading)
	}

	if err := g.Set(ctx, 1, 12.3); err != nil {
		t.Fatal(err)
	}
	reading, err = g.Get(ctx, 1)
	if err != nil {
		t.Fatal(err)
	}
	if reading.Setpoint != 12.3 {
		t.Errorf("setpoint = %v, want 12.3", reading.Setpoint)
	}
	// the mock oven cools one degree per read
	if reading.Actual != 24 {
		t.Errorf("actual = %v, want 24", reading.Actual)
	}
}

func TestSetReflected(t *testing.T) {
	g := NewGateway()
	ctx := context.Background()
	if err := g.Connect(ctx); err != nil {
		t.Fatal(err)
	}
	if err := g.Set(ctx, 1, 30.0); err != nil {
		t.Fatal(err)
	}
	reading, err := g.Get(ctx, 1)
	if err != nil {
		t.Fatal(err)
	}
	if reading.Setpoint != 30.0 {
		t.Errorf("setpoint = %v, want 30.0", reading.Setpoint)
	}
}

func TestSetErrors(t *testing.T) {
	g := NewGateway()
	ctx := context.Background()
	if err := g.Connect(ctx); err != nil {
		t.Fatal(err)
	}
	if err := g.Set(ctx, 1, 9000); err == nil {
		t.Error("expected an error for a setpoint out of range")
	}
	if err := g.Set(ctx, 99, 25); err == nil {
		t.Error("expected an error for an unknown zone")
	}
}

func TestDisconnected(t *testing.T) {
	g := NewGateway()
	ctx := context.Background()
	if _, err := g.Get(ctx, 1); !errors.Is(err, watlow.ErrNotConnected) {
		t.Errorf("got %v, want ErrNotConnected", err)
	}
	if err := g.Connect(ctx); err != nil {
		t.Fatal(err)
	}
	if err := g.Close(); err != nil {
		t.Fatal(err)
	}
	if _, err := g.Get(ctx, 1); !errors.Is(err, watlow.ErrNotConnected) {
		t.Errorf("after close: got %v, want ErrNotConnected", err)
	}
}
