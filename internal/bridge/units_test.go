package bridge

import (
	"testing"

	"github.com/scenebridge/bridgectl/internal/testutil/testlog"
)

func TestUnitsConverterDefaultsToIdentity(t *testing.T) {
	testlog.Start(t)
	c := NewUnitsConverter()
	if c.Multiplier() != 1.0 {
		t.Fatalf("unexpected default multiplier: %v", c.Multiplier())
	}
	if c.ToExternal(2.5) != 2.5 || c.FromExternal(2.5) != 2.5 {
		t.Fatalf("identity conversion expected")
	}
}

func TestUnitsConverterRecompute(t *testing.T) {
	testlog.Start(t)
	cases := []struct {
		system string
		scale  float64
		want   float64
	}{
		{"centimeters", 1.0, 1.0},
		{"meters", 1.0, 100.0},
		{"millimeters", 1.0, 0.1},
		{"inches", 1.0, 2.54},
		{"feet", 1.0, 30.48},
		{"kilometers", 1.0, 100000.0},
		{"miles", 1.0, 160934.0},
		{"Meters", 2.0, 200.0},
	}
	for _, tc := range cases {
		c := NewUnitsConverter()
		c.Recompute(tc.system, tc.scale)
		if c.Multiplier() != tc.want {
			t.Fatalf("system %q scale %v: got %v want %v", tc.system, tc.scale, c.Multiplier(), tc.want)
		}
	}
}

func TestUnitsConverterUnknownSystemFallsBack(t *testing.T) {
	testlog.Start(t)
	c := NewUnitsConverter()
	c.Recompute("meters", 1.0)
	c.Recompute("parsecs", 3.0)
	if c.Multiplier() != 1.0 {
		t.Fatalf("unknown system should reset multiplier to 1, got %v", c.Multiplier())
	}
}

func TestUnitsConverterBoundaryDirections(t *testing.T) {
	testlog.Start(t)
	c := NewUnitsConverter()
	c.Recompute("meters", 1.0)
	if got := c.ToExternal(2.0); got != 200.0 {
		t.Fatalf("to external: got %v", got)
	}
	if got := c.FromExternal(200.0); got != 2.0 {
		t.Fatalf("from external: got %v", got)
	}
}
