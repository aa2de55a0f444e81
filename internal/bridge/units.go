package bridge

import (
	"math"
	"strings"
	"sync/atomic"

	"github.com/rs/zerolog/log"
)

// Centimeters per unit for each host measurement system.
var unitCentimeters = map[string]float64{
	"centimeters": 1.0,
	"meters":      100.0,
	"millimeters": 0.1,
	"inches":      2.54,
	"feet":        30.48,
	"kilometers":  100000.0,
	"miles":       160934.0,
}

// UnitsConverter holds the process-wide scalar applied to every position and
// distance crossing the external boundary: multiply on the way out, divide on
// the way in. Recompute is push-driven by the host's configuration-change
// notification; reads may trail a concurrent recompute by one command, which
// the protocol tolerates.
type UnitsConverter struct {
	bits atomic.Uint64
}

func NewUnitsConverter() *UnitsConverter {
	c := &UnitsConverter{}
	c.store(1.0)
	return c
}

// Recompute derives the multiplier from the host measurement system and its
// system scale. Unknown systems keep the multiplier at 1.
func (c *UnitsConverter) Recompute(system string, scale float64) {
	m := 1.0
	if per, ok := unitCentimeters[strings.ToLower(strings.TrimSpace(system))]; ok {
		m = per * scale
	}
	c.store(m)
	log.Info().Msgf("bridge.UnitsConverter.Recompute system=%q scale=%v multiplier=%v", system, scale, m)
}

func (c *UnitsConverter) Multiplier() float64 {
	return math.Float64frombits(c.bits.Load())
}

// ToExternal converts a host-units value for transmission to the controller.
func (c *UnitsConverter) ToExternal(v float64) float64 {
	return v * c.Multiplier()
}

// FromExternal converts a controller-supplied value into host units.
func (c *UnitsConverter) FromExternal(v float64) float64 {
	m := c.Multiplier()
	if m == 0 {
		return v
	}
	return v / m
}

func (c *UnitsConverter) store(v float64) {
	c.bits.Store(math.Float64bits(v))
}
