package domain

import "fmt"

// FlowUnit is a volumetric flow unit
type FlowUnit string

const (
	LitersPerSecond      FlowUnit = "L/s"
	CubicMetersPerHour   FlowUnit = "m3/h"
	CubicMetersPerSecond FlowUnit = "m3/s"
	CubicFeetPerMinute   FlowUnit = "cfm"
	CubicFeetPerSecond   FlowUnit = "ft3/s"
)

const litersPerCubicFoot = 28.316846592

// factor converting one unit of u to liters per second
var flowFactors = map[FlowUnit]float64{
	LitersPerSecond:      1,
	CubicMetersPerHour:   1000.0 / 3600.0,
	CubicMetersPerSecond: 1000,
	CubicFeetPerMinute:   litersPerCubicFoot / 60.0,
	CubicFeetPerSecond:   litersPerCubicFoot,
}

// ParseFlowUnit validates a unit name. Empty input means liters per second.
func ParseFlowUnit(s string) (FlowUnit, error) {
	if s == "" {
		return LitersPerSecond, nil
	}
	u := FlowUnit(s)
	if _, ok := flowFactors[u]; !ok {
		return "", fmt.Errorf("unknown flow unit %q", s)
	}
	return u, nil
}

// IsValid reports whether u is a known unit
func (u FlowUnit) IsValid() bool {
	_, ok := flowFactors[u]
	return ok
}

// ToLitersPerSecond converts v expressed in u to liters per second.
// Unknown units are treated as liters per second.
func (u FlowUnit) ToLitersPerSecond(v float64) float64 {
	f, ok := flowFactors[u]
	if !ok {
		return v
	}
	return v * f
}
