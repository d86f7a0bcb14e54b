package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseFlowUnit(t *testing.T) {
	tests := []struct {
		input   string
		want    FlowUnit
		wantErr bool
	}{
		{"", LitersPerSecond, false},
		{"L/s", LitersPerSecond, false},
		{"m3/h", CubicMetersPerHour, false},
		{"cfm", CubicFeetPerMinute, false},
		{"gpm", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseFlowUnit(tt.input)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestFlowUnitToLitersPerSecond(t *testing.T) {
	tests := []struct {
		unit FlowUnit
		in   float64
		want float64
	}{
		{LitersPerSecond, 42, 42},
		{CubicMetersPerHour, 3600, 1000},
		{CubicMetersPerSecond, 0.5, 500},
		{CubicFeetPerMinute, 60, 28.316846592},
		{CubicFeetPerSecond, 1, 28.316846592},
		{FlowUnit("unknown"), 7, 7},
	}

	for _, tt := range tests {
		t.Run(string(tt.unit), func(t *testing.T) {
			assert.InDelta(t, tt.want, tt.unit.ToLitersPerSecond(tt.in), 1e-9)
		})
	}
}
