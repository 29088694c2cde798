package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBTWAmountRoundsHalfUp(t *testing.T) {
	standard := &BTWRate{ID: BTWRateStandard, Bps: 2100}

	tests := []struct {
		name     string
		netCents int64
		expected int64
	}{
		{"whole euros", 10000, 2100},
		{"rounds up at half", 50, 11},     // 10.5 -> 11
		{"rounds down below half", 49, 10}, // 10.29 -> 10
		{"zero net", 0, 0},
		{"large amount", 12345678, 2592592},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, standard.BTWAmount(tt.netCents))
		})
	}
}

func TestBTWAmountZeroRate(t *testing.T) {
	zero := &BTWRate{ID: BTWRateZero, Bps: 0}
	assert.Equal(t, int64(0), zero.BTWAmount(99999))
}

func TestBTWRateForValidDate(t *testing.T) {
	rate, err := BTWRateFor(BTWRateStandard, time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.Equal(t, int64(2100), rate.Bps)

	rate, err = BTWRateFor(BTWRateReduced, time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.Equal(t, int64(900), rate.Bps)
}

func TestBTWRateForBeforeValidity(t *testing.T) {
	// The 9% reduced rate only exists since 2019
	_, err := BTWRateFor(BTWRateReduced, time.Date(2018, 6, 1, 0, 0, 0, 0, time.UTC))
	assert.Error(t, err)
}

func TestBTWRateForUnknownID(t *testing.T) {
	_, err := BTWRateFor("nl-luxury", time.Now())
	assert.Error(t, err)
}
