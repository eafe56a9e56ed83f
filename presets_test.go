package main

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/alex-vit/restlight/internal/overlay"
	"github.com/alex-vit/restlight/internal/reminder"
	"github.com/alex-vit/restlight/internal/settings"
)

func TestNearestIndex(t *testing.T) {
	tests := []struct {
		v    float64
		want float64
	}{
		{0, 0.3},
		{0.3, 0.3},
		{0.39, 0.3},
		{0.41, 0.5},
		{0.7, 0.7},
		{0.93, 0.9},
		{1, 1.0},
	}
	for _, tt := range tests {
		got := warmthPresets[nearestIndex(warmthPresets, tt.v)].value
		assert.Equal(t, tt.want, got, "nearest warmth to %v", tt.v)
	}

	assert.Equal(t, 20, intervalPresets[nearestIndex(intervalPresets, 25)].value, "tie goes to the earlier preset")
	assert.Equal(t, 120, intervalPresets[nearestIndex(intervalPresets, 100)].value)
}

func TestPresetsAreValidInput(t *testing.T) {
	for _, p := range dimPresets {
		assert.LessOrEqual(t, p.value, overlay.MaxOpacity, p.label)
	}
	for _, p := range intervalPresets {
		assert.NoError(t, reminder.ValidateInterval(p.value), p.label)
	}
	d := settings.Defaults()
	assert.Equal(t, d.Temperature, warmthPresets[nearestIndex(warmthPresets, d.Temperature)].value, "default is a preset")
	assert.Equal(t, d.DimLevel, dimPresets[nearestIndex(dimPresets, d.DimLevel)].value)
	assert.Equal(t, d.BreakIntervalMinutes, intervalPresets[nearestIndex(intervalPresets, d.BreakIntervalMinutes)].value)
}

func TestPercent(t *testing.T) {
	assert.Equal(t, "70%", percent(0.7))
	assert.Equal(t, "0%", percent(0))
	assert.Equal(t, "95%", percent(0.95))
}
