package main

import (
	"fmt"
	"math"
)

// preset is one radio entry in a tray submenu.
type preset[T any] struct {
	label string
	value T
}

var warmthPresets = []preset[float64]{
	{"Subtle (30%)", 0.3},
	{"Mild (50%)", 0.5},
	{"Warm (70%)", 0.7},
	{"Very warm (90%)", 0.9},
	{"Maximum (100%)", 1.0},
}

var dimPresets = []preset[float64]{
	{"10%", 0.1},
	{"20%", 0.2},
	{"30%", 0.3},
	{"50%", 0.5},
	{"70%", 0.7},
	{"90%", 0.9},
}

var intervalPresets = []preset[int]{
	{"Every 10 minutes", 10},
	{"Every 20 minutes", 20},
	{"Every 30 minutes", 30},
	{"Every 45 minutes", 45},
	{"Every hour", 60},
	{"Every 2 hours", 120},
}

// nearestIndex returns the preset closest to v, so values edited in the
// settings file still get a checkmark. Ties go to the earlier preset.
func nearestIndex[T int | float64](presets []preset[T], v T) int {
	best, bestDist := 0, math.Inf(1)
	for i, p := range presets {
		if d := math.Abs(float64(p.value) - float64(v)); d < bestDist {
			best, bestDist = i, d
		}
	}
	return best
}

func percent(v float64) string {
	return fmt.Sprintf("%d%%", int(math.Round(v*100)))
}
