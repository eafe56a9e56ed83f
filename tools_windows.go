//go:build windows

package main

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/alex-vit/restlight/internal/backlight"
	"github.com/alex-vit/restlight/internal/curve"
	"github.com/alex-vit/restlight/internal/display"
	"github.com/alex-vit/restlight/internal/gamma"
)

// resetGamma writes the linear ramp and clears the applied marker.
func resetGamma(marker string) error {
	linear := curve.Linear()
	if err := gamma.NewDevice().WriteRamp(&linear); err != nil {
		return fmt.Errorf("reset gamma: %w", err)
	}
	if err := os.Remove(marker); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("remove marker: %w", err)
	}
	return nil
}

func probe(w io.Writer) error {
	fmt.Fprintf(w, "virtual screen: %s\n", display.Screen{}.VirtualScreen())

	var ramp curve.Ramp
	if err := gamma.NewDevice().ReadRamp(&ramp); err != nil {
		fmt.Fprintf(w, "gamma ramp: %v\n", err)
	} else {
		for c, name := range []string{"red", "green", "blue"} {
			fmt.Fprintf(w, "gamma %-5s: [0]=%d [128]=%d [255]=%d\n", name, ramp[c][0], ramp[c][128], ramp[c][255])
		}
		fmt.Fprintf(w, "gamma linear: %v\n", ramp == curve.Linear())
	}

	monitors, err := backlight.SystemMonitors()
	if err != nil {
		fmt.Fprintf(w, "monitors: %v\n", err)
		return nil
	}
	fmt.Fprintf(w, "monitors: %d\n", len(monitors))
	for i, m := range monitors {
		lo, cur, hi, err := m.GetBrightness()
		if err != nil {
			fmt.Fprintf(w, "monitor %d: %v\n", i, err)
			continue
		}
		fmt.Fprintf(w, "monitor %d: brightness %d (range %d-%d)\n", i, cur, lo, hi)
	}
	return nil
}
