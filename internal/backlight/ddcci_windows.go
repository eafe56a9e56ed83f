//go:build windows

package backlight

import (
	"github.com/niluan304/ddcci"
	"github.com/rs/zerolog/log"
)

var _ Monitor = (*ddcci.PhysicalMonitor)(nil)

// SystemMonitors enumerates the physical monitors behind every display.
// Monitors that refuse a physical handle are skipped.
func SystemMonitors() ([]Monitor, error) {
	sys, err := ddcci.NewSystemMonitors()
	if err != nil {
		return nil, err
	}
	var monitors []Monitor
	for i := range sys {
		m, err := ddcci.NewPhysicalMonitor(&sys[i])
		if err != nil {
			log.Warn().Str("component", "backlight").Err(err).Int("monitor", i).Msg("open physical monitor failed")
			continue
		}
		monitors = append(monitors, m)
	}
	return monitors, nil
}
