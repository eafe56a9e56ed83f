//go:build !windows

package backlight

import "github.com/alex-vit/restlight/internal/display"

// SystemMonitors is only implemented on Windows.
func SystemMonitors() ([]Monitor, error) {
	return nil, display.ErrUnavailable
}
