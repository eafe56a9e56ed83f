//go:build !windows

package gamma

import (
	"fmt"
	"runtime"

	"github.com/alex-vit/restlight/internal/curve"
	"github.com/alex-vit/restlight/internal/display"
)

type unsupportedDevice struct{}

// NewDevice returns a device whose calls always fail: hardware gamma is
// only driven through GDI.
func NewDevice() Device { return unsupportedDevice{} }

func (unsupportedDevice) ReadRamp(*curve.Ramp) error {
	return fmt.Errorf("%w: no gamma backend for %s", display.ErrUnavailable, runtime.GOOS)
}

func (unsupportedDevice) WriteRamp(*curve.Ramp) error {
	return fmt.Errorf("%w: no gamma backend for %s", display.ErrUnavailable, runtime.GOOS)
}
