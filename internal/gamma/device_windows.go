//go:build windows

package gamma

import (
	"fmt"
	"unsafe"

	"github.com/alex-vit/restlight/internal/curve"
	"github.com/alex-vit/restlight/internal/display"
	"github.com/alex-vit/restlight/internal/winapi"
)

type gdiDevice struct{}

// NewDevice returns the screen device context backed by gdi32.
func NewDevice() Device { return gdiDevice{} }

// withDC acquires the screen DC for the duration of fn.
func withDC(fn func(hdc uintptr) error) error {
	hdc, _, _ := winapi.ProcGetDC.Call(0)
	if hdc == 0 {
		return fmt.Errorf("%w: GetDC failed", display.ErrUnavailable)
	}
	defer winapi.ProcReleaseDC.Call(0, hdc) //nolint:errcheck
	return fn(hdc)
}

func (gdiDevice) ReadRamp(r *curve.Ramp) error {
	return withDC(func(hdc uintptr) error {
		ret, _, err := winapi.ProcGetDeviceGammaRamp.Call(hdc, uintptr(unsafe.Pointer(r)))
		if ret == 0 {
			return fmt.Errorf("GetDeviceGammaRamp: %w", err)
		}
		return nil
	})
}

func (gdiDevice) WriteRamp(r *curve.Ramp) error {
	return withDC(func(hdc uintptr) error {
		ret, _, err := winapi.ProcSetDeviceGammaRamp.Call(hdc, uintptr(unsafe.Pointer(r)))
		if ret == 0 {
			return fmt.Errorf("SetDeviceGammaRamp: %w", err)
		}
		return nil
	})
}
