//go:build windows

package overlay

import (
	"fmt"
	"math"

	"github.com/alex-vit/restlight/internal/display"
	"github.com/alex-vit/restlight/internal/winapi"
)

// Win32 is a layered, input-transparent, top-most black window. It lives on
// its own winapi.Thread; the methods below marshal onto it.
type Win32 struct {
	thread *winapi.Thread
}

// NewWindow returns an unrealized overlay window.
func NewWindow() *Win32 { return &Win32{} }

func (w *Win32) Realize() error {
	if w.thread != nil {
		return nil
	}
	th, err := winapi.Start(winapi.WindowSpec{
		ClassName: "RestlightOverlay",
		Style:     winapi.WS_POPUP,
		// LAYERED for alpha, TRANSPARENT so clicks fall through, TOOLWINDOW
		// and NOACTIVATE keep it out of Alt-Tab and away from focus.
		ExStyle: winapi.WS_EX_LAYERED | winapi.WS_EX_TRANSPARENT |
			winapi.WS_EX_TOOLWINDOW | winapi.WS_EX_NOACTIVATE | winapi.WS_EX_TOPMOST,
		Background: winapi.StockBrush(winapi.BLACK_BRUSH),
	})
	if err != nil {
		return fmt.Errorf("%w: %v", display.ErrUnavailable, err)
	}
	w.thread = th
	return nil
}

// call runs fn on the window thread and folds both error sources together.
func (w *Win32) call(name string, fn func(hwnd uintptr) (uintptr, error)) error {
	if w.thread == nil {
		return fmt.Errorf("%w: overlay window not realized", display.ErrUnavailable)
	}
	var (
		ret uintptr
		err error
	)
	if ierr := w.thread.Invoke(func() { ret, err = fn(w.thread.HWND()) }); ierr != nil {
		return fmt.Errorf("%w: %s: %v", display.ErrUnavailable, name, ierr)
	}
	if ret == 0 {
		return fmt.Errorf("%s: %w", name, err)
	}
	return nil
}

func (w *Win32) SetBounds(r display.Rect) error {
	return w.call("SetWindowPos", func(hwnd uintptr) (uintptr, error) {
		ret, _, err := winapi.ProcSetWindowPos.Call(hwnd, winapi.HWND_TOPMOST,
			uintptr(int32(r.X)), uintptr(int32(r.Y)), uintptr(r.Width), uintptr(r.Height),
			winapi.SWP_NOACTIVATE)
		return ret, err
	})
}

func (w *Win32) SetOpacity(level float64) error {
	alpha := uint8(math.Round(ClampOpacity(level) * 255))
	return w.call("SetLayeredWindowAttributes", func(hwnd uintptr) (uintptr, error) {
		ret, _, err := winapi.ProcSetLayeredWindowAttributes.Call(hwnd, 0, uintptr(alpha), winapi.LWA_ALPHA)
		return ret, err
	})
}

func (w *Win32) Show() error {
	return w.call("ShowWindow", func(hwnd uintptr) (uintptr, error) {
		// ShowWindow returns the previous visibility, not success.
		winapi.ProcShowWindow.Call(hwnd, winapi.SW_SHOWNOACTIVATE)
		return 1, nil
	})
}

func (w *Win32) Hide() error {
	return w.call("ShowWindow", func(hwnd uintptr) (uintptr, error) {
		winapi.ProcShowWindow.Call(hwnd, winapi.SW_HIDE)
		return 1, nil
	})
}

func (w *Win32) Raise() error {
	return w.call("SetWindowPos", func(hwnd uintptr) (uintptr, error) {
		ret, _, err := winapi.ProcSetWindowPos.Call(hwnd, winapi.HWND_TOPMOST, 0, 0, 0, 0,
			winapi.SWP_NOMOVE|winapi.SWP_NOSIZE|winapi.SWP_NOACTIVATE)
		return ret, err
	})
}

// Destroy is safe from any goroutine; the window is destroyed on its own
// thread.
func (w *Win32) Destroy() error {
	if w.thread == nil {
		return nil
	}
	err := w.thread.Close()
	w.thread = nil
	return err
}
