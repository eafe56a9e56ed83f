//go:build windows

package display

import (
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/alex-vit/restlight/internal/winapi"
)

// Watcher forwards WM_DISPLAYCHANGE to a Signal. Windows only broadcasts
// that message to top-level windows, so the watcher owns a hidden one.
type Watcher struct {
	thread *winapi.Thread
}

// Watch starts a watcher feeding sig.
func Watch(sig *Signal) (*Watcher, error) {
	th, err := winapi.Start(winapi.WindowSpec{
		ClassName: "RestlightDisplayWatcher",
		Style:     winapi.WS_POPUP,
		ExStyle:   winapi.WS_EX_TOOLWINDOW,
		Hook: func(_ uintptr, msg uint32, wParam, lParam uintptr) (uintptr, bool) {
			if msg != winapi.WM_DISPLAYCHANGE {
				return 0, false
			}
			log.Info().Str("component", "display").
				Uint64("bpp", uint64(wParam)).
				Int("width", int(lParam&0xFFFF)).
				Int("height", int((lParam>>16)&0xFFFF)).
				Msg("display settings changed")
			// Subscribers marshal onto their own context; never block the pump.
			go sig.Notify()
			return 0, true
		},
	})
	if err != nil {
		return nil, fmt.Errorf("%w: display watcher: %v", ErrUnavailable, err)
	}
	return &Watcher{thread: th}, nil
}

// Close stops watching.
func (w *Watcher) Close() error {
	return w.thread.Close()
}

// Screen reads the virtual screen geometry from the system metrics.
type Screen struct{}

// VirtualScreen returns the bounding rectangle of all monitors.
func (Screen) VirtualScreen() Rect {
	metric := func(i uintptr) int {
		v, _, _ := winapi.ProcGetSystemMetrics.Call(i)
		return int(int32(v))
	}
	return Rect{
		X:      metric(winapi.SM_XVIRTUALSCREEN),
		Y:      metric(winapi.SM_YVIRTUALSCREEN),
		Width:  metric(winapi.SM_CXVIRTUALSCREEN),
		Height: metric(winapi.SM_CYVIRTUALSCREEN),
	}
}
