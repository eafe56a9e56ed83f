//go:build windows

package hotkey

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"unsafe"

	"github.com/rs/zerolog/log"
	"golang.org/x/sys/windows"

	"github.com/alex-vit/restlight/internal/winapi"
)

// Run registers bindings and pumps WM_HOTKEY on a locked OS thread until
// ctx is done. Actions run on that thread, so they must not block. A
// binding that fails to register is reported but the rest stay active.
func Run(ctx context.Context, bindings []Binding) error {
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()

	var errs []error
	registered := 0
	for i, b := range bindings {
		ret, _, err := winapi.ProcRegisterHotKey.Call(0, uintptr(i+1), uintptr(b.Mod), uintptr(b.Key))
		if ret == 0 {
			errs = append(errs, fmt.Errorf("RegisterHotKey(%s): %w", b, err))
			continue
		}
		registered++
	}
	defer func() {
		for i := range bindings {
			winapi.ProcUnregisterHotKey.Call(0, uintptr(i+1))
		}
	}()
	log.Info().Str("component", "hotkey").Int("registered", registered).Int("failed", len(errs)).Msg("hotkeys registered")

	// GetMessage only returns for this thread's queue, so a WM_QUIT posted
	// from the ctx watcher is what ends the loop.
	tid := windows.GetCurrentThreadId()
	stop := make(chan struct{})
	defer close(stop)
	go func() {
		select {
		case <-ctx.Done():
			winapi.ProcPostThreadMessageW.Call(uintptr(tid), winapi.WM_QUIT, 0, 0)
		case <-stop:
		}
	}()

	var m winapi.Msg
	for {
		// 0 on WM_QUIT, -1 on error.
		ret, _, _ := winapi.ProcGetMessageW.Call(uintptr(unsafe.Pointer(&m)), 0, 0, 0)
		if int32(ret) <= 0 {
			break
		}
		if m.Message != winapi.WM_HOTKEY {
			continue
		}
		id := int(m.WParam) - 1 // registered with id = index+1
		if id >= 0 && id < len(bindings) && bindings[id].Action != nil {
			bindings[id].Action()
		}
	}
	return errors.Join(errs...)
}
