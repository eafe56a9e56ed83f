//go:build windows

package winapi

import (
	"errors"
	"fmt"
	"runtime"
	"sync/atomic"
	"unsafe"

	"golang.org/x/sys/windows"
)

// ErrThreadClosed is returned by Invoke once the window thread has exited.
var ErrThreadClosed = errors.New("winapi: window thread closed")

var classSeq atomic.Uint32

// WindowSpec describes the window a Thread creates.
type WindowSpec struct {
	ClassName  string
	ExStyle    uintptr
	Style      uintptr
	Background uintptr

	// Hook sees every message before DefWindowProc. Return handled=true to
	// swallow it.
	Hook func(hwnd uintptr, msg uint32, wParam, lParam uintptr) (ret uintptr, handled bool)
}

// Thread is a locked OS thread that owns exactly one window and pumps its
// messages. Win32 windows have thread affinity, so every call that touches
// the window from elsewhere goes through Invoke.
type Thread struct {
	spec  WindowSpec
	hwnd  uintptr
	tid   uint32
	calls chan func()
	done  chan struct{}
}

// Start creates the window on a new OS thread and returns once it exists.
// The window starts hidden.
func Start(spec WindowSpec) (*Thread, error) {
	t := &Thread{
		spec:  spec,
		calls: make(chan func(), 16),
		done:  make(chan struct{}),
	}
	ready := make(chan error, 1)
	go t.run(ready)
	if err := <-ready; err != nil {
		return nil, err
	}
	return t, nil
}

// HWND returns the window handle. Only use it for calls that are safe from
// any thread (PostMessage, SetWindowPos, ...).
func (t *Thread) HWND() uintptr { return t.hwnd }

func (t *Thread) run(ready chan<- error) {
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()
	defer close(t.done)

	hInst, _, _ := procGetModuleHandleW.Call(0)
	name := fmt.Sprintf("%s.%d", t.spec.ClassName, classSeq.Add(1))
	className, _ := windows.UTF16PtrFromString(name)

	wc := wndClassExW{
		LpfnWndProc:   windows.NewCallback(t.wndProc),
		HInstance:     hInst,
		HbrBackground: t.spec.Background,
		LpszClassName: className,
	}
	wc.CbSize = uint32(unsafe.Sizeof(wc))
	if ret, _, err := procRegisterClassExW.Call(uintptr(unsafe.Pointer(&wc))); ret == 0 {
		ready <- fmt.Errorf("RegisterClassExW(%s): %w", name, err)
		return
	}
	defer procUnregisterClassW.Call(uintptr(unsafe.Pointer(className)), hInst) //nolint:errcheck

	empty, _ := windows.UTF16PtrFromString("")
	hwnd, _, err := procCreateWindowExW.Call(
		t.spec.ExStyle,
		uintptr(unsafe.Pointer(className)),
		uintptr(unsafe.Pointer(empty)),
		t.spec.Style,
		0, 0, 0, 0,
		0, 0, hInst, 0,
	)
	if hwnd == 0 {
		ready <- fmt.Errorf("CreateWindowExW(%s): %w", name, err)
		return
	}
	t.hwnd = hwnd
	t.tid = windows.GetCurrentThreadId()
	close(ready)

	var m Msg
	for {
		// GetMessageW blocks until a message is available. Returns 0 on WM_QUIT, -1 on error.
		ret, _, _ := ProcGetMessageW.Call(uintptr(unsafe.Pointer(&m)), 0, 0, 0)
		if int32(ret) <= 0 {
			break
		}
		procTranslateMessage.Call(uintptr(unsafe.Pointer(&m)))
		procDispatchMessageW.Call(uintptr(unsafe.Pointer(&m)))
	}
}

func (t *Thread) wndProc(hwnd, msg, wParam, lParam uintptr) uintptr {
	switch msg {
	case wmInvoke:
		t.drain()
		return 0
	case WM_DESTROY:
		procPostQuitMessage.Call(0)
		return 0
	}
	if t.spec.Hook != nil {
		if ret, handled := t.spec.Hook(hwnd, uint32(msg), wParam, lParam); handled {
			return ret
		}
	}
	ret, _, _ := procDefWindowProcW.Call(hwnd, msg, wParam, lParam)
	return ret
}

func (t *Thread) drain() {
	for {
		select {
		case fn := <-t.calls:
			fn()
		default:
			return
		}
	}
}

// Invoke runs fn on the window thread and waits for it to finish.
func (t *Thread) Invoke(fn func()) error {
	select {
	case <-t.done:
		return ErrThreadClosed
	default:
	}
	if windows.GetCurrentThreadId() == t.tid {
		fn()
		return nil
	}

	finished := make(chan struct{})
	call := func() {
		defer close(finished)
		fn()
	}
	select {
	case t.calls <- call:
	case <-t.done:
		return ErrThreadClosed
	}
	if ret, _, err := procPostMessageW.Call(t.hwnd, wmInvoke, 0, 0); ret == 0 {
		return fmt.Errorf("PostMessageW: %w", err)
	}
	select {
	case <-finished:
		return nil
	case <-t.done:
		return ErrThreadClosed
	}
}

// Close destroys the window and waits for the thread to exit. Safe to call
// from any goroutine, and more than once.
func (t *Thread) Close() error {
	err := t.Invoke(func() {
		procDestroyWindow.Call(t.hwnd)
	})
	if errors.Is(err, ErrThreadClosed) {
		return nil
	}
	if err != nil {
		return err
	}
	if windows.GetCurrentThreadId() != t.tid {
		<-t.done
	}
	return nil
}
