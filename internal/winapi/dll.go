//go:build windows

// Package winapi holds the raw Win32 procs and the window thread shared by
// the Windows display backends.
package winapi

import "golang.org/x/sys/windows"

var (
	user32   = windows.NewLazySystemDLL("user32.dll")
	gdi32    = windows.NewLazySystemDLL("gdi32.dll")
	kernel32 = windows.NewLazySystemDLL("kernel32.dll")
)

var (
	ProcGetDC                      = user32.NewProc("GetDC")
	ProcReleaseDC                  = user32.NewProc("ReleaseDC")
	ProcGetSystemMetrics           = user32.NewProc("GetSystemMetrics")
	ProcSetLayeredWindowAttributes = user32.NewProc("SetLayeredWindowAttributes")
	ProcSetWindowPos               = user32.NewProc("SetWindowPos")
	ProcShowWindow                 = user32.NewProc("ShowWindow")
	ProcPostThreadMessageW         = user32.NewProc("PostThreadMessageW")
	ProcRegisterHotKey             = user32.NewProc("RegisterHotKey")
	ProcUnregisterHotKey           = user32.NewProc("UnregisterHotKey")
	ProcGetMessageW                = user32.NewProc("GetMessageW")

	procCreateWindowExW  = user32.NewProc("CreateWindowExW")
	procDefWindowProcW   = user32.NewProc("DefWindowProcW")
	procDestroyWindow    = user32.NewProc("DestroyWindow")
	procDispatchMessageW = user32.NewProc("DispatchMessageW")
	procPostMessageW     = user32.NewProc("PostMessageW")
	procPostQuitMessage  = user32.NewProc("PostQuitMessage")
	procRegisterClassExW = user32.NewProc("RegisterClassExW")
	procTranslateMessage = user32.NewProc("TranslateMessage")
	procUnregisterClassW = user32.NewProc("UnregisterClassW")

	ProcGetDeviceGammaRamp = gdi32.NewProc("GetDeviceGammaRamp")
	ProcSetDeviceGammaRamp = gdi32.NewProc("SetDeviceGammaRamp")
	procGetStockObject     = gdi32.NewProc("GetStockObject")

	procGetModuleHandleW = kernel32.NewProc("GetModuleHandleW")
)

const (
	WS_POPUP = 0x80000000

	WS_EX_TOPMOST     = 0x00000008
	WS_EX_TRANSPARENT = 0x00000020
	WS_EX_TOOLWINDOW  = 0x00000080
	WS_EX_LAYERED     = 0x00080000
	WS_EX_NOACTIVATE  = 0x08000000

	SW_HIDE           = 0
	SW_SHOWNOACTIVATE = 4

	SWP_NOSIZE     = 0x0001
	SWP_NOMOVE     = 0x0002
	SWP_NOACTIVATE = 0x0010

	HWND_TOPMOST = ^uintptr(0) // (HWND)-1

	LWA_ALPHA = 0x2

	SM_XVIRTUALSCREEN  = 76
	SM_YVIRTUALSCREEN  = 77
	SM_CXVIRTUALSCREEN = 78
	SM_CYVIRTUALSCREEN = 79

	WM_DESTROY       = 0x0002
	WM_DISPLAYCHANGE = 0x007E
	WM_QUIT          = 0x0012
	WM_HOTKEY        = 0x0312
	WM_APP           = 0x8000

	wmInvoke = WM_APP + 1

	BLACK_BRUSH = 4
)

// Msg mirrors the Win32 MSG struct.
type Msg struct {
	HWND    uintptr
	Message uint32
	WParam  uintptr
	LParam  uintptr
	Time    uint32
	Pt      [2]int32
}

type wndClassExW struct {
	CbSize        uint32
	Style         uint32
	LpfnWndProc   uintptr
	CbClsExtra    int32
	CbWndExtra    int32
	HInstance     uintptr
	HIcon         uintptr
	HCursor       uintptr
	HbrBackground uintptr
	LpszMenuName  *uint16
	LpszClassName *uint16
	HIconSm       uintptr
}

// StockBrush returns a GDI stock brush such as BLACK_BRUSH.
func StockBrush(id int) uintptr {
	h, _, _ := procGetStockObject.Call(uintptr(id))
	return h
}
