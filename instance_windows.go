//go:build windows

package main

import (
	"errors"
	"fmt"

	"golang.org/x/sys/windows"
)

var errAlreadyRunning = errors.New("another instance is already running")

// acquireSingleInstance holds a named mutex for the life of the process.
// The gamma ramp is global, so two sessions would fight over it.
func acquireSingleInstance() (release func(), err error) {
	name, err := windows.UTF16PtrFromString(`Local\RestlightMutex`)
	if err != nil {
		return nil, err
	}
	h, err := windows.CreateMutex(nil, false, name)
	if errors.Is(err, windows.ERROR_ALREADY_EXISTS) {
		_ = windows.CloseHandle(h)
		return nil, errAlreadyRunning
	}
	if err != nil {
		return nil, fmt.Errorf("create instance mutex: %w", err)
	}
	return func() { _ = windows.CloseHandle(h) }, nil
}
