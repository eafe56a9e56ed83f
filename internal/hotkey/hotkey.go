// Package hotkey registers system-wide hotkeys and runs an action when one
// is pressed. Keydown only; one message loop serves every binding.
package hotkey

import (
	"errors"
	"fmt"
	"strings"
)

// Modifier flags for RegisterHotKey.
const (
	ModAlt   = 0x1
	ModCtrl  = 0x2
	ModShift = 0x4
	ModWin   = 0x8

	// ModNoRepeat suppresses auto-repeat while the combination is held.
	ModNoRepeat = 0x4000
)

// ErrUnsupported is returned by Run where global hotkeys are unavailable.
var ErrUnsupported = errors.New("hotkey: unsupported platform")

// Binding maps a modifier+key combination to an action. Key is a virtual
// key code; letters and digits use their ASCII upper-case value.
type Binding struct {
	Mod    uint32
	Key    uint32
	Action func()
}

// String renders the combination as shown in menus, e.g. "Win+Alt+N".
func (b Binding) String() string {
	var parts []string
	for _, m := range []struct {
		flag uint32
		name string
	}{
		{ModCtrl, "Ctrl"},
		{ModWin, "Win"},
		{ModAlt, "Alt"},
		{ModShift, "Shift"},
	} {
		if b.Mod&m.flag != 0 {
			parts = append(parts, m.name)
		}
	}
	parts = append(parts, keyName(b.Key))
	return strings.Join(parts, "+")
}

func keyName(vk uint32) string {
	if vk >= '0' && vk <= '9' || vk >= 'A' && vk <= 'Z' {
		return string(rune(vk))
	}
	return fmt.Sprintf("0x%02X", vk)
}

// Actions are the toggles the default bindings drive.
type Actions struct {
	NightLight func()
	Dimmer     func()
	Reminder   func()
}

// Defaults binds Win+Alt+N, Win+Alt+D and Win+Alt+B.
func Defaults(a Actions) []Binding {
	const mod = ModWin | ModAlt | ModNoRepeat
	return []Binding{
		{Mod: mod, Key: 'N', Action: a.NightLight},
		{Mod: mod, Key: 'D', Action: a.Dimmer},
		{Mod: mod, Key: 'B', Action: a.Reminder},
	}
}
