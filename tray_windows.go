//go:build windows

package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"os/exec"
	"os/signal"
	"sync"
	"syscall"

	"github.com/energye/systray"
	"github.com/rs/zerolog/log"

	"github.com/alex-vit/restlight/icon"
	"github.com/alex-vit/restlight/internal/backlight"
	"github.com/alex-vit/restlight/internal/display"
	"github.com/alex-vit/restlight/internal/gamma"
	"github.com/alex-vit/restlight/internal/hotkey"
	"github.com/alex-vit/restlight/internal/notify"
	"github.com/alex-vit/restlight/internal/overlay"
	"github.com/alex-vit/restlight/internal/reminder"
	"github.com/alex-vit/restlight/internal/session"
	"github.com/alex-vit/restlight/internal/settings"
	"github.com/alex-vit/restlight/internal/update"
)

// app is the tray shell around one session.
type app struct {
	opts   *options
	ctx    context.Context
	cancel context.CancelFunc

	sig     display.Signal
	watcher *display.Watcher
	store   *settings.Store
	sink    *notify.Sink
	ctrl    *session.Controller
	bright  *backlight.Controller

	mu          sync.Mutex
	ready       bool
	mNight      *systray.MenuItem
	mDimmer     *systray.MenuItem
	mReminder   *systray.MenuItem
	mAutostart  *systray.MenuItem
	warmthItems []*systray.MenuItem
	dimItems    []*systray.MenuItem
	intItems    []*systray.MenuItem
	brightItems map[int]*systray.MenuItem

	shutdownOnce sync.Once
	closeErr     error
}

func runTray(ctx context.Context, opts *options) error {
	release, err := acquireSingleInstance()
	if err != nil {
		if errors.Is(err, errAlreadyRunning) {
			notify.Message("Restlight", "Restlight is already running.")
		}
		return err
	}
	defer release()

	log.Info().Str("version", displayVersion()).Str("settings", opts.settingsPath()).Msg("Restlight starting")
	upd := update.New(displayVersion())
	upd.CleanOld()

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := newApp(ctx, opts)
	if err != nil {
		return err
	}
	defer func() {
		if r := recover(); r != nil {
			log.Error().Interface("panic", r).Msg("panic in tray, restoring display")
			a.shutdown()
			panic(r)
		}
	}()

	go upd.Run(a.ctx)
	go func() {
		<-a.ctx.Done()
		systray.Quit()
	}()
	systray.Run(a.onReady, a.shutdown)
	a.shutdown()
	return a.closeErr
}

func newApp(ctx context.Context, opts *options) (*app, error) {
	a := &app{opts: opts}
	a.ctx, a.cancel = context.WithCancel(ctx)

	a.store = settings.Open(opts.settingsPath())
	vals, err := a.store.Load()
	if err != nil {
		a.report(err)
	}
	if _, err := os.Stat(a.store.Path()); errors.Is(err, fs.ErrNotExist) {
		// "Edit settings" needs a file to open.
		if err := a.store.Save(vals); err != nil {
			log.Warn().Err(err).Msg("write default settings failed")
		}
	}

	w, err := display.Watch(&a.sig)
	if err != nil {
		log.Warn().Err(err).Msg("display change watcher unavailable, effects will not follow reconfiguration")
	}
	a.watcher = w

	loop := session.NewLoop()
	g := gamma.New(gamma.NewDevice(), gamma.Options{
		Signal:     &a.sig,
		Dispatch:   loop.Post,
		MarkerPath: opts.markerPath(),
	})
	o := overlay.New(overlay.NewWindow(), display.Screen{}, overlay.Options{
		Signal:   &a.sig,
		Dispatch: loop.Post,
	})
	a.sink = notify.New()
	a.ctrl, err = session.New(session.Options{
		Loop:     loop,
		Gamma:    g,
		Overlay:  o,
		Sink:     a.sink,
		Values:   vals,
		OnStatus: func(session.Status) { go a.render() },
	})
	if err != nil {
		_ = g.Close()
		_ = o.Close()
		loop.Close()
		a.closeWatcher()
		a.cancel()
		return nil, fmt.Errorf("start session: %w", err)
	}

	if b, err := backlight.New(backlight.SystemMonitors, &a.sig); err != nil {
		log.Warn().Err(err).Msg("monitor brightness unavailable")
	} else {
		a.bright = b
	}

	if err := a.store.Watch(a.ctx, a.onSettingsFile); err != nil {
		log.Warn().Err(err).Msg("settings file changes will not be picked up")
	}

	bindings := hotkey.Defaults(hotkey.Actions{
		NightLight: func() { go a.guard(a.toggleNightLight) },
		Dimmer:     func() { go a.guard(a.toggleDimmer) },
		Reminder:   func() { go a.guard(a.toggleReminder) },
	})
	go func() {
		if err := hotkey.Run(a.ctx, bindings); err != nil {
			log.Warn().Err(err).Msg("hotkey registration error")
		}
	}()
	return a, nil
}

func (a *app) onReady() {
	systray.SetIcon(icon.Generate(0, 0))
	systray.SetTooltip("Restlight")

	mTitle := systray.AddMenuItem("Restlight "+displayVersion(), "")
	mTitle.Disable()
	systray.AddSeparator()

	a.mu.Lock()
	a.mNight = systray.AddMenuItem("Night light\tWin+Alt+N", "Warm the screen colours")
	a.mNight.Click(func() { a.guard(a.toggleNightLight) })
	mWarmth := systray.AddMenuItem("Warmth", "Night light strength")
	a.warmthItems = addPresets(mWarmth, warmthPresets, func(v float64) error { return a.ctrl.SetTemperature(v) }, a)

	a.mDimmer = systray.AddMenuItem("Dimmer\tWin+Alt+D", "Darken the whole screen")
	a.mDimmer.Click(func() { a.guard(a.toggleDimmer) })
	mDim := systray.AddMenuItem("Dim level", "Dimmer strength")
	a.dimItems = addPresets(mDim, dimPresets, func(v float64) error { return a.ctrl.SetDimLevel(v) }, a)

	a.mReminder = systray.AddMenuItem("Break reminders\tWin+Alt+B", "Remind me to look away")
	a.mReminder.Click(func() { a.guard(a.toggleReminder) })
	mInterval := systray.AddMenuItem("Reminder interval", "Time between breaks")
	a.intItems = addPresets(mInterval, intervalPresets, func(v int) error { return a.ctrl.SetBreakInterval(v) }, a)

	if a.bright != nil {
		systray.AddSeparator()
		mBright := systray.AddMenuItem("Monitor brightness", "Hardware backlight over DDC/CI")
		a.brightItems = make(map[int]*systray.MenuItem)
		for _, level := range backlight.Presets {
			item := mBright.AddSubMenuItem(fmt.Sprintf("%d%%", level), fmt.Sprintf("Set brightness to %d%%", level))
			item.Click(func() { a.guard(func() { a.setBrightness(level) }) })
			a.brightItems[level] = item
		}
	}

	systray.AddSeparator()
	a.mAutostart = systray.AddMenuItem("Start with Windows", "Launch Restlight at login")
	if isAutostartEnabled() {
		a.mAutostart.Check()
	}
	a.mAutostart.Click(func() { a.guard(a.toggleAutostart) })
	systray.AddMenuItem("Edit settings", "Open the settings file").Click(func() { openFile(a.store.Path()) })
	systray.AddMenuItem("Open log", "Open log file").Click(func() { openFile(a.opts.logPath) })
	systray.AddSeparator()
	systray.AddMenuItem("Quit", "Quit Restlight").Click(func() { systray.Quit() })
	a.ready = true
	a.mu.Unlock()

	systray.SetOnClick(a.showMenu)
	systray.SetOnRClick(a.showMenu)
	a.render()
	a.refreshBrightness()
}

// addPresets fills parent with one radio item per preset.
func addPresets[T int | float64](parent *systray.MenuItem, presets []preset[T], set func(T) error, a *app) []*systray.MenuItem {
	items := make([]*systray.MenuItem, len(presets))
	for i, p := range presets {
		items[i] = parent.AddSubMenuItem(p.label, "")
		items[i].Click(func() {
			a.guard(func() {
				if err := set(p.value); err != nil {
					a.report(err)
				}
			})
		})
	}
	return items
}

func (a *app) showMenu(menu systray.IMenu) {
	a.refreshBrightness()
	menu.ShowMenu()
}

// render brings the menu, icon and tooltip in line with the session.
func (a *app) render() {
	a.mu.Lock()
	defer a.mu.Unlock()
	if !a.ready || a.ctrl == nil {
		return
	}
	st := a.ctrl.Status()

	setChecked(a.mNight, st.NightLight)
	setChecked(a.mDimmer, st.Dimmer)
	setChecked(a.mReminder, st.Reminder)
	checkOne(a.warmthItems, nearestIndex(warmthPresets, st.Values.Temperature))
	checkOne(a.dimItems, nearestIndex(dimPresets, st.Values.DimLevel))
	checkOne(a.intItems, nearestIndex(intervalPresets, st.Values.BreakIntervalMinutes))

	var warmth, dim float64
	if st.NightLight {
		warmth = st.Values.Temperature
	}
	if st.Dimmer {
		dim = st.Values.DimLevel
	}
	systray.SetIcon(icon.Generate(warmth, dim))

	tip := "Restlight"
	if st.NightLight {
		tip += ", night light " + percent(st.Values.Temperature)
	}
	if st.Dimmer {
		tip += ", dimmed " + percent(st.Values.DimLevel)
	}
	if st.Degraded {
		tip += " (display unavailable)"
	}
	systray.SetTooltip(tip)
}

func setChecked(item *systray.MenuItem, on bool) {
	if on {
		item.Check()
	} else {
		item.Uncheck()
	}
}

func checkOne(items []*systray.MenuItem, idx int) {
	for i, item := range items {
		setChecked(item, i == idx)
	}
}

func (a *app) toggleNightLight() {
	if err := a.ctrl.ToggleNightLight(); err != nil {
		a.report(err)
	}
}

func (a *app) toggleDimmer() {
	if err := a.ctrl.ToggleDimmer(); err != nil {
		a.report(err)
	}
}

func (a *app) toggleReminder() {
	if err := a.ctrl.ToggleReminder(); err != nil {
		a.report(err)
	}
}

// report logs err; range errors are also shown, since they are the user's
// to fix.
func (a *app) report(err error) {
	if errors.Is(err, session.ErrClosed) {
		return
	}
	log.Warn().Err(err).Msg("action failed")
	var rerr *reminder.RangeError
	if errors.As(err, &rerr) {
		go notify.Message("Restlight", rerr.Error())
	}
}

func (a *app) onSettingsFile(v settings.Values) {
	if err := a.ctrl.ApplyValues(v); err != nil {
		a.report(err)
	}
}

func (a *app) setBrightness(level int) {
	if err := a.bright.SetLevel(level); err != nil {
		log.Warn().Err(err).Int("level", level).Msg("set brightness failed")
	}
	a.checkBrightness(level)
}

func (a *app) refreshBrightness() {
	if a.bright == nil {
		return
	}
	level, err := a.bright.Level()
	if err != nil {
		log.Warn().Err(err).Msg("read brightness failed")
		return
	}
	a.checkBrightness(level)
}

func (a *app) checkBrightness(level int) {
	a.mu.Lock()
	defer a.mu.Unlock()
	nearest := backlight.NearestPreset(level)
	for l, item := range a.brightItems {
		setChecked(item, l == nearest)
	}
}

func (a *app) toggleAutostart() {
	if a.mAutostart.Checked() {
		if err := autostartDisable(); err != nil {
			log.Warn().Err(err).Msg("failed to disable autostart")
			return
		}
		a.mAutostart.Uncheck()
		return
	}
	if err := autostartEnable(); err != nil {
		log.Warn().Err(err).Msg("failed to enable autostart")
		return
	}
	a.mAutostart.Check()
}

// guard runs a menu or hotkey action. A panic there must still restore the
// display before the process dies.
func (a *app) guard(fn func()) {
	defer func() {
		if r := recover(); r != nil {
			log.Error().Interface("panic", r).Msg("panic in action, restoring display")
			a.shutdown()
			os.Exit(2)
		}
	}()
	fn()
}

// shutdown saves the values and restores the display. Safe to call from
// any goroutine, more than once.
func (a *app) shutdown() {
	a.shutdownOnce.Do(func() {
		log.Info().Msg("shutting down")
		a.cancel()
		if err := a.store.Save(a.ctrl.Values()); err != nil {
			log.Error().Err(err).Msg("save settings failed")
		}
		a.sink.Close()
		a.closeErr = a.ctrl.Close()
		if a.bright != nil {
			if err := a.bright.Close(); err != nil {
				log.Warn().Err(err).Msg("backlight close failed")
			}
		}
		a.closeWatcher()
	})
}

func (a *app) closeWatcher() {
	if a.watcher == nil {
		return
	}
	if err := a.watcher.Close(); err != nil {
		log.Warn().Err(err).Msg("display watcher close failed")
	}
}

func openFile(path string) {
	if err := exec.Command("rundll32", "url.dll,FileProtocolHandler", path).Start(); err != nil {
		log.Warn().Err(err).Str("path", path).Msg("open failed")
	}
}
