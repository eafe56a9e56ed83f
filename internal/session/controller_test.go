package session

import (
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alex-vit/restlight/internal/curve"
	"github.com/alex-vit/restlight/internal/display"
	"github.com/alex-vit/restlight/internal/gamma"
	"github.com/alex-vit/restlight/internal/overlay"
	"github.com/alex-vit/restlight/internal/reminder"
	"github.com/alex-vit/restlight/internal/settings"
)

type fakeDevice struct {
	mu       sync.Mutex
	hw       curve.Ramp
	writes   int
	writeErr error
}

func newFakeDevice() *fakeDevice {
	d := &fakeDevice{}
	// A vendor ramp that differs from linear, so restores are observable.
	for c := range d.hw {
		for i := range d.hw[c] {
			d.hw[c][i] = uint16(i*250 + c)
		}
	}
	return d
}

func (d *fakeDevice) ReadRamp(r *curve.Ramp) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	*r = d.hw
	return nil
}

func (d *fakeDevice) WriteRamp(r *curve.Ramp) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.writeErr != nil {
		return d.writeErr
	}
	d.hw = *r
	d.writes++
	return nil
}

func (d *fakeDevice) ramp() curve.Ramp {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.hw
}

func (d *fakeDevice) setRamp(r curve.Ramp) {
	d.mu.Lock()
	d.hw = r
	d.mu.Unlock()
}

func (d *fakeDevice) setWriteErr(err error) {
	d.mu.Lock()
	d.writeErr = err
	d.mu.Unlock()
}

type fakeWindow struct {
	mu         sync.Mutex
	visible    bool
	destroyed  bool
	opacity    float64
	bounds     display.Rect
	showErr    error
	destroyErr error
	panicOn    string
}

func (w *fakeWindow) lock(op string) func() {
	w.mu.Lock()
	if w.panicOn == op {
		w.mu.Unlock()
		panic(op + " exploded")
	}
	return w.mu.Unlock
}

func (w *fakeWindow) Realize() error { defer w.lock("realize")(); return nil }

func (w *fakeWindow) SetBounds(r display.Rect) error {
	defer w.lock("bounds")()
	w.bounds = r
	return nil
}

func (w *fakeWindow) SetOpacity(o float64) error {
	defer w.lock("opacity")()
	w.opacity = o
	return nil
}

func (w *fakeWindow) Show() error {
	defer w.lock("show")()
	if w.showErr != nil {
		return w.showErr
	}
	w.visible = true
	return nil
}

func (w *fakeWindow) Hide() error {
	defer w.lock("hide")()
	w.visible = false
	return nil
}

func (w *fakeWindow) Raise() error { defer w.lock("raise")(); return nil }

func (w *fakeWindow) Destroy() error {
	defer w.lock("destroy")()
	w.destroyed = true
	return w.destroyErr
}

func (w *fakeWindow) snapshot() fakeWindow {
	w.mu.Lock()
	defer w.mu.Unlock()
	return fakeWindow{visible: w.visible, destroyed: w.destroyed, opacity: w.opacity, bounds: w.bounds}
}

type fakeScreen struct {
	mu   sync.Mutex
	rect display.Rect
}

func (s *fakeScreen) VirtualScreen() display.Rect {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rect
}

func (s *fakeScreen) set(r display.Rect) {
	s.mu.Lock()
	s.rect = r
	s.mu.Unlock()
}

type recordingSink struct {
	mu  sync.Mutex
	got []reminder.Notification
}

func (s *recordingSink) Notify(n reminder.Notification) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.got = append(s.got, n)
	return nil
}

func (s *recordingSink) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.got)
}

type harness struct {
	c        *Controller
	dev      *fakeDevice
	original curve.Ramp
	win      *fakeWindow
	screen   *fakeScreen
	sig      *display.Signal
	sink     *recordingSink
}

func newHarness(t *testing.T, vals settings.Values) *harness {
	t.Helper()
	h := &harness{
		dev:    newFakeDevice(),
		win:    &fakeWindow{},
		screen: &fakeScreen{rect: display.Rect{Width: 1920, Height: 1080}},
		sig:    &display.Signal{},
		sink:   &recordingSink{},
	}
	h.original = h.dev.ramp()
	loop := NewLoop()
	c, err := New(Options{
		Loop:     loop,
		Gamma:    gamma.New(h.dev, gamma.Options{Signal: h.sig, Dispatch: loop.Post}),
		Overlay:  overlay.New(h.win, h.screen, overlay.Options{Signal: h.sig, Dispatch: loop.Post}),
		Sink:     h.sink,
		Values:   vals,
		Reminder: []reminder.Option{reminder.WithUnit(time.Millisecond)},
	})
	require.NoError(t, err)
	h.c = c
	t.Cleanup(func() { _ = c.Close() })
	return h
}

func TestNewValidatesOptions(t *testing.T) {
	_, err := New(Options{})
	assert.Error(t, err)
}

func TestInitialValuesAreNormalized(t *testing.T) {
	h := newHarness(t, settings.Values{Temperature: 3, DimLevel: 1, BreakIntervalMinutes: 500})
	v := h.c.Values()
	assert.Equal(t, 1.0, v.Temperature)
	assert.Equal(t, overlay.MaxOpacity, v.DimLevel)
	assert.Equal(t, 20, v.BreakIntervalMinutes)

	st := h.c.Status()
	assert.False(t, st.NightLight)
	assert.False(t, st.Dimmer)
	assert.False(t, st.Reminder)
}

func TestNightLightRoundTrip(t *testing.T) {
	h := newHarness(t, settings.Defaults())

	require.NoError(t, h.c.SetNightLight(true))
	assert.Equal(t, curve.Generate(0.7), h.dev.ramp())
	assert.True(t, h.c.Status().NightLight)

	require.NoError(t, h.c.SetNightLight(false))
	assert.Equal(t, h.original, h.dev.ramp())
	assert.False(t, h.c.Status().NightLight)
}

func TestTemperatureWhileOffIsStoredNotPushed(t *testing.T) {
	h := newHarness(t, settings.Defaults())
	writes := h.dev.writes

	require.NoError(t, h.c.SetTemperature(0.2))
	assert.Equal(t, writes, h.dev.writes, "no hardware write while disabled")
	assert.Equal(t, 0.2, h.c.Values().Temperature)

	require.NoError(t, h.c.SetNightLight(true))
	assert.Equal(t, curve.Generate(0.2), h.dev.ramp())

	require.NoError(t, h.c.SetTemperature(0.9))
	assert.Equal(t, curve.Generate(0.9), h.dev.ramp())
}

func TestDimLevelWhileOffIsStored(t *testing.T) {
	h := newHarness(t, settings.Defaults())

	require.NoError(t, h.c.SetDimLevel(0.5))
	assert.False(t, h.win.snapshot().visible)

	require.NoError(t, h.c.SetDimmer(true))
	w := h.win.snapshot()
	assert.True(t, w.visible)
	assert.Equal(t, 0.5, w.opacity)

	require.NoError(t, h.c.SetDimLevel(2))
	assert.Equal(t, overlay.MaxOpacity, h.win.snapshot().opacity)

	require.NoError(t, h.c.SetDimmer(false))
	assert.False(t, h.win.snapshot().visible)
	assert.False(t, h.c.Status().Dimmer)
}

func TestBreakIntervalRangeError(t *testing.T) {
	h := newHarness(t, settings.Defaults())

	var rerr *reminder.RangeError
	require.ErrorAs(t, h.c.SetBreakInterval(0), &rerr)
	require.ErrorAs(t, h.c.SetBreakInterval(121), &rerr)
	assert.Equal(t, 20, h.c.Values().BreakIntervalMinutes)
	assert.False(t, h.c.Status().Degraded, "range errors are the caller's to show")

	require.NoError(t, h.c.SetBreakInterval(45))
	assert.Equal(t, 45, h.c.Values().BreakIntervalMinutes)
}

func TestReminderFiresThroughSink(t *testing.T) {
	h := newHarness(t, settings.Values{Temperature: 0.7, DimLevel: 0.3, BreakIntervalMinutes: 2})

	require.NoError(t, h.c.SetReminder(true))
	assert.True(t, h.c.Status().Reminder)
	require.Eventually(t, func() bool { return h.sink.count() >= 2 }, time.Second, time.Millisecond)

	require.NoError(t, h.c.SetReminder(false))
	assert.False(t, h.c.Status().Reminder)
}

func TestDegradedIsSetAndCleared(t *testing.T) {
	h := newHarness(t, settings.Defaults())
	h.dev.setWriteErr(fmt.Errorf("GetDC: %w", display.ErrUnavailable))

	err := h.c.SetNightLight(true)
	require.ErrorIs(t, err, display.ErrUnavailable)
	st := h.c.Status()
	assert.True(t, st.Degraded)
	assert.NotEmpty(t, st.Message)
	assert.False(t, st.NightLight, "failed enable keeps the effect off")

	h.dev.setWriteErr(nil)
	require.NoError(t, h.c.SetNightLight(true))
	st = h.c.Status()
	assert.False(t, st.Degraded)
	assert.True(t, st.NightLight)
}

func TestOtherFailuresDoNotDegrade(t *testing.T) {
	h := newHarness(t, settings.Defaults())
	h.win.showErr = errors.New("ShowWindow failed")

	require.Error(t, h.c.SetDimmer(true))
	st := h.c.Status()
	assert.False(t, st.Degraded)
	assert.False(t, st.Dimmer)
	assert.Contains(t, st.Message, "ShowWindow")
}

func TestApplyValuesPushesToEnabledEffects(t *testing.T) {
	h := newHarness(t, settings.Defaults())
	require.NoError(t, h.c.SetNightLight(true))
	require.NoError(t, h.c.SetDimmer(true))

	require.NoError(t, h.c.ApplyValues(settings.Values{Temperature: 0.4, DimLevel: 1.5, BreakIntervalMinutes: 45}))
	assert.Equal(t, curve.Generate(0.4), h.dev.ramp())
	assert.Equal(t, overlay.MaxOpacity, h.win.snapshot().opacity)
	assert.Equal(t, 45, h.c.Values().BreakIntervalMinutes)
}

func TestApplyValuesRejectsInvalidInterval(t *testing.T) {
	h := newHarness(t, settings.Values{Temperature: 0.7, DimLevel: 0.3, BreakIntervalMinutes: 45})
	require.NoError(t, h.c.SetNightLight(true))

	err := h.c.ApplyValues(settings.Values{Temperature: 0.4, DimLevel: 0.6, BreakIntervalMinutes: 0})
	var rerr *reminder.RangeError
	require.ErrorAs(t, err, &rerr)
	assert.Equal(t, 0, rerr.Minutes)

	v := h.c.Values()
	assert.Equal(t, 45, v.BreakIntervalMinutes, "previous interval kept")
	assert.Equal(t, 0.4, v.Temperature, "valid dials still apply")
	assert.Equal(t, curve.Generate(0.4), h.dev.ramp())
}

func TestToggles(t *testing.T) {
	h := newHarness(t, settings.Defaults())

	require.NoError(t, h.c.ToggleNightLight())
	require.NoError(t, h.c.ToggleDimmer())
	require.NoError(t, h.c.ToggleReminder())
	st := h.c.Status()
	assert.True(t, st.NightLight)
	assert.True(t, st.Dimmer)
	assert.True(t, st.Reminder)

	require.NoError(t, h.c.ToggleNightLight())
	require.NoError(t, h.c.ToggleDimmer())
	require.NoError(t, h.c.ToggleReminder())
	st = h.c.Status()
	assert.False(t, st.NightLight)
	assert.False(t, st.Dimmer)
	assert.False(t, st.Reminder)
	assert.Equal(t, h.original, h.dev.ramp())
}

func TestConcurrentTogglesDoNotCancelOut(t *testing.T) {
	h := newHarness(t, settings.Defaults())

	const n = 9
	var wg sync.WaitGroup
	for range n {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.NoError(t, h.c.ToggleNightLight())
		}()
	}
	wg.Wait()

	// An odd number of flips always ends on.
	assert.True(t, h.c.Status().NightLight)
	assert.Equal(t, curve.Generate(0.7), h.dev.ramp())
}

func TestDisplayChangeIsMarshaledOntoLoop(t *testing.T) {
	h := newHarness(t, settings.Defaults())
	require.NoError(t, h.c.SetNightLight(true))
	require.NoError(t, h.c.SetDimmer(true))

	// The new mode comes up with its own original ramp.
	var fresh curve.Ramp
	for c := range fresh {
		for i := range fresh[c] {
			fresh[c][i] = uint16(i*255 + c)
		}
	}
	h.dev.setRamp(fresh)
	wide := display.Rect{X: -1920, Width: 3840, Height: 1080}
	h.screen.set(wide)
	h.sig.Notify()

	require.Eventually(t, func() bool { return h.win.snapshot().bounds == wide }, time.Second, time.Millisecond)
	require.Eventually(t, func() bool { return h.dev.ramp() == curve.Generate(0.7) }, time.Second, time.Millisecond,
		"warm ramp re-applied after the change")
	w := h.win.snapshot()
	assert.True(t, w.visible)
	assert.Equal(t, 0.3, w.opacity)

	require.NoError(t, h.c.Close())
	assert.Equal(t, fresh, h.dev.ramp(), "close restores the new mode's original")
}

func TestDisableThenExitRestores(t *testing.T) {
	h := newHarness(t, settings.Defaults())
	require.NoError(t, h.c.SetNightLight(true))
	require.NoError(t, h.c.SetDimmer(true))
	require.NoError(t, h.c.SetReminder(true))

	require.NoError(t, h.c.Close())
	assert.Equal(t, h.original, h.dev.ramp())
	w := h.win.snapshot()
	assert.False(t, w.visible)
	assert.True(t, w.destroyed)
	assert.False(t, h.c.Status().Reminder)
	assert.Zero(t, h.sig.Len(), "actuators unsubscribed")
}

func TestCloseIsBestEffort(t *testing.T) {
	h := newHarness(t, settings.Defaults())
	require.NoError(t, h.c.SetNightLight(true))
	require.NoError(t, h.c.SetDimmer(true))
	h.win.destroyErr = errors.New("DestroyWindow failed")

	err := h.c.Close()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "tear down overlay")
	assert.Equal(t, h.original, h.dev.ramp(), "gamma restored despite overlay failure")
}

func TestCloseContinuesAfterGammaFailure(t *testing.T) {
	h := newHarness(t, settings.Defaults())
	require.NoError(t, h.c.SetNightLight(true))
	require.NoError(t, h.c.SetDimmer(true))
	h.dev.setWriteErr(display.ErrUnavailable)

	err := h.c.Close()
	require.ErrorIs(t, err, display.ErrUnavailable)
	assert.True(t, h.win.snapshot().destroyed, "overlay torn down despite gamma failure")
}

func TestCloseRecoversPanickingStep(t *testing.T) {
	h := newHarness(t, settings.Defaults())
	require.NoError(t, h.c.SetNightLight(true))
	require.NoError(t, h.c.SetDimmer(true))
	h.win.mu.Lock()
	h.win.panicOn = "hide"
	h.win.mu.Unlock()

	err := h.c.Close()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "panic")
	assert.Equal(t, h.original, h.dev.ramp())
}

func TestIntentsAfterClose(t *testing.T) {
	h := newHarness(t, settings.Defaults())
	require.NoError(t, h.c.Close())
	require.NoError(t, h.c.Close())

	assert.ErrorIs(t, h.c.SetNightLight(true), ErrClosed)
	assert.ErrorIs(t, h.c.SetDimLevel(0.5), ErrClosed)
	assert.Equal(t, settings.Defaults(), h.c.Values(), "values stay readable for the final save")
}

func TestSinkAdapterAfterClose(t *testing.T) {
	h := newHarness(t, settings.Defaults())
	require.NoError(t, h.c.Close())
	assert.ErrorIs(t, sinkAdapter{h.c}.Notify(reminder.Break), reminder.ErrSinkGone)
}
