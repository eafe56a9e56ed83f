// Package session coordinates the night light, the dimmer and break
// reminders, and owns their ordered teardown.
package session

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/alex-vit/restlight/internal/curve"
	"github.com/alex-vit/restlight/internal/display"
	"github.com/alex-vit/restlight/internal/gamma"
	"github.com/alex-vit/restlight/internal/overlay"
	"github.com/alex-vit/restlight/internal/reminder"
	"github.com/alex-vit/restlight/internal/settings"
)

// Status is what the tray shows.
type Status struct {
	NightLight bool
	Dimmer     bool
	Reminder   bool
	Values     settings.Values
	// Degraded is set while the last display operation failed because an
	// OS resource was unavailable.
	Degraded bool
	Message  string
}

// Options wires a Controller. Gamma and Overlay must have been built with
// Loop.Post as their Dispatch.
type Options struct {
	Loop    *Loop
	Gamma   *gamma.Actuator
	Overlay *overlay.Actuator
	Sink    reminder.Sink
	Values  settings.Values
	// OnStatus runs on the loop after every change. It must not block on
	// the controller.
	OnStatus func(Status)
	Reminder []reminder.Option
}

// Controller forwards user intent to the actuators. All of its methods are
// safe for concurrent use; the work itself runs on the Loop.
type Controller struct {
	loop     *Loop
	gamma    *gamma.Actuator
	overlay  *overlay.Actuator
	sched    *reminder.Scheduler
	sink     reminder.Sink
	onStatus func(Status)
	log      zerolog.Logger

	// Loop-owned.
	nightLight bool
	dimmer     bool
	values     settings.Values
	degraded   bool
	message    string
	closed     bool

	snap      atomic.Pointer[Status]
	closeOnce sync.Once
	closeErr  error
}

// New builds a controller with every effect off. The initial values go
// through settings.Normalize; an invalid interval is replaced by the
// default, since there is no previous one to keep.
func New(opts Options) (*Controller, error) {
	switch {
	case opts.Loop == nil:
		return nil, errors.New("session: nil loop")
	case opts.Gamma == nil:
		return nil, errors.New("session: nil gamma actuator")
	case opts.Overlay == nil:
		return nil, errors.New("session: nil overlay actuator")
	case opts.Sink == nil:
		return nil, errors.New("session: nil notification sink")
	}
	c := &Controller{
		loop:     opts.Loop,
		gamma:    opts.Gamma,
		overlay:  opts.Overlay,
		sink:     opts.Sink,
		onStatus: opts.OnStatus,
		log:      log.With().Str("component", "session").Logger(),
	}
	values, err := settings.Normalize(opts.Values)
	if err != nil {
		c.log.Warn().Err(err).Int("default", values.BreakIntervalMinutes).Msg("initial break interval rejected")
	}
	c.values = values
	c.sched = reminder.New(sinkAdapter{c}, opts.Reminder...)
	err = c.loop.Do(func() {
		// Neither call can fail here: the overlay is hidden and the
		// interval is already normalized.
		_ = c.overlay.SetOpacity(c.values.DimLevel)
		_ = c.sched.SetInterval(c.values.BreakIntervalMinutes)
		c.publish()
	})
	if err != nil {
		return nil, err
	}
	return c, nil
}

// do runs fn on the loop and returns its error.
func (c *Controller) do(fn func() error) error {
	var err error
	if lerr := c.loop.Do(func() {
		if c.closed {
			err = ErrClosed
			return
		}
		err = fn()
		c.publish()
	}); lerr != nil {
		return lerr
	}
	return err
}

// SetNightLight applies the stored temperature or restores the original
// ramp. On failure the effect keeps its previous state.
func (c *Controller) SetNightLight(on bool) error {
	return c.do(func() error { return c.setNightLight(on) })
}

// ToggleNightLight flips the night light. The current state is read on the
// loop, so concurrent toggles never cancel each other out.
func (c *Controller) ToggleNightLight() error {
	return c.do(func() error { return c.setNightLight(!c.nightLight) })
}

func (c *Controller) setNightLight(on bool) error {
	var err error
	if on {
		err = c.gamma.Apply(c.values.Temperature)
	} else {
		err = c.gamma.Restore()
	}
	if c.track(err) {
		return err
	}
	c.nightLight = on
	c.log.Info().Bool("on", on).Msg("night light")
	return nil
}

// SetTemperature stores t and applies it if the night light is on.
func (c *Controller) SetTemperature(t float64) error {
	return c.do(func() error { return c.setTemperature(t) })
}

func (c *Controller) setTemperature(t float64) error {
	c.values.Temperature = curve.ClampTemperature(t)
	if !c.nightLight {
		return nil
	}
	err := c.gamma.Apply(c.values.Temperature)
	c.track(err)
	return err
}

// SetDimmer shows or hides the overlay.
func (c *Controller) SetDimmer(on bool) error {
	return c.do(func() error { return c.setDimmer(on) })
}

// ToggleDimmer flips the overlay.
func (c *Controller) ToggleDimmer() error {
	return c.do(func() error { return c.setDimmer(!c.dimmer) })
}

func (c *Controller) setDimmer(on bool) error {
	var err error
	if on {
		err = c.overlay.Show()
	} else {
		err = c.overlay.Hide()
	}
	if c.track(err) {
		return err
	}
	c.dimmer = on
	c.log.Info().Bool("on", on).Msg("dimmer")
	return nil
}

// SetDimLevel stores level; the overlay picks it up at once when visible.
func (c *Controller) SetDimLevel(level float64) error {
	return c.do(func() error { return c.setDimLevel(level) })
}

func (c *Controller) setDimLevel(level float64) error {
	c.values.DimLevel = overlay.ClampOpacity(level)
	err := c.overlay.SetOpacity(c.values.DimLevel)
	c.track(err)
	return err
}

// SetReminder starts or stops break reminders at the stored interval.
func (c *Controller) SetReminder(on bool) error {
	return c.do(func() error { return c.setReminder(on) })
}

// ToggleReminder starts reminders if they are stopped and stops them
// otherwise.
func (c *Controller) ToggleReminder() error {
	return c.do(func() error { return c.setReminder(!c.sched.IsRunning()) })
}

func (c *Controller) setReminder(on bool) error {
	if !on {
		c.sched.Stop()
		return nil
	}
	return c.sched.Start(c.values.BreakIntervalMinutes)
}

// SetBreakInterval validates and stores minutes. Out-of-range values come
// back as *reminder.RangeError and change nothing.
func (c *Controller) SetBreakInterval(minutes int) error {
	return c.do(func() error { return c.setBreakInterval(minutes) })
}

func (c *Controller) setBreakInterval(minutes int) error {
	if err := c.sched.SetInterval(minutes); err != nil {
		return err
	}
	c.values.BreakIntervalMinutes = minutes
	return nil
}

// ApplyValues takes values edited outside the app. Enabled effects pick up
// the new parameters. The dials are clamped; an out-of-range interval comes
// back as *reminder.RangeError and the previous interval stays.
func (c *Controller) ApplyValues(v settings.Values) error {
	v = settings.Clamp(v)
	return c.do(func() error {
		return errors.Join(
			c.setTemperature(v.Temperature),
			c.setDimLevel(v.DimLevel),
			c.setBreakInterval(v.BreakIntervalMinutes),
		)
	})
}

// Values returns the current parameter values.
func (c *Controller) Values() settings.Values { return c.Status().Values }

// Status returns the last published state.
func (c *Controller) Status() Status {
	s := *c.snap.Load()
	s.Reminder = c.sched.IsRunning()
	return s
}

// track records the outcome of an OS operation and reports whether it
// failed. Only unavailable resources mark the session degraded.
func (c *Controller) track(err error) bool {
	switch {
	case err == nil:
		c.degraded, c.message = false, ""
	case errors.Is(err, display.ErrUnavailable):
		c.degraded, c.message = true, err.Error()
	default:
		c.message = err.Error()
	}
	return err != nil
}

func (c *Controller) publish() {
	s := Status{
		NightLight: c.nightLight,
		Dimmer:     c.dimmer,
		Reminder:   c.sched.IsRunning(),
		Values:     c.values,
		Degraded:   c.degraded,
		Message:    c.message,
	}
	c.snap.Store(&s)
	if c.onStatus != nil {
		c.onStatus(s)
	}
}

// Close stops reminders, restores the original gamma ramp and tears down
// the overlay. Every step runs even if an earlier one fails or panics.
// Safe to call more than once and from any goroutine except the loop.
func (c *Controller) Close() error {
	c.closeOnce.Do(func() {
		if err := c.loop.Do(c.teardown); err != nil {
			c.log.Error().Err(err).Msg("teardown on loop failed, running inline")
			c.teardown()
		}
		c.loop.Close()
	})
	return c.closeErr
}

func (c *Controller) teardown() {
	if c.closed {
		return
	}
	c.closed = true
	steps := []struct {
		name string
		fn   func() error
	}{
		{"stop reminders", func() error { c.sched.Close(); return nil }},
		{"restore gamma", c.gamma.Close},
		{"tear down overlay", c.overlay.Close},
	}
	var errs []error
	for _, s := range steps {
		if err := c.step(s.name, s.fn); err != nil {
			errs = append(errs, err)
		}
	}
	c.nightLight, c.dimmer = false, false
	c.closeErr = errors.Join(errs...)
	s := Status{Values: c.values}
	c.snap.Store(&s)
	c.log.Info().Err(c.closeErr).Msg("session closed")
}

func (c *Controller) step(name string, fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%s: panic: %v", name, r)
			c.log.Error().Interface("panic", r).Str("step", name).Msg("teardown step panicked")
		}
	}()
	if err := fn(); err != nil {
		c.log.Error().Err(err).Str("step", name).Msg("teardown step failed")
		return fmt.Errorf("%s: %w", name, err)
	}
	return nil
}

// sinkAdapter delivers scheduler firings through the loop, so a firing
// never races teardown.
type sinkAdapter struct{ c *Controller }

func (a sinkAdapter) Notify(n reminder.Notification) error {
	var err error
	if lerr := a.c.loop.Do(func() {
		if a.c.closed {
			err = reminder.ErrSinkGone
			return
		}
		err = a.c.sink.Notify(n)
	}); lerr != nil {
		return reminder.ErrSinkGone
	}
	return err
}
