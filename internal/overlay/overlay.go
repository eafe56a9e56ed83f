// Package overlay dims the whole virtual screen with a translucent,
// click-through window.
package overlay

import (
	"errors"
	"fmt"
	"math"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/alex-vit/restlight/internal/display"
)

// MaxOpacity keeps the overlay from ever blacking out the screen.
const MaxOpacity = 0.95

// Window is the OS window behind the overlay. Implementations must be
// click-through, never take focus and stay out of task switchers. Every
// method must be safe to call from any goroutine.
type Window interface {
	Realize() error
	SetBounds(display.Rect) error
	SetOpacity(float64) error
	Show() error
	Hide() error
	// Raise re-asserts top-most stacking.
	Raise() error
	Destroy() error
}

// Screen reports the current virtual screen rectangle.
type Screen interface {
	VirtualScreen() display.Rect
}

// ErrClosed is returned by Show and SetOpacity after Close.
var ErrClosed = errors.New("overlay: actuator closed")

// State is a snapshot of the overlay.
type State struct {
	Bounds   display.Rect
	Opacity  float64
	Visible  bool
	Realized bool
}

// Options configures an Actuator.
type Options struct {
	Signal   *display.Signal
	Dispatch func(func())
}

// Actuator drives one overlay window. Like gamma.Actuator it belongs to a
// single goroutine.
type Actuator struct {
	win    Window
	screen Screen
	opts   Options
	log    zerolog.Logger
	sub    *display.Subscription
	state  State
	closed bool
}

// New returns a hidden overlay. The window is realized lazily on first Show.
func New(win Window, screen Screen, opts Options) *Actuator {
	a := &Actuator{
		win:    win,
		screen: screen,
		opts:   opts,
		log:    log.With().Str("component", "overlay").Logger(),
	}
	a.state.Bounds = screen.VirtualScreen()
	if opts.Signal != nil {
		a.sub = opts.Signal.Subscribe(func() { a.dispatch(a.OnDisplayReconfigured) })
	}
	return a
}

func (a *Actuator) dispatch(fn func()) {
	if a.opts.Dispatch != nil {
		a.opts.Dispatch(fn)
		return
	}
	fn()
}

// ClampOpacity limits level to [0, MaxOpacity]. NaN maps to 0.
func ClampOpacity(level float64) float64 {
	if math.IsNaN(level) || level < 0 {
		return 0
	}
	return math.Min(level, MaxOpacity)
}

// SetOpacity stores the clamped level and applies it at once when the
// overlay is visible.
func (a *Actuator) SetOpacity(level float64) error {
	if a.closed {
		return ErrClosed
	}
	level = ClampOpacity(level)
	if a.state.Visible {
		if err := a.win.SetOpacity(level); err != nil {
			a.log.Error().Err(err).Float64("opacity", level).Msg("set opacity failed")
			return fmt.Errorf("set overlay opacity: %w", err)
		}
	}
	a.state.Opacity = level
	return nil
}

// Show covers the current virtual screen. No-op when already visible.
func (a *Actuator) Show() error {
	if a.closed {
		return ErrClosed
	}
	if a.state.Visible {
		return nil
	}
	bounds := a.screen.VirtualScreen()
	if !a.state.Realized {
		if err := a.win.Realize(); err != nil {
			a.log.Error().Err(err).Msg("realize failed")
			return fmt.Errorf("realize overlay: %w", err)
		}
		a.state.Realized = true
	}
	steps := []struct {
		name string
		fn   func() error
	}{
		{"set bounds", func() error { return a.win.SetBounds(bounds) }},
		{"set opacity", func() error { return a.win.SetOpacity(a.state.Opacity) }},
		{"show", a.win.Show},
	}
	for _, s := range steps {
		if err := s.fn(); err != nil {
			a.log.Error().Err(err).Msg(s.name + " failed")
			return fmt.Errorf("show overlay: %s: %w", s.name, err)
		}
	}
	a.state.Bounds = bounds
	a.state.Visible = true
	a.raise()
	a.log.Debug().Stringer("bounds", bounds).Float64("opacity", a.state.Opacity).Msg("shown")
	return nil
}

// Hide hides the overlay but keeps the window for a fast re-show.
func (a *Actuator) Hide() error {
	if !a.state.Visible {
		return nil
	}
	if err := a.win.Hide(); err != nil {
		a.log.Error().Err(err).Msg("hide failed")
		return fmt.Errorf("hide overlay: %w", err)
	}
	a.state.Visible = false
	return nil
}

// raise re-asserts top-most; other windows can push the overlay down.
func (a *Actuator) raise() {
	if err := a.win.Raise(); err != nil {
		a.log.Warn().Err(err).Msg("raise failed")
	}
}

// OnDisplayReconfigured re-reads the virtual screen, even while hidden, so
// the next Show never uses stale bounds.
func (a *Actuator) OnDisplayReconfigured() {
	if a.closed {
		return
	}
	bounds := a.screen.VirtualScreen()
	a.state.Bounds = bounds
	if !a.state.Realized {
		return
	}
	if err := a.win.SetBounds(bounds); err != nil {
		a.log.Error().Err(err).Stringer("bounds", bounds).Msg("resize after display change failed")
		return
	}
	if a.state.Visible {
		a.raise()
	}
	a.log.Info().Stringer("bounds", bounds).Bool("visible", a.state.Visible).Msg("display changed, overlay resized")
}

// Close hides the overlay and releases the window. Every step runs even if
// an earlier one fails; the first failure is returned.
func (a *Actuator) Close() error {
	if a.closed {
		return nil
	}
	a.closed = true
	if a.sub != nil {
		if err := a.sub.Close(); err != nil {
			a.log.Warn().Err(err).Msg("unsubscribe failed")
		}
		a.sub = nil
	}
	var errs []error
	if err := a.Hide(); err != nil {
		errs = append(errs, err)
		a.state.Visible = false
	}
	if a.state.Realized {
		if err := a.win.Destroy(); err != nil {
			a.log.Error().Err(err).Msg("destroy failed")
			errs = append(errs, fmt.Errorf("destroy overlay: %w", err))
		}
		a.state.Realized = false
	}
	return errors.Join(errs...)
}

// State returns a snapshot of the overlay.
func (a *Actuator) State() State { return a.state }
