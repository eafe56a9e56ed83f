// Package gamma owns the hardware gamma ramp: it backs up the original,
// applies warm ramps on request and always puts the original back.
package gamma

import (
	"errors"
	"fmt"
	"os"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/alex-vit/restlight/internal/curve"
	"github.com/alex-vit/restlight/internal/display"
)

// Device reads and writes the adapter's gamma ramp. Implementations acquire
// and release the display context inside each call; nothing is held open.
type Device interface {
	ReadRamp(*curve.Ramp) error
	WriteRamp(*curve.Ramp) error
}

// State is the actuator's lifecycle position.
type State int

const (
	Uninitialized State = iota
	BackedUp
	Neutral
	Applied
	Closed
)

func (s State) String() string {
	switch s {
	case Uninitialized:
		return "uninitialized"
	case BackedUp:
		return "backed-up"
	case Neutral:
		return "neutral"
	case Applied:
		return "applied"
	case Closed:
		return "closed"
	}
	return fmt.Sprintf("State(%d)", int(s))
}

// ErrClosed is returned by Apply after Close.
var ErrClosed = errors.New("gamma: actuator closed")

// Options configures an Actuator.
type Options struct {
	// Signal, when set, re-synchronizes the ramp after display changes.
	Signal *display.Signal
	// Dispatch moves reconfiguration callbacks onto the goroutine that owns
	// the actuator. Nil runs them inline.
	Dispatch func(func())
	// MarkerPath is a file that exists while a derived ramp is live. Empty
	// disables crash recovery.
	MarkerPath string
}

// Actuator is not safe for concurrent use; drive it from one goroutine and
// route signal callbacks there with Options.Dispatch.
type Actuator struct {
	dev    Device
	opts   Options
	log    zerolog.Logger
	sub    *display.Subscription
	state  State
	backup curve.Ramp
	temp   float64
	live   curve.Ramp
}

// New backs up the current ramp and subscribes to display changes. A ramp
// that can't be read is replaced by curve.Linear, so Restore always has
// something to write.
func New(dev Device, opts Options) *Actuator {
	a := &Actuator{
		dev:  dev,
		opts: opts,
		log:  log.With().Str("component", "gamma").Logger(),
	}
	a.recoverStaleRamp()
	a.backupRamp()
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

// recoverStaleRamp handles a marker left behind by a process that died
// with a warm ramp applied: that ramp is still on the hardware and must not
// become the backup.
func (a *Actuator) recoverStaleRamp() {
	if a.opts.MarkerPath == "" {
		return
	}
	if _, err := os.Stat(a.opts.MarkerPath); err != nil {
		return
	}
	a.log.Warn().Str("marker", a.opts.MarkerPath).Msg("previous session left a warm ramp applied, resetting to linear")
	linear := curve.Linear()
	if err := a.dev.WriteRamp(&linear); err != nil {
		a.log.Error().Err(err).Msg("reset stale ramp failed")
		return
	}
	a.clearMarker()
}

func (a *Actuator) backupRamp() {
	var ramp curve.Ramp
	if err := a.dev.ReadRamp(&ramp); err != nil {
		a.log.Warn().Err(err).Msg("read original ramp failed, using linear ramp as backup")
		ramp = curve.Linear()
	} else {
		a.log.Info().Msg("saved baseline gamma ramp")
	}
	a.backup = ramp
	if a.state == Uninitialized {
		a.state = BackedUp
	}
}

// Apply writes the ramp for temperature t (clamped to [0,1]). On failure
// the previous state is kept and the error is returned once; there is no
// retry.
func (a *Actuator) Apply(t float64) error {
	if a.state == Closed {
		return ErrClosed
	}
	t = curve.ClampTemperature(t)
	ramp := curve.Generate(t)
	// The marker goes down first so a kill during the write still leaves it.
	a.setMarker()
	if err := a.dev.WriteRamp(&ramp); err != nil {
		if a.state != Applied {
			a.clearMarker()
		}
		a.log.Error().Err(err).Float64("temperature", t).Msg("apply failed")
		return fmt.Errorf("apply gamma ramp: %w", err)
	}
	a.state = Applied
	a.temp = t
	a.live = ramp
	a.log.Debug().Float64("temperature", t).Msg("applied")
	return nil
}

// Restore writes the backed-up ramp. No-op if nothing was backed up.
func (a *Actuator) Restore() error {
	if a.state == Uninitialized || a.state == Closed {
		return nil
	}
	if err := a.dev.WriteRamp(&a.backup); err != nil {
		a.log.Error().Err(err).Msg("restore failed")
		return fmt.Errorf("restore gamma ramp: %w", err)
	}
	a.clearMarker()
	a.state = Neutral
	a.live = a.backup
	a.log.Info().Msg("restored baseline gamma ramp")
	return nil
}

// OnDisplayReconfigured re-reads the original ramp, which may not be valid
// for the new mode, and re-applies the last temperature if the effect was
// on.
func (a *Actuator) OnDisplayReconfigured() {
	if a.state == Closed {
		return
	}
	wasApplied := a.state == Applied
	prev := a.backup
	a.backupRamp()
	if wasApplied && nearRamp(&a.backup, &a.live) {
		// The adapter kept our warm ramp across the change, possibly at
		// reduced precision; it is not an original and must not become the
		// restore target.
		a.backup = prev
	}
	if wasApplied {
		a.log.Info().Float64("temperature", a.temp).Msg("display changed, re-applying night light")
		// A failure is already reported; the next change retries.
		_ = a.Apply(a.temp)
	}
}

// rampTolerance is the largest per-entry difference at which a re-read ramp
// still counts as the one we wrote. Drivers that store fewer than 16 bits
// per entry hand back a truncated copy.
const rampTolerance = 512

func nearRamp(x, y *curve.Ramp) bool {
	for ch := range x {
		for i := range x[ch] {
			d := int(x[ch][i]) - int(y[ch][i])
			if d > rampTolerance || d < -rampTolerance {
				return false
			}
		}
	}
	return true
}

// Close releases the display subscription and restores the original ramp.
// Failures are logged and returned but never stop the rest of teardown.
// Safe to call more than once.
func (a *Actuator) Close() error {
	if a.state == Closed {
		return nil
	}
	if a.sub != nil {
		if err := a.sub.Close(); err != nil {
			a.log.Warn().Err(err).Msg("unsubscribe failed")
		}
		a.sub = nil
	}
	err := a.Restore()
	a.state = Closed
	return err
}

// State returns the current lifecycle state.
func (a *Actuator) State() State { return a.state }

// Temperature returns the last applied temperature.
func (a *Actuator) Temperature() float64 { return a.temp }

// Backup returns the ramp that Restore writes.
func (a *Actuator) Backup() curve.Ramp { return a.backup }

func (a *Actuator) setMarker() {
	if a.opts.MarkerPath == "" {
		return
	}
	if err := os.WriteFile(a.opts.MarkerPath, []byte("applied\n"), 0o644); err != nil {
		a.log.Warn().Err(err).Msg("write ramp marker failed")
	}
}

func (a *Actuator) clearMarker() {
	if a.opts.MarkerPath == "" {
		return
	}
	if err := os.Remove(a.opts.MarkerPath); err != nil && !errors.Is(err, os.ErrNotExist) {
		a.log.Warn().Err(err).Msg("remove ramp marker failed")
	}
}
