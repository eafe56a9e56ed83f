// Package backlight sets hardware monitor brightness over DDC/CI.
package backlight

import (
	"errors"
	"fmt"
	"sync"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/alex-vit/restlight/internal/display"
)

// Monitor is one physical monitor reachable over DDC/CI.
type Monitor interface {
	GetBrightness() (min, current, max int, err error)
	SetBrightness(level int) error
}

// Enumerator lists the physical monitors attached right now.
type Enumerator func() ([]Monitor, error)

// ErrNoMonitors is returned when enumeration finds nothing usable.
var ErrNoMonitors = errors.New("backlight: no usable monitors")

// verifyTolerance is how far a read-back may drift from the written level
// before the handles are considered stale.
const verifyTolerance = 5

// Presets are the levels offered in the menu, brightest first.
var Presets = []int{100, 90, 80, 70, 60, 50, 40, 30, 20, 10}

// NearestPreset rounds level to the closest preset so values set with the
// monitor's own buttons still get a checkmark.
func NearestPreset(level int) int {
	return min(max(((level+5)/10)*10, 10), 100)
}

// Controller drives every monitor together. Safe for concurrent use.
type Controller struct {
	enum Enumerator
	log  zerolog.Logger
	sub  *display.Subscription

	mu       sync.Mutex
	monitors []Monitor
}

// New enumerates the monitors and, when sig is set, re-enumerates after
// every display change.
func New(enum Enumerator, sig *display.Signal) (*Controller, error) {
	c := &Controller{
		enum: enum,
		log:  log.With().Str("component", "backlight").Logger(),
	}
	if err := c.Refresh(); err != nil {
		return nil, err
	}
	if sig != nil {
		c.sub = sig.Subscribe(func() {
			if err := c.Refresh(); err != nil {
				c.log.Warn().Err(err).Msg("re-enumerate after display change failed")
			}
		})
	}
	return c, nil
}

// Refresh replaces the monitor handles with fresh ones. The old handles are
// kept when enumeration fails.
func (c *Controller) Refresh() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.refreshLocked()
}

func (c *Controller) refreshLocked() error {
	monitors, err := c.enum()
	if err != nil {
		return fmt.Errorf("enumerate monitors: %w", err)
	}
	if len(monitors) == 0 {
		return ErrNoMonitors
	}
	c.monitors = monitors
	c.log.Info().Int("count", len(monitors)).Msg("enumerated physical monitors")
	return nil
}

// Count returns the number of monitors being driven.
func (c *Controller) Count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.monitors)
}

// Level reads the first monitor's brightness. DDC/CI handles go stale
// after sleep and then read 0; that triggers one re-enumeration.
func (c *Controller) Level() (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	cur, err := c.readLocked()
	if err != nil {
		return 0, err
	}
	if cur == 0 {
		c.log.Debug().Msg("brightness 0 is suspicious, re-enumerating")
		if c.refreshLocked() == nil {
			return c.readLocked()
		}
	}
	return cur, nil
}

func (c *Controller) readLocked() (int, error) {
	if len(c.monitors) == 0 {
		return 0, ErrNoMonitors
	}
	_, cur, _, err := c.monitors[0].GetBrightness()
	if err != nil {
		return 0, fmt.Errorf("get brightness: %w", err)
	}
	return cur, nil
}

// SetLevel writes level (clamped to [0,100]) to every monitor and verifies
// the write. Stale handles accept writes silently, so a read-back that is
// off triggers one re-enumeration and a second write.
func (c *Controller) SetLevel(level int) error {
	level = min(max(level, 0), 100)
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.monitors) == 0 {
		return ErrNoMonitors
	}

	err := c.setAllLocked(level)
	cur, rerr := c.readLocked()
	c.log.Debug().Int("current", cur).Int("expected", level).AnErr("readErr", rerr).Msg("post-set verify")
	if rerr != nil || abs(cur-level) > verifyTolerance {
		c.log.Info().Msg("stale handle detected, refreshing monitors and retrying")
		if c.refreshLocked() == nil {
			err = c.setAllLocked(level)
		}
	}
	return err
}

func (c *Controller) setAllLocked(level int) error {
	var errs []error
	for i, m := range c.monitors {
		if err := m.SetBrightness(level); err != nil {
			c.log.Warn().Err(err).Int("monitor", i).Int("level", level).Msg("set brightness failed")
			errs = append(errs, fmt.Errorf("monitor %d: %w", i, err))
		}
	}
	return errors.Join(errs...)
}

// Close stops following display changes.
func (c *Controller) Close() error {
	if c.sub == nil {
		return nil
	}
	err := c.sub.Close()
	c.sub = nil
	return err
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}
