// Package reminder fires periodic break notifications.
package reminder

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Interval bounds in minutes.
const (
	MinInterval = 1
	MaxInterval = 120
)

var (
	// ErrSinkGone tells the scheduler the presentation surface is gone; it
	// stops instead of firing into nothing.
	ErrSinkGone = errors.New("reminder: notification sink gone")
	// ErrClosed is returned by Start after Close.
	ErrClosed = errors.New("reminder: scheduler closed")
)

// RangeError reports an interval outside [MinInterval, MaxInterval].
type RangeError struct {
	Minutes int
}

func (e *RangeError) Error() string {
	return fmt.Sprintf("break interval %d out of range: must be between %d and %d minutes",
		e.Minutes, MinInterval, MaxInterval)
}

// ValidateInterval returns a *RangeError for out-of-range intervals.
func ValidateInterval(minutes int) error {
	if minutes < MinInterval || minutes > MaxInterval {
		return &RangeError{Minutes: minutes}
	}
	return nil
}

// Notification is what a firing delivers to the sink.
type Notification struct {
	Title    string
	Body     string
	Duration time.Duration
}

// Break is the fixed break notification.
var Break = Notification{
	Title:    "Restlight: time for a break",
	Body:     "Pause visual input. Look away for 20 seconds.",
	Duration: 5 * time.Second,
}

// Sink presents notifications.
type Sink interface {
	Notify(Notification) error
}

// Option configures a Scheduler.
type Option func(*Scheduler)

// WithUnit sets the length of one interval unit. Defaults to a minute.
func WithUnit(d time.Duration) Option {
	return func(s *Scheduler) { s.unit = d }
}

// Scheduler is a restartable ticker. It is safe for concurrent use: the
// firing goroutine and the caller share it.
type Scheduler struct {
	sink Sink
	unit time.Duration
	log  zerolog.Logger

	mu       sync.Mutex
	interval int
	stop     chan struct{}
	closed   bool
}

// New returns a stopped scheduler with the default interval of 20 minutes.
func New(sink Sink, opts ...Option) *Scheduler {
	s := &Scheduler{
		sink:     sink,
		unit:     time.Minute,
		interval: 20,
		log:      log.With().Str("component", "reminder").Logger(),
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Start begins firing every minutes. Starting a running scheduler restarts
// its period.
func (s *Scheduler) Start(minutes int) error {
	if err := ValidateInterval(minutes); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	s.interval = minutes
	s.restartLocked()
	s.log.Info().Int("minutes", minutes).Msg("started")
	return nil
}

// SetInterval changes the period. A running scheduler keeps running and
// next fires minutes from now; a stopped one just remembers the value.
func (s *Scheduler) SetInterval(minutes int) error {
	if err := ValidateInterval(minutes); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.interval = minutes
	if s.stop != nil {
		s.restartLocked()
		s.log.Info().Int("minutes", minutes).Msg("rescheduled")
	}
	return nil
}

// Stop halts firing. Idempotent.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopLocked() {
		s.log.Info().Msg("stopped")
	}
}

// Close stops the scheduler for good. Idempotent.
func (s *Scheduler) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stopLocked()
	s.closed = true
}

// IsRunning reports whether the scheduler will fire.
func (s *Scheduler) IsRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stop != nil
}

// Interval returns the configured interval in minutes.
func (s *Scheduler) Interval() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.interval
}

func (s *Scheduler) stopLocked() bool {
	if s.stop == nil {
		return false
	}
	close(s.stop)
	s.stop = nil
	return true
}

func (s *Scheduler) restartLocked() {
	s.stopLocked()
	stop := make(chan struct{})
	s.stop = stop
	go s.run(stop, time.Duration(s.interval)*s.unit)
}

func (s *Scheduler) run(stop chan struct{}, period time.Duration) {
	ticker := time.NewTicker(period)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
		}
		// A Stop racing the tick wins.
		select {
		case <-stop:
			return
		default:
		}
		err := s.sink.Notify(Break)
		switch {
		case errors.Is(err, ErrSinkGone):
			s.log.Warn().Msg("notification sink gone, stopping")
			s.mu.Lock()
			if s.stop == stop {
				s.stopLocked()
			}
			s.mu.Unlock()
			return
		case err != nil:
			s.log.Error().Err(err).Msg("notify failed")
		}
	}
}
