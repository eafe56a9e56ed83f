// Package display holds the pieces shared by the display actuators: the
// virtual screen geometry, the reconfiguration signal and the
// resource-unavailable error kind.
package display

import (
	"errors"
	"fmt"
	"sync"
)

// ErrUnavailable reports that an OS display resource (a device context, a
// window) could not be acquired. It is transient: callers report it and
// keep their previous state.
var ErrUnavailable = errors.New("display resource unavailable")

// ErrNotSubscribed is returned when a subscription is released twice.
var ErrNotSubscribed = errors.New("display: not subscribed")

// Rect is a screen rectangle in virtual-screen coordinates.
type Rect struct {
	X, Y          int
	Width, Height int
}

func (r Rect) String() string {
	return fmt.Sprintf("%dx%d%+d%+d", r.Width, r.Height, r.X, r.Y)
}

// Empty reports whether r covers no pixels.
func (r Rect) Empty() bool { return r.Width <= 0 || r.Height <= 0 }

// Signal fans out "display settings changed" notifications. It carries no
// data; subscribers re-read whatever they need.
type Signal struct {
	mu       sync.Mutex
	next     int
	handlers map[int]func()
}

// Subscription is a live registration on a Signal.
type Subscription struct {
	sig *Signal
	id  int
}

// Subscribe registers fn. fn runs on whichever goroutine calls Notify.
func (s *Signal) Subscribe(fn func()) *Subscription {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.handlers == nil {
		s.handlers = make(map[int]func())
	}
	s.next++
	s.handlers[s.next] = fn
	return &Subscription{sig: s, id: s.next}
}

// Close releases the registration. Closing twice returns ErrNotSubscribed.
func (sub *Subscription) Close() error {
	if sub == nil || sub.sig == nil {
		return ErrNotSubscribed
	}
	s := sub.sig
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.handlers[sub.id]; !ok {
		return ErrNotSubscribed
	}
	delete(s.handlers, sub.id)
	return nil
}

// Notify calls every registered handler.
func (s *Signal) Notify() {
	s.mu.Lock()
	fns := make([]func(), 0, len(s.handlers))
	for _, fn := range s.handlers {
		fns = append(fns, fn)
	}
	s.mu.Unlock()

	for _, fn := range fns {
		fn()
	}
}

// Len returns the number of live subscriptions.
func (s *Signal) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.handlers)
}
