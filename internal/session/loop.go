package session

import (
	"errors"
	"fmt"
	"sync"

	"github.com/rs/zerolog/log"
)

// ErrClosed is returned for work submitted after shutdown.
var ErrClosed = errors.New("session: closed")

// Loop is the single goroutine that owns the actuators. Everything that
// touches gamma or overlay state runs on it, in submission order.
type Loop struct {
	calls   chan func()
	quit    chan struct{}
	stopped chan struct{}
	once    sync.Once
}

// NewLoop starts a loop.
func NewLoop() *Loop {
	l := &Loop{
		calls:   make(chan func(), 64),
		quit:    make(chan struct{}),
		stopped: make(chan struct{}),
	}
	go l.run()
	return l
}

func (l *Loop) run() {
	defer close(l.stopped)
	for {
		select {
		case <-l.quit:
			return
		case fn := <-l.calls:
			l.call(fn)
		}
	}
}

func (l *Loop) call(fn func()) {
	defer func() {
		if r := recover(); r != nil {
			log.Error().Str("component", "session").Interface("panic", r).Msg("loop task panicked")
		}
	}()
	fn()
}

// Post queues fn and returns at once. Work posted after Close is dropped.
// It is the Dispatch function handed to the actuators.
func (l *Loop) Post(fn func()) {
	select {
	case l.calls <- fn:
	case <-l.quit:
	}
}

// Do runs fn on the loop and waits for it. A panic in fn comes back as an
// error. Do must not be called from the loop itself.
func (l *Loop) Do(fn func()) error {
	done := make(chan struct{})
	var recovered any
	task := func() {
		defer func() {
			recovered = recover()
			close(done)
		}()
		fn()
	}
	select {
	case l.calls <- task:
	case <-l.quit:
		return ErrClosed
	}
	select {
	case <-done:
	case <-l.stopped:
		select {
		case <-done:
		default:
			return ErrClosed
		}
	}
	if recovered != nil {
		return fmt.Errorf("session: panic: %v", recovered)
	}
	return nil
}

// Close stops the loop and waits for the task in flight. Queued work that
// has not started is dropped. Idempotent.
func (l *Loop) Close() {
	l.once.Do(func() { close(l.quit) })
	<-l.stopped
}
