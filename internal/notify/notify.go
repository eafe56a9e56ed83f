// Package notify shows desktop notifications and message boxes.
package notify

import (
	"fmt"
	"sync"

	"github.com/ncruces/zenity"
	"github.com/rs/zerolog/log"

	"github.com/alex-vit/restlight/internal/reminder"
)

// Sink delivers break reminders as desktop notifications. The OS decides
// how long a notification stays up.
type Sink struct {
	show func(text string, opts ...zenity.Option) error

	mu     sync.Mutex
	closed bool
}

// New returns a sink backed by zenity.Notify.
func New() *Sink {
	return &Sink{show: zenity.Notify}
}

// Notify shows n. After Close it returns reminder.ErrSinkGone.
func (s *Sink) Notify(n reminder.Notification) error {
	s.mu.Lock()
	closed := s.closed
	s.mu.Unlock()
	if closed {
		return reminder.ErrSinkGone
	}
	if err := s.show(n.Body, zenity.Title(n.Title), zenity.InfoIcon); err != nil {
		return fmt.Errorf("show notification: %w", err)
	}
	log.Debug().Str("component", "notify").Str("title", n.Title).Msg("notification shown")
	return nil
}

// Close marks the presentation surface as gone.
func (s *Sink) Close() {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
}

// Message shows a modal warning box and blocks until it is dismissed.
func Message(title, text string) {
	if err := zenity.Warning(text, zenity.Title(title), zenity.WarningIcon); err != nil {
		log.Warn().Str("component", "notify").Err(err).Str("text", text).Msg("message box failed")
	}
}
