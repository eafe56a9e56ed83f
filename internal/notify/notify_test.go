package notify

import (
	"errors"
	"testing"

	"github.com/ncruces/zenity"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alex-vit/restlight/internal/reminder"
)

func TestNotify(t *testing.T) {
	var texts []string
	s := &Sink{show: func(text string, opts ...zenity.Option) error {
		texts = append(texts, text)
		assert.Len(t, opts, 2)
		return nil
	}}

	require.NoError(t, s.Notify(reminder.Break))
	assert.Equal(t, []string{reminder.Break.Body}, texts)
}

func TestNotifyError(t *testing.T) {
	boom := errors.New("no notification daemon")
	s := &Sink{show: func(string, ...zenity.Option) error { return boom }}

	err := s.Notify(reminder.Break)
	assert.ErrorIs(t, err, boom)
	assert.NotErrorIs(t, err, reminder.ErrSinkGone)
}

func TestNotifyAfterClose(t *testing.T) {
	calls := 0
	s := &Sink{show: func(string, ...zenity.Option) error { calls++; return nil }}
	s.Close()

	assert.ErrorIs(t, s.Notify(reminder.Break), reminder.ErrSinkGone)
	assert.Zero(t, calls)
}
