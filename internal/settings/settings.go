// Package settings persists the session's parameter values (never the
// enabled flags) as a JSON file.
package settings

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/fsnotify/fsnotify"
	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"

	"github.com/alex-vit/restlight/internal/curve"
	"github.com/alex-vit/restlight/internal/overlay"
	"github.com/alex-vit/restlight/internal/reminder"
)

const (
	keyTemperature = "color_temperature"
	keyDimLevel    = "dim_level"
	keyInterval    = "break_interval_minutes"
)

// Values are the dial positions that outlive the process.
type Values struct {
	Temperature          float64 `mapstructure:"color_temperature" validate:"gte=0,lte=1"`
	DimLevel             float64 `mapstructure:"dim_level" validate:"gte=0,lte=0.95"`
	BreakIntervalMinutes int     `mapstructure:"break_interval_minutes" validate:"min=1,max=120"`
}

// Defaults returns the first-run values.
func Defaults() Values {
	return Values{Temperature: 0.7, DimLevel: 0.3, BreakIntervalMinutes: 20}
}

var validate = validator.New()

// Clamp limits the two dials to their ranges. The interval is left alone.
func Clamp(v Values) Values {
	v.Temperature = curve.ClampTemperature(v.Temperature)
	v.DimLevel = overlay.ClampOpacity(v.DimLevel)
	return v
}

// Validate checks v with the struct rules. An interval outside the
// reminder range comes back as *reminder.RangeError.
func Validate(v Values) error {
	err := validate.Struct(v)
	var ves validator.ValidationErrors
	if !errors.As(err, &ves) {
		return err
	}
	for _, fe := range ves {
		if fe.StructField() == "BreakIntervalMinutes" {
			return &reminder.RangeError{Minutes: v.BreakIntervalMinutes}
		}
	}
	return err
}

// Normalize runs loaded values through the same rules as live input: the
// two dials are clamped and the interval is validated. An invalid interval
// is replaced by the default and the validation error is returned with the
// usable values.
func Normalize(v Values) (Values, error) {
	v = Clamp(v)
	err := Validate(v)
	var rerr *reminder.RangeError
	if errors.As(err, &rerr) {
		log.Warn().Str("component", "settings").
			Int("value", rerr.Minutes).
			Msg("invalid break interval, using default")
		v.BreakIntervalMinutes = Defaults().BreakIntervalMinutes
	}
	return v, err
}

// Store reads and writes one settings file.
type Store struct {
	path string
	log  zerolog.Logger

	mu   sync.Mutex
	v    *viper.Viper
	last Values
}

// Open prepares a store for path. Nothing is read until Load.
func Open(path string) *Store {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("json")
	d := Defaults()
	v.SetDefault(keyTemperature, d.Temperature)
	v.SetDefault(keyDimLevel, d.DimLevel)
	v.SetDefault(keyInterval, d.BreakIntervalMinutes)
	return &Store{
		path: path,
		v:    v,
		log:  log.With().Str("component", "settings").Str("path", path).Logger(),
	}
}

// Path returns the settings file location.
func (s *Store) Path() string { return s.path }

// Load reads the file. A missing or unreadable file yields defaults. An
// invalid interval is replaced by the default and reported as
// *reminder.RangeError alongside the usable values.
func (s *Store) Load() (Values, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	raw, _ := s.readLocked()
	vals, err := Normalize(raw)
	s.last = vals
	s.log.Info().
		Float64("temperature", vals.Temperature).
		Float64("dim", vals.DimLevel).
		Int("interval", vals.BreakIntervalMinutes).
		Msg("loaded")
	return vals, err
}

// readLocked returns the clamped file contents and reports false when the
// file could not be read or parsed.
func (s *Store) readLocked() (Values, bool) {
	ok := true
	if err := s.v.ReadInConfig(); err != nil {
		ok = false
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) || errors.Is(err, fs.ErrNotExist) {
			s.log.Info().Msg("no settings file, using defaults")
		} else {
			s.log.Warn().Err(err).Msg("parse error, using defaults")
		}
	}
	var vals Values
	if err := s.v.Unmarshal(&vals); err != nil {
		s.log.Warn().Err(err).Msg("decode error, using defaults")
		return Defaults(), false
	}
	return Clamp(vals), ok
}

// Save writes vals atomically (temp file + rename).
func (s *Store) Save(vals Values) error {
	vals = Clamp(vals)
	if err := Validate(vals); err != nil {
		return fmt.Errorf("save settings: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.v.Set(keyTemperature, vals.Temperature)
	s.v.Set(keyDimLevel, vals.DimLevel)
	s.v.Set(keyInterval, vals.BreakIntervalMinutes)

	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("create settings dir: %w", err)
	}
	// The extension tells viper which encoder to use.
	tmp := strings.TrimSuffix(s.path, filepath.Ext(s.path)) + ".tmp.json"
	if err := s.v.WriteConfigAs(tmp); err != nil {
		return fmt.Errorf("write settings: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("rename settings: %w", err)
	}
	s.last = vals
	s.log.Debug().Msg("saved")
	return nil
}

// Watch calls fn with freshly clamped values whenever the file changes on
// disk to something other than what was last loaded or saved. The interval
// is passed through unchecked so the receiver can reject it. It returns once
// the watch is set up and stops when ctx is done.
//
// viper.WatchConfig can't be stopped and re-reads the file without the
// store lock, so the watch is set up here.
func (s *Store) Watch(ctx context.Context, fn func(Values)) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("settings watcher: %w", err)
	}
	// Watch the directory: Save replaces the file, which drops a file watch.
	dir := filepath.Dir(s.path)
	if err := w.Add(dir); err != nil {
		w.Close()
		return fmt.Errorf("watch %s: %w", dir, err)
	}

	go func() {
		defer w.Close()
		for {
			select {
			case <-ctx.Done():
				return
			case ev, ok := <-w.Events:
				if !ok {
					return
				}
				if filepath.Clean(ev.Name) != filepath.Clean(s.path) || !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) {
					continue
				}
				if vals, changed := s.reload(); changed {
					s.log.Info().Msg("settings file changed")
					fn(vals)
				}
			case err, ok := <-w.Errors:
				if !ok {
					return
				}
				s.log.Warn().Err(err).Msg("watch error")
			}
		}
	}()
	return nil
}

func (s *Store) reload() (Values, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	vals, ok := s.readLocked()
	// Editors truncate before writing; a half-written file is skipped.
	if !ok || vals == s.last {
		return vals, false
	}
	s.last = vals
	return vals, true
}
