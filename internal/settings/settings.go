// Package settings persists the user-settings document. The whole
// document is rewritten on every update; there is no partial-field
// persistence.
package settings

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"

	"github.com/dukerupert/focusloop/internal/model"
	"github.com/dukerupert/focusloop/internal/storage"
)

const settingsKey = "app_settings"

// Store holds the current AppSettings in memory, backed by general
// persistent storage.
type Store struct {
	kv     *storage.KV
	logger *slog.Logger

	mu      sync.RWMutex
	current model.AppSettings
	loaded  bool
}

// NewStore creates a settings store. Call Load before reading.
func NewStore(kv *storage.KV, logger *slog.Logger) *Store {
	return &Store{kv: kv, logger: logger, current: model.DefaultAppSettings()}
}

// Load hydrates the in-memory settings from storage, merging the stored
// document over defaults. Fields absent from the stored document keep
// their default values.
func (s *Store) Load() (model.AppSettings, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	settings := model.DefaultAppSettings()

	raw, ok, err := s.kv.Get(settingsKey)
	if err != nil {
		return settings, fmt.Errorf("load settings: %w", err)
	}
	if ok {
		if err := json.Unmarshal([]byte(raw), &settings); err != nil {
			return model.DefaultAppSettings(), fmt.Errorf("decode settings: %w", err)
		}
	}

	s.current = settings
	s.loaded = true
	return settings, nil
}

// Current returns the in-memory settings, lazily loading on first use.
func (s *Store) Current() model.AppSettings {
	s.mu.RLock()
	loaded := s.loaded
	current := s.current
	s.mu.RUnlock()
	if loaded {
		return current
	}

	settings, err := s.Load()
	if err != nil {
		s.logger.Warn("lazy settings load failed", "error", err)
	}
	return settings
}

// Save persists the given settings in full and makes them current.
func (s *Store) Save(settings model.AppSettings) error {
	data, err := json.Marshal(settings)
	if err != nil {
		return fmt.Errorf("encode settings: %w", err)
	}
	if err := s.kv.Set(settingsKey, string(data)); err != nil {
		return fmt.Errorf("save settings: %w", err)
	}

	s.mu.Lock()
	s.current = settings
	s.loaded = true
	s.mu.Unlock()
	return nil
}

// UpdatePomodoro replaces the Pomodoro block and rewrites the document.
func (s *Store) UpdatePomodoro(p model.PomodoroSettings) error {
	settings := s.Current()
	settings.Pomodoro = p
	return s.Save(settings)
}

// Update applies a mutation to a copy of the current settings and
// rewrites the document.
func (s *Store) Update(mutate func(*model.AppSettings)) error {
	settings := s.Current()
	mutate(&settings)
	return s.Save(settings)
}
