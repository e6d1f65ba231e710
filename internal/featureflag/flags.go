// Package featureflag gates the cloud-backend rollout. Flags live in
// memory over defaults, persist to general storage, and can be overlaid
// by a remote fetch with a one-hour cache window.
package featureflag

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/dukerupert/focusloop/internal/storage"
)

// Declared flag names. Keys outside this set are not representable.
const (
	UseSupabaseAuth          = "use_supabase_auth"
	UseSupabaseTaskStorage   = "use_supabase_task_storage"
	UseSupabaseNotifications = "use_supabase_notifications"
	EnableRealtimeSync       = "enable_realtime_sync"
)

const (
	localKey       = "feature_flags"
	remoteCacheKey = "feature_flags_remote_cache"

	remoteCacheWindow = time.Hour
	fetchRetries      = 2 // retries after the first attempt, 3 attempts total
	fetchBackoffBase  = time.Second
)

// Defaults returns the compiled-in flag values. The cloud backend is off
// until rollout flips these remotely.
func Defaults() map[string]bool {
	return map[string]bool{
		UseSupabaseAuth:          false,
		UseSupabaseTaskStorage:   false,
		UseSupabaseNotifications: false,
		EnableRealtimeSync:       false,
	}
}

// remoteCache is the persisted record of the last successful remote fetch.
type remoteCache struct {
	Flags     map[string]bool `json:"flags"`
	FetchedAt time.Time       `json:"fetched_at"`
}

// Service holds the in-memory flag set. Hydration from storage happens
// lazily on first use.
type Service struct {
	kv      *storage.KV
	remote  RemoteSource
	online  func() bool
	logger  *slog.Logger
	now     func() time.Time
	backoff time.Duration

	mu        sync.Mutex
	flags     map[string]bool
	hydrated  bool
	lastFetch time.Time
}

// New creates a flag service. remote may be nil when no backend is
// configured; online may be nil to assume connectivity.
func New(kv *storage.KV, remote RemoteSource, online func() bool, logger *slog.Logger) *Service {
	return &Service{
		kv:      kv,
		remote:  remote,
		online:  online,
		logger:  logger,
		now:     time.Now,
		backoff: fetchBackoffBase,
		flags:   Defaults(),
	}
}

// SetFlag updates a declared flag and persists the full set.
func (s *Service) SetFlag(name string, value bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.hydrateLocked()

	if _, ok := s.flags[name]; !ok {
		return fmt.Errorf("unknown feature flag %q", name)
	}
	s.flags[name] = value
	return s.persistLocked()
}

// Flag returns the current value of a flag. Unknown names read as false.
func (s *Service) Flag(name string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.hydrateLocked()
	return s.flags[name]
}

// AllFlags returns a copy of the current flag set.
func (s *Service) AllFlags() map[string]bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.hydrateLocked()

	out := make(map[string]bool, len(s.flags))
	for k, v := range s.flags {
		out[k] = v
	}
	return out
}

// ResetToDefaults restores compiled-in defaults and deletes the persisted
// record.
func (s *Service) ResetToDefaults() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.flags = Defaults()
	s.hydrated = true
	if err := s.kv.Delete(localKey); err != nil {
		return fmt.Errorf("delete persisted flags: %w", err)
	}
	return nil
}

// hydrateLocked loads persisted flags over defaults, once. Unknown
// persisted keys are ignored; load failures keep the defaults.
func (s *Service) hydrateLocked() {
	if s.hydrated {
		return
	}
	s.hydrated = true

	raw, ok, err := s.kv.Get(localKey)
	if err != nil {
		s.logger.Warn("load persisted flags", "code", "local_load_failure", "error", err)
		return
	}
	if !ok {
		return
	}

	var stored map[string]bool
	if err := json.Unmarshal([]byte(raw), &stored); err != nil {
		s.logger.Warn("decode persisted flags", "code", "local_decode_failure", "error", err)
		return
	}
	s.overlayLocked(stored)
}

// overlayLocked copies known keys from src onto the current set.
func (s *Service) overlayLocked(src map[string]bool) {
	for k, v := range src {
		if _, ok := s.flags[k]; ok {
			s.flags[k] = v
		}
	}
}

func (s *Service) persistLocked() error {
	data, err := json.Marshal(s.flags)
	if err != nil {
		return fmt.Errorf("encode flags: %w", err)
	}
	if err := s.kv.Set(localKey, string(data)); err != nil {
		return fmt.Errorf("persist flags: %w", err)
	}
	return nil
}
