package featureflag

import (
	"context"
	"encoding/json"
	"time"

	"github.com/sethvargo/go-retry"
)

// RemoteSource reads the flag table from the hosted backend.
type RemoteSource interface {
	FetchFlags(ctx context.Context) (map[string]bool, error)
}

// FetchOutcome names the branch a FetchRemote call took. Exposing the
// outcome lets callers observe that a fallback occurred instead of
// having the distinction erased.
type FetchOutcome string

const (
	OutcomeCacheHit     FetchOutcome = "cache_hit"
	OutcomeNoConnection FetchOutcome = "no_connection"
	OutcomeFetched      FetchOutcome = "fetch_success"
	OutcomeCacheLoad    FetchOutcome = "cache_load"
	OutcomeFailed       FetchOutcome = "fetch_failure"
)

// FetchRemote refreshes flags from the backend. It never returns an
// error: every failure path falls back to the best available local set
// and is reported through the outcome code.
func (s *Service) FetchRemote(ctx context.Context) FetchOutcome {
	s.mu.Lock()
	s.hydrateLocked()

	if !s.lastFetch.IsZero() && s.now().Sub(s.lastFetch) < remoteCacheWindow {
		s.mu.Unlock()
		s.logger.Debug("remote flags fresh", "code", OutcomeCacheHit)
		return OutcomeCacheHit
	}
	s.mu.Unlock()

	if s.remote == nil || (s.online != nil && !s.online()) {
		s.logger.Info("skipping remote flag fetch", "code", OutcomeNoConnection)
		return OutcomeNoConnection
	}

	fetched, err := s.fetchWithRetry(ctx)
	if err != nil {
		s.logger.Warn("remote flag fetch failed", "code", OutcomeFailed, "error", err)
		return s.loadRemoteCache()
	}

	s.mu.Lock()
	s.flags = Defaults()
	s.overlayLocked(fetched)
	s.lastFetch = s.now()
	snapshot := remoteCache{Flags: fetched, FetchedAt: s.lastFetch}
	s.mu.Unlock()

	if data, err := json.Marshal(snapshot); err == nil {
		if err := s.kv.Set(remoteCacheKey, string(data)); err != nil {
			s.logger.Warn("persist remote flag cache", "code", "cache_write_failure", "error", err)
		}
	}

	s.logger.Info("remote flags fetched", "code", OutcomeFetched)
	return OutcomeFetched
}

// fetchWithRetry performs up to three attempts with exponential backoff
// starting at one second.
func (s *Service) fetchWithRetry(ctx context.Context) (map[string]bool, error) {
	var fetched map[string]bool
	backoff := retry.WithMaxRetries(fetchRetries, retry.NewExponential(s.backoff))
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		flags, err := s.remote.FetchFlags(ctx)
		if err != nil {
			return retry.RetryableError(err)
		}
		fetched = flags
		return nil
	})
	if err != nil {
		return nil, err
	}
	return fetched, nil
}

// loadRemoteCache applies the last persisted remote snapshot, if any,
// after a failed fetch. The in-memory set is left alone when the cache
// record is missing or unreadable.
func (s *Service) loadRemoteCache() FetchOutcome {
	raw, ok, err := s.kv.Get(remoteCacheKey)
	if err != nil || !ok {
		s.logger.Warn("remote flag cache unavailable", "code", "cache_load_failure", "error", err)
		return OutcomeFailed
	}

	var cached remoteCache
	if err := json.Unmarshal([]byte(raw), &cached); err != nil {
		s.logger.Warn("decode remote flag cache", "code", "cache_load_failure", "error", err)
		return OutcomeFailed
	}

	s.mu.Lock()
	s.flags = Defaults()
	s.overlayLocked(cached.Flags)
	s.mu.Unlock()

	s.logger.Info("using cached remote flags", "code", OutcomeCacheLoad, "fetched_at", cached.FetchedAt.Format(time.RFC3339))
	return OutcomeCacheLoad
}

// InitializeWithRemote hydrates local flags and then attempts a remote
// refresh. The remote step never fails the overall call.
func (s *Service) InitializeWithRemote(ctx context.Context) FetchOutcome {
	s.mu.Lock()
	s.hydrateLocked()
	s.mu.Unlock()
	return s.FetchRemote(ctx)
}
