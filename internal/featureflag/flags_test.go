package featureflag

import (
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/dukerupert/focusloop/internal/storage"
)

type fakeRemote struct {
	flags map[string]bool
	err   error
	calls int
}

func (f *fakeRemote) FetchFlags(context.Context) (map[string]bool, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.flags, nil
}

func setupKV(t *testing.T) *storage.KV {
	t.Helper()
	db, err := storage.Open(":memory:")
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return storage.NewKV(db)
}

func TestSetFlagPersistsAcrossRestart(t *testing.T) {
	kv := setupKV(t)

	svc := New(kv, nil, nil, slog.Default())
	if err := svc.SetFlag(UseSupabaseAuth, true); err != nil {
		t.Fatalf("setFlag: %v", err)
	}
	if !svc.Flag(UseSupabaseAuth) {
		t.Fatal("flag not set in memory")
	}

	// Simulated restart: a fresh service re-hydrates from the same storage.
	restarted := New(kv, nil, nil, slog.Default())
	if !restarted.Flag(UseSupabaseAuth) {
		t.Error("flag lost across restart")
	}
	if restarted.Flag(UseSupabaseTaskStorage) {
		t.Error("untouched flag should keep its default")
	}
}

func TestSetFlagRejectsUnknownName(t *testing.T) {
	svc := New(setupKV(t), nil, nil, slog.Default())

	if err := svc.SetFlag("made_up_flag", true); err == nil {
		t.Error("expected error for undeclared flag")
	}
}

func TestUnknownPersistedKeysIgnored(t *testing.T) {
	kv := setupKV(t)
	if err := kv.Set(localKey, `{"use_supabase_auth":true,"stale_removed_flag":true}`); err != nil {
		t.Fatalf("seed: %v", err)
	}

	svc := New(kv, nil, nil, slog.Default())
	all := svc.AllFlags()
	if !all[UseSupabaseAuth] {
		t.Error("known key not loaded")
	}
	if _, ok := all["stale_removed_flag"]; ok {
		t.Error("unknown persisted key leaked into flag set")
	}
	if len(all) != len(Defaults()) {
		t.Errorf("flag set has %d entries, want %d", len(all), len(Defaults()))
	}
}

func TestResetToDefaults(t *testing.T) {
	kv := setupKV(t)
	svc := New(kv, nil, nil, slog.Default())

	if err := svc.SetFlag(EnableRealtimeSync, true); err != nil {
		t.Fatalf("setFlag: %v", err)
	}
	if err := svc.ResetToDefaults(); err != nil {
		t.Fatalf("reset: %v", err)
	}
	if svc.Flag(EnableRealtimeSync) {
		t.Error("flag survived reset")
	}
	if _, ok, _ := kv.Get(localKey); ok {
		t.Error("persisted record survived reset")
	}
}

func TestFetchRemoteOverlaysOntoDefaults(t *testing.T) {
	remote := &fakeRemote{flags: map[string]bool{
		UseSupabaseAuth: true,
		"unknown_flag":  true,
	}}
	svc := New(setupKV(t), remote, nil, slog.Default())

	if outcome := svc.FetchRemote(context.Background()); outcome != OutcomeFetched {
		t.Fatalf("outcome = %q, want %q", outcome, OutcomeFetched)
	}
	if !svc.Flag(UseSupabaseAuth) {
		t.Error("fetched flag not applied")
	}
	if _, ok := svc.AllFlags()["unknown_flag"]; ok {
		t.Error("unknown remote key applied")
	}
}

func TestFetchRemoteCacheWindow(t *testing.T) {
	remote := &fakeRemote{flags: map[string]bool{UseSupabaseAuth: true}}
	svc := New(setupKV(t), remote, nil, slog.Default())

	current := time.Date(2026, 2, 1, 9, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return current }

	if outcome := svc.FetchRemote(context.Background()); outcome != OutcomeFetched {
		t.Fatalf("first fetch: %q", outcome)
	}
	if outcome := svc.FetchRemote(context.Background()); outcome != OutcomeCacheHit {
		t.Fatalf("second fetch: %q, want cache hit", outcome)
	}
	if remote.calls != 1 {
		t.Errorf("remote calls = %d, want 1", remote.calls)
	}

	current = current.Add(remoteCacheWindow + time.Minute)
	if outcome := svc.FetchRemote(context.Background()); outcome != OutcomeFetched {
		t.Fatalf("fetch after window: %q", outcome)
	}
	if remote.calls != 2 {
		t.Errorf("remote calls = %d, want 2", remote.calls)
	}
}

func TestFetchRemoteNoConnection(t *testing.T) {
	remote := &fakeRemote{flags: map[string]bool{UseSupabaseAuth: true}}
	svc := New(setupKV(t), remote, func() bool { return false }, slog.Default())

	if outcome := svc.FetchRemote(context.Background()); outcome != OutcomeNoConnection {
		t.Fatalf("outcome = %q, want %q", outcome, OutcomeNoConnection)
	}
	if remote.calls != 0 {
		t.Errorf("remote called while offline")
	}
	if svc.Flag(UseSupabaseAuth) {
		t.Error("local set changed while offline")
	}
}

func TestFetchRemoteFailureFallsBackToCachedSnapshot(t *testing.T) {
	kv := setupKV(t)

	// First service fetches successfully and persists the snapshot.
	good := &fakeRemote{flags: map[string]bool{UseSupabaseTaskStorage: true}}
	first := New(kv, good, nil, slog.Default())
	if outcome := first.FetchRemote(context.Background()); outcome != OutcomeFetched {
		t.Fatalf("seed fetch: %q", outcome)
	}

	// Second service hits a dead backend but finds the snapshot.
	bad := &fakeRemote{err: errors.New("backend down")}
	second := New(kv, bad, nil, slog.Default())
	second.backoff = time.Millisecond
	if outcome := second.FetchRemote(context.Background()); outcome != OutcomeCacheLoad {
		t.Fatalf("outcome = %q, want %q", outcome, OutcomeCacheLoad)
	}
	if !second.Flag(UseSupabaseTaskStorage) {
		t.Error("cached snapshot not applied")
	}
	if bad.calls != 3 {
		t.Errorf("remote attempts = %d, want 3", bad.calls)
	}
}

func TestFetchRemoteTotalFailure(t *testing.T) {
	bad := &fakeRemote{err: errors.New("backend down")}
	svc := New(setupKV(t), bad, nil, slog.Default())
	svc.backoff = time.Millisecond

	if err := svc.SetFlag(UseSupabaseAuth, true); err != nil {
		t.Fatalf("setFlag: %v", err)
	}
	if outcome := svc.FetchRemote(context.Background()); outcome != OutcomeFailed {
		t.Fatalf("outcome = %q, want %q", outcome, OutcomeFailed)
	}
	// Whatever was already in memory is served unchanged.
	if !svc.Flag(UseSupabaseAuth) {
		t.Error("local set lost on total failure")
	}
}

func TestInitializeWithRemoteNeverFails(t *testing.T) {
	bad := &fakeRemote{err: errors.New("backend down")}
	svc := New(setupKV(t), bad, nil, slog.Default())
	svc.backoff = time.Millisecond

	outcome := svc.InitializeWithRemote(context.Background())
	if outcome != OutcomeFailed {
		t.Fatalf("outcome = %q, want %q", outcome, OutcomeFailed)
	}
	// The service stays usable on defaults.
	if svc.Flag(UseSupabaseAuth) {
		t.Error("default flag flipped")
	}
}
