// Package securestore adapts the raw keychain into a JSON-aware key-value
// API with a per-item size ceiling and best-effort batch helpers.
package securestore

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"github.com/dukerupert/focusloop/internal/keychain"
)

// MaxValueBytes is the encoded-size ceiling the underlying secure store
// enforces per item.
const MaxValueBytes = 2048

var (
	// ErrEmptyKey is returned when a caller passes an empty key.
	ErrEmptyKey = errors.New("securestore: key must be a non-empty string")
	// ErrValueTooLarge is returned when the encoded value exceeds MaxValueBytes.
	ErrValueTooLarge = fmt.Errorf("securestore: encoded value exceeds %d bytes", MaxValueBytes)
	// ErrUnsupported is returned for operations the secure store cannot do.
	ErrUnsupported = errors.New("securestore: operation not supported by secure store")
)

// Item is one key/value pair for MultiSet.
type Item struct {
	Key   string
	Value any
}

// GetResult is one element of a MultiGet result. Value is nil when the key
// was absent or the read failed; Err carries the failure if there was one.
type GetResult struct {
	Key   string
	Value any
	Err   error
}

// OpResult is one element of a MultiSet/MultiRemove result.
type OpResult struct {
	Key string
	Err error
}

// Adapter wraps a keychain.Store with serialization and validation.
type Adapter struct {
	store  keychain.Store
	logger *slog.Logger
}

// New creates an Adapter over the given secure store.
func New(store keychain.Store, logger *slog.Logger) *Adapter {
	return &Adapter{store: store, logger: logger}
}

// Set serializes value and stores it under key. Strings pass through
// unencoded; everything else is JSON-encoded. Nothing is persisted when
// the encoded size exceeds the ceiling.
func (a *Adapter) Set(key string, value any) error {
	if key == "" {
		return ErrEmptyKey
	}

	encoded, err := encode(value)
	if err != nil {
		return fmt.Errorf("encode value for %q: %w", key, err)
	}
	if len(encoded) > MaxValueBytes {
		return ErrValueTooLarge
	}

	if err := a.store.SetItem(key, encoded); err != nil {
		return fmt.Errorf("set %q: %w", key, err)
	}
	return nil
}

// Get returns the value stored under key, JSON-decoded when possible,
// otherwise as the raw string. An absent key yields (nil, nil).
func (a *Adapter) Get(key string) (any, error) {
	if key == "" {
		return nil, ErrEmptyKey
	}

	raw, ok, err := a.store.GetItem(key)
	if err != nil {
		return nil, fmt.Errorf("get %q: %w", key, err)
	}
	if !ok {
		return nil, nil
	}
	return decode(raw), nil
}

// Remove deletes the value stored under key.
func (a *Adapter) Remove(key string) error {
	if key == "" {
		return ErrEmptyKey
	}
	if err := a.store.DeleteItem(key); err != nil {
		return fmt.Errorf("remove %q: %w", key, err)
	}
	return nil
}

// Merge shallow-overlays partial onto the object stored under key and
// writes the result. When nothing is stored, or the stored value is not
// an object, Merge behaves as Set. Last writer wins per field.
func (a *Adapter) Merge(key string, partial map[string]any) error {
	if key == "" {
		return ErrEmptyKey
	}

	existing, err := a.Get(key)
	if err != nil {
		return err
	}

	merged := partial
	if base, ok := existing.(map[string]any); ok {
		for k, v := range partial {
			base[k] = v
		}
		merged = base
	}
	return a.Set(key, merged)
}

// MultiGet reads each key concurrently. Individual failures are logged and
// surface as nil values in the result, never as a batch-level error.
func (a *Adapter) MultiGet(keys []string) []GetResult {
	results := make([]GetResult, len(keys))
	var g errgroup.Group
	for i, key := range keys {
		i, key := i, key
		g.Go(func() error {
			value, err := a.Get(key)
			if err != nil {
				a.logger.Warn("multiGet element failed", "key", key, "error", err)
			}
			results[i] = GetResult{Key: key, Value: value, Err: err}
			return nil
		})
	}
	g.Wait()
	return results
}

// MultiSet writes each item concurrently, tolerating individual failures.
func (a *Adapter) MultiSet(items []Item) []OpResult {
	results := make([]OpResult, len(items))
	var g errgroup.Group
	for i, item := range items {
		i, item := i, item
		g.Go(func() error {
			err := a.Set(item.Key, item.Value)
			if err != nil {
				a.logger.Warn("multiSet element failed", "key", item.Key, "error", err)
			}
			results[i] = OpResult{Key: item.Key, Err: err}
			return nil
		})
	}
	g.Wait()
	return results
}

// MultiRemove deletes each key concurrently, tolerating individual failures.
func (a *Adapter) MultiRemove(keys []string) []OpResult {
	results := make([]OpResult, len(keys))
	var g errgroup.Group
	for i, key := range keys {
		i, key := i, key
		g.Go(func() error {
			err := a.Remove(key)
			if err != nil {
				a.logger.Warn("multiRemove element failed", "key", key, "error", err)
			}
			results[i] = OpResult{Key: key, Err: err}
			return nil
		})
	}
	g.Wait()
	return results
}

// AllKeys returns an empty slice: the secure store cannot enumerate keys.
func (a *Adapter) AllKeys() []string {
	return []string{}
}

// Clear fails with ErrUnsupported: the secure store has no bulk delete,
// and silently doing nothing would mislead callers.
func (a *Adapter) Clear() error {
	return ErrUnsupported
}

func encode(value any) (string, error) {
	if s, ok := value.(string); ok {
		return s, nil
	}
	data, err := json.Marshal(value)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

func decode(raw string) any {
	var v any
	if err := json.Unmarshal([]byte(raw), &v); err == nil {
		return v
	}
	return raw
}
