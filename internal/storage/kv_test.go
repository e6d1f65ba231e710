package storage

import "testing"

func setupKV(t *testing.T) *KV {
	t.Helper()
	db, err := Open(":memory:")
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return NewKV(db)
}

func TestKVSetGet(t *testing.T) {
	kv := setupKV(t)

	if err := kv.Set("k", "v1"); err != nil {
		t.Fatalf("set: %v", err)
	}
	got, ok, err := kv.Get("k")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if !ok || got != "v1" {
		t.Errorf("get = %q, %v; want v1, true", got, ok)
	}

	// Upsert replaces.
	if err := kv.Set("k", "v2"); err != nil {
		t.Fatalf("set again: %v", err)
	}
	got, _, _ = kv.Get("k")
	if got != "v2" {
		t.Errorf("get after upsert = %q, want v2", got)
	}
}

func TestKVGetAbsent(t *testing.T) {
	kv := setupKV(t)

	_, ok, err := kv.Get("missing")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if ok {
		t.Error("absent key reported present")
	}
}

func TestKVDelete(t *testing.T) {
	kv := setupKV(t)

	if err := kv.Set("k", "v"); err != nil {
		t.Fatalf("set: %v", err)
	}
	if err := kv.Delete("k"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, ok, _ := kv.Get("k"); ok {
		t.Error("deleted key still present")
	}
	if err := kv.Delete("k"); err != nil {
		t.Errorf("delete absent: %v", err)
	}
}
