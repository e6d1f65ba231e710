package keychain

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func setupFileStore(t *testing.T) (*FileStore, string) {
	t.Helper()
	dir := t.TempDir()
	s, err := NewFileStore(dir, "correct horse battery staple")
	if err != nil {
		t.Fatalf("new file store: %v", err)
	}
	return s, dir
}

func TestFileStoreRoundTrip(t *testing.T) {
	s, _ := setupFileStore(t)

	if err := s.SetItem("token", "abc123"); err != nil {
		t.Fatalf("set: %v", err)
	}

	got, ok, err := s.GetItem("token")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if !ok {
		t.Fatal("expected item to be present")
	}
	if got != "abc123" {
		t.Errorf("got %q, want %q", got, "abc123")
	}
}

func TestFileStoreAbsentKey(t *testing.T) {
	s, _ := setupFileStore(t)

	_, ok, err := s.GetItem("never_set")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if ok {
		t.Error("absent key reported as present")
	}
}

func TestFileStoreDelete(t *testing.T) {
	s, _ := setupFileStore(t)

	if err := s.SetItem("k", "v"); err != nil {
		t.Fatalf("set: %v", err)
	}
	if err := s.DeleteItem("k"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, ok, _ := s.GetItem("k"); ok {
		t.Error("deleted key still present")
	}

	// Deleting again is not an error.
	if err := s.DeleteItem("k"); err != nil {
		t.Errorf("delete absent: %v", err)
	}
}

func TestFileStoreCiphertextOnDisk(t *testing.T) {
	s, dir := setupFileStore(t)

	if err := s.SetItem("secret", "plaintext-marker"); err != nil {
		t.Fatalf("set: %v", err)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("read dir: %v", err)
	}
	for _, e := range entries {
		if e.Name() == "salt" {
			continue
		}
		// Filenames must not leak the logical key.
		if strings.Contains(e.Name(), "secret") {
			t.Errorf("filename leaks key: %s", e.Name())
		}
		data, err := os.ReadFile(filepath.Join(dir, e.Name()))
		if err != nil {
			t.Fatalf("read item file: %v", err)
		}
		if strings.Contains(string(data), "plaintext-marker") {
			t.Error("value stored in plaintext")
		}
	}
}

func TestFileStoreWrongPassphrase(t *testing.T) {
	s, dir := setupFileStore(t)

	if err := s.SetItem("k", "v"); err != nil {
		t.Fatalf("set: %v", err)
	}

	other, err := NewFileStore(dir, "wrong passphrase")
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	if _, _, err := other.GetItem("k"); err == nil {
		t.Error("expected decrypt failure with wrong passphrase")
	}
}

func TestFileStoreReopenSameKey(t *testing.T) {
	s, dir := setupFileStore(t)

	if err := s.SetItem("k", "v"); err != nil {
		t.Fatalf("set: %v", err)
	}

	again, err := NewFileStore(dir, "correct horse battery staple")
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	got, ok, err := again.GetItem("k")
	if err != nil || !ok || got != "v" {
		t.Fatalf("reopen get = %q, %v, %v; want v, true, nil", got, ok, err)
	}
}
