// Package keychain provides the secure string store the app-lock and
// encrypted-storage layers sit on. On device this is backed by the OS
// keychain; here the FileStore implementation encrypts each item at rest
// with AES-256-GCM under a key derived from a passphrase.
package keychain

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"golang.org/x/crypto/argon2"
)

const (
	saltSize  = 16
	nonceSize = 12
	keySize   = 32
	argonTime = 3
	argonMem  = 64 * 1024
	argonPar  = 4
)

// Store is keyed string persistence with no enumeration and no bulk clear.
type Store interface {
	// GetItem returns the stored value and whether the key was present.
	GetItem(key string) (string, bool, error)
	// SetItem stores value under key, replacing any prior value.
	SetItem(key, value string) error
	// DeleteItem removes key. Deleting an absent key is not an error.
	DeleteItem(key string) error
}

// FileStore keeps one encrypted file per item under dir. Filenames are
// SHA-256 hashes of the logical key, so the set of stored keys cannot be
// recovered by listing the directory.
type FileStore struct {
	dir  string
	salt []byte
	key  []byte
}

// NewFileStore opens (or initializes) an encrypted store rooted at dir.
// The salt lives alongside the items; the derived key never touches disk.
func NewFileStore(dir, passphrase string) (*FileStore, error) {
	if err := os.MkdirAll(dir, 0700); err != nil {
		return nil, fmt.Errorf("create keychain dir: %w", err)
	}

	saltPath := filepath.Join(dir, "salt")
	salt, err := os.ReadFile(saltPath)
	if errors.Is(err, os.ErrNotExist) {
		salt = make([]byte, saltSize)
		if _, err := io.ReadFull(rand.Reader, salt); err != nil {
			return nil, fmt.Errorf("generate salt: %w", err)
		}
		if err := os.WriteFile(saltPath, salt, 0600); err != nil {
			return nil, fmt.Errorf("write salt: %w", err)
		}
	} else if err != nil {
		return nil, fmt.Errorf("read salt: %w", err)
	}
	if len(salt) != saltSize {
		return nil, fmt.Errorf("keychain salt corrupt: %d bytes", len(salt))
	}

	key := argon2.IDKey([]byte(passphrase), salt, argonTime, argonMem, argonPar, keySize)
	return &FileStore{dir: dir, salt: salt, key: key}, nil
}

func (s *FileStore) itemPath(key string) string {
	sum := sha256.Sum256([]byte(key))
	return filepath.Join(s.dir, hex.EncodeToString(sum[:]))
}

// SetItem encrypts value and writes it as [12-byte nonce][GCM ciphertext].
func (s *FileStore) SetItem(key, value string) error {
	gcm, err := s.gcm()
	if err != nil {
		return err
	}

	nonce := make([]byte, nonceSize)
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return fmt.Errorf("generate nonce: %w", err)
	}

	ciphertext := gcm.Seal(nil, nonce, []byte(value), nil)

	out := make([]byte, 0, nonceSize+len(ciphertext))
	out = append(out, nonce...)
	out = append(out, ciphertext...)

	if err := os.WriteFile(s.itemPath(key), out, 0600); err != nil {
		return fmt.Errorf("write item: %w", err)
	}
	return nil
}

// GetItem decrypts and returns the value for key. Absence is not an error.
func (s *FileStore) GetItem(key string) (string, bool, error) {
	data, err := os.ReadFile(s.itemPath(key))
	if errors.Is(err, os.ErrNotExist) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("read item: %w", err)
	}
	if len(data) < nonceSize {
		return "", false, fmt.Errorf("item too small")
	}

	gcm, err := s.gcm()
	if err != nil {
		return "", false, err
	}

	plaintext, err := gcm.Open(nil, data[:nonceSize], data[nonceSize:], nil)
	if err != nil {
		return "", false, fmt.Errorf("decrypt item: %w", err)
	}
	return string(plaintext), true, nil
}

// DeleteItem removes the item for key if it exists.
func (s *FileStore) DeleteItem(key string) error {
	err := os.Remove(s.itemPath(key))
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("delete item: %w", err)
	}
	return nil
}

func (s *FileStore) gcm() (cipher.AEAD, error) {
	block, err := aes.NewCipher(s.key)
	if err != nil {
		return nil, fmt.Errorf("create cipher: %w", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("create gcm: %w", err)
	}
	return gcm, nil
}
