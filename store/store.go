// Package store implements the server's on-disk profile persistence
// (spec.md §4.5, §6): one JSON file per enrolled client, written
// atomically so a crash mid-write can never leave a torn profile behind.
package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
)

// ErrClientExists is returned by Save when a profile already exists for
// the given client id (spec.md §4.5, §7).
var ErrClientExists = errors.New("store: client already enrolled")

// ErrClientMissing is returned by Load/VaultRequest/Delete when no profile
// exists for the given client id (spec.md §4.5, §7).
var ErrClientMissing = errors.New("store: client not enrolled")

// Profile is the on-disk record described in spec.md §6. Field order is
// irrelevant; the struct tags pin the exact key names the wire format
// requires.
type Profile struct {
	ClientID           int64   `json:"client_id"`
	VaultCoefs         []int64 `json:"vault_coefs"`
	ClientPublicKeyPEM string  `json:"client_public_key_PEM,omitempty"`
	GroupOrder         int64   `json:"group_order"`
	VerifyThreshold    int     `json:"verify_threshold"`
}

// FileStore implements a per-client JSON profile directory:
// <dir>/<id>.json, matching spec.md §6's server file layout.
type FileStore struct {
	dir string
}

// NewFileStore creates (if necessary) and returns a FileStore rooted at
// dir.
func NewFileStore(dir string) (*FileStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("store: NewFileStore: %w", err)
	}
	return &FileStore{dir: dir}, nil
}

func (s *FileStore) path(clientID int64) string {
	return filepath.Join(s.dir, strconv.FormatInt(clientID, 10)+".json")
}

// Exists reports whether a profile is already on disk for clientID.
func (s *FileStore) Exists(clientID int64) bool {
	_, err := os.Stat(s.path(clientID))
	return err == nil
}

// Save persists p atomically (write-temp + rename, spec.md §5) and fails
// with ErrClientExists on a duplicate id (spec.md §4.5.3 profile
// lifecycle).
func (s *FileStore) Save(p Profile) error {
	if s.Exists(p.ClientID) {
		return fmt.Errorf("store: Save(%d): %w", p.ClientID, ErrClientExists)
	}
	data, err := json.MarshalIndent(p, "", "  ")
	if err != nil {
		return fmt.Errorf("store: Save(%d): marshal profile: %w", p.ClientID, err)
	}
	return s.writeAtomic(s.path(p.ClientID), data)
}

// writeAtomic writes data to a temp file in the same directory as path
// and renames it into place, so a concurrent reader never observes a
// partially-written file (spec.md §5 "writes must be atomic").
func (s *FileStore) writeAtomic(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), ".tmp-*")
	if err != nil {
		return fmt.Errorf("store: writeAtomic(%s): %w", path, err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("store: writeAtomic(%s): %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("store: writeAtomic(%s): %w", path, err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("store: writeAtomic(%s): %w", path, err)
	}
	return nil
}

// Load reads the full profile (including the PEM) for clientID. Reads
// tolerate ENOENT by raising ErrClientMissing (spec.md §5).
func (s *FileStore) Load(clientID int64) (Profile, error) {
	data, err := os.ReadFile(s.path(clientID))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return Profile{}, fmt.Errorf("store: Load(%d): %w", clientID, ErrClientMissing)
		}
		return Profile{}, fmt.Errorf("store: Load(%d): %s: %w", clientID, s.path(clientID), err)
	}
	var p Profile
	if err := json.Unmarshal(data, &p); err != nil {
		return Profile{}, fmt.Errorf("store: Load(%d): unmarshal profile: %w", clientID, err)
	}
	return p, nil
}

// VaultRequest returns the public verification record for clientID with
// client_public_key_PEM omitted, per spec.md §6.
func (s *FileStore) VaultRequest(clientID int64) (Profile, error) {
	p, err := s.Load(clientID)
	if err != nil {
		return Profile{}, err
	}
	p.ClientPublicKeyPEM = ""
	return p, nil
}

// Delete removes clientID's profile, honouring the "delete by id
// post-exchange if requested" lifecycle (spec.md §4.5.3).
func (s *FileStore) Delete(clientID int64) error {
	err := os.Remove(s.path(clientID))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("store: Delete(%d): %w", clientID, ErrClientMissing)
		}
		return fmt.Errorf("store: Delete(%d): %w", clientID, err)
	}
	return nil
}
