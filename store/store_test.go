package store

import (
	"errors"
	"testing"
)

func newTestStore(t *testing.T) *FileStore {
	t.Helper()
	s, err := NewFileStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewFileStore: %v", err)
	}
	return s
}

func TestSaveLoadRoundTrip(t *testing.T) {
	s := newTestStore(t)
	p := Profile{
		ClientID:           1,
		VaultCoefs:         []int64{1, 2, 3},
		ClientPublicKeyPEM: "-----BEGIN PUBLIC KEY-----\n...\n-----END PUBLIC KEY-----\n",
		GroupOrder:         2147483647,
		VerifyThreshold:    8,
	}
	if err := s.Save(p); err != nil {
		t.Fatalf("Save: %v", err)
	}
	got, err := s.Load(1)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got.ClientID != p.ClientID || got.GroupOrder != p.GroupOrder || got.VerifyThreshold != p.VerifyThreshold {
		t.Fatalf("round-tripped profile mismatch: %+v vs %+v", got, p)
	}
}

// TestDuplicateEnrolRejected is spec.md §8 scenario 4.
func TestDuplicateEnrolRejected(t *testing.T) {
	s := newTestStore(t)
	p := Profile{ClientID: 1, VaultCoefs: []int64{1}, GroupOrder: 101, VerifyThreshold: 2}
	if err := s.Save(p); err != nil {
		t.Fatalf("Save: %v", err)
	}
	err := s.Save(p)
	if !errors.Is(err, ErrClientExists) {
		t.Fatalf("expected ErrClientExists, got %v", err)
	}
}

// TestMissingClientRejected is spec.md §8 scenario 5.
func TestMissingClientRejected(t *testing.T) {
	s := newTestStore(t)
	if _, err := s.Load(2); !errors.Is(err, ErrClientMissing) {
		t.Fatalf("expected ErrClientMissing, got %v", err)
	}
}

func TestVaultRequestOmitsPEM(t *testing.T) {
	s := newTestStore(t)
	p := Profile{
		ClientID:           1,
		VaultCoefs:         []int64{1, 2},
		ClientPublicKeyPEM: "secret-pem",
		GroupOrder:         101,
		VerifyThreshold:    2,
	}
	if err := s.Save(p); err != nil {
		t.Fatalf("Save: %v", err)
	}
	got, err := s.VaultRequest(1)
	if err != nil {
		t.Fatalf("VaultRequest: %v", err)
	}
	if got.ClientPublicKeyPEM != "" {
		t.Fatalf("expected PEM to be omitted, got %q", got.ClientPublicKeyPEM)
	}
}

func TestDeleteThenMissing(t *testing.T) {
	s := newTestStore(t)
	p := Profile{ClientID: 9, VaultCoefs: []int64{1}, GroupOrder: 101, VerifyThreshold: 1}
	if err := s.Save(p); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if err := s.Delete(9); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := s.Load(9); !errors.Is(err, ErrClientMissing) {
		t.Fatalf("expected ErrClientMissing after delete, got %v", err)
	}
}
