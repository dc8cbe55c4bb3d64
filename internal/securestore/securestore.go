// Package securestore mirrors the remote stats row into the system keyring
// for offline-first reads. Stats are the only state kept here; everything
// else lives in the plain cache store.
package securestore

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/99designs/keyring"

	"github.com/tvu/habitflow/internal/model"
)

const serviceName = "habitflow"

// Store wraps a keyring backend.
type Store struct {
	ring keyring.Keyring
}

// Open returns a Store backed by the system keyring.
func Open() (*Store, error) {
	ring, err := keyring.Open(keyring.Config{
		ServiceName: serviceName,
		AllowedBackends: []keyring.BackendType{
			keyring.KeychainBackend,
			keyring.SecretServiceBackend,
			keyring.WinCredBackend,
			keyring.PassBackend,
			keyring.FileBackend,
		},
		FileDir:                  "~/.config/habitflow/secure",
		FilePasswordFunc:         keyring.FixedStringPrompt("habitflow-file-key"),
		KeychainTrustApplication: true,
	})
	if err != nil {
		return nil, fmt.Errorf("opening keyring: %w", err)
	}
	return &Store{ring: ring}, nil
}

// NewWithKeyring wraps an existing keyring; tests pass an ArrayKeyring.
func NewWithKeyring(ring keyring.Keyring) *Store {
	return &Store{ring: ring}
}

func statsKey(uid string) string {
	return uid + "-stats"
}

// GetStats reads the mirrored stats for uid. The boolean reports whether a
// mirror exists.
func (s *Store) GetStats(uid string) (model.Stats, bool, error) {
	item, err := s.ring.Get(statsKey(uid))
	if errors.Is(err, keyring.ErrKeyNotFound) {
		return model.Stats{}, false, nil
	}
	if err != nil {
		return model.Stats{}, false, fmt.Errorf("reading stats mirror for %s: %w", uid, err)
	}

	var stats model.Stats
	if err := json.Unmarshal(item.Data, &stats); err != nil {
		// Treat a corrupt mirror the same as an absent one.
		return model.Stats{}, false, nil
	}
	return stats, true, nil
}

// SetStats writes the mirrored stats for uid.
func (s *Store) SetStats(uid string, stats model.Stats) error {
	data, err := json.Marshal(stats)
	if err != nil {
		return fmt.Errorf("marshaling stats mirror for %s: %w", uid, err)
	}

	err = s.ring.Set(keyring.Item{
		Key:  statsKey(uid),
		Data: data,
	})
	if err != nil {
		return fmt.Errorf("writing stats mirror for %s: %w", uid, err)
	}
	return nil
}

// DeleteStats removes the mirror for uid.
func (s *Store) DeleteStats(uid string) error {
	err := s.ring.Remove(statsKey(uid))
	if err != nil && !errors.Is(err, keyring.ErrKeyNotFound) {
		return fmt.Errorf("deleting stats mirror for %s: %w", uid, err)
	}
	return nil
}
