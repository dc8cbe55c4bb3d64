package securestore

import (
	"testing"

	"github.com/99designs/keyring"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tvu/habitflow/internal/model"
)

func newStore() *Store {
	return NewWithKeyring(keyring.NewArrayKeyring(nil))
}

func TestSetGetStats(t *testing.T) {
	s := newStore()

	stats := model.DefaultStats("u1")
	stats.Gold = 120
	stats.Physical = 42.125
	require.NoError(t, s.SetStats("u1", stats))

	got, ok, err := s.GetStats("u1")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, stats, got)
}

func TestGetStatsMissing(t *testing.T) {
	s := newStore()

	_, ok, err := s.GetStats("nobody")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestStatsAreScopedPerUser(t *testing.T) {
	s := newStore()

	require.NoError(t, s.SetStats("u1", model.DefaultStats("u1")))

	_, ok, err := s.GetStats("u2")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestCorruptMirrorReadsAsAbsent(t *testing.T) {
	ring := keyring.NewArrayKeyring(nil)
	s := NewWithKeyring(ring)

	require.NoError(t, ring.Set(keyring.Item{Key: "u1-stats", Data: []byte("not json")}))

	_, ok, err := s.GetStats("u1")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestDeleteStats(t *testing.T) {
	s := newStore()

	require.NoError(t, s.SetStats("u1", model.DefaultStats("u1")))
	require.NoError(t, s.DeleteStats("u1"))

	_, ok, err := s.GetStats("u1")
	require.NoError(t, err)
	assert.False(t, ok)

	// Deleting an absent mirror is not an error.
	require.NoError(t, s.DeleteStats("u1"))
}
