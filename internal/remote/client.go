// Package remote implements the client for the remote state store: one
// whole-blob user data row, one stats row with per-column partial updates,
// and a profiles row, each keyed by user ID with last-writer-wins semantics
// at the storage layer.
package remote

import (
	"context"
	"errors"

	"github.com/tvu/habitflow/internal/model"
)

// ErrNotFound marks a missing row. It is expected on first run and triggers
// record creation rather than being treated as fatal.
var ErrNotFound = errors.New("remote: row not found")

// Client is the narrow contract the engine holds on the remote store.
type Client interface {
	// LastUpdated fetches only the timestamp column of the user data row.
	LastUpdated(ctx context.Context, uid string) (int64, error)

	// FetchUserData fetches the full user data blob.
	FetchUserData(ctx context.Context, uid string) (*model.UserData, error)

	// UpsertUserData replaces the user data row wholesale.
	UpsertUserData(ctx context.Context, uid string, data *model.UserData) error

	// FetchStats fetches the stats row.
	FetchStats(ctx context.Context, uid string) (*model.Stats, error)

	// UpsertStats replaces the stats row wholesale.
	UpsertStats(ctx context.Context, stats model.Stats) error

	// UpdateStats applies a partial update to the stats row.
	UpdateStats(ctx context.Context, uid string, patch model.StatsPatch) error

	// FetchProfile fetches the profile row.
	FetchProfile(ctx context.Context, uid string) (*model.Profile, error)

	// UpsertProfile creates or replaces the profile row.
	UpsertProfile(ctx context.Context, profile model.Profile) error

	Close() error
}
