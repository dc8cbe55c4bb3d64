// Package testutil provides in-memory collaborators for engine and store
// tests: a throwaway SQLite cache, a fake remote client, and a fixed clock.
package testutil

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/tvu/habitflow/internal/model"
	"github.com/tvu/habitflow/internal/remote"
	"github.com/tvu/habitflow/internal/store"
)

// NewTestCache creates an in-memory cache store with all migrations
// applied. It automatically closes the store when the test completes.
func NewTestCache(t *testing.T) *store.Cache {
	t.Helper()

	c, err := store.Open(":memory:")
	if err != nil {
		t.Fatalf("creating test cache: %v", err)
	}

	t.Cleanup(func() {
		if err := c.Close(); err != nil {
			t.Errorf("closing test cache: %v", err)
		}
	})

	return c
}

// Clock is a manually advanced clock for deterministic timestamps.
type Clock struct {
	mu sync.Mutex
	t  time.Time
}

// NewClock starts a clock at the given unix-seconds instant.
func NewClock(unix int64) *Clock {
	return &Clock{t: time.Unix(unix, 0)}
}

// NewClockAt starts a clock at the given time.
func NewClockAt(t time.Time) *Clock {
	return &Clock{t: t}
}

// Now returns the current clock reading.
func (c *Clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

// Advance moves the clock forward.
func (c *Clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

// SetUnix jumps the clock to a unix-seconds instant.
func (c *Clock) SetUnix(unix int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = time.Unix(unix, 0)
}

// FakeRemote is an in-memory remote.Client with per-method error injection
// and call counters.
type FakeRemote struct {
	mu sync.Mutex

	data     map[string]*model.UserData
	stats    map[string]model.Stats
	profiles map[string]model.Profile

	// Error injection; when set, the corresponding method fails.
	LastUpdatedErr error
	FetchErr       error
	UpsertErr      error

	LastUpdatedCalls int
	FetchCalls       int
	UpsertDataCalls  int
	UpdateStatsCalls int
}

var _ remote.Client = (*FakeRemote)(nil)

// NewFakeRemote returns an empty fake remote store.
func NewFakeRemote() *FakeRemote {
	return &FakeRemote{
		data:     map[string]*model.UserData{},
		stats:    map[string]model.Stats{},
		profiles: map[string]model.Profile{},
	}
}

// SeedUserData installs a user data row directly.
func (f *FakeRemote) SeedUserData(uid string, data *model.UserData) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.data[uid] = cloneUserData(data)
}

// UserData returns the stored row, or nil.
func (f *FakeRemote) UserData(uid string) *model.UserData {
	f.mu.Lock()
	defer f.mu.Unlock()
	stored, ok := f.data[uid]
	if !ok {
		return nil
	}
	return cloneUserData(stored)
}

// SeedStats installs a stats row directly.
func (f *FakeRemote) SeedStats(stats model.Stats) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.stats[stats.UID] = stats
}

// StatsRow returns the stored stats row and whether it exists.
func (f *FakeRemote) StatsRow(uid string) (model.Stats, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	s, ok := f.stats[uid]
	return s, ok
}

func (f *FakeRemote) LastUpdated(ctx context.Context, uid string) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.LastUpdatedCalls++
	if f.LastUpdatedErr != nil {
		return 0, f.LastUpdatedErr
	}
	stored, ok := f.data[uid]
	if !ok {
		return 0, remote.ErrNotFound
	}
	return stored.LastUpdated, nil
}

func (f *FakeRemote) FetchUserData(ctx context.Context, uid string) (*model.UserData, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.FetchCalls++
	if f.FetchErr != nil {
		return nil, f.FetchErr
	}
	stored, ok := f.data[uid]
	if !ok {
		return nil, remote.ErrNotFound
	}
	return cloneUserData(stored), nil
}

func (f *FakeRemote) UpsertUserData(ctx context.Context, uid string, data *model.UserData) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.UpsertDataCalls++
	if f.UpsertErr != nil {
		return f.UpsertErr
	}
	f.data[uid] = cloneUserData(data)
	return nil
}

func (f *FakeRemote) FetchStats(ctx context.Context, uid string) (*model.Stats, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	s, ok := f.stats[uid]
	if !ok {
		return nil, remote.ErrNotFound
	}
	out := s
	return &out, nil
}

func (f *FakeRemote) UpsertStats(ctx context.Context, stats model.Stats) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.stats[stats.UID] = stats
	return nil
}

func (f *FakeRemote) UpdateStats(ctx context.Context, uid string, patch model.StatsPatch) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.UpdateStatsCalls++
	s, ok := f.stats[uid]
	if !ok {
		return remote.ErrNotFound
	}
	patch.Apply(&s)
	f.stats[uid] = s
	return nil
}

func (f *FakeRemote) FetchProfile(ctx context.Context, uid string) (*model.Profile, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.profiles[uid]
	if !ok {
		return nil, remote.ErrNotFound
	}
	out := p
	return &out, nil
}

func (f *FakeRemote) UpsertProfile(ctx context.Context, profile model.Profile) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.profiles[profile.UID] = profile
	return nil
}

func (f *FakeRemote) Close() error {
	return nil
}

// cloneUserData deep-copies a blob through its JSON form, the same shape it
// crosses the wire in.
func cloneUserData(data *model.UserData) *model.UserData {
	raw, err := json.Marshal(data)
	if err != nil {
		panic(err)
	}
	var out model.UserData
	if err := json.Unmarshal(raw, &out); err != nil {
		panic(err)
	}
	return &out
}
