package engine

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/99designs/keyring"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/zap"

	"github.com/tvu/habitflow/internal/model"
	"github.com/tvu/habitflow/internal/recur"
	"github.com/tvu/habitflow/internal/securestore"
	"github.com/tvu/habitflow/internal/store"
	"github.com/tvu/habitflow/tests/testutil"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m,
		goleak.IgnoreTopFunction("database/sql.(*DB).connectionOpener"),
		// keyring's kwallet backend dials the D-Bus session bus from init();
		// the connection's reader goroutine lives for the whole process.
		goleak.IgnoreAnyFunction("github.com/godbus/dbus.(*Conn).inWorker"),
	)
}

const testUID = "user-1"

type fixture struct {
	engine *Engine
	remote *testutil.FakeRemote
	cache  *store.Cache
	clock  *testutil.Clock
	secure *securestore.Store
}

// newFixture wires an engine against in-memory collaborators. remote may be
// nil for offline mode.
func newFixture(t *testing.T, rem *testutil.FakeRemote, clock *testutil.Clock) *fixture {
	t.Helper()

	cache := testutil.NewTestCache(t)
	secure := securestore.NewWithKeyring(keyring.NewArrayKeyring(nil))

	opts := Options{
		UserID:    testUID,
		CreatedAt: clock.Now(),
		Cache:     cache,
		Secure:    secure,
		Logger:    zap.NewNop(),
		Now:       clock.Now,
	}
	if rem != nil {
		opts.Remote = rem
	}

	e, err := New(opts)
	require.NoError(t, err)
	t.Cleanup(e.Close)

	return &fixture{engine: e, remote: rem, cache: cache, clock: clock, secure: secure}
}

// seedLocal writes a full snapshot to the fixture's cache the same way the
// engine persists one.
func (f *fixture) seedLocal(ctx context.Context, data *model.UserData) {
	f.engine.writeSnapshotLocked(ctx, data)
}

func sampleUserData(lastUpdated int64) *model.UserData {
	return &model.UserData{
		Activities: map[string]model.Activity{
			"act-run": {
				ID:         "act-run",
				Name:       "Run",
				Stats:      []string{model.StatPhysical},
				Type:       model.ActivityPositive,
				Difficulty: 3,
			},
		},
		Habits:        map[string]model.Habit{},
		CurrentHabits: map[string]model.Habit{},
		Todos:         map[string]model.Todo{},
		HabitData:     model.HabitData{},
		LastUpdated:   lastUpdated,
	}
}

func TestLoadBootstrapsDefaults(t *testing.T) {
	ctx := context.Background()
	rem := testutil.NewFakeRemote()
	f := newFixture(t, rem, testutil.NewClock(5000))

	require.NoError(t, f.engine.Load(ctx))

	acts := f.engine.Activities()
	assert.Equal(t, model.DefaultActivities(), acts)

	// The bootstrap establishes the first remote record right away.
	stored := rem.UserData(testUID)
	require.NotNil(t, stored)
	assert.Equal(t, int64(5000), stored.LastUpdated)
	assert.Len(t, stored.Activities, len(acts))

	// Default stats land on both sides.
	remoteStats, ok := rem.StatsRow(testUID)
	require.True(t, ok)
	assert.Equal(t, 1, remoteStats.Level)
	assert.Equal(t, model.StatMinValue, remoteStats.Discipline)

	mirrored, ok, err := f.secure.GetStats(testUID)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, remoteStats, mirrored)
}

func TestLoadLocalWinsAndRepushesStaleRemote(t *testing.T) {
	ctx := context.Background()
	rem := testutil.NewFakeRemote()
	rem.SeedUserData(testUID, sampleUserData(999))
	f := newFixture(t, rem, testutil.NewClock(5000))

	local := sampleUserData(1000)
	local.Activities["act-local"] = model.Activity{ID: "act-local", Name: "Local only", Difficulty: 1}
	f.seedLocal(ctx, local)

	require.NoError(t, f.engine.Load(ctx))

	assert.Contains(t, f.engine.Activities(), "act-local")

	// The remote fell one second behind and got repaired with the local blob.
	stored := rem.UserData(testUID)
	require.NotNil(t, stored)
	assert.Equal(t, int64(1000), stored.LastUpdated)
	assert.Contains(t, stored.Activities, "act-local")
	assert.Equal(t, 1, rem.UpsertDataCalls)
	assert.Equal(t, 0, rem.FetchCalls)
}

func TestLoadEqualTimestampsPreferLocalWithoutRepush(t *testing.T) {
	ctx := context.Background()
	rem := testutil.NewFakeRemote()
	rem.SeedUserData(testUID, sampleUserData(1000))
	f := newFixture(t, rem, testutil.NewClock(5000))

	local := sampleUserData(1000)
	local.Activities["act-local"] = model.Activity{ID: "act-local", Name: "Local only", Difficulty: 1}
	f.seedLocal(ctx, local)

	require.NoError(t, f.engine.Load(ctx))

	assert.Contains(t, f.engine.Activities(), "act-local")
	assert.Equal(t, 0, rem.UpsertDataCalls)
}

func TestLoadRemoteWinsAndOverwritesCache(t *testing.T) {
	ctx := context.Background()
	rem := testutil.NewFakeRemote()
	remoteData := sampleUserData(1000)
	remoteData.Activities["act-remote"] = model.Activity{ID: "act-remote", Name: "Remote only", Difficulty: 2}
	rem.SeedUserData(testUID, remoteData)
	f := newFixture(t, rem, testutil.NewClock(5000))

	f.seedLocal(ctx, sampleUserData(500))

	require.NoError(t, f.engine.Load(ctx))

	assert.Contains(t, f.engine.Activities(), "act-remote")
	assert.Equal(t, 0, rem.UpsertDataCalls)

	// The cache now reflects the adopted remote snapshot.
	raw, ok, err := f.cache.Get(ctx, testUID+"-lastUpdated")
	require.NoError(t, err)
	require.True(t, ok)
	var lu int64
	require.NoError(t, json.Unmarshal([]byte(raw), &lu))
	assert.Equal(t, int64(1000), lu)
}

func TestLoadRemoteOnlyWarmsCache(t *testing.T) {
	ctx := context.Background()
	rem := testutil.NewFakeRemote()
	rem.SeedUserData(testUID, sampleUserData(1000))
	f := newFixture(t, rem, testutil.NewClock(5000))

	require.NoError(t, f.engine.Load(ctx))

	assert.Contains(t, f.engine.Activities(), "act-run")

	raw, ok, err := f.cache.Get(ctx, testUID+"-lastUpdated")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "1000", raw)
}

func TestLoadDiscardsPartialLocalSnapshot(t *testing.T) {
	ctx := context.Background()
	rem := testutil.NewFakeRemote()
	remoteData := sampleUserData(10)
	remoteData.Activities["act-remote"] = model.Activity{ID: "act-remote", Difficulty: 1}
	rem.SeedUserData(testUID, remoteData)

	f := newFixture(t, rem, testutil.NewClock(5000))

	// Only some of the required keys present: the snapshot must not be
	// trusted, even though its timestamp would beat the remote's.
	require.NoError(t, f.cache.Set(ctx, testUID+"-lastUpdated", "99999"))
	require.NoError(t, f.cache.Set(ctx, testUID+"-activities", "{}"))

	require.NoError(t, f.engine.Load(ctx))

	assert.Contains(t, f.engine.Activities(), "act-remote")
}

func TestLoadTwiceFails(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, nil, testutil.NewClock(5000))

	require.NoError(t, f.engine.Load(ctx))
	assert.Error(t, f.engine.Load(ctx))
}

func TestToggleHabitToday(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, nil, testutil.NewClock(5000))
	require.NoError(t, f.engine.Load(ctx))

	habit := model.Habit{
		ID:         "habit-1",
		ActivityID: "default-read",
		Rule:       recur.MustParse("FREQ=DAILY"),
	}
	f.engine.SetHabit(ctx, habit)

	assert.False(t, f.engine.CompletedToday("habit-1"))
	assert.True(t, f.engine.ToggleHabitToday(ctx, "habit-1"))
	assert.True(t, f.engine.CompletedToday("habit-1"))
	assert.False(t, f.engine.ToggleHabitToday(ctx, "habit-1"))
	assert.False(t, f.engine.CompletedToday("habit-1"))
}

func TestRemoveHabitKeepsHistory(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, nil, testutil.NewClock(5000))
	require.NoError(t, f.engine.Load(ctx))

	habit := model.Habit{
		ID:         "habit-1",
		ActivityID: "default-read",
		Rule:       recur.MustParse("FREQ=DAILY"),
	}
	f.engine.SetHabit(ctx, habit)
	f.engine.RemoveHabit(ctx, "habit-1")

	assert.NotContains(t, f.engine.CurrentHabits(), "habit-1")
	assert.Contains(t, f.engine.Habits(), "habit-1")
}

func TestCompleteTodoGrantsRewardAndRemoves(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, nil, testutil.NewClock(5000))
	require.NoError(t, f.engine.Load(ctx))

	todo := model.Todo{
		ID:         "todo-1",
		ActivityID: "default-read",
		Due:        f.clock.Now().Add(24 * time.Hour),
	}
	f.engine.SetTodo(ctx, todo)

	before := f.engine.Stats()
	reward, err := f.engine.CompleteTodo(ctx, "todo-1")
	require.NoError(t, err)

	// default-read is difficulty 2: +5 XP, +10 gold.
	assert.Equal(t, 5, reward.XPDelta)
	assert.Equal(t, 10, reward.GoldDelta)
	assert.True(t, reward.Feedback)

	after := f.engine.Stats()
	assert.Equal(t, before.Gold+10, after.Gold)
	assert.NotContains(t, f.engine.Todos(), "todo-1")

	_, err = f.engine.CompleteTodo(ctx, "todo-1")
	assert.Error(t, err)
}

func TestHabitsDueToday(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, nil, testutil.NewClockAt(time.Date(2025, 6, 3, 9, 0, 0, 0, time.Local)))
	require.NoError(t, f.engine.Load(ctx))

	// June 3 2025 is a Tuesday.
	daily := model.Habit{ID: "habit-daily", ActivityID: "default-read", Rule: recur.MustParse("DTSTART:20250601T080000\nRRULE:FREQ=DAILY")}
	mondays := model.Habit{ID: "habit-monday", ActivityID: "default-read", Rule: recur.MustParse("DTSTART:20250601T080000\nRRULE:FREQ=WEEKLY;BYDAY=MO")}
	f.engine.SetHabit(ctx, daily)
	f.engine.SetHabit(ctx, mondays)

	due := f.engine.HabitsDueToday()
	assert.Contains(t, due, "habit-daily")
	assert.NotContains(t, due, "habit-monday")
}

func TestAccessorsReturnCopies(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, nil, testutil.NewClock(5000))
	require.NoError(t, f.engine.Load(ctx))

	acts := f.engine.Activities()
	delete(acts, "default-read")
	assert.Contains(t, f.engine.Activities(), "default-read")

	f.engine.ToggleHabitToday(ctx, "habit-x")
	hd := f.engine.HabitData()
	day := recur.DayString(f.clock.Now())
	hd[day].Habits["habit-x"] = false
	assert.True(t, f.engine.CompletedToday("habit-x"))
}
