// Package engine implements the habit/stats reconciliation core: it merges
// the local cache and remote store on load using last-write-wins timestamp
// versioning, keeps the in-memory state of activities, habits, todos, and
// the per-day habit log, debounces pushes to the remote store, backfills
// missed days, and computes streaks and rewards.
package engine

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/tvu/habitflow/internal/model"
	"github.com/tvu/habitflow/internal/recur"
	"github.com/tvu/habitflow/internal/remote"
	"github.com/tvu/habitflow/internal/securestore"
	"github.com/tvu/habitflow/internal/store"
)

// Default sync cadence: the remote store is written at most once per
// window, and deferred pushes self-check every retry interval.
const (
	DefaultSyncWindow    = 600 * time.Second
	DefaultRetryInterval = 300 * time.Second
)

// ErrNotLoaded is returned by operations that require the load protocol to
// have completed first.
var ErrNotLoaded = errors.New("engine: load not complete")

// Options configures an Engine. Cache and UserID are required; a nil
// Remote means offline mode, where syncing defers indefinitely and only the
// local cache is written.
type Options struct {
	UserID    string
	CreatedAt time.Time
	Cache     *store.Cache
	Remote    remote.Client
	Secure    *securestore.Store
	Logger    *zap.Logger
	Now       func() time.Time

	SyncWindow    time.Duration
	RetryInterval time.Duration
}

// Engine owns the in-memory user state and its reconciliation with the
// local cache store and the remote state store. All methods serialize on an
// internal mutex; there is no other locking.
type Engine struct {
	mu sync.Mutex

	userID    string
	createdAt time.Time
	cache     *store.Cache
	remote    remote.Client
	secure    *securestore.Store
	log       *zap.Logger
	now       func() time.Time

	syncWindow    time.Duration
	retryInterval time.Duration

	activities    map[string]model.Activity
	habits        map[string]model.Habit
	currentHabits map[string]model.Habit
	todos         map[string]model.Todo
	habitData     model.HabitData
	stats         model.Stats
	latestStreaks map[string]map[string]int

	// remoteLastUpdated is the last known remote timestamp, 0 when unknown.
	remoteLastUpdated int64

	loaded bool
	closed bool

	// Single-slot sync timer. Arming cancels any previous timer; Close
	// stops the slot for good.
	timer      *time.Timer
	timerDelay time.Duration
}

// New builds an Engine. No I/O happens until Load.
func New(opts Options) (*Engine, error) {
	if opts.UserID == "" {
		return nil, errors.New("engine: user ID required")
	}
	if opts.Cache == nil {
		return nil, errors.New("engine: cache store required")
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.SyncWindow <= 0 {
		opts.SyncWindow = DefaultSyncWindow
	}
	if opts.RetryInterval <= 0 {
		opts.RetryInterval = DefaultRetryInterval
	}
	if opts.CreatedAt.IsZero() {
		opts.CreatedAt = opts.Now()
	}

	return &Engine{
		userID:        opts.UserID,
		createdAt:     opts.CreatedAt,
		cache:         opts.Cache,
		remote:        opts.Remote,
		secure:        opts.Secure,
		log:           opts.Logger,
		now:           opts.Now,
		syncWindow:    opts.SyncWindow,
		retryInterval: opts.RetryInterval,
		activities:    map[string]model.Activity{},
		habits:        map[string]model.Habit{},
		currentHabits: map[string]model.Habit{},
		todos:         map[string]model.Todo{},
		habitData:     model.HabitData{},
		latestStreaks: map[string]map[string]int{},
	}, nil
}

// Cache key suffixes, one per state slice.
const (
	keyActivities    = "activities"
	keyHabits        = "habits"
	keyCurrentHabits = "currentHabits"
	keyTodos         = "todos"
	keyHabitData     = "habitData"
	keyLastUpdated   = "lastUpdated"
	keyLatestStreaks = "latestStreaks"
)

func (e *Engine) cacheKey(suffix string) string {
	return e.userID + "-" + suffix
}

// requiredKeys are the keys that must all be present for the local snapshot
// to be trusted. latestStreaks is a derived memo and deliberately excluded.
func (e *Engine) requiredKeys() []string {
	return []string{
		e.cacheKey(keyActivities),
		e.cacheKey(keyHabits),
		e.cacheKey(keyCurrentHabits),
		e.cacheKey(keyTodos),
		e.cacheKey(keyHabitData),
		e.cacheKey(keyLastUpdated),
	}
}

// Load runs the load protocol: read both stores, pick the authoritative
// side by timestamp, initialize in-memory state, and open the sync gate.
// It must be called exactly once, before Backfill and before any mutations
// are expected to sync.
func (e *Engine) Load(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.loaded {
		return errors.New("engine: already loaded")
	}

	local := e.readLocalSnapshot(ctx)

	remoteLU, remotePresent := e.fetchRemoteLastUpdated(ctx)

	switch {
	case local == nil && !remotePresent:
		// Nothing anywhere: bootstrap defaults and establish the first
		// remote record immediately.
		e.activities = model.DefaultActivities()
		e.loaded = true
		now := e.now().Unix()
		snapshot := e.snapshotLocked(now)
		e.writeSnapshotLocked(ctx, snapshot)
		if e.remote != nil {
			if err := e.remote.UpsertUserData(ctx, e.userID, snapshot); err != nil {
				e.log.Warn("creating initial remote record failed", zap.Error(err))
			} else {
				e.remoteLastUpdated = now
			}
		}

	case local == nil:
		data, err := e.remote.FetchUserData(ctx, e.userID)
		if err != nil {
			return fmt.Errorf("fetching remote state: %w", err)
		}
		e.adoptLocked(data)
		e.remoteLastUpdated = data.LastUpdated
		e.writeSnapshotLocked(ctx, data)
		e.loaded = true

	case !remotePresent || local.LastUpdated >= remoteLU:
		e.adoptLocked(local)
		e.remoteLastUpdated = local.LastUpdated
		if remotePresent && remoteLU < local.LastUpdated {
			// Remote fell behind; repair it.
			if err := e.remote.UpsertUserData(ctx, e.userID, local); err != nil {
				e.log.Warn("repushing local state failed", zap.Error(err))
			}
		}
		e.loaded = true

	default:
		data, err := e.remote.FetchUserData(ctx, e.userID)
		if err != nil {
			return fmt.Errorf("fetching remote state: %w", err)
		}
		e.adoptLocked(data)
		e.remoteLastUpdated = data.LastUpdated
		e.writeSnapshotLocked(ctx, data)
		e.loaded = true
	}

	if err := e.loadStatsLocked(ctx); err != nil {
		return err
	}
	e.loadStreakMemoLocked(ctx)

	return nil
}

// readLocalSnapshot reads all required cache keys. If any key is absent or
// fails to decode, the whole snapshot is discarded; a partially trusted
// snapshot is worse than none.
func (e *Engine) readLocalSnapshot(ctx context.Context) *model.UserData {
	values, err := e.cache.MultiGet(ctx, e.requiredKeys())
	if err != nil {
		e.log.Warn("reading local snapshot failed", zap.Error(err))
		return nil
	}
	for _, key := range e.requiredKeys() {
		if _, ok := values[key]; !ok {
			return nil
		}
	}

	var data model.UserData
	if err := json.Unmarshal([]byte(values[e.cacheKey(keyActivities)]), &data.Activities); err != nil {
		e.log.Warn("malformed cached activities, discarding snapshot", zap.Error(err))
		return nil
	}
	if data.Habits, err = model.DecodeHabits([]byte(values[e.cacheKey(keyHabits)])); err != nil {
		e.log.Warn("malformed cached habits, discarding snapshot", zap.Error(err))
		return nil
	}
	if data.CurrentHabits, err = model.DecodeHabits([]byte(values[e.cacheKey(keyCurrentHabits)])); err != nil {
		e.log.Warn("malformed cached current habits, discarding snapshot", zap.Error(err))
		return nil
	}
	if data.Todos, err = model.DecodeTodos([]byte(values[e.cacheKey(keyTodos)])); err != nil {
		e.log.Warn("malformed cached todos, discarding snapshot", zap.Error(err))
		return nil
	}
	if err := json.Unmarshal([]byte(values[e.cacheKey(keyHabitData)]), &data.HabitData); err != nil {
		e.log.Warn("malformed cached habit data, discarding snapshot", zap.Error(err))
		return nil
	}
	if err := json.Unmarshal([]byte(values[e.cacheKey(keyLastUpdated)]), &data.LastUpdated); err != nil {
		e.log.Warn("malformed cached timestamp, discarding snapshot", zap.Error(err))
		return nil
	}

	return &data
}

// fetchRemoteLastUpdated reads only the remote timestamp. Both a missing
// row and a transient failure report the remote side as absent; the load
// protocol then trusts local state and the next sync repairs the remote.
func (e *Engine) fetchRemoteLastUpdated(ctx context.Context) (int64, bool) {
	if e.remote == nil {
		return 0, false
	}
	lu, err := e.remote.LastUpdated(ctx, e.userID)
	if errors.Is(err, remote.ErrNotFound) {
		return 0, false
	}
	if err != nil {
		e.log.Warn("fetching remote timestamp failed", zap.Error(err))
		return 0, false
	}
	return lu, true
}

func (e *Engine) adoptLocked(data *model.UserData) {
	e.activities = data.Activities
	e.habits = data.Habits
	e.currentHabits = data.CurrentHabits
	e.todos = data.Todos
	e.habitData = data.HabitData
	if e.activities == nil {
		e.activities = map[string]model.Activity{}
	}
	if e.habits == nil {
		e.habits = map[string]model.Habit{}
	}
	if e.currentHabits == nil {
		e.currentHabits = map[string]model.Habit{}
	}
	if e.todos == nil {
		e.todos = map[string]model.Todo{}
	}
	if e.habitData == nil {
		e.habitData = model.HabitData{}
	}
}

// snapshotLocked assembles the current in-memory state as a sync blob with
// the given timestamp.
func (e *Engine) snapshotLocked(lastUpdated int64) *model.UserData {
	return &model.UserData{
		Activities:    e.activities,
		Habits:        e.habits,
		CurrentHabits: e.currentHabits,
		Todos:         e.todos,
		HabitData:     e.habitData,
		LastUpdated:   lastUpdated,
	}
}

// writeSnapshotLocked persists a full snapshot to the local cache in one
// transaction.
func (e *Engine) writeSnapshotLocked(ctx context.Context, data *model.UserData) {
	activities, err := json.Marshal(data.Activities)
	if err != nil {
		e.log.Error("marshaling activities", zap.Error(err))
		return
	}
	habits, err := model.EncodeHabits(data.Habits)
	if err != nil {
		e.log.Error("marshaling habits", zap.Error(err))
		return
	}
	currentHabits, err := model.EncodeHabits(data.CurrentHabits)
	if err != nil {
		e.log.Error("marshaling current habits", zap.Error(err))
		return
	}
	todos, err := model.EncodeTodos(data.Todos)
	if err != nil {
		e.log.Error("marshaling todos", zap.Error(err))
		return
	}
	habitData, err := json.Marshal(data.HabitData)
	if err != nil {
		e.log.Error("marshaling habit data", zap.Error(err))
		return
	}
	lastUpdated, err := json.Marshal(data.LastUpdated)
	if err != nil {
		e.log.Error("marshaling timestamp", zap.Error(err))
		return
	}

	entries := map[string]string{
		e.cacheKey(keyActivities):    string(activities),
		e.cacheKey(keyHabits):        string(habits),
		e.cacheKey(keyCurrentHabits): string(currentHabits),
		e.cacheKey(keyTodos):         string(todos),
		e.cacheKey(keyHabitData):     string(habitData),
		e.cacheKey(keyLastUpdated):   string(lastUpdated),
	}
	if err := e.cache.MultiSet(ctx, entries); err != nil {
		e.log.Error("writing local snapshot", zap.Error(err))
	}
}

// loadStatsLocked reconciles the keyring stats mirror against the remote
// stats row with the same last-write-wins rule as user data.
func (e *Engine) loadStatsLocked(ctx context.Context) error {
	var localStats *model.Stats
	if e.secure != nil {
		s, ok, err := e.secure.GetStats(e.userID)
		if err != nil {
			e.log.Warn("reading stats mirror failed", zap.Error(err))
		} else if ok {
			localStats = &s
		}
	}

	var remoteStats *model.Stats
	if e.remote != nil {
		s, err := e.remote.FetchStats(ctx, e.userID)
		if err != nil && !errors.Is(err, remote.ErrNotFound) {
			e.log.Warn("fetching remote stats failed", zap.Error(err))
		} else if err == nil {
			remoteStats = s
		}
	}

	switch {
	case localStats == nil && remoteStats == nil:
		e.stats = model.DefaultStats(e.userID)
		e.persistStatsLocked(ctx)
	case remoteStats == nil || (localStats != nil && localStats.LastUpdated >= remoteStats.LastUpdated):
		e.stats = *localStats
		if e.remote != nil && remoteStats != nil && remoteStats.LastUpdated < localStats.LastUpdated {
			if err := e.remote.UpsertStats(ctx, e.stats); err != nil {
				e.log.Warn("repushing stats failed", zap.Error(err))
			}
		}
	default:
		e.stats = *remoteStats
		if e.secure != nil {
			if err := e.secure.SetStats(e.userID, e.stats); err != nil {
				e.log.Warn("mirroring stats failed", zap.Error(err))
			}
		}
	}

	return nil
}

// persistStatsLocked writes the full stats state to both the keyring
// mirror and the remote row.
func (e *Engine) persistStatsLocked(ctx context.Context) {
	if e.secure != nil {
		if err := e.secure.SetStats(e.userID, e.stats); err != nil {
			e.log.Warn("mirroring stats failed", zap.Error(err))
		}
	}
	if e.remote != nil {
		if err := e.remote.UpsertStats(ctx, e.stats); err != nil {
			e.log.Warn("pushing stats failed", zap.Error(err))
		}
	}
}

// Loaded reports whether the load protocol has completed.
func (e *Engine) Loaded() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.loaded
}

// Close stops the pending sync timer. The engine must not be used after
// Close.
func (e *Engine) Close() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.closed = true
	if e.timer != nil {
		e.timer.Stop()
		e.timer = nil
	}
}

// SetActivity creates or replaces an activity template.
func (e *Engine) SetActivity(ctx context.Context, activity model.Activity) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.activities[activity.ID] = activity
	e.mutatedLocked(ctx)
}

// RemoveActivity deletes an activity template. Habits and todos referencing
// it degrade to their own cached display fields.
func (e *Engine) RemoveActivity(ctx context.Context, activityID string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	delete(e.activities, activityID)
	e.mutatedLocked(ctx)
}

// SetHabit creates or replaces a habit in both the historical and the
// active map.
func (e *Engine) SetHabit(ctx context.Context, habit model.Habit) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.habits[habit.ID] = habit
	e.currentHabits[habit.ID] = habit
	e.mutatedLocked(ctx)
}

// RemoveHabit evicts a habit from the active set only, preserving the
// historical record in the habits map.
func (e *Engine) RemoveHabit(ctx context.Context, habitID string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	delete(e.currentHabits, habitID)
	e.mutatedLocked(ctx)
}

// SetTodo creates or replaces a todo.
func (e *Engine) SetTodo(ctx context.Context, todo model.Todo) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.todos[todo.ID] = todo
	e.mutatedLocked(ctx)
}

// RemoveTodo deletes a todo.
func (e *Engine) RemoveTodo(ctx context.Context, todoID string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	delete(e.todos, todoID)
	e.mutatedLocked(ctx)
}

// AppendHabitData merges day records into the habit log.
func (e *Engine) AppendHabitData(ctx context.Context, entries model.HabitData) {
	e.mu.Lock()
	defer e.mu.Unlock()
	for day, rec := range entries {
		e.habitData[day] = rec
	}
	e.mutatedLocked(ctx)
}

// ToggleHabitToday flips today's completion state for a habit, creating
// today's day record if needed.
func (e *Engine) ToggleHabitToday(ctx context.Context, habitID string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()

	day := recur.DayString(e.now())
	rec, ok := e.habitData[day]
	if !ok {
		rec = model.DayRecord{Habits: map[string]bool{}}
	}
	if rec.Habits == nil {
		rec.Habits = map[string]bool{}
	}
	rec.Habits[habitID] = !rec.Habits[habitID]
	e.habitData[day] = rec
	e.mutatedLocked(ctx)
	return rec.Habits[habitID]
}

// CompleteTodo logs the todo's activity and removes the todo.
func (e *Engine) CompleteTodo(ctx context.Context, todoID string) (*Reward, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	todo, ok := e.todos[todoID]
	if !ok {
		return nil, fmt.Errorf("todo %s not found", todoID)
	}
	reward, err := e.logActivityLocked(ctx, todo.ActivityID, 0, true)
	if err != nil {
		return nil, err
	}
	delete(e.todos, todoID)
	e.mutatedLocked(ctx)
	return reward, nil
}

// HabitsDueToday returns the active habits whose rule occurs on today's
// calendar day.
func (e *Engine) HabitsDueToday() map[string]model.Habit {
	e.mu.Lock()
	defer e.mu.Unlock()

	today := e.now()
	due := map[string]model.Habit{}
	for id, habit := range e.currentHabits {
		if habit.Rule.DueOn(today) {
			due[id] = habit
		}
	}
	return due
}

// CompletedToday reports today's completion state for a habit.
func (e *Engine) CompletedToday(habitID string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.habitData.Completed(recur.DayString(e.now()), habitID)
}

// mutatedLocked runs after every in-memory mutation: once load has
// completed it invokes the sync routine, which always persists the local
// snapshot and pushes or defers the remote write.
func (e *Engine) mutatedLocked(ctx context.Context) {
	if !e.loaded {
		return
	}
	e.updateDataLocked(ctx)
}

// Accessors return copies so callers never alias engine-owned maps.

func (e *Engine) Activities() map[string]model.Activity {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make(map[string]model.Activity, len(e.activities))
	for id, a := range e.activities {
		out[id] = a
	}
	return out
}

func (e *Engine) Habits() map[string]model.Habit {
	e.mu.Lock()
	defer e.mu.Unlock()
	return copyHabits(e.habits)
}

func (e *Engine) CurrentHabits() map[string]model.Habit {
	e.mu.Lock()
	defer e.mu.Unlock()
	return copyHabits(e.currentHabits)
}

func (e *Engine) Todos() map[string]model.Todo {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make(map[string]model.Todo, len(e.todos))
	for id, t := range e.todos {
		out[id] = t
	}
	return out
}

func (e *Engine) HabitData() model.HabitData {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.habitData.Clone()
}

func (e *Engine) Stats() model.Stats {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.stats
}

func copyHabits(in map[string]model.Habit) map[string]model.Habit {
	out := make(map[string]model.Habit, len(in))
	for id, h := range in {
		out[id] = h
	}
	return out
}
