package engine

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tvu/habitflow/internal/model"
	"github.com/tvu/habitflow/internal/recur"
	"github.com/tvu/habitflow/tests/testutil"
)

func streakFixture(t *testing.T) (*fixture, time.Time) {
	t.Helper()

	now := time.Date(2025, 6, 10, 12, 0, 0, 0, time.Local)
	f := newFixture(t, nil, testutil.NewClockAt(now))
	require.NoError(t, f.engine.Load(context.Background()))
	return f, now
}

func completeDays(ctx context.Context, f *fixture, ref time.Time, habitID string, daysAgo ...int) {
	entries := model.HabitData{}
	for _, d := range daysAgo {
		entries[dayKey(ref, d)] = model.DayRecord{Habits: map[string]bool{habitID: true}}
	}
	f.engine.AppendHabitData(ctx, entries)
}

func TestStreakCountsConsecutiveDays(t *testing.T) {
	ctx := context.Background()
	f, now := streakFixture(t)

	completeDays(ctx, f, now, "habit-1", 0, 1, 2, 3, 4)

	assert.Equal(t, 5, f.engine.CalculateStreak(ctx, "habit-1"))
}

func TestStreakBreaksOnGap(t *testing.T) {
	ctx := context.Background()
	f, now := streakFixture(t)

	// The gap at day -2 cuts the run short regardless of older completions.
	completeDays(ctx, f, now, "habit-1", 0, 1, 3, 4)

	assert.Equal(t, 2, f.engine.CalculateStreak(ctx, "habit-1"))
}

func TestStreakZeroWhenTodayIncomplete(t *testing.T) {
	ctx := context.Background()
	f, now := streakFixture(t)

	completeDays(ctx, f, now, "habit-1", 1, 2)

	assert.Equal(t, 0, f.engine.CalculateStreak(ctx, "habit-1"))
}

func TestStreakMemoShortCircuitsTheWalk(t *testing.T) {
	ctx := context.Background()
	f, now := streakFixture(t)

	// Seed a memo claiming a 99-day run through yesterday. The walk must
	// trust it instead of recounting the (empty) habit log.
	f.engine.mu.Lock()
	f.engine.latestStreaks["habit-1"] = map[string]int{dayKey(now, 1): 99}
	f.engine.mu.Unlock()

	completeDays(ctx, f, now, "habit-1", 0)

	assert.Equal(t, 100, f.engine.CalculateStreak(ctx, "habit-1"))

	// The memo collapsed to a single entry for today.
	f.engine.mu.Lock()
	memo := f.engine.latestStreaks["habit-1"]
	f.engine.mu.Unlock()
	assert.Equal(t, map[string]int{dayKey(now, 0): 100}, memo)
}

func TestStreakMemoSurvivesRestart(t *testing.T) {
	ctx := context.Background()
	f, now := streakFixture(t)

	completeDays(ctx, f, now, "habit-1", 0, 1, 2)
	require.Equal(t, 3, f.engine.CalculateStreak(ctx, "habit-1"))

	// A second engine over the same cache restores the memo on load.
	e2, err := New(Options{
		UserID: testUID,
		Cache:  f.cache,
		Now:    f.clock.Now,
	})
	require.NoError(t, err)
	t.Cleanup(e2.Close)
	require.NoError(t, e2.Load(ctx))

	e2.mu.Lock()
	memo := e2.latestStreaks["habit-1"]
	e2.mu.Unlock()
	assert.Equal(t, map[string]int{dayKey(now, 0): 3}, memo)
}

func TestStreakAtHistoricalDate(t *testing.T) {
	ctx := context.Background()
	f, now := streakFixture(t)

	completeDays(ctx, f, now, "habit-1", 3, 4, 5)

	assert.Equal(t, 3, f.engine.StreakAt(ctx, "habit-1", now.AddDate(0, 0, -3)))
}

func TestStreakIgnoresOtherHabits(t *testing.T) {
	ctx := context.Background()
	f, now := streakFixture(t)

	completeDays(ctx, f, now, "habit-1", 0, 1)
	f.engine.AppendHabitData(ctx, model.HabitData{
		dayKey(now, 2): {Habits: map[string]bool{"habit-2": true}},
	})

	assert.Equal(t, 2, f.engine.CalculateStreak(ctx, "habit-1"))
}

func TestDueOnDayWithAfternoonRule(t *testing.T) {
	// A rule firing at 14:00 counts as due for the whole calendar day.
	rule := recur.MustParse("DTSTART:20250601T140000\nRRULE:FREQ=DAILY")
	assert.True(t, rule.DueOn(time.Date(2025, 6, 10, 8, 0, 0, 0, time.Local)))
}
