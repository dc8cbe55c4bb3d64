package engine

import (
	"context"
	"encoding/json"
	"time"

	"go.uber.org/zap"

	"github.com/tvu/habitflow/internal/recur"
)

// CalculateStreak returns the consecutive completed-day count for a habit
// ending at today.
func (e *Engine) CalculateStreak(ctx context.Context, habitID string) int {
	return e.StreakAt(ctx, habitID, e.nowTime())
}

func (e *Engine) nowTime() time.Time {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.now()
}

// StreakAt returns the consecutive completed-day count for a habit ending
// at (and including, if completed) the reference date.
//
// The walk is memoized per habit: when a date already present in the memo
// is reached, its memoized count is added to the running total and the walk
// stops. On completion the memo is overwritten with a single entry for the
// reference date, bounding memory to one entry per habit.
func (e *Engine) StreakAt(ctx context.Context, habitID string, ref time.Time) int {
	e.mu.Lock()
	defer e.mu.Unlock()

	memo := e.latestStreaks[habitID]

	count := 0
	day := recur.StartOfDay(ref)
	for {
		dayKey := recur.DayString(day)
		if memoized, ok := memo[dayKey]; ok {
			count += memoized
			break
		}
		if !e.habitData.Completed(dayKey, habitID) {
			break
		}
		count++
		day = day.AddDate(0, 0, -1)
	}

	e.latestStreaks[habitID] = map[string]int{
		recur.DayString(recur.StartOfDay(ref)): count,
	}
	e.persistStreakMemoLocked(ctx)

	return count
}

// persistStreakMemoLocked writes the memo to its cache key. The memo is
// derived state, so failures only cost recomputation.
func (e *Engine) persistStreakMemoLocked(ctx context.Context) {
	data, err := json.Marshal(e.latestStreaks)
	if err != nil {
		e.log.Error("marshaling streak memo", zap.Error(err))
		return
	}
	if err := e.cache.Set(ctx, e.cacheKey(keyLatestStreaks), string(data)); err != nil {
		e.log.Warn("writing streak memo failed", zap.Error(err))
	}
}

// loadStreakMemoLocked restores the memo from the cache; an absent or
// malformed entry just starts the memo empty.
func (e *Engine) loadStreakMemoLocked(ctx context.Context) {
	value, ok, err := e.cache.Get(ctx, e.cacheKey(keyLatestStreaks))
	if err != nil {
		e.log.Warn("reading streak memo failed", zap.Error(err))
		return
	}
	if !ok {
		return
	}

	var memo map[string]map[string]int
	if err := json.Unmarshal([]byte(value), &memo); err != nil {
		e.log.Warn("malformed streak memo, starting empty", zap.Error(err))
		return
	}
	e.latestStreaks = memo
}
