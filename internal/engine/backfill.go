package engine

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/tvu/habitflow/internal/model"
	"github.com/tvu/habitflow/internal/recur"
)

// Backfill retroactively applies reward and penalty effects for days that
// elapsed without the app being opened. It walks backward from yesterday to
// the account-creation day, stopping at the first day already marked
// calculated, and replays each remaining day against the habits active
// right now (the current set, not a historical reconstruction of which
// habits existed on that past day).
//
// A completed habit earns its positive occurrence; an uncompleted habit
// with neglection set takes the penalty on its due days; an uncompleted
// habit without neglection is simply skipped. Each processed day is marked
// calculated, which makes a second pass a no-op.
//
// Overdue todos and reminders are not evaluated here.
func (e *Engine) Backfill(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if !e.loaded {
		return ErrNotLoaded
	}

	firstDay := recur.StartOfDay(e.createdAt)
	day := recur.StartOfDay(e.now()).AddDate(0, 0, -1)

	processed := 0
	for !day.Before(firstDay) {
		dayKey := recur.DayString(day)
		rec, ok := e.habitData[dayKey]
		if ok && rec.Calculated {
			break
		}
		if rec.Habits == nil {
			rec.Habits = map[string]bool{}
		}

		e.replayDayLocked(ctx, day, rec)

		rec.Calculated = true
		e.habitData[dayKey] = rec
		processed++

		day = day.AddDate(0, 0, -1)
	}

	if processed > 0 {
		e.updateDataLocked(ctx)
	}
	return nil
}

// replayDayLocked applies the reward engine for one historical day.
func (e *Engine) replayDayLocked(ctx context.Context, day time.Time, rec model.DayRecord) {
	for habitID, habit := range e.currentHabits {
		completed := rec.Habits[habitID]

		switch {
		case completed:
			if _, err := e.logActivityLocked(ctx, habit.ActivityID, NeglectedNone, false); err != nil {
				e.log.Warn("backfill reward failed",
					zap.String("habit", habitID), zap.Error(err))
			}
		case habit.Neglection && habit.Rule.DueOn(day):
			if _, err := e.logActivityLocked(ctx, habit.ActivityID, NeglectedMiss, false); err != nil {
				e.log.Warn("backfill penalty failed",
					zap.String("habit", habitID), zap.Error(err))
			}
		}
	}
}
