package model

import (
	"time"

	"github.com/tvu/habitflow/internal/recur"
)

// Habit is a recurring occurrence of an activity governed by a recurrence
// rule. When Neglection is true, failing to complete the habit on a due day
// counts as a negative occurrence and applies a discipline penalty; when
// false, a missed day is simply skipped.
//
// Habits live in two parallel maps on the engine: the historical `habits`
// map and the active `currentHabits` subset. Removal only evicts from the
// current set, preserving the historical record.
type Habit struct {
	ID         string     `json:"id"`
	ActivityID string     `json:"activityId"`
	Neglection bool       `json:"neglection"`
	Rule       recur.Rule `json:"rule"`
	Reminder   recur.Rule `json:"reminder,omitempty"`

	// Optional overrides of the referenced activity's display fields.
	// They keep a habit presentable after its activity is deleted.
	Name        string `json:"name,omitempty"`
	Description string `json:"description,omitempty"`
	Icon        string `json:"icon,omitempty"`
}

// Todo is a one-shot occurrence of an activity with a due timestamp. It is
// removed after completion or deletion.
type Todo struct {
	ID         string     `json:"id"`
	ActivityID string     `json:"activityId"`
	Neglection bool       `json:"neglection"`
	Due        time.Time  `json:"due"`
	Reminder   *time.Time `json:"reminder,omitempty"`

	Name        string `json:"name,omitempty"`
	Description string `json:"description,omitempty"`
	Icon        string `json:"icon,omitempty"`
}

// DayRecord is the per-day habit log entry. Calculated marks that backfill
// has already applied reward/penalty effects for the day and must not
// reapply them. Habits maps habit ID to completion; an absent entry reads
// as not completed.
type DayRecord struct {
	Calculated bool            `json:"calculated"`
	Habits     map[string]bool `json:"habits"`
}

// HabitData maps ISO date strings ("2006-01-02") to their day records.
type HabitData map[string]DayRecord

// Completed reports whether the habit was completed on the given day.
func (hd HabitData) Completed(day string, habitID string) bool {
	rec, ok := hd[day]
	if !ok {
		return false
	}
	return rec.Habits[habitID]
}

// Clone returns a deep copy of the habit log.
func (hd HabitData) Clone() HabitData {
	out := make(HabitData, len(hd))
	for day, rec := range hd {
		habits := make(map[string]bool, len(rec.Habits))
		for id, done := range rec.Habits {
			habits[id] = done
		}
		out[day] = DayRecord{Calculated: rec.Calculated, Habits: habits}
	}
	return out
}

// UserData is the atomic blob exchanged with the remote state store.
// LastUpdated is a unix-seconds timestamp, monotonic per user; whichever
// side holds the larger value is authoritative on conflict. Merge
// granularity is the whole blob, never individual fields.
type UserData struct {
	Activities    map[string]Activity `json:"activities"`
	Habits        map[string]Habit    `json:"habits"`
	CurrentHabits map[string]Habit    `json:"currentHabits"`
	Todos         map[string]Todo     `json:"todos"`
	HabitData     HabitData           `json:"habitData"`
	LastUpdated   int64               `json:"lastUpdated"`
}
