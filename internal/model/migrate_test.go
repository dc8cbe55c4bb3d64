package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tvu/habitflow/internal/recur"
)

func TestHabitSnapshotRoundTrip(t *testing.T) {
	habits := map[string]Habit{
		"h1": {
			ID:         "h1",
			ActivityID: "a1",
			Neglection: true,
			Rule:       recur.MustParse("DTSTART:20250601T080000Z\nRRULE:FREQ=DAILY"),
			Name:       "Morning run",
		},
	}

	data, err := EncodeHabits(habits)
	require.NoError(t, err)

	back, err := DecodeHabits(data)
	require.NoError(t, err)
	require.Contains(t, back, "h1")
	assert.Equal(t, habits["h1"].Rule.Canonical(), back["h1"].Rule.Canonical())
	assert.Equal(t, "Morning run", back["h1"].Name)
	assert.True(t, back["h1"].Neglection)
}

func TestDecodeLegacyHabits(t *testing.T) {
	// Version 0 payloads are a bare map with rules as plain strings.
	legacy := `{
		"h1": {"id": "h1", "activityId": "a1", "neglection": false, "rule": "FREQ=WEEKLY;BYDAY=MO"},
		"h2": {"id": "h2", "activityId": "a2", "neglection": true, "rule": "FREQ=DAILY", "reminder": "FREQ=DAILY"}
	}`

	habits, err := DecodeHabits([]byte(legacy))
	require.NoError(t, err)
	require.Len(t, habits, 2)

	assert.Contains(t, habits["h1"].Rule.Canonical(), "FREQ=WEEKLY")
	assert.True(t, habits["h1"].Reminder.IsZero())
	assert.False(t, habits["h2"].Reminder.IsZero())
}

func TestDecodeLegacyHabitsBadRule(t *testing.T) {
	legacy := `{"h1": {"id": "h1", "rule": "FREQ=NEVERMORE"}}`
	_, err := DecodeHabits([]byte(legacy))
	assert.Error(t, err)
}

func TestTodoSnapshotRoundTrip(t *testing.T) {
	due := time.Date(2025, 6, 15, 18, 0, 0, 0, time.UTC)
	todos := map[string]Todo{
		"t1": {ID: "t1", ActivityID: "a1", Due: due, Name: "File taxes"},
	}

	data, err := EncodeTodos(todos)
	require.NoError(t, err)

	back, err := DecodeTodos(data)
	require.NoError(t, err)
	require.Contains(t, back, "t1")
	assert.True(t, back["t1"].Due.Equal(due))
	assert.Equal(t, "File taxes", back["t1"].Name)
}

func TestDecodeLegacyTodos(t *testing.T) {
	// Version 0 stored timestamps as unix seconds.
	legacy := `{
		"t1": {"id": "t1", "activityId": "a1", "due": 1750000000},
		"t2": {"id": "t2", "activityId": "a2", "due": 1750000000, "reminder": 1749990000}
	}`

	todos, err := DecodeTodos([]byte(legacy))
	require.NoError(t, err)
	require.Len(t, todos, 2)

	assert.Equal(t, int64(1750000000), todos["t1"].Due.Unix())
	assert.Nil(t, todos["t1"].Reminder)
	require.NotNil(t, todos["t2"].Reminder)
	assert.Equal(t, int64(1749990000), todos["t2"].Reminder.Unix())
}

func TestDecodeEmptyEnvelopes(t *testing.T) {
	habits, err := DecodeHabits([]byte(`{"schemaVersion": 1}`))
	require.NoError(t, err)
	assert.NotNil(t, habits)
	assert.Empty(t, habits)

	todos, err := DecodeTodos([]byte(`{"schemaVersion": 1, "items": {}}`))
	require.NoError(t, err)
	assert.Empty(t, todos)
}
