package model

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"

	"github.com/tvu/habitflow/internal/recur"
)

// snapshotVersion is the current schema version for cached habit and todo
// snapshots. Version 0 (no envelope) predates display-field overrides and
// stored todo due dates as unix seconds.
const snapshotVersion = 1

type habitEnvelope struct {
	SchemaVersion int              `json:"schemaVersion"`
	Items         map[string]Habit `json:"items"`
}

type todoEnvelope struct {
	SchemaVersion int             `json:"schemaVersion"`
	Items         map[string]Todo `json:"items"`
}

// habitV0 is the legacy cached habit shape: recurrence rules stored as bare
// strings, no name/description/icon overrides.
type habitV0 struct {
	ID         string `json:"id"`
	ActivityID string `json:"activityId"`
	Neglection bool   `json:"neglection"`
	Rule       string `json:"rule"`
	Reminder   string `json:"reminder,omitempty"`
}

// todoV0 is the legacy cached todo shape with unix-second timestamps.
type todoV0 struct {
	ID         string `json:"id"`
	ActivityID string `json:"activityId"`
	Neglection bool   `json:"neglection"`
	Due        int64  `json:"due"`
	Reminder   *int64 `json:"reminder,omitempty"`
}

// EncodeHabits serializes a habit map in the current snapshot schema.
func EncodeHabits(habits map[string]Habit) ([]byte, error) {
	return json.Marshal(habitEnvelope{SchemaVersion: snapshotVersion, Items: habits})
}

// DecodeHabits deserializes a cached habit map, migrating legacy payloads
// to the current shape.
func DecodeHabits(data []byte) (map[string]Habit, error) {
	if !hasSchemaVersion(data) {
		return migrateHabitsV0(data)
	}

	var env habitEnvelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("decoding habit snapshot: %w", err)
	}
	if env.Items == nil {
		env.Items = map[string]Habit{}
	}
	return env.Items, nil
}

// EncodeTodos serializes a todo map in the current snapshot schema.
func EncodeTodos(todos map[string]Todo) ([]byte, error) {
	return json.Marshal(todoEnvelope{SchemaVersion: snapshotVersion, Items: todos})
}

// DecodeTodos deserializes a cached todo map, migrating legacy payloads to
// the current shape.
func DecodeTodos(data []byte) (map[string]Todo, error) {
	if !hasSchemaVersion(data) {
		return migrateTodosV0(data)
	}

	var env todoEnvelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("decoding todo snapshot: %w", err)
	}
	if env.Items == nil {
		env.Items = map[string]Todo{}
	}
	return env.Items, nil
}

func migrateHabitsV0(data []byte) (map[string]Habit, error) {
	var legacy map[string]habitV0
	if err := json.Unmarshal(data, &legacy); err != nil {
		return nil, fmt.Errorf("decoding legacy habit snapshot: %w", err)
	}

	out := make(map[string]Habit, len(legacy))
	for id, h := range legacy {
		rule, err := recur.Parse(h.Rule)
		if err != nil {
			return nil, fmt.Errorf("migrating habit %s: %w", id, err)
		}
		migrated := Habit{
			ID:         h.ID,
			ActivityID: h.ActivityID,
			Neglection: h.Neglection,
			Rule:       rule,
		}
		if h.Reminder != "" {
			reminder, err := recur.Parse(h.Reminder)
			if err != nil {
				return nil, fmt.Errorf("migrating habit %s reminder: %w", id, err)
			}
			migrated.Reminder = reminder
		}
		out[id] = migrated
	}
	return out, nil
}

func migrateTodosV0(data []byte) (map[string]Todo, error) {
	var legacy map[string]todoV0
	if err := json.Unmarshal(data, &legacy); err != nil {
		return nil, fmt.Errorf("decoding legacy todo snapshot: %w", err)
	}

	out := make(map[string]Todo, len(legacy))
	for id, t := range legacy {
		migrated := Todo{
			ID:         t.ID,
			ActivityID: t.ActivityID,
			Neglection: t.Neglection,
			Due:        time.Unix(t.Due, 0),
		}
		if t.Reminder != nil {
			r := time.Unix(*t.Reminder, 0)
			migrated.Reminder = &r
		}
		out[id] = migrated
	}
	return out, nil
}

// hasSchemaVersion reports whether the payload is a versioned envelope.
func hasSchemaVersion(data []byte) bool {
	var probe struct {
		SchemaVersion *int `json:"schemaVersion"`
	}
	dec := json.NewDecoder(bytes.NewReader(data))
	if err := dec.Decode(&probe); err != nil {
		return false
	}
	return probe.SchemaVersion != nil
}
