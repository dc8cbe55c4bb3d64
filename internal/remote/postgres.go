package remote

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"

	"github.com/tvu/habitflow/internal/model"
)

// PostgresClient implements Client against a Postgres backend.
type PostgresClient struct {
	db *sqlx.DB
}

// schema creates the three per-user rows if the backend does not already
// provide them. Safe to run repeatedly.
const schema = `
CREATE TABLE IF NOT EXISTS user_data (
	uid          TEXT PRIMARY KEY,
	last_updated BIGINT NOT NULL,
	data         JSONB NOT NULL
);

CREATE TABLE IF NOT EXISTS user_stats (
	uid          TEXT PRIMARY KEY,
	last_updated BIGINT NOT NULL DEFAULT 0,
	xp           INTEGER NOT NULL DEFAULT 0,
	level        INTEGER NOT NULL DEFAULT 1,
	gold         INTEGER NOT NULL DEFAULT 0,
	gems         INTEGER NOT NULL DEFAULT 0,
	discipline   DOUBLE PRECISION NOT NULL DEFAULT 1,
	physical     DOUBLE PRECISION NOT NULL DEFAULT 1,
	mental       DOUBLE PRECISION NOT NULL DEFAULT 1,
	spiritual    DOUBLE PRECISION NOT NULL DEFAULT 1,
	social       DOUBLE PRECISION NOT NULL DEFAULT 1,
	skill        DOUBLE PRECISION NOT NULL DEFAULT 1
);

CREATE TABLE IF NOT EXISTS profiles (
	uid        TEXT PRIMARY KEY,
	username   TEXT NOT NULL DEFAULT '',
	email      TEXT NOT NULL DEFAULT '',
	avatar     TEXT NOT NULL DEFAULT '',
	created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
`

// NewPostgresClient connects to the remote store and ensures the schema
// exists.
func NewPostgresClient(dsn string) (*PostgresClient, error) {
	db, err := sqlx.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("opening remote store: %w", err)
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("ensuring remote schema: %w", err)
	}

	return &PostgresClient{db: db}, nil
}

// Close closes the underlying database connection.
func (c *PostgresClient) Close() error {
	return c.db.Close()
}

// LastUpdated fetches only the timestamp column of the user data row.
func (c *PostgresClient) LastUpdated(ctx context.Context, uid string) (int64, error) {
	var lu int64
	err := c.db.GetContext(ctx, &lu,
		"SELECT last_updated FROM user_data WHERE uid = $1", uid)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, ErrNotFound
	}
	if err != nil {
		return 0, fmt.Errorf("fetching last_updated for %s: %w", uid, err)
	}
	return lu, nil
}

// FetchUserData fetches the full user data blob.
func (c *PostgresClient) FetchUserData(ctx context.Context, uid string) (*model.UserData, error) {
	var raw []byte
	err := c.db.GetContext(ctx, &raw,
		"SELECT data FROM user_data WHERE uid = $1", uid)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("fetching user data for %s: %w", uid, err)
	}

	var data model.UserData
	if err := json.Unmarshal(raw, &data); err != nil {
		return nil, fmt.Errorf("unmarshaling user data for %s: %w", uid, err)
	}
	return &data, nil
}

// UpsertUserData replaces the user data row wholesale.
func (c *PostgresClient) UpsertUserData(ctx context.Context, uid string, data *model.UserData) error {
	raw, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("marshaling user data for %s: %w", uid, err)
	}

	_, err = c.db.ExecContext(ctx, `
		INSERT INTO user_data (uid, last_updated, data)
		VALUES ($1, $2, $3)
		ON CONFLICT (uid) DO UPDATE
		SET last_updated = EXCLUDED.last_updated, data = EXCLUDED.data`,
		uid, data.LastUpdated, raw,
	)
	if err != nil {
		return fmt.Errorf("upserting user data for %s: %w", uid, err)
	}
	return nil
}

// FetchStats fetches the stats row.
func (c *PostgresClient) FetchStats(ctx context.Context, uid string) (*model.Stats, error) {
	var stats model.Stats
	err := c.db.GetContext(ctx, &stats,
		"SELECT * FROM user_stats WHERE uid = $1", uid)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("fetching stats for %s: %w", uid, err)
	}
	return &stats, nil
}

// UpsertStats replaces the stats row wholesale.
func (c *PostgresClient) UpsertStats(ctx context.Context, stats model.Stats) error {
	_, err := c.db.NamedExecContext(ctx, `
		INSERT INTO user_stats (
			uid, last_updated, xp, level, gold, gems,
			discipline, physical, mental, spiritual, social, skill
		) VALUES (
			:uid, :last_updated, :xp, :level, :gold, :gems,
			:discipline, :physical, :mental, :spiritual, :social, :skill
		)
		ON CONFLICT (uid) DO UPDATE SET
			last_updated = EXCLUDED.last_updated,
			xp = EXCLUDED.xp,
			level = EXCLUDED.level,
			gold = EXCLUDED.gold,
			gems = EXCLUDED.gems,
			discipline = EXCLUDED.discipline,
			physical = EXCLUDED.physical,
			mental = EXCLUDED.mental,
			spiritual = EXCLUDED.spiritual,
			social = EXCLUDED.social,
			skill = EXCLUDED.skill`,
		stats,
	)
	if err != nil {
		return fmt.Errorf("upserting stats for %s: %w", stats.UID, err)
	}
	return nil
}

// UpdateStats applies a partial update: only the patch's non-nil fields are
// written, in a single statement.
func (c *PostgresClient) UpdateStats(ctx context.Context, uid string, patch model.StatsPatch) error {
	var sets []string
	var args []interface{}

	add := func(column string, value interface{}) {
		args = append(args, value)
		sets = append(sets, fmt.Sprintf("%s = $%d", column, len(args)))
	}

	if patch.LastUpdated != nil {
		add("last_updated", *patch.LastUpdated)
	}
	if patch.XP != nil {
		add("xp", *patch.XP)
	}
	if patch.Level != nil {
		add("level", *patch.Level)
	}
	if patch.Gold != nil {
		add("gold", *patch.Gold)
	}
	if patch.Gems != nil {
		add("gems", *patch.Gems)
	}
	for _, name := range model.ImprovableStats {
		if v, ok := patch.Stats[name]; ok && v != nil {
			add(name, *v)
		}
	}

	if len(sets) == 0 {
		return nil
	}

	args = append(args, uid)
	query := fmt.Sprintf("UPDATE user_stats SET %s WHERE uid = $%d",
		strings.Join(sets, ", "), len(args))

	res, err := c.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("updating stats for %s: %w", uid, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrNotFound
	}
	return nil
}

// FetchProfile fetches the profile row.
func (c *PostgresClient) FetchProfile(ctx context.Context, uid string) (*model.Profile, error) {
	var profile model.Profile
	err := c.db.GetContext(ctx, &profile,
		"SELECT * FROM profiles WHERE uid = $1", uid)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("fetching profile for %s: %w", uid, err)
	}
	return &profile, nil
}

// UpsertProfile creates or replaces the profile row.
func (c *PostgresClient) UpsertProfile(ctx context.Context, profile model.Profile) error {
	_, err := c.db.NamedExecContext(ctx, `
		INSERT INTO profiles (uid, username, email, avatar, created_at)
		VALUES (:uid, :username, :email, :avatar, :created_at)
		ON CONFLICT (uid) DO UPDATE SET
			username = EXCLUDED.username,
			email = EXCLUDED.email,
			avatar = EXCLUDED.avatar`,
		profile,
	)
	if err != nil {
		return fmt.Errorf("upserting profile for %s: %w", profile.UID, err)
	}
	return nil
}

// EnsureProfile fetches the profile for uid, creating one with a generated
// username when the row is missing.
func EnsureProfile(ctx context.Context, c Client, uid string) (*model.Profile, error) {
	profile, err := c.FetchProfile(ctx, uid)
	if err == nil {
		return profile, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return nil, err
	}

	created := model.Profile{
		UID:       uid,
		Username:  model.GenerateUsername(),
		CreatedAt: time.Now().UTC(),
	}
	if err := c.UpsertProfile(ctx, created); err != nil {
		return nil, err
	}
	return &created, nil
}
