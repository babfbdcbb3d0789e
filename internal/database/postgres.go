package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/Alias1177/FixPredict/internal/engine"
	"github.com/Alias1177/FixPredict/models"
	"github.com/cenkalti/backoff/v4"
	_ "github.com/lib/pq"
)

// stateRow is the single row holding the current snapshot.
const stateRow = 1

// ConnectionParams holds PostgreSQL connection parameters
type ConnectionParams struct {
	Host     string `mapstructure:"host" yaml:"host"`
	Port     string `mapstructure:"port" yaml:"port"`
	User     string `mapstructure:"user" yaml:"user"`
	Password string `mapstructure:"password" yaml:"password"`
	DBName   string `mapstructure:"name" yaml:"name"`
	SSLMode  string `mapstructure:"sslmode" yaml:"sslmode"`
}

// DSN renders the parameters as a lib/pq connection string.
func (p ConnectionParams) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		p.Host, p.Port, p.User, p.Password, p.DBName, p.SSLMode,
	)
}

// Postgres is a Store backed by PostgreSQL.
type Postgres struct {
	db *sql.DB
}

// New connects using params.
func New(ctx context.Context, params ConnectionParams) (*Postgres, error) {
	return Open(ctx, params.DSN())
}

// Open connects to dsn, retrying the first ping with exponential backoff, and
// creates the tables if they don't exist.
func Open(ctx context.Context, dsn string) (*Postgres, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, err
	}

	strategy := backoff.NewExponentialBackOff()
	strategy.MaxElapsedTime = 30 * time.Second
	ping := func() error { return db.PingContext(ctx) }
	if err := backoff.Retry(ping, backoff.WithContext(strategy, ctx)); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}

	if err := createTables(ctx, db); err != nil {
		db.Close()
		return nil, err
	}
	return &Postgres{db: db}, nil
}

func createTables(ctx context.Context, db *sql.DB) error {
	_, err := db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS fixpredict_state (
			id SMALLINT PRIMARY KEY,
			height BIGINT NOT NULL,
			snapshot BYTEA NOT NULL,
			updated_at TIMESTAMPTZ NOT NULL
		)
	`)
	if err != nil {
		return fmt.Errorf("create state table: %w", err)
	}

	_, err = db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS fixpredict_events (
			seq BIGSERIAL,
			id UUID PRIMARY KEY,
			height BIGINT NOT NULL,
			kind TEXT NOT NULL,
			payload BYTEA NOT NULL,
			created_at TIMESTAMPTZ NOT NULL
		)
	`)
	if err != nil {
		return fmt.Errorf("create events table: %w", err)
	}

	// tables created before seq existed
	_, err = db.ExecContext(ctx, `
		ALTER TABLE fixpredict_events ADD COLUMN IF NOT EXISTS seq BIGSERIAL
	`)
	if err != nil {
		return fmt.Errorf("add events sequence: %w", err)
	}
	return nil
}

// Load returns the stored snapshot, or nil when the table is empty.
func (p *Postgres) Load(ctx context.Context) (*engine.Snapshot, error) {
	var data []byte
	err := p.db.QueryRowContext(ctx, `
		SELECT snapshot FROM fixpredict_state WHERE id = $1
	`, stateRow).Scan(&data)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("load snapshot: %w", err)
	}
	return engine.UnmarshalSnapshot(data)
}

// Save upserts the snapshot and appends events in one transaction.
func (p *Postgres) Save(ctx context.Context, snap *engine.Snapshot, events []models.Event) error {
	data, err := snap.Marshal()
	if err != nil {
		return fmt.Errorf("encode snapshot: %w", err)
	}

	tx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	now := time.Now().UTC()
	_, err = tx.ExecContext(ctx, `
		INSERT INTO fixpredict_state (id, height, snapshot, updated_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (id)
		DO UPDATE SET
			height = EXCLUDED.height,
			snapshot = EXCLUDED.snapshot,
			updated_at = EXCLUDED.updated_at
	`, stateRow, sqlHeight(snap.Height), data, now)
	if err != nil {
		return fmt.Errorf("save snapshot: %w", err)
	}

	for _, ev := range events {
		payload, err := json.Marshal(ev)
		if err != nil {
			return fmt.Errorf("encode event %s: %w", ev.ID, err)
		}
		_, err = tx.ExecContext(ctx, `
			INSERT INTO fixpredict_events (id, height, kind, payload, created_at)
			VALUES ($1, $2, $3, $4, $5)
			ON CONFLICT (id) DO NOTHING
		`, ev.ID.String(), sqlHeight(ev.Height), string(ev.Kind), payload, now)
		if err != nil {
			return fmt.Errorf("journal event %s: %w", ev.ID, err)
		}
	}
	return tx.Commit()
}

// Events returns up to limit journaled events at or above height since, in
// the order they were saved. A non-positive limit reads everything.
func (p *Postgres) Events(ctx context.Context, since uint64, limit int) ([]models.Event, error) {
	var lim any
	if limit > 0 {
		lim = limit
	}
	rows, err := p.db.QueryContext(ctx, `
		SELECT payload FROM fixpredict_events
		WHERE height >= $1
		ORDER BY seq
		LIMIT $2
	`, sqlHeight(since), lim)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.Event
	for rows.Next() {
		var payload []byte
		if err := rows.Scan(&payload); err != nil {
			return nil, err
		}
		var ev models.Event
		if err := json.Unmarshal(payload, &ev); err != nil {
			return nil, fmt.Errorf("decode event: %w", err)
		}
		out = append(out, ev)
	}
	return out, rows.Err()
}

// sqlHeight maps a height onto BIGINT, saturating instead of turning negative.
func sqlHeight(h uint64) int64 {
	return int64(min(h, math.MaxInt64))
}

// Close closes the connection pool.
func (p *Postgres) Close() error {
	return p.db.Close()
}
