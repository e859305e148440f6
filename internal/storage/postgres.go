package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/scythe504/sketchoff-backend/internal"
	"github.com/scythe504/sketchoff-backend/internal/game"
)

const (
	DefaultRecentLimit = 20
	MaxRecentLimit     = 100
)

var ErrUnexpectedDatabase = errors.New("unexpected database error")

const schema = `
CREATE TABLE IF NOT EXISTS game_results (
	id           BIGSERIAL PRIMARY KEY,
	room_code    TEXT        NOT NULL,
	winner_id    TEXT        NOT NULL,
	winner_name  TEXT        NOT NULL,
	winner_score INTEGER     NOT NULL,
	standings    JSONB       NOT NULL,
	rounds       INTEGER     NOT NULL,
	started_at   TIMESTAMPTZ NOT NULL,
	finished_at  TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS game_results_finished_at_idx ON game_results (finished_at DESC);
`

var _ game.ResultArchive = (*ResultStore)(nil)

// ResultStore archives finished games in Postgres.
type ResultStore struct {
	pool *pgxpool.Pool
}

// NewResultStore connects and creates the schema if it is missing.
func NewResultStore(ctx context.Context, connString string) (*ResultStore, error) {
	pool, err := pgxpool.New(ctx, connString)
	if err != nil {
		return nil, fmt.Errorf("connect to postgres: %w", err)
	}
	if _, err := pool.Exec(ctx, schema); err != nil {
		pool.Close()
		return nil, fmt.Errorf("create game_results schema: %w", err)
	}
	return &ResultStore{pool: pool}, nil
}

func (s *ResultStore) Close() {
	s.pool.Close()
}

func (s *ResultStore) SaveResult(ctx context.Context, result *internal.GameResult) error {
	if result == nil {
		return errors.New("result is required")
	}
	standings, err := json.Marshal(result.Standings)
	if err != nil {
		return fmt.Errorf("encode standings: %w", err)
	}

	_, err = s.pool.Exec(ctx, `
		INSERT INTO game_results
			(room_code, winner_id, winner_name, winner_score, standings, rounds, started_at, finished_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		result.RoomCode,
		result.Winner.Id,
		result.Winner.Name,
		result.Winner.Score,
		standings,
		result.Rounds,
		result.StartedAt,
		result.FinishedAt,
	)
	return wrapErr(err)
}

// Recent returns up to limit results, newest first. limit is clamped to
// [1, MaxRecentLimit]; zero or less means DefaultRecentLimit.
func (s *ResultStore) Recent(ctx context.Context, limit int) ([]internal.GameResult, error) {
	switch {
	case limit <= 0:
		limit = DefaultRecentLimit
	case limit > MaxRecentLimit:
		limit = MaxRecentLimit
	}

	rows, err := s.pool.Query(ctx, `
		SELECT room_code, winner_id, winner_name, winner_score, standings, rounds, started_at, finished_at
		FROM game_results
		ORDER BY finished_at DESC, id DESC
		LIMIT $1`, limit)
	if err != nil {
		return nil, wrapErr(err)
	}
	defer rows.Close()

	results := make([]internal.GameResult, 0, limit)
	for rows.Next() {
		var (
			r         internal.GameResult
			standings []byte
		)
		if err := rows.Scan(
			&r.RoomCode,
			&r.Winner.Id,
			&r.Winner.Name,
			&r.Winner.Score,
			&standings,
			&r.Rounds,
			&r.StartedAt,
			&r.FinishedAt,
		); err != nil {
			return nil, wrapErr(err)
		}
		if err := json.Unmarshal(standings, &r.Standings); err != nil {
			return nil, fmt.Errorf("decode standings of %s: %w", r.RoomCode, err)
		}
		results = append(results, r)
	}
	if err := rows.Err(); err != nil {
		return nil, wrapErr(err)
	}
	return results, nil
}

func wrapErr(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return err
	default:
		return fmt.Errorf("%w: %w", ErrUnexpectedDatabase, err)
	}
}
