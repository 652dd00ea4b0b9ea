package results

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/mcdev12/sumrush/go/internal/quiz"
)

// DBTX is the subset of *pgxpool.Pool the repository uses.
type DBTX interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

const schemaSQL = `
CREATE TABLE IF NOT EXISTS round_results (
    id            UUID PRIMARY KEY,
    session_id    UUID NOT NULL,
    round         INTEGER NOT NULL,
    difficulty    TEXT NOT NULL,
    a             INTEGER NOT NULL,
    b             INTEGER NOT NULL,
    answer        TEXT NOT NULL,
    outcome       TEXT NOT NULL,
    time_left_sec INTEGER NOT NULL,
    finished_at   TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS round_results_session_finished_idx
    ON round_results (session_id, finished_at);
`

const insertResultSQL = `
INSERT INTO round_results (
  id, session_id, round, difficulty, a, b,
  answer, outcome, time_left_sec, finished_at
) VALUES (
  $1,$2,$3,$4,$5,$6,$7,$8,$9,$10
)
ON CONFLICT (id) DO NOTHING`

const selectColumns = `id, session_id, round, difficulty, a, b, answer, outcome, time_left_sec, finished_at`

// PostgresRepository stores results in the round_results table.
type PostgresRepository struct {
	db DBTX
}

// NewPostgresRepository creates a repository over a pgx pool or connection.
func NewPostgresRepository(db DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// EnsureSchema creates the results table and index when missing.
func (r *PostgresRepository) EnsureSchema(ctx context.Context) error {
	if _, err := r.db.Exec(ctx, schemaSQL); err != nil {
		return fmt.Errorf("create round_results schema: %w", err)
	}
	return nil
}

func (r *PostgresRepository) InsertResult(ctx context.Context, res Result) error {
	_, err := r.db.Exec(ctx, insertResultSQL,
		res.ID.String(), res.SessionID.String(), res.Round, string(res.Difficulty), res.A, res.B,
		res.Answer, string(res.Outcome), res.TimeLeftSec, res.FinishedAt,
	)
	if err != nil {
		return fmt.Errorf("insert round result: %w", err)
	}
	return nil
}

func (r *PostgresRepository) ListResults(ctx context.Context, sessionID uuid.UUID, limit int) ([]Result, error) {
	rows, err := r.db.Query(ctx,
		`SELECT `+selectColumns+` FROM round_results
		 WHERE session_id = $1 ORDER BY finished_at DESC, round DESC LIMIT $2`,
		sessionID.String(), limit,
	)
	if err != nil {
		return nil, fmt.Errorf("query round results: %w", err)
	}
	return collectResults(rows)
}

func (r *PostgresRepository) ListAllResults(ctx context.Context, sessionID uuid.UUID) ([]Result, error) {
	rows, err := r.db.Query(ctx,
		`SELECT `+selectColumns+` FROM round_results
		 WHERE session_id = $1 ORDER BY finished_at ASC, round ASC`,
		sessionID.String(),
	)
	if err != nil {
		return nil, fmt.Errorf("query round results: %w", err)
	}
	return collectResults(rows)
}

func collectResults(rows pgx.Rows) ([]Result, error) {
	out, err := pgx.CollectRows(rows, scanResult)
	if err != nil {
		return nil, fmt.Errorf("scan round results: %w", err)
	}
	return out, nil
}

func scanResult(row pgx.CollectableRow) (Result, error) {
	var (
		res                            Result
		id, sessionID, difficulty, out string
		finishedAt                     time.Time
	)
	if err := row.Scan(&id, &sessionID, &res.Round, &difficulty, &res.A, &res.B,
		&res.Answer, &out, &res.TimeLeftSec, &finishedAt); err != nil {
		return Result{}, err
	}

	var err error
	if res.ID, err = uuid.Parse(id); err != nil {
		return Result{}, fmt.Errorf("parse result id: %w", err)
	}
	if res.SessionID, err = uuid.Parse(sessionID); err != nil {
		return Result{}, fmt.Errorf("parse session id: %w", err)
	}
	res.Difficulty = quiz.Difficulty(difficulty)
	res.Outcome = quiz.Outcome(out)
	res.FinishedAt = finishedAt.UTC()
	return res, nil
}
