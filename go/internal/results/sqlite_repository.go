package results

import (
	"context"
	"database/sql"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/mcdev12/sumrush/go/internal/quiz"
	_ "modernc.org/sqlite"
)

const sqliteSchemaSQL = `
CREATE TABLE IF NOT EXISTS round_results (
    id            TEXT PRIMARY KEY,
    session_id    TEXT NOT NULL,
    round         INTEGER NOT NULL,
    difficulty    TEXT NOT NULL,
    a             INTEGER NOT NULL,
    b             INTEGER NOT NULL,
    answer        TEXT NOT NULL,
    outcome       TEXT NOT NULL,
    time_left_sec INTEGER NOT NULL,
    finished_at   INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS round_results_session_finished_idx
    ON round_results (session_id, finished_at);
`

// SQLiteRepository stores results in a local SQLite file. Timestamps are
// kept as Unix milliseconds.
type SQLiteRepository struct {
	db *sql.DB
}

// OpenSQLiteRepository opens (creating if needed) the database at path.
func OpenSQLiteRepository(ctx context.Context, path string) (*SQLiteRepository, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("sqlite path is required")
	}
	dsn := filepath.Clean(path) + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)"

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}
	if _, err := db.ExecContext(ctx, sqliteSchemaSQL); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create round_results schema: %w", err)
	}
	return &SQLiteRepository{db: db}, nil
}

// Close closes the SQLite handle.
func (r *SQLiteRepository) Close() error {
	return r.db.Close()
}

func (r *SQLiteRepository) InsertResult(ctx context.Context, res Result) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO round_results (`+selectColumns+`)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		res.ID.String(), res.SessionID.String(), res.Round, string(res.Difficulty), res.A, res.B,
		res.Answer, string(res.Outcome), res.TimeLeftSec, res.FinishedAt.UTC().UnixMilli(),
	)
	if err != nil {
		return fmt.Errorf("insert round result: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) ListResults(ctx context.Context, sessionID uuid.UUID, limit int) ([]Result, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+selectColumns+` FROM round_results
		 WHERE session_id = ? ORDER BY finished_at DESC, round DESC LIMIT ?`,
		sessionID.String(), limit,
	)
	if err != nil {
		return nil, fmt.Errorf("query round results: %w", err)
	}
	return scanSQLiteRows(rows)
}

func (r *SQLiteRepository) ListAllResults(ctx context.Context, sessionID uuid.UUID) ([]Result, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+selectColumns+` FROM round_results
		 WHERE session_id = ? ORDER BY finished_at ASC, round ASC`,
		sessionID.String(),
	)
	if err != nil {
		return nil, fmt.Errorf("query round results: %w", err)
	}
	return scanSQLiteRows(rows)
}

func scanSQLiteRows(rows *sql.Rows) ([]Result, error) {
	defer rows.Close()

	var out []Result
	for rows.Next() {
		var (
			res                           Result
			id, sessionID, difficulty, oc string
			finishedAt                    int64
		)
		if err := rows.Scan(&id, &sessionID, &res.Round, &difficulty, &res.A, &res.B,
			&res.Answer, &oc, &res.TimeLeftSec, &finishedAt); err != nil {
			return nil, fmt.Errorf("scan round result: %w", err)
		}

		var err error
		if res.ID, err = uuid.Parse(id); err != nil {
			return nil, fmt.Errorf("parse result id: %w", err)
		}
		if res.SessionID, err = uuid.Parse(sessionID); err != nil {
			return nil, fmt.Errorf("parse session id: %w", err)
		}
		res.Difficulty = quiz.Difficulty(difficulty)
		res.Outcome = quiz.Outcome(oc)
		res.FinishedAt = time.UnixMilli(finishedAt).UTC()
		out = append(out, res)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate round results: %w", err)
	}
	return out, nil
}
