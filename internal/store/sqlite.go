// internal/store/sqlite.go
package store

import (
	"context"
	"database/sql"
	"errors"
	"time"

	_ "modernc.org/sqlite"

	practicesession "github.com/opobank/backend/internal/domain/practice_session"
	"github.com/opobank/backend/internal/domain/questionbank"
)

const schema = `
CREATE TABLE IF NOT EXISTS attempts (
    id TEXT PRIMARY KEY,
    user_id TEXT NOT NULL,
    started_at_unix_ms INTEGER NOT NULL,
    finished_at_unix_ms INTEGER NOT NULL,
    abandoned INTEGER NOT NULL DEFAULT 0,
    answered INTEGER NOT NULL,
    correct INTEGER NOT NULL,
    total INTEGER NOT NULL,
    percentage REAL NOT NULL
);

CREATE TABLE IF NOT EXISTS attempt_answers (
    attempt_id TEXT NOT NULL,
    position INTEGER NOT NULL,
    category TEXT NOT NULL,
    theme TEXT NOT NULL,
    question_id TEXT NOT NULL,
    selected INTEGER,
    correct INTEGER NOT NULL,
    PRIMARY KEY (attempt_id, position),
    FOREIGN KEY (attempt_id) REFERENCES attempts(id) ON DELETE CASCADE
);

CREATE INDEX IF NOT EXISTS idx_attempts_user ON attempts(user_id, finished_at_unix_ms);
CREATE INDEX IF NOT EXISTS idx_attempt_answers_theme ON attempt_answers(category, theme);
`

type SQLiteStore struct {
	db *sql.DB
}

var _ Store = (*SQLiteStore)(nil)

// NewSQLite opens the attempt archive. SQLite allows a single writer, so the
// pool is capped at one connection and a busy timeout covers other processes
// holding the file.
func NewSQLite(dbPath string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dbPath+"?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&_pragma=foreign_keys(1)")
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, err
	}

	return &SQLiteStore{db: db}, nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// ============================================================================
// Attempts
// ============================================================================

func (s *SQLiteStore) SaveAttempt(ctx context.Context, attempt *Attempt) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO attempts (id, user_id, started_at_unix_ms, finished_at_unix_ms, abandoned, answered, correct, total, percentage)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		attempt.ID, attempt.UserID,
		attempt.StartedAt.UnixMilli(), attempt.FinishedAt.UnixMilli(),
		attempt.Abandoned,
		attempt.Score.Answered, attempt.Score.Correct, attempt.Score.Total, attempt.Score.Percentage,
	)
	if err != nil {
		return err
	}

	for i, a := range attempt.Answers {
		var selected sql.NullInt64
		if a.Selected != nil {
			selected = sql.NullInt64{Int64: int64(*a.Selected), Valid: true}
		}
		_, err = tx.ExecContext(ctx,
			"INSERT INTO attempt_answers (attempt_id, position, category, theme, question_id, selected, correct) VALUES (?, ?, ?, ?, ?, ?, ?)",
			attempt.ID, i, a.Ref.Category, a.Ref.Theme, a.Ref.Question, selected, a.Correct,
		)
		if err != nil {
			return err
		}
	}

	return tx.Commit()
}

func (s *SQLiteStore) GetAttempt(ctx context.Context, id string) (*Attempt, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, user_id, started_at_unix_ms, finished_at_unix_ms, abandoned, answered, correct, total, percentage
		FROM attempts WHERE id = ?`, id)

	attempt, err := scanAttempt(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx,
		"SELECT category, theme, question_id, selected, correct FROM attempt_answers WHERE attempt_id = ? ORDER BY position",
		id,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var a AttemptAnswer
		var selected sql.NullInt64
		if err := rows.Scan(&a.Ref.Category, &a.Ref.Theme, &a.Ref.Question, &selected, &a.Correct); err != nil {
			return nil, err
		}
		if selected.Valid {
			sel := int(selected.Int64)
			a.Selected = &sel
		}
		attempt.Answers = append(attempt.Answers, a)
	}
	return attempt, rows.Err()
}

// ListAttempts returns a user's attempts, newest first, without answers.
func (s *SQLiteStore) ListAttempts(ctx context.Context, userID string) ([]*Attempt, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, user_id, started_at_unix_ms, finished_at_unix_ms, abandoned, answered, correct, total, percentage
		FROM attempts WHERE user_id = ? ORDER BY finished_at_unix_ms DESC`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var attempts []*Attempt
	for rows.Next() {
		attempt, err := scanAttempt(rows)
		if err != nil {
			return nil, err
		}
		attempts = append(attempts, attempt)
	}
	return attempts, rows.Err()
}

// QuestionStats folds every answered question of one theme, oldest attempt
// first, into per-question stats for a user.
func (s *SQLiteStore) QuestionStats(ctx context.Context, userID, categoryKey, themeID string) ([]questionbank.QuestionStats, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT aa.question_id, aa.correct
		FROM attempt_answers aa
		JOIN attempts a ON a.id = aa.attempt_id
		WHERE a.user_id = ? AND aa.category = ? AND aa.theme = ? AND aa.selected IS NOT NULL
		ORDER BY a.finished_at_unix_ms, aa.position`,
		userID, categoryKey, themeID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	index := make(map[string]int)
	var stats []questionbank.QuestionStats
	for rows.Next() {
		var questionID string
		var correct bool
		if err := rows.Scan(&questionID, &correct); err != nil {
			return nil, err
		}
		pos, ok := index[questionID]
		if !ok {
			pos = len(stats)
			index[questionID] = pos
			stats = append(stats, questionbank.QuestionStats{
				Ref: questionbank.Ref{Category: categoryKey, Theme: themeID, Question: questionID},
			})
		}
		stats[pos].Record(correct)
	}
	return stats, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanAttempt(row rowScanner) (*Attempt, error) {
	var attempt Attempt
	var startedAt, finishedAt int64
	var score practicesession.Score
	err := row.Scan(
		&attempt.ID, &attempt.UserID, &startedAt, &finishedAt, &attempt.Abandoned,
		&score.Answered, &score.Correct, &score.Total, &score.Percentage,
	)
	if err != nil {
		return nil, err
	}
	score.Unanswered = score.Total - score.Answered
	attempt.Score = score
	attempt.StartedAt = time.UnixMilli(startedAt).UTC()
	attempt.FinishedAt = time.UnixMilli(finishedAt).UTC()
	return &attempt, nil
}
