package store

import (
	"context"
	"errors"
	"time"

	practicesession "github.com/opobank/backend/internal/domain/practice_session"
	"github.com/opobank/backend/internal/domain/questionbank"
)

var (
	ErrNotFound = errors.New("not found")
)

// Store persists finished attempts. Live sessions are kept in a Registry.
type Store interface {
	SaveAttempt(ctx context.Context, attempt *Attempt) error
	GetAttempt(ctx context.Context, id string) (*Attempt, error)
	ListAttempts(ctx context.Context, userID string) ([]*Attempt, error)
	QuestionStats(ctx context.Context, userID, categoryKey, themeID string) ([]questionbank.QuestionStats, error)
}

// Attempt is the record of a completed session.
type Attempt struct {
	ID         string // session ID
	UserID     string
	StartedAt  time.Time
	FinishedAt time.Time
	Abandoned  bool
	Score      practicesession.Score
	Answers    []AttemptAnswer
}

// AttemptAnswer is one session question of an attempt. Selected is nil when
// the question was left unanswered.
type AttemptAnswer struct {
	Ref      questionbank.Ref
	Selected *int
	Correct  bool
}

// NewAttempt captures a completed session as an attempt record.
func NewAttempt(userID string, session *practicesession.PracticeSession, finishedAt time.Time) *Attempt {
	score := session.Score()
	questions := session.Questions()
	attempt := &Attempt{
		ID:         session.ID,
		UserID:     userID,
		StartedAt:  session.CreatedAt,
		FinishedAt: finishedAt,
		Abandoned:  score.Unanswered > 0,
		Score:      score,
		Answers:    make([]AttemptAnswer, len(questions)),
	}
	for i, sq := range questions {
		answer := AttemptAnswer{Ref: sq.Ref, Correct: sq.IsCorrect()}
		if sel, ok := sq.Selected(); ok {
			answer.Selected = &sel
		}
		attempt.Answers[i] = answer
	}
	return attempt
}
