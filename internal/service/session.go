package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	practicesession "github.com/opobank/backend/internal/domain/practice_session"
	"github.com/opobank/backend/internal/domain/questionbank"
	"github.com/opobank/backend/internal/event"
	"github.com/opobank/backend/internal/metrics"
	"github.com/opobank/backend/internal/store"
)

// ErrNothingMissed is returned by Retry when the session has no wrong answers.
var ErrNothingMissed = errors.New("session has no missed questions")

// AnswerResult is what the caller learns after answering one question.
type AnswerResult struct {
	Correct      bool
	CorrectIndex int
	Explanation  string
	Score        practicesession.Score
	State        practicesession.State
}

// SessionService runs practice sessions on behalf of users. Live sessions
// sit in the registry; once completed they are archived to the store and
// announced on the publisher. Archive and publish failures are logged but
// never fail the request, since the session itself has already changed.
type SessionService struct {
	repo      *questionbank.Repository
	registry  store.Registry
	store     store.Store
	publisher event.Publisher
	logger    *slog.Logger
	now       func() time.Time
}

func NewSessionService(
	repo *questionbank.Repository,
	registry store.Registry,
	s store.Store,
	publisher event.Publisher,
	logger *slog.Logger,
) *SessionService {
	return &SessionService{
		repo:      repo,
		registry:  registry,
		store:     s,
		publisher: publisher,
		logger:    logger,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

func (s *SessionService) Repository() *questionbank.Repository { return s.repo }

// Start creates a session for userID and registers it as live.
func (s *SessionService) Start(ctx context.Context, userID string, config practicesession.SessionConfig) (*practicesession.PracticeSession, error) {
	session, err := practicesession.Start(s.repo, config)
	if err != nil {
		return nil, err
	}
	if err := s.registry.Create(ctx, store.LiveSession{UserID: userID, Session: session}); err != nil {
		return nil, fmt.Errorf("register session: %w", err)
	}

	metrics.SessionsStarted.Inc()
	s.logger.Info("session started",
		"session_id", session.ID,
		"user_id", userID,
		"questions", session.Score().Total,
		"shuffled", session.Shuffled,
	)
	s.publish(ctx, event.Event{
		Type:       event.SessionStarted,
		SessionID:  session.ID,
		UserID:     userID,
		OccurredAt: session.CreatedAt,
		Payload:    map[string]any{"questions": session.Score().Total},
	})
	return session, nil
}

func (s *SessionService) Get(ctx context.Context, id string) (store.LiveSession, error) {
	return s.registry.Get(ctx, id)
}

// Answer records one answer. The session completing as a result archives it.
func (s *SessionService) Answer(ctx context.Context, id, questionID string, selected int) (AnswerResult, error) {
	var (
		result   AnswerResult
		finished store.LiveSession
	)
	err := s.registry.Update(ctx, id, func(live store.LiveSession) error {
		if err := live.Session.Answer(questionID, selected); err != nil {
			return err
		}
		sq, err := live.Session.Question(questionID)
		if err != nil {
			return err
		}
		result.Correct = sq.IsCorrect()
		result.CorrectIndex = sq.CorrectIndex()
		result.Explanation = sq.Question.Explanation
		result.Score = live.Session.Score()
		result.State = live.Session.State()
		if result.State == practicesession.StateCompleted {
			finished = live
		}
		return nil
	})
	if err != nil {
		return AnswerResult{}, err
	}

	metrics.ObserveAnswer(result.Correct)
	if finished.Session != nil {
		s.archive(ctx, finished)
	}
	return result, nil
}

// Abandon ends a session early and archives it.
func (s *SessionService) Abandon(ctx context.Context, id string) (practicesession.Score, error) {
	var abandoned store.LiveSession
	err := s.registry.Update(ctx, id, func(live store.LiveSession) error {
		if err := live.Session.Abandon(); err != nil {
			return err
		}
		abandoned = live
		return nil
	})
	if err != nil {
		return practicesession.Score{}, err
	}

	s.archive(ctx, abandoned)
	return abandoned.Session.Score(), nil
}

func (s *SessionService) Score(ctx context.Context, id string) (practicesession.Score, error) {
	live, err := s.registry.Get(ctx, id)
	if err != nil {
		return practicesession.Score{}, err
	}
	return live.Session.Score(), nil
}

func (s *SessionService) Missed(ctx context.Context, id string) ([]questionbank.Ref, []questionbank.Question, error) {
	live, err := s.registry.Get(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	refs, err := live.Session.MissedRefs()
	if err != nil {
		return nil, nil, err
	}
	questions, err := live.Session.Missed()
	if err != nil {
		return nil, nil, err
	}
	return refs, questions, nil
}

// Retry starts a new session for the same user over the questions the
// given completed session got wrong.
func (s *SessionService) Retry(ctx context.Context, id string) (*practicesession.PracticeSession, error) {
	live, err := s.registry.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	config, ok, err := practicesession.RetryConfig(s.repo, live.Session)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrNothingMissed
	}
	return s.Start(ctx, live.UserID, config)
}

// Discard removes a live session. A session still in progress is abandoned
// and archived first.
func (s *SessionService) Discard(ctx context.Context, id string) error {
	var abandoned store.LiveSession
	err := s.registry.Update(ctx, id, func(live store.LiveSession) error {
		if live.Session.State() == practicesession.StateCompleted {
			return nil
		}
		if err := live.Session.Abandon(); err != nil {
			return err
		}
		abandoned = live
		return nil
	})
	if err != nil {
		return err
	}
	if abandoned.Session != nil {
		s.archive(ctx, abandoned)
	}
	return s.registry.Delete(ctx, id)
}

func (s *SessionService) History(ctx context.Context, userID string) ([]*store.Attempt, error) {
	return s.store.ListAttempts(ctx, userID)
}

// Attempt returns one archived attempt with its answers. Attempts of other
// users are reported as not found.
func (s *SessionService) Attempt(ctx context.Context, userID, attemptID string) (*store.Attempt, error) {
	attempt, err := s.store.GetAttempt(ctx, attemptID)
	if err != nil {
		return nil, err
	}
	if attempt.UserID != userID {
		return nil, fmt.Errorf("attempt %s: %w", attemptID, store.ErrNotFound)
	}
	return attempt, nil
}

// ThemeStats summarizes a user's mastery of one theme from archived attempts.
func (s *SessionService) ThemeStats(ctx context.Context, userID, categoryKey, themeID string) (questionbank.ThemeStats, error) {
	questions, err := s.repo.Questions(categoryKey, themeID)
	if err != nil {
		return questionbank.ThemeStats{}, err
	}
	stats, err := s.store.QuestionStats(ctx, userID, categoryKey, themeID)
	if err != nil {
		return questionbank.ThemeStats{}, err
	}
	return questionbank.SummarizeTheme(categoryKey, themeID, len(questions), stats), nil
}

// archive stores the attempt and publishes the completion event. It must
// outlive the request that completed the session.
func (s *SessionService) archive(ctx context.Context, live store.LiveSession) {
	ctx = context.WithoutCancel(ctx)
	finishedAt := s.now()
	attempt := store.NewAttempt(live.UserID, live.Session, finishedAt)

	metrics.ObserveCompletion(attempt.Abandoned, attempt.Score.Percentage, attempt.Score.Answered)
	s.logger.Info("session completed",
		"session_id", attempt.ID,
		"user_id", attempt.UserID,
		"answered", attempt.Score.Answered,
		"correct", attempt.Score.Correct,
		"abandoned", attempt.Abandoned,
	)

	if err := s.store.SaveAttempt(ctx, attempt); err != nil {
		s.logger.Error("failed to archive attempt",
			"session_id", attempt.ID,
			"error", err,
		)
	}
	s.publish(ctx, event.Event{
		Type:       event.SessionCompleted,
		SessionID:  attempt.ID,
		UserID:     attempt.UserID,
		OccurredAt: finishedAt,
		Payload:    attempt.Score,
	})
}

func (s *SessionService) publish(ctx context.Context, ev event.Event) {
	if err := s.publisher.Publish(ctx, ev); err != nil {
		s.logger.Error("failed to publish event",
			"type", ev.Type,
			"session_id", ev.SessionID,
			"error", err,
		)
	}
}
