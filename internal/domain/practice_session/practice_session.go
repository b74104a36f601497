package practicesession

import (
	"errors"
	"fmt"
	"math/rand/v2"
	"time"

	"github.com/opobank/backend/internal/domain/questionbank"
	"github.com/opobank/backend/internal/id"
)

var (
	// ErrNotFound is the repository's sentinel so callers can match either.
	ErrNotFound          = questionbank.ErrNotFound
	ErrInvalidOption     = errors.New("selected option out of range")
	ErrAlreadyAnswered   = errors.New("question already answered")
	ErrEmptySelection    = errors.New("no questions match the session selection")
	ErrAmbiguousQuestion = errors.New("question id matches several session questions")
	ErrSessionCompleted  = errors.New("session already completed")
	ErrNotCompleted      = errors.New("session not completed")
)

type State string

const (
	StateCreated    State = "created"
	StateInProgress State = "in_progress"
	StateCompleted  State = "completed"
)

// SessionQuestion is a question plus its answer state inside one session.
// Option indexes exposed here are in displayed order, which differs from
// the bank order when the session shuffles options.
type SessionQuestion struct {
	Ref      questionbank.Ref
	Question questionbank.Question

	order    []int // displayed position -> bank option index
	selected *int  // displayed position
	correct  bool
}

// Options returns the option texts in displayed order.
func (sq SessionQuestion) Options() []string {
	opts := make([]string, len(sq.order))
	for i, orig := range sq.order {
		opts[i] = sq.Question.Options[orig]
	}
	return opts
}

// CorrectIndex is the displayed position of the correct option.
func (sq SessionQuestion) CorrectIndex() int {
	for i, orig := range sq.order {
		if orig == sq.Question.Correct {
			return i
		}
	}
	return -1
}

// Selected returns the displayed index chosen by the user, if any.
func (sq SessionQuestion) Selected() (int, bool) {
	if sq.selected == nil {
		return 0, false
	}
	return *sq.selected, true
}

func (sq SessionQuestion) Answered() bool { return sq.selected != nil }

// IsCorrect reports whether the recorded answer matched. Always false for
// unanswered questions.
func (sq SessionQuestion) IsCorrect() bool { return sq.correct }

func (sq SessionQuestion) matches(questionID string) bool {
	return sq.Ref.Question == questionID || sq.Ref.String() == questionID
}

// Score is the progress report of a session. Percentage is accuracy over
// answered questions only.
type Score struct {
	Answered   int     `json:"answered"`
	Correct    int     `json:"correct"`
	Unanswered int     `json:"unanswered"`
	Total      int     `json:"total"`
	Percentage float64 `json:"percentage"`
}

// PracticeSession is one quiz attempt. It is not safe for concurrent use;
// each session belongs to the caller that started it.
type PracticeSession struct {
	ID        string
	CreatedAt time.Time
	Seed      uint64
	Shuffled  bool

	questions []SessionQuestion
	cursor    int
	state     State
	answered  int
	correct   int
}

// Start builds a new session over the configured sources. Questions are
// resolved in source order, excluded ids are dropped, the rest is shuffled
// if requested and finally truncated to SampleSize.
func Start(repo *questionbank.Repository, config SessionConfig) (*PracticeSession, error) {
	var selected []SessionQuestion
	seen := make(map[Source]bool, len(config.Sources))

	for _, src := range config.Sources {
		if seen[src] {
			continue
		}
		seen[src] = true

		questions, err := repo.Questions(src.Category, src.Theme)
		if err != nil {
			return nil, err
		}
		for _, q := range questions {
			selected = append(selected, SessionQuestion{
				Ref:      questionbank.Ref{Category: src.Category, Theme: src.Theme, Question: q.ID},
				Question: q,
			})
		}
	}

	selected = excludeQuestions(selected, config.ExcludeIDs)

	session := &PracticeSession{
		ID:        id.GenerateID(),
		CreatedAt: time.Now().UTC(),
		Shuffled:  config.Shuffle,
		state:     StateCreated,
	}

	var rng *rand.Rand
	if config.Shuffle {
		session.Seed = rand.Uint64()
		if config.Seed != nil {
			session.Seed = *config.Seed
		}
		rng = newRand(session.Seed)
		rng.Shuffle(len(selected), func(i, j int) {
			selected[i], selected[j] = selected[j], selected[i]
		})
	}

	// Apply sample size if set
	if config.SampleSize != nil && *config.SampleSize > 0 && *config.SampleSize < len(selected) {
		selected = selected[:*config.SampleSize]
	}

	if len(selected) == 0 {
		return nil, ErrEmptySelection
	}

	for i := range selected {
		if rng != nil {
			selected[i].order = rng.Perm(len(selected[i].Question.Options))
		} else {
			selected[i].order = identity(len(selected[i].Question.Options))
		}
	}
	session.questions = selected

	return session, nil
}

// Answer records the user's choice for a question. questionID is either the
// bare question id or the full category/theme/question reference.
func (s *PracticeSession) Answer(questionID string, selectedIndex int) error {
	pos, err := s.find(questionID)
	if err != nil {
		return err
	}
	sq := &s.questions[pos]

	if selectedIndex < 0 || selectedIndex >= len(sq.order) {
		return fmt.Errorf("%w: %d not in [0, %d)", ErrInvalidOption, selectedIndex, len(sq.order))
	}
	if sq.selected != nil {
		return fmt.Errorf("%w: %s", ErrAlreadyAnswered, sq.Ref)
	}
	if s.state == StateCompleted {
		return ErrSessionCompleted
	}

	choice := selectedIndex
	sq.selected = &choice
	sq.correct = sq.order[selectedIndex] == sq.Question.Correct

	s.answered++
	if sq.correct {
		s.correct++
	}

	s.state = StateInProgress
	s.advance()
	if s.answered == len(s.questions) {
		s.state = StateCompleted
	}
	return nil
}

// Score can be called in any state and never changes the session.
func (s *PracticeSession) Score() Score {
	score := Score{
		Answered:   s.answered,
		Correct:    s.correct,
		Unanswered: len(s.questions) - s.answered,
		Total:      len(s.questions),
	}
	if s.answered > 0 {
		score.Percentage = float64(s.correct) / float64(s.answered) * 100
	}
	return score
}

// Missed returns the wrongly answered questions, in session order, once the
// session is completed. Unanswered questions of an abandoned session are
// not included.
func (s *PracticeSession) Missed() ([]questionbank.Question, error) {
	refs, err := s.MissedRefs()
	if err != nil {
		return nil, err
	}
	missed := make([]questionbank.Question, 0, len(refs))
	for _, sq := range s.questions {
		if sq.selected != nil && !sq.correct {
			q := sq.Question
			q.Options = append([]string(nil), q.Options...)
			missed = append(missed, q)
		}
	}
	return missed, nil
}

// MissedRefs is Missed addressed by full reference.
func (s *PracticeSession) MissedRefs() ([]questionbank.Ref, error) {
	if s.state != StateCompleted {
		return nil, ErrNotCompleted
	}
	var refs []questionbank.Ref
	for _, sq := range s.questions {
		if sq.selected != nil && !sq.correct {
			refs = append(refs, sq.Ref)
		}
	}
	return refs, nil
}

// Abandon ends the session early. Unanswered questions stay unanswered.
func (s *PracticeSession) Abandon() error {
	if s.state == StateCompleted {
		return ErrSessionCompleted
	}
	s.state = StateCompleted
	return nil
}

func (s *PracticeSession) State() State { return s.state }

// Current returns the next unanswered question, if any remain.
func (s *PracticeSession) Current() (SessionQuestion, bool) {
	if s.state == StateCompleted || s.cursor >= len(s.questions) {
		return SessionQuestion{}, false
	}
	return s.questions[s.cursor], true
}

// Questions returns a copy of the session questions in session order.
func (s *PracticeSession) Questions() []SessionQuestion {
	out := make([]SessionQuestion, len(s.questions))
	copy(out, s.questions)
	return out
}

// Question looks up a session question by bare id or full reference.
func (s *PracticeSession) Question(questionID string) (SessionQuestion, error) {
	pos, err := s.find(questionID)
	if err != nil {
		return SessionQuestion{}, err
	}
	return s.questions[pos], nil
}

// Clone returns an independent copy of the session.
func (s *PracticeSession) Clone() *PracticeSession {
	c := *s
	c.questions = make([]SessionQuestion, len(s.questions))
	for i, sq := range s.questions {
		if sq.selected != nil {
			sel := *sq.selected
			sq.selected = &sel
		}
		c.questions[i] = sq
	}
	return &c
}

func (s *PracticeSession) find(questionID string) (int, error) {
	found := -1
	for i, sq := range s.questions {
		if sq.Ref.String() == questionID {
			return i, nil
		}
		if sq.matches(questionID) {
			if found >= 0 {
				return 0, fmt.Errorf("%w: %q", ErrAmbiguousQuestion, questionID)
			}
			found = i
		}
	}
	if found < 0 {
		return 0, fmt.Errorf("question %q not in session: %w", questionID, ErrNotFound)
	}
	return found, nil
}

// advance moves the cursor to the next unanswered question, wrapping
// around so out-of-order answers are handled.
func (s *PracticeSession) advance() {
	n := len(s.questions)
	for step := 0; step < n; step++ {
		i := (s.cursor + step) % n
		if s.questions[i].selected == nil {
			s.cursor = i
			return
		}
	}
	s.cursor = n
}

func excludeQuestions(questions []SessionQuestion, excludeIDs []string) []SessionQuestion {
	if len(excludeIDs) == 0 {
		return questions
	}
	excluded := make(map[string]bool, len(excludeIDs))
	for _, qid := range excludeIDs {
		excluded[qid] = true
	}

	kept := questions[:0]
	for _, sq := range questions {
		if excluded[sq.Ref.Question] || excluded[sq.Ref.String()] {
			continue
		}
		kept = append(kept, sq)
	}
	return kept
}

func newRand(seed uint64) *rand.Rand {
	return rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
}

func identity(n int) []int {
	order := make([]int, n)
	for i := range order {
		order[i] = i
	}
	return order
}
