package practicesession

import (
	"fmt"
	"time"

	"github.com/opobank/backend/internal/domain/questionbank"
)

// Snapshot is the serializable form of a session. Questions are stored by
// reference and resolved again against the bank on Restore.
type Snapshot struct {
	ID        string             `json:"id"`
	CreatedAt time.Time          `json:"created_at"`
	Seed      uint64             `json:"seed"`
	Shuffled  bool               `json:"shuffled"`
	State     State              `json:"state"`
	Cursor    int                `json:"cursor"`
	Questions []QuestionSnapshot `json:"questions"`
}

type QuestionSnapshot struct {
	Ref         questionbank.Ref `json:"ref"`
	OptionOrder []int            `json:"option_order"`
	Selected    *int             `json:"selected,omitempty"`
}

func (s *PracticeSession) Snapshot() Snapshot {
	snap := Snapshot{
		ID:        s.ID,
		CreatedAt: s.CreatedAt,
		Seed:      s.Seed,
		Shuffled:  s.Shuffled,
		State:     s.state,
		Cursor:    s.cursor,
		Questions: make([]QuestionSnapshot, len(s.questions)),
	}
	for i, sq := range s.questions {
		qs := QuestionSnapshot{
			Ref:         sq.Ref,
			OptionOrder: append([]int(nil), sq.order...),
		}
		if sq.selected != nil {
			sel := *sq.selected
			qs.Selected = &sel
		}
		snap.Questions[i] = qs
	}
	return snap
}

// Restore rebuilds a session from a snapshot taken against the same bank.
func Restore(repo *questionbank.Repository, snap Snapshot) (*PracticeSession, error) {
	switch snap.State {
	case StateCreated, StateInProgress, StateCompleted:
	default:
		return nil, fmt.Errorf("restore session %s: unknown state %q", snap.ID, snap.State)
	}
	if len(snap.Questions) == 0 {
		return nil, fmt.Errorf("restore session %s: %w", snap.ID, ErrEmptySelection)
	}

	session := &PracticeSession{
		ID:        snap.ID,
		CreatedAt: snap.CreatedAt,
		Seed:      snap.Seed,
		Shuffled:  snap.Shuffled,
		state:     snap.State,
		cursor:    snap.Cursor,
		questions: make([]SessionQuestion, len(snap.Questions)),
	}

	for i, qs := range snap.Questions {
		q, err := repo.Question(qs.Ref)
		if err != nil {
			return nil, fmt.Errorf("restore session %s: %w", snap.ID, err)
		}
		if !isPermutation(qs.OptionOrder, len(q.Options)) {
			return nil, fmt.Errorf("restore session %s: option order of %s does not match the bank", snap.ID, qs.Ref)
		}

		sq := SessionQuestion{
			Ref:      qs.Ref,
			Question: q,
			order:    append([]int(nil), qs.OptionOrder...),
		}
		if qs.Selected != nil {
			sel := *qs.Selected
			if sel < 0 || sel >= len(sq.order) {
				return nil, fmt.Errorf("restore session %s: %w for %s", snap.ID, ErrInvalidOption, qs.Ref)
			}
			sq.selected = &sel
			sq.correct = sq.order[sel] == q.Correct
			session.answered++
			if sq.correct {
				session.correct++
			}
		}
		session.questions[i] = sq
	}

	if session.cursor < 0 || session.cursor > len(session.questions) {
		session.cursor = 0
	}
	return session, nil
}

func isPermutation(order []int, n int) bool {
	if len(order) != n {
		return false
	}
	seen := make([]bool, n)
	for _, v := range order {
		if v < 0 || v >= n || seen[v] {
			return false
		}
		seen[v] = true
	}
	return true
}
