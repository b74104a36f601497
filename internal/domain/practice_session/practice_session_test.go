package practicesession_test

import (
	"errors"
	"fmt"
	"testing"

	practicesession "github.com/opobank/backend/internal/domain/practice_session"
	"github.com/opobank/backend/internal/domain/questionbank"
)

func demoRepo(t *testing.T) *questionbank.Repository {
	t.Helper()
	repo, err := questionbank.Load(questionbank.Bank{
		Categories: []questionbank.Category{{
			Key: "demo",
			Themes: []questionbank.Theme{{
				ID:   "t1",
				Name: "Theme 1",
				Questions: []questionbank.Question{
					{ID: "q1", Prompt: "first", Options: []string{"A", "B"}, Correct: 0, Explanation: "A is right"},
					{ID: "q2", Prompt: "second", Options: []string{"C", "D"}, Correct: 1},
				},
			}},
		}},
	})
	if err != nil {
		t.Fatalf("load bank: %v", err)
	}
	return repo
}

// createRepoWithQuestions builds a bank with two themes of n questions each.
// Both themes reuse the same question ids.
func createRepoWithQuestions(t *testing.T, n int) *questionbank.Repository {
	t.Helper()
	themes := make([]questionbank.Theme, 2)
	for ti := range themes {
		themes[ti] = questionbank.Theme{ID: fmt.Sprintf("t%d", ti+1), Name: fmt.Sprintf("Theme %d", ti+1)}
		for i := 0; i < n; i++ {
			themes[ti].Questions = append(themes[ti].Questions, questionbank.Question{
				ID:      fmt.Sprintf("q%d", i+1),
				Prompt:  fmt.Sprintf("Question %d.%d", ti+1, i+1),
				Options: []string{"a", "b", "c", "d"},
				Correct: i % 4,
			})
		}
	}
	repo, err := questionbank.Load(questionbank.Bank{
		Categories: []questionbank.Category{{Key: "big", Themes: themes}},
	})
	if err != nil {
		t.Fatalf("load bank: %v", err)
	}
	return repo
}

func intPtr(v int) *int { return &v }

func seedPtr(v uint64) *uint64 { return &v }

func demoSource() practicesession.Source {
	return practicesession.Source{Category: "demo", Theme: "t1"}
}

func TestStart_Scenario(t *testing.T) {
	repo := demoRepo(t)

	session, err := practicesession.Start(repo, practicesession.DefaultConfig(demoSource()))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if session.State() != practicesession.StateCreated {
		t.Errorf("expected state created, got %s", session.State())
	}

	questions := session.Questions()
	if len(questions) != 2 || questions[0].Ref.Question != "q1" || questions[1].Ref.Question != "q2" {
		t.Fatalf("expected q1 then q2, got %+v", questions)
	}

	if err := session.Answer("q1", 1); err != nil {
		t.Fatalf("answer q1: %v", err)
	}
	if session.State() != practicesession.StateInProgress {
		t.Errorf("expected state in_progress, got %s", session.State())
	}
	if err := session.Answer("q2", 1); err != nil {
		t.Fatalf("answer q2: %v", err)
	}
	if session.State() != practicesession.StateCompleted {
		t.Errorf("expected state completed, got %s", session.State())
	}

	score := session.Score()
	want := practicesession.Score{Answered: 2, Correct: 1, Unanswered: 0, Total: 2, Percentage: 50}
	if score != want {
		t.Errorf("expected %+v, got %+v", want, score)
	}

	missed, err := session.Missed()
	if err != nil {
		t.Fatalf("missed: %v", err)
	}
	if len(missed) != 1 || missed[0].ID != "q1" || missed[0].Explanation != "A is right" {
		t.Errorf("expected [q1] with explanation, got %+v", missed)
	}
}

func TestStart_UnknownTheme(t *testing.T) {
	repo := demoRepo(t)

	session, err := practicesession.Start(repo, practicesession.DefaultConfig(
		demoSource(),
		practicesession.Source{Category: "demo", Theme: "nope"},
	))
	if !errors.Is(err, practicesession.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if session != nil {
		t.Error("expected no session")
	}
}

func TestStart_EmptySelection(t *testing.T) {
	repo := demoRepo(t)

	config := practicesession.DefaultConfig(demoSource())
	config.ExcludeIDs = []string{"q1", "demo/t1/q2"}

	if _, err := practicesession.Start(repo, config); !errors.Is(err, practicesession.ErrEmptySelection) {
		t.Errorf("expected ErrEmptySelection, got %v", err)
	}

	if _, err := practicesession.Start(repo, practicesession.DefaultConfig()); !errors.Is(err, practicesession.ErrEmptySelection) {
		t.Errorf("expected ErrEmptySelection without sources, got %v", err)
	}
}

func TestStart_UnshuffledMatchesRepositoryOrder(t *testing.T) {
	repo := createRepoWithQuestions(t, 10)

	session, err := practicesession.Start(repo, practicesession.DefaultConfig(
		practicesession.Source{Category: "big", Theme: "t2"},
		practicesession.Source{Category: "big", Theme: "t1"},
	))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want, _ := repo.QuestionsIn("big", "t2", "t1")
	got := session.Questions()
	if len(got) != len(want) {
		t.Fatalf("expected %d questions, got %d", len(want), len(got))
	}
	for i := range want {
		if got[i].Question.Prompt != want[i].Prompt {
			t.Fatalf("position %d: expected %q, got %q", i, want[i].Prompt, got[i].Question.Prompt)
		}
		if got[i].CorrectIndex() != want[i].Correct {
			t.Errorf("position %d: option order changed without shuffle", i)
		}
	}
}

func TestStart_DuplicateSourcesCollapse(t *testing.T) {
	repo := demoRepo(t)

	session, err := practicesession.Start(repo, practicesession.DefaultConfig(demoSource(), demoSource()))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if session.Score().Total != 2 {
		t.Errorf("expected 2 questions, got %d", session.Score().Total)
	}
}

func TestStart_SampleSize(t *testing.T) {
	repo := createRepoWithQuestions(t, 50)

	config := practicesession.DefaultConfig(practicesession.Source{Category: "big", Theme: "t1"})
	config.SampleSize = intPtr(15)

	session, err := practicesession.Start(repo, config)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if session.Score().Total != 15 {
		t.Errorf("expected 15 questions, got %d", session.Score().Total)
	}

	config.SampleSize = intPtr(500)
	session, err = practicesession.Start(repo, config)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if session.Score().Total != 50 {
		t.Errorf("expected all 50 questions, got %d", session.Score().Total)
	}
}

func TestStart_SameSeedSameOrder(t *testing.T) {
	repo := createRepoWithQuestions(t, 20)

	config := practicesession.DefaultConfig(practicesession.Source{Category: "big", Theme: "t1"})
	config.Shuffle = true
	config.Seed = seedPtr(42)

	a, err := practicesession.Start(repo, config)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	b, err := practicesession.Start(repo, config)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	qa, qb := a.Questions(), b.Questions()
	for i := range qa {
		if qa[i].Ref != qb[i].Ref {
			t.Fatalf("position %d differs: %s vs %s", i, qa[i].Ref, qb[i].Ref)
		}
		if fmt.Sprint(qa[i].Options()) != fmt.Sprint(qb[i].Options()) {
			t.Fatalf("option order differs for %s", qa[i].Ref)
		}
	}
	if a.Seed != 42 {
		t.Errorf("expected seed 42 recorded, got %d", a.Seed)
	}
}

func TestStart_ShuffleRandomizes(t *testing.T) {
	repo := createRepoWithQuestions(t, 20)

	config := practicesession.DefaultConfig(practicesession.Source{Category: "big", Theme: "t1"})
	config.Shuffle = true

	// Statistically almost certain with 20 questions
	first, _ := practicesession.Start(repo, config)
	foundDifferentOrder := false
	for i := 0; i < 10; i++ {
		session, _ := practicesession.Start(repo, config)
		if !sameOrder(first.Questions(), session.Questions()) {
			foundDifferentOrder = true
			break
		}
	}
	if !foundDifferentOrder {
		t.Error("expected questions to be randomized across sessions")
	}
}

func TestStart_ShuffledOptionsKeepCorrectAnswer(t *testing.T) {
	repo := createRepoWithQuestions(t, 8)

	config := practicesession.DefaultConfig(practicesession.Source{Category: "big", Theme: "t1"})
	config.Shuffle = true
	config.Seed = seedPtr(7)

	session, err := practicesession.Start(repo, config)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	for _, sq := range session.Questions() {
		idx := sq.CorrectIndex()
		if sq.Options()[idx] != sq.Question.Options[sq.Question.Correct] {
			t.Fatalf("%s: displayed correct option %q does not match bank", sq.Ref, sq.Options()[idx])
		}
		if err := session.Answer(sq.Ref.String(), idx); err != nil {
			t.Fatalf("answer %s: %v", sq.Ref, err)
		}
	}

	if score := session.Score(); score.Correct != score.Total || score.Percentage != 100 {
		t.Errorf("expected perfect score, got %+v", score)
	}
}

func TestAnswer_Errors(t *testing.T) {
	repo := demoRepo(t)
	session, _ := practicesession.Start(repo, practicesession.DefaultConfig(demoSource()))

	if err := session.Answer("q9", 0); !errors.Is(err, practicesession.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
	if err := session.Answer("q1", 2); !errors.Is(err, practicesession.ErrInvalidOption) {
		t.Errorf("expected ErrInvalidOption, got %v", err)
	}
	if err := session.Answer("q1", -1); !errors.Is(err, practicesession.ErrInvalidOption) {
		t.Errorf("expected ErrInvalidOption for negative index, got %v", err)
	}
	if session.Score().Answered != 0 {
		t.Error("failed answers must not be recorded")
	}

	if err := session.Answer("q1", 0); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := session.Answer("q1", 1); !errors.Is(err, practicesession.ErrAlreadyAnswered) {
		t.Errorf("expected ErrAlreadyAnswered, got %v", err)
	}
	if score := session.Score(); score.Answered != 1 || score.Correct != 1 {
		t.Errorf("second answer must not overwrite the first, got %+v", score)
	}
}

func TestAnswer_AlreadyAnsweredOnLastQuestion(t *testing.T) {
	repo := demoRepo(t)
	session, _ := practicesession.Start(repo, practicesession.DefaultConfig(demoSource()))

	session.Answer("q1", 0)
	session.Answer("q2", 0)
	if err := session.Answer("q2", 1); !errors.Is(err, practicesession.ErrAlreadyAnswered) {
		t.Errorf("expected ErrAlreadyAnswered on completed session, got %v", err)
	}
}

func TestAnswer_AmbiguousBareID(t *testing.T) {
	repo := createRepoWithQuestions(t, 2)
	session, err := practicesession.Start(repo, practicesession.DefaultConfig(
		practicesession.Source{Category: "big", Theme: "t1"},
		practicesession.Source{Category: "big", Theme: "t2"},
	))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if err := session.Answer("q1", 0); !errors.Is(err, practicesession.ErrAmbiguousQuestion) {
		t.Errorf("expected ErrAmbiguousQuestion, got %v", err)
	}
	if err := session.Answer("big/t2/q1", 0); err != nil {
		t.Errorf("expected full ref to resolve, got %v", err)
	}
}

func TestQuestion_Lookup(t *testing.T) {
	repo := createRepoWithQuestions(t, 2)
	session, _ := practicesession.Start(repo, practicesession.DefaultConfig(
		practicesession.Source{Category: "big", Theme: "t1"},
	))
	session.Answer("q2", 1)

	sq, err := session.Question("big/t1/q2")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if sel, ok := sq.Selected(); !ok || sel != 1 || !sq.IsCorrect() {
		t.Errorf("unexpected answer state for q2: selected=%d ok=%v correct=%v", sel, ok, sq.IsCorrect())
	}

	if _, err := session.Question("q9"); !errors.Is(err, practicesession.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestCurrent_FollowsUnansweredQuestions(t *testing.T) {
	repo := createRepoWithQuestions(t, 3)
	session, _ := practicesession.Start(repo, practicesession.DefaultConfig(
		practicesession.Source{Category: "big", Theme: "t1"},
	))

	cur, ok := session.Current()
	if !ok || cur.Ref.Question != "q1" {
		t.Fatalf("expected q1 first, got %+v", cur.Ref)
	}

	session.Answer("q2", 0)
	cur, _ = session.Current()
	if cur.Ref.Question != "q1" {
		t.Errorf("answering out of order should keep cursor on q1, got %s", cur.Ref.Question)
	}

	session.Answer("q1", 0)
	cur, _ = session.Current()
	if cur.Ref.Question != "q3" {
		t.Errorf("expected cursor on q3, got %s", cur.Ref.Question)
	}

	session.Answer("q3", 0)
	if _, ok := session.Current(); ok {
		t.Error("expected no current question on completed session")
	}
}

func TestScore_Invariants(t *testing.T) {
	repo := createRepoWithQuestions(t, 6)
	session, _ := practicesession.Start(repo, practicesession.DefaultConfig(
		practicesession.Source{Category: "big", Theme: "t1"},
	))

	if score := session.Score(); score.Percentage != 0 || score.Answered != 0 {
		t.Errorf("expected zero score before answering, got %+v", score)
	}

	for i, sq := range session.Questions() {
		session.Answer(sq.Ref.Question, i%2)

		first := session.Score()
		second := session.Score()
		if first != second {
			t.Fatalf("score is not idempotent: %+v vs %+v", first, second)
		}
		if first.Answered+first.Unanswered != first.Total {
			t.Fatalf("answered + unanswered != total: %+v", first)
		}
		if first.Percentage < 0 || first.Percentage > 100 {
			t.Fatalf("percentage out of range: %+v", first)
		}
	}
}

func TestMissed_RequiresCompletion(t *testing.T) {
	repo := demoRepo(t)
	session, _ := practicesession.Start(repo, practicesession.DefaultConfig(demoSource()))
	session.Answer("q1", 1)

	if _, err := session.Missed(); !errors.Is(err, practicesession.ErrNotCompleted) {
		t.Errorf("expected ErrNotCompleted, got %v", err)
	}
}

func TestMissed_ExactlyWrongAnswers(t *testing.T) {
	repo := createRepoWithQuestions(t, 12)
	session, _ := practicesession.Start(repo, practicesession.DefaultConfig(
		practicesession.Source{Category: "big", Theme: "t1"},
	))

	wrong := make(map[string]bool)
	for i, sq := range session.Questions() {
		choice := sq.CorrectIndex()
		if i%3 == 0 {
			choice = (choice + 1) % 4
			wrong[sq.Ref.Question] = true
		}
		if err := session.Answer(sq.Ref.Question, choice); err != nil {
			t.Fatalf("answer: %v", err)
		}
	}

	missed, err := session.Missed()
	if err != nil {
		t.Fatalf("missed: %v", err)
	}
	if len(missed) != len(wrong) {
		t.Fatalf("expected %d missed, got %d", len(wrong), len(missed))
	}
	for _, q := range missed {
		if !wrong[q.ID] {
			t.Errorf("correctly answered %s reported as missed", q.ID)
		}
	}
}

func TestAbandon(t *testing.T) {
	repo := demoRepo(t)
	session, _ := practicesession.Start(repo, practicesession.DefaultConfig(demoSource()))
	session.Answer("q2", 0)

	if err := session.Abandon(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if session.State() != practicesession.StateCompleted {
		t.Errorf("expected completed, got %s", session.State())
	}

	score := session.Score()
	want := practicesession.Score{Answered: 1, Correct: 0, Unanswered: 1, Total: 2, Percentage: 0}
	if score != want {
		t.Errorf("expected %+v, got %+v", want, score)
	}

	missed, err := session.Missed()
	if err != nil {
		t.Fatalf("missed: %v", err)
	}
	if len(missed) != 1 || missed[0].ID != "q2" {
		t.Errorf("expected only q2 missed, got %+v", missed)
	}

	if err := session.Answer("q1", 0); !errors.Is(err, practicesession.ErrSessionCompleted) {
		t.Errorf("expected ErrSessionCompleted, got %v", err)
	}
	if err := session.Abandon(); !errors.Is(err, practicesession.ErrSessionCompleted) {
		t.Errorf("expected ErrSessionCompleted on second abandon, got %v", err)
	}
}

func TestRetryConfig(t *testing.T) {
	repo := createRepoWithQuestions(t, 4)
	session, _ := practicesession.Start(repo, practicesession.DefaultConfig(
		practicesession.Source{Category: "big", Theme: "t1"},
		practicesession.Source{Category: "big", Theme: "t2"},
	))

	for _, sq := range session.Questions() {
		choice := sq.CorrectIndex()
		if sq.Ref.String() == "big/t1/q2" || sq.Ref.String() == "big/t2/q4" {
			choice = (choice + 1) % 4
		}
		session.Answer(sq.Ref.String(), choice)
	}

	config, ok, err := practicesession.RetryConfig(repo, session)
	if err != nil || !ok {
		t.Fatalf("expected retry config, got ok=%v err=%v", ok, err)
	}

	retry, err := practicesession.Start(repo, config)
	if err != nil {
		t.Fatalf("start retry: %v", err)
	}
	got := retry.Questions()
	if len(got) != 2 || got[0].Ref.String() != "big/t1/q2" || got[1].Ref.String() != "big/t2/q4" {
		t.Errorf("unexpected retry questions: %+v", got)
	}
}

func TestRetryConfig_NothingMissed(t *testing.T) {
	repo := demoRepo(t)
	session, _ := practicesession.Start(repo, practicesession.DefaultConfig(demoSource()))
	session.Answer("q1", 0)
	session.Answer("q2", 1)

	_, ok, err := practicesession.RetryConfig(repo, session)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ok {
		t.Error("expected no retry when nothing was missed")
	}
}

func TestSnapshot_RoundTrip(t *testing.T) {
	repo := createRepoWithQuestions(t, 5)
	config := practicesession.DefaultConfig(practicesession.Source{Category: "big", Theme: "t1"})
	config.Shuffle = true
	config.Seed = seedPtr(99)

	session, _ := practicesession.Start(repo, config)
	questions := session.Questions()
	session.Answer(questions[0].Ref.Question, questions[0].CorrectIndex())
	session.Answer(questions[1].Ref.Question, (questions[1].CorrectIndex()+1)%4)

	restored, err := practicesession.Restore(repo, session.Snapshot())
	if err != nil {
		t.Fatalf("restore: %v", err)
	}

	if restored.Score() != session.Score() {
		t.Errorf("score differs: %+v vs %+v", restored.Score(), session.Score())
	}
	if restored.State() != session.State() || restored.ID != session.ID || restored.Seed != 99 {
		t.Errorf("metadata differs after restore")
	}
	if !sameOrder(restored.Questions(), questions) {
		t.Error("question order differs after restore")
	}
	for i, sq := range restored.Questions() {
		if fmt.Sprint(sq.Options()) != fmt.Sprint(questions[i].Options()) {
			t.Errorf("option order differs for %s", sq.Ref)
		}
	}
	cur, _ := restored.Current()
	want, _ := session.Current()
	if cur.Ref != want.Ref {
		t.Errorf("cursor differs: %s vs %s", cur.Ref, want.Ref)
	}
}

func TestRestore_RejectsForeignSnapshot(t *testing.T) {
	repo := demoRepo(t)
	session, _ := practicesession.Start(repo, practicesession.DefaultConfig(demoSource()))

	snap := session.Snapshot()
	snap.Questions[0].Ref.Question = "gone"
	if _, err := practicesession.Restore(repo, snap); !errors.Is(err, practicesession.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}

	snap = session.Snapshot()
	snap.Questions[0].OptionOrder = []int{0, 0}
	if _, err := practicesession.Restore(repo, snap); err == nil {
		t.Error("expected error for broken option order")
	}
}

// Helper to check if two question slices have the same order
func sameOrder(a, b []practicesession.SessionQuestion) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i].Ref != b[i].Ref {
			return false
		}
	}
	return true
}
