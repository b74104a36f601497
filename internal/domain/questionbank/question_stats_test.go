package questionbank_test

import (
	"testing"

	"github.com/opobank/backend/internal/domain/questionbank"
)

func TestQuestionStats_FirstAttempt(t *testing.T) {
	var qs questionbank.QuestionStats
	qs.Record(true)

	if qs.Mastery != 100 {
		t.Errorf("expected mastery 100 after one correct answer, got %d", qs.Mastery)
	}
	if qs.TimesAnswered != 1 || qs.TimesCorrect != 1 {
		t.Errorf("unexpected counters: %+v", qs)
	}
}

func TestQuestionStats_WeighsLatest(t *testing.T) {
	var qs questionbank.QuestionStats
	qs.Record(true)
	qs.Record(true)
	qs.Record(false)

	// latest 0 * 0.6 + history 100 * 0.4
	if qs.Mastery != 40 {
		t.Errorf("expected mastery 40, got %d", qs.Mastery)
	}

	qs.Record(true)
	// latest 100 * 0.6 + history 66.6 * 0.4
	if qs.Mastery != 86 {
		t.Errorf("expected mastery 86, got %d", qs.Mastery)
	}
}

func TestSummarizeTheme(t *testing.T) {
	stats := []questionbank.QuestionStats{
		{TimesAnswered: 2, Mastery: 100},
		{TimesAnswered: 1, Mastery: 0},
	}

	ts := questionbank.SummarizeTheme("age-c1", "t1", 4, stats)
	if ts.Answered != 2 {
		t.Errorf("expected 2 answered, got %d", ts.Answered)
	}
	if ts.Mastery != 25 {
		t.Errorf("expected mastery 25, got %d", ts.Mastery)
	}
}
