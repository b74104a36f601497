package questionbank

// QuestionStats tracks how one user has done on a single question across
// finished sessions. An attempt scores 100 when correct and 0 otherwise.
type QuestionStats struct {
	Ref           Ref
	TimesAnswered int
	TimesCorrect  int
	TotalScore    int // Sum of all scores
	LatestScore   int // Most recent score
	Mastery       int // Calculated mastery level (0-100)
}

// Record folds one more answer into the stats, newest last.
func (qs *QuestionStats) Record(correct bool) {
	score := 0
	if correct {
		score = 100
		qs.TimesCorrect++
	}
	qs.TimesAnswered++
	qs.TotalScore += score
	qs.LatestScore = score
	qs.Mastery = qs.CalculateMastery()
}

// CalculateMastery weighs the latest attempt against the history:
// mastery = (latest_score * 0.6) + (historical_average * 0.4)
func (qs *QuestionStats) CalculateMastery() int {
	if qs.TimesAnswered == 0 {
		return 0
	}

	if qs.TimesAnswered == 1 {
		return qs.LatestScore
	}

	// Historical average (excluding latest)
	historicalAvg := float64(qs.TotalScore-qs.LatestScore) / float64(qs.TimesAnswered-1)

	mastery := int(float64(qs.LatestScore)*0.6 + historicalAvg*0.4)
	if mastery > 100 {
		mastery = 100
	}
	if mastery < 0 {
		mastery = 0
	}
	return mastery
}

// ThemeStats aggregates question stats for one theme.
type ThemeStats struct {
	Category       string
	Theme          string
	TotalQuestions int
	Answered       int // questions answered at least once
	Mastery        int // Average mastery across all questions, unanswered count as 0
}

// SummarizeTheme builds ThemeStats from per-question stats. total is the
// number of questions the theme holds in the bank.
func SummarizeTheme(categoryKey, themeID string, total int, stats []QuestionStats) ThemeStats {
	ts := ThemeStats{Category: categoryKey, Theme: themeID, TotalQuestions: total}
	if total == 0 {
		return ts
	}
	sum := 0
	for _, s := range stats {
		if s.TimesAnswered > 0 {
			ts.Answered++
		}
		sum += s.Mastery
	}
	ts.Mastery = sum / total
	return ts
}
