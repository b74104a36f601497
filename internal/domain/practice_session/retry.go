package practicesession

import (
	"github.com/opobank/backend/internal/domain/questionbank"
)

// RetryConfig builds the config for a follow-up session over the questions
// a completed session got wrong. Sources are the themes those questions
// came from; every other question of those themes is excluded. The second
// return value is false when nothing was missed.
func RetryConfig(repo *questionbank.Repository, session *PracticeSession) (SessionConfig, bool, error) {
	missed, err := session.MissedRefs()
	if err != nil {
		return SessionConfig{}, false, err
	}
	if len(missed) == 0 {
		return SessionConfig{}, false, nil
	}

	keep := make(map[questionbank.Ref]bool, len(missed))
	var sources []Source
	seen := make(map[Source]bool)
	for _, ref := range missed {
		keep[ref] = true
		src := Source{Category: ref.Category, Theme: ref.Theme}
		if !seen[src] {
			seen[src] = true
			sources = append(sources, src)
		}
	}

	var exclude []string
	for _, src := range sources {
		questions, err := repo.Questions(src.Category, src.Theme)
		if err != nil {
			return SessionConfig{}, false, err
		}
		for _, q := range questions {
			ref := questionbank.Ref{Category: src.Category, Theme: src.Theme, Question: q.ID}
			if !keep[ref] {
				exclude = append(exclude, ref.String())
			}
		}
	}

	config := DefaultConfig(sources...)
	config.ExcludeIDs = exclude
	config.Shuffle = session.Shuffled
	return config, true, nil
}
