package questionbank

import (
	"fmt"
	"strings"
)

// refSeparator joins the parts of a Ref; keys and ids must not contain it or
// two different questions could render to the same reference.
const refSeparator = "/"

// ValidationError reports the first invariant violation found by Load.
// Path locates the offending entry as category/theme/question.
type ValidationError struct {
	Path   string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Path == "" {
		return "question bank validation failed: " + e.Reason
	}
	return fmt.Sprintf("question bank validation failed: %s: %s", e.Path, e.Reason)
}

func notFound(kind, key string) error {
	return fmt.Errorf("%s %q: %w", kind, key, ErrNotFound)
}

// Load validates a bank and returns an immutable Repository over a private
// copy of it. Checks run in this order and stop at the first violation:
// category keys, theme ids (and non-empty themes), then per question the
// id, option count, option texts, correct index and id uniqueness. Keys and
// ids may not contain "/", which separates them in a Ref.
//
// Prompt, option and explanation text are kept exactly as given.
func Load(bank Bank) (*Repository, error) {
	index := make(map[string]*categoryIndex, len(bank.Categories))
	for i, c := range bank.Categories {
		if strings.Contains(c.Key, refSeparator) {
			return nil, &ValidationError{Path: c.Key, Reason: "category key contains " + refSeparator}
		}
		if _, dup := index[c.Key]; dup {
			return nil, &ValidationError{Path: c.Key, Reason: "duplicate category key"}
		}
		index[c.Key] = &categoryIndex{pos: i}
	}

	for _, c := range bank.Categories {
		idx := index[c.Key]
		idx.themes = make(map[string]int, len(c.Themes))
		for i, t := range c.Themes {
			path := c.Key + refSeparator + t.ID
			if strings.Contains(t.ID, refSeparator) {
				return nil, &ValidationError{Path: path, Reason: "theme id contains " + refSeparator}
			}
			if _, dup := idx.themes[t.ID]; dup {
				return nil, &ValidationError{Path: path, Reason: "duplicate theme id"}
			}
			if len(t.Questions) == 0 {
				return nil, &ValidationError{Path: path, Reason: "theme has no questions"}
			}
			idx.themes[t.ID] = i
		}
	}

	for _, c := range bank.Categories {
		idx := index[c.Key]
		idx.questions = make([]map[string]int, len(c.Themes))
		for ti, t := range c.Themes {
			seen := make(map[string]int, len(t.Questions))
			for qi, q := range t.Questions {
				if err := validateQuestion(c.Key, t.ID, q, seen); err != nil {
					return nil, err
				}
				seen[q.ID] = qi
			}
			idx.questions[ti] = seen
		}
	}

	return &Repository{
		categories: cloneCategories(bank.Categories),
		index:      index,
	}, nil
}

func validateQuestion(categoryKey, themeID string, q Question, seen map[string]int) error {
	path := categoryKey + refSeparator + themeID + refSeparator + q.ID
	if strings.Contains(q.ID, refSeparator) {
		return &ValidationError{Path: path, Reason: "question id contains " + refSeparator}
	}
	if len(q.Options) < 2 {
		return &ValidationError{Path: path, Reason: fmt.Sprintf("needs at least 2 options, has %d", len(q.Options))}
	}
	for i, opt := range q.Options {
		if opt == "" {
			return &ValidationError{Path: path, Reason: fmt.Sprintf("option %d is empty", i)}
		}
	}
	if q.Correct < 0 || q.Correct >= len(q.Options) {
		return &ValidationError{Path: path, Reason: fmt.Sprintf("correct index %d out of range [0, %d)", q.Correct, len(q.Options))}
	}
	if _, dup := seen[q.ID]; dup {
		return &ValidationError{Path: path, Reason: "duplicate question id"}
	}
	return nil
}

func cloneCategories(categories []Category) []Category {
	out := make([]Category, len(categories))
	for i, c := range categories {
		themes := make([]Theme, len(c.Themes))
		for j, t := range c.Themes {
			t.Questions = cloneQuestions(t.Questions)
			themes[j] = t
		}
		c.Themes = themes
		out[i] = c
	}
	return out
}
