package questionbank

import (
	"errors"
	"iter"
)

var ErrNotFound = errors.New("not found")

// Bank is the raw nested content handed to Load.
type Bank struct {
	Categories []Category `json:"categories" yaml:"categories"`
}

// Category is a top-level exam track, e.g. one corps of the civil service.
type Category struct {
	Key    string  `json:"key" yaml:"key"`
	Themes []Theme `json:"themes" yaml:"themes"`
}

// Theme is a subject module within a category.
type Theme struct {
	ID        string     `json:"id" yaml:"id"`
	Name      string     `json:"name" yaml:"name"`
	Questions []Question `json:"questions" yaml:"questions"`
}

// Question is a single multiple-choice item. Correct is a zero-based index
// into Options.
type Question struct {
	ID          string   `json:"id" yaml:"id"`
	Prompt      string   `json:"prompt" yaml:"prompt"`
	Options     []string `json:"options" yaml:"options"`
	Correct     int      `json:"correct" yaml:"correct"`
	Explanation string   `json:"explanation" yaml:"explanation"`
}

// Ref addresses a question across the whole bank. Question ids are only
// unique within their theme.
type Ref struct {
	Category string `json:"category"`
	Theme    string `json:"theme"`
	Question string `json:"question"`
}

func (r Ref) String() string {
	return r.Category + "/" + r.Theme + "/" + r.Question
}

// ThemeInfo describes a theme without its questions.
type ThemeInfo struct {
	ID            string `json:"id"`
	Name          string `json:"name"`
	QuestionCount int    `json:"question_count"`
}

// Stats summarizes the size of a loaded bank.
type Stats struct {
	Categories int
	Themes     int
	Questions  int
}

// Repository is the validated, read-only view of a bank. It is never
// mutated after Load returns, so it can be shared between goroutines.
type Repository struct {
	categories []Category
	index      map[string]*categoryIndex
}

type categoryIndex struct {
	pos       int
	themes    map[string]int
	questions []map[string]int // per theme position: question id -> position
}

// Categories yields category keys in declared order. The sequence can be
// ranged over any number of times.
func (r *Repository) Categories() iter.Seq[string] {
	return func(yield func(string) bool) {
		for _, c := range r.categories {
			if !yield(c.Key) {
				return
			}
		}
	}
}

// Themes lists the themes of a category in declared order.
func (r *Repository) Themes(categoryKey string) ([]ThemeInfo, error) {
	idx, ok := r.index[categoryKey]
	if !ok {
		return nil, notFound("category", categoryKey)
	}

	themes := r.categories[idx.pos].Themes
	infos := make([]ThemeInfo, len(themes))
	for i, t := range themes {
		infos[i] = ThemeInfo{
			ID:            t.ID,
			Name:          t.Name,
			QuestionCount: len(t.Questions),
		}
	}
	return infos, nil
}

// Questions returns the questions of one theme in declared order.
func (r *Repository) Questions(categoryKey, themeID string) ([]Question, error) {
	theme, err := r.theme(categoryKey, themeID)
	if err != nil {
		return nil, err
	}
	return cloneQuestions(theme.Questions), nil
}

// QuestionsIn aggregates several themes of one category, preserving theme
// order then question order. Either every theme resolves or nothing is
// returned.
func (r *Repository) QuestionsIn(categoryKey string, themeIDs ...string) ([]Question, error) {
	themes := make([]*Theme, 0, len(themeIDs))
	total := 0
	for _, themeID := range themeIDs {
		theme, err := r.theme(categoryKey, themeID)
		if err != nil {
			return nil, err
		}
		themes = append(themes, theme)
		total += len(theme.Questions)
	}

	questions := make([]Question, 0, total)
	for _, theme := range themes {
		questions = append(questions, cloneQuestions(theme.Questions)...)
	}
	return questions, nil
}

// Question looks up a single question by its full reference.
func (r *Repository) Question(ref Ref) (Question, error) {
	theme, err := r.theme(ref.Category, ref.Theme)
	if err != nil {
		return Question{}, err
	}
	idx := r.index[ref.Category]
	pos, ok := idx.questions[idx.themes[ref.Theme]][ref.Question]
	if !ok {
		return Question{}, notFound("question", ref.String())
	}
	return cloneQuestion(theme.Questions[pos]), nil
}

// Stats counts categories, themes and questions.
func (r *Repository) Stats() Stats {
	var s Stats
	s.Categories = len(r.categories)
	for _, c := range r.categories {
		s.Themes += len(c.Themes)
		for _, t := range c.Themes {
			s.Questions += len(t.Questions)
		}
	}
	return s
}

func (r *Repository) theme(categoryKey, themeID string) (*Theme, error) {
	idx, ok := r.index[categoryKey]
	if !ok {
		return nil, notFound("category", categoryKey)
	}
	pos, ok := idx.themes[themeID]
	if !ok {
		return nil, notFound("theme", categoryKey+"/"+themeID)
	}
	return &r.categories[idx.pos].Themes[pos], nil
}

func cloneQuestions(questions []Question) []Question {
	out := make([]Question, len(questions))
	for i, q := range questions {
		out[i] = cloneQuestion(q)
	}
	return out
}

func cloneQuestion(q Question) Question {
	q.Options = append([]string(nil), q.Options...)
	return q
}
