package practicesession

// Source selects one theme of one category to draw questions from.
type Source struct {
	Category string `json:"category"`
	Theme    string `json:"theme"`
}

// SessionConfig holds the selection and ordering options for a session.
type SessionConfig struct {
	Sources    []Source // themes to draw from, in order
	SampleSize *int     // nil = all selected questions
	Shuffle    bool     // randomize question and option order
	Seed       *uint64  // nil = random seed; only used when Shuffle is set
	ExcludeIDs []string // bare question ids or full category/theme/question refs
}

// DefaultConfig returns a config drawing from the given sources with no
// constraints and no shuffling.
func DefaultConfig(sources ...Source) SessionConfig {
	return SessionConfig{
		Sources:    sources,
		SampleSize: nil,
		Shuffle:    false,
		Seed:       nil,
		ExcludeIDs: nil,
	}
}
