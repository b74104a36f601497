package simulation

import (
	"fmt"
	"math/rand/v2"

	practicesession "github.com/opobank/backend/internal/domain/practice_session"
	"github.com/opobank/backend/internal/domain/questionbank"
	"github.com/opobank/backend/internal/worker"
)

// Strategy picks the displayed option index to answer a question with.
type Strategy func(sq practicesession.SessionQuestion) int

// Accuracy answers correctly with probability p and otherwise picks one of
// the wrong options at random. The result is reproducible for a given seed.
func Accuracy(seed uint64, p float64) Strategy {
	rng := rand.New(rand.NewPCG(seed, seed+1))
	return func(sq practicesession.SessionQuestion) int {
		correct := sq.CorrectIndex()
		n := len(sq.Options())
		if n < 2 || rng.Float64() < p {
			return correct
		}
		wrong := rng.IntN(n - 1)
		if wrong >= correct {
			wrong++
		}
		return wrong
	}
}

type Report struct {
	SessionID string
	Score     practicesession.Score
	Missed    []questionbank.Ref
}

// Run plays one session to completion, always answering the current question.
func Run(repo *questionbank.Repository, config practicesession.SessionConfig, strategy Strategy) (Report, error) {
	session, err := practicesession.Start(repo, config)
	if err != nil {
		return Report{}, err
	}

	for {
		sq, ok := session.Current()
		if !ok {
			break
		}
		if err := session.Answer(sq.Ref.String(), strategy(sq)); err != nil {
			return Report{}, fmt.Errorf("answer %s: %w", sq.Ref, err)
		}
	}

	missed, err := session.MissedRefs()
	if err != nil {
		return Report{}, err
	}
	return Report{SessionID: session.ID, Score: session.Score(), Missed: missed}, nil
}

type Summary struct {
	Runs           int
	MeanPercentage float64
	// MissCounts is how many runs missed each question.
	MissCounts map[questionbank.Ref]int
}

type runOutcome struct {
	run    int
	report Report
	err    error
}

// Setup is the session config and answering strategy of one run.
type Setup struct {
	Config   practicesession.SessionConfig
	Strategy Strategy
}

// Seeded derives each run from seed+run: the strategy draws from that seed
// and, when config shuffles, so do the question and option order. The same
// seed therefore replays the same summary.
func Seeded(config practicesession.SessionConfig, seed uint64, accuracy float64) func(run int) Setup {
	return func(run int) Setup {
		runSeed := seed + uint64(run)
		cfg := config
		cfg.Seed = &runSeed
		return Setup{Config: cfg, Strategy: Accuracy(runSeed, accuracy)}
	}
}

// RunMany plays runs independent sessions on a worker pool, each built by
// setup.
func RunMany(repo *questionbank.Repository, runs, workers int, setup func(run int) Setup) (Summary, error) {
	pool := worker.NewPool[runOutcome](workers, runs)
	for i := 0; i < runs; i++ {
		run := setup(i)
		pool.Submit(fmt.Sprint(i), func() runOutcome {
			report, err := Run(repo, run.Config, run.Strategy)
			return runOutcome{run: i, report: report, err: err}
		})
	}
	pool.Close()

	summary := Summary{Runs: runs, MissCounts: make(map[questionbank.Ref]int)}
	// Scores are summed in run order so the mean does not depend on
	// which worker finished first.
	percentages := make([]float64, runs)
	var firstErr error
	for res := range pool.Results() {
		if res.Output.err != nil {
			if firstErr == nil {
				firstErr = res.Output.err
			}
			continue
		}
		percentages[res.Output.run] = res.Output.report.Score.Percentage
		for _, ref := range res.Output.report.Missed {
			summary.MissCounts[ref]++
		}
	}
	if firstErr != nil {
		return Summary{}, firstErr
	}
	if runs > 0 {
		var total float64
		for _, p := range percentages {
			total += p
		}
		summary.MeanPercentage = total / float64(runs)
	}
	return summary, nil
}
