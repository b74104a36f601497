package cli

import (
	"flag"
	"fmt"
	"io"
	"runtime"
	"slices"
	"strings"

	"github.com/opobank/backend/internal/bankfile"
	practicesession "github.com/opobank/backend/internal/domain/practice_session"
	"github.com/opobank/backend/internal/domain/questionbank"
	"github.com/opobank/backend/internal/simulation"
)

func runSimulate(cmd *Command) func(args []string, stdout, stderr io.Writer) int {
	return func(args []string, stdout, stderr io.Writer) int {
		flags := flag.NewFlagSet(cmd.Name, flag.ContinueOnError)
		flags.SetOutput(stderr)
		runs := flags.Int("runs", 100, "Number of simulated sessions")
		accuracy := flags.Float64("accuracy", 0.7, "Probability of answering a question correctly")
		seed := flags.Uint64("seed", 1, "Base seed; run i shuffles and answers with seed+i")
		if err := flags.Parse(args); err != nil {
			if err == flag.ErrHelp {
				printCommandUsage(cmd, stdout)
				return ExitOK
			}
			printCommandUsage(cmd, stderr)
			return ExitUsage
		}
		if flags.NArg() != 3 || *runs < 1 || *accuracy < 0 || *accuracy > 1 {
			printCommandUsage(cmd, stderr)
			return ExitUsage
		}

		repo, err := bankfile.LoadFile(flags.Arg(0))
		if err != nil {
			fmt.Fprintf(stderr, "Load failed:\n%v\n", err)
			return ExitError
		}

		config := practicesession.DefaultConfig(practicesession.Source{Category: flags.Arg(1), Theme: flags.Arg(2)})
		config.Shuffle = true
		summary, err := simulation.RunMany(repo, *runs, runtime.NumCPU(), simulation.Seeded(config, *seed, *accuracy))
		if err != nil {
			fmt.Fprintf(stderr, "Simulation failed: %v\n", err)
			return ExitError
		}

		fmt.Fprintf(stdout, "runs: %d\nmean accuracy: %.1f%%\n", summary.Runs, summary.MeanPercentage)
		refs := make([]questionbank.Ref, 0, len(summary.MissCounts))
		for ref := range summary.MissCounts {
			refs = append(refs, ref)
		}
		slices.SortFunc(refs, func(a, b questionbank.Ref) int {
			if d := summary.MissCounts[b] - summary.MissCounts[a]; d != 0 {
				return d
			}
			return strings.Compare(a.String(), b.String())
		})
		for _, ref := range refs {
			fmt.Fprintf(stdout, "  %-30s missed %d\n", ref, summary.MissCounts[ref])
		}
		return ExitOK
	}
}
