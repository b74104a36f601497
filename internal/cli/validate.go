package cli

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"runtime"
	"strconv"

	"github.com/opobank/backend/internal/bankfile"
	"github.com/opobank/backend/internal/domain/questionbank"
	"github.com/opobank/backend/internal/worker"
)

type fileResult struct {
	stats questionbank.Stats
	err   error
}

// runValidate builds the handler for the validate command. Files are
// checked concurrently but reported in argument order.
func runValidate(cmd *Command) func(args []string, stdout, stderr io.Writer) int {
	return func(args []string, stdout, stderr io.Writer) int {
		flags := flag.NewFlagSet(cmd.Name, flag.ContinueOnError)
		flags.SetOutput(stderr)
		workers := flags.Int("workers", runtime.NumCPU(), "Number of files validated in parallel")
		if err := flags.Parse(args); err != nil {
			if err == flag.ErrHelp {
				printCommandUsage(cmd, stdout)
				return ExitOK
			}
			fmt.Fprintf(stderr, "invalid arguments: %v\n", err)
			printCommandUsage(cmd, stderr)
			return ExitUsage
		}
		paths := flags.Args()
		if len(paths) == 0 {
			fmt.Fprintln(stderr, "at least one bank file is required")
			printCommandUsage(cmd, stderr)
			return ExitUsage
		}

		pool := worker.NewPool[fileResult](*workers, len(paths))
		for i, path := range paths {
			pool.Submit(strconv.Itoa(i), func() fileResult {
				repo, err := bankfile.LoadFile(path)
				if err != nil {
					return fileResult{err: err}
				}
				return fileResult{stats: repo.Stats()}
			})
		}
		pool.Close()

		results := make([]fileResult, len(paths))
		for res := range pool.Results() {
			i, _ := strconv.Atoi(res.JobID)
			results[i] = res.Output
		}

		code := ExitOK
		for i, path := range paths {
			res := results[i]
			if res.err != nil {
				code = ExitError
				var verr *questionbank.ValidationError
				if errors.As(res.err, &verr) {
					fmt.Fprintf(stderr, "%s: invalid at %s: %s\n", path, verr.Path, verr.Reason)
				} else {
					fmt.Fprintf(stderr, "%s: %v\n", path, res.err)
				}
				continue
			}
			fmt.Fprintf(stdout, "%s: OK (%d categories, %d themes, %d questions)\n",
				path, res.stats.Categories, res.stats.Themes, res.stats.Questions)
		}
		return code
	}
}
