package cli

import (
	"flag"
	"fmt"
	"io"

	"github.com/opobank/backend/internal/bankfile"
)

func runList(cmd *Command) func(args []string, stdout, stderr io.Writer) int {
	return func(args []string, stdout, stderr io.Writer) int {
		flags := flag.NewFlagSet(cmd.Name, flag.ContinueOnError)
		flags.SetOutput(stderr)
		if err := flags.Parse(args); err != nil {
			if err == flag.ErrHelp {
				printCommandUsage(cmd, stdout)
				return ExitOK
			}
			printCommandUsage(cmd, stderr)
			return ExitUsage
		}
		if flags.NArg() < 1 || flags.NArg() > 2 {
			printCommandUsage(cmd, stderr)
			return ExitUsage
		}

		repo, err := bankfile.LoadFile(flags.Arg(0))
		if err != nil {
			fmt.Fprintf(stderr, "Load failed:\n%v\n", err)
			return ExitError
		}

		if flags.NArg() == 1 {
			for key := range repo.Categories() {
				fmt.Fprintln(stdout, key)
			}
			return ExitOK
		}

		themes, err := repo.Themes(flags.Arg(1))
		if err != nil {
			fmt.Fprintf(stderr, "%v\n", err)
			return ExitError
		}
		for _, t := range themes {
			fmt.Fprintf(stdout, "%-12s %3d  %s\n", t.ID, t.QuestionCount, t.Name)
		}
		return ExitOK
	}
}
