package main

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"tunebind/internal/bench"
	"tunebind/internal/config"
)

func newBenchCommand(ctx *commandContext) *cobra.Command {
	var runs int

	cmd := &cobra.Command{
		Use:   "bench <corpus.yaml>",
		Short: "Replay a resolver regression corpus and check determinism",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			path, err := config.ExpandPath(args[0])
			if err != nil {
				return err
			}
			corpus, err := bench.Load(path)
			if err != nil {
				return err
			}
			report, err := bench.Run(cmd.Context(), cfg, corpus, bench.Options{Runs: runs, Logger: ctx.logger(cmd)})
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			colorize := shouldColorize(out)
			rows := make([][]string, 0, len(report.Cases))
			for _, c := range report.Cases {
				rows = append(rows, []string{c.Name, c.Expected, strings.Join(c.Observed(), ", "), benchVerdict(c, colorize)})
			}
			fmt.Fprint(out, renderTable(
				[]string{"Case", "Expected", "Observed", "Result"},
				rows,
				[]columnAlignment{alignLeft, alignLeft, alignLeft, alignLeft},
			))
			fmt.Fprintf(out, "%d/%d cases passed across %d runs\n", report.Passed(), len(report.Cases), report.Runs)
			if !report.OK() {
				return errors.New("bench failed")
			}
			return nil
		},
	}

	cmd.Flags().IntVar(&runs, "runs", 0, "Override the corpus run count")
	return cmd
}

func benchVerdict(c bench.CaseResult, colorize bool) string {
	kind, label := statusOK, "pass"
	switch {
	case !c.Deterministic():
		kind, label = statusError, "nondeterministic"
	case !c.Passed:
		kind, label = statusError, "fail"
	}
	if colorize {
		return statusKinds[kind].style.Render(label)
	}
	return label
}
