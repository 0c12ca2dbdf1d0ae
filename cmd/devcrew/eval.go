package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/BaSui01/devcrew/agent/evaluation"
	"github.com/BaSui01/devcrew/types"
)

func newEvalCmd() *cobra.Command {
	opts := &runOptions{}
	var stopOnFailure bool
	cmd := &cobra.Command{
		Use:   "eval <suite.yaml>",
		Short: "Run an evaluation suite against the crew",
		Long: `Run every task in an evaluation suite, one after another, and report which
ones finished the way they were expected to. The command fails when any task
does not pass.

Examples:
  devcrew eval suites/smoke.yaml
  devcrew eval suites/smoke.yaml --stop-on-failure --json`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runEval(cmd, opts, args[0], stopOnFailure)
		},
	}
	cmd.Flags().BoolVar(&stopOnFailure, "stop-on-failure", false, "Stop at the first task that does not pass")
	opts.bindCommon(cmd)
	return cmd
}

func runEval(cmd *cobra.Command, opts *runOptions, path string, stopOnFailure bool) error {
	suite, err := evaluation.LoadSuite(path)
	if err != nil {
		return err
	}
	tasks := suite.Resolved()
	if opts.maxSteps > 0 {
		for i := range tasks {
			tasks[i].MaxSteps = opts.maxSteps
		}
	}

	return withCrew(cmd, opts, func(ctx context.Context, c *crew) error {
		harnessOpts := []evaluation.Option{
			evaluation.WithLogger(c.logger),
			evaluation.WithStopOnFailure(stopOnFailure),
		}
		if c.collector != nil {
			harnessOpts = append(harnessOpts, evaluation.WithObserver(c.collector))
		}
		runner := evaluation.RunnerFunc(func(ctx context.Context, task types.Task, maxSteps int) (*types.TaskResult, error) {
			if err := c.orch.Reset(); err != nil {
				return nil, err
			}
			return c.orch.Run(ctx, task, maxSteps)
		})

		c.logger.Info("starting evaluation", zap.String("suite", suite.Name), zap.Int("tasks", len(tasks)))
		summary, err := evaluation.NewHarness(runner, harnessOpts...).Run(ctx, tasks)
		if err != nil && summary == nil {
			return err
		}
		if perr := printSummary(cmd.OutOrStdout(), suite.Name, summary, opts.outputJSON); perr != nil {
			return perr
		}
		if err != nil {
			return err
		}
		if summary.Failed > 0 {
			return fmt.Errorf("%d of %d evaluation tasks failed", summary.Failed, len(summary.Results))
		}
		return nil
	})
}

func printSummary(out io.Writer, name string, summary *evaluation.Summary, asJSON bool) error {
	if asJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(summary)
	}

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "TASK\tRESULT\tCOMPLETED\tEXPECTED\tMESSAGES\tDURATION\tERROR")
	for _, r := range summary.Results {
		result := "FAIL"
		if r.Passed {
			result = "PASS"
		}
		fmt.Fprintf(w, "%s\t%s\t%t\t%t\t%d\t%s\t%s\n",
			r.TaskID, result, r.Completed, r.ExpectedCompleted, r.MessagesProcessed,
			r.Duration.Round(time.Millisecond), oneLine(r.Error, 60))
	}
	if err := w.Flush(); err != nil {
		return err
	}
	fmt.Fprintf(out, "Suite %s: %d passed, %d failed in %s\n", name, summary.Passed, summary.Failed, summary.Duration.Round(time.Millisecond))
	return nil
}
