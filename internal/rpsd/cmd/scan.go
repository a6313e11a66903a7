package cmd

import (
	"time"

	"github.com/MakeNowJust/heredoc/v2"
	"github.com/spf13/cobra"

	"github.com/rakshithvk19/Rock-Paper-Scissors/internal/scan"
)

// rpsd scan
func Scan(a *app) *cobra.Command {
	var (
		req     scan.ScanRequest
		op      string
		history []string
		timeout time.Duration
	)

	cmd := &cobra.Command{
		Use:   "scan --metric <metric> --op <op> --val <value>",
		Short: "Evaluate an oracle metric over a range of seeds",
		Args:  cobra.NoArgs,
		Long: heredoc.Doc(`scan evaluates a metric for every seed in
			[--start, --end] and reports the seeds whose value satisfies
			the target, along with a histogram of all values seen.

			Metrics: rounds, choice (--round), random (--range) and
			move (--round, --history). Operations: eq, gt, ge, lt, le,
			between and outside (the last two use --val2).`),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, _, scanner, err := a.engines()
			if err != nil {
				return err
			}
			if req.Env, err = a.env(cmd); err != nil {
				return err
			}
			if req.Params.History, err = parseMoves(history); err != nil {
				return err
			}
			req.TargetOp = scan.TargetOp(op)
			req.TimeoutMs = int(timeout / time.Millisecond)

			result, err := scanner.Scan(cmd.Context(), req)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), result)
		},
	}

	f := cmd.Flags()
	f.StringVar(&req.Metric, "metric", "rounds", "Metric to evaluate")
	f.Uint64Var(&req.SeedStart, "start", 0, "First seed")
	f.Uint64Var(&req.SeedEnd, "end", 9999, "Last seed (inclusive)")
	f.StringVar(&op, "op", string(scan.OpEqual), "Target operation")
	f.Float64Var(&req.TargetVal, "val", 0, "Target value")
	f.Float64Var(&req.TargetVal2, "val2", 0, "Upper bound for between/outside")
	f.Float64Var(&req.Tolerance, "tolerance", 0, "Tolerance for eq")
	f.IntVar(&req.Limit, "limit", 1000, "Stop after this many hits (0 for no limit)")
	f.DurationVar(&timeout, "timeout", 0, "Give up after this long (0 for no timeout)")
	f.Uint64Var(&req.Params.Round, "round", 1, "Round parameter for choice and move")
	f.Uint64Var(&req.Params.Range, "range", 100, "Range parameter for random")
	f.StringSliceVar(&history, "history", nil, "Player history for move")
	addEnvFlags(cmd)
	return cmd
}
