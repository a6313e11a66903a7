package cmd

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/MakeNowJust/heredoc/v2"
	"github.com/spf13/cobra"

	"github.com/rakshithvk19/Rock-Paper-Scissors/internal/engine"
	"github.com/rakshithvk19/Rock-Paper-Scissors/internal/scripting"
)

// rpsd simulate
func Simulate(a *app) *cobra.Command {
	var (
		seed    string
		matches int
		reports bool
	)

	cmd := &cobra.Command{
		Use:   "simulate script-file",
		Short: "Play a JavaScript strategy against the computer",
		Args:  cobra.ExactArgs(1),
		Long: heredoc.Doc(`simulate loads a strategy script and plays it against
			the computer for --matches consecutive seeds starting at --seed.

			The script defines nextMove(round, history, score) and returns
			ROCK, PAPER or SCISSORS (or 0, 1, 2, or a move name). history
			holds the player's earlier moves and score is
			{player, computer}. log(...) writes to the rpsd log.`),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, eng, _, err := a.engines()
			if err != nil {
				return err
			}
			env, err := a.env(cmd)
			if err != nil {
				return err
			}
			s, err := engine.ParseWord(seed)
			if err != nil {
				return fmt.Errorf("--seed: %w", err)
			}

			source, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}
			if strings.TrimSpace(string(source)) == "" {
				return errors.New("script file is empty")
			}

			summary, err := scripting.Simulate(cmd.Context(), eng, scripting.SimulateRequest{
				Script:    string(source),
				SeedStart: s,
				Matches:   matches,
				Env:       env,
			}, reports, a.logger)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), summary)
		},
	}

	cmd.Flags().StringVar(&seed, "seed", "1", "First match seed")
	cmd.Flags().IntVar(&matches, "matches", 10, "Number of matches to play")
	cmd.Flags().BoolVar(&reports, "reports", false, "Include every match report in the output")
	addEnvFlags(cmd)
	return cmd
}
