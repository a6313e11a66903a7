package cmd

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/MakeNowJust/heredoc/v2"
	"github.com/spf13/cobra"

	"github.com/rakshithvk19/Rock-Paper-Scissors/internal/engine"
	"github.com/rakshithvk19/Rock-Paper-Scissors/internal/replay"
)

func printJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// rpsd replay
func Replay(a *app) *cobra.Command {
	var (
		seed  string
		moves []string
	)

	cmd := &cobra.Command{
		Use:   "replay --seed <seed> --moves <moves>",
		Short: "Re-derive a match from its seed and the player's moves",
		Args:  cobra.NoArgs,
		Long: heredoc.Doc(`replay plays the recorded player moves against the
			computer round by round and prints the full match record:
			every computer move, outcome and advised stake.

			Moves are numbers (0 rock, 1 paper, 2 scissors) or names,
			comma separated. Moves left over after the match is decided
			are reported as unused.`),
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
			played, err := parseMoves(moves)
			if err != nil {
				return err
			}

			report, err := eng.Replay(cmd.Context(), replay.Request{Seed: s, PlayerMoves: played, Env: env})
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), report)
		},
	}

	cmd.Flags().StringVar(&seed, "seed", "", "Match seed")
	cmd.Flags().StringSliceVar(&moves, "moves", nil, "Player moves in order")
	_ = cmd.MarkFlagRequired("seed")
	addEnvFlags(cmd)
	return cmd
}

