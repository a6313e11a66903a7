package cmd

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/rakshithvk19/Rock-Paper-Scissors/internal/abi"
	"github.com/rakshithvk19/Rock-Paper-Scissors/internal/api"
	"github.com/rakshithvk19/Rock-Paper-Scissors/internal/config"
	"github.com/rakshithvk19/Rock-Paper-Scissors/internal/engine"
	"github.com/rakshithvk19/Rock-Paper-Scissors/internal/games"
	"github.com/rakshithvk19/Rock-Paper-Scissors/internal/replay"
	"github.com/rakshithvk19/Rock-Paper-Scissors/internal/scan"
)

// app carries what every subcommand needs once the root has loaded config.
type app struct {
	envFile string
	cfg     config.Config
	logger  *logrus.Logger
}

func Root() *cobra.Command {
	a := &app{logger: logrus.StandardLogger()}

	root := &cobra.Command{
		Use:  "rpsd",
		Args: cobra.NoArgs,

		SilenceErrors: true,
		SilenceUsage:  true,

		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(a.envFile)
			if err != nil {
				return err
			}
			a.cfg = cfg

			if cfg.LogJSON {
				a.logger.SetFormatter(&logrus.JSONFormatter{})
			}
			a.logger.SetLevel(cfg.Level())
			// --trace wins over RPS_LOG_LEVEL.
			if cmd.Flag("trace").Changed {
				a.logger.SetLevel(logrus.TraceLevel)
			}
			return nil
		},
	}

	// global flags
	root.PersistentFlags().BoolP("help", "h", false, "Show Help Information")
	root.PersistentFlags().BoolP("version", "v", false, "Show rpsd's Version")
	root.PersistentFlags().BoolP("trace", "t", false, "Show Trace Information")
	root.PersistentFlags().StringVar(&a.envFile, "env-file", ".env", "Optional dotenv file with RPS_* settings")

	versionStr := api.EngineVersion + "\n"
	root.SetVersionTemplate(versionStr)
	root.Version = versionStr

	root.AddCommand(Serve(a))
	root.AddCommand(Call(a))
	root.AddCommand(Selectors(a))
	root.AddCommand(Replay(a))
	root.AddCommand(Scan(a))
	root.AddCommand(Simulate(a))

	return root
}

// engines builds the dispatch table, replay engine and scanner from config.
func (a *app) engines() (*abi.Router, *replay.Engine, *scan.Scanner, error) {
	ai, oracle, err := a.cfg.Build()
	if err != nil {
		return nil, nil, nil, err
	}
	router, err := abi.NewRouter(ai, oracle, a.logger)
	if err != nil {
		return nil, nil, nil, err
	}
	eng := replay.New(ai, oracle, a.logger)
	scanner := scan.NewScanner(scan.NewRegistry(ai, oracle), a.cfg.ScanWorkers, a.logger)
	return router, eng, scanner, nil
}

// addEnvFlags registers the flags that pin the block environment.
func addEnvFlags(cmd *cobra.Command) {
	cmd.Flags().String("block-number", "", "Block number to mix in (default: derived from the clock)")
	cmd.Flags().String("block-timestamp", "", "Block timestamp to mix in (default: now)")
}

// env returns the clock snapshot with any pinned fields applied.
func (a *app) env(cmd *cobra.Command) (engine.Env, error) {
	env := a.cfg.EnvSource().Snapshot()
	if v, _ := cmd.Flags().GetString("block-number"); v != "" {
		n, err := engine.ParseWord(v)
		if err != nil {
			return engine.Env{}, fmt.Errorf("--block-number: %w", err)
		}
		env.BlockNumber = *n
	}
	if v, _ := cmd.Flags().GetString("block-timestamp"); v != "" {
		ts, err := engine.ParseWord(v)
		if err != nil {
			return engine.Env{}, fmt.Errorf("--block-timestamp: %w", err)
		}
		env.BlockTimestamp = *ts
	}
	return env, nil
}

// parseMoves accepts move numbers or case-insensitive move names.
func parseMoves(raw []string) ([]games.Move, error) {
	moves := make([]games.Move, 0, len(raw))
	for i, s := range raw {
		m, err := parseMove(s)
		if err != nil {
			return nil, fmt.Errorf("move %d: %w", i, err)
		}
		moves = append(moves, m)
	}
	return moves, nil
}

func parseMove(s string) (games.Move, error) {
	if n, err := strconv.Atoi(s); err == nil {
		return games.MoveFromInt(n)
	}
	for m := games.Rock; m <= games.Scissors; m++ {
		if strings.EqualFold(s, m.String()) {
			return m, nil
		}
	}
	return 0, fmt.Errorf("%w: %q", games.ErrInvalidMove, s)
}
