package cmd

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/MakeNowJust/heredoc/v2"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/holiman/uint256"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/rakshithvk19/Rock-Paper-Scissors/internal/abi"
	"github.com/rakshithvk19/Rock-Paper-Scissors/internal/engine"
)

// rpsd call
func Call(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "call { name signature } [args...]",
		Short: "Call an oracle function through the dispatch table",
		Args:  cobra.MinimumNArgs(1),
		Long: heredoc.Doc(`call encodes the arguments as calldata, dispatches it
			by selector and prints the decoded result.

			The function may be named by its plain name (getMove) or its
			full signature (getMove(uint256,uint256,uint256[])). Words are
			decimal or 0x-prefixed hex. Array arguments are comma
			separated; pass "" for an empty array.

			Example:
			  rpsd call getMove 1 42 0,0`),
		RunE: func(cmd *cobra.Command, args []string) error {
			router, _, _, err := a.engines()
			if err != nil {
				return err
			}
			env, err := a.env(cmd)
			if err != nil {
				return err
			}

			m, ok := router.Method(strings.SplitN(args[0], "(", 2)[0])
			if !ok || (strings.Contains(args[0], "(") && m.Signature != args[0]) {
				return fmt.Errorf("%w: %s", abi.ErrUnknownSelector, args[0])
			}

			values, err := parseArgs(m, args[1:])
			if err != nil {
				return err
			}
			calldata, err := m.Pack(values...)
			if err != nil {
				return err
			}

			a.logger.WithFields(logrus.Fields{
				"function": m.Name,
				"selector": m.Selector.String(),
				"bytes":    len(calldata),
			}).Debug("dispatch_call")

			out, err := router.Call(env, calldata)
			if err != nil {
				return err
			}
			result, err := abi.DecodeWord(out)
			if err != nil {
				return err
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintf(w, "function\t%s\n", m.Signature)
			fmt.Fprintf(w, "calldata\t%s\n", hexutil.Encode(calldata))
			fmt.Fprintf(w, "result\t%s\n", result.Dec())
			return w.Flush()
		},
	}

	addEnvFlags(cmd)
	return cmd
}

// parseArgs turns command line words into ABI values for m.
func parseArgs(m *abi.Method, args []string) ([]abi.Value, error) {
	if len(args) != len(m.Inputs) {
		return nil, fmt.Errorf("%w: %s takes %d arguments, got %d", abi.ErrArgumentCount, m.Signature, len(m.Inputs), len(args))
	}

	values := make([]abi.Value, len(args))
	for i, arg := range args {
		if m.Inputs[i] == abi.Uint256 {
			w, err := engine.ParseWord(arg)
			if err != nil {
				return nil, fmt.Errorf("argument %d: %w", i, err)
			}
			values[i] = abi.WordValue(w)
			continue
		}

		var elems []*uint256.Int
		if arg != "" {
			for j, part := range strings.Split(arg, ",") {
				w, err := engine.ParseWord(strings.TrimSpace(part))
				if err != nil {
					return nil, fmt.Errorf("argument %d[%d]: %w", i, j, err)
				}
				elems = append(elems, w)
			}
		}
		values[i] = abi.ArrayValue(elems)
	}
	return values, nil
}

// rpsd selectors
func Selectors(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "selectors",
		Short: "List the dispatch table",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			router, _, _, err := a.engines()
			if err != nil {
				return err
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "SELECTOR\tSIGNATURE")
			for _, m := range router.Methods() {
				fmt.Fprintf(w, "%s\t%s\n", m.Selector, m.Signature)
			}
			return w.Flush()
		},
	}
}
