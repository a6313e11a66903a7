package cmd

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/MakeNowJust/heredoc/v2"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/rakshithvk19/Rock-Paper-Scissors/internal/api"
)

const shutdownTimeout = 10 * time.Second

// rpsd serve
func Serve(a *app) *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the oracle over HTTP",
		Args:  cobra.NoArgs,
		Long: heredoc.Doc(`serve starts the HTTP API. Every oracle function is
			reachable through POST /api/v1/call with raw calldata, and
			through a JSON endpoint of its own.

			Block metadata comes from a clock derived from RPS_GENESIS_UNIX
			and RPS_BLOCK_INTERVAL unless a request pins it. Prometheus
			metrics are served on /metrics.`),
		RunE: func(cmd *cobra.Command, args []string) error {
			router, eng, scanner, err := a.engines()
			if err != nil {
				return err
			}

			envSource := a.cfg.EnvSource()
			if err := router.Deploy(envSource.Snapshot()); err != nil {
				return err
			}

			if addr == "" {
				addr = a.cfg.Addr
			}
			server := api.NewServer(api.Options{
				Router:  router,
				Replay:  eng,
				Scanner: scanner,
				Env:     envSource,
				Logger:  a.logger,
			})
			httpServer := &http.Server{
				Addr:              addr,
				Handler:           server.Routes(),
				ReadHeaderTimeout: 10 * time.Second,
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			errc := make(chan error, 1)
			go func() {
				a.logger.WithField("addr", addr).Info("http_listen")
				errc <- httpServer.ListenAndServe()
			}()

			select {
			case err := <-errc:
				if errors.Is(err, http.ErrServerClosed) {
					return nil
				}
				return err
			case <-ctx.Done():
			}

			a.logger.WithFields(logrus.Fields{
				"timeout": shutdownTimeout.String(),
			}).Info("http_shutdown")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			return httpServer.Shutdown(shutdownCtx)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "Listen address (default: RPS_ADDR)")
	return cmd
}
