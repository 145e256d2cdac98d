package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/dd0wney/pgfleet/pkg/health"
	"github.com/dd0wney/pgfleet/pkg/logging"
	"github.com/dd0wney/pgfleet/pkg/metrics"
)

func newMonitorCmd() *cobra.Command {
	var listenAddr string
	cmd := &cobra.Command{
		Use:   "monitor",
		Short: "Serve health and metrics endpoints",
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := buildRuntime()
			if err != nil {
				return err
			}

			hc := health.NewHealthChecker()
			hc.RegisterCheck("cluster", health.ClusterCheck(rt.checker))
			hc.RegisterCheck("consensus-store", health.StoreCheck(func(ctx context.Context) error {
				_, err := rt.store.ClusterHealth(ctx)
				return err
			}))
			hc.RegisterReadinessCheck("cluster", health.ReadyCheck(rt.checker))
			hc.RegisterLivenessCheck("process", health.ProcessCheck())

			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			srv := &http.Server{
				Addr:              listenAddr,
				Handler:           hc.Mux(metrics.DefaultRegistry()),
				ReadHeaderTimeout: 10 * time.Second,
			}

			errCh := make(chan error, 1)
			go func() {
				logging.L().Info().Str("addr", listenAddr).Msg("monitor: listening")
				errCh <- srv.ListenAndServe()
			}()

			select {
			case err := <-errCh:
				if errors.Is(err, http.ErrServerClosed) {
					return nil
				}
				return err
			case <-ctx.Done():
			}

			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		},
	}
	cmd.Flags().StringVar(&listenAddr, "listen", ":9120", "monitor listen address")
	return cmd
}
