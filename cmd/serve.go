package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/teemow/inboxswoop/internal/logging"
	"github.com/teemow/inboxswoop/internal/server"
)

func newServeCmd() *cobra.Command {
	var (
		addr           string
		metricsEnabled bool
		metricsAddr    string
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the inboxswoop web page",
		Long: `Serve the static swipe page on --addr together with /healthz and /readyz.
With --metrics-enabled a Prometheus /metrics endpoint is served on
--metrics-addr. The server shuts down gracefully on SIGINT or SIGTERM.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer cancel()

			a, err := setup(ctx)
			if err != nil {
				return err
			}
			defer a.close(context.Background())

			if !cmd.Flags().Changed("addr") {
				addr = a.cfg.Web.Addr
			}
			if !cmd.Flags().Changed("metrics-enabled") {
				metricsEnabled = a.cfg.Metrics.Enabled
			}
			if !cmd.Flags().Changed("metrics-addr") {
				metricsAddr = a.cfg.Metrics.Addr
			}

			return runServe(ctx, a, addr, metricsEnabled, metricsAddr)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", server.DefaultWebAddr, "Web server address. Can also use INBOXSWOOP_WEB_ADDR env var.")
	cmd.Flags().BoolVar(&metricsEnabled, "metrics-enabled", false, "Enable the metrics server on a dedicated port. Can also use METRICS_ENABLED env var.")
	cmd.Flags().StringVar(&metricsAddr, "metrics-addr", server.DefaultMetricsAddr, "Metrics server address. Can also use METRICS_ADDR env var.")

	return cmd
}

func runServe(ctx context.Context, a *app, addr string, metricsEnabled bool, metricsAddr string) error {
	var metricsServer *server.MetricsServer
	if metricsEnabled && a.provider.Enabled() {
		var err error
		metricsServer, err = server.NewMetricsServer(server.MetricsServerConfig{
			Addr:                    metricsAddr,
			InstrumentationProvider: a.provider,
		})
		if err != nil {
			return fmt.Errorf("failed to create metrics server: %w", err)
		}

		metricsReady := make(chan struct{})
		metricsErr := make(chan error, 1)
		go func() {
			if err := metricsServer.StartWithReadySignal(metricsReady); err != nil && !errors.Is(err, http.ErrServerClosed) {
				metricsErr <- err
			}
			close(metricsErr)
		}()

		select {
		case <-metricsReady:
			a.logger.Info("metrics server started", "addr", metricsServer.Addr())
		case err := <-metricsErr:
			return fmt.Errorf("metrics server failed to start: %w", err)
		case <-time.After(5 * time.Second):
			return fmt.Errorf("metrics server startup timed out")
		}
	}

	web, err := server.NewWebServer(server.WebServerConfig{
		Addr:    addr,
		Metrics: a.provider.Metrics(),
		Logger:  a.logger,
	})
	if err != nil {
		return err
	}

	serverDone := make(chan error, 1)
	go func() {
		defer close(serverDone)
		if err := web.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverDone <- err
		}
	}()

	var runErr error
	select {
	case <-ctx.Done():
		a.logger.Info("shutdown signal received, stopping web server")
	case err := <-serverDone:
		if err != nil {
			runErr = fmt.Errorf("web server stopped with error: %w", err)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), server.DefaultShutdownTimeout)
	defer cancel()

	var errs []error
	if err := web.Shutdown(shutdownCtx); err != nil {
		errs = append(errs, fmt.Errorf("error shutting down web server: %w", err))
	}
	if metricsServer != nil {
		if err := metricsServer.Shutdown(shutdownCtx); err != nil {
			errs = append(errs, fmt.Errorf("error shutting down metrics server: %w", err))
		}
	}
	if err := errors.Join(errs...); err != nil {
		a.logger.Error("shutdown incomplete", logging.Err(err))
		return errors.Join(runErr, err)
	}

	a.logger.Info("web server gracefully stopped")
	return runErr
}
