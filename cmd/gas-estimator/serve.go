package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/Bidon15/popsigner/gas-estimator/internal/handler"
	"github.com/Bidon15/popsigner/gas-estimator/internal/middleware"
	apierrors "github.com/Bidon15/popsigner/gas-estimator/internal/pkg/errors"
	"github.com/Bidon15/popsigner/gas-estimator/internal/pkg/response"
)

const version = "1.0.0"

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the gas estimation HTTP API",
	Long: `Serve the estimation API under /v1 with Prometheus metrics at /metrics.

Requests are rate limited per client when redis.enabled is set.`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().Bool("simulate", false, "enable deployment simulation against simulator.rpc_url")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	logger = newLogger(true)
	slog.SetDefault(logger)

	simulate, _ := cmd.Flags().GetBool("simulate")
	a, err := newApp(cmd.Context(), cfg, simulate || cfg.Simulator.Enabled)
	if err != nil {
		return err
	}
	defer a.Close()

	gasHandler, err := handler.NewGasHandler(handler.Config{
		Estimator:      a.estimator,
		Prices:         a.oracle,
		Reports:        a.reporter,
		DefaultNetwork: cfg.Estimator.DefaultNetwork,
		EthPriceUSD:    cfg.Report.EthPriceUSD,
		Logger:         logger,
	})
	if err != nil {
		return err
	}

	r := chi.NewRouter()
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.Logging(logger))
	r.Use(chimiddleware.Recoverer)
	r.Use(middleware.CORS(cfg.Server.CORSOrigins))
	r.Use(middleware.Metrics())

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		response.NotFound(w, "Route")
	})

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		response.OK(w, map[string]string{"status": "ok", "version": version})
	})
	r.Get("/ready", readyHandler(a))
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/v1", func(r chi.Router) {
		if a.redis != nil {
			r.Use(middleware.RateLimit(a.redis, middleware.RateLimitConfig{
				RequestsPerMinute: cfg.Server.RateLimitPerMin,
				BurstSize:         middleware.DefaultRateLimitConfig().BurstSize,
				Logger:            logger,
			}))
		}
		r.Mount("/", gasHandler.Routes())
	})

	srv := &http.Server{
		Addr:         cfg.Server.Addr(),
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  time.Minute,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("Server listening",
			slog.String("addr", srv.Addr),
			slog.String("environment", cfg.Server.Environment),
			slog.Bool("simulation", a.simulator != nil),
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			logger.Error("Server error", slog.String("error", err.Error()))
			return err
		}
		return nil
	case <-cmd.Context().Done():
	}

	logger.Info("Shutting down server")
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		return err
	}
	logger.Info("Server stopped gracefully")
	return nil
}

// readyHandler verifies Redis when it backs the price cache.
func readyHandler(a *app) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if a.redis != nil {
			ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
			defer cancel()
			if err := a.redis.Ping(ctx); err != nil {
				response.Error(w, apierrors.ErrServiceUnavailable.WithDetails(map[string]string{"component": "redis"}))
				return
			}
		}
		response.OK(w, map[string]string{"status": "ready"})
	}
}
