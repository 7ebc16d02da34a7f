package main

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/amp-labs/amp-fsm/envutil"
	"github.com/amp-labs/amp-fsm/logger"
	"github.com/amp-labs/amp-fsm/shutdown"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/klauspost/compress/gzhttp"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const (
	readHeaderTimeout = 5 * time.Second
	shutdownTimeout   = 5 * time.Second
)

func metricsRouter() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)

	r.Handle("/metrics", gzhttp.GzipHandler(promhttp.Handler()))
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ALIVE"))
	})

	return r
}

// startMetrics serves /metrics on METRICS_ADDR until shutdown. It does
// nothing when the variable is unset.
func startMetrics(ctx context.Context) error {
	addr, err := envutil.String(ctx, "METRICS_ADDR").Value()
	if errors.Is(err, envutil.ErrEnvVarMissing) {
		return nil
	} else if err != nil {
		return err
	}

	ln, err := (&net.ListenConfig{}).Listen(ctx, "tcp", addr)
	if err != nil {
		return err
	}

	srv := &http.Server{
		Handler:           metricsRouter(),
		ReadHeaderTimeout: readHeaderTimeout,
	}

	log := logger.Get(ctx)

	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("metrics server failed", "error", err)
		}
	}()

	shutdown.BeforeShutdown("metrics", func(ctx context.Context) {
		stopCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
		defer cancel()

		if err := srv.Shutdown(stopCtx); err != nil {
			log.Warn("metrics server shutdown failed", "error", err)
		}
	})

	log.Info("serving metrics", "addr", ln.Addr().String())

	return nil
}
