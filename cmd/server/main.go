package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/innbucks/dashboard/internal/api"
	"github.com/innbucks/dashboard/internal/config"
	"github.com/innbucks/dashboard/internal/engine"
	"github.com/innbucks/dashboard/internal/logger"
	"github.com/innbucks/dashboard/internal/metrics"
	"github.com/labstack/echo/v4"
	"github.com/spf13/pflag"
	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"
	"go.uber.org/zap"
)

func main() {
	fs := pflag.NewFlagSet("server", pflag.ExitOnError)
	config.Flags(fs)
	_ = fs.Parse(os.Args[1:])

	cfg, err := config.Load(fs)
	if err != nil {
		fmt.Fprintln(os.Stderr, "config:", err)
		os.Exit(2)
	}

	fx.New(
		fx.Supply(cfg),
		fx.Provide(
			logger.New,
			metrics.New,
			newHandler,
			newServer,
		),
		fx.WithLogger(func(log *zap.Logger) fxevent.Logger {
			return &fxevent.ZapLogger{Logger: log.Named("fx")}
		}),
		fx.Invoke(run),
	).Run()
}

// newHandler builds snapshots from the resolved generator config. Every
// build, including POST /api/regenerate, is recorded in the collector.
func newHandler(cfg config.Config, collector *metrics.Collector, log *zap.Logger) *api.Handler {
	build := func() (*engine.Snapshot, error) {
		gen, err := cfg.GeneratorConfig()
		if err != nil {
			collector.ObserveBuild(nil, 0, err)
			return nil, err
		}
		t0 := time.Now()
		snap, err := engine.Build(gen, log)
		collector.ObserveBuild(snap, time.Since(t0), err)
		return snap, err
	}
	return api.NewHandler(build, log)
}

func newServer(cfg config.Config, h *api.Handler, collector *metrics.Collector, log *zap.Logger) *echo.Echo {
	return api.NewServer(cfg, h, collector.Handler(), log)
}

// run starts listening straight away and builds the first snapshot in the
// background. Data routes answer 503 until it lands.
func run(lc fx.Lifecycle, sd fx.Shutdowner, cfg config.Config, e *echo.Echo, h *api.Handler, log *zap.Logger) {
	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			go func() {
				log.Info("http server listening", zap.String("addr", cfg.HTTP.Addr))
				if err := e.Start(cfg.HTTP.Addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
					log.Error("http server stopped", zap.Error(err))
					_ = sd.Shutdown(fx.ExitCode(1))
				}
			}()

			go func() {
				log.Info("building initial snapshot", zap.String("profile", cfg.Generator.Profile))
				t0 := time.Now()
				if _, err := h.Rebuild(); err != nil {
					log.Error("initial snapshot failed", zap.Error(err))
					return
				}
				log.Info("snapshot ready, api fully available", zap.Duration("took", time.Since(t0)))
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
			defer cancel()
			return e.Shutdown(shutdownCtx)
		},
	})
}
