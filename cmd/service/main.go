package main

import (
	"context"
	"errors"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/riskibarqy/fpl-sync/internal/app"
	"github.com/riskibarqy/fpl-sync/internal/config"
	"github.com/riskibarqy/fpl-sync/internal/observability"
	"github.com/riskibarqy/fpl-sync/internal/platform/logging"
	"github.com/riskibarqy/fpl-sync/internal/usecase"
)

// Exit codes for one-shot runs, so cron and CI can branch on the result.
const (
	exitNoChange      = 0
	exitFatal         = 1
	exitRefreshed     = 3
	exitPartialErrors = 4
)

func main() {
	once := flag.Bool("once", false, "run a single sync cycle and exit")
	refresh := flag.Bool("refresh", false, "run a single cycle with a forced full refresh and exit")
	selfTest := flag.Bool("test", false, "check database and upstream connectivity, write nothing, and exit")
	flag.Parse()

	os.Exit(run(*once, *refresh, *selfTest))
}

func run(once, refresh, selfTest bool) int {
	cfg, err := config.Load()
	if err != nil {
		logging.Default().Error("load config", "error", err)
		return exitFatal
	}

	logger := logging.NewJSON(cfg.LogLevel).With(
		"service", cfg.ServiceName,
		"env", cfg.AppEnv,
	)
	logging.SetDefault(logger)
	defer logger.Sync()

	shutdownUptrace, err := observability.InitUptrace(cfg, logger)
	if err != nil {
		logger.Error("init uptrace", "error", err)
		return exitFatal
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := shutdownUptrace(ctx); err != nil {
			logger.Error("shutdown uptrace", "error", err)
		}
	}()

	stopProfiler, err := observability.InitPyroscope(cfg, logger)
	if err != nil {
		logger.Error("init pyroscope", "error", err)
		return exitFatal
	}
	defer func() {
		if err := stopProfiler(); err != nil {
			logger.Error("stop pyroscope", "error", err)
		}
	}()

	application, err := app.New(cfg, logger)
	if err != nil {
		logger.Error("build app", "error", err)
		return exitFatal
	}
	defer application.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	switch {
	case selfTest:
		if err := application.SelfTest(ctx); err != nil {
			logger.Error("self test failed", "error", err)
			return exitFatal
		}
		return exitNoChange

	case once, refresh:
		result, err := application.Scheduler.RunOnce(ctx, refresh)
		if err != nil {
			logger.Error("sync cycle failed", "error", err)
			return exitFatal
		}
		return exitCodeFor(result)

	default:
		logger.Info("scheduler starting", "interval", cfg.SyncInterval.String())
		if err := application.Scheduler.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			logger.Error("scheduler stopped", "error", err)
			return exitFatal
		}
		logger.Info("scheduler stopped")
		return exitNoChange
	}
}

func exitCodeFor(result usecase.SyncResult) int {
	switch result.Outcome {
	case usecase.OutcomeNoChange:
		return exitNoChange
	case usecase.OutcomeRefreshedWithErrors:
		return exitPartialErrors
	case usecase.OutcomeFailed:
		return exitFatal
	default:
		return exitRefreshed
	}
}
