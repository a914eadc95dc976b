package app

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/uptrace/opentelemetry-go-extra/otelsql"
	"github.com/uptrace/opentelemetry-go-extra/otelsqlx"

	"github.com/riskibarqy/fpl-sync/external/fplapi"
	"github.com/riskibarqy/fpl-sync/internal/config"
	"github.com/riskibarqy/fpl-sync/internal/infrastructure/repository/postgres"
	"github.com/riskibarqy/fpl-sync/internal/infrastructure/state"
	"github.com/riskibarqy/fpl-sync/internal/platform/logging"
	"github.com/riskibarqy/fpl-sync/internal/platform/resilience"
	"github.com/riskibarqy/fpl-sync/internal/usecase"
)

// App owns the wired object graph for one process: database handle,
// upstream client, services and the scheduler that drives them.
type App struct {
	Config    config.Config
	Logger    *logging.Logger
	DB        *sqlx.DB
	Provider  *fplapi.Client
	Sync      *usecase.SyncService
	Scheduler *usecase.Scheduler
}

func New(cfg config.Config, logger *logging.Logger) (*App, error) {
	if logger == nil {
		logger = logging.Default()
	}

	dbURL := normalizeDBURL(cfg.DBURL, cfg.DBDisablePreparedBinary)
	db, err := otelsqlx.Connect("postgres", dbURL,
		otelsql.WithDBName(dbNameFromURL(dbURL)),
		otelsql.WithQueryFormatter(formatDBQueryForTrace),
	)
	if err != nil {
		return nil, fmt.Errorf("connect database: %w", err)
	}

	provider := fplapi.NewClient(fplapi.ClientConfig{
		BaseURL: cfg.FPLBaseURL,
		Timeout: cfg.FPLTimeout,
		Logger:  logger,
		CircuitBreaker: resilience.CircuitBreakerConfig{
			Enabled:          cfg.FPLCircuitEnabled,
			FailureThreshold: cfg.FPLCircuitFailureCount,
			OpenTimeout:      cfg.FPLCircuitOpenTimeout,
			HalfOpenMaxReq:   cfg.FPLCircuitHalfOpenMaxReq,
		},
	})

	teamRepo := postgres.NewTeamRepository(db)
	playerRepo := postgres.NewPlayerRepository(db)
	gameweekRepo := postgres.NewGameweekRepository(db)
	fixtureRepo := postgres.NewFixtureRepository(db)
	playerStatsRepo := postgres.NewPlayerStatsRepository(db)
	teamStatsRepo := postgres.NewTeamStatsRepository(db)
	entryRepo := postgres.NewEntryRepository(db)

	stateStore := state.NewFileStore(cfg.StateFilePath, logger)

	ingestion := usecase.NewIngestionService(teamRepo, playerRepo, gameweekRepo, fixtureRepo, playerStatsRepo, logger)
	aggregation := usecase.NewAggregationService(playerRepo, playerStatsRepo, fixtureRepo, teamStatsRepo, logger)
	entries := usecase.NewEntryService(provider, entryRepo, logger)

	syncSvc := usecase.NewSyncService(provider, ingestion, aggregation, entries, stateStore, usecase.SyncConfig{
		MaxWorkers:      cfg.SyncMaxWorkers,
		TrackedEntryIDs: cfg.TrackedEntryIDs,
	}, logger)

	return &App{
		Config:    cfg,
		Logger:    logger,
		DB:        db,
		Provider:  provider,
		Sync:      syncSvc,
		Scheduler: usecase.NewScheduler(syncSvc, cfg.SyncInterval, logger),
	}, nil
}

// SelfTest verifies the process can reach its two dependencies: the
// database and the upstream API. It writes nothing.
func (a *App) SelfTest(ctx context.Context) error {
	if err := a.DB.PingContext(ctx); err != nil {
		return fmt.Errorf("database ping: %w", err)
	}

	bootstrap, err := a.Provider.FetchBootstrap(ctx)
	if err != nil {
		return fmt.Errorf("fetch bootstrap: %w", err)
	}

	a.Logger.InfoContext(ctx, "self test passed",
		"teams", len(bootstrap.Teams),
		"players", len(bootstrap.Players),
		"gameweeks", len(bootstrap.Gameweeks),
	)
	return nil
}

func (a *App) Close() error {
	if a.DB != nil {
		return a.DB.Close()
	}
	return nil
}
