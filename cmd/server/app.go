package main

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/phrazzld/wordmon-api/internal/config"
	"github.com/phrazzld/wordmon-api/internal/domain/battle"
	"github.com/phrazzld/wordmon-api/internal/domain/matchmaking"
	"github.com/phrazzld/wordmon-api/internal/domain/rarity"
	"github.com/phrazzld/wordmon-api/internal/domain/srs"
	"github.com/phrazzld/wordmon-api/internal/events"
	"github.com/phrazzld/wordmon-api/internal/platform/dictionary"
	"github.com/phrazzld/wordmon-api/internal/platform/gemini"
	"github.com/phrazzld/wordmon-api/internal/provider"
	"github.com/phrazzld/wordmon-api/internal/service/arena"
	"github.com/phrazzld/wordmon-api/internal/service/auth"
	"github.com/phrazzld/wordmon-api/internal/service/dex"
	"github.com/phrazzld/wordmon-api/internal/service/entrylock"
	"github.com/phrazzld/wordmon-api/internal/service/evolution"
	"github.com/phrazzld/wordmon-api/internal/service/word_review"
	"github.com/phrazzld/wordmon-api/internal/task"
)

// llmProvider is everything the Gemini client offers.
type llmProvider interface {
	provider.DefinitionProvider
	provider.BranchProvider
	provider.FusionWordProvider
	provider.HiddenMoveProvider
}

// application holds the shared dependencies and owns their shutdown.
type application struct {
	config *config.Config
	logger *slog.Logger
	db     *sql.DB

	stores     *stores
	jwtService auth.JWTService
	taskRunner *task.TaskRunner

	dexService       dex.Service
	reviewService    word_review.Service
	evolutionService evolution.Service
	arenaService     arena.Service
}

// newApplication wires every service onto db and starts the task runner.
func newApplication(ctx context.Context, cfg *config.Config, logger *slog.Logger, db *sql.DB) (*application, error) {
	app := &application{
		config: cfg,
		logger: logger,
		db:     db,
	}

	var err error
	app.jwtService, err = auth.NewJWTService(cfg.Auth)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize JWT service: %w", err)
	}

	registry := task.NewRegistry()
	app.stores, err = newStores(cfg.Database.Driver, db, registry, logger)
	if err != nil {
		return nil, err
	}

	llm, err := newLLMProvider(ctx, cfg.LLM, logger)
	if err != nil {
		return nil, err
	}
	definitions, err := newDefinitionChain(cfg.Dictionary, llm, logger)
	if err != nil {
		return nil, err
	}

	app.taskRunner = task.NewTaskRunner(app.stores.tasks, task.TaskRunnerConfig{
		WorkerCount:  cfg.Task.WorkerCount,
		QueueSize:    cfg.Task.QueueSize,
		StuckTaskAge: cfg.Task.StuckTaskAge,
		TaskTimeout:  cfg.Game.ProviderTimeout * 2,
	}, logger)
	emitter := events.NewInMemoryEventEmitter(logger)

	locker := entrylock.New()
	entries, profiles := app.stores.entries, app.stores.profiles

	app.dexService = dex.NewService(dex.Config{
		DB:              db,
		Entries:         entries,
		Profiles:        profiles,
		Definitions:     definitions,
		Classifier:      rarity.NewClassifier(nil),
		Locker:          locker,
		Events:          emitter,
		ProviderTimeout: cfg.Game.ProviderTimeout,
		Logger:          logger,
	})

	app.reviewService, err = word_review.NewService(db, entries, srs.NewDefaultService(), locker, cfg.Game.QuizLimit, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create review service: %w", err)
	}

	app.evolutionService, err = evolution.NewService(evolution.Config{
		DB:              db,
		Entries:         entries,
		Profiles:        profiles,
		Branches:        llm,
		FusionWords:     llm,
		HiddenMoves:     llm,
		Locker:          locker,
		Events:          emitter,
		ProviderTimeout: cfg.Game.ProviderTimeout,
		Logger:          logger,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create evolution service: %w", err)
	}

	mmConfig := matchmaking.DefaultConfig()
	mmConfig.Timeout = cfg.Game.MatchmakingTimeout
	app.arenaService, err = arena.NewService(arena.Config{
		DB:         db,
		Entries:    entries,
		Profiles:   profiles,
		Matchmaker: matchmaking.NewMatchmaker(profiles, mmConfig, logger),
		Calculator: battle.DefaultCalculator{},
		Events:     emitter,
		Pace:       cfg.Game.BattlePace,
		Logger:     logger,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create arena service: %w", err)
	}

	// Tasks can only be restored once their factory is registered.
	prefetch := task.NewHiddenMovePrefetchFactory(app.evolutionService, logger)
	prefetch.Register(registry)
	emitter.RegisterHandler(task.NewPrefetchEventHandler(prefetch, app.taskRunner, logger))

	if err := app.taskRunner.Start(); err != nil {
		return nil, fmt.Errorf("failed to start task runner: %w", err)
	}

	logger.Info("application initialized")
	return app, nil
}

// newLLMProvider returns the Gemini client, or provider.Unavailable when no
// API key is configured.
func newLLMProvider(ctx context.Context, cfg config.LLMConfig, logger *slog.Logger) (llmProvider, error) {
	if cfg.GeminiAPIKey == "" {
		logger.Warn("no Gemini API key configured, LLM features use fallbacks")
		return provider.Unavailable{}, nil
	}

	p, err := gemini.New(ctx, cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize Gemini provider: %w", err)
	}
	logger.Info("Gemini provider initialized", slog.String("model", cfg.Model))
	return p, nil
}

// newDefinitionChain consults the dictionary first and the LLM second.
func newDefinitionChain(cfg config.DictionaryConfig, llm llmProvider, logger *slog.Logger) (provider.Chain, error) {
	var chain provider.Chain
	if cfg.Enabled {
		client, err := dictionary.New(cfg.BaseURL, &http.Client{Timeout: 10 * time.Second}, logger)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize dictionary client: %w", err)
		}
		chain = append(chain, client)
	}
	if _, disabled := llm.(provider.Unavailable); !disabled {
		chain = append(chain, llm)
	}
	return chain, nil
}

// Run serves HTTP until ctx ends, then shuts down.
func (app *application) Run(ctx context.Context) error {
	defer app.cleanup()

	if err := app.serveHTTP(ctx, app.setupRouter()); err != nil {
		return fmt.Errorf("server error: %w", err)
	}
	return nil
}

// cleanup stops background work and closes the database.
func (app *application) cleanup() {
	if app.taskRunner != nil {
		app.taskRunner.Stop()
	}
	if app.db != nil {
		if err := app.db.Close(); err != nil {
			app.logger.Error("error closing database connection", slog.String("error", err.Error()))
		}
	}
	app.logger.Info("application shutdown completed")
}
