package main

import (
	"context"
	"fmt"

	"github.com/PabloGalante/mindbloss/internal/adapters/llm"
	firestorestore "github.com/PabloGalante/mindbloss/internal/adapters/storage/firestore"
	memstore "github.com/PabloGalante/mindbloss/internal/adapters/storage/memory"
	redisstore "github.com/PabloGalante/mindbloss/internal/adapters/storage/redis"
	sqlitestore "github.com/PabloGalante/mindbloss/internal/adapters/storage/sqlite"
	"github.com/PabloGalante/mindbloss/internal/app/analyze"
	"github.com/PabloGalante/mindbloss/internal/app/checkin"
	journalapp "github.com/PabloGalante/mindbloss/internal/app/journal"
	"github.com/PabloGalante/mindbloss/internal/catalog"
	"github.com/PabloGalante/mindbloss/internal/config"
	"github.com/PabloGalante/mindbloss/internal/domain"
	"github.com/PabloGalante/mindbloss/internal/observability"
)

// app is the wired object graph.
type app struct {
	catalog  *catalog.Registry
	llm      domain.CompletionClient
	sessions domain.SessionStore
	journal  domain.JournalStore

	checkins   *checkin.Service
	journalSvc *journalapp.Service
	analyzer   *analyze.Service

	closers []func() error
}

func (a *app) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			observability.Logger().Warnw("close failed", "error", err)
		}
	}
}

func buildApp(ctx context.Context, cfg *config.Config) (*app, error) {
	log := observability.Logger()

	reg, err := catalog.Load(cfg.CatalogPath)
	if err != nil {
		return nil, err
	}
	a := &app{catalog: reg}

	client, err := newCompletionClient(ctx, cfg)
	if err != nil {
		return nil, err
	}
	a.llm = llm.WithPolicy(client, llm.Policy{
		Timeout: cfg.CompletionTimeout,
		Retry:   cfg.CompletionRetry,
		Backoff: cfg.CompletionBackoff,
	})

	if err := a.openStores(ctx, cfg); err != nil {
		a.Close()
		return nil, err
	}

	a.journalSvc = journalapp.NewService(a.journal, a.llm, reg, journalapp.WithRecapWindow(cfg.RecapWindow))
	a.checkins = checkin.NewService(a.llm, a.sessions, a.journalSvc, reg, checkin.WithLocation(cfg.Location()))
	a.analyzer = analyze.NewService(a.llm, a.journalSvc, reg)

	log.Infow("application wired",
		"llm", cfg.LLMProvider,
		"storage", cfg.StorageBackend,
		"history_cap", cfg.HistoryCap,
	)
	return a, nil
}

func newCompletionClient(ctx context.Context, cfg *config.Config) (domain.CompletionClient, error) {
	log := observability.Logger()

	switch cfg.LLMProvider {
	case config.LLMOpenAI:
		log.Infow("using OpenAI completion client", "model", cfg.OpenAIModel)
		return llm.NewOpenAIClient(cfg.OpenAIKey, cfg.OpenAIModel, cfg.OpenAIBaseURL)
	case config.LLMVertex:
		log.Infow("using Vertex completion client", "project", cfg.GCPProjectID, "model", cfg.ModelName)
		return llm.NewVertexClient(ctx, cfg.GCPProjectID, cfg.GCPLocation, cfg.ModelName)
	case config.LLMMock:
		log.Infow("using mock completion client")
		return llm.NewMockLLM(), nil
	default:
		return nil, fmt.Errorf("unknown llm provider %q", cfg.LLMProvider)
	}
}

func (a *app) openStores(ctx context.Context, cfg *config.Config) error {
	log := observability.Logger()

	switch cfg.StorageBackend {
	case config.StorageRedis:
		client, err := redisstore.Dial(ctx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		if err != nil {
			return err
		}
		a.closers = append(a.closers, client.Close)
		store := redisstore.NewStore(client, a.catalog, redisstore.Config{
			HistoryCap: cfg.HistoryCap,
			SessionTTL: cfg.SessionTTL,
		})
		a.sessions, a.journal = store, store
		log.Infow("using Redis storage", "addr", cfg.RedisAddr)

	case config.StorageSQLite:
		store, err := sqlitestore.Open(cfg.SQLitePath, a.catalog, cfg.HistoryCap)
		if err != nil {
			return err
		}
		a.closers = append(a.closers, store.Close)
		a.sessions, a.journal = store, store
		log.Infow("using SQLite storage", "path", cfg.SQLitePath)

	case config.StorageFirestore:
		store, err := firestorestore.NewStore(ctx, cfg.GCPProjectID, a.catalog, cfg.HistoryCap)
		if err != nil {
			return err
		}
		a.closers = append(a.closers, store.Close)
		// 1 store, implements 2 interfaces
		a.sessions, a.journal = store, store
		log.Infow("using Firestore storage", "project", cfg.GCPProjectID)

	default:
		a.sessions = memstore.NewSessionStore()
		a.journal = memstore.NewJournalStore(cfg.HistoryCap)
		log.Infow("using in-memory storage")
	}
	return nil
}
