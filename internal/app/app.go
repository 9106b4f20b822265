// Package app wires configuration into the ingestion and search services.
// It is the composition root shared by the API server and the indexer function.
package app

import (
	"context"
	"fmt"
	"time"

	"cloud.google.com/go/storage"
	"go.uber.org/zap"

	"github.com/kailas-cloud/photodex/internal/config"
	dbRedis "github.com/kailas-cloud/photodex/internal/db/redis"
	"github.com/kailas-cloud/photodex/internal/metrics"
	photorepo "github.com/kailas-cloud/photodex/internal/repository/photo"
	"github.com/kailas-cloud/photodex/internal/transport/gcs"
	openaiDet "github.com/kailas-cloud/photodex/internal/transport/openai"
	"github.com/kailas-cloud/photodex/internal/transport/vertex"
	healthuc "github.com/kailas-cloud/photodex/internal/usecase/health"
	ingestuc "github.com/kailas-cloud/photodex/internal/usecase/ingest"
	searchuc "github.com/kailas-cloud/photodex/internal/usecase/search"
)

// App holds the wired services and the clients they own.
type App struct {
	Search *searchuc.Service
	Ingest *ingestuc.Service
	Health *healthuc.Service

	closers []func()
}

// Build connects to the search engine and the object store, ensures the photo index
// and assembles the services.
func Build(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*App, error) {
	a := &App{}

	store, err := dbRedis.NewStore(dbRedis.Config{
		Addrs:    cfg.Database.Addrs,
		Username: cfg.Database.Username,
		Password: cfg.Database.Password,
	})
	if err != nil {
		return nil, fmt.Errorf("create database store: %w", err)
	}
	a.closers = append(a.closers, store.Close)

	if err := store.WaitForReady(ctx, time.Duration(cfg.Database.ReadinessTimeout)*time.Second); err != nil {
		a.Close()
		return nil, fmt.Errorf("database not ready: %w", err)
	}
	logger.Info("Connected to database", zap.Strings("addrs", cfg.Database.Addrs))

	// Register pipeline metrics explicitly (no init())
	metrics.RegisterPipelineMetrics()

	repo := photorepo.New(store, cfg.Storage.KeyPrefix).WithPageSize(cfg.Search.PageSize)
	if err := repo.EnsureIndex(ctx); err != nil {
		a.Close()
		return nil, fmt.Errorf("ensure index: %w", err)
	}
	logger.Info("Photo index ready", zap.String("index", repo.IndexName()))

	gcsClient, err := storage.NewClient(ctx)
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("create storage client: %w", err)
	}
	a.closers = append(a.closers, func() { _ = gcsClient.Close() })

	objects := gcs.New(gcsClient, gcs.Config{
		PublicURLTemplate: cfg.Storage.PublicURLTemplate,
		SignerEmail:       cfg.Storage.SignerEmail,
		SignerPrivateKey:  []byte(cfg.Storage.SignerPrivateKey),
	})

	detector, checker, err := a.buildDetector(ctx, cfg, objects, logger)
	if err != nil {
		a.Close()
		return nil, err
	}

	a.Search = searchuc.New(repo, objects).
		WithLinkTTL(time.Duration(cfg.Storage.SignedURLTTLSec) * time.Second)
	a.Ingest = ingestuc.New(
		ingestuc.NewInstrumentedDetector(detector, cfg.Detection.Provider, logger),
		objects, repo, logger,
	).
		WithWorkers(cfg.Ingest.Workers).
		WithMaxBatchSize(cfg.Ingest.MaxBatchSize)
	a.Health = healthuc.New(store, repo, checker)

	return a, nil
}

// buildDetector selects the detection engine. The checker is nil when the provider
// has no cheap health check.
func (a *App) buildDetector(
	ctx context.Context,
	cfg *config.Config,
	objects *gcs.Store,
	logger *zap.Logger,
) (ingestuc.Detector, healthuc.DetectionChecker, error) {
	det := cfg.Detection
	switch det.Provider {
	case config.ProviderOpenAI:
		d := openaiDet.NewDetector(&openaiDet.Config{
			APIKey:        det.OpenAI.APIKey,
			BaseURL:       det.OpenAI.BaseURL,
			Model:         det.OpenAI.Model,
			MinConfidence: det.MinConfidence,
			MaxLabels:     det.MaxLabels,
			Signer:        objects,
			Logger:        logger,
		})
		logger.Info("Label detection via OpenAI-compatible API", zap.String("model", det.OpenAI.Model))
		return d, d, nil
	case config.ProviderVertex:
		d, err := vertex.NewDetector(ctx, &vertex.Config{
			ProjectID:     det.Vertex.ProjectID,
			Region:        det.Vertex.Region,
			Model:         det.Vertex.Model,
			MinConfidence: det.MinConfidence,
			MaxLabels:     det.MaxLabels,
		})
		if err != nil {
			return nil, nil, fmt.Errorf("create vertex detector: %w", err)
		}
		a.closers = append(a.closers, func() { _ = d.Close() })
		logger.Info("Label detection via Vertex AI",
			zap.String("project", det.Vertex.ProjectID),
			zap.String("region", det.Vertex.Region),
		)
		return d, nil, nil
	default:
		return nil, nil, fmt.Errorf("unknown detection provider %q", det.Provider)
	}
}

// Close releases clients in reverse creation order.
func (a *App) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}
