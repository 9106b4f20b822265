// Command photodex-indexer is a CloudEvent function that indexes photos as they land in GCS.
package main

import (
	"context"
	"errors"
	"os"
	"sync"

	"github.com/GoogleCloudPlatform/functions-framework-go/funcframework"
	"github.com/GoogleCloudPlatform/functions-framework-go/functions"
	cloudevents "github.com/cloudevents/sdk-go/v2"
	"go.uber.org/zap"

	"github.com/kailas-cloud/photodex/internal/app"
	"github.com/kailas-cloud/photodex/internal/config"
	"github.com/kailas-cloud/photodex/internal/domain/batch"
	"github.com/kailas-cloud/photodex/internal/domain/notification"
	logpkg "github.com/kailas-cloud/photodex/internal/logger"
	"github.com/kailas-cloud/photodex/internal/transport/events"
)

var (
	instance *app.App
	logger   = zap.NewNop()
	once     sync.Once
	initErr  error
)

func init() {
	functions.CloudEvent("IndexPhoto", indexPhoto)
}

func main() {
	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}
	if err := funcframework.Start(port); err != nil {
		panic("functions framework: " + err.Error())
	}
}

// setup builds the services once per instance; the clients are reused across invocations.
func setup() {
	env := config.GetEnv()

	cfg, err := config.Load(env)
	if err != nil {
		initErr = err
		return
	}

	l, err := logpkg.NewLogger(env, cfg.Logging.Level)
	if err != nil {
		initErr = err
		return
	}
	logger = l

	instance, initErr = app.Build(context.Background(), &cfg, logger)
}

// indexPhoto handles one object-finalized event. Only initialization failures are
// returned, so the platform retries those; a bad event or a failed object is logged
// and acknowledged.
func indexPhoto(ctx context.Context, e cloudevents.Event) error {
	once.Do(setup)
	if initErr != nil {
		logger.Error("Indexer initialization failed", zap.Error(initErr))
		return initErr
	}

	log := logger.With(zap.String("event_id", e.ID()), zap.String("event_type", e.Type()))
	ctx = logpkg.ContextWithLogger(ctx, log)

	rec, err := events.FromCloudEvent(&e)
	if errors.Is(err, events.ErrUnsupportedEvent) {
		log.Debug("Ignoring event")
		return nil
	}
	if err != nil {
		log.Warn("Rejected event", zap.Error(err))
		return nil
	}

	results := instance.Ingest.HandleBatch(ctx, []notification.Record{rec})
	if s := batch.Summarize(results); s.Failed > 0 {
		log.Warn("Photo not indexed", zap.String("record", rec.String()), zap.Error(results[0].Err()))
	}
	return nil
}
