package ingest

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/kailas-cloud/photodex/internal/domain"
	dombatch "github.com/kailas-cloud/photodex/internal/domain/batch"
	"github.com/kailas-cloud/photodex/internal/domain/label"
	"github.com/kailas-cloud/photodex/internal/domain/notification"
	"github.com/kailas-cloud/photodex/internal/domain/photo"
	"github.com/kailas-cloud/photodex/internal/metrics"
)

// Defaults for batch processing.
const (
	DefaultWorkers = 4
	MaxBatchSize   = 100
)

// ErrBatchOverflow marks records beyond the batch size limit. They are reported as
// failed without being processed.
var ErrBatchOverflow = fmt.Errorf("batch size limit exceeded: %w", domain.ErrInvalidRecord)

// Service runs the ingestion pipeline: detect, read custom labels, aggregate, upsert.
type Service struct {
	detector     Detector
	meta         MetadataReader
	index        Indexer
	logger       *zap.Logger
	workers      int
	maxBatchSize int
	now          func() time.Time
}

// New creates an ingestion service.
func New(detector Detector, meta MetadataReader, index Indexer, logger *zap.Logger) *Service {
	return &Service{
		detector:     detector,
		meta:         meta,
		index:        index,
		logger:       logger,
		workers:      DefaultWorkers,
		maxBatchSize: MaxBatchSize,
		now:          time.Now,
	}
}

// WithWorkers bounds how many records of a batch are processed concurrently.
// 1 processes records sequentially.
func (s *Service) WithWorkers(n int) *Service {
	if n > 0 {
		s.workers = n
	}
	return s
}

// WithMaxBatchSize configures the maximum batch size.
func (s *Service) WithMaxBatchSize(size int) *Service {
	if size > 0 {
		s.maxBatchSize = size
	}
	return s
}

// Process indexes one object and returns the number of labels stored.
// Any error belongs to this object only.
func (s *Service) Process(ctx context.Context, rec notification.Record) (int, error) {
	detected, err := s.detector.Detect(ctx, rec.Bucket(), rec.Key())
	if err != nil {
		return 0, fmt.Errorf("detect labels %s: %w", rec, err)
	}

	custom, err := s.meta.CustomLabels(ctx, rec.Bucket(), rec.Key())
	if err != nil {
		return 0, fmt.Errorf("read custom labels %s: %w", rec, err)
	}

	labels := label.Aggregate(detected, custom)

	doc, err := photo.New(rec.Bucket(), rec.Key(), labels, s.now())
	if err != nil {
		return 0, fmt.Errorf("build document %s: %w: %w", rec, domain.ErrInvalidRecord, err)
	}

	if err := s.index.Upsert(ctx, &doc); err != nil {
		return 0, fmt.Errorf("index %s: %w", rec, err)
	}
	return len(labels), nil
}

// HandleBatch processes records independently and in parallel up to the worker limit.
// A failed record is logged and counted; it never stops the others and nothing is rolled
// back. Records past the batch size limit fail with ErrBatchOverflow. Results follow
// the input order.
func (s *Service) HandleBatch(ctx context.Context, records []notification.Record) []dombatch.Result {
	results := make([]dombatch.Result, len(records))

	accepted := records
	if len(records) > s.maxBatchSize {
		accepted = records[:s.maxBatchSize]
		s.logger.Warn("Ingestion batch over limit, skipping overflow",
			zap.Int("records", len(records)),
			zap.Int("limit", s.maxBatchSize),
		)
		for i := s.maxBatchSize; i < len(records); i++ {
			metrics.IngestRecordsTotal.WithLabelValues(string(dombatch.StatusError)).Inc()
			results[i] = dombatch.NewError(records[i].String(), ErrBatchOverflow)
		}
	}

	var g errgroup.Group
	g.SetLimit(s.workers)
	for i, rec := range accepted {
		g.Go(func() error {
			results[i] = s.processOne(ctx, rec)
			return nil
		})
	}
	_ = g.Wait() // workers never return errors; failures live in results

	summary := dombatch.Summarize(results)
	s.logger.Info("Ingestion batch completed",
		zap.Int("records", len(records)),
		zap.Int("processed", summary.Processed),
		zap.Int("failed", summary.Failed),
	)

	return results
}

func (s *Service) processOne(ctx context.Context, rec notification.Record) dombatch.Result {
	n, err := s.Process(ctx, rec)
	if err != nil {
		metrics.IngestRecordsTotal.WithLabelValues(string(dombatch.StatusError)).Inc()
		s.logger.Warn("Record indexing failed",
			zap.String("bucket", rec.Bucket()),
			zap.String("key", rec.Key()),
			zap.Error(err),
		)
		return dombatch.NewError(rec.String(), err)
	}

	metrics.IngestRecordsTotal.WithLabelValues(string(dombatch.StatusOK)).Inc()
	s.logger.Info("Record indexed",
		zap.String("bucket", rec.Bucket()),
		zap.String("key", rec.Key()),
		zap.Int("labels", n),
	)
	return dombatch.NewOK(rec.String(), n)
}
