package ingest

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/photodex/internal/domain/label"
	"github.com/kailas-cloud/photodex/internal/metrics"
)

// InstrumentedDetector wraps a Detector with latency metrics and logging.
type InstrumentedDetector struct {
	inner    Detector
	provider string
	logger   *zap.Logger
}

// NewInstrumentedDetector wraps a detector with observability.
func NewInstrumentedDetector(inner Detector, provider string, logger *zap.Logger) *InstrumentedDetector {
	return &InstrumentedDetector{inner: inner, provider: provider, logger: logger}
}

// Detect delegates to the inner detector and records duration and errors.
func (d *InstrumentedDetector) Detect(ctx context.Context, bucket, key string) ([]label.Detected, error) {
	start := time.Now()

	labels, err := d.inner.Detect(ctx, bucket, key)

	duration := time.Since(start)
	metrics.DetectionDuration.WithLabelValues(d.provider).Observe(duration.Seconds())

	if err != nil {
		metrics.DetectionErrorsTotal.WithLabelValues(d.provider).Inc()
		d.logger.Error("Label detection failed",
			zap.String("provider", d.provider),
			zap.String("bucket", bucket),
			zap.String("key", key),
			zap.Duration("duration", duration),
			zap.Error(err),
		)
		return nil, fmt.Errorf("detect: %w", err)
	}

	d.logger.Debug("Label detection completed",
		zap.String("provider", d.provider),
		zap.String("key", key),
		zap.Duration("duration", duration),
		zap.Int("labels", len(labels)),
	)

	return labels, nil
}
