package ingest

import (
	"context"
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"go.uber.org/zap"

	"github.com/kailas-cloud/photodex/internal/domain"
	"github.com/kailas-cloud/photodex/internal/domain/label"
	"github.com/kailas-cloud/photodex/internal/metrics"
)

func TestInstrumentedDetector_Success(t *testing.T) {
	inner := &mockDetector{fn: func(context.Context, string, string) ([]label.Detected, error) {
		return []label.Detected{{Name: "dog", Confidence: 95}}, nil
	}}
	d := NewInstrumentedDetector(inner, "test-ok", zap.NewNop())

	labels, err := d.Detect(context.Background(), "photos", "dog.jpg")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(labels) != 1 || labels[0].Name != "dog" {
		t.Errorf("labels = %v", labels)
	}
	if n := testutil.ToFloat64(metrics.DetectionErrorsTotal.WithLabelValues("test-ok")); n != 0 {
		t.Errorf("errors = %f, want 0", n)
	}
}

func TestInstrumentedDetector_Error(t *testing.T) {
	inner := &mockDetector{fn: func(context.Context, string, string) ([]label.Detected, error) {
		return nil, domain.ErrDetectionFailure
	}}
	d := NewInstrumentedDetector(inner, "test-err", zap.NewNop())

	_, err := d.Detect(context.Background(), "photos", "dog.jpg")
	if !errors.Is(err, domain.ErrDetectionFailure) {
		t.Errorf("expected ErrDetectionFailure, got %v", err)
	}
	if n := testutil.ToFloat64(metrics.DetectionErrorsTotal.WithLabelValues("test-err")); n != 1 {
		t.Errorf("errors = %f, want 1", n)
	}
}
