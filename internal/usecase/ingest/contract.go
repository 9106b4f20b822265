package ingest

import (
	"context"

	"github.com/kailas-cloud/photodex/internal/domain/label"
	"github.com/kailas-cloud/photodex/internal/domain/photo"
)

// Detector returns labels for an image, already filtered by confidence and count.
type Detector interface {
	Detect(ctx context.Context, bucket, key string) ([]label.Detected, error)
}

// MetadataReader reads the custom-labels metadata field of an object.
// An absent field is "" with a nil error.
type MetadataReader interface {
	CustomLabels(ctx context.Context, bucket, key string) (string, error)
}

// Indexer fully replaces the indexed document for an object key.
type Indexer interface {
	Upsert(ctx context.Context, doc *photo.Document) error
}
