package search

import (
	"context"
	"time"

	"github.com/kailas-cloud/photodex/internal/domain/hit"
	"github.com/kailas-cloud/photodex/internal/domain/photo"
	"github.com/kailas-cloud/photodex/internal/domain/query"
)

// Index executes a built query and returns hits in relevance order.
// Get returns domain.ErrPhotoNotFound for an object key that is not indexed.
type Index interface {
	Search(ctx context.Context, q *query.Query) ([]hit.Hit, error)
	Get(ctx context.Context, objectKey string) (photo.Document, error)
}

// Linker produces access URLs for stored objects.
type Linker interface {
	SignedURL(ctx context.Context, bucket, key string, ttl time.Duration) (string, error)
	PublicURL(bucket, key string) string
}
