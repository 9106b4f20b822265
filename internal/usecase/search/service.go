package search

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/photodex/internal/domain"
	"github.com/kailas-cloud/photodex/internal/domain/hit"
	"github.com/kailas-cloud/photodex/internal/domain/photo"
	"github.com/kailas-cloud/photodex/internal/domain/query"
	"github.com/kailas-cloud/photodex/internal/logger"
	"github.com/kailas-cloud/photodex/internal/metrics"
)

// DefaultLinkTTL is the lifetime of signed photo URLs.
const DefaultLinkTTL = time.Hour

// Output is the result of one search request.
type Output struct {
	Results  []hit.Result
	Query    string
	Keywords []string
}

// Photo is one indexed document with its access link.
type Photo struct {
	Document photo.Document
	Link     hit.Link
}

// Service runs the query pipeline: build, execute, enrich with links.
type Service struct {
	index   Index
	linker  Linker
	linkTTL time.Duration
}

// New creates a search service.
func New(index Index, linker Linker) *Service {
	return &Service{index: index, linker: linker, linkTTL: DefaultLinkTTL}
}

// WithLinkTTL configures the signed URL lifetime.
func (s *Service) WithLinkTTL(ttl time.Duration) *Service {
	if ttl > 0 {
		s.linkTTL = ttl
	}
	return s
}

// Search returns the photos whose labels match raw, in engine relevance order.
// An input with no usable token fails with domain.ErrMissingQuery before any
// index call. Index failures wrap domain.ErrIndexQueryFailure and return no
// partial results.
func (s *Service) Search(ctx context.Context, raw string) (Output, error) {
	q, err := query.Build(raw)
	if err != nil {
		return Output{}, fmt.Errorf("build query: %w", err)
	}
	metrics.SearchKeywords.Observe(float64(len(q.Tokens())))

	hits, err := s.index.Search(ctx, &q)
	if err != nil {
		return Output{}, err
	}

	results := make([]hit.Result, 0, len(hits))
	for _, h := range hits {
		results = append(results, hit.Result{Hit: h, Link: s.link(ctx, &h)})
	}

	return Output{Results: results, Query: q.Raw(), Keywords: q.Tokens()}, nil
}

// Lookup returns the indexed document stored under objectKey.
func (s *Service) Lookup(ctx context.Context, objectKey string) (Photo, error) {
	if objectKey == "" {
		return Photo{}, domain.ErrPhotoNotFound
	}

	doc, err := s.index.Get(ctx, objectKey)
	if err != nil {
		return Photo{}, err
	}

	h := hit.New(doc.Bucket(), doc.ObjectKey(), doc.Labels(), 0)
	return Photo{Document: doc, Link: s.link(ctx, &h)}, nil
}

// link never fails: a signing error degrades to the public object URL.
func (s *Service) link(ctx context.Context, h *hit.Hit) hit.Link {
	url, err := s.linker.SignedURL(ctx, h.Bucket(), h.ObjectKey(), s.linkTTL)
	if err == nil && url != "" {
		return hit.Link{URL: url, Kind: hit.KindSigned}
	}

	metrics.LinkFallbackTotal.Inc()
	logger.FromContext(ctx).Warn("Signed URL unavailable, using public URL",
		zap.String("bucket", h.Bucket()),
		zap.String("key", h.ObjectKey()),
		zap.Error(err),
	)
	return hit.Link{URL: s.linker.PublicURL(h.Bucket(), h.ObjectKey()), Kind: hit.KindPublic}
}
