package photo

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/kailas-cloud/photodex/internal/db"
	"github.com/kailas-cloud/photodex/internal/domain"
	"github.com/kailas-cloud/photodex/internal/domain/hit"
	domphoto "github.com/kailas-cloud/photodex/internal/domain/photo"
	"github.com/kailas-cloud/photodex/internal/domain/query"
)

// store is the consumer interface for photo documents (ISP).
type store interface {
	HReplace(ctx context.Context, key string, fields map[string]string) error
	HGetAll(ctx context.Context, key string) (map[string]string, error)
	CreateIndex(ctx context.Context, def *db.IndexDefinition) error
	IndexExists(ctx context.Context, name string) (bool, error)
	SearchMatch(ctx context.Context, q *db.MatchQuery) (*db.SearchResult, error)
}

// Repo implements usecase/ingest.Indexer and usecase/search.Index.
type Repo struct {
	store     store
	keyPrefix string
	pageSize  int
}

// New creates a photo repository. keyPrefix namespaces keys and the index name.
func New(s store, keyPrefix string) *Repo {
	return &Repo{store: s, keyPrefix: keyPrefix, pageSize: db.DefaultPageSize}
}

// WithPageSize overrides the number of hits returned per search.
func (r *Repo) WithPageSize(n int) *Repo {
	if n > 0 {
		r.pageSize = n
	}
	return r
}

// IndexName returns the full-text index name.
func (r *Repo) IndexName() string { return indexName(r.keyPrefix) }

// EnsureIndex creates the photo index unless it already exists.
func (r *Repo) EnsureIndex(ctx context.Context) error {
	def, err := buildIndex(r.keyPrefix)
	if err != nil {
		return fmt.Errorf("build index: %w", err)
	}

	exists, err := r.store.IndexExists(ctx, def.Name)
	if err != nil {
		return fmt.Errorf("check index %s: %w", def.Name, err)
	}
	if exists {
		return nil
	}

	// Another replica may have created it between the check and FT.CREATE.
	if err := r.store.CreateIndex(ctx, def); err != nil && !errors.Is(err, db.ErrIndexExists) {
		return fmt.Errorf("create index %s: %w", def.Name, err)
	}
	return nil
}

// Upsert fully replaces the document stored under its object key.
// The write is searchable once Upsert returns.
func (r *Repo) Upsert(ctx context.Context, doc *domphoto.Document) error {
	key := docKey(r.keyPrefix, doc.ObjectKey())
	if err := r.store.HReplace(ctx, key, photoToHash(doc)); err != nil {
		return fmt.Errorf("upsert %s: %w: %w", key, domain.ErrIndexWriteFailure, err)
	}
	return nil
}

// Get returns the stored document for objectKey, domain.ErrPhotoNotFound when absent.
// Store failures wrap domain.ErrIndexQueryFailure.
func (r *Repo) Get(ctx context.Context, objectKey string) (domphoto.Document, error) {
	key := docKey(r.keyPrefix, objectKey)
	m, err := r.store.HGetAll(ctx, key)
	if err != nil {
		if errors.Is(err, db.ErrKeyNotFound) {
			return domphoto.Document{}, domain.ErrPhotoNotFound
		}
		return domphoto.Document{}, fmt.Errorf("get %s: %w: %w", key, domain.ErrIndexQueryFailure, err)
	}
	return photoFromHash(m), nil
}

// Search executes q and returns hits in engine relevance order.
func (r *Repo) Search(ctx context.Context, q *query.Query) ([]hit.Hit, error) {
	sr, err := r.store.SearchMatch(ctx, &db.MatchQuery{
		IndexName:          r.IndexName(),
		Field:              fieldLabels,
		Clauses:            q.Clauses(),
		MinimumShouldMatch: q.MinimumShouldMatch(),
		Limit:              r.pageSize,
		ReturnFields:       returnFields,
	})
	if err != nil {
		return nil, fmt.Errorf("search %q: %w: %w", q.Raw(), domain.ErrIndexQueryFailure, err)
	}
	if sr == nil {
		return []hit.Hit{}, nil
	}

	hits := make([]hit.Hit, 0, len(sr.Entries))
	for _, e := range sr.Entries {
		objectKey := e.Fields[fieldObjectKey]
		if objectKey == "" {
			objectKey = strings.TrimPrefix(e.Key, docPrefix(r.keyPrefix))
		}
		hits = append(hits, hit.New(e.Fields[fieldBucket], objectKey, splitLabels(e.Fields[fieldLabels]), e.Score))
	}
	return hits, nil
}

// IndexReady reports domain.ErrIndexQueryFailure when the photo index is absent.
func (r *Repo) IndexReady(ctx context.Context) error {
	exists, err := r.store.IndexExists(ctx, r.IndexName())
	if err != nil {
		return fmt.Errorf("check index: %w", err)
	}
	if !exists {
		return fmt.Errorf("index %s: %w: %w", r.IndexName(), domain.ErrIndexQueryFailure, db.ErrIndexNotFound)
	}
	return nil
}
