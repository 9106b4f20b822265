package photo

import (
	"context"
	"testing"

	"github.com/kailas-cloud/photodex/internal/db"
)

// mockStore implements the consumer interface for tests.
type mockStore struct {
	hreplaceFn    func(ctx context.Context, key string, fields map[string]string) error
	hgetAllFn     func(ctx context.Context, key string) (map[string]string, error)
	createIndexFn func(ctx context.Context, def *db.IndexDefinition) error
	indexExistsFn func(ctx context.Context, name string) (bool, error)
	searchMatchFn func(ctx context.Context, q *db.MatchQuery) (*db.SearchResult, error)
}

func (m *mockStore) HReplace(ctx context.Context, key string, fields map[string]string) error {
	if m.hreplaceFn != nil {
		return m.hreplaceFn(ctx, key, fields)
	}
	return nil
}

func (m *mockStore) HGetAll(ctx context.Context, key string) (map[string]string, error) {
	if m.hgetAllFn != nil {
		return m.hgetAllFn(ctx, key)
	}
	return nil, db.ErrKeyNotFound
}

func (m *mockStore) CreateIndex(ctx context.Context, def *db.IndexDefinition) error {
	if m.createIndexFn != nil {
		return m.createIndexFn(ctx, def)
	}
	return nil
}

func (m *mockStore) IndexExists(ctx context.Context, name string) (bool, error) {
	if m.indexExistsFn != nil {
		return m.indexExistsFn(ctx, name)
	}
	return false, nil
}

func (m *mockStore) SearchMatch(ctx context.Context, q *db.MatchQuery) (*db.SearchResult, error) {
	if m.searchMatchFn != nil {
		return m.searchMatchFn(ctx, q)
	}
	return &db.SearchResult{}, nil
}

// memStore is a hash map with replace semantics, for read-after-write tests.
type memStore struct {
	mockStore
	hashes map[string]map[string]string
}

func newMemStore() *memStore {
	ms := &memStore{hashes: make(map[string]map[string]string)}
	ms.hreplaceFn = func(_ context.Context, key string, fields map[string]string) error {
		cp := make(map[string]string, len(fields))
		for k, v := range fields {
			cp[k] = v
		}
		ms.hashes[key] = cp
		return nil
	}
	ms.hgetAllFn = func(_ context.Context, key string) (map[string]string, error) {
		m, ok := ms.hashes[key]
		if !ok {
			return nil, db.ErrKeyNotFound
		}
		return m, nil
	}
	return ms
}

func newTestRepo(t *testing.T) (*Repo, *mockStore) {
	t.Helper()
	ms := &mockStore{}
	return New(ms, "photodex:"), ms
}
