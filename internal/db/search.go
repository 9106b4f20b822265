package db

import "github.com/kailas-cloud/photodex/internal/domain/query"

// DefaultPageSize is the FT.SEARCH page size used when MatchQuery.Limit is unset.
const DefaultPageSize = 10

// MatchQuery is the input for a full-text OR query over a single TEXT field.
type MatchQuery struct {
	IndexName          string
	Field              string
	Clauses            []query.Clause
	MinimumShouldMatch int
	Limit              int
	ReturnFields       []string
}

// SearchResult is the output of a search operation.
type SearchResult struct {
	Total   int
	Entries []SearchEntry
}

// SearchEntry is a single document hit from a search.
type SearchEntry struct {
	Key    string
	Score  float64
	Fields map[string]string
}
