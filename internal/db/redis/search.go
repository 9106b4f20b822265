package redis

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/redis/rueidis"

	"github.com/kailas-cloud/photodex/internal/db"
	"github.com/kailas-cloud/photodex/internal/domain/query"
)

// SearchMatch runs a scored OR query over a TEXT field via FT.SEARCH.
// A query whose clauses reduce to no searchable term returns an empty result
// without touching the server.
func (s *Store) SearchMatch(ctx context.Context, q *db.MatchQuery) (*db.SearchResult, error) {
	if q.IndexName == "" {
		return nil, errors.New("index name is required")
	}
	if q.Field == "" {
		return nil, errors.New("field is required")
	}
	if q.MinimumShouldMatch > 1 {
		return nil, fmt.Errorf("minimum should match %d is not supported", q.MinimumShouldMatch)
	}

	terms := renderClauses(q.Clauses)
	if len(terms) == 0 {
		return &db.SearchResult{}, nil
	}

	limit := q.Limit
	if limit <= 0 {
		limit = db.DefaultPageSize
	}

	queryStr := fmt.Sprintf("@%s:(%s)", q.Field, strings.Join(terms, " | "))
	args := []string{q.IndexName, queryStr}

	if len(q.ReturnFields) > 0 {
		args = append(args, "RETURN", strconv.Itoa(len(q.ReturnFields)))
		args = append(args, q.ReturnFields...)
	}

	args = append(args,
		"WITHSCORES",
		"LIMIT", "0", strconv.Itoa(limit),
		"DIALECT", "2",
	)

	cmd := s.b().Arbitrary("FT.SEARCH").Args(args...).Build()
	raw, err := s.do(ctx, cmd).ToArray()
	if err != nil {
		if isRedisErr(err, "no such index") || isRedisErr(err, "unknown index name") {
			return nil, &db.Error{Op: db.OpSearch, Err: db.ErrIndexNotFound}
		}
		return nil, &db.Error{Op: db.OpSearch, Err: err}
	}

	return parseScoredResult(raw)
}

// --- Query rendering ---

// renderClauses turns clauses into deduplicated query-syntax terms.
// Clause terms are split into letter/digit fragments because the engine's
// tokenizer splits indexed labels the same way.
// Short fragments of a split term are dropped: with stopwords disabled "s" or "t"
// would match unrelated labels.
func renderClauses(clauses []query.Clause) []string {
	out := make([]string, 0, len(clauses))
	seen := make(map[string]struct{}, len(clauses))
	for _, c := range clauses {
		for _, frag := range fragments(c.Term) {
			t := renderTerm(frag, c.Fuzziness)
			if _, ok := seen[t]; ok {
				continue
			}
			seen[t] = struct{}{}
			out = append(out, t)
		}
	}
	return out
}

// renderTerm wraps a fragment in Levenshtein operators: %t% allows one edit,
// %%t%% allows two.
func renderTerm(frag string, f query.Fuzziness) string {
	if f != query.Auto {
		return frag
	}
	switch query.AutoDistance(frag) {
	case 0:
		return frag
	case 1:
		return "%" + frag + "%"
	default:
		return "%%" + frag + "%%"
	}
}

func fragments(term string) []string {
	parts := strings.FieldsFunc(strings.ToLower(term), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	if len(parts) <= 1 {
		return parts
	}

	kept := parts[:0]
	for _, p := range parts {
		if utf8.RuneCountInString(p) >= query.MinTokenLength {
			kept = append(kept, p)
		}
	}
	return kept
}

// --- Result parsing ---

func parseScoredResult(raw []rueidis.RedisMessage) (*db.SearchResult, error) {
	if len(raw) == 0 {
		return &db.SearchResult{}, nil
	}

	total, err := raw[0].AsInt64()
	if err != nil {
		return nil, fmt.Errorf("parse total: %w", err)
	}
	if total == 0 {
		return &db.SearchResult{}, nil
	}

	entries := make([]db.SearchEntry, 0, (len(raw)-1)/3)
	// 3-stride: [total, key1, score1, fields1, key2, score2, fields2, ...]
	for i := 1; i+2 < len(raw); i += 3 {
		key, err := raw[i].ToString()
		if err != nil {
			continue
		}

		scoreStr, err := raw[i+1].ToString()
		if err != nil {
			continue
		}
		score, err := strconv.ParseFloat(scoreStr, 64)
		if err != nil {
			continue
		}

		fields, err := raw[i+2].ToArray()
		if err != nil {
			continue
		}

		entries = append(entries, db.SearchEntry{
			Key:    key,
			Score:  score,
			Fields: parseFieldPairs(fields),
		})
	}

	return &db.SearchResult{Total: int(total), Entries: entries}, nil
}

func parseFieldPairs(fields []rueidis.RedisMessage) map[string]string {
	m := make(map[string]string, len(fields)/2)
	for j := 0; j+1 < len(fields); j += 2 {
		name, err := fields[j].ToString()
		if err != nil {
			continue
		}
		value, err := fields[j+1].ToString()
		if err != nil {
			continue
		}
		m[name] = value
	}
	return m
}
