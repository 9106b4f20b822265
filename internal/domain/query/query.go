// Package query turns a free-text search string into a fuzzy, plural-aware label query.
package query

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/kailas-cloud/photodex/internal/domain"
)

// MinTokenLength is the shortest token kept by the tokenizer; shorter ones are noise.
const MinTokenLength = 3

// Fuzziness selects how a clause term is matched against labels.
type Fuzziness int

const (
	// Exact matches the term without edits.
	Exact Fuzziness = iota
	// Auto allows edits scaled to the term length (see AutoDistance).
	Auto
)

func (f Fuzziness) String() string {
	switch f {
	case Exact:
		return "exact"
	case Auto:
		return "auto"
	default:
		return fmt.Sprintf("Fuzziness(%d)", int(f))
	}
}

// Clause is one optional ("should") match against the labels field.
type Clause struct {
	Term      string
	Fuzziness Fuzziness
}

// AutoDistance returns the edit distance allowed for a fuzzy term:
// 0 for 1-2 runes, 1 for 3-5, 2 beyond.
func AutoDistance(term string) int {
	switch n := utf8.RuneCountInString(term); {
	case n <= 2:
		return 0
	case n <= 5:
		return 1
	default:
		return 2
	}
}

// Query is a boolean OR of clauses over the labels field.
type Query struct {
	raw      string
	tokens   []string
	clauses  []Clause
	minMatch int
}

// Raw returns the query string as received.
func (q *Query) Raw() string { return q.raw }

// Tokens returns the tokens the clauses were built from, in input order.
func (q *Query) Tokens() []string { return q.tokens }

// Clauses returns the should clauses.
func (q *Query) Clauses() []Clause { return q.clauses }

// MinimumShouldMatch returns how many clauses a document must satisfy.
func (q *Query) MinimumShouldMatch() int { return q.minMatch }

// Tokenize lowercases raw, splits it on whitespace and drops tokens shorter than
// MinTokenLength runes.
func Tokenize(raw string) []string {
	fields := strings.Fields(strings.ToLower(raw))
	tokens := make([]string, 0, len(fields))
	for _, f := range fields {
		if utf8.RuneCountInString(f) >= MinTokenLength {
			tokens = append(tokens, f)
		}
	}
	return tokens
}

// Build tokenizes raw and emits a fuzzy clause per token, plus an exact clause on the
// singular form of tokens ending in "s". Returns domain.ErrMissingQuery when no token
// survives.
func Build(raw string) (Query, error) {
	tokens := Tokenize(raw)
	if len(tokens) == 0 {
		return Query{}, domain.ErrMissingQuery
	}

	clauses := make([]Clause, 0, len(tokens)*2)
	seen := make(map[Clause]struct{}, len(tokens)*2)
	add := func(c Clause) {
		if _, ok := seen[c]; ok {
			return
		}
		seen[c] = struct{}{}
		clauses = append(clauses, c)
	}

	for _, tok := range tokens {
		add(Clause{Term: tok, Fuzziness: Auto})
		if singular, ok := Singular(tok); ok {
			add(Clause{Term: singular, Fuzziness: Exact})
		}
	}

	return Query{raw: raw, tokens: tokens, clauses: clauses, minMatch: 1}, nil
}

// Singular strips a trailing "s" from tokens longer than two runes.
// It is a naive plural heuristic, not a stemmer.
func Singular(token string) (string, bool) {
	if utf8.RuneCountInString(token) <= 2 || !strings.HasSuffix(token, "s") {
		return "", false
	}
	return strings.TrimSuffix(token, "s"), true
}
