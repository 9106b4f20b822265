package redis

import (
	"context"
	"errors"
	"slices"
	"testing"

	"github.com/redis/rueidis"
	"github.com/redis/rueidis/mock"
	"go.uber.org/mock/gomock"

	"github.com/kailas-cloud/photodex/internal/db"
	"github.com/kailas-cloud/photodex/internal/domain/query"
)

// --- client.go tests ---

func TestPing_Success(t *testing.T) {
	ctrl := gomock.NewController(t)
	c := mock.NewClient(ctrl)

	c.EXPECT().
		Do(gomock.Any(), mock.Match("PING")).
		Return(mock.Result(mock.RedisString("PONG")))

	s := NewStoreForTest(c)
	if err := s.Ping(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestPing_Error(t *testing.T) {
	ctrl := gomock.NewController(t)
	c := mock.NewClient(ctrl)

	c.EXPECT().
		Do(gomock.Any(), mock.Match("PING")).
		Return(mock.ErrorResult(context.DeadlineExceeded))

	s := NewStoreForTest(c)
	if err := s.Ping(context.Background()); err == nil {
		t.Fatal("expected error")
	}
}

func TestContainsIgnoreCase(t *testing.T) {
	tests := []struct {
		s, sub string
		want   bool
	}{
		{"Index Already Exists", "index already exists", true},
		{"UNKNOWN INDEX NAME", "unknown index name", true},
		{"hello world", "world", true},
		{"short", "longer than input", false},
		{"exact", "exact", true},
		{"", "", true},
		{"notempty", "", true},
	}
	for _, tc := range tests {
		got := containsIgnoreCase(tc.s, tc.sub)
		if got != tc.want {
			t.Errorf("containsIgnoreCase(%q, %q) = %v, want %v", tc.s, tc.sub, got, tc.want)
		}
	}
}

// --- hash.go tests ---

func TestHReplace_Success(t *testing.T) {
	ctrl := gomock.NewController(t)
	c := mock.NewClient(ctrl)

	var sent [][]string
	c.EXPECT().
		DoMulti(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, cmds ...rueidis.Completed) []rueidis.RedisResult {
			for _, cmd := range cmds {
				sent = append(sent, cmd.Commands())
			}
			return []rueidis.RedisResult{
				mock.Result(mock.RedisString("OK")),
				mock.Result(mock.RedisString("QUEUED")),
				mock.Result(mock.RedisString("QUEUED")),
				mock.Result(mock.RedisArray(mock.RedisInt64(1), mock.RedisInt64(2))),
			}
		})

	s := NewStoreForTest(c)
	err := s.HReplace(context.Background(), "photo:dog.jpg", map[string]string{
		"labels": "dog,grass",
		"bucket": "photos",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(sent) != 4 {
		t.Fatalf("sent %d commands, want 4", len(sent))
	}
	want := []string{"MULTI", "DEL", "HSET", "EXEC"}
	for i, name := range want {
		if sent[i][0] != name {
			t.Errorf("cmd[%d] = %v, want %s", i, sent[i], name)
		}
	}
	if sent[1][1] != "photo:dog.jpg" || sent[2][1] != "photo:dog.jpg" {
		t.Errorf("DEL/HSET key mismatch: %v %v", sent[1], sent[2])
	}
}

func TestHReplace_QueueError(t *testing.T) {
	ctrl := gomock.NewController(t)
	c := mock.NewClient(ctrl)

	c.EXPECT().
		DoMulti(gomock.Any(), gomock.Any()).
		Return([]rueidis.RedisResult{
			mock.Result(mock.RedisString("OK")),
			mock.Result(mock.RedisString("QUEUED")),
			mock.Result(mock.RedisError("WRONGTYPE Operation against a key holding the wrong kind of value")),
			mock.Result(mock.RedisError("EXECABORT Transaction discarded because of previous errors")),
		})

	s := NewStoreForTest(c)
	err := s.HReplace(context.Background(), "k", map[string]string{"f": "v"})
	if err == nil {
		t.Fatal("expected error")
	}
	var dbErr *db.Error
	if !errors.As(err, &dbErr) || dbErr.Op != db.OpHSet {
		t.Errorf("expected HSET db.Error, got %v", err)
	}
}

func TestHReplace_ExecReplyError(t *testing.T) {
	ctrl := gomock.NewController(t)
	c := mock.NewClient(ctrl)

	c.EXPECT().
		DoMulti(gomock.Any(), gomock.Any()).
		Return([]rueidis.RedisResult{
			mock.Result(mock.RedisString("OK")),
			mock.Result(mock.RedisString("QUEUED")),
			mock.Result(mock.RedisString("QUEUED")),
			mock.Result(mock.RedisArray(mock.RedisInt64(0), mock.RedisError("OOM command not allowed"))),
		})

	s := NewStoreForTest(c)
	err := s.HReplace(context.Background(), "k", map[string]string{"f": "v"})
	var dbErr *db.Error
	if !errors.As(err, &dbErr) || dbErr.Op != db.OpExec {
		t.Errorf("expected EXEC db.Error, got %v", err)
	}
}

func TestHReplace_NoFields(t *testing.T) {
	s := NewStoreForTest(nil) // client not called
	if err := s.HReplace(context.Background(), "k", nil); !isDBError(err) {
		t.Errorf("expected db.Error, got %v", err)
	}
}

func TestHGetAll_Success(t *testing.T) {
	ctrl := gomock.NewController(t)
	c := mock.NewClient(ctrl)

	c.EXPECT().
		Do(gomock.Any(), mock.Match("HGETALL", "mykey")).
		Return(mock.Result(mock.RedisMap(map[string]rueidis.RedisMessage{
			"f1": mock.RedisString("v1"),
			"f2": mock.RedisString("v2"),
		})))

	s := NewStoreForTest(c)
	m, err := s.HGetAll(context.Background(), "mykey")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if m["f1"] != "v1" || m["f2"] != "v2" {
		t.Errorf("unexpected map: %v", m)
	}
}

func TestHGetAll_Missing(t *testing.T) {
	ctrl := gomock.NewController(t)
	c := mock.NewClient(ctrl)

	c.EXPECT().
		Do(gomock.Any(), mock.Match("HGETALL", "mykey")).
		Return(mock.Result(mock.RedisMap(map[string]rueidis.RedisMessage{})))

	s := NewStoreForTest(c)
	_, err := s.HGetAll(context.Background(), "mykey")
	if !errors.Is(err, db.ErrKeyNotFound) {
		t.Errorf("expected ErrKeyNotFound, got %v", err)
	}
}

func TestHGetAll_Error(t *testing.T) {
	ctrl := gomock.NewController(t)
	c := mock.NewClient(ctrl)

	c.EXPECT().
		Do(gomock.Any(), mock.Match("HGETALL", "mykey")).
		Return(mock.ErrorResult(context.DeadlineExceeded))

	s := NewStoreForTest(c)
	_, err := s.HGetAll(context.Background(), "mykey")
	if !isDBError(err) {
		t.Errorf("expected db.Error, got %v", err)
	}
}

// --- index.go tests ---

func TestCreateIndex_Success(t *testing.T) {
	ctrl := gomock.NewController(t)
	c := mock.NewClient(ctrl)

	var sent []string
	c.EXPECT().
		Do(gomock.Any(), mock.MatchFn(func(cmd []string) bool {
			sent = cmd
			return cmd[0] == "FT.CREATE"
		})).
		Return(mock.Result(mock.RedisString("OK")))

	s := NewStoreForTest(c)
	idx, err := db.NewIndex("photos:idx").
		Prefix("photo:").
		WithoutStopwords().
		TextNoStem("labels").
		Tag("bucket").
		NumericSortable("created_at").
		Build()
	if err != nil {
		t.Fatalf("build index: %v", err)
	}
	if err := s.CreateIndex(context.Background(), idx); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := []string{
		"FT.CREATE", "photos:idx", "ON", "HASH", "PREFIX", "1", "photo:", "STOPWORDS", "0",
		"SCHEMA", "labels", "TEXT", "NOSTEM", "bucket", "TAG", "created_at", "NUMERIC", "SORTABLE",
	}
	if !slices.Equal(sent, want) {
		t.Errorf("FT.CREATE args:\n got %v\nwant %v", sent, want)
	}
}

func TestCreateIndex_AlreadyExists(t *testing.T) {
	ctrl := gomock.NewController(t)
	c := mock.NewClient(ctrl)

	c.EXPECT().
		Do(gomock.Any(), mock.MatchFn(func(cmd []string) bool {
			return cmd[0] == "FT.CREATE"
		})).
		Return(mock.Result(mock.RedisError("Index already exists")))

	s := NewStoreForTest(c)
	idx := &db.IndexDefinition{
		Name:   "test:idx",
		Fields: []db.IndexField{{Name: "f", Type: db.IndexFieldTag}},
	}
	err := s.CreateIndex(context.Background(), idx)
	if !errors.Is(err, db.ErrIndexExists) {
		t.Errorf("expected ErrIndexExists, got %v", err)
	}
}

func TestCreateIndex_Error(t *testing.T) {
	ctrl := gomock.NewController(t)
	c := mock.NewClient(ctrl)

	c.EXPECT().
		Do(gomock.Any(), mock.MatchFn(func(cmd []string) bool {
			return cmd[0] == "FT.CREATE"
		})).
		Return(mock.ErrorResult(context.DeadlineExceeded))

	s := NewStoreForTest(c)
	idx := &db.IndexDefinition{
		Name:   "test:idx",
		Fields: []db.IndexField{{Name: "f", Type: db.IndexFieldTag}},
	}
	if err := s.CreateIndex(context.Background(), idx); !isDBError(err) {
		t.Fatalf("expected db.Error, got %v", err)
	}
}

func TestIndexExists_True(t *testing.T) {
	ctrl := gomock.NewController(t)
	c := mock.NewClient(ctrl)

	c.EXPECT().
		Do(gomock.Any(), mock.Match("FT.INFO", "test:idx")).
		Return(mock.Result(mock.RedisArray(mock.RedisString("index_name"), mock.RedisString("test:idx"))))

	s := NewStoreForTest(c)
	exists, err := s.IndexExists(context.Background(), "test:idx")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !exists {
		t.Error("expected true")
	}
}

func TestIndexExists_False(t *testing.T) {
	ctrl := gomock.NewController(t)
	c := mock.NewClient(ctrl)

	c.EXPECT().
		Do(gomock.Any(), mock.Match("FT.INFO", "test:idx")).
		Return(mock.Result(mock.RedisError("Unknown Index name")))

	s := NewStoreForTest(c)
	exists, err := s.IndexExists(context.Background(), "test:idx")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if exists {
		t.Error("expected false")
	}
}

func TestBuildCreateArgs_Validation(t *testing.T) {
	_, err := buildCreateArgs(&db.IndexDefinition{Name: "", Fields: []db.IndexField{{Name: "f", Type: db.IndexFieldTag}}})
	if err == nil {
		t.Error("expected error for empty name")
	}

	_, err = buildCreateArgs(&db.IndexDefinition{Name: "test"})
	if err == nil {
		t.Error("expected error for empty fields")
	}
}

func TestBuildFieldArgs(t *testing.T) {
	tests := []struct {
		name  string
		field db.IndexField
		want  []string
	}{
		{"tag", db.IndexField{Name: "f", Type: db.IndexFieldTag}, []string{"f", "TAG"}},
		{"numeric", db.IndexField{Name: "f", Type: db.IndexFieldNumeric}, []string{"f", "NUMERIC"}},
		{"numeric_sortable", db.IndexField{Name: "f", Type: db.IndexFieldNumeric, Sortable: true}, []string{"f", "NUMERIC", "SORTABLE"}},
		{"text", db.IndexField{Name: "f", Type: db.IndexFieldText}, []string{"f", "TEXT"}},
		{"text_nostem", db.IndexField{Name: "f", Type: db.IndexFieldText, NoStem: true}, []string{"f", "TEXT", "NOSTEM"}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			args, err := buildFieldArgs(&tc.field)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if !slices.Equal(args, tc.want) {
				t.Errorf("args = %v, want %v", args, tc.want)
			}
		})
	}
}

func TestBuildFieldArgs_Errors(t *testing.T) {
	_, err := buildFieldArgs(&db.IndexField{Name: "", Type: db.IndexFieldTag})
	if err == nil {
		t.Error("expected error for empty field name")
	}

	_, err = buildFieldArgs(&db.IndexField{Name: "f", Type: db.IndexFieldType(99)})
	if err == nil {
		t.Error("expected error for unknown type")
	}
}

// --- search.go tests ---

func TestSearchMatch_Success(t *testing.T) {
	ctrl := gomock.NewController(t)
	c := mock.NewClient(ctrl)

	var sent []string
	c.EXPECT().
		Do(gomock.Any(), mock.MatchFn(func(cmd []string) bool {
			sent = cmd
			return cmd[0] == "FT.SEARCH"
		})).
		Return(mock.Result(mock.RedisArray(
			mock.RedisInt64(2),
			mock.RedisString("photo:dog.jpg"),
			mock.RedisString("2.5"),
			mock.RedisArray(
				mock.RedisString("object_key"), mock.RedisString("dog.jpg"),
				mock.RedisString("labels"), mock.RedisString("dog,grass"),
			),
			mock.RedisString("photo:dogs.jpg"),
			mock.RedisString("1.25"),
			mock.RedisArray(
				mock.RedisString("object_key"), mock.RedisString("dogs.jpg"),
				mock.RedisString("labels"), mock.RedisString("dogs"),
			),
		)))

	s := NewStoreForTest(c)
	q, err := query.Build("dogs")
	if err != nil {
		t.Fatalf("build query: %v", err)
	}
	result, err := s.SearchMatch(context.Background(), &db.MatchQuery{
		IndexName:          "photos:idx",
		Field:              "labels",
		Clauses:            q.Clauses(),
		MinimumShouldMatch: q.MinimumShouldMatch(),
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := []string{
		"FT.SEARCH", "photos:idx", "@labels:(%dogs% | dog)",
		"WITHSCORES", "LIMIT", "0", "10", "DIALECT", "2",
	}
	if !slices.Equal(sent, want) {
		t.Errorf("FT.SEARCH args:\n got %v\nwant %v", sent, want)
	}

	if result.Total != 2 || len(result.Entries) != 2 {
		t.Fatalf("got total=%d entries=%d", result.Total, len(result.Entries))
	}
	first := result.Entries[0]
	if first.Key != "photo:dog.jpg" || first.Score != 2.5 {
		t.Errorf("first entry = %+v", first)
	}
	if first.Fields["labels"] != "dog,grass" {
		t.Errorf("labels = %q", first.Fields["labels"])
	}
}

func TestSearchMatch_LimitAndReturn(t *testing.T) {
	ctrl := gomock.NewController(t)
	c := mock.NewClient(ctrl)

	var sent []string
	c.EXPECT().
		Do(gomock.Any(), mock.MatchFn(func(cmd []string) bool {
			sent = cmd
			return cmd[0] == "FT.SEARCH"
		})).
		Return(mock.Result(mock.RedisArray(mock.RedisInt64(0))))

	s := NewStoreForTest(c)
	result, err := s.SearchMatch(context.Background(), &db.MatchQuery{
		IndexName:    "idx",
		Field:        "labels",
		Clauses:      []query.Clause{{Term: "sunset", Fuzziness: query.Auto}},
		Limit:        25,
		ReturnFields: []string{"object_key", "labels"},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(result.Entries) != 0 {
		t.Errorf("expected no entries, got %d", len(result.Entries))
	}

	want := []string{
		"FT.SEARCH", "idx", "@labels:(%%sunset%%)",
		"RETURN", "2", "object_key", "labels",
		"WITHSCORES", "LIMIT", "0", "25", "DIALECT", "2",
	}
	if !slices.Equal(sent, want) {
		t.Errorf("FT.SEARCH args:\n got %v\nwant %v", sent, want)
	}
}

func TestSearchMatch_NoSearchableTerms(t *testing.T) {
	s := NewStoreForTest(nil) // client not called
	result, err := s.SearchMatch(context.Background(), &db.MatchQuery{
		IndexName: "idx",
		Field:     "labels",
		Clauses:   []query.Clause{{Term: "!!!", Fuzziness: query.Auto}},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Total != 0 || len(result.Entries) != 0 {
		t.Errorf("expected empty result, got %+v", result)
	}
}

func TestSearchMatch_Validation(t *testing.T) {
	s := &Store{}
	ctx := context.Background()
	clauses := []query.Clause{{Term: "cat", Fuzziness: query.Auto}}

	if _, err := s.SearchMatch(ctx, &db.MatchQuery{Field: "labels", Clauses: clauses}); err == nil {
		t.Error("expected error for empty index name")
	}
	if _, err := s.SearchMatch(ctx, &db.MatchQuery{IndexName: "idx", Clauses: clauses}); err == nil {
		t.Error("expected error for empty field")
	}
	if _, err := s.SearchMatch(ctx, &db.MatchQuery{
		IndexName: "idx", Field: "labels", Clauses: clauses, MinimumShouldMatch: 2,
	}); err == nil {
		t.Error("expected error for minimum should match > 1")
	}
}

func TestSearchMatch_Error(t *testing.T) {
	ctrl := gomock.NewController(t)
	c := mock.NewClient(ctrl)

	c.EXPECT().
		Do(gomock.Any(), mock.MatchFn(func(cmd []string) bool {
			return cmd[0] == "FT.SEARCH"
		})).
		Return(mock.Result(mock.RedisError("idx: no such index")))

	s := NewStoreForTest(c)
	_, err := s.SearchMatch(context.Background(), &db.MatchQuery{
		IndexName: "idx",
		Field:     "labels",
		Clauses:   []query.Clause{{Term: "cat", Fuzziness: query.Auto}},
	})
	if !errors.Is(err, db.ErrIndexNotFound) {
		t.Errorf("expected ErrIndexNotFound, got %v", err)
	}
	if !isDBError(err) {
		t.Errorf("expected db.Error, got %T", err)
	}
}

func TestRenderClauses(t *testing.T) {
	tests := []struct {
		name    string
		clauses []query.Clause
		want    []string
	}{
		{
			name:    "short fuzzy stays exact",
			clauses: []query.Clause{{Term: "ox", Fuzziness: query.Auto}},
			want:    []string{"ox"},
		},
		{
			name:    "one edit",
			clauses: []query.Clause{{Term: "horse", Fuzziness: query.Auto}},
			want:    []string{"%horse%"},
		},
		{
			name:    "two edits",
			clauses: []query.Clause{{Term: "mountain", Fuzziness: query.Auto}},
			want:    []string{"%%mountain%%"},
		},
		{
			name:    "exact clause",
			clauses: []query.Clause{{Term: "dog", Fuzziness: query.Exact}},
			want:    []string{"dog"},
		},
		{
			name:    "punctuation splits fragments",
			clauses: []query.Clause{{Term: "dogs!", Fuzziness: query.Auto}, {Term: "sea-lion", Fuzziness: query.Auto}},
			want:    []string{"%dogs%", "%sea%", "%lion%"},
		},
		{
			name:    "duplicates removed",
			clauses: []query.Clause{{Term: "cat", Fuzziness: query.Auto}, {Term: "cat!", Fuzziness: query.Auto}},
			want:    []string{"%cat%"},
		},
		{
			name:    "injection characters dropped",
			clauses: []query.Clause{{Term: "@labels:{x}|*", Fuzziness: query.Exact}},
			want:    []string{"labels"},
		},
		{
			name:    "possessive drops trailing letter",
			clauses: []query.Clause{{Term: "dog's", Fuzziness: query.Auto}},
			want:    []string{"%dog%"},
		},
		{
			name:    "hyphen prefix letter dropped",
			clauses: []query.Clause{{Term: "t-shirt", Fuzziness: query.Auto}, {Term: "t-shirt", Fuzziness: query.Exact}},
			want:    []string{"%shirt%", "shirt"},
		},
		{
			name:    "short whole term kept",
			clauses: []query.Clause{{Term: "ox!", Fuzziness: query.Auto}},
			want:    []string{"ox"},
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := renderClauses(tc.clauses)
			if !slices.Equal(got, tc.want) {
				t.Errorf("renderClauses() = %v, want %v", got, tc.want)
			}
		})
	}
}

func TestParseScoredResult_SkipsMalformed(t *testing.T) {
	raw := []rueidis.RedisMessage{
		mock.RedisInt64(2),
		mock.RedisString("photo:a"),
		mock.RedisString("not-a-number"),
		mock.RedisArray(),
		mock.RedisString("photo:b"),
		mock.RedisString("0.5"),
		mock.RedisArray(mock.RedisString("labels"), mock.RedisString("cat")),
	}
	res, err := parseScoredResult(raw)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(res.Entries) != 1 || res.Entries[0].Key != "photo:b" {
		t.Errorf("entries = %+v", res.Entries)
	}
}

func isDBError(err error) bool {
	var dbErr *db.Error
	return errors.As(err, &dbErr)
}
