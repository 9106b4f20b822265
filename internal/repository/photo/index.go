package photo

import "github.com/kailas-cloud/photodex/internal/db"

func docPrefix(keyPrefix string) string { return keyPrefix + "photo:" }

func docKey(keyPrefix, objectKey string) string { return docPrefix(keyPrefix) + objectKey }

func indexName(keyPrefix string) string { return keyPrefix + "photos:idx" }

// buildIndex returns the photo index: labels is TEXT without stemming so that
// plural handling stays with the query builder.
func buildIndex(keyPrefix string) (*db.IndexDefinition, error) {
	return db.NewIndex(indexName(keyPrefix)).
		OnHash().
		Prefix(docPrefix(keyPrefix)).
		WithoutStopwords().
		TextNoStem(fieldLabels).
		Tag(fieldBucket).
		NumericSortable(fieldCreatedAt).
		Build()
}
