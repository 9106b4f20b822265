// Package notification holds validated "object created" records delivered to ingestion.
package notification

import (
	"fmt"
	"strings"

	"github.com/kailas-cloud/photodex/internal/domain"
	"github.com/kailas-cloud/photodex/internal/domain/photo"
)

// Record identifies one stored object to index.
type Record struct {
	bucket string
	key    string
}

// New validates a record at the boundary. Malformed records wrap domain.ErrInvalidRecord.
func New(bucket, key string) (Record, error) {
	bucket = strings.TrimSpace(bucket)
	switch {
	case bucket == "":
		return Record{}, fmt.Errorf("bucket is required: %w", domain.ErrInvalidRecord)
	case key == "":
		return Record{}, fmt.Errorf("object key is required: %w", domain.ErrInvalidRecord)
	case len(key) > photo.MaxKeyLength:
		return Record{}, fmt.Errorf("object key exceeds %d bytes: %w", photo.MaxKeyLength, domain.ErrInvalidRecord)
	case strings.HasSuffix(key, "/"):
		return Record{}, fmt.Errorf("object key %q is a folder placeholder: %w", key, domain.ErrInvalidRecord)
	}
	return Record{bucket: bucket, key: key}, nil
}

// Bucket returns the storage bucket.
func (r Record) Bucket() string { return r.bucket }

// Key returns the object key.
func (r Record) Key() string { return r.key }

// String returns bucket/key for logs.
func (r Record) String() string { return r.bucket + "/" + r.key }
