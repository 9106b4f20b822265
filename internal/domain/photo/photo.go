package photo

import (
	"errors"
	"slices"
	"time"
)

// MaxKeyLength bounds object keys accepted for indexing (the object store limit).
const MaxKeyLength = 1024

// Document is the indexed view of one stored photograph (immutable value object).
type Document struct {
	objectKey string
	bucket    string
	labels    []string
	createdAt time.Time
}

// New validates and creates a Document. labels must already be normalized;
// createdAt is stored in UTC.
func New(bucket, objectKey string, labels []string, createdAt time.Time) (Document, error) {
	if bucket == "" {
		return Document{}, errors.New("bucket is required")
	}
	if objectKey == "" {
		return Document{}, errors.New("object key is required")
	}
	if len(objectKey) > MaxKeyLength {
		return Document{}, errors.New("object key too long")
	}
	return Document{
		objectKey: objectKey,
		bucket:    bucket,
		labels:    slices.Clone(labels),
		createdAt: createdAt.UTC(),
	}, nil
}

// Reconstruct creates a Document without validation (storage hydration).
func Reconstruct(bucket, objectKey string, labels []string, createdAt time.Time) Document {
	return Document{objectKey: objectKey, bucket: bucket, labels: labels, createdAt: createdAt}
}

// ObjectKey returns the object key, which is also the document ID.
func (d *Document) ObjectKey() string { return d.objectKey }

// Bucket returns the storage bucket holding the image.
func (d *Document) Bucket() string { return d.bucket }

// Labels returns the label set.
func (d *Document) Labels() []string { return d.labels }

// CreatedAt returns the indexing time.
func (d *Document) CreatedAt() time.Time { return d.createdAt }
