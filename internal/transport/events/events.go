// Package events decodes object-created notifications into typed ingestion records.
//
// Two envelopes are understood: the native batch {"records":[{"bucket","key"}]} with its S3
// counterpart {"Records":[{"s3":{...}}]}, and GCS CloudEvents.
package events

import (
	"encoding/json"
	"fmt"
	"net/url"

	cloudevents "github.com/cloudevents/sdk-go/v2"

	"github.com/kailas-cloud/photodex/internal/domain"
	"github.com/kailas-cloud/photodex/internal/domain/notification"
)

// TypeObjectFinalized is the CloudEvent type GCS emits when an object is written.
const TypeObjectFinalized = "google.cloud.storage.object.v1.finalized"

// ErrUnsupportedEvent signals a CloudEvent of a type other than TypeObjectFinalized.
// It wraps domain.ErrInvalidRecord.
var ErrUnsupportedEvent = fmt.Errorf("unsupported event type: %w", domain.ErrInvalidRecord)

// StorageObjectData is the payload of a GCS object CloudEvent.
type StorageObjectData struct {
	Bucket      string            `json:"bucket"`
	Name        string            `json:"name"`
	ContentType string            `json:"contentType,omitempty"`
	Metadata    map[string]string `json:"metadata,omitempty"`
}

// FromCloudEvent converts a finalized-object CloudEvent into a record.
func FromCloudEvent(e *cloudevents.Event) (notification.Record, error) {
	if e.Type() != TypeObjectFinalized {
		return notification.Record{}, fmt.Errorf("%q: %w", e.Type(), ErrUnsupportedEvent)
	}

	var data StorageObjectData
	if err := json.Unmarshal(e.Data(), &data); err != nil {
		return notification.Record{}, fmt.Errorf("decode event data: %w: %w", domain.ErrInvalidRecord, err)
	}
	return notification.New(data.Bucket, data.Name)
}

type envelope struct {
	Records   []plainRecord `json:"records"`
	S3Records []s3Record    `json:"Records"`
}

type plainRecord struct {
	Bucket string `json:"bucket"`
	Key    string `json:"key"`
}

type s3Record struct {
	S3 struct {
		Bucket struct {
			Name string `json:"name"`
		} `json:"bucket"`
		Object struct {
			Key string `json:"key"`
		} `json:"object"`
	} `json:"s3"`
}

// Rejection is a record refused while decoding a batch.
type Rejection struct {
	Index  int
	Bucket string
	Key    string
	Err    error
}

// Batch is a decoded notification body: the valid records in input order plus the
// records that failed validation.
type Batch struct {
	Records  []notification.Record
	Rejected []Rejection
}

// DecodeBatch parses a notification body in either the native or the S3 shape.
// S3 object keys arrive form-encoded and are unescaped. Only an unreadable envelope
// fails with domain.ErrInvalidRecord; an invalid record is listed in Batch.Rejected
// and the others are kept.
func DecodeBatch(body []byte) (Batch, error) {
	var env envelope
	if err := json.Unmarshal(body, &env); err != nil {
		return Batch{}, fmt.Errorf("decode body: %w: %w", domain.ErrInvalidRecord, err)
	}

	switch {
	case env.Records != nil && env.S3Records != nil:
		return Batch{}, fmt.Errorf("both records and Records present: %w", domain.ErrInvalidRecord)
	case env.Records != nil:
		b := Batch{Records: make([]notification.Record, 0, len(env.Records))}
		for i, r := range env.Records {
			b.add(i, r.Bucket, r.Key, nil)
		}
		return b, nil
	case env.S3Records != nil:
		b := Batch{Records: make([]notification.Record, 0, len(env.S3Records))}
		for i, r := range env.S3Records {
			key, err := url.QueryUnescape(r.S3.Object.Key)
			if err != nil {
				b.add(i, r.S3.Bucket.Name, r.S3.Object.Key,
					fmt.Errorf("unescape key: %w: %w", domain.ErrInvalidRecord, err))
				continue
			}
			b.add(i, r.S3.Bucket.Name, key, nil)
		}
		return b, nil
	default:
		return Batch{}, fmt.Errorf("no records: %w", domain.ErrInvalidRecord)
	}
}

// add validates one record, or rejects it outright when decodeErr is set.
func (b *Batch) add(i int, bucket, key string, decodeErr error) {
	err := decodeErr
	if err == nil {
		var rec notification.Record
		if rec, err = notification.New(bucket, key); err == nil {
			b.Records = append(b.Records, rec)
			return
		}
	}
	b.Rejected = append(b.Rejected, Rejection{Index: i, Bucket: bucket, Key: key, Err: err})
}
