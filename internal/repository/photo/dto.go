package photo

import (
	"strconv"
	"strings"
	"time"

	"github.com/kailas-cloud/photodex/internal/domain/label"
	domphoto "github.com/kailas-cloud/photodex/internal/domain/photo"
)

// Hash field names of a stored photo document.
const (
	fieldObjectKey = "object_key"
	fieldBucket    = "bucket"
	fieldLabels    = "labels"
	fieldCreatedAt = "created_at"
)

// returnFields limits FT.SEARCH replies to what a hit needs.
var returnFields = []string{fieldObjectKey, fieldBucket, fieldLabels}

// photoToHash converts a domain Document to a map for HSET.
func photoToHash(doc *domphoto.Document) map[string]string {
	return map[string]string{
		fieldObjectKey: doc.ObjectKey(),
		fieldBucket:    doc.Bucket(),
		fieldLabels:    strings.Join(doc.Labels(), label.CustomSeparator),
		fieldCreatedAt: strconv.FormatInt(doc.CreatedAt().UnixMilli(), 10),
	}
}

// photoFromHash hydrates a domain Document from an HGETALL result map.
func photoFromHash(m map[string]string) domphoto.Document {
	var createdAt time.Time
	if ms, err := strconv.ParseInt(m[fieldCreatedAt], 10, 64); err == nil {
		createdAt = time.UnixMilli(ms).UTC()
	}
	return domphoto.Reconstruct(m[fieldBucket], m[fieldObjectKey], splitLabels(m[fieldLabels]), createdAt)
}

func splitLabels(s string) []string {
	if s == "" {
		return []string{}
	}
	parts := strings.Split(s, label.CustomSeparator)
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
