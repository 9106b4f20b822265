// Package hit holds search hits and the access links handed to clients.
package hit

// Hit is a single document returned by the index, in relevance order.
type Hit struct {
	objectKey string
	bucket    string
	labels    []string
	score     float64
}

// New creates a search hit.
func New(bucket, objectKey string, labels []string, score float64) Hit {
	return Hit{objectKey: objectKey, bucket: bucket, labels: labels, score: score}
}

// ObjectKey returns the object key of the matched photo.
func (h *Hit) ObjectKey() string { return h.objectKey }

// Bucket returns the bucket of the matched photo.
func (h *Hit) Bucket() string { return h.bucket }

// Labels returns the stored labels.
func (h *Hit) Labels() []string { return h.labels }

// Score returns the engine relevance score.
func (h *Hit) Score() float64 { return h.score }

// LinkKind tells which branch produced an access link.
type LinkKind string

// Link kinds.
const (
	KindSigned LinkKind = "signed"
	KindPublic LinkKind = "public"
)

// Link is an access URL for a photo.
type Link struct {
	URL  string
	Kind LinkKind
}

// Result is a hit enriched with an access link.
type Result struct {
	Hit  Hit
	Link Link
}
