// Package gcs adapts Google Cloud Storage to the object store the pipelines consume:
// custom-label metadata, signed URLs and public URLs.
package gcs

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"cloud.google.com/go/storage"
	"google.golang.org/api/googleapi"

	"github.com/kailas-cloud/photodex/internal/domain"
)

// MetadataKey is the object metadata field holding comma-separated custom labels.
// It is matched case-insensitively.
const MetadataKey = "customlabels"

// DefaultPublicURLTemplate addresses objects on the public GCS endpoint.
const DefaultPublicURLTemplate = "https://storage.googleapis.com/{bucket}/{key}"

// Config holds the object store settings.
type Config struct {
	// PublicURLTemplate builds fallback links; {bucket} and {key} are substituted.
	PublicURLTemplate string
	// SignerEmail and SignerPrivateKey sign URLs locally. When empty the client
	// detects credentials (service account key or IAM signBlob).
	SignerEmail      string
	SignerPrivateKey []byte
}

// Store implements ingest.MetadataReader and search.Linker on GCS.
type Store struct {
	client   *storage.Client
	template string
	signer   string
	key      []byte
}

// New creates a GCS-backed object store.
func New(client *storage.Client, cfg Config) *Store {
	tmpl := cfg.PublicURLTemplate
	if tmpl == "" {
		tmpl = DefaultPublicURLTemplate
	}
	return &Store{client: client, template: tmpl, signer: cfg.SignerEmail, key: cfg.SignerPrivateKey}
}

// CustomLabels returns the raw custom-labels field, or "" when the object has none.
// Unreadable metadata wraps domain.ErrMetadataReadFailure.
func (s *Store) CustomLabels(ctx context.Context, bucket, key string) (string, error) {
	attrs, err := s.client.Bucket(bucket).Object(key).Attrs(ctx)
	if err != nil {
		return "", fmt.Errorf("attrs %s/%s%s: %w: %w", bucket, key, statusSuffix(err), domain.ErrMetadataReadFailure, err)
	}
	for k, v := range attrs.Metadata {
		if strings.EqualFold(k, MetadataKey) {
			return v, nil
		}
	}
	return "", nil
}

// SignedURL returns a V4 signed GET URL valid for ttl.
func (s *Store) SignedURL(_ context.Context, bucket, key string, ttl time.Duration) (string, error) {
	if bucket == "" || key == "" {
		return "", fmt.Errorf("sign %q/%q: empty location: %w", bucket, key, domain.ErrLinkGenerationFailure)
	}
	opts := &storage.SignedURLOptions{
		Scheme:         storage.SigningSchemeV4,
		Method:         "GET",
		Expires:        time.Now().Add(ttl),
		GoogleAccessID: s.signer,
		PrivateKey:     s.key,
	}
	u, err := s.client.Bucket(bucket).SignedURL(key, opts)
	if err != nil {
		return "", fmt.Errorf("sign %s/%s: %w: %w", bucket, key, domain.ErrLinkGenerationFailure, err)
	}
	return u, nil
}

// PublicURL renders the public URL template for an object.
func (s *Store) PublicURL(bucket, key string) string {
	r := strings.NewReplacer("{bucket}", bucket, "{key}", escapeKey(key))
	return r.Replace(s.template)
}

// ObjectURI returns the gs:// URI of an object.
func ObjectURI(bucket, key string) string {
	return "gs://" + bucket + "/" + key
}

// escapeKey escapes each path segment but keeps the separators.
func escapeKey(key string) string {
	segs := strings.Split(key, "/")
	for i, seg := range segs {
		segs[i] = url.PathEscape(seg)
	}
	return strings.Join(segs, "/")
}

func statusSuffix(err error) string {
	var gerr *googleapi.Error
	if errors.As(err, &gerr) {
		return fmt.Sprintf(" (http %d)", gerr.Code)
	}
	if errors.Is(err, storage.ErrObjectNotExist) {
		return " (not found)"
	}
	return ""
}
