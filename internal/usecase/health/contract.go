package health

import "context"

// DBPinger checks database availability.
type DBPinger interface {
	Ping(ctx context.Context) error
}

// IndexChecker reports whether the photo index is queryable.
type IndexChecker interface {
	IndexReady(ctx context.Context) error
}

// DetectionChecker checks label detection provider availability.
type DetectionChecker interface {
	HealthCheck(ctx context.Context) error
}
