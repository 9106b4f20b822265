package domain

import "errors"

var (
	// ErrMissingQuery signals a search query with no usable tokens.
	ErrMissingQuery = errors.New("missing query")
	// ErrPhotoNotFound signals that no document is indexed under an object key.
	ErrPhotoNotFound = errors.New("photo not found")
	// ErrInvalidRecord signals a malformed ingestion record rejected at the boundary.
	ErrInvalidRecord = errors.New("invalid record")

	// ErrDetectionFailure signals a failed or unusable label detection call.
	ErrDetectionFailure = errors.New("label detection failed")
	// ErrMetadataReadFailure signals unreadable object metadata.
	// It is distinct from an absent custom-labels field, which is not an error.
	ErrMetadataReadFailure = errors.New("object metadata unreadable")
	// ErrIndexWriteFailure signals a failed document upsert.
	ErrIndexWriteFailure = errors.New("index write failed")
	// ErrIndexQueryFailure signals a failed search execution.
	ErrIndexQueryFailure = errors.New("index query failed")
	// ErrLinkGenerationFailure signals a failed signed URL request.
	ErrLinkGenerationFailure = errors.New("link generation failed")
)
