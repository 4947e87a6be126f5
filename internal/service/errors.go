package service

import "errors"

// Service-level sentinel errors. Handlers map these onto HTTP statuses; the
// sync layer records them per item. Wrap with fmt.Errorf("%w: ...") to attach
// detail.
var (
	// ErrValidation reports rejected input.
	ErrValidation = errors.New("validation failed")

	// ErrNotFound reports a missing organisation or document.
	ErrNotFound = errors.New("not found")

	// ErrDuplicate reports that an equivalent document already exists.
	ErrDuplicate = errors.New("duplicate document")

	// ErrRateLimited reports that the external source throttled the request.
	ErrRateLimited = errors.New("rate limited by external source")

	// ErrExternalService reports a hard failure of an external source.
	ErrExternalService = errors.New("external service failed")

	// ErrExtraction reports that field extraction failed for a document.
	ErrExtraction = errors.New("extraction failed")

	// ErrAllocationConflict reports that the sequential id allocation lost its
	// retry against concurrent writers. Nothing was persisted.
	ErrAllocationConflict = errors.New("document number allocation conflict")

	// ErrStorageUnavailable reports an object-store failure.
	ErrStorageUnavailable = errors.New("object storage unavailable")

	// ErrSyncInProgress reports that a sync run already holds the
	// organisation's lease.
	ErrSyncInProgress = errors.New("sync already in progress")

	// ErrAlreadyMatched reports a link attempt on a document that already
	// holds an active link.
	ErrAlreadyMatched = errors.New("document already matched")

	// ErrNotMatched reports an unlink attempt on a pair with no active link.
	ErrNotMatched = errors.New("documents are not linked")
)
