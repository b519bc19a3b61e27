package contract

import "errors"

var (
	ErrModelInvoke     = errors.New("model invoke failed")
	ErrSchemaViolation = errors.New("model response violates schema")
	ErrPromptMissing   = errors.New("required prompt is missing")
	ErrValidation      = errors.New("validation failed")

	// ErrCatalogFetch is fatal to an invocation: the catalog could not be
	// queried even after retries.
	ErrCatalogFetch = errors.New("catalog fetch failed")
	// ErrNoCatalogMatch is a normal outcome: nothing in the catalog is close
	// enough to the requested name.
	ErrNoCatalogMatch = errors.New("no sufficiently similar catalog item")

	ErrNotFound         = errors.New("not found")
	ErrStoreUnavailable = errors.New("memory store unavailable")
)
