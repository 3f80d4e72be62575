package domain

import (
	"context"
	"time"
)

// TerminologyClient defines the operations the resolver needs from the
// RxNorm terminology service. Implementations apply their own rate limiting
// and retries; the resolver treats every error as "no result" and moves on
// to the next strategy, so transient failures never abort a record.
type TerminologyClient interface {
	// SearchByName performs an exact-name lookup and returns the RXCUI.
	// Returns ErrConceptNotFound when the name has no RxNorm concept.
	SearchByName(ctx context.Context, name string) (string, error)

	// ApproximateSearch returns up to maxEntries candidates ordered
	// best-first by the service's own similarity score.
	ApproximateSearch(ctx context.Context, term string, maxEntries int) ([]Candidate, error)

	// GetRelatedConcepts returns concepts related to an RXCUI, filtered by
	// term type (e.g. "SCD+SBD"). Empty slice when there are none.
	GetRelatedConcepts(ctx context.Context, rxcui, ttyFilter string) ([]RelatedConcept, error)
}

// LookupCache caches name->RXCUI lookups across a batch run. A stored empty
// value is a negative entry: the name was queried and had no concept.
type LookupCache interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	Exists(ctx context.Context, key string) (bool, error)
}
