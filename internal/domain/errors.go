package domain

import "errors"

var (
	// ErrConceptNotFound is returned when a name has no RxNorm concept
	ErrConceptNotFound = errors.New("concept not found in RxNorm")

	// ErrRxNormAPIFailure is returned when an RxNav request fails
	ErrRxNormAPIFailure = errors.New("RxNorm API request failed")

	// ErrCacheMiss is returned when a lookup is not in cache
	ErrCacheMiss = errors.New("cache miss")

	// ErrInvalidRecord is returned when record fields are invalid
	ErrInvalidRecord = errors.New("invalid drug record")

	// ErrRateLimited is returned when rate limit is exceeded
	ErrRateLimited = errors.New("rate limit exceeded")
)
