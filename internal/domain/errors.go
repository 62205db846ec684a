package domain

import "errors"

var (
	// ErrEntityNotFound is returned when no entity has the requested identity hash
	ErrEntityNotFound = errors.New("entity not found")

	// ErrDuplicateName is returned when another entity already uses the display name
	ErrDuplicateName = errors.New("entity already exists, use a different entity name")

	// ErrDuplicateContent is returned when another entity has identical fields
	ErrDuplicateContent = errors.New("entity content is duplicated")

	// ErrInvalidRequest is returned when request parameters are invalid
	ErrInvalidRequest = errors.New("invalid request parameters")

	// ErrSessionNotFound is returned when a page session does not exist or expired
	ErrSessionNotFound = errors.New("session not found")

	// ErrInvalidTransition is returned when an event is not allowed in the current phase
	ErrInvalidTransition = errors.New("invalid selection transition")

	// ErrCandidateNotFound is returned when selecting a hash outside the candidate list
	ErrCandidateNotFound = errors.New("candidate not found")

	// ErrRateLimited is returned when rate limit is exceeded
	ErrRateLimited = errors.New("rate limit exceeded")

	// ErrCacheMiss is returned when data is not found in cache
	ErrCacheMiss = errors.New("cache miss")

	// ErrCacheUnavailable is returned when cache service is unavailable
	ErrCacheUnavailable = errors.New("cache service unavailable")

	// ErrAPIFailure is returned when a call to the BuyerCheck API fails
	ErrAPIFailure = errors.New("buyercheck API request failed")
)
