package model

import "errors"

var (
	// ErrNotFound is returned when a record is absent or scoped out by ownership.
	ErrNotFound = errors.New("record not found")
	// ErrNeedsReconnect is returned when stored tokens cannot be decrypted or
	// the provider rejected a refresh; the user must connect the account again.
	ErrNeedsReconnect = errors.New("account needs reconnect")
)

// Upstream provider failures, categorized once at the provider call boundary.
var (
	ErrUpstreamAuth        = errors.New("upstream credentials rejected")
	ErrUpstreamRateLimit   = errors.New("upstream rate limit exceeded")
	ErrUpstreamUnavailable = errors.New("upstream provider unavailable")
)
