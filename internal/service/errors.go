package service

import "errors"

// Error taxonomy surfaced by the orchestrators. Handlers map each to a
// distinct status and machine-readable code; none of these is ever retried
// by the core. Model exhaustion is llm.ErrExhausted, kept separate so it can
// drive a dedicated "come back later" caller state.
var (
	ErrInvalidInput        = errors.New("invalid input")
	ErrUnauthenticated     = errors.New("unauthenticated")
	ErrUpstreamNotFound    = errors.New("repository not found or not accessible")
	ErrUpstreamRateLimited = errors.New("github rate limit reached")
	ErrNotAnalyzed         = errors.New("repository has not been analyzed yet")
)
