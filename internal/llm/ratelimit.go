package llm

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// ErrExhausted is the terminal throttling condition: no configured
// credential can serve the request soon enough to be worth holding the
// caller's request open. It is distinct from ordinary failures so callers
// can route it to a dedicated "come back later" state.
var ErrExhausted = errors.New("llm: rate limit exhausted")

// Retry tuning. retryBuffer pads the provider's wait hint; maxMinuteWait is
// the cutoff above which a minute-scale hint is not worth waiting out inside
// a live request; defaultWait covers hints we cannot parse.
const (
	retryBuffer   = 500 * time.Millisecond
	maxMinuteWait = 12 * time.Second
	defaultWait   = 3 * time.Second
)

// decision is the classification of one model-call error.
type decision int

const (
	decisionPropagate decision = iota // not a throttle; surface as-is
	decisionRetry                     // wait, then retry exactly once
	decisionExhausted                 // terminal; no retry attempted
)

// Wait hints arrive in many spellings: "try again in 1m30s", "retry after
// 45 seconds", "quota resets in 2 hours". unitWordRe rewrites spelled-out
// units to their compact form so compactDurRe can hand the hint to
// time.ParseDuration.
var (
	unitWordRe   = regexp.MustCompile(`(?i)(\d+(?:\.\d+)?)\s*(hours?|hrs?|minutes?|mins?|seconds?|secs?)`)
	compactDurRe = regexp.MustCompile(`\d+(?:\.\d+)?h(?:\d+(?:\.\d+)?m)?(?:\d+(?:\.\d+)?s)?|\d+(?:\.\d+)?m(?:\d+(?:\.\d+)?s)?|\d+(?:\.\d+)?s`)
)

// parseWaitHint extracts the provider's wait hint. The second return value
// reports whether a hint was recognized at all; the string is the compact
// form, kept so classify can tell hour/minute/second scale apart.
func parseWaitHint(msg string) (time.Duration, string, bool) {
	msg = strings.ToLower(msg)
	msg = unitWordRe.ReplaceAllStringFunc(msg, func(m string) string {
		sub := unitWordRe.FindStringSubmatch(m)
		return sub[1] + sub[2][:1]
	})

	compact := compactDurRe.FindString(msg)
	if compact == "" {
		return 0, "", false
	}
	d, err := time.ParseDuration(compact)
	if err != nil {
		return 0, "", false
	}
	return d, compact, true
}

// isThrottle reports whether err looks like provider throttling.
func isThrottle(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "429") ||
		strings.Contains(msg, "resource exhausted") ||
		strings.Contains(msg, "resource_exhausted") ||
		strings.Contains(msg, "rate limit") ||
		strings.Contains(msg, "quota")
}

// classify maps a model-call error to a retry decision based on the
// human-readable wait hint in the throttling message:
//   - hour-scale hint: exhausted immediately, no retry
//   - minute-scale hint: exhausted when the computed wait exceeds
//     maxMinuteWait, otherwise retry after the wait
//   - second-scale hint: retry after the wait
//   - unrecognized hint: retry after defaultWait
func classify(err error) (decision, time.Duration) {
	if !isThrottle(err) {
		return decisionPropagate, 0
	}

	wait, compact, ok := parseWaitHint(err.Error())
	if !ok {
		return decisionRetry, defaultWait
	}

	if strings.Contains(compact, "h") {
		return decisionExhausted, 0
	}
	if strings.Contains(compact, "m") && wait > maxMinuteWait {
		return decisionExhausted, 0
	}
	return decisionRetry, wait + retryBuffer
}

// Guard wraps model calls with the one-shot retry discipline: at most one
// retry per call, and a throttled retry escalates straight to ErrExhausted.
// This is deliberately not a backoff loop — the orchestration has to decide
// quickly whether to show the caller a terminal state.
type Guard struct {
	log   zerolog.Logger
	sleep func(context.Context, time.Duration) error
}

// NewGuard builds a Guard.
func NewGuard(log zerolog.Logger) *Guard {
	return NewGuardWithSleep(log, sleepCtx)
}

// NewGuardWithSleep builds a Guard with an injected wait function, so tests
// can observe retry waits without actually sleeping.
func NewGuardWithSleep(log zerolog.Logger, sleep func(context.Context, time.Duration) error) *Guard {
	return &Guard{
		log:   log.With().Str("component", "llm").Logger(),
		sleep: sleep,
	}
}

// Do executes one model call under the rate-limit discipline.
func (g *Guard) Do(ctx context.Context, gen Generator, prompt string) (string, error) {
	text, err := gen.Generate(ctx, prompt)
	if err == nil {
		return text, nil
	}

	d, wait := classify(err)
	switch d {
	case decisionPropagate:
		return "", err
	case decisionExhausted:
		g.log.Warn().Err(err).Msg("throttled with long wait hint; giving up")
		return "", fmt.Errorf("%w: %v", ErrExhausted, err)
	}

	g.log.Info().Dur("wait", wait).Msg("throttled; retrying once")
	if err := g.sleep(ctx, wait); err != nil {
		return "", err
	}

	text, err = gen.Generate(ctx, prompt)
	if err == nil {
		return text, nil
	}
	if isThrottle(err) {
		g.log.Warn().Err(err).Msg("throttled again after retry; exhausted")
		return "", fmt.Errorf("%w: %v", ErrExhausted, err)
	}
	return "", err
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
