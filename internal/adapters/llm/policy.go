package llm

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/PabloGalante/mindbloss/internal/domain"
	"github.com/PabloGalante/mindbloss/internal/observability"
)

// TransientError marks a failure worth one more attempt (rate limits, 5xx, timeouts).
type TransientError struct {
	Err error
}

func (e *TransientError) Error() string { return e.Err.Error() }
func (e *TransientError) Unwrap() error { return e.Err }

// IsTransient reports whether err should be retried.
func IsTransient(err error) bool {
	var te *TransientError
	if errors.As(err, &te) {
		return true
	}
	return errors.Is(err, context.DeadlineExceeded)
}

// statusPattern matches an HTTP status only where the message labels it as
// one, so a limit such as "at most 500 tokens" does not count.
var statusPattern = regexp.MustCompile(`(?i)\b(?:error|status|code|http)[\s:=]*(?:429|50[0234])\b`)

// looksTransient classifies provider errors that carry no typed status.
func looksTransient(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	if statusPattern.MatchString(msg) {
		return true
	}
	s := strings.ToLower(msg)
	for _, marker := range []string{"rate limit", "too many requests", "resource_exhausted", "unavailable", "internal server error"} {
		if strings.Contains(s, marker) {
			return true
		}
	}
	return false
}

// Policy bounds every completion call with a timeout and allows at most one
// retry, only for transient failures.
type Policy struct {
	// Timeout applies to each attempt. Zero disables the bound.
	Timeout time.Duration
	// Retry enables the single retry.
	Retry bool
	// Backoff is the pause before the retry.
	Backoff time.Duration
}

type policyClient struct {
	next   domain.CompletionClient
	policy Policy
	sleep  func(context.Context, time.Duration) error
}

// WithPolicy wraps next with p.
func WithPolicy(next domain.CompletionClient, p Policy) domain.CompletionClient {
	return &policyClient{next: next, policy: p, sleep: sleepCtx}
}

func (c *policyClient) Complete(ctx context.Context, req domain.CompletionRequest) (domain.CompletionResult, error) {
	log := observability.LoggerFromContext(ctx)

	attempts := 1
	if c.policy.Retry {
		attempts = 2
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		start := time.Now()
		res, err := c.attempt(ctx, req)
		if err == nil {
			log.Debugw("completion succeeded", "attempt", attempt, "elapsed_ms", time.Since(start).Milliseconds())
			return res, nil
		}
		lastErr = err

		if ctx.Err() != nil || !IsTransient(err) || attempt == attempts {
			break
		}
		log.Warnw("completion failed, retrying once", "attempt", attempt, "error", err)
		if err := c.sleep(ctx, c.policy.Backoff); err != nil {
			break
		}
	}

	return domain.CompletionResult{}, fmt.Errorf("%w: %w", domain.ErrCompletionFailed, lastErr)
}

func (c *policyClient) attempt(ctx context.Context, req domain.CompletionRequest) (domain.CompletionResult, error) {
	if c.policy.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.policy.Timeout)
		defer cancel()
	}
	return c.next.Complete(ctx, req)
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
