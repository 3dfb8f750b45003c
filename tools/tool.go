// Package tools holds the adapters for the recipe-search, messaging, and
// email providers. Adapters are pure translators: they retry transport-level
// failures, classify provider errors into a closed taxonomy, and never
// interpret business semantics.
package tools

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/cenkalti/backoff/v5"

	"recipeagent"
)

// Kind is the closed error taxonomy shared by all adapters.
type Kind string

const (
	KindRateLimited        Kind = "rate_limited"
	KindAuth               Kind = "auth_error"
	KindNotFound           Kind = "not_found"
	KindInvalidRecipient   Kind = "invalid_recipient"
	KindBlockedByRecipient Kind = "blocked_by_recipient"
	KindUnverifiedSender   Kind = "unverified_sender"
	KindTransient          Kind = "transient"
	KindOther              Kind = "other"
)

// Error is a classified provider failure.
type Error struct {
	Kind     Kind
	Provider string
	Message  string
	Err      error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Provider, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Provider, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

// IsKind reports whether err is a tools.Error of the given kind.
func IsKind(err error, kind Kind) bool {
	var te *Error
	return errors.As(err, &te) && te.Kind == kind
}

// ErrKind returns the taxonomy kind of err, or KindOther for foreign errors.
func ErrKind(err error) Kind {
	var te *Error
	if errors.As(err, &te) {
		return te.Kind
	}
	return KindOther
}

const (
	defaultMaxRetries = 2
	defaultRetryBase  = 500 * time.Millisecond
	defaultTimeout    = 15 * time.Second
)

// Options tune an adapter's transport behavior. Zero values take defaults.
type Options struct {
	BaseURL    string
	MaxRetries int
	RetryBase  time.Duration
	Timeout    time.Duration
}

func (o Options) withDefaults(baseURL string) Options {
	if o.BaseURL == "" {
		o.BaseURL = baseURL
	}
	if o.MaxRetries == 0 {
		o.MaxRetries = defaultMaxRetries
	}
	if o.RetryBase == 0 {
		o.RetryBase = defaultRetryBase
	}
	if o.Timeout == 0 {
		o.Timeout = defaultTimeout
	}
	return o
}

// caller is the shared request loop: per-attempt timeout, exponential backoff
// on network failures, 429 and 5xx, Retry-After hint honored when present.
type caller struct {
	provider   string
	httpClient recipeagent.HTTPClient
	opts       Options
}

type callResult struct {
	status int
	body   []byte
}

// do executes an HTTP request with retries and returns the final status,
// body, and the number of retries consumed. Non-retryable statuses are
// returned to the adapter for classification, not treated as errors here.
func (c caller) do(ctx context.Context, build func(ctx context.Context) (*http.Request, error)) (int, []byte, int, error) {
	retries := 0

	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = c.opts.RetryBase
	bo.Multiplier = 2

	attempt := func() (callResult, error) {
		attemptCtx, cancel := context.WithTimeout(ctx, c.opts.Timeout)
		defer cancel()

		req, err := build(attemptCtx)
		if err != nil {
			return callResult{}, backoff.Permanent(err)
		}

		resp, err := c.httpClient.Do(req)
		if err != nil {
			// Timeouts count as transient failures and consume one retry.
			return callResult{}, err
		}
		defer resp.Body.Close()

		body, err := io.ReadAll(resp.Body)
		if err != nil {
			return callResult{}, err
		}

		if resp.StatusCode == http.StatusTooManyRequests {
			if secs, perr := strconv.Atoi(resp.Header.Get("Retry-After")); perr == nil && secs > 0 {
				return callResult{}, backoff.RetryAfter(secs)
			}
			return callResult{}, &Error{Kind: KindRateLimited, Provider: c.provider, Message: "rate limited"}
		}
		if resp.StatusCode >= 500 {
			return callResult{}, &Error{Kind: KindTransient, Provider: c.provider, Message: "status " + resp.Status}
		}

		return callResult{status: resp.StatusCode, body: body}, nil
	}

	res, err := backoff.Retry(ctx, attempt,
		backoff.WithBackOff(bo),
		backoff.WithMaxTries(uint(c.opts.MaxRetries+1)),
		backoff.WithNotify(func(err error, wait time.Duration) {
			retries++
			slog.Warn("TOOL: Request failed, retrying", "provider", c.provider, "wait", wait, "error", err)
		}),
	)
	if err != nil {
		var te *Error
		if errors.As(err, &te) {
			return 0, nil, retries, te
		}
		var ra *backoff.RetryAfterError
		if errors.As(err, &ra) {
			return 0, nil, retries, &Error{Kind: KindRateLimited, Provider: c.provider, Message: "rate limited"}
		}
		return 0, nil, retries, &Error{Kind: KindTransient, Provider: c.provider, Message: "request failed", Err: err}
	}
	return res.status, res.body, retries, nil
}
