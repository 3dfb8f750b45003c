// Package analyzer wraps the LLM "reason + self-check" call that precedes
// every tool invocation. It builds the stage reasoning prompt, calls the
// provider with bounded retries, parses the tagged metadata out of the raw
// response, and degrades to a deterministic fallback when the provider is
// unavailable.
package analyzer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/cenkalti/backoff/v5"

	"recipeagent"
)

// LLMClient is the provider surface the analyzer depends on.
type LLMClient interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// BlockedError indicates the provider refused the prompt on content or
// safety grounds. Terminal for the stage.
type BlockedError struct {
	Reason string
}

func (e *BlockedError) Error() string {
	return fmt.Sprintf("llm request blocked: %s", e.Reason)
}

// TransientError marks a retryable provider failure (network, 5xx, 429,
// missing candidates).
type TransientError struct {
	Err error
}

func (e *TransientError) Error() string { return fmt.Sprintf("llm transient failure: %v", e.Err) }
func (e *TransientError) Unwrap() error { return e.Err }

const (
	defaultMaxRetries  = 3
	defaultRetryBase   = time.Second
	defaultCallTimeout = 30 * time.Second
)

// Options tune the analyzer's retry behavior. Zero values take defaults.
type Options struct {
	MaxRetries  int
	RetryBase   time.Duration
	CallTimeout time.Duration
}

func (o Options) withDefaults() Options {
	if o.MaxRetries == 0 {
		o.MaxRetries = defaultMaxRetries
	}
	if o.RetryBase == 0 {
		o.RetryBase = defaultRetryBase
	}
	if o.CallTimeout == 0 {
		o.CallTimeout = defaultCallTimeout
	}
	return o
}

// Result is one completed analysis. Fallback is set when the text was
// synthesized locally instead of coming from the provider; the orchestrator
// treats that as an advisory condition, never a failure.
type Result struct {
	Prompt   string
	Text     string
	Metadata recipeagent.LLMMetadata
	Retries  int
	Fallback bool
}

// Analyzer runs the per-stage LLM analysis. It is stateless; one instance
// serves all sessions.
type Analyzer struct {
	llm  LLMClient
	opts Options
}

// New creates an analyzer. llm may be nil when no provider key is
// configured; every call then takes the deterministic fallback path.
func New(llm LLMClient, opts Options) *Analyzer {
	return &Analyzer{llm: llm, opts: opts.withDefaults()}
}

// Analyze builds the stage prompt, invokes the provider, and extracts
// metadata. The only error it returns is *BlockedError; all transient and
// terminal provider failures degrade to the fallback result.
func (a *Analyzer) Analyze(ctx context.Context, query string, stage int) (Result, error) {
	prompt := BuildReasoningPrompt(query, stage)

	if a.llm == nil {
		slog.Warn("LLM_ANALYZER: No provider configured, using fallback", "stage", stage)
		return a.fallback(prompt, query, stage, 0), nil
	}

	retries := 0

	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = a.opts.RetryBase
	bo.Multiplier = 2

	attempt := func() (string, error) {
		attemptCtx, cancel := context.WithTimeout(ctx, a.opts.CallTimeout)
		defer cancel()

		text, err := a.llm.Generate(attemptCtx, prompt)
		if err != nil {
			var blocked *BlockedError
			if errors.As(err, &blocked) {
				return "", backoff.Permanent(err)
			}
			var transient *TransientError
			if errors.As(err, &transient) {
				return "", err
			}
			if errors.Is(err, context.DeadlineExceeded) {
				// Per-attempt timeout counts as transient and consumes a retry.
				return "", err
			}
			// Terminal provider failure (auth, malformed request): stop
			// retrying, degrade to fallback.
			return "", backoff.Permanent(err)
		}
		if text == "" {
			return "", &TransientError{Err: errors.New("empty response text")}
		}
		return text, nil
	}

	text, err := backoff.Retry(ctx, attempt,
		backoff.WithBackOff(bo),
		backoff.WithMaxTries(uint(a.opts.MaxRetries+1)),
		backoff.WithNotify(func(err error, wait time.Duration) {
			retries++
			slog.Warn("LLM_ANALYZER: Call failed, retrying", "stage", stage, "wait", wait, "error", err)
		}),
	)
	if err != nil {
		var blocked *BlockedError
		if errors.As(err, &blocked) {
			return Result{Prompt: prompt, Retries: retries}, blocked
		}
		slog.Warn("LLM_ANALYZER: Provider unavailable, using fallback", "stage", stage, "retries", retries, "error", err)
		return a.fallback(prompt, query, stage, retries), nil
	}

	return Result{
		Prompt:   prompt,
		Text:     text,
		Metadata: ExtractMetadata(text),
		Retries:  retries,
	}, nil
}

func (a *Analyzer) fallback(prompt, query string, stage, retries int) Result {
	text := FallbackText(query, stage)
	return Result{
		Prompt:   prompt,
		Text:     text,
		Metadata: ExtractMetadata(text),
		Retries:  retries,
		Fallback: true,
	}
}
