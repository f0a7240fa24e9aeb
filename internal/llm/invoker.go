package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/cenkalti/backoff"
	"github.com/rs/zerolog/log"
)

// GenerateRequest is one text-generation call. ModelID and Temperature are
// chosen per call site: selection tasks run on the fast model at low
// temperature, synthesis and analysis on the strong model.
type GenerateRequest struct {
	Prompt       string
	SystemPrompt string
	ModelID      string
	Temperature  float64
}

type Invoker interface {
	Generate(ctx context.Context, req GenerateRequest) (string, error)
}

// ErrThrottled marks a rate-limit rejection from the model provider. Only
// throttled errors are retried by the retrying wrapper.
var ErrThrottled = errors.New("model invocation throttled")

var throttlePhrases = []string{
	"too many requests",
	"rate limit",
	"throttling",
	"quota exceeded",
}

// IsThrottleMessage reports whether an error message looks like a provider
// rate-limit rejection.
func IsThrottleMessage(msg string) bool {
	lower := strings.ToLower(msg)
	for _, phrase := range throttlePhrases {
		if strings.Contains(lower, phrase) {
			return true
		}
	}
	return false
}

type retryingInvoker struct {
	inner      Invoker
	maxRetries int
	wait       time.Duration
}

// NewRetryingInvoker wraps an Invoker with fixed-interval retry on throttling.
// Non-throttle errors propagate immediately.
func NewRetryingInvoker(inner Invoker, maxRetries int, wait time.Duration) Invoker {
	return &retryingInvoker{inner: inner, maxRetries: maxRetries, wait: wait}
}

func (r *retryingInvoker) Generate(ctx context.Context, req GenerateRequest) (string, error) {
	var text string

	operation := func() error {
		var err error
		text, err = r.inner.Generate(ctx, req)
		if err == nil {
			return nil
		}
		if errors.Is(err, ErrThrottled) {
			log.Warn().Err(err).Str("model_id", req.ModelID).Dur("wait", r.wait).Msg("Model throttled, will retry")
			return err
		}
		return backoff.Permanent(err)
	}

	policy := backoff.WithContext(
		backoff.WithMaxRetries(backoff.NewConstantBackOff(r.wait), uint64(r.maxRetries)),
		ctx,
	)
	if err := backoff.Retry(operation, policy); err != nil {
		if errors.Is(err, ErrThrottled) {
			return "", fmt.Errorf("model invocation failed after %d throttle retries: %w", r.maxRetries, err)
		}
		return "", err
	}
	return text, nil
}
