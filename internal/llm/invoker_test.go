package llm_test

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"loginsight-backend/internal/llm"
)

type scriptedInvoker struct {
	calls   int
	replies []func() (string, error)
}

func (s *scriptedInvoker) Generate(ctx context.Context, req llm.GenerateRequest) (string, error) {
	idx := s.calls
	if idx >= len(s.replies) {
		idx = len(s.replies) - 1
	}
	s.calls++
	return s.replies[idx]()
}

func throttled() (string, error) {
	return "", fmt.Errorf("%w: too many requests", llm.ErrThrottled)
}

func TestRetryingInvoker_RetriesThrottleThenSucceeds(t *testing.T) {
	inner := &scriptedInvoker{replies: []func() (string, error){
		throttled,
		throttled,
		func() (string, error) { return "ok", nil },
	}}
	inv := llm.NewRetryingInvoker(inner, 3, time.Millisecond)

	text, err := inv.Generate(context.Background(), llm.GenerateRequest{Prompt: "p"})
	require.NoError(t, err)
	assert.Equal(t, "ok", text)
	assert.Equal(t, 3, inner.calls)
}

func TestRetryingInvoker_ExhaustsThrottleBudget(t *testing.T) {
	inner := &scriptedInvoker{replies: []func() (string, error){throttled}}
	inv := llm.NewRetryingInvoker(inner, 2, time.Millisecond)

	_, err := inv.Generate(context.Background(), llm.GenerateRequest{Prompt: "p"})
	require.Error(t, err)
	assert.ErrorIs(t, err, llm.ErrThrottled)
}

func TestRetryingInvoker_DoesNotRetryOtherErrors(t *testing.T) {
	boom := errors.New("model API error: status code 500")
	inner := &scriptedInvoker{replies: []func() (string, error){
		func() (string, error) { return "", boom },
		func() (string, error) { return "never", nil },
	}}
	inv := llm.NewRetryingInvoker(inner, 3, time.Millisecond)

	_, err := inv.Generate(context.Background(), llm.GenerateRequest{Prompt: "p"})
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 1, inner.calls)
}

func TestIsThrottleMessage(t *testing.T) {
	assert.True(t, llm.IsThrottleMessage("Rate Limit exceeded"))
	assert.True(t, llm.IsThrottleMessage("request failed: ThrottlingException"))
	assert.True(t, llm.IsThrottleMessage("quota exceeded for project"))
	assert.False(t, llm.IsThrottleMessage("internal server error"))
}
