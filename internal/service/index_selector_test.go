package service_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"loginsight-backend/internal/model"
	"loginsight-backend/internal/service"
)

func selectorIntent() *model.Intent {
	return &model.Intent{
		Category:       model.CategoryLogQuery,
		RewrittenQuery: "cloudfront 4xx errors",
		Entities:       model.Entities{LogType: "cloudfront", Keywords: []string{"4xx"}},
	}
}

func TestIndexSelector_EmptyListFailsWithoutModelCall(t *testing.T) {
	inv := &scriptedInvoker{replies: []string{`{"index": "a"}`}}
	selector := service.NewIndexSelector(inv, testConfig())

	_, err := selector.Select(context.Background(), selectorIntent(), nil)
	require.Error(t, err)
	assert.Equal(t, model.FailureNoIndex, model.FailureKindOf(err))
	assert.Equal(t, 0, inv.calls())
}

func TestIndexSelector_AcceptsMemberOfAvailableSet(t *testing.T) {
	inv := &scriptedInvoker{replies: []string{`{"index": "cloudfront-logs", "confidence": 0.95, "reason": "log type match"}`}}
	selector := service.NewIndexSelector(inv, testConfig())

	index, err := selector.Select(context.Background(), selectorIntent(), []string{"alb-logs", "cloudfront-logs"})
	require.NoError(t, err)
	assert.Equal(t, "cloudfront-logs", index)
	assert.Equal(t, "selection-model", inv.prompts[0].ModelID)
}

func TestIndexSelector_RejectsUnknownIndexWithoutFallback(t *testing.T) {
	inv := &scriptedInvoker{replies: []string{`{"index": "made-up-index", "confidence": 0.9}`}}
	selector := service.NewIndexSelector(inv, testConfig())

	_, err := selector.Select(context.Background(), selectorIntent(), []string{"alb-logs", "cloudfront-logs"})
	require.Error(t, err)
	assert.Equal(t, model.FailureNoIndex, model.FailureKindOf(err))
}

func TestIndexSelector_MembershipIsCaseSensitive(t *testing.T) {
	inv := &scriptedInvoker{replies: []string{`{"index": "CloudFront-Logs"}`}}
	selector := service.NewIndexSelector(inv, testConfig())

	_, err := selector.Select(context.Background(), selectorIntent(), []string{"cloudfront-logs"})
	require.Error(t, err)
	assert.Equal(t, model.FailureNoIndex, model.FailureKindOf(err))
}

func TestIndexSelector_BareNameAnswerAccepted(t *testing.T) {
	inv := &scriptedInvoker{replies: []string{"cloudfront-logs\n"}}
	selector := service.NewIndexSelector(inv, testConfig())

	index, err := selector.Select(context.Background(), selectorIntent(), []string{"cloudfront-logs"})
	require.NoError(t, err)
	assert.Equal(t, "cloudfront-logs", index)
}
