package service_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"loginsight-backend/internal/model"
	"loginsight-backend/internal/service"
)

func TestClassifyAnalysisMode(t *testing.T) {
	tests := []struct {
		name   string
		query  string
		intent *model.Intent
		want   service.AnalysisMode
	}{
		{
			name:  "latency query picks performance",
			query: "why is p99 latency so slow",
			want:  service.ModePerformance,
		},
		{
			name:  "error query picks error analysis",
			query: "show me 5xx failures from the gateway",
			want:  service.ModeError,
		},
		{
			name:  "security query picks security analysis",
			query: "any sql injection attempts today",
			want:  service.ModeSecurity,
		},
		{
			name:  "no keyword anywhere falls back to comprehensive",
			query: "what happened overnight",
			want:  service.ModeComprehensive,
		},
		{
			name:  "log type contributes to the score",
			query: "summarize recent activity",
			intent: &model.Intent{Entities: model.Entities{
				LogType:           "audit",
				ExplicitLogSource: true,
			}},
			want: service.ModeAudit,
		},
		{
			name:  "entity keywords contribute to the score",
			query: "summarize recent activity",
			intent: &model.Intent{Entities: model.Entities{
				Keywords: []string{"cpu", "memory"},
			}},
			want: service.ModeSystem,
		},
		{
			// "error" and "access" each match the query once; declaration
			// order keeps the earlier mode on a tie.
			name:  "ties resolve in declaration order",
			query: "error during access",
			want:  service.ModeError,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, service.ClassifyAnalysisMode(tt.query, tt.intent))
		})
	}
}

func TestAnalysisSynthesizer_ReturnsParsedReport(t *testing.T) {
	inv := &scriptedInvoker{replies: []string{`{
		"analysis_mode": "error_analysis",
		"summary": "40 server errors in the window, all from one origin",
		"severity": "high",
		"confidence": 0.9
	}`}}
	synth := service.NewAnalysisSynthesizer(inv, testConfig())

	report, err := synth.Synthesize(context.Background(), "show 5xx errors", synthIntent(), chartEnvelope())
	require.NoError(t, err)
	assert.Equal(t, "error_analysis", report["analysis_mode"])
	assert.Contains(t, report["summary"], "server errors")
	assert.Equal(t, "analysis-model", inv.prompts[0].ModelID)
	assert.Contains(t, inv.prompts[0].Prompt, "error_analysis mode")
	assert.Contains(t, inv.prompts[0].Prompt, "root cause analysis")
}

func TestAnalysisSynthesizer_FillsMissingModeField(t *testing.T) {
	inv := &scriptedInvoker{replies: []string{`{"summary": "nothing unusual"}`}}
	synth := service.NewAnalysisSynthesizer(inv, testConfig())

	report, err := synth.Synthesize(context.Background(), "what happened overnight", nil, chartEnvelope())
	require.NoError(t, err)
	assert.Equal(t, string(service.ModeComprehensive), report["analysis_mode"])
}

func TestAnalysisSynthesizer_UnparseableOutputIsSummarizationError(t *testing.T) {
	inv := &scriptedInvoker{replies: []string{"The results look mostly fine to me."}}
	synth := service.NewAnalysisSynthesizer(inv, testConfig())

	_, err := synth.Synthesize(context.Background(), "show 5xx errors", synthIntent(), chartEnvelope())
	require.Error(t, err)
	assert.Equal(t, model.FailureSummarizationError, model.FailureKindOf(err))

	failure := err.(*model.Failure)
	assert.Contains(t, failure.Detail["raw_text"], "mostly fine")
}
