package service

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog/log"

	"loginsight-backend/internal/events"
	"loginsight-backend/internal/metadata"
	"loginsight-backend/internal/model"
	"loginsight-backend/internal/store"
)

// Pipeline stage names as reported through the progress sink.
const (
	StageReceive    = "receive"
	StageAnalyze    = "analyze"
	StageSelect     = "select_index"
	StageSynthesize = "synthesize_execute"
	StageSummarize  = "summarize"
	StageRespond    = "respond"
)

// TurnResult is the final payload of one user turn. Failure is set when a
// pipeline stage gave up; the remaining fields are filled as far as the
// pipeline got.
type TurnResult struct {
	SessionID string                  `json:"session_id"`
	Answer    string                  `json:"answer"`
	Intent    *model.Intent           `json:"intent,omitempty"`
	Index     string                  `json:"index,omitempty"`
	QueryBody map[string]interface{}  `json:"query_body,omitempty"`
	Envelope  *model.ResultEnvelope   `json:"envelope,omitempty"`
	Charts    []model.ChartDescriptor `json:"charts,omitempty"`
	Analysis  map[string]interface{}  `json:"analysis,omitempty"`
	Failure   *model.Failure          `json:"failure,omitempty"`
}

// Orchestrator sequences one turn: analyze, select index, synthesize and
// execute, summarize. Any stage failure short-circuits to the response with
// an error payload; nothing substitutes another stage's output.
type Orchestrator interface {
	ProcessTurn(ctx context.Context, sessionID string, query string) (*TurnResult, error)
}

type orchestrator struct {
	analyzer      IntentAnalyzer
	selector      IndexSelector
	synthesizer   QuerySynthesizer
	charts        ChartSynthesizer
	analysis      AnalysisSynthesizer
	catalog       metadata.Gateway
	conversations store.ConversationStore
	sink          events.Sink
	contextTurns  int
}

func NewOrchestrator(
	analyzer IntentAnalyzer,
	selector IndexSelector,
	synthesizer QuerySynthesizer,
	charts ChartSynthesizer,
	analysis AnalysisSynthesizer,
	catalog metadata.Gateway,
	conversations store.ConversationStore,
	sink events.Sink,
	contextTurns int,
) Orchestrator {
	return &orchestrator{
		analyzer:      analyzer,
		selector:      selector,
		synthesizer:   synthesizer,
		charts:        charts,
		analysis:      analysis,
		catalog:       catalog,
		conversations: conversations,
		sink:          sink,
		contextTurns:  contextTurns,
	}
}

func (o *orchestrator) ProcessTurn(ctx context.Context, sessionID string, query string) (*TurnResult, error) {
	result := &TurnResult{SessionID: sessionID}

	history, err := o.conversations.Recent(ctx, sessionID, o.contextTurns)
	if err != nil {
		return nil, err
	}
	o.emit(sessionID, StageReceive, events.StatusProcessing, map[string]interface{}{"query": query})

	// ANALYZE. The history entry is appended right after, successful or not.
	o.emit(sessionID, StageAnalyze, events.StatusProcessing, nil)
	intent, err := o.analyzer.Analyze(ctx, query, history)
	entry := model.ConversationEntry{Timestamp: time.Now(), UserQuery: query, Intent: intent}
	if appendErr := o.conversations.Append(ctx, sessionID, entry); appendErr != nil {
		return nil, appendErr
	}
	if err != nil {
		return o.respondFailure(ctx, sessionID, result, StageAnalyze, err)
	}
	result.Intent = intent
	o.emit(sessionID, StageAnalyze, events.StatusSuccess, map[string]interface{}{
		"category":        string(intent.Category),
		"rewritten_query": intent.RewrittenQuery,
	})

	// SELECT_INDEX
	o.emit(sessionID, StageSelect, events.StatusProcessing, nil)
	indices, err := o.catalog.ListIndices(ctx)
	if err != nil {
		return o.respondFailure(ctx, sessionID, result, StageSelect, err)
	}
	index, err := o.selector.Select(ctx, intent, indices)
	if err != nil {
		return o.respondFailure(ctx, sessionID, result, StageSelect, err)
	}
	result.Index = index
	o.emit(sessionID, StageSelect, events.StatusSuccess, map[string]interface{}{"index": index})

	// SYNTHESIZE_EXECUTE. Per-attempt events come from the synthesizer.
	synth, err := o.synthesizer.SynthesizeAndExecute(ctx, sessionID, intent, index)
	if err != nil {
		return o.respondFailure(ctx, sessionID, result, StageSynthesize, err)
	}
	result.QueryBody = synth.QueryBody
	result.Envelope = synth.Envelope

	// SUMMARIZE
	o.emit(sessionID, StageSummarize, events.StatusProcessing, nil)
	result.Charts = o.charts.Synthesize(ctx, intent.RewrittenQuery, synth.Envelope)
	report, err := o.analysis.Synthesize(ctx, intent.RewrittenQuery, intent, synth.Envelope)
	if err != nil {
		return o.respondFailure(ctx, sessionID, result, StageSummarize, err)
	}
	result.Analysis = report
	o.emit(sessionID, StageSummarize, events.StatusSuccess, map[string]interface{}{
		"charts": len(result.Charts),
		"mode":   report["analysis_mode"],
	})

	// RESPOND
	result.Answer = answerText(report)
	if err := o.conversations.BackfillResponse(ctx, sessionID, result.Answer); err != nil {
		log.Warn().Err(err).Str("session", sessionID).Msg("Failed to backfill conversation response")
	}
	o.emit(sessionID, StageRespond, events.StatusSuccess, map[string]interface{}{"answer": result.Answer})
	return result, nil
}

// respondFailure finishes a turn whose stage failed: pipeline failures become
// the turn's error payload, anything else propagates as a hard error.
func (o *orchestrator) respondFailure(ctx context.Context, sessionID string, result *TurnResult, stage string, err error) (*TurnResult, error) {
	var failure *model.Failure
	if !errors.As(err, &failure) {
		o.emit(sessionID, stage, events.StatusError, map[string]interface{}{"error": err.Error()})
		return nil, err
	}

	log.Warn().Str("stage", stage).Str("kind", string(failure.Kind)).Str("message", failure.Message).Msg("Turn failed")
	o.emit(sessionID, stage, events.StatusError, map[string]interface{}{
		"kind":    string(failure.Kind),
		"message": failure.Message,
		"detail":  failure.Detail,
	})

	result.Failure = failure
	result.Answer = failureAnswer(failure)
	if err := o.conversations.BackfillResponse(ctx, sessionID, result.Answer); err != nil {
		log.Warn().Err(err).Str("session", sessionID).Msg("Failed to backfill conversation response")
	}
	o.emit(sessionID, StageRespond, events.StatusError, map[string]interface{}{"kind": string(failure.Kind), "answer": result.Answer})
	return result, nil
}

func (o *orchestrator) emit(sessionID, stage string, status events.Status, payload map[string]interface{}) {
	if o.sink == nil {
		return
	}
	o.sink.Publish(events.Event{
		SessionID: sessionID,
		Stage:     stage,
		Status:    status,
		Payload:   payload,
		Timestamp: time.Now(),
	})
}

func answerText(report map[string]interface{}) string {
	if summary, ok := report["summary"].(string); ok && summary != "" {
		return summary
	}
	return "Analysis completed."
}

func failureAnswer(f *model.Failure) string {
	switch f.Kind {
	case model.FailureParameterError:
		return "Your query is empty. Please describe what you want to find in the logs."
	case model.FailureNoIndex:
		return "No suitable log index could be determined for this query."
	case model.FailureExecutionExhausted:
		return "The query could not be completed: " + f.Message + "."
	case model.FailureSummarizationError:
		return "Results were retrieved but the analysis report could not be produced."
	default:
		return "The query could not be understood: " + f.Message + "."
	}
}
