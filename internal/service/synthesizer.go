package service

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"loginsight-backend/config"
	"loginsight-backend/internal/events"
	"loginsight-backend/internal/llm"
	"loginsight-backend/internal/metadata"
	"loginsight-backend/internal/model"
	"loginsight-backend/internal/search"
	"loginsight-backend/internal/util"
)

// QuerySynthesizer runs the generate-execute-repair loop: an LLM drafts a
// structured query, the gateway executes it, and error or emptiness signals
// feed the next draft. Error and empty outcomes spend separate retry budgets.
type QuerySynthesizer interface {
	SynthesizeAndExecute(ctx context.Context, sessionID string, intent *model.Intent, index string) (*SynthesisResult, error)
}

// SynthesisResult is the accepted outcome of the retry loop: the cleaned
// envelope handed to the summarizer plus the query that produced it.
type SynthesisResult struct {
	Envelope  *model.ResultEnvelope  `json:"envelope"`
	QueryBody map[string]interface{} `json:"query_body"`
	Attempts  int                    `json:"attempts"`
}

type querySynthesizer struct {
	invoker          llm.Invoker
	catalog          metadata.Gateway
	gateway          search.Gateway
	sink             events.Sink
	analysisModelID  string
	selectionModelID string
	temperature      float64
	maxErrorRetries  int
	maxEmptyRetries  int
}

func NewQuerySynthesizer(invoker llm.Invoker, catalog metadata.Gateway, gateway search.Gateway, sink events.Sink, cfg *config.Config) QuerySynthesizer {
	return &querySynthesizer{
		invoker:          invoker,
		catalog:          catalog,
		gateway:          gateway,
		sink:             sink,
		analysisModelID:  cfg.Model.AnalysisModelID,
		selectionModelID: cfg.Model.SelectionModelID,
		temperature:      cfg.Model.Temperature,
		maxErrorRetries:  cfg.Query.MaxErrorRetries,
		maxEmptyRetries:  cfg.Query.MaxEmptyRetries,
	}
}

func (s *querySynthesizer) SynthesizeAndExecute(ctx context.Context, sessionID string, intent *model.Intent, index string) (*SynthesisResult, error) {
	def, err := s.catalog.GetIndex(ctx, index)
	if err != nil {
		return nil, fmt.Errorf("failed to load catalog entry for %q: %w", index, err)
	}
	profile, err := metadata.ProfileForIndex(ctx, s.catalog, index)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve connection profile for %q: %w", index, err)
	}

	example := s.selectExample(ctx, intent.RewrittenQuery, def.Examples)

	errorRetries := 0
	emptyRetries := 0
	attempts := 0
	var prev *model.SynthesisAttempt

	for {
		attempts++
		attempt := s.generate(ctx, intent, def, example, prev)

		if attempt.Outcome != model.OutcomeError {
			env, execErr := s.gateway.Execute(ctx, *profile, index, attempt.QueryBody)
			switch {
			case execErr != nil:
				attempt.Outcome = model.OutcomeError
				attempt.ErrorDetail = execErr.Error()
			case env.Total == 0:
				attempt.Outcome = model.OutcomeEmpty
				attempt.ErrorDetail = "query executed successfully but matched zero documents"
			default:
				attempt.Outcome = model.OutcomeAccepted
				s.emitAttempt(sessionID, attempts, attempt, events.StatusSuccess)
				log.Info().Int("attempts", attempts).Int64("total", env.Total).Str("index", index).Msg("Query accepted")
				return &SynthesisResult{
					Envelope:  search.CleanEnvelope(env),
					QueryBody: attempt.QueryBody,
					Attempts:  attempts,
				}, nil
			}
		}

		s.emitAttempt(sessionID, attempts, attempt, events.StatusProcessing)

		switch attempt.Outcome {
		case model.OutcomeError:
			errorRetries++
			if errorRetries > s.maxErrorRetries {
				return nil, exhaustedFailure("error", model.FailureSynthesisError, attempt, attempts)
			}
			log.Warn().Int("error_retries", errorRetries).Str("detail", attempt.ErrorDetail).Msg("Query attempt errored, retrying")
		case model.OutcomeEmpty:
			emptyRetries++
			if emptyRetries > s.maxEmptyRetries {
				return nil, exhaustedFailure("empty", model.FailureEmptyResult, attempt, attempts)
			}
			log.Warn().Int("empty_retries", emptyRetries).Msg("Query returned no documents, retrying")
		}

		prev = attempt
	}
}

func exhaustedFailure(budget string, cause model.FailureKind, last *model.SynthesisAttempt, attempts int) error {
	return model.NewFailureWithDetail(model.FailureExecutionExhausted,
		fmt.Sprintf("%s retry budget exhausted after %d attempts", budget, attempts),
		map[string]interface{}{
			"budget":     budget,
			"cause":      string(cause),
			"attempts":   attempts,
			"last_query": last.QueryBody,
			"last_error": last.ErrorDetail,
		})
}

// generate drafts one query document. A draft that cannot be parsed is an
// ERROR outcome consuming error budget, exactly like an engine rejection.
func (s *querySynthesizer) generate(ctx context.Context, intent *model.Intent, def *model.IndexDefinition, example *model.ExampleQuery, prev *model.SynthesisAttempt) *model.SynthesisAttempt {
	prompt := buildSynthesisPrompt(intent, def, example, prev)

	text, err := s.invoker.Generate(ctx, llm.GenerateRequest{
		Prompt:      prompt,
		ModelID:     s.analysisModelID,
		Temperature: s.temperature,
	})
	if err != nil {
		return &model.SynthesisAttempt{
			Outcome:     model.OutcomeError,
			ErrorDetail: fmt.Sprintf("query generation call failed: %v", err),
		}
	}

	body, err := util.ExtractJSONObject(text)
	if err != nil {
		log.Warn().Str("raw_text", text).Msg("Generated query is not parseable JSON")
		return &model.SynthesisAttempt{
			Outcome:     model.OutcomeError,
			ErrorDetail: "generated query document is not parseable JSON",
		}
	}

	return &model.SynthesisAttempt{QueryBody: body}
}

func buildSynthesisPrompt(intent *model.Intent, def *model.IndexDefinition, example *model.ExampleQuery, prev *model.SynthesisAttempt) string {
	var b strings.Builder
	b.WriteString("Generate one search query document (JSON request body) answering the user's question against the index described below.\n\n")

	fmt.Fprintf(&b, "User question: %q\n\n", intent.RewrittenQuery)
	fmt.Fprintf(&b, "Index: %s\n", def.Name)
	if def.Description != "" {
		fmt.Fprintf(&b, "Index description: %s\n", def.Description)
	}

	b.WriteString("\nFields:\n")
	for _, f := range def.Fields {
		if f.Description != "" {
			fmt.Fprintf(&b, "- %s (%s): %s\n", f.Name, f.Type, f.Description)
		} else {
			fmt.Fprintf(&b, "- %s (%s)\n", f.Name, f.Type)
		}
	}

	if tr := intent.TimeRange; tr != nil {
		fmt.Fprintf(&b, "\nTime range: %s to %s\n", util.FormatPromptTime(tr.Start), util.FormatPromptTime(tr.End))
	} else {
		b.WriteString("\nTime range: none specified. Do NOT add any time filter.\n")
	}

	if kws := intent.Entities.Keywords; len(kws) > 0 {
		fmt.Fprintf(&b, "Keywords: %s\n", strings.Join(kws, ", "))
	}
	if codes := intent.Entities.ErrorCodes; len(codes) > 0 {
		fmt.Fprintf(&b, "Error codes of interest: %s\n", strings.Join(codes, ", "))
	}

	if example != nil {
		if encoded, err := json.Marshal(example.QueryBody); err == nil {
			fmt.Fprintf(&b, "\nReference example (%s):\n%s\n", example.Description, string(encoded))
		}
	}

	b.WriteString(`
CRITICAL RULES:
1. Every sort, aggregation, or exact term filter on a text-typed field MUST use its ".keyword" sub-field.
2. NEVER run numeric range aggregations on categorical fields such as status codes; use terms or prefix filters (for example prefixes "4" and "5" for 4xx/5xx) instead.
3. When a time range is given above, the query MUST be scoped to it with a range filter on the timestamp field.
4. Use only fields listed above.
`)

	if prev != nil {
		b.WriteString("\nThe previous attempt failed and must be revised.\n")
		if prev.QueryBody != nil {
			if encoded, err := json.Marshal(prev.QueryBody); err == nil {
				fmt.Fprintf(&b, "Previous query:\n%s\n", string(encoded))
			}
		}
		switch prev.Outcome {
		case model.OutcomeEmpty:
			fmt.Fprintf(&b, "Problem: %s. Loosen overly narrow filters while keeping the user's intent and any given time range.\n", prev.ErrorDetail)
		default:
			fmt.Fprintf(&b, "Engine error: %s. Fix the query so it executes.\n", prev.ErrorDetail)
		}
	}

	b.WriteString("\nRespond with exactly one JSON object, the query request body, and nothing else.\n\nJSON output:")
	return b.String()
}

// selectExample reduces the example list to the single most relevant entry
// via a cheap model call. Anything unusable about the answer falls back to
// the first example.
func (s *querySynthesizer) selectExample(ctx context.Context, query string, examples []model.ExampleQuery) *model.ExampleQuery {
	if len(examples) == 0 {
		return nil
	}
	if len(examples) == 1 {
		return &examples[0]
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Pick the reference query example most relevant to this question: %q\n\nExamples:\n", query)
	for i, ex := range examples {
		fmt.Fprintf(&b, "%d. %s\n", i, ex.Description)
	}
	b.WriteString("\nRespond with only the number of the best matching example.")

	text, err := s.invoker.Generate(ctx, llm.GenerateRequest{
		Prompt:      b.String(),
		ModelID:     s.selectionModelID,
		Temperature: s.temperature,
	})
	if err != nil {
		log.Warn().Err(err).Msg("Example selection call failed, using first example")
		return &examples[0]
	}

	idx, ok := util.FirstInt(text)
	if !ok || idx < 0 || idx >= len(examples) {
		log.Warn().Str("answer", text).Msg("Example selection answer unusable, using first example")
		return &examples[0]
	}
	return &examples[idx]
}

func (s *querySynthesizer) emitAttempt(sessionID string, attempt int, a *model.SynthesisAttempt, status events.Status) {
	if s.sink == nil {
		return
	}
	s.sink.Publish(events.Event{
		SessionID: sessionID,
		Stage:     "synthesize_execute",
		Status:    status,
		Payload: map[string]interface{}{
			"attempt":      attempt,
			"outcome":      string(a.Outcome),
			"error_detail": a.ErrorDetail,
		},
		Timestamp: time.Now(),
	})
}
