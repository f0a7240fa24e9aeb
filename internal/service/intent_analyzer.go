package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"loginsight-backend/config"
	"loginsight-backend/internal/llm"
	"loginsight-backend/internal/model"
	"loginsight-backend/internal/util"
)

// IntentAnalyzer turns a free-text user query plus recent conversation
// context into a structured Intent. It is a pure function of its inputs;
// history bookkeeping belongs to the orchestrator.
type IntentAnalyzer interface {
	Analyze(ctx context.Context, query string, history []model.ConversationEntry) (*model.Intent, error)
}

type intentAnalyzer struct {
	invoker      llm.Invoker
	modelID      string
	temperature  float64
	contextTurns int
	now          func() time.Time
}

func NewIntentAnalyzer(invoker llm.Invoker, cfg *config.Config) IntentAnalyzer {
	return &intentAnalyzer{
		invoker:      invoker,
		modelID:      cfg.Model.AnalysisModelID,
		temperature:  cfg.Model.Temperature,
		contextTurns: cfg.History.ContextTurns,
		now:          time.Now,
	}
}

// Keys the model must return. rewritten_query is absent on purpose: it has a
// safe default (the original query), everything else does not.
var requiredIntentKeys = []string{"category", "confidence", "time_range", "entities"}

func (a *intentAnalyzer) Analyze(ctx context.Context, query string, history []model.ConversationEntry) (*model.Intent, error) {
	trimmed := strings.TrimSpace(query)
	if trimmed == "" {
		return nil, model.NewFailure(model.FailureParameterError, "query is empty")
	}

	prompt := a.buildPrompt(trimmed, history)

	text, err := a.invoker.Generate(ctx, llm.GenerateRequest{
		Prompt:      prompt,
		ModelID:     a.modelID,
		Temperature: a.temperature,
	})
	if err != nil {
		log.Error().Err(err).Msg("Intent analysis model call failed")
		return nil, fmt.Errorf("intent analysis failed: %w", err)
	}

	raw, err := util.ExtractJSONObject(text)
	if err != nil {
		log.Error().Str("raw_text", text).Msg("Intent analysis returned no parseable JSON")
		return nil, model.NewFailureWithDetail(model.FailureIncompleteResult,
			"analysis output is not a JSON object",
			map[string]interface{}{"raw_text": text})
	}

	var missing []string
	for _, key := range requiredIntentKeys {
		if _, ok := raw[key]; !ok {
			missing = append(missing, key)
		}
	}
	if len(missing) > 0 {
		log.Warn().Strs("missing_keys", missing).Msg("Intent analysis output missing required keys")
		return nil, model.NewFailureWithDetail(model.FailureIncompleteResult,
			fmt.Sprintf("analysis output missing keys: %s", strings.Join(missing, ", ")),
			map[string]interface{}{"partial": raw})
	}

	intent := model.HydrateIntent(raw, trimmed)
	log.Info().
		Str("category", string(intent.Category)).
		Str("rewritten_query", intent.RewrittenQuery).
		Bool("explicit_time", intent.TimeRange != nil).
		Msg("Intent analyzed")
	return &intent, nil
}

func (a *intentAnalyzer) buildPrompt(query string, history []model.ConversationEntry) string {
	now := a.now()

	var b strings.Builder
	b.WriteString("You are a log-analysis intent analyzer. Decide what the user wants, rewrite the query so it is self-contained, and extract time range and entities.\n\n")

	fmt.Fprintf(&b, "Current time information:\n- Current time: %s\n- Current date: %s\n- Current hour: %d\n- Today is: %s\n\n",
		util.FormatPromptTime(now), now.Format("2006-01-02"), now.Hour(), now.Weekday().String())

	if ctxText := renderHistoryContext(history, a.contextTurns); ctxText != "" {
		b.WriteString("Recent conversation context (most recent last):\n")
		b.WriteString(ctxText)
		b.WriteString("\n")
	}

	b.WriteString("Relative time phrases convert to absolute ranges anchored at the current time, for example:\n")
	b.WriteString(timeConversionExamples(now))
	b.WriteString("\n")

	fmt.Fprintf(&b, `Respond with exactly one JSON object in this format:
{
  "category": "log_query" | "docs_query" | "general",
  "confidence": number between 0 and 1,
  "rewritten_query": "self-contained rewrite of the user's query",
  "time_range": {
    "start": "YYYY-MM-DD HH:MM:SS or null",
    "end": "YYYY-MM-DD HH:MM:SS or null",
    "explicit": true | false
  },
  "entities": {
    "log_type": "log source such as cloudfront, waf, alb, or null",
    "service": "service or component name, or null",
    "keywords": ["technical keywords"],
    "error_codes": ["status codes such as 4xx, 5xx, 404"],
    "explicit_log_source": true | false
  }
}

Rules:
- Set start/end and explicit=true ONLY when the user's query or the conversation context explicitly names a time window. Never invent a default range; otherwise set start and end to null and explicit to false.
- Set log_type ONLY when the user explicitly names a log source (directly or by context inheritance); otherwise null with explicit_log_source=false.
- Mentions of a concrete service such as "CloudFront" mean log_type "cloudfront" and explicit_log_source true.

User query: "%s"

JSON output:`, query)

	return b.String()
}

func renderHistoryContext(history []model.ConversationEntry, maxTurns int) string {
	// Only turns that produced an intent are useful context.
	succeeded := make([]model.ConversationEntry, 0, len(history))
	for _, entry := range history {
		if entry.Intent != nil {
			succeeded = append(succeeded, entry)
		}
	}
	if len(succeeded) == 0 {
		return ""
	}
	if maxTurns > 0 && len(succeeded) > maxTurns {
		succeeded = succeeded[len(succeeded)-maxTurns:]
	}

	var b strings.Builder
	for i, entry := range succeeded {
		fmt.Fprintf(&b, "%d. User asked: %q (rewritten: %q)", i+1, entry.UserQuery, entry.Intent.RewrittenQuery)
		if tr := entry.Intent.TimeRange; tr != nil {
			fmt.Fprintf(&b, ", time range %s to %s", util.FormatPromptTime(tr.Start), util.FormatPromptTime(tr.End))
		}
		if lt := entry.Intent.Entities.LogType; lt != "" {
			fmt.Fprintf(&b, ", log type %s", lt)
		}
		if kws := entry.Intent.Entities.Keywords; len(kws) > 0 {
			fmt.Fprintf(&b, ", keywords [%s]", strings.Join(kws, ", "))
		}
		b.WriteString("\n")
	}
	return b.String()
}

func timeConversionExamples(now time.Time) string {
	format := util.FormatPromptTime
	todayStart := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	todayEnd := time.Date(now.Year(), now.Month(), now.Day(), 23, 59, 59, 0, now.Location())
	yesterday := now.AddDate(0, 0, -1)
	yesterdayStart := time.Date(yesterday.Year(), yesterday.Month(), yesterday.Day(), 0, 0, 0, 0, now.Location())
	yesterdayEnd := time.Date(yesterday.Year(), yesterday.Month(), yesterday.Day(), 23, 59, 59, 0, now.Location())

	lines := []string{
		fmt.Sprintf("- \"past hour\": %s to %s", format(now.Add(-time.Hour)), format(now)),
		fmt.Sprintf("- \"today\": %s to %s", format(todayStart), format(todayEnd)),
		fmt.Sprintf("- \"past 24 hours\": %s to %s", format(now.Add(-24*time.Hour)), format(now)),
		fmt.Sprintf("- \"yesterday\": %s to %s", format(yesterdayStart), format(yesterdayEnd)),
		fmt.Sprintf("- \"past week\": %s to %s", format(now.AddDate(0, 0, -7)), format(now)),
		fmt.Sprintf("- \"past 30 minutes\": %s to %s", format(now.Add(-30*time.Minute)), format(now)),
		fmt.Sprintf("- \"past month\": %s to %s", format(now.AddDate(0, 0, -30)), format(now)),
		fmt.Sprintf("- \"past half year\": %s to %s", format(now.AddDate(0, 0, -180)), format(now)),
		fmt.Sprintf("- \"past year\": %s to %s", format(now.AddDate(0, 0, -365)), format(now)),
	}
	return strings.Join(lines, "\n") + "\n"
}
