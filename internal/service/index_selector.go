package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"

	"loginsight-backend/config"
	"loginsight-backend/internal/llm"
	"loginsight-backend/internal/model"
	"loginsight-backend/internal/util"
)

// IndexSelector picks exactly one index for an intent, or fails. It never
// guesses: the chosen name must literally be in the available list.
type IndexSelector interface {
	Select(ctx context.Context, intent *model.Intent, availableIndices []string) (string, error)
}

type indexSelector struct {
	invoker     llm.Invoker
	modelID     string
	temperature float64
}

func NewIndexSelector(invoker llm.Invoker, cfg *config.Config) IndexSelector {
	return &indexSelector{
		invoker:     invoker,
		modelID:     cfg.Model.SelectionModelID,
		temperature: cfg.Model.Temperature,
	}
}

func (s *indexSelector) Select(ctx context.Context, intent *model.Intent, availableIndices []string) (string, error) {
	if len(availableIndices) == 0 {
		return "", model.NewFailure(model.FailureNoIndex, "no indices available")
	}

	prompt := buildSelectionPrompt(intent, availableIndices)
	text, err := s.invoker.Generate(ctx, llm.GenerateRequest{
		Prompt:      prompt,
		ModelID:     s.modelID,
		Temperature: s.temperature,
	})
	if err != nil {
		log.Error().Err(err).Msg("Index selection model call failed")
		return "", fmt.Errorf("index selection failed: %w", err)
	}

	selected := extractSelectedIndex(text)
	for _, name := range availableIndices {
		if name == selected {
			log.Info().Str("index", name).Msg("Index selected")
			return name, nil
		}
	}

	log.Warn().Str("selected", selected).Strs("available", availableIndices).Msg("Model selected an index outside the known set")
	return "", model.NewFailureWithDetail(model.FailureNoIndex,
		fmt.Sprintf("selected index %q is not in the available set", selected),
		map[string]interface{}{"selected": selected, "available": availableIndices})
}

func buildSelectionPrompt(intent *model.Intent, availableIndices []string) string {
	var b strings.Builder
	b.WriteString("Pick the single best log index for this query.\n\n")
	fmt.Fprintf(&b, "Query: %q\n", intent.RewrittenQuery)
	if lt := intent.Entities.LogType; lt != "" {
		fmt.Fprintf(&b, "Log type: %s\n", lt)
	}
	if svc := intent.Entities.Service; svc != "" {
		fmt.Fprintf(&b, "Service: %s\n", svc)
	}
	if kws := intent.Entities.Keywords; len(kws) > 0 {
		fmt.Fprintf(&b, "Keywords: %s\n", strings.Join(kws, ", "))
	}

	b.WriteString("\nAvailable indices:\n")
	for _, name := range availableIndices {
		fmt.Fprintf(&b, "- %s\n", name)
	}

	b.WriteString(`
Respond with exactly one JSON object:
{"index": "<one name copied verbatim from the list>", "confidence": number between 0 and 1, "reason": "short justification"}

JSON output:`)
	return b.String()
}

// extractSelectedIndex accepts either the requested JSON shape or, as a
// fallback, a bare index name on its own line.
func extractSelectedIndex(text string) string {
	if raw, err := util.ExtractJSONObject(text); err == nil {
		if name, ok := raw["index"].(string); ok {
			return strings.TrimSpace(name)
		}
	}
	return strings.TrimSpace(text)
}
