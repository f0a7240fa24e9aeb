package service

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"loginsight-backend/config"
	"loginsight-backend/internal/llm"
	"loginsight-backend/internal/model"
	"loginsight-backend/internal/util"
)

// ChartSynthesizer asks the model for 1-5 chart descriptors over the cleaned
// result envelope and validates each one per its chart type. An entirely
// unusable answer degrades to a single placeholder bar chart, never to no
// chart at all.
type ChartSynthesizer interface {
	Synthesize(ctx context.Context, query string, envelope *model.ResultEnvelope) []model.ChartDescriptor
}

type chartSynthesizer struct {
	invoker     llm.Invoker
	modelID     string
	temperature float64
}

func NewChartSynthesizer(invoker llm.Invoker, cfg *config.Config) ChartSynthesizer {
	return &chartSynthesizer{
		invoker:     invoker,
		modelID:     cfg.Model.SelectionModelID,
		temperature: cfg.Model.Temperature,
	}
}

func (s *chartSynthesizer) Synthesize(ctx context.Context, query string, envelope *model.ResultEnvelope) []model.ChartDescriptor {
	prompt := buildChartPrompt(query, envelope)

	text, err := s.invoker.Generate(ctx, llm.GenerateRequest{
		Prompt:      prompt,
		ModelID:     s.modelID,
		Temperature: s.temperature,
	})
	if err != nil {
		log.Warn().Err(err).Msg("Chart synthesis call failed, using placeholder chart")
		return []model.ChartDescriptor{defaultChart(query)}
	}

	raw, err := util.ExtractJSONObject(text)
	if err != nil {
		log.Warn().Str("raw_text", text).Msg("Chart synthesis output unparseable, using placeholder chart")
		return []model.ChartDescriptor{defaultChart(query)}
	}

	charts := decodeCharts(raw)
	valid := make([]model.ChartDescriptor, 0, len(charts))
	for _, chart := range charts {
		if repaired, ok := validateChart(chart); ok {
			valid = append(valid, repaired)
		}
	}
	if len(valid) == 0 {
		return []model.ChartDescriptor{defaultChart(query)}
	}
	if len(valid) > 5 {
		valid = valid[:5]
	}
	return valid
}

func buildChartPrompt(query string, envelope *model.ResultEnvelope) string {
	var b strings.Builder
	b.WriteString("Design 1 to 5 charts visualizing these log query results.\n\n")
	fmt.Fprintf(&b, "User question: %q\n", query)
	fmt.Fprintf(&b, "Total matching documents: %d\n", envelope.Total)

	if encoded, err := json.Marshal(envelope); err == nil {
		fmt.Fprintf(&b, "\nResult data:\n%s\n", string(encoded))
	}

	b.WriteString(`
Respond with exactly one JSON object:
{
  "charts": [
    {
      "chart_type": "bar" | "line" | "pie" | "scatter" | "area" | "heatmap",
      "title": "chart title",
      "x_axis": [...],   // bar/line/scatter/area/heatmap
      "y_axis": [...],   // bar/line/scatter/area/heatmap
      "values": [...],   // pie and heatmap
      "names": [...],    // pie slice labels
      "description": "what the chart shows"
    }
  ]
}

JSON output:`)
	return b.String()
}

func decodeCharts(raw map[string]interface{}) []model.ChartDescriptor {
	items, ok := raw["charts"].([]interface{})
	if !ok {
		// Some answers come back as a single chart object at the top level.
		if _, hasType := raw["chart_type"]; hasType {
			items = []interface{}{raw}
		} else {
			return nil
		}
	}

	charts := make([]model.ChartDescriptor, 0, len(items))
	for _, item := range items {
		obj, ok := item.(map[string]interface{})
		if !ok {
			continue
		}
		chart := model.ChartDescriptor{
			ChartType:   model.ChartType(strings.ToLower(strings.TrimSpace(stringValue(obj["chart_type"])))),
			Title:       stringValue(obj["title"]),
			Description: stringValue(obj["description"]),
			XAxis:       sliceValue(obj["x_axis"]),
			YAxis:       sliceValue(obj["y_axis"]),
			Values:      sliceValue(obj["values"]),
		}
		for _, n := range sliceValue(obj["names"]) {
			chart.Names = append(chart.Names, fmt.Sprintf("%v", n))
		}
		charts = append(charts, chart)
	}
	return charts
}

// validateChart checks a descriptor against its declared type's shape.
// Mismatched array lengths are repaired by truncating to the shortest;
// structurally hopeless charts are rejected.
func validateChart(chart model.ChartDescriptor) (model.ChartDescriptor, bool) {
	switch chart.ChartType {
	case model.ChartBar, model.ChartLine, model.ChartScatter, model.ChartArea:
		if len(chart.XAxis) == 0 || len(chart.YAxis) == 0 {
			return chart, false
		}
		n := minInt(len(chart.XAxis), len(chart.YAxis))
		chart.XAxis = chart.XAxis[:n]
		chart.YAxis = chart.YAxis[:n]
		chart.Values = nil
		chart.Names = nil
	case model.ChartPie:
		if len(chart.Values) == 0 || len(chart.Names) == 0 {
			return chart, false
		}
		n := minInt(len(chart.Values), len(chart.Names))
		chart.Values = chart.Values[:n]
		chart.Names = chart.Names[:n]
		chart.XAxis = nil
		chart.YAxis = nil
	case model.ChartHeatmap:
		if len(chart.XAxis) == 0 || len(chart.YAxis) == 0 || len(chart.Values) == 0 {
			return chart, false
		}
		chart.Names = nil
	default:
		return chart, false
	}

	if chart.Title == "" {
		chart.Title = "Query results"
	}
	chart.ChartID = uuid.NewString()
	return chart, true
}

// defaultChart is the single-bar placeholder used when nothing usable came
// back.
func defaultChart(query string) model.ChartDescriptor {
	return model.ChartDescriptor{
		ChartType:   model.ChartBar,
		Title:       "Query results",
		XAxis:       []interface{}{"results"},
		YAxis:       []interface{}{0},
		Description: fmt.Sprintf("No structured chart could be derived for: %s", query),
		ChartID:     uuid.NewString(),
	}
}

func stringValue(v interface{}) string {
	s, _ := v.(string)
	return s
}

func sliceValue(v interface{}) []interface{} {
	s, _ := v.([]interface{})
	return s
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}
