package service_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"loginsight-backend/internal/model"
	"loginsight-backend/internal/service"
)

func chartEnvelope() *model.ResultEnvelope {
	return &model.ResultEnvelope{
		Total: 120,
		Documents: []map[string]interface{}{
			{"status": "404", "count": 80},
			{"status": "500", "count": 40},
		},
	}
}

func TestChartSynthesizer_ValidBarChartPassesThrough(t *testing.T) {
	inv := &scriptedInvoker{replies: []string{`{
		"charts": [{
			"chart_type": "bar",
			"title": "Errors by status",
			"x_axis": ["404", "500"],
			"y_axis": [80, 40],
			"description": "error count per status code"
		}]
	}`}}
	synth := service.NewChartSynthesizer(inv, testConfig())

	charts := synth.Synthesize(context.Background(), "errors by status", chartEnvelope())
	require.Len(t, charts, 1)
	assert.Equal(t, model.ChartBar, charts[0].ChartType)
	assert.Equal(t, "Errors by status", charts[0].Title)
	assert.Len(t, charts[0].XAxis, 2)
	assert.NotEmpty(t, charts[0].ChartID)
	assert.Equal(t, "selection-model", inv.prompts[0].ModelID)
}

func TestChartSynthesizer_TruncatesMismatchedAxes(t *testing.T) {
	inv := &scriptedInvoker{replies: []string{`{
		"charts": [{
			"chart_type": "line",
			"title": "Requests over time",
			"x_axis": ["10:00", "10:05", "10:10", "10:15"],
			"y_axis": [12, 9]
		}]
	}`}}
	synth := service.NewChartSynthesizer(inv, testConfig())

	charts := synth.Synthesize(context.Background(), "requests over time", chartEnvelope())
	require.Len(t, charts, 1)
	assert.Len(t, charts[0].XAxis, 2)
	assert.Len(t, charts[0].YAxis, 2)
}

func TestChartSynthesizer_PieNeedsValuesAndNames(t *testing.T) {
	inv := &scriptedInvoker{replies: []string{`{
		"charts": [
			{
				"chart_type": "pie",
				"title": "Status share",
				"values": [80, 40, 10, 5, 2],
				"names": ["404", "500", "503"]
			},
			{
				"chart_type": "pie",
				"title": "Broken pie",
				"values": [1, 2, 3]
			}
		]
	}`}}
	synth := service.NewChartSynthesizer(inv, testConfig())

	charts := synth.Synthesize(context.Background(), "status share", chartEnvelope())
	require.Len(t, charts, 1)
	assert.Equal(t, model.ChartPie, charts[0].ChartType)
	assert.Len(t, charts[0].Values, 3)
	assert.Len(t, charts[0].Names, 3)
	assert.Nil(t, charts[0].XAxis)
}

func TestChartSynthesizer_SingleTopLevelChartObject(t *testing.T) {
	inv := &scriptedInvoker{replies: []string{`{
		"chart_type": "area",
		"title": "Traffic",
		"x_axis": ["a", "b"],
		"y_axis": [1, 2]
	}`}}
	synth := service.NewChartSynthesizer(inv, testConfig())

	charts := synth.Synthesize(context.Background(), "traffic", chartEnvelope())
	require.Len(t, charts, 1)
	assert.Equal(t, model.ChartArea, charts[0].ChartType)
}

func TestChartSynthesizer_UnusableAnswerYieldsPlaceholder(t *testing.T) {
	for name, reply := range map[string]string{
		"no json":         "sorry, no charts here",
		"unknown type":    `{"charts": [{"chart_type": "gauge", "x_axis": [1], "y_axis": [1]}]}`,
		"missing axes":    `{"charts": [{"chart_type": "bar", "title": "empty"}]}`,
		"empty chart set": `{"charts": []}`,
	} {
		t.Run(name, func(t *testing.T) {
			inv := &scriptedInvoker{replies: []string{reply}}
			synth := service.NewChartSynthesizer(inv, testConfig())

			charts := synth.Synthesize(context.Background(), "anything", chartEnvelope())
			require.Len(t, charts, 1)
			assert.Equal(t, model.ChartBar, charts[0].ChartType)
			assert.Equal(t, "Query results", charts[0].Title)
			assert.NotEmpty(t, charts[0].ChartID)
		})
	}
}

func TestChartSynthesizer_EmptyEnvelopeStillYieldsChart(t *testing.T) {
	inv := &scriptedInvoker{replies: []string{`{"charts": []}`}}
	synth := service.NewChartSynthesizer(inv, testConfig())

	empty := &model.ResultEnvelope{Total: 0, Documents: []map[string]interface{}{}}
	charts := synth.Synthesize(context.Background(), "anything at all", empty)
	require.Len(t, charts, 1)
	assert.Equal(t, model.ChartBar, charts[0].ChartType)
}

func TestChartSynthesizer_CapsAtFiveCharts(t *testing.T) {
	inv := &scriptedInvoker{replies: []string{`{
		"charts": [
			{"chart_type": "bar", "title": "1", "x_axis": [1], "y_axis": [1]},
			{"chart_type": "bar", "title": "2", "x_axis": [1], "y_axis": [1]},
			{"chart_type": "bar", "title": "3", "x_axis": [1], "y_axis": [1]},
			{"chart_type": "bar", "title": "4", "x_axis": [1], "y_axis": [1]},
			{"chart_type": "bar", "title": "5", "x_axis": [1], "y_axis": [1]},
			{"chart_type": "bar", "title": "6", "x_axis": [1], "y_axis": [1]}
		]
	}`}}
	synth := service.NewChartSynthesizer(inv, testConfig())

	charts := synth.Synthesize(context.Background(), "many charts", chartEnvelope())
	assert.Len(t, charts, 5)
}

func TestChartSynthesizer_DefaultTitleApplied(t *testing.T) {
	inv := &scriptedInvoker{replies: []string{`{
		"charts": [{"chart_type": "bar", "x_axis": ["x"], "y_axis": [1]}]
	}`}}
	synth := service.NewChartSynthesizer(inv, testConfig())

	charts := synth.Synthesize(context.Background(), "untitled", chartEnvelope())
	require.Len(t, charts, 1)
	assert.Equal(t, "Query results", charts[0].Title)
}
