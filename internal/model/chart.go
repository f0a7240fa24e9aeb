package model

type ChartType string

const (
	ChartBar     ChartType = "bar"
	ChartLine    ChartType = "line"
	ChartPie     ChartType = "pie"
	ChartScatter ChartType = "scatter"
	ChartArea    ChartType = "area"
	ChartHeatmap ChartType = "heatmap"
)

// ChartDescriptor describes one chart for the frontend renderer. Which of the
// array fields are meaningful depends on ChartType: xy types use XAxis/YAxis,
// pie uses Values/Names, heatmap uses XAxis/YAxis/Values.
type ChartDescriptor struct {
	ChartType   ChartType     `json:"chart_type"`
	Title       string        `json:"title"`
	XAxis       []interface{} `json:"x_axis,omitempty"`
	YAxis       []interface{} `json:"y_axis,omitempty"`
	Values      []interface{} `json:"values,omitempty"`
	Names       []string      `json:"names,omitempty"`
	Description string        `json:"description,omitempty"`
	ChartID     string        `json:"chart_id,omitempty"`
	Priority    int           `json:"priority,omitempty"`
}
