package service

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"

	"loginsight-backend/config"
	"loginsight-backend/internal/llm"
	"loginsight-backend/internal/model"
	"loginsight-backend/internal/util"
)

type AnalysisMode string

const (
	ModePerformance   AnalysisMode = "performance_analysis"
	ModeError         AnalysisMode = "error_analysis"
	ModeSecurity      AnalysisMode = "security_analysis"
	ModeAccess        AnalysisMode = "access_analysis"
	ModeBusiness      AnalysisMode = "business_analysis"
	ModeSystem        AnalysisMode = "system_analysis"
	ModeAudit         AnalysisMode = "audit_analysis"
	ModeApplication   AnalysisMode = "application_analysis"
	ModeComprehensive AnalysisMode = "comprehensive_analysis"
)

type analysisModeSpec struct {
	mode       AnalysisMode
	keywords   []string
	focusAreas []string
	template   string
}

// Declaration order doubles as the tie-break order for equal scores.
var analysisModes = []analysisModeSpec{
	{
		mode:       ModePerformance,
		keywords:   []string{"performance", "response time", "latency", "throughput", "qps", "tps", "slow"},
		focusAreas: []string{"performance metrics", "response time analysis", "throughput statistics", "resource utilization", "bottleneck identification"},
		template: `{
  "analysis_mode": "performance_analysis",
  "summary": "overall performance summary",
  "performance_metrics": {"avg_response_time": "", "max_response_time": "", "throughput": "", "error_rate": ""},
  "performance_trends": [""],
  "bottlenecks": [""],
  "optimization_recommendations": [""],
  "severity": "low|medium|high",
  "confidence": 0.0
}`,
	},
	{
		mode:       ModeError,
		keywords:   []string{"error", "exception", "failed", "failure", "5xx", "4xx", "timeout"},
		focusAreas: []string{"error statistics", "exception patterns", "error distribution", "root cause analysis", "impact assessment"},
		template: `{
  "analysis_mode": "error_analysis",
  "summary": "overall error summary",
  "error_statistics": {"total_errors": "", "error_rate": "", "most_common_error": "", "error_trend": ""},
  "error_categories": [{"category": "", "count": "", "percentage": ""}],
  "root_causes": [""],
  "impact_assessment": {"affected_users": "", "business_impact": ""},
  "remediation_steps": [""],
  "severity": "low|medium|high",
  "confidence": 0.0
}`,
	},
	{
		mode:       ModeSecurity,
		keywords:   []string{"security", "attack", "threat", "intrusion", "malicious", "sql injection", "xss"},
		focusAreas: []string{"security events", "threat detection", "attack patterns", "risk assessment", "security recommendations"},
		template: `{
  "analysis_mode": "security_analysis",
  "summary": "overall security summary",
  "security_events": {"total_events": "", "high_risk_events": "", "attack_attempts": ""},
  "threat_indicators": [""],
  "attack_patterns": [""],
  "risk_level": "low|medium|high",
  "security_recommendations": [""],
  "immediate_actions": [""],
  "severity": "low|medium|high",
  "confidence": 0.0
}`,
	},
	{
		mode:       ModeAccess,
		keywords:   []string{"access", "request", "user", "traffic", "ip", "visitor"},
		focusAreas: []string{"access statistics", "user behavior", "traffic analysis", "geographic distribution", "access patterns"},
		template: `{
  "analysis_mode": "access_analysis",
  "summary": "overall access summary",
  "access_statistics": {"total_requests": "", "unique_visitors": "", "peak_traffic_time": ""},
  "traffic_patterns": [""],
  "geographic_distribution": [{"region": "", "requests": "", "percentage": ""}],
  "anomalous_access": [""],
  "recommendations": [""],
  "severity": "low|medium|high",
  "confidence": 0.0
}`,
	},
	{
		mode:       ModeBusiness,
		keywords:   []string{"business", "order", "transaction", "conversion", "revenue"},
		focusAreas: []string{"business metrics", "conversion analysis", "user behavior", "business trends", "revenue impact"},
		template: `{
  "analysis_mode": "business_analysis",
  "summary": "overall business summary",
  "business_metrics": {"total_transactions": "", "conversion_rate": "", "revenue_impact": ""},
  "business_trends": [""],
  "key_findings": [""],
  "recommendations": [""],
  "severity": "low|medium|high",
  "confidence": 0.0
}`,
	},
	{
		mode:       ModeSystem,
		keywords:   []string{"system", "service", "resource", "cpu", "memory", "disk", "network"},
		focusAreas: []string{"system status", "resource monitoring", "service health", "capacity planning", "system optimization"},
		template: `{
  "analysis_mode": "system_analysis",
  "summary": "overall system summary",
  "system_status": {"health": "", "uptime": "", "resource_pressure": ""},
  "resource_utilization": {"cpu_usage": "", "memory_usage": "", "disk_io": "", "network_io": ""},
  "service_issues": [""],
  "capacity_recommendations": [""],
  "severity": "low|medium|high",
  "confidence": 0.0
}`,
	},
	{
		mode:       ModeAudit,
		keywords:   []string{"audit", "compliance", "permission", "operation log"},
		focusAreas: []string{"operation audit", "permission analysis", "compliance checks", "operation statistics", "risk identification"},
		template: `{
  "analysis_mode": "audit_analysis",
  "summary": "overall audit summary",
  "audit_statistics": {"total_operations": "", "privileged_operations": "", "unusual_operations": ""},
  "compliance_findings": [""],
  "permission_issues": [""],
  "recommendations": [""],
  "severity": "low|medium|high",
  "confidence": 0.0
}`,
	},
	{
		mode:       ModeApplication,
		keywords:   []string{"application", "function", "module", "api", "endpoint", "interface"},
		focusAreas: []string{"application performance", "feature usage", "api calls", "module analysis", "application health"},
		template: `{
  "analysis_mode": "application_analysis",
  "summary": "overall application summary",
  "application_metrics": {"total_calls": "", "top_endpoints": "", "failure_rate": ""},
  "module_findings": [""],
  "api_issues": [""],
  "recommendations": [""],
  "severity": "low|medium|high",
  "confidence": 0.0
}`,
	},
}

var comprehensiveSpec = analysisModeSpec{
	mode:       ModeComprehensive,
	focusAreas: []string{"data overview", "key metrics", "trend analysis", "anomaly detection", "pattern recognition", "business impact"},
	template: `{
  "analysis_mode": "comprehensive_analysis",
  "summary": "overall summary of the result set",
  "key_metrics": {"total_documents": "", "dominant_pattern": ""},
  "trends": [""],
  "anomalies": [""],
  "recommendations": [""],
  "severity": "low|medium|high",
  "confidence": 0.0
}`,
}

// ClassifyAnalysisMode exposes the mode decision used for a turn.
func ClassifyAnalysisMode(query string, intent *model.Intent) AnalysisMode {
	return determineAnalysisMode(query, intent).mode
}

// determineAnalysisMode scores each mode by keyword overlap with the query
// text, the inherited log type, and the extracted keyword entities. Direct
// query matches weigh double, log-type matches 1.5, entity-keyword matches 1.
// Zero everywhere means comprehensive.
func determineAnalysisMode(query string, intent *model.Intent) analysisModeSpec {
	queryLower := strings.ToLower(query)
	logType := ""
	keywordsText := ""
	if intent != nil {
		logType = strings.ToLower(intent.Entities.LogType)
		lowered := make([]string, 0, len(intent.Entities.Keywords))
		for _, kw := range intent.Entities.Keywords {
			lowered = append(lowered, strings.ToLower(kw))
		}
		keywordsText = strings.Join(lowered, " ")
	}

	best := comprehensiveSpec
	bestScore := 0.0
	for _, spec := range analysisModes {
		score := 0.0
		for _, kw := range spec.keywords {
			if strings.Contains(queryLower, kw) {
				score += 2
			}
			if logType != "" && strings.Contains(logType, kw) {
				score += 1.5
			}
			if keywordsText != "" && strings.Contains(keywordsText, kw) {
				score += 1
			}
		}
		if score > bestScore {
			bestScore = score
			best = spec
		}
	}
	return best
}

// AnalysisSynthesizer produces the structured analysis report for the
// accepted result set. Its output is the user-visible payload, so a garbled
// model answer fails the turn rather than degrading silently.
type AnalysisSynthesizer interface {
	Synthesize(ctx context.Context, query string, intent *model.Intent, envelope *model.ResultEnvelope) (map[string]interface{}, error)
}

type analysisSynthesizer struct {
	invoker     llm.Invoker
	modelID     string
	temperature float64
}

func NewAnalysisSynthesizer(invoker llm.Invoker, cfg *config.Config) AnalysisSynthesizer {
	return &analysisSynthesizer{
		invoker:     invoker,
		modelID:     cfg.Model.AnalysisModelID,
		temperature: cfg.Model.Temperature,
	}
}

func (s *analysisSynthesizer) Synthesize(ctx context.Context, query string, intent *model.Intent, envelope *model.ResultEnvelope) (map[string]interface{}, error) {
	spec := determineAnalysisMode(query, intent)
	log.Info().Str("mode", string(spec.mode)).Msg("Analysis mode determined")

	prompt := buildAnalysisPrompt(query, spec, envelope)
	text, err := s.invoker.Generate(ctx, llm.GenerateRequest{
		Prompt:      prompt,
		ModelID:     s.modelID,
		Temperature: s.temperature,
	})
	if err != nil {
		log.Error().Err(err).Msg("Analysis synthesis model call failed")
		return nil, fmt.Errorf("analysis synthesis failed: %w", err)
	}

	report, err := util.ExtractJSONObject(text)
	if err != nil {
		log.Error().Str("raw_text", text).Msg("Analysis output is not parseable JSON")
		return nil, model.NewFailureWithDetail(model.FailureSummarizationError,
			"analysis output could not be parsed",
			map[string]interface{}{"raw_text": text})
	}

	if _, ok := report["analysis_mode"]; !ok {
		report["analysis_mode"] = string(spec.mode)
	}
	return report, nil
}

func buildAnalysisPrompt(query string, spec analysisModeSpec, envelope *model.ResultEnvelope) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Analyze these log query results in %s mode.\n\n", spec.mode)
	fmt.Fprintf(&b, "User question: %q\n", query)
	fmt.Fprintf(&b, "Focus areas: %s\n", strings.Join(spec.focusAreas, ", "))
	fmt.Fprintf(&b, "Total matching documents: %d\n", envelope.Total)

	if encoded, err := json.Marshal(envelope); err == nil {
		fmt.Fprintf(&b, "\nResult data:\n%s\n", string(encoded))
	}

	fmt.Fprintf(&b, "\nRespond with exactly one JSON object following this template, filling every field from the data:\n%s\n\nJSON output:", spec.template)
	return b.String()
}
