package service_test

import (
	"context"
	"sync"

	"loginsight-backend/config"
	"loginsight-backend/internal/events"
	"loginsight-backend/internal/llm"
	"loginsight-backend/internal/metadata"
	"loginsight-backend/internal/model"
	"loginsight-backend/internal/search"
)

func testConfig() *config.Config {
	cfg := &config.Config{}
	cfg.Model.AnalysisModelID = "analysis-model"
	cfg.Model.SelectionModelID = "selection-model"
	cfg.Model.Temperature = 0.1
	cfg.Query.MaxErrorRetries = 5
	cfg.Query.MaxEmptyRetries = 3
	cfg.History.Window = 10
	cfg.History.ContextTurns = 5
	return cfg
}

// scriptedInvoker replays canned responses and records every prompt it saw.
type scriptedInvoker struct {
	mu      sync.Mutex
	replies []string
	errs    []error
	prompts []llm.GenerateRequest
}

func (s *scriptedInvoker) Generate(ctx context.Context, req llm.GenerateRequest) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	idx := len(s.prompts)
	s.prompts = append(s.prompts, req)
	if idx < len(s.errs) && s.errs[idx] != nil {
		return "", s.errs[idx]
	}
	if idx >= len(s.replies) {
		idx = len(s.replies) - 1
	}
	return s.replies[idx], nil
}

func (s *scriptedInvoker) calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.prompts)
}

// fakeCatalog is an in-memory metadata gateway for tests.
type fakeCatalog struct {
	metadata.Gateway
	defs     map[string]*model.IndexDefinition
	profiles []model.ConnectionProfile
}

func newFakeCatalog(defs ...*model.IndexDefinition) *fakeCatalog {
	c := &fakeCatalog{
		defs:     make(map[string]*model.IndexDefinition),
		profiles: []model.ConnectionProfile{{Name: "default", Host: "search.internal", Port: 9200}},
	}
	for _, def := range defs {
		c.defs[def.Name] = def
	}
	return c
}

func (c *fakeCatalog) ListIndices(ctx context.Context) ([]string, error) {
	names := make([]string, 0, len(c.defs))
	for name := range c.defs {
		names = append(names, name)
	}
	return names, nil
}

func (c *fakeCatalog) GetIndex(ctx context.Context, name string) (*model.IndexDefinition, error) {
	def, ok := c.defs[name]
	if !ok {
		return nil, metadata.ErrIndexNotFound
	}
	return def, nil
}

func (c *fakeCatalog) ListConnectionProfiles(ctx context.Context) ([]model.ConnectionProfile, error) {
	return c.profiles, nil
}

func (c *fakeCatalog) GetConnectionProfile(ctx context.Context, name string) (*model.ConnectionProfile, error) {
	for i := range c.profiles {
		if c.profiles[i].Name == name {
			return &c.profiles[i], nil
		}
	}
	return nil, metadata.ErrProfileNotFound
}

// scriptedGateway returns one scripted outcome per Execute call, repeating
// the last when exhausted.
type scriptedGateway struct {
	mu       sync.Mutex
	outcomes []executeOutcome
	bodies   []map[string]interface{}
}

type executeOutcome struct {
	env *model.ResultEnvelope
	err error
}

func (g *scriptedGateway) Execute(ctx context.Context, profile model.ConnectionProfile, index string, body map[string]interface{}) (*model.ResultEnvelope, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	idx := len(g.bodies)
	g.bodies = append(g.bodies, body)
	if idx >= len(g.outcomes) {
		idx = len(g.outcomes) - 1
	}
	out := g.outcomes[idx]
	return out.env, out.err
}

func (g *scriptedGateway) executions() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.bodies)
}

func gatewayErr(reason string) executeOutcome {
	return executeOutcome{err: &search.GatewayError{StatusCode: 400, Reason: reason}}
}

func emptyResult() executeOutcome {
	return executeOutcome{env: &model.ResultEnvelope{Total: 0, Documents: []map[string]interface{}{}}}
}

func acceptedResult(total int64) executeOutcome {
	return executeOutcome{env: &model.ResultEnvelope{
		Total:     total,
		Documents: []map[string]interface{}{{"level": "ERROR", "message": "boom"}},
	}}
}

// recordingSink captures progress events for assertions.
type recordingSink struct {
	mu  sync.Mutex
	got []events.Event
}

func (r *recordingSink) Publish(event events.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.got = append(r.got, event)
}

func (r *recordingSink) byStage(stage string) []events.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]events.Event, 0)
	for _, e := range r.got {
		if e.Stage == stage {
			out = append(out, e)
		}
	}
	return out
}
