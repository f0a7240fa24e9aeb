package search

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"loginsight-backend/internal/model"
)

// GatewayError is a failed search execution: a transport failure, an HTTP
// error status, or an engine-reported query error. Reason carries the
// engine's own description so it can be fed back into query repair.
type GatewayError struct {
	StatusCode int
	ErrType    string
	Reason     string
}

func (e *GatewayError) Error() string {
	if e.ErrType != "" {
		return fmt.Sprintf("search execution failed (status %d, %s): %s", e.StatusCode, e.ErrType, e.Reason)
	}
	return fmt.Sprintf("search execution failed (status %d): %s", e.StatusCode, e.Reason)
}

// Gateway executes structured query bodies against whichever engine a
// connection profile points at.
type Gateway interface {
	Execute(ctx context.Context, profile model.ConnectionProfile, index string, body map[string]interface{}) (*model.ResultEnvelope, error)
}

// searcher is one connected engine client. Implementations return the raw
// HTTP status and response body; envelope decoding is shared.
type searcher interface {
	Search(ctx context.Context, index string, body []byte) (int, []byte, error)
}

type dialectGateway struct {
	mu      sync.Mutex
	clients map[string]searcher
}

// NewGateway builds a gateway that lazily connects one client per profile and
// reuses it across executions.
func NewGateway() Gateway {
	return &dialectGateway{clients: make(map[string]searcher)}
}

func (g *dialectGateway) Execute(ctx context.Context, profile model.ConnectionProfile, index string, body map[string]interface{}) (*model.ResultEnvelope, error) {
	client, err := g.clientFor(profile)
	if err != nil {
		return nil, err
	}

	payload, err := encodeQueryBody(body)
	if err != nil {
		return nil, &GatewayError{ErrType: "encode_error", Reason: err.Error()}
	}

	status, raw, err := client.Search(ctx, index, payload)
	if err != nil {
		return nil, &GatewayError{ErrType: "transport_error", Reason: err.Error()}
	}
	return decodeEnvelope(status, raw)
}

func (g *dialectGateway) clientFor(profile model.ConnectionProfile) (searcher, error) {
	key := profile.Name + "|" + profile.Address()

	g.mu.Lock()
	defer g.mu.Unlock()
	if client, ok := g.clients[key]; ok {
		return client, nil
	}

	dialect := DetectDialect(profile)
	log.Info().Str("profile", profile.Name).Str("dialect", string(dialect)).Str("address", profile.Address()).Msg("Connecting search client")

	var client searcher
	var err error
	switch dialect {
	case DialectElasticsearch:
		client, err = newElasticsearchSearcher(profile)
	default:
		client, err = newOpenSearchSearcher(profile)
	}
	if err != nil {
		return nil, err
	}
	g.clients[key] = client
	return client, nil
}

// newSearchTransport mirrors the connection limits used by the log ingestion
// clients.
func newSearchTransport() *http.Transport {
	return &http.Transport{
		MaxIdleConnsPerHost:   10,
		ResponseHeaderTimeout: time.Second * 10,
		DialContext:           (&net.Dialer{Timeout: 5 * time.Second}).DialContext,
		TLSHandshakeTimeout:   5 * time.Second,
	}
}
