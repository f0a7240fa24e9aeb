package search

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"time"

	"github.com/cenkalti/backoff"
	"github.com/opensearch-project/opensearch-go/v2"
	"github.com/opensearch-project/opensearch-go/v2/opensearchapi"
	"github.com/rs/zerolog/log"

	"loginsight-backend/internal/model"
)

type opensearchSearcher struct {
	client *opensearch.Client
}

func newOpenSearchSearcher(profile model.ConnectionProfile) (searcher, error) {
	osCfg := opensearch.Config{
		Addresses: []string{profile.Address()},
		Username:  profile.Username,
		Password:  profile.Password,
		Transport: newSearchTransport(),
	}

	client, err := opensearch.NewClient(osCfg)
	if err != nil {
		log.Error().Err(err).Str("profile", profile.Name).Msg("Error creating the OpenSearch client")
		return nil, fmt.Errorf("failed to create opensearch client: %w", err)
	}

	operation := func() error {
		res, errPing := opensearchapi.PingRequest{}.Do(context.Background(), client)
		if errPing != nil {
			log.Warn().Err(errPing).Str("profile", profile.Name).Msg("Attempt failed: OpenSearch ping error")
			return errPing
		}
		defer res.Body.Close()
		if res.IsError() {
			errMsg := fmt.Errorf("opensearch ping returned error status: %s", res.Status())
			log.Warn().Err(errMsg).Str("profile", profile.Name).Msg("Attempt failed: OpenSearch ping returned error status")
			return errMsg
		}
		return nil
	}

	connectBackoff := backoff.NewExponentialBackOff()
	connectBackoff.InitialInterval = 2 * time.Second
	connectBackoff.MaxInterval = 15 * time.Second
	connectBackoff.MaxElapsedTime = 90 * time.Second

	if err := backoff.Retry(operation, connectBackoff); err != nil {
		log.Error().Err(err).Str("profile", profile.Name).Msg("Failed to connect to OpenSearch after multiple retries")
		return nil, fmt.Errorf("failed to connect to opensearch at %s: %w", profile.Address(), err)
	}

	log.Info().Str("profile", profile.Name).Msg("OpenSearch client initialized and connection verified")
	return &opensearchSearcher{client: client}, nil
}

func (s *opensearchSearcher) Search(ctx context.Context, index string, body []byte) (int, []byte, error) {
	req := opensearchapi.SearchRequest{
		Index: []string{index},
		Body:  bytes.NewReader(body),
	}
	res, err := req.Do(ctx, s.client)
	if err != nil {
		return 0, nil, err
	}
	defer res.Body.Close()

	raw, err := io.ReadAll(res.Body)
	if err != nil {
		return res.StatusCode, nil, err
	}
	return res.StatusCode, raw, nil
}
