package search

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"time"

	"github.com/cenkalti/backoff"
	"github.com/elastic/go-elasticsearch/v8"
	"github.com/rs/zerolog/log"

	"loginsight-backend/internal/model"
)

type elasticsearchSearcher struct {
	client *elasticsearch.Client
}

func newElasticsearchSearcher(profile model.ConnectionProfile) (searcher, error) {
	esCfg := elasticsearch.Config{
		Addresses: []string{profile.Address()},
		Username:  profile.Username,
		Password:  profile.Password,
		Transport: newSearchTransport(),
	}

	client, err := elasticsearch.NewClient(esCfg)
	if err != nil {
		log.Error().Err(err).Str("profile", profile.Name).Msg("Error creating the Elasticsearch client")
		return nil, fmt.Errorf("failed to create elasticsearch client: %w", err)
	}

	operation := func() error {
		res, errPing := client.Info(client.Info.WithContext(context.Background()))
		if errPing != nil {
			log.Warn().Err(errPing).Str("profile", profile.Name).Msg("Attempt failed: Elasticsearch ping error")
			return errPing
		}
		defer res.Body.Close()
		if res.IsError() {
			errMsg := fmt.Errorf("elasticsearch Info() returned error status: %s", res.Status())
			log.Warn().Err(errMsg).Str("profile", profile.Name).Msg("Attempt failed: Elasticsearch ping returned error status")
			return errMsg
		}
		return nil
	}

	connectBackoff := backoff.NewExponentialBackOff()
	connectBackoff.InitialInterval = 2 * time.Second
	connectBackoff.MaxInterval = 15 * time.Second
	connectBackoff.MaxElapsedTime = 90 * time.Second

	if err := backoff.Retry(operation, connectBackoff); err != nil {
		log.Error().Err(err).Str("profile", profile.Name).Msg("Failed to connect to Elasticsearch after multiple retries")
		return nil, fmt.Errorf("failed to connect to elasticsearch at %s: %w", profile.Address(), err)
	}

	log.Info().Str("profile", profile.Name).Msg("Elasticsearch client initialized and connection verified")
	return &elasticsearchSearcher{client: client}, nil
}

func (s *elasticsearchSearcher) Search(ctx context.Context, index string, body []byte) (int, []byte, error) {
	res, err := s.client.Search(
		s.client.Search.WithContext(ctx),
		s.client.Search.WithIndex(index),
		s.client.Search.WithBody(bytes.NewReader(body)),
	)
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
