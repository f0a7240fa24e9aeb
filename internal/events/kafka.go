package events

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/segmentio/kafka-go"
	"go.uber.org/fx"

	"loginsight-backend/config"
)

// KafkaSink publishes progress events to a topic for out-of-process
// consumers (frontend push relays, auditing). Writes are async and
// best-effort.
type KafkaSink struct {
	writer *kafka.Writer
	topic  string
}

func NewKafkaSink(lc fx.Lifecycle, cfg *config.Config) (*KafkaSink, error) {
	if len(cfg.Kafka.Brokers) == 0 || cfg.Kafka.EventsTopic == "" {
		log.Error().Msg("Kafka brokers or events topic is not configured.")
		return nil, errors.New("kafka configuration missing")
	}

	writer := kafka.NewWriter(kafka.WriterConfig{
		Brokers:      cfg.Kafka.Brokers,
		Topic:        cfg.Kafka.EventsTopic,
		Balancer:     &kafka.LeastBytes{},
		BatchTimeout: 100 * time.Millisecond,
		Async:        true,
	})

	s := &KafkaSink{writer: writer, topic: cfg.Kafka.EventsTopic}
	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			log.Info().Msg("Closing Kafka events producer")
			return s.writer.Close()
		},
	})
	log.Info().Strs("brokers", cfg.Kafka.Brokers).Str("topic", s.topic).Msg("Kafka events producer initialized")
	return s, nil
}

func (s *KafkaSink) Publish(event Event) {
	value, err := json.Marshal(event)
	if err != nil {
		log.Error().Err(err).Str("stage", event.Stage).Msg("Failed to marshal progress event for Kafka")
		return
	}
	msg := kafka.Message{
		Key:   []byte(event.SessionID),
		Value: value,
	}
	if err := s.writer.WriteMessages(context.Background(), msg); err != nil {
		log.Error().Err(err).Str("topic", s.topic).Msg("Failed to write progress event to Kafka")
	}
}
