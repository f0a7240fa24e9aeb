package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog/log"
	"go.uber.org/fx"

	"loginsight-backend/config"
)

const progressEventsTableName = "progress_events"

// PostgresEventStore persists progress events so a session's timeline can be
// replayed after the fact. It doubles as a Sink: the append path swallows
// errors after logging, matching the best-effort sink contract.
type PostgresEventStore struct {
	pool *pgxpool.Pool
}

func NewPostgresEventStore(lc fx.Lifecycle, cfg *config.Config) (*PostgresEventStore, error) {
	poolConfig, err := pgxpool.ParseConfig(cfg.EventStore.DSN)
	if err != nil {
		log.Error().Err(err).Msg("Failed to parse event store DSN")
		return nil, fmt.Errorf("invalid event store DSN: %w", err)
	}

	pool, err := pgxpool.NewWithConfig(context.Background(), poolConfig)
	if err != nil {
		log.Error().Err(err).Msg("Unable to create connection pool to event store")
		return nil, fmt.Errorf("failed to connect to event store: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		log.Error().Err(err).Msg("Failed to ping event store")
		return nil, fmt.Errorf("failed to ping event store: %w", err)
	}

	store := &PostgresEventStore{pool: pool}

	setupCtx, cancelSetup := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancelSetup()
	if err := store.ensureTable(setupCtx); err != nil {
		pool.Close()
		log.Error().Err(err).Msg("Failed to ensure progress events table exists")
		return nil, fmt.Errorf("failed ensuring progress events table: %w", err)
	}
	log.Info().Msg("Event store connection pool created and verified.")

	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			log.Info().Msg("Closing event store connection pool...")
			store.pool.Close()
			return nil
		},
	})

	return store, nil
}

func (s *PostgresEventStore) ensureTable(ctx context.Context) error {
	createSQL := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			time TIMESTAMPTZ NOT NULL,
			session_id TEXT NOT NULL,
			stage TEXT NOT NULL,
			status TEXT NOT NULL,
			kind TEXT,
			payload JSONB
		);`, progressEventsTableName)
	if _, err := s.pool.Exec(ctx, createSQL); err != nil {
		return fmt.Errorf("failed to create table %s: %w", progressEventsTableName, err)
	}

	indexSQL := fmt.Sprintf(
		"CREATE INDEX IF NOT EXISTS idx_%s_session_time ON %s (session_id, time);",
		progressEventsTableName, progressEventsTableName)
	if _, err := s.pool.Exec(ctx, indexSQL); err != nil {
		log.Warn().Err(err).Msg("Failed to create index on progress events table (continuing)")
	}
	return nil
}

func (s *PostgresEventStore) Publish(event Event) {
	payloadJSON, err := json.Marshal(event.Payload)
	if err != nil {
		log.Error().Err(err).Str("stage", event.Stage).Msg("Failed to marshal progress event payload, inserting null")
		payloadJSON = nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	insertSQL := fmt.Sprintf(
		"INSERT INTO %s (time, session_id, stage, status, kind, payload) VALUES ($1, $2, $3, $4, $5, $6)",
		progressEventsTableName)
	if _, err := s.pool.Exec(ctx, insertSQL, event.Timestamp, event.SessionID, event.Stage, string(event.Status), event.Kind, payloadJSON); err != nil {
		log.Error().Err(err).Str("session", event.SessionID).Msg("Failed to persist progress event")
	}
}

// SessionEvents returns a session's persisted events inside [since, until],
// oldest first. Zero bounds are open.
func (s *PostgresEventStore) SessionEvents(ctx context.Context, sessionID string, since, until time.Time) ([]Event, error) {
	querySQL := fmt.Sprintf(
		"SELECT time, stage, status, kind, payload FROM %s WHERE session_id = $1", progressEventsTableName)
	args := []interface{}{sessionID}
	argCounter := 2

	if !since.IsZero() {
		querySQL += fmt.Sprintf(" AND time >= $%d", argCounter)
		args = append(args, since)
		argCounter++
	}
	if !until.IsZero() {
		querySQL += fmt.Sprintf(" AND time <= $%d", argCounter)
		args = append(args, until)
		argCounter++
	}
	querySQL += " ORDER BY time ASC"

	rows, err := s.pool.Query(ctx, querySQL, args...)
	if err != nil {
		log.Error().Err(err).Str("session", sessionID).Msg("Failed to query progress events")
		return nil, fmt.Errorf("progress events query failed: %w", err)
	}
	defer rows.Close()

	out := make([]Event, 0)
	for rows.Next() {
		var (
			event      Event
			kind       *string
			payloadRaw []byte
		)
		if err := rows.Scan(&event.Timestamp, &event.Stage, &event.Status, &kind, &payloadRaw); err != nil {
			log.Error().Err(err).Msg("Failed to scan progress event row")
			continue
		}
		event.SessionID = sessionID
		if kind != nil {
			event.Kind = *kind
		}
		if len(payloadRaw) > 0 {
			if err := json.Unmarshal(payloadRaw, &event.Payload); err != nil {
				log.Warn().Err(err).Msg("Malformed progress event payload, returning without payload")
			}
		}
		out = append(out, event)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed iterating progress events: %w", err)
	}
	return out, nil
}
