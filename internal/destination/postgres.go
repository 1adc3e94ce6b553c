package destination

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	apperrors "monitorss/pkg/errors"
	"monitorss/pkg/metrics"
)

type PostgresSource struct {
	db *sql.DB
}

func NewPostgresSource(db *sql.DB) *PostgresSource {
	return &PostgresSource{db: db}
}

const selectDestinations = `
	SELECT id, feed_id, channel_id, webhook_id, webhook_token, webhook_thread_id,
		disabled, dequeue_rate, supporter, settings
	FROM destinations
`

func (s *PostgresSource) LoadAll(ctx context.Context) ([]*Destination, error) {
	start := time.Now()
	out, err := s.loadAll(ctx)
	metrics.ObserveStoreQuery("postgres", "destinations.load_all", start, err)
	return out, err
}

func (s *PostgresSource) loadAll(ctx context.Context) ([]*Destination, error) {
	rows, err := s.db.QueryContext(ctx, selectDestinations+" ORDER BY id")
	if err != nil {
		return nil, fmt.Errorf("failed to list destinations: %w", err)
	}
	defer rows.Close()

	var out []*Destination
	for rows.Next() {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("context cancelled: %w", err)
		}

		dest, err := scanDestination(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, dest)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate destinations: %w", err)
	}
	return out, nil
}

func (s *PostgresSource) Get(ctx context.Context, id string) (*Destination, error) {
	row := s.db.QueryRowContext(ctx, selectDestinations+" WHERE id = $1", id)

	dest, err := scanDestination(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperrors.ErrDestinationMissing.WithCause(err).WithDetail("destination_id", id)
	}
	if err != nil {
		return nil, err
	}
	if err := dest.Validate(); err != nil {
		return nil, err
	}
	return dest, nil
}

// Upsert inserts or replaces a destination.
func (s *PostgresSource) Upsert(ctx context.Context, dest *Destination) error {
	if err := dest.Validate(); err != nil {
		return err
	}

	settings, err := json.Marshal(dest.Settings)
	if err != nil {
		return fmt.Errorf("failed to encode destination settings: %w", err)
	}

	var webhookID, webhookToken, threadID string
	if dest.Webhook != nil {
		webhookID, webhookToken, threadID = dest.Webhook.ID, dest.Webhook.Token, dest.Webhook.ThreadID
	}

	query := `
		INSERT INTO destinations (
			id, feed_id, channel_id, webhook_id, webhook_token, webhook_thread_id,
			disabled, dequeue_rate, supporter, settings, updated_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, NOW())
		ON CONFLICT (id) DO UPDATE SET
			feed_id = EXCLUDED.feed_id,
			channel_id = EXCLUDED.channel_id,
			webhook_id = EXCLUDED.webhook_id,
			webhook_token = EXCLUDED.webhook_token,
			webhook_thread_id = EXCLUDED.webhook_thread_id,
			disabled = EXCLUDED.disabled,
			dequeue_rate = EXCLUDED.dequeue_rate,
			supporter = EXCLUDED.supporter,
			settings = EXCLUDED.settings,
			updated_at = NOW()
	`

	_, err = s.db.ExecContext(ctx, query,
		dest.ID, dest.FeedID, nullString(dest.ChannelID),
		nullString(webhookID), nullString(webhookToken), nullString(threadID),
		dest.Disabled, dest.DequeueRate, dest.Supporter, settings,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert destination: %w", err)
	}
	return nil
}

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanDestination(row scanner) (*Destination, error) {
	var dest Destination
	var channelID, webhookID, token, threadID sql.NullString
	var settings []byte
	err := row.Scan(
		&dest.ID, &dest.FeedID, &channelID, &webhookID, &token, &threadID,
		&dest.Disabled, &dest.DequeueRate, &dest.Supporter, &settings,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to scan destination: %w", err)
	}

	dest.ChannelID = channelID.String
	if webhookID.Valid {
		dest.Webhook = &Webhook{ID: webhookID.String, Token: token.String, ThreadID: threadID.String}
	}
	if len(settings) > 0 {
		if err := json.Unmarshal(settings, &dest.Settings); err != nil {
			return nil, fmt.Errorf("failed to decode settings of destination %s: %w", dest.ID, err)
		}
	}
	return &dest, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
