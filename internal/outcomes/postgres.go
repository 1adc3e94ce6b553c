package outcomes

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"monitorss/pkg/metrics"
)

type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Record(ctx context.Context, o *Outcome) error {
	start := time.Now()
	err := s.record(ctx, o)
	metrics.ObserveStoreQuery("postgres", "outcomes.record", start, err)
	return err
}

func (s *PostgresStore) record(ctx context.Context, o *Outcome) error {
	prepare(o)

	query := `
		INSERT INTO delivery_outcomes (
			id, feed_id, destination_id, article_id, article_id_hash,
			delivered, status, error_code, response_status, comment, created_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`

	_, err := s.db.ExecContext(ctx, query,
		o.ID, o.FeedID, o.DestinationID, o.ArticleID, o.ArticleIDHash,
		o.Delivered, string(o.Status), nullString(string(o.ErrorCode)), nullInt(o.ResponseStatus),
		nullString(o.Comment), o.Timestamp,
	)
	if err != nil {
		return fmt.Errorf("failed to record delivery outcome: %w", err)
	}
	return nil
}

func (s *PostgresStore) ListByFeed(ctx context.Context, feedID string, since time.Time) ([]Outcome, error) {
	start := time.Now()
	out, err := s.listByFeed(ctx, feedID, since)
	metrics.ObserveStoreQuery("postgres", "outcomes.list_by_feed", start, err)
	return out, err
}

func (s *PostgresStore) listByFeed(ctx context.Context, feedID string, since time.Time) ([]Outcome, error) {
	query := `
		SELECT id, feed_id, destination_id, article_id, article_id_hash,
			delivered, status, error_code, response_status, comment, created_at
		FROM delivery_outcomes
		WHERE feed_id = $1 AND created_at >= $2
		ORDER BY created_at DESC
	`

	rows, err := s.db.QueryContext(ctx, query, feedID, since)
	if err != nil {
		return nil, fmt.Errorf("failed to list delivery outcomes: %w", err)
	}
	defer rows.Close()

	var out []Outcome
	for rows.Next() {
		var (
			o              Outcome
			status         string
			errorCode      sql.NullString
			responseStatus sql.NullInt64
			comment        sql.NullString
		)
		if err := rows.Scan(
			&o.ID, &o.FeedID, &o.DestinationID, &o.ArticleID, &o.ArticleIDHash,
			&o.Delivered, &status, &errorCode, &responseStatus, &comment, &o.Timestamp,
		); err != nil {
			return nil, fmt.Errorf("failed to scan delivery outcome: %w", err)
		}
		o.Status = Status(status)
		o.ErrorCode = ErrorCode(errorCode.String)
		o.ResponseStatus = int(responseStatus.Int64)
		o.Comment = comment.String
		o.Timestamp = o.Timestamp.UTC()
		out = append(out, o)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate delivery outcomes: %w", err)
	}

	return out, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func nullInt(i int) sql.NullInt64 {
	return sql.NullInt64{Int64: int64(i), Valid: i != 0}
}
