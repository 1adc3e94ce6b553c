// Package seen remembers which articles of a feed were already processed.
package seen

import (
	"context"
	"fmt"
	"strings"
	"time"

	"monitorss/internal/article"
	"monitorss/internal/constants"
	"monitorss/internal/logger"
	"monitorss/pkg/metrics"
	"monitorss/pkg/tracing"
)

// Store records article identities per feed.
type Store interface {
	// MarkSeen returns true the first time idHash is recorded for feedID.
	MarkSeen(ctx context.Context, feedID, idHash string) (bool, error)
}

type Service struct {
	repo    Repository
	ttl     time.Duration
	onError string
	logger  logger.Logger
}

// NewService builds a Store over repo. ttlSeconds of zero keeps entries
// forever. onError is "allow" or "deny" and decides the outcome when the
// repository fails.
func NewService(repo Repository, ttlSeconds int, onError string, log logger.Logger) *Service {
	return &Service{
		repo:    repo,
		ttl:     time.Duration(ttlSeconds) * time.Second,
		onError: strings.ToLower(onError),
		logger:  log,
	}
}

func Key(feedID, idHash string) string {
	return constants.CacheKeyPrefixSeen + feedID + ":" + idHash
}

func (s *Service) MarkSeen(ctx context.Context, feedID, idHash string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}

	start := time.Now()
	fresh, err := s.repo.SetNX(ctx, Key(feedID, idHash), start.Unix(), s.ttl)
	duration := time.Since(start)

	if err != nil {
		metrics.ObserveSeenCheck("error", duration)
		return s.handleError(ctx, err, feedID, idHash)
	}

	status := "seen"
	if fresh {
		status = "new"
	}
	metrics.ObserveSeenCheck(status, duration)
	return fresh, nil
}

func (s *Service) handleError(ctx context.Context, err error, feedID, idHash string) (bool, error) {
	if s.onError == constants.FallbackAllow {
		metrics.FallbackUsageTotal.WithLabelValues("seen", "allow_on_error", "store_error").Inc()
		s.logger.WarnwCtx(ctx, "Seen store error, treating article as new (fallback: allow)",
			"feed_id", feedID,
			"id_hash", idHash,
			"error", err,
		)
		return true, nil
	}

	metrics.FallbackUsageTotal.WithLabelValues("seen", "deny_on_error", "store_error").Inc()
	return false, fmt.Errorf("seen store error for article %s of feed %s: %w", idHash, feedID, err)
}

// FilterNew returns the articles whose identities were not seen before, in
// input order. Articles without an identity hash are dropped. The first
// error aborts the batch.
func FilterNew(ctx context.Context, store Store, feedID string, articles []*article.Article) ([]*article.Article, error) {
	ctx, span := tracing.Start(ctx, "seen.filter_new", tracing.FeedID(feedID))
	defer span.End()

	out := make([]*article.Article, 0, len(articles))
	for _, a := range articles {
		if a.IDHash == "" {
			continue
		}

		fresh, err := store.MarkSeen(ctx, feedID, a.IDHash)
		if err != nil {
			return nil, err
		}
		if fresh {
			out = append(out, a)
		}
	}
	return out, nil
}

// RunSizeReporter publishes the number of remembered hashes until ctx is done.
func (s *Service) RunSizeReporter(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			size, err := s.repo.Count(ctx, constants.CacheKeyPrefixSeen)
			if err != nil {
				s.logger.DebugwCtx(ctx, "Failed to count seen entries", "error", err)
				continue
			}
			metrics.SetSeenCacheSize(size)
		case <-ctx.Done():
			return
		}
	}
}
