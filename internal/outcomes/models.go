// Package outcomes stores the append-only record of delivery attempts.
package outcomes

import (
	"context"
	"time"
)

// Status is the delivery state of one article for one destination.
type Status string

const (
	StatusPendingDelivery         Status = "pending-delivery"
	StatusSent                    Status = "sent"
	StatusFailed                  Status = "failed"
	StatusRejected                Status = "rejected"
	StatusFilteredOut             Status = "filtered-out"
	StatusRateLimited             Status = "rate-limited"
	StatusMediumRateLimitedByUser Status = "medium-rate-limited-by-user"
)

// ErrorCode explains a failed or rejected outcome.
type ErrorCode string

const (
	ErrorCodeInternal               ErrorCode = "internal"
	ErrorCodeNoChannelOrWebhook     ErrorCode = "no-channel-or-webhook"
	ErrorCodeThirdPartyInternal     ErrorCode = "third-party-internal"
	ErrorCodeThirdPartyBadRequest   ErrorCode = "third-party-bad-request"
	ErrorCodeThirdPartyForbidden    ErrorCode = "third-party-forbidden"
	ErrorCodeThirdPartyNotFound     ErrorCode = "third-party-not-found"
	ErrorCodeArticleProcessingError ErrorCode = "article-processing-error"
)

// Comment recorded for articles that did not pass a destination's filters.
const CommentBlockedByFilters = "Blocked by filters"

// Outcome is one row of the delivery log.
type Outcome struct {
	ID             string    `json:"id" bson:"_id"`
	FeedID         string    `json:"feedId" bson:"feed_id"`
	DestinationID  string    `json:"destinationId" bson:"destination_id"`
	ArticleID      string    `json:"articleId" bson:"article_id"`
	ArticleIDHash  string    `json:"articleIdHash" bson:"article_id_hash"`
	Delivered      bool      `json:"delivered" bson:"delivered"`
	Status         Status    `json:"status" bson:"status"`
	ErrorCode      ErrorCode `json:"errorCode,omitempty" bson:"error_code,omitempty"`
	ResponseStatus int       `json:"responseStatus,omitempty" bson:"response_status,omitempty"`
	Comment        string    `json:"comment,omitempty" bson:"comment,omitempty"`
	Timestamp      time.Time `json:"timestamp" bson:"timestamp"`
}

// Store persists outcomes. Records are never updated or deleted.
type Store interface {
	Record(ctx context.Context, o *Outcome) error
	// ListByFeed returns the outcomes of feedID recorded at or after since,
	// newest first.
	ListByFeed(ctx context.Context, feedID string, since time.Time) ([]Outcome, error)
}
