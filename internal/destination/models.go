// Package destination resolves where and how articles of a feed are delivered.
package destination

import (
	"context"

	"monitorss/internal/filters"
	"monitorss/internal/formatter"
	"monitorss/internal/placeholders"
	apperrors "monitorss/pkg/errors"
)

// Webhook is a webhook endpoint. ThreadID targets an existing thread.
type Webhook struct {
	ID       string `json:"id" bson:"id"`
	Token    string `json:"token" bson:"token"`
	ThreadID string `json:"threadId,omitempty" bson:"thread_id,omitempty"`
}

// Destination is one channel or webhook subscribed to a feed.
type Destination struct {
	ID        string   `json:"id" bson:"_id"`
	FeedID    string   `json:"feedId" bson:"feed_id"`
	ChannelID string   `json:"channelId,omitempty" bson:"channel_id,omitempty"`
	Webhook   *Webhook `json:"webhook,omitempty" bson:"webhook,omitempty"`
	Disabled  bool     `json:"disabled,omitempty" bson:"disabled,omitempty"`

	// DequeueRate is jobs per second. Zero uses the service default.
	DequeueRate float64 `json:"dequeueRate,omitempty" bson:"dequeue_rate,omitempty"`
	Supporter   bool    `json:"supporter,omitempty" bson:"supporter,omitempty"`

	Settings Settings `json:"settings" bson:"-"`
}

// Settings are the user-editable delivery options. They are stored as one
// JSON document.
type Settings struct {
	Template           formatter.MessageTemplate        `json:"template"`
	Filters            filters.Predicate                `json:"filters"`
	CustomPlaceholders []placeholders.CustomPlaceholder `json:"customPlaceholders,omitempty"`
}

// HasEndpoint reports whether d can receive messages.
func (d *Destination) HasEndpoint() bool {
	return d.ChannelID != "" || (d.Webhook != nil && d.Webhook.ID != "" && d.Webhook.Token != "")
}

// Validate rejects configuration that cannot be evaluated: a destination
// with both a channel and a webhook, an invalid filter tree or an invalid
// custom placeholder. A destination with no endpoint at all is valid; its
// deliveries fail with no-channel-or-webhook.
func (d *Destination) Validate() error {
	if d.ChannelID != "" && d.Webhook != nil {
		return apperrors.ErrValidation.
			WithDetail("destination_id", d.ID).
			WithDetail("reason", "channel and webhook are mutually exclusive")
	}
	if err := filters.Validate(d.Settings.Filters.Expression); err != nil {
		return apperrors.ErrValidation.WithCause(err).
			WithDetail("destination_id", d.ID).
			WithDetail("field", "settings.filters")
	}
	if err := placeholders.Validate(d.Settings.CustomPlaceholders); err != nil {
		return apperrors.ErrValidation.WithCause(err).
			WithDetail("destination_id", d.ID).
			WithDetail("field", "settings.customPlaceholders")
	}
	return nil
}

// Rejection is a loaded destination that failed Validate.
type Rejection struct {
	ID  string
	Err error
}

// Valid splits dests into those that pass Validate and those that do not.
func Valid(dests []*Destination) ([]*Destination, []Rejection) {
	out := make([]*Destination, 0, len(dests))
	var rejected []Rejection
	for _, dest := range dests {
		if err := dest.Validate(); err != nil {
			rejected = append(rejected, Rejection{ID: dest.ID, Err: err})
			continue
		}
		out = append(out, dest)
	}
	return out, rejected
}

// Directory looks up destinations.
type Directory interface {
	Get(ctx context.Context, id string) (*Destination, error)
	ListByFeed(ctx context.Context, feedID string) ([]*Destination, error)
}

// Source loads every destination at once. Backends implement it so a Cache
// can serve lookups from memory.
type Source interface {
	LoadAll(ctx context.Context) ([]*Destination, error)
}
