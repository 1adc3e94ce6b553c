package models

import (
	"encoding/json"
	"fmt"
	"time"
)

// Envelope types carried on the broker.
const (
	TypeFeedArticles     = "feed.articles"
	TypeDestinationEvent = "destination.event"
	TypeConfigUpdate     = "config.update"
)

type MessageEnvelope struct {
	ID        string          `json:"id"`
	Type      string          `json:"type"`
	Source    string          `json:"source"`
	Timestamp time.Time       `json:"timestamp"`
	Payload   json.RawMessage `json:"payload"`  // Business data, shape given by Type
	Metadata  Metadata        `json:"metadata"` // Pipeline metadata (trace_id, dead letter info)
}

type Metadata struct {
	TraceID string   `json:"trace_id,omitempty"`
	DLQ     *DLQInfo `json:"dlq,omitempty"`
}

// DLQInfo is set on envelopes moved to the dead letter topic.
type DLQInfo struct {
	Reason      string    `json:"reason"`
	SourceTopic string    `json:"source_topic"`
	Timestamp   time.Time `json:"timestamp"`
}

// DecodePayload unmarshals the payload into v.
func (msg *MessageEnvelope) DecodePayload(v interface{}) error {
	if len(msg.Payload) == 0 {
		return &ValidationError{Field: "payload", Message: "message payload is empty"}
	}
	if err := json.Unmarshal(msg.Payload, v); err != nil {
		return fmt.Errorf("failed to decode %s payload: %w", msg.Type, err)
	}
	return nil
}

// FeedArticlesJob asks the feed service to run one cycle. Either Document
// (the fetched feed body) or Items (already parsed items) is set.
type FeedArticlesJob struct {
	FeedID   string                   `json:"feed_id"`
	FeedURL  string                   `json:"feed_url,omitempty"`
	Document string                   `json:"document,omitempty"`
	Items    []map[string]interface{} `json:"items,omitempty"`
}
