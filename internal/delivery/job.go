// Package delivery queues rendered messages per destination and sends them to
// the chat API at each destination's dequeue rate.
package delivery

import (
	"time"

	"monitorss/internal/formatter"
)

// Job is one article bound for one destination. Messages are sent in order;
// Sent counts the parts already accepted so a retried job resumes where it
// stopped.
type Job struct {
	ID            string              `json:"id"`
	FeedID        string              `json:"feedId"`
	DestinationID string              `json:"destinationId"`
	ArticleID     string              `json:"articleId"`
	ArticleIDHash string              `json:"articleIdHash"`
	Messages      []formatter.Message `json:"messages"`
	Sent          int                 `json:"sent"`
	Attempts      int                 `json:"attempts"`
	EnqueuedAt    time.Time           `json:"enqueuedAt"`

	// ThreadID is the forum thread created by the first part.
	ThreadID string `json:"threadId,omitempty"`
}

func (j *Job) remaining() []formatter.Message {
	if j.Sent >= len(j.Messages) {
		return nil
	}
	return j.Messages[j.Sent:]
}
