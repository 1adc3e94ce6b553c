package processor

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"monitorss/internal/destination"
	"monitorss/internal/feed"
	"monitorss/internal/formatter"
	"monitorss/pkg/models"
	"monitorss/pkg/retry"
)

const rssDocument = `<?xml version="1.0"?>
<rss version="2.0"><channel><title>Example</title>
<item><guid>a</guid><title>First</title><link>https://example.com/a</link></item>
<item><guid>b</guid><title>Second</title><link>https://example.com/b</link></item>
</channel></rss>`

func jobEnvelope(t *testing.T, job models.FeedArticlesJob) models.MessageEnvelope {
	t.Helper()
	env, err := models.NewMessageEnvelopeBuilder(models.TypeFeedArticles).WithPayload(job).Build()
	require.NoError(t, err)
	return *env
}

func isFatal(err error) bool {
	var fatal retry.FatalError
	return errors.As(err, &fatal)
}

func TestFeedJobHandler(t *testing.T) {
	dest := &destination.Destination{
		ID:        "d",
		FeedID:    "feed-1",
		ChannelID: "c",
		Settings:  destination.Settings{Template: formatter.MessageTemplate{Content: "{{title}}"}},
	}

	t.Run("document", func(t *testing.T) {
		enq := &recordingEnqueuer{}
		p, _ := newProcessor(t, enq, dest)
		handler := p.FeedJobHandler(feed.NewParser())

		err := handler(context.Background(), jobEnvelope(t, models.FeedArticlesJob{FeedID: "feed-1", Document: rssDocument}))
		require.NoError(t, err)
		require.Len(t, enq.jobs, 2)
		assert.Equal(t, "First", enq.jobs[0].messages[0].Content)
	})

	t.Run("items", func(t *testing.T) {
		enq := &recordingEnqueuer{}
		p, _ := newProcessor(t, enq, dest)
		handler := p.FeedJobHandler(feed.NewParser())

		err := handler(context.Background(), jobEnvelope(t, models.FeedArticlesJob{
			FeedID: "feed-1",
			Items:  []map[string]interface{}{{"guid": "x", "title": "Static"}},
		}))
		require.NoError(t, err)
		require.Len(t, enq.jobs, 1)
		assert.Equal(t, "Static", enq.jobs[0].messages[0].Content)
	})

	t.Run("other type ignored", func(t *testing.T) {
		enq := &recordingEnqueuer{}
		p, _ := newProcessor(t, enq, dest)
		env := jobEnvelope(t, models.FeedArticlesJob{FeedID: "feed-1", Document: rssDocument})
		env.Type = models.TypeConfigUpdate

		require.NoError(t, p.FeedJobHandler(feed.NewParser())(context.Background(), env))
		assert.Empty(t, enq.jobs)
	})
}

func TestFeedJobHandler_FatalErrors(t *testing.T) {
	tests := []struct {
		name string
		job  models.FeedArticlesJob
	}{
		{name: "missing feed id", job: models.FeedArticlesJob{Document: rssDocument}},
		{name: "missing content", job: models.FeedArticlesJob{FeedID: "feed-1"}},
		{name: "not a feed", job: models.FeedArticlesJob{FeedID: "feed-1", Document: "hello"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, _ := newProcessor(t, &recordingEnqueuer{})
			err := p.FeedJobHandler(feed.NewParser())(context.Background(), jobEnvelope(t, tt.job))
			require.Error(t, err)
			assert.True(t, isFatal(err))
		})
	}
}
