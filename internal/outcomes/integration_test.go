//go:build integration

package outcomes

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"monitorss/pkg/testinfra"
)

func TestStores_RecordAndList(t *testing.T) {
	stores := map[string]func(t *testing.T) Store{
		"postgres": func(t *testing.T) Store { return NewPostgresStore(testinfra.Postgres(t)) },
		"mongodb":  func(t *testing.T) Store { return NewMongoStore(testinfra.Mongo(t)) },
	}

	for name, newStore := range stores {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			store := newStore(t)
			now := time.Now().UTC().Truncate(time.Millisecond)

			rows := []*Outcome{
				{FeedID: "feed-1", DestinationID: "d-1", ArticleID: "a", ArticleIDHash: "ha", Status: StatusSent, Delivered: true, Timestamp: now.Add(-2 * time.Hour)},
				{FeedID: "feed-1", DestinationID: "d-1", ArticleID: "b", ArticleIDHash: "hb", Status: StatusFilteredOut, Comment: CommentBlockedByFilters, Timestamp: now.Add(-time.Minute)},
				{FeedID: "feed-1", DestinationID: "d-2", ArticleID: "c", ArticleIDHash: "hc", Status: StatusRejected, ErrorCode: ErrorCodeThirdPartyBadRequest, ResponseStatus: 400, Timestamp: now},
				{FeedID: "feed-2", DestinationID: "d-3", ArticleID: "d", ArticleIDHash: "hd", Status: StatusSent, Delivered: true, Timestamp: now},
			}
			for _, o := range rows {
				require.NoError(t, store.Record(ctx, o))
				assert.NotEmpty(t, o.ID)
			}

			got, err := store.ListByFeed(ctx, "feed-1", now.Add(-time.Hour))
			require.NoError(t, err)
			require.Len(t, got, 2)

			assert.Equal(t, "c", got[0].ArticleID)
			assert.Equal(t, StatusRejected, got[0].Status)
			assert.Equal(t, ErrorCodeThirdPartyBadRequest, got[0].ErrorCode)
			assert.Equal(t, 400, got[0].ResponseStatus)
			assert.False(t, got[0].Delivered)

			assert.Equal(t, "b", got[1].ArticleID)
			assert.Equal(t, CommentBlockedByFilters, got[1].Comment)
			assert.Empty(t, got[1].ErrorCode)

			got, err = store.ListByFeed(ctx, "feed-3", now.Add(-24*time.Hour))
			require.NoError(t, err)
			assert.Empty(t, got)
		})
	}
}
