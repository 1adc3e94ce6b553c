package article

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"monitorss/internal/logger"
)

func rawItems(items ...map[string]interface{}) []*Article {
	out := make([]*Article, 0, len(items))
	for _, item := range items {
		out = append(out, New(item))
	}
	return out
}

func TestCandidateIDTypes(t *testing.T) {
	assert.Equal(t, []string{
		"guid", "pubdate", "title",
		"guid,pubdate", "guid,title", "pubdate,title",
	}, CandidateIDTypes())
}

func TestIDResolver_IDType(t *testing.T) {
	pub1 := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	pub2 := time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name  string
		items []map[string]interface{}
		want  string
	}{
		{
			name: "unique guids",
			items: []map[string]interface{}{
				{"guid": "a", "title": "t"},
				{"guid": "b", "title": "t"},
			},
			want: "guid",
		},
		{
			name: "duplicate guid falls back to pubdate",
			items: []map[string]interface{}{
				{"guid": "A", "pubdate": pub1},
				{"guid": "A", "pubdate": pub2},
			},
			want: "pubdate",
		},
		{
			name: "duplicate guid and missing pubdate falls back to title",
			items: []map[string]interface{}{
				{"guid": "A", "title": "first"},
				{"guid": "A", "title": "second"},
			},
			want: "title",
		},
		{
			name: "only a merged type stays unique",
			items: []map[string]interface{}{
				{"guid": "A", "pubdate": pub1, "title": "x"},
				{"guid": "A", "pubdate": pub2, "title": "x"},
				{"guid": "B", "pubdate": pub1, "title": "x"},
			},
			want: "guid,pubdate",
		},
		{
			name: "all invalidated uses the last invalidated type",
			items: []map[string]interface{}{
				{},
			},
			want: "pubdate,title",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := NewIDResolver()
			for _, item := range tt.items {
				r.Record(item)
			}
			assert.Equal(t, tt.want, r.IDType())
		})
	}
}

func TestIDTypeValue(t *testing.T) {
	pub := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	raw := map[string]interface{}{"guid": "g", "pubdate": pub, "title": "T"}

	assert.Equal(t, "g", IDTypeValue(raw, "guid"))
	assert.Equal(t, "g2024-01-01T12:00:00Z", IDTypeValue(raw, "guid,pubdate"))
	assert.Equal(t, "T", IDTypeValue(map[string]interface{}{"title": "T"}, "guid,title"))
}

func TestResolveIdentities(t *testing.T) {
	articles := rawItems(
		map[string]interface{}{"guid": "A", "title": "first"},
		map[string]interface{}{"guid": "A", "title": "second"},
	)

	got := ResolveIdentities(context.Background(), articles, logger.NopLogger())

	require.Len(t, got, 2)
	assert.Equal(t, "first", got[0].ID)
	assert.Equal(t, "second", got[1].ID)
	assert.Equal(t, HashID("first"), got[0].IDHash)
	assert.Len(t, got[0].IDHash, 40)
	assert.NotEqual(t, got[0].IDHash, got[1].IDHash)
}

func TestResolveIdentities_EmptyBatch(t *testing.T) {
	assert.Empty(t, ResolveIdentities(context.Background(), nil, logger.NopLogger()))
}

func TestResolveIdentities_DuplicateHashesAreLogged(t *testing.T) {
	core, logs := observer.New(zap.WarnLevel)
	articles := rawItems(
		map[string]interface{}{"guid": "same", "title": "same"},
		map[string]interface{}{"guid": "same", "title": "same"},
	)

	got := ResolveIdentities(context.Background(), articles, logger.NewObserved(core))

	require.Len(t, got, 2)
	assert.Equal(t, got[0].IDHash, got[1].IDHash)
	assert.Equal(t, 1, logs.FilterMessage("Feed has duplicate article id hash").Len())
}

func TestResolveIdentities_WritesFlattenedKeys(t *testing.T) {
	a := New(map[string]interface{}{"guid": "x"})
	a.Flattened = map[string]string{"title": "t"}

	ResolveIdentities(context.Background(), []*Article{a}, logger.NopLogger())

	assert.Equal(t, "x", a.Flattened[KeyID])
	assert.Equal(t, HashID("x"), a.Flattened[KeyIDHash])
}

func TestHashID(t *testing.T) {
	assert.Equal(t, "da39a3ee5e6b4b0d3255bfef95601890afd80709", HashID(""))
}
