package delivery

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"monitorss/internal/article"
	"monitorss/internal/config"
	"monitorss/internal/destination"
	"monitorss/internal/formatter"
	"monitorss/internal/logger"
	"monitorss/internal/outcomes"
	"monitorss/pkg/clock"
)

var epoch = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

type eventSink struct {
	mu     sync.Mutex
	events []Event
}

func (s *eventSink) Publish(_ context.Context, e Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, e)
	return nil
}

func (s *eventSink) all() []Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Event(nil), s.events...)
}

// scriptedDispatcher records message contents and answers with respond.
type scriptedDispatcher struct {
	mu      sync.Mutex
	calls   []string
	targets []Target
	respond func(call int, msg formatter.Message) Response
}

func (d *scriptedDispatcher) Dispatch(_ context.Context, target Target, msg formatter.Message) Response {
	d.mu.Lock()
	d.calls = append(d.calls, msg.Content)
	d.targets = append(d.targets, target)
	n := len(d.calls)
	d.mu.Unlock()

	if d.respond == nil {
		return Response{StatusCode: http.StatusOK, Body: `{"id":"1"}`}
	}
	return d.respond(n, msg)
}

func (d *scriptedDispatcher) contents() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]string(nil), d.calls...)
}

type harness struct {
	pipeline *Pipeline
	clock    *clock.Fake
	store    *outcomes.MemoryStore
	events   *eventSink
}

func newHarness(t *testing.T, cfg config.DeliveryConfig, d Dispatcher, dests ...*destination.Destination) *harness {
	t.Helper()

	h := &harness{
		clock:  clock.NewFake(epoch),
		store:  outcomes.NewMemoryStore(),
		events: &eventSink{},
	}
	cfg.Retry = config.RetryConfig{MaxAttempts: 1, InitialInterval: time.Millisecond}
	h.pipeline = NewPipeline(cfg, destination.NewMemoryDirectory(dests...), d, h.store, h.events, h.clock, logger.NopLogger())

	require.NoError(t, h.pipeline.Start(context.Background()))
	t.Cleanup(func() { _ = h.pipeline.Stop() })
	return h
}

func (h *harness) enqueue(t *testing.T, destID string, contents ...string) *Job {
	t.Helper()

	a := article.New(map[string]interface{}{})
	a.ID = "article-" + contents[0]
	a.IDHash = "hash-" + contents[0]

	msgs := make([]formatter.Message, 0, len(contents))
	for _, c := range contents {
		msgs = append(msgs, formatter.Message{Content: c})
	}
	job, err := h.pipeline.Enqueue(context.Background(), destID, a, msgs)
	require.NoError(t, err)
	return job
}

// tick fires one lane tick once the expected tickers are running.
func (h *harness) tick(t *testing.T, tickers int, d time.Duration) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, h.clock.BlockUntilTickers(ctx, tickers))
	h.clock.Advance(d)
}

func (h *harness) waitIdle(t *testing.T, destID string) {
	t.Helper()
	h.pipeline.mu.Lock()
	l := h.pipeline.lanes[destID]
	h.pipeline.mu.Unlock()
	require.NotNil(t, l)
	require.Eventually(t, func() bool { return !l.inFlight.Load() }, time.Second, time.Millisecond)
}

func (h *harness) outcomes(t *testing.T, feedID string) []outcomes.Outcome {
	t.Helper()
	out, err := h.pipeline.Outcomes(context.Background(), feedID, time.Hour)
	require.NoError(t, err)
	return out
}

func channelDest(id string, rate float64) *destination.Destination {
	return &destination.Destination{ID: id, FeedID: "feed-1", ChannelID: "chan-" + id, DequeueRate: rate}
}

func TestPipeline_HTTPClassification(t *testing.T) {
	tests := []struct {
		name          string
		status        int
		body          string
		wantOutcome   bool
		wantStatus    outcomes.Status
		wantCode      outcomes.ErrorCode
		wantComment   string
		wantDelivered bool
		wantEvent     EventType
	}{
		{
			name:          "success is delivered",
			status:        http.StatusOK,
			body:          `{"id":"m1"}`,
			wantOutcome:   true,
			wantStatus:    outcomes.StatusSent,
			wantDelivered: true,
		},
		{
			name:        "bad request records the body and publishes badFormat",
			status:      http.StatusBadRequest,
			body:        `{"message":"Invalid Form Body","code":50035}`,
			wantOutcome: true,
			wantStatus:  outcomes.StatusRejected,
			wantCode:    outcomes.ErrorCodeThirdPartyBadRequest,
			wantComment: `{"message":"Invalid Form Body","code":50035}`,
			wantEvent:   EventBadFormat,
		},
		{
			name:        "forbidden publishes missingPermissions",
			status:      http.StatusForbidden,
			body:        `{"message":"Missing Permissions"}`,
			wantOutcome: true,
			wantStatus:  outcomes.StatusRejected,
			wantCode:    outcomes.ErrorCodeThirdPartyForbidden,
			wantEvent:   EventMissingPermissions,
		},
		{
			name:        "unauthorized is treated as forbidden",
			status:      http.StatusUnauthorized,
			wantOutcome: true,
			wantStatus:  outcomes.StatusRejected,
			wantCode:    outcomes.ErrorCodeThirdPartyForbidden,
			wantEvent:   EventMissingPermissions,
		},
		{
			name:        "not found publishes notFound",
			status:      http.StatusNotFound,
			wantOutcome: true,
			wantStatus:  outcomes.StatusRejected,
			wantCode:    outcomes.ErrorCodeThirdPartyNotFound,
			wantEvent:   EventNotFound,
		},
		{
			name:        "too many requests is dropped without an outcome",
			status:      http.StatusTooManyRequests,
			wantOutcome: false,
		},
		{
			name:        "server error fails after the last attempt",
			status:      http.StatusBadGateway,
			body:        "upstream",
			wantOutcome: true,
			wantStatus:  outcomes.StatusFailed,
			wantCode:    outcomes.ErrorCodeThirdPartyInternal,
			wantComment: "upstream",
		},
		{
			name:        "unexpected status is internal",
			status:      http.StatusMultipleChoices,
			wantOutcome: true,
			wantStatus:  outcomes.StatusFailed,
			wantCode:    outcomes.ErrorCodeInternal,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var (
				mu   sync.Mutex
				hits int
				path string
				auth string
			)
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				mu.Lock()
				hits++
				path, auth = r.URL.Path, r.Header.Get("Authorization")
				mu.Unlock()

				w.WriteHeader(tt.status)
				_, _ = io.WriteString(w, tt.body)
			}))
			defer srv.Close()

			cfg := config.DeliveryConfig{APIBaseURL: srv.URL, BotToken: "token", DequeueRate: 1, MaxAttempts: 1}
			h := newHarness(t, cfg, NewHTTPDispatcher(cfg), channelDest("d1", 0))

			h.enqueue(t, "d1", "hello")
			assert.Equal(t, 1, h.pipeline.QueueDepth("d1").Total())

			h.tick(t, 1, time.Second)
			require.Eventually(t, func() bool {
				mu.Lock()
				defer mu.Unlock()
				return hits == 1
			}, time.Second, time.Millisecond)
			h.waitIdle(t, "d1")

			mu.Lock()
			assert.Equal(t, "/channels/chan-d1/messages", path)
			assert.Equal(t, "Bot token", auth)
			mu.Unlock()

			assert.Equal(t, 0, h.pipeline.QueueDepth("d1").Total())

			got := h.outcomes(t, "feed-1")
			if !tt.wantOutcome {
				assert.Empty(t, got)
				assert.Empty(t, h.events.all())
				return
			}

			require.Len(t, got, 1)
			assert.Equal(t, tt.wantStatus, got[0].Status)
			assert.Equal(t, tt.wantCode, got[0].ErrorCode)
			assert.Equal(t, tt.wantDelivered, got[0].Delivered)
			assert.Equal(t, tt.status, got[0].ResponseStatus)
			assert.Equal(t, "article-hello", got[0].ArticleID)
			assert.Equal(t, "hash-hello", got[0].ArticleIDHash)
			if tt.wantComment != "" {
				assert.Equal(t, tt.wantComment, got[0].Comment)
			}

			events := h.events.all()
			if tt.wantEvent == "" {
				assert.Empty(t, events)
				return
			}
			require.Len(t, events, 1)
			assert.Equal(t, tt.wantEvent, events[0].Type)
			assert.Equal(t, "d1", events[0].DestinationID)
			assert.Equal(t, "feed-1", events[0].FeedID)
			assert.Equal(t, tt.body, events[0].ResponseBody)
		})
	}
}

func TestPipeline_NetworkErrorGoesToBacklogFirst(t *testing.T) {
	d := &scriptedDispatcher{respond: func(call int, _ formatter.Message) Response {
		if call == 1 {
			return Response{Err: errors.New("connection reset by peer")}
		}
		return Response{StatusCode: http.StatusOK}
	}}
	h := newHarness(t, config.DeliveryConfig{DequeueRate: 1}, d, channelDest("d1", 0))

	h.enqueue(t, "d1", "A")
	h.tick(t, 1, time.Second)
	require.Eventually(t, func() bool { return len(d.contents()) == 1 }, time.Second, time.Millisecond)
	h.waitIdle(t, "d1")

	assert.Equal(t, Depth{Backlog: 1}, h.pipeline.QueueDepth("d1"))
	assert.Empty(t, h.outcomes(t, "feed-1"), "backlog placement records nothing")

	h.enqueue(t, "d1", "B")
	assert.Equal(t, Depth{Pending: 1, Backlog: 1}, h.pipeline.QueueDepth("d1"))

	h.clock.Advance(time.Second)
	require.Eventually(t, func() bool { return len(d.contents()) == 2 }, time.Second, time.Millisecond)
	h.waitIdle(t, "d1")

	h.clock.Advance(time.Second)
	require.Eventually(t, func() bool { return len(d.contents()) == 3 }, time.Second, time.Millisecond)
	h.waitIdle(t, "d1")

	assert.Equal(t, []string{"A", "A", "B"}, d.contents())

	got := h.outcomes(t, "feed-1")
	require.Len(t, got, 2)
	for _, o := range got {
		assert.Equal(t, outcomes.StatusSent, o.Status)
	}
}

func TestPipeline_ServerErrorRetriesUntilMaxAttempts(t *testing.T) {
	d := &scriptedDispatcher{respond: func(int, formatter.Message) Response {
		return Response{StatusCode: http.StatusInternalServerError, Body: "oops"}
	}}
	h := newHarness(t, config.DeliveryConfig{DequeueRate: 1, MaxAttempts: 2}, d, channelDest("d1", 0))

	h.enqueue(t, "d1", "A")
	h.tick(t, 1, time.Second)
	require.Eventually(t, func() bool { return len(d.contents()) == 1 }, time.Second, time.Millisecond)
	h.waitIdle(t, "d1")
	assert.Equal(t, Depth{Backlog: 1}, h.pipeline.QueueDepth("d1"))

	h.clock.Advance(time.Second)
	require.Eventually(t, func() bool { return len(h.outcomes(t, "feed-1")) == 1 }, time.Second, time.Millisecond)

	got := h.outcomes(t, "feed-1")
	assert.Equal(t, outcomes.StatusFailed, got[0].Status)
	assert.Equal(t, outcomes.ErrorCodeThirdPartyInternal, got[0].ErrorCode)
	assert.Equal(t, 0, h.pipeline.QueueDepth("d1").Total())
}

func TestPipeline_BatchPerTickIsFIFO(t *testing.T) {
	d := &scriptedDispatcher{}
	h := newHarness(t, config.DeliveryConfig{DequeueRate: 1}, d, channelDest("d1", 2))

	h.enqueue(t, "d1", "1")
	h.enqueue(t, "d1", "2")
	h.enqueue(t, "d1", "3")

	h.tick(t, 1, time.Second)
	require.Eventually(t, func() bool { return len(d.contents()) == 2 }, time.Second, time.Millisecond)
	h.waitIdle(t, "d1")

	assert.Equal(t, []string{"1", "2"}, d.contents())
	assert.Equal(t, Depth{Pending: 1}, h.pipeline.QueueDepth("d1"))
}

func TestPipeline_SlowRateSpacesJobs(t *testing.T) {
	d := &scriptedDispatcher{}
	h := newHarness(t, config.DeliveryConfig{}, d, channelDest("d1", 0.5))

	h.enqueue(t, "d1", "1")
	h.enqueue(t, "d1", "2")

	h.tick(t, 1, time.Second)
	assert.Never(t, func() bool { return len(d.contents()) > 0 }, 50*time.Millisecond, 5*time.Millisecond)

	h.clock.Advance(time.Second)
	require.Eventually(t, func() bool { return len(d.contents()) == 1 }, time.Second, time.Millisecond)
	h.waitIdle(t, "d1")
	assert.Equal(t, Depth{Pending: 1}, h.pipeline.QueueDepth("d1"))
}

func TestPipeline_AllowanceDropsJobsForCycle(t *testing.T) {
	d := &scriptedDispatcher{}
	cfg := config.DeliveryConfig{DequeueRate: 5, Allowance: 1, AllowanceWindow: time.Minute}
	h := newHarness(t, cfg, d, channelDest("d1", 0))

	h.enqueue(t, "d1", "1")
	h.enqueue(t, "d1", "2")
	h.enqueue(t, "d1", "3")

	// Lane ticker plus the allowance timer.
	h.tick(t, 2, time.Second)
	require.Eventually(t, func() bool { return len(d.contents()) == 1 }, time.Second, time.Millisecond)
	h.waitIdle(t, "d1")
	assert.Equal(t, Depth{}, h.pipeline.QueueDepth("d1"))
	assert.Len(t, h.outcomes(t, "feed-1"), 1, "dropped jobs record no outcome")
	assert.Empty(t, h.events.all())

	h.clock.Advance(time.Minute)
	assert.Never(t, func() bool {
		h.clock.Advance(time.Second)
		return len(d.contents()) > 1
	}, 100*time.Millisecond, 5*time.Millisecond)
	assert.Equal(t, []string{"1"}, d.contents())
	assert.Len(t, h.outcomes(t, "feed-1"), 1)
}

func TestPipeline_MultiPartForumThread(t *testing.T) {
	d := &scriptedDispatcher{respond: func(call int, _ formatter.Message) Response {
		if call == 1 {
			return Response{StatusCode: http.StatusCreated, Body: `{"id":"thread-9"}`}
		}
		return Response{StatusCode: http.StatusOK, Body: `{"id":"m2","channel_id":"thread-9"}`}
	}}
	dest := channelDest("d1", 0)
	dest.Settings.Template.Forum = true
	h := newHarness(t, config.DeliveryConfig{DequeueRate: 1}, d, dest)

	h.enqueue(t, "d1", "part one", "part two")
	h.tick(t, 1, time.Second)
	require.Eventually(t, func() bool { return len(h.outcomes(t, "feed-1")) == 1 }, time.Second, time.Millisecond)

	assert.Equal(t, []string{"part one", "part two"}, d.contents())
	d.mu.Lock()
	assert.Empty(t, d.targets[0].ThreadID)
	assert.Equal(t, "thread-9", d.targets[1].ThreadID)
	d.mu.Unlock()
	assert.True(t, h.outcomes(t, "feed-1")[0].Delivered)
}

func TestPipeline_EnqueueWithoutEndpoint(t *testing.T) {
	dest := &destination.Destination{ID: "d1", FeedID: "feed-1"}
	h := newHarness(t, config.DeliveryConfig{}, &scriptedDispatcher{}, dest)

	job := h.enqueue(t, "d1", "x")
	assert.Nil(t, job)

	got := h.outcomes(t, "feed-1")
	require.Len(t, got, 1)
	assert.Equal(t, outcomes.StatusFailed, got[0].Status)
	assert.Equal(t, outcomes.ErrorCodeNoChannelOrWebhook, got[0].ErrorCode)
	assert.Equal(t, 0, h.pipeline.QueueDepth("d1").Total())
}

func TestPipeline_EnqueueUnknownDestination(t *testing.T) {
	h := newHarness(t, config.DeliveryConfig{}, &scriptedDispatcher{})

	_, err := h.pipeline.Enqueue(context.Background(), "missing", article.New(nil), nil)
	assert.Error(t, err)
}

func TestPipeline_EnqueueAfterStop(t *testing.T) {
	h := newHarness(t, config.DeliveryConfig{}, &scriptedDispatcher{}, channelDest("d1", 0))
	require.NoError(t, h.pipeline.Stop())

	_, err := h.pipeline.Enqueue(context.Background(), "d1", article.New(nil), []formatter.Message{{Content: "x"}})
	assert.ErrorIs(t, err, ErrClosed)
}

func TestHTTPDispatcher_Endpoints(t *testing.T) {
	type request struct {
		path  string
		query string
		auth  string
		body  map[string]interface{}
	}

	var (
		mu   sync.Mutex
		reqs []request
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body map[string]interface{}
		_ = json.NewDecoder(r.Body).Decode(&body)

		mu.Lock()
		reqs = append(reqs, request{r.URL.Path, r.URL.RawQuery, r.Header.Get("Authorization"), body})
		mu.Unlock()
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	d := NewHTTPDispatcher(config.DeliveryConfig{APIBaseURL: srv.URL + "/", BotToken: "tok", GlobalRPS: 100})
	ctx := context.Background()
	msg := formatter.Message{Content: "hi", Username: "Bot Name", ThreadName: "Title"}

	d.Dispatch(ctx, Target{ChannelID: "c1"}, msg)
	d.Dispatch(ctx, Target{ChannelID: "c1", Forum: true}, msg)
	d.Dispatch(ctx, Target{ChannelID: "c1", Forum: true, ThreadID: "t1"}, msg)
	d.Dispatch(ctx, Target{Webhook: &destination.Webhook{ID: "w1", Token: "secret", ThreadID: "t2"}}, msg)
	d.Dispatch(ctx, Target{Webhook: &destination.Webhook{ID: "w1", Token: "secret"}, Forum: true}, msg)

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, reqs, 5)

	assert.Equal(t, "/channels/c1/messages", reqs[0].path)
	assert.Equal(t, "Bot tok", reqs[0].auth)
	assert.NotContains(t, reqs[0].body, "username")
	assert.NotContains(t, reqs[0].body, "thread_name")

	assert.Equal(t, "/channels/c1/threads", reqs[1].path)
	assert.Equal(t, "Title", reqs[1].body["name"])
	assert.Equal(t, "hi", reqs[1].body["message"].(map[string]interface{})["content"])

	assert.Equal(t, "/channels/t1/messages", reqs[2].path)

	assert.Equal(t, "/webhooks/w1/secret", reqs[3].path)
	assert.Equal(t, "thread_id=t2&wait=true", reqs[3].query)
	assert.Empty(t, reqs[3].auth)
	assert.Equal(t, "Bot Name", reqs[3].body["username"])
	assert.NotContains(t, reqs[3].body, "thread_name")

	assert.Equal(t, "wait=true", reqs[4].query)
	assert.Equal(t, "Title", reqs[4].body["thread_name"])
}

func TestHTTPDispatcher_NetworkError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	url := srv.URL
	srv.Close()

	resp := NewHTTPDispatcher(config.DeliveryConfig{APIBaseURL: url}).Dispatch(context.Background(), Target{ChannelID: "c"}, formatter.Message{})
	require.Error(t, resp.Err)
	assert.Zero(t, resp.StatusCode)
	assert.Equal(t, ResultBacklogged, Classify(resp, 1, 3).Result)
}
