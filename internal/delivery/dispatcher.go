package delivery

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"golang.org/x/time/rate"

	"monitorss/internal/config"
	"monitorss/internal/constants"
	"monitorss/internal/destination"
	"monitorss/internal/formatter"
)

const maxResponseBody = 64 << 10

// dispatchTimeout bounds one job when no request timeout is configured.
const dispatchTimeout = 30 * time.Second

// Response is the raw result of one API call. Err is set when no HTTP
// response was received.
type Response struct {
	StatusCode int
	Body       string
	Err        error
}

// Target identifies where a message goes.
type Target struct {
	ChannelID string
	Webhook   *destination.Webhook

	// Forum creates a thread with the message's ThreadName. ThreadID posts
	// into a thread created earlier.
	Forum    bool
	ThreadID string
}

// Dispatcher sends one message.
type Dispatcher interface {
	Dispatch(ctx context.Context, target Target, msg formatter.Message) Response
}

// HTTPDispatcher posts messages to a Discord-compatible REST API.
type HTTPDispatcher struct {
	client  *http.Client
	baseURL string
	token   string
	limiter *rate.Limiter
}

func NewHTTPDispatcher(cfg config.DeliveryConfig) *HTTPDispatcher {
	timeout := cfg.RequestTimeout
	if timeout <= 0 {
		timeout = constants.DefaultHTTPTimeout
	}

	var limiter *rate.Limiter
	if cfg.GlobalRPS > 0 {
		burst := cfg.GlobalBurst
		if burst <= 0 {
			burst = 1
		}
		limiter = rate.NewLimiter(rate.Limit(cfg.GlobalRPS), burst)
	}

	return &HTTPDispatcher{
		client: &http.Client{
			Timeout:   timeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
		baseURL: strings.TrimRight(cfg.APIBaseURL, "/"),
		token:   cfg.BotToken,
		limiter: limiter,
	}
}

func (d *HTTPDispatcher) Dispatch(ctx context.Context, target Target, msg formatter.Message) Response {
	if d.limiter != nil {
		if err := d.limiter.Wait(ctx); err != nil {
			return Response{Err: fmt.Errorf("rate limiter: %w", err)}
		}
	}

	endpoint, body, useBotAuth, err := d.request(target, msg)
	if err != nil {
		return Response{Err: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return Response{Err: fmt.Errorf("failed to create request: %w", err)}
	}
	req.Header.Set("Content-Type", "application/json")
	if useBotAuth && d.token != "" {
		req.Header.Set("Authorization", "Bot "+d.token)
	}

	resp, err := d.client.Do(req)
	if err != nil {
		return Response{Err: fmt.Errorf("api request failed: %w", err)}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBody))
	if err != nil {
		return Response{StatusCode: resp.StatusCode, Err: fmt.Errorf("failed to read response: %w", err)}
	}
	return Response{StatusCode: resp.StatusCode, Body: string(raw)}
}

func (d *HTTPDispatcher) request(target Target, msg formatter.Message) (string, []byte, bool, error) {
	if target.Webhook != nil {
		q := url.Values{}
		q.Set("wait", "true")
		threadID := target.Webhook.ThreadID
		if target.ThreadID != "" {
			threadID = target.ThreadID
			msg.ThreadName = ""
		}
		if threadID != "" {
			q.Set("thread_id", threadID)
		}
		if !target.Forum {
			msg.ThreadName = ""
		}

		body, err := json.Marshal(msg)
		if err != nil {
			return "", nil, false, fmt.Errorf("failed to encode message: %w", err)
		}
		endpoint := fmt.Sprintf("%s/webhooks/%s/%s?%s", d.baseURL,
			url.PathEscape(target.Webhook.ID), url.PathEscape(target.Webhook.Token), q.Encode())
		return endpoint, body, false, nil
	}

	// Bot messages cannot override identity.
	msg.Username, msg.AvatarURL = "", ""
	threadName := msg.ThreadName
	msg.ThreadName = ""

	if target.ThreadID != "" {
		body, err := json.Marshal(msg)
		if err != nil {
			return "", nil, false, fmt.Errorf("failed to encode message: %w", err)
		}
		return fmt.Sprintf("%s/channels/%s/messages", d.baseURL, url.PathEscape(target.ThreadID)), body, true, nil
	}

	if target.Forum {
		body, err := json.Marshal(struct {
			Name    string            `json:"name"`
			Message formatter.Message `json:"message"`
		}{threadName, msg})
		if err != nil {
			return "", nil, false, fmt.Errorf("failed to encode message: %w", err)
		}
		return fmt.Sprintf("%s/channels/%s/threads", d.baseURL, url.PathEscape(target.ChannelID)), body, true, nil
	}

	body, err := json.Marshal(msg)
	if err != nil {
		return "", nil, false, fmt.Errorf("failed to encode message: %w", err)
	}
	return fmt.Sprintf("%s/channels/%s/messages", d.baseURL, url.PathEscape(target.ChannelID)), body, true, nil
}

// threadIDFrom extracts the created thread (or the message's channel) from a
// successful forum response.
func threadIDFrom(body string) string {
	var payload struct {
		ID        string `json:"id"`
		ChannelID string `json:"channel_id"`
	}
	if err := json.Unmarshal([]byte(body), &payload); err != nil {
		return ""
	}
	if payload.ChannelID != "" {
		return payload.ChannelID
	}
	return payload.ID
}
