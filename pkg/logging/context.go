package logging

import (
	"context"
)

type contextKey string

const (
	TraceIDKey       contextKey = "trace_id"
	FeedIDKey        contextKey = "feed_id"
	ArticleIDKey     contextKey = "article_id"
	DestinationIDKey contextKey = "destination_id"
	ServiceNameKey   contextKey = "service_name"
)

func WithTraceID(ctx context.Context, traceID string) context.Context {
	return context.WithValue(ctx, TraceIDKey, traceID)
}

func WithFeedID(ctx context.Context, feedID string) context.Context {
	return context.WithValue(ctx, FeedIDKey, feedID)
}

func WithArticleID(ctx context.Context, articleID string) context.Context {
	return context.WithValue(ctx, ArticleIDKey, articleID)
}

func WithDestinationID(ctx context.Context, destinationID string) context.Context {
	return context.WithValue(ctx, DestinationIDKey, destinationID)
}

func WithServiceName(ctx context.Context, serviceName string) context.Context {
	return context.WithValue(ctx, ServiceNameKey, serviceName)
}

func GetTraceID(ctx context.Context) string {
	return stringValue(ctx, TraceIDKey)
}

func GetFeedID(ctx context.Context) string {
	return stringValue(ctx, FeedIDKey)
}

func GetArticleID(ctx context.Context) string {
	return stringValue(ctx, ArticleIDKey)
}

func GetDestinationID(ctx context.Context) string {
	return stringValue(ctx, DestinationIDKey)
}

func GetServiceName(ctx context.Context) string {
	return stringValue(ctx, ServiceNameKey)
}

func stringValue(ctx context.Context, key contextKey) string {
	if ctx == nil {
		return ""
	}
	if v, ok := ctx.Value(key).(string); ok {
		return v
	}
	return ""
}

// GetLogFields returns the key/value pairs stored in ctx, in a stable order.
func GetLogFields(ctx context.Context) []interface{} {
	fields := make([]interface{}, 0, 10)

	for _, key := range []contextKey{TraceIDKey, FeedIDKey, ArticleIDKey, DestinationIDKey, ServiceNameKey} {
		if v := stringValue(ctx, key); v != "" {
			fields = append(fields, string(key), v)
		}
	}

	return fields
}
