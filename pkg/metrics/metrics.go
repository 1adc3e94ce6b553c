package metrics

import (
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	ArticlesProcessedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "feed_articles_processed_total",
			Help: "Total number of articles processed by the feed pipeline (count)",
		},
		[]string{"status"},
	)

	FeedCycleDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "feed_cycle_duration_ms",
			Help:    "Duration of one feed processing cycle in milliseconds",
			Buckets: []float64{1, 5, 10, 25, 50, 100, 250, 500, 1000, 2500, 5000},
		},
		[]string{"status"},
	)

	FilterEvaluationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "filter_evaluations_total",
			Help: "Total number of destination filter evaluations (count)",
		},
		[]string{"status"},
	)

	CustomPlaceholderErrorsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "custom_placeholder_errors_total",
			Help: "Total number of custom placeholder steps that failed to evaluate (count)",
		},
		[]string{"step_type"},
	)

	SeenChecksTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "seen_checks_total",
			Help: "Total number of seen-article store checks (count)",
		},
		[]string{"status"},
	)

	SeenCheckDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "seen_check_duration_ms",
			Help:    "Duration of seen-article store checks in milliseconds",
			Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 25, 50, 100},
		},
		[]string{"status"},
	)

	SeenCacheSize = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "seen_cache_size",
			Help: "Number of article hashes currently remembered (count)",
		},
	)

	ActiveDestinations = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "feed_active_destinations",
			Help: "Number of destinations currently loaded (count)",
		},
	)

	DeliveriesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "delivery_attempts_total",
			Help: "Total number of delivery attempts by classified result (count)",
		},
		[]string{"result"},
	)

	DispatchDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "delivery_dispatch_duration_ms",
			Help:    "Duration of delivery HTTP requests in milliseconds",
			Buckets: []float64{10, 25, 50, 100, 250, 500, 1000, 2500, 5000, 10000},
		},
		[]string{"result"},
	)

	DeliveryQueueDepth = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "delivery_queue_depth",
			Help: "Number of jobs waiting in the delivery queue (count)",
		},
		[]string{"queue"},
	)

	AllowanceExhaustedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "delivery_allowance_exhausted_total",
			Help: "Total number of jobs dropped for a cycle because their destination ran out of allowance (count)",
		},
	)

	DeliveryEventsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "delivery_events_total",
			Help: "Total number of delivery events published (count)",
		},
		[]string{"type"},
	)

	RetryAttemptsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "retry_attempts_total",
			Help: "Total number of retry attempts (count)",
		},
		[]string{"service", "topic"},
	)

	DLQMessagesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dlq_messages_total",
			Help: "Total number of messages sent to DLQ (count)",
		},
		[]string{"service", "topic", "reason"},
	)

	CircuitBreakerState = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "circuit_breaker_state",
			Help: "Circuit breaker state (0=closed, 1=half-open, 2=open) (state code)",
		},
		[]string{"name"},
	)

	CircuitBreakerRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "circuit_breaker_requests_total",
			Help: "Total number of requests through circuit breaker (count)",
		},
		[]string{"name", "state"},
	)

	CircuitBreakerFailures = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "circuit_breaker_failures_total",
			Help: "Total number of failures through circuit breaker (count)",
		},
		[]string{"name"},
	)

	HTTPRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of API requests (count)",
		},
		[]string{"method", "route", "status"},
	)

	HTTPRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_ms",
			Help:    "Duration of API requests in milliseconds",
			Buckets: []float64{1, 5, 10, 25, 50, 100, 250, 500, 1000},
		},
		[]string{"method", "route"},
	)

	RateLimitRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rate_limit_requests_total",
			Help: "Total number of requests checked against rate limit (count)",
		},
		[]string{"status"},
	)

	FallbackUsageTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fallback_usage_total",
			Help: "Total number of times fallback strategies were used (count)",
		},
		[]string{"service", "strategy", "reason"},
	)

	KafkaMessagesReadTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "kafka_messages_read_total",
			Help: "Total number of messages read from Kafka (count)",
		},
		[]string{"service", "topic"},
	)

	KafkaMessagesWrittenTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "kafka_messages_written_total",
			Help: "Total number of messages written to Kafka (count)",
		},
		[]string{"service", "topic"},
	)

	KafkaMessageSizeBytes = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "kafka_message_size_bytes",
			Help:    "Size of Kafka messages in bytes",
			Buckets: []float64{100, 500, 1000, 5000, 10000, 50000, 100000, 500000},
		},
		[]string{"service", "topic", "direction"},
	)

	KafkaConsumerLag = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "kafka_consumer_lag",
			Help: "Kafka consumer lag (difference between latest offset and committed offset) (count)",
		},
		[]string{"service", "topic", "partition"},
	)

	KafkaReadDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "kafka_read_duration_ms",
			Help:    "Duration of reading messages from Kafka in milliseconds",
			Buckets: []float64{1, 5, 10, 25, 50, 100, 250, 500, 1000},
		},
		[]string{"service", "topic"},
	)

	KafkaWriteDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "kafka_write_duration_ms",
			Help:    "Duration of writing messages to Kafka in milliseconds",
			Buckets: []float64{1, 5, 10, 25, 50, 100, 250, 500, 1000},
		},
		[]string{"service", "topic"},
	)

	DatabaseQueriesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "database_queries_total",
			Help: "Total number of database queries (count)",
		},
		[]string{"service", "database", "operation", "status"},
	)

	DatabaseQueryDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "database_query_duration_ms",
			Help:    "Duration of database queries in milliseconds",
			Buckets: []float64{1, 5, 10, 25, 50, 100, 250, 500, 1000, 2500, 5000},
		},
		[]string{"service", "database", "operation"},
	)
)

const storeService = "feed-service"

var fallbackOnce sync.Once

func RegisterPipelineMetrics() {
	prometheus.MustRegister(ArticlesProcessedTotal)
	prometheus.MustRegister(FeedCycleDuration)
	prometheus.MustRegister(FilterEvaluationsTotal)
	prometheus.MustRegister(CustomPlaceholderErrorsTotal)
	prometheus.MustRegister(ActiveDestinations)
	prometheus.MustRegister(SeenChecksTotal)
	prometheus.MustRegister(SeenCheckDuration)
	prometheus.MustRegister(SeenCacheSize)
	prometheus.MustRegister(DatabaseQueriesTotal)
	prometheus.MustRegister(DatabaseQueryDuration)
	registerFallbackUsageTotalOnce()
}

func RegisterDeliveryMetrics() {
	prometheus.MustRegister(DeliveriesTotal)
	prometheus.MustRegister(DispatchDuration)
	prometheus.MustRegister(DeliveryQueueDepth)
	prometheus.MustRegister(AllowanceExhaustedTotal)
	prometheus.MustRegister(DeliveryEventsTotal)
}

func registerFallbackUsageTotalOnce() {
	fallbackOnce.Do(func() {
		prometheus.MustRegister(FallbackUsageTotal)
	})
}

func RegisterBrokerMetrics() {
	prometheus.MustRegister(RetryAttemptsTotal)
	prometheus.MustRegister(DLQMessagesTotal)
	prometheus.MustRegister(KafkaMessagesReadTotal)
	prometheus.MustRegister(KafkaMessagesWrittenTotal)
	prometheus.MustRegister(KafkaMessageSizeBytes)
	prometheus.MustRegister(KafkaConsumerLag)
	prometheus.MustRegister(KafkaReadDuration)
	prometheus.MustRegister(KafkaWriteDuration)
}

func RegisterCircuitBreakerMetrics() {
	prometheus.MustRegister(CircuitBreakerState)
	prometheus.MustRegister(CircuitBreakerRequests)
	prometheus.MustRegister(CircuitBreakerFailures)
}

func RegisterAPIMetrics() {
	prometheus.MustRegister(HTTPRequestsTotal)
	prometheus.MustRegister(HTTPRequestDuration)
	prometheus.MustRegister(RateLimitRequestsTotal)
	registerFallbackUsageTotalOnce()
}

func ObserveFeedCycleDuration(duration time.Duration, status string) {
	FeedCycleDuration.WithLabelValues(status).Observe(float64(duration.Milliseconds()))
}

func IncArticlesProcessed(status string, n int) {
	ArticlesProcessedTotal.WithLabelValues(status).Add(float64(n))
}

func ObserveSeenCheck(status string, duration time.Duration) {
	SeenChecksTotal.WithLabelValues(status).Inc()
	SeenCheckDuration.WithLabelValues(status).Observe(float64(duration.Microseconds()) / 1000)
}

func SetSeenCacheSize(size int) {
	SeenCacheSize.Set(float64(size))
}

func SetActiveDestinations(count int) {
	ActiveDestinations.Set(float64(count))
}

func IncDelivery(result string) {
	DeliveriesTotal.WithLabelValues(result).Inc()
}

func ObserveDispatchDuration(result string, duration time.Duration) {
	DispatchDuration.WithLabelValues(result).Observe(float64(duration.Milliseconds()))
}

func SetDeliveryQueueDepth(queue string, depth int) {
	DeliveryQueueDepth.WithLabelValues(queue).Set(float64(depth))
}

func IncDeliveryEvent(eventType string) {
	DeliveryEventsTotal.WithLabelValues(eventType).Inc()
}

func IncKafkaMessagesRead(service, topic string) {
	KafkaMessagesReadTotal.WithLabelValues(service, topic).Inc()
}

func IncKafkaMessagesWritten(service, topic string) {
	KafkaMessagesWrittenTotal.WithLabelValues(service, topic).Inc()
}

func ObserveKafkaMessageSize(service, topic, direction string, sizeBytes int) {
	KafkaMessageSizeBytes.WithLabelValues(service, topic, direction).Observe(float64(sizeBytes))
}

func SetKafkaConsumerLag(service, topic string, partition int, lag int64) {
	KafkaConsumerLag.WithLabelValues(service, topic, fmt.Sprintf("%d", partition)).Set(float64(lag))
}

func ObserveKafkaReadDuration(service, topic string, duration time.Duration) {
	KafkaReadDuration.WithLabelValues(service, topic).Observe(float64(duration.Milliseconds()))
}

func ObserveKafkaWriteDuration(service, topic string, duration time.Duration) {
	KafkaWriteDuration.WithLabelValues(service, topic).Observe(float64(duration.Milliseconds()))
}

func IncDatabaseQuery(service, database, operation, status string) {
	DatabaseQueriesTotal.WithLabelValues(service, database, operation, status).Inc()
}

func ObserveDatabaseQueryDuration(service, database, operation string, duration time.Duration) {
	DatabaseQueryDuration.WithLabelValues(service, database, operation).Observe(float64(duration.Milliseconds()))
}

// ObserveStoreQuery records one store operation of the feed service.
func ObserveStoreQuery(database, operation string, start time.Time, err error) {
	status := "success"
	if err != nil {
		status = "error"
	}
	IncDatabaseQuery(storeService, database, operation, status)
	ObserveDatabaseQueryDuration(storeService, database, operation, time.Since(start))
}

func ObserveHTTPRequest(method, route string, status int, duration time.Duration) {
	HTTPRequestsTotal.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	HTTPRequestDuration.WithLabelValues(method, route).Observe(float64(duration.Milliseconds()))
}
