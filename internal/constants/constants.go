package constants

import "time"

const (
	KafkaBatchTimeout = 10 * time.Millisecond
	KafkaWriteTimeout = 10 * time.Second
)

const (
	DefaultHTTPTimeout = 10 * time.Second
)

const (
	CacheKeyPrefixSeen = "seen:"
)

const (
	DefaultInputTopic  = "feed_articles"
	DefaultEventsTopic = "destination_events"
)

const (
	DefaultMongoDBName = "monitorss"
)

const (
	ShutdownTimeout = 5 * time.Second
)

const (
	DefaultLimit = 100
	MaxLimit     = 1000
)

const (
	HTTPStatusOKMin = 200
	HTTPStatusOKMax = 300
)

const (
	FallbackAllow = "allow"
	FallbackDeny  = "deny"
)

const (
	StoreMemory   = "memory"
	StorePostgres = "postgres"
	StoreMongoDB  = "mongodb"
	StoreFile     = "file"
)

// Discord message limits.
const (
	MaxEmbeds               = 10
	EmbedTitleLimit         = 256
	EmbedDescriptionLimit   = 4096
	EmbedFooterLimit        = 2048
	EmbedAuthorLimit        = 256
	EmbedFieldNameLimit     = 256
	EmbedFieldValueLimit    = 1024
	DefaultContentLimit     = 2000
	MaxExtractedLinksPerKey = 10
)
