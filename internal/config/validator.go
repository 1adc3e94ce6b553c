package config

import (
	"fmt"
	"strings"
)

type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error for field '%s': %s", e.Field, e.Message)
}

func ValidateStatic(cfg *Config) error {
	var errors []error

	if err := validateServer(cfg.Server); err != nil {
		errors = append(errors, err)
	}

	if err := validateBroker(cfg.Broker); err != nil {
		errors = append(errors, err)
	}

	if err := validateDatabase(cfg.Database); err != nil {
		errors = append(errors, err)
	}

	if err := validatePipeline(cfg.Pipeline, cfg.Database); err != nil {
		errors = append(errors, err)
	}

	if err := validateDelivery(cfg.Delivery); err != nil {
		errors = append(errors, err)
	}

	if len(errors) > 0 {
		return fmt.Errorf("configuration validation failed: %v", errors)
	}

	return nil
}

func validateServer(cfg ServerConfig) error {
	if cfg.Port < 1 || cfg.Port > 65535 {
		return &ValidationError{
			Field:   "server.port",
			Message: fmt.Sprintf("port must be between 1 and 65535, got %d", cfg.Port),
		}
	}

	if cfg.ReadTimeoutSeconds <= 0 {
		return &ValidationError{
			Field:   "server.read_timeout_seconds",
			Message: "read timeout must be positive",
		}
	}

	if cfg.WriteTimeoutSeconds <= 0 {
		return &ValidationError{
			Field:   "server.write_timeout_seconds",
			Message: "write timeout must be positive",
		}
	}

	return nil
}

func validateBroker(cfg BrokerConfig) error {
	switch cfg.Type {
	case "kafka":
		return validateKafka(cfg.Kafka)
	case "none":
		return nil
	case "":
		return &ValidationError{
			Field:   "broker.type",
			Message: "broker type is required",
		}
	default:
		return &ValidationError{
			Field:   "broker.type",
			Message: fmt.Sprintf("unknown broker type: %s (supported: kafka, none)", cfg.Type),
		}
	}
}

func validateKafka(cfg KafkaConfig) error {
	if len(cfg.Brokers) == 0 {
		return &ValidationError{
			Field:   "broker.kafka.brokers",
			Message: "at least one Kafka broker is required",
		}
	}

	for i, broker := range cfg.Brokers {
		if broker == "" {
			return &ValidationError{
				Field:   fmt.Sprintf("broker.kafka.brokers[%d]", i),
				Message: "broker address cannot be empty",
			}
		}
	}

	if cfg.GroupID == "" {
		return &ValidationError{
			Field:   "broker.kafka.group_id",
			Message: "Kafka consumer group ID is required",
		}
	}

	if cfg.Retry.MaxAttempts < 0 {
		return &ValidationError{
			Field:   "broker.kafka.retry.max_attempts",
			Message: "max_attempts must be non-negative",
		}
	}

	if cfg.Retry.InitialInterval < 0 {
		return &ValidationError{
			Field:   "broker.kafka.retry.initial_interval",
			Message: "initial_interval must be non-negative",
		}
	}

	if cfg.Retry.MaxInterval < 0 {
		return &ValidationError{
			Field:   "broker.kafka.retry.max_interval",
			Message: "max_interval must be non-negative",
		}
	}

	if cfg.Retry.MaxInterval > 0 && cfg.Retry.InitialInterval > 0 && cfg.Retry.MaxInterval < cfg.Retry.InitialInterval {
		return &ValidationError{
			Field:   "broker.kafka.retry.max_interval",
			Message: "max_interval must be greater than or equal to initial_interval",
		}
	}

	if cfg.Retry.Multiplier <= 0 {
		return &ValidationError{
			Field:   "broker.kafka.retry.multiplier",
			Message: "multiplier must be positive",
		}
	}

	return nil
}

func validateDatabase(cfg DatabaseConfig) error {
	if cfg.Postgres.Host != "" || cfg.Postgres.Port > 0 {
		if err := validatePostgres(cfg.Postgres); err != nil {
			return err
		}
	}

	if cfg.Redis.Host != "" || cfg.Redis.Port > 0 {
		if err := validateRedis(cfg.Redis); err != nil {
			return err
		}
	}

	if cfg.MongoDB.URI != "" {
		if err := validateMongoDB(cfg.MongoDB); err != nil {
			return err
		}
	}

	return nil
}

func validatePostgres(cfg PostgresConfig) error {
	if cfg.Host == "" {
		return &ValidationError{
			Field:   "database.postgres.host",
			Message: "PostgreSQL host is required",
		}
	}

	if cfg.Port < 1 || cfg.Port > 65535 {
		return &ValidationError{
			Field:   "database.postgres.port",
			Message: fmt.Sprintf("port must be between 1 and 65535, got %d", cfg.Port),
		}
	}

	if cfg.User == "" {
		return &ValidationError{
			Field:   "database.postgres.user",
			Message: "PostgreSQL user is required",
		}
	}

	if cfg.DBName == "" {
		return &ValidationError{
			Field:   "database.postgres.dbname",
			Message: "PostgreSQL database name is required",
		}
	}

	validSSLModes := map[string]bool{
		"disable": true, "allow": true, "prefer": true,
		"require": true, "verify-ca": true, "verify-full": true,
	}
	if cfg.SSLMode != "" && !validSSLModes[strings.ToLower(cfg.SSLMode)] {
		return &ValidationError{
			Field:   "database.postgres.sslmode",
			Message: fmt.Sprintf("invalid SSL mode: %s (valid: disable, allow, prefer, require, verify-ca, verify-full)", cfg.SSLMode),
		}
	}

	return nil
}

func validateRedis(cfg RedisConfig) error {
	if cfg.Host == "" {
		return &ValidationError{
			Field:   "database.redis.host",
			Message: "Redis host is required",
		}
	}

	if cfg.Port < 1 || cfg.Port > 65535 {
		return &ValidationError{
			Field:   "database.redis.port",
			Message: fmt.Sprintf("port must be between 1 and 65535, got %d", cfg.Port),
		}
	}

	return nil
}

func validateMongoDB(cfg MongoDBConfig) error {
	if cfg.URI == "" {
		return &ValidationError{
			Field:   "database.mongodb.uri",
			Message: "MongoDB URI is required",
		}
	}

	if !strings.HasPrefix(cfg.URI, "mongodb://") && !strings.HasPrefix(cfg.URI, "mongodb+srv://") {
		return &ValidationError{
			Field:   "database.mongodb.uri",
			Message: "MongoDB URI must start with mongodb:// or mongodb+srv://",
		}
	}

	if cfg.Database == "" {
		return &ValidationError{
			Field:   "database.mongodb.database",
			Message: "MongoDB database name is required",
		}
	}

	return nil
}

func validatePipeline(cfg PipelineConfig, db DatabaseConfig) error {
	if cfg.SeenTTLSeconds < 0 {
		return &ValidationError{
			Field:   "pipeline.seen_ttl_seconds",
			Message: "TTL must be non-negative",
		}
	}

	validOnError := map[string]bool{"allow": true, "deny": true}
	if cfg.OnSeenStoreError != "" && !validOnError[strings.ToLower(cfg.OnSeenStoreError)] {
		return &ValidationError{
			Field:   "pipeline.on_seen_store_error",
			Message: fmt.Sprintf("invalid on_seen_store_error value: %s (valid: allow, deny)", cfg.OnSeenStoreError),
		}
	}

	switch cfg.OutcomeStore {
	case "", "memory":
	case "postgres":
		if db.Postgres.Host == "" {
			return &ValidationError{
				Field:   "pipeline.outcome_store",
				Message: "postgres outcome store requires database.postgres",
			}
		}
	case "mongodb":
		if db.MongoDB.URI == "" {
			return &ValidationError{
				Field:   "pipeline.outcome_store",
				Message: "mongodb outcome store requires database.mongodb",
			}
		}
	default:
		return &ValidationError{
			Field:   "pipeline.outcome_store",
			Message: fmt.Sprintf("unknown outcome store: %s (valid: postgres, mongodb, memory)", cfg.OutcomeStore),
		}
	}

	switch cfg.DestinationStore {
	case "postgres":
		if db.Postgres.Host == "" {
			return &ValidationError{
				Field:   "pipeline.destination_store",
				Message: "postgres destination store requires database.postgres",
			}
		}
	case "mongodb":
		if db.MongoDB.URI == "" {
			return &ValidationError{
				Field:   "pipeline.destination_store",
				Message: "mongodb destination store requires database.mongodb",
			}
		}
	case "file":
		if cfg.DestinationsFile == "" {
			return &ValidationError{
				Field:   "pipeline.destinations_file",
				Message: "file destination store requires destinations_file",
			}
		}
	default:
		return &ValidationError{
			Field:   "pipeline.destination_store",
			Message: fmt.Sprintf("unknown destination store: %s (valid: postgres, mongodb, file)", cfg.DestinationStore),
		}
	}

	return nil
}

func validateDelivery(cfg DeliveryConfig) error {
	if cfg.APIBaseURL == "" {
		return &ValidationError{
			Field:   "delivery.api_base_url",
			Message: "API base URL is required",
		}
	}

	if cfg.DequeueRate <= 0 {
		return &ValidationError{
			Field:   "delivery.dequeue_rate",
			Message: "dequeue rate must be positive",
		}
	}

	if cfg.Allowance <= 0 {
		return &ValidationError{
			Field:   "delivery.allowance",
			Message: "allowance must be positive",
		}
	}

	if cfg.AllowanceWindow <= 0 {
		return &ValidationError{
			Field:   "delivery.allowance_window",
			Message: "allowance window must be positive",
		}
	}

	if cfg.SupporterMultiplier < 1 {
		return &ValidationError{
			Field:   "delivery.supporter_multiplier",
			Message: "supporter multiplier must be at least 1",
		}
	}

	if cfg.RequestTimeout <= 0 {
		return &ValidationError{
			Field:   "delivery.request_timeout",
			Message: "request timeout must be positive",
		}
	}

	if cfg.MaxAttempts < 1 {
		return &ValidationError{
			Field:   "delivery.max_attempts",
			Message: "max attempts must be at least 1",
		}
	}

	return nil
}
