package bootstrap

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"monitorss/internal/config"
	"monitorss/internal/constants"
	"monitorss/internal/logger"
	"monitorss/pkg/health"
)

// Connections holds the stores opened for the configured backends. Any of
// them may be nil.
type Connections struct {
	Postgres *sql.DB
	Mongo    *mongo.Client
	MongoDB  *mongo.Database
	Redis    *redis.Client
}

// Close releases every open connection.
func (c *Connections) Close(ctx context.Context) []error {
	var errs []error
	if c.Redis != nil {
		if err := c.Redis.Close(); err != nil {
			errs = append(errs, fmt.Errorf("redis close error: %w", err))
		}
	}
	if c.Postgres != nil {
		if err := c.Postgres.Close(); err != nil {
			errs = append(errs, fmt.Errorf("postgres close error: %w", err))
		}
	}
	if c.Mongo != nil {
		if err := c.Mongo.Disconnect(ctx); err != nil {
			errs = append(errs, fmt.Errorf("mongodb disconnect error: %w", err))
		}
	}
	return errs
}

// RegisterHealth adds a readiness check for every open connection. Redis is
// optional because the seen store falls back on errors.
func (c *Connections) RegisterHealth(r *health.CheckerRegistry) {
	if c.Postgres != nil {
		r.Register(health.NewPostgreSQLChecker(c.Postgres))
	}
	if c.Mongo != nil {
		r.Register(health.NewMongoDBChecker(c.Mongo))
	}
	if c.Redis != nil {
		r.RegisterOptional(health.NewRedisChecker(c.Redis))
	}
}

type DatabaseConnector struct {
	Config *config.Config
	Logger logger.Logger
}

func NewDatabaseConnector(cfg *config.Config, log logger.Logger) *DatabaseConnector {
	return &DatabaseConnector{
		Config: cfg,
		Logger: log,
	}
}

// Connect opens the backends the pipeline configuration selects. Redis is
// opened whenever a host is configured.
func (dc *DatabaseConnector) Connect(ctx context.Context) (*Connections, error) {
	conns := &Connections{}
	pipeline := dc.Config.Pipeline

	if uses(pipeline, constants.StorePostgres) {
		db, err := dc.InitPostgreSQL(ctx)
		if err != nil {
			return nil, err
		}
		conns.Postgres = db
	}

	if uses(pipeline, constants.StoreMongoDB) {
		client, err := dc.InitMongoDB(ctx)
		if err != nil {
			conns.Close(ctx)
			return nil, err
		}
		conns.Mongo = client
		dbName := dc.Config.Database.MongoDB.Database
		if dbName == "" {
			dbName = constants.DefaultMongoDBName
		}
		conns.MongoDB = client.Database(dbName)
	}

	if dc.Config.Database.Redis.Host != "" {
		rdb, err := dc.InitRedis(ctx)
		if err != nil {
			conns.Close(ctx)
			return nil, err
		}
		conns.Redis = rdb
	}

	return conns, nil
}

func uses(cfg config.PipelineConfig, store string) bool {
	return cfg.OutcomeStore == store || cfg.DestinationStore == store
}

func (dc *DatabaseConnector) InitRedis(ctx context.Context) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%d", dc.Config.Database.Redis.Host, dc.Config.Database.Redis.Port),
		Password: dc.Config.Database.Redis.Password,
		DB:       dc.Config.Database.Redis.DB,
	})

	if err := rdb.Ping(ctx).Err(); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("failed to ping Redis: %w", err)
	}

	dc.Logger.Info("Redis connected successfully")
	return rdb, nil
}

func (dc *DatabaseConnector) InitPostgreSQL(ctx context.Context) (*sql.DB, error) {
	pg := dc.Config.Database.Postgres
	if pg.Host == "" {
		return nil, fmt.Errorf("postgres host is required")
	}

	dsn := fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		pg.User, pg.Password, pg.Host, pg.Port, pg.DBName, pg.SSLMode,
	)

	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	dc.Logger.Info("PostgreSQL connected successfully")
	return db, nil
}

func (dc *DatabaseConnector) InitMongoDB(ctx context.Context) (*mongo.Client, error) {
	if dc.Config.Database.MongoDB.URI == "" {
		return nil, fmt.Errorf("mongodb uri is required")
	}

	mongoOpts := options.Client().ApplyURI(dc.Config.Database.MongoDB.URI)
	mongoClient, err := mongo.Connect(ctx, mongoOpts)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to MongoDB: %w", err)
	}

	if err := mongoClient.Ping(ctx, nil); err != nil {
		mongoClient.Disconnect(ctx)
		return nil, fmt.Errorf("failed to ping MongoDB: %w", err)
	}

	dc.Logger.Info("MongoDB connected successfully")
	return mongoClient, nil
}
