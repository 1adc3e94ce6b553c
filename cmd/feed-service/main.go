package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	_ "monitorss/cmd/feed-service/docs"
	"monitorss/internal/article"
	"monitorss/internal/config"
	"monitorss/internal/feed"
	"monitorss/internal/logger"
	"monitorss/pkg/bootstrap"
	"monitorss/pkg/logging"
	"monitorss/pkg/migrations"
)

const serviceName = "feed-service"

var (
	configFile string
)

// @title           MonitoRSS Feed Service API
// @version         1.0
// @description     Diagnostics and previews for the feed article pipeline: custom placeholders, filters, delivery queues and outcomes
// @termsOfService  http://swagger.io/terms/

// @contact.name   API Support
// @contact.url    http://www.example.com/support
// @contact.email  support@example.com

// @license.name  Apache 2.0
// @license.url   http://www.apache.org/licenses/LICENSE-2.0.html

// @host      localhost:8080
// @BasePath  /api/v1

// @schemes   http https

func main() {
	rootCmd := &cobra.Command{
		Use:   serviceName,
		Short: "Feed article pipeline",
		Long:  "Feed Service turns parsed feed items into filtered, formatted and rate-limited chat deliveries",
		RunE:  serveCmd().RunE,
	}

	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "Path to config file (required)")

	rootCmd.AddCommand(serveCmd(), migrateCmd(), parseCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func loadConfig() (*config.Config, logger.Logger, error) {
	earlyLog := logging.NewEarlyLog()

	if configFile == "" {
		configFile = os.Getenv("CONFIG_FILE")
		if configFile == "" {
			earlyLog.Error("Config file is required. Use --config flag or CONFIG_FILE environment variable")
			return nil, nil, fmt.Errorf("config file is required")
		}
	}

	cfg, err := config.Load(configFile)
	if err != nil {
		earlyLog.Error("Failed to load config: %v", err)
		return nil, nil, err
	}

	log, err := logger.New(cfg.Logging.Level, cfg.Logging.Format)
	if err != nil {
		earlyLog.Error("Failed to init logger: %v", err)
		return nil, nil, err
	}
	return cfg, log, nil
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Consume feed jobs and deliver articles",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := loadConfig()
			if err != nil {
				return err
			}
			defer log.Sync()

			ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer cancel()

			log.InfowCtx(ctx, "Starting Feed Service")

			app := NewApp(cfg, log)
			if err := app.Initialize(ctx); err != nil {
				log.Fatalf("Failed to initialize application: %v", err)
			}

			runErr := app.Run(ctx)
			if err := app.Shutdown(context.Background()); err != nil {
				log.ErrorwCtx(ctx, "Shutdown error", "error", err)
			}
			if runErr != nil && ctx.Err() == nil {
				log.ErrorwCtx(ctx, "Application error", "error", runErr)
				return runErr
			}
			return nil
		},
	}
}

func migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply postgres migrations and create mongodb indexes",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := loadConfig()
			if err != nil {
				return err
			}
			defer log.Sync()

			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}

			conns, err := bootstrap.NewDatabaseConnector(cfg, log).Connect(ctx)
			if err != nil {
				return err
			}
			defer conns.Close(ctx)

			if err := runMigrations(ctx, conns, log); err != nil {
				return err
			}
			log.InfowCtx(ctx, "Migrations complete")
			return nil
		},
	}
}

func runMigrations(ctx context.Context, conns *bootstrap.Connections, log logger.Logger) error {
	if conns.Postgres != nil {
		if err := migrations.UpPostgres(conns.Postgres); err != nil {
			return err
		}
		version, dirty, err := migrations.PostgresVersion(conns.Postgres)
		if err != nil {
			return fmt.Errorf("failed to read schema version: %w", err)
		}
		log.InfowCtx(ctx, "PostgreSQL schema up to date", "version", version, "dirty", dirty)
	}
	if conns.MongoDB != nil {
		if err := migrations.EnsureMongoIndexes(ctx, conns.MongoDB); err != nil {
			return err
		}
		log.InfowCtx(ctx, "MongoDB indexes ensured")
	}
	return nil
}

type parsedArticle struct {
	ID           string            `json:"id"`
	IDHash       string            `json:"idHash"`
	Placeholders map[string]string `json:"placeholders"`
}

func parseCmd() *cobra.Command {
	var (
		feedURL  string
		timezone string
	)
	cmd := &cobra.Command{
		Use:   "parse <file>",
		Short: "Parse a feed document and print its articles as JSON",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			body, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("failed to read %s: %w", args[0], err)
			}

			ctx := context.Background()
			doc, err := feed.NewParser().Parse(ctx, string(body))
			if err != nil {
				return err
			}

			flattener, err := article.NewFlattener(article.FlattenOptions{Timezone: timezone})
			if err != nil {
				return err
			}

			articles := make([]*article.Article, 0, len(doc.Items))
			for _, raw := range doc.Items {
				articles = append(articles, article.New(raw))
			}
			articles = article.ResolveIdentities(ctx, articles, logger.NopLogger())

			rules := article.RulesForURL(feedURL)
			out := make([]parsedArticle, 0, len(articles))
			for _, a := range articles {
				if err := flattener.Flatten(a, rules); err != nil {
					return fmt.Errorf("failed to flatten article %s: %w", a.ID, err)
				}
				out = append(out, parsedArticle{ID: a.ID, IDHash: a.IDHash, Placeholders: a.Flattened})
			}

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(out)
		},
	}
	cmd.Flags().StringVar(&feedURL, "url", "", "Feed URL, selects source-specific rules")
	cmd.Flags().StringVar(&timezone, "timezone", "UTC", "Timezone for formatted dates")
	return cmd
}
