package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"net"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib" // PostgreSQL driver for database/sql (migrations)
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/venezuelawatch/entity-engine/pkg/config"
	"github.com/venezuelawatch/entity-engine/pkg/database"
	"github.com/venezuelawatch/entity-engine/pkg/handlers"
	"github.com/venezuelawatch/entity-engine/pkg/llm"
	"github.com/venezuelawatch/entity-engine/pkg/logging"
	"github.com/venezuelawatch/entity-engine/pkg/mcp"
	"github.com/venezuelawatch/entity-engine/pkg/mcp/tools"
	"github.com/venezuelawatch/entity-engine/pkg/middleware"
	"github.com/venezuelawatch/entity-engine/pkg/repositories"
	"github.com/venezuelawatch/entity-engine/pkg/services"
	"github.com/venezuelawatch/entity-engine/pkg/themes"
)

// Version is set at build time via ldflags
var Version = "dev"

const migrationsPath = "migrations"

func main() {
	// Load configuration
	cfg, err := config.Load(Version)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger, err := newLogger(cfg)
	if err != nil {
		log.Fatalf("Failed to build logger: %v", err)
	}
	defer logger.Sync()

	// Log startup configuration
	logger.Info("Configuration loaded",
		zap.String("environment", cfg.Env),
		zap.String("database", logging.SanitizeConnectionString(cfg.Database.ConnectionString())),
		zap.String("escalation_mode", cfg.Resolver.EscalationMode),
		zap.Bool("theme_extraction", cfg.LLM.Enabled() && cfg.LLM.ThemeExtraction),
		zap.Bool("disambiguation", cfg.LLM.Enabled() && cfg.LLM.Disambiguation),
		zap.Bool("narrative", cfg.LLM.Enabled() && cfg.LLM.Narrative),
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Connect to PostgreSQL and apply pending migrations
	db, err := database.NewConnection(ctx, &database.Config{
		URL:            cfg.Database.ConnectionString(),
		MaxConnections: cfg.Database.MaxConnections,
	})
	if err != nil {
		logger.Fatal("Failed to connect to database", zap.String("error", logging.SanitizeError(err)))
	}
	defer db.Close()

	if err := runMigrations(cfg, logger); err != nil {
		logger.Fatal("Failed to run migrations", zap.String("error", logging.SanitizeError(err)))
	}

	entityRepo := repositories.NewEntityRepository(db)
	eventRepo := repositories.NewEventRepository(db)

	normalizer, err := themes.NewNormalizer()
	if err != nil {
		logger.Fatal("Failed to load theme taxonomy", zap.Error(err))
	}

	// Collaborator services degrade to nil when disabled; the pipeline
	// services fall back to their safe defaults.
	var (
		themeExtractor services.ThemeExtractionService
		disambiguator  services.DisambiguationService
		narrator       services.NarrativeService
	)
	if cfg.LLM.Enabled() {
		client, err := llm.NewClient(&llm.Config{
			Provider: cfg.LLM.Provider,
			Endpoint: cfg.LLM.Endpoint,
			Model:    cfg.LLM.Model,
			APIKey:   cfg.LLM.APIKey,
		}, logger)
		if err != nil {
			logger.Fatal("Failed to create collaborator client", zap.Error(err))
		}
		if cfg.LLM.ThemeExtraction {
			themeExtractor = services.NewThemeExtractionService(client, normalizer, cfg.LLM, logger)
		}
		if cfg.LLM.Disambiguation {
			disambiguator = services.NewDisambiguationService(client, cfg.LLM, logger)
		}
		if cfg.LLM.Narrative {
			narrator = services.NewNarrativeService(client, cfg.LLM, logger)
		}
	}

	resolver := services.NewResolverService(entityRepo, disambiguator, cfg.Resolver, logger)
	if err := resolver.WarmIndex(ctx); err != nil {
		logger.Fatal("Failed to warm resolver index", zap.Error(err))
	}

	detector := services.NewCommunityDetector(cfg.Community, logger)
	graphService := services.NewGraphService(eventRepo, entityRepo, detector, cfg.Graph, logger)
	lineageService := services.NewLineageService(eventRepo, entityRepo, narrator, cfg.Lineage, logger)
	ingestService := services.NewIngestService(eventRepo, entityRepo, resolver, themeExtractor, normalizer, cfg.Ingest, logger)

	mux := http.NewServeMux()

	// Register handlers
	handlers.NewHealthHandler(cfg, db, logger).RegisterRoutes(mux)
	handlers.NewEntitiesHandler(resolver, entityRepo, logger).RegisterRoutes(mux)
	handlers.NewEventsHandler(ingestService, logger).RegisterRoutes(mux)
	handlers.NewGraphHandler(graphService, logger).RegisterRoutes(mux)
	handlers.NewLineageHandler(lineageService, logger).RegisterRoutes(mux)

	// MCP endpoint exposing the same operations as tools
	mcpServer := mcp.NewServer("entity-engine", cfg.Version, logger)
	toolDeps := &tools.EngineToolDeps{
		Resolver: resolver,
		Graph:    graphService,
		Lineage:  lineageService,
		Logger:   logger,
	}
	tools.RegisterResolveEntityTool(mcpServer, toolDeps)
	tools.RegisterGetGraphTool(mcpServer, toolDeps)
	tools.RegisterGetLineageTool(mcpServer, toolDeps)
	handlers.NewMCPHandler(mcpServer, logger).RegisterRoutes(mux)

	srv := &http.Server{
		Addr:              net.JoinHostPort(cfg.BindAddr, cfg.Port),
		Handler:           middleware.RequestLogger(logger)(mux),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("Starting entity-engine",
			zap.String("addr", srv.Addr),
			zap.String("version", cfg.Version))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("Server failed", zap.Error(err))
		}
	case <-ctx.Done():
		logger.Info("Shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("Graceful shutdown failed", zap.Error(err))
		}
	}
}

// newLogger builds the process logger: development encoding locally,
// production JSON everywhere else, level from configuration.
func newLogger(cfg *config.Config) (*zap.Logger, error) {
	level, err := zapcore.ParseLevel(cfg.LogLevel)
	if err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", cfg.LogLevel, err)
	}

	logConfig := zap.NewProductionConfig()
	if cfg.Env == "local" {
		logConfig = zap.NewDevelopmentConfig()
	}
	logConfig.Level = zap.NewAtomicLevelAt(level)
	return logConfig.Build()
}

// runMigrations opens a short-lived database/sql connection for
// golang-migrate and applies pending migrations.
func runMigrations(cfg *config.Config, logger *zap.Logger) error {
	sqlDB, err := sql.Open("pgx", cfg.Database.ConnectionString())
	if err != nil {
		return fmt.Errorf("failed to open migration connection: %w", err)
	}
	defer sqlDB.Close()

	return database.RunMigrations(sqlDB, migrationsPath, logger)
}
