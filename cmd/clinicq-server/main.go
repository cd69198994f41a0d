package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/clinicq/clinicq/internal/config"
	"github.com/clinicq/clinicq/internal/domain/concept"
	"github.com/clinicq/clinicq/internal/domain/queue"
	"github.com/clinicq/clinicq/internal/domain/queueentry"
	"github.com/clinicq/clinicq/internal/domain/visit"
	"github.com/clinicq/clinicq/internal/platform/auth"
	"github.com/clinicq/clinicq/internal/platform/db"
	"github.com/clinicq/clinicq/internal/platform/middleware"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "clinicq-server",
		Short: "Patient queue management API server",
	}

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(migrateCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the queue API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer()
		},
	}
}

func migrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Run database migrations",
	}

	upCmd := &cobra.Command{
		Use:   "up",
		Short: "Apply pending migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, _ := cmd.Flags().GetString("dir")

			cfg, err := config.Load()
			if err != nil {
				return err
			}

			ctx := context.Background()
			pool, err := db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
			if err != nil {
				return err
			}
			defer pool.Close()

			migrator := db.NewMigrator(pool, dir)
			count, err := migrator.Up(ctx)
			if err != nil {
				return fmt.Errorf("migration failed: %w", err)
			}

			fmt.Printf("Applied %d migration(s) successfully.\n", count)
			return nil
		},
	}
	upCmd.Flags().String("dir", "./migrations", "Path to migrations directory")
	cmd.AddCommand(upCmd)

	statusCmd := &cobra.Command{
		Use:   "status",
		Short: "Show migration status",
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, _ := cmd.Flags().GetString("dir")

			cfg, err := config.Load()
			if err != nil {
				return err
			}

			ctx := context.Background()
			pool, err := db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
			if err != nil {
				return err
			}
			defer pool.Close()

			migrator := db.NewMigrator(pool, dir)
			statuses, err := migrator.Status(ctx)
			if err != nil {
				return fmt.Errorf("failed to get migration status: %w", err)
			}

			fmt.Printf("%-10s %-40s %-10s %s\n", "VERSION", "NAME", "STATUS", "APPLIED AT")
			for _, s := range statuses {
				applied := "-"
				if s.AppliedAt != nil {
					applied = s.AppliedAt.Format(time.RFC3339)
				}
				status := "pending"
				if s.Applied {
					status = "applied"
				}
				fmt.Printf("%-10d %-40s %-10s %s\n", s.Version, s.Name, status, applied)
			}
			return nil
		},
	}
	statusCmd.Flags().String("dir", "./migrations", "Path to migrations directory")
	cmd.AddCommand(statusCmd)

	return cmd
}

func runServer() error {
	// Logger
	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()
	if os.Getenv("ENV") == "development" {
		logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout}).With().Timestamp().Logger()
	}

	// Config
	cfg, err := config.Load()
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to load config")
	}
	if err := cfg.Validate(); err != nil {
		logger.Fatal().Err(err).Msg("invalid configuration")
	}

	// Database
	ctx := context.Background()
	pool, err := db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer pool.Close()
	logger.Info().Msg("connected to database")

	// Repos and services
	conceptRepo := concept.NewRepo(pool)
	queueRepo := queue.NewRepo(pool)
	visitRepo := visit.NewRepo(pool)
	entryRepo := queueentry.NewRepo(pool)

	conceptSvc := concept.NewService(conceptRepo)
	queueSvc := queue.NewService(queueRepo)
	visitSvc := visit.NewService(visitRepo)

	defaultPrioritySet := uuid.Nil
	if cfg.DefaultPrioritySet != "" {
		defaultPrioritySet = uuid.MustParse(cfg.DefaultPrioritySet)
	}
	defaultStatusSet := uuid.Nil
	if cfg.DefaultStatusSet != "" {
		defaultStatusSet = uuid.MustParse(cfg.DefaultStatusSet)
	}

	// Sort weight policies. The registry is resolved once here; an unknown
	// policy name refuses to start rather than fall back silently.
	registry := queueentry.NewPolicyRegistry()
	registry.Register(queueentry.PolicyPriorityPosition,
		queueentry.NewPriorityPositionPolicy(queueSvc, conceptSvc, defaultPrioritySet))
	registry.Register(queueentry.PolicyExistingValue, queueentry.ExistingValuePolicy{})

	policyName := cfg.SortWeightPolicy
	if policyName == "" {
		policyName = queueentry.PolicyPriorityPosition
	}
	policy, err := registry.Resolve(policyName)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to resolve sort weight policy")
	}
	logger.Info().Str("policy", policyName).Msg("sort weight policy configured")

	entrySvc := queueentry.NewService(entryRepo, queueSvc, conceptSvc, policy,
		defaultPrioritySet, defaultStatusSet, logger)

	// Echo server
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	// Global middleware
	e.Use(middleware.Recovery(logger))
	e.Use(middleware.RequestID())
	e.Use(middleware.Logger(logger))
	e.Use(middleware.SecurityHeaders())
	e.Use(middleware.SanitizeWithLogger(logger))
	e.Use(middleware.BodyLimit("1M"))
	e.Use(middleware.RequestTimeout(30 * time.Second))
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
		AllowOrigins: cfg.CORSOrigins,
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete},
		AllowHeaders: []string{"Authorization", "Content-Type", "X-Request-ID"},
	}))

	// Auth middleware
	if cfg.IsDev() && cfg.AuthSecret == "" {
		logger.Warn().Msg("AUTH_SECRET not set, using development auth")
		e.Use(auth.DevAuthMiddleware())
	} else {
		e.Use(auth.JWTMiddleware([]byte(cfg.AuthSecret)))
	}

	// Access audit for patient-identifying routes
	e.Use(middleware.Audit(logger))

	// Health check
	e.GET("/health", db.HealthHandler(pool))

	apiV1 := e.Group("/api/v1")
	apiV1.Use(middleware.RateLimit(middleware.DefaultRateLimitConfig()))

	concept.NewHandler(conceptSvc).RegisterRoutes(apiV1)
	queue.NewHandler(queueSvc).RegisterRoutes(apiV1)
	visit.NewHandler(visitSvc).RegisterRoutes(apiV1)
	queueentry.NewHandler(entrySvc).RegisterRoutes(apiV1)

	// Auto-close reconciler
	reconcilerCtx, stopReconciler := context.WithCancel(ctx)
	defer stopReconciler()
	if cfg.ReconcilerDisabled {
		logger.Info().Msg("auto-close reconciler disabled")
	} else {
		r := queueentry.NewReconciler(entrySvc, visitSvc, cfg.ReconcilerInterval, logger)
		go r.Run(reconcilerCtx)
	}

	// Graceful shutdown
	go func() {
		addr := ":" + cfg.Port
		logger.Info().Str("addr", addr).Msg("starting server")
		if err := e.Start(addr); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info().Msg("shutting down server")
	stopReconciler()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		logger.Fatal().Err(err).Msg("server shutdown failed")
	}
	logger.Info().Msg("server stopped")
	return nil
}
