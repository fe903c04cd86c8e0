package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/careplan/careplan/internal/config"
	"github.com/careplan/careplan/internal/domain/decision"
	"github.com/careplan/careplan/internal/domain/guideline"
	"github.com/careplan/careplan/internal/domain/hospital"
	"github.com/careplan/careplan/internal/domain/identity"
	"github.com/careplan/careplan/internal/domain/labreport"
	"github.com/careplan/careplan/internal/domain/planner"
	"github.com/careplan/careplan/internal/domain/profile"
	"github.com/careplan/careplan/internal/domain/question"
	"github.com/careplan/careplan/internal/domain/recommendation"
	"github.com/careplan/careplan/internal/platform/auth"
	"github.com/careplan/careplan/internal/platform/db"
	"github.com/careplan/careplan/internal/platform/events"
	"github.com/careplan/careplan/internal/platform/llm"
	"github.com/careplan/careplan/internal/platform/middleware"
	"github.com/careplan/careplan/internal/platform/telemetry"
)

const serviceVersion = "0.1.0"

func main() {
	rootCmd := &cobra.Command{
		Use:   "careplan-server",
		Short: "Healthcare Planning Assistant API Server",
	}

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(migrateCmd())
	rootCmd.AddCommand(seedCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the planning assistant API server",
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

	// migrate up
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

	// migrate status
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
			fmt.Println("---------- ---------------------------------------- ---------- --------------------")
			for _, s := range statuses {
				status := "pending"
				appliedAt := ""
				if s.Applied {
					status = "applied"
					if s.AppliedAt != nil {
						appliedAt = s.AppliedAt.Format("2006-01-02 15:04:05")
					}
				}
				fmt.Printf("%-10d %-40s %-10s %s\n", s.Version, s.Name, status, appliedAt)
			}
			return nil
		},
	}
	statusCmd.Flags().String("dir", "./migrations", "Path to migrations directory")
	cmd.AddCommand(statusCmd)

	// migrate down - keep as warning
	cmd.AddCommand(&cobra.Command{
		Use:   "down",
		Short: "Rollback last migration (not supported)",
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Println("WARNING: migrate down is destructive and not supported by the built-in runner.")
			fmt.Println("Restore from a database backup to roll back schema changes.")
			return nil
		},
	})

	return cmd
}

func seedCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Load reference datasets into the database",
	}

	hospitalsCmd := &cobra.Command{
		Use:   "hospitals",
		Short: "Seed the hospital directory",
		RunE: func(cmd *cobra.Command, args []string) error {
			file, _ := cmd.Flags().GetString("file")
			refresh, _ := cmd.Flags().GetBool("refresh")

			cfg, err := config.Load()
			if err != nil {
				return err
			}
			if file == "" {
				file = cfg.HospitalsPath
			}

			store, err := guideline.Load(cfg.GuidelinesPath, file)
			if err != nil {
				return err
			}

			ctx := context.Background()
			pool, err := db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
			if err != nil {
				return err
			}
			defer pool.Close()

			repo := hospital.NewRepoPG(pool)
			if refresh {
				created, updated, err := upsertHospitals(ctx, repo, store.Hospitals())
				if err != nil {
					return err
				}
				fmt.Printf("Seeded hospitals: %d created, %d refreshed.\n", created, updated)
				return nil
			}

			n, err := hospital.NewService(repo).Seed(ctx, store.Hospitals())
			if err != nil {
				return err
			}
			fmt.Printf("Seeded %d new hospital(s); existing rows left untouched.\n", n)
			return nil
		},
	}
	hospitalsCmd.Flags().String("file", "", "Hospital dataset (JSON or YAML); empty uses the embedded directory")
	hospitalsCmd.Flags().Bool("refresh", false, "Also overwrite rows that already exist with dataset values")
	cmd.AddCommand(hospitalsCmd)

	return cmd
}

// upsertHospitals inserts new rows and rewrites existing ones with dataset
// values. Only the seed --refresh path uses it; records have already passed
// the loader's checks by the time they get here.
func upsertHospitals(ctx context.Context, repo hospital.Repository, hospitals []*hospital.Hospital) (created, updated int, err error) {
	for _, h := range hospitals {
		inserted, err := repo.CreateIfAbsent(ctx, h)
		if err != nil {
			return created, updated, fmt.Errorf("seed hospital %s: %w", h.ID, err)
		}
		if inserted {
			created++
			continue
		}
		if err := repo.Update(ctx, h); err != nil {
			return created, updated, fmt.Errorf("refresh hospital %s: %w", h.ID, err)
		}
		updated++
	}
	return created, updated, nil
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
	if lvl, err := zerolog.ParseLevel(cfg.LogLevel); err == nil {
		logger = logger.Level(lvl)
	}

	// Database
	ctx := context.Background()
	pool, err := db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer pool.Close()
	logger.Info().Msg("connected to database")

	// Telemetry
	metrics := telemetry.NewTelemetryProvider(telemetry.TelemetryConfig{
		ServiceName:    "careplan-server",
		ServiceVersion: serviceVersion,
		Environment:    cfg.Env,
	})

	// Clinical datasets: guidelines drive the decision engine, the hospital
	// directory backs both matching and the seeded hospitals table.
	store, err := guideline.Load(cfg.GuidelinesPath, cfg.HospitalsPath)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to load clinical datasets")
	}
	logger.Info().
		Int("guidelines", len(store.Guidelines())).
		Int("hospitals", len(store.Hospitals())).
		Msg("clinical datasets loaded")

	// LLM client. Without an API key the engine and builders fall back to
	// deterministic template output.
	var client llm.Client = llm.Disabled{}
	if cfg.GeminiAPIKey != "" {
		client = llm.NewGemini(cfg.GeminiAPIKey, cfg.GeminiModel, cfg.GeminiBaseURL)
		logger.Info().Str("model", cfg.GeminiModel).Msg("llm client configured")
	}

	// Event publisher
	var publisher events.Publisher = events.NoopPublisher{}
	if cfg.RabbitMQURL != "" {
		rp, err := events.NewRabbitPublisher(cfg.RabbitMQURL, logger)
		if err != nil {
			logger.Error().Err(err).Msg("rabbitmq unavailable, event publishing disabled")
		} else {
			publisher = rp
			defer rp.Close()
			logger.Info().Msg("event publisher connected")
		}
	}

	// Auth backend. JWT mode issues signed tokens; every other mode keeps
	// them in the process-local store.
	ttl := time.Duration(cfg.TokenTTLHours) * time.Hour
	var (
		issuer    auth.Issuer
		validator auth.Validator
		revoker   auth.Revoker
	)
	if cfg.ResolvedAuthMode() == "jwt" {
		j := auth.NewJWTIssuer(cfg.JWTSecret, ttl)
		issuer, validator, revoker = j, j, j
	} else {
		s := auth.NewTokenStore(ttl)
		issuer, validator, revoker = s, s, s
	}

	// Repositories and services
	identitySvc := identity.NewService(identity.NewRepoPG(pool))
	profileSvc := profile.NewService(profile.NewRepoPG(pool))
	labRepo := labreport.NewRepoPG(pool)
	hospitalRepo := hospital.NewRepoPG(pool)
	hospitalSvc := hospital.NewService(hospitalRepo)
	planSvc := recommendation.NewService(recommendation.NewRepoPG(pool), hospitalRepo)

	engine := decision.NewEngine(store, store.GuidelineIndex(), client, metrics, logger)

	pl := planner.New(planner.Deps{
		Questions:  question.NewGenerator(client, metrics, logger),
		Profiles:   profileSvc,
		LabReports: labRepo,
		Decisions:  engine,
		Builder:    recommendation.NewBuilder(logger),
		Explainer:  recommendation.NewExplanationBuilder(client, metrics, logger),
		Plans:      planSvc,
		Identity:   identitySvc,
		Tokens:     validator,
		Publisher:  publisher,
		Metrics:    metrics,
		RunTx: func(ctx context.Context, fn func(ctx context.Context) error) error {
			return db.RunInTx(ctx, pool, fn)
		},
	}, logger)
	registry := planner.NewRegistry(metrics)

	// Echo server
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	// Global middleware
	e.Use(middleware.Recovery(logger))
	e.Use(middleware.RequestID())
	e.Use(middleware.Logger(logger))
	e.Use(metrics.TracingMiddleware())
	e.Use(metrics.MetricsMiddleware())
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
		AllowOrigins: cfg.CORSOrigins,
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete},
		AllowHeaders: []string{"Authorization", "Content-Type", "X-Request-ID"},
	}))

	if cfg.ResolvedAuthMode() == "development" {
		e.Use(auth.DevAuthMiddleware())
	}

	// Health and metrics
	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{
			"status":  "healthy",
			"service": "Healthcare Planning Assistant Agent",
		})
	})
	e.GET("/health/db", db.HealthHandler(pool))
	e.GET("/metrics", metrics.PrometheusHandler())

	// API group
	api := e.Group("/api")
	api.Use(middleware.RateLimit(middleware.DefaultRateLimitConfig()))
	api.Use(middleware.RequestTimeout(60 * time.Second))

	identityHandler := identity.NewHandler(identitySvc, issuer, validator, revoker, publisher, logger)
	identityHandler.RegisterRoutes(api)

	hospitalHandler := hospital.NewHandler(hospitalSvc)
	hospitalHandler.RegisterRoutes(api)

	plannerHandler := planner.NewHandler(pl, registry, logger)
	plannerHandler.RegisterRoutes(api)

	// Pool gauges for /metrics
	go func() {
		t := time.NewTicker(30 * time.Second)
		defer t.Stop()
		for range t.C {
			stats := db.GetPoolStats(pool)
			hm := metrics.HealthMetrics()
			hm.SetDBPoolActive(int64(stats.AcquiredConns))
			hm.SetDBPoolIdle(int64(stats.IdleConns))
		}
	}()

	// Graceful shutdown
	go func() {
		addr := ":" + cfg.Port
		logger.Info().
			Str("addr", addr).
			Str("auth_mode", cfg.ResolvedAuthMode()).
			Msg("starting server")
		if err := e.Start(addr); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info().Msg("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		logger.Fatal().Err(err).Msg("server shutdown failed")
	}
	if err := metrics.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("telemetry shutdown failed")
	}
	logger.Info().Msg("server stopped")
	return nil
}
