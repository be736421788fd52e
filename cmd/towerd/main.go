package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	gormlogger "gorm.io/gorm/logger"

	"github.com/nlogistics/control-tower/internal/api"
	"github.com/nlogistics/control-tower/internal/audit"
	"github.com/nlogistics/control-tower/internal/auth"
	"github.com/nlogistics/control-tower/internal/config"
	"github.com/nlogistics/control-tower/internal/db"
	"github.com/nlogistics/control-tower/internal/emitter"
	"github.com/nlogistics/control-tower/internal/eventlog"
	"github.com/nlogistics/control-tower/internal/externalapi"
	"github.com/nlogistics/control-tower/internal/forensic"
	"github.com/nlogistics/control-tower/internal/geo"
	"github.com/nlogistics/control-tower/internal/grpcapi"
	"github.com/nlogistics/control-tower/internal/integrity"
	"github.com/nlogistics/control-tower/internal/notification"
	"github.com/nlogistics/control-tower/internal/projector"
	"github.com/nlogistics/control-tower/internal/regulator"
	"github.com/nlogistics/control-tower/internal/scheduler"
	"github.com/nlogistics/control-tower/internal/snapshot"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var logLevel string

	root := &cobra.Command{
		Use:   "towerd",
		Short: "National Logistics Control Tower server",
		Long: `towerd is the control tower's server process. It exposes a REST API
over the Event Emitter and the Read-Model Projector, a gRPC regulator/forensic
channel, and runs the scheduler that produces signed compliance snapshots.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd.Context(), logLevel)
		},
	}

	root.AddCommand(newVersionCmd())
	root.PersistentFlags().StringVar(&logLevel, "log-level", envOrDefault("TOWER_LOG_LEVEL", "info"), "Log level (debug, info, warn, error)")

	return root
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("towerd %s (commit: %s, built: %s)\n", version, commit, date)
		},
	}
}

func run(ctx context.Context, logLevel string) error {
	logger, err := buildLogger(logLevel)
	if err != nil {
		return fmt.Errorf("failed to build logger: %w", err)
	}
	defer logger.Sync() //nolint:errcheck

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	logger.Info("starting control tower", zap.String("version", version), zap.Stringer("config", cfg))

	ctx, cancel := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer cancel()

	// --- 1. Event Log ---
	log, err := eventlog.Open(filepath.Join(cfg.DataDir, "events"), logger)
	if err != nil {
		return fmt.Errorf("failed to open event log: %w", err)
	}

	// --- 2. Notification Store + Dispatcher ---
	notifStore, err := notification.OpenStore(filepath.Join(cfg.DataDir, "notifications.jsonl"))
	if err != nil {
		return fmt.Errorf("failed to open notification store: %w", err)
	}
	dispatcher := notification.NewDispatcher(
		notifStore,
		notification.NewEmailSender(cfg.SMTPConfig()),
		notification.NewWebhookSender(cfg.WebhookConfig()),
		logger,
	)

	// --- 3. Event Emitter (geo enrichment + notification fan-out) ---
	emit := emitter.New(log, geo.NewStaticResolver(), logger, emitter.WithPublisher(dispatcher))

	// --- 4. Read-Model Projector ---
	cache := projector.NewCache(log)

	// --- 5. Snapshot Store + Tamper Detector ---
	signer, err := snapshot.NewSigner(cfg.SnapshotSigningKey, cfg.DevModeAllowed())
	if err != nil {
		return fmt.Errorf("failed to build snapshot signer: %w", err)
	}
	snapStore, err := snapshot.Open(filepath.Join(cfg.DataDir, "snapshots"), signer, logger)
	if err != nil {
		return fmt.Errorf("failed to open snapshot store: %w", err)
	}
	detector := integrity.New(snapStore, signer)

	// --- 6. Audit Snapshot Store (GORM) ---
	gormDB, err := db.New(db.Config{
		Driver:   cfg.DBDriver,
		DSN:      cfg.DBDSN,
		Logger:   logger,
		LogLevel: gormLogLevel(logLevel),
	})
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	sqlDB, err := gormDB.DB()
	if err != nil {
		return fmt.Errorf("failed to get sql.DB: %w", err)
	}
	defer sqlDB.Close()
	auditStore := audit.NewStore(gormDB)

	// --- 7. Forensic + Regulator surface (gRPC only, §4.11) ---
	replayer := forensic.New(snapStore, detector)
	timeline := forensic.NewTimelineBuilder(replayer, detector)
	exporter := forensic.NewExporter(replayer, detector, timeline, snapStore, time.Now)
	guard := regulator.New(cfg.RegulatorAllowedFamilies)
	views := regulator.NewViews(guard, replayer, exporter, auditStore)

	grpcSrv := grpcapi.New(grpcapi.Config{
		ListenAddr:   cfg.GRPCAddr,
		SharedSecret: cfg.RegulatorSecret,
	}, views, logger)

	go func() {
		if err := grpcSrv.ListenAndServe(ctx, cfg.GRPCAddr); err != nil {
			logger.Error("gRPC server error", zap.Error(err))
			cancel()
		}
	}()

	// --- 8. External risk providers (weather/route), backed by Redis ---
	redisClient := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
	weatherClient := externalapi.NewWeatherClient(cfg.OpenWeatherAPIKey, redisClient, logger)
	routeClient := externalapi.NewRouteClient(cfg.ORSAPIKey, redisClient, logger)

	// --- 9. Scheduler (snapshot cadence + 17:00 daily rollup) ---
	sched, err := scheduler.New(cache, snapStore, detector, auditStore, dispatcher, cfg.SnapshotCadence, cfg.RollupTimezone, logger)
	if err != nil {
		return fmt.Errorf("failed to create scheduler: %w", err)
	}
	if err := sched.Start(ctx); err != nil {
		return fmt.Errorf("failed to start scheduler: %w", err)
	}
	defer func() {
		if err := sched.Stop(); err != nil {
			logger.Warn("scheduler shutdown error", zap.Error(err))
		}
	}()

	// --- 10. Auth (JWT + optional OIDC) ---
	jwtManager, err := buildJWTManager(cfg, logger)
	if err != nil {
		return fmt.Errorf("failed to initialize JWT manager: %w", err)
	}
	oidcProvider, err := buildOIDCProvider(ctx, jwtManager, logger)
	if err != nil {
		return fmt.Errorf("failed to initialize OIDC provider: %w", err)
	}

	// --- 11. HTTP server ---
	router := api.NewRouter(api.RouterConfig{
		JWTManager:        jwtManager,
		OIDC:              oidcProvider,
		EventLog:          log,
		Emitter:           emit,
		ProjectorCache:    cache,
		SnapshotStore:     snapStore,
		Detector:          detector,
		SnapshotFamilies:  scheduler.Families,
		NotificationStore: notifStore,
		AuditStore:        auditStore,
		Weather:           weatherClient,
		Route:             routeClient,
		Logger:            logger,
		Secure:            cfg.IsProduction(),
		DevLoginEnabled:   !cfg.IsProduction(),
	})

	httpSrv := &http.Server{
		Addr:         cfg.HTTPAddr,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("http server listening", zap.String("addr", cfg.HTTPAddr))
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", zap.Error(err))
			cancel()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down control tower")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer shutdownCancel()

	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		logger.Warn("http server graceful shutdown error", zap.Error(err))
	}
	if err := redisClient.Close(); err != nil {
		logger.Warn("redis client close error", zap.Error(err))
	}

	logger.Info("control tower stopped")
	return nil
}

// buildJWTManager loads RSA keys from disk if configured, or generates
// ephemeral in-memory keys for development. In production, missing key
// paths are fatal — tokens must survive a restart.
func buildJWTManager(cfg config.Config, logger *zap.Logger) (*auth.Manager, error) {
	if cfg.JWTPrivateKeyPath != "" && cfg.JWTPublicKeyPath != "" {
		logger.Info("loading JWT keys from disk", zap.String("private", cfg.JWTPrivateKeyPath))
		return auth.NewManagerFromFiles(cfg.JWTPrivateKeyPath, cfg.JWTPublicKeyPath, "control-tower")
	}

	if cfg.IsProduction() {
		return nil, fmt.Errorf("TOWER_JWT_PRIVATE_KEY_PATH and TOWER_JWT_PUBLIC_KEY_PATH are required in production")
	}

	logger.Warn("JWT key files not configured — using ephemeral in-memory keys (tokens invalidated on restart)")
	return auth.NewManagerGenerated("control-tower")
}

// buildOIDCProvider wires an OIDC provider when TOWER_OIDC_ISSUER is set,
// returning nil (not an error) when OIDC is not configured — dev-login
// and direct JWT issuance remain usable without an identity provider.
func buildOIDCProvider(ctx context.Context, jwtManager *auth.Manager, logger *zap.Logger) (*auth.OIDCProvider, error) {
	issuer := os.Getenv("TOWER_OIDC_ISSUER")
	if issuer == "" {
		return nil, nil
	}

	cfg := auth.OIDCConfig{
		Issuer:       issuer,
		ClientID:     os.Getenv("TOWER_OIDC_CLIENT_ID"),
		ClientSecret: os.Getenv("TOWER_OIDC_CLIENT_SECRET"),
		RedirectURL:  os.Getenv("TOWER_OIDC_REDIRECT_URL"),
		Scopes:       os.Getenv("TOWER_OIDC_SCOPES"),
	}
	provider, err := auth.NewOIDCProvider(ctx, cfg, jwtManager)
	if err != nil {
		return nil, err
	}
	logger.Info("OIDC provider configured", zap.String("issuer", issuer))
	return provider, nil
}

func gormLogLevel(level string) gormlogger.LogLevel {
	switch level {
	case "debug":
		return gormlogger.Info
	case "info":
		return gormlogger.Warn
	default:
		return gormlogger.Error
	}
}

func buildLogger(level string) (*zap.Logger, error) {
	var cfg zap.Config

	switch level {
	case "debug":
		cfg = zap.NewDevelopmentConfig()
	default:
		cfg = zap.NewProductionConfig()
	}

	switch level {
	case "debug":
		cfg.Level = zap.NewAtomicLevelAt(zap.DebugLevel)
	case "info":
		cfg.Level = zap.NewAtomicLevelAt(zap.InfoLevel)
	case "warn":
		cfg.Level = zap.NewAtomicLevelAt(zap.WarnLevel)
	case "error":
		cfg.Level = zap.NewAtomicLevelAt(zap.ErrorLevel)
	default:
		cfg.Level = zap.NewAtomicLevelAt(zap.InfoLevel)
	}

	return cfg.Build()
}

func envOrDefault(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}
