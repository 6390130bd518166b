package main

import (
	"context"
	"database/sql"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/sisarm/sisarm-search/internal/api/router"
	"github.com/sisarm/sisarm-search/internal/catalog"
	"github.com/sisarm/sisarm-search/internal/chat"
	appconfig "github.com/sisarm/sisarm-search/internal/config"
	"github.com/sisarm/sisarm-search/internal/importer"
	"github.com/sisarm/sisarm-search/internal/license"
	"github.com/sisarm/sisarm-search/internal/notify"
	"github.com/sisarm/sisarm-search/internal/observability/metrics"
	"github.com/sisarm/sisarm-search/internal/support"
	"github.com/sisarm/sisarm-search/internal/uploads"
	"github.com/sisarm/sisarm-search/internal/webchat"
	"github.com/sisarm/sisarm-search/pkg/logging"
)

func main() {
	_ = godotenv.Load()

	// Load configuration
	cfg := appconfig.Load()

	// Initialize logger
	logger := logging.New(cfg.LogLevel)
	logger.Info("starting sisarm-search API server",
		"env", cfg.Env,
		"port", cfg.Port,
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if cfg.DatabaseURL == "" {
		logger.Error("DATABASE_URL is required")
		os.Exit(1)
	}
	db, err := sql.Open("pgx", cfg.DatabaseURL)
	if err != nil {
		logger.Error("failed to open database", "error", err)
		os.Exit(1)
	}
	defer func() { _ = db.Close() }()
	if err := db.PingContext(ctx); err != nil {
		logger.Error("database unreachable", "error", err)
		os.Exit(1)
	}

	reg := prometheus.NewRegistry()
	appMetrics := metrics.NewAppMetrics(reg)

	// Catalog
	catalogRepo := catalog.NewPostgresRepository(db)
	catalogHandler := catalog.NewHandler(catalogRepo, appMetrics, logger)

	// Import handshake: parked uploads, preview, commit, optional S3 archive
	uploadStore, err := uploads.NewStore(cfg.UploadDir, cfg.UploadTTL, logger)
	if err != nil {
		logger.Error("failed to init upload store", "error", err)
		os.Exit(1)
	}
	go uploadStore.RunSweeper(ctx, cfg.UploadSweepInterval)

	var archiver uploads.Archiver = uploads.NopArchiver{}
	if cfg.ArchiveBucket != "" {
		s3Archiver, err := uploads.NewS3Archiver(ctx, uploads.S3Config{
			Region:    cfg.AWSRegion,
			Bucket:    cfg.ArchiveBucket,
			AccessKey: cfg.AWSAccessKeyID,
			SecretKey: cfg.AWSSecretAccessKey,
			Endpoint:  cfg.AWSEndpointOverride,
		}, logger)
		if err != nil {
			logger.Error("failed to init workbook archiver", "error", err)
			os.Exit(1)
		}
		archiver = s3Archiver
	}

	runsRepo := importer.NewPostgresRunsRepository(db)
	previewer := importer.NewPreviewer(catalogRepo, logger)
	committer := importer.NewCommitter(catalogRepo, runsRepo, appMetrics, logger)
	importHandler := importer.NewHandler(previewer, committer, catalogRepo, runsRepo, uploadStore, archiver, logger)

	// Licensing
	licenseService := license.NewService(license.NewPostgresRepository(db), logger)
	licenseHandler := license.NewHandler(licenseService, logger)
	licenseHandler.TrialEnabled = cfg.LicenseTrialEnabled

	// Chat assistant: rules + sessions + optional Gemini upstream
	var sessions chat.SessionStore
	if cfg.RedisAddr != "" {
		rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr, Password: cfg.RedisPassword})
		if err := rdb.Ping(ctx).Err(); err != nil {
			logger.Error("redis unreachable", "error", err, "addr", cfg.RedisAddr)
			os.Exit(1)
		}
		sessions = chat.NewRedisStore(rdb, cfg.ChatSessionTTL)
		defer func() { _ = rdb.Close() }()
	} else {
		sessions = chat.NewMemoryStore(cfg.ChatSessionTTL)
		logger.Warn("REDIS_ADDR not set, chat sessions held in memory")
	}

	var upstream chat.IntentClient
	if cfg.GeminiAPIKey != "" {
		gemini, err := chat.NewGeminiIntentClient(ctx, cfg.GeminiAPIKey, cfg.GeminiModel)
		if err != nil {
			logger.Error("failed to init gemini client", "error", err)
			os.Exit(1)
		}
		defer func() { _ = gemini.Close() }()
		upstream = gemini
	}

	controller := chat.NewController(
		chat.NewMatcher(chat.DefaultRules()),
		sessions,
		licenseService,
		upstream,
		appMetrics,
		logger,
		chat.Options{
			SupportPath:    cfg.SupportPath,
			WhatsAppNumber: cfg.WhatsAppNumber,
			WhatsAppText:   cfg.WhatsAppText,
		},
	)
	chatHandler := chat.NewHandler(controller, logger)
	webchatHandler := webchat.NewHandler(controller, webchat.DefaultWidgetJS, logger)

	// Support requests, relayed by email when SendGrid is configured
	var emailSender notify.EmailSender
	if sg := notify.NewSendGridSender(notify.SendGridConfig{
		APIKey:    cfg.SendGridAPIKey,
		FromEmail: cfg.SendGridFromEmail,
		FromName:  cfg.SendGridFromName,
	}, logger); sg != nil {
		emailSender = sg
	} else {
		emailSender = notify.NewStubEmailSender(logger)
		logger.Warn("SENDGRID_API_KEY not set, support emails are logged only")
	}
	supportService := support.NewService(support.NewPostgresRepository(db), emailSender, cfg.SupportInbox, logger)
	supportHandler := support.NewHandler(supportService, logger)

	// Lock CORS down to the public frontend when one is configured.
	var corsOrigins []string
	if cfg.PublicBaseURL != "" {
		corsOrigins = []string{cfg.PublicBaseURL}
	}

	// Setup router
	r := router.New(&router.Config{
		Logger:             logger,
		CatalogHandler:     catalogHandler,
		ImportHandler:      importHandler,
		ChatHandler:        chatHandler,
		WebChatHandler:     webchatHandler,
		SupportHandler:     supportHandler,
		LicenseHandler:     licenseHandler,
		LicenseService:     licenseService,
		JWTSecret:          cfg.JWTSecret,
		AdminAuthSecret:    cfg.AdminJWTSecret,
		MetricsHandler:     promhttp.HandlerFor(reg, promhttp.HandlerOpts{}),
		CORSAllowedOrigins: corsOrigins,
	})

	// Create HTTP server
	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	// Start server in a goroutine
	go func() {
		logger.Info("server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down server...")

	// Graceful shutdown with timeout
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server forced to shutdown", "error", err)
		os.Exit(1)
	}

	logger.Info("server stopped")
}
