// Package main runs the walkthrough recording HTTP server with its session pipeline and graceful shutdown.
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/shookla/walkthroughs/config"
	"github.com/shookla/walkthroughs/internal/automation"
	"github.com/shookla/walkthroughs/internal/browser"
	"github.com/shookla/walkthroughs/internal/emaillogs"
	"github.com/shookla/walkthroughs/internal/generation"
	"github.com/shookla/walkthroughs/internal/mailer"
	"github.com/shookla/walkthroughs/internal/middleware"
	"github.com/shookla/walkthroughs/internal/orchestrator"
	"github.com/shookla/walkthroughs/internal/realtime"
	"github.com/shookla/walkthroughs/internal/recordings"
	"github.com/shookla/walkthroughs/internal/walkthroughs"
	"github.com/shookla/walkthroughs/internal/worker"
	"github.com/shookla/walkthroughs/pkg/database"
	"github.com/shookla/walkthroughs/pkg/queue"
	"github.com/shookla/walkthroughs/pkg/redis"
	"github.com/shookla/walkthroughs/pkg/storage"
)

func main() {
	logger := newLogger()
	defer logger.Sync()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("load config", zap.Error(err))
	}

	ctx := context.Background()
	pool, err := database.NewPostgresPool(ctx, cfg.Database.DSN(), logger)
	if err != nil {
		logger.Fatal("database", zap.Error(err))
	}
	defer pool.Close()

	if err := database.Migrate(ctx, pool, logger); err != nil {
		logger.Fatal("migrate", zap.Error(err))
	}

	var rdb *redis.Client
	if cfg.Redis.Addr != "" {
		rdb, err = redis.NewClient(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB, logger)
		if err != nil {
			logger.Warn("redis disabled", zap.Error(err))
			rdb = nil
		} else {
			defer rdb.Close()
		}
	}

	var s3Client *storage.S3
	if cfg.AWS.Bucket != "" {
		s3Client, err = storage.NewS3(ctx, storage.S3Config{
			Region:               cfg.AWS.Region,
			AccessKeyID:          cfg.AWS.AccessKeyID,
			SecretAccessKey:      cfg.AWS.SecretAccessKey,
			Bucket:               cfg.AWS.Bucket,
			Endpoint:             cfg.AWS.Endpoint,
			PublicRead:           cfg.AWS.PublicRead,
			PresignExpireMinutes: cfg.AWS.PresignExpireMinutes,
		}, logger)
		if err != nil {
			logger.Warn("s3 disabled", zap.Error(err))
			s3Client = nil
		}
	}

	walkthroughRepo := walkthroughs.NewRepository(pool)
	emailLogsRepo := emaillogs.NewRepository(pool)
	emailLogsHandler := emaillogs.NewHandler(emailLogsRepo)

	// Session events: local fan-out, bridged through Redis when available.
	var hub *realtime.Hub
	if rdb != nil {
		ps := realtime.NewRedisPubSub(rdb.Client, logger)
		hub = realtime.NewHub(logger, ps, ps)
	} else {
		hub = realtime.NewHub(logger, nil, nil)
	}

	// CDN upload: needs both Redis and S3.
	var uploads orchestrator.UploadQueue
	var uploadProcessor *worker.UploadProcessor
	if rdb != nil && s3Client != nil {
		jobQueue := queue.NewQueue(rdb.Client, logger)
		uploads = jobQueue
		uploadProcessor = worker.NewUploadProcessor(walkthroughRepo, s3Client, jobQueue, logger)
	}

	chain := newGenerationChain(ctx, cfg.AI, logger)

	var mail mailer.Transport
	if m := mailer.NewSMTP(mailer.Config{
		Host:     cfg.Email.SMTPHost,
		Port:     cfg.Email.SMTPPort,
		Username: cfg.Email.SMTPUser,
		Password: cfg.Email.SMTPPass,
		From:     cfg.Email.From,
	}); m != nil {
		mail = m
	} else {
		logger.Warn("email notifications disabled: SMTP_USERNAME/SMTP_PASSWORD not set")
	}

	launcher := browser.NewLauncher(browser.Config{
		ControlURL: cfg.Browser.ControlURL,
		Bin:        cfg.Browser.Bin,
		Headless:   cfg.Browser.Headless,
		NoSandbox:  cfg.Browser.NoSandbox,
		Flags:      cfg.Browser.Flags,
		FFmpegPath: cfg.Browser.FFmpegPath,
		FrameRate:  cfg.Browser.FrameRate,
		Quality:    cfg.Browser.Quality,
	}, logger)
	rec := automation.NewRecorder(launcher, automation.Config{
		OutputDir:         cfg.Recording.OutputDir,
		PublicPath:        cfg.Recording.PublicPath,
		FallbackVideoURL:  cfg.Recording.FallbackVideoURL,
		NavigationTimeout: cfg.Recording.NavigationTimeout,
		TypingDelay:       cfg.Recording.TypingDelay,
		Timings:           automation.DefaultTimings(),
	}, logger)

	svc := orchestrator.NewService(orchestrator.Deps{
		Generator:     chain,
		Recorder:      rec,
		PostProcessor: orchestrator.DelayProcessor{Delay: cfg.Recording.ProcessingDelay},
		Persistence:   walkthroughRepo,
		Mailer:        mail,
		EmailLogs:     emailLogsRepo,
		Events:        hub,
		Uploads:       uploads,
	}, orchestrator.Config{
		SystemUserID:  cfg.Persistence.SystemUserID,
		Retention:     cfg.Recording.Retention,
		NotifyTimeout: cfg.Recording.NotifyTimeout,
	}, logger)

	var presign recordings.Presigner
	if s3Client != nil {
		presign = s3Client
	}
	recordingHandler := recordings.NewHandler(svc, chain, walkthroughRepo, presign, cfg.Server.Version, logger)

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.CORS(cfg.Server.CORSAllowedOrigins))
	router.Use(middleware.Logger(logger, "/api/health", "/api/record/:sessionId/status"))

	api := router.Group("/api")
	recordingHandler.Register(api)
	api.GET("/record/:sessionId/events", realtime.ServeSessionEvents(hub, svc, logger))
	api.GET("/email-logs", emailLogsHandler.List)

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
	}

	bgCtx, bgCancel := context.WithCancel(context.Background())
	defer bgCancel()
	go svc.RunReaper(bgCtx, cfg.Recording.ReapInterval)
	if uploadProcessor != nil {
		go uploadProcessor.Run(bgCtx)
		logger.Info("upload worker started")
	}

	go func() {
		logger.Info("server listening", zap.String("port", cfg.Server.Port), zap.Strings("providers", chain.Providers()))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown", zap.Error(err))
	}
	drainCtx, drainCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer drainCancel()
	if err := svc.Shutdown(drainCtx); err != nil {
		logger.Warn("recording sessions cancelled at shutdown", zap.Error(err))
	}
	bgCancel()
	logger.Info("server stopped")
}

// newGenerationChain registers OpenAI then Gemini; providers without keys are skipped.
func newGenerationChain(ctx context.Context, cfg config.AIConfig, logger *zap.Logger) *generation.Chain {
	var providers []generation.Provider
	if p := generation.NewOpenAI(cfg.OpenAIKey, cfg.OpenAIBaseURL, cfg.OpenAIModel); p != nil {
		providers = append(providers, p)
	}
	g, err := generation.NewGemini(ctx, cfg.GeminiKey, cfg.GeminiModel)
	if err != nil {
		logger.Warn("gemini disabled", zap.Error(err))
	} else if g != nil {
		providers = append(providers, g)
	}
	return generation.NewChain(logger, providers...)
}

func newLogger() *zap.Logger {
	config := zap.NewProductionConfig()
	config.EncoderConfig.TimeKey = "timestamp"
	config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	logger, _ := config.Build()
	return logger
}
