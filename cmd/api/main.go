package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/intervox-ai/intervox/internal/api"
	"github.com/intervox-ai/intervox/internal/audit"
	"github.com/intervox-ai/intervox/internal/auth"
	"github.com/intervox-ai/intervox/internal/config"
	"github.com/intervox-ai/intervox/internal/database"
	"github.com/intervox-ai/intervox/internal/events"
	"github.com/intervox-ai/intervox/internal/interview"
	"github.com/intervox-ai/intervox/internal/llm"
	"github.com/intervox-ai/intervox/internal/proctor"
	"github.com/intervox-ai/intervox/internal/questions"
	"github.com/intervox-ai/intervox/internal/rategate"
	iredis "github.com/intervox-ai/intervox/internal/redis"
	"github.com/intervox-ai/intervox/internal/server"
	"github.com/intervox-ai/intervox/internal/session"
	"github.com/intervox-ai/intervox/internal/speech"
	"github.com/intervox-ai/intervox/internal/usage"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("loading config", "error", err)
		os.Exit(1)
	}

	setupLogger(cfg.Log)

	if err := cfg.Validate(); err != nil {
		slog.Error("invalid config", "error", err)
		os.Exit(1)
	}

	ctx := context.Background()

	// PostgreSQL
	if err := database.RunMigrations(cfg.DB.DSN(), "migrations"); err != nil {
		slog.Error("applying migrations", "error", err)
		os.Exit(1)
	}
	pool, err := database.NewPostgresPool(ctx, cfg.DB)
	if err != nil {
		slog.Error("connecting to postgres", "error", err)
		os.Exit(1)
	}
	defer pool.Close()

	// Redis
	redisClient, err := iredis.NewClient(ctx, cfg.Redis)
	if err != nil {
		slog.Error("connecting to redis", "error", err)
		os.Exit(1)
	}
	defer redisClient.Close()

	// NATS (optional)
	var eventsClient *events.Client
	var publisher *events.Publisher
	if cfg.NATS.Enabled {
		eventsClient, err = events.NewClient(ctx, cfg.NATS)
		if err != nil {
			slog.Error("connecting to NATS", "error", err)
			os.Exit(1)
		}
		defer eventsClient.Close()
		publisher = events.NewPublisher(eventsClient.JetStream())
	} else {
		slog.Info("NATS disabled, interview events will not be published")
	}

	// Usage ledger
	usageRepo := usage.NewRepository(pool)
	ledger := usage.NewLedger(usageRepo, cfg.Limits, nil)

	// Session registry
	sessionRepo := session.NewRepository(pool)
	registry := session.NewRegistry(sessionRepo, nil)

	// Question bank + generator
	questionRepo := questions.NewRepository(pool)
	questionCache := llm.NewQuestionCache(redisClient, cfg.OpenAI.QuestionCacheTTL)
	generator := llm.NewClient(cfg.OpenAI, ledger, questionCache)
	transcriber := speech.NewTranscriber(cfg.OpenAI, cfg.Limits.MaxAudioUploadBytes)

	// Admission controller
	controller := interview.NewController(ledger, registry, questionRepo, generator,
		publisher, cfg.Limits, nil)
	interviewHandler := interview.NewHandler(controller, transcriber)

	// Rate gate
	gate := rategate.New(redisClient, nil)

	// Admin auth
	var mailer auth.Mailer = auth.LogMailer{}
	if cfg.SMTP.Host != "" {
		mailer = auth.NewSMTPMailer(cfg.SMTP)
	}
	authSvc := auth.NewService(cfg.Admin,
		auth.NewOTPStore(redisClient, cfg.Admin.OTPTTL, cfg.Admin.OTPMaxAttempts),
		auth.NewTokenManager(cfg.Admin.TokenSecret, cfg.Admin.TokenExpiry, nil),
		mailer)
	authHandler := auth.NewHandler(authSvc)

	// Questions admin + proctoring
	questionHandler := questions.NewHandler(questionRepo)
	proctorRepo := proctor.NewRepository(pool)
	proctorHandler := proctor.NewHandler(proctorRepo)

	// Audit trail: handler always, consumer only with NATS
	auditRepo := audit.NewRepository(pool)
	auditHandler := audit.NewHandler(auditRepo)
	shutdownCtx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	if eventsClient != nil {
		consumer := audit.NewConsumer(eventsClient, auditRepo, slog.Default())
		go func() {
			if err := consumer.Run(shutdownCtx); err != nil {
				slog.Error("audit consumer stopped", "error", err)
			}
		}()
	}

	// Router
	router := api.NewRouter(pool, eventsClient, api.RouterConfig{
		CORSAllowedOrigins: cfg.CORS.AllowedOrigins,
		RateLimiter:        api.RateLimit(gate, cfg.Limits.RequestsPerMinute),
	}, api.HandlerSet{
		StartInterview: interviewHandler.Start,
		NextQuestion:   interviewHandler.Next,
		AnswerAudio:    interviewHandler.Answer,
		Usage:          interviewHandler.Usage,
		ProctorLog:     proctorHandler.Log,

		RequestCode: authHandler.RequestCode,
		VerifyCode:  authHandler.VerifyCode,
		VerifyKey:   authHandler.VerifyKey,

		ListQuestions:   questionHandler.List,
		CreateQuestion:  questionHandler.Create,
		UpdateQuestion:  questionHandler.Update,
		DeleteQuestion:  questionHandler.Delete,
		ListProctorLog:  proctorHandler.List,
		ListAuditTrail:  auditHandler.List,
		AdminMiddleware: authHandler.RequireAdmin,
	})

	// Start server
	srv := server.New(cfg.Server, router)
	if err := srv.Start(); err != nil {
		slog.Error("server error", "error", err)
		os.Exit(1)
	}
}

func setupLogger(cfg config.LogConfig) {
	var handler slog.Handler

	opts := &slog.HandlerOptions{}
	switch cfg.Level {
	case "debug":
		opts.Level = slog.LevelDebug
	case "info":
		opts.Level = slog.LevelInfo
	case "warn":
		opts.Level = slog.LevelWarn
	case "error":
		opts.Level = slog.LevelError
	default:
		opts.Level = slog.LevelInfo
	}

	if cfg.Format == "json" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}

	slog.SetDefault(slog.New(handler))
}
