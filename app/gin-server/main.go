package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"

	"github.com/yoockh/audition/config"
	"github.com/yoockh/audition/internal/api/handlers"
	"github.com/yoockh/audition/internal/api/middleware"
	"github.com/yoockh/audition/internal/api/routes"
	"github.com/yoockh/audition/internal/cache"
	"github.com/yoockh/audition/internal/logger"
	"github.com/yoockh/audition/internal/metrics"
	"github.com/yoockh/audition/internal/providers/stt"
	"github.com/yoockh/audition/internal/queue"
	mongorepo "github.com/yoockh/audition/internal/repositories/mongo"
	pgrepo "github.com/yoockh/audition/internal/repositories/postgres"
	"github.com/yoockh/audition/internal/services"
	"github.com/yoockh/audition/internal/storage"
	"github.com/yoockh/audition/internal/workers"
)

func main() {
	_ = godotenv.Load()
	log := logger.New()

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		log.WithError(err).Fatal("invalid configuration")
	}
	if cfg.SupabaseJWTSecret == "" {
		log.Warn("SUPABASE_JWT_SECRET is empty: requests are not authenticated")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Init PostgreSQL
	db, err := config.NewPostgres(cfg.PostgresURI)
	if err != nil {
		log.WithError(err).Fatal("PostgreSQL init error")
	}
	if cfg.AutoMigrate {
		if err := config.Migrate(db); err != nil {
			log.WithError(err).Fatal("PostgreSQL migrate error")
		}
	}
	log.Info("PostgreSQL connected")

	// Init MongoDB
	mc, err := config.NewMongo(ctx, cfg)
	if err != nil {
		log.WithError(err).Fatal("MongoDB init error")
	}
	defer func() { _ = mc.Disconnect(context.Background()) }()
	mdb := mc.Database(cfg.MongoDB)
	if err := config.EnsureMongoIndexes(ctx, mdb); err != nil {
		log.WithError(err).Fatal("MongoDB index error")
	}
	log.Info("MongoDB connected")

	// Init Redis
	rdb, err := config.NewRedis(ctx, cfg.RedisAddr)
	if err != nil {
		log.WithError(err).Fatal("Redis init error")
	}
	defer rdb.Close()
	log.Info("Redis connected")

	// Google Cloud
	store, err := storage.NewGCSStore(ctx, cfg.GCSBucket, cfg.GCPCredentials, cfg.GCSSignerEmail)
	if err != nil {
		log.WithError(err).Fatal("GCS init error")
	}
	defer store.Close()
	speech, err := stt.NewGoogleSpeech(ctx, cfg.GCPCredentials)
	if err != nil {
		log.WithError(err).Fatal("Speech-to-Text init error")
	}
	defer speech.Close()

	// Repositories
	oppRepo := pgrepo.NewOpportunityRepo(db)
	subRepo := pgrepo.NewSubmissionRepo(db)
	answerRepo := pgrepo.NewAnswerRepo(db)
	surveyRepo := pgrepo.NewSurveyRepo(db)
	sessionRepo := mongorepo.NewAuditionSessionRepo(mdb)

	// Services
	oppSvc := services.NewOpportunityService(oppRepo, cache.NewRedisCache(rdb, "audition:"), cfg.QuestionCacheTTL)
	auditionSvc := services.NewAuditionService(oppSvc, subRepo, answerRepo, sessionRepo, services.AuditionConfig{
		GlobalSeconds: cfg.GlobalSeconds,
		SessionTTL:    cfg.SessionTTL,
	})
	answerSvc := services.NewAnswerService(subRepo, answerRepo, sessionRepo, store, queue.NewRedisStream(rdb, cfg.TranscribeStream), services.AnswerConfig{
		MaxAudioBytes: cfg.MaxAudioBytes,
		Language:      cfg.STTLanguage,
		URLExpiry:     cfg.SignedURLExpiry,
	})
	surveySvc := services.NewSurveyService(subRepo, surveyRepo)
	reviewSvc := services.NewReviewService(subRepo, surveyRepo, store, cfg.SignedURLExpiry)

	// Workers
	pool := &workers.TranscriptionWorkerPool{
		Redis:          rdb,
		Answers:        answerSvc,
		Audio:          store,
		STT:            speech,
		NumWorkers:     cfg.WorkerConcurrency,
		Logger:         log,
		Stream:         cfg.TranscribeStream,
		Group:          cfg.TranscribeGroup,
		ConsumerPrefix: hostname(),
		Language:       cfg.STTLanguage,
	}
	if err := pool.Start(ctx); err != nil {
		log.WithError(err).Fatal("worker pool start error")
	}

	// HTTP
	gin.SetMode(cfg.GinMode)
	r := gin.New()
	r.Use(gin.Recovery(), middleware.RequestLogger(log), metrics.Middleware())
	routes.RegisterRoutes(r, routes.Deps{
		Opportunity: handlers.NewOpportunityHandler(oppSvc),
		Audition:    handlers.NewAuditionHandler(auditionSvc, answerSvc, cfg.MaxAudioBytes),
		Survey:      handlers.NewSurveyHandler(surveySvc),
		Review:      handlers.NewReviewHandler(reviewSvc),
		WS:          handlers.NewWSHandler(auditionSvc, rdb, log, cfg.AllowedOrigins),
		Auth: middleware.JWTConfig{
			Secret:   cfg.SupabaseJWTSecret,
			Issuer:   cfg.SupabaseJWTIssuer,
			Audience: cfg.SupabaseJWTAudience,
		},
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           middleware.CORS(cfg.AllowedOrigins)(r),
		ReadHeaderTimeout: cfg.ReadHeaderTimeout,
	}
	go func() {
		log.WithField("port", cfg.Port).Info("server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.WithError(err).Error("server stopped")
			stop()
		}
	}()

	<-ctx.Done()
	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Warn("graceful shutdown failed")
	}
}

func hostname() string {
	h, err := os.Hostname()
	if err != nil || h == "" {
		return "transcriber"
	}
	return h
}
