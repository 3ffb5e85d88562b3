// File: cmd/app/main.go
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"creator-twin-backend/internal/config"
	"creator-twin-backend/internal/domain/ports/adapter"
	aiAdapters "creator-twin-backend/internal/infra/adapters/ai"
	"creator-twin-backend/internal/infra/adapters/voice"
	"creator-twin-backend/internal/infra/adapters/youtube"
	pg "creator-twin-backend/internal/infra/db/postgres"
	"creator-twin-backend/internal/infra/logging"
	"creator-twin-backend/internal/infra/metrics"
	red "creator-twin-backend/internal/infra/redis"
	"creator-twin-backend/internal/infra/sched"
	"creator-twin-backend/internal/infra/tracker"
	"creator-twin-backend/internal/infra/web"
	"creator-twin-backend/internal/infra/worker"
	"creator-twin-backend/internal/usecase"
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// ---- CLI flags ----
	cfgPath := flag.String("config", "config.yaml", "path to YAML config file")
	devMode := flag.Bool("dev", false, "enable developer mode (relaxed validation, console logs)")
	flag.Parse()

	cfg, err := config.LoadConfig(*cfgPath, *devMode)
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	logger := logging.New(cfg.Log, cfg.Runtime.Dev)
	if cfg.Runtime.Dev {
		logger.Warn().Msg("dev mode enabled")
	}
	metrics.MustRegister()

	// ---- Postgres ----
	pool, err := pg.NewPgxPool(ctx, cfg.Database.URL, cfg.Database.PoolSize)
	if err != nil {
		logger.Fatal().Err(err).Msg("postgres")
	}
	defer pool.Close()
	tm := pg.NewTxManager(pool)

	// ---- Redis ----
	redisClient, err := red.NewClient(ctx, &cfg.Redis)
	if err != nil {
		logger.Fatal().Err(err).Msg("redis")
	}
	defer redisClient.Close()
	rateLimiter := red.NewRateLimiter(redisClient)
	sessionCache := red.NewSessionCache(redisClient, cfg.Redis.TTL)

	// ---- Repositories ----
	sessionRepo := pg.NewPostgresChatSessionRepo(pool, sessionCache)
	videoJobRepo := pg.NewVideoJobRepo(pool, tm)
	channelJobRepo := pg.NewChannelJobRepo(pool)
	creatorRepo := pg.NewCreatorRepo(pool)
	chunkRepo := pg.NewTranscriptChunkRepo(pool)

	// ---- AI adapter ----
	var ai adapter.AIServiceAdapter
	switch cfg.AI.Provider {
	case "gemini":
		ai, err = aiAdapters.NewGeminiAdapter(ctx, cfg.AI.GeminiKey, cfg.AI.GeminiURL, cfg.AI.SummaryModel, 1024)
		if err != nil {
			logger.Fatal().Err(err).Msg("gemini adapter")
		}
	default:
		ai, err = aiAdapters.NewOpenAIAdapter(cfg.AI.OpenAIKey, cfg.AI.SummaryModel)
		if err != nil {
			logger.Fatal().Err(err).Msg("openai adapter")
		}
	}
	ai = aiAdapters.NewLimitedAI(ai, cfg.AI.ConcurrentLimit)

	// ---- External services ----
	var rooms adapter.RoomServiceAdapter
	if cfg.Voice.Host != "" {
		rooms, err = voice.NewRoomService(cfg.Voice.Host, cfg.Voice.APIKey, cfg.Voice.APISecret)
		if err != nil {
			logger.Fatal().Err(err).Msg("room service")
		}
	} else if cfg.Runtime.Dev {
		logger.Warn().Msg("voice.host not set; using noop room service")
		rooms = voice.NoopRoomService{}
	} else {
		logger.Fatal().Msg("voice.host is required outside dev mode")
	}

	extractor, err := youtube.NewExtractor(cfg.Youtube.ResolverURL)
	if err != nil {
		logger.Fatal().Err(err).Msg("youtube extractor")
	}

	// ---- Background services ----
	summaryUC := usecase.NewSummaryUseCase(sessionRepo, ai, cfg.AI.SummaryModel, cfg.AI.PromptBudget, logger)
	convTracker := tracker.NewConversationTracker(cfg.Tracker.SweepInterval, cfg.Tracker.IdleThreshold, summaryUC, logger)
	processor := worker.NewVideoJobProcessor(videoJobRepo, chunkRepo, extractor, cfg.Jobs.PollInterval, cfg.Jobs.ChunkSize, logger)
	workerPool := worker.NewPool(cfg.Jobs.Workers, logger)
	runner := sched.NewRunner(convTracker, processor, workerPool, logger)
	runner.Start(ctx)
	defer runner.Stop()

	// ---- Use cases ----
	convUC := usecase.NewConversationUseCase(sessionRepo, convTracker)
	jobUC := usecase.NewJobUseCase(videoJobRepo, channelJobRepo, creatorRepo, extractor)
	voiceUC := usecase.NewVoiceUseCase(rooms, logger)

	// ---- HTTP server ----
	auth := web.NewAuthManager(cfg.Auth.HMACSecret, cfg.Auth.TokenTTL)
	srv := web.NewServer(convUC, jobUC, voiceUC, runner, auth, rateLimiter, cfg.RateLimit.TranscriptionPerMinute, logger)

	go func() {
		addr := fmt.Sprintf(":%d", cfg.Server.Port)
		if err := srv.ListenAndServe(ctx, addr); err != nil {
			logger.Error().Err(err).Msg("http server stopped")
			cancel()
		}
	}()

	// ---- Graceful shutdown ----
	sigc := make(chan os.Signal, 1)
	signal.Notify(sigc, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-sigc:
		logger.Info().Msg("shutdown requested")
	case <-ctx.Done():
	}
	cancel()
}
