// File: internal/infra/web/server.go
package web

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"creator-twin-backend/internal/infra/sched"
	"creator-twin-backend/internal/usecase"
)

// rateLimiter is the slice of the Redis limiter the transcription route
// needs. Nil disables limiting (tests, dev mode without Redis).
type rateLimiter interface {
	Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, error)
}

type Server struct {
	conversations usecase.ConversationUseCase
	jobs          usecase.JobUseCase
	voice         usecase.VoiceUseCase
	runner        *sched.Runner
	auth          *AuthManager
	limiter       rateLimiter
	limitPerMin   int
	log           *zerolog.Logger
}

func NewServer(
	conversations usecase.ConversationUseCase,
	jobs usecase.JobUseCase,
	voice usecase.VoiceUseCase,
	runner *sched.Runner,
	auth *AuthManager,
	limiter rateLimiter,
	limitPerMin int,
	logger *zerolog.Logger,
) *Server {
	srvLog := logger.With().Str("component", "WebServer").Logger()
	return &Server{
		conversations: conversations,
		jobs:          jobs,
		voice:         voice,
		runner:        runner,
		auth:          auth,
		limiter:       limiter,
		limitPerMin:   limitPerMin,
		log:           &srvLog,
	}
}

func (s *Server) Routes() *chi.Mux {
	r := chi.NewRouter()
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"status": "ok"})
	})
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/jobs", func(r chi.Router) {
			r.Get("/video/{jobID}", s.handleGetVideoJob)
			r.With(s.auth.RequireUser).Post("/video", s.handleCreateVideoJob)
			r.With(s.auth.RequireUser).Post("/channel", s.handleCreateChannelJob)
			r.With(s.auth.RequireUser).Get("/channel/{jobID}", s.handleGetChannelJob)
		})

		r.Route("/voice", func(r chi.Router) {
			r.With(s.auth.RequireUser).Post("/transcription", s.handleTranscription)
			r.Post("/end-session", s.handleEndSession)
		})

		r.Route("/background/jobs", func(r chi.Router) {
			r.Post("/", s.handleStartBackgroundJobs)
			r.Get("/", s.handleBackgroundJobsStatus)
		})

		r.With(s.auth.RequireUser).Get("/conversations", s.handleListConversations)
	})

	return r
}

// ListenAndServe runs the HTTP server until ctx is cancelled, then drains
// with a short grace period.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	httpSrv := &http.Server{
		Addr:              addr,
		Handler:           s.Routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.Info().Str("addr", addr).Msg("http server listening")
		errCh <- httpSrv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return httpSrv.Shutdown(shutdownCtx)
	}
}
