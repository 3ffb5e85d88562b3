package sched

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"creator-twin-backend/internal/infra/tracker"
	"creator-twin-backend/internal/infra/worker"
)

// Status is what the background-jobs endpoint reports.
type Status struct {
	Running   bool          `json:"running"`
	StartedAt *time.Time    `json:"startedAt,omitempty"`
	Tracker   tracker.Stats `json:"tracker"`
}

// Runner owns the long-lived background services: the conversation tracker
// sweep loop and the video job processor with its worker pool. Start is
// idempotent so the HTTP trigger can be called any number of times.
type Runner struct {
	tracker   *tracker.ConversationTracker
	processor *worker.VideoJobProcessor
	pool      *worker.Pool
	log       *zerolog.Logger

	mu        sync.Mutex
	running   bool
	startedAt time.Time
	cancel    context.CancelFunc
}

func NewRunner(tr *tracker.ConversationTracker, proc *worker.VideoJobProcessor, pool *worker.Pool, logger *zerolog.Logger) *Runner {
	runLog := logger.With().Str("component", "BackgroundRunner").Logger()
	return &Runner{
		tracker:   tr,
		processor: proc,
		pool:      pool,
		log:       &runLog,
	}
}

// Start launches the background services. It reports true when this call
// actually started them and false when they were already running.
func (r *Runner) Start(parentCtx context.Context) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.running {
		return false
	}

	ctx, cancel := context.WithCancel(parentCtx)
	r.cancel = cancel
	r.running = true
	r.startedAt = time.Now()

	r.pool.Start(ctx)
	r.tracker.Start(ctx)
	go r.processor.Start(ctx, r.pool)

	r.log.Info().Msg("background services started")
	return true
}

func (r *Runner) Status() Status {
	r.mu.Lock()
	running := r.running
	startedAt := r.startedAt
	r.mu.Unlock()

	s := Status{
		Running: running,
		Tracker: r.tracker.Stats(),
	}
	if running {
		s.StartedAt = &startedAt
	}
	return s
}

// Stop shuts the services down and waits for in-flight work. Idempotent.
func (r *Runner) Stop() {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.running {
		return
	}
	r.cancel()
	r.tracker.Stop()
	r.pool.Stop()
	r.running = false
	r.log.Info().Msg("background services stopped")
}
