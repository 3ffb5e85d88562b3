// File: internal/infra/tracker/tracker.go
package tracker

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"creator-twin-backend/internal/domain/model"
	"creator-twin-backend/internal/infra/metrics"
)

// Finalizer is what the tracker calls when a conversation has gone idle.
// Implementations summarize the session and persist the result.
type Finalizer interface {
	FinalizeConversation(ctx context.Context, sessionID, creatorID string) error
}

type entry struct {
	sessionID    string
	creatorID    string
	lastActivity time.Time
	messageCount int
	lastRole     model.MessageRole
}

// ConversationInfo is one tracked session in a Stats snapshot.
type ConversationInfo struct {
	SessionID    string    `json:"sessionId"`
	CreatorID    string    `json:"creatorId"`
	LastActivity time.Time `json:"lastActivity"`
	MessageCount int       `json:"messageCount"`
}

// Stats is a point-in-time snapshot of the tracker state, surfaced by the
// background job status endpoint.
type Stats struct {
	Tracked       int                `json:"trackedConversations"`
	Sweeping      bool               `json:"sweepInProgress"`
	Conversations []ConversationInfo `json:"conversations"`
}

// ConversationTracker watches active voice conversations and finalizes the
// ones that go idle. It is a plain injectable value: construct one, hand it
// to whoever needs it, and call Start once.
//
// Each tracked session is finalized at most once: the sweep removes the
// entry before invoking the finalizer, and a finalizer failure does not put
// it back.
type ConversationTracker struct {
	mu      sync.Mutex
	entries map[string]*entry

	interval      time.Duration
	idleThreshold time.Duration
	finalizer     Finalizer
	log           *zerolog.Logger

	sweeping atomic.Bool

	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}
}

func NewConversationTracker(interval, idleThreshold time.Duration, finalizer Finalizer, logger *zerolog.Logger) *ConversationTracker {
	if interval <= 0 {
		interval = 30 * time.Second
	}
	if idleThreshold <= 0 {
		idleThreshold = 2 * time.Minute
	}
	trLog := logger.With().Str("component", "ConversationTracker").Logger()
	return &ConversationTracker{
		entries:       make(map[string]*entry),
		interval:      interval,
		idleThreshold: idleThreshold,
		finalizer:     finalizer,
		log:           &trLog,
		done:          make(chan struct{}),
	}
}

// TrackMessage records activity on a session. The first call for a session
// starts tracking it; subsequent calls push its idle deadline forward.
func (t *ConversationTracker) TrackMessage(sessionID, creatorID string, role model.MessageRole) {
	t.mu.Lock()
	defer t.mu.Unlock()

	e, ok := t.entries[sessionID]
	if !ok {
		e = &entry{sessionID: sessionID, creatorID: creatorID}
		t.entries[sessionID] = e
	}
	e.lastActivity = time.Now()
	e.messageCount++
	e.lastRole = role

	metrics.SetTrackedConversations(len(t.entries))
}

func (t *ConversationTracker) Stats() Stats {
	t.mu.Lock()
	convs := make([]ConversationInfo, 0, len(t.entries))
	for _, e := range t.entries {
		convs = append(convs, ConversationInfo{
			SessionID:    e.sessionID,
			CreatorID:    e.creatorID,
			LastActivity: e.lastActivity,
			MessageCount: e.messageCount,
		})
	}
	t.mu.Unlock()
	return Stats{Tracked: len(convs), Sweeping: t.sweeping.Load(), Conversations: convs}
}

// Start begins the sweep loop in a background goroutine. Calling Start more
// than once has no effect.
func (t *ConversationTracker) Start(parentCtx context.Context) {
	if t.ctx != nil {
		// already started
		return
	}
	ctx, cancel := context.WithCancel(parentCtx)
	t.ctx = ctx
	t.cancel = cancel

	go t.loop()
}

func (t *ConversationTracker) loop() {
	ticker := time.NewTicker(t.interval)
	defer func() {
		ticker.Stop()
		close(t.done)
	}()

	t.log.Info().Dur("interval", t.interval).Dur("idle_threshold", t.idleThreshold).Msg("tracker started")
	for {
		select {
		case <-t.ctx.Done():
			t.log.Info().Msg("tracker stopping")
			return
		case <-ticker.C:
			t.Sweep(t.ctx)
		}
	}
}

// Sweep finalizes every session idle longer than the threshold. If a sweep
// is already running the call returns immediately; a slow finalizer must
// not stack sweeps behind itself.
func (t *ConversationTracker) Sweep(ctx context.Context) {
	if !t.sweeping.CompareAndSwap(false, true) {
		return
	}
	defer t.sweeping.Store(false)

	cutoff := time.Now().Add(-t.idleThreshold)

	t.mu.Lock()
	var idle []*entry
	for id, e := range t.entries {
		if e.lastActivity.Before(cutoff) {
			idle = append(idle, e)
			delete(t.entries, id)
		}
	}
	metrics.SetTrackedConversations(len(t.entries))
	t.mu.Unlock()

	// Finalize outside the lock: message ingestion must not block on
	// summary generation.
	for _, e := range idle {
		if err := t.finalizer.FinalizeConversation(ctx, e.sessionID, e.creatorID); err != nil {
			metrics.IncConversationEnded("failed")
			t.log.Error().Err(err).Str("session_id", e.sessionID).Msg("finalize conversation failed")
			continue
		}
		metrics.IncConversationEnded("ok")
		t.log.Info().Str("session_id", e.sessionID).Int("messages", e.messageCount).Msg("conversation finalized")
	}
}

// Stop cancels the sweep loop and waits for it to exit. It is idempotent.
func (t *ConversationTracker) Stop() {
	if t.cancel == nil {
		// not started
		return
	}
	t.cancel()
	<-t.done
	t.ctx = nil
	t.cancel = nil
	t.done = make(chan struct{})
}
