// File: internal/usecase/summary_uc.go
package usecase

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"creator-twin-backend/internal/domain/ports/adapter"
	"creator-twin-backend/internal/domain/ports/repository"
)

const summaryPrompt = "Summarize this conversation between a fan and a creator's AI twin in 2-3 sentences. Capture the topics discussed and anything the fan asked to follow up on."

// summaryUC generates the end-of-conversation summary when the tracker
// finalizes an idle session. It satisfies tracker.Finalizer.
type summaryUC struct {
	sessions repository.ChatSessionRepository
	ai       adapter.AIServiceAdapter
	model    string
	budget   int
	log      *zerolog.Logger
}

func NewSummaryUseCase(sessions repository.ChatSessionRepository, ai adapter.AIServiceAdapter, modelName string, promptBudget int, logger *zerolog.Logger) *summaryUC {
	if promptBudget <= 0 {
		promptBudget = 4000
	}
	sLog := logger.With().Str("component", "SummaryUseCase").Logger()
	return &summaryUC{
		sessions: sessions,
		ai:       ai,
		model:    modelName,
		budget:   promptBudget,
		log:      &sLog,
	}
}

func (s *summaryUC) FinalizeConversation(ctx context.Context, sessionID, creatorID string) error {
	msgs, err := s.sessions.FindMessages(ctx, nil, sessionID)
	if err != nil {
		return fmt.Errorf("load messages: %w", err)
	}
	if len(msgs) == 0 {
		return nil
	}

	history := make([]adapter.Message, 0, len(msgs)+1)
	history = append(history, adapter.Message{Role: "system", Content: summaryPrompt})
	for _, m := range msgs {
		history = append(history, adapter.Message{Role: string(m.Role), Content: m.Content})
	}
	history = s.trimToBudget(ctx, history)

	summary, err := s.ai.Chat(ctx, s.model, history)
	if err != nil {
		return fmt.Errorf("generate summary: %w", err)
	}
	if err := s.sessions.UpdateSummary(ctx, nil, sessionID, summary); err != nil {
		return fmt.Errorf("store summary: %w", err)
	}

	s.log.Info().Str("session_id", sessionID).Int("messages", len(msgs)).Msg("conversation summarized")
	return nil
}

// trimToBudget drops the oldest conversation messages until the prompt fits.
// The system prompt at index 0 and the most recent message always survive.
func (s *summaryUC) trimToBudget(ctx context.Context, history []adapter.Message) []adapter.Message {
	for len(history) > 2 {
		n, err := s.ai.CountTokens(ctx, s.model, history)
		if err != nil {
			// Token counting is advisory; send what we have.
			return history
		}
		if n <= s.budget {
			break
		}
		history = append(history[:1], history[2:]...)
	}
	return history
}
