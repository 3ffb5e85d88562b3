package repository

import (
	"context"

	"creator-twin-backend/internal/domain/model"
)

// -----------------------------
// Chat Sessions
// -----------------------------

type ChatSessionRepository interface {
	Save(ctx context.Context, tx Tx, session *model.ChatSession) error
	SaveMessage(ctx context.Context, tx Tx, message *model.ChatMessage) error
	FindByID(ctx context.Context, tx Tx, id string) (*model.ChatSession, error)
	// FindByUserAndCreator returns the oldest existing session for the pair,
	// so repeated transcript fragments keep landing in one conversation.
	FindByUserAndCreator(ctx context.Context, tx Tx, userID, creatorID string) (*model.ChatSession, error)
	// ListWithMessagesByUser returns the caller's sessions that hold at least
	// one message, most recently active first.
	ListWithMessagesByUser(ctx context.Context, tx Tx, userID string) ([]*model.ChatSession, error)
	FindMessages(ctx context.Context, tx Tx, sessionID string) ([]*model.ChatMessage, error)
	UpdateSummary(ctx context.Context, tx Tx, sessionID, summary string) error
}
