// File: internal/usecase/conversation_uc.go
package usecase

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"

	"creator-twin-backend/internal/domain"
	"creator-twin-backend/internal/domain/model"
	"creator-twin-backend/internal/domain/ports/repository"
	"creator-twin-backend/internal/infra/metrics"
	"creator-twin-backend/internal/infra/tracker"
)

// Compile-time check
var _ ConversationUseCase = (*conversationUC)(nil)

// TranscriptFragment is one recognized speech fragment from a live call.
// Speaker is optional: when set it names the role explicitly, otherwise the
// role is derived from the participant identity.
type TranscriptFragment struct {
	RoomName      string
	CreatorID     string
	ParticipantID string
	TrackID       string
	Text          string
	Speaker       string
	Timestamp     time.Time
}

type ConversationUseCase interface {
	IngestTranscript(ctx context.Context, userID string, frag TranscriptFragment) (*model.ChatMessage, error)
	ListConversations(ctx context.Context, userID string) ([]*model.ChatSession, error)
}

type conversationUC struct {
	sessions repository.ChatSessionRepository
	tracker  *tracker.ConversationTracker
}

func NewConversationUseCase(sessions repository.ChatSessionRepository, tr *tracker.ConversationTracker) *conversationUC {
	return &conversationUC{sessions: sessions, tracker: tr}
}

// IngestTranscript persists one fragment as a chat message and then notifies
// the tracker. The tracker is only told about messages that actually exist
// in storage, so a failed save leaves no idle-timer behind.
func (c *conversationUC) IngestTranscript(ctx context.Context, userID string, frag TranscriptFragment) (*model.ChatMessage, error) {
	if frag.RoomName == "" || frag.CreatorID == "" || frag.ParticipantID == "" || strings.TrimSpace(frag.Text) == "" {
		return nil, domain.ErrInvalidArgument
	}

	session, err := c.resolveSession(ctx, userID, frag.CreatorID)
	if err != nil {
		return nil, err
	}

	role, err := c.classifyRole(userID, frag)
	if err != nil {
		return nil, err
	}

	ts := frag.Timestamp
	if ts.IsZero() {
		ts = time.Now()
	}
	msg := &model.ChatMessage{
		ID:        uuid.NewString(),
		SessionID: session.ID,
		Role:      role,
		Content:   frag.Text,
		Type:      model.MessageTypeVoiceTranscript,
		Metadata: map[string]any{
			"room":           frag.RoomName,
			"participant_id": frag.ParticipantID,
			"track_id":       frag.TrackID,
			"timestamp":      ts.Format(time.RFC3339Nano),
		},
		CreatedAt: time.Now(),
	}
	if err := c.sessions.SaveMessage(ctx, nil, msg); err != nil {
		return nil, err
	}

	c.tracker.TrackMessage(session.ID, frag.CreatorID, role)
	metrics.IncTranscriptFragment(string(role))
	return msg, nil
}

// resolveSession reuses the pair's existing conversation; a brand-new pair
// gets a fresh session.
func (c *conversationUC) resolveSession(ctx context.Context, userID, creatorID string) (*model.ChatSession, error) {
	s, err := c.sessions.FindByUserAndCreator(ctx, nil, userID, creatorID)
	if err == nil {
		return s, nil
	}
	if !errors.Is(err, domain.ErrNotFound) {
		return nil, err
	}

	s = model.NewChatSession(uuid.NewString(), userID, creatorID)
	if err := c.sessions.Save(ctx, nil, s); err != nil {
		return nil, err
	}
	return s, nil
}

// classifyRole prefers the explicit speaker field; without one, a fragment
// spoken by the authenticated caller is 'user' and anything else is the
// twin's own voice.
func (c *conversationUC) classifyRole(userID string, frag TranscriptFragment) (model.MessageRole, error) {
	if frag.Speaker != "" {
		role, ok := model.ParseRole(frag.Speaker)
		if !ok {
			return "", domain.ErrInvalidArgument
		}
		return role, nil
	}
	if frag.ParticipantID == userID {
		return model.MessageRoleUser, nil
	}
	return model.MessageRoleAssistant, nil
}

func (c *conversationUC) ListConversations(ctx context.Context, userID string) ([]*model.ChatSession, error) {
	return c.sessions.ListWithMessagesByUser(ctx, nil, userID)
}
