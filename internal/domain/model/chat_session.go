package model

import (
	"time"
)

type MessageRole string

const (
	MessageRoleUser      MessageRole = "user"
	MessageRoleAssistant MessageRole = "assistant"
)

type MessageType string

const (
	MessageTypeText            MessageType = "text"
	MessageTypeVoiceTranscript MessageType = "voice_transcript"
)

// ChatMessage is one immutable message within a conversation. Voice
// transcript fragments carry room/participant identifiers in Metadata.
type ChatMessage struct {
	ID        string
	SessionID string
	Role      MessageRole
	Content   string
	Type      MessageType
	Metadata  map[string]any
	CreatedAt time.Time
}

// ChatSession is the aggregate root for one fan's conversation with a
// creator's twin. A session is created lazily on the first message and is
// never explicitly closed in storage; idle detection lives in the tracker.
type ChatSession struct {
	ID           string
	UserID       string
	CreatorID    string
	Summary      string
	MessageCount int
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

func NewChatSession(id, userID, creatorID string) *ChatSession {
	now := time.Now()
	return &ChatSession{
		ID:        id,
		UserID:    userID,
		CreatorID: creatorID,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// ParseRole validates a caller-supplied speaker value.
func ParseRole(s string) (MessageRole, bool) {
	switch MessageRole(s) {
	case MessageRoleUser, MessageRoleAssistant:
		return MessageRole(s), true
	}
	return "", false
}
