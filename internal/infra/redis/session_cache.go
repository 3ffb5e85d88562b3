package redis

import (
	"context"
	"encoding/json"
	"time"

	"creator-twin-backend/internal/domain/model"
)

// SessionCache keeps a hot copy of the active chat session for a
// (user, creator) pair so transcription ingestion does not hit
// Postgres on every fragment.
type SessionCache struct {
	client *redClient
	ttl    time.Duration
}

func NewSessionCache(client *redClient, ttl time.Duration) *SessionCache {
	return &SessionCache{
		client: client,
		ttl:    ttl,
	}
}

func pairKey(userID, creatorID string) string {
	return "chat_session:" + userID + ":" + creatorID
}

func (c *SessionCache) StoreSession(ctx context.Context, session *model.ChatSession) error {
	key := pairKey(session.UserID, session.CreatorID)
	data, err := json.Marshal(session)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, key, data, c.ttl)
}

func (c *SessionCache) GetSession(ctx context.Context, userID, creatorID string) (*model.ChatSession, error) {
	data, err := c.client.Get(ctx, pairKey(userID, creatorID))
	if err != nil {
		return nil, err
	}

	var session model.ChatSession
	if err := json.Unmarshal([]byte(data), &session); err != nil {
		return nil, err
	}
	return &session, nil
}

func (c *SessionCache) DeleteSession(ctx context.Context, userID, creatorID string) error {
	return c.client.Del(ctx, pairKey(userID, creatorID))
}

func (c *SessionCache) ExtendSession(ctx context.Context, userID, creatorID string) error {
	return c.client.Expire(ctx, pairKey(userID, creatorID), c.ttl)
}
