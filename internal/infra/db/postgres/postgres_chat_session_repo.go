// File: internal/infra/db/postgres/postgres_chat_session_repo.go
package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v4/pgxpool"

	"creator-twin-backend/internal/domain"
	"creator-twin-backend/internal/domain/model"
	"creator-twin-backend/internal/domain/ports/repository"
	"creator-twin-backend/internal/infra/redis"
)

// ChatSessionRepo persists conversations and their messages. The cache keeps
// the hot (user, creator) -> session mapping out of the DB read path.
var _ repository.ChatSessionRepository = (*ChatSessionRepo)(nil)

type ChatSessionRepo struct {
	pool  *pgxpool.Pool
	cache *redis.SessionCache
}

func NewPostgresChatSessionRepo(pool *pgxpool.Pool, cache *redis.SessionCache) *ChatSessionRepo {
	return &ChatSessionRepo{pool: pool, cache: cache}
}

func (r *ChatSessionRepo) Save(ctx context.Context, tx repository.Tx, session *model.ChatSession) error {
	const q = `
INSERT INTO chat_sessions (id, user_id, creator_id, summary, created_at, updated_at)
VALUES ($1,$2,$3,$4,COALESCE($5,NOW()),COALESCE($6,NOW()))
ON CONFLICT (id) DO UPDATE SET
  summary = EXCLUDED.summary,
  updated_at = EXCLUDED.updated_at;`

	_, err := execSQL(ctx, r.pool, tx, q,
		session.ID, session.UserID, session.CreatorID, session.Summary, session.CreatedAt, session.UpdatedAt)
	if err != nil {
		return fmt.Errorf("save session: %w", err)
	}

	if r.cache != nil {
		_ = r.cache.StoreSession(ctx, session)
	}
	return nil
}

func (r *ChatSessionRepo) SaveMessage(ctx context.Context, tx repository.Tx, m *model.ChatMessage) error {
	if m.ID == "" {
		m.ID = uuid.NewString()
	}
	if m.CreatedAt.IsZero() {
		m.CreatedAt = time.Now()
	}

	meta, err := json.Marshal(m.Metadata)
	if err != nil {
		return fmt.Errorf("marshal message metadata: %w", err)
	}

	const q = `
INSERT INTO chat_messages (id, session_id, role, content, type, metadata, created_at)
VALUES ($1,$2,$3,$4,$5,$6,$7);`
	if _, err := execSQL(ctx, r.pool, tx, q,
		m.ID, m.SessionID, string(m.Role), m.Content, string(m.Type), meta, m.CreatedAt); err != nil {
		return fmt.Errorf("save message: %w", err)
	}

	// Keep the session's activity columns in step with its messages.
	const qTouch = `
UPDATE chat_sessions SET message_count = message_count + 1, updated_at = $2 WHERE id = $1;`
	if _, err := execSQL(ctx, r.pool, tx, qTouch, m.SessionID, m.CreatedAt); err != nil {
		return fmt.Errorf("touch session: %w", err)
	}
	return nil
}

func (r *ChatSessionRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.ChatSession, error) {
	const q = `
SELECT id, user_id, creator_id, summary, message_count, created_at, updated_at
FROM chat_sessions WHERE id=$1;`
	row, err := pickRow(ctx, r.pool, tx, q, id)
	if err != nil {
		return nil, err
	}
	return scanSession(row)
}

func (r *ChatSessionRepo) FindByUserAndCreator(ctx context.Context, tx repository.Tx, userID, creatorID string) (*model.ChatSession, error) {
	if r.cache != nil {
		if s, err := r.cache.GetSession(ctx, userID, creatorID); err == nil {
			return s, nil
		}
	}

	const q = `
SELECT id, user_id, creator_id, summary, message_count, created_at, updated_at
FROM chat_sessions
WHERE user_id=$1 AND creator_id=$2
ORDER BY created_at ASC
LIMIT 1;`
	row, err := pickRow(ctx, r.pool, tx, q, userID, creatorID)
	if err != nil {
		return nil, err
	}
	s, err := scanSession(row)
	if err != nil {
		return nil, err
	}
	if r.cache != nil {
		_ = r.cache.StoreSession(ctx, s)
	}
	return s, nil
}

func (r *ChatSessionRepo) ListWithMessagesByUser(ctx context.Context, tx repository.Tx, userID string) ([]*model.ChatSession, error) {
	const q = `
SELECT id, user_id, creator_id, summary, message_count, created_at, updated_at
FROM chat_sessions
WHERE user_id=$1 AND message_count > 0
ORDER BY updated_at DESC;`
	rows, err := queryRows(ctx, r.pool, tx, q, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*model.ChatSession
	for rows.Next() {
		var s model.ChatSession
		if err := rows.Scan(&s.ID, &s.UserID, &s.CreatorID, &s.Summary, &s.MessageCount, &s.CreatedAt, &s.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan session: %w", err)
		}
		out = append(out, &s)
	}
	return out, rows.Err()
}

func (r *ChatSessionRepo) FindMessages(ctx context.Context, tx repository.Tx, sessionID string) ([]*model.ChatMessage, error) {
	const q = `
SELECT id, session_id, role, content, type, metadata, created_at
FROM chat_messages
WHERE session_id=$1
ORDER BY created_at ASC;`
	rows, err := queryRows(ctx, r.pool, tx, q, sessionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*model.ChatMessage
	for rows.Next() {
		var m model.ChatMessage
		var role, typ string
		var meta []byte
		if err := rows.Scan(&m.ID, &m.SessionID, &role, &m.Content, &typ, &meta, &m.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan message: %w", err)
		}
		m.Role = model.MessageRole(role)
		m.Type = model.MessageType(typ)
		if len(meta) > 0 {
			if err := json.Unmarshal(meta, &m.Metadata); err != nil {
				return nil, fmt.Errorf("unmarshal message metadata: %w", err)
			}
		}
		out = append(out, &m)
	}
	return out, rows.Err()
}

func (r *ChatSessionRepo) UpdateSummary(ctx context.Context, tx repository.Tx, sessionID, summary string) error {
	const q = `UPDATE chat_sessions SET summary=$2, updated_at=NOW() WHERE id=$1;`
	tag, err := execSQL(ctx, r.pool, tx, q, sessionID, summary)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func scanSession(row interface {
	Scan(dest ...interface{}) error
}) (*model.ChatSession, error) {
	var s model.ChatSession
	err := row.Scan(&s.ID, &s.UserID, &s.CreatorID, &s.Summary, &s.MessageCount, &s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		return nil, notFound(err)
	}
	return &s, nil
}
