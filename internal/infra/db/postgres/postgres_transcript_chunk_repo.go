package postgres

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v4/pgxpool"

	"creator-twin-backend/internal/domain/model"
	"creator-twin-backend/internal/domain/ports/repository"
)

var _ repository.TranscriptChunkRepository = (*transcriptChunkRepo)(nil)

type transcriptChunkRepo struct {
	pool *pgxpool.Pool
}

func NewTranscriptChunkRepo(pool *pgxpool.Pool) *transcriptChunkRepo {
	return &transcriptChunkRepo{pool: pool}
}

// SaveBatch upserts one video's chunks in a single statement batch.
// Re-ingesting a video overwrites its chunks in place.
func (r *transcriptChunkRepo) SaveBatch(ctx context.Context, tx repository.Tx, chunks []*model.TranscriptChunk) error {
	const q = `
INSERT INTO transcript_chunks (id, creator_id, video_id, seq, content, created_at)
VALUES ($1,$2,$3,$4,$5,$6)
ON CONFLICT (creator_id, video_id, seq) DO UPDATE SET
  content = EXCLUDED.content;`

	now := time.Now()
	for _, c := range chunks {
		if c.ID == "" {
			c.ID = uuid.NewString()
		}
		if c.CreatedAt.IsZero() {
			c.CreatedAt = now
		}
		if _, err := execSQL(ctx, r.pool, tx, q,
			c.ID, c.CreatorID, c.VideoID, c.Seq, c.Content, c.CreatedAt); err != nil {
			return err
		}
	}
	return nil
}

func (r *transcriptChunkRepo) CountByVideo(ctx context.Context, tx repository.Tx, creatorID, videoID string) (int, error) {
	const q = `SELECT COUNT(*) FROM transcript_chunks WHERE creator_id=$1 AND video_id=$2;`
	row, err := pickRow(ctx, r.pool, tx, q, creatorID, videoID)
	if err != nil {
		return 0, err
	}
	var n int
	if err := row.Scan(&n); err != nil {
		return 0, err
	}
	return n, nil
}
