package postgres

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v4/pgxpool"

	"creator-twin-backend/internal/domain/model"
	"creator-twin-backend/internal/domain/ports/repository"
)

var _ repository.CreatorRepository = (*creatorRepo)(nil)

type creatorRepo struct {
	pool *pgxpool.Pool
}

func NewCreatorRepo(pool *pgxpool.Pool) *creatorRepo {
	return &creatorRepo{pool: pool}
}

func (r *creatorRepo) Save(ctx context.Context, tx repository.Tx, creator *model.Creator) error {
	if creator.ID == "" {
		creator.ID = uuid.NewString()
	}
	now := time.Now()
	if creator.CreatedAt.IsZero() {
		creator.CreatedAt = now
	}
	creator.UpdatedAt = now

	const q = `
INSERT INTO creators (id, user_id, display_name, youtube_channel_id, created_at, updated_at)
VALUES ($1,$2,$3,$4,$5,$6)
ON CONFLICT (id) DO UPDATE SET
  display_name = EXCLUDED.display_name,
  youtube_channel_id = EXCLUDED.youtube_channel_id,
  updated_at = EXCLUDED.updated_at;`

	_, err := execSQL(ctx, r.pool, tx, q,
		creator.ID, creator.UserID, creator.DisplayName, creator.YoutubeChannelID, creator.CreatedAt, creator.UpdatedAt)
	return err
}

func (r *creatorRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.Creator, error) {
	const q = `
SELECT id, user_id, display_name, youtube_channel_id, created_at, updated_at
FROM creators WHERE id=$1;`
	row, err := pickRow(ctx, r.pool, tx, q, id)
	if err != nil {
		return nil, err
	}

	var c model.Creator
	err = row.Scan(&c.ID, &c.UserID, &c.DisplayName, &c.YoutubeChannelID, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return nil, notFound(err)
	}
	return &c, nil
}
