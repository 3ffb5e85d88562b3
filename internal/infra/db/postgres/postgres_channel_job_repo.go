package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/oklog/ulid/v2"

	"creator-twin-backend/internal/domain/model"
	"creator-twin-backend/internal/domain/ports/repository"
)

var _ repository.ChannelJobRepository = (*channelJobRepo)(nil)

type channelJobRepo struct {
	pool *pgxpool.Pool
}

func NewChannelJobRepo(pool *pgxpool.Pool) *channelJobRepo {
	return &channelJobRepo{pool: pool}
}

func (r *channelJobRepo) Save(ctx context.Context, tx repository.Tx, job *model.ChannelJob) error {
	if job.ID == "" {
		job.ID = ulid.Make().String()
	}
	if job.CreatedAt.IsZero() {
		job.CreatedAt = time.Now()
	}

	result, err := json.Marshal(job.Result)
	if err != nil {
		return fmt.Errorf("marshal job result: %w", err)
	}
	meta, err := json.Marshal(job.Metadata)
	if err != nil {
		return fmt.Errorf("marshal job metadata: %w", err)
	}

	const q = `
INSERT INTO channel_jobs (id, user_id, channel_id, status, progress, result, error_message, metadata, created_at, completed_at)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
ON CONFLICT (id) DO UPDATE SET
  status = EXCLUDED.status,
  progress = EXCLUDED.progress,
  result = EXCLUDED.result,
  error_message = EXCLUDED.error_message,
  completed_at = EXCLUDED.completed_at;`

	_, err = execSQL(ctx, r.pool, tx, q,
		job.ID, job.UserID, job.ChannelID, string(job.Status), job.Progress,
		result, job.ErrorMessage, meta, job.CreatedAt, job.CompletedAt)
	return err
}

// FindByIDForUser scopes the lookup by owner in the query itself, so a
// foreign job id and a missing job id are indistinguishable to the caller.
func (r *channelJobRepo) FindByIDForUser(ctx context.Context, tx repository.Tx, id, userID string) (*model.ChannelJob, error) {
	const q = `
SELECT id, user_id, channel_id, status, progress, result, error_message, metadata, created_at, completed_at
FROM channel_jobs WHERE id=$1 AND user_id=$2;`
	row, err := pickRow(ctx, r.pool, tx, q, id, userID)
	if err != nil {
		return nil, err
	}

	var j model.ChannelJob
	var status string
	var result, meta []byte
	err = row.Scan(&j.ID, &j.UserID, &j.ChannelID, &status, &j.Progress,
		&result, &j.ErrorMessage, &meta, &j.CreatedAt, &j.CompletedAt)
	if err != nil {
		return nil, notFound(err)
	}
	j.Status = model.JobStatus(status)
	if len(result) > 0 {
		if err := json.Unmarshal(result, &j.Result); err != nil {
			return nil, fmt.Errorf("unmarshal job result: %w", err)
		}
	}
	if len(meta) > 0 {
		if err := json.Unmarshal(meta, &j.Metadata); err != nil {
			return nil, fmt.Errorf("unmarshal job metadata: %w", err)
		}
	}
	return &j, nil
}
