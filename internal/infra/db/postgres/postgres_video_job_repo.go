package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/oklog/ulid/v2"

	"creator-twin-backend/internal/domain"
	"creator-twin-backend/internal/domain/model"
	"creator-twin-backend/internal/domain/ports/repository"
)

var _ repository.VideoJobRepository = (*videoJobRepo)(nil)

type videoJobRepo struct {
	pool *pgxpool.Pool
	tm   repository.TransactionManager
}

func NewVideoJobRepo(pool *pgxpool.Pool, tm repository.TransactionManager) *videoJobRepo {
	return &videoJobRepo{
		pool: pool,
		tm:   tm,
	}
}

func (r *videoJobRepo) Save(ctx context.Context, tx repository.Tx, job *model.VideoJob) error {
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
INSERT INTO video_jobs (id, creator_id, status, progress, videos_processed, videos_failed,
                        video_ids, result, error_message, metadata, created_at, started_at, completed_at)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13)
ON CONFLICT (id) DO UPDATE SET
  status = EXCLUDED.status,
  progress = EXCLUDED.progress,
  videos_processed = EXCLUDED.videos_processed,
  videos_failed = EXCLUDED.videos_failed,
  result = EXCLUDED.result,
  error_message = EXCLUDED.error_message,
  started_at = EXCLUDED.started_at,
  completed_at = EXCLUDED.completed_at;`

	_, err = execSQL(ctx, r.pool, tx, q,
		job.ID, job.CreatorID, string(job.Status), job.Progress, job.VideosProcessed, job.VideosFailed,
		job.VideoIDs, result, job.ErrorMessage, meta, job.CreatedAt, job.StartedAt, job.CompletedAt)
	return err
}

func (r *videoJobRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.VideoJob, error) {
	const q = `
SELECT id, creator_id, status, progress, videos_processed, videos_failed,
       video_ids, result, error_message, metadata, created_at, started_at, completed_at
FROM video_jobs WHERE id=$1;`
	row, err := pickRow(ctx, r.pool, tx, q, id)
	if err != nil {
		return nil, err
	}
	return scanVideoJob(row)
}

// FetchAndMarkProcessing claims the oldest pending job inside one
// transaction, so concurrent workers never process the same job twice.
func (r *videoJobRepo) FetchAndMarkProcessing(ctx context.Context) (*model.VideoJob, error) {
	var job *model.VideoJob

	err := r.tm.WithTx(ctx, pgx.TxOptions{}, func(ctx context.Context, tx repository.Tx) error {
		const fetchQuery = `
SELECT id, creator_id, status, progress, videos_processed, videos_failed,
       video_ids, result, error_message, metadata, created_at, started_at, completed_at
FROM video_jobs
WHERE status = 'pending'
ORDER BY created_at
LIMIT 1
FOR UPDATE SKIP LOCKED;`

		row, err := pickRow(ctx, r.pool, tx, fetchQuery)
		if err != nil {
			return err
		}

		fetched, err := scanVideoJob(row)
		if err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				return domain.ErrNotFound
			}
			return domain.ErrReadDatabaseRow
		}

		now := time.Now()
		fetched.Status = model.JobStatusProcessing
		fetched.StartedAt = &now

		if err := r.Save(ctx, tx, fetched); err != nil {
			return err
		}

		job = fetched
		return nil
	})

	if errors.Is(err, domain.ErrNotFound) {
		return nil, domain.ErrNotFound
	}

	return job, err
}

func scanVideoJob(row interface {
	Scan(dest ...interface{}) error
}) (*model.VideoJob, error) {
	var j model.VideoJob
	var status string
	var result, meta []byte
	err := row.Scan(
		&j.ID, &j.CreatorID, &status, &j.Progress, &j.VideosProcessed, &j.VideosFailed,
		&j.VideoIDs, &result, &j.ErrorMessage, &meta, &j.CreatedAt, &j.StartedAt, &j.CompletedAt,
	)
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
