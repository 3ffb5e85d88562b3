package repository

import (
	"context"

	"creator-twin-backend/internal/domain/model"
)

type VideoJobRepository interface {
	Save(ctx context.Context, tx Tx, job *model.VideoJob) error
	FindByID(ctx context.Context, tx Tx, id string) (*model.VideoJob, error)
	// FetchAndMarkProcessing atomically fetches a pending job and marks it as
	// 'processing'. This prevents other workers from picking up the same job.
	FetchAndMarkProcessing(ctx context.Context) (*model.VideoJob, error)
}

type ChannelJobRepository interface {
	Save(ctx context.Context, tx Tx, job *model.ChannelJob) error
	// FindByIDForUser returns ErrNotFound for both a missing id and an id
	// owned by a different user; callers cannot tell the cases apart.
	FindByIDForUser(ctx context.Context, tx Tx, id, userID string) (*model.ChannelJob, error)
}
