// File: internal/usecase/job_uc.go
package usecase

import (
	"context"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"

	"creator-twin-backend/internal/domain"
	"creator-twin-backend/internal/domain/model"
	"creator-twin-backend/internal/domain/ports/adapter"
	"creator-twin-backend/internal/domain/ports/repository"
)

// Compile-time check
var _ JobUseCase = (*jobUC)(nil)

type JobUseCase interface {
	CreateVideoJob(ctx context.Context, creatorID string, videoIDs []string) (*model.VideoJob, error)
	// GetVideoJob is read-only; the worker owns all mutation.
	GetVideoJob(ctx context.Context, jobID string) (*model.VideoJob, error)
	CreateChannelJob(ctx context.Context, userID, handle string) (*model.ChannelJob, error)
	GetChannelJob(ctx context.Context, jobID, userID string) (*model.ChannelJob, error)
}

type jobUC struct {
	videoJobs   repository.VideoJobRepository
	channelJobs repository.ChannelJobRepository
	creators    repository.CreatorRepository
	resolver    adapter.ChannelResolver
}

func NewJobUseCase(videoJobs repository.VideoJobRepository, channelJobs repository.ChannelJobRepository, creators repository.CreatorRepository, resolver adapter.ChannelResolver) *jobUC {
	return &jobUC{videoJobs: videoJobs, channelJobs: channelJobs, creators: creators, resolver: resolver}
}

func (j *jobUC) CreateVideoJob(ctx context.Context, creatorID string, videoIDs []string) (*model.VideoJob, error) {
	if creatorID == "" || len(videoIDs) == 0 {
		return nil, domain.ErrInvalidArgument
	}
	for _, id := range videoIDs {
		if strings.TrimSpace(id) == "" {
			return nil, domain.ErrInvalidArgument
		}
	}
	// Jobs are only accepted for creators that actually exist.
	if _, err := j.creators.FindByID(ctx, nil, creatorID); err != nil {
		return nil, err
	}

	job := &model.VideoJob{
		ID:        ulid.Make().String(),
		CreatorID: creatorID,
		Status:    model.JobStatusPending,
		VideoIDs:  videoIDs,
		CreatedAt: time.Now(),
	}
	if err := j.videoJobs.Save(ctx, nil, job); err != nil {
		return nil, err
	}
	return job, nil
}

func (j *jobUC) GetVideoJob(ctx context.Context, jobID string) (*model.VideoJob, error) {
	if jobID == "" {
		return nil, domain.ErrInvalidArgument
	}
	return j.videoJobs.FindByID(ctx, nil, jobID)
}

// CreateChannelJob resolves the @handle up front so a bad handle fails the
// request instead of failing the job later.
func (j *jobUC) CreateChannelJob(ctx context.Context, userID, handle string) (*model.ChannelJob, error) {
	handle = strings.TrimSpace(handle)
	if userID == "" || handle == "" {
		return nil, domain.ErrInvalidArgument
	}

	info, err := j.resolver.ResolveChannel(ctx, handle)
	if err != nil {
		return nil, err
	}

	job := &model.ChannelJob{
		ID:        ulid.Make().String(),
		UserID:    userID,
		ChannelID: info.ChannelID,
		Status:    model.JobStatusPending,
		Metadata: map[string]any{
			"handle":       handle,
			"channel_name": info.ChannelName,
			"uploader":     info.Uploader,
		},
		CreatedAt: time.Now(),
	}
	if err := j.channelJobs.Save(ctx, nil, job); err != nil {
		return nil, err
	}
	return job, nil
}

func (j *jobUC) GetChannelJob(ctx context.Context, jobID, userID string) (*model.ChannelJob, error) {
	if jobID == "" || userID == "" {
		return nil, domain.ErrInvalidArgument
	}
	return j.channelJobs.FindByIDForUser(ctx, nil, jobID, userID)
}
