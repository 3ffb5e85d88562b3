package repository

import (
	"context"

	"creator-twin-backend/internal/domain/model"
)

type CreatorRepository interface {
	Save(ctx context.Context, tx Tx, creator *model.Creator) error
	FindByID(ctx context.Context, tx Tx, id string) (*model.Creator, error)
}

type TranscriptChunkRepository interface {
	SaveBatch(ctx context.Context, tx Tx, chunks []*model.TranscriptChunk) error
	CountByVideo(ctx context.Context, tx Tx, creatorID, videoID string) (int, error)
}
