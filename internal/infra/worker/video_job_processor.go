package worker

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"

	"creator-twin-backend/internal/domain"
	"creator-twin-backend/internal/domain/model"
	"creator-twin-backend/internal/domain/ports/adapter"
	"creator-twin-backend/internal/domain/ports/repository"
	"creator-twin-backend/internal/infra/metrics"
)

// VideoJobProcessor drains pending video ingestion jobs: for each video in
// a job it fetches the transcript, splits it into retrieval chunks, and
// stores them for the creator. Progress only ever moves forward.
type VideoJobProcessor struct {
	jobsRepo   repository.VideoJobRepository
	chunksRepo repository.TranscriptChunkRepository
	fetcher    adapter.TranscriptFetcher

	pollInterval time.Duration
	chunkSize    int
	log          *zerolog.Logger
}

func NewVideoJobProcessor(
	jobsRepo repository.VideoJobRepository,
	chunksRepo repository.TranscriptChunkRepository,
	fetcher adapter.TranscriptFetcher,
	pollInterval time.Duration,
	chunkSize int,
	logger *zerolog.Logger,
) *VideoJobProcessor {
	if pollInterval <= 0 {
		pollInterval = 2 * time.Second
	}
	if chunkSize <= 0 {
		chunkSize = 1500
	}
	procLog := logger.With().Str("component", "VideoJobProcessor").Logger()
	return &VideoJobProcessor{
		jobsRepo:     jobsRepo,
		chunksRepo:   chunksRepo,
		fetcher:      fetcher,
		pollInterval: pollInterval,
		chunkSize:    chunkSize,
		log:          &procLog,
	}
}

// Start runs the polling loop until the context is cancelled. Run it in a
// goroutine; actual job work is handed to the pool.
func (p *VideoJobProcessor) Start(ctx context.Context, pool *Pool) {
	p.log.Info().Msg("video job processor started")
	ticker := time.NewTicker(p.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			p.log.Info().Msg("video job processor stopping")
			return
		case <-ticker.C:
			_ = pool.Submit(func(ctx context.Context) error {
				p.processOne(ctx)
				return nil
			})
		}
	}
}

func (p *VideoJobProcessor) processOne(ctx context.Context) {
	job, err := p.jobsRepo.FetchAndMarkProcessing(ctx)
	if err != nil {
		if !errors.Is(err, domain.ErrNotFound) {
			p.log.Error().Err(err).Msg("failed to fetch video job")
		}
		return
	}

	p.log.Info().Str("job_id", job.ID).Int("videos", job.TotalVideos()).Msg("processing video job")
	start := time.Now()

	chunksStored := p.handleJob(ctx, job)
	latency := time.Since(start)

	finalStatus := model.JobStatusCompleted
	if job.VideosProcessed == 0 && job.TotalVideos() > 0 {
		finalStatus = model.JobStatusFailed
		job.ErrorMessage = "no video transcript could be fetched"
	}

	now := time.Now()
	job.Status = finalStatus
	// Progress reads 100 only for a completed job; a failed one keeps
	// whatever share was actually ingested.
	if finalStatus == model.JobStatusCompleted {
		job.Progress = 100
	}
	job.CompletedAt = &now
	job.Result = map[string]any{
		"videosProcessed": job.VideosProcessed,
		"videosFailed":    job.VideosFailed,
		"chunksStored":    chunksStored,
	}

	metrics.IncVideoJob(string(finalStatus))
	metrics.ObserveVideoJobDuration(latency.Seconds())

	// Final update uses a background context so a cancelled poll loop
	// cannot leave the job stuck in 'processing'.
	if err := p.jobsRepo.Save(context.Background(), nil, job); err != nil {
		p.log.Error().Err(err).Str("job_id", job.ID).Msg("failed to persist final job state")
	}
	p.log.Info().Str("job_id", job.ID).Str("status", string(finalStatus)).Dur("duration_ms", latency).Msg("video job finished")
}

// handleJob ingests each video in turn and returns the number of chunks
// stored. Per-video failures are counted on the job, not returned.
func (p *VideoJobProcessor) handleJob(ctx context.Context, job *model.VideoJob) int {
	stored := 0

	for _, videoID := range job.VideoIDs {
		// A video whose chunks are already stored was ingested by an
		// earlier job; don't refetch it.
		if n, err := p.chunksRepo.CountByVideo(ctx, nil, job.CreatorID, videoID); err == nil && n > 0 {
			job.VideosProcessed++
			p.advanceProgress(ctx, job)
			continue
		}

		transcript, err := p.fetcher.FetchTranscript(ctx, videoID)
		if err != nil {
			job.VideosFailed++
			p.log.Warn().Err(err).Str("job_id", job.ID).Str("video_id", videoID).Msg("transcript fetch failed")
		} else {
			chunks := p.chunkTranscript(job.CreatorID, videoID, transcript)
			if err := p.chunksRepo.SaveBatch(ctx, nil, chunks); err != nil {
				job.VideosFailed++
				p.log.Error().Err(err).Str("job_id", job.ID).Str("video_id", videoID).Msg("chunk store failed")
			} else {
				job.VideosProcessed++
				stored += len(chunks)
			}
		}

		p.advanceProgress(ctx, job)
	}
	return stored
}

// advanceProgress persists the job after each video. Progress is derived
// from successfully ingested videos only, so it can only grow and never
// reads 100 while videos are failing.
func (p *VideoJobProcessor) advanceProgress(ctx context.Context, job *model.VideoJob) {
	if total := job.TotalVideos(); total > 0 {
		if pct := job.VideosProcessed * 100 / total; pct > job.Progress {
			job.Progress = pct
		}
	}
	if err := p.jobsRepo.Save(ctx, nil, job); err != nil {
		p.log.Error().Err(err).Str("job_id", job.ID).Msg("failed to persist job progress")
	}
}

// chunkTranscript splits a transcript into fixed-size rune windows.
func (p *VideoJobProcessor) chunkTranscript(creatorID, videoID, transcript string) []*model.TranscriptChunk {
	runes := []rune(transcript)
	var out []*model.TranscriptChunk
	for i, seq := 0, 0; i < len(runes); i, seq = i+p.chunkSize, seq+1 {
		end := i + p.chunkSize
		if end > len(runes) {
			end = len(runes)
		}
		out = append(out, &model.TranscriptChunk{
			CreatorID: creatorID,
			VideoID:   videoID,
			Seq:       seq,
			Content:   string(runes[i:end]),
		})
	}
	return out
}
