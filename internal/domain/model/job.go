package model

import "time"

type JobStatus string

const (
	JobStatusPending    JobStatus = "pending"
	JobStatusProcessing JobStatus = "processing"
	JobStatusCompleted  JobStatus = "completed"
	JobStatusFailed     JobStatus = "failed"
)

// Terminal reports whether a job can no longer change state.
func (s JobStatus) Terminal() bool {
	return s == JobStatusCompleted || s == JobStatusFailed
}

// VideoJob tracks ingestion of a batch of YouTube videos for one creator.
// TotalVideos is always derived from the id list, never stored separately.
type VideoJob struct {
	ID              string
	CreatorID       string
	Status          JobStatus
	Progress        int
	VideosProcessed int
	VideosFailed    int
	VideoIDs        []string
	Result          map[string]any
	ErrorMessage    string
	Metadata        map[string]any
	CreatedAt       time.Time
	StartedAt       *time.Time
	CompletedAt     *time.Time
}

func (j *VideoJob) TotalVideos() int { return len(j.VideoIDs) }

// ChannelJob tracks a whole-channel analysis request. Rows are user-scoped:
// reads must not reveal whether a foreign job id exists.
type ChannelJob struct {
	ID           string
	UserID       string
	ChannelID    string
	Status       JobStatus
	Progress     int
	Result       map[string]any
	ErrorMessage string
	Metadata     map[string]any
	CreatedAt    time.Time
	CompletedAt  *time.Time
}
