package model

import "time"

// Creator is a connected YouTube channel owner whose twin fans talk to.
type Creator struct {
	ID               string
	UserID           string
	DisplayName      string
	YoutubeChannelID string
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// TranscriptChunk is one retrieval unit of a video transcript, produced by
// the video job processor.
type TranscriptChunk struct {
	ID        string
	CreatorID string
	VideoID   string
	Seq       int
	Content   string
	CreatedAt time.Time
}
