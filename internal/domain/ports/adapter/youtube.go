package adapter

import "context"

// ChannelInfo is what the extraction service returns for an @handle.
type ChannelInfo struct {
	ChannelID   string
	ChannelName string
	Uploader    string
}

// ChannelResolver resolves a YouTube @handle to channel metadata.
type ChannelResolver interface {
	ResolveChannel(ctx context.Context, handle string) (*ChannelInfo, error)
}

// TranscriptFetcher pulls the full transcript text for one video.
type TranscriptFetcher interface {
	FetchTranscript(ctx context.Context, videoID string) (string, error)
}
