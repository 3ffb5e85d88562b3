// File: internal/infra/adapters/youtube/resolver.go
package youtube

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"creator-twin-backend/internal/domain"
	"creator-twin-backend/internal/domain/ports/adapter"
)

var (
	_ adapter.ChannelResolver   = (*Extractor)(nil)
	_ adapter.TranscriptFetcher = (*Extractor)(nil)
)

// Extractor is a client for the side-car extraction service that wraps
// yt-dlp. It resolves @handles to channel metadata and pulls transcripts.
type Extractor struct {
	base   string
	client *http.Client
}

func NewExtractor(baseURL string) (*Extractor, error) {
	if baseURL == "" {
		return nil, errors.New("extractor base url empty")
	}
	if _, err := url.Parse(baseURL); err != nil {
		return nil, fmt.Errorf("invalid extractor url: %w", err)
	}
	return &Extractor{
		base: baseURL,
		// Channel scrapes routinely take tens of seconds.
		client: &http.Client{Timeout: 120 * time.Second},
	}, nil
}

func (e *Extractor) ResolveChannel(ctx context.Context, handle string) (*adapter.ChannelInfo, error) {
	payload := map[string]any{"username": handle}
	b, _ := json.Marshal(payload)
	req, _ := http.NewRequestWithContext(ctx, http.MethodPost, e.base+"/channel-info", bytes.NewReader(b))
	req.Header.Set("Content-Type", "application/json")

	resp, err := e.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode == http.StatusNotFound {
		return nil, domain.ErrNotFound
	}
	if resp.StatusCode >= 300 {
		return nil, fmt.Errorf("channel-info http %d", resp.StatusCode)
	}

	var out struct {
		ChannelID   string `json:"channel_id"`
		ChannelName string `json:"channel_name"`
		Uploader    string `json:"uploader"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, err
	}
	if out.ChannelID == "" {
		return nil, errors.New("channel-info returned no channel id")
	}
	return &adapter.ChannelInfo{
		ChannelID:   out.ChannelID,
		ChannelName: out.ChannelName,
		Uploader:    out.Uploader,
	}, nil
}

func (e *Extractor) FetchTranscript(ctx context.Context, videoID string) (string, error) {
	payload := map[string]any{"video_id": videoID}
	b, _ := json.Marshal(payload)
	req, _ := http.NewRequestWithContext(ctx, http.MethodPost, e.base+"/transcript", bytes.NewReader(b))
	req.Header.Set("Content-Type", "application/json")

	resp, err := e.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode == http.StatusNotFound {
		return "", domain.ErrNotFound
	}
	if resp.StatusCode >= 300 {
		return "", fmt.Errorf("transcript http %d", resp.StatusCode)
	}

	var out struct {
		Transcript string `json:"transcript"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", err
	}
	if out.Transcript == "" {
		return "", errors.New("empty transcript")
	}
	return out.Transcript, nil
}
