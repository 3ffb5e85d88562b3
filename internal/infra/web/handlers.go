// File: internal/infra/web/handlers.go
package web

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"creator-twin-backend/internal/domain"
	"creator-twin-backend/internal/domain/model"
	"creator-twin-backend/internal/infra/redis"
	"creator-twin-backend/internal/usecase"
)

// --- jobs ---

type createVideoJobRequest struct {
	CreatorID string   `json:"creatorId"`
	VideoIDs  []string `json:"videoIds"`
}

func (s *Server) handleCreateVideoJob(w http.ResponseWriter, r *http.Request) {
	var req createVideoJobRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	job, err := s.jobs.CreateVideoJob(r.Context(), req.CreatorID, req.VideoIDs)
	if err != nil {
		if errors.Is(err, domain.ErrInvalidArgument) {
			writeError(w, http.StatusBadRequest, "Missing required fields: creatorId, videoIds")
			return
		}
		s.log.Error().Err(err).Msg("create video job failed")
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusAccepted, videoJobBody(job))
}

func (s *Server) handleGetVideoJob(w http.ResponseWriter, r *http.Request) {
	jobID := chi.URLParam(r, "jobID")
	job, err := s.jobs.GetVideoJob(r.Context(), jobID)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, videoJobBody(job))
}

func videoJobBody(job *model.VideoJob) map[string]any {
	body := map[string]any{
		"id":              job.ID,
		"status":          string(job.Status),
		"progress":        job.Progress,
		"videosProcessed": job.VideosProcessed,
		"videosFailed":    job.VideosFailed,
		"totalVideos":     job.TotalVideos(),
		"result":          job.Result,
		"error":           job.ErrorMessage,
		"createdAt":       job.CreatedAt,
		"startedAt":       job.StartedAt,
		"completedAt":     job.CompletedAt,
		"metadata":        job.Metadata,
	}
	return body
}

type createChannelJobRequest struct {
	Handle string `json:"handle"`
}

func (s *Server) handleCreateChannelJob(w http.ResponseWriter, r *http.Request) {
	var req createChannelJobRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	job, err := s.jobs.CreateChannelJob(r.Context(), userIDFrom(r.Context()), req.Handle)
	if err != nil {
		if errors.Is(err, domain.ErrInvalidArgument) {
			writeError(w, http.StatusBadRequest, "Missing required fields: handle")
			return
		}
		if errors.Is(err, domain.ErrNotFound) {
			writeError(w, http.StatusNotFound, "channel not found")
			return
		}
		s.log.Error().Err(err).Msg("create channel job failed")
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusAccepted, channelJobBody(job))
}

func (s *Server) handleGetChannelJob(w http.ResponseWriter, r *http.Request) {
	jobID := chi.URLParam(r, "jobID")
	job, err := s.jobs.GetChannelJob(r.Context(), jobID, userIDFrom(r.Context()))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, channelJobBody(job))
}

func channelJobBody(job *model.ChannelJob) map[string]any {
	return map[string]any{
		"jobId":        job.ID,
		"status":       string(job.Status),
		"progress":     job.Progress,
		"channelId":    job.ChannelID,
		"errorMessage": job.ErrorMessage,
		"result":       job.Result,
		"createdAt":    job.CreatedAt,
		"completedAt":  job.CompletedAt,
		"metadata":     job.Metadata,
	}
}

// --- voice ---

type transcriptionRequest struct {
	RoomName      string `json:"roomName"`
	CreatorID     string `json:"creatorId"`
	ParticipantID string `json:"participantId"`
	TrackID       string `json:"trackId"`
	Text          string `json:"text"`
	Speaker       string `json:"speaker"`
	Timestamp     string `json:"timestamp"`
}

func (s *Server) handleTranscription(w http.ResponseWriter, r *http.Request) {
	var req transcriptionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	if s.limiter != nil {
		ok, err := s.limiter.Allow(r.Context(), redis.TranscriptionKey(req.RoomName), s.limitPerMin, time.Minute)
		if err != nil {
			s.log.Warn().Err(err).Msg("rate limiter unavailable, allowing request")
		} else if !ok {
			writeError(w, http.StatusTooManyRequests, "rate limit exceeded")
			return
		}
	}

	if req.Speaker != "" {
		if _, ok := model.ParseRole(req.Speaker); !ok {
			writeError(w, http.StatusBadRequest, "Invalid speaker: must be 'user' or 'assistant'")
			return
		}
	}

	frag := usecase.TranscriptFragment{
		RoomName:      req.RoomName,
		CreatorID:     req.CreatorID,
		ParticipantID: req.ParticipantID,
		TrackID:       req.TrackID,
		Text:          req.Text,
		Speaker:       req.Speaker,
	}
	if req.Timestamp != "" {
		ts, err := time.Parse(time.RFC3339Nano, req.Timestamp)
		if err != nil {
			writeError(w, http.StatusBadRequest, "Invalid timestamp: expected RFC3339")
			return
		}
		frag.Timestamp = ts
	}

	msg, err := s.conversations.IngestTranscript(r.Context(), userIDFrom(r.Context()), frag)
	if err != nil {
		if errors.Is(err, domain.ErrInvalidArgument) {
			writeError(w, http.StatusBadRequest, "Missing required fields: roomName, creatorId, participantId, text")
			return
		}
		s.log.Error().Err(err).Str("room", req.RoomName).Msg("transcription ingest failed")
		writeError(w, http.StatusInternalServerError, "failed to save transcription")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"success":   true,
		"message":   "Transcription saved",
		"messageId": msg.ID,
	})
}

type endSessionRequest struct {
	RoomName string `json:"roomName"`
}

func (s *Server) handleEndSession(w http.ResponseWriter, r *http.Request) {
	var req endSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if req.RoomName == "" {
		writeError(w, http.StatusBadRequest, "Missing required field: roomName")
		return
	}

	res, err := s.voice.EndSession(r.Context(), req.RoomName)
	if err != nil {
		s.log.Error().Err(err).Str("room", req.RoomName).Msg("end session failed")
		writeError(w, http.StatusInternalServerError, "failed to end session")
		return
	}

	body := map[string]any{
		"success":  true,
		"roomName": res.RoomName,
	}
	if res.AlreadyGone {
		body["message"] = "Room already ended"
	} else {
		body["message"] = "Session ended"
		body["participantsRemoved"] = res.ParticipantsRemoved
	}
	writeJSON(w, http.StatusOK, body)
}

// --- background jobs ---

func (s *Server) handleStartBackgroundJobs(w http.ResponseWriter, r *http.Request) {
	// Background services outlive the triggering request.
	started := s.runner.Start(context.Background())
	msg := "Background services started"
	if !started {
		msg = "Background services already running"
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"message": msg,
		"services": map[string]any{
			"backgroundJobs":      true,
			"conversationTracker": true,
		},
	})
}

func (s *Server) handleBackgroundJobsStatus(w http.ResponseWriter, r *http.Request) {
	status := s.runner.Status()
	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"status": map[string]any{
			"running":   status.Running,
			"startedAt": status.StartedAt,
			"conversationTracker": map[string]any{
				"activeConversations": status.Tracker.Tracked,
				"sweepInProgress":     status.Tracker.Sweeping,
				"conversations":       status.Tracker.Conversations,
			},
		},
	})
}

// --- conversations ---

func (s *Server) handleListConversations(w http.ResponseWriter, r *http.Request) {
	sessions, err := s.conversations.ListConversations(r.Context(), userIDFrom(r.Context()))
	if err != nil {
		s.log.Error().Err(err).Msg("list conversations failed")
		writeDomainError(w, err)
		return
	}

	items := make([]map[string]any, 0, len(sessions))
	for _, sess := range sessions {
		items = append(items, map[string]any{
			"id":           sess.ID,
			"creatorId":    sess.CreatorID,
			"summary":      sess.Summary,
			"messageCount": sess.MessageCount,
			"createdAt":    sess.CreatedAt,
			"updatedAt":    sess.UpdatedAt,
		})
	}
	writeJSON(w, http.StatusOK, map[string]any{"conversations": items})
}
