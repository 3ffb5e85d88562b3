// File: internal/usecase/voice_uc.go
package usecase

import (
	"context"
	"errors"

	"github.com/rs/zerolog"

	"creator-twin-backend/internal/domain"
	"creator-twin-backend/internal/domain/ports/adapter"
	"creator-twin-backend/internal/infra/metrics"
)

// Compile-time check
var _ VoiceUseCase = (*voiceUC)(nil)

type EndSessionResult struct {
	RoomName            string
	ParticipantsRemoved int
	AlreadyGone         bool
}

type VoiceUseCase interface {
	// EndSession tears down a live room. A room that no longer exists is a
	// successful no-op, never an error.
	EndSession(ctx context.Context, roomName string) (EndSessionResult, error)
}

type voiceUC struct {
	rooms adapter.RoomServiceAdapter
	log   *zerolog.Logger
}

func NewVoiceUseCase(rooms adapter.RoomServiceAdapter, logger *zerolog.Logger) *voiceUC {
	vLog := logger.With().Str("component", "VoiceUseCase").Logger()
	return &voiceUC{rooms: rooms, log: &vLog}
}

func (v *voiceUC) EndSession(ctx context.Context, roomName string) (EndSessionResult, error) {
	if roomName == "" {
		return EndSessionResult{}, domain.ErrInvalidArgument
	}
	res := EndSessionResult{RoomName: roomName}

	participants, err := v.rooms.ListParticipants(ctx, roomName)
	if err != nil {
		if errors.Is(err, domain.ErrRoomNotFound) {
			res.AlreadyGone = true
			metrics.IncVoiceSessionEnded("already_gone")
			return res, nil
		}
		metrics.IncVoiceSessionEnded("failed")
		return res, err
	}

	for _, p := range participants {
		if err := v.rooms.RemoveParticipant(ctx, roomName, p.Identity); err != nil {
			// The room can vanish mid-teardown; that still counts as ended.
			if errors.Is(err, domain.ErrRoomNotFound) {
				res.AlreadyGone = true
				metrics.IncVoiceSessionEnded("already_gone")
				return res, nil
			}
			v.log.Warn().Err(err).Str("room", roomName).Str("identity", p.Identity).Msg("remove participant failed")
			continue
		}
		res.ParticipantsRemoved++
	}

	if err := v.rooms.DeleteRoom(ctx, roomName); err != nil && !errors.Is(err, domain.ErrRoomNotFound) {
		metrics.IncVoiceSessionEnded("failed")
		return res, err
	}

	metrics.IncVoiceSessionEnded("ended")
	v.log.Info().Str("room", roomName).Int("participants_removed", res.ParticipantsRemoved).Msg("voice session ended")
	return res, nil
}
