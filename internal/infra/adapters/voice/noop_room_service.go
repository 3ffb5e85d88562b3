package voice

import (
	"context"

	"creator-twin-backend/internal/domain/ports/adapter"
)

var _ adapter.RoomServiceAdapter = (*NoopRoomService)(nil)

// NoopRoomService is used when no media server is configured (dev mode).
type NoopRoomService struct{}

func (NoopRoomService) ListParticipants(ctx context.Context, roomName string) ([]adapter.Participant, error) {
	return nil, nil
}

func (NoopRoomService) RemoveParticipant(ctx context.Context, roomName, identity string) error {
	return nil
}

func (NoopRoomService) DeleteRoom(ctx context.Context, roomName string) error {
	return nil
}
