package adapter

import "context"

// Participant is one connected identity in a live voice room.
type Participant struct {
	Identity string
	Name     string
}

// RoomServiceAdapter wraps the external voice infrastructure. Implementations
// must return domain.ErrRoomNotFound when the room does not exist so callers
// can treat teardown of an already-gone room as success.
type RoomServiceAdapter interface {
	ListParticipants(ctx context.Context, roomName string) ([]Participant, error)
	RemoveParticipant(ctx context.Context, roomName, identity string) error
	DeleteRoom(ctx context.Context, roomName string) error
}
