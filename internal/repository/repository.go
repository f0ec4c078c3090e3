package repository

import (
	"context"

	"github.com/immxrtalbeast/consult_rooms/internal/domain"
)

//go:generate mockgen -source=repository.go -destination=mocks/store_mock.go -package=mocks

// RoomStore is the durable record of rooms, participants and meeting history.
// Lookups of missing records return domain.ErrRoomNotFound or
// domain.ErrParticipantNotFound.
type RoomStore interface {
	CreateRoom(ctx context.Context, room *domain.Room) error
	FindRoom(ctx context.Context, roomID string) (*domain.Room, error)
	SaveRoom(ctx context.Context, room *domain.Room) error
	ListRooms(ctx context.Context) ([]*domain.Room, error)
	ListRoomsByStatus(ctx context.Context, status domain.RoomStatus) ([]*domain.Room, error)

	UpsertParticipant(ctx context.Context, participant *domain.Participant) error
	FindParticipant(ctx context.Context, roomID, participantID string) (*domain.Participant, error)
	ListParticipants(ctx context.Context, roomID string) ([]*domain.Participant, error)
	CountConnected(ctx context.Context, roomID string) (int, error)

	SaveMessage(ctx context.Context, message *domain.MeetingMessage) error
	ListMessages(ctx context.Context, roomID string) ([]*domain.MeetingMessage, error)
}
