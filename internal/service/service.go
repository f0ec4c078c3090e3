package service

import (
	"context"

	"github.com/immxrtalbeast/consult_rooms/internal/domain"
)

type RoomInteractor interface {
	Create(ctx context.Context, spec domain.CreateRoomSpec) (*domain.Room, error)
	QuickCreate(ctx context.Context, roomID string) (*domain.Room, error)
	RequestJoin(ctx context.Context, roomID, password string) (*domain.Room, error)
	End(ctx context.Context, roomID string) error
	Cancel(ctx context.Context, roomID string) error
	Get(ctx context.Context, roomID string) (*domain.Room, error)
	List(ctx context.Context) ([]*domain.Room, error)
	ListActive(ctx context.Context) ([]*domain.Room, error)
	Validate(ctx context.Context, roomID string) (*domain.Room, error)
}

type ParticipantInteractor interface {
	Join(ctx context.Context, req domain.JoinRequest) (*domain.Participant, error)
	Leave(ctx context.Context, roomID, participantID string) error
	MarkDisconnected(ctx context.Context, roomID, participantID string) error
	ActiveCount(ctx context.Context, roomID string) (int, error)
	List(ctx context.Context, roomID string) ([]*domain.Participant, error)
	ListActive(ctx context.Context, roomID string) ([]*domain.Participant, error)
	UpdateMedia(ctx context.Context, roomID, participantID string, media domain.MediaState) (*domain.Participant, error)
	Messages(ctx context.Context, roomID string) ([]*domain.MeetingMessage, error)
}

// Notifier observes room and membership transitions. Calls are made after
// the room lock is released, in the order the transitions were applied.
type Notifier interface {
	RoomCreated(ctx context.Context, room *domain.Room)
	RoomStarted(ctx context.Context, room *domain.Room)
	RoomClosed(ctx context.Context, room *domain.Room)
	ParticipantJoined(ctx context.Context, p *domain.Participant)
	ParticipantLeft(ctx context.Context, p *domain.Participant)
}

// Notifiers fans every call out to each notifier in turn.
type Notifiers []Notifier

func (n Notifiers) RoomCreated(ctx context.Context, room *domain.Room) {
	for _, notifier := range n {
		notifier.RoomCreated(ctx, room)
	}
}

func (n Notifiers) RoomStarted(ctx context.Context, room *domain.Room) {
	for _, notifier := range n {
		notifier.RoomStarted(ctx, room)
	}
}

func (n Notifiers) RoomClosed(ctx context.Context, room *domain.Room) {
	for _, notifier := range n {
		notifier.RoomClosed(ctx, room)
	}
}

func (n Notifiers) ParticipantJoined(ctx context.Context, p *domain.Participant) {
	for _, notifier := range n {
		notifier.ParticipantJoined(ctx, p)
	}
}

func (n Notifiers) ParticipantLeft(ctx context.Context, p *domain.Participant) {
	for _, notifier := range n {
		notifier.ParticipantLeft(ctx, p)
	}
}

// pending collects notifications raised under a room lock so they can be
// delivered once it is released.
type pending struct {
	calls []func(ctx context.Context, n Notifier)
}

func (p *pending) roomCreated(room *domain.Room) {
	room = room.Clone()
	p.calls = append(p.calls, func(ctx context.Context, n Notifier) { n.RoomCreated(ctx, room) })
}

func (p *pending) roomStarted(room *domain.Room) {
	room = room.Clone()
	p.calls = append(p.calls, func(ctx context.Context, n Notifier) { n.RoomStarted(ctx, room) })
}

func (p *pending) roomClosed(room *domain.Room) {
	room = room.Clone()
	p.calls = append(p.calls, func(ctx context.Context, n Notifier) { n.RoomClosed(ctx, room) })
}

func (p *pending) participantJoined(participant *domain.Participant) {
	participant = participant.Clone()
	p.calls = append(p.calls, func(ctx context.Context, n Notifier) { n.ParticipantJoined(ctx, participant) })
}

func (p *pending) participantLeft(participant *domain.Participant) {
	participant = participant.Clone()
	p.calls = append(p.calls, func(ctx context.Context, n Notifier) { n.ParticipantLeft(ctx, participant) })
}

func (p *pending) flush(ctx context.Context, n Notifier) {
	if n == nil {
		return
	}
	for _, call := range p.calls {
		call(ctx, n)
	}
	p.calls = nil
}
