package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/immxrtalbeast/consult_rooms/internal/config"
	"github.com/immxrtalbeast/consult_rooms/internal/domain"
	"github.com/immxrtalbeast/consult_rooms/internal/repository"
	"github.com/immxrtalbeast/consult_rooms/lib/logger/slogdiscard"
	"github.com/stretchr/testify/require"
)

type recordingNotifier struct {
	mu     sync.Mutex
	events []string
}

func (n *recordingNotifier) add(event string) {
	n.mu.Lock()
	n.events = append(n.events, event)
	n.mu.Unlock()
}

func (n *recordingNotifier) RoomCreated(_ context.Context, room *domain.Room) {
	n.add("created:" + room.ID)
}

func (n *recordingNotifier) RoomStarted(_ context.Context, room *domain.Room) {
	n.add("started:" + room.ID)
}

func (n *recordingNotifier) RoomClosed(_ context.Context, room *domain.Room) {
	n.add("closed:" + room.ID + ":" + string(room.Status))
}

func (n *recordingNotifier) ParticipantJoined(_ context.Context, p *domain.Participant) {
	n.add("joined:" + p.ParticipantID)
}

func (n *recordingNotifier) ParticipantLeft(_ context.Context, p *domain.Participant) {
	n.add("left:" + p.ParticipantID)
}

func (n *recordingNotifier) snapshot() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]string(nil), n.events...)
}

func testRoomsConfig() config.RoomsConfig {
	return config.RoomsConfig{
		DefaultDuration: 15 * time.Minute,
		DefaultCapacity: 10,
		LateJoinPolicy:  config.LateJoinExtend,
		LateJoinGrace:   120 * time.Minute,
		StoreRetries:    3,
	}
}

type fixture struct {
	store        *repository.InMemoryRoomStore
	rooms        *RoomService
	participants *ParticipantService
	notes        *recordingNotifier
}

func newFixture(t *testing.T, cfg config.RoomsConfig) *fixture {
	t.Helper()
	store := repository.NewInMemoryRoomStore()
	notes := &recordingNotifier{}
	rooms := NewRoomService(store, notes, cfg, slogdiscard.NewDiscardLogger())
	return &fixture{
		store:        store,
		rooms:        rooms,
		participants: rooms.Participants(),
		notes:        notes,
	}
}

func (f *fixture) createRoom(t *testing.T, spec domain.CreateRoomSpec) *domain.Room {
	t.Helper()
	if spec.Name == "" {
		spec.Name = "consultation"
	}
	if spec.HostName == "" {
		spec.HostName = "Dr. House"
	}
	room, err := f.rooms.Create(context.Background(), spec)
	require.NoError(t, err)
	return room
}

func (f *fixture) join(roomID, participantID string) (*domain.Participant, error) {
	return f.participants.Join(context.Background(), domain.JoinRequest{
		RoomID: roomID,
		Identity: domain.Identity{
			ParticipantID: participantID,
			DisplayName:   "user " + participantID,
		},
	})
}
