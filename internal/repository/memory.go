package repository

import (
	"context"
	"sort"
	"sync"

	"github.com/immxrtalbeast/consult_rooms/internal/domain"
)

// InMemoryRoomStore keeps copies of every record so callers never share
// memory with the store.
type InMemoryRoomStore struct {
	mu           sync.RWMutex
	rooms        map[string]*domain.Room
	participants map[string]map[string]*domain.Participant
	messages     map[string][]*domain.MeetingMessage
}

func NewInMemoryRoomStore() *InMemoryRoomStore {
	return &InMemoryRoomStore{
		rooms:        make(map[string]*domain.Room),
		participants: make(map[string]map[string]*domain.Participant),
		messages:     make(map[string][]*domain.MeetingMessage),
	}
}

func (r *InMemoryRoomStore) CreateRoom(ctx context.Context, room *domain.Room) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.rooms[room.ID]; ok {
		return domain.ErrDuplicateRoom
	}

	r.rooms[room.ID] = room.Clone()
	return nil
}

func (r *InMemoryRoomStore) FindRoom(ctx context.Context, roomID string) (*domain.Room, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	room, ok := r.rooms[roomID]
	if !ok {
		return nil, domain.ErrRoomNotFound
	}

	return room.Clone(), nil
}

func (r *InMemoryRoomStore) SaveRoom(ctx context.Context, room *domain.Room) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.rooms[room.ID]; !ok {
		return domain.ErrRoomNotFound
	}

	r.rooms[room.ID] = room.Clone()
	return nil
}

func (r *InMemoryRoomStore) ListRooms(ctx context.Context) ([]*domain.Room, error) {
	return r.listRooms(ctx, func(*domain.Room) bool { return true })
}

func (r *InMemoryRoomStore) ListRoomsByStatus(ctx context.Context, status domain.RoomStatus) ([]*domain.Room, error) {
	return r.listRooms(ctx, func(room *domain.Room) bool { return room.Status == status })
}

func (r *InMemoryRoomStore) listRooms(ctx context.Context, keep func(*domain.Room) bool) ([]*domain.Room, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]*domain.Room, 0, len(r.rooms))
	for _, room := range r.rooms {
		if keep(room) {
			result = append(result, room.Clone())
		}
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].CreatedAt.Before(result[j].CreatedAt)
	})
	return result, nil
}

func (r *InMemoryRoomStore) UpsertParticipant(ctx context.Context, participant *domain.Participant) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.rooms[participant.RoomID]; !ok {
		return domain.ErrRoomNotFound
	}

	byID, ok := r.participants[participant.RoomID]
	if !ok {
		byID = make(map[string]*domain.Participant)
		r.participants[participant.RoomID] = byID
	}
	byID[participant.ParticipantID] = participant.Clone()
	return nil
}

func (r *InMemoryRoomStore) FindParticipant(ctx context.Context, roomID, participantID string) (*domain.Participant, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	p, ok := r.participants[roomID][participantID]
	if !ok {
		return nil, domain.ErrParticipantNotFound
	}
	return p.Clone(), nil
}

func (r *InMemoryRoomStore) ListParticipants(ctx context.Context, roomID string) ([]*domain.Participant, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	byID := r.participants[roomID]
	result := make([]*domain.Participant, 0, len(byID))
	for _, p := range byID {
		result = append(result, p.Clone())
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].CreatedAt.Equal(result[j].CreatedAt) {
			return result[i].ParticipantID < result[j].ParticipantID
		}
		return result[i].CreatedAt.Before(result[j].CreatedAt)
	})
	return result, nil
}

func (r *InMemoryRoomStore) CountConnected(ctx context.Context, roomID string) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	count := 0
	for _, p := range r.participants[roomID] {
		if p.Status == domain.ParticipantConnected {
			count++
		}
	}
	return count, nil
}

func (r *InMemoryRoomStore) SaveMessage(ctx context.Context, message *domain.MeetingMessage) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	for _, existing := range r.messages[message.RoomID] {
		if existing.ID == message.ID {
			return nil
		}
	}
	m := *message
	r.messages[message.RoomID] = append(r.messages[message.RoomID], &m)
	return nil
}

func (r *InMemoryRoomStore) ListMessages(ctx context.Context, roomID string) ([]*domain.MeetingMessage, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]*domain.MeetingMessage, 0, len(r.messages[roomID]))
	for _, m := range r.messages[roomID] {
		c := *m
		result = append(result, &c)
	}
	return result, nil
}
