package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/immxrtalbeast/consult_rooms/internal/config"
	"github.com/immxrtalbeast/consult_rooms/internal/domain"
	"github.com/immxrtalbeast/consult_rooms/internal/repository/mocks"
	"github.com/immxrtalbeast/consult_rooms/lib/logger/slogdiscard"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

func TestCreateRoom(t *testing.T) {
	f := newFixture(t, testRoomsConfig())
	ctx := context.Background()

	room := f.createRoom(t, domain.CreateRoomSpec{ID: "r1", HostID: "doc"})
	assert.Equal(t, domain.RoomStatusScheduled, room.Status)
	assert.Equal(t, 10, room.Capacity)
	assert.Equal(t, 15*time.Minute, room.ScheduledEnd.Sub(room.ScheduledStart))

	host, err := f.store.FindParticipant(ctx, "r1", "doc")
	require.NoError(t, err)
	assert.Equal(t, domain.RoleHost, host.Role)
	assert.Equal(t, domain.ParticipantInvited, host.Status)

	_, err = f.rooms.Create(ctx, domain.CreateRoomSpec{ID: "r1", Name: "again", HostName: "x"})
	assert.ErrorIs(t, err, domain.ErrDuplicateRoom)

	assert.Equal(t, []string{"created:r1"}, f.notes.snapshot())
}

func TestCreateRoomRejectsInvalidSpec(t *testing.T) {
	f := newFixture(t, testRoomsConfig())
	ctx := context.Background()
	now := time.Now()

	tests := []struct {
		name string
		spec domain.CreateRoomSpec
	}{
		{"missing id", domain.CreateRoomSpec{Name: "n", HostName: "h"}},
		{"missing name", domain.CreateRoomSpec{ID: "a", HostName: "h"}},
		{"capacity below two", domain.CreateRoomSpec{ID: "b", Name: "n", HostName: "h", Capacity: 1}},
		{"end before start", domain.CreateRoomSpec{
			ID: "c", Name: "n", HostName: "h",
			ScheduledStart: now, ScheduledEnd: now.Add(-time.Minute),
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.rooms.Create(ctx, tt.spec)
			assert.ErrorIs(t, err, domain.ErrInvalidRoomSpec)
		})
	}
}

func TestQuickCreate(t *testing.T) {
	f := newFixture(t, testRoomsConfig())

	room, err := f.rooms.QuickCreate(context.Background(), "demo")
	require.NoError(t, err)
	assert.Equal(t, 10, room.Capacity)
	assert.Equal(t, 2*time.Hour, room.ScheduledEnd.Sub(room.ScheduledStart))
	assert.Equal(t, domain.AllFeatures(), room.Features)
}

func TestCapacityScenario(t *testing.T) {
	f := newFixture(t, testRoomsConfig())
	ctx := context.Background()
	f.createRoom(t, domain.CreateRoomSpec{ID: "demo-1", Capacity: 2})

	_, err := f.join("demo-1", "p1")
	require.NoError(t, err)

	room, err := f.rooms.Get(ctx, "demo-1")
	require.NoError(t, err)
	assert.Equal(t, domain.RoomStatusActive, room.Status)
	require.NotNil(t, room.ActualStart)

	_, err = f.join("demo-1", "p2")
	require.NoError(t, err)

	_, err = f.join("demo-1", "p3")
	assert.ErrorIs(t, err, domain.ErrRoomFull)

	count, err := f.participants.ActiveCount(ctx, "demo-1")
	require.NoError(t, err)
	assert.Equal(t, 2, count)
}

func TestJoinChecks(t *testing.T) {
	f := newFixture(t, testRoomsConfig())
	ctx := context.Background()
	f.createRoom(t, domain.CreateRoomSpec{ID: "locked", Password: "secret"})

	_, err := f.join("nowhere", "p1")
	assert.ErrorIs(t, err, domain.ErrRoomNotFound)

	_, err = f.participants.Join(ctx, domain.JoinRequest{
		RoomID:   "locked",
		Identity: domain.Identity{ParticipantID: "p1"},
		Password: "wrong",
	})
	assert.ErrorIs(t, err, domain.ErrInvalidPassword)

	p, err := f.participants.Join(ctx, domain.JoinRequest{
		RoomID:   "locked",
		Identity: domain.Identity{ParticipantID: "p1"},
		Password: "secret",
	})
	require.NoError(t, err)
	assert.Equal(t, "p1", p.DisplayName)
	assert.Equal(t, domain.RoleParticipant, p.Role)

	require.NoError(t, f.rooms.End(ctx, "locked"))
	_, err = f.participants.Join(ctx, domain.JoinRequest{
		RoomID:   "locked",
		Identity: domain.Identity{ParticipantID: "p2"},
		Password: "secret",
	})
	assert.ErrorIs(t, err, domain.ErrRoomEnded)
}

func TestRequestJoinStartsRoom(t *testing.T) {
	f := newFixture(t, testRoomsConfig())
	f.createRoom(t, domain.CreateRoomSpec{ID: "r1"})

	room, err := f.rooms.RequestJoin(context.Background(), "r1", "")
	require.NoError(t, err)
	assert.Equal(t, domain.RoomStatusActive, room.Status)
	assert.Contains(t, f.notes.snapshot(), "started:r1")
}

func TestEndIsIdempotent(t *testing.T) {
	f := newFixture(t, testRoomsConfig())
	ctx := context.Background()
	f.createRoom(t, domain.CreateRoomSpec{ID: "r1"})
	_, err := f.join("r1", "p1")
	require.NoError(t, err)
	_, err = f.join("r1", "p2")
	require.NoError(t, err)

	require.NoError(t, f.rooms.End(ctx, "r1"))
	first, err := f.rooms.Get(ctx, "r1")
	require.NoError(t, err)
	require.NotNil(t, first.ActualEnd)

	time.Sleep(5 * time.Millisecond)
	require.NoError(t, f.rooms.End(ctx, "r1"))
	second, err := f.rooms.Get(ctx, "r1")
	require.NoError(t, err)

	assert.Equal(t, domain.RoomStatusEnded, second.Status)
	assert.True(t, first.ActualEnd.Equal(*second.ActualEnd))
	assert.False(t, second.ActualEnd.Before(*second.ActualStart))

	for _, id := range []string{"p1", "p2"} {
		p, err := f.store.FindParticipant(ctx, "r1", id)
		require.NoError(t, err)
		assert.Equal(t, domain.ParticipantLeft, p.Status)
	}

	closed := 0
	events := f.notes.snapshot()
	for i, e := range events {
		if e == "closed:r1:ENDED" {
			closed++
			assert.Equal(t, []string{"left:p1", "left:p2"}, events[i+1:])
		}
	}
	assert.Equal(t, 1, closed)

	assert.ErrorIs(t, f.rooms.End(ctx, "ghost"), domain.ErrRoomNotFound)
}

func TestCancel(t *testing.T) {
	f := newFixture(t, testRoomsConfig())
	ctx := context.Background()
	f.createRoom(t, domain.CreateRoomSpec{ID: "sched"})
	f.createRoom(t, domain.CreateRoomSpec{ID: "live"})
	_, err := f.join("live", "p1")
	require.NoError(t, err)

	require.NoError(t, f.rooms.Cancel(ctx, "sched"))
	room, err := f.rooms.Get(ctx, "sched")
	require.NoError(t, err)
	assert.Equal(t, domain.RoomStatusCancelled, room.Status)

	assert.ErrorIs(t, f.rooms.Cancel(ctx, "sched"), domain.ErrInvalidTransition)
	assert.ErrorIs(t, f.rooms.Cancel(ctx, "live"), domain.ErrInvalidTransition)
}

func TestLateJoinExtendsRoom(t *testing.T) {
	cfg := testRoomsConfig()
	cfg.MaxLateJoinExtensions = 1
	f := newFixture(t, cfg)
	ctx := context.Background()
	now := time.Now()

	f.createRoom(t, domain.CreateRoomSpec{
		ID:             "late",
		ScheduledStart: now.Add(-time.Hour),
		ScheduledEnd:   now.Add(-time.Second),
	})

	_, err := f.rooms.Validate(ctx, "late")
	require.NoError(t, err)

	_, err = f.join("late", "p1")
	require.NoError(t, err)

	room, err := f.rooms.Get(ctx, "late")
	require.NoError(t, err)
	assert.Equal(t, 1, room.Extensions)
	assert.True(t, room.ScheduledEnd.After(now.Add(119*time.Minute)))

	f.rooms.now = func() time.Time { return now.Add(3 * time.Hour) }
	_, err = f.join("late", "p2")
	assert.ErrorIs(t, err, domain.ErrRoomEnded)

	_, err = f.rooms.Validate(ctx, "late")
	assert.ErrorIs(t, err, domain.ErrRoomEnded)
}

func TestLateJoinRejectPolicy(t *testing.T) {
	cfg := testRoomsConfig()
	cfg.LateJoinPolicy = config.LateJoinReject
	f := newFixture(t, cfg)
	now := time.Now()

	f.createRoom(t, domain.CreateRoomSpec{
		ID:             "late",
		ScheduledStart: now.Add(-time.Hour),
		ScheduledEnd:   now.Add(-time.Second),
	})

	_, err := f.join("late", "p1")
	assert.ErrorIs(t, err, domain.ErrRoomEnded)
}

func TestListActive(t *testing.T) {
	f := newFixture(t, testRoomsConfig())
	ctx := context.Background()
	f.createRoom(t, domain.CreateRoomSpec{ID: "a"})
	f.createRoom(t, domain.CreateRoomSpec{ID: "b"})
	_, err := f.join("b", "p1")
	require.NoError(t, err)

	active, err := f.rooms.ListActive(ctx)
	require.NoError(t, err)
	require.Len(t, active, 1)
	assert.Equal(t, "b", active[0].ID)

	all, err := f.rooms.List(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 2)
}

func TestStoreFailureIsStorageUnavailable(t *testing.T) {
	ctrl := gomock.NewController(t)
	store := mocks.NewMockRoomStore(ctrl)
	rooms := NewRoomService(store, nil, testRoomsConfig(), slogdiscard.NewDiscardLogger())

	store.EXPECT().FindRoom(gomock.Any(), "r1").Return(nil, errors.New("connection refused"))

	_, err := rooms.Participants().Join(context.Background(), domain.JoinRequest{
		RoomID:   "r1",
		Identity: domain.Identity{ParticipantID: "p1"},
	})
	assert.ErrorIs(t, err, domain.ErrStorageUnavailable)
	assert.False(t, domain.IsDomainError(err))
}

func TestIdempotentWritesAreRetried(t *testing.T) {
	ctrl := gomock.NewController(t)
	store := mocks.NewMockRoomStore(ctrl)
	rooms := NewRoomService(store, nil, testRoomsConfig(), slogdiscard.NewDiscardLogger())

	gomock.InOrder(
		store.EXPECT().CreateRoom(gomock.Any(), gomock.Any()).Return(nil),
		store.EXPECT().UpsertParticipant(gomock.Any(), gomock.Any()).Return(errors.New("timeout")).Times(2),
		store.EXPECT().UpsertParticipant(gomock.Any(), gomock.Any()).Return(nil),
	)

	room, err := rooms.Create(context.Background(), domain.CreateRoomSpec{ID: "r1", Name: "n", HostName: "h"})
	require.NoError(t, err)
	assert.Equal(t, "r1", room.ID)
}

func TestRetriesGiveUp(t *testing.T) {
	ctrl := gomock.NewController(t)
	store := mocks.NewMockRoomStore(ctrl)
	cfg := testRoomsConfig()
	cfg.StoreRetries = 1
	rooms := NewRoomService(store, nil, cfg, slogdiscard.NewDiscardLogger())

	store.EXPECT().CreateRoom(gomock.Any(), gomock.Any()).Return(nil)
	store.EXPECT().UpsertParticipant(gomock.Any(), gomock.Any()).Return(errors.New("timeout")).Times(2)

	_, err := rooms.Create(context.Background(), domain.CreateRoomSpec{ID: "r1", Name: "n", HostName: "h"})
	assert.ErrorIs(t, err, domain.ErrStorageUnavailable)
}

func TestHungStoreReleasesRoomLock(t *testing.T) {
	ctrl := gomock.NewController(t)
	store := mocks.NewMockRoomStore(ctrl)
	cfg := testRoomsConfig()
	cfg.StoreRetryBudget = 50 * time.Millisecond
	rooms := NewRoomService(store, nil, cfg, slogdiscard.NewDiscardLogger())

	store.EXPECT().CreateRoom(gomock.Any(), gomock.Any()).Return(nil)
	store.EXPECT().UpsertParticipant(gomock.Any(), gomock.Any()).DoAndReturn(
		func(ctx context.Context, _ *domain.Participant) error {
			<-ctx.Done()
			return ctx.Err()
		},
	)

	start := time.Now()
	_, err := rooms.Create(context.Background(), domain.CreateRoomSpec{ID: "r1", Name: "n", HostName: "h"})
	assert.ErrorIs(t, err, domain.ErrStorageUnavailable)
	assert.Less(t, time.Since(start), time.Second)
	assert.Equal(t, 0, rooms.locks.size())
}
