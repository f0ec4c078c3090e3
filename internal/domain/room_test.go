package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRoomDefaults(t *testing.T) {
	now := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

	room := NewRoom(CreateRoomSpec{ID: "r1", Name: "Consult", HostName: "Dr. A"}, now, 15*time.Minute, 10)

	assert.Equal(t, RoomStatusScheduled, room.Status)
	assert.Equal(t, now, room.ScheduledStart)
	assert.Equal(t, now.Add(15*time.Minute), room.ScheduledEnd)
	assert.Equal(t, 10, room.Capacity)
	assert.Equal(t, AllFeatures(), room.Features)
	assert.Nil(t, room.ActualStart)
	assert.Nil(t, room.ActualEnd)
}

func TestNewRoomExplicitSchedule(t *testing.T) {
	now := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	start := now.Add(time.Hour)

	withDuration := NewRoom(CreateRoomSpec{ID: "r1", ScheduledStart: start, Duration: 30 * time.Minute, Capacity: 3}, now, 15*time.Minute, 10)
	assert.Equal(t, start.Add(30*time.Minute), withDuration.ScheduledEnd)
	assert.Equal(t, 3, withDuration.Capacity)

	end := start.Add(2 * time.Hour)
	withEnd := NewRoom(CreateRoomSpec{ID: "r2", ScheduledStart: start, ScheduledEnd: end, Duration: time.Minute}, now, 15*time.Minute, 10)
	assert.Equal(t, end, withEnd.ScheduledEnd)
}

func TestRoomStatusTransitions(t *testing.T) {
	tests := []struct {
		from RoomStatus
		to   RoomStatus
		ok   bool
	}{
		{RoomStatusScheduled, RoomStatusActive, true},
		{RoomStatusScheduled, RoomStatusCancelled, true},
		{RoomStatusScheduled, RoomStatusEnded, true},
		{RoomStatusActive, RoomStatusEnded, true},
		{RoomStatusActive, RoomStatusCancelled, true},
		{RoomStatusActive, RoomStatusScheduled, false},
		{RoomStatusEnded, RoomStatusActive, false},
		{RoomStatusEnded, RoomStatusCancelled, false},
		{RoomStatusCancelled, RoomStatusActive, false},
		{RoomStatusCancelled, RoomStatusEnded, false},
	}
	for _, tt := range tests {
		t.Run(string(tt.from)+"->"+string(tt.to), func(t *testing.T) {
			assert.Equal(t, tt.ok, tt.from.CanTransition(tt.to))
		})
	}
}

func TestRoomEndIsIdempotent(t *testing.T) {
	now := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	room := NewRoom(CreateRoomSpec{ID: "r1"}, now, time.Minute, 2)

	require.True(t, room.Start(now))
	require.True(t, room.End(now.Add(time.Minute)))
	firstEnd := *room.ActualEnd

	assert.False(t, room.End(now.Add(time.Hour)))
	assert.Equal(t, RoomStatusEnded, room.Status)
	assert.Equal(t, firstEnd, *room.ActualEnd)
	assert.False(t, room.ActualEnd.Before(*room.ActualStart))
}

func TestRoomCancelOnlyFromScheduled(t *testing.T) {
	now := time.Now()
	room := NewRoom(CreateRoomSpec{ID: "r1"}, now, time.Minute, 2)
	require.NoError(t, room.Cancel(now))
	assert.Equal(t, RoomStatusCancelled, room.Status)

	active := NewRoom(CreateRoomSpec{ID: "r2"}, now, time.Minute, 2)
	active.Start(now)
	assert.ErrorIs(t, active.Cancel(now), ErrInvalidTransition)
}

func TestRoomExtend(t *testing.T) {
	now := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	room := NewRoom(CreateRoomSpec{ID: "r1", ScheduledEnd: now.Add(-time.Second)}, now.Add(-time.Hour), time.Minute, 2)
	require.True(t, room.IsExpired(now))

	room.Extend(now, 2*time.Hour)

	assert.False(t, room.IsExpired(now))
	assert.Equal(t, now.Add(2*time.Hour), room.ScheduledEnd)
	assert.Equal(t, 1, room.Extensions)
}

func TestParticipantLeaveNeverPrecedesJoin(t *testing.T) {
	joined := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	p := &Participant{RoomID: "r1", ParticipantID: "p1"}
	p.Connect(joined)
	require.True(t, p.HoldsSeat())

	p.Leave(joined.Add(-time.Second))

	assert.Equal(t, ParticipantLeft, p.Status)
	assert.False(t, p.LeftAt.Before(*p.JoinedAt))
	assert.False(t, p.HoldsSeat())
	assert.Zero(t, p.SessionDuration(joined.Add(time.Hour)))
}

func TestParseRole(t *testing.T) {
	role, ok := ParseRole("")
	assert.True(t, ok)
	assert.Equal(t, RoleParticipant, role)

	role, ok = ParseRole("HOST")
	assert.True(t, ok)
	assert.Equal(t, RoleHost, role)

	_, ok = ParseRole("ADMIN")
	assert.False(t, ok)
}

func TestSignalKindValid(t *testing.T) {
	for _, k := range []SignalKind{SignalOffer, SignalAnswer, SignalICECandidate, SignalNewParticipant, SignalParticipantLeft, SignalSystem} {
		assert.True(t, k.Valid(), k)
	}
	assert.False(t, SignalError.Valid())
	assert.False(t, SignalKind("chat").Valid())
}
