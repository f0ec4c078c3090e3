package domain

import (
	"time"
)

type RoomStatus string

const (
	RoomStatusScheduled RoomStatus = "SCHEDULED"
	RoomStatusActive    RoomStatus = "ACTIVE"
	RoomStatusEnded     RoomStatus = "ENDED"
	RoomStatusCancelled RoomStatus = "CANCELLED"
)

// Terminal reports whether no transition may leave the status.
func (s RoomStatus) Terminal() bool {
	return s == RoomStatusEnded || s == RoomStatusCancelled
}

// CanTransition reports whether the room state machine allows moving from s to next.
func (s RoomStatus) CanTransition(next RoomStatus) bool {
	switch s {
	case RoomStatusScheduled:
		return next == RoomStatusActive || next == RoomStatusEnded || next == RoomStatusCancelled
	case RoomStatusActive:
		return next == RoomStatusEnded || next == RoomStatusCancelled
	default:
		return false
	}
}

// Features are flags consumed by clients. The core never enforces them.
type Features struct {
	Recording     bool `json:"recording"`
	Chat          bool `json:"chat"`
	FileSharing   bool `json:"file_sharing"`
	ScreenSharing bool `json:"screen_sharing"`
	Camera        bool `json:"camera"`
}

func AllFeatures() Features {
	return Features{
		Recording:     true,
		Chat:          true,
		FileSharing:   true,
		ScreenSharing: true,
		Camera:        true,
	}
}

// Room is a scheduled, capacity-bounded container for participants.
type Room struct {
	ID             string
	Name           string
	Description    string
	HostID         string
	HostName       string
	ScheduledStart time.Time
	ScheduledEnd   time.Time
	ActualStart    *time.Time
	ActualEnd      *time.Time
	Capacity       int
	Password       string
	Features       Features
	Status         RoomStatus
	// Extensions counts how many times a late join pushed ScheduledEnd forward.
	Extensions int
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// CreateRoomSpec is the input of room creation.
type CreateRoomSpec struct {
	ID             string `validate:"required,max=64"`
	Name           string `validate:"required,max=255"`
	Description    string `validate:"max=1024"`
	HostID         string `validate:"max=64"`
	HostName       string `validate:"required,max=255"`
	ScheduledStart time.Time
	ScheduledEnd   time.Time
	Duration       time.Duration `validate:"gte=0"`
	Capacity       int           `validate:"omitempty,min=2"`
	Password       string        `validate:"max=128"`
	Features       *Features
}

// NewRoom builds a SCHEDULED room from spec. Zero start means now, zero end
// means start+duration, zero duration means defaultDuration.
func NewRoom(spec CreateRoomSpec, now time.Time, defaultDuration time.Duration, defaultCapacity int) *Room {
	start := spec.ScheduledStart
	if start.IsZero() {
		start = now
	}
	end := spec.ScheduledEnd
	if end.IsZero() {
		duration := spec.Duration
		if duration <= 0 {
			duration = defaultDuration
		}
		end = start.Add(duration)
	}
	capacity := spec.Capacity
	if capacity <= 0 {
		capacity = defaultCapacity
	}
	features := AllFeatures()
	if spec.Features != nil {
		features = *spec.Features
	}

	return &Room{
		ID:             spec.ID,
		Name:           spec.Name,
		Description:    spec.Description,
		HostID:         spec.HostID,
		HostName:       spec.HostName,
		ScheduledStart: start.UTC(),
		ScheduledEnd:   end.UTC(),
		Capacity:       capacity,
		Password:       spec.Password,
		Features:       features,
		Status:         RoomStatusScheduled,
		CreatedAt:      now.UTC(),
		UpdatedAt:      now.UTC(),
	}
}

// IsExpired reports whether scheduled_end is in the past relative to now.
func (r *Room) IsExpired(now time.Time) bool {
	if r == nil {
		return true
	}
	if r.ScheduledEnd.IsZero() {
		return false
	}
	return now.After(r.ScheduledEnd)
}

// CheckPassword reports whether password opens the room.
func (r *Room) CheckPassword(password string) bool {
	return r.Password == "" || r.Password == password
}

// Start moves a SCHEDULED room to ACTIVE and stamps ActualStart.
func (r *Room) Start(now time.Time) bool {
	if r.Status != RoomStatusScheduled {
		return false
	}
	t := now.UTC()
	r.Status = RoomStatusActive
	r.ActualStart = &t
	r.UpdatedAt = t
	return true
}

// End moves the room to ENDED. It stamps ActualEnd once and reports false
// when the room was already terminal.
func (r *Room) End(now time.Time) bool {
	if r.Status.Terminal() {
		return false
	}
	t := now.UTC()
	if r.ActualStart != nil && t.Before(*r.ActualStart) {
		t = *r.ActualStart
	}
	r.Status = RoomStatusEnded
	r.ActualEnd = &t
	r.UpdatedAt = now.UTC()
	return true
}

// Cancel moves a SCHEDULED room to CANCELLED.
func (r *Room) Cancel(now time.Time) error {
	if r.Status != RoomStatusScheduled {
		return ErrInvalidTransition
	}
	t := now.UTC()
	r.Status = RoomStatusCancelled
	r.ActualEnd = &t
	r.UpdatedAt = t
	return nil
}

// Extend pushes ScheduledEnd to now+grace after a late join.
func (r *Room) Extend(now time.Time, grace time.Duration) {
	r.ScheduledEnd = now.Add(grace).UTC()
	r.Extensions++
	r.UpdatedAt = now.UTC()
}

func (r *Room) Clone() *Room {
	if r == nil {
		return nil
	}
	c := *r
	if r.ActualStart != nil {
		t := *r.ActualStart
		c.ActualStart = &t
	}
	if r.ActualEnd != nil {
		t := *r.ActualEnd
		c.ActualEnd = &t
	}
	return &c
}
