package domain

import (
	"time"
)

type ParticipantRole string

const (
	RoleHost        ParticipantRole = "HOST"
	RoleModerator   ParticipantRole = "MODERATOR"
	RoleParticipant ParticipantRole = "PARTICIPANT"
	RoleObserver    ParticipantRole = "OBSERVER"
)

func ParseRole(s string) (ParticipantRole, bool) {
	switch ParticipantRole(s) {
	case RoleHost, RoleModerator, RoleParticipant, RoleObserver:
		return ParticipantRole(s), true
	case "":
		return RoleParticipant, true
	default:
		return "", false
	}
}

type ParticipantStatus string

const (
	ParticipantInvited      ParticipantStatus = "INVITED"
	ParticipantConnected    ParticipantStatus = "CONNECTED"
	ParticipantDisconnected ParticipantStatus = "DISCONNECTED"
	ParticipantLeft         ParticipantStatus = "LEFT"
)

// Participant is a membership record of one identity in one room. It
// outlives any single connection.
type Participant struct {
	RoomID            string
	ParticipantID     string
	DisplayName       string
	Email             string
	Role              ParticipantRole
	Status            ParticipantStatus
	JoinedAt          *time.Time
	LeftAt            *time.Time
	AudioEnabled      bool
	VideoEnabled      bool
	ScreenSharing     bool
	ConnectionQuality string
	// SessionID identifies the connection that last joined. Leaves and
	// drops reported for an older session are ignored.
	SessionID string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// HoldsSeat reports whether the participant occupies capacity in the room.
// A DISCONNECTED participant keeps its seat for the reconnect grace window.
func (p *Participant) HoldsSeat() bool {
	return p.Status == ParticipantConnected || p.Status == ParticipantDisconnected
}

// Connect marks the participant CONNECTED with a fresh joined_at.
func (p *Participant) Connect(now time.Time) {
	t := now.UTC()
	p.Status = ParticipantConnected
	p.JoinedAt = &t
	p.LeftAt = nil
	p.UpdatedAt = t
}

// Leave marks the participant LEFT. left_at never precedes joined_at.
func (p *Participant) Leave(now time.Time) {
	t := now.UTC()
	if p.JoinedAt != nil && t.Before(*p.JoinedAt) {
		t = *p.JoinedAt
	}
	p.Status = ParticipantLeft
	p.LeftAt = &t
	p.UpdatedAt = now.UTC()
}

func (p *Participant) Disconnect(now time.Time) {
	p.Status = ParticipantDisconnected
	p.UpdatedAt = now.UTC()
}

// SessionDuration is the time between joined_at and left_at, or now when
// the participant is still in the room.
func (p *Participant) SessionDuration(now time.Time) time.Duration {
	if p.JoinedAt == nil {
		return 0
	}
	end := now
	if p.LeftAt != nil {
		end = *p.LeftAt
	}
	return end.Sub(*p.JoinedAt)
}

func (p *Participant) Clone() *Participant {
	if p == nil {
		return nil
	}
	c := *p
	if p.JoinedAt != nil {
		t := *p.JoinedAt
		c.JoinedAt = &t
	}
	if p.LeftAt != nil {
		t := *p.LeftAt
		c.LeftAt = &t
	}
	return &c
}

// MediaState carries the client-reported media flags of a participant.
type MediaState struct {
	AudioEnabled      *bool
	VideoEnabled      *bool
	ScreenSharing     *bool
	ConnectionQuality *string
}

func (p *Participant) ApplyMedia(m MediaState, now time.Time) {
	if m.AudioEnabled != nil {
		p.AudioEnabled = *m.AudioEnabled
	}
	if m.VideoEnabled != nil {
		p.VideoEnabled = *m.VideoEnabled
	}
	if m.ScreenSharing != nil {
		p.ScreenSharing = *m.ScreenSharing
	}
	if m.ConnectionQuality != nil {
		p.ConnectionQuality = *m.ConnectionQuality
	}
	p.UpdatedAt = now.UTC()
}
