package domain

import (
	"time"

	"github.com/google/uuid"
)

type MeetingMessageType string

const (
	MeetingMessageText   MeetingMessageType = "TEXT"
	MeetingMessageSystem MeetingMessageType = "SYSTEM"
)

const SystemSenderID = "system"

// MeetingMessage is a persisted entry of a room's history. Signaling
// traffic is never stored here.
type MeetingMessage struct {
	ID         uuid.UUID
	RoomID     string
	SenderID   string
	SenderName string
	SenderRole ParticipantRole
	Type       MeetingMessageType
	Content    string
	System     bool
	CreatedAt  time.Time
}

func NewSystemMessage(roomID string, content string, now time.Time) *MeetingMessage {
	return &MeetingMessage{
		ID:         uuid.New(),
		RoomID:     roomID,
		SenderID:   SystemSenderID,
		SenderName: "System",
		SenderRole: RoleParticipant,
		Type:       MeetingMessageSystem,
		Content:    content,
		System:     true,
		CreatedAt:  now.UTC(),
	}
}
