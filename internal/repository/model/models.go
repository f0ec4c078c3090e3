package model

import (
	"time"

	"github.com/google/uuid"
)

type Room struct {
	RoomID               string    `gorm:"column:room_id;size:64;primaryKey"`
	Name                 string    `gorm:"size:255;not null"`
	Description          string    `gorm:"size:1024"`
	HostID               string    `gorm:"size:64"`
	HostName             string    `gorm:"size:255"`
	ScheduledStart       time.Time `gorm:"not null"`
	ScheduledEnd         time.Time `gorm:"index;not null"`
	ActualStart          *time.Time
	ActualEnd            *time.Time
	Capacity             int       `gorm:"not null"`
	Password             string    `gorm:"size:128"`
	RecordingEnabled     bool      `gorm:"not null"`
	ChatEnabled          bool      `gorm:"not null"`
	FileSharingEnabled   bool      `gorm:"not null"`
	ScreenSharingEnabled bool      `gorm:"not null"`
	CameraEnabled        bool      `gorm:"not null"`
	Status               string    `gorm:"size:16;index;not null"`
	Extensions           int       `gorm:"not null;default:0"`
	CreatedAt            time.Time `gorm:"not null"`
	UpdatedAt            time.Time
	Participants         []Participant    `gorm:"foreignKey:RoomID;references:RoomID;constraint:OnDelete:CASCADE"`
	Messages             []MeetingMessage `gorm:"foreignKey:RoomID;references:RoomID;constraint:OnDelete:CASCADE"`
}

type Participant struct {
	ID                uint   `gorm:"primaryKey"`
	RoomID            string `gorm:"size:64;not null;uniqueIndex:idx_participant_room"`
	ParticipantID     string `gorm:"size:64;not null;uniqueIndex:idx_participant_room"`
	DisplayName       string `gorm:"size:255;not null"`
	Email             string `gorm:"size:255"`
	Role              string `gorm:"size:16;not null"`
	Status            string `gorm:"size:16;index;not null"`
	JoinedAt          *time.Time
	LeftAt            *time.Time
	AudioEnabled      bool      `gorm:"not null"`
	VideoEnabled      bool      `gorm:"not null"`
	ScreenSharing     bool      `gorm:"not null"`
	ConnectionQuality string    `gorm:"size:32"`
	SessionID         string    `gorm:"size:64"`
	CreatedAt         time.Time `gorm:"not null"`
	UpdatedAt         time.Time
}

type MeetingMessage struct {
	ID         uuid.UUID `gorm:"type:uuid;primaryKey"`
	RoomID     string    `gorm:"size:64;index;not null"`
	SenderID   string    `gorm:"size:64;not null"`
	SenderName string    `gorm:"size:255;not null"`
	SenderRole string    `gorm:"size:16"`
	Type       string    `gorm:"size:16;not null"`
	Content    string    `gorm:"type:text"`
	System     bool      `gorm:"not null"`
	CreatedAt  time.Time `gorm:"index;not null"`
}
