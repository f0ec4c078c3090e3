package converter

import (
	"time"

	"github.com/google/uuid"
	"github.com/immxrtalbeast/consult_rooms/internal/domain"
)

type CreateMeetingRequest struct {
	RoomID         string           `json:"room_id" binding:"required"`
	Name           string           `json:"name" binding:"required"`
	Description    string           `json:"description"`
	HostID         string           `json:"host_id"`
	HostName       string           `json:"host_name" binding:"required"`
	ScheduledStart *time.Time       `json:"scheduled_start"`
	ScheduledEnd   *time.Time       `json:"scheduled_end"`
	DurationMinute int              `json:"duration_minutes" binding:"gte=0"`
	Capacity       int              `json:"max_participants" binding:"gte=0"`
	Password       string           `json:"password"`
	Features       *domain.Features `json:"features"`
}

func (r *CreateMeetingRequest) ToSpec() domain.CreateRoomSpec {
	spec := domain.CreateRoomSpec{
		ID:          r.RoomID,
		Name:        r.Name,
		Description: r.Description,
		HostID:      r.HostID,
		HostName:    r.HostName,
		Duration:    time.Duration(r.DurationMinute) * time.Minute,
		Capacity:    r.Capacity,
		Password:    r.Password,
		Features:    r.Features,
	}
	if r.ScheduledStart != nil {
		spec.ScheduledStart = *r.ScheduledStart
	}
	if r.ScheduledEnd != nil {
		spec.ScheduledEnd = *r.ScheduledEnd
	}
	return spec
}

type JoinMeetingRequest struct {
	ParticipantID string `json:"participant_id"`
	DisplayName   string `json:"display_name"`
	Email         string `json:"email"`
	Role          string `json:"role"`
	Password      string `json:"password"`
	AudioEnabled  *bool  `json:"audio_enabled"`
	VideoEnabled  *bool  `json:"video_enabled"`
}

type LeaveMeetingRequest struct {
	ParticipantID string `json:"participant_id" binding:"required"`
}

type MediaRequest struct {
	AudioEnabled      *bool   `json:"audio_enabled"`
	VideoEnabled      *bool   `json:"video_enabled"`
	ScreenSharing     *bool   `json:"screen_sharing"`
	ConnectionQuality *string `json:"connection_quality"`
}

func (r *MediaRequest) ToMediaState() domain.MediaState {
	return domain.MediaState{
		AudioEnabled:      r.AudioEnabled,
		VideoEnabled:      r.VideoEnabled,
		ScreenSharing:     r.ScreenSharing,
		ConnectionQuality: r.ConnectionQuality,
	}
}

type RoomResponse struct {
	RoomID          string          `json:"room_id"`
	Name            string          `json:"name"`
	Description     string          `json:"description,omitempty"`
	HostID          string          `json:"host_id"`
	HostName        string          `json:"host_name"`
	ScheduledStart  time.Time       `json:"scheduled_start"`
	ScheduledEnd    time.Time       `json:"scheduled_end"`
	ActualStart     *time.Time      `json:"actual_start,omitempty"`
	ActualEnd       *time.Time      `json:"actual_end,omitempty"`
	MaxParticipants int             `json:"max_participants"`
	HasPassword     bool            `json:"has_password"`
	Features        domain.Features `json:"features"`
	Status          string          `json:"status"`
	IsExpired       bool            `json:"is_expired"`
	CreatedAt       time.Time       `json:"created_at"`
}

func RoomToApi(r *domain.Room) *RoomResponse {
	return &RoomResponse{
		RoomID:          r.ID,
		Name:            r.Name,
		Description:     r.Description,
		HostID:          r.HostID,
		HostName:        r.HostName,
		ScheduledStart:  r.ScheduledStart,
		ScheduledEnd:    r.ScheduledEnd,
		ActualStart:     r.ActualStart,
		ActualEnd:       r.ActualEnd,
		MaxParticipants: r.Capacity,
		HasPassword:     r.Password != "",
		Features:        r.Features,
		Status:          string(r.Status),
		IsExpired:       r.IsExpired(time.Now()),
		CreatedAt:       r.CreatedAt,
	}
}

func RoomsToApi(rooms []*domain.Room) []*RoomResponse {
	result := make([]*RoomResponse, 0, len(rooms))
	for _, r := range rooms {
		result = append(result, RoomToApi(r))
	}
	return result
}

type ParticipantResponse struct {
	ParticipantID     string     `json:"participant_id"`
	DisplayName       string     `json:"display_name"`
	Email             string     `json:"email,omitempty"`
	Role              string     `json:"role"`
	Status            string     `json:"status"`
	JoinedAt          *time.Time `json:"joined_at,omitempty"`
	LeftAt            *time.Time `json:"left_at,omitempty"`
	AudioEnabled      bool       `json:"audio_enabled"`
	VideoEnabled      bool       `json:"video_enabled"`
	ScreenSharing     bool       `json:"screen_sharing"`
	ConnectionQuality string     `json:"connection_quality,omitempty"`
	SessionSeconds    int64      `json:"session_seconds"`
}

func ParticipantToApi(p *domain.Participant) *ParticipantResponse {
	return &ParticipantResponse{
		ParticipantID:     p.ParticipantID,
		DisplayName:       p.DisplayName,
		Email:             p.Email,
		Role:              string(p.Role),
		Status:            string(p.Status),
		JoinedAt:          p.JoinedAt,
		LeftAt:            p.LeftAt,
		AudioEnabled:      p.AudioEnabled,
		VideoEnabled:      p.VideoEnabled,
		ScreenSharing:     p.ScreenSharing,
		ConnectionQuality: p.ConnectionQuality,
		SessionSeconds:    int64(p.SessionDuration(time.Now()).Seconds()),
	}
}

func ParticipantsToApi(participants []*domain.Participant) []*ParticipantResponse {
	result := make([]*ParticipantResponse, 0, len(participants))
	for _, p := range participants {
		result = append(result, ParticipantToApi(p))
	}
	return result
}

type MessageResponse struct {
	ID         uuid.UUID `json:"id"`
	SenderID   string    `json:"sender_id"`
	SenderName string    `json:"sender_name"`
	Type       string    `json:"type"`
	Content    string    `json:"content"`
	System     bool      `json:"is_system"`
	CreatedAt  time.Time `json:"created_at"`
}

func MessagesToApi(messages []*domain.MeetingMessage) []*MessageResponse {
	result := make([]*MessageResponse, 0, len(messages))
	for _, m := range messages {
		result = append(result, &MessageResponse{
			ID:         m.ID,
			SenderID:   m.SenderID,
			SenderName: m.SenderName,
			Type:       string(m.Type),
			Content:    m.Content,
			System:     m.System,
			CreatedAt:  m.CreatedAt,
		})
	}
	return result
}
