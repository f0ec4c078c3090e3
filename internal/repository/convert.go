package repository

import (
	"time"

	"github.com/immxrtalbeast/consult_rooms/internal/domain"
	"github.com/immxrtalbeast/consult_rooms/internal/repository/model"
)

func toModelRoom(room *domain.Room) *model.Room {
	return &model.Room{
		RoomID:               room.ID,
		Name:                 room.Name,
		Description:          room.Description,
		HostID:               room.HostID,
		HostName:             room.HostName,
		ScheduledStart:       room.ScheduledStart.UTC(),
		ScheduledEnd:         room.ScheduledEnd.UTC(),
		ActualStart:          utcPtr(room.ActualStart),
		ActualEnd:            utcPtr(room.ActualEnd),
		Capacity:             room.Capacity,
		Password:             room.Password,
		RecordingEnabled:     room.Features.Recording,
		ChatEnabled:          room.Features.Chat,
		FileSharingEnabled:   room.Features.FileSharing,
		ScreenSharingEnabled: room.Features.ScreenSharing,
		CameraEnabled:        room.Features.Camera,
		Status:               string(room.Status),
		Extensions:           room.Extensions,
		CreatedAt:            room.CreatedAt.UTC(),
		UpdatedAt:            room.UpdatedAt.UTC(),
	}
}

func toDomainRoom(room *model.Room) *domain.Room {
	return &domain.Room{
		ID:             room.RoomID,
		Name:           room.Name,
		Description:    room.Description,
		HostID:         room.HostID,
		HostName:       room.HostName,
		ScheduledStart: room.ScheduledStart.UTC(),
		ScheduledEnd:   room.ScheduledEnd.UTC(),
		ActualStart:    utcPtr(room.ActualStart),
		ActualEnd:      utcPtr(room.ActualEnd),
		Capacity:       room.Capacity,
		Password:       room.Password,
		Features: domain.Features{
			Recording:     room.RecordingEnabled,
			Chat:          room.ChatEnabled,
			FileSharing:   room.FileSharingEnabled,
			ScreenSharing: room.ScreenSharingEnabled,
			Camera:        room.CameraEnabled,
		},
		Status:     domain.RoomStatus(room.Status),
		Extensions: room.Extensions,
		CreatedAt:  room.CreatedAt.UTC(),
		UpdatedAt:  room.UpdatedAt.UTC(),
	}
}

func toModelParticipant(p *domain.Participant) *model.Participant {
	return &model.Participant{
		RoomID:            p.RoomID,
		ParticipantID:     p.ParticipantID,
		DisplayName:       p.DisplayName,
		Email:             p.Email,
		Role:              string(p.Role),
		Status:            string(p.Status),
		JoinedAt:          utcPtr(p.JoinedAt),
		LeftAt:            utcPtr(p.LeftAt),
		AudioEnabled:      p.AudioEnabled,
		VideoEnabled:      p.VideoEnabled,
		ScreenSharing:     p.ScreenSharing,
		ConnectionQuality: p.ConnectionQuality,
		SessionID:         p.SessionID,
		CreatedAt:         p.CreatedAt.UTC(),
		UpdatedAt:         p.UpdatedAt.UTC(),
	}
}

func toDomainParticipant(p *model.Participant) *domain.Participant {
	return &domain.Participant{
		RoomID:            p.RoomID,
		ParticipantID:     p.ParticipantID,
		DisplayName:       p.DisplayName,
		Email:             p.Email,
		Role:              domain.ParticipantRole(p.Role),
		Status:            domain.ParticipantStatus(p.Status),
		JoinedAt:          utcPtr(p.JoinedAt),
		LeftAt:            utcPtr(p.LeftAt),
		AudioEnabled:      p.AudioEnabled,
		VideoEnabled:      p.VideoEnabled,
		ScreenSharing:     p.ScreenSharing,
		ConnectionQuality: p.ConnectionQuality,
		SessionID:         p.SessionID,
		CreatedAt:         p.CreatedAt.UTC(),
		UpdatedAt:         p.UpdatedAt.UTC(),
	}
}

func toModelMessage(m *domain.MeetingMessage) *model.MeetingMessage {
	return &model.MeetingMessage{
		ID:         m.ID,
		RoomID:     m.RoomID,
		SenderID:   m.SenderID,
		SenderName: m.SenderName,
		SenderRole: string(m.SenderRole),
		Type:       string(m.Type),
		Content:    m.Content,
		System:     m.System,
		CreatedAt:  m.CreatedAt.UTC(),
	}
}

func toDomainMessage(m *model.MeetingMessage) *domain.MeetingMessage {
	return &domain.MeetingMessage{
		ID:         m.ID,
		RoomID:     m.RoomID,
		SenderID:   m.SenderID,
		SenderName: m.SenderName,
		SenderRole: domain.ParticipantRole(m.SenderRole),
		Type:       domain.MeetingMessageType(m.Type),
		Content:    m.Content,
		System:     m.System,
		CreatedAt:  m.CreatedAt.UTC(),
	}
}

func utcPtr(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	u := t.UTC()
	return &u
}
