package repository

import (
	"context"
	"errors"

	"github.com/immxrtalbeast/consult_rooms/internal/domain"
	"github.com/immxrtalbeast/consult_rooms/internal/repository/model"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// PostgresRoomStore persists rooms through gorm. The *gorm.DB must be opened
// with TranslateError so unique violations surface as gorm.ErrDuplicatedKey.
type PostgresRoomStore struct {
	db *gorm.DB
}

func NewPostgresRoomStore(db *gorm.DB) *PostgresRoomStore {
	return &PostgresRoomStore{db: db}
}

// Migrate creates or updates the tables backing the store.
func (r *PostgresRoomStore) Migrate(ctx context.Context) error {
	return r.db.WithContext(ctx).AutoMigrate(&model.Room{}, &model.Participant{}, &model.MeetingMessage{})
}

func (r *PostgresRoomStore) CreateRoom(ctx context.Context, room *domain.Room) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if room == nil {
		return errors.New("room is nil")
	}

	if err := r.db.WithContext(ctx).Omit(clause.Associations).Create(toModelRoom(room)).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return domain.ErrDuplicateRoom
		}
		return err
	}
	return nil
}

func (r *PostgresRoomStore) FindRoom(ctx context.Context, roomID string) (*domain.Room, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var room model.Room
	err := r.db.WithContext(ctx).First(&room, "room_id = ?", roomID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrRoomNotFound
		}
		return nil, err
	}

	return toDomainRoom(&room), nil
}

func (r *PostgresRoomStore) SaveRoom(ctx context.Context, room *domain.Room) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if room == nil {
		return errors.New("room is nil")
	}

	m := toModelRoom(room)
	res := r.db.WithContext(ctx).Model(&model.Room{}).Where("room_id = ?", m.RoomID).Updates(map[string]any{
		"name":                   m.Name,
		"description":            m.Description,
		"scheduled_start":        m.ScheduledStart,
		"scheduled_end":          m.ScheduledEnd,
		"actual_start":           m.ActualStart,
		"actual_end":             m.ActualEnd,
		"capacity":               m.Capacity,
		"password":               m.Password,
		"recording_enabled":      m.RecordingEnabled,
		"chat_enabled":           m.ChatEnabled,
		"file_sharing_enabled":   m.FileSharingEnabled,
		"screen_sharing_enabled": m.ScreenSharingEnabled,
		"camera_enabled":         m.CameraEnabled,
		"status":                 m.Status,
		"extensions":             m.Extensions,
		"updated_at":             m.UpdatedAt,
	})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return domain.ErrRoomNotFound
	}
	return nil
}

func (r *PostgresRoomStore) ListRooms(ctx context.Context) ([]*domain.Room, error) {
	return r.listRooms(ctx, r.db.WithContext(ctx))
}

func (r *PostgresRoomStore) ListRoomsByStatus(ctx context.Context, status domain.RoomStatus) ([]*domain.Room, error) {
	return r.listRooms(ctx, r.db.WithContext(ctx).Where("status = ?", string(status)))
}

func (r *PostgresRoomStore) listRooms(ctx context.Context, q *gorm.DB) ([]*domain.Room, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var rooms []model.Room
	if err := q.Order("created_at").Find(&rooms).Error; err != nil {
		return nil, err
	}

	result := make([]*domain.Room, 0, len(rooms))
	for i := range rooms {
		result = append(result, toDomainRoom(&rooms[i]))
	}
	return result, nil
}

func (r *PostgresRoomStore) UpsertParticipant(ctx context.Context, participant *domain.Participant) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if participant == nil {
		return errors.New("participant is nil")
	}

	var exists int64
	if err := r.db.WithContext(ctx).Model(&model.Room{}).Where("room_id = ?", participant.RoomID).Count(&exists).Error; err != nil {
		return err
	}
	if exists == 0 {
		return domain.ErrRoomNotFound
	}

	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "room_id"}, {Name: "participant_id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"display_name", "email", "role", "status", "joined_at", "left_at",
			"audio_enabled", "video_enabled", "screen_sharing", "connection_quality", "session_id", "updated_at",
		}),
	}).Create(toModelParticipant(participant)).Error
}

func (r *PostgresRoomStore) FindParticipant(ctx context.Context, roomID, participantID string) (*domain.Participant, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var p model.Participant
	err := r.db.WithContext(ctx).
		First(&p, "room_id = ? AND participant_id = ?", roomID, participantID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrParticipantNotFound
		}
		return nil, err
	}
	return toDomainParticipant(&p), nil
}

func (r *PostgresRoomStore) ListParticipants(ctx context.Context, roomID string) ([]*domain.Participant, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var participants []model.Participant
	err := r.db.WithContext(ctx).
		Where("room_id = ?", roomID).
		Order("created_at, participant_id").
		Find(&participants).Error
	if err != nil {
		return nil, err
	}

	result := make([]*domain.Participant, 0, len(participants))
	for i := range participants {
		result = append(result, toDomainParticipant(&participants[i]))
	}
	return result, nil
}

func (r *PostgresRoomStore) CountConnected(ctx context.Context, roomID string) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	var count int64
	err := r.db.WithContext(ctx).Model(&model.Participant{}).
		Where("room_id = ? AND status = ?", roomID, string(domain.ParticipantConnected)).
		Count(&count).Error
	if err != nil {
		return 0, err
	}
	return int(count), nil
}

func (r *PostgresRoomStore) SaveMessage(ctx context.Context, message *domain.MeetingMessage) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if message == nil {
		return errors.New("message is nil")
	}

	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(toModelMessage(message)).Error
}

func (r *PostgresRoomStore) ListMessages(ctx context.Context, roomID string) ([]*domain.MeetingMessage, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var messages []model.MeetingMessage
	err := r.db.WithContext(ctx).
		Where("room_id = ?", roomID).
		Order("created_at").
		Find(&messages).Error
	if err != nil {
		return nil, err
	}

	result := make([]*domain.MeetingMessage, 0, len(messages))
	for i := range messages {
		result = append(result, toDomainMessage(&messages[i]))
	}
	return result, nil
}
