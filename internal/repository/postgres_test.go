package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/immxrtalbeast/consult_rooms/internal/domain"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newSQLMockStore(t *testing.T) (*PostgresRoomStore, sqlmock.Sqlmock) {
	t.Helper()
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqlDB.Close() })

	db, err := gorm.Open(postgres.New(postgres.Config{Conn: sqlDB}), &gorm.Config{
		TranslateError:         true,
		SkipDefaultTransaction: true,
		Logger:                 logger.Discard,
	})
	require.NoError(t, err)

	return NewPostgresRoomStore(db), mock
}

var participantColumns = []string{
	"id", "room_id", "participant_id", "display_name", "email", "role", "status",
	"joined_at", "left_at", "audio_enabled", "video_enabled", "screen_sharing",
	"connection_quality", "session_id", "created_at", "updated_at",
}

func TestPostgresCreateRoomDuplicate(t *testing.T) {
	store, mock := newSQLMockStore(t)
	now := time.Now()

	mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO "rooms"`)).
		WillReturnError(&pgconn.PgError{Code: "23505"})

	err := store.CreateRoom(context.Background(), &domain.Room{
		ID: "r1", Name: "n", Status: domain.RoomStatusScheduled, CreatedAt: now, UpdatedAt: now,
	})
	assert.ErrorIs(t, err, domain.ErrDuplicateRoom)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresSaveRoom(t *testing.T) {
	store, mock := newSQLMockStore(t)
	room := &domain.Room{ID: "r1", Name: "n", Status: domain.RoomStatusActive}

	mock.ExpectExec(regexp.QuoteMeta(`UPDATE "rooms" SET`)).WillReturnResult(sqlmock.NewResult(0, 1))
	require.NoError(t, store.SaveRoom(context.Background(), room))

	mock.ExpectExec(regexp.QuoteMeta(`UPDATE "rooms" SET`)).WillReturnResult(sqlmock.NewResult(0, 0))
	assert.ErrorIs(t, store.SaveRoom(context.Background(), room), domain.ErrRoomNotFound)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresUpsertParticipantOnConflict(t *testing.T) {
	store, mock := newSQLMockStore(t)
	now := time.Now()

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT count(*) FROM "rooms"`)).
		WithArgs("r1").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))
	mock.ExpectQuery(`INSERT INTO "participants" .* ON CONFLICT .* DO UPDATE SET .*session_id`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(7))

	err := store.UpsertParticipant(context.Background(), &domain.Participant{
		RoomID:        "r1",
		ParticipantID: "p1",
		DisplayName:   "Pat",
		Role:          domain.RoleParticipant,
		Status:        domain.ParticipantConnected,
		JoinedAt:      &now,
		SessionID:     "s1",
		CreatedAt:     now,
		UpdatedAt:     now,
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresUpsertParticipantMissingRoom(t *testing.T) {
	store, mock := newSQLMockStore(t)

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT count(*) FROM "rooms"`)).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))

	err := store.UpsertParticipant(context.Background(), &domain.Participant{RoomID: "ghost", ParticipantID: "p1"})
	assert.ErrorIs(t, err, domain.ErrRoomNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresFindParticipantMapsRecord(t *testing.T) {
	store, mock := newSQLMockStore(t)
	joined := time.Date(2026, 3, 1, 9, 30, 0, 0, time.UTC)

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "participants"`)).
		WillReturnRows(sqlmock.NewRows(participantColumns).AddRow(
			7, "r1", "p1", "Pat", "pat@example.org", "MODERATOR", "DISCONNECTED",
			joined, nil, true, false, true, "good", "s1", joined, joined,
		))

	p, err := store.FindParticipant(context.Background(), "r1", "p1")
	require.NoError(t, err)
	assert.Equal(t, "p1", p.ParticipantID)
	assert.Equal(t, domain.RoleModerator, p.Role)
	assert.Equal(t, domain.ParticipantDisconnected, p.Status)
	assert.True(t, p.HoldsSeat())
	require.NotNil(t, p.JoinedAt)
	assert.True(t, joined.Equal(*p.JoinedAt))
	assert.Nil(t, p.LeftAt)
	assert.True(t, p.AudioEnabled)
	assert.False(t, p.VideoEnabled)
	assert.True(t, p.ScreenSharing)
	assert.Equal(t, "s1", p.SessionID)

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "participants"`)).
		WillReturnRows(sqlmock.NewRows(participantColumns))
	_, err = store.FindParticipant(context.Background(), "r1", "ghost")
	assert.ErrorIs(t, err, domain.ErrParticipantNotFound)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresCountConnected(t *testing.T) {
	store, mock := newSQLMockStore(t)

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT count(*) FROM "participants"`)).
		WithArgs("r1", "CONNECTED").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(2))

	count, err := store.CountConnected(context.Background(), "r1")
	require.NoError(t, err)
	assert.Equal(t, 2, count)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresCanceledContext(t *testing.T) {
	store, mock := newSQLMockStore(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := store.FindRoom(ctx, "r1")
	assert.ErrorIs(t, err, context.Canceled)
	assert.NoError(t, mock.ExpectationsWereMet())
}
