package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/immxrtalbeast/consult_rooms/internal/config"
	"github.com/immxrtalbeast/consult_rooms/internal/domain"
	"github.com/immxrtalbeast/consult_rooms/internal/repository"
	"github.com/immxrtalbeast/consult_rooms/lib/logger/sl"
)

const (
	quickRoomDuration = 2 * time.Hour
	quickRoomCapacity = 10
)

// RoomService is the room state machine. Every transition of a room, and of
// the participants inside it, runs under that room's lock.
type RoomService struct {
	store    repository.RoomStore
	notify   Notifier
	cfg      config.RoomsConfig
	log      *slog.Logger
	locks    *roomLocks
	validate *validator.Validate
	now      func() time.Time

	participants *ParticipantService
}

func NewRoomService(store repository.RoomStore, notify Notifier, cfg config.RoomsConfig, log *slog.Logger) *RoomService {
	if log == nil {
		log = slog.Default()
	}
	if notify == nil {
		notify = Notifiers{}
	}
	if cfg.DefaultDuration <= 0 {
		cfg.DefaultDuration = 15 * time.Minute
	}
	if cfg.DefaultCapacity <= 0 {
		cfg.DefaultCapacity = 10
	}
	s := &RoomService{
		store:    store,
		notify:   notify,
		cfg:      cfg,
		log:      log,
		locks:    newRoomLocks(),
		validate: validator.New(),
		now:      time.Now,
	}
	s.participants = &ParticipantService{rooms: s, log: log}
	return s
}

// Participants returns the participant tracker sharing this state machine's
// store and room locks.
func (s *RoomService) Participants() *ParticipantService {
	return s.participants
}

func (s *RoomService) Create(ctx context.Context, spec domain.CreateRoomSpec) (*domain.Room, error) {
	const op = "service.room.create"
	log := s.log.With(slog.String("op", op), slog.String("room_id", spec.ID))

	if err := s.validate.StructCtx(ctx, spec); err != nil {
		log.Info("invalid room spec", sl.Err(err))
		return nil, fmt.Errorf("%s: %w: %s", op, domain.ErrInvalidRoomSpec, err.Error())
	}

	now := s.now()
	room := domain.NewRoom(spec, now, s.cfg.DefaultDuration, s.cfg.DefaultCapacity)
	if !room.ScheduledEnd.After(room.ScheduledStart) {
		return nil, fmt.Errorf("%s: %w: scheduled end must be after scheduled start", op, domain.ErrInvalidRoomSpec)
	}
	if room.HostID == "" {
		room.HostID = uuid.NewString()
	}

	unlock := s.locks.lock(room.ID)
	defer unlock()

	if err := s.store.CreateRoom(ctx, room); err != nil {
		if !errors.Is(err, domain.ErrDuplicateRoom) {
			log.Error("failed to create room", sl.Err(err))
		}
		return nil, storeErr(op, err)
	}

	host := &domain.Participant{
		RoomID:        room.ID,
		ParticipantID: room.HostID,
		DisplayName:   room.HostName,
		Role:          domain.RoleHost,
		Status:        domain.ParticipantInvited,
		AudioEnabled:  true,
		VideoEnabled:  true,
		CreatedAt:     now.UTC(),
		UpdatedAt:     now.UTC(),
	}
	if err := retry(ctx, s.cfg, func(ctx context.Context) error { return s.store.UpsertParticipant(ctx, host) }); err != nil {
		log.Error("failed to record host", sl.Err(err))
		return nil, storeErr(op, err)
	}

	log.Info("room created",
		slog.Int("capacity", room.Capacity),
		slog.Time("scheduled_end", room.ScheduledEnd),
	)

	var events pending
	events.roomCreated(room)
	events.flush(ctx, s.notify)

	return room.Clone(), nil
}

// QuickCreate opens a demo room with every feature enabled.
func (s *RoomService) QuickCreate(ctx context.Context, roomID string) (*domain.Room, error) {
	features := domain.AllFeatures()
	return s.Create(ctx, domain.CreateRoomSpec{
		ID:          roomID,
		Name:        "Quick meeting " + roomID,
		Description: "Instant consultation room",
		HostName:    "Host",
		Duration:    quickRoomDuration,
		Capacity:    quickRoomCapacity,
		Features:    &features,
	})
}

// RequestJoin runs the admission checks of a join without recording a
// participant.
func (s *RoomService) RequestJoin(ctx context.Context, roomID, password string) (*domain.Room, error) {
	const op = "service.room.requestJoin"

	unlock := s.locks.lock(roomID)
	adm, err := s.admitLocked(ctx, roomID, password, "")
	unlock()
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	var events pending
	if adm.started {
		events.roomStarted(adm.room)
	}
	events.flush(ctx, s.notify)

	return adm.room.Clone(), nil
}

type admission struct {
	room     *domain.Room
	existing *domain.Participant
	started  bool
}

// admitLocked checks a join against the room and applies the room side of
// it: late-join extension and SCHEDULED -> ACTIVE. Caller holds the room lock.
func (s *RoomService) admitLocked(ctx context.Context, roomID, password, participantID string) (*admission, error) {
	log := s.log.With(slog.String("op", "service.room.admit"), slog.String("room_id", roomID))

	room, err := s.store.FindRoom(ctx, roomID)
	if err != nil {
		return nil, storeErr("find room", err)
	}
	if room.Status.Terminal() {
		return nil, domain.ErrRoomEnded
	}
	if !room.CheckPassword(password) {
		return nil, domain.ErrInvalidPassword
	}

	now := s.now()
	dirty := false
	if room.IsExpired(now) {
		if !s.canExtend(room) {
			return nil, domain.ErrRoomEnded
		}
		room.Extend(now, s.cfg.LateJoinGrace)
		dirty = true
		log.Info("late join extended room",
			slog.Time("scheduled_end", room.ScheduledEnd),
			slog.Int("extensions", room.Extensions),
		)
	}

	var existing *domain.Participant
	if participantID != "" {
		existing, err = s.store.FindParticipant(ctx, roomID, participantID)
		if err != nil && !errors.Is(err, domain.ErrParticipantNotFound) {
			return nil, storeErr("find participant", err)
		}
	}

	if existing == nil || !existing.HoldsSeat() {
		seats, err := s.seatsLocked(ctx, roomID)
		if err != nil {
			return nil, err
		}
		if seats >= room.Capacity {
			return nil, domain.ErrRoomFull
		}
	}

	started := room.Start(now)
	if started || dirty {
		if err := retry(ctx, s.cfg, func(ctx context.Context) error { return s.store.SaveRoom(ctx, room) }); err != nil {
			return nil, storeErr("save room", err)
		}
	}
	if started {
		log.Info("room started")
	}

	return &admission{room: room, existing: existing, started: started}, nil
}

func (s *RoomService) canExtend(room *domain.Room) bool {
	if s.cfg.LateJoinPolicy == config.LateJoinReject || s.cfg.LateJoinGrace <= 0 {
		return false
	}
	return s.cfg.MaxLateJoinExtensions <= 0 || room.Extensions < s.cfg.MaxLateJoinExtensions
}

// seatsLocked counts participants holding capacity in the room.
func (s *RoomService) seatsLocked(ctx context.Context, roomID string) (int, error) {
	participants, err := s.store.ListParticipants(ctx, roomID)
	if err != nil {
		return 0, storeErr("list participants", err)
	}
	seats := 0
	for _, p := range participants {
		if p.HoldsSeat() {
			seats++
		}
	}
	return seats, nil
}

// End moves the room to ENDED and forces every seated participant out. It
// is a no-op for a room that is already terminal.
func (s *RoomService) End(ctx context.Context, roomID string) error {
	const op = "service.room.end"

	var events pending
	unlock := s.locks.lock(roomID)
	room, err := s.store.FindRoom(ctx, roomID)
	if err == nil {
		err = s.endLocked(ctx, room, &events)
	}
	unlock()
	events.flush(ctx, s.notify)

	if err != nil {
		return storeErr(op, err)
	}
	return nil
}

// endLocked ends room and records LEFT for every participant still holding
// a seat. Caller holds the room lock.
func (s *RoomService) endLocked(ctx context.Context, room *domain.Room, events *pending) error {
	log := s.log.With(slog.String("op", "service.room.endLocked"), slog.String("room_id", room.ID))

	now := s.now()
	if !room.End(now) {
		return nil
	}
	if err := retry(ctx, s.cfg, func(ctx context.Context) error { return s.store.SaveRoom(ctx, room) }); err != nil {
		log.Error("failed to save ended room", sl.Err(err))
		return err
	}

	participants, err := s.store.ListParticipants(ctx, room.ID)
	if err != nil {
		log.Error("failed to list participants of ended room", sl.Err(err))
		return err
	}
	var forced []*domain.Participant
	for _, p := range participants {
		if !p.HoldsSeat() {
			continue
		}
		p.Leave(now)
		if err := retry(ctx, s.cfg, func(ctx context.Context) error { return s.store.UpsertParticipant(ctx, p) }); err != nil {
			log.Error("failed to mark participant left", slog.String("participant_id", p.ParticipantID), sl.Err(err))
			return err
		}
		forced = append(forced, p)
	}

	log.Info("room ended", slog.Int("forced_leaves", len(forced)))
	// Closure is announced before the forced departures.
	events.roomClosed(room)
	for _, p := range forced {
		events.participantLeft(p)
	}
	return nil
}

// Cancel moves a SCHEDULED room to CANCELLED.
func (s *RoomService) Cancel(ctx context.Context, roomID string) error {
	const op = "service.room.cancel"
	log := s.log.With(slog.String("op", op), slog.String("room_id", roomID))

	var events pending
	unlock := s.locks.lock(roomID)
	err := func() error {
		room, err := s.store.FindRoom(ctx, roomID)
		if err != nil {
			return err
		}
		if err := room.Cancel(s.now()); err != nil {
			log.Info("cancel rejected", slog.String("status", string(room.Status)))
			return err
		}
		if err := retry(ctx, s.cfg, func(ctx context.Context) error { return s.store.SaveRoom(ctx, room) }); err != nil {
			return err
		}
		events.roomClosed(room)
		return nil
	}()
	unlock()
	events.flush(ctx, s.notify)

	if err != nil {
		return storeErr(op, err)
	}
	log.Info("room cancelled")
	return nil
}

func (s *RoomService) Get(ctx context.Context, roomID string) (*domain.Room, error) {
	const op = "service.room.get"

	room, err := s.store.FindRoom(ctx, roomID)
	if err != nil {
		return nil, storeErr(op, err)
	}
	return room, nil
}

func (s *RoomService) List(ctx context.Context) ([]*domain.Room, error) {
	const op = "service.room.list"

	rooms, err := s.store.ListRooms(ctx)
	if err != nil {
		return nil, storeErr(op, err)
	}
	return rooms, nil
}

func (s *RoomService) ListActive(ctx context.Context) ([]*domain.Room, error) {
	const op = "service.room.listActive"

	rooms, err := s.store.ListRoomsByStatus(ctx, domain.RoomStatusActive)
	if err != nil {
		return nil, storeErr(op, err)
	}
	return rooms, nil
}

// Validate reports whether the room would currently accept a join, ignoring
// password and capacity.
func (s *RoomService) Validate(ctx context.Context, roomID string) (*domain.Room, error) {
	const op = "service.room.validate"

	room, err := s.store.FindRoom(ctx, roomID)
	if err != nil {
		return nil, storeErr(op, err)
	}
	if room.Status.Terminal() {
		return room, fmt.Errorf("%s: %w", op, domain.ErrRoomEnded)
	}
	if room.IsExpired(s.now()) && !s.canExtend(room) {
		return room, fmt.Errorf("%s: %w", op, domain.ErrRoomEnded)
	}
	return room, nil
}

// EndExpired ends the room if it is past scheduled_end and either ACTIVE or
// SCHEDULED without any join. Expiry is re-read under the room lock so a
// concurrent late join that extended the room wins.
func (s *RoomService) EndExpired(ctx context.Context, roomID string) (bool, error) {
	const op = "service.room.endExpired"

	var events pending
	ended := false
	unlock := s.locks.lock(roomID)
	err := func() error {
		room, err := s.store.FindRoom(ctx, roomID)
		if err != nil {
			return err
		}
		if !expiredForSweep(room, s.now()) {
			return nil
		}
		if err := s.endLocked(ctx, room, &events); err != nil {
			return err
		}
		ended = true
		return nil
	}()
	unlock()
	events.flush(ctx, s.notify)

	if err != nil {
		return false, storeErr(op, err)
	}
	return ended, nil
}

func expiredForSweep(room *domain.Room, now time.Time) bool {
	if !room.IsExpired(now) {
		return false
	}
	switch room.Status {
	case domain.RoomStatusActive:
		return true
	case domain.RoomStatusScheduled:
		return room.ActualStart == nil
	default:
		return false
	}
}
