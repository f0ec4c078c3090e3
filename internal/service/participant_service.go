package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/immxrtalbeast/consult_rooms/internal/domain"
	"github.com/immxrtalbeast/consult_rooms/lib/logger/sl"
)

// ParticipantService is the participant tracker. It records the membership
// transitions it is told about; connection timing belongs to the ingress.
type ParticipantService struct {
	rooms *RoomService
	log   *slog.Logger
}

// Join admits the identity into the room and marks it CONNECTED, reusing
// any existing record for the same participant identifier.
func (s *ParticipantService) Join(ctx context.Context, req domain.JoinRequest) (*domain.Participant, error) {
	const op = "service.participant.join"
	log := s.log.With(
		slog.String("op", op),
		slog.String("room_id", req.RoomID),
		slog.String("participant_id", req.Identity.ParticipantID),
	)

	if req.Identity.ParticipantID == "" {
		return nil, fmt.Errorf("%s: participant id is required", op)
	}

	var (
		events      pending
		participant *domain.Participant
	)
	unlock := s.rooms.locks.lock(req.RoomID)
	err := func() error {
		adm, err := s.rooms.admitLocked(ctx, req.RoomID, req.Password, req.Identity.ParticipantID)
		if err != nil {
			return err
		}
		if adm.started {
			events.roomStarted(adm.room)
		}

		now := s.rooms.now()
		participant = adm.existing
		if participant == nil {
			participant = &domain.Participant{
				RoomID:        req.RoomID,
				ParticipantID: req.Identity.ParticipantID,
				CreatedAt:     now.UTC(),
			}
		}
		if req.Identity.DisplayName != "" {
			participant.DisplayName = req.Identity.DisplayName
		}
		if participant.DisplayName == "" {
			participant.DisplayName = req.Identity.ParticipantID
		}
		if req.Identity.Email != "" {
			participant.Email = req.Identity.Email
		}
		if participant.Role != domain.RoleHost {
			participant.Role = req.Identity.Role
			if participant.Role == "" {
				participant.Role = domain.RoleParticipant
			}
		}
		participant.AudioEnabled = req.AudioEnabled
		participant.VideoEnabled = req.VideoEnabled
		participant.SessionID = req.SessionID
		if participant.SessionID == "" {
			participant.SessionID = uuid.NewString()
		}
		participant.Connect(now)

		if err := retry(ctx, s.rooms.cfg, func(ctx context.Context) error {
			return s.rooms.store.UpsertParticipant(ctx, participant)
		}); err != nil {
			return err
		}
		s.recordLocked(ctx, domain.NewSystemMessage(req.RoomID, participant.DisplayName+" joined the meeting", now))

		events.participantJoined(participant)
		return nil
	}()
	unlock()

	if err != nil {
		if domain.IsDomainError(err) {
			log.Info("join rejected", sl.Err(err))
		} else {
			log.Error("join failed", sl.Err(err))
		}
		return nil, storeErr(op, err)
	}

	events.flush(ctx, s.rooms.notify)
	log.Info("participant joined", slog.String("role", string(participant.Role)))

	return participant.Clone(), nil
}

// Leave marks the participant LEFT. When no seated participant remains the
// room is ended. Leaving twice is not an error.
func (s *ParticipantService) Leave(ctx context.Context, roomID, participantID string) error {
	return s.LeaveSession(ctx, roomID, participantID, "")
}

// LeaveSession is Leave on behalf of one connection. It is a no-op when the
// participant has joined again from another session since.
func (s *ParticipantService) LeaveSession(ctx context.Context, roomID, participantID, sessionID string) error {
	const op = "service.participant.leave"
	log := s.log.With(
		slog.String("op", op),
		slog.String("room_id", roomID),
		slog.String("participant_id", participantID),
	)

	var events pending
	unlock := s.rooms.locks.lock(roomID)
	err := func() error {
		participant, err := s.rooms.store.FindParticipant(ctx, roomID, participantID)
		if err != nil {
			return err
		}
		if participant.Status == domain.ParticipantLeft {
			return nil
		}
		if sessionID != "" && participant.SessionID != sessionID {
			log.Debug("stale session, leave ignored", slog.String("session_id", sessionID))
			return nil
		}

		now := s.rooms.now()
		participant.Leave(now)
		if err := retry(ctx, s.rooms.cfg, func(ctx context.Context) error {
			return s.rooms.store.UpsertParticipant(ctx, participant)
		}); err != nil {
			return err
		}
		s.recordLocked(ctx, domain.NewSystemMessage(roomID, participant.DisplayName+" left the meeting", now))
		events.participantLeft(participant)

		seats, err := s.rooms.seatsLocked(ctx, roomID)
		if err != nil {
			return err
		}
		if seats > 0 {
			return nil
		}

		room, err := s.rooms.store.FindRoom(ctx, roomID)
		if err != nil {
			return err
		}
		if room.Status != domain.RoomStatusActive {
			return nil
		}
		log.Info("last participant left, ending room")
		return s.rooms.endLocked(ctx, room, &events)
	}()
	unlock()
	events.flush(ctx, s.rooms.notify)

	if err != nil {
		if !errors.Is(err, domain.ErrParticipantNotFound) {
			log.Error("leave failed", sl.Err(err))
		}
		return storeErr(op, err)
	}

	log.Info("participant left")
	return nil
}

// MarkDisconnected records a transient drop. The seat stays held until the
// participant reconnects or leaves.
func (s *ParticipantService) MarkDisconnected(ctx context.Context, roomID, participantID string) error {
	return s.DisconnectSession(ctx, roomID, participantID, "")
}

// DisconnectSession is MarkDisconnected for one connection. Drops of an
// older session are ignored.
func (s *ParticipantService) DisconnectSession(ctx context.Context, roomID, participantID, sessionID string) error {
	const op = "service.participant.markDisconnected"

	unlock := s.rooms.locks.lock(roomID)
	defer unlock()

	participant, err := s.rooms.store.FindParticipant(ctx, roomID, participantID)
	if err != nil {
		return storeErr(op, err)
	}
	if participant.Status != domain.ParticipantConnected {
		return nil
	}
	if sessionID != "" && participant.SessionID != sessionID {
		return nil
	}

	participant.Disconnect(s.rooms.now())
	if err := retry(ctx, s.rooms.cfg, func(ctx context.Context) error {
		return s.rooms.store.UpsertParticipant(ctx, participant)
	}); err != nil {
		return storeErr(op, err)
	}

	s.log.Info("participant disconnected",
		slog.String("op", op),
		slog.String("room_id", roomID),
		slog.String("participant_id", participantID),
	)
	return nil
}

// ActiveCount is the number of CONNECTED participants in the room.
func (s *ParticipantService) ActiveCount(ctx context.Context, roomID string) (int, error) {
	const op = "service.participant.activeCount"

	count, err := s.rooms.store.CountConnected(ctx, roomID)
	if err != nil {
		return 0, storeErr(op, err)
	}
	return count, nil
}

func (s *ParticipantService) List(ctx context.Context, roomID string) ([]*domain.Participant, error) {
	const op = "service.participant.list"

	if _, err := s.rooms.store.FindRoom(ctx, roomID); err != nil {
		return nil, storeErr(op, err)
	}
	participants, err := s.rooms.store.ListParticipants(ctx, roomID)
	if err != nil {
		return nil, storeErr(op, err)
	}
	return participants, nil
}

func (s *ParticipantService) ListActive(ctx context.Context, roomID string) ([]*domain.Participant, error) {
	participants, err := s.List(ctx, roomID)
	if err != nil {
		return nil, err
	}

	active := participants[:0]
	for _, p := range participants {
		if p.Status == domain.ParticipantConnected {
			active = append(active, p)
		}
	}
	return active, nil
}

func (s *ParticipantService) UpdateMedia(ctx context.Context, roomID, participantID string, media domain.MediaState) (*domain.Participant, error) {
	const op = "service.participant.updateMedia"

	unlock := s.rooms.locks.lock(roomID)
	defer unlock()

	participant, err := s.rooms.store.FindParticipant(ctx, roomID, participantID)
	if err != nil {
		return nil, storeErr(op, err)
	}
	participant.ApplyMedia(media, s.rooms.now())
	if err := retry(ctx, s.rooms.cfg, func(ctx context.Context) error {
		return s.rooms.store.UpsertParticipant(ctx, participant)
	}); err != nil {
		return nil, storeErr(op, err)
	}
	return participant.Clone(), nil
}

// Messages lists the persisted history of the room, oldest first.
func (s *ParticipantService) Messages(ctx context.Context, roomID string) ([]*domain.MeetingMessage, error) {
	const op = "service.participant.messages"

	if _, err := s.rooms.store.FindRoom(ctx, roomID); err != nil {
		return nil, storeErr(op, err)
	}
	messages, err := s.rooms.store.ListMessages(ctx, roomID)
	if err != nil {
		return nil, storeErr(op, err)
	}
	return messages, nil
}

// recordLocked persists a history entry. A failure is logged and does not
// undo the membership transition it describes.
func (s *ParticipantService) recordLocked(ctx context.Context, msg *domain.MeetingMessage) {
	err := retry(ctx, s.rooms.cfg, func(ctx context.Context) error {
		return s.rooms.store.SaveMessage(ctx, msg)
	})
	if err != nil {
		s.log.Warn("failed to record meeting message",
			slog.String("room_id", msg.RoomID),
			sl.Err(err),
		)
	}
}
