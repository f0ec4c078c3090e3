package signaling

import (
	"context"
	"errors"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/immxrtalbeast/consult_rooms/internal/domain"
	"github.com/immxrtalbeast/consult_rooms/lib/logger/sl"
	"github.com/sourcegraph/conc"
)

type RouteResult struct {
	Delivered int
	Dropped   int
}

// Router relays signaling messages between the connections of a room.
//
// Route returns only after every delivery attempt finished or timed out, so
// a sender that routes sequentially gets FIFO delivery per recipient.
type Router struct {
	registry    *Registry
	sendTimeout time.Duration
	log         *slog.Logger
}

func NewRouter(registry *Registry, sendTimeout time.Duration, log *slog.Logger) *Router {
	if sendTimeout <= 0 {
		sendTimeout = 2 * time.Second
	}
	if log == nil {
		log = slog.Default()
	}
	return &Router{
		registry:    registry,
		sendTimeout: sendTimeout,
		log:         log,
	}
}

// Route delivers msg from its sender. Messages whose sender holds no
// registered connection in the room are dropped.
func (r *Router) Route(ctx context.Context, msg *domain.SignalMessage) RouteResult {
	const op = "signaling.router.route"
	log := r.log.With(
		slog.String("op", op),
		slog.String("room_id", msg.RoomID),
		slog.String("from", msg.From),
		slog.String("type", string(msg.Type)),
	)

	if _, ok := r.registry.Get(msg.RoomID, msg.From); !ok {
		log.Debug("sender not registered, dropping message")
		return RouteResult{Dropped: 1}
	}

	payload, err := EncodeSignal(msg)
	if err != nil {
		log.Warn("failed to encode message", sl.Err(err))
		return RouteResult{Dropped: 1}
	}

	if msg.Broadcast() {
		return r.fanOut(ctx, msg.RoomID, msg.From, payload)
	}

	if msg.To == msg.From {
		log.Debug("message addressed to sender, dropping")
		return RouteResult{Dropped: 1}
	}
	conn, ok := r.registry.Get(msg.RoomID, msg.To)
	if !ok {
		log.Debug("recipient not registered, dropping message", slog.String("to", msg.To))
		return RouteResult{Dropped: 1}
	}
	if err := r.deliver(ctx, msg.RoomID, msg.To, conn, payload); err != nil {
		return RouteResult{Dropped: 1}
	}
	return RouteResult{Delivered: 1}
}

// Publish broadcasts a server-originated message to every connection in
// the room except exclude.
func (r *Router) Publish(ctx context.Context, msg *domain.SignalMessage, exclude string) RouteResult {
	payload, err := EncodeSignal(msg)
	if err != nil {
		r.log.Warn("failed to encode message", slog.String("room_id", msg.RoomID), sl.Err(err))
		return RouteResult{}
	}
	return r.fanOut(ctx, msg.RoomID, exclude, payload)
}

func (r *Router) fanOut(ctx context.Context, roomID, exclude string, payload []byte) RouteResult {
	peers := r.registry.AllExcept(roomID, exclude)
	if len(peers) == 0 {
		return RouteResult{}
	}

	var delivered, dropped atomic.Int64
	var wg conc.WaitGroup
	for _, peer := range peers {
		wg.Go(func() {
			if err := r.deliver(ctx, roomID, peer.ParticipantID, peer.Conn, payload); err != nil {
				dropped.Add(1)
				return
			}
			delivered.Add(1)
		})
	}
	wg.Wait()

	return RouteResult{Delivered: int(delivered.Load()), Dropped: int(dropped.Load())}
}

// deliver hands payload to one connection within the send timeout. A peer
// that cannot keep up is closed so its ingress runs the regular cleanup.
func (r *Router) deliver(ctx context.Context, roomID, participantID string, conn Conn, payload []byte) error {
	sendCtx, cancel := context.WithTimeout(ctx, r.sendTimeout)
	defer cancel()

	err := conn.Send(sendCtx, payload)
	if err == nil {
		return nil
	}

	log := r.log.With(
		slog.String("room_id", roomID),
		slog.String("participant_id", participantID),
		sl.Err(err),
	)
	switch {
	case errors.Is(err, ErrConnClosed):
		log.Debug("recipient connection closed")
	case errors.Is(err, context.DeadlineExceeded):
		log.Warn("delivery timed out, closing slow connection")
		conn.Close()
	default:
		log.Warn("delivery failed")
	}
	return err
}

type presence struct {
	ParticipantID string `json:"participantId"`
	DisplayName   string `json:"displayName"`
	Role          string `json:"role"`
	AudioEnabled  bool   `json:"audioEnabled"`
	VideoEnabled  bool   `json:"videoEnabled"`
}

func presenceOf(p *domain.Participant) presence {
	return presence{
		ParticipantID: p.ParticipantID,
		DisplayName:   p.DisplayName,
		Role:          string(p.Role),
		AudioEnabled:  p.AudioEnabled,
		VideoEnabled:  p.VideoEnabled,
	}
}

func (r *Router) presenceMessage(kind domain.SignalKind, p *domain.Participant) *domain.SignalMessage {
	data, err := EncodeSignalData(presenceOf(p))
	if err != nil {
		r.log.Warn("failed to encode presence", sl.Err(err))
	}
	return &domain.SignalMessage{
		RoomID: p.RoomID,
		From:   p.ParticipantID,
		Type:   kind,
		Data:   data,
	}
}

func (r *Router) RoomCreated(context.Context, *domain.Room) {}

func (r *Router) RoomStarted(context.Context, *domain.Room) {}

// RoomClosed tells every connection the room is over and drops them.
func (r *Router) RoomClosed(ctx context.Context, room *domain.Room) {
	msg, err := systemMessage(room.ID, EventRoomEnded, map[string]string{"status": string(room.Status)})
	if err == nil {
		r.Publish(ctx, msg, "")
	}
	closed := r.registry.CloseRoom(room.ID)
	r.log.Info("room connections closed",
		slog.String("room_id", room.ID),
		slog.Int("connections", closed),
	)
}

func (r *Router) ParticipantJoined(ctx context.Context, p *domain.Participant) {
	r.Publish(ctx, r.presenceMessage(domain.SignalNewParticipant, p), p.ParticipantID)
}

// ParticipantLeft announces the departure and closes the connection of the
// session that left, if it is still registered.
func (r *Router) ParticipantLeft(ctx context.Context, p *domain.Participant) {
	r.Publish(ctx, r.presenceMessage(domain.SignalParticipantLeft, p), p.ParticipantID)

	if p.SessionID == "" {
		return
	}
	if conn, ok := r.registry.UnregisterID(p.RoomID, p.ParticipantID, p.SessionID); ok {
		conn.Close()
		r.log.Info("connection of departed participant closed",
			slog.String("room_id", p.RoomID),
			slog.String("participant_id", p.ParticipantID),
		)
	}
}
