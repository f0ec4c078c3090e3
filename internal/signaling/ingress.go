package signaling

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/immxrtalbeast/consult_rooms/internal/domain"
	"github.com/immxrtalbeast/consult_rooms/lib/logger/sl"
)

const cleanupTimeout = 10 * time.Second

// Tracker records membership transitions driven by connections.
type Tracker interface {
	Join(ctx context.Context, req domain.JoinRequest) (*domain.Participant, error)
	LeaveSession(ctx context.Context, roomID, participantID, sessionID string) error
	DisconnectSession(ctx context.Context, roomID, participantID, sessionID string) error
}

type RoomReader interface {
	Get(ctx context.Context, roomID string) (*domain.Room, error)
}

// Session is an upgraded connection request with an already verified
// identity.
type Session struct {
	RoomID       string
	Identity     domain.Identity
	Password     string
	AudioEnabled bool
	VideoEnabled bool

	sessionID string
}

type IngressOptions struct {
	Conn ConnOptions
	// ReconnectGrace keeps a dropped participant DISCONNECTED this long
	// before it is marked LEFT. Zero leaves at once.
	ReconnectGrace time.Duration
}

// Ingress owns the lifetime of signaling connections: join, registration,
// the read loop, and cleanup when the channel closes.
type Ingress struct {
	registry *Registry
	router   *Router
	tracker  Tracker
	rooms    RoomReader
	opts     IngressOptions
	log      *slog.Logger

	mu     sync.Mutex
	graces map[string]*time.Timer
}

func NewIngress(registry *Registry, router *Router, tracker Tracker, rooms RoomReader, opts IngressOptions, log *slog.Logger) *Ingress {
	if log == nil {
		log = slog.Default()
	}
	return &Ingress{
		registry: registry,
		router:   router,
		tracker:  tracker,
		rooms:    rooms,
		opts:     opts,
		log:      log,
		graces:   make(map[string]*time.Timer),
	}
}

// Serve runs the connection until it closes. It returns the join error when
// the participant was not admitted, nil otherwise.
func (in *Ingress) Serve(ctx context.Context, ws *websocket.Conn, sess Session) error {
	const op = "signaling.ingress.serve"
	log := in.log.With(
		slog.String("op", op),
		slog.String("room_id", sess.RoomID),
		slog.String("participant_id", sess.Identity.ParticipantID),
	)

	in.cancelGrace(sess.RoomID, sess.Identity.ParticipantID)
	sess.sessionID = uuid.NewString()

	if _, err := in.tracker.Join(ctx, domain.JoinRequest{
		RoomID:       sess.RoomID,
		Identity:     sess.Identity,
		Password:     sess.Password,
		AudioEnabled: sess.AudioEnabled,
		VideoEnabled: sess.VideoEnabled,
		SessionID:    sess.sessionID,
	}); err != nil {
		log.Info("join rejected", sl.Err(err))
		in.reject(ws, sess.RoomID, err)
		return err
	}

	conn := NewWSConn(ws, sess.sessionID, in.opts.Conn, in.log)
	go conn.WritePump()

	in.registry.Register(sess.RoomID, sess.Identity.ParticipantID, conn)
	log = log.With(slog.String("conn_id", conn.ID()))
	log.Info("connection registered")

	defer in.cleanup(ctx, sess, conn, log)

	// End may have closed the room between Join and Register.
	if room, err := in.rooms.Get(ctx, sess.RoomID); err != nil || room.Status.Terminal() {
		log.Info("room closed before registration completed")
		_ = conn.Send(ctx, errorFrame(sess.RoomID, domain.ErrRoomEnded))
		return nil
	}

	in.welcome(ctx, conn, sess)

	for {
		raw, err := conn.Read()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Debug("connection dropped", sl.Err(err))
			}
			return nil
		}

		msg, err := DecodeSignal(raw)
		if err != nil {
			log.Warn("malformed signaling message", sl.Err(err))
			_ = conn.Send(ctx, errorFrame(sess.RoomID, err))
			continue
		}
		if msg.RoomID != sess.RoomID {
			log.Warn("message for another room", slog.String("message_room_id", msg.RoomID))
			_ = conn.Send(ctx, errorFrame(sess.RoomID, domain.ErrMalformedMessage))
			continue
		}
		msg.From = sess.Identity.ParticipantID

		if msg.Type == domain.SignalParticipantLeft {
			// An explicit leave is announced by the tracker.
			log.Info("participant requested leave")
			in.leave(ctx, sess, log)
			return nil
		}

		in.router.Route(ctx, msg)
	}
}

// cleanup runs once the read loop exits. It does nothing when the
// connection was already replaced by a newer one for the same participant.
func (in *Ingress) cleanup(ctx context.Context, sess Session, conn *WSConn, log *slog.Logger) {
	conn.Close()

	if !in.registry.UnregisterConn(sess.RoomID, sess.Identity.ParticipantID, conn) {
		log.Debug("connection already replaced or removed")
		return
	}
	log.Info("connection unregistered")

	if in.opts.ReconnectGrace <= 0 {
		in.leave(ctx, sess, log)
		return
	}

	cctx, cancel := in.cleanupContext(ctx)
	defer cancel()
	if err := in.tracker.DisconnectSession(cctx, sess.RoomID, sess.Identity.ParticipantID, sess.sessionID); err != nil {
		log.Warn("failed to mark participant disconnected", sl.Err(err))
	}
	in.startGrace(ctx, sess, log)
}

func (in *Ingress) leave(ctx context.Context, sess Session, log *slog.Logger) {
	cctx, cancel := in.cleanupContext(ctx)
	defer cancel()

	err := in.tracker.LeaveSession(cctx, sess.RoomID, sess.Identity.ParticipantID, sess.sessionID)
	if err != nil && !errors.Is(err, domain.ErrParticipantNotFound) {
		log.Error("failed to record leave", sl.Err(err))
	}
}

func (in *Ingress) cleanupContext(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.WithoutCancel(ctx), cleanupTimeout)
}

func graceKey(roomID, participantID string) string {
	return roomID + "\x00" + participantID
}

func (in *Ingress) startGrace(ctx context.Context, sess Session, log *slog.Logger) {
	key := graceKey(sess.RoomID, sess.Identity.ParticipantID)

	in.mu.Lock()
	defer in.mu.Unlock()

	if t, ok := in.graces[key]; ok {
		t.Stop()
	}
	var timer *time.Timer
	timer = time.AfterFunc(in.opts.ReconnectGrace, func() {
		in.mu.Lock()
		if in.graces[key] != timer {
			in.mu.Unlock()
			return
		}
		delete(in.graces, key)
		in.mu.Unlock()

		if _, ok := in.registry.Get(sess.RoomID, sess.Identity.ParticipantID); ok {
			return
		}
		log.Info("reconnect grace expired")
		in.leave(ctx, sess, log)
	})
	in.graces[key] = timer
}

func (in *Ingress) cancelGrace(roomID, participantID string) {
	key := graceKey(roomID, participantID)

	in.mu.Lock()
	defer in.mu.Unlock()

	if t, ok := in.graces[key]; ok {
		t.Stop()
		delete(in.graces, key)
	}
}

type welcomeData struct {
	ParticipantID string   `json:"participantId"`
	Peers         []string `json:"peers"`
}

func (in *Ingress) welcome(ctx context.Context, conn Conn, sess Session) {
	peers := in.registry.AllExcept(sess.RoomID, sess.Identity.ParticipantID)
	ids := make([]string, 0, len(peers))
	for _, p := range peers {
		ids = append(ids, p.ParticipantID)
	}

	msg, err := systemMessage(sess.RoomID, EventWelcome, welcomeData{
		ParticipantID: sess.Identity.ParticipantID,
		Peers:         ids,
	})
	if err != nil {
		return
	}
	msg.To = sess.Identity.ParticipantID
	payload, err := EncodeSignal(msg)
	if err != nil {
		return
	}
	_ = conn.Send(ctx, payload)
}

// reject reports a failed join on a connection that was never registered.
func (in *Ingress) reject(ws *websocket.Conn, roomID string, err error) {
	deadline := time.Now().Add(in.opts.Conn.withDefaults().WriteWait)
	_ = ws.SetWriteDeadline(deadline)
	_ = ws.WriteMessage(websocket.TextMessage, errorFrame(roomID, err))
	_ = ws.WriteControl(
		websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.ClosePolicyViolation, ErrorCode(err)),
		deadline,
	)
	_ = ws.Close()
}
