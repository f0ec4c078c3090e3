package events

import (
	"context"
	"log/slog"
	"time"

	"github.com/goccy/go-json"
	"github.com/immxrtalbeast/consult_rooms/internal/config"
	"github.com/immxrtalbeast/consult_rooms/internal/domain"
	"github.com/immxrtalbeast/consult_rooms/lib/logger/sl"
	"github.com/nats-io/nats.go"
)

const (
	EventRoomCreated       = "created"
	EventRoomStarted       = "started"
	EventRoomEnded         = "ended"
	EventRoomCancelled     = "cancelled"
	EventParticipantJoined = "participant_joined"
	EventParticipantLeft   = "participant_left"
)

// Conn is the publishing side of a NATS connection.
type Conn interface {
	Publish(subject string, data []byte) error
}

// Event is the payload published for every lifecycle transition.
type Event struct {
	Type          string    `json:"type"`
	RoomID        string    `json:"room_id"`
	ParticipantID string    `json:"participant_id,omitempty"`
	Status        string    `json:"status"`
	OccurredAt    time.Time `json:"occurred_at"`
}

// Publisher forwards room lifecycle transitions to NATS subjects
// "<prefix>.room.<event>". Publishing is fire-and-forget.
type Publisher struct {
	conn   Conn
	prefix string
	log    *slog.Logger
	now    func() time.Time
}

func NewPublisher(conn Conn, prefix string, log *slog.Logger) *Publisher {
	if prefix == "" {
		prefix = "meetings"
	}
	if log == nil {
		log = slog.Default()
	}
	return &Publisher{conn: conn, prefix: prefix, log: log, now: time.Now}
}

// Connect dials NATS with unlimited reconnects.
func Connect(cfg config.NATSConfig, log *slog.Logger) (*nats.Conn, error) {
	return nats.Connect(cfg.URL,
		nats.Name("consult-rooms"),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				log.Warn("nats disconnected", sl.Err(err))
			}
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			log.Info("nats reconnected", slog.String("url", nc.ConnectedUrl()))
		}),
	)
}

func (p *Publisher) Subject(event string) string {
	return p.prefix + ".room." + event
}

func (p *Publisher) publish(ev Event) {
	ev.OccurredAt = p.now().UTC()
	data, err := json.Marshal(ev)
	if err != nil {
		p.log.Warn("failed to encode lifecycle event", sl.Err(err))
		return
	}
	if err := p.conn.Publish(p.Subject(ev.Type), data); err != nil {
		p.log.Warn("failed to publish lifecycle event",
			slog.String("event", ev.Type),
			slog.String("room_id", ev.RoomID),
			sl.Err(err),
		)
	}
}

func (p *Publisher) RoomCreated(_ context.Context, room *domain.Room) {
	p.publish(Event{Type: EventRoomCreated, RoomID: room.ID, Status: string(room.Status)})
}

func (p *Publisher) RoomStarted(_ context.Context, room *domain.Room) {
	p.publish(Event{Type: EventRoomStarted, RoomID: room.ID, Status: string(room.Status)})
}

func (p *Publisher) RoomClosed(_ context.Context, room *domain.Room) {
	event := EventRoomEnded
	if room.Status == domain.RoomStatusCancelled {
		event = EventRoomCancelled
	}
	p.publish(Event{Type: event, RoomID: room.ID, Status: string(room.Status)})
}

func (p *Publisher) ParticipantJoined(_ context.Context, participant *domain.Participant) {
	p.publish(Event{
		Type:          EventParticipantJoined,
		RoomID:        participant.RoomID,
		ParticipantID: participant.ParticipantID,
		Status:        string(participant.Status),
	})
}

func (p *Publisher) ParticipantLeft(_ context.Context, participant *domain.Participant) {
	p.publish(Event{
		Type:          EventParticipantLeft,
		RoomID:        participant.RoomID,
		ParticipantID: participant.ParticipantID,
		Status:        string(participant.Status),
	})
}
