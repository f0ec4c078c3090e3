package signaling

import (
	"errors"
	"fmt"

	"github.com/goccy/go-json"
	"github.com/immxrtalbeast/consult_rooms/internal/domain"
)

const (
	EventWelcome   = "welcome"
	EventRoomEnded = "room-ended"
)

// DecodeSignal parses an inbound frame. Frames without a roomId or with an
// unknown type are rejected with ErrMalformedMessage.
func DecodeSignal(raw []byte) (*domain.SignalMessage, error) {
	var msg domain.SignalMessage
	if err := json.Unmarshal(raw, &msg); err != nil {
		return nil, fmt.Errorf("%w: %s", domain.ErrMalformedMessage, err.Error())
	}
	if msg.RoomID == "" {
		return nil, fmt.Errorf("%w: roomId is required", domain.ErrMalformedMessage)
	}
	if !msg.Type.Valid() {
		return nil, fmt.Errorf("%w: unsupported type %q", domain.ErrMalformedMessage, msg.Type)
	}
	return &msg, nil
}

func EncodeSignal(msg *domain.SignalMessage) ([]byte, error) {
	return json.Marshal(msg)
}

type systemPayload struct {
	Event string `json:"event"`
	Data  any    `json:"data,omitempty"`
}

func systemMessage(roomID, event string, data any) (*domain.SignalMessage, error) {
	raw, err := json.Marshal(systemPayload{Event: event, Data: data})
	if err != nil {
		return nil, err
	}
	return &domain.SignalMessage{
		RoomID: roomID,
		From:   domain.SystemSenderID,
		Type:   domain.SignalSystem,
		Data:   raw,
	}, nil
}

type errorPayload struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// errorFrame builds the frame sent back to a client whose request failed.
func errorFrame(roomID string, err error) []byte {
	raw, _ := json.Marshal(errorPayload{Code: ErrorCode(err), Message: err.Error()})
	frame, _ := json.Marshal(&domain.SignalMessage{
		RoomID: roomID,
		From:   domain.SystemSenderID,
		Type:   domain.SignalError,
		Data:   raw,
	})
	return frame
}

// ErrorCode is the stable client-facing name of err.
func ErrorCode(err error) string {
	switch {
	case errors.Is(err, domain.ErrRoomNotFound):
		return "room_not_found"
	case errors.Is(err, domain.ErrInvalidPassword):
		return "invalid_password"
	case errors.Is(err, domain.ErrRoomFull):
		return "room_full"
	case errors.Is(err, domain.ErrRoomEnded):
		return "room_ended"
	case errors.Is(err, domain.ErrInvalidTransition):
		return "invalid_transition"
	case errors.Is(err, domain.ErrParticipantNotFound):
		return "participant_not_found"
	case errors.Is(err, domain.ErrDuplicateRoom):
		return "duplicate_room"
	case errors.Is(err, domain.ErrMalformedMessage):
		return "malformed_message"
	case errors.Is(err, domain.ErrStorageUnavailable):
		return "storage_unavailable"
	default:
		return "internal_error"
	}
}

// EncodeSignalData encodes v as the opaque data field of a message.
func EncodeSignalData(v any) ([]byte, error) {
	return json.Marshal(v)
}
