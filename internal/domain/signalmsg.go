package domain

import "encoding/json"

type SignalKind string

const (
	SignalOffer           SignalKind = "offer"
	SignalAnswer          SignalKind = "answer"
	SignalICECandidate    SignalKind = "ice-candidate"
	SignalNewParticipant  SignalKind = "new-participant"
	SignalParticipantLeft SignalKind = "participant-left"
	SignalSystem          SignalKind = "system"

	// SignalError is only ever sent by the server.
	SignalError SignalKind = "error"
)

func (k SignalKind) Valid() bool {
	switch k {
	case SignalOffer, SignalAnswer, SignalICECandidate,
		SignalNewParticipant, SignalParticipantLeft, SignalSystem:
		return true
	default:
		return false
	}
}

// SignalMessage is relayed between participants of a room. Data is opaque
// and forwarded verbatim.
type SignalMessage struct {
	RoomID string          `json:"roomId"`
	From   string          `json:"from"`
	To     string          `json:"to,omitempty"`
	Type   SignalKind      `json:"type"`
	Data   json.RawMessage `json:"data,omitempty"`
}

func (m *SignalMessage) Broadcast() bool {
	return m.To == ""
}
