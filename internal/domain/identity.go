package domain

// Identity is the pre-validated identity bound to a signaling connection.
type Identity struct {
	ParticipantID string
	DisplayName   string
	Email         string
	Role          ParticipantRole
}

// JoinRequest asks the tracker to admit an identity into a room.
type JoinRequest struct {
	RoomID       string
	Identity     Identity
	Password     string
	AudioEnabled bool
	VideoEnabled bool
	// SessionID ties the membership to one connection. Empty generates one.
	SessionID string
}
