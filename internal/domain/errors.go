package domain

import "errors"

var (
	ErrDuplicateRoom       = errors.New("room already exists")
	ErrRoomNotFound        = errors.New("room not found")
	ErrInvalidPassword     = errors.New("invalid room password")
	ErrRoomFull            = errors.New("room is full")
	ErrRoomEnded           = errors.New("room has ended")
	ErrInvalidTransition   = errors.New("invalid room status transition")
	ErrParticipantNotFound = errors.New("participant not found")
	ErrStorageUnavailable  = errors.New("storage unavailable")
	ErrInvalidRoomSpec     = errors.New("invalid room spec")
	ErrMalformedMessage    = errors.New("malformed signaling message")
)

// IsDomainError reports whether err is one of the expected, recoverable
// outcomes above rather than an infrastructure failure.
func IsDomainError(err error) bool {
	for _, target := range []error{
		ErrDuplicateRoom,
		ErrRoomNotFound,
		ErrInvalidPassword,
		ErrRoomFull,
		ErrRoomEnded,
		ErrInvalidTransition,
		ErrParticipantNotFound,
		ErrInvalidRoomSpec,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}
