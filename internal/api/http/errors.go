package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/immxrtalbeast/consult_rooms/internal/auth"
	"github.com/immxrtalbeast/consult_rooms/internal/domain"
)

func statusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrRoomNotFound), errors.Is(err, domain.ErrParticipantNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrDuplicateRoom), errors.Is(err, domain.ErrInvalidTransition), errors.Is(err, domain.ErrRoomFull):
		return http.StatusConflict
	case errors.Is(err, domain.ErrInvalidPassword):
		return http.StatusForbidden
	case errors.Is(err, domain.ErrRoomEnded):
		return http.StatusGone
	case errors.Is(err, domain.ErrInvalidRoomSpec), errors.Is(err, domain.ErrMalformedMessage):
		return http.StatusUnprocessableEntity
	case errors.Is(err, domain.ErrStorageUnavailable):
		return http.StatusServiceUnavailable
	case errors.Is(err, auth.ErrUnauthorized), errors.Is(err, auth.ErrInvalidRole):
		return http.StatusUnauthorized
	default:
		return http.StatusInternalServerError
	}
}

func abortWithError(ctx *gin.Context, err error) {
	status := statusFor(err)
	message := err.Error()
	if status == http.StatusInternalServerError {
		message = "internal error"
	}
	ctx.AbortWithStatusJSON(status, gin.H{"error": message})
}
