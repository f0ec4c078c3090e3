package http

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/immxrtalbeast/consult_rooms/internal/api/http/converter"
	"github.com/immxrtalbeast/consult_rooms/internal/auth"
	"github.com/immxrtalbeast/consult_rooms/internal/config"
	"github.com/immxrtalbeast/consult_rooms/internal/domain"
	"github.com/immxrtalbeast/consult_rooms/internal/service"
	"github.com/immxrtalbeast/consult_rooms/lib/logger/sl"
	"github.com/pion/webrtc/v3"
)

type Sweeper interface {
	SweepOnce(ctx context.Context) (int, error)
}

type MeetingController struct {
	rooms        service.RoomInteractor
	participants service.ParticipantInteractor
	sweeper      Sweeper
	verifier     auth.Verifier
	iceServers   []webrtc.ICEServer
	log          *slog.Logger
}

func NewMeetingController(
	rooms service.RoomInteractor,
	participants service.ParticipantInteractor,
	sweeper Sweeper,
	verifier auth.Verifier,
	rtc config.WebRTCConfig,
	log *slog.Logger,
) *MeetingController {
	return &MeetingController{
		rooms:        rooms,
		participants: participants,
		sweeper:      sweeper,
		verifier:     verifier,
		iceServers:   iceServers(rtc),
		log:          log,
	}
}

func iceServers(cfg config.WebRTCConfig) []webrtc.ICEServer {
	servers := make([]webrtc.ICEServer, 0, 2)
	if len(cfg.STUNServers) > 0 {
		servers = append(servers, webrtc.ICEServer{URLs: cfg.STUNServers})
	}
	if len(cfg.TURNServers) > 0 {
		servers = append(servers, webrtc.ICEServer{
			URLs:           cfg.TURNServers,
			Username:       cfg.TURNUsername,
			Credential:     cfg.TURNCredential,
			CredentialType: webrtc.ICECredentialTypePassword,
		})
	}
	return servers
}

func (c *MeetingController) CreateMeeting(ctx *gin.Context) {
	var req converter.CreateMeetingRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	room, err := c.rooms.Create(ctx.Request.Context(), req.ToSpec())
	if err != nil {
		c.log.Warn("create meeting failed", slog.String("room_id", req.RoomID), sl.Err(err))
		abortWithError(ctx, err)
		return
	}

	ctx.JSON(http.StatusCreated, converter.RoomToApi(room))
}

func (c *MeetingController) QuickCreate(ctx *gin.Context) {
	room, err := c.rooms.QuickCreate(ctx.Request.Context(), ctx.Param("roomID"))
	if err != nil {
		abortWithError(ctx, err)
		return
	}

	ctx.JSON(http.StatusCreated, converter.RoomToApi(room))
}

func (c *MeetingController) GetMeeting(ctx *gin.Context) {
	room, err := c.rooms.Get(ctx.Request.Context(), ctx.Param("roomID"))
	if err != nil {
		abortWithError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, converter.RoomToApi(room))
}

// ListMeetings returns every room, or only ACTIVE ones with ?status=active.
func (c *MeetingController) ListMeetings(ctx *gin.Context) {
	var (
		rooms []*domain.Room
		err   error
	)
	if strings.EqualFold(ctx.Query("status"), "active") {
		rooms, err = c.rooms.ListActive(ctx.Request.Context())
	} else {
		rooms, err = c.rooms.List(ctx.Request.Context())
	}
	if err != nil {
		abortWithError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, gin.H{"meetings": converter.RoomsToApi(rooms)})
}

func (c *MeetingController) ValidateMeeting(ctx *gin.Context) {
	room, err := c.rooms.Validate(ctx.Request.Context(), ctx.Param("roomID"))
	if err != nil {
		abortWithError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, gin.H{
		"valid":        true,
		"room_id":      room.ID,
		"status":       room.Status,
		"has_password": room.Password != "",
	})
}

func (c *MeetingController) JoinMeeting(ctx *gin.Context) {
	var req converter.JoinMeetingRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	identity, err := c.verifier.VerifyIdentity(ctx.Request.Context(), ctx.GetHeader("Authorization"), auth.Hint{
		ParticipantID: req.ParticipantID,
		DisplayName:   req.DisplayName,
		Email:         req.Email,
		Role:          req.Role,
	})
	if err != nil {
		abortWithError(ctx, err)
		return
	}

	roomID := ctx.Param("roomID")
	participant, err := c.participants.Join(ctx.Request.Context(), domain.JoinRequest{
		RoomID:       roomID,
		Identity:     identity,
		Password:     req.Password,
		AudioEnabled: boolOr(req.AudioEnabled, true),
		VideoEnabled: boolOr(req.VideoEnabled, true),
	})
	if err != nil {
		c.log.Info("join rejected",
			slog.String("room_id", roomID),
			slog.String("participant_id", identity.ParticipantID),
			sl.Err(err),
		)
		abortWithError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, gin.H{
		"participant": converter.ParticipantToApi(participant),
		"ice_servers": c.iceServers,
	})
}

func (c *MeetingController) LeaveMeeting(ctx *gin.Context) {
	var req converter.LeaveMeetingRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := c.participants.Leave(ctx.Request.Context(), ctx.Param("roomID"), req.ParticipantID); err != nil {
		abortWithError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, gin.H{"status": "left"})
}

func (c *MeetingController) EndMeeting(ctx *gin.Context) {
	roomID := ctx.Param("roomID")
	if err := c.rooms.End(ctx.Request.Context(), roomID); err != nil {
		abortWithError(ctx, err)
		return
	}

	room, err := c.rooms.Get(ctx.Request.Context(), roomID)
	if err != nil {
		abortWithError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, converter.RoomToApi(room))
}

func (c *MeetingController) CancelMeeting(ctx *gin.Context) {
	roomID := ctx.Param("roomID")
	if err := c.rooms.Cancel(ctx.Request.Context(), roomID); err != nil {
		abortWithError(ctx, err)
		return
	}

	room, err := c.rooms.Get(ctx.Request.Context(), roomID)
	if err != nil {
		abortWithError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, converter.RoomToApi(room))
}

// ListParticipants returns the roster, or only CONNECTED participants with
// ?active=true.
func (c *MeetingController) ListParticipants(ctx *gin.Context) {
	roomID := ctx.Param("roomID")

	var (
		participants []*domain.Participant
		err          error
	)
	if ctx.Query("active") == "true" {
		participants, err = c.participants.ListActive(ctx.Request.Context(), roomID)
	} else {
		participants, err = c.participants.List(ctx.Request.Context(), roomID)
	}
	if err != nil {
		abortWithError(ctx, err)
		return
	}

	active, err := c.participants.ActiveCount(ctx.Request.Context(), roomID)
	if err != nil {
		abortWithError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, gin.H{
		"participants": converter.ParticipantsToApi(participants),
		"active_count": active,
	})
}

func (c *MeetingController) UpdateMedia(ctx *gin.Context) {
	var req converter.MediaRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	participant, err := c.participants.UpdateMedia(
		ctx.Request.Context(),
		ctx.Param("roomID"),
		ctx.Param("participantID"),
		req.ToMediaState(),
	)
	if err != nil {
		abortWithError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, converter.ParticipantToApi(participant))
}

func (c *MeetingController) ListMessages(ctx *gin.Context) {
	messages, err := c.participants.Messages(ctx.Request.Context(), ctx.Param("roomID"))
	if err != nil {
		abortWithError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, gin.H{"messages": converter.MessagesToApi(messages)})
}

func (c *MeetingController) Cleanup(ctx *gin.Context) {
	ended, err := c.sweeper.SweepOnce(ctx.Request.Context())
	if err != nil {
		abortWithError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, gin.H{"ended": ended})
}

func (c *MeetingController) WebRTCConfig(ctx *gin.Context) {
	ctx.JSON(http.StatusOK, gin.H{"ice_servers": c.iceServers})
}

func boolOr(v *bool, def bool) bool {
	if v == nil {
		return def
	}
	return *v
}
