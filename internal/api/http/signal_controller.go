package http

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/immxrtalbeast/consult_rooms/internal/auth"
	"github.com/immxrtalbeast/consult_rooms/internal/signaling"
	"github.com/immxrtalbeast/consult_rooms/lib/logger/sl"
)

type SessionServer interface {
	Serve(ctx context.Context, ws *websocket.Conn, sess signaling.Session) error
}

type SignalController struct {
	ingress  SessionServer
	registry *signaling.Registry
	verifier auth.Verifier
	upgrader websocket.Upgrader
	log      *slog.Logger
}

func NewSignalController(ingress SessionServer, registry *signaling.Registry, verifier auth.Verifier, allowedOrigins []string, log *slog.Logger) *SignalController {
	return &SignalController{
		ingress:  ingress,
		registry: registry,
		verifier: verifier,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     originChecker(allowedOrigins),
		},
		log: log,
	}
}

// originChecker accepts requests without an Origin header and those from
// an allowed origin. A "*" entry allows everything.
func originChecker(allowed []string) func(r *http.Request) bool {
	set := make(map[string]struct{}, len(allowed))
	for _, o := range allowed {
		if o == "*" {
			return func(*http.Request) bool { return true }
		}
		set[o] = struct{}{}
	}
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true
		}
		_, ok := set[origin]
		return ok
	}
}

// Connect verifies the caller, upgrades to a websocket and hands the
// connection to the ingress for its whole lifetime.
func (c *SignalController) Connect(ctx *gin.Context) {
	roomID := ctx.Param("roomID")

	token := ctx.Query("token")
	if token == "" {
		token = ctx.GetHeader("Authorization")
	}

	identity, err := c.verifier.VerifyIdentity(ctx.Request.Context(), token, auth.Hint{
		ParticipantID: ctx.Query("participant_id"),
		DisplayName:   ctx.Query("name"),
		Email:         ctx.Query("email"),
		Role:          ctx.Query("role"),
	})
	if err != nil {
		abortWithError(ctx, err)
		return
	}

	ws, err := c.upgrader.Upgrade(ctx.Writer, ctx.Request, nil)
	if err != nil {
		c.log.Error("websocket upgrade failed", slog.String("room_id", roomID), sl.Err(err))
		return
	}

	sess := signaling.Session{
		RoomID:       roomID,
		Identity:     identity,
		Password:     ctx.Query("password"),
		AudioEnabled: queryBool(ctx, "audio", true),
		VideoEnabled: queryBool(ctx, "video", true),
	}

	// Join errors were already reported to the client over the socket.
	_ = c.ingress.Serve(ctx.Request.Context(), ws, sess)
}

func (c *SignalController) Stats(ctx *gin.Context) {
	ctx.JSON(http.StatusOK, c.registry.Stats())
}

func queryBool(ctx *gin.Context, key string, def bool) bool {
	v, ok := ctx.GetQuery(key)
	if !ok {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def
	}
	return b
}
