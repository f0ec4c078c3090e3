package http

import (
	"net/http"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

func SetupRouter(meetingController *MeetingController, signalController *SignalController, allowedOrigins []string) *gin.Engine {
	router := gin.Default()
	config := cors.DefaultConfig()
	config.AllowOrigins = allowedOrigins
	config.AllowCredentials = true
	config.AllowHeaders = []string{
		"Authorization",
		"Content-Type",
		"Origin",
		"Accept",
	}
	config.AllowMethods = []string{"GET", "POST", "PUT", "PATCH", "DELETE", "HEAD", "OPTIONS"}
	router.Use(cors.New(config))
	router.GET("/healthz", func(ctx *gin.Context) {
		ctx.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	api := router.Group("/api/v1")

	if meetingController != nil {
		meetings := api.Group("/meetings")
		meetings.POST("", meetingController.CreateMeeting)
		meetings.GET("", meetingController.ListMeetings)
		meetings.GET("/webrtc-config", meetingController.WebRTCConfig)
		meetings.POST("/cleanup", meetingController.Cleanup)
		meetings.POST("/quick-create/:roomID", meetingController.QuickCreate)
		meetings.GET("/:roomID", meetingController.GetMeeting)
		meetings.GET("/:roomID/validate", meetingController.ValidateMeeting)
		meetings.POST("/:roomID/join", meetingController.JoinMeeting)
		meetings.POST("/:roomID/leave", meetingController.LeaveMeeting)
		meetings.POST("/:roomID/end", meetingController.EndMeeting)
		meetings.POST("/:roomID/cancel", meetingController.CancelMeeting)
		meetings.GET("/:roomID/participants", meetingController.ListParticipants)
		meetings.PATCH("/:roomID/participants/:participantID/media", meetingController.UpdateMedia)
		meetings.GET("/:roomID/messages", meetingController.ListMessages)
	}

	if signalController != nil {
		signal := api.Group("/signaling")
		signal.GET("/stats", signalController.Stats)
		signal.GET("/ws/:roomID", signalController.Connect)
	}

	return router
}
