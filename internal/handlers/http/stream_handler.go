package http

import (
	"context"
	"net/http"

	"rillcast/internal/app"
	"rillcast/internal/core/domain"
	"rillcast/internal/core/services"
	"rillcast/internal/infrastructure/middleware"
	"rillcast/pkg/errors"

	"github.com/gin-gonic/gin"
)

type StreamHandler struct {
	app *app.App
}

func NewStreamHandler(a *app.App) *StreamHandler {
	return &StreamHandler{app: a}
}

func (h *StreamHandler) SetupRoutes(api *gin.RouterGroup) {
	api.GET("/permissions", h.Permissions)
	api.POST("/permissions/request", h.RequestPermissions)
	api.GET("/streams", h.ListStreams)
	api.GET("/session", h.Session)

	signedIn := api.Group("")
	signedIn.Use(middleware.RequireSignIn(h.app.Auth))
	{
		signedIn.POST("/broadcast", h.Broadcast)
		signedIn.POST("/watch/:room", h.Watch)
	}

	api.POST("/leave", h.Leave)

	controls := api.Group("/controls")
	{
		controls.POST("/camera", h.ToggleCamera)
		controls.POST("/microphone", h.ToggleMicrophone)
		controls.POST("/switch-camera", h.SwitchCamera)
	}
}

type BroadcastRequest struct {
	Title string `json:"title" binding:"max=120"`
}

// SessionResponse is everything a client needs to render its screen.
type SessionResponse struct {
	Role      services.Role           `json:"role,omitempty"`
	Metadata  domain.SessionMetadata  `json:"metadata"`
	Streaming services.StreamingState `json:"streaming"`
	Viewer    app.ViewerState         `json:"viewer"`
}

func (h *StreamHandler) Permissions(c *gin.Context) {
	h.app.Permissions.CheckPermissions(c.Request.Context())
	c.JSON(http.StatusOK, h.app.Permissions.State())
}

func (h *StreamHandler) RequestPermissions(c *gin.Context) {
	h.app.Permissions.RequestPermissions(c.Request.Context())
	c.JSON(http.StatusOK, h.app.Permissions.State())
}

func (h *StreamHandler) ListStreams(c *gin.Context) {
	streams, err := h.app.Directory.List(c.Request.Context())
	if err != nil {
		c.Error(errors.WrapError(err, errors.ErrCodeInternal, "failed to list streams", http.StatusInternalServerError))
		return
	}
	if streams == nil {
		streams = []*domain.LiveStream{}
	}
	c.JSON(http.StatusOK, gin.H{"streams": streams})
}

func (h *StreamHandler) Broadcast(c *gin.Context) {
	var req BroadcastRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.Error(errors.NewInvalidInputError("invalid request format"))
			return
		}
	}

	room, err := h.app.GoLive(c.Request.Context(), req.Title)
	if err != nil {
		c.Error(toAppError(err))
		return
	}
	c.JSON(http.StatusCreated, gin.H{
		"room_id": room,
		"session": h.app.Session.Snapshot(),
	})
}

func (h *StreamHandler) Watch(c *gin.Context) {
	room := domain.RoomID(c.Param("room"))
	if err := h.app.Watch(c.Request.Context(), room); err != nil {
		c.Error(toAppError(err).WithContext("room_id", room))
		return
	}
	c.JSON(http.StatusOK, h.session())
}

func (h *StreamHandler) Leave(c *gin.Context) {
	h.app.Leave(c.Request.Context())
	c.JSON(http.StatusOK, h.session())
}

func (h *StreamHandler) ToggleCamera(c *gin.Context) {
	h.control(c, h.app.Streaming.ToggleCamera)
}

func (h *StreamHandler) ToggleMicrophone(c *gin.Context) {
	h.control(c, h.app.Streaming.ToggleMicrophone)
}

func (h *StreamHandler) SwitchCamera(c *gin.Context) {
	h.control(c, h.app.Streaming.SwitchCamera)
}

func (h *StreamHandler) Session(c *gin.Context) {
	c.JSON(http.StatusOK, h.session())
}

func (h *StreamHandler) control(c *gin.Context, fn func(ctx context.Context) error) {
	if err := fn(c.Request.Context()); err != nil {
		c.Error(toAppError(err))
		return
	}
	c.JSON(http.StatusOK, h.app.Streaming.State())
}

func (h *StreamHandler) session() SessionResponse {
	return SessionResponse{
		Role:      h.app.Role(),
		Metadata:  h.app.Session.Snapshot(),
		Streaming: h.app.Streaming.State(),
		Viewer:    h.app.ViewerState(),
	}
}
