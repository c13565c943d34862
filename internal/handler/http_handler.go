package handler

import (
	"errors"

	"github.com/gin-gonic/gin"

	"github.com/weiawesome/wes-io-live/viewer-client/internal/chat"
	"github.com/weiawesome/wes-io-live/viewer-client/internal/domain"
	"github.com/weiawesome/wes-io-live/viewer-client/internal/playback"
	"github.com/weiawesome/wes-io-live/viewer-client/internal/service"
	"github.com/weiawesome/wes-io-live/viewer-client/pkg/log"
	"github.com/weiawesome/wes-io-live/viewer-client/pkg/response"
)

// Handler exposes the mounted view over HTTP.
type Handler struct {
	watchService service.WatchService
}

// NewHandler creates a new HTTP handler.
func NewHandler(watchService service.WatchService) *Handler {
	return &Handler{
		watchService: watchService,
	}
}

// RegisterRoutes registers all routes.
func (h *Handler) RegisterRoutes(r *gin.Engine) {
	api := r.Group("/api/v1")
	{
		api.GET("/session", h.GetSession)

		chatGroup := api.Group("/chat")
		{
			chatGroup.GET("/messages", h.ListMessages)
			chatGroup.POST("/messages", h.SendMessage)
		}

		player := api.Group("/player")
		{
			player.POST("/gesture", h.Gesture)
			player.POST("/pause", h.Pause)
			player.POST("/seek", h.Seek)
		}
	}
}

// GetSession returns sync, chat and viewer state.
func (h *Handler) GetSession(c *gin.Context) {
	response.Success(c, h.watchService.Snapshot())
}

// ListMessages returns the chat transcript.
func (h *Handler) ListMessages(c *gin.Context) {
	msgs := h.watchService.Messages()
	if msgs == nil {
		msgs = []domain.ChatMessage{}
	}
	response.Success(c, domain.MessagesResponse{Messages: msgs, Total: len(msgs)})
}

// SendMessage publishes a chat message.
func (h *Handler) SendMessage(c *gin.Context) {
	ctx := c.Request.Context()
	l := log.Ctx(ctx)

	var req domain.SendMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	if err := h.watchService.SendMessage(ctx, req.Message); err != nil {
		switch {
		case errors.Is(err, chat.ErrNotConnected):
			response.NotConnected(c, "chat is not connected")
		case errors.Is(err, chat.ErrEmptyMessage), errors.Is(err, chat.ErrMessageTooLong):
			response.BadRequest(c, err.Error())
		default:
			l.Error().Err(err).Msg("failed to send chat message")
			response.InternalError(c, "failed to send message")
		}
		return
	}

	response.Accepted(c, gin.H{"sent": true})
}

// Gesture forwards a click on the player surface.
func (h *Handler) Gesture(c *gin.Context) {
	allowed := h.watchService.Gesture(c.Request.Context())
	response.Accepted(c, h.playerState(allowed))
}

// Pause asks the player to pause.
func (h *Handler) Pause(c *gin.Context) {
	allowed := h.watchService.Pause(c.Request.Context())
	response.Success(c, h.playerState(allowed))
}

// Seek asks the player to move the playhead.
func (h *Handler) Seek(c *gin.Context) {
	ctx := c.Request.Context()
	l := log.Ctx(ctx)

	var req domain.SeekRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	if *req.Position < 0 {
		response.BadRequest(c, "position must not be negative")
		return
	}

	allowed, err := h.watchService.Seek(ctx, *req.Position)
	if err != nil {
		if errors.Is(err, playback.ErrNotReady) {
			response.ServiceUnavailable(c, "media is not ready")
			return
		}
		l.Error().Err(err).Float64(log.FieldPosition, *req.Position).Msg("failed to seek")
		response.InternalError(c, "failed to seek")
		return
	}

	response.Success(c, h.playerState(allowed))
}

func (h *Handler) playerState(allowed bool) domain.PlayerActionResponse {
	snap := h.watchService.Snapshot()
	return domain.PlayerActionResponse{Allowed: allowed, State: snap.Playback.State}
}
