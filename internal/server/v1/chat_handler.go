package v1

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/nulzo/concierge-bot/internal/core/services"
	"github.com/nulzo/concierge-bot/internal/server/validator"
	"github.com/nulzo/concierge-bot/internal/sponsor"
	"github.com/nulzo/concierge-bot/pkg/api"
)

// ChatService is the slice of the orchestration layer the chat endpoints
// need.
type ChatService interface {
	Respond(ctx context.Context, in services.Incoming) services.Reply
	Reset(ctx context.Context, userID int64) services.Reply
	SetModel(ctx context.Context, userID int64, modelID string) error
	CurrentModel(ctx context.Context, userID int64) (string, error)
}

type ChatHandler struct {
	service ChatService
}

func NewChatHandler(service ChatService) *ChatHandler {
	return &ChatHandler{service: service}
}

type chatRequest struct {
	UserID       int64  `json:"user_id" binding:"required"`
	Text         string `json:"text" binding:"required"`
	Username     string `json:"username"`
	FirstName    string `json:"first_name"`
	LastName     string `json:"last_name"`
	LanguageCode string `json:"language_code"`
}

type channelView struct {
	ID    string `json:"id"`
	Label string `json:"label"`
	URL   string `json:"url"`
}

type chatResponse struct {
	Text        string        `json:"text"`
	JoinPrompt  bool          `json:"join_prompt"`
	Channels    []channelView `json:"channels,omitempty"`
	ReferenceID string        `json:"reference_id,omitempty"`
}

func (h *ChatHandler) Respond(c *gin.Context) {
	var req chatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		_ = c.Error(api.ValidationError(validator.ParseValidationError(err)))
		return
	}

	reply := h.service.Respond(c.Request.Context(), services.Incoming{
		UserID:       req.UserID,
		Username:     req.Username,
		FirstName:    req.FirstName,
		LastName:     req.LastName,
		LanguageCode: req.LanguageCode,
		Text:         req.Text,
	})

	c.JSON(http.StatusOK, toChatResponse(reply))
}

type resetRequest struct {
	UserID int64 `json:"user_id" binding:"required"`
}

func (h *ChatHandler) Reset(c *gin.Context) {
	var req resetRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		_ = c.Error(api.ValidationError(validator.ParseValidationError(err)))
		return
	}

	reply := h.service.Reset(c.Request.Context(), req.UserID)
	c.JSON(http.StatusOK, toChatResponse(reply))
}

type setModelRequest struct {
	UserID int64  `json:"user_id" binding:"required"`
	Model  string `json:"model"` // empty clears the override
}

func (h *ChatHandler) SetModel(c *gin.Context) {
	var req setModelRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		_ = c.Error(api.ValidationError(validator.ParseValidationError(err)))
		return
	}

	if err := h.service.SetModel(c.Request.Context(), req.UserID, req.Model); err != nil {
		_ = c.Error(err)
		return
	}

	current, err := h.service.CurrentModel(c.Request.Context(), req.UserID)
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"model": current})
}

func toChatResponse(reply services.Reply) chatResponse {
	return chatResponse{
		Text:        reply.Text,
		JoinPrompt:  reply.JoinPrompt,
		Channels:    toChannelViews(reply.Channels),
		ReferenceID: reply.ReferenceID,
	}
}

func toChannelViews(channels []sponsor.Channel) []channelView {
	if len(channels) == 0 {
		return nil
	}
	out := make([]channelView, 0, len(channels))
	for _, ch := range channels {
		out = append(out, channelView{ID: ch.ID, Label: ch.Label, URL: ch.URL})
	}
	return out
}
