package v1

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/nulzo/concierge-bot/internal/server/validator"
	"github.com/nulzo/concierge-bot/internal/settings"
	"github.com/nulzo/concierge-bot/internal/sponsor"
	"github.com/nulzo/concierge-bot/pkg/api"
	"github.com/nulzo/concierge-bot/pkg/schema"
)

// AdminService is the live-edit surface consumed by the admin endpoints.
type AdminService interface {
	UpdateSetting(ctx context.Context, key, rawInput string) error
	Settings() []settings.Entry
	Sponsors() []sponsor.Channel
	AddSponsor(ctx context.Context, raw string) error
	RemoveSponsor(ctx context.Context, raw string) error
	Models(ctx context.Context, providerName string) ([]schema.ModelInfo, error)
}

// StatusReporter renders the human status summary.
type StatusReporter interface {
	Status(ctx context.Context) string
}

type AdminHandler struct {
	admin  AdminService
	status StatusReporter
}

func NewAdminHandler(admin AdminService, status StatusReporter) *AdminHandler {
	return &AdminHandler{admin: admin, status: status}
}

func (h *AdminHandler) Status(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": h.status.Status(c.Request.Context())})
}

// Settings returns the masked configuration view.
func (h *AdminHandler) Settings(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"settings": h.admin.Settings()})
}

type updateSettingRequest struct {
	// Value may be empty: for optional settings that clears them.
	Value string `json:"value"`
}

func (h *AdminHandler) UpdateSetting(c *gin.Context) {
	var req updateSettingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		_ = c.Error(api.ValidationError(validator.ParseValidationError(err)))
		return
	}

	key := c.Param("key")
	if err := h.admin.UpdateSetting(c.Request.Context(), key, req.Value); err != nil {
		_ = c.Error(err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"settings": h.admin.Settings()})
}

func (h *AdminHandler) ListSponsors(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"channels": toChannelViews(h.admin.Sponsors())})
}

type sponsorRequest struct {
	Channel string `json:"channel" binding:"required"`
}

func (h *AdminHandler) AddSponsor(c *gin.Context) {
	var req sponsorRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		_ = c.Error(api.ValidationError(validator.ParseValidationError(err)))
		return
	}

	if err := h.admin.AddSponsor(c.Request.Context(), req.Channel); err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"channels": toChannelViews(h.admin.Sponsors())})
}

func (h *AdminHandler) RemoveSponsor(c *gin.Context) {
	if err := h.admin.RemoveSponsor(c.Request.Context(), c.Param("channel")); err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"channels": toChannelViews(h.admin.Sponsors())})
}

// Models lists the upstream models of ?provider= (default provider when
// omitted).
func (h *AdminHandler) Models(c *gin.Context) {
	models, err := h.admin.Models(c.Request.Context(), c.Query("provider"))
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"models": models})
}
