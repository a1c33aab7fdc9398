package handler

import (
	"context"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/kantikoala/planner-api/internal/dto"
	"github.com/kantikoala/planner-api/internal/models"
	appErrors "github.com/kantikoala/planner-api/pkg/errors"
	"github.com/kantikoala/planner-api/pkg/response"
)

type settingsService interface {
	Get(ctx context.Context, userID string) (*models.Settings, error)
	Update(ctx context.Context, userID string, req dto.SettingsRequest) (*models.Settings, error)
	AddPriority(ctx context.Context, userID string, req dto.PriorityRequest) (*models.PrioritySetting, error)
	RemovePriority(ctx context.Context, userID string, level int) error
}

// SettingsHandler exposes scheduling preference endpoints.
type SettingsHandler struct {
	service settingsService
}

// NewSettingsHandler constructs the handler.
func NewSettingsHandler(service settingsService) *SettingsHandler {
	return &SettingsHandler{service: service}
}

// Get returns the user's settings, creating defaults on first access.
func (h *SettingsHandler) Get(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	settings, err := h.service.Get(c.Request.Context(), claims.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, settings)
}

// Update applies partial preference changes.
func (h *SettingsHandler) Update(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var req dto.SettingsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid request body"))
		return
	}

	settings, err := h.service.Update(c.Request.Context(), claims.UserID, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, settings)
}

// AddPriority appends a new exam urgency tier.
func (h *SettingsHandler) AddPriority(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var req dto.PriorityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid request body"))
		return
	}

	prio, err := h.service.AddPriority(c.Request.Context(), claims.UserID, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, prio)
}

// RemovePriority deletes a tier, shifting higher tiers down.
func (h *SettingsHandler) RemovePriority(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	level, err := strconv.Atoi(c.Param("level"))
	if err != nil || level < 1 {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid priority level"))
		return
	}

	if err := h.service.RemovePriority(c.Request.Context(), claims.UserID, level); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
