package handler

import (
	"context"
	"io"

	"github.com/gin-gonic/gin"

	"github.com/kantikoala/planner-api/internal/dto"
	"github.com/kantikoala/planner-api/internal/models"
	appErrors "github.com/kantikoala/planner-api/pkg/errors"
	"github.com/kantikoala/planner-api/pkg/response"
)

// Imports larger than this are rejected before parsing.
const maxICSBytes = 2 << 20

type eventService interface {
	List(ctx context.Context, userID string, req dto.EventListRequest) ([]models.Event, error)
	Create(ctx context.Context, userID string, req dto.EventRequest) ([]models.Event, error)
	Update(ctx context.Context, userID, id string, req dto.EventRequest) (*models.Event, error)
	Delete(ctx context.Context, userID, id string, series bool) error
}

type icsService interface {
	Import(ctx context.Context, userID string, payload []byte) (*dto.ImportResult, error)
}

// EventHandler exposes calendar event endpoints.
type EventHandler struct {
	events eventService
	ics    icsService
}

// NewEventHandler constructs the handler.
func NewEventHandler(events eventService, ics icsService) *EventHandler {
	return &EventHandler{events: events, ics: ics}
}

// List returns the user's events, optionally narrowed with from/to query
// parameters.
func (h *EventHandler) List(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var req dto.EventListRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid query parameters"))
		return
	}

	events, err := h.events.List(c.Request.Context(), claims.UserID, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, events)
}

// Create stores a new event or recurrence series.
func (h *EventHandler) Create(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var req dto.EventRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid request body"))
		return
	}

	created, err := h.events.Create(c.Request.Context(), claims.UserID, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, created)
}

// Update rewrites an existing event.
func (h *EventHandler) Update(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var req dto.EventRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid request body"))
		return
	}

	updated, err := h.events.Update(c.Request.Context(), claims.UserID, c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, updated)
}

// Delete removes an event; ?series=true removes the whole recurrence series.
func (h *EventHandler) Delete(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	series := c.Query("series") == "true"
	if err := h.events.Delete(c.Request.Context(), claims.UserID, c.Param("id"), series); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// ImportICS ingests an iCalendar payload as locked busy events.
func (h *EventHandler) ImportICS(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	payload, err := io.ReadAll(io.LimitReader(c.Request.Body, maxICSBytes))
	if err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "failed to read request body"))
		return
	}

	result, err := h.ics.Import(c.Request.Context(), claims.UserID, payload)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, result)
}
