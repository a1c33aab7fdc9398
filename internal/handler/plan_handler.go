package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/kantikoala/planner-api/internal/dto"
	appErrors "github.com/kantikoala/planner-api/pkg/errors"
	"github.com/kantikoala/planner-api/pkg/response"
)

type plannerService interface {
	Run(ctx context.Context, userID string) (*dto.PlanReport, error)
	LatestReport(ctx context.Context, userID string) (*dto.PlanReport, error)
}

type exportService interface {
	StudyPlanPDF(ctx context.Context, userID string) ([]byte, error)
	StudyPlanCSV(ctx context.Context, userID string) ([]byte, error)
}

// PlanHandler exposes the scheduling run and report endpoints.
type PlanHandler struct {
	planner plannerService
	export  exportService
}

// NewPlanHandler constructs the handler.
func NewPlanHandler(planner plannerService, export exportService) *PlanHandler {
	return &PlanHandler{planner: planner, export: export}
}

// Run executes the learning-time algorithm for the authenticated user.
func (h *PlanHandler) Run(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	report, err := h.planner.Run(c.Request.Context(), claims.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, report)
}

// Report returns the cached outcome of the last run.
func (h *PlanHandler) Report(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	report, err := h.planner.LatestReport(c.Request.Context(), claims.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, report)
}

// Export renders the upcoming study plan; ?format=csv switches from the
// default PDF output.
func (h *PlanHandler) Export(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	if c.Query("format") == "csv" {
		payload, err := h.export.StudyPlanCSV(c.Request.Context(), claims.UserID)
		if err != nil {
			response.Error(c, err)
			return
		}
		c.Header("Content-Disposition", `attachment; filename="study-plan.csv"`)
		c.Data(http.StatusOK, "text/csv", payload)
		return
	}

	payload, err := h.export.StudyPlanPDF(c.Request.Context(), claims.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}
	c.Header("Content-Disposition", `attachment; filename="study-plan.pdf"`)
	c.Data(http.StatusOK, "application/pdf", payload)
}
