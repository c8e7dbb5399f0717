package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/yukikurage/project-board-api/internal/services"
)

// DashboardHandler serves project summaries.
type DashboardHandler struct {
	dashboardService *services.DashboardService
}

func NewDashboardHandler(dashboardService *services.DashboardService) *DashboardHandler {
	return &DashboardHandler{dashboardService: dashboardService}
}

// GetDashboard returns task, card, note and link counts for the project.
func (h *DashboardHandler) GetDashboard(c *gin.Context) {
	pid, ok := projectID(c)
	if !ok {
		return
	}

	dashboard, err := h.dashboardService.GetDashboard(c.Request.Context(), pid)
	if err != nil {
		internalError(c, err)
		return
	}

	c.JSON(http.StatusOK, dashboard)
}
