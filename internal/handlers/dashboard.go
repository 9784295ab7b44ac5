package handlers

import (
	"stagepay/internal/services/dashboard"
	"stagepay/internal/utils"

	"github.com/gofiber/fiber/v2"
)

type DashboardHandler struct {
	dashboardService dashboard.Service
}

func NewDashboardHandler(dashboardService dashboard.Service) *DashboardHandler {
	return &DashboardHandler{
		dashboardService: dashboardService,
	}
}

// GetCreatorSummary returns the caller's earnings rollup from the ledger.
func (h *DashboardHandler) GetCreatorSummary(c *fiber.Ctx) error {
	claims, err := extractUserClaims(c)
	if err != nil {
		return utils.Unauthorized(c, "invalid claims")
	}

	summary, err := h.dashboardService.GetCreatorSummary(c.Context(), claims.UserID)
	if err != nil {
		return utils.InternalError(c, "Failed to build dashboard")
	}

	return utils.Success(c, fiber.Map{"dashboard": summary})
}
