package handlers

import (
	"net/http"
	"strings"

	"constructerp/internal/common"
	"constructerp/internal/models"
	"constructerp/internal/services"

	"github.com/labstack/echo/v4"
)

// CostCodeDivisionHandlers handles cost code division endpoints
type CostCodeDivisionHandlers struct {
	service services.DivisionImportService
}

// NewCostCodeDivisionHandlers creates a new cost code division handlers instance
func NewCostCodeDivisionHandlers(service services.DivisionImportService) *CostCodeDivisionHandlers {
	return &CostCodeDivisionHandlers{service: service}
}

// RegisterRoutes mounts the division routes on g.
func (h *CostCodeDivisionHandlers) RegisterRoutes(g *echo.Group) {
	g.GET("/cost-code-divisions", h.ListDivisions)
	g.POST("/cost-code-divisions/bulk", h.BulkImportDivisions)
}

// ListDivisions handles GET /cost-code-divisions?corporation_uuid=
func (h *CostCodeDivisionHandlers) ListDivisions(c echo.Context) error {
	corporationUUID := strings.TrimSpace(c.QueryParam("corporation_uuid"))
	if corporationUUID == "" {
		return common.SendValidationError(c, "corporation_uuid", "corporation_uuid is required")
	}

	divisions, err := h.service.List(c.Request().Context(), corporationUUID)
	if err != nil {
		return respondError(c, err, "list cost code divisions")
	}
	return c.JSON(http.StatusOK, map[string]interface{}{"data": divisions})
}

// BulkImportDivisions handles POST /cost-code-divisions/bulk
func (h *CostCodeDivisionHandlers) BulkImportDivisions(c echo.Context) error {
	var req models.DivisionBulkImport
	if err := c.Bind(&req); err != nil {
		return common.SendClientError(c, "Invalid request format")
	}

	result, err := h.service.Import(c.Request().Context(), &req)
	if err != nil {
		return respondError(c, err, "import cost code divisions")
	}
	return c.JSON(http.StatusOK, result)
}
