package handlers

import (
	"net/http"
	"strconv"
	"strings"

	"constructerp/internal/common"
	"constructerp/internal/models"
	"constructerp/internal/services"

	"github.com/labstack/echo/v4"
)

// VendorInvoiceHandlers handles HTTP requests for vendor invoices
type VendorInvoiceHandlers struct {
	service services.VendorInvoiceService
}

// NewVendorInvoiceHandlers creates a new vendor invoice handlers instance
func NewVendorInvoiceHandlers(service services.VendorInvoiceService) *VendorInvoiceHandlers {
	return &VendorInvoiceHandlers{service: service}
}

// Pagination is the list response's paging block.
type Pagination struct {
	Page       int `json:"page"`
	PageSize   int `json:"page_size"`
	Total      int `json:"total"`
	TotalPages int `json:"total_pages"`
}

// VendorInvoiceListResponse is the body of a list request.
type VendorInvoiceListResponse struct {
	Data       []*models.VendorInvoice `json:"data"`
	Pagination Pagination              `json:"pagination"`
}

// RegisterRoutes mounts the vendor invoice routes on g.
func (h *VendorInvoiceHandlers) RegisterRoutes(g *echo.Group) {
	g.GET("/vendor-invoices", h.ListVendorInvoices)
	g.GET("/vendor-invoices/:uuid", h.GetVendorInvoice)
	g.POST("/vendor-invoices", h.CreateVendorInvoice)
	g.PUT("/vendor-invoices", h.UpdateVendorInvoice)
	g.PUT("/vendor-invoices/:uuid", h.UpdateVendorInvoice)
	g.DELETE("/vendor-invoices", h.DeleteVendorInvoice)
	g.DELETE("/vendor-invoices/:uuid", h.DeleteVendorInvoice)
}

// ListVendorInvoices handles GET /vendor-invoices. With ?uuid= it returns that single invoice.
func (h *VendorInvoiceHandlers) ListVendorInvoices(c echo.Context) error {
	if id := strings.TrimSpace(c.QueryParam("uuid")); id != "" {
		return h.getOne(c, id)
	}

	corporationUUID := strings.TrimSpace(c.QueryParam("corporation_uuid"))
	if corporationUUID == "" {
		return common.SendValidationError(c, "corporation_uuid", "corporation_uuid is required")
	}
	page, err := intQueryParam(c, "page")
	if err != nil {
		return common.SendValidationError(c, "page", "page must be an integer")
	}
	pageSize, err := intQueryParam(c, "page_size")
	if err != nil {
		return common.SendValidationError(c, "page_size", "page_size must be an integer")
	}

	result, err := h.service.List(c.Request().Context(), corporationUUID, page, pageSize)
	if err != nil {
		return respondError(c, err, "list vendor invoices")
	}

	totalPages := 0
	if result.PageSize > 0 {
		totalPages = (result.Total + result.PageSize - 1) / result.PageSize
	}
	return c.JSON(http.StatusOK, VendorInvoiceListResponse{
		Data: result.Invoices,
		Pagination: Pagination{
			Page:       result.Page,
			PageSize:   result.PageSize,
			Total:      result.Total,
			TotalPages: totalPages,
		},
	})
}

// GetVendorInvoice handles GET /vendor-invoices/:uuid
func (h *VendorInvoiceHandlers) GetVendorInvoice(c echo.Context) error {
	return h.getOne(c, strings.TrimSpace(c.Param("uuid")))
}

func (h *VendorInvoiceHandlers) getOne(c echo.Context, id string) error {
	detail, err := h.service.Get(c.Request().Context(), id)
	if err != nil {
		return respondError(c, err, "get vendor invoice")
	}
	return c.JSON(http.StatusOK, detail)
}

// CreateVendorInvoice handles POST /vendor-invoices
func (h *VendorInvoiceHandlers) CreateVendorInvoice(c echo.Context) error {
	payload, err := bindPayload(c)
	if err != nil {
		return common.SendClientError(c, "Invalid request format")
	}

	result, err := h.service.Create(c.Request().Context(), payload)
	if err != nil {
		return respondError(c, err, "create vendor invoice")
	}
	return c.JSON(http.StatusCreated, result.Invoice)
}

// UpdateVendorInvoice handles PUT /vendor-invoices and PUT /vendor-invoices/:uuid
func (h *VendorInvoiceHandlers) UpdateVendorInvoice(c echo.Context) error {
	payload, err := bindPayload(c)
	if err != nil {
		return common.SendClientError(c, "Invalid request format")
	}

	id := strings.TrimSpace(c.Param("uuid"))
	if id == "" {
		id = common.StringValue(payload["uuid"])
	}
	if id == "" {
		id = strings.TrimSpace(c.QueryParam("uuid"))
	}
	if id == "" {
		return common.SendValidationError(c, "uuid", "uuid is required")
	}
	delete(payload, "uuid")

	result, err := h.service.Update(c.Request().Context(), id, payload)
	if err != nil {
		return respondError(c, err, "update vendor invoice")
	}
	return c.JSON(http.StatusOK, result.Invoice)
}

// DeleteVendorInvoice handles DELETE /vendor-invoices?uuid= and DELETE /vendor-invoices/:uuid
func (h *VendorInvoiceHandlers) DeleteVendorInvoice(c echo.Context) error {
	id := strings.TrimSpace(c.Param("uuid"))
	if id == "" {
		id = strings.TrimSpace(c.QueryParam("uuid"))
	}
	if id == "" {
		return common.SendValidationError(c, "uuid", "uuid is required")
	}

	if _, err := h.service.Delete(c.Request().Context(), id); err != nil {
		return respondError(c, err, "delete vendor invoice")
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"uuid":    id,
		"deleted": true,
	})
}

// bindPayload decodes the request body only; path and query values never leak into the payload.
func bindPayload(c echo.Context) (map[string]interface{}, error) {
	payload := map[string]interface{}{}
	if err := (&echo.DefaultBinder{}).BindBody(c, &payload); err != nil {
		return nil, err
	}
	return payload, nil
}

func intQueryParam(c echo.Context, name string) (int, error) {
	raw := strings.TrimSpace(c.QueryParam(name))
	if raw == "" {
		return 0, nil
	}
	return strconv.Atoi(raw)
}
