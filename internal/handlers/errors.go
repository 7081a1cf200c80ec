package handlers

import (
	"errors"
	"net/http"

	"constructerp/internal/common"
	"constructerp/internal/logger"
	"constructerp/internal/services"

	"github.com/labstack/echo/v4"
)

// respondError maps service errors onto the JSON error envelope.
func respondError(c echo.Context, err error, action string) error {
	var verr *services.ValidationError
	switch {
	case errors.As(err, &verr):
		return common.SendValidationError(c, verr.Field, verr.Error())
	case errors.Is(err, services.ErrInvoiceNotFound):
		return common.SendNotFoundError(c, "vendor invoice")
	}

	log := logger.FromContext(c.Request().Context())
	log.Error().Err(err).Str("action", action).Msg("request failed")
	return common.SendServerError(c, "Failed to "+action+": "+err.Error())
}

// HTTPErrorHandler renders router and middleware errors in the same envelope as handler errors.
func HTTPErrorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}

	var herr *echo.HTTPError
	if !errors.As(err, &herr) {
		_ = respondError(c, err, "handle request")
		return
	}

	var sendErr error
	switch herr.Code {
	case http.StatusMethodNotAllowed:
		sendErr = common.SendMethodNotAllowedError(c)
	case http.StatusNotFound:
		sendErr = common.SendNotFoundError(c, "route")
	default:
		code := "HTTP_ERROR"
		if herr.Code >= http.StatusInternalServerError {
			code = "SERVER_ERROR"
		}
		sendErr = c.JSON(herr.Code, common.CreateErrorResponse(code, http.StatusText(herr.Code), nil))
	}
	if sendErr != nil {
		logger.FromContext(c.Request().Context()).Error().Err(sendErr).Msg("failed to write error response")
	}
}
