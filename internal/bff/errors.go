package bff

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/SwissDataScienceCenter/shop-admin-gateway/internal/gwerrors"
	"github.com/SwissDataScienceCenter/shop-admin-gateway/internal/models"
	"github.com/SwissDataScienceCenter/shop-admin-gateway/internal/utils"
	"github.com/labstack/echo/v4"
)

// statusClientClosedRequest is answered when the dashboard went away before the shop API answered
const statusClientClosedRequest int = 499

type errorResponse struct {
	Kind        gwerrors.Kind       `json:"kind"`
	Message     string              `json:"message,omitempty"`
	FieldErrors []models.FieldError `json:"fieldErrors,omitempty"`
}

// ErrorHandler relays classified shop API errors to the dashboard, other errors go to the
// fallback handler.
func ErrorHandler(fallback echo.HTTPErrorHandler) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}
		var apiErr *gwerrors.Error
		switch {
		case errors.As(err, &apiErr):
			slog.Debug(
				"BFF",
				"message", "relaying shop API error",
				"kind", apiErr.Kind,
				"status", apiErr.Status,
				"requestID", utils.GetRequestID(c),
				"traceID", utils.GetTraceID(c),
			)
			body := errorResponse{Kind: apiErr.Kind, Message: apiErr.ServerMessage(), FieldErrors: apiErr.Body.FieldErrors}
			if err := c.JSON(apiErr.HTTPStatus(), body); err != nil {
				slog.Error("BFF", "message", "cannot send the error response", "error", err)
			}
		case errors.Is(err, context.Canceled):
			if err := c.NoContent(statusClientClosedRequest); err != nil {
				slog.Error("BFF", "message", "cannot send the error response", "error", err)
			}
		default:
			fallback(err, c)
		}
	}
}

func badRequest(err error) error {
	return echo.NewHTTPError(http.StatusBadRequest, err.Error())
}
