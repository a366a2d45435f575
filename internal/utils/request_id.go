package utils

import "github.com/labstack/echo/v4"

// GetRequestID returns the id set by the request id middleware.
func GetRequestID(c echo.Context) string {
	return c.Response().Header().Get(echo.HeaderXRequestID)
}
