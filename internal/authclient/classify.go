package authclient

import (
	"context"
	"errors"
	"log/slog"
	"net"

	"github.com/SwissDataScienceCenter/shop-admin-gateway/internal/gwerrors"
	"github.com/SwissDataScienceCenter/shop-admin-gateway/internal/models"
	"github.com/SwissDataScienceCenter/shop-admin-gateway/internal/notify"
)

func (c *Client) statusError(req Request, res *rawResponse) *gwerrors.Error {
	apiErr := newAPIError(req, gwerrors.KindForStatus(res.status), nil)
	apiErr.Status = res.status
	apiErr.Body = models.ParseErrorBody(res.body)
	return apiErr
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

// transportFailure handles a call that did not get a response. When the caller's context is
// done its error is returned as is and nothing is reported.
func (c *Client) transportFailure(ctx context.Context, req Request, requestID string, authEndpoint bool, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		slog.Debug("AUTH CLIENT", "message", "request abandoned by the caller", "path", req.Path, "requestID", requestID, "error", ctxErr)
		return ctxErr
	}
	kind := gwerrors.KindNetworkUnreachable
	if isTimeout(err) {
		kind = gwerrors.KindTimeout
	}
	return c.fail(req, requestID, authEndpoint, newAPIError(req, kind, err))
}

// refreshFailure handles a request whose token could not be renewed. The forced logout and its
// toast have already been sent by the refresh.
func (c *Client) refreshFailure(ctx context.Context, req Request, res *rawResponse, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil && errors.Is(err, ctxErr) {
		return ctxErr
	}
	apiErr := c.statusError(req, res)
	apiErr.Kind = gwerrors.KindSessionExpired
	apiErr.Err = err
	c.metrics.observe(apiErr.Kind)
	return apiErr
}

func (c *Client) fail(req Request, requestID string, authEndpoint bool, apiErr *gwerrors.Error) error {
	c.metrics.observe(apiErr.Kind)
	slog.Info(
		"AUTH CLIENT",
		"message", "request failed",
		"method", req.Method,
		"path", req.Path,
		"status", apiErr.Status,
		"kind", apiErr.Kind,
		"requestID", requestID,
	)
	if authEndpoint {
		return apiErr
	}
	toast, found := c.toastFor(apiErr)
	if found {
		toast.Kind = string(apiErr.Kind)
		toast.Path = req.Path
		toast.RequestID = requestID
		c.notifier.Toast(toast)
	}
	return apiErr
}

// toastFor returns the toast reported for a failed request, false when the failure is not
// reported. Session expiry is reported together with the logout signal.
func (c *Client) toastFor(apiErr *gwerrors.Error) (notify.Toast, bool) {
	withFallback := func(message, fallback string) string {
		if message != "" {
			return message
		}
		return fallback
	}
	switch apiErr.Kind {
	case gwerrors.KindSessionExpired, gwerrors.KindConflict:
		return notify.Toast{}, false
	case gwerrors.KindAuthorizationDenied:
		return notify.Toast{Level: notify.LevelWarning, Message: c.catalog.NoPermission}, true
	case gwerrors.KindNotFound:
		return notify.Toast{Level: notify.LevelWarning, Message: withFallback(apiErr.ServerMessage(), c.catalog.NotFound)}, true
	case gwerrors.KindValidationFailed:
		message, _ := apiErr.Body.FirstFieldError()
		return notify.Toast{Level: notify.LevelWarning, Message: withFallback(message, c.catalog.ValidationFailed)}, true
	case gwerrors.KindBadRequest:
		return notify.Toast{Level: notify.LevelWarning, Message: withFallback(apiErr.ServerMessage(), c.catalog.BadRequest)}, true
	case gwerrors.KindServerFault:
		return notify.Toast{Level: notify.LevelError, Message: c.catalog.SystemError}, true
	case gwerrors.KindTimeout:
		return notify.Toast{Level: notify.LevelError, Message: c.catalog.ConnectionTimeout}, true
	case gwerrors.KindNetworkUnreachable:
		return notify.Toast{Level: notify.LevelError, Message: c.catalog.ConnectionLost}, true
	default:
		return notify.Toast{Level: notify.LevelError, Message: withFallback(apiErr.ServerMessage(), c.catalog.Unexpected)}, true
	}
}
