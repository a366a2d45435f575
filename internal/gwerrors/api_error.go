package gwerrors

import (
	"fmt"
	"net/http"

	"github.com/SwissDataScienceCenter/shop-admin-gateway/internal/models"
)

type Kind string

const (
	KindSessionExpired      Kind = "SessionExpired"
	KindAuthorizationDenied Kind = "AuthorizationDenied"
	KindNotFound            Kind = "NotFound"
	KindConflict            Kind = "Conflict"
	KindValidationFailed    Kind = "ValidationFailed"
	KindBadRequest          Kind = "BadRequest"
	KindServerFault         Kind = "ServerFault"
	KindTimeout             Kind = "Timeout"
	KindNetworkUnreachable  Kind = "NetworkUnreachable"
	KindUnexpectedStatus    Kind = "UnexpectedStatus"
)

var kindSentinels = map[Kind]error{
	KindSessionExpired:      ErrSessionExpired,
	KindAuthorizationDenied: ErrAuthorizationDenied,
	KindNotFound:            ErrNotFound,
	KindConflict:            ErrConflict,
	KindValidationFailed:    ErrValidationFailed,
	KindBadRequest:          ErrBadRequest,
	KindServerFault:         ErrServerFault,
	KindTimeout:             ErrTimeout,
	KindNetworkUnreachable:  ErrNetworkUnreachable,
	KindUnexpectedStatus:    ErrUnexpectedStatus,
}

// Error is a classified failure of a call to the shop API.
// errors.Is matches it against the sentinel of its kind, e.g. ErrNotFound.
type Error struct {
	Kind   Kind
	Status int
	Method string
	Path   string
	Body   models.ErrorBody
	Err    error
}

func (e *Error) Error() string {
	msg := fmt.Sprintf("%s %s: %s", e.Method, e.Path, e.Kind)
	if e.Status != 0 {
		msg += fmt.Sprintf(" (status %d)", e.Status)
	}
	if e.Body.Message != "" {
		msg += ": " + e.Body.Message
	} else if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

func (e *Error) Is(target error) bool {
	sentinel, found := kindSentinels[e.Kind]
	return found && sentinel == target
}

// ServerMessage returns the message sent by the server, if any.
func (e *Error) ServerMessage() string {
	return e.Body.Message
}

// KindForStatus maps a final (non-retried) HTTP status to a Kind.
func KindForStatus(status int) Kind {
	switch {
	case status == http.StatusUnauthorized:
		return KindSessionExpired
	case status == http.StatusForbidden:
		return KindAuthorizationDenied
	case status == http.StatusNotFound:
		return KindNotFound
	case status == http.StatusConflict:
		return KindConflict
	case status == http.StatusUnprocessableEntity:
		return KindValidationFailed
	case status == http.StatusBadRequest:
		return KindBadRequest
	case status >= 500:
		return KindServerFault
	default:
		return KindUnexpectedStatus
	}
}

// HTTPStatus is the status the gateway answers with when it relays the error to the dashboard.
func (e *Error) HTTPStatus() int {
	switch e.Kind {
	case KindTimeout:
		return http.StatusGatewayTimeout
	case KindNetworkUnreachable:
		return http.StatusBadGateway
	}
	if e.Status != 0 {
		return e.Status
	}
	return http.StatusInternalServerError
}
