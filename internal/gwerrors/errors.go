// Package gwerrors contains all common errors used by the gateway.
package gwerrors

import "fmt"

var ErrTokenNotFound = fmt.Errorf("the token cannot be found")
var ErrMissingDBResource = fmt.Errorf("the requested resource cannot be found in the DB")
var ErrMissingCredentials = fmt.Errorf("the required credentials cannot be found")
var ErrRefreshTokenMissing = fmt.Errorf("there is no refresh token stored")
var ErrRefreshFailed = fmt.Errorf("refreshing the access token failed")

// Kinds of failed API calls, see Kind
var ErrSessionExpired = fmt.Errorf("the session is expired")
var ErrAuthorizationDenied = fmt.Errorf("the user does not have permission")
var ErrNotFound = fmt.Errorf("the requested resource cannot be found")
var ErrConflict = fmt.Errorf("the request conflicts with the current state of the resource")
var ErrValidationFailed = fmt.Errorf("the request failed validation")
var ErrBadRequest = fmt.Errorf("the request is invalid")
var ErrServerFault = fmt.Errorf("the server failed to handle the request")
var ErrTimeout = fmt.Errorf("the request timed out")
var ErrNetworkUnreachable = fmt.Errorf("no response was received")
var ErrUnexpectedStatus = fmt.Errorf("the server responded with an unexpected status")
