package authclient

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/SwissDataScienceCenter/shop-admin-gateway/internal/gwerrors"
	"github.com/SwissDataScienceCenter/shop-admin-gateway/internal/models"
	"github.com/SwissDataScienceCenter/shop-admin-gateway/internal/notify"
)

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type otpRequest struct {
	Email string `json:"email"`
	Code  string `json:"code"`
}

type logoutRequest struct {
	RefreshToken string `json:"refreshToken,omitempty"`
}

type sessionResponse struct {
	AccessToken  string       `json:"accessToken"`
	RefreshToken string       `json:"refreshToken"`
	OTPRequired  bool         `json:"otpRequired"`
	User         *models.User `json:"user"`
}

// LoginResult tells whether a one time password is still needed to complete the sign in.
type LoginResult struct {
	OTPRequired bool
	User        *models.User
}

// Login signs in with email and password. When the shop API asks for a one time password
// no credentials are stored and VerifyOTP completes the sign in.
func (c *Client) Login(ctx context.Context, email string, password string) (LoginResult, error) {
	res, err := c.Do(ctx, Request{Method: http.MethodPost, Path: c.loginPath, Body: loginRequest{Email: email, Password: password}})
	if err != nil {
		return LoginResult{}, err
	}
	return c.startSession(ctx, res)
}

func (c *Client) VerifyOTP(ctx context.Context, email string, code string) (LoginResult, error) {
	res, err := c.Do(ctx, Request{Method: http.MethodPost, Path: c.otpPath, Body: otpRequest{Email: email, Code: code}})
	if err != nil {
		return LoginResult{}, err
	}
	result, err := c.startSession(ctx, res)
	if err != nil {
		return LoginResult{}, err
	}
	if result.OTPRequired {
		return LoginResult{}, fmt.Errorf("the one time password was not accepted: %w", gwerrors.ErrMissingCredentials)
	}
	return result, nil
}

func (c *Client) startSession(ctx context.Context, res *Response) (LoginResult, error) {
	session := sessionResponse{}
	if err := res.Decode(&session); err != nil {
		return LoginResult{}, fmt.Errorf("cannot decode the login response: %w", err)
	}
	if session.OTPRequired {
		return LoginResult{OTPRequired: true}, nil
	}
	if session.AccessToken == "" {
		return LoginResult{}, fmt.Errorf("the login response does not contain an access token: %w", gwerrors.ErrMissingCredentials)
	}
	err := c.credentials.Save(ctx, models.Credentials{AccessToken: session.AccessToken, RefreshToken: session.RefreshToken})
	if err != nil {
		return LoginResult{}, err
	}
	c.loggedOut.Store(false)
	slog.Info("AUTH CLIENT", "message", "signed in", "requestID", res.RequestID)
	return LoginResult{User: session.User}, nil
}

// Logout revokes the session on the shop API when possible, clears the credentials and sends
// the logout signal.
func (c *Client) Logout(ctx context.Context) error {
	refreshToken, err := c.credentials.RefreshToken(ctx)
	if err != nil {
		slog.Warn("AUTH CLIENT", "message", "cannot read the refresh token for logout", "error", err)
	}
	_, err = c.Do(ctx, Request{Method: http.MethodPost, Path: c.logoutPath, Body: logoutRequest{RefreshToken: refreshToken}})
	if err != nil {
		slog.Warn("AUTH CLIENT", "message", "revoking the session failed", "error", err)
	}
	err = c.credentials.Clear(context.WithoutCancel(ctx))
	c.loggedOut.Store(true)
	c.notifier.Logout(notify.LogoutReasonUser)
	return err
}
