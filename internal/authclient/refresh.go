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

type refreshRequest struct {
	RefreshToken string `json:"refreshToken"`
}

// refreshCredentials renews the credential pair, it is only called by the coordinator.
// It is not cancelled with the request that triggered it, only the refresh timeout applies.
// Any failure clears the credentials and forces a logout.
func (c *Client) refreshCredentials(ctx context.Context) (string, error) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.refreshTimeout)
	defer cancel()

	refreshToken, err := c.credentials.RefreshToken(ctx)
	if err != nil {
		c.metrics.refreshes.WithLabelValues("error").Inc()
		c.forceLogout(ctx, notify.LogoutReasonRefreshFailed)
		return "", fmt.Errorf("%w: cannot read the refresh token: %w", gwerrors.ErrRefreshFailed, err)
	}
	if refreshToken == "" {
		slog.Info("AUTH CLIENT", "message", "no refresh token stored, signing out")
		c.metrics.refreshes.WithLabelValues("missing").Inc()
		c.forceLogout(ctx, notify.LogoutReasonSessionExpired)
		return "", gwerrors.ErrRefreshTokenMissing
	}

	creds, err := c.callRefresh(ctx, refreshToken)
	if err != nil {
		slog.Info("AUTH CLIENT", "message", "refreshing the access token failed, signing out", "error", err)
		c.metrics.refreshes.WithLabelValues("failure").Inc()
		c.forceLogout(ctx, notify.LogoutReasonRefreshFailed)
		return "", fmt.Errorf("%w: %w", gwerrors.ErrRefreshFailed, err)
	}
	err = c.credentials.Save(ctx, creds)
	if err != nil {
		c.metrics.refreshes.WithLabelValues("error").Inc()
		c.forceLogout(ctx, notify.LogoutReasonRefreshFailed)
		return "", fmt.Errorf("%w: cannot save the new credentials: %w", gwerrors.ErrRefreshFailed, err)
	}
	c.metrics.refreshes.WithLabelValues("success").Inc()
	slog.Debug("AUTH CLIENT", "message", "access token refreshed", "credentials", creds)
	return creds.AccessToken, nil
}

func (c *Client) callRefresh(ctx context.Context, refreshToken string) (models.Credentials, error) {
	req := Request{Method: http.MethodPost, Path: c.refreshPath}
	body, err := encodeBody(refreshRequest{RefreshToken: refreshToken})
	if err != nil {
		return models.Credentials{}, err
	}
	res, err := c.send(ctx, req, body, "", c.requestID())
	if err != nil {
		return models.Credentials{}, err
	}
	if !res.successful() {
		return models.Credentials{}, c.statusError(req, res)
	}
	payload, err := models.UnwrapPayload(res.body)
	if err != nil {
		return models.Credentials{}, err
	}
	creds := models.Credentials{}
	err = (&Response{Payload: payload}).Decode(&creds)
	if err != nil {
		return models.Credentials{}, fmt.Errorf("cannot decode the refresh response: %w", err)
	}
	if creds.AccessToken == "" {
		return models.Credentials{}, fmt.Errorf("the refresh response does not contain an access token")
	}
	return creds, nil
}

// RefreshNow renews the access token ahead of its expiry, joining the refresh in flight if any.
func (c *Client) RefreshNow(ctx context.Context) error {
	_, err := c.coordinator.Refresh(ctx)
	return err
}

// forceLogout clears the credentials and sends the session expired toast and logout signal.
// The signal is sent once until the next login.
func (c *Client) forceLogout(ctx context.Context, reason string) {
	if err := c.credentials.Clear(context.WithoutCancel(ctx)); err != nil {
		slog.Error("AUTH CLIENT", "message", "cannot clear the credentials", "error", err)
	}
	if !c.loggedOut.CompareAndSwap(false, true) {
		return
	}
	c.metrics.forcedLogouts.Inc()
	slog.Info("AUTH CLIENT", "message", "forcing logout", "reason", reason)
	c.notifier.Toast(notify.Toast{
		Level:   notify.LevelWarning,
		Message: c.catalog.SessionExpired,
		Kind:    string(gwerrors.KindSessionExpired),
	})
	c.notifier.Logout(reason)
}
