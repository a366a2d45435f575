// Package tokenrefresher renews the access token of the signed in operator shortly before it expires,
// so that most requests never see a 401.
package tokenrefresher

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/SwissDataScienceCenter/shop-admin-gateway/internal/config"
	"github.com/SwissDataScienceCenter/shop-admin-gateway/internal/models"
	"github.com/go-co-op/gocron"
)

type CredentialsGetter interface {
	Credentials(ctx context.Context) (models.Credentials, error)
}

// Refresher renews the access token, joining a refresh already in flight.
type Refresher interface {
	RefreshNow(ctx context.Context) error
}

type TokenRefresher struct {
	interval     time.Duration
	expiryMargin time.Duration
	credentials  CredentialsGetter
	refresher    Refresher
}

func (tr *TokenRefresher) GetScheduler() (*gocron.Scheduler, error) {
	s := gocron.NewScheduler(time.UTC)

	refreshExpiringTokenTask := func(job gocron.Job) {
		_, err := tr.refreshExpiringToken(job.Context())
		if err != nil {
			slog.Error("TOKEN REFRESHER", "message", "refreshExpiringToken failed", "error", err)
		}
	}

	_, err := s.Every(tr.interval).
		DoWithJobDetails(refreshExpiringTokenTask)
	if err != nil {
		return nil, err
	}
	return s, nil
}

// refreshExpiringToken returns true when a refresh was triggered.
func (tr *TokenRefresher) refreshExpiringToken(ctx context.Context) (bool, error) {
	creds, err := tr.credentials.Credentials(ctx)
	if err != nil {
		return false, err
	}
	if creds.Empty() {
		slog.Debug("TOKEN REFRESHER", "message", "nobody is signed in, skipping")
		return false, nil
	}
	if creds.AccessToken == "" || creds.RefreshToken == "" {
		return false, nil
	}
	if !creds.ExpiresSoon(tr.expiryMargin) {
		return false, nil
	}
	expiresAt, _ := creds.AccessTokenExpiry()
	slog.Info("TOKEN REFRESHER", "message", "access token expires soon, refreshing", "expiresAt", expiresAt)
	return true, tr.refresher.RefreshNow(ctx)
}

type TokenRefresherOption func(*TokenRefresher)

func WithConfig(refresherConfig config.RefresherConfig) TokenRefresherOption {
	return func(tr *TokenRefresher) {
		tr.interval = refresherConfig.Interval
		tr.expiryMargin = refresherConfig.ExpiryMargin
	}
}

func WithCredentialsGetter(credentials CredentialsGetter) TokenRefresherOption {
	return func(tr *TokenRefresher) {
		tr.credentials = credentials
	}
}

func WithRefresher(refresher Refresher) TokenRefresherOption {
	return func(tr *TokenRefresher) {
		tr.refresher = refresher
	}
}

func NewTokenRefresher(options ...TokenRefresherOption) (*TokenRefresher, error) {
	tr := TokenRefresher{interval: time.Minute, expiryMargin: 3 * time.Minute}
	for _, opt := range options {
		opt(&tr)
	}
	if tr.credentials == nil {
		return &TokenRefresher{}, fmt.Errorf("credentials getter is not initialized")
	}
	if tr.refresher == nil {
		return &TokenRefresher{}, fmt.Errorf("refresher is not initialized")
	}
	if tr.interval <= 0 {
		return &TokenRefresher{}, fmt.Errorf("the refresh interval needs to be greater than 0")
	}
	return &tr, nil
}
