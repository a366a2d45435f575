// Package credentials keeps the credential pair of the signed in operator.
// The access token lives in a cookie for the shop API origin, so that it is sent along and can be
// read by server side rendering, with a copy in the encrypted secret repository. The refresh token
// only lives in the encrypted secret repository.
package credentials

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"sync"
	"time"

	"github.com/SwissDataScienceCenter/shop-admin-gateway/internal/gwerrors"
	"github.com/SwissDataScienceCenter/shop-admin-gateway/internal/models"
	"golang.org/x/net/publicsuffix"
)

const (
	accessTokenKey  string = "accessToken"
	refreshTokenKey string = "refreshToken"
)

type Store struct {
	lock       sync.RWMutex
	jar        *cookiejar.Jar
	apiURL     *url.URL
	cookieName string
	secrets    models.SecretRepository
}

// Jar is the cookie jar holding the access token cookie, it should be used by the http client
// talking to the shop API.
func (s *Store) Jar() http.CookieJar {
	return s.jar
}

func (s *Store) cookieAccessToken() string {
	for _, cookie := range s.jar.Cookies(s.apiURL) {
		if cookie.Name == s.cookieName {
			return cookie.Value
		}
	}
	return ""
}

func (s *Store) getSecret(ctx context.Context, key string) (string, error) {
	value, err := s.secrets.GetSecret(ctx, key)
	if errors.Is(err, gwerrors.ErrTokenNotFound) {
		return "", nil
	}
	return value, err
}

// AccessToken returns the access token from the cookie, falling back to the encrypted store.
// An empty string is returned when no token is stored.
func (s *Store) AccessToken(ctx context.Context) (string, error) {
	s.lock.RLock()
	defer s.lock.RUnlock()
	if token := s.cookieAccessToken(); token != "" {
		return token, nil
	}
	return s.getSecret(ctx, accessTokenKey)
}

// RefreshToken returns the refresh token or an empty string when none is stored.
func (s *Store) RefreshToken(ctx context.Context) (string, error) {
	s.lock.RLock()
	defer s.lock.RUnlock()
	return s.getSecret(ctx, refreshTokenKey)
}

func (s *Store) Credentials(ctx context.Context) (models.Credentials, error) {
	accessToken, err := s.AccessToken(ctx)
	if err != nil {
		return models.Credentials{}, err
	}
	refreshToken, err := s.RefreshToken(ctx)
	if err != nil {
		return models.Credentials{}, err
	}
	return models.Credentials{AccessToken: accessToken, RefreshToken: refreshToken}, nil
}

func (s *Store) accessTokenCookie(value string) *http.Cookie {
	return &http.Cookie{
		Name:     s.cookieName,
		Value:    value,
		Path:     "/",
		SameSite: http.SameSiteLaxMode,
		Secure:   s.apiURL.Scheme == "https",
	}
}

// Save persists a new credential pair. When the pair has no refresh token the stored one is kept,
// the shop API does not always rotate it.
func (s *Store) Save(ctx context.Context, creds models.Credentials) error {
	if creds.AccessToken == "" {
		return fmt.Errorf("cannot save credentials without an access token: %w", gwerrors.ErrMissingCredentials)
	}
	s.lock.Lock()
	defer s.lock.Unlock()
	cookie := s.accessTokenCookie(creds.AccessToken)
	expiresAt, err := creds.AccessTokenExpiry()
	if err != nil {
		expiresAt = time.Time{}
	}
	if !expiresAt.IsZero() {
		cookie.Expires = expiresAt
	}
	s.jar.SetCookies(s.apiURL, []*http.Cookie{cookie})
	// the previous access token may carry an expiry that does not apply to the new one
	err = s.secrets.RemoveSecret(ctx, accessTokenKey)
	if err != nil {
		return err
	}
	err = s.secrets.SetSecret(ctx, accessTokenKey, creds.AccessToken)
	if err != nil {
		return err
	}
	err = s.secrets.SetSecretExpiry(ctx, accessTokenKey, expiresAt)
	if err != nil {
		return err
	}
	if creds.RefreshToken != "" {
		err = s.secrets.SetSecret(ctx, refreshTokenKey, creds.RefreshToken)
		if err != nil {
			return err
		}
	}
	slog.Debug("CREDENTIALS", "message", "saved credentials", "credentials", creds)
	return nil
}

// Clear expires the access token cookie and removes both tokens from the encrypted store.
func (s *Store) Clear(ctx context.Context) error {
	s.lock.Lock()
	defer s.lock.Unlock()
	cookie := s.accessTokenCookie("")
	cookie.MaxAge = -1
	cookie.Expires = time.Unix(0, 0)
	s.jar.SetCookies(s.apiURL, []*http.Cookie{cookie})
	slog.Debug("CREDENTIALS", "message", "cleared credentials")
	return s.secrets.RemoveSecret(ctx, accessTokenKey, refreshTokenKey)
}

type StoreOption func(*Store) error

func WithAPIURL(apiURL *url.URL) StoreOption {
	return func(s *Store) error {
		s.apiURL = apiURL
		return nil
	}
}

func WithCookieName(name string) StoreOption {
	return func(s *Store) error {
		s.cookieName = name
		return nil
	}
}

func WithSecretRepository(repo models.SecretRepository) StoreOption {
	return func(s *Store) error {
		s.secrets = repo
		return nil
	}
}

func NewStore(options ...StoreOption) (*Store, error) {
	jar, err := cookiejar.New(&cookiejar.Options{PublicSuffixList: publicsuffix.List})
	if err != nil {
		return &Store{}, err
	}
	store := Store{jar: jar, cookieName: "access_token"}
	for _, opt := range options {
		err := opt(&store)
		if err != nil {
			return &Store{}, err
		}
	}
	if store.apiURL == nil {
		return &Store{}, fmt.Errorf("the shop API url is not set")
	}
	if store.cookieName == "" {
		return &Store{}, fmt.Errorf("the access token cookie name cannot be empty")
	}
	if store.secrets == nil {
		return &Store{}, fmt.Errorf("secret repository is not initialized")
	}
	return &store, nil
}
