package models

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v4"
)

// Credentials is the access/refresh token pair issued by the shop API.
type Credentials struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken,omitempty"`
}

// String implements the Stringer interface for printing the credentials in logs
func (c Credentials) String() string {
	return fmt.Sprintf(
		"Credentials<AccessToken: %s, RefreshToken: %s>",
		redact(c.AccessToken),
		redact(c.RefreshToken),
	)
}

func (c Credentials) Empty() bool {
	return c.AccessToken == "" && c.RefreshToken == ""
}

// AccessTokenExpiry reads the exp claim of the access token. The signature is not verified,
// the shop API is the only party that validates the token. A zero time is returned when the
// token has no exp claim.
func (c Credentials) AccessTokenExpiry() (time.Time, error) {
	return TokenExpiry(c.AccessToken)
}

func TokenExpiry(token string) (time.Time, error) {
	if token == "" {
		return time.Time{}, fmt.Errorf("the token is empty")
	}
	claims := jwt.RegisteredClaims{}
	_, _, err := jwt.NewParser().ParseUnverified(token, &claims)
	if err != nil {
		return time.Time{}, err
	}
	if claims.ExpiresAt == nil {
		return time.Time{}, nil
	}
	return claims.ExpiresAt.Time, nil
}

// ExpiresSoon returns true when the access token is a JWT whose expiry falls within the margin.
// Opaque tokens and tokens without expiry never expire soon.
func (c Credentials) ExpiresSoon(margin time.Duration) bool {
	expiresAt, err := c.AccessTokenExpiry()
	if err != nil || expiresAt.IsZero() {
		return false
	}
	return time.Now().Add(margin).After(expiresAt)
}

func redact(value string) string {
	if value == "" {
		return "none"
	}
	return "redacted"
}
