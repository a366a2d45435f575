package credentials

import (
	"context"
	"net/http"
	"net/url"
	"testing"
	"time"

	"github.com/SwissDataScienceCenter/shop-admin-gateway/internal/db"
	"github.com/SwissDataScienceCenter/shop-admin-gateway/internal/models"
	"github.com/golang-jwt/jwt/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T, apiURL string) (*Store, *db.RedisAdapter) {
	parsed, err := url.Parse(apiURL)
	require.NoError(t, err)
	adapter, err := db.NewRedisAdapter(
		db.WithRedisClient(db.NewMockRedisClient()),
		db.WithEncryption("1b195c6329ba7df1c1adf6975c71910d"),
		db.WithKeyPrefix("test"),
	)
	require.NoError(t, err)
	store, err := NewStore(WithAPIURL(parsed), WithCookieName("access_token"), WithSecretRepository(adapter))
	require.NoError(t, err)
	return store, adapter
}

func signedToken(t *testing.T, expiresAt time.Time) string {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{ExpiresAt: jwt.NewNumericDate(expiresAt)})
	signed, err := token.SignedString([]byte("test-signing-key"))
	require.NoError(t, err)
	return signed
}

func TestNewStoreValidation(t *testing.T) {
	_, err := NewStore()
	assert.ErrorContains(t, err, "url is not set")

	apiURL, _ := url.Parse("https://shop.example.com")
	_, err = NewStore(WithAPIURL(apiURL))
	assert.ErrorContains(t, err, "secret repository")

	_, err = NewStore(WithAPIURL(apiURL), WithCookieName(""), WithSecretRepository(&db.RedisAdapter{}))
	assert.ErrorContains(t, err, "cookie name")
}

func TestEmptyStore(t *testing.T) {
	ctx := context.Background()
	store, _ := newTestStore(t, "http://shop.example.com")

	creds, err := store.Credentials(ctx)

	require.NoError(t, err)
	assert.True(t, creds.Empty())
}

func TestSaveAndRead(t *testing.T) {
	ctx := context.Background()
	store, _ := newTestStore(t, "http://shop.example.com")

	err := store.Save(ctx, models.Credentials{AccessToken: "access-1", RefreshToken: "refresh-1"})
	require.NoError(t, err)

	creds, err := store.Credentials(ctx)
	require.NoError(t, err)
	assert.Equal(t, models.Credentials{AccessToken: "access-1", RefreshToken: "refresh-1"}, creds)
}

func TestSaveWithoutAccessToken(t *testing.T) {
	store, _ := newTestStore(t, "http://shop.example.com")

	err := store.Save(context.Background(), models.Credentials{RefreshToken: "refresh-1"})

	assert.Error(t, err)
}

func TestSaveKeepsRefreshTokenWhenNotRotated(t *testing.T) {
	ctx := context.Background()
	store, _ := newTestStore(t, "http://shop.example.com")
	require.NoError(t, store.Save(ctx, models.Credentials{AccessToken: "access-1", RefreshToken: "refresh-1"}))

	require.NoError(t, store.Save(ctx, models.Credentials{AccessToken: "access-2"}))

	creds, err := store.Credentials(ctx)
	require.NoError(t, err)
	assert.Equal(t, "access-2", creds.AccessToken)
	assert.Equal(t, "refresh-1", creds.RefreshToken)
}

func TestAccessTokenCookie(t *testing.T) {
	ctx := context.Background()
	store, _ := newTestStore(t, "https://shop.example.com")
	expiresAt := time.Now().Add(time.Hour)
	token := signedToken(t, expiresAt)

	require.NoError(t, store.Save(ctx, models.Credentials{AccessToken: token, RefreshToken: "refresh-1"}))

	apiURL, _ := url.Parse("https://shop.example.com/api/products")
	cookies := store.Jar().Cookies(apiURL)
	require.Len(t, cookies, 1)
	assert.Equal(t, "access_token", cookies[0].Name)
	assert.Equal(t, token, cookies[0].Value)

	// secure cookies are not sent over plain http
	plainURL, _ := url.Parse("http://shop.example.com/api/products")
	assert.Empty(t, store.Jar().Cookies(plainURL))
}

func TestAccessTokenFallsBackToSecretStore(t *testing.T) {
	ctx := context.Background()
	store, adapter := newTestStore(t, "http://shop.example.com")
	require.NoError(t, adapter.SetSecret(ctx, accessTokenKey, "stored-access"))

	token, err := store.AccessToken(ctx)

	require.NoError(t, err)
	assert.Equal(t, "stored-access", token)
}

func TestCookieRotatedByServerWins(t *testing.T) {
	ctx := context.Background()
	store, _ := newTestStore(t, "http://shop.example.com")
	require.NoError(t, store.Save(ctx, models.Credentials{AccessToken: "access-1", RefreshToken: "refresh-1"}))
	apiURL, _ := url.Parse("http://shop.example.com/api/auth/login")

	store.Jar().SetCookies(apiURL, []*http.Cookie{{Name: "access_token", Value: "from-server", Path: "/"}})

	token, err := store.AccessToken(ctx)
	require.NoError(t, err)
	assert.Equal(t, "from-server", token)
}

func TestClear(t *testing.T) {
	ctx := context.Background()
	store, _ := newTestStore(t, "http://shop.example.com")
	require.NoError(t, store.Save(ctx, models.Credentials{AccessToken: "access-1", RefreshToken: "refresh-1"}))

	require.NoError(t, store.Clear(ctx))

	creds, err := store.Credentials(ctx)
	require.NoError(t, err)
	assert.True(t, creds.Empty())
	apiURL, _ := url.Parse("http://shop.example.com/")
	assert.Empty(t, store.Jar().Cookies(apiURL))
}

func TestExpiredAccessTokenIsDropped(t *testing.T) {
	ctx := context.Background()
	store, adapter := newTestStore(t, "http://shop.example.com")
	token := signedToken(t, time.Now().Add(-time.Minute))

	require.NoError(t, store.Save(ctx, models.Credentials{AccessToken: token, RefreshToken: "refresh-1"}))

	accessToken, err := store.AccessToken(ctx)
	require.NoError(t, err)
	assert.Empty(t, accessToken)
	refreshToken, err := adapter.GetSecret(ctx, refreshTokenKey)
	require.NoError(t, err)
	assert.Equal(t, "refresh-1", refreshToken)
}

func TestOpaqueAccessTokenReplacesExpiringOne(t *testing.T) {
	ctx := context.Background()
	store, adapter := newTestStore(t, "http://shop.example.com")
	require.NoError(t, store.Save(ctx, models.Credentials{AccessToken: signedToken(t, time.Now().Add(time.Hour)), RefreshToken: "refresh-1"}))

	require.NoError(t, store.Save(ctx, models.Credentials{AccessToken: "opaque-2"}))

	stored, err := adapter.GetSecret(ctx, accessTokenKey)
	require.NoError(t, err)
	assert.Equal(t, "opaque-2", stored)
}
