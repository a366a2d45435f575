package bff

import (
	"bufio"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/SwissDataScienceCenter/shop-admin-gateway/internal/authclient"
	"github.com/SwissDataScienceCenter/shop-admin-gateway/internal/authstate"
	"github.com/SwissDataScienceCenter/shop-admin-gateway/internal/gwerrors"
	"github.com/SwissDataScienceCenter/shop-admin-gateway/internal/models"
	"github.com/SwissDataScienceCenter/shop-admin-gateway/internal/notify"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type dummyShopClient struct {
	lock        sync.Mutex
	requests    []authclient.Request
	response    *authclient.Response
	err         error
	loginResult authclient.LoginResult
	loggedOut   bool
}

func (d *dummyShopClient) Do(_ context.Context, req authclient.Request) (*authclient.Response, error) {
	d.lock.Lock()
	defer d.lock.Unlock()
	d.requests = append(d.requests, req)
	return d.response, d.err
}

func (d *dummyShopClient) Login(context.Context, string, string) (authclient.LoginResult, error) {
	return d.loginResult, d.err
}

func (d *dummyShopClient) VerifyOTP(_ context.Context, _ string, code string) (authclient.LoginResult, error) {
	if code != "123456" {
		return authclient.LoginResult{}, &gwerrors.Error{Kind: gwerrors.KindBadRequest, Status: 400, Body: models.ErrorBody{Message: "invalid code"}}
	}
	return d.loginResult, nil
}

func (d *dummyShopClient) Logout(context.Context) error {
	d.loggedOut = true
	return nil
}

func newTestServer(t *testing.T, client *dummyShopClient, hub *notify.Hub) (*echo.Echo, *authstate.Holder) {
	holder := authstate.NewHolder(authstate.WithLoginLocation("/login"))
	server, err := NewServer(WithClient(client), WithHolder(holder), WithEventSource(hub), WithKeepAlive(time.Second))
	require.NoError(t, err)
	e := echo.New()
	e.HTTPErrorHandler = ErrorHandler(e.DefaultHTTPErrorHandler)
	e.Pre(middleware.RequestID())
	server.RegisterHandlers(e)
	return e, holder
}

func serve(e *echo.Echo, method string, target string, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	if body != "" {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func TestNewServerValidation(t *testing.T) {
	_, err := NewServer()
	assert.ErrorContains(t, err, "client")

	_, err = NewServer(WithClient(&dummyShopClient{}), WithHolder(authstate.NewHolder()), WithEventSource(notify.NewHub()), WithKeepAlive(0))
	assert.ErrorContains(t, err, "keep alive")
}

func TestLoginAndUser(t *testing.T) {
	client := &dummyShopClient{loginResult: authclient.LoginResult{User: &models.User{ID: "u1", Email: "admin@example.com"}}}
	e, _ := newTestServer(t, client, notify.NewHub())

	rec := serve(e, http.MethodGet, "/session/user", "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = serve(e, http.MethodPost, "/session/login", `{"email":"admin@example.com","password":"secret"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"user":{"id":"u1","email":"admin@example.com"}}`, rec.Body.String())
	assert.Equal(t, "no-cache, no-store, must-revalidate, max-age=0", rec.Header().Get("Cache-Control"))

	rec = serve(e, http.MethodGet, "/session/user", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"id":"u1","email":"admin@example.com"}`, rec.Body.String())

	rec = serve(e, http.MethodPost, "/session/logout", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"redirect":"/login"}`, rec.Body.String())
	assert.True(t, client.loggedOut)

	rec = serve(e, http.MethodGet, "/session/user", "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestLoginValidation(t *testing.T) {
	e, _ := newTestServer(t, &dummyShopClient{}, notify.NewHub())

	rec := serve(e, http.MethodPost, "/session/login", `{"email":"admin@example.com"}`)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestLoginFailureIsRelayed(t *testing.T) {
	client := &dummyShopClient{err: &gwerrors.Error{Kind: gwerrors.KindSessionExpired, Status: 401, Body: models.ErrorBody{Message: "invalid email or password"}}}
	e, _ := newTestServer(t, client, notify.NewHub())

	rec := serve(e, http.MethodPost, "/session/login", `{"email":"admin@example.com","password":"wrong"}`)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.JSONEq(t, `{"kind":"SessionExpired","message":"invalid email or password"}`, rec.Body.String())
}

func TestOTPFlow(t *testing.T) {
	client := &dummyShopClient{loginResult: authclient.LoginResult{OTPRequired: true}}
	e, holder := newTestServer(t, client, notify.NewHub())

	rec := serve(e, http.MethodPost, "/session/login", `{"email":"admin@example.com","password":"secret"}`)
	require.Equal(t, http.StatusAccepted, rec.Code)
	assert.JSONEq(t, `{"otpRequired":true}`, rec.Body.String())

	rec = serve(e, http.MethodPost, "/session/otp", `{"email":"admin@example.com","code":"000000"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	client.loginResult = authclient.LoginResult{User: &models.User{ID: "u1"}}
	rec = serve(e, http.MethodPost, "/session/otp", `{"email":"admin@example.com","code":"123456"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	_, found := holder.User()
	assert.True(t, found)
}

func TestForward(t *testing.T) {
	client := &dummyShopClient{response: &authclient.Response{Status: http.StatusCreated, Payload: json.RawMessage(`{"id":"p1"}`)}}
	e, _ := newTestServer(t, client, notify.NewHub())

	rec := serve(e, http.MethodPost, "/api/products?draft=true", `{"name":"Sneaker"}`)

	require.Equal(t, http.StatusCreated, rec.Code)
	assert.JSONEq(t, `{"id":"p1"}`, rec.Body.String())
	require.Len(t, client.requests, 1)
	req := client.requests[0]
	assert.Equal(t, http.MethodPost, req.Method)
	assert.Equal(t, "/api/products", req.Path)
	assert.Equal(t, url.Values{"draft": {"true"}}, req.Query)
	assert.Equal(t, []byte(`{"name":"Sneaker"}`), req.Body)
	assert.Equal(t, echo.MIMEApplicationJSON, req.Header.Get(echo.HeaderContentType))
}

func TestForwardNoContent(t *testing.T) {
	client := &dummyShopClient{response: &authclient.Response{Status: http.StatusNoContent}}
	e, _ := newTestServer(t, client, notify.NewHub())

	rec := serve(e, http.MethodDelete, "/api/products/p1", "")

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Nil(t, client.requests[0].Body)
}

func TestForwardDoesNotExposeAuthEndpoints(t *testing.T) {
	client := &dummyShopClient{}
	e, _ := newTestServer(t, client, notify.NewHub())

	rec := serve(e, http.MethodPost, "/api/auth/refresh", `{"refreshToken":"x"}`)

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Empty(t, client.requests)
}

func TestForwardErrors(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
		body   string
	}{
		{
			"validation",
			&gwerrors.Error{Kind: gwerrors.KindValidationFailed, Status: 422, Body: models.ErrorBody{Message: "Validation failed", FieldErrors: []models.FieldError{{Field: "name", Message: "name is required"}}}},
			http.StatusUnprocessableEntity,
			`{"kind":"ValidationFailed","message":"Validation failed","fieldErrors":[{"field":"name","message":"name is required"}]}`,
		},
		{"timeout", &gwerrors.Error{Kind: gwerrors.KindTimeout}, http.StatusGatewayTimeout, `{"kind":"Timeout"}`},
		{"no response", &gwerrors.Error{Kind: gwerrors.KindNetworkUnreachable}, http.StatusBadGateway, `{"kind":"NetworkUnreachable"}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e, _ := newTestServer(t, &dummyShopClient{err: tt.err}, notify.NewHub())

			rec := serve(e, http.MethodPut, "/api/products/p1", `{}`)

			assert.Equal(t, tt.status, rec.Code)
			assert.JSONEq(t, tt.body, rec.Body.String())
		})
	}
}

func TestAdminList(t *testing.T) {
	client := &dummyShopClient{response: &authclient.Response{Status: http.StatusOK, Payload: json.RawMessage(`[{"id":"b1","name":"Acme"}]`)}}
	e, _ := newTestServer(t, client, notify.NewHub())

	rec := serve(e, http.MethodGet, "/admin/brands?page=1&limit=20&search=ac", "")

	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"items":[{"id":"b1","name":"Acme"}],"total":1,"page":1,"limit":20}`, rec.Body.String())
	assert.Equal(t, "/api/brands", client.requests[0].Path)

	rec = serve(e, http.MethodGet, "/admin/brands?page=abc", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAdminGet(t *testing.T) {
	client := &dummyShopClient{response: &authclient.Response{Status: http.StatusOK, Payload: json.RawMessage(`{"id":"u1","email":"admin@example.com"}`)}}
	e, _ := newTestServer(t, client, notify.NewHub())

	rec := serve(e, http.MethodGet, "/admin/users/u1", "")

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "/api/users/u1", client.requests[0].Path)
}

func TestEventStream(t *testing.T) {
	hub := notify.NewHub()
	e, holder := newTestServer(t, &dummyShopClient{}, hub)
	holder.SetUser(&models.User{ID: "u1"})
	server := httptest.NewServer(e)
	defer server.Close()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, server.URL+"/events", nil)
	require.NoError(t, err)

	res, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer res.Body.Close()
	assert.Equal(t, "text/event-stream", res.Header.Get("Content-Type"))

	hub.Toast(notify.Toast{Level: notify.LevelError, Message: "A system error occurred"})
	hub.Logout(notify.LogoutReasonRefreshFailed)

	scanner := bufio.NewScanner(res.Body)
	events := []streamEvent{}
	names := []string{}
	for len(events) < 2 && scanner.Scan() {
		line := scanner.Text()
		if name, found := strings.CutPrefix(line, "event: "); found {
			names = append(names, name)
		}
		if data, found := strings.CutPrefix(line, "data: "); found {
			event := streamEvent{}
			require.NoError(t, json.Unmarshal([]byte(data), &event))
			events = append(events, event)
		}
	}
	require.Len(t, events, 2)
	assert.Equal(t, []string{"toast", "logout"}, names)
	assert.Equal(t, "A system error occurred", events[0].Toast.Message)
	assert.Empty(t, events[0].Redirect)
	assert.Equal(t, notify.LogoutReasonRefreshFailed, events[1].Logout.Reason)
	assert.Equal(t, "/login", events[1].Redirect)
}
