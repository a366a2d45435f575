// Package authclient implements the http client used to call the shop API on behalf of the
// signed in operator. It attaches the access token, recovers from an expired token by
// refreshing it once per request and classifies failures into the gateway error kinds.
package authclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync/atomic"
	"time"

	"github.com/SwissDataScienceCenter/shop-admin-gateway/internal/config"
	"github.com/SwissDataScienceCenter/shop-admin-gateway/internal/gwerrors"
	"github.com/SwissDataScienceCenter/shop-admin-gateway/internal/models"
	"github.com/SwissDataScienceCenter/shop-admin-gateway/internal/notify"
	"github.com/prometheus/client_golang/prometheus"
)

// CredentialStore is the synchronized access point to the credential pair.
type CredentialStore interface {
	AccessToken(ctx context.Context) (string, error)
	RefreshToken(ctx context.Context) (string, error)
	Save(ctx context.Context, creds models.Credentials) error
	Clear(ctx context.Context) error
}

// Notifier receives the toast and forced logout side channels.
type Notifier interface {
	Toast(toast notify.Toast)
	Logout(reason string)
}

type cookieJarProvider interface {
	Jar() http.CookieJar
}

// Request describes one logical call to the shop API. Body is sent as JSON unless it is
// already a []byte or json.RawMessage.
type Request struct {
	Method string
	Path   string
	Query  url.Values
	Header http.Header
	Body   any
}

// Response is a successful (2xx) answer, Payload is the data member of the envelope.
type Response struct {
	Status    int
	Header    http.Header
	Payload   json.RawMessage
	RequestID string
}

func (r *Response) Decode(output any) error {
	if len(r.Payload) == 0 {
		return nil
	}
	return json.Unmarshal(r.Payload, output)
}

type rawResponse struct {
	status int
	header http.Header
	body   []byte
}

func (r *rawResponse) successful() bool {
	return r.status >= 200 && r.status < 300
}

type Client struct {
	httpClient     *http.Client
	baseURL        *url.URL
	credentials    CredentialStore
	notifier       Notifier
	catalog        notify.Catalog
	coordinator    *RefreshCoordinator
	idGenerator    models.IDGenerator
	metrics        *clientMetrics
	requestTimeout time.Duration
	refreshTimeout time.Duration
	authPathPrefix string
	loginPath      string
	otpPath        string
	refreshPath    string
	logoutPath     string
	// loggedOut is set when the logout signal was sent and reset by the next login
	loggedOut atomic.Bool
}

func (c *Client) isAuthEndpoint(path string) bool {
	return strings.HasPrefix(path, c.authPathPrefix)
}

func (c *Client) requestID() string {
	id, err := c.idGenerator.ID()
	if err != nil {
		slog.Warn("AUTH CLIENT", "message", "cannot generate a request id", "error", err)
		return ""
	}
	return id
}

func encodeBody(body any) ([]byte, error) {
	switch b := body.(type) {
	case nil:
		return nil, nil
	case []byte:
		return b, nil
	case json.RawMessage:
		return b, nil
	default:
		return json.Marshal(b)
	}
}

func needsRefresh(status int) bool {
	return status == http.StatusUnauthorized || status == http.StatusForbidden
}

// Do sends the request with the stored access token. A 401 or 403 answer makes the client
// obtain a new token through the refresh coordinator and resend the request once.
// Non 2xx answers are returned as *gwerrors.Error and reported on the toast channel,
// except for the auth endpoints which never produce toasts and are never refreshed.
func (c *Client) Do(ctx context.Context, req Request) (*Response, error) {
	if req.Method == "" {
		req.Method = http.MethodGet
	}
	body, err := encodeBody(req.Body)
	if err != nil {
		return nil, fmt.Errorf("cannot encode the request body: %w", err)
	}
	authEndpoint := c.isAuthEndpoint(req.Path)
	requestID := c.requestID()
	token, err := c.credentials.AccessToken(ctx)
	if err != nil {
		return nil, fmt.Errorf("cannot read the access token: %w", err)
	}

	res, err := c.send(ctx, req, body, token, requestID)
	if err != nil {
		return nil, c.transportFailure(ctx, req, requestID, authEndpoint, err)
	}
	if !res.successful() && needsRefresh(res.status) && !authEndpoint {
		slog.Debug("AUTH CLIENT", "message", "access token rejected", "status", res.status, "path", req.Path, "requestID", requestID)
		grant, err := c.coordinator.Acquire(ctx, token)
		if err != nil {
			return nil, c.refreshFailure(ctx, req, res, err)
		}
		grant.Release()
		res, err = c.send(ctx, req, body, grant.Token, requestID)
		if err != nil {
			return nil, c.transportFailure(ctx, req, requestID, authEndpoint, err)
		}
		if res.status == http.StatusUnauthorized {
			apiErr := c.statusError(req, res)
			c.metrics.observe(apiErr.Kind)
			c.forceLogout(ctx, notify.LogoutReasonSessionExpired)
			return nil, apiErr
		}
	}
	if !res.successful() {
		return nil, c.fail(req, requestID, authEndpoint, c.statusError(req, res))
	}
	payload, err := models.UnwrapPayload(res.body)
	if err != nil {
		return nil, err
	}
	c.metrics.observeSuccess()
	return &Response{Status: res.status, Header: res.header, Payload: payload, RequestID: requestID}, nil
}

func (c *Client) url(path string, query url.Values) string {
	u := c.baseURL.JoinPath(path)
	if len(query) > 0 {
		u.RawQuery = query.Encode()
	}
	return u.String()
}

// send performs one physical call bounded by the request timeout.
func (c *Client) send(ctx context.Context, req Request, body []byte, token string, requestID string) (*rawResponse, error) {
	ctx, cancel := context.WithTimeout(ctx, c.requestTimeout)
	defer cancel()
	var bodyReader io.Reader
	if body != nil {
		bodyReader = bytes.NewReader(body)
	}
	httpReq, err := http.NewRequestWithContext(ctx, req.Method, c.url(req.Path, req.Query), bodyReader)
	if err != nil {
		return nil, err
	}
	for name, values := range req.Header {
		httpReq.Header[name] = append([]string(nil), values...)
	}
	if body != nil && httpReq.Header.Get("Content-Type") == "" {
		httpReq.Header.Set("Content-Type", "application/json")
	}
	httpReq.Header.Set("Accept", "application/json")
	httpReq.Header.Del("Authorization")
	if token != "" {
		httpReq.Header.Set("Authorization", "Bearer "+token)
	}
	if requestID != "" {
		httpReq.Header.Set("X-Request-ID", requestID)
	}
	res, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, err
	}
	defer res.Body.Close()
	raw, err := io.ReadAll(res.Body)
	if err != nil {
		return nil, err
	}
	return &rawResponse{status: res.StatusCode, header: res.Header, body: raw}, nil
}

type ClientOption func(*Client) error

func WithAPIConfig(apiConfig config.APIConfig) ClientOption {
	return func(c *Client) error {
		c.baseURL = apiConfig.BaseURL
		c.requestTimeout = apiConfig.RequestTimeout
		c.refreshTimeout = apiConfig.RefreshTimeout
		c.authPathPrefix = apiConfig.AuthPathPrefix
		c.loginPath = apiConfig.LoginPath
		c.otpPath = apiConfig.OTPPath
		c.refreshPath = apiConfig.RefreshPath
		c.logoutPath = apiConfig.LogoutPath
		return nil
	}
}

func WithHTTPClient(httpClient *http.Client) ClientOption {
	return func(c *Client) error {
		c.httpClient = httpClient
		return nil
	}
}

func WithCredentialStore(store CredentialStore) ClientOption {
	return func(c *Client) error {
		c.credentials = store
		return nil
	}
}

func WithNotifier(notifier Notifier) ClientOption {
	return func(c *Client) error {
		c.notifier = notifier
		return nil
	}
}

func WithCatalog(catalog notify.Catalog) ClientOption {
	return func(c *Client) error {
		c.catalog = catalog
		return nil
	}
}

func WithIDGenerator(generator models.IDGenerator) ClientOption {
	return func(c *Client) error {
		c.idGenerator = generator
		return nil
	}
}

// WithMetricsRegisterer registers the client metrics, they are only collected otherwise.
func WithMetricsRegisterer(registerer prometheus.Registerer) ClientOption {
	return func(c *Client) error {
		return c.metrics.register(registerer)
	}
}

func NewClient(options ...ClientOption) (*Client, error) {
	client := Client{
		catalog:        notify.DefaultCatalog(),
		idGenerator:    models.ULIDGenerator{},
		metrics:        newClientMetrics(),
		requestTimeout: 15 * time.Second,
		refreshTimeout: 15 * time.Second,
		authPathPrefix: "/api/auth/",
		loginPath:      "/api/auth/login",
		otpPath:        "/api/auth/otp/verify",
		refreshPath:    "/api/auth/refresh",
		logoutPath:     "/api/auth/logout",
	}
	for _, opt := range options {
		err := opt(&client)
		if err != nil {
			return &Client{}, err
		}
	}
	if client.baseURL == nil {
		return &Client{}, fmt.Errorf("the shop API url is not set")
	}
	if client.credentials == nil {
		return &Client{}, fmt.Errorf("credential store is not initialized")
	}
	if client.notifier == nil {
		return &Client{}, fmt.Errorf("notifier is not initialized")
	}
	if client.requestTimeout <= 0 || client.refreshTimeout <= 0 {
		return &Client{}, fmt.Errorf("request and refresh timeouts need to be greater than 0")
	}
	if client.httpClient == nil {
		client.httpClient = &http.Client{}
	}
	if provider, ok := client.credentials.(cookieJarProvider); ok && client.httpClient.Jar == nil {
		httpClient := *client.httpClient
		httpClient.Jar = provider.Jar()
		client.httpClient = &httpClient
	}
	client.coordinator = NewRefreshCoordinator(client.refreshCredentials, client.credentials.AccessToken)
	return &client, nil
}

// Coordinator exposes the refresh coordinator owned by the client.
func (c *Client) Coordinator() *RefreshCoordinator {
	return c.coordinator
}

func newAPIError(req Request, kind gwerrors.Kind, err error) *gwerrors.Error {
	return &gwerrors.Error{Kind: kind, Method: req.Method, Path: req.Path, Err: err}
}
