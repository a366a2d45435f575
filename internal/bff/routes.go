package bff

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/SwissDataScienceCenter/shop-admin-gateway/internal/adminapi"
	"github.com/SwissDataScienceCenter/shop-admin-gateway/internal/authclient"
	"github.com/SwissDataScienceCenter/shop-admin-gateway/internal/models"
	"github.com/SwissDataScienceCenter/shop-admin-gateway/internal/notify"
	"github.com/SwissDataScienceCenter/shop-admin-gateway/internal/utils"
	"github.com/labstack/echo/v4"
)

// forwardedHeaders are copied from the dashboard request to the shop API
var forwardedHeaders = []string{echo.HeaderContentType, "Accept-Language"}

type loginBody struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type otpBody struct {
	Email string `json:"email"`
	Code  string `json:"code"`
}

type sessionResponse struct {
	OTPRequired bool         `json:"otpRequired,omitempty"`
	User        *models.User `json:"user,omitempty"`
}

type logoutResponse struct {
	Redirect string `json:"redirect"`
}

func (s *Server) startSession(c echo.Context, result authclient.LoginResult) error {
	if result.OTPRequired {
		return c.JSON(http.StatusAccepted, sessionResponse{OTPRequired: true})
	}
	s.holder.SetUser(result.User)
	return c.JSON(http.StatusOK, sessionResponse{User: result.User})
}

func (s *Server) PostLogin(c echo.Context) error {
	body := loginBody{}
	if err := c.Bind(&body); err != nil {
		return err
	}
	if body.Email == "" || body.Password == "" {
		return badRequest(fmt.Errorf("email and password are required"))
	}
	result, err := s.client.Login(c.Request().Context(), body.Email, body.Password)
	if err != nil {
		return err
	}
	return s.startSession(c, result)
}

func (s *Server) PostOTP(c echo.Context) error {
	body := otpBody{}
	if err := c.Bind(&body); err != nil {
		return err
	}
	if body.Email == "" || body.Code == "" {
		return badRequest(fmt.Errorf("email and code are required"))
	}
	result, err := s.client.VerifyOTP(c.Request().Context(), body.Email, body.Code)
	if err != nil {
		return err
	}
	return s.startSession(c, result)
}

func (s *Server) PostLogout(c echo.Context) error {
	err := s.client.Logout(c.Request().Context())
	s.holder.Clear()
	if err != nil {
		slog.Error("BFF", "message", "clearing the credentials failed", "error", err, "requestID", utils.GetRequestID(c))
	}
	return c.JSON(http.StatusOK, logoutResponse{Redirect: s.holder.LoginLocation()})
}

func (s *Server) GetUser(c echo.Context) error {
	user, found := s.holder.User()
	if !found {
		return echo.NewHTTPError(http.StatusUnauthorized, "not signed in")
	}
	return c.JSON(http.StatusOK, user)
}

type streamEvent struct {
	notify.Event
	Redirect string `json:"redirect,omitempty"`
}

// GetEvents streams the toast and logout events as server-sent events.
func (s *Server) GetEvents(c echo.Context) error {
	events, unsubscribe := s.events.Subscribe()
	defer unsubscribe()
	res := c.Response()
	res.Header().Set(echo.HeaderContentType, "text/event-stream")
	res.Header().Set("Connection", "keep-alive")
	res.WriteHeader(http.StatusOK)
	res.Flush()
	keepAlive := time.NewTicker(s.keepAlive)
	defer keepAlive.Stop()
	for {
		select {
		case <-c.Request().Context().Done():
			return nil
		case <-keepAlive.C:
			if _, err := io.WriteString(res, ": keep-alive\n\n"); err != nil {
				return nil
			}
			res.Flush()
		case event, ok := <-events:
			if !ok {
				return nil
			}
			payload := streamEvent{Event: event}
			if event.Type == notify.EventLogout {
				payload.Redirect = s.holder.LoginLocation()
			}
			data, err := json.Marshal(payload)
			if err != nil {
				slog.Error("BFF", "message", "cannot encode event", "error", err)
				continue
			}
			if _, err := fmt.Fprintf(res, "id: %s\nevent: %s\ndata: %s\n\n", event.ID, event.Type, data); err != nil {
				return nil
			}
			res.Flush()
		}
	}
}

// Forward relays a dashboard call under /api to the shop API through the authenticated client.
func (s *Server) Forward(c echo.Context) error {
	req := c.Request()
	if strings.HasPrefix(req.URL.Path, s.authPathPrefix) {
		return echo.ErrNotFound
	}
	var body []byte
	if req.Body != nil {
		var err error
		body, err = io.ReadAll(req.Body)
		if err != nil {
			return badRequest(err)
		}
	}
	header := http.Header{}
	for _, name := range forwardedHeaders {
		if value := req.Header.Get(name); value != "" {
			header.Set(name, value)
		}
	}
	apiReq := authclient.Request{
		Method: req.Method,
		Path:   req.URL.Path,
		Query:  req.URL.Query(),
		Header: header,
	}
	if len(body) > 0 {
		apiReq.Body = body
	}
	res, err := s.client.Do(req.Context(), apiReq)
	if err != nil {
		return err
	}
	if len(res.Payload) == 0 {
		return c.NoContent(res.Status)
	}
	return c.JSONBlob(res.Status, res.Payload)
}

func listHandler[T any](resource *adminapi.Resource[T]) echo.HandlerFunc {
	return func(c echo.Context) error {
		params, err := adminapi.ParseListParams(c.QueryParams())
		if err != nil {
			return badRequest(err)
		}
		page, err := resource.List(c.Request().Context(), params)
		if err != nil {
			return err
		}
		return c.JSON(http.StatusOK, page)
	}
}

func getHandler[T any](resource *adminapi.Resource[T]) echo.HandlerFunc {
	return func(c echo.Context) error {
		item, err := resource.Get(c.Request().Context(), c.Param("id"))
		if err != nil {
			return err
		}
		return c.JSON(http.StatusOK, item)
	}
}
