// Package bff serves the admin dashboard. It keeps the credentials of the operator on the server
// side and calls the shop API on the dashboard's behalf.
package bff

import (
	"context"
	"fmt"
	"time"

	"github.com/SwissDataScienceCenter/shop-admin-gateway/internal/adminapi"
	"github.com/SwissDataScienceCenter/shop-admin-gateway/internal/authclient"
	"github.com/SwissDataScienceCenter/shop-admin-gateway/internal/authstate"
	"github.com/SwissDataScienceCenter/shop-admin-gateway/internal/notify"
	"github.com/labstack/echo/v4"
)

type ShopClient interface {
	adminapi.Doer
	Login(ctx context.Context, email string, password string) (authclient.LoginResult, error)
	VerifyOTP(ctx context.Context, email string, code string) (authclient.LoginResult, error)
	Logout(ctx context.Context) error
}

type EventSource interface {
	Subscribe() (<-chan notify.Event, func())
}

type Server struct {
	client         ShopClient
	admin          *adminapi.API
	holder         *authstate.Holder
	events         EventSource
	authPathPrefix string
	keepAlive      time.Duration
}

func (s *Server) RegisterHandlers(e *echo.Echo, commonMiddlewares ...echo.MiddlewareFunc) {
	session := e.Group("/session", commonMiddlewares...)
	session.POST("/login", s.PostLogin, NoCaching)
	session.POST("/otp", s.PostOTP, NoCaching)
	session.POST("/logout", s.PostLogout, NoCaching)
	session.GET("/user", s.GetUser, NoCaching)

	e.GET("/events", s.GetEvents, NoCaching)

	admin := e.Group("/admin", commonMiddlewares...)
	admin.GET("/products", listHandler(s.admin.Products))
	admin.GET("/products/:id", getHandler(s.admin.Products))
	admin.GET("/brands", listHandler(s.admin.Brands))
	admin.GET("/brands/:id", getHandler(s.admin.Brands))
	admin.GET("/categories", listHandler(s.admin.Categories))
	admin.GET("/categories/:id", getHandler(s.admin.Categories))
	admin.GET("/attributes", listHandler(s.admin.Attributes))
	admin.GET("/attributes/:id", getHandler(s.admin.Attributes))
	admin.GET("/users", listHandler(s.admin.Users))
	admin.GET("/users/:id", getHandler(s.admin.Users))

	api := e.Group("/api", commonMiddlewares...)
	api.Any("/*", s.Forward)
}

type ServerOption func(*Server) error

func WithClient(client ShopClient) ServerOption {
	return func(s *Server) error {
		s.client = client
		s.admin = adminapi.NewAPI(client)
		return nil
	}
}

func WithHolder(holder *authstate.Holder) ServerOption {
	return func(s *Server) error {
		s.holder = holder
		return nil
	}
}

func WithEventSource(events EventSource) ServerOption {
	return func(s *Server) error {
		s.events = events
		return nil
	}
}

// WithAuthPathPrefix sets the prefix of the shop API auth endpoints, these are not forwarded.
func WithAuthPathPrefix(prefix string) ServerOption {
	return func(s *Server) error {
		s.authPathPrefix = prefix
		return nil
	}
}

func WithKeepAlive(interval time.Duration) ServerOption {
	return func(s *Server) error {
		if interval <= 0 {
			return fmt.Errorf("the keep alive interval needs to be greater than 0")
		}
		s.keepAlive = interval
		return nil
	}
}

func NewServer(options ...ServerOption) (*Server, error) {
	server := Server{authPathPrefix: "/api/auth/", keepAlive: 30 * time.Second}
	for _, opt := range options {
		err := opt(&server)
		if err != nil {
			return &Server{}, err
		}
	}
	if server.client == nil {
		return &Server{}, fmt.Errorf("shop API client is not initialized")
	}
	if server.holder == nil {
		return &Server{}, fmt.Errorf("auth state holder is not initialized")
	}
	if server.events == nil {
		return &Server{}, fmt.Errorf("event source is not initialized")
	}
	return &server, nil
}
