package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"runtime/debug"
	"time"

	"github.com/SwissDataScienceCenter/shop-admin-gateway/internal/authclient"
	"github.com/SwissDataScienceCenter/shop-admin-gateway/internal/authstate"
	"github.com/SwissDataScienceCenter/shop-admin-gateway/internal/bff"
	"github.com/SwissDataScienceCenter/shop-admin-gateway/internal/config"
	"github.com/SwissDataScienceCenter/shop-admin-gateway/internal/credentials"
	"github.com/SwissDataScienceCenter/shop-admin-gateway/internal/db"
	"github.com/SwissDataScienceCenter/shop-admin-gateway/internal/notify"
	"github.com/SwissDataScienceCenter/shop-admin-gateway/internal/tokenrefresher"
	"github.com/getsentry/sentry-go"
	sentryecho "github.com/getsentry/sentry-go/echo"
	"github.com/labstack/echo-contrib/echoprometheus"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/time/rate"
)

func main() {
	// Logging setup
	slog.SetDefault(jsonLogger)
	// Load configuration
	ch := config.NewConfigHandler()
	gwConfig, err := ch.Config()
	if err != nil {
		slog.Error("loading the configuration failed", "error", err)
		os.Exit(1)
	}
	slog.Info("loaded config", "config", gwConfig)
	err = gwConfig.Validate()
	if err != nil {
		slog.Error("the config validation failed", "error", err)
		os.Exit(1)
	}
	// Set log level to "debug" if activated
	if gwConfig.DebugMode {
		logLevel.Set(slog.LevelDebug)
	}
	// Only the debug mode can change without a restart
	ch.HandleChanges(func(newConfig config.Config, err error) {
		if err != nil {
			slog.Error("reloading the configuration failed", "error", err)
			return
		}
		if newConfig.DebugMode {
			logLevel.Set(slog.LevelDebug)
		} else {
			logLevel.Set(slog.LevelInfo)
		}
		slog.Info("debug mode updated", "debugMode", newConfig.DebugMode)
	})
	ch.Watch()
	// Setup
	e := echo.New()
	e.Pre(middleware.RequestID(), middleware.RemoveTrailingSlash())
	e.Use(middleware.Recover())
	// The banner and the port do not respect the logger formatting we set below so we remove them
	// the port will be logged further down when the server starts.
	e.HideBanner = true
	e.HidePort = true
	e.HTTPErrorHandler = bff.ErrorHandler(e.DefaultHTTPErrorHandler)
	// Health check
	e.GET("/health", func(c echo.Context) error {
		return c.NoContent(http.StatusOK)
	})
	// Version endpoint
	buildInfo, ok := debug.ReadBuildInfo()
	version := ""
	if ok && buildInfo != nil {
		version = buildInfo.Main.Version
	}
	e.GET("/version", func(c echo.Context) error {
		return c.String(http.StatusOK, version)
	})
	// Initialize the db adapter
	dbOptions := []db.RedisAdapterOption{
		db.WithRedisConfig(gwConfig.Redis),
		db.WithKeyPrefix(gwConfig.Credentials.KeyPrefix),
	}
	if gwConfig.Credentials.Encryption.Enabled {
		slog.Info("redis encryption is enabled")
		dbOptions = append(dbOptions, db.WithEncryption(string(gwConfig.Credentials.Encryption.SecretKey)))
	}
	dbAdapter, err := db.NewRedisAdapter(dbOptions...)
	if err != nil {
		slog.Error("DB adapter initialization failed", "error", err)
		os.Exit(1)
	}
	// Initialize the credential store
	credentialStore, err := credentials.NewStore(
		credentials.WithAPIURL(gwConfig.API.BaseURL),
		credentials.WithCookieName(gwConfig.Credentials.AccessTokenCookieName),
		credentials.WithSecretRepository(dbAdapter),
	)
	if err != nil {
		slog.Error("credential store initialization failed", "error", err)
		os.Exit(1)
	}
	// Side channels
	catalog, err := notify.LoadCatalog(gwConfig.Messages.CatalogPath)
	if err != nil {
		slog.Error("loading the message catalog failed", "error", err)
		os.Exit(1)
	}
	hub := notify.NewHub()
	holder := authstate.NewHolder(authstate.WithLoginLocation(gwConfig.Server.LoginLocation))
	ctx, stopListening := context.WithCancel(context.Background())
	defer stopListening()
	go holder.Listen(ctx, hub)
	// Initialize the shop API client
	clientOptions := []authclient.ClientOption{
		authclient.WithAPIConfig(gwConfig.API),
		authclient.WithCredentialStore(credentialStore),
		authclient.WithNotifier(hub),
		authclient.WithCatalog(catalog),
	}
	if gwConfig.Monitoring.Prometheus.Enabled {
		clientOptions = append(clientOptions, authclient.WithMetricsRegisterer(prometheus.DefaultRegisterer))
	}
	client, err := authclient.NewClient(clientOptions...)
	if err != nil {
		slog.Error("shop API client initialization failed", "error", err)
		os.Exit(1)
	}
	// Proactive token refresh
	if gwConfig.Refresher.Enabled {
		refresher, err := tokenrefresher.NewTokenRefresher(
			tokenrefresher.WithConfig(gwConfig.Refresher),
			tokenrefresher.WithCredentialsGetter(credentialStore),
			tokenrefresher.WithRefresher(client),
		)
		if err != nil {
			slog.Error("token refresher initialization failed", "error", err)
			os.Exit(1)
		}
		scheduler, err := refresher.GetScheduler()
		if err != nil {
			slog.Error("token refresher scheduling failed", "error", err)
			os.Exit(1)
		}
		scheduler.StartAsync()
		defer scheduler.Stop()
	}
	// Initialize the dashboard server
	server, err := bff.NewServer(
		bff.WithClient(client),
		bff.WithHolder(holder),
		bff.WithEventSource(hub),
		bff.WithAuthPathPrefix(gwConfig.API.AuthPathPrefix),
		bff.WithKeepAlive(gwConfig.Server.EventsKeepAlive),
	)
	if err != nil {
		slog.Error("dashboard server initialization failed", "error", err)
		os.Exit(1)
	}
	server.RegisterHandlers(e, commonMiddlewares...)
	// Rate limiting
	if gwConfig.Server.RateLimits.Enabled {
		e.Use(middleware.RateLimiter(
			middleware.NewRateLimiterMemoryStoreWithConfig(
				middleware.RateLimiterMemoryStoreConfig{
					Rate:      rate.Limit(gwConfig.Server.RateLimits.Rate),
					Burst:     gwConfig.Server.RateLimits.Burst,
					ExpiresIn: 3 * time.Minute,
				}),
		),
		)
	}
	// CORS
	if len(gwConfig.Server.AllowOrigin) > 0 {
		e.Use(middleware.CORSWithConfig(middleware.CORSConfig{AllowOrigins: gwConfig.Server.AllowOrigin, AllowCredentials: true}))
	}
	// Sentry
	if gwConfig.Monitoring.Sentry.Enabled {
		err := sentry.Init(sentry.ClientOptions{
			Dsn:              string(gwConfig.Monitoring.Sentry.Dsn),
			TracesSampleRate: gwConfig.Monitoring.Sentry.SampleRate,
			Environment:      gwConfig.Monitoring.Sentry.Environment,
		})
		if err != nil {
			slog.Error("sentry initialization failed", "error", err)
		}
		e.Use(sentryecho.New(sentryecho.Options{}))
	}
	// Prometheus
	if gwConfig.Monitoring.Prometheus.Enabled {
		e.Use(echoprometheus.NewMiddleware("admin_gateway"))
		go func() {
			metrics := echo.New()
			metrics.HideBanner = true
			metrics.HidePort = true
			metrics.GET("/metrics", echoprometheus.NewHandler())
			err := metrics.Start(fmt.Sprintf(":%d", gwConfig.Monitoring.Prometheus.Port))
			if err != nil && !errors.Is(err, http.ErrServerClosed) {
				slog.Error("prometheus server failed to start", "error", err)
				os.Exit(1)
			}
		}()
	}
	// Start server
	address := fmt.Sprintf("%s:%d", gwConfig.Server.Host, gwConfig.Server.Port)
	slog.Info("starting the server on address " + address)
	go func() {
		err := e.Start(address)
		if err != nil && err != http.ErrServerClosed {
			slog.Error("shutting down the server gracefuly failed", "error", err)
			os.Exit(1)
		}
	}()
	// Wait for interrupt signal to gracefully shutdown the server with a timeout of 10 seconds.
	// Use a buffered channel to avoid missing signals as recommended for signal.Notify
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt)
	<-quit
	slog.Info("received signal to shut down the server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		slog.Error("shutting down the server gracefully failed", "error", err)
		os.Exit(1)
	}
}
