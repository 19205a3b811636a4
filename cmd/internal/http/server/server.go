package server

import (
	"net/http"
	"strings"
	"telenotes/cmd/internal/http/handler"
	mw "telenotes/cmd/internal/http/middleware"
	"telenotes/cmd/internal/infrastructure/metrics"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/labstack/gommon/log"
)

const bodyLimit = "2M"

type Dependencies struct {
	UserService handler.UserService
	NoteService handler.NoteService
	Auth        *mw.AuthMiddlewareConfig

	// RateLimitStore is optional, nil disables admission control.
	RateLimitStore middleware.RateLimiterStore
	Origins        []string
	RequestTimeout time.Duration
}

// New builds the echo instance with every route and middleware in place.
func New(deps *Dependencies) *echo.Echo {
	metrics.Init()

	e := echo.New()
	e.HideBanner = true
	e.Pre(middleware.RemoveTrailingSlash())

	e.Use(middleware.Recover())
	e.Use(middleware.RequestIDWithConfig(middleware.RequestIDConfig{
		Generator: uuid.NewString,
	}))
	e.Use(requestLogger())
	e.Use(mw.NewMetricsMiddleware())
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins:     deps.Origins,
		AllowCredentials: true,
	}))
	e.Use(middleware.BodyLimit(bodyLimit))

	if deps.RateLimitStore != nil {
		e.Use(mw.NewRateLimiter(deps.RateLimitStore, skipInfra))
	}

	if deps.RequestTimeout > 0 {
		e.Use(middleware.ContextTimeout(deps.RequestTimeout))
	}

	userRoutes := handler.NewUserDefault(deps.UserService)
	noteRoutes := handler.NewNoteDefault(deps.NoteService)

	// Auth
	auth := e.Group("/auth")
	auth.POST("/register", userRoutes.Register)
	auth.POST("/login", userRoutes.Login)
	auth.GET("/check_user/:telegram_id", userRoutes.CheckUser)

	// Notes
	notes := e.Group("/notes", mw.NewAuthMiddleware(deps.Auth))
	notes.GET("", noteRoutes.GetNotes)
	notes.GET("/search", noteRoutes.SearchNotes)
	notes.POST("", noteRoutes.CreateNote)
	notes.GET("/:id", noteRoutes.GetNote)
	notes.PUT("/:id", noteRoutes.UpdateNote)
	notes.POST("/:id/add_tag", noteRoutes.AddTag)
	notes.DELETE("/:id/remove_tag", noteRoutes.RemoveTag)

	// Docker Compose healthcheck
	e.GET("/health", healthCheckRoute)
	e.GET("/metrics", echo.WrapHandler(metrics.Handler()))
	return e
}

func requestLogger() echo.MiddlewareFunc {
	return middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		Skipper:      skipInfra,
		LogMethod:    true,
		LogURI:       true,
		LogStatus:    true,
		LogLatency:   true,
		LogRequestID: true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			log.Infof("%s %s %d %s id=%s", v.Method, v.URI, v.Status, v.Latency, v.RequestID)
			return nil
		},
	})
}

func skipInfra(c echo.Context) bool {
	path := c.Request().URL.Path
	return path == "/health" || strings.HasPrefix(path, "/metrics")
}

func healthCheckRoute(c echo.Context) error {
	return c.String(http.StatusOK, "OK")
}
