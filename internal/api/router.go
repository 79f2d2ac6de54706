package api

import (
	"strings"
	"time"

	"github.com/labstack/echo-contrib/echoprometheus"
	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	echoSwagger "github.com/swaggo/echo-swagger"
	"go.mongodb.org/mongo-driver/mongo"

	_ "github.com/chatty/chat-server/docs"
	"github.com/chatty/chat-server/internal/api/handler"
	"github.com/chatty/chat-server/internal/api/middleware"
	"github.com/chatty/chat-server/internal/core/ports"
	redisstore "github.com/chatty/chat-server/internal/infrastructure/db/redis"
	"github.com/chatty/chat-server/internal/pkg/config"
	"github.com/chatty/chat-server/internal/realtime"
)

const bodyLimit = "50M"

// Dependencies are the collaborators the HTTP surface is built from.
type Dependencies struct {
	Config *config.Config
	Log    zerolog.Logger

	DB    *mongo.Database
	Redis *redis.Client

	AuthService ports.AuthService
	ChatService ports.ChatService
	Gateway     *realtime.Gateway

	// ReadinessChecks are probed by /health/ready next to MongoDB and Redis.
	ReadinessChecks map[string]handler.CheckFunc

	// Registerer receives the HTTP metrics. Defaults to the global registry.
	Registerer prometheus.Registerer
}

// NewRouter builds and returns the Echo instance with all routes registered.
func NewRouter(deps Dependencies) *echo.Echo {
	cfg := deps.Config

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Validator = handler.NewValidator()
	e.HTTPErrorHandler = NewHTTPErrorHandler(deps.Log)

	// --- Global middleware ---
	e.Use(echomiddleware.Recover())
	e.Use(echomiddleware.RequestID())
	e.Use(requestLogger(deps.Log))
	e.Use(echomiddleware.CORSWithConfig(echomiddleware.CORSConfig{
		AllowOrigins:     []string{cfg.ClientOrigin},
		AllowCredentials: true,
	}))
	e.Use(echomiddleware.BodyLimit(bodyLimit))
	e.Use(echoprometheus.NewMiddlewareWithConfig(echoprometheus.MiddlewareConfig{
		Namespace:  "chatty",
		Subsystem:  "http",
		Registerer: deps.Registerer,
		Skipper: func(c echo.Context) bool {
			p := c.Path()
			return p == "/metrics" || p == "/ws" || strings.HasPrefix(p, "/swagger")
		},
	}))

	// --- Dependencies ---
	authHandler := handler.NewAuthHandler(deps.AuthService, handler.SessionConfig{
		TTL:    cfg.SessionTTL,
		Secure: cfg.IsProduction(),
	})
	messageHandler := handler.NewMessageHandler(deps.ChatService)
	wsHandler := realtime.NewWSHandler(deps.Gateway, cfg.ClientOrigin, deps.Log)

	requireAuth := middleware.Auth(cfg.JWTSecret)
	authLimit := middleware.RateLimit(
		redisstore.NewFixedWindowLimiter(deps.Redis, "auth", cfg.RateLimit.AuthRequests, cfg.RateLimit.AuthWindow),
		"auth",
		deps.Log,
	)
	apiLimit := middleware.APIRateLimit(middleware.APIRateLimitConfig{
		Requests: cfg.RateLimit.APIRequests,
		Window:   cfg.RateLimit.APIWindow,
	})

	// --- Auth routes ---
	auth := e.Group("/api/auth")
	auth.POST("/signup", authHandler.Signup, authLimit)
	auth.POST("/login", authHandler.Login, authLimit)
	auth.POST("/verify-otp", authHandler.VerifyOTP)
	auth.POST("/resend-otp", authHandler.ResendOTP)
	auth.POST("/logout", authHandler.Logout)
	auth.GET("/check", authHandler.Check, requireAuth)
	auth.PUT("/update-profile", authHandler.UpdateProfile, requireAuth)
	auth.PATCH("/upload-avatar", authHandler.UploadAvatar, requireAuth)

	// --- Message routes ---
	messages := e.Group("/api/messages", requireAuth, apiLimit)
	messages.GET("/users", messageHandler.ListUsers)
	messages.GET("/:id", messageHandler.GetMessages)
	messages.POST("/send/:id", messageHandler.Send)
	messages.DELETE("/:id", messageHandler.DeleteConversation)
	messages.DELETE("/message/:id", messageHandler.DeleteMessage)

	// --- Realtime ---
	e.GET("/ws", wsHandler.Serve, requireAuth, middleware.RequireSelf("userId"))

	// --- Health probes (no auth required) ---
	healthHandler := handler.NewHealthHandler()
	healthDepsHandler := handler.NewHealthDependenciesHandler(deps.DB, deps.Redis)
	for name, check := range deps.ReadinessChecks {
		healthDepsHandler.WithCheck(name, check)
	}

	e.GET("/health", healthHandler.Liveness)            // liveness  – is the process alive?
	e.GET("/health/ready", healthDepsHandler.Readiness) // readiness – are dependencies up?

	// --- Operations ---
	e.GET("/metrics", echoprometheus.NewHandler())
	e.GET("/swagger/*", echoSwagger.WrapHandler)

	return e
}

func requestLogger(log zerolog.Logger) echo.MiddlewareFunc {
	return echomiddleware.RequestLoggerWithConfig(echomiddleware.RequestLoggerConfig{
		LogMethod:    true,
		LogURI:       true,
		LogStatus:    true,
		LogLatency:   true,
		LogRequestID: true,
		LogRemoteIP:  true,
		HandleError:  true,
		LogError:     true,
		LogValuesFunc: func(c echo.Context, v echomiddleware.RequestLoggerValues) error {
			ev := log.Info()
			if v.Status >= 500 {
				ev = log.Error().Err(v.Error)
			}
			ev.Str("method", v.Method).
				Str("uri", v.URI).
				Int("status", v.Status).
				Dur("latency", v.Latency.Round(time.Microsecond)).
				Str("request_id", v.RequestID).
				Str("remote_ip", v.RemoteIP).
				Msg("request")
			return nil
		},
	})
}
