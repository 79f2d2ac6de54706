// @title          Chatty API
// @version        1.0
// @description    Direct messaging with realtime presence over WebSocket.
// @BasePath       /
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and the JWT.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/chatty/chat-server/internal/api"
	"github.com/chatty/chat-server/internal/api/handler"
	"github.com/chatty/chat-server/internal/core/ports"
	"github.com/chatty/chat-server/internal/core/service"
	mongostore "github.com/chatty/chat-server/internal/infrastructure/db/mongo"
	redisstore "github.com/chatty/chat-server/internal/infrastructure/db/redis"
	"github.com/chatty/chat-server/internal/infrastructure/mail"
	"github.com/chatty/chat-server/internal/infrastructure/media"
	"github.com/chatty/chat-server/internal/infrastructure/messaging"
	"github.com/chatty/chat-server/internal/infrastructure/queue"
	"github.com/chatty/chat-server/internal/pkg/config"
	"github.com/chatty/chat-server/internal/realtime"
	"github.com/chatty/chat-server/pkg/logger"
)

const shutdownTimeout = 15 * time.Second

func main() {
	cfg := config.Load()
	log := logger.Init(logger.Options{
		Level:  cfg.LogLevel,
		Pretty: !cfg.IsProduction(),
		Env:    cfg.Env,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log); err != nil {
		log.Fatal().Err(err).Msg("server stopped")
	}
}

func run(ctx context.Context, cfg *config.Config, log zerolog.Logger) error {
	// --- Storage ---
	mongoClient, db, err := mongostore.Connect(ctx, mongostore.Config{
		URI:         cfg.Mongo.URI,
		Database:    cfg.Mongo.Database,
		AppName:     "chat-server",
		MaxPoolSize: cfg.Mongo.MaxPoolSize,
	})
	if err != nil {
		return err
	}
	defer func() { _ = mongoClient.Disconnect(context.Background()) }()

	users := mongostore.NewUserRepository(db)
	messages := mongostore.NewMessageRepository(db)
	if err := mongostore.EnsureIndexes(ctx, users, messages); err != nil {
		return err
	}

	rdb, err := redisstore.Connect(ctx, redisstore.Config{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
		PoolSize: cfg.Redis.PoolSize,
	})
	if err != nil {
		return err
	}
	defer rdb.Close()

	mediaStore, err := media.NewS3Store(ctx, media.Config{
		Region:        cfg.S3.Region,
		AccessKey:     cfg.S3.AccessKey,
		SecretKey:     cfg.S3.SecretKey,
		Endpoint:      cfg.S3.Endpoint,
		Bucket:        cfg.S3.Bucket,
		PublicBaseURL: cfg.S3.PublicBaseURL,
		KeyPrefix:     cfg.S3.KeyPrefix,
	})
	if err != nil {
		return err
	}

	// --- Mail ---
	var mailer ports.Mailer
	if cfg.Mail.ResendAPIKey != "" {
		mailer = mail.NewResendMailer(mail.Config{
			APIKey: cfg.Mail.ResendAPIKey,
			From:   cfg.Mail.From,
			OTPTTL: cfg.OTP.TTL,
		}, logger.Component("mail"))
	} else {
		log.Warn().Msg("RESEND_API_KEY not set, verification codes are logged instead of mailed")
		mailer = mail.NewLogMailer(logger.Component("mail"))
	}

	// --- Event relay ---
	readiness := map[string]handler.CheckFunc{}
	var publisher queue.Publisher = messaging.NopPublisher{}
	if cfg.NATS.URL != "" {
		nc, err := messaging.Connect(messaging.Config{
			URL:           cfg.NATS.URL,
			User:          cfg.NATS.User,
			Password:      cfg.NATS.Password,
			Name:          "chat-server",
			SubjectPrefix: cfg.NATS.SubjectPrefix,
		}, logger.Component("nats"))
		if err != nil {
			return err
		}
		defer func() { _ = nc.Close() }()
		publisher = nc
		readiness["nats"] = nc.Ping
	}

	relayCtx, stopRelay := context.WithCancel(context.Background())
	dispatcher := queue.NewDispatcher(cfg.NATS.Workers, publisher, logger.Component("relay"))
	dispatcher.Start(relayCtx)

	// --- Realtime core ---
	gateway := realtime.NewGateway(realtime.NewRegistry(), logger.Component("realtime"), realtime.WithQueueSize(cfg.Realtime.QueueSize))

	// --- Services ---
	resendLimiter := redisstore.NewFixedWindowLimiter(rdb, "otp_resend", 1, cfg.OTP.ResendCooldown)
	authService := service.NewAuthService(users, mediaStore, mailer, resendLimiter, service.AuthConfig{
		JWTSecret: cfg.JWTSecret,
		TokenTTL:  cfg.SessionTTL,
		OTPTTL:    cfg.OTP.TTL,
	}, logger.Component("auth"))
	chatService := service.NewChatService(users, messages, mediaStore, gateway, dispatcher, logger.Component("chat"))

	e := api.NewRouter(api.Dependencies{
		Config:          cfg,
		Log:             log,
		DB:              db,
		Redis:           rdb,
		AuthService:     authService,
		ChatService:     chatService,
		Gateway:         gateway,
		ReadinessChecks: readiness,
	})

	srvErr := make(chan error, 1)
	go func() {
		log.Info().Str("port", cfg.Port).Str("env", cfg.Env).Msg("http server listening")
		if err := e.Start(":" + cfg.Port); err != nil && !errors.Is(err, http.ErrServerClosed) {
			srvErr <- err
		}
		close(srvErr)
	}()

	select {
	case err := <-srvErr:
		if err != nil {
			stopRelay()
			dispatcher.Wait()
			return err
		}
	case <-ctx.Done():
	}

	log.Info().Msg("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	// Hijacked WebSocket connections are not tracked by the HTTP server.
	gateway.CloseAll()
	if err := e.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("http shutdown")
	}

	stopRelay()
	dispatcher.Wait()

	log.Info().Msg("server stopped")
	return nil
}
