package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/weiawesome/wes-io-live/viewer-client/internal/chat"
	"github.com/weiawesome/wes-io-live/viewer-client/internal/client"
	"github.com/weiawesome/wes-io-live/viewer-client/internal/config"
	"github.com/weiawesome/wes-io-live/viewer-client/internal/handler"
	"github.com/weiawesome/wes-io-live/viewer-client/internal/identity"
	"github.com/weiawesome/wes-io-live/viewer-client/internal/media"
	"github.com/weiawesome/wes-io-live/viewer-client/internal/playback"
	"github.com/weiawesome/wes-io-live/viewer-client/internal/service"
	pkglog "github.com/weiawesome/wes-io-live/viewer-client/pkg/log"
	"github.com/weiawesome/wes-io-live/viewer-client/pkg/pubsub"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		l := pkglog.L()
		l.Fatal().Err(err).Msg("failed to load configuration")
	}

	// Initialize structured logger
	pkglog.Init(pkglog.Config{Level: cfg.Log.Level, Pretty: cfg.Log.Pretty, ServiceName: "viewer-client"})
	logger := pkglog.L()

	if err := cfg.Validate(); err != nil {
		logger.Fatal().Err(err).Msg("invalid configuration")
	}
	videoID := cfg.Playback.VideoID

	sessionID := cfg.Session.ID
	if sessionID == "" {
		sessionID = uuid.New().String()
	}

	logger.Info().
		Str(pkglog.FieldVideoID, videoID).
		Str("session_id", sessionID).
		Str("api", cfg.API.BaseURL).
		Msg("starting viewer-client")

	// Create session store
	var store identity.SessionStore
	switch cfg.Session.Store {
	case "redis":
		redisStore, err := identity.NewRedisStore(identity.RedisConfig{
			Address:  cfg.Session.Redis.Address,
			Password: cfg.Session.Redis.Password,
			DB:       cfg.Session.Redis.DB,
			TTL:      cfg.Session.TTL,
		})
		if err != nil {
			logger.Fatal().Err(err).Msg("failed to create redis session store")
		}
		store = redisStore
	default:
		store = identity.NewMemoryStore()
	}
	defer store.Close()

	// Create telemetry publisher
	ps, err := pubsub.NewPubSub(cfg.Telemetry)
	if err != nil {
		logger.Warn().Err(err).Str("driver", cfg.Telemetry.Driver).Msg("failed to create telemetry publisher, telemetry disabled")
		ps = pubsub.Nop{}
	}
	defer ps.Close()

	// Create API client and player
	apiClient := client.NewAPIClient(client.Config{
		BaseURL: cfg.API.BaseURL,
		Token:   cfg.API.Token,
		Timeout: cfg.API.Timeout,
	})

	player := media.NewVirtual(media.Config{
		VideoID:         videoID,
		AutoplayBlocked: cfg.Media.AutoplayBlocked,
		ProbeTimeout:    cfg.Media.ProbeTimeout,
	}, apiClient)

	// Create service
	svcConfig := service.Config{
		VideoID: videoID,
		Playback: playback.Config{
			CorrectionInterval: cfg.Playback.CorrectionInterval,
			DriftThreshold:     cfg.Playback.DriftThreshold,
			SeekTolerance:      cfg.Playback.SeekTolerance,
			AutoplayAttempts:   cfg.Playback.AutoplayAttempts,
			AutoplayRetryDelay: cfg.Playback.AutoplayRetryDelay,
		},
		Chat: chat.Config{
			URL:              cfg.Chat.URL,
			ReconnectDelay:   cfg.Chat.ReconnectDelay,
			WriteWait:        cfg.Chat.WriteWait,
			MaxMessageLength: cfg.Chat.MaxMessageLength,
			MaxFrameSize:     cfg.Chat.MaxFrameSize,
		},
		PollInterval: cfg.Presence.PollInterval,
	}
	svc := service.NewWatchService(svcConfig, service.Deps{
		API:       apiClient,
		Player:    player,
		Identity:  identity.NewResolver(cfg.API.Token, sessionID, cfg.Session.GuestPrefix, store),
		Publisher: ps,
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := svc.Start(ctx); err != nil {
		logger.Fatal().Err(err).Msg("failed to start watch service")
	}

	// Status API
	var server *http.Server
	if cfg.Server.Enabled {
		gin.SetMode(gin.ReleaseMode)
		r := gin.New()
		r.Use(gin.Recovery())
		r.Use(pkglog.GinMiddleware(logger))

		r.GET("/health", func(c *gin.Context) {
			c.JSON(200, gin.H{"status": "ok"})
		})
		handler.NewHandler(svc).RegisterRoutes(r)

		addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
		server = &http.Server{
			Addr:         addr,
			Handler:      r,
			ReadTimeout:  15 * time.Second,
			WriteTimeout: 15 * time.Second,
			IdleTimeout:  60 * time.Second,
		}

		go func() {
			logger.Info().Str("addr", addr).Msg("status api listening")
			if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				logger.Fatal().Err(err).Msg("server error")
			}
		}()
	}

	// Wait for shutdown signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info().Msg("shutting down viewer-client")

	shutdownDone := make(chan struct{})
	go func() {
		defer close(shutdownDone)

		if server != nil {
			shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer shutdownCancel()
			if err := server.Shutdown(shutdownCtx); err != nil {
				logger.Error().Err(err).Msg("server shutdown error")
			}
		}

		svc.Stop() // timers, chat DISCONNECT, poller, telemetry flush
		cancel()
	}()

	select {
	case <-shutdownDone:
		logger.Info().Msg("viewer-client stopped")
	case <-time.After(30 * time.Second):
		logger.Warn().Msg("shutdown timed out after 30s")
	}
}
