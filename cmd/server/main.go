package main

import (
	"context"
	"encoding/hex"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	httpapi "github.com/tradepost/tradepost/internal/api/http"
	"github.com/tradepost/tradepost/internal/application/audit"
	"github.com/tradepost/tradepost/internal/application/auth"
	"github.com/tradepost/tradepost/internal/application/conversation"
	"github.com/tradepost/tradepost/internal/application/listing"
	"github.com/tradepost/tradepost/internal/application/message"
	"github.com/tradepost/tradepost/internal/application/moderation"
	"github.com/tradepost/tradepost/internal/application/permission"
	"github.com/tradepost/tradepost/internal/application/principal"
	"github.com/tradepost/tradepost/internal/config"
	conv "github.com/tradepost/tradepost/internal/domain/conversation"
	"github.com/tradepost/tradepost/internal/infrastructure/memstore"
	"github.com/tradepost/tradepost/internal/infrastructure/postgres"
	"github.com/tradepost/tradepost/internal/infrastructure/redisstore"
)

func main() {
	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}

	ctx := context.Background()
	pool, err := postgres.NewPool(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("db error: %v", err)
	}
	defer pool.Close()

	if err := postgres.RunMigrations(ctx, pool, "migrations"); err != nil {
		log.Fatalf("migration error: %v", err)
	}

	// repositories
	principalRepo := postgres.NewPrincipalRepository(pool)
	listingRepo := postgres.NewListingRepository(pool)
	messageRepo := postgres.NewMessageRepository(pool)
	warningRepo := postgres.NewWarningRepository(pool)
	filterRepo := postgres.NewFilterRuleRepository(pool)
	auditRepo := postgres.NewAuditRepository(pool)
	sessionRepo := postgres.NewSessionRepository(pool)

	// conversation session store: redis when configured, else in-process
	var convStore conv.Store = memstore.New()
	if cfg.RedisAddr != "" {
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
		})
		if err := rdb.Ping(ctx).Err(); err != nil {
			log.Fatalf("redis error: %v", err)
		}
		convStore = redisstore.New(rdb, cfg.ConversationTTL)
	} else {
		logger.Warn().Msg("REDIS_ADDR not set, conversation sessions are in-process only")
	}

	// services
	adminIDs := cfg.AdminPrincipalIDs
	if cfg.SuperAdminID != 0 {
		adminIDs = append(adminIDs, cfg.SuperAdminID)
	}
	perms := permission.NewService(adminIDs, logger)
	principalSvc := principal.NewService(principalRepo, logger)
	listingSvc := listing.NewService(listingRepo, listing.Limits{
		MaxPhotos: cfg.MaxPhotos,
		MinPrice:  cfg.MinPrice,
		MaxPrice:  cfg.MaxPrice,
	}, logger)
	messageSvc := message.NewService(messageRepo, listingRepo, logger)
	auditSvc := audit.NewService(auditRepo, logger, loadHexKey(cfg.AuditSigningKey))
	moderationSvc := moderation.NewService(
		perms, auditSvc, principalRepo, listingRepo, warningRepo, filterRepo,
		cfg.AuditRecordDenied, logger,
	)
	authSvc := auth.NewService(principalRepo, sessionRepo, cfg.SessionTTL, logger)

	controller := conversation.NewController(
		convStore, principalSvc, listingSvc, messageSvc, moderationSvc, perms,
		conversation.Options{
			MaxPhotos: cfg.MaxPhotos,
			PageSize:  cfg.PageSize,
			MinPrice:  cfg.MinPrice,
			MaxPrice:  cfg.MaxPrice,
		},
		logger,
	)

	// API server
	apiServer := httpapi.NewServer(
		controller, authSvc, auditSvc, moderationSvc, principalSvc, listingSvc, perms,
		cfg.SessionCookieName, cfg.SessionCookieSecure,
	)

	httpServer := &http.Server{
		Addr:         cfg.ServerAddr,
		Handler:      apiServer.Router(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// background loops
	go func() {
		ticker := time.NewTicker(cfg.FilterSweepInterval)
		defer ticker.Stop()
		for range ticker.C {
			if n, err := moderationSvc.ApplyFilters(context.Background()); err != nil {
				logger.Error().Err(err).Msg("filter sweep failed")
			} else if n > 0 {
				logger.Info().Int("flagged", n).Msg("filter sweep flagged listings")
			}
		}
	}()

	go func() {
		ticker := time.NewTicker(time.Hour)
		defer ticker.Stop()
		for range ticker.C {
			_, _ = moderationSvc.ExpireWarnings(context.Background())
			_, _ = authSvc.CleanupExpired(context.Background())
		}
	}()

	// start server
	go func() {
		logger.Info().Str("addr", cfg.ServerAddr).Msg("http server started")
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("http server failed")
		}
	}()

	// graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	ctxShutdown, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = httpServer.Shutdown(ctxShutdown)
}

func loadHexKey(hexStr string) []byte {
	if hexStr == "" {
		return nil
	}
	b, err := hex.DecodeString(hexStr)
	if err != nil {
		return nil
	}
	return b
}
