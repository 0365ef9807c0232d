package main

import (
	"context"
	"database/sql"
	"os"
	"os/signal"
	"syscall"
	"time"

	"wardshift/internal/config"
	"wardshift/internal/database"
	httpapi "wardshift/internal/http"
	"wardshift/internal/logger"
	"wardshift/internal/ratelimit"
	"wardshift/internal/repository"
	"wardshift/internal/service"
	"wardshift/internal/store"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
)

func main() {
	cfg := config.Load()

	zlog, err := logger.NewLogger(cfg.Log.Level, cfg.Log.Format, "wardshift")
	if err != nil {
		panic(err)
	}
	defer zlog.Sync()

	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	kv := store.NewRedisKV(redisClient)

	// Rate-limit store: per-process map by default, Redis when limits must
	// hold across instances.
	var limiterStore ratelimit.Store = ratelimit.NewMemoryStore()
	if cfg.RateLimit.UseRedis {
		limiterStore = ratelimit.NewRedisStore(redisClient)
		zlog.Info("Rate limiting backed by Redis")
	}
	limiter := ratelimit.New(limiterStore)

	// Sessions are issued by the external auth provider; we only validate.
	var sessions httpapi.SessionProvider = httpapi.NewRedisSessions(kv)

	var db *sql.DB
	if cfg.DBEnabled {
		if d, err := database.NewPostgresDB(&cfg.Database); err == nil {
			db = d
			zlog.Info("DB enabled for wardshift")
		} else {
			zlog.Warn("DB enabled but connection failed, falling back to in-memory repositories", zap.Error(err))
		}
	}

	var handoversRepo repository.HandoversRepository
	var profilesRepo repository.ProfilesRepository
	if db != nil {
		handoversRepo = repository.NewPostgresHandoversRepository(db)
		profilesRepo = repository.NewPostgresProfilesRepository(db)
	} else {
		// DB 未就绪：内存 repo 支持联测，会话也退化为内存表
		memProfiles := repository.NewMemoryProfilesRepo()
		staticSessions := httpapi.NewStaticSessions()
		if os.Getenv("SEED_DEV") != "false" {
			p := memProfiles.UpsertProfile("00000000-0000-0000-0000-000000000001",
				"Dev Clinician", "General Hospital", "Internal Medicine")
			staticSessions.Put("dev-token", p.UserID)
			zlog.Info("Seeded dev clinician profile and session token",
				zap.String("user_id", p.UserID))
		}
		handoversRepo = repository.NewMemoryHandoversRepo()
		profilesRepo = memProfiles
		sessions = staticSessions
	}

	handoverService := service.NewHandoverService(handoversRepo, profilesRepo, zlog)

	var extractClient *service.ExtractClient
	if cfg.Extract.Enabled {
		extractClient = service.NewExtractClient(cfg.Extract.BaseURL, cfg.Extract.APIKey,
			time.Duration(cfg.Extract.TimeoutSeconds)*time.Second, zlog)
		zlog.Info("Patient extraction endpoint enabled", zap.String("base_url", cfg.Extract.BaseURL))
	}

	handler := httpapi.NewHandoverHandler(handoverService, extractClient, sessions, limiter, zlog)

	router := httpapi.NewRouter(zlog)
	router.RegisterHandoverRoutes(handler)
	router.RegisterHealthRoutes(httpapi.NewHealthHandler(db, zlog))

	srv := service.NewServer(cfg.HTTP.Addr, router, zlog)

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-sigCh:
	case <-errCh:
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	_ = srv.Stop(shutdownCtx)
	_ = redisClient.Close()
	if db != nil {
		_ = db.Close()
	}
}
