package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/share-pet/share-pet/internal/account"
	"github.com/share-pet/share-pet/internal/api"
	"github.com/share-pet/share-pet/internal/chat"
	"github.com/share-pet/share-pet/internal/database"
	"github.com/share-pet/share-pet/internal/domain"
	apperrors "github.com/share-pet/share-pet/internal/errors"
	"github.com/share-pet/share-pet/internal/health"
	"github.com/share-pet/share-pet/internal/i18n"
	"github.com/share-pet/share-pet/internal/langcache"
	"github.com/share-pet/share-pet/internal/lifecycle"
	"github.com/share-pet/share-pet/internal/mail"
	"github.com/share-pet/share-pet/internal/media"
	"github.com/share-pet/share-pet/internal/middleware"
	"github.com/share-pet/share-pet/internal/profile"
	"github.com/share-pet/share-pet/internal/ratelimit"
	"github.com/share-pet/share-pet/internal/repository"
	"github.com/share-pet/share-pet/internal/session"
	"github.com/share-pet/share-pet/internal/validation"
	"github.com/share-pet/share-pet/pkg/config"
	"github.com/share-pet/share-pet/pkg/graceful"
	"github.com/share-pet/share-pet/pkg/logger"
	"github.com/share-pet/share-pet/pkg/metrics"
	appredis "github.com/share-pet/share-pet/pkg/redis"
)

var version = "dev"

func main() {
	if err := run(); err != nil {
		slog.Error("share-pet server stopped", slog.Any("error", err))
		os.Exit(1)
	}
}

func run() error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, v, err := config.Load()
	if err != nil {
		return err
	}

	log, logFile := logger.New(cfg.Logger, cfg.Sentry)
	slog.SetDefault(log)
	log.Info("starting share-pet server",
		slog.String("env", cfg.AppEnv),
		slog.String("version", version),
		slog.String("addr", cfg.HTTP.Addr),
	)

	shutdown := lifecycle.NewShutdown(log)
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
		defer cancel()
		if err := shutdown.Execute(shutdownCtx); err != nil {
			log.Error("shutdown finished with errors", slog.Any("error", err))
		}
	}()
	shutdown.Register("log file", lifecycle.Closer(logFile.Close))

	flushSentry, err := logger.InitSentry(cfg.Sentry, cfg.AppEnv, version)
	if err != nil {
		return err
	}
	shutdown.Register("sentry", func(context.Context) error {
		flushSentry(2 * time.Second)
		return nil
	})

	db, err := database.Open(ctx, cfg.Database)
	if err != nil {
		return err
	}
	shutdown.Register("database", lifecycle.Closer(db.Close))

	if err := database.Migrate(ctx, db, cfg.Database.Driver, log); err != nil {
		return err
	}

	rdb, err := appredis.New(ctx, cfg.Redis)
	if err != nil {
		return err
	}
	shutdown.Register("redis", lifecycle.Closer(rdb.Close))

	queue := mail.NewQueue(mail.RedisOpt(cfg.Redis), cfg.Mail.MaxRetry, log)
	shutdown.Register("mail queue", lifecycle.Closer(queue.Close))

	storage, err := media.New(cfg.Media, log)
	if err != nil {
		return err
	}

	translations, err := i18n.Load(string(domain.LanguageEN))
	if err != nil {
		return err
	}

	accountsRepo := repository.NewAccountRepository(db, log)
	settings := repository.NewSettingRepository(db, log)
	notifications := repository.NewNotificationRepository(db, log)

	blacklist := validation.NewBlacklist(cfg.Accounts.UsernameBlacklist...)
	config.Watch(v, log, func(next *config.Config) {
		blacklist.Set(next.Accounts.UsernameBlacklist)
	})

	memoryLimiter := ratelimit.NewMemoryLimiter(log)
	limiter := ratelimit.NewAdaptiveLimiter(ratelimit.NewRedisLimiter(rdb, log), memoryLimiter, log)
	go ratelimit.NewCleaner(memoryLimiter, log, time.Minute, 10*time.Minute).Run(ctx)
	rules := ratelimit.NewRules(cfg.Accounts, cfg.HTTP)

	sessions := session.NewStore(rdb, cfg.Session.TTL, log)
	cookies := session.NewCookies(cfg.Session, sessions)

	accounts := account.NewService(account.Deps{
		DB:            db,
		Accounts:      accountsRepo,
		Settings:      settings,
		Notifications: notifications,
		Keys:          session.NewKeyStore(rdb, log),
		Mail:          queue,
		Media:         storage,
		Limiter:       limiter,
		Blacklist:     blacklist,
		Log:           log,
	}, cfg.Accounts, cfg.App.BaseURL)

	profiles := profile.NewService(accountsRepo, settings, notifications, blacklist, log,
		profile.WithTransitionRecorder(profile.PrometheusRecorder),
	)

	hub := chat.NewHub(log, nil)
	shutdown.Register("chat hub", func(context.Context) error {
		hub.Close()
		return nil
	})
	chats := chat.NewService(repository.NewChatRepository(db, log), storage, hub, log)

	checker := health.NewChecker(log)
	checker.AddCheck("database", health.NewDBChecker(db))
	checker.AddCheck("redis", health.NewRedisChecker(rdb))

	go metrics.NewAccountsCollector(accountsRepo, log, time.Minute).Run(ctx)

	var mediaFiles http.Handler
	if cfg.Media.Backend == "" || cfg.Media.Backend == "local" {
		mediaFiles = http.StripPrefix("/media/", http.FileServer(http.Dir(cfg.Media.Root)))
	}

	errHandler := apperrors.NewHandler(log, cfg.Sentry.Enabled)
	server := api.NewServer(api.Deps{
		Profiles:     profiles,
		Accounts:     accounts,
		Chats:        chats,
		Hub:          hub,
		Sessions:     sessions,
		Cookies:      cookies,
		Settings:     settings,
		Languages:    langcache.NewCache(rdb, langcache.DefaultTTL),
		Translations: translations,
		Errors:       errHandler,
		Health:       checker,
		Metrics:      promhttp.Handler(),
		Media:        mediaFiles,
		Config:       cfg.Accounts,
		Log:          log,
	})

	handler := middleware.Chain(
		server.Routes(),
		logger.Middleware,
		middleware.Recovery(errHandler, log),
		middleware.Logging(log),
		middleware.NewRateLimit(limiter, rules, log).Handle,
		session.Middleware(sessions, cookies, accountsRepo, log),
		middleware.Metrics,
	)

	return graceful.NewServer(log, cfg.HTTP, handler).ListenAndServe(ctx)
}
