package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/share-pet/share-pet/internal/domain"
	apperrors "github.com/share-pet/share-pet/internal/errors"
	"github.com/share-pet/share-pet/internal/i18n"
	"github.com/share-pet/share-pet/internal/mail"
	"github.com/share-pet/share-pet/pkg/config"
	"github.com/share-pet/share-pet/pkg/logger"
)

func main() {
	if err := run(); err != nil {
		slog.Error("share-pet mail worker stopped", slog.Any("error", err))
		os.Exit(1)
	}
}

func run() error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, _, err := config.Load()
	if err != nil {
		return err
	}

	log, logFile := logger.New(cfg.Logger, cfg.Sentry)
	defer logFile.Close()
	slog.SetDefault(log)

	flushSentry, err := logger.InitSentry(cfg.Sentry, cfg.AppEnv, "")
	if err != nil {
		return err
	}
	defer flushSentry(2 * time.Second)

	translations, err := i18n.Load(string(domain.LanguageEN))
	if err != nil {
		return err
	}
	renderer, err := mail.NewRenderer(cfg.Mail.From, translations)
	if err != nil {
		return err
	}

	settings := apperrors.DefaultBreakerSettings
	settings.OnStateChange = func(from, to apperrors.State) {
		log.Warn("smtp circuit breaker changed state", slog.String("from", from.String()), slog.String("to", to.String()))
	}
	handler := mail.NewSendHandler(renderer, mail.NewSMTPSender(cfg.Mail), apperrors.NewCircuitBreaker(settings), log)

	worker := mail.NewWorker(mail.RedisOpt(cfg.Redis), cfg.Mail, log)
	worker.Handle(mail.TaskTypeSend, handler)
	if err := worker.Start(); err != nil {
		return err
	}

	<-ctx.Done()
	worker.Shutdown()
	return nil
}
