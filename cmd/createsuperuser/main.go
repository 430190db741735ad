// Command createsuperuser provisions an active superuser account.
//
//	createsuperuser -username root -email root@share.pet
//
// The password is read from SHARE_PET_SUPERUSER_PASSWORD when -password is not given.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"

	"github.com/share-pet/share-pet/internal/account"
	"github.com/share-pet/share-pet/internal/database"
	"github.com/share-pet/share-pet/internal/repository"
	"github.com/share-pet/share-pet/internal/validation"
	"github.com/share-pet/share-pet/pkg/config"
	"github.com/share-pet/share-pet/pkg/logger"
)

const passwordEnv = "SHARE_PET_SUPERUSER_PASSWORD"

func main() {
	username := flag.String("username", "", "superuser username")
	email := flag.String("email", "", "superuser e-mail address")
	password := flag.String("password", "", "superuser password (defaults to $"+passwordEnv+")")
	flag.Parse()

	if *password == "" {
		*password = os.Getenv(passwordEnv)
	}

	if err := run(context.Background(), *username, *email, *password); err != nil {
		fmt.Fprintln(os.Stderr, "createsuperuser:", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, username, email, password string) error {
	if password == "" {
		return errors.New("password is required")
	}

	cfg, _, err := config.Load()
	if err != nil {
		return err
	}

	log, logFile := logger.New(cfg.Logger, cfg.Sentry)
	defer logFile.Close()

	db, err := database.Open(ctx, cfg.Database)
	if err != nil {
		return err
	}
	defer db.Close()

	if err := database.Migrate(ctx, db, cfg.Database.Driver, log); err != nil {
		return err
	}

	accounts := account.NewService(account.Deps{
		DB:            db,
		Accounts:      repository.NewAccountRepository(db, log),
		Settings:      repository.NewSettingRepository(db, log),
		Notifications: repository.NewNotificationRepository(db, log),
		Blacklist:     validation.NewBlacklist(cfg.Accounts.UsernameBlacklist...),
		Log:           log,
	}, cfg.Accounts, cfg.App.BaseURL)

	superuser, err := accounts.CreateSuperuser(ctx, username, email, password)
	if err != nil {
		return err
	}

	log.Info("superuser created", slog.Int64("account_id", superuser.ID))
	fmt.Printf("Superuser created successfully (id=%d).\n", superuser.ID)
	return nil
}
