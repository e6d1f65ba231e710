package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/jmoiron/sqlx"

	"github.com/dukerupert/focusloop/internal/backend"
	"github.com/dukerupert/focusloop/internal/biometric"
	"github.com/dukerupert/focusloop/internal/config"
	"github.com/dukerupert/focusloop/internal/featureflag"
	"github.com/dukerupert/focusloop/internal/keychain"
	"github.com/dukerupert/focusloop/internal/logging"
	"github.com/dukerupert/focusloop/internal/partnership"
	"github.com/dukerupert/focusloop/internal/realtime"
	"github.com/dukerupert/focusloop/internal/securestore"
	"github.com/dukerupert/focusloop/internal/settings"
	"github.com/dukerupert/focusloop/internal/storage"
)

func main() {
	cfg := config.Load()
	logger := logging.Setup(cfg.LogLevel, cfg.LogFormat)

	db, err := storage.Open(cfg.DBPath)
	if err != nil {
		log.Fatalf("failed to open local database: %v", err)
	}
	defer db.Close()
	kv := storage.NewKV(db)

	keys, err := keychain.NewFileStore(cfg.KeychainDir, cfg.KeychainPassphrase)
	if err != nil {
		log.Fatalf("failed to open keychain: %v", err)
	}
	secure := securestore.New(keys, logger)

	gate := biometric.NewGate(biometric.Unsupported{}, secure, logger)
	settingsStore := settings.NewStore(kv, logger)

	var remoteDB *sqlx.DB
	var flagRemote featureflag.RemoteSource
	online := func() bool { return false }
	if cfg.BackendDSN != "" {
		remoteDB, err = backend.Connect(backend.Config{DSN: cfg.BackendDSN})
		if err != nil {
			logger.Warn("backend unreachable, running offline", "error", err)
		} else {
			defer remoteDB.Close()
			flagRemote = backend.NewFlagSource(remoteDB)
			online = func() bool { return backend.Online(remoteDB) }
		}
	}

	flags := featureflag.New(kv, flagRemote, online, logger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	outcome := flags.InitializeWithRemote(ctx)
	logger.Info("feature flags initialized", "outcome", outcome)

	if _, err := settingsStore.Load(); err != nil {
		logger.Warn("settings load failed, using defaults", "error", err)
	}
	if gate.Locked() {
		logger.Info("app lock engaged", "support", gate.CheckSupport(ctx))
	}

	if remoteDB != nil {
		var feed partnership.Feed
		if flags.Flag(featureflag.EnableRealtimeSync) && cfg.RealtimeURL != "" {
			token, err := backend.IssueServiceToken([]byte(cfg.BackendJWTSecret), cfg.UserID, cfg.BackendTokenTTL)
			if err != nil {
				log.Fatalf("failed to mint realtime token: %v", err)
			}
			client, err := realtime.Dial(ctx, cfg.RealtimeURL, token, logger)
			if err != nil {
				logger.Warn("realtime dial failed, live updates disabled", "error", err)
			} else {
				defer client.Close()
				go client.Run(ctx)
				feed = client
			}
		}

		partnerships := partnership.NewService(partnership.NewPGStore(remoteDB), feed, logger)
		logger.Info("partnership service ready", "realtime", feed != nil)

		if feed != nil && cfg.UserID != "" {
			err := partnerships.Subscribe(ctx, cfg.UserID, func(ev partnership.Event) {
				logger.Info("partnership update",
					"kind", ev.Kind, "id", ev.Partnership.ID, "status", ev.Partnership.Status)
			})
			if err != nil {
				logger.Warn("partnership subscription failed", "error", err)
			}
		}
	} else {
		logger.Info("no backend configured, partnership service disabled")
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down")
}
