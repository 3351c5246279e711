package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"guildwarden/internal/analytics"
	"guildwarden/internal/bot"
	"guildwarden/internal/config"
	"guildwarden/internal/guildcfg"
	"guildwarden/internal/logsink"
	"guildwarden/internal/modules/automod"
	"guildwarden/internal/modules/leveling"
	"guildwarden/internal/modules/reactionroles"
	"guildwarden/internal/modules/spamguard"
	"guildwarden/internal/modules/warnings"
	"guildwarden/internal/storage"

	"go.uber.org/zap"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	logger, err := config.BuildLogger(cfg.LogLevel)
	if err != nil {
		panic(err)
	}
	defer func() {
		_ = logger.Sync()
	}()

	store, err := storage.New(cfg.DatabasePath)
	if err != nil {
		logger.Fatal("storage init failed", zap.Error(err))
	}
	defer store.Close()
	if err := store.Migrate(); err != nil {
		logger.Fatal("migrations failed", zap.Error(err))
	}

	loadCtx, loadCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer loadCancel()

	configs, err := guildcfg.NewStore(loadCtx, store, logger)
	if err != nil {
		logger.Fatal("guild config load failed", zap.Error(err))
	}
	levels, err := leveling.NewEngine(loadCtx, cfg.Leveling.XPPerMessage, time.Duration(cfg.Leveling.CooldownSeconds)*time.Second, store, logger)
	if err != nil {
		logger.Fatal("leveling load failed", zap.Error(err))
	}
	reactions, err := reactionroles.NewRegistry(loadCtx, store, logger)
	if err != nil {
		logger.Fatal("reaction role load failed", zap.Error(err))
	}
	warns, err := warnings.NewCounter(loadCtx, store, logger)
	if err != nil {
		logger.Fatal("warnings load failed", zap.Error(err))
	}

	spam := spamguard.New(cfg.AutoMod.SpamMaxMessages, time.Duration(cfg.AutoMod.SpamWindowMS)*time.Millisecond)
	pipeline := automod.New(spam, levels)
	sink := logsink.New(store, logger)
	reports := analytics.New(store)

	botSvc, err := bot.New(cfg, logger, store, configs, pipeline, levels, reactions, warns, sink, reports)
	if err != nil {
		logger.Fatal("bot init failed", zap.Error(err))
	}

	if err := botSvc.Start(); err != nil {
		logger.Fatal("bot start failed", zap.Error(err))
	}
	logger.Info("bot started")

	var server *http.Server
	if cfg.Health.Enabled {
		server = &http.Server{Addr: cfg.Health.Addr}
		http.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusOK)
			_, _ = w.Write([]byte("ok"))
		})
		go func() {
			logger.Info("health endpoint enabled", zap.String("addr", cfg.Health.Addr))
			if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				logger.Error("health server error", zap.Error(err))
			}
		}()
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh
	logger.Info("shutdown requested")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if server != nil {
		_ = server.Shutdown(ctx)
	}
	botSvc.Close(ctx)
}
