// Package main запускает HTTP-сервер сервиса наград мини-приложения.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/mmeshcher/coin-rewards/internal/adnetwork"
	"github.com/mmeshcher/coin-rewards/internal/config"
	"github.com/mmeshcher/coin-rewards/internal/handler"
	"github.com/mmeshcher/coin-rewards/internal/hostbridge"
	"github.com/mmeshcher/coin-rewards/internal/metrics"
	"github.com/mmeshcher/coin-rewards/internal/middleware"
	"github.com/mmeshcher/coin-rewards/internal/repository"
	"github.com/mmeshcher/coin-rewards/internal/service"
)

func main() {
	logger, _ := zap.NewProduction()
	defer logger.Sync()

	sugar := logger.Sugar()

	cfg, err := config.Parse()
	if err != nil {
		sugar.Fatalw("configuration error", "error", err.Error())
	}

	loc, err := cfg.Location()
	if err != nil {
		sugar.Fatalw("configuration error", "error", err.Error())
	}

	kv, err := repository.Open(cfg.StorageDriver, cfg.DatabaseURI)
	if err != nil {
		sugar.Fatalw("storage initialization error", "driver", cfg.StorageDriver, "error", err.Error())
	}
	repo := repository.NewStateRepository(kv)

	m := metrics.New()

	notifiers, err := hostNotifiers(cfg, logger)
	if err != nil {
		sugar.Fatalw("host bridge initialization error", "error", err.Error())
	}
	dispatcher := hostbridge.NewDispatcher(logger, cfg.HostQueueSize, func(ev hostbridge.Event) {
		m.HostEventsDrop.WithLabelValues(ev.Action).Inc()
	}, notifiers...)

	var adClients []*adnetwork.Client
	for _, addr := range cfg.AdNetworkAddrs() {
		adClients = append(adClients, adnetwork.NewClient(addr))
	}
	bridge := adnetwork.NewBridge(logger, adnetwork.DefaultPollInterval, cfg.AdReadyRetries, adClients...)

	svc := service.NewService(repo, bridge, dispatcher, m, logger, service.WithLocation(loc))
	defer svc.Close()

	if cfg.AllowFallbackUser {
		sugar.Warn("fallback user enabled: requests without init data are served as the test user")
	}
	authMiddleware := middleware.NewAuthMiddleware(cfg.BotToken, cfg.AllowFallbackUser, logger)
	h := handler.NewHandler(svc, logger, authMiddleware, m.Handler())

	server := &http.Server{
		Addr:    cfg.RunAddress,
		Handler: h.SetupRouter(),
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)

	// Опрос готовности рекламной сети
	g.Go(func() error {
		bridge.Run(ctx)
		return nil
	})

	// Доставка уведомлений хосту
	g.Go(func() error {
		dispatcher.Run(ctx)
		return nil
	})

	// Запуск HTTP-сервера
	g.Go(func() error {
		sugar.Infow("starting rewards server",
			"addr", cfg.RunAddress,
			"storage", cfg.StorageDriver,
			"hostNotifiers", len(notifiers),
			"adProviders", len(adClients),
		)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})

	// Graceful shutdown при отмене контекста (сигнал или ошибка в другой горутине)
	g.Go(func() error {
		<-ctx.Done()
		sugar.Info("shutting down server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server shutdown error: %w", err)
		}
		sugar.Info("server stopped gracefully")
		return nil
	})

	if err := g.Wait(); err != nil {
		sugar.Fatalw("application terminated with error", "error", err)
	}
}

func hostNotifiers(cfg *config.Config, logger *zap.Logger) ([]hostbridge.Notifier, error) {
	var notifiers []hostbridge.Notifier

	if cfg.BotToken != "" && cfg.HostChatID != 0 {
		tg, err := hostbridge.NewTelegramNotifier(cfg.BotToken, cfg.HostChatID)
		if err != nil {
			return nil, err
		}
		notifiers = append(notifiers, tg)
	}

	if cfg.HostWebhookURL != "" {
		notifiers = append(notifiers, hostbridge.NewWebhookNotifier(cfg.HostWebhookURL, cfg.WebhookRetryMax))
	}

	if cfg.LogHostEvents {
		notifiers = append(notifiers, hostbridge.NewLogNotifier(logger))
	}

	return notifiers, nil
}
