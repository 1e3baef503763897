package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/yairigal/train-coupon-bot/internal/config"
	"github.com/yairigal/train-coupon-bot/internal/conversation"
	"github.com/yairigal/train-coupon-bot/internal/logger"
	"github.com/yairigal/train-coupon-bot/internal/rail"
	"github.com/yairigal/train-coupon-bot/internal/storage"
	"github.com/yairigal/train-coupon-bot/internal/telegram"
	"log/slog"
)

const defaultConfigPath = "config.yaml"

func main() {
	if err := run(); err != nil {
		log.Fatalf("bot: %v", err)
	}
}

func run() error {
	cfgPath := os.Getenv("CONFIG_PATH")
	if cfgPath == "" {
		cfgPath = defaultConfigPath
	}
	log.Printf("loading config: %s", cfgPath)

	cfg, err := config.Load(cfgPath)
	if err != nil {
		return err
	}

	if err := logger.InitLogger(cfg.Logging); err != nil {
		return err
	}
	defer func() {
		if err := logger.Shutdown(); err != nil {
			log.Printf("logger shutdown error: %v", err)
		}
	}()

	db, err := storage.Connect(cfg.Database)
	if err != nil {
		return err
	}
	defer db.Close()

	if err := storage.RunMigrations(cfg.Database); err != nil {
		return err
	}

	store := storage.NewStore(db)

	railClient := rail.NewClient(rail.Config{
		ScheduleURL:    cfg.Rail.ScheduleURL,
		ReservationURL: cfg.Rail.ReservationURL,
		Timeout:        time.Duration(cfg.Rail.TimeoutSeconds) * time.Second,
		Proxy:          cfg.Rail.Proxy,
	})
	search := rail.NewSearchService(railClient)
	reserver := rail.NewReservationService(railClient, search)

	bot, err := telegram.New(cfg)
	if err != nil {
		return err
	}

	engine := conversation.NewEngine(
		conversation.NewManager(store),
		search,
		reserver,
		store,
		bot,
		conversation.Options{
			IsAdmin:        cfg.IsAdmin,
			BroadcastDelay: time.Duration(cfg.Telegram.BroadcastDelayMS) * time.Millisecond,
		},
	)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	startedAt := time.Now()
	logger.L.With("component", "app").Info("app ready",
		slog.String("event", "ready"),
		slog.Duration("startup_duration", logger.Took(startedAt)),
	)

	err = bot.Run(ctx, engine)

	logger.L.With("component", "app").Info("shutting down...",
		slog.String("event", "shutdown"),
	)
	return err
}
