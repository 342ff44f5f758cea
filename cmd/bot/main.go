package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"community_ops_bot/internal/app"
	"community_ops_bot/internal/infra/config"
	idb "community_ops_bot/internal/infra/database"
	"community_ops_bot/internal/infra/gemini"
	"community_ops_bot/internal/infra/logger"
	"community_ops_bot/internal/infra/scheduler"
	"community_ops_bot/internal/infra/telegram"

	"github.com/sirupsen/logrus"
	"gopkg.in/telebot.v3"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logrus.Fatalf("Could not load application configuration: %v", err)
	}

	log := logger.New(cfg)
	log.WithFields(logrus.Fields{
		"log_level":   cfg.LogLevel,
		"environment": cfg.Environment,
		"timezone":    cfg.Location.String(),
	}).Info("Configuration loaded")
	if cfg.TimezoneFallback {
		log.Warnf("Timezone %q not recognized, falling back to UTC", cfg.TimezoneName)
	}

	db, err := idb.NewPostgresConnection(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("Could not connect to database: %v", err)
	}
	defer db.Close()

	startupCtx, cancelStartup := context.WithTimeout(context.Background(), 30*time.Second)
	if err := idb.EnsureSchema(startupCtx, db); err != nil {
		cancelStartup()
		log.Fatalf("Could not ensure database schema: %v", err)
	}
	cancelStartup()
	log.Info("Database connection established and schema ensured")

	broadcastRepo := idb.NewPostgresBroadcastRepository(db)
	shiftLogRepo := idb.NewPostgresShiftLogRepository(db, cfg.Location)
	nicknameRepo := idb.NewPostgresNicknameRepository(db)

	generator := gemini.NewClient(cfg.GeminiAPIKey, cfg.GeminiModel)

	broadcastService := app.NewBroadcastService(broadcastRepo, generator, log)
	shiftLogService := app.NewShiftLogService(shiftLogRepo, nicknameRepo, cfg.Location, log)
	reportService := app.NewReportService(shiftLogRepo, nicknameRepo, cfg.Location, log)

	pref := telebot.Settings{
		Token:  cfg.TelegramToken,
		Poller: &telebot.LongPoller{Timeout: 10 * time.Second},
		OnError: func(err error, c telebot.Context) {
			entry := log.WithError(err)
			if c != nil && c.Sender() != nil {
				entry = entry.WithField("sender_id", c.Sender().ID)
			}
			entry.Error("Unhandled bot error")
		},
	}
	bot, err := telebot.NewBot(pref)
	if err != nil {
		log.Fatalf("Could not create Telegram bot: %v", err)
	}

	gateway := telegram.NewTelebotAdapter(bot)
	delivery := scheduler.NewDeliveryScheduler(broadcastRepo, gateway, log, cfg.DeliveryPollInterval)
	if err := delivery.Start(); err != nil {
		log.Fatalf("Could not start delivery scheduler: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	telegram.RegisterOperatorHandlers(ctx, bot, broadcastService, shiftLogService, reportService, cfg.Location, log.WithField("component", "telegram"))
	log.Info("Operator command handlers registered")

	go bot.Start()
	log.Info("Bot started")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down")
	cancel()
	delivery.Stop()
	bot.Stop()
	log.Info("Shut down gracefully")
}
