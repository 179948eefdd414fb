package main

import (
	"context"
	"os"
	"os/signal"
	"sync"
	"syscall"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"

	"daily-tracker/internal/clock"
	"daily-tracker/internal/config"
	"daily-tracker/internal/events"
	"daily-tracker/internal/logging"
	"daily-tracker/internal/metrics"
	"daily-tracker/internal/notify"
	"daily-tracker/internal/repository"
	"daily-tracker/internal/service"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		boot := logging.New("info", "console")
		boot.Fatal().Err(err).Msg("config")
	}
	log := logging.New(cfg.LogLevel, cfg.LogFormat)

	loc, err := cfg.Location()
	if err != nil {
		log.Fatal().Err(err).Msg("timezone")
	}

	db, err := repository.NewDB(cfg.DatabaseURL, log)
	if err != nil {
		log.Fatal().Err(err).Msg("db")
	}
	sqlDB, err := db.DB()
	if err == nil {
		defer sqlDB.Close()
	}

	userRepo := repository.NewUserRepository(db)
	taskRepo := repository.NewTaskRepository(db)
	reminderRepo := repository.NewReminderRepository(db)
	summaryRepo := repository.NewSummaryRepository(db)
	notificationRepo := repository.NewNotificationRepository(db)

	m := metrics.New()
	bus := events.New()
	hub := notify.NewHub()
	clk := clock.System{Loc: loc}

	dispatcher := notify.NewDispatcher(log, m, cfg.ChannelTimeout, buildChannels(cfg, hub, notificationRepo, log)...)

	reminderSvc := service.NewReminderService(taskRepo, userRepo, loc, log)
	ledger := service.NewLedger(reminderRepo, clk, m)
	recurrenceSvc := service.NewRecurrenceService(taskRepo, cfg.RecurrenceDays, loc, bus, m, log)
	rolloverSvc := service.NewRolloverService(taskRepo, summaryRepo, loc, bus, m, log)

	loop := service.NewLoop(service.LoopConfig{
		RolloverAt:      cfg.RolloverAt,
		RecurrenceAt:    cfg.RecurrenceAt,
		Workers:         cfg.TickWorkers,
		GenerateOnStart: cfg.GenerateOnStart,
	}, service.LoopDeps{
		Trigger:    service.NewSchedulerService(loc, log),
		Clock:      clk,
		Reminders:  reminderSvc,
		Ledger:     ledger,
		Dispatcher: dispatcher,
		Recurrence: recurrenceSvc,
		Rollover:   rolloverSvc,
		Bus:        bus,
		Metrics:    m,
	}, log)

	var wg sync.WaitGroup
	relay := notify.NewRelay(bus, hub, log)
	wg.Add(1)
	go func() {
		defer wg.Done()
		relay.Run(ctx)
	}()

	if cfg.MetricsAddr != "" {
		health := func(ctx context.Context) error {
			if sqlDB == nil {
				return nil
			}
			return sqlDB.PingContext(ctx)
		}
		srv := metrics.NewServer(cfg.MetricsAddr, metrics.NewRouter(m, health), log)
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := srv.Run(ctx); err != nil {
				log.Error().Err(err).Msg("metrics server stopped")
			}
		}()
	}

	if err := loop.Start(ctx); err != nil {
		log.Fatal().Err(err).Msg("scheduler")
	}

	log.Info().Str("tz", loc.String()).Str("db", cfg.DatabaseURL).Msg("Reminder daemon started.")
	<-ctx.Done()

	loop.Stop()
	wg.Wait()
	log.Info().Msg("Shutdown complete.")
}

// buildChannels returns every outbound channel. Channels without credentials
// are still registered; they skip every send.
func buildChannels(cfg config.Config, hub *notify.Hub, store notify.NotificationStore, log zerolog.Logger) []notify.Channel {
	email := notify.NewEmailChannel(notify.NewSMTPSender(cfg.Email, cfg.ChannelTimeout), cfg.Email.From, notify.NewLimiter(cfg.ChannelRatePerSec))
	sms := notify.NewSMSChannel(notify.NewTwilioAPI(cfg.Twilio), cfg.Twilio.From, notify.NewLimiter(cfg.ChannelRatePerSec))

	var tg notify.TelegramAPI
	if cfg.Telegram.Configured() {
		bot, err := tgbotapi.NewBotAPI(cfg.Telegram.Token)
		if err != nil {
			log.Warn().Err(err).Msg("telegram login failed, channel disabled")
		} else {
			tg = bot
		}
	}
	telegram := notify.NewTelegramChannel(tg, notify.NewLimiter(cfg.ChannelRatePerSec))

	for name, ok := range map[string]bool{
		notify.ChannelEmail:    email.Configured(),
		notify.ChannelSMS:      sms.Configured(),
		notify.ChannelTelegram: telegram.Configured(),
	} {
		if !ok {
			log.Info().Str("channel", name).Msg("credentials not configured, channel disabled")
		}
	}

	return []notify.Channel{
		notify.NewPushChannel(hub, store),
		email,
		sms,
		telegram,
	}
}
