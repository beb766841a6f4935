// Package main contains the entrypoint for the freight monitor bot.
package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	tgbot "github.com/go-telegram/bot"

	"github.com/otabekdev/yukmonitor/internal/bot"
	"github.com/otabekdev/yukmonitor/internal/bot/handlers"
	"github.com/otabekdev/yukmonitor/internal/bot/tasks"
	"github.com/otabekdev/yukmonitor/internal/config"
	"github.com/otabekdev/yukmonitor/internal/database"
	"github.com/otabekdev/yukmonitor/internal/events"
	"github.com/otabekdev/yukmonitor/internal/extract"
	"github.com/otabekdev/yukmonitor/internal/ingest"
	"github.com/otabekdev/yukmonitor/internal/logger"
	"github.com/otabekdev/yukmonitor/internal/report"
	"github.com/otabekdev/yukmonitor/internal/telegram"
	"github.com/otabekdev/yukmonitor/internal/web"

	_ "modernc.org/sqlite"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	exitCode := run(ctx)
	stop() // Ensure context cancellation is signaled before exit
	os.Exit(exitCode)
}

// run initializes and starts all application components (config, logger, db,
// extractor, bot, scheduler, HTTP API), handles graceful shutdown, and
// returns an exit code (0 for success, 1 for failure).
func run(ctx context.Context) int {
	configPath := flag.String("config", "./config.yaml", "Path to configuration file")
	flag.Parse()

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		slog.Error("Failed to load configuration", "path", *configPath, "error", err)
		return 1
	}

	log := logger.NewLogger(cfg.Logger.Level, cfg.Logger.JSON)
	slog.SetDefault(log)
	log.Info("Logger initialized", "level", cfg.Logger.Level, "json", cfg.Logger.JSON)

	db, err := database.NewDB(cfg.Database.Path)
	if err != nil {
		log.Error("Failed to connect to database", "path", cfg.Database.Path, "error", err)
		return 1
	}
	defer database.CloseDB(db)
	store := database.NewStore(db, log)

	var publisher *events.Publisher
	if cfg.Events.Enabled {
		publisher, err = events.NewPublisher(cfg.Events.URL, cfg.Events.Exchange, log)
		if err != nil {
			log.Error("Failed to connect event publisher", "url", cfg.Events.URL, "error", err)
			return 1
		}
		defer func() {
			if err := publisher.Close(); err != nil {
				log.Error("Error closing event publisher", "error", err)
			}
		}()
	}

	extractor := extract.New(extract.DefaultKeywords())

	var sink ingest.EventSink
	if publisher != nil {
		sink = publisher
	}
	ingestor := ingest.New(store, extractor, sink, log)
	reports := report.NewBuilder(store, log)

	hDeps := handlers.HandlerDeps{
		Logger:   log,
		Config:   cfg,
		Store:    store,
		Ingestor: ingestor,
		Reports:  reports,
	}

	botOpts := []tgbot.Option{
		tgbot.WithMiddlewares(logger.Middleware(log)),
		tgbot.WithDefaultHandler(handlers.NewChannelPostHandler(hDeps)),
		tgbot.WithAllowedUpdates(tgbot.AllowedUpdates{"message", "channel_post", "edited_channel_post"}),
	}
	tg, err := telegram.NewTelegramBot(cfg.Telegram.Token, log, botOpts...)
	if err != nil {
		log.Error("Failed to create Telegram bot", "error", err)
		return 1
	}

	// Retrieve bot info and store it in the config for runtime use
	cfg.Telegram.BotInfo, err = tg.GetMe(ctx)
	if err != nil {
		log.Error("Failed to get bot info", "error", err)
		return 1
	}
	log.Info("Retrieved bot info", "bot_id", cfg.Telegram.BotInfo.ID, "bot_username", cfg.Telegram.BotInfo.Username)

	cmdHandlers := handlers.RegisterAllCommands(hDeps)
	if err := telegram.RegisterHandlers(tg, log, cmdHandlers); err != nil {
		log.Error("Failed to register Telegram handlers", "error", err)
		return 1
	}

	tDeps := tasks.TaskDeps{
		Logger:  log,
		Store:   store,
		Reports: reports,
		TgBot:   tg,
		Config:  cfg,
	}
	sched := bot.NewScheduler(log, &cfg.Scheduler, tasks.RegisterAllTasks(tDeps))

	var webServer *web.Server
	if cfg.Web.Enabled {
		webServer = web.NewServer(cfg.Web.Addr, store, reports, log)
	}

	app := bot.NewBot(log, cfg, db, store, tg, sched, webServer)

	log.Info("Starting bot...")
	runErr := app.Run(ctx) // Run blocks until context is cancelled or an error occurs
	log.Info("Bot run loop finished. Initiating shutdown...")

	if runErr != nil && !errors.Is(runErr, context.Canceled) {
		log.Error("Bot stopped due to error", "error", runErr)
		time.Sleep(time.Second)
		return 1
	}

	log.Info("Bot stopped gracefully.")
	time.Sleep(time.Second)
	return 0
}
