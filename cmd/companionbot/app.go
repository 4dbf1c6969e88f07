package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	tgbot "github.com/go-telegram/bot"
	"github.com/jmoiron/sqlx"

	"github.com/edgard/companionbot/internal/agent"
	"github.com/edgard/companionbot/internal/bot"
	"github.com/edgard/companionbot/internal/bot/handlers"
	"github.com/edgard/companionbot/internal/bot/tasks"
	"github.com/edgard/companionbot/internal/chat"
	"github.com/edgard/companionbot/internal/config"
	"github.com/edgard/companionbot/internal/console"
	"github.com/edgard/companionbot/internal/database"
	"github.com/edgard/companionbot/internal/gemini"
	"github.com/edgard/companionbot/internal/logger"
	"github.com/edgard/companionbot/internal/media"
	"github.com/edgard/companionbot/internal/personality"
	"github.com/edgard/companionbot/internal/prompt"
	"github.com/edgard/companionbot/internal/telegram"
	"github.com/edgard/companionbot/internal/tools"
	"github.com/edgard/companionbot/internal/web"
)

// app holds the components shared by every command.
type app struct {
	cfg           *config.Config
	log           *slog.Logger
	db            *sqlx.DB
	store         database.Store
	personalities *personality.Store
	signer        *media.SignedURLPublisher
	chat          *chat.Service
}

// newApp connects the database and assembles the agent behind the chat service.
func newApp(ctx context.Context, cfg *config.Config, log *slog.Logger) (*app, error) {
	db, err := database.NewDB(cfg.Database.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database %s: %w", cfg.Database.Path, err)
	}
	store := database.NewStore(db, log)

	personalities, err := personality.NewStore(store, cfg.Agent.Personality, log)
	if err != nil {
		database.CloseDB(db)
		return nil, fmt.Errorf("failed to load personality: %w", err)
	}

	gem, err := gemini.NewClient(ctx, cfg.Gemini, log)
	if err != nil {
		database.CloseDB(db)
		return nil, fmt.Errorf("failed to initialize Gemini client: %w", err)
	}

	registry, err := tools.Build(cfg.Agent.Tools, tools.Deps{
		Logger:        log,
		Blocks:        store,
		Images:        gem,
		Searcher:      gem,
		Speech:        gem,
		Personalities: personalities,
	})
	if err != nil {
		database.CloseDB(db)
		return nil, fmt.Errorf("failed to build tools: %w", err)
	}

	a := &app{cfg: cfg, log: log, db: db, store: store, personalities: personalities}

	var publisher media.Publisher
	switch cfg.Media.Backend {
	case "s3":
		publisher = media.NewS3PublisherFromConfig(cfg.Media)
	default:
		a.signer = media.NewSignedURLPublisher(cfg.Web.PublicURL, cfg.Web.SigningKey, cfg.Media.URLTTL)
		publisher = a.signer
	}
	log.Info("Media backend selected", "backend", cfg.Media.Backend)

	format := agent.Format(cfg.Agent.Format)
	runtime := gemini.NewRuntime(gem, personalities, prompt.ToolInfos(registry), format)
	reconciler := agent.NewReconciler(runtime, registry, media.NewResolver(store, publisher, log), agent.Options{
		MaxIterations: cfg.Agent.MaxIterations,
		Format:        format,
		Messages: agent.Messages{
			GeneralError:     cfg.Messages.ErrorGeneralMsg,
			MediaUnavailable: cfg.Messages.MediaUnavailableMsg,
			EmptyAnswer:      cfg.Messages.EmptyAnswerMsg,
		},
		AppendUnreferencedMedia: cfg.Agent.AppendUnreferencedMedia,
		Logger:                  log,
	})

	a.chat = chat.NewService(reconciler, store, cfg.Database.MaxHistoryMessages, cfg.Agent.Timeout, log)
	log.Info("Agent ready", "tools", registry.Names(), "format", format, "max_iterations", cfg.Agent.MaxIterations)
	return a, nil
}

func (a *app) Close() {
	database.CloseDB(a.db)
}

// serve runs every enabled channel and the scheduler until ctx is cancelled.
func serve(ctx context.Context, configPath string) error {
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		slog.Error("Failed to load configuration", "path", configPath, "error", err)
		return err
	}

	log := logger.NewLogger(cfg.Logger.Level, cfg.Logger.JSON)
	log.Info("Logger initialized", "level", cfg.Logger.Level, "json", cfg.Logger.JSON)

	a, err := newApp(ctx, cfg, log)
	if err != nil {
		log.Error("Failed to initialize", "error", err)
		return err
	}
	defer a.Close()

	var poller bot.Poller
	if cfg.Telegram.Enabled {
		tg, err := a.newTelegram(ctx)
		if err != nil {
			log.Error("Failed to set up Telegram", "error", err)
			return err
		}
		poller = tg
	}

	var server bot.Server
	if cfg.Web.Enabled {
		deps := web.Deps{
			Logger:        log,
			Config:        cfg.Web,
			Messages:      cfg.Messages,
			Chat:          a.chat,
			Personalities: a.personalities,
			Blocks:        a.store,
		}
		if a.signer != nil {
			deps.Verifier = a.signer
		}
		server = web.NewServer(deps)
	}

	sched, err := bot.NewScheduler(log, &cfg.Scheduler, tasks.RegisterAllTasks(tasks.TaskDeps{
		Logger: log,
		Store:  a.store,
		Config: cfg,
	}))
	if err != nil {
		log.Error("Failed to create scheduler", "error", err)
		return err
	}

	log.Info("Starting bot...", "telegram", cfg.Telegram.Enabled, "web", cfg.Web.Enabled)
	runErr := bot.NewBot(log, poller, server, sched).Run(ctx)
	if runErr != nil && !errors.Is(runErr, context.Canceled) {
		log.Error("Bot stopped due to error", "error", runErr)
		return runErr
	}

	log.Info("Bot stopped gracefully.")
	return nil
}

// newTelegram creates the Telegram bot, learns its own identity and registers the commands.
func (a *app) newTelegram(ctx context.Context) (*tgbot.Bot, error) {
	hDeps := handlers.HandlerDeps{
		Logger:        a.log,
		Config:        a.cfg,
		Chat:          a.chat,
		Personalities: a.personalities,
	}

	tg, err := telegram.NewTelegramBot(a.cfg.Telegram.Token, a.log,
		tgbot.WithMiddlewares(logger.Middleware(a.log)),
		tgbot.WithDefaultHandler(handlers.NewChatHandler(hDeps)),
	)
	if err != nil {
		return nil, err
	}

	// Handlers read BotInfo through the shared config.
	a.cfg.Telegram.BotInfo, err = tg.GetMe(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get bot info: %w", err)
	}
	a.log.Info("Retrieved bot info", "bot_id", a.cfg.Telegram.BotInfo.ID, "bot_username", a.cfg.Telegram.BotInfo.Username)

	if err := telegram.RegisterHandlers(tg, a.log, handlers.RegisterAllCommands(hDeps)); err != nil {
		return nil, err
	}
	return tg, nil
}

// chatREPL answers lines typed in the terminal. Logs go to stderr so they do
// not mix with the conversation.
func chatREPL(ctx context.Context, configPath string, in io.Reader, out io.Writer) error {
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return err
	}

	log := logger.New(os.Stderr, cfg.Logger.Level, cfg.Logger.JSON)
	slog.SetDefault(log)

	a, err := newApp(ctx, cfg, log)
	if err != nil {
		log.Error("Failed to initialize", "error", err)
		return err
	}
	defer a.Close()

	return console.REPL(ctx, a.chat, in, out)
}
