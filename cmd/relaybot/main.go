package main

import (
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/alecthomas/kong"

	"github.com/mvanwyk/relaybot/internal/config"
	"github.com/mvanwyk/relaybot/internal/gateway"
	"github.com/mvanwyk/relaybot/internal/llm"
	. "github.com/mvanwyk/relaybot/internal/logging"
	"github.com/mvanwyk/relaybot/internal/store"
	"github.com/mvanwyk/relaybot/internal/telegram"
)

const version = "0.1.0"

var cli struct {
	Config  string           `help:"Path to config file." type:"path"`
	DB      string           `help:"Override the database path." type:"path"`
	Debug   bool             `help:"Enable debug logging."`
	Version kong.VersionFlag `help:"Print version and exit."`
}

func main() {
	kong.Parse(&cli,
		kong.Name("relaybot"),
		kong.Description("Multi-user Telegram relay to an OpenAI-compatible completion service."),
		kong.Vars{"version": "relaybot " + version},
	)

	level := LevelInfo
	if cli.Debug {
		level = LevelDebug
	}
	Init(&Config{
		Level:      level,
		TimeFormat: "15:04:05",
		ShowCaller: cli.Debug,
	})

	L_info("relaybot %s starting", version)

	cfg, err := config.Load(cli.Config)
	if err != nil {
		L_fatal("failed to load config: %v", err)
	}
	if cli.DB != "" {
		cfg.Store.Path = cli.DB
	}
	if cfg.Telegram.BotToken == "" {
		L_fatal("no telegram bot token: set telegram.botToken in the config or TELEGRAM_TOKEN in the environment")
	}

	st, err := store.Open(cfg.Store.Path)
	if err != nil {
		L_fatal("failed to open store: %v", err)
	}
	defer st.Close()

	completer := llm.NewOpenAIClient(
		cfg.Upstream.BaseURL,
		time.Duration(cfg.Upstream.TimeoutSeconds)*time.Second,
	)

	gw := gateway.New(st, completer, gateway.Options{
		MaxTurns:        cfg.History.MaxTurns,
		MaxTokens:       cfg.History.MaxTokens,
		ProbeCredential: cfg.Upstream.Probe(),
	})

	bot, err := telegram.New(cfg.Telegram.BotToken, gw)
	if err != nil {
		L_fatal("failed to start telegram bot: %v", err)
	}

	go bot.Start()
	L_info("relaybot ready")

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig

	L_info("shutting down")
	bot.Stop()
}
