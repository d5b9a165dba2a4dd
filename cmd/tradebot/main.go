package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/xetas/tradebot/pkg/agent"
	"github.com/xetas/tradebot/pkg/config"
	"github.com/xetas/tradebot/pkg/farm"
	"github.com/xetas/tradebot/pkg/journal"
	"github.com/xetas/tradebot/pkg/logging"
	"github.com/xetas/tradebot/pkg/platform"
	"github.com/xetas/tradebot/pkg/sentry"
	"github.com/xetas/tradebot/pkg/trade"
	"github.com/xetas/tradebot/pkg/twofactor"
	"github.com/xetas/tradebot/pkg/version"
	"github.com/xetas/tradebot/pkg/web"
)

func main() {
	configPath := flag.String("config", "tradebot.yaml", "YAML configuration file")
	account := flag.String("account", "", "Account name of the bot entry to run (required with multiple entries)")
	driver := flag.String("driver", "fake", "Platform client driver")
	logLevel := flag.String("log-level", "", "Log level: "+logging.LevelNames())
	logFormat := flag.String("log-format", "", "Log format: text or json")
	metricsAddr := flag.String("metrics", "", "HTTP bind address for /metrics and /healthz (empty to disable)")
	showVersion := flag.Bool("version", false, "Print version and exit")
	flag.Parse()

	if *showVersion {
		fmt.Println(version.String())
		return
	}

	// Secrets may come from a local .env file instead of the shell.
	_ = godotenv.Load()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}

	// Flags override the file.
	if *logLevel == "" {
		*logLevel = cfg.LogLevel
	}
	if *logFormat == "" {
		*logFormat = cfg.LogFormat
	}
	if *metricsAddr == "" {
		*metricsAddr = cfg.MetricsAddr
	}

	if err := logging.Setup(logging.Options{
		Level:  *logLevel,
		Format: *logFormat,
		Output: os.Stdout,
	}); err != nil {
		fmt.Fprintf(os.Stderr, "invalid logging config: %v\n", err)
		os.Exit(1)
	}

	bot, err := cfg.Bot(*account)
	if err != nil {
		slog.Error("select bot", "err", err)
		os.Exit(1)
	}
	if err := bot.Validate(); err != nil {
		slog.Error("invalid bot configuration", "err", err)
		os.Exit(1)
	}

	if err := os.MkdirAll(cfg.DataDir, 0o700); err != nil {
		slog.Error("create data directory", "err", err)
		os.Exit(1)
	}

	client, err := platform.Open(*driver)
	if err != nil {
		slog.Error("open platform client", "err", err)
		os.Exit(1)
	}

	jnl, err := journal.Open(cfg.JournalPath)
	if err != nil {
		slog.Error("open journal", "err", err)
		os.Exit(1)
	}
	defer jnl.Close()

	session, err := web.NewSession(cfg.WebBaseURL)
	if err != nil {
		slog.Error("create web session", "err", err)
		os.Exit(1)
	}

	secrets := twofactor.NewSecretStore(cfg.DataDir, os.Getenv("TRADEBOT_SECRETS_KEY"))
	codes := twofactor.NewProvider(secrets)
	sentries := sentry.NewStore(cfg.DataDir)
	checker := trade.NewChecker(session, jnl, bot)
	farmer := farm.NewFarmer(session, 0)

	ag := agent.New(bot, agent.Dependencies{
		Client:   client,
		Web:      session,
		Codes:    codes,
		Sentries: sentries,
		Farmer:   farmer,
		Checker:  checker,
		Recorder: jnl,
	})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	ag.Metrics().StartHTTP(ctx, *metricsAddr)

	slog.Info("starting bot", "account", bot.AccountName, "version", version.String())
	if err := ag.Start(ctx); err != nil {
		slog.Error("bot error", "err", err)
		os.Exit(1)
	}
	slog.Info("shut down")
}
