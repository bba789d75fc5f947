package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"

	"github.com/abrezinsky/basta/internal/app"
	"github.com/abrezinsky/basta/internal/config"
	"github.com/abrezinsky/basta/internal/logger"
	"github.com/abrezinsky/basta/internal/models"
)

var (
	version = "dev"
)

func main() {
	configPath := flag.String("config", "", "YAML config file (defaults to $CONFIG_PATH, then environment only)")
	port := flag.Int("port", 0, "HTTP server port (overrides http.address)")
	dbPath := flag.String("db", "", "SQLite database path (overrides database.path)")
	logLevel := flag.String("loglevel", "", "Log level: debug, info, warn, error (overrides log_level)")
	httpLog := flag.Bool("httplog", false, "Log every HTTP request")
	issueToken := flag.String("issue-token", "", "Print an access token for this email and exit")
	tokenTTL := flag.Duration("token-ttl", 24*time.Hour, "Lifetime of tokens printed by -issue-token")
	showVersion := flag.Bool("version", false, "Show version and exit")

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, `BASTA - multiplayer word game server

Usage:
  basta [options]

Options:
`)
		flag.PrintDefaults()
		fmt.Fprintf(os.Stderr, `
Examples:
  basta                                   # SQLite basta.db on :8081
  basta -config config/local.yaml         # Use a config file
  basta -port 8080 -db /data/basta.db     # Override port and database
  basta -issue-token ana@example.com      # Print a token for local testing

Environment:
%s`, config.Usage())
	}

	flag.Parse()

	if *showVersion {
		fmt.Printf("basta %s\n", version)
		os.Exit(0)
	}

	if err := config.LoadDotEnv(".env"); err != nil {
		log.Fatal("Failed to load .env: ", err)
	}
	cfg, err := config.Load(config.FetchPath(*configPath))
	if err != nil {
		log.Fatal("Failed to load config: ", err)
	}
	if *port != 0 {
		cfg.HTTP.Address = fmt.Sprintf(":%d", *port)
	}
	if *dbPath != "" {
		cfg.Database.Path = *dbPath
	}
	if *logLevel != "" {
		cfg.LogLevel = *logLevel
	}

	appLog := logger.NewWithOptions(logger.Options{
		Level: logger.ParseLevel(cfg.LogLevel),
		JSON:  !cfg.IsLocal(),
	})
	if *httpLog {
		appLog.EnableHTTPLogging()
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := app.New(ctx, cfg, appLog)
	if err != nil {
		log.Fatal("Failed to initialize application: ", err)
	}
	defer a.Close()

	if *issueToken != "" {
		id := models.Identity{UserID: uuid.New(), Email: *issueToken}
		token, err := a.Verifier().Sign(id, *tokenTTL)
		if err != nil {
			log.Fatal("Failed to sign token: ", err)
		}
		if cfg.Auth.JWTSecret == "" {
			fmt.Fprintln(os.Stderr, "warning: JWT_SECRET is not set, this token only matches a server sharing this process")
		}
		fmt.Fprintf(os.Stderr, "user_id: %s\n", id.UserID)
		fmt.Println(token)
		return
	}

	appLog.Info("BASTA starting", "version", version, "env", cfg.Env)
	if err := a.Run(ctx); err != nil {
		appLog.Error("Server stopped", "error", err)
		a.Close()
		os.Exit(1)
	}
	appLog.Info("Server stopped")
}
