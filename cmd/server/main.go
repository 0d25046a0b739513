package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/gridstake/gridstake/pkg/api"
	authproviders "github.com/gridstake/gridstake/pkg/auth/providers"
	"github.com/gridstake/gridstake/pkg/config"
	"github.com/gridstake/gridstake/pkg/events"
	"github.com/gridstake/gridstake/pkg/log"
	"github.com/gridstake/gridstake/pkg/queue"
	"github.com/gridstake/gridstake/pkg/repositories"
	"github.com/gridstake/gridstake/pkg/service"
	"github.com/gridstake/gridstake/pkg/transfer"
	"github.com/gridstake/gridstake/pkg/version"
)

func main() {
	configPath := flag.String("config", "", "Path to the config file")
	logLevel := flag.String("log-level", "", "Log level (overrides config)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		panic(fmt.Sprintf("Failed to load config: %v", err))
	}

	level := cfg.Server.LogLevel
	if *logLevel != "" {
		level = *logLevel
	}
	parsedLogLevel, err := log.ParseLogLevel(level)
	if err != nil {
		panic(fmt.Sprintf("Failed to parse log level: %v", err))
	}

	logger := log.New(os.Stdout, "", log.DefaultLoggerFlag, parsedLogLevel)
	log.SetDefaultLogger(logger)
	log.Info("Log level set to %s", parsedLogLevel)

	log.Info("Starting server version %s", version.Get())
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	repository, err := newRepository(ctx, cfg.Database.URL)
	if err != nil {
		panic(fmt.Sprintf("Failed to create repository: %v", err))
	}
	defer repository.Close(ctx)

	var transferClient transfer.Client
	if cfg.Ledger.URL != "" {
		transferClient = transfer.NewHTTPClient(cfg.Ledger.URL)
	} else {
		log.Warn("No ledger URL configured, transfers will only be logged")
		transferClient = transfer.NewLogClient()
	}

	transferChan := make(chan transfer.Request, 100)
	eventQueue := queue.NewInMemoryQueue()

	svc := service.NewService(service.NewServiceOptions{
		Repository: repository,
		Transfers:  transferChan,
		Events:     eventQueue,
		Params: service.Params{
			ServiceFeeBps:    cfg.Game.ServiceFeeBps,
			ReferralRatioBps: cfg.Game.ReferralRatioBps,
			MaxGameDuration:  cfg.Game.MaxGameDuration,
			MaxTurnDuration:  cfg.Game.MaxTurnDuration,
			GraceWindow:      cfg.Game.GraceWindow,
			MaxStoredGames:   cfg.Game.MaxStoredGames,
			BoardSize:        cfg.Game.BoardSize,
			WinLength:        cfg.Game.WinLength,
		},
	})

	for _, t := range cfg.Tokens {
		if err := svc.WhitelistToken(ctx, t.Token, t.MinDeposit); err != nil {
			panic(fmt.Sprintf("Failed to whitelist token %s: %v", t.Token, err))
		}
		log.Info("Whitelisted token %s with minimum deposit %d", t.Token, t.MinDeposit)
	}

	transferWorker := transfer.NewWorker(transfer.NewWorkerOptions{
		Client:    transferClient,
		Requests:  transferChan,
		OnFailure: svc.HandleTransferFailure,
	})
	go transferWorker.Start(ctx)

	hub := events.NewHub()
	eventWorker := events.NewWorker(events.NewWorkerOptions{
		Queue: eventQueue,
		Hub:   hub,
	})
	go eventWorker.Start(ctx)

	var tlsConfig *api.TLSConfig
	if cfg.Server.TLSCert != "" && cfg.Server.TLSKey != "" {
		tlsConfig = &api.TLSConfig{
			CertFile: cfg.Server.TLSCert,
			KeyFile:  cfg.Server.TLSKey,
		}
	}

	apiServer := api.NewAPIServer(api.NewAPIServerOptions{
		Port:         cfg.Server.Port,
		TLS:          tlsConfig,
		AuthProvider: authproviders.NewJWTProvider(cfg.Auth.JWTSecret),
		Service:      svc,
		Hub:          hub,
	})
	go apiServer.Start()

	<-ctx.Done()
	log.Info("Shutting down")
	if err := apiServer.Stop(context.Background()); err != nil {
		log.Error("Failed to stop API server: %v", err)
	}
}

func newRepository(ctx context.Context, url string) (repositories.Repository, error) {
	switch {
	case url == "" || url == "memory":
		return repositories.NewMemoryRepository(), nil
	case strings.HasPrefix(url, "postgres://"), strings.HasPrefix(url, "postgresql://"):
		return repositories.NewPostgresRepository(ctx, url)
	default:
		return repositories.NewSQLiteRepository(ctx, url)
	}
}
