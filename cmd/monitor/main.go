// ====================================
// File: cmd/monitor/main.go
// ====================================
package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"go.uber.org/zap"

	solclient "github.com/ataxdi-dev/solana-token-monitor/internal/blockchain/solana"
	"github.com/ataxdi-dev/solana-token-monitor/internal/config"
	"github.com/ataxdi-dev/solana-token-monitor/internal/export"
	"github.com/ataxdi-dev/solana-token-monitor/internal/logger"
	"github.com/ataxdi-dev/solana-token-monitor/internal/monitor"
	"github.com/ataxdi-dev/solana-token-monitor/internal/sink"
)

func main() {
	configPath := flag.String("config", "configs/config.json", "path to config file")
	flag.Parse()

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		zap.NewExample().Fatal("Failed to load config", zap.Error(err))
	}

	log, err := logger.New(&logger.Config{
		LogFile:     cfg.LogFile,
		Development: cfg.DebugLogging,
	})
	if err != nil {
		zap.NewExample().Fatal("Failed to initialize logger", zap.Error(err))
	}
	defer log.Sync()

	log.Info("Starting token launch monitor",
		zap.String("program", logger.ShortenAddress(cfg.ProgramAddress)),
		zap.Int("rpc_nodes", len(cfg.RPCList)))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	client, err := solclient.NewClient(cfg.RPCList, cfg.ProgramAddress, log.Logger)
	if err != nil {
		log.Fatal("Failed to create solana client", zap.Error(err))
	}

	detector, err := monitor.NewLaunchDetector(monitor.Config{
		ProgramAddress:    cfg.ProgramAddress,
		PollInterval:      time.Duration(cfg.PollIntervalMs) * time.Millisecond,
		SignatureLimit:    cfg.SignatureLimit,
		MinValueToTrack:   cfg.MinValueToTrack,
		ConfirmationDelay: time.Duration(cfg.ConfirmationDelayMs) * time.Millisecond,
		Source:            client,
		Fetcher:           client,
		Logger:            log.Logger,
	})
	if err != nil {
		log.Fatal("Failed to create launch detector", zap.Error(err))
	}

	// Session record for export on exit
	var (
		launchesMu sync.Mutex
		launches   []monitor.TokenLaunch
	)
	detector.RegisterListener(func(launch monitor.TokenLaunch) {
		launchesMu.Lock()
		launches = append(launches, launch)
		launchesMu.Unlock()
	})

	announcer := sink.NewConsoleAnnouncer()
	detector.RegisterListener(announcer.Announce)

	if cfg.RedisAddr != "" {
		publisher, err := sink.NewRedisPublisher(ctx, cfg.RedisAddr, log.Logger)
		if err != nil {
			log.Fatal("Failed to connect to redis", zap.Error(err))
		}
		defer publisher.Close()
		detector.RegisterListener(publisher.Announce)
	}

	if err := detector.Start(ctx); err != nil {
		log.Fatal("Failed to start detector", zap.Error(err))
	}

	// Wait for shutdown signal
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigChan
	log.Info("Received shutdown signal", zap.String("signal", sig.String()))

	detector.Stop()
	cancel()

	if cfg.ExportDir != "" {
		launchesMu.Lock()
		session := make([]monitor.TokenLaunch, len(launches))
		copy(session, launches)
		launchesMu.Unlock()

		if len(session) > 0 {
			exporter := export.NewLaunchExporter(log.Logger)
			if _, err := exporter.ExportLaunches(session, export.ExportOptions{
				Format:    export.FormatJSON,
				OutputDir: cfg.ExportDir,
			}); err != nil {
				log.Warn("Failed to export session launches", zap.Error(err))
			}
		}
	}

	log.Info("Monitor shut down")
}
