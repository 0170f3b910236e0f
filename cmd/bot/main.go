// cmd/bot/main.go
package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"go.uber.org/zap"

	"github.com/rovshanmuradov/base-sniper-bot/internal/bot"
	"github.com/rovshanmuradov/base-sniper-bot/internal/config"
	"github.com/rovshanmuradov/base-sniper-bot/internal/logger"
)

func main() {
	configPath := flag.String("config", "configs/config.yaml", "path to configuration file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.Init(cfg.DebugLogging, cfg.LogFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to init logger: %v\n", err)
		os.Exit(1)
	}
	log.Info("Starting sniper bot")

	runner := bot.NewRunner(cfg, log)
	defer runner.Shutdown()

	if err := runner.Run(context.Background()); err != nil {
		log.Error("Bot exited with error", zap.Error(err))
		runner.Shutdown()
		os.Exit(1)
	}
}
