package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"hostprobe-agent/internal/config"
	"hostprobe-agent/internal/probe"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	logger := probe.BuildLogger(cfg)
	p, err := probe.New(cfg, logger)
	if err != nil {
		logger.Error("probe initialization failed", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	row, runErr := p.RunOnce(ctx)

	closeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := p.Close(closeCtx); err != nil {
		logger.Warn("sink close failed", "error", err)
	}

	if runErr != nil {
		logger.Error("probe run failed", "error", runErr)
		os.Exit(1)
	}
	fmt.Println(row)
}
