package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"hmmsynth/internal/config"
	"hmmsynth/internal/container"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("❌ configuration: %v", err)
	}
	c, err := container.New(cfg)
	if err != nil {
		log.Fatalf("❌ container: %v", err)
	}
	defer c.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	spec, err := c.LoadSpec(ctx, "")
	if err != nil {
		log.Fatalf("❌ model: %v", err)
	}
	srv, err := c.Server(ctx, spec)
	if err != nil {
		log.Fatalf("❌ server: %v", err)
	}
	if err := srv.Run(ctx, c.Addr(), cfg.Server.ShutdownTimeout); err != nil {
		log.Fatalf("❌ server: %v", err)
	}
}
