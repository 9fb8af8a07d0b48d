// Command seed loads a YAML forest into the configured backend.
//
//	go run ./cmd/seed -file seed/dev.yaml
package main

import (
	"context"
	"flag"
	"log"
	"log/slog"
	"os"

	"github.com/joho/godotenv"

	"promptvault/internal/config"
	"promptvault/internal/repository"
	"promptvault/internal/seed"
)

func main() {
	file := flag.String("file", "seed/dev.yaml", "path to the YAML seed file")
	flag.Parse()

	_ = godotenv.Load()
	cfg := config.Load()

	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))

	ctx := context.Background()
	store, err := repository.NewStore(ctx, cfg, logger)
	if err != nil {
		log.Fatalf("Failed to create store: %v", err)
	}
	defer store.Close()

	count, err := seed.New(store, logger).LoadFile(ctx, *file)
	if err != nil {
		log.Fatalf("Seeding failed after %d items: %v", count, err)
	}

	logger.Info("done", "backend", cfg.Backend, "items", count)
}
