// Command migrate applies the embedded goose migrations.
//
//	migrate up
//	migrate down
//	migrate status
package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"os"

	"github.com/joho/godotenv"

	"github.com/flicky/go-storefront/internal/config"
	"github.com/flicky/go-storefront/internal/repository"
)

func main() {
	log := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	flag.Parse()
	args := flag.Args()
	if len(args) == 0 {
		args = []string{"up"}
	}

	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		log.Warn("load .env", "error", err)
	}
	cfg, err := config.Load()
	if err != nil {
		log.Error("load config", "error", err)
		os.Exit(1)
	}

	ctx := context.Background()
	pool, err := repository.NewPool(ctx, cfg.DB.DSN(), 2)
	if err != nil {
		log.Error("connect to database", "error", err)
		os.Exit(1)
	}
	defer pool.Close()

	if err := repository.Migrate(ctx, pool, args[0], args[1:]...); err != nil {
		log.Error("migrate", "command", args[0], "error", err)
		os.Exit(1)
	}
	log.Info("migration finished", "command", args[0])
}
