// Command migrate applies the embedded SQL migrations to DATABASE_URL.
//
//	migrate [-timeout 1m] up|down|redo|reset|status|version [args...]
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

	"go.uber.org/zap"

	"schoolattend/internal/config"
	"schoolattend/internal/logger"
	"schoolattend/internal/store"
)

func main() {
	timeout := flag.Duration("timeout", time.Minute, "abort when migrations take longer")
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "usage: %s [flags] up|down|redo|reset|status|version [args...]\n", os.Args[0])
		flag.PrintDefaults()
	}
	flag.Parse()
	if flag.NArg() < 1 {
		flag.Usage()
		os.Exit(2)
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	lg, err := logger.New(logger.Config{Level: cfg.LogLevel, Environment: cfg.Env, ServiceName: "schoolattend-migrate"})
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer func() { _ = lg.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithTimeout(ctx, *timeout)
	defer cancel()

	db, err := store.NewDB(cfg.DatabaseURL, cfg.StoreTimeout)
	if err != nil {
		lg.Fatal("db connect failed", zap.Error(err))
	}
	defer db.Close()

	command := flag.Arg(0)
	if err := store.Migrate(ctx, db.Client, lg, command, flag.Args()[1:]...); err != nil {
		lg.Fatal("migration failed", zap.String("command", command), zap.Error(err))
	}
	lg.Info("migration finished", zap.String("command", command))
}
