// Command telegram_bot serves LibriPal over Telegram.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"libripal/api"
	"libripal/config"
	"libripal/library"
	"libripal/telegram"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load(".env")
	if err != nil {
		return err
	}
	if cfg.TelegramToken == "" {
		return errors.New("TELEGRAM_BOT_TOKEN is not set")
	}

	logger, closer, err := cfg.NewLogger()
	if err != nil {
		return err
	}
	defer closer.Close()

	store, err := library.NewStore(cfg.StorePath())
	if err != nil {
		return fmt.Errorf("open local store: %w", err)
	}
	defer store.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	client := api.NewClient(cfg.APIURL, api.WithTimeout(cfg.RequestTimeout), api.WithLogger(logger))
	bot := telegram.New(client, store, telegram.Options{
		Rate:        cfg.TelegramRate,
		ChatTimeout: cfg.ChatTimeout,
		Currency:    cfg.Currency,
		Logger:      logger,
	})
	logger.Info("starting telegram bot", "api", cfg.APIURL)
	return bot.Run(ctx, cfg.TelegramToken)
}
