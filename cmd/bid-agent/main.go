package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/mrhoo2/email-bdc-agent/internal/app"
	"github.com/mrhoo2/email-bdc-agent/internal/platform/config"
)

func main() {
	input := flag.String("input", "", "Email source: .eml/.mbox file, directory of them, or JSON export")
	extractions := flag.String("extractions", "", "Optional JSON file of precomputed extractions")
	format := flag.String("format", app.FormatText, "Output format (text, json)")
	serve := flag.Bool("serve", false, "Serve the grouped bid list over HTTP instead of printing it")

	flag.Parse()

	if *input == "" {
		log.Fatalf("Usage: %s --input=<path> [--extractions=<path>] [--format=text|json] [--serve]", os.Args[0])
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger := newLogger(cfg.AppEnv, cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	application := app.New(cfg, &logger)
	opts := app.Options{
		InputPath:       *input,
		ExtractionsPath: *extractions,
		Format:          *format,
	}

	if *serve {
		err = application.Serve(ctx, opts)
	} else {
		err = application.Run(ctx, opts, os.Stdout)
	}

	if err != nil {
		if errors.Is(err, context.Canceled) {
			logger.Info().Msg("application stopped")
			return
		}

		logger.Fatal().Err(err).Msg("application error")
	}
}

func newLogger(appEnv, level string) zerolog.Logger {
	var logger zerolog.Logger

	if appEnv == "local" {
		logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}).With().Timestamp().Logger()
	} else {
		logger = zerolog.New(os.Stderr).With().Timestamp().Logger()
	}

	if lvl, err := zerolog.ParseLevel(level); err == nil {
		zerolog.SetGlobalLevel(lvl)
	}

	return logger
}
