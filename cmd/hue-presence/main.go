package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/jessevdk/go-flags"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/dokzlo13/huepresence/internal/app"
	"github.com/dokzlo13/huepresence/internal/config"
)

// Options are the command line flags; the first positional argument is the state
type Options struct {
	Config   string `short:"c" long:"config" description:"Path to configuration file"`
	LogLevel string `short:"l" long:"log-level" description:"Log level (debug, info, warn, error)"`
	History  int    `long:"history" description:"Print the last N ledger entries for this host and exit"`
}

func main() {
	options := &Options{}
	args, err := flags.ParseArgs(options, os.Args[1:])
	if err != nil {
		if flagsErr, ok := err.(*flags.Error); ok && flagsErr.Type == flags.ErrHelp {
			return
		}
		os.Exit(1)
	}

	// Load configuration
	cfg, err := config.Load(options.Config)
	if err != nil {
		log.Fatal().Err(err).Str("config", options.Config).Msg("Failed to load configuration")
	}
	if options.LogLevel != "" {
		cfg.Log.Level = options.LogLevel
	}

	// Setup logging
	setupLogging(cfg.Log.Level, cfg.Log.UseJSON, cfg.Log.Colors)

	hostname, err := os.Hostname()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to read hostname")
	}

	application, err := app.New(cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create application")
	}

	if options.History > 0 {
		err = printHistory(application, hostname, options.History)
	} else {
		err = application.Run(context.Background(), hostname, ParseState(args))
	}

	if closeErr := application.Close(); closeErr != nil {
		log.Warn().Err(closeErr).Msg("Error during shutdown")
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// ParseState maps the first positional argument to the presence value.
// Only the literal "on" means present.
func ParseState(args []string) bool {
	return len(args) > 0 && args[0] == "on"
}

func printHistory(application *app.App, hostname string, limit int) error {
	entries, err := application.History(hostname, limit)
	if err != nil {
		return err
	}
	for _, e := range entries {
		fmt.Printf("%s\t%s\t%s\t%s\t%v\n",
			e.Timestamp.Local().Format(time.RFC3339), e.EventType, e.Sensor, e.Bridge, e.Payload)
	}
	return nil
}

func setupLogging(level string, useJSON bool, colors bool) {
	// ISO 8601 format with timezone
	zerolog.TimeFieldFormat = time.RFC3339

	if useJSON {
		log.Logger = zerolog.New(os.Stderr).With().Timestamp().Logger()
	} else {
		log.Logger = log.Output(zerolog.ConsoleWriter{
			Out:        os.Stderr,
			TimeFormat: "2006-01-02T15:04:05.000Z07:00",
			NoColor:    !colors,
		})
	}

	switch level {
	case "debug":
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	case "info":
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	case "warn":
		zerolog.SetGlobalLevel(zerolog.WarnLevel)
	case "error":
		zerolog.SetGlobalLevel(zerolog.ErrorLevel)
	default:
		zerolog.SetGlobalLevel(zerolog.WarnLevel)
	}
}
