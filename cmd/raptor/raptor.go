package main

import (
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/travigo/raptor/pkg/api"
	"github.com/travigo/raptor/pkg/gtfs"
	"github.com/travigo/raptor/pkg/planner"
	"github.com/urfave/cli/v2"
)

func main() {
	// A missing .env file is normal outside local development
	_ = godotenv.Load()

	if os.Getenv("RAPTOR_LOG_FORMAT") != "JSON" {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
	}

	if os.Getenv("RAPTOR_DEBUG") == "YES" {
		log.Logger = log.Logger.Level(zerolog.DebugLevel)
	} else {
		log.Logger = log.Logger.Level(zerolog.InfoLevel)
	}

	app := &cli.App{
		Name:        "raptor",
		Description: "RAPTOR journey planner over GTFS timetables",

		Commands: []*cli.Command{
			planner.RegisterCLI(),
			api.RegisterCLI(),
			gtfs.RegisterCLI(),
		},
	}

	err := app.Run(os.Args)
	if err != nil {
		log.Fatal().Err(err).Send()
	}
}
