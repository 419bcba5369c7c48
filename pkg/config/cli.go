package config

import "github.com/urfave/cli/v2"

// Flags are shared by every command that needs a loaded feed.
func Flags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "config",
			Usage:   "path to the YAML configuration file",
			EnvVars: []string{"RAPTOR_CONFIG"},
		},
		&cli.StringFlag{
			Name:  "feed",
			Usage: "GTFS feed to load, a zip archive or a directory",
		},
		&cli.StringFlag{
			Name:  "date",
			Usage: "service date as YYYYMMDD",
		},
	}
}

// FromCLI loads the configuration and applies the shared flags on top.
func FromCLI(c *cli.Context) (Config, error) {
	cfg, err := Load(c.String("config"))
	if err != nil {
		return cfg, err
	}

	if c.IsSet("feed") {
		cfg.Feed.Path = c.String("feed")
	}
	if c.IsSet("date") {
		cfg.Feed.Date = c.String("date")
	}

	return cfg, cfg.Validate()
}
