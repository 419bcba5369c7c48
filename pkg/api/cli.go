package api

import (
	"github.com/rs/zerolog/log"
	"github.com/travigo/raptor/pkg/config"
	"github.com/travigo/raptor/pkg/planner"
	"github.com/urfave/cli/v2"
)

func RegisterCLI() *cli.Command {
	return &cli.Command{
		Name:  "web-api",
		Usage: "Provides the journey planning web API",
		Subcommands: []*cli.Command{
			{
				Name:  "run",
				Usage: "run web api server",
				Flags: append(config.Flags(),
					&cli.StringFlag{
						Name:  "listen",
						Usage: "listen target for the web server",
					},
				),
				Action: func(c *cli.Context) error {
					cfg, err := config.FromCLI(c)
					if err != nil {
						return err
					}
					if c.IsSet("listen") {
						cfg.API.Listen = c.String("listen")
					}

					p, err := planner.Setup(c.Context, cfg)
					if err != nil {
						return err
					}

					log.Info().Str("listen", cfg.API.Listen).Msg("Starting web API")

					return SetupServer(cfg.API.Listen, p)
				},
			},
		},
	}
}
