package gtfs

import (
	"fmt"

	"github.com/kr/pretty"
	"github.com/travigo/raptor/pkg/config"
	"github.com/travigo/raptor/pkg/timetable"
	"github.com/urfave/cli/v2"
)

type stopSummary struct {
	Stop      timetable.Stop
	Routes    []string
	Transfers map[string]timetable.Time
}

func RegisterCLI() *cli.Command {
	return &cli.Command{
		Name:  "inspect",
		Usage: "Load a feed and print the timetable statistics",
		Flags: append(config.Flags(),
			&cli.StringSliceFlag{
				Name:  "stop",
				Usage: "also print the routes and transfers of these stops",
			},
		),
		Action: func(c *cli.Context) error {
			cfg, err := config.FromCLI(c)
			if err != nil {
				return err
			}

			tt, err := Load(cfg.Feed.Path, NewOptions(cfg.Feed))
			if err != nil {
				return err
			}

			pretty.Println(tt.Stats())

			for _, id := range c.StringSlice("stop") {
				index, exists := tt.StopByID(id)
				if !exists {
					return fmt.Errorf("%w: %q", timetable.ErrUnknownStop, id)
				}

				summary := stopSummary{
					Stop:      tt.Stop(index),
					Transfers: map[string]timetable.Time{},
				}
				for _, route := range tt.RoutesAt(index) {
					summary.Routes = append(summary.Routes, tt.Route(route).ID)
				}
				for _, transfer := range tt.Transfers(index) {
					summary.Transfers[tt.Stop(transfer.To).ID] = transfer.Duration
				}

				pretty.Println(summary)
			}

			return nil
		},
	}
}
