package planner

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/liip/sheriff"
	"github.com/travigo/raptor/pkg/config"
	"github.com/travigo/raptor/pkg/timetable"
	"github.com/travigo/raptor/pkg/util"
	"github.com/urfave/cli/v2"
)

func queryFlags() []cli.Flag {
	return append(config.Flags(),
		&cli.StringFlag{Name: "origin", Usage: "origin stop or station", Required: true},
		&cli.StringFlag{Name: "destination", Usage: "destination stop or station", Required: true},
		&cli.StringFlag{Name: "departure", Usage: "departure time as HH:MM:SS", Value: "00:00:00"},
		&cli.IntFlag{Name: "max-rounds", Usage: "maximum number of boardings"},
		&cli.StringFlag{Name: "criteria", Usage: "comma separated extra criteria: walking, fare"},
		&cli.IntFlag{Name: "bag-cap", Usage: "maximum labels kept per stop"},
		&cli.StringFlag{Name: "mode", Usage: "range query mode: single or multi"},
		&cli.DurationFlag{Name: "window", Usage: "range query departure window"},
		&cli.DurationFlag{Name: "step", Usage: "range query step, zero scans scheduled departures"},
		&cli.IntFlag{Name: "workers", Usage: "concurrent range query runs"},
		&cli.StringFlag{Name: "filter", Usage: "journey filter expression"},
		&cli.BoolFlag{Name: "detail", Usage: "print every journey field"},
	)
}

func overridesFromCLI(c *cli.Context) Overrides {
	var overrides Overrides

	if c.IsSet("max-rounds") {
		overrides.MaxRounds = util.Pointer(c.Int("max-rounds"))
	}
	if c.IsSet("bag-cap") {
		overrides.BagCap = util.Pointer(c.Int("bag-cap"))
	}
	if c.IsSet("mode") {
		overrides.Mode = util.Pointer(c.String("mode"))
	}
	if c.IsSet("workers") {
		overrides.Workers = util.Pointer(c.Int("workers"))
	}
	if c.IsSet("window") {
		overrides.Window = util.Pointer(int(c.Duration("window").Seconds()))
	}
	if c.IsSet("step") {
		overrides.Step = util.Pointer(int(c.Duration("step").Seconds()))
	}
	if c.IsSet("criteria") {
		overrides.Criteria = []string{}
		if criteria := c.String("criteria"); criteria != "" {
			overrides.Criteria = util.RemoveDuplicateStrings(strings.Split(criteria, ","), []string{})
		}
	}

	return overrides
}

func queryCommand(kind Kind, usage string) *cli.Command {
	return &cli.Command{
		Name:  string(kind),
		Usage: usage,
		Flags: queryFlags(),
		Action: func(c *cli.Context) error {
			cfg, err := config.FromCLI(c)
			if err != nil {
				return err
			}

			departure, err := timetable.ParseTime(c.String("departure"))
			if err != nil {
				return err
			}

			request := Request{
				Origin:      c.String("origin"),
				Destination: c.String("destination"),
				Departure:   departure,
				Filter:      c.String("filter"),
				Routing:     overridesFromCLI(c),
			}

			p, err := Setup(c.Context, cfg)
			if err != nil {
				return err
			}

			response, err := p.Plan(c.Context, kind, request)
			if err != nil {
				return err
			}

			groups := []string{"basic"}
			if c.Bool("detail") {
				groups = []string{"basic", "detailed"}
			}

			reduced, err := sheriff.Marshal(&sheriff.Options{Groups: groups}, response)
			if err != nil {
				return err
			}

			encoder := json.NewEncoder(os.Stdout)
			encoder.SetIndent("", "  ")
			if err := encoder.Encode(reduced); err != nil {
				return err
			}

			if !response.Found {
				return cli.Exit(fmt.Sprintf("no journey from %s to %s", request.Origin, request.Destination), 2)
			}
			return nil
		},
	}
}

func RegisterCLI() *cli.Command {
	return &cli.Command{
		Name:  "query",
		Usage: "Plan journeys against a feed from the command line",
		Subcommands: []*cli.Command{
			queryCommand(KindEarliest, "earliest arrival with the fewest boardings"),
			queryCommand(KindPareto, "pareto optimal journeys over arrival, boardings and the extra criteria"),
			queryCommand(KindRange, "pareto frontier over a window of departure times"),
		},
	}
}
